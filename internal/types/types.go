package types

import (
	"fmt"
	"strings"
)

// TypeID uniquely identifies a type inside a Context.
type TypeID uint32

// NoTypeID marks the absence of a type.
const NoTypeID TypeID = 0

// MethodID uniquely identifies a method inside a Context.
type MethodID uint32

// NoMethodID marks the absence of a method.
const NoMethodID MethodID = 0

// ModuleID uniquely identifies a module inside a Context.
type ModuleID uint32

// NoModuleID marks the absence of a module.
const NoModuleID ModuleID = 0

// Kind enumerates the supported kinds of types.
type Kind uint8

const (
	KindInvalid Kind = iota
	KindClass
	KindValueType
	KindInterface
	KindArray
	KindGlobal // top-level scope of a module
)

func (k Kind) String() string {
	switch k {
	case KindInvalid:
		return "invalid"
	case KindClass:
		return "class"
	case KindValueType:
		return "struct"
	case KindInterface:
		return "interface"
	case KindArray:
		return "array"
	case KindGlobal:
		return "global"
	default:
		return fmt.Sprintf("Kind(%d)", k)
	}
}

// ParseKind converts a manifest spelling into a Kind.
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "class":
		return KindClass, nil
	case "struct", "valuetype":
		return KindValueType, nil
	case "interface":
		return KindInterface, nil
	default:
		return KindInvalid, fmt.Errorf("invalid type kind: %q (expected: class|struct|interface)", s)
	}
}

// Type is a type-system entity. Every field is fixed at creation except the
// base type and the declared method list, which loaders fill in afterwards.
type Type struct {
	id        TypeID
	kind      Kind
	module    Module
	namespace string
	name      string
	arity     int

	base    *Type
	def     *Type   // generic definition for instantiations
	args    []*Type // type arguments for instantiations
	elem    *Type   // element type for arrays
	methods []*Method
}

// ID returns the context-unique identifier of the type.
func (t *Type) ID() TypeID {
	if t == nil {
		return NoTypeID
	}
	return t.id
}

func (t *Type) Kind() Kind { return t.kind }

// Module returns the owning module. Instantiations are owned by the module
// of their generic definition and arrays by the module of their element.
func (t *Type) Module() Module { return t.module }

func (t *Type) Namespace() string { return t.namespace }

func (t *Type) Name() string { return t.name }

// Arity is the number of generic parameters declared by the definition.
func (t *Type) Arity() int { return t.arity }

// Base returns the base type, or nil. Instantiations report the base of
// their definition.
func (t *Type) Base() *Type {
	if t.def != nil {
		return t.def.base
	}
	return t.base
}

// Definition returns the generic definition of an instantiation, the type
// itself otherwise.
func (t *Type) Definition() *Type {
	if t.def != nil {
		return t.def
	}
	return t
}

// TypeArgs returns the instantiation arguments. The slice must not be modified.
func (t *Type) TypeArgs() []*Type { return t.args }

// Elem returns the element type of an array.
func (t *Type) Elem() *Type { return t.elem }

// IsGenericDefinition reports whether t declares generic parameters and is not
// itself an instantiation.
func (t *Type) IsGenericDefinition() bool { return t.arity > 0 && t.def == nil }

// IsInstantiation reports whether t is a generic definition applied to arguments.
func (t *Type) IsInstantiation() bool { return t.def != nil }

// IsGeneric reports whether t is a generic definition or an instantiation.
func (t *Type) IsGeneric() bool { return t.arity > 0 }

// IsParameterized reports whether t is built from another type (arrays).
func (t *Type) IsParameterized() bool { return t.kind == KindArray }

func (t *Type) IsValueType() bool { return t.kind == KindValueType }

// IsCanonicalShareable reports whether code over t may be shared with other
// reference-type instantiations.
func (t *Type) IsCanonicalShareable() bool {
	switch t.kind {
	case KindClass, KindInterface, KindArray:
		return true
	default:
		return false
	}
}

// HasVirtualSlots reports whether t or any of its bases declares a virtual method.
func (t *Type) HasVirtualSlots() bool {
	if t.module != nil {
		ctx := t.module.Context()
		ctx.mu.RLock()
		defer ctx.mu.RUnlock()
	}
	for cur := t; cur != nil; cur = cur.Base() {
		for _, m := range cur.Definition().methods {
			if m.virtual {
				return true
			}
		}
	}
	return false
}

// FullName returns "Namespace.Name" without type arguments.
func (t *Type) FullName() string {
	if t.namespace == "" {
		return t.name
	}
	return t.namespace + "." + t.name
}

func (t *Type) String() string {
	if t == nil {
		return "<nil>"
	}
	switch {
	case t.kind == KindArray:
		return t.elem.String() + "[]"
	case t.def != nil:
		var sb strings.Builder
		sb.WriteString(t.FullName())
		sb.WriteByte('<')
		for i, a := range t.args {
			if i > 0 {
				sb.WriteByte(',')
			}
			sb.WriteString(a.String())
		}
		sb.WriteByte('>')
		return sb.String()
	case t.arity > 0:
		return fmt.Sprintf("%s`%d", t.FullName(), t.arity)
	default:
		return t.FullName()
	}
}
