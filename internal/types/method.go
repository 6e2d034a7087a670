package types

import "strings"

// Method belongs to exactly one owning type. A method on an instantiated type
// and an instantiated generic method are distinct Method values pointing back
// at the method they were derived from.
type Method struct {
	id      MethodID
	name    string
	owner   *Type
	virtual bool
	arity   int

	typical *Method // same method on the owner's generic definition
	def     *Method // generic method definition for method instantiations
	args    []*Type
}

func (m *Method) ID() MethodID {
	if m == nil {
		return NoMethodID
	}
	return m.id
}

func (m *Method) Name() string { return m.name }

func (m *Method) Owner() *Type { return m.owner }

func (m *Method) Virtual() bool { return m.virtual }

// Arity is the number of generic parameters the method itself declares.
func (m *Method) Arity() int { return m.arity }

// TypeArgs returns the method instantiation arguments.
func (m *Method) TypeArgs() []*Type { return m.args }

// Definition returns the generic method definition of an instantiation, the
// method itself otherwise.
func (m *Method) Definition() *Method {
	if m.def != nil {
		return m.def
	}
	return m
}

// Typical returns the method as declared on the owner's generic definition.
func (m *Method) Typical() *Method {
	cur := m.Definition()
	if cur.typical != nil {
		return cur.typical
	}
	return cur
}

// IsGenericDefinition reports whether m declares its own generic parameters
// and has not been instantiated.
func (m *Method) IsGenericDefinition() bool { return m.arity > 0 && m.def == nil }

// IsInstantiation reports whether m is a generic method applied to arguments.
func (m *Method) IsInstantiation() bool { return m.def != nil }

// IsGeneric reports whether m or its owning type is generic.
func (m *Method) IsGeneric() bool { return m.arity > 0 || m.owner.IsGeneric() }

// HasGenericDictionary reports whether m carries its own method-level
// generic dictionary.
func (m *Method) HasGenericDictionary() bool { return m.def != nil }

// SharesCanonicalBody reports whether m is an instantiation whose code is
// the shared canonical form: every type argument, of the owner and of the
// method, is a reference type.
func (m *Method) SharesCanonicalBody() bool {
	if !m.owner.IsInstantiation() && !m.IsInstantiation() {
		return false
	}
	for _, a := range m.owner.args {
		if !a.IsCanonicalShareable() {
			return false
		}
	}
	for _, a := range m.args {
		if !a.IsCanonicalShareable() {
			return false
		}
	}
	return true
}

// DefinitionModule returns the module that declares the uninstantiated method.
func (m *Method) DefinitionModule() Module {
	return m.Typical().owner.Module()
}

func (m *Method) String() string {
	if m == nil {
		return "<nil>"
	}
	var sb strings.Builder
	sb.WriteString(m.owner.String())
	sb.WriteString("::")
	sb.WriteString(m.name)
	if len(m.args) > 0 {
		sb.WriteByte('<')
		for i, a := range m.args {
			if i > 0 {
				sb.WriteByte(',')
			}
			sb.WriteString(a.String())
		}
		sb.WriteByte('>')
	}
	return sb.String()
}
