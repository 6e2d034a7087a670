package types

import (
	"slices"
)

// GlobalTypeName is the display name of every module's top-level scope type.
const GlobalTypeName = "<Module>"

// Module is a compilation unit that owns declared types. Implementations
// embed ModuleBase and are initialized through Context.InitModule.
type Module interface {
	ID() ModuleID
	Name() string
	Context() *Context
	// Types returns a snapshot of the declared types. The global type is
	// not part of the enumeration.
	Types() []*Type
	// GlobalType returns the module's top-level scope placeholder. The same
	// pointer is returned on every call.
	GlobalType() *Type
	// GetType resolves a type by namespace and name. A miss is always an
	// error, never a nil type.
	GetType(namespace, name string) (*Type, error)

	moduleBase() *ModuleBase
}

// ModuleBase holds the state shared by every module variant.
type ModuleBase struct {
	ctx    *Context
	id     ModuleID
	name   string
	global *Type
	types  []*Type
	byName map[string]*Type
}

func (b *ModuleBase) ID() ModuleID { return b.id }

func (b *ModuleBase) Name() string { return b.name }

func (b *ModuleBase) Context() *Context { return b.ctx }

func (b *ModuleBase) GlobalType() *Type { return b.global }

func (b *ModuleBase) Types() []*Type {
	b.ctx.mu.RLock()
	defer b.ctx.mu.RUnlock()
	return slices.Clone(b.types)
}

func (b *ModuleBase) moduleBase() *ModuleBase { return b }

func (b *ModuleBase) lookup(namespace, name string) (*Type, bool) {
	b.ctx.mu.RLock()
	defer b.ctx.mu.RUnlock()
	t, ok := b.byName[qualifiedKey(namespace, name)]
	return t, ok
}

func qualifiedKey(namespace, name string) string {
	return namespace + "\x00" + name
}

// InputModule is a module loaded from the compilation inputs.
type InputModule struct {
	ModuleBase
}

// GetType resolves a declared type by name.
func (m *InputModule) GetType(namespace, name string) (*Type, error) {
	if t, ok := m.lookup(namespace, name); ok {
		return t, nil
	}
	return nil, &TypeNotFoundError{Namespace: namespace, Name: name, Module: m}
}

// ByID orders modules by identifier.
func ByID(a, b Module) int {
	switch {
	case a.ID() < b.ID():
		return -1
	case a.ID() > b.ID():
		return 1
	default:
		return 0
	}
}
