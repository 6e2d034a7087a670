package partition

import (
	"aotc/internal/types"
)

// GeneratedModuleName identifies the module that holds compiler-fabricated
// types. No input module may use it.
const GeneratedModuleName = "System.Private.CompilerGenerated"

// Group carries the state every strategy shares: the type system context and
// the compiler-generated module. Strategies embed it.
type Group struct {
	ctx       *types.Context
	generated *generatedModule
}

// NewGroup creates the compiler-generated module for ctx.
func NewGroup(ctx *types.Context) Group {
	return Group{ctx: ctx, generated: newGeneratedModule(ctx)}
}

// GeneratedModule returns the module that holds compiler-fabricated types.
// Types whose owning module is this module are always generated into the
// current output.
func (g *Group) GeneratedModule() types.Module { return g.generated }

// Context returns the type system context the group was built over.
func (g *Group) Context() *types.Context { return g.ctx }

// isGenerated reports whether mod is this group's generated module.
func (g *Group) isGenerated(mod types.Module) bool {
	gm, ok := mod.(*generatedModule)
	return ok && gm == g.generated
}

func (g *Group) checkType(t *types.Type) {
	if DebugAssertions && !g.ctx.Owns(t) {
		debugFail("type %v does not belong to the compilation's type system context", t)
	}
}

func (g *Group) checkMethod(m *types.Method) {
	if DebugAssertions && !g.ctx.OwnsMethod(m) {
		debugFail("method %v does not belong to the compilation's type system context", m)
	}
}

// IsGenerated reports whether mod is a compiler-generated module.
func IsGenerated(mod types.Module) bool {
	_, ok := mod.(*generatedModule)
	return ok
}

type generatedModule struct {
	types.ModuleBase
}

func newGeneratedModule(ctx *types.Context) *generatedModule {
	m := &generatedModule{}
	ctx.InitModule(m, GeneratedModuleName)
	return m
}

// GetType always fails: generated types are resolved by identity, never by name.
func (m *generatedModule) GetType(namespace, name string) (*types.Type, error) {
	debugFail("resolving a type reference %q.%q in the compiler-generated module", namespace, name)
	return nil, &types.TypeNotFoundError{Namespace: namespace, Name: name, Module: m}
}
