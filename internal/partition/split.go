package partition

import (
	"fmt"
	"slices"

	"aotc/internal/types"
)

// placement classifies an entity by the modules its identity is built from.
type placement uint8

const (
	// placeForeign: no component is compiled here; the entity lives in
	// another output module.
	placeForeign placement = iota
	// placeShared: some components are compiled here; the entity is emitted
	// by every output module that needs it.
	placeShared
	// placeLocal: every component is compiled here.
	placeLocal
)

func (p placement) String() string {
	switch p {
	case placeForeign:
		return "foreign"
	case placeShared:
		return "shared"
	case placeLocal:
		return "local"
	default:
		return "unknown"
	}
}

// SplitByModule builds one output module from a set of input modules. Other
// input modules are compiled into other output modules and reached through
// the import table.
type SplitByModule struct {
	Group

	owned     map[types.ModuleID]struct{}
	exporting bool
}

var _ Policy = (*SplitByModule)(nil)

// NewSplitByModule builds a policy for the output module made of the input
// modules named in output. dependents names the input modules outside output
// that import it (nil when unknown, see Options.Dependents).
func NewSplitByModule(ctx *types.Context, output, dependents []string) (*SplitByModule, error) {
	if len(output) == 0 {
		return nil, ErrNoOutputModules
	}
	owned := make(map[types.ModuleID]struct{}, len(output))
	for _, name := range output {
		m, ok := ctx.InputModule(name)
		if !ok {
			return nil, fmt.Errorf("output module %q: %w", name, ErrUnknownModule)
		}
		owned[m.ID()] = struct{}{}
	}
	for _, name := range dependents {
		m, ok := ctx.InputModule(name)
		if !ok {
			return nil, fmt.Errorf("dependent module %q: %w", name, ErrUnknownModule)
		}
		if _, self := owned[m.ID()]; self {
			return nil, fmt.Errorf("dependent module %q is part of the output", name)
		}
	}

	return &SplitByModule{
		Group:     NewGroup(ctx),
		owned:     owned,
		exporting: dependents == nil || len(dependents) > 0,
	}, nil
}

// isForeignVirtualBase reports whether t is a foreign type with virtual
// slots that some type compiled here derives from: overrides in the derived
// type can only be resolved against the base's full dispatch table. Types
// registered after construction, generated ones included, are taken into
// account.
func (p *SplitByModule) isForeignVirtualBase(t *types.Type) bool {
	if p.placeType(t) != placeForeign || !t.HasVirtualSlots() {
		return false
	}
	for _, d := range p.ctx.Derived(t) {
		if p.placeType(d) != placeForeign {
			return true
		}
	}
	return false
}

// OutputModules returns the IDs of the input modules compiled here.
func (p *SplitByModule) OutputModules() []types.ModuleID {
	ids := make([]types.ModuleID, 0, len(p.owned))
	for id := range p.owned {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

func (p *SplitByModule) compiledHere(mod types.Module) bool {
	if p.isGenerated(mod) {
		return true
	}
	_, ok := p.owned[mod.ID()]
	return ok
}

func (p *SplitByModule) place(mods []types.Module) placement {
	here := 0
	for _, m := range mods {
		if p.compiledHere(m) {
			here++
		}
	}
	switch {
	case here == len(mods):
		return placeLocal
	case here == 0:
		return placeForeign
	default:
		return placeShared
	}
}

func (p *SplitByModule) touchesGenerated(mods []types.Module) bool {
	return slices.ContainsFunc(mods, p.isGenerated)
}

func (p *SplitByModule) placeType(t *types.Type) placement {
	return p.place(types.Components(t))
}

// bodyComponents returns the modules a method body is placed by. Canonical
// shared code lives with the method's definition; specialized code lives
// with the instantiation.
func bodyComponents(m *types.Method) []types.Module {
	if m.SharesCanonicalBody() {
		return []types.Module{m.DefinitionModule()}
	}
	return types.MethodComponents(m)
}

func (p *SplitByModule) ContainsType(t *types.Type) bool {
	p.checkType(t)
	return p.placeType(t) != placeForeign
}

func (p *SplitByModule) ContainsMethodBody(m *types.Method) bool {
	p.checkMethod(m)
	return p.place(bodyComponents(m)) != placeForeign
}

func (p *SplitByModule) ContainsMethodDictionary(m *types.Method) bool {
	p.checkMethod(m)
	return p.place(types.MethodComponents(m)) != placeForeign
}

// Only entities wholly built from this output's modules are exported. Shared
// instantiations are emitted by every user and are never exported, nor is
// anything touching the generated module.

func (p *SplitByModule) ExportsType(t *types.Type) bool {
	p.checkType(t)
	if !p.exporting {
		return false
	}
	comps := types.Components(t)
	return p.place(comps) == placeLocal && !p.touchesGenerated(comps)
}

func (p *SplitByModule) ExportsMethod(m *types.Method) bool {
	p.checkMethod(m)
	if !p.exporting {
		return false
	}
	comps := bodyComponents(m)
	return p.place(comps) == placeLocal && !p.touchesGenerated(comps)
}

func (p *SplitByModule) ExportsMethodDictionary(m *types.Method) bool {
	p.checkMethod(m)
	if !p.exporting || !m.HasGenericDictionary() {
		return false
	}
	comps := types.MethodComponents(m)
	return p.place(comps) == placeLocal && !p.touchesGenerated(comps)
}

func (p *SplitByModule) IsSingleFileCompilation() bool { return false }

func (p *SplitByModule) ShouldProduceFullVTable(t *types.Type) bool {
	p.checkType(t)
	if p.placeType(t) == placeShared {
		return true
	}
	return p.isForeignVirtualBase(t)
}

// ShouldPromoteToFullType follows ShouldProduceFullVTable: a type that needs
// its full dispatch table here also needs its full representation.
func (p *SplitByModule) ShouldPromoteToFullType(t *types.Type) bool {
	return p.ShouldProduceFullVTable(t)
}

func (p *SplitByModule) ShouldReferenceThroughImportTable(t *types.Type) bool {
	p.checkType(t)
	return p.placeType(t) == placeForeign
}

func (p *SplitByModule) CanHaveReferenceThroughImportTable() bool { return true }
