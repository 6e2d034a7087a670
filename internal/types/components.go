package types

import "slices"

// Components returns the modules that t's identity is built from, sorted by
// ID: the owning module of a declared type, the definition module plus the
// components of every argument for an instantiation, and the components of
// the element for an array.
func Components(t *Type) []Module {
	var out []Module
	collectComponents(t, &out)
	return sortModules(out)
}

// MethodComponents returns the modules that m's identity is built from: the
// components of its owner and of every method type argument.
func MethodComponents(m *Method) []Module {
	var out []Module
	collectComponents(m.owner, &out)
	for _, a := range m.args {
		collectComponents(a, &out)
	}
	return sortModules(out)
}

func collectComponents(t *Type, out *[]Module) {
	if t == nil {
		return
	}
	switch {
	case t.kind == KindArray:
		collectComponents(t.elem, out)
	case t.def != nil:
		*out = append(*out, t.def.module)
		for _, a := range t.args {
			collectComponents(a, out)
		}
	default:
		*out = append(*out, t.module)
	}
}

func sortModules(mods []Module) []Module {
	if len(mods) == 0 {
		return nil
	}
	slices.SortFunc(mods, ByID)
	return slices.CompactFunc(mods, func(a, b Module) bool { return a.ID() == b.ID() })
}
