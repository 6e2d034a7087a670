package project

import (
	"errors"
	"fmt"
	"slices"

	"aotc/internal/partition"
	"aotc/internal/types"
)

var (
	// ErrAmbiguousType indicates an unqualified reference matching types in
	// more than one visible module.
	ErrAmbiguousType = errors.New("ambiguous type reference")
	// ErrNotImported indicates a declaration referencing a module it does
	// not import.
	ErrNotImported = errors.New("module not imported")
)

// BuildContext declares the manifest's modules, types and instantiations in
// a fresh type system context. Declarations are processed in two passes so
// bases may refer to types declared later.
func BuildContext(m *Manifest) (*types.Context, error) {
	b := &builder{
		ctx:     types.NewContext(),
		visible: make(map[types.ModuleID][]*types.InputModule, len(m.Modules)),
		decls:   make(map[types.ModuleID]*ModuleDecl, len(m.Modules)),
	}
	if err := b.declare(m.Modules); err != nil {
		return nil, err
	}
	if err := b.resolveImports(); err != nil {
		return nil, err
	}
	if err := b.resolveBases(); err != nil {
		return nil, err
	}
	for i := range m.Instantiations {
		if err := b.instantiate(&m.Instantiations[i]); err != nil {
			return nil, fmt.Errorf("instantiation #%d: %w", i+1, err)
		}
	}
	return b.ctx, nil
}

type pendingBase struct {
	mod  *types.InputModule
	t    *types.Type
	base string
}

type builder struct {
	ctx     *types.Context
	order   []*types.InputModule
	decls   map[types.ModuleID]*ModuleDecl
	visible map[types.ModuleID][]*types.InputModule
	bases   []pendingBase
}

func (b *builder) declare(mods []ModuleDecl) error {
	for i := range mods {
		decl := &mods[i]
		if decl.Name == partition.GeneratedModuleName {
			return fmt.Errorf("module %q: %w: reserved for compiler-generated types", decl.Name, ErrInvalidModuleName)
		}
		mod, err := b.ctx.NewInputModule(decl.Name)
		if err != nil {
			return err
		}
		b.order = append(b.order, mod)
		b.decls[mod.ID()] = decl
	}
	for _, mod := range b.order {
		decl := b.decls[mod.ID()]
		for j := range decl.Types {
			td := &decl.Types[j]
			kind, err := types.ParseKind(td.Kind)
			if err != nil {
				return fmt.Errorf("module %q: type %s: %w", decl.Name, td.Name, err)
			}
			t, err := b.ctx.DefineType(mod, types.TypeSpec{
				Namespace: td.Namespace,
				Name:      td.Name,
				Kind:      kind,
				Arity:     td.Arity,
			})
			if err != nil {
				return fmt.Errorf("module %q: %w", decl.Name, err)
			}
			for _, md := range td.Methods {
				if _, err := b.ctx.DefineMethod(t, types.MethodSpec{
					Name:    md.Name,
					Virtual: md.Virtual,
					Arity:   md.Arity,
				}); err != nil {
					return fmt.Errorf("module %q: %w", decl.Name, err)
				}
			}
			if td.Base != "" {
				b.bases = append(b.bases, pendingBase{mod: mod, t: t, base: td.Base})
			}
		}
	}
	return nil
}

// resolveImports records, per module, the modules its declarations may
// refer to: itself first, then its direct imports in declaration order.
func (b *builder) resolveImports() error {
	for _, mod := range b.order {
		vis := []*types.InputModule{mod}
		for _, name := range b.decls[mod.ID()].Imports {
			dep, ok := b.ctx.InputModule(name)
			if !ok {
				return fmt.Errorf("module %q imports %q: %w", mod.Name(), name, partition.ErrUnknownModule)
			}
			if !slices.Contains(vis, dep) {
				vis = append(vis, dep)
			}
		}
		b.visible[mod.ID()] = vis
	}
	return nil
}

func (b *builder) resolveBases() error {
	for _, pb := range b.bases {
		ref, err := ParseTypeRef(pb.base)
		if err != nil {
			return fmt.Errorf("base of %s: %w", pb.t, err)
		}
		base, err := b.resolve(pb.mod, ref)
		if err != nil {
			return fmt.Errorf("base of %s: %w", pb.t, err)
		}
		if err := b.ctx.SetBase(pb.t, base); err != nil {
			return err
		}
	}
	return nil
}

func (b *builder) instantiate(decl *InstantiationDecl) error {
	ref, err := ParseTypeRef(decl.Type)
	if err != nil {
		return err
	}
	t, err := b.resolveOpen(nil, ref)
	if err != nil {
		return err
	}
	if len(decl.Args) > 0 {
		args, err := b.resolveAll(nil, decl.Args)
		if err != nil {
			return err
		}
		if t, err = b.ctx.Instantiate(t, args...); err != nil {
			return err
		}
		if err := b.materialize(t); err != nil {
			return err
		}
	} else if t.IsGenericDefinition() {
		return fmt.Errorf("%s: %w: no type arguments", t, types.ErrArityMismatch)
	}

	for _, mi := range decl.Methods {
		m, err := b.findMethod(t, mi.Name)
		if err != nil {
			return err
		}
		args, err := b.resolveAll(nil, mi.Args)
		if err != nil {
			return fmt.Errorf("method %s: %w", mi.Name, err)
		}
		if _, err := b.ctx.InstantiateMethod(m, args...); err != nil {
			return err
		}
	}
	return nil
}

// materialize creates the methods of an instantiation so they take part in
// enumeration.
func (b *builder) materialize(inst *types.Type) error {
	for _, typical := range inst.Methods() {
		if _, err := b.ctx.MethodOnType(typical, inst); err != nil {
			return err
		}
	}
	return nil
}

func (b *builder) findMethod(owner *types.Type, name string) (*types.Method, error) {
	var found *types.Method
	for _, m := range owner.Methods() {
		if m.Name() != name {
			continue
		}
		if found != nil {
			return nil, fmt.Errorf("method %s on %s is overloaded", name, owner)
		}
		found = m
	}
	if found == nil {
		return nil, fmt.Errorf("method %s not declared on %s", name, owner)
	}
	if owner.IsInstantiation() {
		return b.ctx.MethodOnType(found, owner)
	}
	return found, nil
}

func (b *builder) resolveAll(from *types.InputModule, refs []string) ([]*types.Type, error) {
	out := make([]*types.Type, 0, len(refs))
	for _, s := range refs {
		ref, err := ParseTypeRef(s)
		if err != nil {
			return nil, err
		}
		t, err := b.resolve(from, ref)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, nil
}

// resolve returns the closed type named by ref as seen from module from
// (nil for top-level declarations, which see every module).
func (b *builder) resolve(from *types.InputModule, ref TypeRef) (*types.Type, error) {
	t, err := b.resolveOpen(from, ref)
	if err != nil {
		return nil, err
	}
	if t.IsGenericDefinition() {
		return nil, fmt.Errorf("%s: %w: open generic type", ref, types.ErrArityMismatch)
	}
	return t, nil
}

// resolveOpen is resolve without the closedness check.
func (b *builder) resolveOpen(from *types.InputModule, ref TypeRef) (*types.Type, error) {
	t, err := b.lookup(from, ref)
	if err != nil {
		return nil, err
	}
	if len(ref.Args) > 0 {
		args := make([]*types.Type, len(ref.Args))
		for i, a := range ref.Args {
			if args[i], err = b.resolve(from, a); err != nil {
				return nil, err
			}
		}
		if t, err = b.ctx.Instantiate(t, args...); err != nil {
			return nil, err
		}
		if err := b.materialize(t); err != nil {
			return nil, err
		}
	}
	for range ref.Rank {
		if t, err = b.ctx.ArrayOf(t); err != nil {
			return nil, err
		}
	}
	return t, nil
}

func (b *builder) lookup(from *types.InputModule, ref TypeRef) (*types.Type, error) {
	scope := b.order
	if from != nil {
		scope = b.visible[from.ID()]
	}
	if ref.Module != "" {
		mod, ok := b.ctx.InputModule(ref.Module)
		if !ok {
			return nil, fmt.Errorf("%s: %w %q", ref, partition.ErrUnknownModule, ref.Module)
		}
		if !slices.Contains(scope, mod) {
			return nil, fmt.Errorf("%s: %w: %q from %q", ref, ErrNotImported, ref.Module, from.Name())
		}
		return mod.GetType(ref.Namespace, ref.Name)
	}

	var (
		found   *types.Type
		lastErr error
	)
	for _, mod := range scope {
		t, err := mod.GetType(ref.Namespace, ref.Name)
		if err != nil {
			lastErr = err
			continue
		}
		if found != nil {
			return nil, fmt.Errorf("%s: %w: declared in %q and %q", ref, ErrAmbiguousType, found.Module().Name(), mod.Name())
		}
		found = t
	}
	if found == nil {
		if lastErr == nil {
			lastErr = fmt.Errorf("%s: %w", ref, types.ErrTypeNotFound)
		}
		if from != nil {
			return nil, fmt.Errorf("%s: not visible from module %q: %w", ref, from.Name(), lastErr)
		}
		return nil, lastErr
	}
	return found, nil
}
