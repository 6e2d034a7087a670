package types

import (
	"errors"
	"sync"
	"testing"
)

func newTestModule(t *testing.T, ctx *Context, name string) *InputModule {
	t.Helper()
	m, err := ctx.NewInputModule(name)
	if err != nil {
		t.Fatalf("NewInputModule(%q): %v", name, err)
	}
	return m
}

func defineType(t *testing.T, ctx *Context, mod Module, spec TypeSpec) *Type {
	t.Helper()
	if spec.Kind == KindInvalid {
		spec.Kind = KindClass
	}
	tt, err := ctx.DefineType(mod, spec)
	if err != nil {
		t.Fatalf("DefineType(%s): %v", spec.Name, err)
	}
	return tt
}

func TestNewInputModuleRejectsDuplicates(t *testing.T) {
	ctx := NewContext()
	newTestModule(t, ctx, "corelib")
	if _, err := ctx.NewInputModule("corelib"); !errors.Is(err, ErrDuplicateModule) {
		t.Fatalf("duplicate module err = %v, want %v", err, ErrDuplicateModule)
	}
	if got := len(ctx.Modules()); got != 1 {
		t.Fatalf("module count = %d, want 1", got)
	}
}

func TestModuleStartsEmptyWithStableGlobalType(t *testing.T) {
	ctx := NewContext()
	m := newTestModule(t, ctx, "app")
	if got := len(m.Types()); got != 0 {
		t.Fatalf("declared types = %d, want 0", got)
	}
	g := m.GlobalType()
	if g == nil || g.Kind() != KindGlobal || g.Name() != GlobalTypeName {
		t.Fatalf("unexpected global type %v", g)
	}
	if m.GlobalType() != g {
		t.Fatalf("global type identity changed between calls")
	}
	if g.Module() != Module(m) {
		t.Fatalf("global type owned by %v, want %v", g.Module(), m)
	}
}

func TestGetTypeResolvesAndFails(t *testing.T) {
	ctx := NewContext()
	m := newTestModule(t, ctx, "corelib")
	list := defineType(t, ctx, m, TypeSpec{Namespace: "System", Name: "List", Arity: 1})

	got, err := m.GetType("System", "List")
	if err != nil || got != list {
		t.Fatalf("GetType = %v, %v; want %v", got, err, list)
	}

	got, err = m.GetType("N", "Foo")
	if got != nil {
		t.Fatalf("GetType miss returned %v", got)
	}
	var nf *TypeNotFoundError
	if !errors.As(err, &nf) {
		t.Fatalf("GetType miss err = %T %v, want *TypeNotFoundError", err, err)
	}
	if nf.Namespace != "N" || nf.Name != "Foo" || nf.Module != Module(m) {
		t.Fatalf("unexpected error fields: %+v", nf)
	}
	if !errors.Is(err, ErrTypeNotFound) {
		t.Fatalf("error does not wrap ErrTypeNotFound")
	}
}

func TestDefineTypeRejectsDuplicateNames(t *testing.T) {
	ctx := NewContext()
	m := newTestModule(t, ctx, "corelib")
	defineType(t, ctx, m, TypeSpec{Namespace: "System", Name: "Object"})
	_, err := ctx.DefineType(m, TypeSpec{Namespace: "System", Name: "Object", Kind: KindClass})
	if !errors.Is(err, ErrDuplicateType) {
		t.Fatalf("err = %v, want %v", err, ErrDuplicateType)
	}
}

func TestInstantiateIsInterned(t *testing.T) {
	ctx := NewContext()
	core := newTestModule(t, ctx, "corelib")
	app := newTestModule(t, ctx, "app")
	list := defineType(t, ctx, core, TypeSpec{Namespace: "System", Name: "List", Arity: 1})
	widget := defineType(t, ctx, app, TypeSpec{Namespace: "App", Name: "Widget"})

	a, err := ctx.Instantiate(list, widget)
	if err != nil {
		t.Fatalf("Instantiate: %v", err)
	}
	b, err := ctx.Instantiate(list, widget)
	if err != nil {
		t.Fatalf("Instantiate: %v", err)
	}
	if a != b {
		t.Fatalf("instantiations should be deduplicated")
	}
	if a.Module() != Module(core) || a.Definition() != list {
		t.Fatalf("instantiation owned by %v with definition %v", a.Module(), a.Definition())
	}
	if got, want := a.String(), "System.List<App.Widget>"; got != want {
		t.Fatalf("String() = %q, want %q", got, want)
	}

	if _, err := ctx.Instantiate(widget, list); !errors.Is(err, ErrNotGeneric) {
		t.Fatalf("non-generic instantiate err = %v", err)
	}
	if _, err := ctx.Instantiate(list); !errors.Is(err, ErrArityMismatch) {
		t.Fatalf("arity err = %v", err)
	}
	if _, err := ctx.Instantiate(list, list); err == nil {
		t.Fatalf("open generic argument accepted")
	}
}

func TestForeignEntitiesRejected(t *testing.T) {
	ctx := NewContext()
	other := NewContext()
	m := newTestModule(t, ctx, "a")
	om := newTestModule(t, other, "b")
	foreign := defineType(t, other, om, TypeSpec{Name: "X"})

	if _, err := ctx.DefineType(om, TypeSpec{Name: "Y", Kind: KindClass}); !errors.Is(err, ErrForeignEntity) {
		t.Fatalf("DefineType on foreign module err = %v", err)
	}
	if _, err := ctx.ArrayOf(foreign); !errors.Is(err, ErrForeignEntity) {
		t.Fatalf("ArrayOf foreign err = %v", err)
	}
	if ctx.Owns(foreign) {
		t.Fatalf("context claims a foreign type")
	}
	if !ctx.Owns(m.GlobalType()) {
		t.Fatalf("context does not own its own global type")
	}
}

func TestMethodDerivation(t *testing.T) {
	ctx := NewContext()
	core := newTestModule(t, ctx, "corelib")
	app := newTestModule(t, ctx, "app")
	list := defineType(t, ctx, core, TypeSpec{Namespace: "System", Name: "List", Arity: 1})
	widget := defineType(t, ctx, app, TypeSpec{Namespace: "App", Name: "Widget"})
	point := defineType(t, ctx, app, TypeSpec{Namespace: "App", Name: "Point", Kind: KindValueType})

	add, err := ctx.DefineMethod(list, MethodSpec{Name: "Add", Virtual: true})
	if err != nil {
		t.Fatalf("DefineMethod: %v", err)
	}
	conv, err := ctx.DefineMethod(list, MethodSpec{Name: "ConvertAll", Arity: 1})
	if err != nil {
		t.Fatalf("DefineMethod: %v", err)
	}

	lw, _ := ctx.Instantiate(list, widget)
	addW, err := ctx.MethodOnType(add, lw)
	if err != nil {
		t.Fatalf("MethodOnType: %v", err)
	}
	if again, _ := ctx.MethodOnType(add, lw); again != addW {
		t.Fatalf("MethodOnType should be interned")
	}
	if addW.Typical() != add || addW.DefinitionModule() != Module(core) {
		t.Fatalf("unexpected typical %v / module %v", addW.Typical(), addW.DefinitionModule())
	}
	if !addW.SharesCanonicalBody() || addW.HasGenericDictionary() {
		t.Fatalf("Add on List<Widget> should share canonical code without a method dictionary")
	}

	convW, _ := ctx.MethodOnType(conv, lw)
	convP, err := ctx.InstantiateMethod(convW, point)
	if err != nil {
		t.Fatalf("InstantiateMethod: %v", err)
	}
	if !convP.HasGenericDictionary() || convP.SharesCanonicalBody() {
		t.Fatalf("ConvertAll<Point> must be specialized with a dictionary")
	}
	if convP.Typical() != conv {
		t.Fatalf("typical = %v, want %v", convP.Typical(), conv)
	}
	if got, want := convP.String(), "System.List<App.Widget>::ConvertAll<App.Point>"; got != want {
		t.Fatalf("String() = %q, want %q", got, want)
	}
	if _, err := ctx.MethodOnType(add, widget); err == nil {
		t.Fatalf("MethodOnType accepted unrelated owner")
	}
}

func TestComponents(t *testing.T) {
	ctx := NewContext()
	core := newTestModule(t, ctx, "corelib")
	lib := newTestModule(t, ctx, "lib")
	app := newTestModule(t, ctx, "app")
	dict := defineType(t, ctx, core, TypeSpec{Namespace: "System", Name: "Dictionary", Arity: 2})
	key := defineType(t, ctx, lib, TypeSpec{Namespace: "Lib", Name: "Key"})
	val := defineType(t, ctx, app, TypeSpec{Namespace: "App", Name: "Value"})

	arr, _ := ctx.ArrayOf(val)
	inst, err := ctx.Instantiate(dict, key, arr)
	if err != nil {
		t.Fatalf("Instantiate: %v", err)
	}
	got := Components(inst)
	want := []Module{core, lib, app}
	if len(got) != len(want) {
		t.Fatalf("components = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("components[%d] = %v, want %v", i, got[i].Name(), want[i].Name())
		}
	}

	if comps := Components(arr); len(comps) != 1 || comps[0] != Module(app) {
		t.Fatalf("array components = %v", comps)
	}
	self, _ := ctx.Instantiate(dict, key, key)
	if comps := Components(self); len(comps) != 2 {
		t.Fatalf("components should be deduplicated, got %d", len(comps))
	}
}

func TestSetBaseRejectsCycles(t *testing.T) {
	ctx := NewContext()
	m := newTestModule(t, ctx, "app")
	a := defineType(t, ctx, m, TypeSpec{Name: "A"})
	b := defineType(t, ctx, m, TypeSpec{Name: "B"})
	if err := ctx.SetBase(b, a); err != nil {
		t.Fatalf("SetBase: %v", err)
	}
	if err := ctx.SetBase(a, b); err == nil {
		t.Fatalf("inheritance cycle accepted")
	}
}

func TestDerivedFollowsRegistrations(t *testing.T) {
	ctx := NewContext()
	m := newTestModule(t, ctx, "app")
	a := defineType(t, ctx, m, TypeSpec{Name: "A"})
	b := defineType(t, ctx, m, TypeSpec{Name: "B", Base: a})
	g := defineType(t, ctx, m, TypeSpec{Name: "G", Arity: 1})
	c := defineType(t, ctx, m, TypeSpec{Name: "C"})

	if got := ctx.Derived(a); len(got) != 1 || got[0] != b {
		t.Fatalf("Derived(A) = %v, want [B]", got)
	}
	if err := ctx.SetBase(g, b); err != nil {
		t.Fatalf("SetBase: %v", err)
	}
	inst, err := ctx.Instantiate(g, c)
	if err != nil {
		t.Fatalf("Instantiate: %v", err)
	}
	got := ctx.Derived(a)
	want := map[*Type]bool{b: true, g: true, inst: true}
	if len(got) != len(want) {
		t.Fatalf("Derived(A) = %v, want B, G and G<C>", got)
	}
	for _, d := range got {
		if !want[d] {
			t.Fatalf("Derived(A) contains %v", d)
		}
	}

	if err := ctx.SetBase(g, c); err != nil {
		t.Fatalf("SetBase: %v", err)
	}
	if got := ctx.Derived(a); len(got) != 1 || got[0] != b {
		t.Fatalf("Derived(A) after rebasing G = %v, want [B]", got)
	}
	if got := ctx.Derived(c); len(got) != 2 {
		t.Fatalf("Derived(C) = %v, want G and G<C>", got)
	}
	if ctx.Derived(nil) != nil {
		t.Fatalf("Derived(nil) must be empty")
	}
}

func TestConcurrentDefinitions(t *testing.T) {
	ctx := NewContext()
	m := newTestModule(t, ctx, "app")
	list := defineType(t, ctx, m, TypeSpec{Name: "List", Arity: 1})
	elem := defineType(t, ctx, m, TypeSpec{Name: "E"})

	var wg sync.WaitGroup
	results := make([]*Type, 16)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			inst, err := ctx.Instantiate(list, elem)
			if err != nil {
				t.Errorf("Instantiate: %v", err)
				return
			}
			results[i] = inst
		}(i)
	}
	wg.Wait()
	for i := 1; i < len(results); i++ {
		if results[i] != results[0] {
			t.Fatalf("concurrent instantiations diverged")
		}
	}
}

func TestHasVirtualSlotsDuringRegistration(t *testing.T) {
	ctx := NewContext()
	m := newTestModule(t, ctx, "app")
	base := defineType(t, ctx, m, TypeSpec{Name: "Base"})
	derived := defineType(t, ctx, m, TypeSpec{Name: "Derived", Base: base})

	var wg sync.WaitGroup
	for range 4 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 100 {
				_ = derived.HasVirtualSlots()
			}
		}()
	}
	if _, err := ctx.DefineMethod(base, MethodSpec{Name: "Run", Virtual: true}); err != nil {
		t.Fatalf("DefineMethod: %v", err)
	}
	wg.Wait()
	if !derived.HasVirtualSlots() {
		t.Fatalf("virtual method on the base not visible through Derived")
	}
}
