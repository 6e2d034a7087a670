package partition_test

import (
	"errors"
	"sync"
	"testing"

	"aotc/internal/partition"
	"aotc/internal/testkit"
	"aotc/internal/types"
)

type typeWant struct {
	contains, exports, fullVTable, viaImport bool
}

type methodWant struct {
	body, dict, exportsBody, exportsDict bool
}

func checkTypeAnswers(t *testing.T, p partition.Policy, tt *types.Type, want typeWant) {
	t.Helper()
	got := typeWant{
		contains:   p.ContainsType(tt),
		exports:    p.ExportsType(tt),
		fullVTable: p.ShouldProduceFullVTable(tt),
		viaImport:  p.ShouldReferenceThroughImportTable(tt),
	}
	if got != want {
		t.Fatalf("%v: answers = %+v, want %+v", tt, got, want)
	}
	if p.ShouldPromoteToFullType(tt) != got.fullVTable {
		t.Fatalf("%v: ShouldPromoteToFullType disagrees with ShouldProduceFullVTable", tt)
	}
}

func checkMethodAnswers(t *testing.T, p partition.Policy, m *types.Method, want methodWant) {
	t.Helper()
	got := methodWant{
		body:        p.ContainsMethodBody(m),
		dict:        p.ContainsMethodDictionary(m),
		exportsBody: p.ExportsMethod(m),
		exportsDict: p.ExportsMethodDictionary(m),
	}
	if got != want {
		t.Fatalf("%v: answers = %+v, want %+v", m, got, want)
	}
}

func TestSplitByModuleTwoModules(t *testing.T) {
	ctx := types.NewContext()
	a := mustModule(t, ctx, "A")
	mustModule(t, ctx, "B")
	tt := mustType(t, ctx, a, types.TypeSpec{Namespace: "N", Name: "T", Kind: types.KindClass})

	p, err := partition.New(ctx, partition.Options{Strategy: partition.StrategySplitByModule, Output: []string{"B"}})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if p.ContainsType(tt) {
		t.Fatalf("ContainsType(T) = true, want false")
	}
	if !p.ShouldReferenceThroughImportTable(tt) {
		t.Fatalf("ShouldReferenceThroughImportTable(T) = false, want true")
	}
	if !p.CanHaveReferenceThroughImportTable() {
		t.Fatalf("CanHaveReferenceThroughImportTable = false, want true")
	}
	if p.IsSingleFileCompilation() {
		t.Fatalf("IsSingleFileCompilation = true")
	}
	if err := testkit.CheckPolicyInvariants(p, ctx); err != nil {
		t.Fatalf("invariants: %v", err)
	}
}

func TestSplitByModuleTypesAsApp(t *testing.T) {
	u := newUniverse(t)
	p, err := partition.NewSplitByModule(u.ctx, []string{"app"}, nil)
	if err != nil {
		t.Fatalf("NewSplitByModule: %v", err)
	}

	cases := []struct {
		name string
		typ  *types.Type
		want typeWant
	}{
		{"foreign base with virtual slots", u.object, typeWant{fullVTable: true, viaImport: true}},
		{"foreign value type", u.int32, typeWant{viaImport: true}},
		{"foreign generic definition", u.list, typeWant{viaImport: true}},
		{"other foreign module", u.key, typeWant{viaImport: true}},
		{"local class", u.widget, typeWant{contains: true, exports: true}},
		{"local struct", u.point, typeWant{contains: true, exports: true}},
		{"mixed instantiation", u.listOfWidget, typeWant{contains: true, fullVTable: true}},
		{"foreign instantiation", u.listOfInt, typeWant{viaImport: true}},
		{"instantiation over two foreign modules", u.listOfKey, typeWant{viaImport: true}},
		{"array of local type", u.widgetArray, typeWant{contains: true, exports: true}},
		{"local global type", u.app.GlobalType(), typeWant{contains: true, exports: true}},
		{"foreign global type", u.corelib.GlobalType(), typeWant{viaImport: true}},
		{"generated global type", p.GeneratedModule().GlobalType(), typeWant{contains: true}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			checkTypeAnswers(t, p, tc.typ, tc.want)
		})
	}
	if err := testkit.CheckPolicyInvariants(p, u.ctx); err != nil {
		t.Fatalf("invariants: %v", err)
	}
}

func TestSplitByModuleMethodsAsApp(t *testing.T) {
	u := newUniverse(t)
	p, err := partition.NewSplitByModule(u.ctx, []string{"app"}, nil)
	if err != nil {
		t.Fatalf("NewSplitByModule: %v", err)
	}

	cases := []struct {
		name string
		m    *types.Method
		want methodWant
	}{
		{"foreign method", u.toString, methodWant{}},
		{"local virtual method", u.widgetDraw, methodWant{body: true, dict: true, exportsBody: true}},
		{"canonical body lives with the definition", u.addOnWidgets, methodWant{dict: true}},
		{"specialized foreign body", u.addOnInts, methodWant{}},
		{"canonical generic method, shared dictionary", u.convertWidgetsKey, methodWant{dict: true}},
		{"specialized generic method over local argument", u.convertIntsPoint, methodWant{body: true, dict: true}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			checkMethodAnswers(t, p, tc.m, tc.want)
		})
	}
}

func TestSplitByModuleAsCorelib(t *testing.T) {
	u := newUniverse(t)
	p, err := partition.NewSplitByModule(u.ctx, []string{"corelib"}, []string{"lib", "app"})
	if err != nil {
		t.Fatalf("NewSplitByModule: %v", err)
	}

	checkTypeAnswers(t, p, u.object, typeWant{contains: true, exports: true})
	checkTypeAnswers(t, p, u.listOfInt, typeWant{contains: true, exports: true})
	checkTypeAnswers(t, p, u.listOfWidget, typeWant{contains: true, fullVTable: true})
	checkTypeAnswers(t, p, u.widget, typeWant{viaImport: true})

	checkMethodAnswers(t, p, u.addOnWidgets, methodWant{body: true, dict: true, exportsBody: true})
	checkMethodAnswers(t, p, u.addOnInts, methodWant{body: true, dict: true, exportsBody: true})
	checkMethodAnswers(t, p, u.convertWidgetsKey, methodWant{body: true, dict: true, exportsBody: true})
	checkMethodAnswers(t, p, u.convertIntsPoint, methodWant{body: true, dict: true})

	if err := testkit.CheckPolicyInvariants(p, u.ctx); err != nil {
		t.Fatalf("invariants: %v", err)
	}
}

func TestSplitByModuleExportsOnlyWithDependents(t *testing.T) {
	u := newUniverse(t)
	p, err := partition.NewSplitByModule(u.ctx, []string{"app"}, []string{})
	if err != nil {
		t.Fatalf("NewSplitByModule: %v", err)
	}
	if !p.ContainsType(u.widget) {
		t.Fatalf("ContainsType(widget) = false")
	}
	if p.ExportsType(u.widget) || p.ExportsMethod(u.widgetDraw) {
		t.Fatalf("nothing depends on app, nothing should be exported")
	}
}

func TestSplitByModuleMultipleOutputs(t *testing.T) {
	u := newUniverse(t)
	p, err := partition.NewSplitByModule(u.ctx, []string{"corelib", "app"}, []string{"lib"})
	if err != nil {
		t.Fatalf("NewSplitByModule: %v", err)
	}
	checkTypeAnswers(t, p, u.listOfWidget, typeWant{contains: true, exports: true})
	checkTypeAnswers(t, p, u.listOfKey, typeWant{contains: true, fullVTable: true})
	if got := len(p.OutputModules()); got != 2 {
		t.Fatalf("output modules = %d, want 2", got)
	}
}

func TestNewValidatesOptions(t *testing.T) {
	u := newUniverse(t)
	cases := []struct {
		name string
		opts partition.Options
		want error
	}{
		{"unknown output", partition.Options{Strategy: partition.StrategySplitByModule, Output: []string{"nope"}}, partition.ErrUnknownModule},
		{"unknown dependent", partition.Options{Strategy: partition.StrategySplitByModule, Output: []string{"app"}, Dependents: []string{"nope"}}, partition.ErrUnknownModule},
		{"empty output", partition.Options{Strategy: partition.StrategySplitByModule}, partition.ErrNoOutputModules},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := partition.New(u.ctx, tc.opts); !errors.Is(err, tc.want) {
				t.Fatalf("err = %v, want %v", err, tc.want)
			}
		})
	}
	if _, err := partition.New(u.ctx, partition.Options{Strategy: partition.StrategySplitByModule, Output: []string{"app"}, Dependents: []string{"app"}}); err == nil {
		t.Fatalf("output module accepted as its own dependent")
	}
	if _, err := partition.New(u.ctx, partition.Options{}); err == nil {
		t.Fatalf("zero strategy accepted")
	}
}

func TestParseStrategy(t *testing.T) {
	for in, want := range map[string]partition.Strategy{
		"single":          partition.StrategySingleFile,
		"Split":           partition.StrategySplitByModule,
		"split-by-module": partition.StrategySplitByModule,
	} {
		got, err := partition.ParseStrategy(in)
		if err != nil || got != want {
			t.Fatalf("ParseStrategy(%q) = %v, %v; want %v", in, got, err, want)
		}
	}
	if _, err := partition.ParseStrategy("rules"); err == nil {
		t.Fatalf("unknown strategy accepted")
	}
}

func TestSplitByModuleConcurrentQueries(t *testing.T) {
	u := newUniverse(t)
	p, err := partition.NewSplitByModule(u.ctx, []string{"app"}, nil)
	if err != nil {
		t.Fatalf("NewSplitByModule: %v", err)
	}
	all := u.ctx.Types()
	baseline := make([]bool, len(all))
	for i, tt := range all {
		baseline[i] = p.ContainsType(tt)
	}

	var wg sync.WaitGroup
	for w := range 8 {
		wg.Add(1)
		go func(offset int) {
			defer wg.Done()
			for i := range all {
				j := (i + offset) % len(all)
				if p.ContainsType(all[j]) != baseline[j] {
					t.Errorf("ContainsType(%v) changed under concurrent queries", all[j])
				}
				_ = p.ShouldProduceFullVTable(all[j])
				_ = p.ExportsType(all[j])
			}
		}(w)
	}
	wg.Wait()
}
