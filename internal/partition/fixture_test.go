package partition_test

import (
	"testing"

	"aotc/internal/types"
)

// universe is a small three-module program:
//
//	corelib: System.Object, System.Int32, System.List`1
//	lib:     Lib.Key : System.Object  (imports corelib)
//	app:     App.Widget : System.Object, App.Point  (imports corelib, lib)
type universe struct {
	ctx *types.Context

	corelib, lib, app *types.InputModule

	object, int32, list *types.Type
	key                 *types.Type
	widget, point       *types.Type

	toString, listAdd, listConvert, widgetDraw *types.Method

	listOfWidget, listOfInt, listOfKey *types.Type
	widgetArray                        *types.Type

	addOnWidgets      *types.Method // canonical body in corelib
	addOnInts         *types.Method // specialized body
	convertWidgetsKey *types.Method // canonical, dictionary mixes corelib/app/lib
	convertIntsPoint  *types.Method // specialized
}

func newUniverse(t *testing.T) *universe {
	t.Helper()
	u := &universe{ctx: types.NewContext()}
	u.corelib = mustModule(t, u.ctx, "corelib")
	u.lib = mustModule(t, u.ctx, "lib")
	u.app = mustModule(t, u.ctx, "app")

	u.object = mustType(t, u.ctx, u.corelib, types.TypeSpec{Namespace: "System", Name: "Object", Kind: types.KindClass})
	u.int32 = mustType(t, u.ctx, u.corelib, types.TypeSpec{Namespace: "System", Name: "Int32", Kind: types.KindValueType})
	u.list = mustType(t, u.ctx, u.corelib, types.TypeSpec{Namespace: "System", Name: "List", Kind: types.KindClass, Arity: 1, Base: u.object})
	u.key = mustType(t, u.ctx, u.lib, types.TypeSpec{Namespace: "Lib", Name: "Key", Kind: types.KindClass, Base: u.object})
	u.widget = mustType(t, u.ctx, u.app, types.TypeSpec{Namespace: "App", Name: "Widget", Kind: types.KindClass, Base: u.object})
	u.point = mustType(t, u.ctx, u.app, types.TypeSpec{Namespace: "App", Name: "Point", Kind: types.KindValueType})

	u.toString = mustMethod(t, u.ctx, u.object, types.MethodSpec{Name: "ToString", Virtual: true})
	u.listAdd = mustMethod(t, u.ctx, u.list, types.MethodSpec{Name: "Add", Virtual: true})
	u.listConvert = mustMethod(t, u.ctx, u.list, types.MethodSpec{Name: "ConvertAll", Arity: 1})
	u.widgetDraw = mustMethod(t, u.ctx, u.widget, types.MethodSpec{Name: "Draw", Virtual: true})

	u.listOfWidget = mustInst(t, u.ctx, u.list, u.widget)
	u.listOfInt = mustInst(t, u.ctx, u.list, u.int32)
	u.listOfKey = mustInst(t, u.ctx, u.list, u.key)
	arr, err := u.ctx.ArrayOf(u.widget)
	if err != nil {
		t.Fatalf("ArrayOf: %v", err)
	}
	u.widgetArray = arr

	u.addOnWidgets = mustMethodOn(t, u.ctx, u.listAdd, u.listOfWidget)
	u.addOnInts = mustMethodOn(t, u.ctx, u.listAdd, u.listOfInt)

	convW := mustMethodOn(t, u.ctx, u.listConvert, u.listOfWidget)
	m, err := u.ctx.InstantiateMethod(convW, u.key)
	if err != nil {
		t.Fatalf("InstantiateMethod: %v", err)
	}
	u.convertWidgetsKey = m

	convI := mustMethodOn(t, u.ctx, u.listConvert, u.listOfInt)
	m, err = u.ctx.InstantiateMethod(convI, u.point)
	if err != nil {
		t.Fatalf("InstantiateMethod: %v", err)
	}
	u.convertIntsPoint = m
	return u
}

func mustModule(t *testing.T, ctx *types.Context, name string) *types.InputModule {
	t.Helper()
	m, err := ctx.NewInputModule(name)
	if err != nil {
		t.Fatalf("NewInputModule(%q): %v", name, err)
	}
	return m
}

func mustType(t *testing.T, ctx *types.Context, mod types.Module, spec types.TypeSpec) *types.Type {
	t.Helper()
	tt, err := ctx.DefineType(mod, spec)
	if err != nil {
		t.Fatalf("DefineType(%s): %v", spec.Name, err)
	}
	return tt
}

func mustMethod(t *testing.T, ctx *types.Context, owner *types.Type, spec types.MethodSpec) *types.Method {
	t.Helper()
	m, err := ctx.DefineMethod(owner, spec)
	if err != nil {
		t.Fatalf("DefineMethod(%s): %v", spec.Name, err)
	}
	return m
}

func mustInst(t *testing.T, ctx *types.Context, def *types.Type, args ...*types.Type) *types.Type {
	t.Helper()
	tt, err := ctx.Instantiate(def, args...)
	if err != nil {
		t.Fatalf("Instantiate(%v): %v", def, err)
	}
	return tt
}

func mustMethodOn(t *testing.T, ctx *types.Context, typical *types.Method, owner *types.Type) *types.Method {
	t.Helper()
	m, err := ctx.MethodOnType(typical, owner)
	if err != nil {
		t.Fatalf("MethodOnType(%v, %v): %v", typical, owner, err)
	}
	return m
}
