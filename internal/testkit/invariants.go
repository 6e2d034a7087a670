package testkit

import (
	"fmt"

	"aotc/internal/partition"
	"aotc/internal/types"
)

// CheckPolicyInvariants asks p every question about every type and method of
// ctx, plus the generated module's global type, and returns the first
// violation of:
// 1) ContainsType(t) and ShouldReferenceThroughImportTable(t) are exclusive
// 2) a single-file policy never imports and cannot reference through the import table
// 3) a single-file policy never exports
// 4) asking the same question twice gives the same answer
func CheckPolicyInvariants(p partition.Policy, ctx *types.Context) error {
	if p == nil || ctx == nil {
		return fmt.Errorf("nil policy or context")
	}
	single := p.IsSingleFileCompilation()
	if single != p.IsSingleFileCompilation() {
		return fmt.Errorf("IsSingleFileCompilation is not deterministic")
	}
	canImport := p.CanHaveReferenceThroughImportTable()
	if canImport != p.CanHaveReferenceThroughImportTable() {
		return fmt.Errorf("CanHaveReferenceThroughImportTable is not deterministic")
	}
	if single && canImport {
		return fmt.Errorf("single-file policy reports CanHaveReferenceThroughImportTable")
	}

	typesToCheck := ctx.Types()
	if gm := p.GeneratedModule(); gm != nil {
		if gm.GlobalType() != gm.GlobalType() {
			return fmt.Errorf("generated module global type identity is not stable")
		}
		typesToCheck = appendMissing(typesToCheck, gm.GlobalType())
	}
	for _, t := range typesToCheck {
		if err := checkType(p, t, single, canImport); err != nil {
			return err
		}
	}
	for _, m := range ctx.Methods() {
		if err := checkMethod(p, m, single); err != nil {
			return err
		}
	}
	return nil
}

type typeAnswers struct {
	contains, exports, fullVTable, promote, viaImport bool
}

func askType(p partition.Policy, t *types.Type) typeAnswers {
	return typeAnswers{
		contains:   p.ContainsType(t),
		exports:    p.ExportsType(t),
		fullVTable: p.ShouldProduceFullVTable(t),
		promote:    p.ShouldPromoteToFullType(t),
		viaImport:  p.ShouldReferenceThroughImportTable(t),
	}
}

func checkType(p partition.Policy, t *types.Type, single, canImport bool) error {
	first := askType(p, t)
	if second := askType(p, t); second != first {
		return fmt.Errorf("type %v: answers changed between queries: %+v then %+v", t, first, second)
	}
	if first.contains && first.viaImport {
		return fmt.Errorf("type %v: contained and referenced through the import table", t)
	}
	if first.viaImport && !canImport {
		return fmt.Errorf("type %v: referenced through the import table but the policy cannot import", t)
	}
	if single && first.exports {
		return fmt.Errorf("type %v: exported by a single-file policy", t)
	}
	return nil
}

type methodAnswers struct {
	body, dict, exportsBody, exportsDict bool
}

func askMethod(p partition.Policy, m *types.Method) methodAnswers {
	return methodAnswers{
		body:        p.ContainsMethodBody(m),
		dict:        p.ContainsMethodDictionary(m),
		exportsBody: p.ExportsMethod(m),
		exportsDict: p.ExportsMethodDictionary(m),
	}
}

func checkMethod(p partition.Policy, m *types.Method, single bool) error {
	first := askMethod(p, m)
	if second := askMethod(p, m); second != first {
		return fmt.Errorf("method %v: answers changed between queries: %+v then %+v", m, first, second)
	}
	if single && (first.exportsBody || first.exportsDict) {
		return fmt.Errorf("method %v: exported by a single-file policy", m)
	}
	return nil
}

func appendMissing(list []*types.Type, t *types.Type) []*types.Type {
	for _, have := range list {
		if have == t {
			return list
		}
	}
	return append(list, t)
}
