package partition

import "aotc/internal/types"

// SingleFile places every entity in the one output module.
type SingleFile struct {
	Group
}

var _ Policy = (*SingleFile)(nil)

// NewSingleFile builds a single-module policy over ctx.
func NewSingleFile(ctx *types.Context) *SingleFile {
	return &SingleFile{Group: NewGroup(ctx)}
}

func (p *SingleFile) ContainsType(t *types.Type) bool {
	p.checkType(t)
	return true
}

func (p *SingleFile) ContainsMethodBody(m *types.Method) bool {
	p.checkMethod(m)
	return true
}

func (p *SingleFile) ContainsMethodDictionary(m *types.Method) bool {
	p.checkMethod(m)
	return true
}

// There is no other output module to export to.

func (p *SingleFile) ExportsType(t *types.Type) bool {
	p.checkType(t)
	return false
}

func (p *SingleFile) ExportsMethod(m *types.Method) bool {
	p.checkMethod(m)
	return false
}

func (p *SingleFile) ExportsMethodDictionary(m *types.Method) bool {
	p.checkMethod(m)
	return false
}

func (p *SingleFile) IsSingleFileCompilation() bool { return true }

func (p *SingleFile) ShouldProduceFullVTable(t *types.Type) bool {
	p.checkType(t)
	return false
}

func (p *SingleFile) ShouldPromoteToFullType(t *types.Type) bool {
	p.checkType(t)
	return false
}

func (p *SingleFile) ShouldReferenceThroughImportTable(t *types.Type) bool {
	p.checkType(t)
	return false
}

func (p *SingleFile) CanHaveReferenceThroughImportTable() bool { return false }
