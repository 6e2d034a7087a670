package partition

import (
	"errors"
	"fmt"
	"strings"

	"aotc/internal/types"
)

// Policy answers the code-generation placement questions for one output
// module. Implementations are immutable after construction; an answer may
// only change when a type is registered in the context between two queries.
type Policy interface {
	// GeneratedModule returns the module holding compiler-fabricated types.
	GeneratedModule() types.Module

	// ContainsType reports whether t's full implementation is produced by
	// this output module.
	ContainsType(t *types.Type) bool
	// ContainsMethodBody reports whether m's machine code is emitted here.
	// When false, callers in this module reach m through an import.
	ContainsMethodBody(m *types.Method) bool
	// ContainsMethodDictionary reports whether m's generic dictionary is
	// emitted here. Body and dictionary may live in different modules.
	ContainsMethodDictionary(m *types.Method) bool

	// ExportsType reports whether t is made visible to other output modules.
	ExportsType(t *types.Type) bool
	// ExportsMethod reports whether m's body is made visible to other output modules.
	ExportsMethod(m *types.Method) bool
	// ExportsMethodDictionary reports whether m's generic dictionary is made
	// visible to other output modules.
	ExportsMethodDictionary(m *types.Method) bool

	// IsSingleFileCompilation reports whether the compilation produces a
	// single output module.
	IsSingleFileCompilation() bool

	// ShouldProduceFullVTable reports whether t needs a complete dispatch
	// table here although this module may not be its primary owner.
	ShouldProduceFullVTable(t *types.Type) bool
	// ShouldPromoteToFullType reports whether a lightweight reference to t
	// must be upgraded to the full representation.
	ShouldPromoteToFullType(t *types.Type) bool
	// ShouldReferenceThroughImportTable reports whether t is linked into a
	// different output module and must be accessed indirectly.
	ShouldReferenceThroughImportTable(t *types.Type) bool
	// CanHaveReferenceThroughImportTable reports whether any entity of this
	// compilation can need import-table indirection.
	CanHaveReferenceThroughImportTable() bool
}

// Strategy selects a concrete Policy.
type Strategy uint8

const (
	StrategySingleFile Strategy = iota + 1
	StrategySplitByModule
)

func (s Strategy) String() string {
	switch s {
	case StrategySingleFile:
		return "single"
	case StrategySplitByModule:
		return "split"
	default:
		return "unknown"
	}
}

// ParseStrategy converts a string to a Strategy.
func ParseStrategy(s string) (Strategy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "single", "single-file":
		return StrategySingleFile, nil
	case "split", "split-by-module":
		return StrategySplitByModule, nil
	default:
		return 0, fmt.Errorf("invalid partition strategy: %q (expected: single|split)", s)
	}
}

var (
	// ErrUnknownModule indicates that options name a module missing from the context.
	ErrUnknownModule = errors.New("unknown module")
	// ErrNoOutputModules indicates a split compilation that owns nothing.
	ErrNoOutputModules = errors.New("no output modules")
)

// Options configure policy construction.
type Options struct {
	Strategy Strategy

	// Output names the input modules compiled into this output module.
	// Ignored by StrategySingleFile.
	Output []string

	// Dependents names the input modules outside Output that import one of
	// the Output modules. Nothing is exported when it is empty; nil means
	// the dependency graph is unknown and exportable entities are exported.
	Dependents []string
}

// New builds the policy selected by opts.Strategy over ctx. It creates the
// compiler-generated module, so it must run before any worker queries ctx.
func New(ctx *types.Context, opts Options) (Policy, error) {
	switch opts.Strategy {
	case StrategySingleFile:
		return NewSingleFile(ctx), nil
	case StrategySplitByModule:
		return NewSplitByModule(ctx, opts.Output, opts.Dependents)
	default:
		return nil, fmt.Errorf("unsupported partition strategy %v", opts.Strategy)
	}
}
