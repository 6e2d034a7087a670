// Package plan evaluates a partition policy over every entity of a
// compilation and records the answers.
package plan

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"strconv"
	"time"

	"golang.org/x/sync/errgroup"

	"aotc/internal/partition"
	"aotc/internal/trace"
	"aotc/internal/types"
)

// TypeDecision holds every policy answer about one type.
type TypeDecision struct {
	ID         types.TypeID `yaml:"id" msgpack:"id"`
	Name       string       `yaml:"name" msgpack:"name"`
	Module     string       `yaml:"module" msgpack:"module"`
	Contains   bool         `yaml:"contains" msgpack:"contains"`
	Exports    bool         `yaml:"exports" msgpack:"exports"`
	FullVTable bool         `yaml:"full_vtable" msgpack:"full_vtable"`
	Promote    bool         `yaml:"promote" msgpack:"promote"`
	ViaImport  bool         `yaml:"via_import" msgpack:"via_import"`
	Generated  bool         `yaml:"generated,omitempty" msgpack:"generated"`
}

// MethodDecision holds every policy answer about one method.
type MethodDecision struct {
	ID                types.MethodID `yaml:"id" msgpack:"id"`
	Name              string         `yaml:"name" msgpack:"name"`
	Module            string         `yaml:"module" msgpack:"module"`
	Body              bool           `yaml:"body" msgpack:"body"`
	Dictionary        bool           `yaml:"dictionary" msgpack:"dictionary"`
	ExportsBody       bool           `yaml:"exports_body" msgpack:"exports_body"`
	ExportsDictionary bool           `yaml:"exports_dictionary" msgpack:"exports_dictionary"`
}

// Plan is the complete placement of one output module.
type Plan struct {
	Strategy        string           `yaml:"strategy" msgpack:"strategy"`
	Output          []string         `yaml:"output,omitempty" msgpack:"output"`
	SingleFile      bool             `yaml:"single_file" msgpack:"single_file"`
	CanImport       bool             `yaml:"can_import" msgpack:"can_import"`
	GeneratedModule string           `yaml:"generated_module" msgpack:"generated_module"`
	Types           []TypeDecision   `yaml:"types" msgpack:"types"`
	Methods         []MethodDecision `yaml:"methods" msgpack:"methods"`
}

// Options tune evaluation.
type Options struct {
	// Jobs bounds the number of modules evaluated concurrently; 0 means GOMAXPROCS.
	Jobs int
	// Progress receives per-module events when set.
	Progress ProgressSink
}

// ErrInconsistent indicates that a policy returned contradictory answers.
var ErrInconsistent = errors.New("inconsistent policy answers")

// unit is the slice of entities owned by one module.
type unit struct {
	module  types.Module
	types   []int
	methods []int
}

// Evaluate asks p every question about every type and method of tctx. Modules
// are evaluated concurrently; decisions are returned in ID order.
func Evaluate(ctx context.Context, p partition.Policy, tctx *types.Context, opts Options) (*Plan, error) {
	tracer := trace.FromContext(ctx)
	span := trace.Begin(tracer, trace.ScopePass, "evaluate", trace.CurrentSpan(ctx))
	defer span.End("")

	allTypes := tctx.Types()
	allMethods := tctx.Methods()
	pl := &Plan{
		SingleFile:      p.IsSingleFileCompilation(),
		CanImport:       p.CanHaveReferenceThroughImportTable(),
		GeneratedModule: p.GeneratedModule().Name(),
		Types:           make([]TypeDecision, len(allTypes)),
		Methods:         make([]MethodDecision, len(allMethods)),
	}
	pl.Strategy = partition.StrategySplitByModule.String()
	if pl.SingleFile {
		pl.Strategy = partition.StrategySingleFile.String()
	}
	if split, ok := p.(*partition.SplitByModule); ok {
		for _, id := range split.OutputModules() {
			if m, ok := tctx.Module(id); ok {
				pl.Output = append(pl.Output, m.Name())
			}
		}
	}

	units := groupByModule(allTypes, allMethods)

	jobs := opts.Jobs
	if jobs <= 0 {
		jobs = runtime.GOMAXPROCS(0)
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(1, min(jobs, len(units))))

	for _, u := range units {
		emit(opts.Progress, Event{Module: u.module.Name(), Status: StatusQueued})
	}
	for _, u := range units {
		g.Go(func() error {
			name := u.module.Name()
			start := time.Now()
			modSpan := trace.Begin(tracer, trace.ScopeModule, "module:"+name, span.ID())
			defer modSpan.End("")
			fail := func(stage Stage, err error) error {
				emit(opts.Progress, Event{Module: name, Stage: stage, Status: StatusError, Err: err, Elapsed: time.Since(start)})
				return err
			}

			emit(opts.Progress, Event{Module: name, Stage: StageTypes, Status: StatusWorking})
			for _, i := range u.types {
				if err := gctx.Err(); err != nil {
					return fail(StageTypes, err)
				}
				pl.Types[i] = decideType(p, allTypes[i])
			}
			emit(opts.Progress, Event{Module: name, Stage: StageMethods, Status: StatusWorking})
			for _, i := range u.methods {
				if err := gctx.Err(); err != nil {
					return fail(StageMethods, err)
				}
				pl.Methods[i] = decideMethod(p, allMethods[i])
			}
			modSpan.WithExtra("types", strconv.Itoa(len(u.types))).
				WithExtra("methods", strconv.Itoa(len(u.methods)))
			emit(opts.Progress, Event{Module: name, Stage: StageMethods, Status: StatusDone, Elapsed: time.Since(start)})
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	if err := pl.Validate(); err != nil {
		return nil, err
	}
	return pl, nil
}

// Modules returns the names of the modules Evaluate reports progress for, in
// the order it schedules them.
func Modules(tctx *types.Context) []string {
	units := groupByModule(tctx.Types(), tctx.Methods())
	names := make([]string, len(units))
	for i, u := range units {
		names[i] = u.module.Name()
	}
	return names
}

func groupByModule(ts []*types.Type, ms []*types.Method) []*unit {
	byID := make(map[types.ModuleID]*unit)
	var order []*unit
	get := func(m types.Module) *unit {
		if u, ok := byID[m.ID()]; ok {
			return u
		}
		u := &unit{module: m}
		byID[m.ID()] = u
		order = append(order, u)
		return u
	}
	for i, t := range ts {
		u := get(t.Module())
		u.types = append(u.types, i)
	}
	for i, m := range ms {
		u := get(m.Owner().Module())
		u.methods = append(u.methods, i)
	}
	return order
}

func decideType(p partition.Policy, t *types.Type) TypeDecision {
	return TypeDecision{
		ID:         t.ID(),
		Name:       t.String(),
		Module:     t.Module().Name(),
		Contains:   p.ContainsType(t),
		Exports:    p.ExportsType(t),
		FullVTable: p.ShouldProduceFullVTable(t),
		Promote:    p.ShouldPromoteToFullType(t),
		ViaImport:  p.ShouldReferenceThroughImportTable(t),
		Generated:  partition.IsGenerated(t.Module()),
	}
}

func decideMethod(p partition.Policy, m *types.Method) MethodDecision {
	return MethodDecision{
		ID:                m.ID(),
		Name:              m.String(),
		Module:            m.Owner().Module().Name(),
		Body:              p.ContainsMethodBody(m),
		Dictionary:        p.ContainsMethodDictionary(m),
		ExportsBody:       p.ExportsMethod(m),
		ExportsDictionary: p.ExportsMethodDictionary(m),
	}
}

// Validate checks the cross-query rules every policy obeys and joins all
// violations.
func (pl *Plan) Validate() error {
	var errs []error
	if pl.SingleFile && pl.CanImport {
		errs = append(errs, fmt.Errorf("%w: single-file plan can reference through the import table", ErrInconsistent))
	}
	for _, d := range pl.Types {
		if d.Contains && d.ViaImport {
			errs = append(errs, fmt.Errorf("%w: type %s contained and imported", ErrInconsistent, d.Name))
		}
		if d.ViaImport && !pl.CanImport {
			errs = append(errs, fmt.Errorf("%w: type %s imported by a plan without import table", ErrInconsistent, d.Name))
		}
		if pl.SingleFile && d.Exports {
			errs = append(errs, fmt.Errorf("%w: type %s exported by a single-file plan", ErrInconsistent, d.Name))
		}
	}
	for _, d := range pl.Methods {
		if pl.SingleFile && (d.ExportsBody || d.ExportsDictionary) {
			errs = append(errs, fmt.Errorf("%w: method %s exported by a single-file plan", ErrInconsistent, d.Name))
		}
	}
	return errors.Join(errs...)
}

// Summary counts decisions by outcome.
type Summary struct {
	Types           int `yaml:"types"`
	ContainedTypes  int `yaml:"contained_types"`
	ExportedTypes   int `yaml:"exported_types"`
	ImportedTypes   int `yaml:"imported_types"`
	FullVTables     int `yaml:"full_vtables"`
	Methods         int `yaml:"methods"`
	ContainedBodies int `yaml:"contained_bodies"`
	ExportedBodies  int `yaml:"exported_bodies"`
	ContainedDicts  int `yaml:"contained_dictionaries"`
	ExportedDicts   int `yaml:"exported_dictionaries"`
}

// Summary computes the decision counts.
func (pl *Plan) Summary() Summary {
	s := Summary{Types: len(pl.Types), Methods: len(pl.Methods)}
	for _, d := range pl.Types {
		s.ContainedTypes += b2i(d.Contains)
		s.ExportedTypes += b2i(d.Exports)
		s.ImportedTypes += b2i(d.ViaImport)
		s.FullVTables += b2i(d.FullVTable)
	}
	for _, d := range pl.Methods {
		s.ContainedBodies += b2i(d.Body)
		s.ExportedBodies += b2i(d.ExportsBody)
		s.ContainedDicts += b2i(d.Dictionary)
		s.ExportedDicts += b2i(d.ExportsDictionary)
	}
	return s
}

func (s Summary) String() string {
	return fmt.Sprintf("%d types (%d contained, %d exported, %d imported, %d full vtables), "+
		"%d methods (%d bodies, %d exported; %d dictionaries, %d exported)",
		s.Types, s.ContainedTypes, s.ExportedTypes, s.ImportedTypes, s.FullVTables,
		s.Methods, s.ContainedBodies, s.ExportedBodies, s.ContainedDicts, s.ExportedDicts)
}

func b2i(b bool) int {
	if b {
		return 1
	}
	return 0
}
