package project

import (
	"fmt"
	"slices"

	"aotc/internal/partition"
	"aotc/internal/project/dag"
	"aotc/internal/types"
)

// Project is a loaded manifest: the populated type system context and the
// module import graph.
type Project struct {
	Path     string
	Digest   Digest
	Manifest *Manifest
	Context  *types.Context

	Index dag.ModuleIndex
	Graph dag.Graph
	Topo  *dag.Topo
}

// Load reads the manifest at path and builds the project.
func Load(path string) (*Project, error) {
	m, digest, err := LoadManifest(path)
	if err != nil {
		return nil, err
	}
	p, err := build(m)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	p.Path = path
	p.Digest = digest
	return p, nil
}

// Parse builds a project from manifest content.
func Parse(name string, data []byte) (*Project, error) {
	m, err := DecodeManifest(name, data)
	if err != nil {
		return nil, err
	}
	p, err := build(m)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	p.Path = name
	p.Digest = HashBytes(data)
	return p, nil
}

func build(m *Manifest) (*Project, error) {
	metas := make([]dag.ModuleMeta, len(m.Modules))
	for i, mod := range m.Modules {
		metas[i] = dag.ModuleMeta{Name: mod.Name, Imports: mod.Imports}
	}
	idx := dag.BuildIndex(metas)
	graph, err := dag.BuildGraph(idx, metas)
	if err != nil {
		return nil, err
	}
	topo := dag.ToposortKahn(graph)
	if err := dag.CycleError(idx, topo); err != nil {
		return nil, err
	}

	ctx, err := BuildContext(m)
	if err != nil {
		return nil, err
	}
	return &Project{
		Manifest: m,
		Context:  ctx,
		Index:    idx,
		Graph:    graph,
		Topo:     topo,
	}, nil
}

// BuildOrder returns module names dependencies-first, grouped in batches of
// modules that do not import each other.
func (p *Project) BuildOrder() [][]string {
	batches := p.Topo.BuildBatches()
	out := make([][]string, len(batches))
	for i, b := range batches {
		out[i] = p.Index.Names(b)
	}
	return out
}

// Dependents returns the modules outside output that import a module of
// output directly. The result is empty, never nil, when nothing does.
func (p *Project) Dependents(output []string) ([]string, error) {
	ids := make([]dag.ModuleID, 0, len(output))
	for _, name := range output {
		id, ok := p.Index.NameToID[name]
		if !ok || !p.Graph.Present[id] {
			return nil, fmt.Errorf("output module %q: %w", name, partition.ErrUnknownModule)
		}
		ids = append(ids, id)
	}
	names := p.Index.Names(p.Graph.Importers(ids))
	slices.Sort(names)
	return names, nil
}

// Options builds policy options for the given strategy and output set.
func (p *Project) Options(strategy partition.Strategy, output []string) (partition.Options, error) {
	opts := partition.Options{Strategy: strategy}
	if strategy != partition.StrategySplitByModule {
		return opts, nil
	}
	deps, err := p.Dependents(output)
	if err != nil {
		return partition.Options{}, err
	}
	opts.Output = slices.Clone(output)
	opts.Dependents = deps
	return opts, nil
}

// PolicyOptions builds policy options from [compilation].
func (p *Project) PolicyOptions() (partition.Options, error) {
	strategy, err := partition.ParseStrategy(p.Manifest.Compilation.Strategy)
	if err != nil {
		return partition.Options{}, err
	}
	return p.Options(strategy, p.Manifest.Compilation.Output)
}

// Policy builds the policy described by [compilation].
func (p *Project) Policy() (partition.Policy, error) {
	opts, err := p.PolicyOptions()
	if err != nil {
		return nil, err
	}
	return partition.New(p.Context, opts)
}
