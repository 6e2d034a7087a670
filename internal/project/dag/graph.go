package dag

import (
	"errors"
	"fmt"
	"slices"
	"strings"
)

var (
	ErrDuplicateModule = errors.New("duplicate module")
	ErrMissingModule   = errors.New("missing module")
	ErrSelfImport      = errors.New("module imports itself")
	ErrImportCycle     = errors.New("import cycle")
)

// Graph is the module import graph.
type Graph struct {
	Edges   [][]ModuleID // Edges[from] = imported modules
	Indeg   []int        // in-degree for Kahn, counting present modules only
	Present []bool       // module is declared, not only imported
}

// BuildGraph builds the import graph. Problems (duplicate declarations,
// imports of undeclared modules, self imports) do not stop construction;
// they are joined into the returned error.
func BuildGraph(idx ModuleIndex, metas []ModuleMeta) (Graph, error) {
	nodeCount := len(idx.IDToName)
	g := Graph{
		Edges:   make([][]ModuleID, nodeCount),
		Indeg:   make([]int, nodeCount),
		Present: make([]bool, nodeCount),
	}
	slots := make([]*ModuleMeta, nodeCount)
	var problems []error

	for i := range metas {
		meta := &metas[i]
		if meta.Name == "" {
			continue
		}
		id, ok := idx.NameToID[meta.Name]
		if !ok {
			// the index is built from the same metadata
			continue
		}
		if slots[int(id)] != nil {
			problems = append(problems, fmt.Errorf("%w %q", ErrDuplicateModule, meta.Name))
			continue
		}
		slots[int(id)] = meta
		g.Present[int(id)] = true
	}

	for from, meta := range slots {
		if meta == nil || len(meta.Imports) == 0 {
			continue
		}
		seen := make(map[ModuleID]struct{}, len(meta.Imports))
		for _, dep := range meta.Imports {
			if dep == "" {
				continue
			}
			toID, ok := idx.NameToID[dep]
			if !ok {
				problems = append(problems, fmt.Errorf("module %q imports unknown module %q: %w", meta.Name, dep, ErrMissingModule))
				continue
			}
			if ModuleID(from) == toID {
				problems = append(problems, fmt.Errorf("module %q: %w", meta.Name, ErrSelfImport))
				continue
			}
			if _, dup := seen[toID]; dup {
				continue
			}
			seen[toID] = struct{}{}

			g.Edges[from] = append(g.Edges[from], toID)
			if g.Present[int(toID)] {
				g.Indeg[int(toID)]++
			} else {
				problems = append(problems, fmt.Errorf("module %q imports %q: %w", meta.Name, dep, ErrMissingModule))
			}
		}
		if len(g.Edges[from]) > 1 {
			slices.Sort(g.Edges[from])
		}
	}

	return g, errors.Join(problems...)
}

// Importers returns the present modules outside of set that import a member
// of set directly.
func (g Graph) Importers(set []ModuleID) []ModuleID {
	in := make(map[ModuleID]struct{}, len(set))
	for _, id := range set {
		in[id] = struct{}{}
	}
	var out []ModuleID
	for from, edges := range g.Edges {
		fromID := ModuleID(from)
		if !g.Present[from] {
			continue
		}
		if _, self := in[fromID]; self {
			continue
		}
		for _, to := range edges {
			if _, hit := in[to]; hit {
				out = append(out, fromID)
				break
			}
		}
	}
	return out
}

// CycleError describes the modules left in a cycle, or nil when topo is acyclic.
func CycleError(idx ModuleIndex, topo *Topo) error {
	if topo == nil || !topo.Cyclic || len(topo.Cycles) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %s", ErrImportCycle, strings.Join(idx.Names(topo.Cycles), " -> "))
}
