package project

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"aotc/internal/partition"
	"aotc/internal/types"
)

const sampleManifest = `
[compilation]
strategy = "split"
output = ["app"]

[[module]]
name = "corelib"

[[module.type]]
namespace = "System"
name = "Object"

[[module.type.method]]
name = "ToString"
virtual = true

[[module.type]]
namespace = "System"
name = "Int32"
kind = "struct"

[[module.type]]
namespace = "System.Collections"
name = "List"
arity = 1
base = "System.Object"

[[module.type.method]]
name = "Add"
virtual = true

[[module.type.method]]
name = "ConvertAll"
arity = 1

[[module]]
name = "app"
imports = ["corelib"]

[[module.type]]
namespace = "App"
name = "Widget"
base = "System.Object"

[[module.type]]
namespace = "App"
name = "Widgets"
base = "System.Collections.List<App.Widget>"

[[module]]
name = "tool"
imports = ["app", "corelib"]

[[instantiation]]
type = "System.Collections.List"
args = ["System.Int32"]

[[instantiation.method]]
name = "ConvertAll"
args = ["App.Widget[]"]
`

func loadSample(t *testing.T) *Project {
	t.Helper()
	p, err := Parse("aotc.toml", []byte(sampleManifest))
	require.NoError(t, err)
	return p
}

func TestParseBuildsContext(t *testing.T) {
	p := loadSample(t)
	ctx := p.Context

	require.Len(t, ctx.Modules(), 3)
	corelib, ok := ctx.InputModule("corelib")
	require.True(t, ok)
	require.Len(t, corelib.Types(), 3)

	list, err := corelib.GetType("System.Collections", "List")
	require.NoError(t, err)
	require.True(t, list.IsGenericDefinition())
	require.Equal(t, "System.Object", list.Base().String())

	app, _ := ctx.InputModule("app")
	widgets, err := app.GetType("App", "Widgets")
	require.NoError(t, err)
	require.Equal(t, "System.Collections.List<App.Widget>", widgets.Base().String())
	require.True(t, widgets.HasVirtualSlots())

	var names []string
	for _, ty := range ctx.Types() {
		names = append(names, ty.String())
	}
	require.Contains(t, names, "System.Collections.List<System.Int32>")
	require.Contains(t, names, "System.Collections.List<App.Widget>")
	require.Contains(t, names, "App.Widget[]")

	var methods []string
	for _, m := range ctx.Methods() {
		methods = append(methods, m.String())
	}
	require.Contains(t, methods, "System.Collections.List<System.Int32>::Add")
	require.Contains(t, methods, "System.Collections.List<App.Widget>::Add")
	require.Contains(t, methods, "System.Collections.List<System.Int32>::ConvertAll<App.Widget[]>")
}

func TestParseDigestTracksContent(t *testing.T) {
	a := loadSample(t)
	b := loadSample(t)
	require.Equal(t, a.Digest, b.Digest)

	c, err := Parse("aotc.toml", []byte(sampleManifest+"\n# comment\n"))
	require.NoError(t, err)
	require.NotEqual(t, a.Digest, c.Digest)
	require.NotEqual(t, Combine(a.Digest), a.Digest)
	require.Len(t, a.Digest.Short(), 12)
}

func TestDependentsAndOptions(t *testing.T) {
	p := loadSample(t)

	deps, err := p.Dependents([]string{"corelib"})
	require.NoError(t, err)
	require.Equal(t, []string{"app", "tool"}, deps)

	deps, err = p.Dependents([]string{"tool"})
	require.NoError(t, err)
	require.NotNil(t, deps)
	require.Empty(t, deps)

	_, err = p.Dependents([]string{"nope"})
	require.ErrorIs(t, err, partition.ErrUnknownModule)

	opts, err := p.PolicyOptions()
	require.NoError(t, err)
	require.Equal(t, partition.StrategySplitByModule, opts.Strategy)
	require.Equal(t, []string{"app"}, opts.Output)
	require.Equal(t, []string{"tool"}, opts.Dependents)

	opts, err = p.Options(partition.StrategySingleFile, []string{"app"})
	require.NoError(t, err)
	require.Nil(t, opts.Output)
	require.Nil(t, opts.Dependents)

	pol, err := p.Policy()
	require.NoError(t, err)
	require.False(t, pol.IsSingleFileCompilation())
}

func TestBuildOrder(t *testing.T) {
	p := loadSample(t)
	require.Equal(t, [][]string{{"corelib"}, {"app"}, {"tool"}}, p.BuildOrder())
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name     string
		manifest string
		want     error
	}{
		{
			name:     "missing compilation",
			manifest: "[[module]]\nname = \"a\"\n",
			want:     ErrCompilationSectionMissing,
		},
		{
			name:     "no modules",
			manifest: "[compilation]\n",
			want:     ErrNoModules,
		},
		{
			name:     "reserved module name",
			manifest: "[compilation]\n[[module]]\nname = \"" + partition.GeneratedModuleName + "\"\n",
			want:     ErrInvalidModuleName,
		},
		{
			name:     "bad module name",
			manifest: "[compilation]\n[[module]]\nname = \"a..b\"\n",
			want:     ErrInvalidModuleName,
		},
		{
			name:     "duplicate module",
			manifest: "[compilation]\n[[module]]\nname = \"a\"\n[[module]]\nname = \"a\"\n",
			want:     nil, // reported by the graph
		},
		{
			name: "unknown import",
			manifest: `[compilation]
[[module]]
name = "a"
imports = ["b"]
`,
			want: nil,
		},
		{
			name: "duplicate type",
			manifest: `[compilation]
[[module]]
name = "a"
[[module.type]]
name = "T"
[[module.type]]
name = "T"
`,
			want: types.ErrDuplicateType,
		},
		{
			name: "base not imported",
			manifest: `[compilation]
[[module]]
name = "a"
[[module.type]]
name = "Base"
[[module]]
name = "b"
[[module.type]]
name = "Derived"
base = "Base"
`,
			want: types.ErrTypeNotFound,
		},
		{
			name: "qualified base not imported",
			manifest: `[compilation]
[[module]]
name = "a"
[[module.type]]
name = "Base"
[[module]]
name = "b"
[[module.type]]
name = "Derived"
base = "a:Base"
`,
			want: ErrNotImported,
		},
		{
			name: "ambiguous argument",
			manifest: `[compilation]
[[module]]
name = "a"
[[module.type]]
name = "T"
[[module.type]]
name = "G"
arity = 1
[[module]]
name = "b"
[[module.type]]
name = "T"
[[instantiation]]
type = "G"
args = ["T"]
`,
			want: ErrAmbiguousType,
		},
		{
			name: "arity mismatch",
			manifest: `[compilation]
[[module]]
name = "a"
[[module.type]]
name = "G"
arity = 2
[[module.type]]
name = "T"
[[instantiation]]
type = "G"
args = ["T"]
`,
			want: types.ErrArityMismatch,
		},
		{
			name: "unknown key",
			manifest: `[compilation]
strategi = "split"
[[module]]
name = "a"
`,
			want: nil,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse("aotc.toml", []byte(tt.manifest))
			require.Error(t, err)
			if tt.want != nil {
				require.ErrorIs(t, err, tt.want)
			}
		})
	}
}

func TestParseImportCycle(t *testing.T) {
	_, err := Parse("aotc.toml", []byte(`[compilation]
[[module]]
name = "a"
imports = ["b"]
[[module]]
name = "b"
imports = ["a"]
`))
	require.Error(t, err)
	require.Contains(t, err.Error(), "import cycle")
}

func TestNormalizeName(t *testing.T) {
	// "é" as e + combining acute accent composes to a single rune.
	require.Equal(t, "caf\u00e9", NormalizeName("  cafe\u0301 "))
	require.True(t, IsValidModuleName("System.Private.CoreLib"))
	require.False(t, IsValidModuleName("1abc"))
	require.False(t, IsValidModuleName(""))
}

func TestParseTypeRef(t *testing.T) {
	ref, err := ParseTypeRef("corelib:System.Collections.Dictionary<System.String, App.Widget[]>[]")
	require.NoError(t, err)
	require.Equal(t, "corelib", ref.Module)
	require.Equal(t, "System.Collections", ref.Namespace)
	require.Equal(t, "Dictionary", ref.Name)
	require.Len(t, ref.Args, 2)
	require.Equal(t, 1, ref.Args[1].Rank)
	require.Equal(t, 1, ref.Rank)
	require.Equal(t, "corelib:System.Collections.Dictionary<System.String,App.Widget[]>[]", ref.String())

	for _, bad := range []string{"", "List<", "List<A", "a:b:C", ":C", "List<A>>", "List<,A>"} {
		_, err := ParseTypeRef(bad)
		require.Error(t, err, "ParseTypeRef(%q)", bad)
	}
}

func TestLoadAndFindManifest(t *testing.T) {
	dir := t.TempDir()
	nested := filepath.Join(dir, "src", "app")
	require.NoError(t, os.MkdirAll(nested, 0o755))
	path := filepath.Join(dir, ManifestName)
	require.NoError(t, os.WriteFile(path, []byte(sampleManifest), 0o600))

	found, ok, err := FindManifest(nested)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, path, found)

	root, ok, err := FindProjectRoot(nested)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, dir, root)

	resolved, err := ResolveManifest(nested)
	require.NoError(t, err)
	require.Equal(t, path, resolved)

	p, err := Load(resolved)
	require.NoError(t, err)
	require.Equal(t, path, p.Path)
	require.Equal(t, HashBytes([]byte(sampleManifest)), p.Digest)

	_, err = Load(filepath.Join(dir, "missing.toml"))
	require.True(t, errors.Is(err, os.ErrNotExist))
}
