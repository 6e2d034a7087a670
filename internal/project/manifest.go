package project

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/BurntSushi/toml"
)

// Manifest is the decoded aotc.toml.
type Manifest struct {
	Compilation    Compilation         `toml:"compilation"`
	Modules        []ModuleDecl        `toml:"module"`
	Instantiations []InstantiationDecl `toml:"instantiation"`
}

// Compilation describes the output module being built.
type Compilation struct {
	Strategy string   `toml:"strategy"`
	Output   []string `toml:"output"`
}

// ModuleDecl declares an input module and its types.
type ModuleDecl struct {
	Name    string     `toml:"name"`
	Imports []string   `toml:"imports"`
	Types   []TypeDecl `toml:"type"`
}

// TypeDecl declares a type. Base is a type reference (see ParseTypeRef).
type TypeDecl struct {
	Namespace string       `toml:"namespace"`
	Name      string       `toml:"name"`
	Kind      string       `toml:"kind"`
	Arity     int          `toml:"arity"`
	Base      string       `toml:"base"`
	Methods   []MethodDecl `toml:"method"`
}

// MethodDecl declares a method on the enclosing type.
type MethodDecl struct {
	Name    string `toml:"name"`
	Virtual bool   `toml:"virtual"`
	Arity   int    `toml:"arity"`
}

// InstantiationDecl requests a generic instantiation. Args is empty when
// only generic methods of a non-generic type are instantiated.
type InstantiationDecl struct {
	Type    string                `toml:"type"`
	Args    []string              `toml:"args"`
	Methods []MethodInstantiation `toml:"method"`
}

// MethodInstantiation applies a generic method of the instantiated type.
type MethodInstantiation struct {
	Name string   `toml:"name"`
	Args []string `toml:"args"`
}

var (
	// ErrCompilationSectionMissing indicates that [compilation] is absent.
	ErrCompilationSectionMissing = errors.New("missing [compilation]")
	// ErrNoModules indicates a manifest without [[module]] entries.
	ErrNoModules = errors.New("no [[module]] entries")
	// ErrInvalidModuleName indicates a module name that is not a dotted identifier.
	ErrInvalidModuleName = errors.New("invalid module name")
)

// DefaultStrategy is used when [compilation].strategy is not set.
const DefaultStrategy = "single"

// DecodeManifest parses manifest content. name is used in error messages.
func DecodeManifest(name string, data []byte) (*Manifest, error) {
	var m Manifest
	meta, err := toml.Decode(string(data), &m)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to parse TOML: %w", name, err)
	}
	if !meta.IsDefined("compilation") {
		return nil, fmt.Errorf("%s: %w", name, ErrCompilationSectionMissing)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return nil, fmt.Errorf("%s: unknown keys: %s", name, strings.Join(keys, ", "))
	}
	if !meta.IsDefined("compilation", "strategy") || strings.TrimSpace(m.Compilation.Strategy) == "" {
		m.Compilation.Strategy = DefaultStrategy
	}
	if len(m.Modules) == 0 {
		return nil, fmt.Errorf("%s: %w", name, ErrNoModules)
	}
	m.normalize()
	for _, mod := range m.Modules {
		if !IsValidModuleName(mod.Name) {
			return nil, fmt.Errorf("%s: %w %q", name, ErrInvalidModuleName, mod.Name)
		}
	}
	return &m, nil
}

// LoadManifest reads and parses the manifest at path together with the
// digest of its raw bytes.
func LoadManifest(path string) (*Manifest, Digest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, Digest{}, fmt.Errorf("failed to read manifest: %w", err)
	}
	m, err := DecodeManifest(path, data)
	if err != nil {
		return nil, Digest{}, err
	}
	return m, HashBytes(data), nil
}

func (m *Manifest) normalize() {
	m.Compilation.Strategy = strings.TrimSpace(m.Compilation.Strategy)
	m.Compilation.Output = normalizeAll(m.Compilation.Output)
	for i := range m.Modules {
		mod := &m.Modules[i]
		mod.Name = NormalizeName(mod.Name)
		mod.Imports = normalizeAll(mod.Imports)
		for j := range mod.Types {
			td := &mod.Types[j]
			td.Namespace = NormalizeName(td.Namespace)
			td.Name = NormalizeName(td.Name)
			td.Base = NormalizeName(td.Base)
			for k := range td.Methods {
				td.Methods[k].Name = NormalizeName(td.Methods[k].Name)
			}
		}
	}
	for i := range m.Instantiations {
		inst := &m.Instantiations[i]
		inst.Type = NormalizeName(inst.Type)
		inst.Args = normalizeAll(inst.Args)
		for j := range inst.Methods {
			inst.Methods[j].Name = NormalizeName(inst.Methods[j].Name)
			inst.Methods[j].Args = normalizeAll(inst.Methods[j].Args)
		}
	}
}
