package depbump

import (
	"encoding/json"
	"fmt"
	"path"
	"sort"
	"strings"

	"golang.org/x/mod/modfile"
)

// Kind is the section of a manifest a dependency is declared in.
type Kind string

const (
	KindDependency         Kind = "dependency"
	KindPeerDependency     Kind = "peerDependency"
	KindDevDependency      Kind = "devDependency"
	KindOptionalDependency Kind = "optionalDependency"
)

// Tracked reports whether changes to dependencies of this kind need a
// changelog entry.
func (k Kind) Tracked() bool {
	return k == KindDependency || k == KindPeerDependency
}

// Dependency is one declared requirement.
type Dependency struct {
	Name    string
	Version string
	Kind    Kind
}

// Manifest is the parsed dependency declaration of a package at one ref.
type Manifest struct {
	// Name, Version and Repository are only filled for package.json.
	Name       string
	Version    string
	Repository string

	Dependencies []Dependency
}

// Lookup returns the declared version of name under kind.
func (m *Manifest) Lookup(name string, kind Kind) (string, bool) {
	if m == nil {
		return "", false
	}
	for _, d := range m.Dependencies {
		if d.Name == name && d.Kind == kind {
			return d.Version, true
		}
	}
	return "", false
}

// ParseManifest parses the manifest named file, which must be a
// package.json or go.mod.
func ParseManifest(file string, data []byte) (*Manifest, error) {
	switch path.Base(file) {
	case "package.json":
		return ParsePackageJSON(data)
	case "go.mod":
		return ParseGoMod(data)
	default:
		return nil, fmt.Errorf("unsupported manifest %q: expected package.json or go.mod", file)
	}
}

type packageJSON struct {
	Name                 string            `json:"name"`
	Version              string            `json:"version"`
	Repository           json.RawMessage   `json:"repository"`
	Dependencies         map[string]string `json:"dependencies"`
	PeerDependencies     map[string]string `json:"peerDependencies"`
	DevDependencies      map[string]string `json:"devDependencies"`
	OptionalDependencies map[string]string `json:"optionalDependencies"`
}

// ParsePackageJSON parses an npm package manifest.
func ParsePackageJSON(data []byte) (*Manifest, error) {
	var pkg packageJSON
	if err := json.Unmarshal(data, &pkg); err != nil {
		return nil, fmt.Errorf("parsing package.json: %w", err)
	}

	m := &Manifest{
		Name:       pkg.Name,
		Version:    pkg.Version,
		Repository: repositoryURL(pkg.Repository),
	}
	for kind, deps := range map[Kind]map[string]string{
		KindDependency:         pkg.Dependencies,
		KindPeerDependency:     pkg.PeerDependencies,
		KindDevDependency:      pkg.DevDependencies,
		KindOptionalDependency: pkg.OptionalDependencies,
	} {
		for name, version := range deps {
			m.Dependencies = append(m.Dependencies, Dependency{Name: name, Version: cleanVersion(version), Kind: kind})
		}
	}
	m.sort()
	return m, nil
}

// repositoryURL reads the "repository" field, which is either a string or
// an object with a "url" key.
func repositoryURL(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var obj struct {
		URL string `json:"url"`
	}
	if err := json.Unmarshal(raw, &obj); err == nil {
		return obj.URL
	}
	return ""
}

// ParseGoMod parses a go.mod file. Direct requirements are dependencies;
// indirect ones are not tracked and are left out.
func ParseGoMod(data []byte) (*Manifest, error) {
	f, err := modfile.ParseLax("go.mod", data, nil)
	if err != nil {
		return nil, fmt.Errorf("parsing go.mod: %w", err)
	}
	m := &Manifest{}
	if f.Module != nil {
		m.Name = f.Module.Mod.Path
	}
	for _, r := range f.Require {
		if r.Indirect {
			continue
		}
		m.Dependencies = append(m.Dependencies, Dependency{Name: r.Mod.Path, Version: r.Mod.Version, Kind: KindDependency})
	}
	m.sort()
	return m, nil
}

func (m *Manifest) sort() {
	sort.Slice(m.Dependencies, func(i, j int) bool {
		a, b := m.Dependencies[i], m.Dependencies[j]
		if a.Name != b.Name {
			return a.Name < b.Name
		}
		return a.Kind < b.Kind
	})
}

// cleanVersion removes npm range operators such as ^, ~ and >=.
func cleanVersion(version string) string {
	version = strings.TrimSpace(version)
	for _, op := range []string{">=", "<=", "^", "~", ">", "<", "="} {
		version = strings.TrimPrefix(version, op)
	}
	return strings.TrimSpace(version)
}
