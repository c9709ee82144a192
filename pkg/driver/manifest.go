package driver

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	ManifestFileName = "untagged.yml"
	LockfileFileName = "untagged.lock"
)

// DefaultSourceDir is used when the manifest lists no sources.
const DefaultSourceDir = "src"

var ErrManifestNotFound = errors.New("untagged.yml not found")

// Manifest represents the parsed contents of untagged.yml.
type Manifest struct {
	Path         string
	Name         string
	Version      string
	Sources      []string
	Target       TargetConfig
	Policy       PolicyConfig
	Dependencies map[string]*DependencySpec
}

// TargetConfig overrides the assumed data model. Zero values mean the
// checker default.
type TargetConfig struct {
	PointerWidth int
}

// PolicyConfig selects the payload policy by name.
type PolicyConfig struct {
	Payload string
}

// DependencySpec describes where a dependency's sources live.
type DependencySpec struct {
	Path   string
	Git    string
	Rev    string
	Tag    string
	Branch string
}

// ValidationError aggregates manifest validation failures.
type ValidationError struct {
	Issues []string
}

func (e *ValidationError) Error() string {
	if len(e.Issues) == 0 {
		return "manifest: invalid configuration"
	}
	var b strings.Builder
	b.WriteString("manifest validation failed:")
	for _, issue := range e.Issues {
		b.WriteString("\n- ")
		b.WriteString(issue)
	}
	return b.String()
}

// LoadManifest parses untagged.yml from disk, returning a validated manifest.
func LoadManifest(path string) (*Manifest, error) {
	if path == "" {
		return nil, fmt.Errorf("manifest: empty path")
	}
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("manifest: resolve %s: %w", path, err)
	}
	file, err := os.Open(absPath)
	if err != nil {
		return nil, fmt.Errorf("manifest: open %s: %w", absPath, err)
	}
	defer file.Close()

	decoder := yaml.NewDecoder(file)
	decoder.KnownFields(true)

	var raw manifestFile
	if err := decoder.Decode(&raw); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("manifest: %s is empty", absPath)
		}
		return nil, fmt.Errorf("manifest: parse %s: %w", absPath, err)
	}

	manifest := raw.toManifest(absPath)
	if err := manifest.validate(); err != nil {
		return nil, err
	}
	return manifest, nil
}

// FindManifest walks up from start until it finds untagged.yml.
func FindManifest(start string) (string, error) {
	dir, err := filepath.Abs(start)
	if err != nil {
		return "", fmt.Errorf("manifest: resolve start directory %q: %w", start, err)
	}
	if info, statErr := os.Stat(dir); statErr == nil && !info.IsDir() {
		dir = filepath.Dir(dir)
	}
	origin := dir
	for {
		candidate := filepath.Join(dir, ManifestFileName)
		info, err := os.Stat(candidate)
		if err == nil && !info.IsDir() {
			return candidate, nil
		}
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			return "", fmt.Errorf("manifest: stat %s: %w", candidate, err)
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf("no %s found from %s upwards: %w", ManifestFileName, origin, ErrManifestNotFound)
		}
		dir = parent
	}
}

// Dir is the package root.
func (m *Manifest) Dir() string {
	return filepath.Dir(m.Path)
}

// SourceDirs returns the absolute source directories of the package.
func (m *Manifest) SourceDirs() []string {
	sources := m.Sources
	if len(sources) == 0 {
		sources = []string{DefaultSourceDir}
	}
	out := make([]string, 0, len(sources))
	for _, src := range sources {
		out = append(out, filepath.Join(m.Dir(), filepath.FromSlash(src)))
	}
	return out
}

// DependencyNames returns the declared dependency names in sorted order.
func (m *Manifest) DependencyNames() []string {
	names := make([]string, 0, len(m.Dependencies))
	for name := range m.Dependencies {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

var payloadPolicies = map[string]bool{
	"no-drop":    true,
	"copy-only":  true,
	"permissive": true,
}

var versionPattern = regexp.MustCompile(`^[0-9]+(\.[0-9]+){0,2}([0-9A-Za-z\-\+\.]*)?$`)

func (m *Manifest) validate() error {
	var errs ValidationError
	if m.Name == "" {
		errs.Issues = append(errs.Issues, "name must be provided")
	}
	if m.Version != "" && !versionPattern.MatchString(m.Version) {
		errs.Issues = append(errs.Issues, fmt.Sprintf("invalid version %q", m.Version))
	}
	for i, src := range m.Sources {
		switch {
		case src == "":
			errs.Issues = append(errs.Issues, fmt.Sprintf("sources[%d] must be a non-empty path", i))
		case filepath.IsAbs(src):
			errs.Issues = append(errs.Issues, fmt.Sprintf("sources[%d] must be relative to the manifest", i))
		}
	}
	switch m.Target.PointerWidth {
	case 0, 4, 8:
	default:
		errs.Issues = append(errs.Issues, fmt.Sprintf("target.pointer_width must be 4 or 8, got %d", m.Target.PointerWidth))
	}
	if m.Policy.Payload != "" && !payloadPolicies[m.Policy.Payload] {
		errs.Issues = append(errs.Issues, fmt.Sprintf("policy.payload %q is not one of no-drop, copy-only, permissive", m.Policy.Payload))
	}

	sanitized := make(map[string]string, len(m.Dependencies))
	for _, name := range m.DependencyNames() {
		dep := m.Dependencies[name]
		key := sanitizeSegment(name)
		if other, exists := sanitized[key]; exists {
			errs.Issues = append(errs.Issues, fmt.Sprintf("dependencies %q and %q collide after sanitization", other, name))
		} else {
			sanitized[key] = name
		}
		for _, issue := range dep.validate() {
			errs.Issues = append(errs.Issues, fmt.Sprintf("dependencies.%s: %s", name, issue))
		}
	}

	if len(errs.Issues) > 0 {
		return &errs
	}
	return nil
}

func (d *DependencySpec) validate() []string {
	var errs []string
	if d == nil {
		return []string{"must specify git or path"}
	}
	switch {
	case d.Path != "" && d.Git != "":
		errs = append(errs, "path dependencies cannot also specify git")
	case d.Path == "" && d.Git == "":
		errs = append(errs, "must specify git or path")
	}
	pins := 0
	for _, pin := range []string{d.Rev, d.Tag, d.Branch} {
		if pin != "" {
			pins++
		}
	}
	if pins > 0 && d.Git == "" {
		errs = append(errs, "rev, tag and branch apply only to git dependencies")
	}
	if pins > 1 {
		errs = append(errs, "specify at most one of rev, tag, branch")
	}
	if d.Git != "" && pins == 0 {
		errs = append(errs, "git dependencies require rev, tag, or branch")
	}
	return errs
}

// Clone returns a copy of d.
func (d *DependencySpec) Clone() *DependencySpec {
	if d == nil {
		return nil
	}
	copy := *d
	return &copy
}

type manifestFile struct {
	Name         string        `yaml:"name"`
	Version      string        `yaml:"version"`
	Sources      stringList    `yaml:"sources"`
	Target       targetYAML    `yaml:"target"`
	Policy       policyYAML    `yaml:"policy"`
	Dependencies dependencyMap `yaml:"dependencies"`
}

type targetYAML struct {
	PointerWidth int `yaml:"pointer_width"`
}

type policyYAML struct {
	Payload string `yaml:"payload"`
}

type dependencyMap map[string]*DependencySpec

type stringList []string

func (mf manifestFile) toManifest(path string) *Manifest {
	result := &Manifest{
		Path:         path,
		Name:         sanitizeSegment(mf.Name),
		Version:      strings.TrimSpace(mf.Version),
		Sources:      mf.Sources.Clone(),
		Target:       TargetConfig{PointerWidth: mf.Target.PointerWidth},
		Policy:       PolicyConfig{Payload: strings.TrimSpace(mf.Policy.Payload)},
		Dependencies: make(map[string]*DependencySpec, len(mf.Dependencies)),
	}
	for name, dep := range mf.Dependencies {
		result.Dependencies[name] = dep.Clone()
	}
	return result
}

func (l stringList) Clone() []string {
	if len(l) == 0 {
		return nil
	}
	out := make([]string, 0, len(l))
	for _, item := range l {
		out = append(out, filepath.ToSlash(strings.TrimSpace(item)))
	}
	return out
}

func (l *stringList) UnmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case yaml.ScalarNode:
		if value.Tag == "!!null" || strings.TrimSpace(value.Value) == "" {
			*l = nil
			return nil
		}
		*l = stringList{strings.TrimSpace(value.Value)}
		return nil
	case yaml.SequenceNode:
		items := make([]string, 0, len(value.Content))
		for _, node := range value.Content {
			var str string
			if err := node.Decode(&str); err != nil {
				return err
			}
			items = append(items, strings.TrimSpace(str))
		}
		*l = stringList(items)
		return nil
	case yaml.AliasNode:
		return l.UnmarshalYAML(value.Alias)
	case 0:
		*l = nil
		return nil
	default:
		return fmt.Errorf("manifest: expected string or sequence for list but found %s", value.ShortTag())
	}
}

func (dm *dependencyMap) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind == 0 || (value.Kind == yaml.ScalarNode && value.Tag == "!!null") {
		*dm = make(dependencyMap)
		return nil
	}
	if value.Kind != yaml.MappingNode {
		return fmt.Errorf("manifest: dependencies must be a mapping")
	}
	result := make(dependencyMap, len(value.Content)/2)
	for i := 0; i+1 < len(value.Content); i += 2 {
		var key string
		if err := value.Content[i].Decode(&key); err != nil {
			return err
		}
		key = strings.TrimSpace(key)
		if key == "" {
			return fmt.Errorf("manifest: dependency names must be non-empty")
		}
		var dep DependencySpec
		if err := dep.unmarshalYAML(value.Content[i+1]); err != nil {
			return fmt.Errorf("manifest: dependency %q: %w", key, err)
		}
		result[key] = &dep
	}
	*dm = result
	return nil
}

func (d *DependencySpec) unmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case yaml.MappingNode:
		var raw struct {
			Path   string `yaml:"path"`
			Git    string `yaml:"git"`
			Rev    string `yaml:"rev"`
			Tag    string `yaml:"tag"`
			Branch string `yaml:"branch"`
		}
		if err := value.Decode(&raw); err != nil {
			return err
		}
		*d = DependencySpec{
			Path:   strings.TrimSpace(raw.Path),
			Git:    strings.TrimSpace(raw.Git),
			Rev:    strings.TrimSpace(raw.Rev),
			Tag:    strings.TrimSpace(raw.Tag),
			Branch: strings.TrimSpace(raw.Branch),
		}
		return nil
	case yaml.AliasNode:
		return d.unmarshalYAML(value.Alias)
	default:
		return fmt.Errorf("expected mapping with path or git, found %s", value.ShortTag())
	}
}

// sanitizeSegment turns a package or dependency name into a path segment.
func sanitizeSegment(name string) string {
	name = strings.TrimSpace(name)
	return strings.ReplaceAll(name, "-", "_")
}

// SanitizeName exposes the package-name normalisation used across manifests,
// lockfiles and the loader.
func SanitizeName(name string) string {
	return sanitizeSegment(name)
}
