package driver

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"
	"go.uber.org/multierr"

	"untagged/checker-go/pkg/ast"
	"untagged/checker-go/pkg/parser"
)

// PackageSeparator joins package path segments, as in `shapes::geometry`.
const PackageSeparator = "::"

// SearchPath describes an additional package root, usually an installed
// dependency. When Name is empty the root's untagged.yml (or its directory
// name) decides the package name.
type SearchPath struct {
	Path string
	Name string
}

// Module aggregates the source files of one package.
type Module struct {
	Package     string
	AST         *ast.Module
	Files       []string
	Imports     []string
	NodeOrigins map[ast.Node]string
}

// Program contains the entry package and dependency-ordered modules.
type Program struct {
	Entry   *Module
	Modules []*Module
}

// Module looks up a loaded package by name.
func (p *Program) Module(name string) (*Module, bool) {
	if p == nil {
		return nil, false
	}
	for _, mod := range p.Modules {
		if mod.Package == name {
			return mod, true
		}
	}
	return nil, false
}

type packageLocation struct {
	root  string
	files []string
}

type rootInfo struct {
	dir     string
	name    string
	sources []string
}

type fileModule struct {
	path        string
	packageName string
	ast         *ast.Module
	uses        [][]string
}

// Loader wires source files into per-package modules.
type Loader struct {
	parser      *parser.ModuleParser
	searchPaths []SearchPath
	logger      logrus.FieldLogger
	parsed      map[string]*fileModule
}

// NewLoader constructs a loader. A nil logger falls back to the logrus
// standard logger.
func NewLoader(searchPaths []SearchPath, logger logrus.FieldLogger) (*Loader, error) {
	mp, err := parser.NewModuleParser()
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	unique := make([]SearchPath, 0, len(searchPaths))
	seen := make(map[string]struct{}, len(searchPaths))
	for _, sp := range searchPaths {
		if sp.Path == "" {
			continue
		}
		abs, err := filepath.Abs(sp.Path)
		if err != nil {
			mp.Close()
			return nil, fmt.Errorf("loader: resolve search path %q: %w", sp.Path, err)
		}
		if _, ok := seen[abs]; ok {
			continue
		}
		seen[abs] = struct{}{}
		unique = append(unique, SearchPath{Path: abs, Name: sanitizeSegment(sp.Name)})
	}
	return &Loader{parser: mp, searchPaths: unique, logger: logger}, nil
}

// Close releases parser resources.
func (l *Loader) Close() {
	if l == nil {
		return
	}
	if l.parser != nil {
		l.parser.Close()
		l.parser = nil
	}
}

// Load aggregates the entry and its dependencies. A file entry loads its own
// package plus everything it imports; a directory entry loads every package
// of the root and reports all parse failures at once.
func (l *Loader) Load(entry string) (*Program, error) {
	if l == nil || l.parser == nil {
		return nil, fmt.Errorf("loader: closed")
	}
	if entry == "" {
		return nil, fmt.Errorf("loader: empty entry path")
	}
	entryPath, err := filepath.Abs(entry)
	if err != nil {
		return nil, fmt.Errorf("loader: resolve entry path: %w", err)
	}
	info, err := os.Stat(entryPath)
	if err != nil {
		return nil, fmt.Errorf("loader: stat entry %s: %w", entryPath, err)
	}
	l.parsed = make(map[string]*fileModule)

	entryRoot, err := discoverRoot(entryPath, info.IsDir())
	if err != nil {
		return nil, err
	}
	pkgIndex := make(map[string]*packageLocation)
	roots := map[string]struct{}{entryRoot.name: {}}
	entryPackages, fileIndex, err := indexSourceFiles(entryRoot)
	if err != nil {
		return nil, err
	}
	if err := registerPackages(pkgIndex, entryPackages, entryRoot); err != nil {
		return nil, err
	}
	for _, sp := range l.searchPaths {
		root, err := discoverSearchRoot(sp)
		if err != nil {
			return nil, err
		}
		if _, dup := roots[root.name]; dup {
			return nil, fmt.Errorf("loader: package root %s found twice (%s)", root.name, root.dir)
		}
		roots[root.name] = struct{}{}
		packages, _, err := indexSourceFiles(root)
		if err != nil {
			return nil, err
		}
		if err := registerPackages(pkgIndex, packages, root); err != nil {
			return nil, err
		}
	}

	var include []string
	if info.IsDir() {
		if err := l.parseAll(entryPackages); err != nil {
			return nil, err
		}
		for name := range entryPackages {
			include = append(include, name)
		}
		sort.Strings(include)
	} else {
		name, ok := fileIndex[entryPath]
		if !ok {
			return nil, fmt.Errorf("loader: entry file %s is outside the sources of package %s", entryPath, entryRoot.name)
		}
		include = []string{name}
	}
	if len(include) == 0 {
		return nil, fmt.Errorf("loader: no .rs sources found under %s", entryRoot.dir)
	}

	loaded := make(map[string]*Module, len(pkgIndex))
	inProgress := make(map[string]bool)
	var ordered []*Module

	var loadPackage func(string) (*Module, error)
	loadPackage = func(name string) (*Module, error) {
		if mod, ok := loaded[name]; ok {
			return mod, nil
		}
		if inProgress[name] {
			return nil, fmt.Errorf("loader: import cycle detected at package %s", name)
		}
		loc, ok := pkgIndex[name]
		if !ok || loc == nil || len(loc.files) == 0 {
			return nil, fmt.Errorf("loader: package %s not found", name)
		}
		inProgress[name] = true
		defer delete(inProgress, name)

		fileMods := make([]*fileModule, 0, len(loc.files))
		for _, path := range loc.files {
			fm, err := l.parseFile(path, name)
			if err != nil {
				return nil, err
			}
			fileMods = append(fileMods, fm)
		}
		mod, err := combinePackage(name, fileMods, pkgIndex, roots)
		if err != nil {
			return nil, err
		}
		for _, dep := range mod.Imports {
			if _, err := loadPackage(dep); err != nil {
				return nil, err
			}
		}
		loaded[name] = mod
		ordered = append(ordered, mod)
		l.logger.WithFields(logrus.Fields{
			"package": name,
			"files":   len(mod.Files),
			"imports": len(mod.Imports),
		}).Debug("loaded package")
		return mod, nil
	}

	for _, name := range include {
		if _, err := loadPackage(name); err != nil {
			return nil, err
		}
	}

	program := &Program{Modules: ordered}
	entryName := include[0]
	if info.IsDir() {
		entryName = entryRoot.name
	}
	program.Entry = loaded[entryName]
	return program, nil
}

// parseAll parses every file of packages, aggregating failures.
func (l *Loader) parseAll(packages map[string][]string) error {
	names := make([]string, 0, len(packages))
	for name := range packages {
		names = append(names, name)
	}
	sort.Strings(names)
	var errs error
	for _, name := range names {
		for _, path := range packages[name] {
			_, err := l.parseFile(path, name)
			errs = multierr.Append(errs, err)
		}
	}
	return errs
}

func (l *Loader) parseFile(path, packageName string) (*fileModule, error) {
	if fm, ok := l.parsed[path]; ok {
		return fm, nil
	}
	source, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("loader: read %s: %w", path, err)
	}
	moduleAST, err := l.parser.ParseModule(source)
	if err != nil {
		var parseErr *parser.ParseError
		if errors.As(err, &parseErr) {
			return nil, newParserDiagnosticError(path, parseErr)
		}
		return nil, fmt.Errorf("loader: parse %s: %w", path, err)
	}
	fm := &fileModule{
		path:        path,
		packageName: packageName,
		ast:         moduleAST,
		uses:        collectUses(moduleAST),
	}
	l.parsed[path] = fm
	l.logger.WithFields(logrus.Fields{
		"package": packageName,
		"file":    path,
	}).Debug("parsed source file")
	return fm, nil
}

func collectUses(module *ast.Module) [][]string {
	var uses [][]string
	for _, stmt := range module.Body {
		use, ok := stmt.(*ast.UseDeclaration)
		if !ok {
			continue
		}
		segments := make([]string, 0, len(use.Path))
		for _, id := range use.Path {
			if id != nil && id.Name != "" {
				segments = append(segments, id.Name)
			}
		}
		if len(segments) > 0 {
			uses = append(uses, segments)
		}
	}
	return uses
}

// resolveImport maps a use path to the longest known package prefix. Paths
// into unknown roots (std, core, ...) resolve to "".
func resolveImport(current string, use []string, pkgIndex map[string]*packageLocation, roots map[string]struct{}) (string, error) {
	currentSegments := strings.Split(current, PackageSeparator)
	var segments []string
	switch use[0] {
	case "crate":
		segments = append([]string{currentSegments[0]}, use[1:]...)
	case "self":
		segments = append(append([]string{}, currentSegments...), use[1:]...)
	case "super":
		base := append([]string{}, currentSegments...)
		rest := use
		for len(rest) > 0 && rest[0] == "super" {
			if len(base) <= 1 {
				return "", fmt.Errorf("loader: package %s: `super` goes above the package root", current)
			}
			base = base[:len(base)-1]
			rest = rest[1:]
		}
		segments = append(base, rest...)
	default:
		if _, ok := roots[sanitizeSegment(use[0])]; !ok {
			return "", nil
		}
		segments = append([]string{sanitizeSegment(use[0])}, use[1:]...)
	}
	for n := len(segments); n > 0; n-- {
		candidate := strings.Join(segments[:n], PackageSeparator)
		if _, ok := pkgIndex[candidate]; ok {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("loader: package %s imports unknown package %s", current, strings.Join(segments, PackageSeparator))
}

func discoverRoot(entryPath string, isDir bool) (rootInfo, error) {
	start := entryPath
	if !isDir {
		start = filepath.Dir(entryPath)
	}
	manifestPath, err := FindManifest(start)
	switch {
	case err == nil:
		manifest, err := LoadManifest(manifestPath)
		if err != nil {
			return rootInfo{}, err
		}
		return rootInfo{dir: manifest.Dir(), name: manifest.Name, sources: manifest.SourceDirs()}, nil
	case errors.Is(err, ErrManifestNotFound):
		name := sanitizeSegment(filepath.Base(start))
		if name == "" {
			name = "main"
		}
		return rootInfo{dir: start, name: name, sources: []string{start}}, nil
	default:
		return rootInfo{}, err
	}
}

func discoverSearchRoot(sp SearchPath) (rootInfo, error) {
	info, err := os.Stat(sp.Path)
	if err != nil {
		return rootInfo{}, fmt.Errorf("loader: stat search path %s: %w", sp.Path, err)
	}
	if !info.IsDir() {
		return rootInfo{}, fmt.Errorf("loader: search path %s is not a directory", sp.Path)
	}
	root := rootInfo{dir: sp.Path, name: sp.Name, sources: []string{sp.Path}}
	manifestPath := filepath.Join(sp.Path, ManifestFileName)
	if _, err := os.Stat(manifestPath); err == nil {
		manifest, err := LoadManifest(manifestPath)
		if err != nil {
			return rootInfo{}, err
		}
		root.sources = manifest.SourceDirs()
		if root.name == "" {
			root.name = manifest.Name
		}
	}
	if root.name == "" {
		root.name = sanitizeSegment(filepath.Base(sp.Path))
	}
	return root, nil
}

func indexSourceFiles(root rootInfo) (map[string][]string, map[string]string, error) {
	packages := make(map[string][]string)
	fileToPackage := make(map[string]string)
	for _, srcDir := range root.sources {
		info, err := os.Stat(srcDir)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				continue
			}
			return nil, nil, fmt.Errorf("loader: stat %s: %w", srcDir, err)
		}
		if !info.IsDir() {
			return nil, nil, fmt.Errorf("loader: source path %s is not a directory", srcDir)
		}
		err = filepath.WalkDir(srcDir, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				if path != srcDir && (d.Name() == "target" || strings.HasPrefix(d.Name(), ".")) {
					return fs.SkipDir
				}
				return nil
			}
			if filepath.Ext(path) != ".rs" {
				return nil
			}
			segments, err := packageSegments(root.name, srcDir, path)
			if err != nil {
				return err
			}
			pkgName := strings.Join(segments, PackageSeparator)
			packages[pkgName] = append(packages[pkgName], path)
			fileToPackage[path] = pkgName
			return nil
		})
		if err != nil {
			return nil, nil, fmt.Errorf("loader: traverse %s: %w", srcDir, err)
		}
	}
	for pkg, files := range packages {
		sort.Strings(files)
		packages[pkg] = files
	}
	return packages, fileToPackage, nil
}

// packageSegments names a file's package: `src/shapes/mod.rs` and
// `src/shapes.rs` both belong to `<root>::shapes`, `src/lib.rs` to `<root>`.
func packageSegments(rootName, srcDir, filePath string) ([]string, error) {
	rel, err := filepath.Rel(srcDir, filePath)
	if err != nil {
		return nil, fmt.Errorf("loader: compute relative path for %s: %w", filePath, err)
	}
	rel = strings.TrimSuffix(filepath.ToSlash(rel), ".rs")
	parts := strings.Split(rel, "/")
	last := parts[len(parts)-1]
	switch {
	case last == "mod":
		parts = parts[:len(parts)-1]
	case len(parts) == 1 && (last == "lib" || last == "main"):
		parts = nil
	}
	segments := []string{rootName}
	for _, part := range parts {
		part = sanitizeSegment(part)
		if part == "" {
			continue
		}
		segments = append(segments, part)
	}
	return segments, nil
}

func registerPackages(pkgIndex map[string]*packageLocation, packages map[string][]string, root rootInfo) error {
	for name, files := range packages {
		if len(files) == 0 {
			continue
		}
		if existing, ok := pkgIndex[name]; ok {
			return fmt.Errorf("loader: package %s found in multiple roots (%s, %s)", name, existing.root, root.dir)
		}
		pkgIndex[name] = &packageLocation{root: root.dir, files: files}
	}
	return nil
}

func combinePackage(packageName string, files []*fileModule, pkgIndex map[string]*packageLocation, roots map[string]struct{}) (*Module, error) {
	if len(files) == 0 {
		return nil, errors.New("loader: combinePackage called with no files")
	}
	sort.Slice(files, func(i, j int) bool {
		return files[i].path < files[j].path
	})

	importSeen := make(map[string]struct{})
	var importNames []string
	var body []ast.Statement
	filePaths := make([]string, 0, len(files))
	origins := make(map[ast.Node]string)

	for _, fm := range files {
		filePaths = append(filePaths, fm.path)
		ast.AnnotateOrigins(fm.ast, fm.path, origins)
		for _, use := range fm.uses {
			name, err := resolveImport(packageName, use, pkgIndex, roots)
			if err != nil {
				return nil, err
			}
			if name == "" || name == packageName {
				continue
			}
			if _, ok := importSeen[name]; ok {
				continue
			}
			importSeen[name] = struct{}{}
			importNames = append(importNames, name)
		}
		body = append(body, fm.ast.Body...)
	}
	sort.Strings(importNames)

	module := ast.NewModule(body)
	ast.AnnotateOrigins(module, filePaths[0], origins)
	return &Module{
		Package:     packageName,
		AST:         module,
		Files:       filePaths,
		Imports:     importNames,
		NodeOrigins: origins,
	}, nil
}
