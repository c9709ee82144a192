package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"
	"go.uber.org/multierr"

	"untagged/checker-go/pkg/driver"
)

func runDeps(args []string, stdout, stderr io.Writer) int {
	if len(args) == 0 {
		fmt.Fprintln(stderr, "untagged deps requires a subcommand (install)")
		return 1
	}
	switch args[0] {
	case "install":
		return runDepsInstall(args[1:], stdout, stderr)
	default:
		fmt.Fprintf(stderr, "unknown deps subcommand %q\n", args[0])
		return 1
	}
}

func runDepsInstall(args []string, stdout, stderr io.Writer) int {
	var global globalFlags
	fs := newFlagSet("deps install", stderr)
	global.register(fs)
	if done, code := parseFlags(fs, args); done {
		return code
	}
	if fs.NArg() > 0 {
		fmt.Fprintf(stderr, "untagged deps install does not take arguments (received %s)\n", strings.Join(fs.Args(), " "))
		return 1
	}
	logger, err := newLogger(global.logLevel, stderr)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}

	manifestPath := global.manifest
	if manifestPath == "" {
		manifestPath, err = driver.FindManifest(".")
		if err != nil {
			fmt.Fprintf(stderr, "unable to locate %s: %v\n", driver.ManifestFileName, err)
			return 1
		}
	}
	manifest, err := driver.LoadManifest(manifestPath)
	if err != nil {
		fmt.Fprintf(stderr, "failed to read manifest: %v\n", err)
		return 1
	}
	cacheDir, err := resolveUntaggedHome()
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}
	logger.WithFields(logrus.Fields{
		"manifest":     manifest.Path,
		"package":      manifest.Name,
		"dependencies": len(manifest.Dependencies),
		"cache":        cacheDir,
	}).Info("installing dependencies")

	lockPath := lockfilePath(manifest)
	lock, err := driver.LoadLockfile(lockPath)
	lockCreated := false
	switch {
	case err == nil:
		if lock.Root != driver.SanitizeName(manifest.Name) {
			fmt.Fprintf(stderr, "lockfile root %q does not match manifest name %q\n", lock.Root, manifest.Name)
			return 1
		}
	case errors.Is(err, os.ErrNotExist):
		lock = driver.NewLockfile(manifest.Name, cliToolVersion)
		lockCreated = true
	default:
		fmt.Fprintf(stderr, "failed to read lockfile: %v\n", err)
		return 1
	}
	lock.Path = lockPath
	lock.Tool = cliToolVersion

	installer := newDependencyInstaller(manifest, cacheDir, logger)
	changed, err := installer.Install(lock)
	for _, line := range installer.logs {
		fmt.Fprintln(stdout, line)
	}
	if err != nil {
		fmt.Fprintln(stderr, "failed to resolve dependencies:")
		reportLoadError(stderr, err)
		return 1
	}

	if changed || lockCreated {
		action := "Updated"
		if lockCreated {
			action = "Created"
		}
		if err := driver.WriteLockfile(lock, lockPath); err != nil {
			fmt.Fprintf(stderr, "failed to write lockfile: %v\n", err)
			return 1
		}
		fmt.Fprintf(stdout, "%s %s: %s\n", action, driver.LockfileFileName, lockPath)
	} else {
		fmt.Fprintf(stdout, "%s already up to date: %s\n", driver.LockfileFileName, lockPath)
	}
	return 0
}

type resolvedPackage struct {
	pkg      *driver.LockedPackage
	manifest *driver.Manifest
	root     string
}

// dependencyInstaller resolves the manifest's dependency graph into lock
// entries. Packages are keyed by their sanitized dependency name, which is
// also the root name their sources are imported under.
type dependencyInstaller struct {
	manifest     *driver.Manifest
	manifestRoot string
	git          *gitFetcher
	logger       logrus.FieldLogger
	logs         []string
	resolved     map[string]*driver.LockedPackage
	resolving    map[string]bool
}

func newDependencyInstaller(manifest *driver.Manifest, cacheDir string, logger logrus.FieldLogger) *dependencyInstaller {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &dependencyInstaller{
		manifest:     manifest,
		manifestRoot: manifest.Dir(),
		git:          newGitFetcher(cacheDir),
		logger:       logger,
	}
}

// Install resolves every dependency and replaces lock.Packages with the
// result. Failures of independent top-level dependencies are aggregated;
// the lockfile is left untouched when any of them fails.
func (d *dependencyInstaller) Install(lock *driver.Lockfile) (bool, error) {
	d.logs = nil
	d.resolved = make(map[string]*driver.LockedPackage)
	d.resolving = make(map[string]bool)

	var errs error
	for _, name := range d.manifest.DependencyNames() {
		spec := d.manifest.Dependencies[name].Clone()
		if spec.Path != "" && !filepath.IsAbs(spec.Path) {
			spec.Path = filepath.Join(d.manifestRoot, spec.Path)
		}
		if err := d.installDependency(name, spec); err != nil {
			errs = multierr.Append(errs, err)
		}
	}
	if errs != nil {
		return false, errs
	}

	desired := make([]*driver.LockedPackage, 0, len(d.resolved))
	for _, pkg := range d.resolved {
		desired = append(desired, pkg)
	}
	sort.SliceStable(desired, func(i, j int) bool {
		return desired[i].Name < desired[j].Name
	})

	changed := len(desired) != len(lock.Packages)
	for _, pkg := range desired {
		current, ok := lock.Package(pkg.Name)
		if !ok || !current.Equal(pkg) {
			changed = true
		}
	}
	lock.Packages = desired
	return changed, nil
}

func (d *dependencyInstaller) installDependency(name string, spec *driver.DependencySpec) error {
	if spec == nil {
		return fmt.Errorf("dependency %q has no descriptor", name)
	}
	alias := driver.SanitizeName(name)
	if alias == driver.SanitizeName(d.manifest.Name) {
		return fmt.Errorf("dependency %q has the same name as the root package", name)
	}
	if d.resolving[alias] {
		return fmt.Errorf("dependency cycle detected at %s", alias)
	}

	resolved, err := d.resolveDependency(name, spec)
	if err != nil {
		return err
	}
	pkg := resolved.pkg
	if existing, ok := d.resolved[alias]; ok {
		if existing.Source != pkg.Source {
			return fmt.Errorf("dependency %s resolves to both %s and %s", alias, existing.Source, pkg.Source)
		}
		return nil
	}

	d.resolving[alias] = true
	defer delete(d.resolving, alias)

	if resolved.manifest != nil {
		for _, childName := range resolved.manifest.DependencyNames() {
			childSpec := resolved.manifest.Dependencies[childName].Clone()
			if childSpec.Path != "" && !filepath.IsAbs(childSpec.Path) {
				childSpec.Path = filepath.Join(resolved.root, childSpec.Path)
			}
			if err := d.installDependency(childName, childSpec); err != nil {
				return fmt.Errorf("%s: %w", alias, err)
			}
			pkg.Dependencies = append(pkg.Dependencies, driver.SanitizeName(childName))
		}
		sort.Strings(pkg.Dependencies)
	}

	d.resolved[alias] = pkg
	return nil
}

func (d *dependencyInstaller) resolveDependency(name string, spec *driver.DependencySpec) (*resolvedPackage, error) {
	switch {
	case spec.Path != "":
		return d.resolvePathDependency(name, spec)
	case spec.Git != "":
		return d.resolveGitDependency(name, spec)
	default:
		return nil, fmt.Errorf("dependency %q: unsupported descriptor", name)
	}
}

func (d *dependencyInstaller) resolvePathDependency(name string, spec *driver.DependencySpec) (*resolvedPackage, error) {
	abs, err := filepath.Abs(spec.Path)
	if err != nil {
		return nil, fmt.Errorf("dependency %q: resolve path %q: %w", name, spec.Path, err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("dependency %q: stat %s: %w", name, abs, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("dependency %q: expected directory at %s", name, abs)
	}

	depManifest, err := loadOptionalManifest(abs)
	if err != nil {
		return nil, fmt.Errorf("dependency %q: %w", name, err)
	}
	version := "0.0.0-dev"
	if depManifest != nil && depManifest.Version != "" {
		version = depManifest.Version
	}

	d.logs = append(d.logs, fmt.Sprintf("linked %s %s (%s)", driver.SanitizeName(name), version, d.displayPath(abs)))
	d.logger.WithFields(logrus.Fields{"dependency": name, "path": abs}).Debug("resolved path dependency")

	return &resolvedPackage{
		pkg: &driver.LockedPackage{
			Name:    driver.SanitizeName(name),
			Version: version,
			Source:  "path:" + abs,
		},
		manifest: depManifest,
		root:     abs,
	}, nil
}

func (d *dependencyInstaller) resolveGitDependency(name string, spec *driver.DependencySpec) (*resolvedPackage, error) {
	pkg, checkoutDir, err := d.git.Fetch(name, spec)
	if err != nil {
		return nil, fmt.Errorf("dependency %q: %w", name, err)
	}
	depManifest, err := loadOptionalManifest(checkoutDir)
	if err != nil {
		return nil, fmt.Errorf("dependency %q: %w", name, err)
	}

	d.logs = append(d.logs, fmt.Sprintf("fetched %s %s (%s)", pkg.Name, pkg.Version, spec.Git))
	d.logger.WithFields(logrus.Fields{"dependency": name, "checkout": checkoutDir}).Debug("resolved git dependency")

	return &resolvedPackage{pkg: pkg, manifest: depManifest, root: checkoutDir}, nil
}

// loadOptionalManifest reads dir/untagged.yml when present. Dependencies
// without a manifest are plain source trees.
func loadOptionalManifest(dir string) (*driver.Manifest, error) {
	path := filepath.Join(dir, driver.ManifestFileName)
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	return driver.LoadManifest(path)
}

func (d *dependencyInstaller) displayPath(path string) string {
	if rel, err := filepath.Rel(d.manifestRoot, path); err == nil && !strings.HasPrefix(rel, "..") {
		return rel
	}
	return path
}
