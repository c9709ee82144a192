package main

import (
	"errors"
	"fmt"
	"io"

	"github.com/sirupsen/logrus"
	"github.com/spf13/pflag"
	"go.uber.org/multierr"

	"untagged/checker-go/pkg/driver"
	"untagged/checker-go/pkg/typechecker"
)

// globalFlags are accepted by every subcommand.
type globalFlags struct {
	manifest string
	logLevel string
}

func (g *globalFlags) register(fs *pflag.FlagSet) {
	fs.StringVar(&g.manifest, "manifest", "", "path to untagged.yml (default: search upwards from the first path)")
	fs.StringVar(&g.logLevel, "log-level", "warn", "log level")
}

// checkFlags override the manifest's checker settings.
type checkFlags struct {
	policy       string
	pointerWidth int
}

func (c *checkFlags) register(fs *pflag.FlagSet) {
	fs.StringVar(&c.policy, "policy", "", "payload policy: no-drop, copy-only or permissive")
	fs.IntVar(&c.pointerWidth, "pointer-width", 0, "target pointer width in bytes (4 or 8)")
}

func newFlagSet(name string, stderr io.Writer) *pflag.FlagSet {
	fs := pflag.NewFlagSet(name, pflag.ContinueOnError)
	fs.SetOutput(stderr)
	return fs
}

// parseFlags returns done=true when the caller should exit with code.
func parseFlags(fs *pflag.FlagSet, args []string) (done bool, code int) {
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return true, 0
		}
		return true, 1
	}
	return false, 0
}

func newLogger(level string, stderr io.Writer) (*logrus.Logger, error) {
	logger := logrus.New()
	logger.SetOutput(stderr)
	logger.SetFormatter(&logrus.TextFormatter{DisableTimestamp: true})
	lv, err := logrus.ParseLevel(level)
	if err != nil {
		return nil, err
	}
	logger.SetLevel(lv)
	return logger, nil
}

// checkerOptions merges manifest settings with flag overrides.
func checkerOptions(manifest *driver.Manifest, flags checkFlags) (typechecker.Options, error) {
	opts := typechecker.DefaultOptions()
	policy := flags.policy
	width := flags.pointerWidth
	if manifest != nil {
		if policy == "" {
			policy = manifest.Policy.Payload
		}
		if width == 0 {
			width = manifest.Target.PointerWidth
		}
	}
	parsed, err := typechecker.ParsePayloadPolicy(policy)
	if err != nil {
		return opts, err
	}
	opts.Policy = parsed
	if width != 0 {
		opts.Target = typechecker.TargetDataModel{PointerWidth: width}
		if err := opts.Target.Validate(); err != nil {
			return opts, err
		}
	}
	return opts, nil
}

// session bundles what check and layout share: the manifest in effect and
// the dependency roots recorded in its lockfile.
type session struct {
	manifest    *driver.Manifest
	searchPaths []driver.SearchPath
	logger      *logrus.Logger
}

func openSession(g globalFlags, paths []string, stderr io.Writer) (*session, error) {
	logger, err := newLogger(g.logLevel, stderr)
	if err != nil {
		return nil, err
	}
	s := &session{logger: logger}
	manifestPath := g.manifest
	if manifestPath == "" {
		start := "."
		if len(paths) > 0 {
			start = paths[0]
		}
		found, err := driver.FindManifest(start)
		switch {
		case err == nil:
			manifestPath = found
		case errors.Is(err, driver.ErrManifestNotFound):
			logger.WithField("start", start).Debug("no manifest found; using defaults")
			return s, nil
		default:
			return nil, err
		}
	}
	manifest, err := driver.LoadManifest(manifestPath)
	if err != nil {
		return nil, err
	}
	s.manifest = manifest
	logger.WithFields(logrus.Fields{"manifest": manifest.Path, "package": manifest.Name}).Debug("using manifest")

	if len(manifest.Dependencies) == 0 {
		return s, nil
	}
	lock, err := driver.LoadLockfile(lockfilePath(manifest))
	if err != nil {
		return nil, fmt.Errorf("dependencies are declared but %s cannot be read (run `untagged deps install`): %w", driver.LockfileFileName, err)
	}
	home, err := resolveUntaggedHome()
	if err != nil {
		return nil, err
	}
	s.searchPaths, err = searchPathsFromLock(manifest, lock, home)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// entries returns the paths to load, defaulting to the manifest root or the
// working directory.
func (s *session) entries(paths []string) []string {
	if len(paths) > 0 {
		return paths
	}
	if s.manifest != nil {
		return []string{s.manifest.Dir()}
	}
	return []string{"."}
}

func (s *session) load(entry string) (*driver.Program, error) {
	loader, err := driver.NewLoader(s.searchPaths, s.logger)
	if err != nil {
		return nil, err
	}
	defer loader.Close()
	return loader.Load(entry)
}

// reportLoadError prints each aggregated failure on its own line; parser
// failures render as path:line:col diagnostics.
func reportLoadError(w io.Writer, err error) {
	for _, e := range multierr.Errors(err) {
		fmt.Fprintln(w, e)
	}
}
