package layout

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sync"

	"github.com/ProReality/ClassiCubeLauncher/updates_api"
)

// Resolver derives the per-platform application-data directory and the
// launcher directory below it. Both are resolved once and memoized for
// the lifetime of the Resolver, which is meant to be one process run.
type Resolver struct {
	mu sync.Mutex

	goos     string
	getenv   func(string) string
	homeDir  func() (string, error)
	override string

	appDataDir  string
	launcherDir string
}

type ResolverOption func(*Resolver)

// WithLauncherDir skips platform detection and uses dir as the launcher directory
func WithLauncherDir(dir string) ResolverOption {
	return func(r *Resolver) {
		r.override = dir
	}
}

// WithPlatform replaces the platform signals, used by tests
func WithPlatform(goos string, getenv func(string) string, homeDir func() (string, error)) ResolverOption {
	return func(r *Resolver) {
		r.goos = goos
		r.getenv = getenv
		r.homeDir = homeDir
	}
}

func NewResolver(opts ...ResolverOption) *Resolver {
	r := &Resolver{
		goos:    runtime.GOOS,
		getenv:  os.Getenv,
		homeDir: os.UserHomeDir,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// AppDataDir never fails: it falls back to the home directory and then to "."
func (r *Resolver) AppDataDir() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.appDataDirLocked()
}

func (r *Resolver) appDataDirLocked() string {
	if r.appDataDir != "" {
		return r.appDataDir
	}

	home, err := r.homeDir()
	if err != nil || home == "" {
		home = "."
	}

	switch r.goos {
	case "windows":
		if appData := r.getenv("APPDATA"); appData != "" {
			r.appDataDir = appData
		} else {
			r.appDataDir = home
		}
	case "darwin":
		r.appDataDir = filepath.Join(home, macPathSuffix)
	default:
		r.appDataDir = home
	}
	return r.appDataDir
}

// LauncherDir returns the launcher directory, creating it on first use.
// A creation failure is reported and the next call tries again.
func (r *Resolver) LauncherDir() (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.launcherDir != "" {
		return r.launcherDir, nil
	}

	dir := r.override
	if dir == "" {
		dir = filepath.Join(r.appDataDirLocked(), LauncherDirName)
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", updates_api.IOError("create launcher directory", dir, fmt.Errorf("unable to create directory: %w", err))
	}

	r.launcherDir = dir
	return dir, nil
}
