// Package dotdir manages the .raggadon/ and ~/.raggadon directories.
//
// The directory holds config.toml and the CLI's persisted memory mode.
package dotdir

import (
	"fmt"
	"os"
	"path/filepath"
)

const (
	dirName = ".raggadon"

	// HomeEnv names an explicit raggadon directory, consulted after the
	// override and before directory discovery.
	HomeEnv = "RAGGADON_HOME"
)

type Manager struct{}

func NewManager() *Manager {
	return &Manager{}
}

// Target returns the absolute path of the .raggadon/ directory to use,
// creating it when missing. Order of precedence:
//  1. Provided override
//  2. $RAGGADON_HOME
//  3. The nearest .raggadon/ in the working directory or one of its parents
//  4. ~/.raggadon/
func (m *Manager) Target(overrideDir string) (string, error) {
	dir, err := m.resolve(overrideDir)
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating raggadon directory %s: %w", dir, err)
	}

	return filepath.Abs(dir)
}

// File returns the path of name inside the resolved .raggadon/ directory.
func (m *Manager) File(overrideDir, name string) (string, error) {
	dir, err := m.Target(overrideDir)
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, name), nil
}

func (m *Manager) resolve(overrideDir string) (string, error) {
	if overrideDir != "" {
		return overrideDir, nil
	}

	if env := os.Getenv(HomeEnv); env != "" {
		return env, nil
	}

	cwd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("getting current directory: %w", err)
	}
	if found := findUp(cwd); found != "" {
		return found, nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("getting home directory: %w", err)
	}
	return filepath.Join(home, dirName), nil
}

// findUp walks from start towards the filesystem root and returns the first
// .raggadon directory found, or "".
func findUp(start string) string {
	dir := start
	for {
		candidate := filepath.Join(dir, dirName)
		if info, err := os.Stat(candidate); err == nil && info.IsDir() {
			return candidate
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}
