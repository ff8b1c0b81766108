// Package pathutil resolves user-supplied folder paths.
package pathutil

import (
	"os"
	"path/filepath"
	"strings"
)

// Expand replaces a leading "~" with the user's home directory.
func Expand(path string) (string, error) {
	if path != "~" && !strings.HasPrefix(path, "~/") && !strings.HasPrefix(path, `~\`) {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, path[1:]), nil
}

// ResolveFolder turns path into an absolute path with symlinks in its
// existing part resolved. The folder itself does not have to exist yet;
// missing trailing components are kept as given.
func ResolveFolder(path string) (string, error) {
	if path == "" {
		return os.Getwd()
	}

	expanded, err := Expand(path)
	if err != nil {
		return "", err
	}
	abs, err := filepath.Abs(expanded)
	if err != nil {
		return "", err
	}

	existing := abs
	var missing []string
	for {
		if _, err := os.Stat(existing); err == nil {
			break
		}
		parent := filepath.Dir(existing)
		if parent == existing {
			return abs, nil
		}
		missing = append([]string{filepath.Base(existing)}, missing...)
		existing = parent
	}

	resolved, err := filepath.EvalSymlinks(existing)
	if err != nil {
		resolved = existing
	}
	return filepath.Join(append([]string{resolved}, missing...)...), nil
}
