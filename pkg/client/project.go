package client

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ProjectName returns override when set, otherwise the base name of the
// working directory.
func ProjectName(override string) (string, error) {
	if p := strings.TrimSpace(override); p != "" {
		return p, nil
	}

	cwd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("getting current directory: %w", err)
	}

	name := filepath.Base(cwd)
	if name == string(filepath.Separator) || name == "." {
		return "", fmt.Errorf("cannot derive a project name from %s, pass --project", cwd)
	}
	return name, nil
}
