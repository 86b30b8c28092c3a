package transform

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/railwayapp/switchyard/internal/environment"
)

// ResolveProjectPath expands environment tokens in project and makes it
// absolute relative to contextDirectory
func ResolveProjectPath(env *environment.Environment, contextDirectory, project string) (string, error) {
	expanded := env.Expand(project)
	if strings.TrimSpace(expanded) == "" {
		return "", fmt.Errorf("%w: empty project path", ErrPathResolution)
	}
	if strings.ContainsRune(expanded, 0) {
		return "", fmt.Errorf("%w: %q contains a NUL byte", ErrPathResolution, expanded)
	}

	if !filepath.IsAbs(expanded) {
		expanded = filepath.Join(contextDirectory, expanded)
	}

	fullPath, err := filepath.Abs(expanded)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %w", ErrPathResolution, expanded, err)
	}
	return fullPath, nil
}
