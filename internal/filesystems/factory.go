package filesystems

import (
	"fmt"
	"net/url"
	"strings"
)

// NewFileSystem creates a filesystem implementation for the given location.
// Supports plain local paths and file:///path URIs; returns the local path
// the caller should resolve against.
func NewFileSystem(uri string) (FileSystem, string, error) {
	if !strings.Contains(uri, "://") {
		return NewLocalFS(), uri, nil
	}

	parsedURL, err := url.Parse(uri)
	if err != nil {
		return nil, "", fmt.Errorf("invalid URI %s: %w", uri, err)
	}

	switch parsedURL.Scheme {
	case "file":
		return NewLocalFS(), parsedURL.Path, nil
	default:
		return nil, "", fmt.Errorf("unsupported scheme: %s", parsedURL.Scheme)
	}
}
