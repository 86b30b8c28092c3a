package manifest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/railwayapp/switchyard/internal/filesystems"
	"github.com/railwayapp/switchyard/internal/model"
)

var (
	ErrUnsupportedFormat = errors.New("unsupported manifest format")
	ErrDuplicateService  = errors.New("duplicate service name")
	ErrInvalidService    = errors.New("invalid service definition")
	ErrNotFound          = errors.New("no manifest found")
)

// DefaultFileNames are tried in order when Load is given a directory
var DefaultFileNames = []string{
	"switchyard.yaml",
	"switchyard.yml",
	"switchyard.toml",
	"docker-compose.yml",
	"docker-compose.yaml",
	"compose.yml",
	"compose.yaml",
}

// Fragment is what a decoder extracts from one manifest file
type Fragment struct {
	Name     string
	Services []*model.ServiceDescription
}

// Decoder reads one manifest format
type Decoder interface {
	// CanDecode returns true if this decoder handles the given file
	CanDecode(path string) bool

	Decode(ctx context.Context, filesystem filesystems.FileSystem, path string) (Fragment, error)
}

type Loader struct {
	logger     *slog.Logger
	filesystem filesystems.FileSystem
	decoders   []Decoder
}

func NewLoader(logger *slog.Logger, filesystem filesystems.FileSystem, decoders ...Decoder) *Loader {
	if len(decoders) == 0 {
		decoders = DefaultDecoders(logger)
	}
	return &Loader{logger: logger, filesystem: filesystem, decoders: decoders}
}

// DefaultDecoders returns the built-in decoders; compose comes first so
// compose-named YAML files are not read as native manifests
func DefaultDecoders(logger *slog.Logger) []Decoder {
	return []Decoder{
		NewComposeDecoder(logger),
		NewYAMLDecoder(),
		NewTOMLDecoder(),
	}
}

// Find returns the manifest path for location: location itself when it is a
// file, otherwise the first of DefaultFileNames present in the directory
func (l *Loader) Find(location string) (string, error) {
	info, err := l.filesystem.Stat(location)
	if err != nil {
		return "", fmt.Errorf("failed to stat %s: %w", location, err)
	}
	if !info.IsDir() {
		return location, nil
	}

	for _, name := range DefaultFileNames {
		candidate := l.filesystem.Join(location, name)
		if info, err := l.filesystem.Stat(candidate); err == nil && !info.IsDir() {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("%w in %s", ErrNotFound, location)
}

// Load decodes the manifest at location into an application whose context
// directory is the manifest's directory
func (l *Loader) Load(ctx context.Context, location string) (*model.Application, error) {
	path, err := l.Find(location)
	if err != nil {
		return nil, err
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to get absolute path for %s: %w", path, err)
	}

	var decoder Decoder
	for _, d := range l.decoders {
		if d.CanDecode(absPath) {
			decoder = d
			break
		}
	}
	if decoder == nil {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, filepath.Base(absPath))
	}

	fragment, err := decoder.Decode(ctx, l.filesystem, absPath)
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", absPath, err)
	}

	contextDirectory := filepath.Dir(absPath)
	name := fragment.Name
	if name == "" {
		name = filepath.Base(contextDirectory)
	}

	app := model.NewApplication(name, contextDirectory)
	for _, description := range fragment.Services {
		if _, exists := app.Services[description.Name]; exists {
			return nil, fmt.Errorf("%w '%s' in %s", ErrDuplicateService, description.Name, absPath)
		}
		app.AddService(description)
	}

	l.logger.Debug("Loaded manifest", "path", absPath, "services", len(app.Services))
	return app, nil
}

func hasExtension(path string, extensions ...string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, candidate := range extensions {
		if ext == candidate {
			return true
		}
	}
	return false
}
