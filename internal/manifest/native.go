package manifest

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/railwayapp/switchyard/internal/filesystems"
	"github.com/railwayapp/switchyard/internal/model"
)

// document is the native manifest layout shared by the YAML and TOML
// decoders
type document struct {
	Name     string         `yaml:"name" toml:"name"`
	Services []serviceEntry `yaml:"services" toml:"services"`
}

type serviceEntry struct {
	Name             string        `yaml:"name" toml:"name"`
	Project          string        `yaml:"project" toml:"project"`
	Image            string        `yaml:"image" toml:"image"`
	Args             string        `yaml:"args" toml:"args"`
	WorkingDirectory string        `yaml:"workingDirectory" toml:"workingDirectory"`
	Volumes          []volumeEntry `yaml:"volumes" toml:"volumes"`
}

type volumeEntry struct {
	Source string `yaml:"source" toml:"source"`
	Target string `yaml:"target" toml:"target"`
}

type YAMLDecoder struct{}

func NewYAMLDecoder() *YAMLDecoder {
	return &YAMLDecoder{}
}

func (d *YAMLDecoder) CanDecode(path string) bool {
	return hasExtension(path, ".yaml", ".yml")
}

func (d *YAMLDecoder) Decode(ctx context.Context, filesystem filesystems.FileSystem, path string) (Fragment, error) {
	content, err := filesystem.ReadFile(path)
	if err != nil {
		return Fragment{}, err
	}

	var doc document
	if err := yaml.Unmarshal(content, &doc); err != nil {
		return Fragment{}, err
	}
	return doc.fragment(filepath.Dir(path))
}

type TOMLDecoder struct{}

func NewTOMLDecoder() *TOMLDecoder {
	return &TOMLDecoder{}
}

func (d *TOMLDecoder) CanDecode(path string) bool {
	return hasExtension(path, ".toml")
}

func (d *TOMLDecoder) Decode(ctx context.Context, filesystem filesystems.FileSystem, path string) (Fragment, error) {
	content, err := filesystem.ReadFile(path)
	if err != nil {
		return Fragment{}, err
	}

	var doc document
	if _, err := toml.Decode(string(content), &doc); err != nil {
		return Fragment{}, err
	}
	return doc.fragment(filepath.Dir(path))
}

func (doc document) fragment(contextDirectory string) (Fragment, error) {
	fragment := Fragment{Name: doc.Name}
	for i, entry := range doc.Services {
		description, err := entry.description(contextDirectory)
		if err != nil {
			return Fragment{}, fmt.Errorf("service %d: %w", i, err)
		}
		fragment.Services = append(fragment.Services, description)
	}
	return fragment, nil
}

// description converts an entry into exactly one run-info variant. Project
// paths are kept raw; the transformer expands and resolves them.
func (e serviceEntry) description(contextDirectory string) (*model.ServiceDescription, error) {
	name := strings.TrimSpace(e.Name)
	if name == "" {
		return nil, fmt.Errorf("%w: missing name", ErrInvalidService)
	}

	switch {
	case e.Project != "" && e.Image != "":
		return nil, fmt.Errorf("%w: %s sets both project and image", ErrInvalidService, name)

	case e.Project != "":
		if e.WorkingDirectory != "" || len(e.Volumes) > 0 {
			return nil, fmt.Errorf("%w: %s sets container fields on a project", ErrInvalidService, name)
		}
		return &model.ServiceDescription{
			Name:    name,
			RunInfo: &model.ProjectRunInfo{Project: e.Project, Args: e.Args},
		}, nil

	case e.Image != "":
		runInfo := model.NewDockerRunInfo(e.Image, e.Args)
		runInfo.WorkingDirectory = e.WorkingDirectory
		for _, volume := range e.Volumes {
			if volume.Source == "" || volume.Target == "" {
				return nil, fmt.Errorf("%w: %s has a volume without source or target", ErrInvalidService, name)
			}
			runInfo.VolumeMappings[hostPath(contextDirectory, volume.Source)] = volume.Target
		}
		return &model.ServiceDescription{Name: name, RunInfo: runInfo}, nil

	default:
		return nil, fmt.Errorf("%w: %s needs a project or an image", ErrInvalidService, name)
	}
}

func hostPath(contextDirectory, source string) string {
	if filepath.IsAbs(source) {
		return filepath.Clean(source)
	}
	return filepath.Join(contextDirectory, source)
}
