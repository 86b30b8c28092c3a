package export

import (
	"fmt"
	"sort"

	"github.com/railwayapp/switchyard/internal/model"
)

// Document is the serialized view of an application
type Document struct {
	Name             string    `json:"name" yaml:"name"`
	ContextDirectory string    `json:"contextDirectory" yaml:"contextDirectory"`
	Services         []Service `json:"services" yaml:"services"`
}

type Service struct {
	Name            string     `json:"name" yaml:"name"`
	Kind            string     `json:"kind" yaml:"kind"`
	Project         *Project   `json:"project,omitempty" yaml:"project,omitempty"`
	Container       *Container `json:"container,omitempty" yaml:"container,omitempty"`
	Phase           string     `json:"phase" yaml:"phase"`
	ProjectFilePath string     `json:"projectFilePath,omitempty" yaml:"projectFilePath,omitempty"`
	Error           string     `json:"error,omitempty" yaml:"error,omitempty"`
}

type Project struct {
	Path string `json:"path" yaml:"path"`
	Args string `json:"args,omitempty" yaml:"args,omitempty"`
}

type Container struct {
	Image            string            `json:"image" yaml:"image"`
	Args             string            `json:"args,omitempty" yaml:"args,omitempty"`
	WorkingDirectory string            `json:"workingDirectory,omitempty" yaml:"workingDirectory,omitempty"`
	VolumeMappings   map[string]string `json:"volumeMappings,omitempty" yaml:"volumeMappings,omitempty"`
}

// NewDocument snapshots app with services sorted by name
func NewDocument(app *model.Application) (*Document, error) {
	names := make([]string, 0, len(app.Services))
	for name := range app.Services {
		names = append(names, name)
	}
	sort.Strings(names)

	doc := &Document{
		Name:             app.Name,
		ContextDirectory: app.ContextDirectory,
		Services:         make([]Service, 0, len(names)),
	}
	for _, name := range names {
		service := app.Services[name]
		status := service.Status.Snapshot()

		out := Service{
			Name:            name,
			Phase:           status.Phase.String(),
			ProjectFilePath: status.ProjectFilePath,
		}
		if status.Err != nil {
			out.Error = status.Err.Error()
		}

		switch runInfo := service.Description.RunInfo.(type) {
		case *model.ProjectRunInfo:
			out.Kind = runInfo.Kind().String()
			out.Project = &Project{Path: runInfo.Project, Args: runInfo.Args}
		case *model.DockerRunInfo:
			out.Kind = runInfo.Kind().String()
			out.Container = &Container{
				Image:            runInfo.Image,
				Args:             runInfo.Args,
				WorkingDirectory: runInfo.WorkingDirectory,
				VolumeMappings:   runInfo.VolumeMappings,
			}
		default:
			return nil, fmt.Errorf("service %s has unsupported run-info %T", name, runInfo)
		}

		doc.Services = append(doc.Services, out)
	}

	return doc, nil
}
