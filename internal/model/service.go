package model

import "sync"

// Application is the set of services a host orchestrates together
type Application struct {
	Name             string
	ContextDirectory string // absolute; relative service paths resolve against it
	Services         map[string]*Service
}

func NewApplication(name, contextDirectory string) *Application {
	return &Application{
		Name:             name,
		ContextDirectory: contextDirectory,
		Services:         make(map[string]*Service),
	}
}

// AddService registers a service under its description name, replacing any
// previous service with the same name
func (a *Application) AddService(description *ServiceDescription) *Service {
	service := NewService(description)
	a.Services[description.Name] = service
	return service
}

type Service struct {
	Description *ServiceDescription
	Status      *ServiceStatus
	Logs        *LogStream
}

func NewService(description *ServiceDescription) *Service {
	return &Service{
		Description: description,
		Status:      &ServiceStatus{},
		Logs:        NewLogStream(),
	}
}

type ServiceDescription struct {
	Name    string
	RunInfo RunInfo
}

type Phase int

const (
	PhasePending       Phase = iota // not yet visited by a transformation pass
	PhaseBuilding                   // build command running
	PhaseTransformed                // run-info swapped to a container descriptor
	PhaseBuildFailed                // build exited non-zero or could not start
	PhaseResolveFailed              // project path could not be resolved
)

func (p Phase) String() string {
	switch p {
	case PhasePending:
		return "pending"
	case PhaseBuilding:
		return "building"
	case PhaseTransformed:
		return "transformed"
	case PhaseBuildFailed:
		return "build-failed"
	case PhaseResolveFailed:
		return "resolve-failed"
	default:
		return "unknown"
	}
}

// ServiceStatus holds the runtime fields of a service. It is written by the
// step that currently owns the service; readers on other goroutines go
// through Snapshot.
type ServiceStatus struct {
	mu sync.RWMutex

	ProjectFilePath string
	Phase           Phase
	ExitCode        int
	Moniker         string
	Err             error
}

type StatusSnapshot struct {
	ProjectFilePath string
	Phase           Phase
	ExitCode        int
	Moniker         string
	Err             error
}

func (s *ServiceStatus) Update(fn func(status *ServiceStatus)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(s)
}

func (s *ServiceStatus) Snapshot() StatusSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return StatusSnapshot{
		ProjectFilePath: s.ProjectFilePath,
		Phase:           s.Phase,
		ExitCode:        s.ExitCode,
		Moniker:         s.Moniker,
		Err:             s.Err,
	}
}
