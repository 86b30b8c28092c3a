package model

// RunInfo describes how a service is executed. The set of implementations is
// closed: ProjectRunInfo and DockerRunInfo.
type RunInfo interface {
	Kind() RunKind
	runInfo()
}

type RunKind int

const (
	RunKindProject RunKind = iota // build a source project and run its output
	RunKindDocker                 // run a container image
)

func (k RunKind) String() string {
	switch k {
	case RunKindProject:
		return "project"
	case RunKindDocker:
		return "docker"
	default:
		return "unknown"
	}
}

// ProjectRunInfo is a service built from a project file. Project may contain
// environment tokens and may be relative to the application context directory.
type ProjectRunInfo struct {
	Project string
	Args    string
}

func (*ProjectRunInfo) Kind() RunKind { return RunKindProject }
func (*ProjectRunInfo) runInfo()      {}

// DockerRunInfo is a service run as a container.
type DockerRunInfo struct {
	Image            string
	Args             string            // command line run inside the container
	WorkingDirectory string
	VolumeMappings   map[string]string // host path -> container path
}

func NewDockerRunInfo(image, args string) *DockerRunInfo {
	return &DockerRunInfo{
		Image:          image,
		Args:           args,
		VolumeMappings: make(map[string]string),
	}
}

func (*DockerRunInfo) Kind() RunKind { return RunKindDocker }
func (*DockerRunInfo) runInfo()      {}
