package transform

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/railwayapp/switchyard/internal/build"
	"github.com/railwayapp/switchyard/internal/environment"
	"github.com/railwayapp/switchyard/internal/filesystems"
	"github.com/railwayapp/switchyard/internal/model"
)

const (
	// ContainerWorkingDirectory is where the project directory is mounted
	ContainerWorkingDirectory = "/app"

	buildCommand    = "dotnet"
	outputExtension = ".dll"
)

// Transformer rewrites services described as projects into services run as
// containers. Each project is built on the host first; the container then
// runs the build output from a bind mount of the project directory.
type Transformer struct {
	logger      *slog.Logger
	invoker     build.Invoker
	filesystem  filesystems.FileSystem
	env         *environment.Environment
	selectImage ImageSelector
	parallelism int
}

type Option func(*Transformer)

// WithFileSystem sets the file system used to inspect build output
func WithFileSystem(filesystem filesystems.FileSystem) Option {
	return func(t *Transformer) { t.filesystem = filesystem }
}

// WithEnvironment sets the variables used to expand project paths
func WithEnvironment(env *environment.Environment) Option {
	return func(t *Transformer) { t.env = env }
}

func WithImageSelector(selector ImageSelector) Option {
	return func(t *Transformer) { t.selectImage = selector }
}

// WithParallelism bounds how many services are built at once. Values below
// one mean no bound.
func WithParallelism(n int) Option {
	return func(t *Transformer) { t.parallelism = n }
}

func New(logger *slog.Logger, invoker build.Invoker, opts ...Option) *Transformer {
	t := &Transformer{
		logger:      logger,
		invoker:     invoker,
		filesystem:  filesystems.NewLocalFS(),
		env:         environment.New(),
		selectImage: DetermineContainerImage,
		parallelism: 1,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

func (t *Transformer) Name() string {
	return "transform-projects-into-containers"
}

// Start transforms every service currently described by a ProjectRunInfo.
// Failures are logged and recorded on the service's status; they never stop
// other services and are never returned. The only error is ctx.Err() when
// the pass was cancelled.
func (t *Transformer) Start(ctx context.Context, app *model.Application) error {
	var g errgroup.Group
	if t.parallelism > 0 {
		g.SetLimit(t.parallelism)
	}

	for _, service := range app.Services {
		project, ok := service.Description.RunInfo.(*model.ProjectRunInfo)
		if !ok {
			continue
		}
		g.Go(func() error {
			t.transformProjectToContainer(ctx, app, service, project)
			return nil
		})
	}

	g.Wait()
	return ctx.Err()
}

// Stop holds no resources
func (t *Transformer) Stop(ctx context.Context, app *model.Application) error {
	return nil
}

func (t *Transformer) transformProjectToContainer(ctx context.Context, app *model.Application, service *model.Service, project *model.ProjectRunInfo) {
	name := service.Description.Name
	logger := t.logger.With("service", name)

	if ctx.Err() != nil {
		return
	}

	projectFilePath, err := ResolveProjectPath(t.env, app.ContextDirectory, project.Project)
	if err != nil {
		logger.Warn("Skipping project", "project", project.Project, "error", err)
		service.Logs.Publish(err.Error())
		service.Status.Update(func(s *model.ServiceStatus) {
			s.Phase = model.PhaseResolveFailed
			s.Err = err
		})
		return
	}
	service.Status.Update(func(s *model.ServiceStatus) {
		s.ProjectFilePath = projectFilePath
		s.Phase = model.PhaseBuilding
	})

	logger.Info("Building project", "project", projectFilePath)
	service.Logs.Publish(fmt.Sprintf(`%s build "%s" /nologo`, buildCommand, projectFilePath))

	result, err := t.invoker.Run(ctx, buildCommand, []string{"build", projectFilePath, "/nologo"}, build.RunOptions{
		OnOutput:      service.Logs.Publish,
		FailOnNonZero: false,
	})
	if err == nil && result.ExitCode != 0 {
		err = fmt.Errorf("%w with exit code %d", ErrBuildFailed, result.ExitCode)
	} else if err != nil {
		result.ExitCode = -1
		err = fmt.Errorf("%w: %w", ErrBuildFailed, err)
	}
	if err != nil {
		output := result.CombinedOutput()
		logger.Warn("Building project failed",
			"project", projectFilePath,
			"exit_code", result.ExitCode,
			"output", output,
			"error", err,
		)
		service.Logs.Publish(fmt.Sprintf("Building %s failed with exit code %d: %s", projectFilePath, result.ExitCode, output))
		service.Status.Update(func(s *model.ServiceStatus) {
			s.Phase = model.PhaseBuildFailed
			s.ExitCode = result.ExitCode
			s.Err = err
		})
		return
	}

	targetFramework := GetTargetFramework(t.filesystem, projectFilePath)
	containerImage := t.selectImage(targetFramework)

	// docker run -w /app -v {projectDir}:/app {image} dotnet /app/bin/Debug/{tfm}/{output}.dll {args}
	dockerRunInfo := model.NewDockerRunInfo(containerImage, containerCommand(targetFramework, projectFilePath, project.Args))
	dockerRunInfo.WorkingDirectory = ContainerWorkingDirectory
	dockerRunInfo.VolumeMappings[filepath.Dir(projectFilePath)] = ContainerWorkingDirectory

	service.Description.RunInfo = dockerRunInfo
	service.Status.Update(func(s *model.ServiceStatus) {
		s.Phase = model.PhaseTransformed
		s.ExitCode = 0
		s.Moniker = targetFramework
		s.Err = nil
	})

	logger.Info("Transformed project into container",
		"project", projectFilePath,
		"moniker", targetFramework,
		"image", containerImage,
	)
}

// containerCommand is the command line the container runs: the project's
// build output under the mounted working directory, followed by the
// service's own arguments verbatim
func containerCommand(targetFramework, projectFilePath, args string) string {
	base := filepath.Base(projectFilePath)
	outputFileName := strings.TrimSuffix(base, filepath.Ext(base)) + outputExtension

	command := fmt.Sprintf("%s %s/bin/Debug/%s/%s", buildCommand, ContainerWorkingDirectory, targetFramework, outputFileName)
	if args != "" {
		command += " " + args
	}
	return command
}
