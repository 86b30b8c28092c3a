package transform

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"testing"

	"github.com/railwayapp/switchyard/internal/build"
	"github.com/railwayapp/switchyard/internal/environment"
	"github.com/railwayapp/switchyard/internal/filesystems"
	"github.com/railwayapp/switchyard/internal/model"
)

type fakeBuild struct {
	lines    []string
	exitCode int
	stderr   string
	err      error
}

// fakeInvoker answers builds by project path and records every call
type fakeInvoker struct {
	mu     sync.Mutex
	builds map[string]fakeBuild
	calls  [][]string
}

func newFakeInvoker() *fakeInvoker {
	return &fakeInvoker{builds: make(map[string]fakeBuild)}
}

func (f *fakeInvoker) Run(ctx context.Context, command string, args []string, opts build.RunOptions) (build.Result, error) {
	f.mu.Lock()
	f.calls = append(f.calls, append([]string{command}, args...))
	b := f.builds[args[1]]
	f.mu.Unlock()

	if b.err != nil {
		return build.Result{}, b.err
	}

	var stdout strings.Builder
	for _, line := range b.lines {
		stdout.WriteString(line + "\n")
		opts.OnOutput(line)
	}
	return build.Result{ExitCode: b.exitCode, StandardOutput: stdout.String(), StandardError: b.stderr}, nil
}

func (f *fakeInvoker) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func projectService(app *model.Application, name, project, args string) *model.Service {
	return app.AddService(&model.ServiceDescription{
		Name:    name,
		RunInfo: &model.ProjectRunInfo{Project: project, Args: args},
	})
}

func TestTransformer_SuccessfulBuild(t *testing.T) {
	mfs := filesystems.NewMemoryFS()
	mfs.AddFile("/repo/src/Api/Api.csproj", []byte("<Project/>"))
	mfs.AddDir("/repo/src/Api/bin/Debug/net5.0")

	invoker := newFakeInvoker()
	invoker.builds["/repo/src/Api/Api.csproj"] = fakeBuild{lines: []string{"Restore complete", "Build succeeded."}}

	app := model.NewApplication("shop", "/repo")
	service := projectService(app, "api", "src/Api/Api.csproj", "--flag")

	transformer := New(discardLogger(), invoker, WithFileSystem(mfs))
	if err := transformer.Start(context.Background(), app); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	docker, ok := service.Description.RunInfo.(*model.DockerRunInfo)
	if !ok {
		t.Fatalf("expected DockerRunInfo, got %T", service.Description.RunInfo)
	}
	if docker.Args != "dotnet /app/bin/Debug/net5.0/Api.dll --flag" {
		t.Errorf("unexpected command %q", docker.Args)
	}
	if docker.Image != "mcr.microsoft.com/dotnet/core/sdk:3.1-buster" {
		t.Errorf("unexpected image %q", docker.Image)
	}
	if docker.WorkingDirectory != "/app" {
		t.Errorf("unexpected working directory %q", docker.WorkingDirectory)
	}
	if len(docker.VolumeMappings) != 1 || docker.VolumeMappings["/repo/src/Api"] != "/app" {
		t.Errorf("unexpected volume mappings %v", docker.VolumeMappings)
	}

	status := service.Status.Snapshot()
	if status.ProjectFilePath != "/repo/src/Api/Api.csproj" {
		t.Errorf("unexpected project file path %q", status.ProjectFilePath)
	}
	if status.Phase != model.PhaseTransformed || status.Moniker != "net5.0" {
		t.Errorf("unexpected status %+v", status)
	}

	expectedLines := []string{
		`dotnet build "/repo/src/Api/Api.csproj" /nologo`,
		"Restore complete",
		"Build succeeded.",
	}
	if !slices.Equal(service.Logs.Lines(), expectedLines) {
		t.Errorf("expected log lines %v, got %v", expectedLines, service.Logs.Lines())
	}

	if len(invoker.calls) != 1 || !slices.Equal(invoker.calls[0], []string{"dotnet", "build", "/repo/src/Api/Api.csproj", "/nologo"}) {
		t.Errorf("unexpected invocations %v", invoker.calls)
	}
}

func TestTransformer_ExpandsEnvironmentInProjectPath(t *testing.T) {
	invoker := newFakeInvoker()
	app := model.NewApplication("shop", "/repo")
	service := projectService(app, "api", "$MYAPP/src/Api/Api.csproj", "")

	env := environment.New(environment.FromMap(map[string]string{"MYAPP": "/repo"}))
	transformer := New(discardLogger(), invoker, WithFileSystem(filesystems.NewMemoryFS()), WithEnvironment(env))
	if err := transformer.Start(context.Background(), app); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got := service.Status.Snapshot().ProjectFilePath; got != "/repo/src/Api/Api.csproj" {
		t.Errorf("expected /repo/src/Api/Api.csproj, got %q", got)
	}

	docker := service.Description.RunInfo.(*model.DockerRunInfo)
	if docker.Args != "dotnet /app/bin/Debug/netcoreapp3.1/Api.dll" {
		t.Errorf("unexpected command %q", docker.Args)
	}
}

func TestTransformer_FailedBuildLeavesProject(t *testing.T) {
	invoker := newFakeInvoker()
	invoker.builds["/repo/Api/Api.csproj"] = fakeBuild{
		lines:    []string{"Program.cs(3,1): error CS1002: ; expected"},
		exitCode: 1,
		stderr:   "Build FAILED.\n",
	}

	var logs bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&logs, nil))

	app := model.NewApplication("shop", "/repo")
	service := projectService(app, "api", "Api/Api.csproj", "--flag")
	original := service.Description.RunInfo

	transformer := New(logger, invoker, WithFileSystem(filesystems.NewMemoryFS()))
	if err := transformer.Start(context.Background(), app); err != nil {
		t.Fatalf("a failed build must not fail the pass, got %v", err)
	}

	if service.Description.RunInfo != original {
		t.Fatalf("expected run-info to remain the project descriptor, got %T", service.Description.RunInfo)
	}

	lines := service.Logs.Lines()
	if len(lines) != 3 {
		t.Fatalf("expected echo, build output and failure entry, got %v", lines)
	}
	if lines[0] != `dotnet build "/repo/Api/Api.csproj" /nologo` {
		t.Errorf("expected the echoed build command first, got %q", lines[0])
	}
	failure := lines[2]
	if !strings.Contains(failure, "exit code 1") || !strings.Contains(failure, "error CS1002") || !strings.Contains(failure, "Build FAILED.") {
		t.Errorf("failure entry missing exit code or output: %q", failure)
	}

	status := service.Status.Snapshot()
	if status.Phase != model.PhaseBuildFailed || status.ExitCode != 1 {
		t.Errorf("unexpected status %+v", status)
	}
	if !errors.Is(status.Err, ErrBuildFailed) {
		t.Errorf("expected ErrBuildFailed, got %v", status.Err)
	}

	if !strings.Contains(logs.String(), `"exit_code":1`) || !strings.Contains(logs.String(), `"project":"/repo/Api/Api.csproj"`) {
		t.Errorf("expected structured failure fields, got %s", logs.String())
	}
}

func TestTransformer_InvokerErrorIsABuildFailure(t *testing.T) {
	invoker := newFakeInvoker()
	invoker.builds["/repo/Api.csproj"] = fakeBuild{err: errors.New("exec: \"dotnet\": executable file not found in $PATH")}

	app := model.NewApplication("shop", "/repo")
	service := projectService(app, "api", "Api.csproj", "")

	if err := New(discardLogger(), invoker).Start(context.Background(), app); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, ok := service.Description.RunInfo.(*model.ProjectRunInfo); !ok {
		t.Fatalf("expected project descriptor to remain, got %T", service.Description.RunInfo)
	}
	status := service.Status.Snapshot()
	if status.Phase != model.PhaseBuildFailed || status.ExitCode != -1 {
		t.Errorf("unexpected status %+v", status)
	}
}

func TestTransformer_FailuresAreIsolated(t *testing.T) {
	invoker := newFakeInvoker()
	invoker.builds["/repo/Broken/Broken.csproj"] = fakeBuild{exitCode: 1}

	app := model.NewApplication("shop", "/repo")
	broken := projectService(app, "broken", "Broken/Broken.csproj", "")
	unresolvable := projectService(app, "unresolvable", "   ", "")
	healthy := projectService(app, "healthy", "Healthy/Healthy.csproj", "")
	redis := app.AddService(&model.ServiceDescription{Name: "redis", RunInfo: model.NewDockerRunInfo("redis:7", "")})
	redisRunInfo := redis.Description.RunInfo

	if err := New(discardLogger(), invoker, WithFileSystem(filesystems.NewMemoryFS())).Start(context.Background(), app); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, ok := broken.Description.RunInfo.(*model.ProjectRunInfo); !ok {
		t.Error("expected broken service to keep its project descriptor")
	}
	if _, ok := unresolvable.Description.RunInfo.(*model.ProjectRunInfo); !ok {
		t.Error("expected unresolvable service to keep its project descriptor")
	}
	if _, ok := healthy.Description.RunInfo.(*model.DockerRunInfo); !ok {
		t.Error("expected healthy service to be transformed")
	}
	if redis.Description.RunInfo != redisRunInfo {
		t.Error("expected container service to be untouched")
	}

	status := unresolvable.Status.Snapshot()
	if status.Phase != model.PhaseResolveFailed || !errors.Is(status.Err, ErrPathResolution) {
		t.Errorf("unexpected status for unresolvable service %+v", status)
	}
	if status.ProjectFilePath != "" {
		t.Errorf("expected no project path to be recorded, got %q", status.ProjectFilePath)
	}
	if len(unresolvable.Logs.Lines()) != 1 {
		t.Errorf("expected one log entry for the resolution failure, got %v", unresolvable.Logs.Lines())
	}

	if invoker.callCount() != 2 {
		t.Errorf("expected two builds, got %d", invoker.callCount())
	}
}

func TestTransformer_Idempotent(t *testing.T) {
	invoker := newFakeInvoker()
	app := model.NewApplication("shop", "/repo")
	projectService(app, "api", "Api/Api.csproj", "")
	projectService(app, "worker", "Worker/Worker.csproj", "--once")

	transformer := New(discardLogger(), invoker, WithFileSystem(filesystems.NewMemoryFS()))
	for i := 0; i < 2; i++ {
		if err := transformer.Start(context.Background(), app); err != nil {
			t.Fatalf("pass %d: unexpected error: %v", i, err)
		}
	}

	if invoker.callCount() != 2 {
		t.Errorf("expected each service to be built once, got %d builds", invoker.callCount())
	}
	for name, service := range app.Services {
		if _, ok := service.Description.RunInfo.(*model.DockerRunInfo); !ok {
			t.Errorf("expected %s to be transformed", name)
		}
	}
}

func TestTransformer_Unbounded(t *testing.T) {
	invoker := newFakeInvoker()
	app := model.NewApplication("shop", "/repo")
	for _, name := range []string{"a", "b", "c", "d", "e"} {
		projectService(app, name, name+"/"+name+".csproj", "")
	}

	if err := New(discardLogger(), invoker, WithFileSystem(filesystems.NewMemoryFS()), WithParallelism(0)).Start(context.Background(), app); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for name, service := range app.Services {
		docker, ok := service.Description.RunInfo.(*model.DockerRunInfo)
		if !ok {
			t.Fatalf("expected %s to be transformed", name)
		}
		expected := "dotnet /app/bin/Debug/netcoreapp3.1/" + name + ".dll"
		if docker.Args != expected {
			t.Errorf("expected %q, got %q", expected, docker.Args)
		}
	}
}

func TestTransformer_CustomImageSelector(t *testing.T) {
	mfs := filesystems.NewMemoryFS()
	mfs.AddDir("/repo/Api/bin/Debug/net8.0")

	var seen string
	selector := func(targetFramework string) string {
		seen = targetFramework
		return "mcr.microsoft.com/dotnet/sdk:8.0"
	}

	app := model.NewApplication("shop", "/repo")
	service := projectService(app, "api", "Api/Api.csproj", "")

	if err := New(discardLogger(), newFakeInvoker(), WithFileSystem(mfs), WithImageSelector(selector)).Start(context.Background(), app); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if seen != "net8.0" {
		t.Errorf("expected selector to receive net8.0, got %q", seen)
	}
	if image := service.Description.RunInfo.(*model.DockerRunInfo).Image; image != "mcr.microsoft.com/dotnet/sdk:8.0" {
		t.Errorf("unexpected image %q", image)
	}
}

func TestTransformer_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	invoker := newFakeInvoker()
	app := model.NewApplication("shop", "/repo")
	service := projectService(app, "api", "Api/Api.csproj", "")

	err := New(discardLogger(), invoker).Start(ctx, app)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if invoker.callCount() != 0 {
		t.Errorf("expected no builds, got %d", invoker.callCount())
	}
	if _, ok := service.Description.RunInfo.(*model.ProjectRunInfo); !ok {
		t.Error("expected service to be untouched")
	}
}

func TestTransformer_Stop(t *testing.T) {
	if err := New(discardLogger(), newFakeInvoker()).Stop(context.Background(), model.NewApplication("shop", "/repo")); err != nil {
		t.Errorf("expected Stop to be a no-op, got %v", err)
	}
}

func TestContainerCommand(t *testing.T) {
	tests := []struct {
		name     string
		project  string
		args     string
		expected string
	}{
		{"with args", "/repo/src/Api/Api.csproj", "--flag", "dotnet /app/bin/Debug/net5.0/Api.dll --flag"},
		{"args verbatim", "/repo/Api.csproj", `--name "a b"  -v`, `dotnet /app/bin/Debug/net5.0/Api.dll --name "a b"  -v`},
		{"no args", "/repo/Api.csproj", "", "dotnet /app/bin/Debug/net5.0/Api.dll"},
		{"dotted name", "/repo/My.Company.Api.fsproj", "", "dotnet /app/bin/Debug/net5.0/My.Company.Api.dll"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := containerCommand("net5.0", tt.project, tt.args); got != tt.expected {
				t.Errorf("expected %q, got %q", tt.expected, got)
			}
		})
	}
}
