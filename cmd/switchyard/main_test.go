package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/railwayapp/switchyard/internal/build"
	"github.com/railwayapp/switchyard/internal/config"
	"github.com/railwayapp/switchyard/internal/export"
	"github.com/railwayapp/switchyard/internal/host"
	"github.com/railwayapp/switchyard/internal/model"
)

type scriptedInvoker struct {
	exitCode int
}

func (s *scriptedInvoker) Run(ctx context.Context, command string, args []string, opts build.RunOptions) (build.Result, error) {
	if opts.OnOutput != nil {
		opts.OnOutput("Build succeeded.")
	}
	return build.Result{ExitCode: s.exitCode}, nil
}

const testManifest = `name: shop
services:
  - name: api
    project: src/Api/Api.csproj
    args: --urls http://*:5000
  - name: redis
    image: redis:7
`

func writeManifest(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "switchyard.yaml"), []byte(testManifest), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.MkdirAll(filepath.Join(dir, "src", "Api", "bin", "Debug", "net8.0"), 0o755); err != nil {
		t.Fatal(err)
	}
	return dir
}

func testSettings() config.Settings {
	return config.Settings{LogLevel: "error", Parallelism: 1, Output: "json"}
}

func TestRunTransform(t *testing.T) {
	dir := writeManifest(t)

	var stdout, stderr bytes.Buffer
	if err := runTransform(context.Background(), &stdout, &stderr, dir, testSettings(), &scriptedInvoker{}); err != nil {
		t.Fatalf("runTransform() error = %v", err)
	}

	var doc export.Document
	if err := json.Unmarshal(stdout.Bytes(), &doc); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, stdout.String())
	}
	if doc.Name != "shop" || len(doc.Services) != 2 {
		t.Fatalf("unexpected document: %+v", doc)
	}

	api := doc.Services[0]
	if api.Name != "api" || api.Container == nil {
		t.Fatalf("api was not transformed: %+v", api)
	}
	wantArgs := "dotnet /app/bin/Debug/net8.0/Api.dll --urls http://*:5000"
	if api.Container.Args != wantArgs {
		t.Errorf("api args = %q, want %q", api.Container.Args, wantArgs)
	}
	projectDir := filepath.Join(dir, "src", "Api")
	if api.Container.VolumeMappings[projectDir] != "/app" {
		t.Errorf("api volumes = %v", api.Container.VolumeMappings)
	}

	if !strings.Contains(stderr.String(), "[api] Build succeeded.") {
		t.Errorf("service log lines were not streamed to stderr:\n%s", stderr.String())
	}
	if strings.Contains(stderr.String(), "[redis]") {
		t.Errorf("image service should not log:\n%s", stderr.String())
	}
}

func TestRunTransform_BuildFailureKeepsProject(t *testing.T) {
	dir := writeManifest(t)

	var stdout, stderr bytes.Buffer
	if err := runTransform(context.Background(), &stdout, &stderr, dir, testSettings(), &scriptedInvoker{exitCode: 1}); err != nil {
		t.Fatalf("runTransform() error = %v", err)
	}

	var doc export.Document
	if err := json.Unmarshal(stdout.Bytes(), &doc); err != nil {
		t.Fatal(err)
	}
	api := doc.Services[0]
	if api.Project == nil || api.Container != nil {
		t.Fatalf("failed build should keep the project: %+v", api)
	}
	if api.Phase != "build-failed" {
		t.Errorf("phase = %q", api.Phase)
	}
}

func TestRunTransform_UnknownOutput(t *testing.T) {
	settings := testSettings()
	settings.Output = "xml"

	var stdout, stderr bytes.Buffer
	err := runTransform(context.Background(), &stdout, &stderr, writeManifest(t), settings, &scriptedInvoker{})
	if err == nil || !strings.Contains(err.Error(), "xml") {
		t.Fatalf("expected unknown output error, got %v", err)
	}
}

func TestRunServices(t *testing.T) {
	dir := writeManifest(t)

	var stdout, stderr bytes.Buffer
	if err := runServices(context.Background(), &stdout, &stderr, dir, testSettings()); err != nil {
		t.Fatalf("runServices() error = %v", err)
	}

	out := stdout.String()
	for _, want := range []string{
		"shop (" + dir + "): 2 services",
		"  - api: project src/Api/Api.csproj (args: --urls http://*:5000)",
		"  - redis: image redis:7",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

type stubbornProcessor struct{}

func (stubbornProcessor) Name() string { return "stubborn" }

func (stubbornProcessor) Start(ctx context.Context, app *model.Application) error { return nil }

func (stubbornProcessor) Stop(ctx context.Context, app *model.Application) error {
	return errors.New("still running")
}

func TestStopHost_LogsFailure(t *testing.T) {
	var logs bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logs, nil))

	app := model.NewApplication("shop", "/repo")
	h := host.New(logger, stubbornProcessor{})
	if err := h.Start(context.Background(), app); err != nil {
		t.Fatalf("unexpected start error: %v", err)
	}

	stopHost(context.Background(), logger, h, app)

	out := logs.String()
	if !strings.Contains(out, "Stopping processors failed") || !strings.Contains(out, "still running") {
		t.Errorf("expected the stop failure to be logged, got:\n%s", out)
	}
}
