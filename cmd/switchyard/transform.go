package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/railwayapp/switchyard/internal/build"
	"github.com/railwayapp/switchyard/internal/config"
	"github.com/railwayapp/switchyard/internal/environment"
	"github.com/railwayapp/switchyard/internal/export"
	"github.com/railwayapp/switchyard/internal/filesystems"
	"github.com/railwayapp/switchyard/internal/host"
	"github.com/railwayapp/switchyard/internal/logging"
	"github.com/railwayapp/switchyard/internal/manifest"
	"github.com/railwayapp/switchyard/internal/model"
	"github.com/railwayapp/switchyard/internal/transform"
)

var transformCmd = &cobra.Command{
	Use:   "transform [manifest]",
	Short: "Build project services and rewrite them as container services",
	Long: `Transform loads the manifest, runs "dotnet build" for every service defined
by a project file, and replaces each successfully built project with a
container that runs the build output from a bind mount. Services whose build
fails keep their project definition. The resulting application is printed
to stdout.`,
	Args: cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		settings, err := config.Load(viper.GetViper())
		cobra.CheckErr(err)

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		if err := runTransform(ctx, cmd.OutOrStdout(), cmd.ErrOrStderr(), sourceLocation(args), settings, build.NewProcessInvoker()); err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "Transform failed: %v\n", err)
			os.Exit(1)
		}
	},
}

func runTransform(ctx context.Context, stdout, stderr io.Writer, location string, settings config.Settings, invoker build.Invoker) error {
	logger := logging.New(stderr, logging.Options{Level: settings.LogLevel, JSON: settings.LogJSON})

	exporter := export.ForName(settings.Output)
	if exporter == nil {
		return fmt.Errorf("unknown output format %q", settings.Output)
	}

	filesystem, location, err := filesystems.NewFileSystem(location)
	if err != nil {
		return fmt.Errorf("failed to create filesystem: %w", err)
	}

	app, err := manifest.NewLoader(logger, filesystem).Load(ctx, location)
	if err != nil {
		return err
	}

	env, err := environment.ForContext(filesystem, app.ContextDirectory, settings.EnvFile)
	if err != nil {
		return err
	}

	// builds run concurrently when parallelism > 1; serialize the prefixed
	// lines so they do not interleave mid-line
	var mu sync.Mutex
	for name, service := range app.Services {
		unsubscribe := service.Logs.Subscribe(func(line string) {
			mu.Lock()
			defer mu.Unlock()
			fmt.Fprintf(stderr, "[%s] %s\n", name, line)
		})
		defer unsubscribe()
	}

	transformer := transform.New(logger, invoker,
		transform.WithFileSystem(filesystem),
		transform.WithEnvironment(env),
		transform.WithParallelism(settings.Parallelism),
	)

	h := host.New(logger, transformer)
	if err := h.Start(ctx, app); err != nil {
		return err
	}
	defer stopHost(context.WithoutCancel(ctx), logger, h, app)

	output, err := exporter.Export(app)
	if err != nil {
		return fmt.Errorf("%s export failed: %w", exporter.Name(), err)
	}

	_, err = fmt.Fprintf(stdout, "%s\n", output)
	return err
}

// stopHost stops the host's processors; a failure is logged since the
// transformed application has already been produced
func stopHost(ctx context.Context, logger *slog.Logger, h *host.Host, app *model.Application) {
	if err := h.Stop(ctx, app); err != nil {
		logger.Error("Stopping processors failed", "error", err)
	}
}

func init() {
	transformCmd.Flags().Int("parallelism", 1, "number of projects to build at once (0 means no limit)")
	transformCmd.Flags().String("env-file", "", "extra dotenv file used to expand project paths")
	transformCmd.Flags().StringP("output", "o", "json", "output format (json, yaml)")

	cobra.CheckErr(viper.BindPFlag("parallelism", transformCmd.Flags().Lookup("parallelism")))
	cobra.CheckErr(viper.BindPFlag("env_file", transformCmd.Flags().Lookup("env-file")))
	cobra.CheckErr(viper.BindPFlag("output", transformCmd.Flags().Lookup("output")))

	rootCmd.AddCommand(transformCmd)
}
