package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/railwayapp/switchyard/internal/config"
	"github.com/railwayapp/switchyard/internal/filesystems"
	"github.com/railwayapp/switchyard/internal/logging"
	"github.com/railwayapp/switchyard/internal/manifest"
	"github.com/railwayapp/switchyard/internal/model"
)

var servicesCmd = &cobra.Command{
	Use:   "services [manifest]",
	Short: "List the services in a manifest without building anything",
	Args:  cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		settings, err := config.Load(viper.GetViper())
		cobra.CheckErr(err)

		if err := runServices(cmd.Context(), cmd.OutOrStdout(), cmd.ErrOrStderr(), sourceLocation(args), settings); err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "Listing services failed: %v\n", err)
			os.Exit(1)
		}
	},
}

func runServices(ctx context.Context, stdout, stderr io.Writer, location string, settings config.Settings) error {
	logger := logging.New(stderr, logging.Options{Level: settings.LogLevel, JSON: settings.LogJSON})

	filesystem, location, err := filesystems.NewFileSystem(location)
	if err != nil {
		return fmt.Errorf("failed to create filesystem: %w", err)
	}

	app, err := manifest.NewLoader(logger, filesystem).Load(ctx, location)
	if err != nil {
		return err
	}

	names := make([]string, 0, len(app.Services))
	for name := range app.Services {
		names = append(names, name)
	}
	sort.Strings(names)

	fmt.Fprintf(stdout, "%s (%s): %d services\n", app.Name, app.ContextDirectory, len(names))
	for _, name := range names {
		fmt.Fprintf(stdout, "  - %s: %s\n", name, describeRunInfo(app.Services[name].Description.RunInfo))
	}
	return nil
}

func describeRunInfo(runInfo model.RunInfo) string {
	switch r := runInfo.(type) {
	case *model.ProjectRunInfo:
		if r.Args == "" {
			return fmt.Sprintf("project %s", r.Project)
		}
		return fmt.Sprintf("project %s (args: %s)", r.Project, r.Args)
	case *model.DockerRunInfo:
		if r.Args == "" {
			return fmt.Sprintf("image %s", r.Image)
		}
		return fmt.Sprintf("image %s (args: %s)", r.Image, r.Args)
	default:
		return "unknown"
	}
}

func init() {
	rootCmd.AddCommand(servicesCmd)
}
