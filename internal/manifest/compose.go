package manifest

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/compose-spec/compose-go/v2/cli"
	"github.com/compose-spec/compose-go/v2/types"

	"github.com/railwayapp/switchyard/internal/filesystems"
	"github.com/railwayapp/switchyard/internal/model"
)

// ComposeDecoder imports docker-compose services that name an image as
// container services. Services that only declare a build section have no
// project file to transform and are skipped.
type ComposeDecoder struct {
	logger *slog.Logger
}

func NewComposeDecoder(logger *slog.Logger) *ComposeDecoder {
	return &ComposeDecoder{logger: logger}
}

func (d *ComposeDecoder) CanDecode(path string) bool {
	base := strings.ToLower(filepath.Base(path))
	if !hasExtension(base, ".yaml", ".yml") {
		return false
	}
	return strings.HasPrefix(base, "docker-compose") || strings.HasPrefix(base, "compose")
}

// Decode reads the compose file from the local disk; compose-go resolves
// includes and env files itself, so filesystem is not consulted
func (d *ComposeDecoder) Decode(ctx context.Context, filesystem filesystems.FileSystem, path string) (Fragment, error) {
	workingDir := filepath.Dir(path)

	options, err := cli.NewProjectOptions(
		[]string{path},
		cli.WithOsEnv,
		cli.WithWorkingDirectory(workingDir),
		cli.WithName(composeProjectName(workingDir)),
	)
	if err != nil {
		return Fragment{}, fmt.Errorf("failed to create project options: %w", err)
	}

	project, err := options.LoadProject(ctx)
	if err != nil {
		return Fragment{}, fmt.Errorf("failed to load compose project: %w", err)
	}

	fragment := Fragment{Name: project.Name}
	for _, name := range project.ServiceNames() {
		composeService := project.Services[name]
		if composeService.Image == "" {
			d.logger.Warn("Skipping compose service without an image", "service", name, "path", path)
			continue
		}
		fragment.Services = append(fragment.Services, &model.ServiceDescription{
			Name:    name,
			RunInfo: d.convertService(workingDir, composeService),
		})
	}

	return fragment, nil
}

func (d *ComposeDecoder) convertService(workingDir string, composeService types.ServiceConfig) *model.DockerRunInfo {
	runInfo := model.NewDockerRunInfo(composeService.Image, joinArgs(composeService.Command))
	runInfo.WorkingDirectory = composeService.WorkingDir

	for _, volume := range composeService.Volumes {
		if volume.Type != types.VolumeTypeBind || volume.Source == "" {
			d.logger.Debug("Ignoring non-bind volume", "service", composeService.Name, "target", volume.Target)
			continue
		}
		runInfo.VolumeMappings[hostPath(workingDir, volume.Source)] = volume.Target
	}

	return runInfo
}

// joinArgs renders a command as one line, quoting words that contain
// whitespace
func joinArgs(args []string) string {
	words := make([]string, 0, len(args))
	for _, arg := range args {
		if arg == "" || strings.ContainsAny(arg, " \t\n\"") {
			arg = strconv.Quote(arg)
		}
		words = append(words, arg)
	}
	return strings.Join(words, " ")
}

// composeProjectName follows compose's own normalization: lowercase, only
// [a-z0-9_-], starting with a letter or digit
func composeProjectName(dir string) string {
	name := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '_', r == '-':
			return r
		case r >= 'A' && r <= 'Z':
			return r + ('a' - 'A')
		default:
			return -1
		}
	}, filepath.Base(dir))
	name = strings.TrimLeft(name, "_-")
	if name == "" {
		return "switchyard"
	}
	return name
}
