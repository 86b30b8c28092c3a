package environment

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/joho/godotenv"
	"github.com/railwayapp/switchyard/internal/filesystems"
)

// DotEnvFile is the file looked up in an application's context directory
const DotEnvFile = ".env"

// LoadDotEnv parses a dotenv file through filesystem. A missing file yields
// an empty map and no error.
func LoadDotEnv(filesystem filesystems.FileSystem, path string) (map[string]string, error) {
	content, err := filesystem.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return map[string]string{}, nil
		}
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	vars, err := godotenv.Unmarshal(string(content))
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return vars, nil
}

// ForContext builds the expansion environment for an application: the
// process environment first, then the context directory's .env, then any
// extra files in the order given.
func ForContext(filesystem filesystems.FileSystem, contextDirectory string, extraFiles ...string) (*Environment, error) {
	sources := []LookupFunc{os.LookupEnv}

	files := append([]string{filesystem.Join(contextDirectory, DotEnvFile)}, extraFiles...)
	for _, file := range files {
		if file == "" {
			continue
		}
		vars, err := LoadDotEnv(filesystem, file)
		if err != nil {
			return nil, err
		}
		if len(vars) > 0 {
			sources = append(sources, FromMap(vars))
		}
	}

	return New(sources...), nil
}
