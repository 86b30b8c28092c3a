package transform

import (
	"github.com/railwayapp/switchyard/internal/filesystems"
)

// DefaultTargetFramework is reported when no build output can be found
const DefaultTargetFramework = "netcoreapp3.1"

// GetTargetFramework guesses the target framework moniker a project was
// built for by listing <projectDir>/bin/Debug and taking the first
// subdirectory the file system yields. When several frameworks were built the
// choice follows listing order, which is not guaranteed to be stable.
//
// TODO: query msbuild for the TargetPath instead of listing directories.
func GetTargetFramework(filesystem filesystems.FileSystem, projectFilePath string) string {
	debugOutputPath := filesystem.Join(filesystem.Dir(projectFilePath), "bin", "Debug")
	if !filesystems.DirExists(filesystem, debugOutputPath) {
		return DefaultTargetFramework
	}

	for name := range filesystems.SubDirs(filesystem, debugOutputPath) {
		return name
	}
	return DefaultTargetFramework
}
