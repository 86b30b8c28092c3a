package transform

// DefaultContainerImage runs every project regardless of target framework
const DefaultContainerImage = "mcr.microsoft.com/dotnet/core/sdk:3.1-buster"

// ImageSelector maps a target framework moniker to a container image
type ImageSelector func(targetFramework string) string

// DetermineContainerImage is the ImageSelector used unless one is configured.
// It ignores the moniker.
func DetermineContainerImage(targetFramework string) string {
	return DefaultContainerImage
}
