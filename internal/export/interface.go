package export

import "github.com/railwayapp/switchyard/internal/model"

// Exporter defines the interface for exporting applications to various formats
type Exporter interface {
	// Export renders the application's current service descriptions
	Export(app *model.Application) ([]byte, error)

	// Name returns the exporter name (e.g., "json", "yaml")
	Name() string
}

// ForName returns the exporter registered under name, or nil
func ForName(name string) Exporter {
	switch name {
	case "json":
		return NewJSONExporter()
	case "yaml", "yml":
		return NewYAMLExporter()
	default:
		return nil
	}
}
