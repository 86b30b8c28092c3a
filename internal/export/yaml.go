package export

import (
	"gopkg.in/yaml.v3"

	"github.com/railwayapp/switchyard/internal/model"
)

type YAMLExporter struct{}

func (e *YAMLExporter) Name() string {
	return "yaml"
}

func (e *YAMLExporter) Export(app *model.Application) ([]byte, error) {
	doc, err := NewDocument(app)
	if err != nil {
		return nil, err
	}
	return yaml.Marshal(doc)
}

func NewYAMLExporter() Exporter {
	return &YAMLExporter{}
}
