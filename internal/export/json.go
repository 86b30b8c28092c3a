package export

import (
	"encoding/json"

	"github.com/railwayapp/switchyard/internal/model"
)

type JSONExporter struct{}

func (e *JSONExporter) Name() string {
	return "json"
}

func (e *JSONExporter) Export(app *model.Application) ([]byte, error) {
	doc, err := NewDocument(app)
	if err != nil {
		return nil, err
	}
	return json.MarshalIndent(doc, "", "  ")
}

func NewJSONExporter() Exporter {
	return &JSONExporter{}
}
