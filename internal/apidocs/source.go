package apidocs

import (
	"encoding/json"
	"fmt"

	"github.com/swaggo/swag"
)

// Source supplies the full generated schema. Every call returns a document
// the caller may keep; the filter never writes back to the source.
type Source interface {
	Schema() (map[string]any, error)
}

// SwagSource reads the document registered with swag by the generated
// docs package.
type SwagSource struct {
	// InstanceName selects a non-default swag registration.
	InstanceName string
}

// Schema implements Source.
func (s SwagSource) Schema() (map[string]any, error) {
	var names []string
	if s.InstanceName != "" {
		names = append(names, s.InstanceName)
	}

	doc, err := swag.ReadDoc(names...)
	if err != nil {
		return nil, fmt.Errorf("read swagger doc: %w", err)
	}

	var schema map[string]any
	if err := json.Unmarshal([]byte(doc), &schema); err != nil {
		return nil, fmt.Errorf("decode swagger doc: %w", err)
	}
	return schema, nil
}

// StaticSource serves a fixed document.
type StaticSource map[string]any

// Schema implements Source.
func (s StaticSource) Schema() (map[string]any, error) {
	return cloneMap(s), nil
}
