package config

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/xeipuuv/gojsonschema"
)

//go:embed schema.json
var fileSchemaJSON []byte

var (
	fileSchemaLoader     gojsonschema.JSONLoader
	fileSchemaLoaderErr  error
	fileSchemaLoaderOnce sync.Once
)

// FileSchema returns the JSON schema that config files are validated against.
func FileSchema() (map[string]any, error) {
	var schemaMap map[string]any
	if err := json.Unmarshal(fileSchemaJSON, &schemaMap); err != nil {
		return nil, fmt.Errorf("config: decode embedded schema: %w", err)
	}
	return schemaMap, nil
}

// SchemaError lists every schema violation found in a config file.
type SchemaError struct {
	Issues []string
}

func (e *SchemaError) Error() string {
	if len(e.Issues) == 0 {
		return "config file failed schema validation"
	}
	return "config file failed schema validation: " + strings.Join(e.Issues, "; ")
}

func validateAgainstSchema(raw []byte) error {
	loader, err := loadFileSchema()
	if err != nil {
		return err
	}

	result, err := gojsonschema.Validate(loader, gojsonschema.NewBytesLoader(raw))
	if err != nil {
		return fmt.Errorf("config: schema validation error: %w", err)
	}
	if result.Valid() {
		return nil
	}

	issues := make([]string, 0, len(result.Errors()))
	for _, desc := range result.Errors() {
		issues = append(issues, desc.String())
	}
	return &SchemaError{Issues: issues}
}

func loadFileSchema() (gojsonschema.JSONLoader, error) {
	fileSchemaLoaderOnce.Do(func() {
		schemaMap, err := FileSchema()
		if err != nil {
			fileSchemaLoaderErr = err
			return
		}
		fileSchemaLoader = gojsonschema.NewGoLoader(schemaMap)
	})
	if fileSchemaLoaderErr != nil {
		return nil, fileSchemaLoaderErr
	}
	return fileSchemaLoader, nil
}
