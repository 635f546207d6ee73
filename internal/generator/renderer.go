package generator

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Render writes the document into dir in each requested format.
func Render(doc any, dir string, formats []string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	for _, format := range formats {
		switch format {
		case "yaml":
			if err := RenderYAML(doc, dir); err != nil {
				return err
			}
		case "json":
			if err := RenderJSON(doc, dir); err != nil {
				return err
			}
		default:
			return fmt.Errorf("unknown output format %q", format)
		}
	}
	return nil
}

// RenderYAML writes asyncapi.yaml into dir.
func RenderYAML(doc any, dir string) error {
	data, err := yaml.Marshal(doc)
	if err != nil {
		return fmt.Errorf("marshal yaml: %w", err)
	}
	return os.WriteFile(filepath.Join(dir, "asyncapi.yaml"), data, 0o644)
}

// RenderJSON writes asyncapi.json into dir.
func RenderJSON(doc any, dir string) error {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal json: %w", err)
	}
	data = append(data, '\n')
	return os.WriteFile(filepath.Join(dir, "asyncapi.json"), data, 0o644)
}
