package cli

import (
	"encoding/json"
	"fmt"

	"gopkg.in/yaml.v3"
)

const (
	formatYAML = "yaml"
	formatJSON = "json"
)

// print выводит v в выбранном формате.
func (a *app) print(v any) error {
	switch a.output {
	case formatJSON:
		enc := json.NewEncoder(a.deps.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	default:
		enc := yaml.NewEncoder(a.deps.Stdout)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return fmt.Errorf("encode yaml: %w", err)
		}
		return enc.Close()
	}
}

func (a *app) message(format string, args ...any) error {
	return a.print(map[string]string{"message": fmt.Sprintf(format, args...)})
}
