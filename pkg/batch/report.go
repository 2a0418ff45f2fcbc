package batch

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// MarshalReport renders the summary as YAML.
func MarshalReport(s *Summary) ([]byte, error) {
	data, err := yaml.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("marshaling report: %w", err)
	}
	return data, nil
}

// WriteReport writes the summary as YAML to path.
func WriteReport(path string, s *Summary) error {
	data, err := MarshalReport(s)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing report %s: %w", path, err)
	}
	return nil
}

// ReadReport loads a report written by WriteReport.
func ReadReport(path string) (*Summary, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading report %s: %w", path, err)
	}
	var s Summary
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parsing report %s: %w", path, err)
	}
	return &s, nil
}
