package api

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// LoadPlan reads a YAML plan file, sets FilePath, and validates it. Fields
// omitted by the file fall back to their zero values, not to the built-in
// defaults; a plan file fully replaces DefaultPlan.
func LoadPlan(filename string) (*Plan, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("reading plan file: %w", err)
	}

	var p Plan
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("parsing plan file: %w", err)
	}

	absPath, err := filepath.Abs(filename)
	if err != nil {
		return nil, fmt.Errorf("resolving absolute path: %w", err)
	}
	p.FilePath = absPath

	if err := p.Validate(); err != nil {
		return nil, fmt.Errorf("validating plan %s: %w", filename, err)
	}

	return &p, nil
}
