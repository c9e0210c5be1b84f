package main

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// loadVars reads the framework-variable file, a flat YAML mapping of
// variable names to values:
//
//	storedsafe_server: safe.example.com
//	storedsafe_skip_verify: true
//
// No file configured means no framework variables, which is fine; the
// environment and the rc file remain as configuration sources.
func loadVars(path string) (map[string]any, error) {
	if path == "" {
		return nil, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read vars file %s: %w", path, err)
	}

	vars := make(map[string]any)
	if err := yaml.Unmarshal(data, &vars); err != nil {
		return nil, fmt.Errorf("parse vars file %s: %w", path, err)
	}
	return vars, nil
}
