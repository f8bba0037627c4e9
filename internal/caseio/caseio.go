// Package caseio loads grid case files and resolves case paths.
package caseio

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"gridcapacity/internal/model"
)

// ResolvePath maps a case name to a file path. Absolute paths are used
// as-is; relative paths resolve against the working directory.
func ResolvePath(caseName string) (string, error) {
	path := caseName
	if !filepath.IsAbs(path) {
		wd, err := os.Getwd()
		if err != nil {
			return "", fmt.Errorf("resolve working directory: %w", err)
		}
		path = filepath.Join(wd, path)
	}
	if _, err := os.Stat(path); err != nil {
		return "", fmt.Errorf("case file %q: %w", caseName, err)
	}
	return path, nil
}

// LoadCase reads and validates a case file. The case name is recorded on
// the network for downstream output naming.
func LoadCase(caseName string) (*model.Network, error) {
	path, err := ResolvePath(caseName)
	if err != nil {
		return nil, err
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read case file: %w", err)
	}
	var net model.Network
	if err := json.Unmarshal(raw, &net); err != nil {
		return nil, fmt.Errorf("parse case file %q: %w", caseName, err)
	}
	if err := net.Validate(); err != nil {
		return nil, fmt.Errorf("invalid case %q: %w", caseName, err)
	}
	net.CaseName = caseName
	return &net, nil
}

// SaveCase writes a network as an indented case file, creating parent
// directories as needed.
func SaveCase(net *model.Network, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create case directory: %w", err)
	}
	raw, err := json.MarshalIndent(net, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal case: %w", err)
	}
	if err := os.WriteFile(path, raw, 0644); err != nil {
		return fmt.Errorf("write case file: %w", err)
	}
	return nil
}
