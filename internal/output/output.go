// Package output writes analysis results next to the case file.
package output

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gridcapacity/internal/capacity"
	"gridcapacity/internal/model"
	"gridcapacity/internal/violations"
)

// Folder returns the output directory for a case: the case directory for
// absolute case paths, the working directory otherwise.
func Folder(caseName string) (string, error) {
	if filepath.IsAbs(caseName) {
		info, err := os.Stat(caseName)
		if err == nil && info.IsDir() {
			return caseName, nil
		}
		return filepath.Dir(caseName), nil
	}
	return os.Getwd()
}

// Stem is the case file name without directory and extension, used as the
// output file prefix.
func Stem(caseName string) string {
	base := filepath.Base(caseName)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

func writeJSON(path string, v any) error {
	raw, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal %s: %w", filepath.Base(path), err)
	}
	if err := os.WriteFile(path, raw, 0644); err != nil {
		return fmt.Errorf("write %s: %w", filepath.Base(path), err)
	}
	return nil
}

// WriteHeadroom writes the headroom and the three statistics files.
// It returns the headroom file path for reporting.
func WriteHeadroom(
	caseName string,
	headroom capacity.Headroom,
	violationStats *violations.Stats,
	runStats *capacity.RunStats,
) (string, error) {
	folder, err := Folder(caseName)
	if err != nil {
		return "", err
	}
	prefix := Stem(caseName)
	join := func(suffix string) string {
		return filepath.Join(folder, prefix+suffix)
	}

	headroomPath := join("_headroom.json")
	if err := writeJSON(headroomPath, map[string]any{"headroom": headroom}); err != nil {
		return "", err
	}
	if err := writeJSON(join("_violation_stats.json"), violationStats); err != nil {
		return "", err
	}
	if err := writeJSON(join("_contingency_stats.json"), map[string]any{
		"contingency_stats": runStats.ContingencyEntries(),
	}); err != nil {
		return "", err
	}
	if err := writeJSON(join("_feasibility_stats.json"), map[string]any{
		"feasibility_stats": runStats.FeasibilityEntries(),
	}); err != nil {
		return "", err
	}
	return headroomPath, nil
}

// WriteExportedData dumps the full network beside the case under the
// exported data suffix. It returns the written path.
func WriteExportedData(caseName string, net *model.Network) (string, error) {
	folder, err := Folder(caseName)
	if err != nil {
		return "", err
	}
	path := filepath.Join(folder, Stem(caseName)+"_exported_data.json")
	if err := writeJSON(path, net); err != nil {
		return "", err
	}
	return path, nil
}
