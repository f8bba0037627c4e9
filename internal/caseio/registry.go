package caseio

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// CaseInfo summarizes a case file found in a case directory.
type CaseInfo struct {
	Name       string    `json:"name"`
	Path       string    `json:"path"`
	SizeBytes  int64     `json:"size_bytes"`
	ModifiedAt time.Time `json:"modified_at"`
	Buses      int       `json:"buses"`
	Branches   int       `json:"branches"`
}

// ListCases scans a directory for case files and returns their summaries
// sorted by name. Files that fail to parse are skipped.
func ListCases(dir string) ([]CaseInfo, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var out []CaseInfo
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		path := filepath.Join(dir, e.Name())
		info, err := e.Info()
		if err != nil {
			continue
		}
		counts, ok := caseCounts(path)
		if !ok {
			continue
		}
		out = append(out, CaseInfo{
			Name:       e.Name(),
			Path:       path,
			SizeBytes:  info.Size(),
			ModifiedAt: info.ModTime().UTC(),
			Buses:      counts.buses,
			Branches:   counts.branches,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

type elementCounts struct {
	buses, branches int
}

// caseCounts decodes only the element headers of a case file.
func caseCounts(path string) (elementCounts, bool) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return elementCounts{}, false
	}
	var header struct {
		Buses    []json.RawMessage `json:"buses"`
		Branches []json.RawMessage `json:"branches"`
	}
	if err := json.Unmarshal(raw, &header); err != nil || len(header.Buses) == 0 {
		return elementCounts{}, false
	}
	return elementCounts{buses: len(header.Buses), branches: len(header.Branches)}, true
}
