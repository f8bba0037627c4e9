package caseio

import (
	"os"
	"path/filepath"
	"testing"

	"gridcapacity/internal/model"
)

func sampleNetwork() *model.Network {
	return &model.Network{
		SnMVA: 100,
		Buses: []model.Bus{
			{Number: 0, Name: "SWING", VnKV: 110, Type: model.BusTypeSwing},
			{Number: 1, Name: "LOAD", VnKV: 20, Type: model.BusTypeLoad},
		},
		Branches: []model.Branch{
			{FromNumber: 0, ToNumber: 1, ID: "1", RPU: 0.01, XPU: 0.05,
				Rates: model.Rates{Rate1: 50}, InService: true},
		},
		Loads: []model.Load{
			{Number: 1, ID: "1", MVA: model.FromPMW(10, 0.9), InService: true},
		},
		SwingBuses: []model.SwingBus{{Number: 0, VmPU: 1.0, MaxPMW: 1000}},
	}
}

func TestSaveAndLoadCase(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sub", "sample.json")
	if err := SaveCase(sampleNetwork(), path); err != nil {
		t.Fatalf("SaveCase: %v", err)
	}

	net, err := LoadCase(path)
	if err != nil {
		t.Fatalf("LoadCase: %v", err)
	}
	if net.CaseName != path {
		t.Errorf("CaseName = %q, want %q", net.CaseName, path)
	}
	if len(net.Buses) != 2 || len(net.Branches) != 1 || len(net.Loads) != 1 {
		t.Errorf("unexpected element counts: %d buses, %d branches, %d loads",
			len(net.Buses), len(net.Branches), len(net.Loads))
	}
	if got := net.Loads[0].MVA; got != model.FromPMW(10, 0.9) {
		t.Errorf("load power = %v", got)
	}
}

func TestLoadCaseRejectsInvalid(t *testing.T) {
	dir := t.TempDir()

	path := filepath.Join(dir, "broken.json")
	if err := os.WriteFile(path, []byte("{not json"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadCase(path); err == nil {
		t.Error("expected parse error")
	}

	noSwing := sampleNetwork()
	noSwing.SwingBuses = nil
	path = filepath.Join(dir, "noswing.json")
	if err := SaveCase(noSwing, path); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadCase(path); err == nil {
		t.Error("expected validation error")
	}

	if _, err := LoadCase(filepath.Join(dir, "missing.json")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestResolvePath(t *testing.T) {
	dir := t.TempDir()
	abs := filepath.Join(dir, "case.json")
	if err := os.WriteFile(abs, []byte("{}"), 0644); err != nil {
		t.Fatal(err)
	}
	got, err := ResolvePath(abs)
	if err != nil {
		t.Fatalf("ResolvePath: %v", err)
	}
	if got != abs {
		t.Errorf("ResolvePath = %q, want %q", got, abs)
	}
	if _, err := ResolvePath(filepath.Join(dir, "nope.json")); err == nil {
		t.Error("expected error for missing case")
	}
}

func TestListCases(t *testing.T) {
	dir := t.TempDir()
	if err := SaveCase(sampleNetwork(), filepath.Join(dir, "b.json")); err != nil {
		t.Fatal(err)
	}
	if err := SaveCase(sampleNetwork(), filepath.Join(dir, "a.json")); err != nil {
		t.Fatal(err)
	}
	// Not a case file: must be skipped.
	if err := os.WriteFile(filepath.Join(dir, "readme.txt"), []byte("hi"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "junk.json"), []byte("[]"), 0644); err != nil {
		t.Fatal(err)
	}

	cases, err := ListCases(dir)
	if err != nil {
		t.Fatalf("ListCases: %v", err)
	}
	if len(cases) != 2 {
		t.Fatalf("got %d cases, want 2", len(cases))
	}
	if cases[0].Name != "a.json" || cases[1].Name != "b.json" {
		t.Errorf("cases not sorted by name: %q, %q", cases[0].Name, cases[1].Name)
	}
	if cases[0].Buses != 2 || cases[0].Branches != 1 {
		t.Errorf("counts = %d buses, %d branches", cases[0].Buses, cases[0].Branches)
	}
}
