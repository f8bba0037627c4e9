package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"gridcapacity/internal/envs"
)

func TestLoadServerDefaults(t *testing.T) {
	s, err := LoadServer("", envs.Envs{})
	if err != nil {
		t.Fatalf("LoadServer: %v", err)
	}
	if s.Port != 8080 || s.SessionTTL.Std() != 15*time.Minute || s.CaseDir != "cases" {
		t.Errorf("defaults = %+v", s)
	}
	if s.Addr() != ":8080" {
		t.Errorf("Addr() = %q", s.Addr())
	}
}

func TestLoadServerFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "server.yaml")
	raw := "port: 9090\nsession_ttl: 5m\ncase_dir: /srv/cases\nallowed_origins:\n  - https://grid.example.com\n"
	if err := os.WriteFile(path, []byte(raw), 0644); err != nil {
		t.Fatal(err)
	}
	s, err := LoadServer(path, envs.Envs{})
	if err != nil {
		t.Fatalf("LoadServer: %v", err)
	}
	if s.Port != 9090 || s.SessionTTL.Std() != 5*time.Minute || s.CaseDir != "/srv/cases" {
		t.Errorf("loaded = %+v", s)
	}
	if len(s.AllowedOrigins) != 1 || s.AllowedOrigins[0] != "https://grid.example.com" {
		t.Errorf("origins = %v", s.AllowedOrigins)
	}
	// Unset keys keep their defaults.
	if s.RateLimit != 25 || s.HistoryDB != "gridcapacity.db" {
		t.Errorf("defaults lost: %+v", s)
	}
}

func TestLoadServerPortOverride(t *testing.T) {
	s, err := LoadServer("", envs.Envs{APIPort: "7070"})
	if err != nil {
		t.Fatalf("LoadServer: %v", err)
	}
	if s.Port != 7070 {
		t.Errorf("port = %d, want 7070", s.Port)
	}
	if _, err := LoadServer("", envs.Envs{APIPort: "nope"}); err == nil {
		t.Error("expected error for invalid port override")
	}
}
