package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"gridcapacity/internal/envs"
)

// Duration parses YAML duration strings like "30s" or "15m".
type Duration time.Duration

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", raw, err)
	}
	*d = Duration(parsed)
	return nil
}

// Std converts back to a time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// Server is the API server configuration (YAML).
type Server struct {
	Port         int      `yaml:"port"`
	ReadTimeout  Duration `yaml:"read_timeout"`
	WriteTimeout Duration `yaml:"write_timeout"`
	// SessionTTL is how long an idle solver session survives.
	SessionTTL Duration `yaml:"session_ttl"`
	// RateLimit is requests per second per client, with RateBurst extra.
	RateLimit float64 `yaml:"rate_limit"`
	RateBurst int     `yaml:"rate_burst"`
	// CaseDir is where uploadable and listable case files live.
	CaseDir string `yaml:"case_dir"`
	// HistoryDB is the SQLite file recording capacity runs.
	HistoryDB string `yaml:"history_db"`
	// AllowedOrigins for CORS; empty allows any origin.
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// DefaultServer returns the server defaults used when no config is given.
func DefaultServer() Server {
	return Server{
		Port:         8080,
		ReadTimeout:  Duration(30 * time.Second),
		WriteTimeout: Duration(120 * time.Second),
		SessionTTL:   Duration(15 * time.Minute),
		RateLimit:    25,
		RateBurst:    50,
		CaseDir:      "cases",
		HistoryDB:    "gridcapacity.db",
	}
}

// LoadServer reads a YAML server config, filling omitted fields with
// defaults. The GRID_CAPACITY_API_PORT environment variable overrides the
// configured port.
func LoadServer(path string, e envs.Envs) (Server, error) {
	s := DefaultServer()
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return Server{}, fmt.Errorf("read server config: %w", err)
		}
		if err := yaml.Unmarshal(raw, &s); err != nil {
			return Server{}, fmt.Errorf("parse server config: %w", err)
		}
	}
	if e.APIPort != "" {
		var port int
		if _, err := fmt.Sscanf(e.APIPort, "%d", &port); err != nil || port <= 0 {
			return Server{}, fmt.Errorf("invalid GRID_CAPACITY_API_PORT %q", e.APIPort)
		}
		s.Port = port
	}
	if s.Port <= 0 || s.Port > 65535 {
		return Server{}, fmt.Errorf("port %d out of range", s.Port)
	}
	return s, nil
}

// Addr is the listen address for the configured port.
func (s Server) Addr() string { return fmt.Sprintf(":%d", s.Port) }
