// Package envs resolves the GRID_CAPACITY_* environment switches once at
// startup.
package envs

import "os"

const prefix = "GRID_CAPACITY_"

// Envs captures the process environment switches.
type Envs struct {
	// PandapowerBackend forces the embedded open-source solver backend
	// even when a vendor solver service URL is configured. The name is
	// kept for compatibility with existing deployments.
	PandapowerBackend bool
	// TreatViolationsAsWarnings raises violation log records from info
	// to warning level.
	TreatViolationsAsWarnings bool
	// Verbose enables debug logging.
	Verbose bool
	// SolverURL is the vendor solver service address; empty selects the
	// embedded backend.
	SolverURL string
	// APIPort overrides the API server listen port.
	APIPort string
}

// Load reads the environment. Boolean switches follow the original
// convention: any non-empty value enables them.
func Load() Envs {
	return Envs{
		PandapowerBackend:         os.Getenv(prefix+"PANDAPOWER_BACKEND") != "",
		TreatViolationsAsWarnings: os.Getenv(prefix+"TREAT_VIOLATIONS_AS_WARNINGS") != "",
		Verbose:                   os.Getenv(prefix+"VERBOSE") != "",
		SolverURL:                 os.Getenv(prefix + "SOLVER_URL"),
		APIPort:                   os.Getenv(prefix + "API_PORT"),
	}
}
