// Package auto selects a solver backend from the environment.
package auto

import (
	"go.uber.org/zap"

	"gridcapacity/internal/backends"
	"gridcapacity/internal/backends/native"
	"gridcapacity/internal/backends/remote"
	"gridcapacity/internal/envs"
)

// Backend picks the solver backend: the remote client when a solver
// service URL is configured, otherwise the embedded solver. Setting
// GRID_CAPACITY_PANDAPOWER_BACKEND forces the embedded solver even when a
// URL is present.
func Backend(e envs.Envs, log *zap.Logger) backends.Backend {
	if e.SolverURL != "" && !e.PandapowerBackend {
		log.Info("using remote solver service", zap.String("url", e.SolverURL))
		return remote.New(e.SolverURL, log)
	}
	return native.New()
}
