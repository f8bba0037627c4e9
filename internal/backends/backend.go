// Package backends abstracts the power flow engine behind the analysis
// code. Two implementations exist: the embedded solver and a client for a
// remote solver service.
package backends

import (
	"gridcapacity/internal/model"
)

// SolveOptions is passed through to the solver on every run.
type SolveOptions struct {
	// FullNewtonRaphson selects the full Newton-Raphson solver instead of
	// the fast decoupled one.
	FullNewtonRaphson bool
	// Raw carries free-form solver options from the analysis config.
	Raw map[string]any
}

// Backend is the solver session used by violation checks and the capacity
// analyser. Element accessors follow case file order and never fail;
// mutations and solver runs may.
//
// Opening a case resets every prior modification, which is how the
// analyser reloads between probes.
type Backend interface {
	OpenCase(caseName string) error
	CaseName() string

	RunSolver(opts SolveOptions) error
	Converged() bool

	Buses() []model.Bus
	BusVoltagesPU() []float64
	Branches() []model.Branch
	BranchLoadingsPct(rateName string) ([]float64, error)
	Trafos() []model.Trafo
	TrafoLoadingsPct(rateName string) ([]float64, error)
	Trafos3w() []model.Trafo3w
	Trafo3wLoadingsPct(rateName string) ([]float64, error)
	SwingBuses() []model.SwingBus
	SwingBusPowersMW() []float64
	Loads() []model.Load
	Machines() []model.Machine

	AddLoad(busNumber int, loadID string, mva model.PowerMVA) error
	RemoveLoad(busNumber int, loadID string) error
	AddMachine(busNumber int, machineID string, mva model.PowerMVA) error
	RemoveMachine(busNumber int, machineID string) error
	SetBranchStatus(branch model.Branch, inService bool) error
	SetTrafoStatus(trafo model.Trafo, inService bool) error

	Close() error
}

// Counting wraps a backend and counts solver runs for run statistics.
type Counting struct {
	Backend
	runs int
}

// NewCounting wraps the given backend.
func NewCounting(b Backend) *Counting {
	return &Counting{Backend: b}
}

// RunSolver increments the run counter before delegating.
func (c *Counting) RunSolver(opts SolveOptions) error {
	c.runs++
	return c.Backend.RunSolver(opts)
}

// Runs reports how many solver runs were requested since the last reset.
func (c *Counting) Runs() int { return c.runs }

// ResetRuns zeroes the run counter.
func (c *Counting) ResetRuns() { c.runs = 0 }
