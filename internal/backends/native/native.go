// Package native runs power flows with the embedded solver.
package native

import (
	"fmt"

	"gridcapacity/internal/backends"
	"gridcapacity/internal/caseio"
	"gridcapacity/internal/model"
	"gridcapacity/internal/powerflow"
)

// Backend solves cases in-process. It keeps a pristine copy of the opened
// network so reopening the same case restores the unmodified state without
// touching the filesystem again.
type Backend struct {
	caseName string
	pristine *model.Network
	net      *model.Network
	results  *powerflow.Results
}

var _ backends.Backend = (*Backend)(nil)

// New returns a backend with no case open.
func New() *Backend {
	return &Backend{}
}

// OpenCase loads a case file, or restores the pristine in-memory network
// when the same case is reopened.
func (b *Backend) OpenCase(caseName string) error {
	if b.pristine != nil && caseName == b.caseName {
		b.net = b.pristine.Clone()
		b.results = nil
		return nil
	}
	net, err := caseio.LoadCase(caseName)
	if err != nil {
		return err
	}
	b.adopt(caseName, net)
	return nil
}

// OpenNetwork installs an in-memory network under the given case name.
// The API server uses this for uploaded cases.
func (b *Backend) OpenNetwork(caseName string, net *model.Network) {
	clone := net.Clone()
	clone.CaseName = caseName
	b.adopt(caseName, clone)
}

func (b *Backend) adopt(caseName string, net *model.Network) {
	b.caseName = caseName
	b.pristine = net
	b.net = net.Clone()
	b.results = nil
}

// CaseName reports the open case name.
func (b *Backend) CaseName() string { return b.caseName }

// Network exposes the working network for output export.
func (b *Backend) Network() *model.Network { return b.net }

// LastResults exposes the full solved state, nil before the first run.
func (b *Backend) LastResults() *powerflow.Results { return b.results }

// RunSolver runs a power flow over the working network. Non-convergence
// is reported through Converged, not as an error.
func (b *Backend) RunSolver(opts backends.SolveOptions) error {
	if b.net == nil {
		return fmt.Errorf("no case open")
	}
	pfOpts := powerflow.Options{FullNewtonRaphson: opts.FullNewtonRaphson}.Merge(opts.Raw)
	res, err := powerflow.Solve(b.net, pfOpts)
	if err != nil {
		return fmt.Errorf("run solver: %w", err)
	}
	b.results = res
	return nil
}

// Converged reports whether the last solver run converged. It is false
// before the first run and after any network modification.
func (b *Backend) Converged() bool {
	return b.results != nil && b.results.Converged
}

func (b *Backend) Buses() []model.Bus { return b.net.Buses }

func (b *Backend) BusVoltagesPU() []float64 {
	if b.results == nil {
		return nil
	}
	return b.results.BusVmPU
}

func (b *Backend) Branches() []model.Branch { return b.net.Branches }

func (b *Backend) BranchLoadingsPct(rateName string) ([]float64, error) {
	if b.results == nil {
		return nil, fmt.Errorf("no solver results")
	}
	return b.results.BranchLoadingsPct(b.net, rateName)
}

func (b *Backend) Trafos() []model.Trafo { return b.net.Trafos }

func (b *Backend) TrafoLoadingsPct(rateName string) ([]float64, error) {
	if b.results == nil {
		return nil, fmt.Errorf("no solver results")
	}
	return b.results.TrafoLoadingsPct(b.net, rateName)
}

func (b *Backend) Trafos3w() []model.Trafo3w { return b.net.Trafos3w }

func (b *Backend) Trafo3wLoadingsPct(rateName string) ([]float64, error) {
	if b.results == nil {
		return nil, fmt.Errorf("no solver results")
	}
	return b.results.Trafo3wLoadingsPct(b.net, rateName)
}

func (b *Backend) SwingBuses() []model.SwingBus { return b.net.SwingBuses }

func (b *Backend) SwingBusPowersMW() []float64 {
	if b.results == nil {
		return nil
	}
	return b.results.SwingPMW
}

func (b *Backend) Loads() []model.Load { return b.net.Loads }

func (b *Backend) Machines() []model.Machine { return b.net.Machines }

func (b *Backend) AddLoad(busNumber int, loadID string, mva model.PowerMVA) error {
	b.results = nil
	return b.net.AddLoad(busNumber, loadID, mva)
}

func (b *Backend) RemoveLoad(busNumber int, loadID string) error {
	b.results = nil
	return b.net.RemoveLoad(busNumber, loadID)
}

func (b *Backend) AddMachine(busNumber int, machineID string, mva model.PowerMVA) error {
	b.results = nil
	return b.net.AddMachine(busNumber, machineID, mva)
}

func (b *Backend) RemoveMachine(busNumber int, machineID string) error {
	b.results = nil
	return b.net.RemoveMachine(busNumber, machineID)
}

func (b *Backend) SetBranchStatus(branch model.Branch, inService bool) error {
	b.results = nil
	return b.net.SetBranchStatus(branch.FromNumber, branch.ToNumber, branch.ID, inService)
}

func (b *Backend) SetTrafoStatus(trafo model.Trafo, inService bool) error {
	b.results = nil
	return b.net.SetTrafoStatus(trafo.FromNumber, trafo.ToNumber, trafo.ID, inService)
}

// Close releases the open case.
func (b *Backend) Close() error {
	b.caseName = ""
	b.pristine = nil
	b.net = nil
	b.results = nil
	return nil
}
