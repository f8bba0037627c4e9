// Package backendtest provides a scripted backend for tests. Solver
// behavior is driven by small hook functions so a test can state its
// feasibility rule directly instead of constructing a solvable case.
package backendtest

import (
	"fmt"

	"gridcapacity/internal/backends"
	"gridcapacity/internal/model"
)

// Fake implements backends.Backend over an in-memory network. All hooks
// are optional: by default every solve converges with flat voltages and
// zero loadings.
type Fake struct {
	pristine *model.Network
	Net      *model.Network

	// Diverges makes the next solves report non-convergence.
	Diverges func(f *Fake) bool
	// Voltages returns the per-bus voltages of a solved case.
	Voltages func(f *Fake) []float64
	// BranchLoadings returns per-branch loading percentages.
	BranchLoadings func(f *Fake, rate string) []float64
	// TrafoLoadings returns per-trafo loading percentages.
	TrafoLoadings func(f *Fake, rate string) []float64
	// SwingPowers returns the per-swing-bus active powers in MW.
	SwingPowers func(f *Fake) []float64

	Solves int
	Opens  int

	solved bool
}

var _ backends.Backend = (*Fake)(nil)

// New builds a fake around a deep copy of net.
func New(net *model.Network) *Fake {
	return &Fake{pristine: net.Clone(), Net: net.Clone()}
}

func (f *Fake) OpenCase(caseName string) error {
	f.Opens++
	f.Net = f.pristine.Clone()
	f.solved = false
	return nil
}

func (f *Fake) CaseName() string { return f.pristine.CaseName }

func (f *Fake) RunSolver(opts backends.SolveOptions) error {
	f.Solves++
	f.solved = true
	return nil
}

func (f *Fake) Converged() bool {
	if !f.solved {
		return false
	}
	if f.Diverges != nil && f.Diverges(f) {
		return false
	}
	return true
}

func (f *Fake) Buses() []model.Bus { return f.Net.Buses }

func (f *Fake) BusVoltagesPU() []float64 {
	if f.Voltages != nil {
		return f.Voltages(f)
	}
	out := make([]float64, len(f.Net.Buses))
	for i := range out {
		out[i] = 1.0
	}
	return out
}

func (f *Fake) Branches() []model.Branch { return f.Net.Branches }

func (f *Fake) BranchLoadingsPct(rate string) ([]float64, error) {
	if f.BranchLoadings != nil {
		return f.BranchLoadings(f, rate), nil
	}
	return make([]float64, len(f.Net.Branches)), nil
}

func (f *Fake) Trafos() []model.Trafo { return f.Net.Trafos }

func (f *Fake) TrafoLoadingsPct(rate string) ([]float64, error) {
	if f.TrafoLoadings != nil {
		return f.TrafoLoadings(f, rate), nil
	}
	return make([]float64, len(f.Net.Trafos)), nil
}

func (f *Fake) Trafos3w() []model.Trafo3w { return f.Net.Trafos3w }

func (f *Fake) Trafo3wLoadingsPct(rate string) ([]float64, error) {
	return make([]float64, len(f.Net.Trafos3w)), nil
}

func (f *Fake) SwingBuses() []model.SwingBus { return f.Net.SwingBuses }

func (f *Fake) SwingBusPowersMW() []float64 {
	if f.SwingPowers != nil {
		return f.SwingPowers(f)
	}
	return make([]float64, len(f.Net.SwingBuses))
}

func (f *Fake) Loads() []model.Load { return f.Net.Loads }

func (f *Fake) Machines() []model.Machine { return f.Net.Machines }

func (f *Fake) AddLoad(busNumber int, loadID string, mva model.PowerMVA) error {
	f.solved = false
	return f.Net.AddLoad(busNumber, loadID, mva)
}

func (f *Fake) RemoveLoad(busNumber int, loadID string) error {
	f.solved = false
	return f.Net.RemoveLoad(busNumber, loadID)
}

func (f *Fake) AddMachine(busNumber int, machineID string, mva model.PowerMVA) error {
	f.solved = false
	return f.Net.AddMachine(busNumber, machineID, mva)
}

func (f *Fake) RemoveMachine(busNumber int, machineID string) error {
	f.solved = false
	return f.Net.RemoveMachine(busNumber, machineID)
}

func (f *Fake) SetBranchStatus(branch model.Branch, inService bool) error {
	f.solved = false
	return f.Net.SetBranchStatus(branch.FromNumber, branch.ToNumber, branch.ID, inService)
}

func (f *Fake) SetTrafoStatus(trafo model.Trafo, inService bool) error {
	f.solved = false
	return f.Net.SetTrafoStatus(trafo.FromNumber, trafo.ToNumber, trafo.ID, inService)
}

func (f *Fake) Close() error { return nil }

// BranchInService reports whether the branch with the given key is in
// service, for scripting outage-dependent loadings.
func (f *Fake) BranchInService(key string) bool {
	for _, br := range f.Net.Branches {
		if br.Key() == key {
			return br.InService
		}
	}
	panic(fmt.Sprintf("unknown branch %q", key))
}
