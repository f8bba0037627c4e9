package capacity_test

import (
	"math"
	"strings"
	"testing"

	"go.uber.org/zap"

	"gridcapacity/internal/backends/backendtest"
	"gridcapacity/internal/capacity"
	"gridcapacity/internal/contingency"
	"gridcapacity/internal/model"
	"gridcapacity/internal/violations"
)

func headroomCase() *model.Network {
	return &model.Network{
		CaseName: "headroom",
		SnMVA:    100,
		Buses: []model.Bus{
			{Number: 0, Name: "SWING", VnKV: 110, Type: model.BusTypeSwing},
			{Number: 1, Name: "LOAD", VnKV: 20, Type: model.BusTypeLoad},
		},
		Branches: []model.Branch{
			{FromNumber: 0, ToNumber: 1, ID: "1", RPU: 0.01, XPU: 0.05,
				Rates: model.Rates{Rate1: 200, Rate2: 240}, InService: true},
		},
		Loads: []model.Load{
			{Number: 1, ID: "1", MVA: model.FromPMW(10, 0.9), InService: true},
		},
		SwingBuses: []model.SwingBus{{Number: 0, VmPU: 1.0, MaxPMW: 1000}},
	}
}

// sagAbove scripts an undervoltage at bus 1 once its total load active
// power exceeds the threshold.
func sagAbove(f *backendtest.Fake, thresholdPMW float64) {
	f.Voltages = func(f *backendtest.Fake) []float64 {
		vm := 1.0
		if f.Net.BusLoadMVA(1).P() > thresholdPMW {
			vm = 0.85
		}
		return []float64{1.0, vm}
	}
}

func newTestAnalyser(t *testing.T, fake *backendtest.Fake, p capacity.Params) (*capacity.Analyser, *violations.Checker) {
	t.Helper()
	checker := violations.NewChecker(zap.NewNop(), false)
	analyser, err := capacity.NewAnalyser(fake, checker, zap.NewNop(), p)
	if err != nil {
		t.Fatalf("NewAnalyser: %v", err)
	}
	return analyser, checker
}

func TestBusesHeadroomBisection(t *testing.T) {
	fake := backendtest.New(headroomCase())
	// Base load at bus 1 is 10 MW, so probes above 70 MW sag the bus.
	sagAbove(fake, 80)

	analyser, _ := newTestAnalyser(t, fake, capacity.Params{
		CaseName:            "headroom",
		UpperLoadLimitPMW:   100,
		UpperGenLimitPMW:    80,
		LoadPowerFactor:     0.9,
		GenPowerFactor:      0.9,
		SelectedBusesIDs:    []int{1},
		ContingencyScenario: &contingency.Scenario{},
	})
	headroom, err := analyser.BusesHeadroom()
	if err != nil {
		t.Fatalf("BusesHeadroom: %v", err)
	}
	if len(headroom) != 1 {
		t.Fatalf("got %d entries, want 1", len(headroom))
	}
	h := headroom[0]
	if h.Bus.Number != 1 {
		t.Errorf("bus = %d, want 1", h.Bus.Number)
	}
	if got := h.ActualLoadMVA.P(); got != 10 {
		t.Errorf("actual load P = %g, want 10", got)
	}
	// Bisection from 100 MW with 5 MW tolerance: probes 100, 50, 75,
	// 62.5, 68.75 and 71.875, settling on 68.75 MW.
	if got := h.LoadAvailMVA.P(); got != 68.75 {
		t.Errorf("load headroom P = %g, want 68.75", got)
	}
	wantQ := 68.75 * math.Tan(math.Acos(0.9))
	if math.Abs(h.LoadAvailMVA.Q()-wantQ) > 1e-9 {
		t.Errorf("load headroom Q = %g, want %g", h.LoadAvailMVA.Q(), wantQ)
	}
	if h.LoadLF == nil || !h.LoadLF.V.Has(violations.BusUndervoltage) {
		t.Errorf("limiting factor = %v, want undervoltage", h.LoadLF)
	}
	// No generation at the bus, so the generation probe is skipped.
	if !h.GenAvailMVA.IsZero() || h.GenLF != nil {
		t.Errorf("gen headroom = %v, %v, want zero and nil", h.GenAvailMVA, h.GenLF)
	}
	// One solve per probe: the upper limit plus five bisection steps.
	if got := analyser.PowerFlowCount(); got != 6 {
		t.Errorf("power flows = %d, want 6", got)
	}
}

func TestBusesHeadroomFeasibleUpperLimit(t *testing.T) {
	fake := backendtest.New(headroomCase())

	analyser, _ := newTestAnalyser(t, fake, capacity.Params{
		CaseName:            "headroom",
		UpperLoadLimitPMW:   100,
		UpperGenLimitPMW:    80,
		LoadPowerFactor:     1.0,
		GenPowerFactor:      1.0,
		SelectedBusesIDs:    []int{1},
		ContingencyScenario: &contingency.Scenario{},
	})
	headroom, err := analyser.BusesHeadroom()
	if err != nil {
		t.Fatalf("BusesHeadroom: %v", err)
	}
	h := headroom[0]
	// Nothing ever violates: the upper limit is returned by the first probe.
	if got := h.LoadAvailMVA.P(); got != 100 {
		t.Errorf("load headroom P = %g, want 100", got)
	}
	if h.LoadLF != nil {
		t.Errorf("limiting factor = %v, want nil", h.LoadLF)
	}
	if got := analyser.PowerFlowCount(); got != 1 {
		t.Errorf("power flows = %d, want 1", got)
	}
}

func TestBusesHeadroomGenProbe(t *testing.T) {
	net := headroomCase()
	net.Machines = []model.Machine{
		{Number: 1, ID: "G1", MVA: model.FromPMW(20, 1), InService: true},
	}
	fake := backendtest.New(net)

	analyser, _ := newTestAnalyser(t, fake, capacity.Params{
		CaseName:          "headroom",
		UpperLoadLimitPMW: 100,
		UpperGenLimitPMW:  40,
		LoadPowerFactor:   1.0,
		GenPowerFactor:    1.0,
		SelectedBusesIDs:  []int{1},
	})
	headroom, err := analyser.BusesHeadroom()
	if err != nil {
		t.Fatalf("BusesHeadroom: %v", err)
	}
	h := headroom[0]
	if got := h.ActualGenMVA.P(); got != 20 {
		t.Errorf("actual gen P = %g, want 20", got)
	}
	// The bus generates and has load headroom: the gen side is probed too.
	if got := h.GenAvailMVA.P(); got != 40 {
		t.Errorf("gen headroom P = %g, want 40", got)
	}
}

func TestBaseCaseMustConverge(t *testing.T) {
	fake := backendtest.New(headroomCase())
	fake.Diverges = func(f *backendtest.Fake) bool { return true }

	checker := violations.NewChecker(zap.NewNop(), false)
	_, err := capacity.NewAnalyser(fake, checker, zap.NewNop(), capacity.Params{
		CaseName:          "headroom",
		UpperLoadLimitPMW: 100,
		UpperGenLimitPMW:  80,
	})
	if err == nil {
		t.Fatal("expected base case error")
	}
	if !strings.Contains(err.Error(), "NOT_CONVERGED") {
		t.Errorf("error = %v, want NOT_CONVERGED mention", err)
	}
}

func TestRunStatsRecordsInfeasibleProbes(t *testing.T) {
	fake := backendtest.New(headroomCase())
	sagAbove(fake, 80)

	analyser, _ := newTestAnalyser(t, fake, capacity.Params{
		CaseName:          "headroom",
		UpperLoadLimitPMW: 100,
		UpperGenLimitPMW:  80,
		LoadPowerFactor:   0.9,
		GenPowerFactor:    0.9,
		SelectedBusesIDs:  []int{1},
	})
	if _, err := analyser.BusesHeadroom(); err != nil {
		t.Fatalf("BusesHeadroom: %v", err)
	}

	entries := analyser.Stats().FeasibilityEntries()
	if len(entries) != 1 {
		t.Fatalf("got %d feasibility entries, want 1", len(entries))
	}
	entry := entries[0]
	if entry.Bus.Number != 1 {
		t.Errorf("entry bus = %d, want 1", entry.Bus.Number)
	}
	// The infeasible probes in bisection order: 100, 75 and 71.875 MW.
	wantP := []float64{100, 75, 71.875}
	if len(entry.UnfeasibleConditions) != len(wantP) {
		t.Fatalf("got %d conditions, want %d", len(entry.UnfeasibleConditions), len(wantP))
	}
	for i, cond := range entry.UnfeasibleConditions {
		if cond.PowerMVA.P() != wantP[i] {
			t.Errorf("condition %d P = %g, want %g", i, cond.PowerMVA.P(), wantP[i])
		}
	}
}

func TestConnectionScenarioAppliedOnReload(t *testing.T) {
	fake := backendtest.New(headroomCase())
	pf := 0.95
	scenario := capacity.ConnectionScenario{
		"1": {Load: &capacity.ConnectionPower{PMW: 5, PF: &pf}},
	}

	analyser, _ := newTestAnalyser(t, fake, capacity.Params{
		CaseName:           "headroom",
		UpperLoadLimitPMW:  100,
		UpperGenLimitPMW:   80,
		ConnectionScenario: scenario,
		SelectedBusesIDs:   []int{1},
	})
	headroom, err := analyser.BusesHeadroom()
	if err != nil {
		t.Fatalf("BusesHeadroom: %v", err)
	}
	// The connected load counts as actual load at the bus.
	if got := headroom[0].ActualLoadMVA.P(); got != 15 {
		t.Errorf("actual load P = %g, want 15 with connection scenario", got)
	}
}

func TestConnectionScenarioRejectsBadBusKey(t *testing.T) {
	fake := backendtest.New(headroomCase())
	checker := violations.NewChecker(zap.NewNop(), false)
	_, err := capacity.NewAnalyser(fake, checker, zap.NewNop(), capacity.Params{
		CaseName:           "headroom",
		UpperLoadLimitPMW:  100,
		UpperGenLimitPMW:   80,
		ConnectionScenario: capacity.ConnectionScenario{"abc": {}},
	})
	if err == nil {
		t.Fatal("expected error for non-numeric bus key")
	}
}
