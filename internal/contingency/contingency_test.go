package contingency_test

import (
	"testing"

	"go.uber.org/zap"

	"gridcapacity/internal/backends/backendtest"
	"gridcapacity/internal/contingency"
	"gridcapacity/internal/model"
	"gridcapacity/internal/violations"
)

// doubleCircuitCase has two parallel circuits and a transformer. Losing
// circuit "2" overloads circuit "1"; the other outages stay clean.
func doubleCircuitCase() *model.Network {
	return &model.Network{
		CaseName: "double-circuit",
		SnMVA:    100,
		Buses: []model.Bus{
			{Number: 0, Name: "SWING", VnKV: 110, Type: model.BusTypeSwing},
			{Number: 1, Name: "MID", VnKV: 110, Type: model.BusTypeLoad},
			{Number: 2, Name: "LOAD", VnKV: 20, Type: model.BusTypeLoad},
		},
		Branches: []model.Branch{
			{FromNumber: 0, ToNumber: 1, ID: "1", RPU: 0.01, XPU: 0.05,
				Rates: model.Rates{Rate1: 50, Rate2: 60}, InService: true},
			{FromNumber: 0, ToNumber: 1, ID: "2", RPU: 0.01, XPU: 0.05,
				Rates: model.Rates{Rate1: 50, Rate2: 60}, InService: true},
		},
		Trafos: []model.Trafo{
			{FromNumber: 1, ToNumber: 2, ID: "T1", RPU: 0.005, XPU: 0.1,
				Rates: model.Rates{Rate1: 63}, InService: true},
		},
		Loads: []model.Load{
			{Number: 2, ID: "1", MVA: model.FromPMW(40, 0.9), InService: true},
		},
		SwingBuses: []model.SwingBus{{Number: 0, VmPU: 1.0, MaxPMW: 1000}},
	}
}

// overloadOnSingleCircuit scripts the fake: with one 0-1 circuit out the
// remaining circuit exceeds its short-term rating.
func overloadOnSingleCircuit(f *backendtest.Fake) {
	f.BranchLoadings = func(f *backendtest.Fake, rate string) []float64 {
		out := make([]float64, len(f.Net.Branches))
		oneOut := !f.BranchInService("0-1-1") || !f.BranchInService("0-1-2")
		for i, br := range f.Net.Branches {
			if !br.InService {
				continue
			}
			if oneOut {
				out[i] = 130
			} else {
				out[i] = 65
			}
		}
		return out
	}
}

func TestBuildScenarioKeepsCleanOutages(t *testing.T) {
	fake := backendtest.New(doubleCircuitCase())
	checker := violations.NewChecker(zap.NewNop(), false)
	opts := contingency.Options{Limits: violations.ContingencyLimits()}

	scenario, err := contingency.BuildScenario(fake, checker, opts)
	if err != nil {
		t.Fatalf("BuildScenario: %v", err)
	}
	// All outages are clean without a scripted overload.
	if len(scenario.Branches) != 2 || len(scenario.Trafos) != 1 {
		t.Errorf("scenario = %d branches, %d trafos, want 2 and 1",
			len(scenario.Branches), len(scenario.Trafos))
	}

	fake = backendtest.New(doubleCircuitCase())
	overloadOnSingleCircuit(fake)
	scenario, err = contingency.BuildScenario(fake, checker, opts)
	if err != nil {
		t.Fatalf("BuildScenario: %v", err)
	}
	// Both circuit outages overload the survivor: neither is kept.
	if len(scenario.Branches) != 0 {
		t.Errorf("critical branches kept in scenario: %v", scenario.Branches)
	}
	if len(scenario.Trafos) != 1 {
		t.Errorf("trafo outage dropped: %v", scenario.Trafos)
	}
	// Every outage must have been restored.
	for _, br := range fake.Net.Branches {
		if !br.InService {
			t.Errorf("branch %s left out of service", br.Key())
		}
	}
}

func TestLimitingFactorUnder(t *testing.T) {
	fake := backendtest.New(doubleCircuitCase())
	checker := violations.NewChecker(zap.NewNop(), false)
	opts := contingency.Options{Limits: violations.ContingencyLimits()}
	scenario := contingency.Scenario{
		Branches: fake.Net.Branches,
		Trafos:   fake.Net.Trafos,
	}

	lf, err := contingency.LimitingFactorUnder(fake, checker, scenario, opts)
	if err != nil {
		t.Fatalf("LimitingFactorUnder: %v", err)
	}
	if lf.V != violations.NoViolations || lf.Element != nil {
		t.Errorf("clean case limiting factor = %s", lf)
	}

	overloadOnSingleCircuit(fake)
	lf, err = contingency.LimitingFactorUnder(fake, checker, scenario, opts)
	if err != nil {
		t.Fatalf("LimitingFactorUnder: %v", err)
	}
	if !lf.V.Has(violations.BranchLoading) {
		t.Errorf("violations = %s, want BRANCH_LOADING", lf.V)
	}
	// The first scenario outage already triggers the overload.
	branch, ok := lf.Element.(model.Branch)
	if !ok || branch.Key() != "0-1-1" {
		t.Errorf("limiting element = %v, want branch 0-1-1", lf.Element)
	}
	for _, br := range fake.Net.Branches {
		if !br.InService {
			t.Errorf("branch %s left out of service", br.Key())
		}
	}
}

func TestLimitingFactorEmptyScenarioSkipsSolves(t *testing.T) {
	fake := backendtest.New(doubleCircuitCase())
	checker := violations.NewChecker(zap.NewNop(), false)
	opts := contingency.Options{Limits: violations.ContingencyLimits()}

	lf, err := contingency.LimitingFactorUnder(fake, checker, contingency.Scenario{}, opts)
	if err != nil {
		t.Fatalf("LimitingFactorUnder: %v", err)
	}
	if lf.V != violations.NoViolations || lf.Element != nil {
		t.Errorf("empty scenario limiting factor = %s", lf)
	}
	if fake.Solves != 0 {
		t.Errorf("empty scenario ran %d solves, want 0", fake.Solves)
	}
}

func TestLimitingFactorSkipsDisabledElements(t *testing.T) {
	fake := backendtest.New(doubleCircuitCase())
	overloadOnSingleCircuit(fake)
	if err := fake.Net.SetBranchStatus(0, 1, "2", false); err != nil {
		t.Fatal(err)
	}
	checker := violations.NewChecker(zap.NewNop(), false)
	opts := contingency.Options{Limits: violations.ContingencyLimits()}
	// Only the already-disabled circuit is in the scenario: nothing to do.
	scenario := contingency.Scenario{Branches: []model.Branch{fake.Net.Branches[1]}}

	lf, err := contingency.LimitingFactorUnder(fake, checker, scenario, opts)
	if err != nil {
		t.Fatalf("LimitingFactorUnder: %v", err)
	}
	if lf.V != violations.NoViolations {
		t.Errorf("disabled element was outaged anyway: %s", lf)
	}
}

func TestLimitingFactorString(t *testing.T) {
	lf := contingency.LimitingFactor{V: violations.BranchLoading}
	if got := lf.String(); got != "LimitingFactor(v=BRANCH_LOADING, ss=None)" {
		t.Errorf("String() = %q", got)
	}
}
