// Package capacity finds per-bus load and generation headroom with a
// bisection search over temporary bus injections.
package capacity

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"gridcapacity/internal/backends"
	"gridcapacity/internal/contingency"
	"gridcapacity/internal/model"
	"gridcapacity/internal/violations"
)

// Temporary injections used during probing and connection scenarios carry
// fixed ids so reloading a case never leaves them behind.
const (
	temporaryID  = "Tm"
	connectionID = "CR"
)

const (
	defaultPowerFactor   = 0.9
	defaultTolerancePMW  = 5.0
	defaultMaxIterations = 10
)

// ConnectionPower is an already connected power at a bus, given as active
// power and power factor.
type ConnectionPower struct {
	PMW float64  `json:"p_mw"`
	PF  *float64 `json:"pf,omitempty"`
}

// MVA converts the connection to apparent power, defaulting the power
// factor to 0.9.
func (c ConnectionPower) MVA() model.PowerMVA {
	pf := defaultPowerFactor
	if c.PF != nil {
		pf = *c.PF
	}
	return model.FromPMW(c.PMW, pf)
}

// BusConnection describes planned load and generation at one bus.
type BusConnection struct {
	Load *ConnectionPower `json:"load,omitempty"`
	Gen  *ConnectionPower `json:"gen,omitempty"`
}

// ConnectionScenario maps bus numbers (as strings, matching the config
// file format) to planned connections applied before every analysis step.
type ConnectionScenario map[string]BusConnection

type sortedConnection struct {
	busNumber  int
	connection BusConnection
}

func sortConnectionScenario(scenario ConnectionScenario) ([]sortedConnection, error) {
	if scenario == nil {
		return nil, nil
	}
	out := make([]sortedConnection, 0, len(scenario))
	for key, connection := range scenario {
		busNumber, err := strconv.Atoi(key)
		if err != nil {
			return nil, fmt.Errorf("connection scenario bus %q: %w", key, err)
		}
		out = append(out, sortedConnection{busNumber: busNumber, connection: connection})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].busNumber < out[j].busNumber })
	return out, nil
}

// BusHeadroom is the analysis result for one bus: the power already
// there and the extra PQ power it can take before something violates.
type BusHeadroom struct {
	Bus           model.Bus                   `json:"bus"`
	ActualLoadMVA model.PowerMVA              `json:"actual_load_mva"`
	ActualGenMVA  model.PowerMVA              `json:"actual_gen_mva"`
	LoadAvailMVA  model.PowerMVA              `json:"load_avail_mva"`
	GenAvailMVA   model.PowerMVA              `json:"gen_avail_mva"`
	LoadLF        *contingency.LimitingFactor `json:"load_lf"`
	GenLF         *contingency.LimitingFactor `json:"gen_lf"`
}

func (h BusHeadroom) String() string {
	return fmt.Sprintf(
		"BusHeadroom(bus=%s, actual_load_mva=%s, actual_gen_mva=%s, load_avail_mva=%s, gen_avail_mva=%s)",
		h.Bus, h.ActualLoadMVA, h.ActualGenMVA, h.LoadAvailMVA, h.GenAvailMVA)
}

// Headroom is the per-bus result set in case bus order.
type Headroom []BusHeadroom

// Params configure an analysis run. Zero optional fields take the
// documented defaults.
type Params struct {
	CaseName          string
	UpperLoadLimitPMW float64
	UpperGenLimitPMW  float64

	LoadPowerFactor      float64 // default 0.9
	GenPowerFactor       float64 // default 0.9
	SelectedBusesIDs     []int   // nil analyses every bus
	HeadroomTolerancePMW float64 // default 5.0
	SolverOpts           map[string]any
	MaxIterations        int // default 10

	NormalLimits        *violations.Limits
	ContingencyLimits   *violations.Limits
	ContingencyScenario *contingency.Scenario
	ConnectionScenario  ConnectionScenario
}

func (p Params) withDefaults() Params {
	if p.LoadPowerFactor == 0 {
		p.LoadPowerFactor = defaultPowerFactor
	}
	if p.GenPowerFactor == 0 {
		p.GenPowerFactor = defaultPowerFactor
	}
	if p.HeadroomTolerancePMW == 0 {
		p.HeadroomTolerancePMW = defaultTolerancePMW
	}
	if p.MaxIterations == 0 {
		p.MaxIterations = defaultMaxIterations
	}
	return p
}

// Analyser walks the case buses and bisects the feasible injection range
// of each. Construction solves and checks the base case; a base case that
// cannot converge aborts the run.
type Analyser struct {
	b       *backends.Counting
	checker *violations.Checker
	log     *zap.Logger
	stats   *RunStats

	caseName             string
	upperLoadLimitMVA    model.PowerMVA
	upperGenLimitMVA     model.PowerMVA
	selectedBusesIDs     map[int]struct{}
	headroomTolerancePMW float64
	solverOpts           map[string]any
	maxIterations        int
	normalLimits         violations.Limits
	contingencyLimits    violations.Limits
	connectionScenario   []sortedConnection

	useFullNewtonRaphson bool
	scenario             contingency.Scenario
}

// NewAnalyser prepares a run: it decides the solver algorithm, verifies
// the base case and builds the contingency scenario when none is given.
func NewAnalyser(b backends.Backend, checker *violations.Checker, log *zap.Logger, p Params) (*Analyser, error) {
	p = p.withDefaults()
	connections, err := sortConnectionScenario(p.ConnectionScenario)
	if err != nil {
		return nil, err
	}
	a := &Analyser{
		b:                    backends.NewCounting(b),
		checker:              checker,
		log:                  log,
		stats:                NewRunStats(),
		caseName:             p.CaseName,
		upperLoadLimitMVA:    model.FromPMW(p.UpperLoadLimitPMW, p.LoadPowerFactor),
		upperGenLimitMVA:     model.FromPMW(p.UpperGenLimitPMW, p.GenPowerFactor),
		headroomTolerancePMW: p.HeadroomTolerancePMW,
		solverOpts:           p.SolverOpts,
		maxIterations:        p.MaxIterations,
		normalLimits:         violations.DefaultLimits(),
		contingencyLimits:    violations.ContingencyLimits(),
		connectionScenario:   connections,
	}
	if p.NormalLimits != nil {
		a.normalLimits = p.NormalLimits.WithDefaults()
	}
	if p.ContingencyLimits != nil {
		a.contingencyLimits = p.ContingencyLimits.WithDefaults()
	}
	if p.SelectedBusesIDs != nil {
		a.selectedBusesIDs = make(map[int]struct{}, len(p.SelectedBusesIDs))
		for _, id := range p.SelectedBusesIDs {
			a.selectedBusesIDs[id] = struct{}{}
		}
	}

	if err := a.pickSolver(); err != nil {
		return nil, err
	}
	if err := a.checkBaseCase(); err != nil {
		return nil, err
	}
	if p.ContingencyScenario != nil {
		a.scenario = *p.ContingencyScenario
	} else {
		scenario, err := contingency.BuildScenario(a.b, a.checker, a.contingencyOpts())
		if err != nil {
			return nil, fmt.Errorf("build contingency scenario: %w", err)
		}
		a.scenario = scenario
		// Reopen to clear any solver state left by the screening runs.
		if err := a.reloadCase(); err != nil {
			return nil, err
		}
	}
	return a, nil
}

// pickSolver prefers the fast decoupled solver and falls back to full
// Newton-Raphson for the whole run when the base case resists it.
func (a *Analyser) pickSolver() error {
	if err := a.reloadCase(); err != nil {
		return err
	}
	if err := a.b.RunSolver(a.solveOpts(false)); err != nil {
		return err
	}
	if a.b.Converged() {
		a.useFullNewtonRaphson = false
		a.log.Info("case solved")
		return nil
	}
	if err := a.reloadCase(); err != nil {
		return err
	}
	if err := a.b.RunSolver(a.solveOpts(true)); err != nil {
		return err
	}
	a.useFullNewtonRaphson = true
	a.log.Info("case solved")
	return nil
}

func (a *Analyser) checkBaseCase() error {
	a.checker.Stats().Reset()
	a.checker.Stats().ResetBaseCase()
	a.stats.Reset()
	v, err := a.checkViolations()
	if err != nil {
		return err
	}
	if v.Has(violations.NotConverged) {
		return fmt.Errorf("the base case has %s", v)
	}
	a.checker.Stats().RegisterBaseCase()
	return nil
}

// reloadCase restores the unmodified case and reapplies the connection
// scenario in ascending bus number order.
func (a *Analyser) reloadCase() error {
	if err := a.b.OpenCase(a.caseName); err != nil {
		return err
	}
	for _, entry := range a.connectionScenario {
		if load := entry.connection.Load; load != nil {
			if err := a.b.AddLoad(entry.busNumber, connectionID, load.MVA()); err != nil {
				return fmt.Errorf("connection scenario: %w", err)
			}
		}
		if gen := entry.connection.Gen; gen != nil {
			if err := a.b.AddMachine(entry.busNumber, connectionID, gen.MVA()); err != nil {
				return fmt.Errorf("connection scenario: %w", err)
			}
		}
	}
	return nil
}

func (a *Analyser) solveOpts(fullNewtonRaphson bool) backends.SolveOptions {
	return backends.SolveOptions{
		FullNewtonRaphson: fullNewtonRaphson,
		Raw:               a.solverOpts,
	}
}

func (a *Analyser) contingencyOpts() contingency.Options {
	return contingency.Options{
		Limits:            a.contingencyLimits,
		FullNewtonRaphson: a.useFullNewtonRaphson,
		SolverOpts:        a.solverOpts,
	}
}

func (a *Analyser) checkViolations() (violations.Violations, error) {
	return a.checker.Check(a.b, a.normalLimits, a.solveOpts(a.useFullNewtonRaphson))
}

// Stats exposes the run statistics collected during probing.
func (a *Analyser) Stats() *RunStats { return a.stats }

// Backend exposes the analysed backend, mainly for report rendering.
func (a *Analyser) Backend() backends.Backend { return a.b }

// PowerFlowCount reports how many power flows ran since the headroom
// analysis started.
func (a *Analyser) PowerFlowCount() int { return a.b.Runs() }

// BusesHeadroom probes every selected bus and returns its headroom.
func (a *Analyser) BusesHeadroom() (Headroom, error) {
	a.b.ResetRuns()
	a.checker.Stats().Reset()
	buses := a.b.Buses()
	headroom := make(Headroom, 0, len(buses))
	for _, bus := range buses {
		if a.selectedBusesIDs != nil {
			if _, ok := a.selectedBusesIDs[bus.Number]; !ok {
				continue
			}
		}
		busHeadroom, err := a.busHeadroom(bus)
		if err != nil {
			return nil, fmt.Errorf("bus %d headroom: %w", bus.Number, err)
		}
		headroom = append(headroom, busHeadroom)
		a.log.Debug("bus analysed",
			zap.Int("bus_number", bus.Number),
			zap.Int("power_flows", a.b.Runs()))
	}
	return headroom, nil
}

func (a *Analyser) busHeadroom(bus model.Bus) (BusHeadroom, error) {
	actualLoadMVA := busLoadMVA(a.b, bus.Number)
	actualGenMVA := busGenMVA(a.b, bus.Number)

	loadAvailMVA, loadLF, err := a.maxPowerAvailableMVA(bus, false, a.upperLoadLimitMVA)
	if err != nil {
		return BusHeadroom{}, err
	}
	if loadAvailMVA.IsZero() && loadLF != nil && loadLF.V == violations.NotConverged {
		if err := a.reloadCase(); err != nil {
			return BusHeadroom{}, err
		}
	}

	var genAvailMVA model.PowerMVA
	var genLF *contingency.LimitingFactor
	if !actualGenMVA.IsZero() && !loadAvailMVA.IsZero() {
		genAvailMVA, genLF, err = a.maxPowerAvailableMVA(bus, true, a.upperGenLimitMVA)
		if err != nil {
			return BusHeadroom{}, err
		}
		if genAvailMVA.IsZero() && genLF != nil && genLF.V == violations.NotConverged {
			if err := a.reloadCase(); err != nil {
				return BusHeadroom{}, err
			}
		}
	}
	return BusHeadroom{
		Bus:           bus,
		ActualLoadMVA: actualLoadMVA,
		ActualGenMVA:  actualGenMVA,
		LoadAvailMVA:  loadAvailMVA,
		GenAvailMVA:   genAvailMVA,
		LoadLF:        loadLF,
		GenLF:         genLF,
	}, nil
}

// maxPowerAvailableMVA bisects the feasible injection range at a bus. The
// upper limit is probed first and returned immediately when feasible; that
// probe counts as the first iteration. After every infeasible probe the
// case is reloaded because a failed or violated solve leaves no usable
// starting state.
func (a *Analyser) maxPowerAvailableMVA(
	bus model.Bus,
	gen bool,
	upperLimitMVA model.PowerMVA,
) (model.PowerMVA, *contingency.LimitingFactor, error) {
	lowerLimitMVA := model.PowerMVA(0)

	feasible, limitingFactor, err := a.probe(bus, gen, upperLimitMVA)
	if err != nil {
		return 0, nil, err
	}
	if feasible {
		return upperLimitMVA, limitingFactor, nil
	}
	a.stats.Update(bus, upperLimitMVA, gen, limitingFactor)
	if err := a.reloadCase(); err != nil {
		return 0, nil, err
	}

	for iteration := 0; iteration < a.maxIterations-1; iteration++ {
		middleMVA := model.PowerMVA((complex128(lowerLimitMVA) + complex128(upperLimitMVA)) / 2)
		feasible, limitingFactor, err = a.probe(bus, gen, middleMVA)
		if err != nil {
			return 0, nil, err
		}
		if feasible {
			lowerLimitMVA = middleMVA
		} else {
			upperLimitMVA = middleMVA
			a.stats.Update(bus, middleMVA, gen, limitingFactor)
			if err := a.reloadCase(); err != nil {
				return 0, nil, err
			}
		}
		if upperLimitMVA.P()-lowerLimitMVA.P() < a.headroomTolerancePMW {
			break
		}
	}
	return lowerLimitMVA, limitingFactor, nil
}

// probe temporarily injects the power at the bus and checks feasibility.
// The injection is removed afterwards so a feasible probe leaves the case
// unchanged.
func (a *Analyser) probe(bus model.Bus, gen bool, powerMVA model.PowerMVA) (bool, *contingency.LimitingFactor, error) {
	add, remove := a.b.AddLoad, a.b.RemoveLoad
	if gen {
		add, remove = a.b.AddMachine, a.b.RemoveMachine
	}
	if err := add(bus.Number, temporaryID, powerMVA); err != nil {
		return false, nil, err
	}
	feasible, limitingFactor, err := a.feasibilityCheck()
	if removeErr := remove(bus.Number, temporaryID); removeErr != nil && err == nil {
		err = removeErr
	}
	return feasible, limitingFactor, err
}

// feasibilityCheck runs the normal limits check and then the contingency
// screen. Any violation makes the probe infeasible.
func (a *Analyser) feasibilityCheck() (bool, *contingency.LimitingFactor, error) {
	v, err := a.checkViolations()
	if err != nil {
		return false, nil, err
	}
	if v != violations.NoViolations {
		return false, &contingency.LimitingFactor{V: v}, nil
	}
	limitingFactor, err := contingency.LimitingFactorUnder(a.b, a.checker, a.scenario, a.contingencyOpts())
	if err != nil {
		return false, nil, err
	}
	if limitingFactor.V != violations.NoViolations {
		return false, &limitingFactor, nil
	}
	return true, nil, nil
}

func busLoadMVA(b backends.Backend, busNumber int) model.PowerMVA {
	var sum complex128
	for _, load := range b.Loads() {
		if load.InService && load.Number == busNumber {
			sum += complex128(load.MVA)
		}
	}
	return model.PowerMVA(sum)
}

func busGenMVA(b backends.Backend, busNumber int) model.PowerMVA {
	var sum complex128
	for _, machine := range b.Machines() {
		if machine.InService && machine.Number == busNumber {
			sum += complex128(machine.MVA)
		}
	}
	return model.PowerMVA(sum)
}

func center(s string, width int, pad string) string {
	if len(s) >= width {
		return s
	}
	total := width - len(s)
	left := total / 2
	return strings.Repeat(pad, left) + s + strings.Repeat(pad, total-left)
}
