// Package contingency screens single-element outages and finds the outage
// that limits a capacity probe.
package contingency

import (
	"fmt"

	"gridcapacity/internal/backends"
	"gridcapacity/internal/model"
	"gridcapacity/internal/violations"
)

// Scenario lists the outages a probe must survive. Only non-critical
// elements belong here: an element whose loss already breaks the base
// case cannot be a useful screening outage.
type Scenario struct {
	Branches []model.Branch `json:"branches,omitempty"`
	Trafos   []model.Trafo  `json:"trafos,omitempty"`
}

// Empty reports whether the scenario has no outages at all.
func (s Scenario) Empty() bool {
	return len(s.Branches) == 0 && len(s.Trafos) == 0
}

// LimitingFactor names the violations that stopped a probe and the outaged
// element that triggered them. Element is nil when the base connectivity
// itself violated.
type LimitingFactor struct {
	V       violations.Violations `json:"v"`
	Element fmt.Stringer          `json:"ss"`
}

func (lf LimitingFactor) String() string {
	if lf.Element == nil {
		return fmt.Sprintf("LimitingFactor(v=%s, ss=None)", lf.V)
	}
	return fmt.Sprintf("LimitingFactor(v=%s, ss=%s)", lf.V, lf.Element)
}

// Options bundle what every contingency check needs.
type Options struct {
	Limits            violations.Limits
	FullNewtonRaphson bool
	SolverOpts        map[string]any
}

func (o Options) solveOpts() backends.SolveOptions {
	return backends.SolveOptions{
		FullNewtonRaphson: o.FullNewtonRaphson,
		Raw:               o.SolverOpts,
	}
}

// LimitingFactorUnder disables each scenario element in turn, checks the
// relaxed limits and restores the element. It stops at the first outage
// that produces violations.
func LimitingFactorUnder(
	b backends.Backend,
	checker *violations.Checker,
	scenario Scenario,
	opts Options,
) (LimitingFactor, error) {
	if scenario.Empty() {
		return LimitingFactor{V: violations.NoViolations}, nil
	}
	v := violations.NoViolations
	for _, branch := range scenario.Branches {
		if !branchEnabled(b, branch) {
			continue
		}
		checked, err := underBranchOutage(b, branch, func() (violations.Violations, error) {
			return checker.Check(b, opts.Limits, opts.solveOpts())
		})
		if err != nil {
			return LimitingFactor{}, err
		}
		v |= checked
		if v != violations.NoViolations {
			return LimitingFactor{V: v, Element: branch}, nil
		}
	}
	for _, trafo := range scenario.Trafos {
		if !trafoEnabled(b, trafo) {
			continue
		}
		checked, err := underTrafoOutage(b, trafo, func() (violations.Violations, error) {
			return checker.Check(b, opts.Limits, opts.solveOpts())
		})
		if err != nil {
			return LimitingFactor{}, err
		}
		v |= checked
		if v != violations.NoViolations {
			return LimitingFactor{V: v, Element: trafo}, nil
		}
	}
	return LimitingFactor{V: v}, nil
}

// BuildScenario screens every in-service branch and two-winding
// transformer: elements whose single outage keeps the case clean under
// the relaxed limits form the scenario.
func BuildScenario(
	b backends.Backend,
	checker *violations.Checker,
	opts Options,
) (Scenario, error) {
	var scenario Scenario
	for _, branch := range b.Branches() {
		if !branch.InService {
			continue
		}
		v, err := underBranchOutage(b, branch, func() (violations.Violations, error) {
			return checker.Check(b, opts.Limits, opts.solveOpts())
		})
		if err != nil {
			return Scenario{}, err
		}
		if v == violations.NoViolations {
			scenario.Branches = append(scenario.Branches, branch)
		}
	}
	for _, trafo := range b.Trafos() {
		if !trafo.InService {
			continue
		}
		v, err := underTrafoOutage(b, trafo, func() (violations.Violations, error) {
			return checker.Check(b, opts.Limits, opts.solveOpts())
		})
		if err != nil {
			return Scenario{}, err
		}
		if v == violations.NoViolations {
			scenario.Trafos = append(scenario.Trafos, trafo)
		}
	}
	return scenario, nil
}

func branchEnabled(b backends.Backend, branch model.Branch) bool {
	for _, candidate := range b.Branches() {
		if candidate.Key() == branch.Key() {
			return candidate.InService
		}
	}
	return false
}

func trafoEnabled(b backends.Backend, trafo model.Trafo) bool {
	for _, candidate := range b.Trafos() {
		if candidate.Key() == trafo.Key() {
			return candidate.InService
		}
	}
	return false
}

func underBranchOutage(
	b backends.Backend,
	branch model.Branch,
	check func() (violations.Violations, error),
) (violations.Violations, error) {
	if err := b.SetBranchStatus(branch, false); err != nil {
		return violations.NoViolations, fmt.Errorf("disable branch %s: %w", branch.Key(), err)
	}
	v, err := check()
	if restoreErr := b.SetBranchStatus(branch, true); restoreErr != nil && err == nil {
		err = fmt.Errorf("restore branch %s: %w", branch.Key(), restoreErr)
	}
	return v, err
}

func underTrafoOutage(
	b backends.Backend,
	trafo model.Trafo,
	check func() (violations.Violations, error),
) (violations.Violations, error) {
	if err := b.SetTrafoStatus(trafo, false); err != nil {
		return violations.NoViolations, fmt.Errorf("disable trafo %s: %w", trafo.Key(), err)
	}
	v, err := check()
	if restoreErr := b.SetTrafoStatus(trafo, true); restoreErr != nil && err == nil {
		err = fmt.Errorf("restore trafo %s: %w", trafo.Key(), restoreErr)
	}
	return v, err
}
