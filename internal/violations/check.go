package violations

import (
	"fmt"
	"math"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"gridcapacity/internal/backends"
)

// Checker runs solver-and-check cycles and records violation statistics.
type Checker struct {
	log   *zap.Logger
	level zapcore.Level
	stats *Stats
}

// NewChecker builds a checker. Violation records are logged at info
// level, or warning level when treatAsWarnings is set.
func NewChecker(log *zap.Logger, treatAsWarnings bool) *Checker {
	level := zapcore.InfoLevel
	if treatAsWarnings {
		level = zapcore.WarnLevel
	}
	return &Checker{log: log, level: level, stats: NewStats()}
}

// Stats exposes the accumulated violation statistics.
func (c *Checker) Stats() *Stats { return c.stats }

// Check runs the solver and inspects the solved case against the limits.
// A failed solve reports NotConverged; the remaining checks are skipped
// because their inputs would be meaningless.
func (c *Checker) Check(b backends.Backend, limits Limits, opts backends.SolveOptions) (Violations, error) {
	limits = limits.WithDefaults()
	if err := b.RunSolver(opts); err != nil {
		return NoViolations, err
	}
	v := NoViolations
	if !b.Converged() {
		v |= NotConverged
		c.log.Log(c.level, "case not solved")
		return v, nil
	}

	for i, vm := range b.BusVoltagesPU() {
		if math.IsNaN(vm) {
			continue
		}
		if vm > limits.MaxBusVoltagePU {
			v |= BusOvervoltage
			c.record(BusOvervoltage, limits.MaxBusVoltagePU, i, vm,
				zap.Int("bus", b.Buses()[i].Number))
		}
		if vm < limits.MinBusVoltagePU {
			v |= BusUndervoltage
			c.record(BusUndervoltage, limits.MinBusVoltagePU, i, vm,
				zap.Int("bus", b.Buses()[i].Number))
		}
	}

	branchLoadings, err := b.BranchLoadingsPct(limits.BranchRate)
	if err != nil {
		return v, fmt.Errorf("branch loadings: %w", err)
	}
	for i, pct := range branchLoadings {
		if pct > limits.MaxBranchLoadingPct {
			v |= BranchLoading
			c.record(BranchLoading, limits.MaxBranchLoadingPct, i, pct,
				zap.String("branch", b.Branches()[i].Key()))
		}
	}

	trafoLoadings, err := b.TrafoLoadingsPct(limits.TrafoRate)
	if err != nil {
		return v, fmt.Errorf("trafo loadings: %w", err)
	}
	for i, pct := range trafoLoadings {
		if pct > limits.MaxTrafoLoadingPct {
			v |= TrafoLoading
			c.record(TrafoLoading, limits.MaxTrafoLoadingPct, i, pct,
				zap.String("trafo", b.Trafos()[i].Key()))
		}
	}

	trafo3wLoadings, err := b.Trafo3wLoadingsPct(limits.TrafoRate)
	if err != nil {
		return v, fmt.Errorf("trafo3w loadings: %w", err)
	}
	for i, pct := range trafo3wLoadings {
		if pct > limits.MaxTrafoLoadingPct {
			v |= Trafo3wLoading
			c.record(Trafo3wLoading, limits.MaxTrafoLoadingPct, i, pct,
				zap.String("trafo3w", b.Trafos3w()[i].Key()))
		}
	}

	for i, pMW := range b.SwingBusPowersMW() {
		if pMW > limits.MaxSwingBusPowerPMW {
			v |= SwingBusLoading
			c.record(SwingBusLoading, limits.MaxSwingBusPowerPMW, i, pMW,
				zap.Int("bus", b.SwingBuses()[i].Number))
		}
	}
	return v, nil
}

func (c *Checker) record(violation Violations, limit float64, idx int, value float64, field zap.Field) {
	c.stats.Append(violation, limit, idx, value)
	if ce := c.log.Check(c.level, "violation detected"); ce != nil {
		ce.Write(
			zap.Stringer("violation", violation),
			zap.Float64("limit", limit),
			zap.Float64("value", value),
			field,
		)
	}
}

// Describe renders an element of a violated subsystem for text reports.
func Describe(b backends.Backend, violation Violations, idx int) string {
	switch violation {
	case BusOvervoltage, BusUndervoltage:
		return b.Buses()[idx].ExName()
	case BranchLoading:
		return b.Branches()[idx].Key()
	case TrafoLoading:
		return b.Trafos()[idx].Key()
	case Trafo3wLoading:
		return b.Trafos3w()[idx].Key()
	case SwingBusLoading:
		return fmt.Sprintf("swing bus %d", b.SwingBuses()[idx].Number)
	}
	return fmt.Sprintf("element %d", idx)
}
