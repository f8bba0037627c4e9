package powerflow

import (
	"fmt"
	"math"

	"gridcapacity/internal/model"
)

const (
	defaultMaxIterations = 30
	defaultTolerancePU   = 1e-8
)

// Options selects the solver algorithm and its stopping criteria.
type Options struct {
	// FullNewtonRaphson selects the full Newton-Raphson solver. The
	// default is the fast decoupled solver, which is quicker but may fail
	// to converge on stressed cases.
	FullNewtonRaphson bool
	MaxIterations     int
	TolerancePU       float64
}

func (o Options) withDefaults() Options {
	if o.MaxIterations <= 0 {
		o.MaxIterations = defaultMaxIterations
	}
	if o.TolerancePU <= 0 {
		o.TolerancePU = defaultTolerancePU
	}
	return o
}

// Merge overlays free-form solver options from the analysis config.
// Unknown keys are ignored.
func (o Options) Merge(raw map[string]any) Options {
	if raw == nil {
		return o
	}
	if v, ok := asFloat(raw["max_iterations"]); ok && v > 0 {
		o.MaxIterations = int(v)
	}
	if v, ok := asFloat(raw["tolerance_pu"]); ok && v > 0 {
		o.TolerancePU = v
	}
	if v, ok := raw["algorithm"].(string); ok {
		o.FullNewtonRaphson = v == "nr"
	}
	return o
}

func asFloat(v any) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case int:
		return float64(x), true
	default:
		return 0, false
	}
}

// Results holds the solved state. Voltages follow Network.Buses order;
// flows follow the respective element slice order. Excluded (isolated)
// buses report NaN voltages and out-of-service elements report zero flow.
type Results struct {
	Converged  bool
	Iterations int

	BusVmPU  []float64
	BusVaRad []float64

	BranchFlowsMVA  []float64
	TrafoFlowsMVA   []float64
	Trafo3wFlowsMVA []float64
	SwingPMW        []float64
}

// loadingsPct converts flows to percent of the selected element rating.
// Unrated elements (zero rating) report zero loading.
func loadingsPct(flows []float64, rate func(int) (float64, error)) ([]float64, error) {
	out := make([]float64, len(flows))
	for i, f := range flows {
		r, err := rate(i)
		if err != nil {
			return nil, err
		}
		if r <= 0 {
			continue
		}
		out[i] = f / r * 100
	}
	return out, nil
}

// BranchLoadingsPct reports branch loading in percent of the named rate.
func (r *Results) BranchLoadingsPct(net *model.Network, rateName string) ([]float64, error) {
	return loadingsPct(r.BranchFlowsMVA, func(i int) (float64, error) {
		return net.Branches[i].Rates.Get(rateName)
	})
}

// TrafoLoadingsPct reports two-winding transformer loading in percent.
func (r *Results) TrafoLoadingsPct(net *model.Network, rateName string) ([]float64, error) {
	return loadingsPct(r.TrafoFlowsMVA, func(i int) (float64, error) {
		return net.Trafos[i].Rates.Get(rateName)
	})
}

// Trafo3wLoadingsPct reports three-winding transformer loading in percent.
func (r *Results) Trafo3wLoadingsPct(net *model.Network, rateName string) ([]float64, error) {
	return loadingsPct(r.Trafo3wFlowsMVA, func(i int) (float64, error) {
		return net.Trafos3w[i].Rates.Get(rateName)
	})
}

// Solve runs a power flow over the network. Non-convergence is not an
// error: callers must inspect Results.Converged.
func Solve(net *model.Network, opts Options) (*Results, error) {
	opts = opts.withDefaults()
	sys, err := buildSystem(net)
	if err != nil {
		return nil, fmt.Errorf("build admittance system: %w", err)
	}
	vm, va := sys.initialVoltages()

	var converged bool
	var iterations int
	if opts.FullNewtonRaphson {
		converged, iterations, err = solveNewton(sys, vm, va, opts)
	} else {
		converged, iterations, err = solveFastDecoupled(sys, vm, va, opts)
	}
	if err != nil {
		// A singular system behaves like a diverged solve.
		converged = false
	}

	res := &Results{
		Converged:  converged,
		Iterations: iterations,
		BusVmPU:    make([]float64, len(net.Buses)),
		BusVaRad:   make([]float64, len(net.Buses)),
	}
	for i := range net.Buses {
		if sys.excluded[i] || !converged {
			res.BusVmPU[i] = math.NaN()
			res.BusVaRad[i] = math.NaN()
			continue
		}
		res.BusVmPU[i] = vm[i]
		res.BusVaRad[i] = va[i]
	}
	if converged {
		sys.fillFlows(res, vm, va)
	} else {
		res.BranchFlowsMVA = make([]float64, len(net.Branches))
		res.TrafoFlowsMVA = make([]float64, len(net.Trafos))
		res.Trafo3wFlowsMVA = make([]float64, len(net.Trafos3w))
		res.SwingPMW = make([]float64, len(net.SwingBuses))
	}
	return res, nil
}

// fillFlows derives element apparent power flows and swing bus active
// powers from a converged voltage state.
func (s *system) fillFlows(res *Results, vm, va []float64) {
	net := s.net
	volt := func(i int) complex128 {
		return complex(vm[i]*math.Cos(va[i]), vm[i]*math.Sin(va[i]))
	}
	seriesFlow := func(i, j int, r, x, bTotal float64) float64 {
		if s.excluded[i] || s.excluded[j] {
			return 0
		}
		ys := 1 / complex(r, x)
		vi, vj := volt(i), volt(j)
		shunt := complex(0, bTotal/2)
		iFrom := (vi-vj)*ys + vi*shunt
		iTo := (vj-vi)*ys + vj*shunt
		sFrom := cmplxAbs(vi * conj(iFrom))
		sTo := cmplxAbs(vj * conj(iTo))
		return math.Max(sFrom, sTo) * net.SnMVA
	}

	res.BranchFlowsMVA = make([]float64, len(net.Branches))
	for bi, br := range net.Branches {
		if !br.InService {
			continue
		}
		i, j := s.busIdx[br.FromNumber], s.busIdx[br.ToNumber]
		res.BranchFlowsMVA[bi] = seriesFlow(i, j, br.RPU, br.XPU, br.BPU)
	}
	res.TrafoFlowsMVA = make([]float64, len(net.Trafos))
	for ti, t := range net.Trafos {
		if !t.InService {
			continue
		}
		i, j := s.busIdx[t.FromNumber], s.busIdx[t.ToNumber]
		res.TrafoFlowsMVA[ti] = seriesFlow(i, j, t.RPU, t.XPU, 0)
	}
	res.Trafo3wFlowsMVA = make([]float64, len(net.Trafos3w))
	for ti, t := range net.Trafos3w {
		star := s.star[ti]
		if star < 0 {
			continue
		}
		w1 := seriesFlow(s.busIdx[t.Wind1Number], star, t.R1PU, t.X1PU, 0)
		w2 := seriesFlow(s.busIdx[t.Wind2Number], star, t.R2PU, t.X2PU, 0)
		w3 := seriesFlow(s.busIdx[t.Wind3Number], star, t.R3PU, t.X3PU, 0)
		res.Trafo3wFlowsMVA[ti] = math.Max(w1, math.Max(w2, w3))
	}
	res.SwingPMW = make([]float64, len(net.SwingBuses))
	for si, sb := range net.SwingBuses {
		i := s.busIdx[sb.Number]
		if s.excluded[i] {
			continue
		}
		p, _ := s.injection(i, vm, va)
		// The swing bus supplies whatever the fixed injections at the
		// node do not cover.
		res.SwingPMW[si] = p*net.SnMVA - real(s.specMVA[i])
	}
}

func conj(c complex128) complex128 { return complex(real(c), -imag(c)) }

func cmplxAbs(c complex128) float64 { return math.Hypot(real(c), imag(c)) }

func cosSin(th float64) (float64, float64) { return math.Cos(th), math.Sin(th) }
