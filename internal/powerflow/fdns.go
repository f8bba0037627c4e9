package powerflow

import "math"

// solveFastDecoupled runs a fixed-slope decoupled power flow: the P-theta
// and Q-V half problems are solved alternately against the constant B'
// and B'' matrices. It converges quickly on healthy cases and is allowed
// to fail on stressed ones; callers fall back to full Newton-Raphson.
func solveFastDecoupled(s *system, vm, va []float64, opts Options) (bool, int, error) {
	unknowns := s.unknowns()
	n := len(unknowns)
	if n == 0 {
		return true, 0, nil
	}

	// B' and B'' are the negated imaginary Ybus over the unknown nodes.
	bMatrix := func() [][]float64 {
		m := make([][]float64, n)
		for k, i := range unknowns {
			m[k] = make([]float64, n)
			for l, j := range unknowns {
				m[k][l] = -imag(s.y[i][j])
			}
		}
		return m
	}

	mismatches := func() (dp, dq []float64, worst float64) {
		dp = make([]float64, n)
		dq = make([]float64, n)
		for k, i := range unknowns {
			p, q := s.injection(i, vm, va)
			dp[k] = real(s.specMVA[i])/s.net.SnMVA - p
			dq[k] = imag(s.specMVA[i])/s.net.SnMVA - q
			worst = math.Max(worst, math.Max(math.Abs(dp[k]), math.Abs(dq[k])))
		}
		return dp, dq, worst
	}

	for iter := 0; iter < opts.MaxIterations; iter++ {
		dp, _, worst := mismatches()
		if worst < opts.TolerancePU {
			return true, iter, nil
		}

		// P-theta half iteration.
		rhs := make([]float64, n)
		for k, i := range unknowns {
			rhs[k] = dp[k] / vm[i]
		}
		dth, err := solveLinear(bMatrix(), rhs)
		if err != nil {
			return false, iter, err
		}
		for k, i := range unknowns {
			va[i] += dth[k]
		}

		// Q-V half iteration on refreshed mismatches.
		_, dq, _ := mismatches()
		for k, i := range unknowns {
			rhs[k] = dq[k] / vm[i]
		}
		dv, err := solveLinear(bMatrix(), rhs)
		if err != nil {
			return false, iter, err
		}
		for k, i := range unknowns {
			vm[i] += dv[k]
			if math.IsNaN(vm[i]) || vm[i] <= 0 {
				return false, iter, nil
			}
		}
	}
	_, _, worst := mismatches()
	return worst < opts.TolerancePU, opts.MaxIterations, nil
}
