package powerflow

import "math"

// solveNewton runs a full Newton-Raphson power flow in polar coordinates
// with a dense Jacobian. All non-slack connected nodes carry both P and Q
// mismatch equations (machines are PQ injections).
func solveNewton(s *system, vm, va []float64, opts Options) (bool, int, error) {
	unknowns := s.unknowns()
	n := len(unknowns)
	if n == 0 {
		return true, 0, nil
	}
	pos := make(map[int]int, n)
	for k, i := range unknowns {
		pos[i] = k
	}

	for iter := 0; iter < opts.MaxIterations; iter++ {
		mismatch := make([]float64, 2*n)
		maxMismatch := 0.0
		pCalc := make([]float64, n)
		qCalc := make([]float64, n)
		for k, i := range unknowns {
			p, q := s.injection(i, vm, va)
			pCalc[k], qCalc[k] = p, q
			dp := real(s.specMVA[i])/s.net.SnMVA - p
			dq := imag(s.specMVA[i])/s.net.SnMVA - q
			mismatch[k] = dp
			mismatch[n+k] = dq
			maxMismatch = math.Max(maxMismatch, math.Max(math.Abs(dp), math.Abs(dq)))
		}
		if maxMismatch < opts.TolerancePU {
			return true, iter, nil
		}

		jac := make([][]float64, 2*n)
		for r := range jac {
			jac[r] = make([]float64, 2*n)
		}
		for k, i := range unknowns {
			for l, j := range unknowns {
				g, b := real(s.y[i][j]), imag(s.y[i][j])
				if i == j {
					jac[k][l] = -qCalc[k] - b*vm[i]*vm[i]                // dP/dTheta
					jac[k][n+l] = pCalc[k]/vm[i] + g*vm[i]              // dP/dV
					jac[n+k][l] = pCalc[k] - g*vm[i]*vm[i]              // dQ/dTheta
					jac[n+k][n+l] = qCalc[k]/vm[i] - b*vm[i]            // dQ/dV
					continue
				}
				if g == 0 && b == 0 {
					continue
				}
				cos, sin := cosSin(va[i] - va[j])
				jac[k][l] = vm[i] * vm[j] * (g*sin - b*cos)
				jac[k][n+l] = vm[i] * (g*cos + b*sin)
				jac[n+k][l] = -vm[i] * vm[j] * (g*cos + b*sin)
				jac[n+k][n+l] = vm[i] * (g*sin - b*cos)
			}
		}

		dx, err := solveLinear(jac, mismatch)
		if err != nil {
			return false, iter, err
		}
		for k, i := range unknowns {
			va[i] += dx[k]
			vm[i] += dx[n+k]
			if math.IsNaN(vm[i]) || vm[i] <= 0 {
				return false, iter, nil
			}
		}
	}
	return false, opts.MaxIterations, nil
}
