package powerflow

import (
	"errors"
	"math"
)

var errSingular = errors.New("singular jacobian")

// solveLinear solves a*x = b in place using Gaussian elimination with
// partial pivoting. The grid cases handled here are small enough that a
// dense solve per iteration is cheap.
func solveLinear(a [][]float64, b []float64) ([]float64, error) {
	n := len(a)
	if n == 0 {
		return nil, nil
	}
	for col := 0; col < n; col++ {
		pivot := col
		maxAbs := math.Abs(a[col][col])
		for row := col + 1; row < n; row++ {
			if v := math.Abs(a[row][col]); v > maxAbs {
				maxAbs = v
				pivot = row
			}
		}
		if maxAbs < 1e-13 {
			return nil, errSingular
		}
		if pivot != col {
			a[pivot], a[col] = a[col], a[pivot]
			b[pivot], b[col] = b[col], b[pivot]
		}
		inv := 1 / a[col][col]
		for row := col + 1; row < n; row++ {
			factor := a[row][col] * inv
			if factor == 0 {
				continue
			}
			a[row][col] = 0
			for k := col + 1; k < n; k++ {
				a[row][k] -= factor * a[col][k]
			}
			b[row] -= factor * b[col]
		}
	}
	x := make([]float64, n)
	for row := n - 1; row >= 0; row-- {
		sum := b[row]
		for k := row + 1; k < n; k++ {
			sum -= a[row][k] * x[k]
		}
		x[row] = sum / a[row][row]
	}
	return x, nil
}
