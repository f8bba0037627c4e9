package model

import (
	"encoding/json"
	"fmt"
	"math"
)

// PowerMVA is a complex apparent power in MVA: real part is the active
// power P in MW, imaginary part the reactive power Q in Mvar. It
// serializes to JSON as a two-element array [P, Q].
type PowerMVA complex128

func (s PowerMVA) P() float64 { return real(complex128(s)) }

func (s PowerMVA) Q() float64 { return imag(complex128(s)) }

// Abs returns the apparent power magnitude |S| in MVA.
func (s PowerMVA) Abs() float64 { return cmplx128Abs(complex128(s)) }

func (s PowerMVA) IsZero() bool { return complex128(s) == 0 }

func (s PowerMVA) String() string {
	return fmt.Sprintf("(%g%+gj)", s.P(), s.Q())
}

func (s PowerMVA) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]float64{s.P(), s.Q()})
}

func (s *PowerMVA) UnmarshalJSON(data []byte) error {
	var pq [2]float64
	if err := json.Unmarshal(data, &pq); err != nil {
		return fmt.Errorf("power value must be a [P, Q] pair: %w", err)
	}
	*s = PowerMVA(complex(pq[0], pq[1]))
	return nil
}

// FromPMW converts an active power in MW to apparent power at the given
// power factor: S = P + jP*tan(acos(pf)). A power factor of 1 yields a
// purely active power.
func FromPMW(pMW, powerFactor float64) PowerMVA {
	if powerFactor >= 1 {
		return PowerMVA(complex(pMW, 0))
	}
	q := pMW * math.Tan(math.Acos(powerFactor))
	return PowerMVA(complex(pMW, q))
}

func cmplx128Abs(c complex128) float64 {
	return math.Hypot(real(c), imag(c))
}
