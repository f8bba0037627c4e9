package model

import "fmt"

// Trafo is a two-winding transformer. The short-circuit impedance is in
// per unit on the system base, referenced to the high-voltage side.
type Trafo struct {
	FromNumber int     `json:"from_number"`
	ToNumber   int     `json:"to_number"`
	ID         string  `json:"trafo_id"`
	RPU        float64 `json:"r_pu"`
	XPU        float64 `json:"x_pu"`
	Rates      Rates   `json:"rates"`
	InService  bool    `json:"in_service"`
}

func (t Trafo) Key() string {
	return fmt.Sprintf("%d-%d-%s", t.FromNumber, t.ToNumber, t.ID)
}

func (t Trafo) String() string {
	return fmt.Sprintf("Trafo(from_number=%d, to_number=%d, trafo_id=%q)",
		t.FromNumber, t.ToNumber, t.ID)
}

// Trafo3w is a three-winding transformer. Winding impedances are the star
// equivalent in per unit on the system base; the solver introduces an
// internal star node per transformer.
type Trafo3w struct {
	Wind1Number int     `json:"wind1_number"`
	Wind2Number int     `json:"wind2_number"`
	Wind3Number int     `json:"wind3_number"`
	ID          string  `json:"trafo_id"`
	R1PU        float64 `json:"r1_pu"`
	X1PU        float64 `json:"x1_pu"`
	R2PU        float64 `json:"r2_pu"`
	X2PU        float64 `json:"x2_pu"`
	R3PU        float64 `json:"r3_pu"`
	X3PU        float64 `json:"x3_pu"`
	Rates       Rates   `json:"rates"`
	InService   bool    `json:"in_service"`
}

func (t Trafo3w) Key() string {
	return fmt.Sprintf("%d-%d-%d-%s", t.Wind1Number, t.Wind2Number, t.Wind3Number, t.ID)
}

func (t Trafo3w) String() string {
	return fmt.Sprintf("Trafo3w(wind1_number=%d, wind2_number=%d, wind3_number=%d, trafo_id=%q)",
		t.Wind1Number, t.Wind2Number, t.Wind3Number, t.ID)
}
