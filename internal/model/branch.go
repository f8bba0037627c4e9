package model

import "fmt"

// Rates holds the element loading ratings in MVA. Rate1 is the normal
// rating, Rate2 the short-term (contingency) rating, Rate3 an optional
// emergency rating. A zero rating means the element is unrated and never
// reports loading violations.
type Rates struct {
	Rate1 float64 `json:"rate1_mva"`
	Rate2 float64 `json:"rate2_mva,omitempty"`
	Rate3 float64 `json:"rate3_mva,omitempty"`
}

// Get returns the rating selected by name ("Rate1", "Rate2" or "Rate3").
func (r Rates) Get(name string) (float64, error) {
	switch name {
	case "Rate1":
		return r.Rate1, nil
	case "Rate2":
		return r.Rate2, nil
	case "Rate3":
		return r.Rate3, nil
	default:
		return 0, fmt.Errorf("unknown rate %q", name)
	}
}

// Branch is a transmission line between two buses. Impedances are in per
// unit on the system base. BPU is the total line charging susceptance.
type Branch struct {
	FromNumber int     `json:"from_number"`
	ToNumber   int     `json:"to_number"`
	ID         string  `json:"branch_id"`
	RPU        float64 `json:"r_pu"`
	XPU        float64 `json:"x_pu"`
	BPU        float64 `json:"b_pu,omitempty"`
	Rates      Rates   `json:"rates"`
	InService  bool    `json:"in_service"`
}

// Key identifies a branch: parallel circuits between the same buses are
// distinguished by ID.
func (b Branch) Key() string {
	return fmt.Sprintf("%d-%d-%s", b.FromNumber, b.ToNumber, b.ID)
}

func (b Branch) String() string {
	return fmt.Sprintf("Branch(from_number=%d, to_number=%d, branch_id=%q)",
		b.FromNumber, b.ToNumber, b.ID)
}
