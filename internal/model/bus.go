package model

import "fmt"

// Bus types follow the usual load-flow classification.
const (
	BusTypeLoad     = 1 // PQ bus
	BusTypeGen      = 2 // bus with generation
	BusTypeSwing    = 3 // slack / external grid connection
	BusTypeIsolated = 4 // disconnected, carries no equations
)

// Bus is a network node.
type Bus struct {
	Number int     `json:"number"`
	Name   string  `json:"name"`
	VnKV   float64 `json:"vn_kv"`
	Type   int     `json:"type"`
	Zone   string  `json:"zone,omitempty"`
}

// ExName is the extended display name combining the bus name and its
// nominal voltage, e.g. "NUC-A       21.600".
func (b Bus) ExName() string {
	return fmt.Sprintf("%-12s%.3f", b.Name, b.VnKV)
}

func (b Bus) String() string {
	return fmt.Sprintf("Bus(number=%d, ex_name=%q, type=%d)", b.Number, b.ExName(), b.Type)
}

// SwingBus is an external grid connection holding the voltage reference.
// MaxPMW caps the active power the external grid is expected to supply;
// exceeding it is a swing bus loading violation.
type SwingBus struct {
	Number int     `json:"number"`
	VmPU   float64 `json:"vm_pu"`
	MaxPMW float64 `json:"max_p_mw"`
}

func (s SwingBus) String() string {
	return fmt.Sprintf("SwingBus(number=%d, vm_pu=%g)", s.Number, s.VmPU)
}
