package violations

// Limits are the thresholds a solved case is checked against.
type Limits struct {
	MaxBusVoltagePU     float64 `json:"max_bus_voltage_pu"`
	MinBusVoltagePU     float64 `json:"min_bus_voltage_pu"`
	MaxBranchLoadingPct float64 `json:"max_branch_loading_pct"`
	MaxTrafoLoadingPct  float64 `json:"max_trafo_loading_pct"`
	MaxSwingBusPowerPMW float64 `json:"max_swing_bus_power_p_mw"`
	BranchRate          string  `json:"branch_rate,omitempty"`
	TrafoRate           string  `json:"trafo_rate,omitempty"`
}

// DefaultLimits are the base case thresholds.
func DefaultLimits() Limits {
	return Limits{
		MaxBusVoltagePU:     1.1,
		MinBusVoltagePU:     0.9,
		MaxBranchLoadingPct: 100,
		MaxTrafoLoadingPct:  100,
		MaxSwingBusPowerPMW: 1000,
		BranchRate:          "Rate1",
		TrafoRate:           "Rate1",
	}
}

// ContingencyLimits are the relaxed thresholds applied while an element
// is out of service. Loadings are checked against emergency ratings.
func ContingencyLimits() Limits {
	return Limits{
		MaxBusVoltagePU:     1.12,
		MinBusVoltagePU:     0.88,
		MaxBranchLoadingPct: 120,
		MaxTrafoLoadingPct:  120,
		MaxSwingBusPowerPMW: 1000,
		BranchRate:          "Rate2",
		TrafoRate:           "Rate1",
	}
}

// WithDefaults fills zero fields from the base defaults so partially
// specified config limits behave predictably.
func (l Limits) WithDefaults() Limits {
	d := DefaultLimits()
	if l.MaxBusVoltagePU == 0 {
		l.MaxBusVoltagePU = d.MaxBusVoltagePU
	}
	if l.MinBusVoltagePU == 0 {
		l.MinBusVoltagePU = d.MinBusVoltagePU
	}
	if l.MaxBranchLoadingPct == 0 {
		l.MaxBranchLoadingPct = d.MaxBranchLoadingPct
	}
	if l.MaxTrafoLoadingPct == 0 {
		l.MaxTrafoLoadingPct = d.MaxTrafoLoadingPct
	}
	if l.MaxSwingBusPowerPMW == 0 {
		l.MaxSwingBusPowerPMW = d.MaxSwingBusPowerPMW
	}
	if l.BranchRate == "" {
		l.BranchRate = d.BranchRate
	}
	if l.TrafoRate == "" {
		l.TrafoRate = d.TrafoRate
	}
	return l
}
