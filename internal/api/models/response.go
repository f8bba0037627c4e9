package models

import (
	"math"
	"strconv"
	"time"
)

// Float is a float64 that survives JSON round trips when NaN: NaN encodes
// as null. Isolated buses report NaN voltages and encoding/json rejects
// bare NaN.
type Float float64

func (f Float) MarshalJSON() ([]byte, error) {
	v := float64(f)
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return []byte("null"), nil
	}
	return []byte(strconv.FormatFloat(v, 'g', -1, 64)), nil
}

func (f *Float) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*f = Float(math.NaN())
		return nil
	}
	v, err := strconv.ParseFloat(string(data), 64)
	if err != nil {
		return err
	}
	*f = Float(v)
	return nil
}

// Floats converts to a plain float64 slice.
func Floats(in []Float) []float64 {
	out := make([]float64, len(in))
	for i, v := range in {
		out[i] = float64(v)
	}
	return out
}

// WrapFloats converts from a plain float64 slice.
func WrapFloats(in []float64) []Float {
	out := make([]Float, len(in))
	for i, v := range in {
		out[i] = Float(v)
	}
	return out
}

// SessionResponse describes a solver session.
type SessionResponse struct {
	SessionID string    `json:"session_id"`
	CaseName  string    `json:"case_name"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// SolveResponse reports the outcome of a solver run.
type SolveResponse struct {
	Converged  bool `json:"converged"`
	Iterations int  `json:"iterations"`
}

// ResultsResponse carries the full solved state. Flows are rate-agnostic
// apparent powers; clients derive loadings from their network mirror.
type ResultsResponse struct {
	Converged  bool `json:"converged"`
	Iterations int  `json:"iterations"`

	BusVmPU  []Float `json:"bus_vm_pu"`
	BusVaRad []Float `json:"bus_va_rad"`

	BranchFlowsMVA  []float64 `json:"branch_flows_mva"`
	TrafoFlowsMVA   []float64 `json:"trafo_flows_mva"`
	Trafo3wFlowsMVA []float64 `json:"trafo3w_flows_mva"`
	SwingPMW        []float64 `json:"swing_p_mw"`
}

// RunInfo summarizes a stored capacity analysis run.
type RunInfo struct {
	ID         int64     `json:"id"`
	CaseName   string    `json:"case_name"`
	StartedAt  time.Time `json:"started_at"`
	DurationMS int64     `json:"duration_ms"`
	Feasible   int       `json:"feasible_buses"`
	Total      int       `json:"total_buses"`
	PowerFlows int       `json:"power_flows"`
}

// ErrorResponse is the uniform error envelope.
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail contains error information.
type ErrorDetail struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}
