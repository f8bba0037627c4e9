package models

import (
	"gridcapacity/internal/capacity"
	"gridcapacity/internal/contingency"
	"gridcapacity/internal/model"
	"gridcapacity/internal/violations"
)

// CreateSessionRequest opens a solver session. Exactly one of CaseName or
// Network must be set: CaseName opens a case file on the server, Network
// uploads a case inline.
type CreateSessionRequest struct {
	CaseName string         `json:"case_name,omitempty"`
	Network  *model.Network `json:"network,omitempty"`
}

// OpenCaseRequest reopens a case inside an existing session, discarding
// every modification made so far.
type OpenCaseRequest struct {
	CaseName string `json:"case_name" binding:"required"`
}

// SolveRequest runs a power flow in the session.
type SolveRequest struct {
	FullNewtonRaphson bool           `json:"full_newton_raphson,omitempty"`
	Options           map[string]any `json:"options,omitempty"`
}

// Modification op names.
const (
	OpAddLoad         = "add_load"
	OpRemoveLoad      = "remove_load"
	OpAddMachine      = "add_machine"
	OpRemoveMachine   = "remove_machine"
	OpSetBranchStatus = "set_branch_status"
	OpSetTrafoStatus  = "set_trafo_status"
)

// ElementRef identifies a branch or transformer by its end buses and
// circuit id.
type ElementRef struct {
	FromNumber int    `json:"from_number"`
	ToNumber   int    `json:"to_number"`
	ID         string `json:"id,omitempty"`
}

// ModifyRequest applies one network modification to a session.
type ModifyRequest struct {
	Op string `json:"op" binding:"required"`

	// Injection ops.
	BusNumber int            `json:"bus_number,omitempty"`
	ID        string         `json:"id,omitempty"`
	MVA       model.PowerMVA `json:"mva,omitempty"`

	// Status ops.
	Element   *ElementRef `json:"element,omitempty"`
	InService bool        `json:"in_service,omitempty"`
}

// CapacityRunRequest starts a capacity analysis run. The config mirrors
// the CLI config file.
type CapacityRunRequest struct {
	CaseName           string         `json:"case_name" binding:"required"`
	UpperLoadLimitPMW  float64        `json:"upper_load_limit_p_mw"`
	UpperGenLimitPMW   float64        `json:"upper_gen_limit_p_mw"`
	LoadPowerFactor    float64        `json:"load_power_factor,omitempty"`
	GenPowerFactor     float64        `json:"gen_power_factor,omitempty"`
	SelectedBusesIDs   []int          `json:"selected_buses_ids,omitempty"`
	HeadroomToleranceP float64        `json:"headroom_tolerance_p_mw,omitempty"`
	MaxIterations      int            `json:"max_iterations,omitempty"`
	SolverOpts         map[string]any `json:"solver_opts,omitempty"`

	NormalLimits        *violations.Limits          `json:"normal_limits,omitempty"`
	ContingencyLimits   *violations.Limits          `json:"contingency_limits,omitempty"`
	ContingencyScenario *contingency.Scenario       `json:"contingency_scenario,omitempty"`
	ConnectionScenario  capacity.ConnectionScenario `json:"connection_scenario,omitempty"`
}
