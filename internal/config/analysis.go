// Package config loads the analysis config (JSON) and the API server
// config (YAML).
package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gridcapacity/internal/capacity"
	"gridcapacity/internal/contingency"
	"gridcapacity/internal/violations"
)

// Model is the analysis config file shape. Unknown keys are rejected so a
// typo cannot silently fall back to a default.
type Model struct {
	CaseName          string   `json:"case_name"`
	UpperLoadLimitPMW *float64 `json:"upper_load_limit_p_mw"`
	UpperGenLimitPMW  *float64 `json:"upper_gen_limit_p_mw"`

	LoadPowerFactor      *float64       `json:"load_power_factor,omitempty"`
	GenPowerFactor       *float64       `json:"gen_power_factor,omitempty"`
	SelectedBusesIDs     []int          `json:"selected_buses_ids,omitempty"`
	HeadroomTolerancePMW *float64       `json:"headroom_tolerance_p_mw,omitempty"`
	SolverOpts           map[string]any `json:"solver_opts,omitempty"`
	MaxIterations        *int           `json:"max_iterations,omitempty"`

	NormalLimits        *violations.Limits          `json:"normal_limits,omitempty"`
	ContingencyLimits   *violations.Limits          `json:"contingency_limits,omitempty"`
	ContingencyScenario *contingency.Scenario       `json:"contingency_scenario,omitempty"`
	ConnectionScenario  capacity.ConnectionScenario `json:"connection_scenario,omitempty"`
}

// Load reads and validates an analysis config. Relative paths resolve
// against the working directory.
func Load(path string) (*Model, error) {
	if !filepath.IsAbs(path) {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("resolve working directory: %w", err)
		}
		path = filepath.Join(wd, path)
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(raw)
}

// Parse decodes and validates a config document.
func Parse(raw []byte) (*Model, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	var m Model
	if err := dec.Decode(&m); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return &m, nil
}

// Validate checks required keys and value ranges, naming the offending
// key in every error.
func (m *Model) Validate() error {
	if m.CaseName == "" {
		return errors.New("case_name is required")
	}
	if m.UpperLoadLimitPMW == nil {
		return errors.New("upper_load_limit_p_mw is required")
	}
	if *m.UpperLoadLimitPMW < 0 {
		return errors.New("upper_load_limit_p_mw must be >= 0")
	}
	if m.UpperGenLimitPMW == nil {
		return errors.New("upper_gen_limit_p_mw is required")
	}
	if *m.UpperGenLimitPMW < 0 {
		return errors.New("upper_gen_limit_p_mw must be >= 0")
	}
	if err := validPowerFactor("load_power_factor", m.LoadPowerFactor); err != nil {
		return err
	}
	if err := validPowerFactor("gen_power_factor", m.GenPowerFactor); err != nil {
		return err
	}
	for _, id := range m.SelectedBusesIDs {
		if id < 0 {
			return fmt.Errorf("selected_buses_ids: bus id %d must be >= 0", id)
		}
	}
	if m.HeadroomTolerancePMW != nil && *m.HeadroomTolerancePMW < 0 {
		return errors.New("headroom_tolerance_p_mw must be >= 0")
	}
	if m.MaxIterations != nil && *m.MaxIterations < 1 {
		return errors.New("max_iterations must be >= 1")
	}
	for busID, connection := range m.ConnectionScenario {
		if connection.Load != nil {
			if err := validPowerFactor(
				fmt.Sprintf("connection_scenario.%s.load.pf", busID),
				connection.Load.PF); err != nil {
				return err
			}
		}
		if connection.Gen != nil {
			if err := validPowerFactor(
				fmt.Sprintf("connection_scenario.%s.gen.pf", busID),
				connection.Gen.PF); err != nil {
				return err
			}
		}
	}
	return nil
}

func validPowerFactor(key string, pf *float64) error {
	if pf == nil {
		return nil
	}
	if *pf < 0 || *pf > 1 {
		return fmt.Errorf("%s must be between 0 and 1", key)
	}
	return nil
}

// Params maps the config onto analysis parameters, applying defaults for
// omitted optional keys.
func (m *Model) Params() capacity.Params {
	p := capacity.Params{
		CaseName:            m.CaseName,
		UpperLoadLimitPMW:   *m.UpperLoadLimitPMW,
		UpperGenLimitPMW:    *m.UpperGenLimitPMW,
		SelectedBusesIDs:    m.SelectedBusesIDs,
		SolverOpts:          m.SolverOpts,
		NormalLimits:        m.NormalLimits,
		ContingencyLimits:   m.ContingencyLimits,
		ContingencyScenario: m.ContingencyScenario,
		ConnectionScenario:  m.ConnectionScenario,
	}
	if m.LoadPowerFactor != nil {
		p.LoadPowerFactor = *m.LoadPowerFactor
	}
	if m.GenPowerFactor != nil {
		p.GenPowerFactor = *m.GenPowerFactor
	}
	if m.HeadroomTolerancePMW != nil {
		p.HeadroomTolerancePMW = *m.HeadroomTolerancePMW
	}
	if m.MaxIterations != nil {
		p.MaxIterations = *m.MaxIterations
	}
	return p
}
