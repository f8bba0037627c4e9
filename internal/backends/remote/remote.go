// Package remote is a client for a solver service speaking the session
// protocol. It mirrors the network locally so element accessors stay cheap
// and loading percentages can be derived without extra round trips.
package remote

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"gridcapacity/internal/api/models"
	"gridcapacity/internal/backends"
	"gridcapacity/internal/model"
	"gridcapacity/internal/powerflow"
)

// Error is a typed solver service error.
type Error struct {
	StatusCode int
	Code       string
	Message    string
	RetryAfter string
}

func (e *Error) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("solver service: %s: %s", e.Code, e.Message)
	}
	return "solver service: " + e.Message
}

// Backend talks to a remote solver session.
type Backend struct {
	baseURL string
	client  *http.Client
	log     *zap.Logger

	sessionID string
	caseName  string
	net       *model.Network
	results   *powerflow.Results
}

var _ backends.Backend = (*Backend)(nil)

// New returns a client for the solver service at baseURL.
func New(baseURL string, log *zap.Logger) *Backend {
	if log == nil {
		log = zap.NewNop()
	}
	return &Backend{
		baseURL: baseURL,
		client:  &http.Client{Timeout: 60 * time.Second},
		log:     log,
	}
}

// OpenCase opens a case on the server, creating a session on first use,
// then downloads the network mirror.
func (b *Backend) OpenCase(caseName string) error {
	if b.sessionID == "" {
		var resp models.SessionResponse
		err := b.do(http.MethodPost, "/v1/sessions",
			models.CreateSessionRequest{CaseName: caseName}, &resp)
		if err != nil {
			return err
		}
		b.sessionID = resp.SessionID
		b.log.Debug("solver session created",
			zap.String("session_id", resp.SessionID),
			zap.String("case_name", caseName))
	} else {
		err := b.do(http.MethodPost, b.sessionPath("/open"),
			models.OpenCaseRequest{CaseName: caseName}, nil)
		if err != nil {
			return err
		}
	}
	b.caseName = caseName
	b.results = nil
	return b.refreshNetwork()
}

// CaseName reports the open case name.
func (b *Backend) CaseName() string { return b.caseName }

// Network exposes the local mirror of the server-side network.
func (b *Backend) Network() *model.Network { return b.net }

// RunSolver runs a power flow on the server and downloads the results.
func (b *Backend) RunSolver(opts backends.SolveOptions) error {
	if b.sessionID == "" {
		return fmt.Errorf("no case open")
	}
	req := models.SolveRequest{
		FullNewtonRaphson: opts.FullNewtonRaphson,
		Options:           opts.Raw,
	}
	var solve models.SolveResponse
	if err := b.do(http.MethodPost, b.sessionPath("/solve"), req, &solve); err != nil {
		return err
	}
	var res models.ResultsResponse
	if err := b.do(http.MethodGet, b.sessionPath("/results"), nil, &res); err != nil {
		return err
	}
	b.results = &powerflow.Results{
		Converged:       res.Converged,
		Iterations:      res.Iterations,
		BusVmPU:         models.Floats(res.BusVmPU),
		BusVaRad:        models.Floats(res.BusVaRad),
		BranchFlowsMVA:  res.BranchFlowsMVA,
		TrafoFlowsMVA:   res.TrafoFlowsMVA,
		Trafo3wFlowsMVA: res.Trafo3wFlowsMVA,
		SwingPMW:        res.SwingPMW,
	}
	return nil
}

// Converged reports whether the last run converged.
func (b *Backend) Converged() bool {
	return b.results != nil && b.results.Converged
}

func (b *Backend) Buses() []model.Bus { return b.net.Buses }

func (b *Backend) BusVoltagesPU() []float64 {
	if b.results == nil {
		return nil
	}
	return b.results.BusVmPU
}

func (b *Backend) Branches() []model.Branch { return b.net.Branches }

func (b *Backend) BranchLoadingsPct(rateName string) ([]float64, error) {
	if b.results == nil {
		return nil, fmt.Errorf("no solver results")
	}
	return b.results.BranchLoadingsPct(b.net, rateName)
}

func (b *Backend) Trafos() []model.Trafo { return b.net.Trafos }

func (b *Backend) TrafoLoadingsPct(rateName string) ([]float64, error) {
	if b.results == nil {
		return nil, fmt.Errorf("no solver results")
	}
	return b.results.TrafoLoadingsPct(b.net, rateName)
}

func (b *Backend) Trafos3w() []model.Trafo3w { return b.net.Trafos3w }

func (b *Backend) Trafo3wLoadingsPct(rateName string) ([]float64, error) {
	if b.results == nil {
		return nil, fmt.Errorf("no solver results")
	}
	return b.results.Trafo3wLoadingsPct(b.net, rateName)
}

func (b *Backend) SwingBuses() []model.SwingBus { return b.net.SwingBuses }

func (b *Backend) SwingBusPowersMW() []float64 {
	if b.results == nil {
		return nil
	}
	return b.results.SwingPMW
}

func (b *Backend) Loads() []model.Load { return b.net.Loads }

func (b *Backend) Machines() []model.Machine { return b.net.Machines }

func (b *Backend) AddLoad(busNumber int, loadID string, mva model.PowerMVA) error {
	return b.modify(models.ModifyRequest{
		Op: models.OpAddLoad, BusNumber: busNumber, ID: loadID, MVA: mva,
	}, func() error { return b.net.AddLoad(busNumber, loadID, mva) })
}

func (b *Backend) RemoveLoad(busNumber int, loadID string) error {
	return b.modify(models.ModifyRequest{
		Op: models.OpRemoveLoad, BusNumber: busNumber, ID: loadID,
	}, func() error { return b.net.RemoveLoad(busNumber, loadID) })
}

func (b *Backend) AddMachine(busNumber int, machineID string, mva model.PowerMVA) error {
	return b.modify(models.ModifyRequest{
		Op: models.OpAddMachine, BusNumber: busNumber, ID: machineID, MVA: mva,
	}, func() error { return b.net.AddMachine(busNumber, machineID, mva) })
}

func (b *Backend) RemoveMachine(busNumber int, machineID string) error {
	return b.modify(models.ModifyRequest{
		Op: models.OpRemoveMachine, BusNumber: busNumber, ID: machineID,
	}, func() error { return b.net.RemoveMachine(busNumber, machineID) })
}

func (b *Backend) SetBranchStatus(branch model.Branch, inService bool) error {
	ref := &models.ElementRef{
		FromNumber: branch.FromNumber, ToNumber: branch.ToNumber, ID: branch.ID,
	}
	return b.modify(models.ModifyRequest{
		Op: models.OpSetBranchStatus, Element: ref, InService: inService,
	}, func() error {
		return b.net.SetBranchStatus(branch.FromNumber, branch.ToNumber, branch.ID, inService)
	})
}

func (b *Backend) SetTrafoStatus(trafo model.Trafo, inService bool) error {
	ref := &models.ElementRef{
		FromNumber: trafo.FromNumber, ToNumber: trafo.ToNumber, ID: trafo.ID,
	}
	return b.modify(models.ModifyRequest{
		Op: models.OpSetTrafoStatus, Element: ref, InService: inService,
	}, func() error {
		return b.net.SetTrafoStatus(trafo.FromNumber, trafo.ToNumber, trafo.ID, inService)
	})
}

// Close deletes the server session.
func (b *Backend) Close() error {
	if b.sessionID == "" {
		return nil
	}
	err := b.do(http.MethodDelete, b.sessionPath(""), nil, nil)
	b.sessionID = ""
	b.caseName = ""
	b.net = nil
	b.results = nil
	return err
}

// modify sends a modification and keeps the local mirror in step. Results
// are stale after any modification.
func (b *Backend) modify(req models.ModifyRequest, local func() error) error {
	if b.sessionID == "" {
		return fmt.Errorf("no case open")
	}
	if err := b.do(http.MethodPost, b.sessionPath("/modifications"), req, nil); err != nil {
		return err
	}
	b.results = nil
	return local()
}

func (b *Backend) refreshNetwork() error {
	var net model.Network
	if err := b.do(http.MethodGet, b.sessionPath("/network"), nil, &net); err != nil {
		return err
	}
	b.net = &net
	return nil
}

func (b *Backend) sessionPath(suffix string) string {
	return "/v1/sessions/" + b.sessionID + suffix
}

// do executes one request against the service and decodes the response.
// Non-2xx responses are mapped to *Error using the service error envelope.
func (b *Backend) do(method, path string, body, out any) error {
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequest(method, b.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := b.client.Do(req)
	if err != nil {
		b.log.Debug("solver service request failed",
			zap.String("method", method),
			zap.String("path", path),
			zap.Duration("duration", time.Since(start)),
			zap.Error(err))
		return fmt.Errorf("solver service request: %w", err)
	}
	defer resp.Body.Close()
	b.log.Debug("solver service response",
		zap.String("method", method),
		zap.String("path", path),
		zap.Int("status", resp.StatusCode),
		zap.Duration("duration", time.Since(start)))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &Error{
			StatusCode: resp.StatusCode,
			Code:       "API_ERROR",
			Message:    fmt.Sprintf("service returned status %d", resp.StatusCode),
			RetryAfter: resp.Header.Get("Retry-After"),
		}
		var envelope models.ErrorResponse
		if decodeErr := json.NewDecoder(resp.Body).Decode(&envelope); decodeErr == nil &&
			envelope.Error.Code != "" {
			apiErr.Code = envelope.Error.Code
			apiErr.Message = envelope.Error.Message
		}
		return apiErr
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode solver service response: %w", err)
	}
	return nil
}
