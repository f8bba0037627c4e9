// Package handlers implements the API endpoints: the solver session
// protocol, capacity analysis runs, run history and case listing.
package handlers

import (
	"errors"
	"net/http"
	"os"
	"path/filepath"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"gridcapacity/internal/api/models"
	"gridcapacity/internal/backends"
	"gridcapacity/internal/backends/native"
)

// SessionHandler serves the stateful solver session protocol. Remote
// backend clients drive these endpoints one power flow at a time.
type SessionHandler struct {
	store   *SessionStore
	caseDir string
	log     *zap.Logger
}

// NewSessionHandler creates a session handler. Relative case names are
// resolved inside caseDir.
func NewSessionHandler(store *SessionStore, caseDir string, log *zap.Logger) *SessionHandler {
	return &SessionHandler{store: store, caseDir: caseDir, log: log}
}

// resolveCase maps a requested case name onto the server case directory.
func resolveCase(caseDir, caseName string) string {
	if filepath.IsAbs(caseName) {
		return caseName
	}
	candidate := filepath.Join(caseDir, caseName)
	if _, err := os.Stat(candidate); err == nil {
		return candidate
	}
	return caseName
}

func writeError(c *gin.Context, status int, code, message string) {
	c.JSON(status, models.ErrorResponse{
		Error: models.ErrorDetail{Code: code, Message: message},
	})
}

func (h *SessionHandler) session(c *gin.Context) (*Session, bool) {
	session, ok := h.store.Get(c.Param("id"))
	if !ok {
		writeError(c, http.StatusNotFound, "SESSION_NOT_FOUND", "Unknown or expired session")
		return nil, false
	}
	return session, true
}

// Create handles POST /v1/sessions.
func (h *SessionHandler) Create(c *gin.Context) {
	var req models.CreateSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "INVALID_REQUEST", err.Error())
		return
	}
	if (req.CaseName == "") == (req.Network == nil) {
		writeError(c, http.StatusBadRequest, "INVALID_REQUEST",
			"exactly one of case_name and network must be given")
		return
	}

	backend := native.New()
	if req.CaseName != "" {
		if err := backend.OpenCase(resolveCase(h.caseDir, req.CaseName)); err != nil {
			writeError(c, http.StatusBadRequest, "CASE_OPEN_FAILED", err.Error())
			return
		}
	} else {
		if err := req.Network.Validate(); err != nil {
			writeError(c, http.StatusBadRequest, "INVALID_CASE", err.Error())
			return
		}
		backend.OpenNetwork("uploaded", req.Network)
	}
	session := h.store.Create(backend)
	h.log.Info("session created",
		zap.String("session_id", session.ID),
		zap.String("case_name", backend.CaseName()))
	c.JSON(http.StatusCreated, models.SessionResponse{
		SessionID: session.ID,
		CaseName:  backend.CaseName(),
		CreatedAt: session.CreatedAt,
		ExpiresAt: session.ExpiresAt(),
	})
}

// Delete handles DELETE /v1/sessions/:id.
func (h *SessionHandler) Delete(c *gin.Context) {
	h.store.Delete(c.Param("id"))
	c.Status(http.StatusNoContent)
}

// Open handles POST /v1/sessions/:id/open, restoring the pristine case.
func (h *SessionHandler) Open(c *gin.Context) {
	var req models.OpenCaseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "INVALID_REQUEST", err.Error())
		return
	}
	session, ok := h.session(c)
	if !ok {
		return
	}
	session.Lock()
	defer session.Unlock()
	if err := session.Backend.OpenCase(resolveCase(h.caseDir, req.CaseName)); err != nil {
		writeError(c, http.StatusBadRequest, "CASE_OPEN_FAILED", err.Error())
		return
	}
	c.Status(http.StatusNoContent)
}

// Solve handles POST /v1/sessions/:id/solve.
func (h *SessionHandler) Solve(c *gin.Context) {
	var req models.SolveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "INVALID_REQUEST", err.Error())
		return
	}
	session, ok := h.session(c)
	if !ok {
		return
	}
	session.Lock()
	defer session.Unlock()
	err := session.Backend.RunSolver(backends.SolveOptions{
		FullNewtonRaphson: req.FullNewtonRaphson,
		Raw:               req.Options,
	})
	if err != nil {
		writeError(c, http.StatusUnprocessableEntity, "SOLVE_FAILED", err.Error())
		return
	}
	results := session.Backend.LastResults()
	c.JSON(http.StatusOK, models.SolveResponse{
		Converged:  results.Converged,
		Iterations: results.Iterations,
	})
}

// Network handles GET /v1/sessions/:id/network.
func (h *SessionHandler) Network(c *gin.Context) {
	session, ok := h.session(c)
	if !ok {
		return
	}
	session.Lock()
	defer session.Unlock()
	c.JSON(http.StatusOK, session.Backend.Network())
}

// Results handles GET /v1/sessions/:id/results.
func (h *SessionHandler) Results(c *gin.Context) {
	session, ok := h.session(c)
	if !ok {
		return
	}
	session.Lock()
	defer session.Unlock()
	results := session.Backend.LastResults()
	if results == nil {
		writeError(c, http.StatusConflict, "NO_RESULTS", "No solver run in this session yet")
		return
	}
	c.JSON(http.StatusOK, models.ResultsResponse{
		Converged:       results.Converged,
		Iterations:      results.Iterations,
		BusVmPU:         models.WrapFloats(results.BusVmPU),
		BusVaRad:        models.WrapFloats(results.BusVaRad),
		BranchFlowsMVA:  results.BranchFlowsMVA,
		TrafoFlowsMVA:   results.TrafoFlowsMVA,
		Trafo3wFlowsMVA: results.Trafo3wFlowsMVA,
		SwingPMW:        results.SwingPMW,
	})
}

// Modify handles POST /v1/sessions/:id/modifications.
func (h *SessionHandler) Modify(c *gin.Context) {
	var req models.ModifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "INVALID_REQUEST", err.Error())
		return
	}
	session, ok := h.session(c)
	if !ok {
		return
	}
	session.Lock()
	defer session.Unlock()

	if err := applyModification(session.Backend, req); err != nil {
		status := http.StatusUnprocessableEntity
		var unknownOp *unknownOpError
		if errors.As(err, &unknownOp) {
			status = http.StatusBadRequest
		}
		writeError(c, status, "MODIFICATION_FAILED", err.Error())
		return
	}
	c.Status(http.StatusNoContent)
}

type unknownOpError struct{ op string }

func (e *unknownOpError) Error() string { return "unknown op " + e.op }

func applyModification(b backends.Backend, req models.ModifyRequest) error {
	switch req.Op {
	case models.OpAddLoad:
		return b.AddLoad(req.BusNumber, req.ID, req.MVA)
	case models.OpRemoveLoad:
		return b.RemoveLoad(req.BusNumber, req.ID)
	case models.OpAddMachine:
		return b.AddMachine(req.BusNumber, req.ID, req.MVA)
	case models.OpRemoveMachine:
		return b.RemoveMachine(req.BusNumber, req.ID)
	case models.OpSetBranchStatus:
		if req.Element == nil {
			return errors.New("set_branch_status requires element")
		}
		for _, branch := range b.Branches() {
			if branch.FromNumber == req.Element.FromNumber &&
				branch.ToNumber == req.Element.ToNumber &&
				(req.Element.ID == "" || branch.ID == req.Element.ID) {
				return b.SetBranchStatus(branch, req.InService)
			}
		}
		return errors.New("branch not found")
	case models.OpSetTrafoStatus:
		if req.Element == nil {
			return errors.New("set_trafo_status requires element")
		}
		for _, trafo := range b.Trafos() {
			if trafo.FromNumber == req.Element.FromNumber &&
				trafo.ToNumber == req.Element.ToNumber &&
				(req.Element.ID == "" || trafo.ID == req.Element.ID) {
				return b.SetTrafoStatus(trafo, req.InService)
			}
		}
		return errors.New("trafo not found")
	default:
		return &unknownOpError{op: req.Op}
	}
}
