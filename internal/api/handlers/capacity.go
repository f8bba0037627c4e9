package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"gridcapacity/internal/api/models"
	"gridcapacity/internal/backends/native"
	"gridcapacity/internal/capacity"
	"gridcapacity/internal/envs"
	"gridcapacity/internal/history"
	"gridcapacity/internal/violations"
)

// CapacityHandler runs capacity analyses synchronously and records them
// in the run history.
type CapacityHandler struct {
	store   *history.Store
	caseDir string
	env     envs.Envs
	log     *zap.Logger
}

// NewCapacityHandler creates a capacity handler.
func NewCapacityHandler(store *history.Store, caseDir string, env envs.Envs, log *zap.Logger) *CapacityHandler {
	return &CapacityHandler{store: store, caseDir: caseDir, env: env, log: log}
}

// Run handles POST /v1/capacity.
func (h *CapacityHandler) Run(c *gin.Context) {
	var req models.CapacityRunRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "INVALID_REQUEST", err.Error())
		return
	}

	params := capacity.Params{
		CaseName:             resolveCase(h.caseDir, req.CaseName),
		UpperLoadLimitPMW:    req.UpperLoadLimitPMW,
		UpperGenLimitPMW:     req.UpperGenLimitPMW,
		LoadPowerFactor:      req.LoadPowerFactor,
		GenPowerFactor:       req.GenPowerFactor,
		SelectedBusesIDs:     req.SelectedBusesIDs,
		HeadroomTolerancePMW: req.HeadroomToleranceP,
		MaxIterations:        req.MaxIterations,
		SolverOpts:           req.SolverOpts,
		NormalLimits:         req.NormalLimits,
		ContingencyLimits:    req.ContingencyLimits,
		ContingencyScenario:  req.ContingencyScenario,
		ConnectionScenario:   req.ConnectionScenario,
	}

	started := time.Now()
	checker := violations.NewChecker(h.log, h.env.TreatViolationsAsWarnings)
	analyser, err := capacity.NewAnalyser(native.New(), checker, h.log, params)
	if err != nil {
		writeError(c, http.StatusUnprocessableEntity, "ANALYSIS_FAILED", err.Error())
		return
	}
	headroom, err := analyser.BusesHeadroom()
	if err != nil {
		writeError(c, http.StatusUnprocessableEntity, "ANALYSIS_FAILED", err.Error())
		return
	}

	payload, err := history.MarshalHeadroom(headroom)
	if err != nil {
		writeError(c, http.StatusInternalServerError, "INTERNAL_ERROR", err.Error())
		return
	}
	configJSON, err := json.Marshal(req)
	if err != nil {
		writeError(c, http.StatusInternalServerError, "INTERNAL_ERROR", err.Error())
		return
	}
	run := history.Run{
		CaseName:   req.CaseName,
		StartedAt:  started,
		Duration:   time.Since(started),
		Feasible:   countFeasible(headroom),
		Total:      len(headroom),
		PowerFlows: analyser.PowerFlowCount(),
		Config:     configJSON,
		Headroom:   payload,
	}
	id, err := h.store.Insert(c.Request.Context(), run)
	if err != nil {
		h.log.Error("store capacity run", zap.Error(err))
		writeError(c, http.StatusInternalServerError, "INTERNAL_ERROR", "failed to store run")
		return
	}
	h.log.Info("capacity run finished",
		zap.Int64("run_id", id),
		zap.String("case_name", req.CaseName),
		zap.Int("buses", run.Total),
		zap.Int("power_flows", run.PowerFlows),
		zap.Duration("duration", run.Duration))

	c.JSON(http.StatusCreated, gin.H{
		"run": models.RunInfo{
			ID:         id,
			CaseName:   run.CaseName,
			StartedAt:  run.StartedAt,
			DurationMS: run.Duration.Milliseconds(),
			Feasible:   run.Feasible,
			Total:      run.Total,
			PowerFlows: run.PowerFlows,
		},
		"headroom": payload,
	})
}

func countFeasible(headroom capacity.Headroom) int {
	n := 0
	for _, h := range headroom {
		if h.LoadAvailMVA != 0 {
			n++
		}
	}
	return n
}
