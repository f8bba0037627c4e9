package handlers

import (
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"gridcapacity/internal/api/models"
	"gridcapacity/internal/history"
)

// RunsHandler serves the stored run history.
type RunsHandler struct {
	store *history.Store
	log   *zap.Logger
}

// NewRunsHandler creates a runs handler.
func NewRunsHandler(store *history.Store, log *zap.Logger) *RunsHandler {
	return &RunsHandler{store: store, log: log}
}

// List handles GET /v1/runs.
func (h *RunsHandler) List(c *gin.Context) {
	limit := 50
	if raw := c.Query("limit"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v < 1 {
			writeError(c, http.StatusBadRequest, "INVALID_REQUEST", "limit must be a positive integer")
			return
		}
		limit = v
	}
	runs, err := h.store.List(c.Request.Context(), limit)
	if err != nil {
		h.log.Error("list runs", zap.Error(err))
		writeError(c, http.StatusInternalServerError, "INTERNAL_ERROR", "failed to list runs")
		return
	}
	infos := make([]models.RunInfo, len(runs))
	for i, run := range runs {
		infos[i] = runInfo(run)
	}
	c.JSON(http.StatusOK, gin.H{"runs": infos})
}

// Get handles GET /v1/runs/:id, including the config and headroom
// payloads.
func (h *RunsHandler) Get(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		writeError(c, http.StatusBadRequest, "INVALID_REQUEST", "run id must be an integer")
		return
	}
	run, err := h.store.Get(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			writeError(c, http.StatusNotFound, "RUN_NOT_FOUND", "No run with that id")
			return
		}
		h.log.Error("get run", zap.Int64("run_id", id), zap.Error(err))
		writeError(c, http.StatusInternalServerError, "INTERNAL_ERROR", "failed to load run")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"run":      runInfo(run),
		"config":   json.RawMessage(run.Config),
		"headroom": json.RawMessage(run.Headroom),
	})
}

func runInfo(run history.Run) models.RunInfo {
	return models.RunInfo{
		ID:         run.ID,
		CaseName:   run.CaseName,
		StartedAt:  run.StartedAt,
		DurationMS: run.Duration.Milliseconds(),
		Feasible:   run.Feasible,
		Total:      run.Total,
		PowerFlows: run.PowerFlows,
	}
}
