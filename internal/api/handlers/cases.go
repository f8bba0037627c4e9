package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"gridcapacity/internal/caseio"
)

// CasesHandler lists the case files available on the server.
type CasesHandler struct {
	caseDir string
	log     *zap.Logger
}

// NewCasesHandler creates a cases handler over caseDir.
func NewCasesHandler(caseDir string, log *zap.Logger) *CasesHandler {
	return &CasesHandler{caseDir: caseDir, log: log}
}

// List handles GET /v1/cases.
func (h *CasesHandler) List(c *gin.Context) {
	cases, err := caseio.ListCases(h.caseDir)
	if err != nil {
		h.log.Error("list cases", zap.String("case_dir", h.caseDir), zap.Error(err))
		writeError(c, http.StatusInternalServerError, "INTERNAL_ERROR", "failed to list cases")
		return
	}
	c.JSON(http.StatusOK, gin.H{"cases": cases})
}

// Health handles GET /v1/health.
func Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
