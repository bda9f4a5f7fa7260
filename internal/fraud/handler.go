package fraud

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/richxcame/claims-fraud/internal/claims"
	"github.com/richxcame/claims-fraud/pkg/common"
	"github.com/richxcame/claims-fraud/pkg/logger"
	"github.com/richxcame/claims-fraud/pkg/pagination"
	"go.uber.org/zap"
)

// Handler serves live scores, alert review and resync
type Handler struct {
	scorer  *Scorer
	alerts  *AlertService
	sync    *SyncPipeline
	insured InsuredSource
}

// NewHandler creates a new fraud handler
func NewHandler(scorer *Scorer, alerts *AlertService, sync *SyncPipeline, insured InsuredSource) *Handler {
	return &Handler{scorer: scorer, alerts: alerts, sync: sync, insured: insured}
}

// GetLiveScore returns the current score of an insured party. A graph outage
// yields 200 with available=false.
func (h *Handler) GetLiveScore(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	if _, err := h.insured.GetInsured(c.Request.Context(), id); err != nil {
		if errors.Is(err, claims.ErrNotFound) {
			common.ErrorResponse(c, http.StatusNotFound, "insured party not found")
			return
		}
		common.AppErrorResponse(c, claims.ToAppError(err))
		return
	}

	live := h.scorer.LiveScore(c.Request.Context(), id)
	if !live.Available {
		common.SuccessResponseWithStatus(c, http.StatusOK, live, "fraud score unavailable: graph store unreachable")
		return
	}
	common.SuccessResponse(c, live)
}

// GetClaimAlert returns the alert raised for a claim
func (h *Handler) GetClaimAlert(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	alert, err := h.alerts.GetAlertByClaim(c.Request.Context(), id)
	if err != nil {
		h.renderError(c, err)
		return
	}
	common.SuccessResponse(c, alert)
}

// ListAlerts returns alerts, optionally filtered with ?resolved=true|false
func (h *Handler) ListAlerts(c *gin.Context) {
	var resolved *bool
	if v := c.Query("resolved"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			common.ErrorResponse(c, http.StatusBadRequest, "invalid resolved filter")
			return
		}
		resolved = &b
	}
	page := pagination.ParseParams(c)

	alerts, total, err := h.alerts.ListAlerts(c.Request.Context(), resolved, page.Limit, page.Offset)
	if err != nil {
		h.renderError(c, err)
		return
	}
	common.SuccessResponseWithMeta(c, alerts, pagination.BuildMeta(page.Limit, page.Offset, total))
}

// ResolveAlert marks an alert reviewed
func (h *Handler) ResolveAlert(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	alert, err := h.alerts.ResolveAlert(c.Request.Context(), id)
	if err != nil {
		h.renderError(c, err)
		return
	}
	common.SuccessResponse(c, alert)
}

// Resync rebuilds the graph mirror from the relational store
func (h *Handler) Resync(c *gin.Context) {
	report, err := h.sync.Resync(c.Request.Context())
	if err != nil {
		logger.WithContext(c.Request.Context()).Error("resync aborted", zap.Error(err))
		common.AppErrorResponse(c, common.NewServiceUnavailableError("resync aborted", err))
		return
	}
	if report.Failed > 0 {
		common.SuccessResponseWithStatus(c, http.StatusMultiStatus, report, "some insured parties failed to sync")
		return
	}
	common.SuccessResponse(c, report)
}

// RegisterRoutes registers fraud routes. resyncGuards run before the resync
// handler, typically a rate limiter.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, resyncGuards ...gin.HandlerFunc) {
	rg.GET("/insured/:id/live-score", h.GetLiveScore)
	rg.GET("/claims/:id/alert", h.GetClaimAlert)

	fraud := rg.Group("/fraud")
	{
		fraud.GET("/alerts", h.ListAlerts)
		fraud.POST("/alerts/:id/resolve", h.ResolveAlert)
		chain := append(append([]gin.HandlerFunc{}, resyncGuards...), h.Resync)
		fraud.POST("/resync", chain...)
	}
}

func (h *Handler) renderError(c *gin.Context, err error) {
	if errors.Is(err, ErrAlertNotFound) {
		common.ErrorResponse(c, http.StatusNotFound, "fraud alert not found")
		return
	}
	logger.WithContext(c.Request.Context()).Error("fraud request failed", zap.Error(err))
	common.ErrorResponse(c, http.StatusInternalServerError, "internal server error")
}

func parseID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		common.ErrorResponse(c, http.StatusBadRequest, "invalid id")
		return 0, false
	}
	return id, true
}
