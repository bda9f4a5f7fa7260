package claims

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/richxcame/claims-fraud/pkg/common"
	"github.com/richxcame/claims-fraud/pkg/logger"
	"github.com/richxcame/claims-fraud/pkg/pagination"
	"github.com/richxcame/claims-fraud/pkg/validation"
	"go.uber.org/zap"
)

// syncPendingMessage accompanies a 2xx response whose graph mirror or alerting step failed.
const syncPendingMessage = "saved; fraud index update pending, run a resync"

// Handler handles HTTP requests for insured parties and claims
type Handler struct {
	service *Service
}

// NewHandler creates a new claims handler
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// CreateInsured creates an insured party
func (h *Handler) CreateInsured(c *gin.Context) {
	var req CreateInsuredRequest
	if !bindAndValidate(c, &req) {
		return
	}

	party, err := h.service.CreateInsured(c.Request.Context(), &req)
	if err != nil && !IsSyncError(err) {
		h.renderError(c, err)
		return
	}
	respondSaved(c, http.StatusCreated, party, err)
}

// GetInsured returns an insured party
func (h *Handler) GetInsured(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	party, err := h.service.GetInsured(c.Request.Context(), id)
	if err != nil {
		h.renderError(c, err)
		return
	}
	common.SuccessResponse(c, party)
}

// ListInsured returns a page of insured parties
func (h *Handler) ListInsured(c *gin.Context) {
	page := pagination.ParseParams(c)

	parties, total, err := h.service.ListInsured(c.Request.Context(), page.Limit, page.Offset)
	if err != nil {
		h.renderError(c, err)
		return
	}
	common.SuccessResponseWithMeta(c, parties, pagination.BuildMeta(page.Limit, page.Offset, total))
}

// UpdateInsured updates an insured party
func (h *Handler) UpdateInsured(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	var req UpdateInsuredRequest
	if !bindAndValidate(c, &req) {
		return
	}

	party, err := h.service.UpdateInsured(c.Request.Context(), id, &req)
	if err != nil && !IsSyncError(err) {
		h.renderError(c, err)
		return
	}
	respondSaved(c, http.StatusOK, party, err)
}

// DeleteInsured deletes an insured party with no claims
func (h *Handler) DeleteInsured(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	err := h.service.DeleteInsured(c.Request.Context(), id)
	if err != nil && !IsSyncError(err) {
		h.renderError(c, err)
		return
	}
	respondSaved(c, http.StatusOK, gin.H{"id": id, "deleted": true}, err)
}

// CreateClaim files a claim
func (h *Handler) CreateClaim(c *gin.Context) {
	var req CreateClaimRequest
	if !bindAndValidate(c, &req) {
		return
	}

	claim, err := h.service.CreateClaim(c.Request.Context(), &req)
	if err != nil && !IsSyncError(err) {
		if errors.Is(err, ErrNotFound) {
			common.ErrorResponse(c, http.StatusBadRequest, "insured party not found")
			return
		}
		h.renderError(c, err)
		return
	}
	respondSaved(c, http.StatusCreated, ToClaimResponse(claim), err)
}

// GetClaim returns a claim
func (h *Handler) GetClaim(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	claim, err := h.service.GetClaim(c.Request.Context(), id)
	if err != nil {
		h.renderError(c, err)
		return
	}
	common.SuccessResponse(c, ToClaimResponse(claim))
}

// ListClaims returns claims filtered by insured_id, status and min_score
func (h *Handler) ListClaims(c *gin.Context) {
	page := pagination.ParseParams(c)
	filter := ClaimFilter{Limit: page.Limit, Offset: page.Offset}

	if v := c.Query("insured_id"); v != "" {
		insuredID, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			common.ErrorResponse(c, http.StatusBadRequest, "invalid insured_id")
			return
		}
		filter.InsuredID = &insuredID
	}
	if v := c.Query("status"); v != "" {
		status := ClaimStatus(v)
		filter.Status = &status
	}
	if v := c.Query("min_score"); v != "" {
		minScore, err := strconv.ParseFloat(v, 64)
		if err != nil {
			common.ErrorResponse(c, http.StatusBadRequest, "invalid min_score")
			return
		}
		filter.MinScore = &minScore
	}

	result, total, err := h.service.ListClaims(c.Request.Context(), filter)
	if err != nil {
		h.renderError(c, err)
		return
	}

	responses := make([]*ClaimResponse, len(result))
	for i, claim := range result {
		responses[i] = ToClaimResponse(claim)
	}
	common.SuccessResponseWithMeta(c, responses, pagination.BuildMeta(page.Limit, page.Offset, total))
}

// UpdateClaim updates a claim and re-scores it
func (h *Handler) UpdateClaim(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	var req UpdateClaimRequest
	if !bindAndValidate(c, &req) {
		return
	}

	claim, err := h.service.UpdateClaim(c.Request.Context(), id, &req)
	if err != nil && !IsSyncError(err) {
		h.renderError(c, err)
		return
	}
	respondSaved(c, http.StatusOK, ToClaimResponse(claim), err)
}

// RegisterRoutes registers insured party and claim routes
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	insured := rg.Group("/insured")
	{
		insured.POST("", h.CreateInsured)
		insured.GET("", h.ListInsured)
		insured.GET("/:id", h.GetInsured)
		insured.PUT("/:id", h.UpdateInsured)
		insured.DELETE("/:id", h.DeleteInsured)
	}

	claims := rg.Group("/claims")
	{
		claims.POST("", h.CreateClaim)
		claims.GET("", h.ListClaims)
		claims.GET("/:id", h.GetClaim)
		claims.PUT("/:id", h.UpdateClaim)
	}
}

func (h *Handler) renderError(c *gin.Context, err error) {
	common.AppErrorResponse(c, ToAppError(err))
}

// ToAppError maps claims errors onto HTTP errors
func ToAppError(err error) *common.AppError {
	var appErr *common.AppError
	switch {
	case errors.As(err, &appErr):
		return appErr
	case errors.Is(err, ErrNotFound):
		return common.NewNotFoundError("record not found", err)
	case errors.Is(err, ErrDuplicateIdentifier):
		return common.NewConflictError("a record with this identifier already exists", err)
	case errors.Is(err, ErrReferentialBlock):
		return common.NewConflictError("insured party has claims and cannot be deleted", err)
	case errors.Is(err, ErrInvalidInput):
		return common.NewBadRequestError(err.Error(), err)
	default:
		logger.Error("unexpected claims error", zap.Error(err))
		return common.NewInternalServerError("internal server error", err)
	}
}

func respondSaved(c *gin.Context, status int, data interface{}, err error) {
	if err != nil {
		logger.WithContext(c.Request.Context()).Warn("record saved with pending fraud index update", zap.Error(err))
		common.SuccessResponseWithStatus(c, status, data, syncPendingMessage)
		return
	}
	common.SuccessResponseWithStatus(c, status, data, "")
}

func bindAndValidate(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		common.ErrorResponse(c, http.StatusBadRequest, "invalid request body")
		return false
	}
	if err := validation.ValidateStruct(req); err != nil {
		common.ErrorResponse(c, http.StatusBadRequest, err.Error())
		return false
	}
	return true
}

func parseID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		common.ErrorResponse(c, http.StatusBadRequest, "invalid id")
		return 0, false
	}
	return id, true
}
