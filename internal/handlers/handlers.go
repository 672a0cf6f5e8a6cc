package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/stokhq/inventory-agent/internal/models"
	"github.com/stokhq/inventory-agent/internal/port"
	"github.com/stokhq/inventory-agent/internal/review"
)

// agentRunner triggers one decision pass.
type agentRunner interface {
	Run(ctx context.Context) (int, error)
}

// reviewer applies human decisions to pending actions.
type reviewer interface {
	Approve(ctx context.Context, actionID, reviewer string, qtyOverride *int, notes string) (*models.PendingAction, error)
	Reject(ctx context.Context, actionID, reviewer, reason string) (*models.PendingAction, error)
}

// forecaster serves per-SKU demand projections.
type forecaster interface {
	ForecastSKU(ctx context.Context, skuID string) (*models.ForecastResult, error)
}

// ranker recomputes the global supplier ranking.
type ranker interface {
	RankAll(ctx context.Context) error
}

// Handlers contains all HTTP request handlers
type Handlers struct {
	agent     agentRunner
	review    reviewer
	forecast  forecaster
	ranker    ranker
	actions   port.ActionRepository
	skus      port.SKURepository
	suppliers port.SupplierRepository
	logger    *zap.Logger
}

// NewHandlers creates a new Handlers instance
func NewHandlers(
	agent agentRunner,
	rev reviewer,
	forecast forecaster,
	rank ranker,
	actions port.ActionRepository,
	skus port.SKURepository,
	suppliers port.SupplierRepository,
	logger *zap.Logger,
) *Handlers {
	return &Handlers{
		agent:     agent,
		review:    rev,
		forecast:  forecast,
		ranker:    rank,
		actions:   actions,
		skus:      skus,
		suppliers: suppliers,
		logger:    logger,
	}
}

// Response is the standard JSON envelope
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// ActionResponse represents a pending action in API responses
type ActionResponse struct {
	ID               string                 `json:"id"`
	SKUID            string                 `json:"sku_id"`
	SKUCode          string                 `json:"sku_code,omitempty"`
	SKUName          string                 `json:"sku_name,omitempty"`
	Type             string                 `json:"type"`
	Priority         string                 `json:"priority"`
	Title            string                 `json:"title"`
	Justification    string                 `json:"justification"`
	Risks            string                 `json:"risks"`
	Alternatives     string                 `json:"alternatives"`
	RecommendedQty   *int                   `json:"recommended_qty,omitempty"`
	RecommendedValue *float64               `json:"recommended_value,omitempty"`
	SupplierName     string                 `json:"supplier_name,omitempty"`
	ConfidenceScore  float64                `json:"confidence_score"`
	Status           string                 `json:"status"`
	Metadata         *models.ActionMetadata `json:"metadata,omitempty"`
	CreatedAt        string                 `json:"created_at"`
	ReviewedAt       *string                `json:"reviewed_at,omitempty"`
	ReviewedBy       *string                `json:"reviewed_by,omitempty"`
}

// ApproveRequest is the approval payload
type ApproveRequest struct {
	QuantityOverride *int   `json:"quantity_override"`
	Notes            string `json:"notes"`
	ReviewedBy       string `json:"reviewed_by"`
}

// RejectRequest is the rejection payload
type RejectRequest struct {
	Reason     string `json:"reason"`
	ReviewedBy string `json:"reviewed_by"`
}

// HealthCheck handles GET /health
func (h *Handlers) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": "inventory-agent",
		"time":    time.Now().UTC().Format(time.RFC3339),
	})
}

// RunAgent handles POST /api/v1/agent/run
func (h *Handlers) RunAgent(c *gin.Context) {
	created, err := h.agent.Run(c.Request.Context())
	if err != nil {
		h.logger.Error("Agent run failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, Response{Success: false, Error: "agent run failed"})
		return
	}

	c.JSON(http.StatusOK, Response{
		Success: true,
		Data:    gin.H{"actions_created": created},
	})
}

// ListActions handles GET /api/v1/actions?status=
func (h *Handlers) ListActions(c *gin.Context) {
	status := c.Query("status")
	actions, err := h.actions.List(c.Request.Context(), status)
	if err != nil {
		h.logger.Error("Failed to list actions", zap.Error(err))
		c.JSON(http.StatusInternalServerError, Response{Success: false, Error: "failed to list actions"})
		return
	}

	result := make([]ActionResponse, 0, len(actions))
	for _, a := range actions {
		result = append(result, h.toActionResponse(c.Request.Context(), a))
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: result})
}

// ApproveAction handles POST /api/v1/actions/:id/approve
func (h *Handlers) ApproveAction(c *gin.Context) {
	var req ApproveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, Response{Success: false, Error: "invalid request body"})
		return
	}

	action, err := h.review.Approve(c.Request.Context(), c.Param("id"), reviewerIdentity(req.ReviewedBy), req.QuantityOverride, req.Notes)
	if err != nil {
		h.respondReviewError(c, err)
		return
	}

	c.JSON(http.StatusOK, Response{
		Success: true,
		Data:    h.toActionResponse(c.Request.Context(), action),
	})
}

// RejectAction handles POST /api/v1/actions/:id/reject
func (h *Handlers) RejectAction(c *gin.Context) {
	var req RejectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, Response{Success: false, Error: "invalid request body"})
		return
	}

	action, err := h.review.Reject(c.Request.Context(), c.Param("id"), reviewerIdentity(req.ReviewedBy), req.Reason)
	if err != nil {
		h.respondReviewError(c, err)
		return
	}

	c.JSON(http.StatusOK, Response{
		Success: true,
		Data:    h.toActionResponse(c.Request.Context(), action),
	})
}

// GetForecast handles GET /api/v1/skus/:id/forecast
func (h *Handlers) GetForecast(c *gin.Context) {
	skuID := c.Param("id")

	sku, err := h.skus.GetByID(c.Request.Context(), skuID)
	if err != nil {
		h.logger.Error("Failed to load sku", zap.Error(err))
		c.JSON(http.StatusInternalServerError, Response{Success: false, Error: "failed to load sku"})
		return
	}
	if sku == nil {
		c.JSON(http.StatusNotFound, Response{Success: false, Error: "sku not found"})
		return
	}

	result, err := h.forecast.ForecastSKU(c.Request.Context(), skuID)
	if err != nil {
		h.logger.Error("Forecast failed", zap.String("sku_id", skuID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, Response{Success: false, Error: "forecast failed"})
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: result})
}

// RankSuppliers handles POST /api/v1/suppliers/rank
func (h *Handlers) RankSuppliers(c *gin.Context) {
	if err := h.ranker.RankAll(c.Request.Context()); err != nil {
		h.logger.Error("Supplier ranking failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, Response{Success: false, Error: "supplier ranking failed"})
		return
	}
	c.JSON(http.StatusOK, Response{Success: true})
}

func (h *Handlers) respondReviewError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, review.ErrNotFound):
		c.JSON(http.StatusNotFound, Response{Success: false, Error: "action not found"})
	case errors.Is(err, review.ErrAlreadyReviewed):
		c.JSON(http.StatusBadRequest, Response{Success: false, Error: err.Error()})
	default:
		h.logger.Error("Review operation failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, Response{Success: false, Error: "review operation failed"})
	}
}

// toActionResponse flattens an action with its SKU and supplier names.
// Lookup failures degrade to bare IDs rather than failing the request.
func (h *Handlers) toActionResponse(ctx context.Context, a *models.PendingAction) ActionResponse {
	resp := ActionResponse{
		ID:               a.ID,
		SKUID:            a.SKUID,
		Type:             a.Type,
		Priority:         a.Priority,
		Title:            a.Title,
		Justification:    a.Justification,
		Risks:            a.Risks,
		Alternatives:     a.Alternatives,
		RecommendedQty:   a.RecommendedQty,
		RecommendedValue: a.RecommendedValue,
		ConfidenceScore:  a.ConfidenceScore,
		Status:           a.Status,
		Metadata:         a.Metadata,
		CreatedAt:        a.CreatedAt.UTC().Format(time.RFC3339),
		ReviewedBy:       a.ReviewedBy,
	}
	if a.ReviewedAt != nil {
		v := a.ReviewedAt.UTC().Format(time.RFC3339)
		resp.ReviewedAt = &v
	}

	if sku, err := h.skus.GetByID(ctx, a.SKUID); err == nil && sku != nil {
		resp.SKUCode = sku.SKUCode
		resp.SKUName = sku.Name
	}
	if a.SupplierID != nil {
		if supplier, err := h.suppliers.GetByID(ctx, *a.SupplierID); err == nil && supplier != nil {
			resp.SupplierName = supplier.Name
		}
	}
	return resp
}

// reviewerIdentity falls back to a generic identity; the engine carries no
// authentication layer.
func reviewerIdentity(reviewedBy string) string {
	if reviewedBy == "" {
		return "manager"
	}
	return reviewedBy
}
