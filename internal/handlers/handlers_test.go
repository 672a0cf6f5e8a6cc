package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/stokhq/inventory-agent/internal/models"
	"github.com/stokhq/inventory-agent/internal/review"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type stubAgent struct {
	created int
	err     error
}

func (s *stubAgent) Run(ctx context.Context) (int, error) {
	return s.created, s.err
}

type stubReviewer struct {
	action *models.PendingAction
	err    error

	lastID       string
	lastReviewer string
	lastOverride *int
	lastNotes    string
	lastReason   string
}

func (s *stubReviewer) Approve(ctx context.Context, actionID, reviewer string, qtyOverride *int, notes string) (*models.PendingAction, error) {
	s.lastID = actionID
	s.lastReviewer = reviewer
	s.lastOverride = qtyOverride
	s.lastNotes = notes
	return s.action, s.err
}

func (s *stubReviewer) Reject(ctx context.Context, actionID, reviewer, reason string) (*models.PendingAction, error) {
	s.lastID = actionID
	s.lastReviewer = reviewer
	s.lastReason = reason
	return s.action, s.err
}

type stubForecaster struct {
	result *models.ForecastResult
	err    error
}

func (s *stubForecaster) ForecastSKU(ctx context.Context, skuID string) (*models.ForecastResult, error) {
	return s.result, s.err
}

type stubRanker struct {
	called bool
	err    error
}

func (s *stubRanker) RankAll(ctx context.Context) error {
	s.called = true
	return s.err
}

type stubActionRepo struct {
	actions    []*models.PendingAction
	lastStatus string
}

func (s *stubActionRepo) Create(ctx context.Context, action *models.PendingAction) error { return nil }
func (s *stubActionRepo) GetByID(ctx context.Context, id string) (*models.PendingAction, error) {
	return nil, nil
}
func (s *stubActionRepo) List(ctx context.Context, status string) ([]*models.PendingAction, error) {
	s.lastStatus = status
	return s.actions, nil
}
func (s *stubActionRepo) Update(ctx context.Context, action *models.PendingAction) error { return nil }
func (s *stubActionRepo) HasPendingInFamily(ctx context.Context, skuID, family string) (bool, error) {
	return false, nil
}
func (s *stubActionRepo) ListReviewedSince(ctx context.Context, since time.Time) ([]*models.PendingAction, error) {
	return nil, nil
}

type stubSKURepo struct {
	skus map[string]*models.SKU
}

func (s *stubSKURepo) GetByID(ctx context.Context, id string) (*models.SKU, error) {
	return s.skus[id], nil
}
func (s *stubSKURepo) ListActive(ctx context.Context) ([]*models.SKU, error) { return nil, nil }

type stubSupplierRepo struct {
	suppliers map[string]*models.Supplier
}

func (s *stubSupplierRepo) GetByID(ctx context.Context, id string) (*models.Supplier, error) {
	return s.suppliers[id], nil
}
func (s *stubSupplierRepo) ListActive(ctx context.Context) ([]*models.Supplier, error) {
	return nil, nil
}
func (s *stubSupplierRepo) UpdateRank(ctx context.Context, id string, rank int) error { return nil }

type harness struct {
	agent     *stubAgent
	review    *stubReviewer
	forecast  *stubForecaster
	ranker    *stubRanker
	actions   *stubActionRepo
	skus      *stubSKURepo
	suppliers *stubSupplierRepo
	router    *gin.Engine
}

func newHarness() *harness {
	h := &harness{
		agent:     &stubAgent{},
		review:    &stubReviewer{},
		forecast:  &stubForecaster{},
		ranker:    &stubRanker{},
		actions:   &stubActionRepo{},
		skus:      &stubSKURepo{skus: map[string]*models.SKU{}},
		suppliers: &stubSupplierRepo{suppliers: map[string]*models.Supplier{}},
	}
	handlers := NewHandlers(h.agent, h.review, h.forecast, h.ranker, h.actions, h.skus, h.suppliers, zap.NewNop())
	h.router = NewRouter(handlers, zap.NewNop())
	return h
}

func (h *harness) do(t *testing.T, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.router.ServeHTTP(rec, req)
	return rec
}

func decodeResponse(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func sampleAction() *models.PendingAction {
	qty := 270
	value := 2700.0
	supplierID := "sup-1"
	return &models.PendingAction{
		ID:               "act-1",
		SKUID:            "sku-1",
		Type:             models.ActionTypeOrder,
		Priority:         models.PriorityUrgent,
		Title:            "Emergency Reorder - Widget",
		ConfidenceScore:  86,
		Status:           models.StatusPending,
		RecommendedQty:   &qty,
		RecommendedValue: &value,
		SupplierID:       &supplierID,
		CreatedAt:        time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestHealthCheck(t *testing.T) {
	h := newHarness()

	rec := h.do(t, http.MethodGet, "/health", nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	resp := decodeResponse(t, rec)
	assert.Equal(t, "healthy", resp["status"])
	assert.Equal(t, "inventory-agent", resp["service"])
}

func TestRunAgent(t *testing.T) {
	h := newHarness()
	h.agent.created = 4

	rec := h.do(t, http.MethodPost, "/api/v1/agent/run", nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	resp := decodeResponse(t, rec)
	assert.Equal(t, true, resp["success"])
	data := resp["data"].(map[string]interface{})
	assert.Equal(t, float64(4), data["actions_created"])
}

func TestRunAgentFailure(t *testing.T) {
	h := newHarness()
	h.agent.err = fmt.Errorf("scan failed")

	rec := h.do(t, http.MethodPost, "/api/v1/agent/run", nil)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	resp := decodeResponse(t, rec)
	assert.Equal(t, false, resp["success"])
}

func TestListActionsEnrichesNames(t *testing.T) {
	h := newHarness()
	h.actions.actions = []*models.PendingAction{sampleAction()}
	h.skus.skus["sku-1"] = &models.SKU{ID: "sku-1", SKUCode: "WID-001", Name: "Widget"}
	h.suppliers.suppliers["sup-1"] = &models.Supplier{ID: "sup-1", Name: "Acme Supply"}

	rec := h.do(t, http.MethodGet, "/api/v1/actions?status=pending", nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "pending", h.actions.lastStatus)

	resp := decodeResponse(t, rec)
	items := resp["data"].([]interface{})
	require.Len(t, items, 1)
	item := items[0].(map[string]interface{})
	assert.Equal(t, "WID-001", item["sku_code"])
	assert.Equal(t, "Widget", item["sku_name"])
	assert.Equal(t, "Acme Supply", item["supplier_name"])
	assert.Equal(t, float64(270), item["recommended_qty"])
}

func TestListActionsEmpty(t *testing.T) {
	h := newHarness()

	rec := h.do(t, http.MethodGet, "/api/v1/actions", nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	resp := decodeResponse(t, rec)
	items := resp["data"].([]interface{})
	assert.Empty(t, items)
}

func TestApproveAction(t *testing.T) {
	h := newHarness()
	approved := sampleAction()
	approved.Status = models.StatusExecuted
	h.review.action = approved

	override := 300
	rec := h.do(t, http.MethodPost, "/api/v1/actions/act-1/approve", ApproveRequest{
		QuantityOverride: &override,
		Notes:            "bump for promo",
		ReviewedBy:       "ops@stok.io",
	})

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "act-1", h.review.lastID)
	assert.Equal(t, "ops@stok.io", h.review.lastReviewer)
	require.NotNil(t, h.review.lastOverride)
	assert.Equal(t, 300, *h.review.lastOverride)
	assert.Equal(t, "bump for promo", h.review.lastNotes)

	resp := decodeResponse(t, rec)
	data := resp["data"].(map[string]interface{})
	assert.Equal(t, models.StatusExecuted, data["status"])
}

func TestApproveActionDefaultsReviewer(t *testing.T) {
	h := newHarness()
	h.review.action = sampleAction()

	rec := h.do(t, http.MethodPost, "/api/v1/actions/act-1/approve", ApproveRequest{})

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "manager", h.review.lastReviewer)
}

func TestApproveActionNotFound(t *testing.T) {
	h := newHarness()
	h.review.err = review.ErrNotFound

	rec := h.do(t, http.MethodPost, "/api/v1/actions/missing/approve", ApproveRequest{})

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestApproveActionAlreadyReviewed(t *testing.T) {
	h := newHarness()
	h.review.err = fmt.Errorf("approve action: %w", review.ErrAlreadyReviewed)

	rec := h.do(t, http.MethodPost, "/api/v1/actions/act-1/approve", ApproveRequest{})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestApproveActionInternalError(t *testing.T) {
	h := newHarness()
	h.review.err = errors.New("db down")

	rec := h.do(t, http.MethodPost, "/api/v1/actions/act-1/approve", ApproveRequest{})

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestRejectAction(t *testing.T) {
	h := newHarness()
	rejected := sampleAction()
	rejected.Status = models.StatusRejected
	h.review.action = rejected

	rec := h.do(t, http.MethodPost, "/api/v1/actions/act-1/reject", RejectRequest{
		Reason:     "demand spike was a one-off",
		ReviewedBy: "ops@stok.io",
	})

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "demand spike was a one-off", h.review.lastReason)

	resp := decodeResponse(t, rec)
	data := resp["data"].(map[string]interface{})
	assert.Equal(t, models.StatusRejected, data["status"])
}

func TestGetForecast(t *testing.T) {
	h := newHarness()
	h.skus.skus["sku-1"] = &models.SKU{ID: "sku-1", SKUCode: "WID-001"}
	h.forecast.result = &models.ForecastResult{
		Model: models.ModelLinearTrend,
		Forecast: []models.ForecastPoint{
			{Date: "2025-06-02", Value: 5.2, Lower: 4.2, Upper: 6.2},
		},
	}

	rec := h.do(t, http.MethodGet, "/api/v1/skus/sku-1/forecast", nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	resp := decodeResponse(t, rec)
	data := resp["data"].(map[string]interface{})
	assert.Equal(t, models.ModelLinearTrend, data["model"])
}

func TestGetForecastUnknownSKU(t *testing.T) {
	h := newHarness()

	rec := h.do(t, http.MethodGet, "/api/v1/skus/missing/forecast", nil)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRankSuppliers(t *testing.T) {
	h := newHarness()

	rec := h.do(t, http.MethodPost, "/api/v1/suppliers/rank", nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, h.ranker.called)
}

func TestRankSuppliersFailure(t *testing.T) {
	h := newHarness()
	h.ranker.err = errors.New("no suppliers")

	rec := h.do(t, http.MethodPost, "/api/v1/suppliers/rank", nil)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}
