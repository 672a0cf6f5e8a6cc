package agent

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/stokhq/inventory-agent/internal/config"
	"github.com/stokhq/inventory-agent/internal/feedback"
	"github.com/stokhq/inventory-agent/internal/market"
	"github.com/stokhq/inventory-agent/internal/models"
	"github.com/stokhq/inventory-agent/internal/notify"
	"github.com/stokhq/inventory-agent/internal/port"
	"github.com/stokhq/inventory-agent/internal/supplier"
	"github.com/stokhq/inventory-agent/internal/velocity"
)

// marketFetcher provides the shared market snapshot for a run.
type marketFetcher interface {
	FetchContext(ctx context.Context) *market.Context
}

// weightsLearner recomputes feedback weights from the review history.
type weightsLearner interface {
	Learn(ctx context.Context) (*feedback.Weights, error)
	LogWeights(ctx context.Context, w *feedback.Weights) error
}

// forecaster enriches recommendations with demand projections.
type forecaster interface {
	ForecastSKU(ctx context.Context, skuID string) (*models.ForecastResult, error)
}

// Agent is the decision engine. One Run scans every active SKU and turns
// stockout and overstock findings into pending actions for human review.
type Agent struct {
	skus         port.SKURepository
	stocks       port.StockRepository
	sales        port.SalesRepository
	suppliers    port.SupplierRepository
	skuSuppliers port.SKUSupplierRepository
	actions      port.ActionRepository
	audit        port.AuditRepository
	tx           port.TransactionManager

	calc       *velocity.Calculator
	market     marketFetcher
	learner    weightsLearner
	forecaster forecaster
	notifier   notify.Notifier

	cfg    config.AgentConfig
	logger *zap.Logger
	now    func() time.Time
}

// Deps bundles the agent's collaborators.
type Deps struct {
	SKUs         port.SKURepository
	Stocks       port.StockRepository
	Sales        port.SalesRepository
	Suppliers    port.SupplierRepository
	SKUSuppliers port.SKUSupplierRepository
	Actions      port.ActionRepository
	Audit        port.AuditRepository
	Tx           port.TransactionManager
	Market       marketFetcher
	Learner      weightsLearner
	Forecaster   forecaster
	Notifier     notify.Notifier
}

// New creates the decision engine.
func New(deps Deps, cfg config.AgentConfig, logger *zap.Logger) *Agent {
	return &Agent{
		skus:         deps.SKUs,
		stocks:       deps.Stocks,
		sales:        deps.Sales,
		suppliers:    deps.Suppliers,
		skuSuppliers: deps.SKUSuppliers,
		actions:      deps.Actions,
		audit:        deps.Audit,
		tx:           deps.Tx,
		calc:         velocity.NewCalculator(cfg.VelocityWindowDays),
		market:       deps.Market,
		learner:      deps.Learner,
		forecaster:   deps.Forecaster,
		notifier:     deps.Notifier,
		cfg:          cfg,
		logger:       logger,
		now:          time.Now,
	}
}

// runResult accumulates per-run counters.
type runResult struct {
	scanned int
	created int
	urgent  int
}

// Run executes one decision pass and returns the number of actions
// created. Item failures are isolated; shared context failures degrade to
// neutral defaults. Only repository errors on the scan itself abort a run.
func (a *Agent) Run(ctx context.Context) (int, error) {
	start := a.now()
	a.logger.Info("Agent run starting")

	mc := a.market.FetchContext(ctx)

	weights, err := a.learner.Learn(ctx)
	if err != nil {
		a.logger.Warn("Feedback learning failed, using neutral weights", zap.Error(err))
		weights = feedback.Neutral(start)
	} else if err := a.learner.LogWeights(ctx, weights); err != nil {
		a.logger.Warn("Failed to log feedback weights", zap.Error(err))
	}

	skus, err := a.skus.ListActive(ctx)
	if err != nil {
		return 0, fmt.Errorf("list active skus: %w", err)
	}

	res := runResult{scanned: len(skus)}
	for _, sku := range skus {
		sku := sku
		if err := a.tx.WithTransaction(ctx, func(ctx context.Context) error {
			return a.processSKU(ctx, sku, mc, weights, &res)
		}); err != nil {
			a.logger.Error("SKU processing failed, skipping",
				zap.String("sku_id", sku.ID),
				zap.String("sku_code", sku.SKUCode),
				zap.Error(err))
		}
	}

	a.logRun(ctx, res)

	if res.urgent > 0 {
		a.notifyUrgent(ctx, res)
	}

	a.logger.Info("Agent run complete",
		zap.Int("skus_scanned", res.scanned),
		zap.Int("actions_created", res.created),
		zap.Int("urgent", res.urgent),
		zap.Duration("elapsed", a.now().Sub(start)))
	return res.created, nil
}

// processSKU evaluates both triggers for one item. Reorder and slow-mover
// checks are independent; a SKU can fire both in one pass.
func (a *Agent) processSKU(ctx context.Context, sku *models.SKU, mc *market.Context, weights *feedback.Weights, res *runResult) error {
	stock := 0
	level, err := a.stocks.GetBySKU(ctx, sku.ID)
	if err != nil {
		return fmt.Errorf("load stock: %w", err)
	}
	if level != nil {
		stock = level.Quantity
	}

	// The velocity window bounds the common query; items with no recent
	// sales fall back to full history so the all-time mean still works.
	since := a.now().AddDate(0, 0, -a.cfg.VelocityWindowDays)
	sales, err := a.sales.ListBySKUSince(ctx, sku.ID, since)
	if err != nil {
		return fmt.Errorf("load sales: %w", err)
	}
	if len(sales) == 0 {
		sales, err = a.sales.ListBySKU(ctx, sku.ID)
		if err != nil {
			return fmt.Errorf("load sales history: %w", err)
		}
	}
	v := a.calc.Velocity(sales, a.now())

	if err := a.checkReorder(ctx, sku, stock, v, mc, weights, res); err != nil {
		return err
	}
	return a.checkSlowMover(ctx, sku, stock, v, mc, weights, res)
}

// checkReorder creates an order action when the item is heading for a
// stockout. Requires positive velocity; without demand there is no
// stockout date to defend against.
func (a *Agent) checkReorder(ctx context.Context, sku *models.SKU, stock int, v float64, mc *market.Context, weights *feedback.Weights, res *runResult) error {
	if v <= 0 {
		return nil
	}

	daysRemaining := float64(stock) / v
	daysUntilStockout := daysRemaining - float64(sku.LeadTimeDays)

	if stock > sku.ReorderPoint && daysUntilStockout > a.cfg.StockoutThresholdDays {
		return nil
	}

	exists, err := a.actions.HasPendingInFamily(ctx, sku.ID, models.FamilyOrder)
	if err != nil {
		return fmt.Errorf("check pending order actions: %w", err)
	}
	if exists {
		a.logger.Debug("Pending order action exists, skipping",
			zap.String("sku_id", sku.ID))
		return nil
	}

	priority := models.PriorityNormal
	switch {
	case daysUntilStockout <= 1:
		priority = models.PriorityUrgent
	case daysUntilStockout <= 3:
		priority = models.PriorityHigh
	}

	annualDemand := v * 365
	baseQty := EOQ(annualDemand, a.cfg.OrderCost, a.cfg.HoldingRate, sku.UnitCost)
	if baseQty < sku.MOQ {
		baseQty = sku.MOQ
	}
	marketQty := mc.AdjustQuantity(baseQty)

	baseConfidence := 90 - math.Abs(daysUntilStockout)*2
	if stock <= sku.SafetyStock {
		baseConfidence += 10
	}
	baseConfidence = math.Min(97, math.Max(60, baseConfidence))

	finalQty, confidence, note := weights.Apply(models.ActionTypeOrder, marketQty, baseConfidence)

	sel, err := a.selectSupplier(ctx, sku.ID)
	if err != nil {
		return err
	}

	unitCost := sku.UnitCost
	var supplierID *string
	if sel != nil {
		supplierID = &sel.Link.SupplierID
		if sel.Link.UnitCost != nil {
			unitCost = *sel.Link.UnitCost
		}
	}
	value := math.Round(float64(finalQty)*unitCost*100) / 100

	title := fmt.Sprintf("Scheduled Reorder - %s", sku.Name)
	if priority == models.PriorityUrgent {
		title = fmt.Sprintf("Emergency Reorder - %s", sku.Name)
	}

	action := &models.PendingAction{
		ID:       uuid.NewString(),
		SKUID:    sku.ID,
		Type:     models.ActionTypeOrder,
		Priority: priority,
		Title:    title,
		Justification: fmt.Sprintf(
			"Current stock: %d units. Daily velocity: %.1f units/day. Days remaining: %.1fd. Lead time: %dd. Reorder point: %d. EOQ calculation suggests %d units.",
			stock, v, daysRemaining, sku.LeadTimeDays, sku.ReorderPoint, baseQty),
		Risks: fmt.Sprintf(
			"Stockout in ~%.0f days. Estimated lost revenue: $%.0f.",
			daysRemaining, v*float64(sku.LeadTimeDays)*sku.UnitPrice),
		Alternatives:     "Consider expedited shipping if stockout risk is critical.",
		RecommendedQty:   &finalQty,
		RecommendedValue: &value,
		SupplierID:       supplierID,
		ConfidenceScore:  confidence,
		Status:           models.StatusPending,
		CreatedAt:        a.now(),
		Metadata: &models.ActionMetadata{
			BaseQty:         baseQty,
			MarketAdjQty:    marketQty,
			FinalQty:        finalQty,
			MarketSentiment: mc.Sentiment,
			ShippingStress:  mc.Shipping,
			MarketSignals:   mc.Signals,
			FeedbackNote:    note,
		},
	}
	a.enrichForecast(ctx, action)

	if err := a.actions.Create(ctx, action); err != nil {
		return fmt.Errorf("create order action: %w", err)
	}

	res.created++
	if priority == models.PriorityUrgent {
		res.urgent++
	}
	a.logger.Info("Order action created",
		zap.String("sku_code", sku.SKUCode),
		zap.String("priority", priority),
		zap.Int("quantity", finalQty),
		zap.Float64("confidence", confidence))
	return nil
}

// checkSlowMover creates a markdown recommendation for items sitting on
// excess stock with negligible demand.
func (a *Agent) checkSlowMover(ctx context.Context, sku *models.SKU, stock int, v float64, mc *market.Context, weights *feedback.Weights, res *runResult) error {
	if v >= a.cfg.SlowMoverVelocity || stock <= a.cfg.SlowMoverMinStock {
		return nil
	}
	daysOfSupply := float64(stock) / math.Max(v, 0.01)
	if daysOfSupply <= a.cfg.SlowMoverDaysOfSupply {
		return nil
	}

	exists, err := a.actions.HasPendingInFamily(ctx, sku.ID, models.FamilyMarkdown)
	if err != nil {
		return fmt.Errorf("check pending markdown actions: %w", err)
	}
	if exists {
		return nil
	}

	_, confidence, note := weights.Apply(models.ActionTypePrice, 0, 78)
	deadStockValue := float64(stock) * sku.UnitCost
	markdownPct := -15.0

	action := &models.PendingAction{
		ID:       uuid.NewString(),
		SKUID:    sku.ID,
		Type:     models.ActionTypePrice,
		Priority: models.PriorityNormal,
		Title:    fmt.Sprintf("Markdown Recommended - %s", sku.Name),
		Justification: fmt.Sprintf(
			"Stock: %d units. Velocity: %.2f/day. %.0f days of supply. Recommend 15-20%% markdown to accelerate sell-through.",
			stock, v, daysOfSupply),
		Risks:            fmt.Sprintf("Dead stock value: $%.0f. Risk of obsolescence.", deadStockValue),
		Alternatives:     "Bundle with fast-moving SKU. Return to supplier if contract allows.",
		RecommendedValue: &markdownPct,
		ConfidenceScore:  confidence,
		Status:           models.StatusPending,
		CreatedAt:        a.now(),
		Metadata: &models.ActionMetadata{
			MarketSentiment: mc.Sentiment,
			ShippingStress:  mc.Shipping,
			FeedbackNote:    note,
			DaysOfSupply:    &daysOfSupply,
		},
	}

	if err := a.actions.Create(ctx, action); err != nil {
		return fmt.Errorf("create markdown action: %w", err)
	}

	res.created++
	a.logger.Info("Markdown action created",
		zap.String("sku_code", sku.SKUCode),
		zap.Float64("days_of_supply", daysOfSupply))
	return nil
}

// selectSupplier loads the sourcing candidates for a SKU and picks the
// best one.
func (a *Agent) selectSupplier(ctx context.Context, skuID string) (*supplier.Selection, error) {
	links, err := a.skuSuppliers.ListBySKU(ctx, skuID)
	if err != nil {
		return nil, fmt.Errorf("list sku suppliers: %w", err)
	}
	if len(links) == 0 {
		return nil, nil
	}

	byID := make(map[string]*models.Supplier, len(links))
	for _, link := range links {
		s, err := a.suppliers.GetByID(ctx, link.SupplierID)
		if err != nil {
			return nil, fmt.Errorf("load supplier %s: %w", link.SupplierID, err)
		}
		if s != nil {
			byID[link.SupplierID] = s
		}
	}
	return supplier.SelectBest(links, byID), nil
}

// enrichForecast attaches the demand projection to the action metadata.
// Forecast failures never block a recommendation.
func (a *Agent) enrichForecast(ctx context.Context, action *models.PendingAction) {
	fr, err := a.forecaster.ForecastSKU(ctx, action.SKUID)
	if err != nil {
		a.logger.Warn("Forecast unavailable for action metadata",
			zap.String("sku_id", action.SKUID),
			zap.Error(err))
		return
	}

	var demand float64
	for _, p := range fr.Forecast {
		demand += p.Value
	}
	demand = math.Round(demand*10) / 10

	action.Metadata.ForecastModel = fr.Model
	action.Metadata.ForecastDemand = &demand
}

// logRun writes the GENERATE audit entry for the pass.
func (a *Agent) logRun(ctx context.Context, res runResult) {
	entry := &models.AuditEntry{
		ID:         uuid.NewString(),
		Timestamp:  a.now(),
		UserEmail:  models.ActorAgent,
		EventType:  models.EventGenerate,
		EntityType: "agent_run",
		Detail:     fmt.Sprintf("Agent scan complete - %d new actions created", res.created),
		Outcome:    models.OutcomeExecuted,
	}
	if err := entry.SetMetadata(&models.AuditMetadata{
		SKUsScanned:    res.scanned,
		ActionsCreated: res.created,
	}); err != nil {
		a.logger.Warn("Failed to serialize run metadata", zap.Error(err))
	}
	if err := a.audit.Append(ctx, entry); err != nil {
		a.logger.Error("Failed to write run audit entry", zap.Error(err))
	}
}

// notifyUrgent alerts purchasing that urgent actions await review.
func (a *Agent) notifyUrgent(ctx context.Context, res runResult) {
	plural := ""
	if res.urgent > 1 {
		plural = "s"
	}
	subject := fmt.Sprintf("[STOK] %d Urgent Action%s Need Your Review", res.urgent, plural)
	body := fmt.Sprintf(
		"The inventory agent finished a scan.\n\nSKUs scanned: %d\nNew actions created: %d\nUrgent actions: %d\n\nPlease review the pending actions.\n",
		res.scanned, res.created, res.urgent)

	if err := a.notifier.Send(ctx, "", subject, body, nil); err != nil {
		a.logger.Warn("Urgent action notification failed", zap.Error(err))
	}
}
