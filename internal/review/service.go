package review

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/stokhq/inventory-agent/internal/models"
	"github.com/stokhq/inventory-agent/internal/notify"
	"github.com/stokhq/inventory-agent/internal/port"
)

// Review preconditions. Handlers map these onto HTTP status codes.
var (
	ErrNotFound        = errors.New("action not found")
	ErrAlreadyReviewed = errors.New("action already reviewed")
)

// poGenerator produces the purchase order document for an executed order.
type poGenerator interface {
	Generate(action *models.PendingAction, sku *models.SKU, supplier *models.Supplier) (string, error)
}

// Service owns the human decision lifecycle. Every pending action is
// reviewed exactly once; approval executes the action as a side effect.
type Service struct {
	actions   port.ActionRepository
	skus      port.SKURepository
	suppliers port.SupplierRepository
	audit     port.AuditRepository
	tx        port.TransactionManager

	podoc    poGenerator
	notifier notify.Notifier

	logger *zap.Logger
	now    func() time.Time
}

// NewService creates the review service.
func NewService(
	actions port.ActionRepository,
	skus port.SKURepository,
	suppliers port.SupplierRepository,
	audit port.AuditRepository,
	tx port.TransactionManager,
	podoc poGenerator,
	notifier notify.Notifier,
	logger *zap.Logger,
) *Service {
	return &Service{
		actions:   actions,
		skus:      skus,
		suppliers: suppliers,
		audit:     audit,
		tx:        tx,
		podoc:     podoc,
		notifier:  notifier,
		logger:    logger,
		now:       time.Now,
	}
}

// Approve accepts a pending action, optionally overriding the recommended
// quantity, and executes it. The state change and audit entries commit
// atomically; downstream side effects (document, notification) are best
// effort and never roll the decision back.
func (s *Service) Approve(ctx context.Context, actionID, reviewer string, qtyOverride *int, notes string) (*models.PendingAction, error) {
	var action *models.PendingAction
	var sku *models.SKU

	err := s.tx.WithTransaction(ctx, func(ctx context.Context) error {
		var err error
		action, err = s.loadPending(ctx, actionID)
		if err != nil {
			return err
		}

		// The pre-override recommendation goes into the audit metadata;
		// the feedback learner computes its quantity bias against it.
		var originalQty *int
		modified := qtyOverride != nil &&
			(action.RecommendedQty == nil || *qtyOverride != *action.RecommendedQty)
		if modified {
			originalQty = action.RecommendedQty
			action.RecommendedQty = qtyOverride
		}

		now := s.now()
		action.Status = models.StatusApproved
		action.ReviewedAt = &now
		action.ReviewedBy = &reviewer
		if err := s.actions.Update(ctx, action); err != nil {
			return fmt.Errorf("update action: %w", err)
		}

		sku, err = s.skus.GetByID(ctx, action.SKUID)
		if err != nil {
			return fmt.Errorf("load sku: %w", err)
		}

		outcome := models.OutcomeApproved
		detail := fmt.Sprintf("%s %s", skuCode(sku), action.Type)
		if modified {
			outcome = models.OutcomeModified
			detail += fmt.Sprintf(" - qty modified to %d", *qtyOverride)
		}
		if notes != "" {
			detail += fmt.Sprintf(" | Note: %s", notes)
		}

		entry := &models.AuditEntry{
			ID:         uuid.NewString(),
			Timestamp:  now,
			UserEmail:  reviewer,
			EventType:  models.EventApprove,
			EntityType: "action",
			EntityID:   action.ID,
			Detail:     detail,
			Outcome:    outcome,
		}
		if err := entry.SetMetadata(&models.AuditMetadata{QtyOverride: qtyOverride, OriginalQty: originalQty, Notes: notes}); err != nil {
			return fmt.Errorf("set approve metadata: %w", err)
		}
		if err := s.audit.Append(ctx, entry); err != nil {
			return fmt.Errorf("append approve audit: %w", err)
		}

		// Approval flows straight into execution.
		action.Status = models.StatusExecuted
		if err := s.actions.Update(ctx, action); err != nil {
			return fmt.Errorf("mark action executed: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.execute(ctx, action, sku)
	return action, nil
}

// Reject declines a pending action with a reason.
func (s *Service) Reject(ctx context.Context, actionID, reviewer, reason string) (*models.PendingAction, error) {
	var action *models.PendingAction

	err := s.tx.WithTransaction(ctx, func(ctx context.Context) error {
		var err error
		action, err = s.loadPending(ctx, actionID)
		if err != nil {
			return err
		}

		now := s.now()
		action.Status = models.StatusRejected
		action.ReviewedAt = &now
		action.ReviewedBy = &reviewer
		if err := s.actions.Update(ctx, action); err != nil {
			return fmt.Errorf("update action: %w", err)
		}

		sku, err := s.skus.GetByID(ctx, action.SKUID)
		if err != nil {
			return fmt.Errorf("load sku: %w", err)
		}

		displayReason := reason
		if displayReason == "" {
			displayReason = "No reason given"
		}
		entry := &models.AuditEntry{
			ID:         uuid.NewString(),
			Timestamp:  now,
			UserEmail:  reviewer,
			EventType:  models.EventReject,
			EntityType: "action",
			EntityID:   action.ID,
			Detail:     fmt.Sprintf("%s %s - %s", skuCode(sku), action.Type, displayReason),
			Outcome:    models.OutcomeRejected,
		}
		if err := entry.SetMetadata(&models.AuditMetadata{Reason: reason}); err != nil {
			return fmt.Errorf("set reject metadata: %w", err)
		}
		if err := s.audit.Append(ctx, entry); err != nil {
			return fmt.Errorf("append reject audit: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Action rejected",
		zap.String("action_id", actionID),
		zap.String("reviewer", reviewer))
	return action, nil
}

// loadPending fetches an action and enforces the pending-only precondition.
func (s *Service) loadPending(ctx context.Context, actionID string) (*models.PendingAction, error) {
	action, err := s.actions.GetByID(ctx, actionID)
	if err != nil {
		return nil, fmt.Errorf("load action: %w", err)
	}
	if action == nil {
		return nil, ErrNotFound
	}
	if action.IsReviewed() {
		return nil, fmt.Errorf("%w: action is already %s", ErrAlreadyReviewed, action.Status)
	}
	return action, nil
}

// execute carries out the approved action: purchase order document and
// supplier-facing notification for orders, markdown notice for price
// changes. Failures are logged; the decision stands regardless.
func (s *Service) execute(ctx context.Context, action *models.PendingAction, sku *models.SKU) {
	emailSent := false

	switch {
	case action.Type == models.ActionTypeOrder && sku != nil:
		emailSent = s.executeOrder(ctx, action, sku)
	case action.Type == models.ActionTypePrice && sku != nil:
		emailSent = s.executeMarkdown(ctx, action, sku)
	}

	detail := fmt.Sprintf("Executed %s for %s - qty %s - email %s",
		action.Type, skuCode(sku), formatQty(action.RecommendedQty), emailStatus(emailSent))
	entry := &models.AuditEntry{
		ID:         uuid.NewString(),
		Timestamp:  s.now(),
		UserEmail:  models.ActorAgent,
		EventType:  models.EventExecute,
		EntityType: "action",
		EntityID:   action.ID,
		Detail:     detail,
		Outcome:    models.OutcomeExecuted,
	}
	if err := entry.SetMetadata(&models.AuditMetadata{EmailSent: &emailSent}); err != nil {
		s.logger.Warn("Failed to serialize execute metadata", zap.Error(err))
	}
	if err := s.audit.Append(ctx, entry); err != nil {
		s.logger.Error("Failed to write execute audit entry", zap.Error(err))
	}
}

// executeOrder generates the purchase order and mails it to purchasing.
func (s *Service) executeOrder(ctx context.Context, action *models.PendingAction, sku *models.SKU) bool {
	var supplier *models.Supplier
	if action.SupplierID != nil {
		var err error
		supplier, err = s.suppliers.GetByID(ctx, *action.SupplierID)
		if err != nil {
			s.logger.Warn("Supplier lookup failed during execution", zap.Error(err))
		}
	}

	var attachments []string
	poPath, err := s.podoc.Generate(action, sku, supplier)
	if err != nil {
		s.logger.Warn("Purchase order generation failed",
			zap.String("action_id", action.ID),
			zap.Error(err))
	} else {
		attachments = append(attachments, poPath)
	}

	qty := 0
	if action.RecommendedQty != nil {
		qty = *action.RecommendedQty
	}
	value := 0.0
	if action.RecommendedValue != nil {
		value = *action.RecommendedValue
	}
	supplierName := "Unknown Supplier"
	supplierEmail := "N/A"
	if supplier != nil {
		supplierName = supplier.Name
		if supplier.ContactEmail != "" {
			supplierEmail = supplier.ContactEmail
		}
	}

	subject := fmt.Sprintf("[STOK] PO Approved - %s (%d units)", sku.Name, qty)
	body := fmt.Sprintf(
		"Purchase order approved and executed.\n\nSKU: %s (%s)\nQuantity: %d units\nTotal value: $%.2f\nSupplier: %s (%s)\n\nJustification:\n%s\n\nPlease contact the supplier to confirm the order.\n",
		sku.Name, sku.SKUCode, qty, value, supplierName, supplierEmail, action.Justification)

	if err := s.notifier.Send(ctx, "", subject, body, attachments); err != nil {
		s.logger.Warn("Purchase order notification failed", zap.Error(err))
		return false
	}
	return true
}

// executeMarkdown mails the price change notice.
func (s *Service) executeMarkdown(ctx context.Context, action *models.PendingAction, sku *models.SKU) bool {
	changePct := 15.0
	if action.RecommendedValue != nil {
		changePct = -*action.RecommendedValue
	}
	newPrice := sku.UnitPrice * (1 - changePct/100)

	subject := fmt.Sprintf("[STOK] Price Markdown Approved - %s (-%.0f%%)", sku.Name, changePct)
	body := fmt.Sprintf(
		"Price markdown approved.\n\nSKU: %s (%s)\nMarkdown: -%.0f%%\nCurrent price: $%.2f\nNew price: $%.2f\n\nReason:\n%s\n",
		sku.Name, sku.SKUCode, changePct, sku.UnitPrice, newPrice, action.Justification)

	if err := s.notifier.Send(ctx, "", subject, body, nil); err != nil {
		s.logger.Warn("Markdown notification failed", zap.Error(err))
		return false
	}
	return true
}

func skuCode(sku *models.SKU) string {
	if sku == nil {
		return "unknown"
	}
	return sku.SKUCode
}

func formatQty(qty *int) string {
	if qty == nil {
		return "n/a"
	}
	return fmt.Sprintf("%d", *qty)
}

func emailStatus(sent bool) string {
	if sent {
		return "sent"
	}
	return "skipped"
}
