package feedback

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/stokhq/inventory-agent/internal/config"
	"github.com/stokhq/inventory-agent/internal/models"
	"github.com/stokhq/inventory-agent/internal/port"
)

// Bias and confidence bounds applied after learning.
const (
	minQtyBias    = 0.5
	maxQtyBias    = 2.0
	minConfidence = 40.0
	maxConfidence = 99.0
)

// Weights is one learned snapshot of reviewer behavior. It is recomputed
// from the review history on every run and never stored as state; the only
// durable trace is the RETRAIN audit entry.
type Weights struct {
	ApprovalRate        float64            `json:"approval_rate"`
	QtyBias             float64            `json:"qty_bias"`
	ConfidenceThreshold float64            `json:"confidence_threshold"`
	TypeRates           map[string]float64 `json:"type_weights"`
	PriorityRates       map[string]float64 `json:"priority_weights"`
	DataPoints          int                `json:"data_points"`
	ApprovedCount       int                `json:"approved_count"`
	RejectedCount       int                `json:"rejected_count"`
	ComputedAt          time.Time          `json:"computed_at"`
}

// Neutral returns the weights used before three decisions exist: no bias,
// no confidence scaling.
func Neutral(now time.Time) *Weights {
	return &Weights{
		ApprovalRate:        1.0,
		QtyBias:             1.0,
		ConfidenceThreshold: 70.0,
		TypeRates:           map[string]float64{},
		PriorityRates:       map[string]float64{},
		ComputedAt:          now,
	}
}

// Apply adjusts one fresh recommendation by the learned weights. Returns
// the adjusted quantity, the adjusted confidence and a human-readable note
// explaining any adjustment.
func (w *Weights) Apply(actionType string, baseQty int, baseConfidence float64) (int, float64, string) {
	var notes []string

	qty := int(math.Round(float64(baseQty) * w.QtyBias))
	if math.Abs(w.QtyBias-1.0) > 0.05 {
		direction := "less"
		if w.QtyBias > 1.0 {
			direction = "more"
		}
		notes = append(notes, fmt.Sprintf("Qty adjusted %s (%.2fx) based on %d historical decisions",
			direction, w.QtyBias, w.DataPoints))
	}

	confidence := baseConfidence
	if rate, ok := w.TypeRates[actionType]; ok {
		confidence = baseConfidence * (0.5 + rate*0.5)
		if rate < 0.5 {
			notes = append(notes, fmt.Sprintf("Confidence reduced - %s actions historically approved only %.0f%% of the time",
				actionType, rate*100))
		} else if rate > 0.8 {
			notes = append(notes, fmt.Sprintf("High confidence - %s actions approved %.0f%% historically",
				actionType, rate*100))
		}
	}
	confidence = math.Round(clamp(confidence, minConfidence, maxConfidence)*10) / 10

	note := ""
	for i, n := range notes {
		if i > 0 {
			note += " | "
		}
		note += n
	}
	return qty, confidence, note
}

// Learner recomputes weights from the recent review history.
type Learner struct {
	actions port.ActionRepository
	audit   port.AuditRepository
	cfg     config.AgentConfig
	logger  *zap.Logger
	now     func() time.Time
}

// NewLearner creates a feedback learner.
func NewLearner(actions port.ActionRepository, audit port.AuditRepository, cfg config.AgentConfig, logger *zap.Logger) *Learner {
	return &Learner{
		actions: actions,
		audit:   audit,
		cfg:     cfg,
		logger:  logger,
		now:     time.Now,
	}
}

// Learn analyzes the reviewed actions inside the feedback window. Fewer
// than three decisions yields the neutral defaults.
func (l *Learner) Learn(ctx context.Context) (*Weights, error) {
	now := l.now()
	cutoff := now.AddDate(0, 0, -l.cfg.FeedbackWindowDays)

	reviewed, err := l.actions.ListReviewedSince(ctx, cutoff)
	if err != nil {
		return nil, fmt.Errorf("list reviewed actions: %w", err)
	}
	if len(reviewed) < 3 {
		w := Neutral(now)
		w.DataPoints = len(reviewed)
		return w, nil
	}

	// Approval flows through to executed, so both count as approved here.
	var approved, rejected []*models.PendingAction
	for _, a := range reviewed {
		if a.Status == models.StatusRejected {
			rejected = append(rejected, a)
		} else {
			approved = append(approved, a)
		}
	}

	total := len(reviewed)
	w := &Weights{
		ApprovalRate:        round3(float64(len(approved)) / float64(total)),
		QtyBias:             1.0,
		ConfidenceThreshold: 70.0,
		TypeRates:           map[string]float64{},
		PriorityRates:       map[string]float64{},
		DataPoints:          total,
		ApprovedCount:       len(approved),
		RejectedCount:       len(rejected),
		ComputedAt:          now,
	}

	// Quantity bias: how far reviewer overrides sit from the originally
	// recommended quantity, averaged over approved-and-modified actions.
	// The action row carries the override after approval, so the original
	// recommendation is read from the modification audit entry.
	var ratios []float64
	for _, a := range approved {
		entry, err := l.audit.FindModification(ctx, a.ID)
		if err != nil {
			return nil, fmt.Errorf("find modification for action %s: %w", a.ID, err)
		}
		if entry == nil {
			continue
		}
		meta, err := entry.ParseMetadata()
		if err != nil || meta == nil || meta.QtyOverride == nil {
			continue
		}
		if meta.OriginalQty == nil || *meta.OriginalQty == 0 {
			continue
		}
		ratios = append(ratios, float64(*meta.QtyOverride)/float64(*meta.OriginalQty))
	}
	if len(ratios) > 0 {
		w.QtyBias = round3(clamp(mean(ratios), minQtyBias, maxQtyBias))
	}

	w.TypeRates = approvalRates(reviewed, func(a *models.PendingAction) string { return a.Type })
	w.PriorityRates = approvalRates(reviewed, func(a *models.PendingAction) string { return a.Priority })

	var confidences []float64
	for _, a := range approved {
		if a.ConfidenceScore > 0 {
			confidences = append(confidences, a.ConfidenceScore)
		}
	}
	if len(confidences) > 0 {
		w.ConfidenceThreshold = math.Round(percentile(confidences, 25)*10) / 10
	}

	l.logger.Info("Feedback weights computed",
		zap.Int("data_points", w.DataPoints),
		zap.Float64("approval_rate", w.ApprovalRate),
		zap.Float64("qty_bias", w.QtyBias),
		zap.Float64("confidence_threshold", w.ConfidenceThreshold))
	return w, nil
}

// LogWeights records the snapshot as a RETRAIN audit entry.
func (l *Learner) LogWeights(ctx context.Context, w *Weights) error {
	raw, err := json.Marshal(w)
	if err != nil {
		return fmt.Errorf("marshal weights: %w", err)
	}

	entry := &models.AuditEntry{
		ID:         uuid.NewString(),
		Timestamp:  l.now(),
		UserEmail:  models.ActorAgent,
		EventType:  models.EventRetrain,
		EntityType: "model",
		Detail: fmt.Sprintf("Feedback weights updated - %d decisions analyzed, approval rate %.0f%%, qty bias %.2fx",
			w.DataPoints, w.ApprovalRate*100, w.QtyBias),
		Outcome: models.OutcomeExecuted,
	}
	if err := entry.SetMetadata(&models.AuditMetadata{Weights: raw}); err != nil {
		return fmt.Errorf("set audit metadata: %w", err)
	}
	if err := l.audit.Append(ctx, entry); err != nil {
		return fmt.Errorf("append retrain audit: %w", err)
	}
	return nil
}

// approvalRates groups reviewed actions by key and returns the share that
// was approved, only for keys that actually occur.
func approvalRates(reviewed []*models.PendingAction, key func(*models.PendingAction) string) map[string]float64 {
	totals := make(map[string]int)
	approved := make(map[string]int)
	for _, a := range reviewed {
		k := key(a)
		totals[k]++
		if a.Status != models.StatusRejected {
			approved[k]++
		}
	}
	rates := make(map[string]float64, len(totals))
	for k, n := range totals {
		rates[k] = float64(approved[k]) / float64(n)
	}
	return rates
}

func mean(vals []float64) float64 {
	var sum float64
	for _, v := range vals {
		sum += v
	}
	return sum / float64(len(vals))
}

// percentile computes the p-th percentile with linear interpolation
// between closest ranks.
func percentile(vals []float64, p float64) float64 {
	sorted := append([]float64(nil), vals...)
	sort.Float64s(sorted)

	rank := p / 100 * float64(len(sorted)-1)
	lower := int(math.Floor(rank))
	if lower >= len(sorted)-1 {
		return sorted[len(sorted)-1]
	}
	frac := rank - float64(lower)
	return sorted[lower] + frac*(sorted[lower+1]-sorted[lower])
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}
