package supplier

import (
	"context"
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/stokhq/inventory-agent/internal/models"
	"github.com/stokhq/inventory-agent/internal/port"
)

// Composite ranking weights. Missing metrics contribute nothing, neither
// penalized nor rewarded.
const (
	onTimeWeight   = 0.4
	qualityWeight  = 0.35
	leadTimeWeight = 0.5
	costVarWeight  = 0.25
	preferredBonus = 2.0
)

// Per-item selection defaults for unmeasured suppliers.
const (
	defaultOnTimeRate  = 0.8
	defaultQualityRate = 0.9
	defaultLeadTime    = 14.0
	defaultCostVar     = 5.0
)

// Ranker scores suppliers globally and per item.
type Ranker struct {
	suppliers port.SupplierRepository
	logger    *zap.Logger
}

// NewRanker creates a supplier ranker.
func NewRanker(suppliers port.SupplierRepository, logger *zap.Logger) *Ranker {
	return &Ranker{suppliers: suppliers, logger: logger}
}

// CompositeScore is the global ranking score for one supplier.
func CompositeScore(s *models.Supplier) float64 {
	var score float64
	if s.OnTimeRate != nil {
		score += *s.OnTimeRate * onTimeWeight
	}
	if s.QualityRate != nil {
		score += *s.QualityRate * qualityWeight
	}
	if s.AvgLeadTimeDays != nil {
		score -= *s.AvgLeadTimeDays * leadTimeWeight
	}
	if s.CostVariancePct != nil {
		score -= *s.CostVariancePct * costVarWeight
	}
	return score
}

// RankAll recomputes the global rank of every active supplier and writes
// the 1-based positions back. Called after any supplier data change.
func (r *Ranker) RankAll(ctx context.Context) error {
	suppliers, err := r.suppliers.ListActive(ctx)
	if err != nil {
		return fmt.Errorf("list suppliers: %w", err)
	}

	type scored struct {
		supplier *models.Supplier
		score    float64
	}
	ranked := make([]scored, 0, len(suppliers))
	for _, s := range suppliers {
		ranked = append(ranked, scored{supplier: s, score: CompositeScore(s)})
	}
	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].score > ranked[j].score })

	for i, rs := range ranked {
		if err := r.suppliers.UpdateRank(ctx, rs.supplier.ID, i+1); err != nil {
			return fmt.Errorf("update rank for supplier %s: %w", rs.supplier.ID, err)
		}
	}

	r.logger.Info("Supplier ranking recomputed", zap.Int("suppliers", len(ranked)))
	return nil
}

// Selection is the winning candidate for one SKU.
type Selection struct {
	Link     *models.SKUSupplier
	Supplier *models.Supplier
	Score    float64
}

// linkScore rates one sourcing candidate. Metrics default to the
// documented values when the supplier has never been measured.
func linkScore(link *models.SKUSupplier, s *models.Supplier) float64 {
	onTime := defaultOnTimeRate
	quality := defaultQualityRate
	leadTime := defaultLeadTime
	costVar := defaultCostVar

	if s != nil {
		if s.OnTimeRate != nil {
			onTime = *s.OnTimeRate
		}
		if s.QualityRate != nil {
			quality = *s.QualityRate
		}
		if s.AvgLeadTimeDays != nil {
			leadTime = *s.AvgLeadTimeDays
		}
		if s.CostVariancePct != nil {
			costVar = *s.CostVariancePct
		}
	}
	if link.LeadTimeDays != nil {
		leadTime = float64(*link.LeadTimeDays)
	}

	score := onTime*40 + quality*35
	if leadTime < 30 {
		score += (30 - leadTime) / 30 * 15
	}
	penalty := costVar / 10
	if penalty > 1 {
		penalty = 1
	}
	score -= penalty * 10

	if link.IsPreferred {
		score += preferredBonus
	}
	return score
}

// SelectBest picks the best sourcing candidate for a SKU. A single
// candidate wins without scoring; ties keep the first-encountered link;
// no candidates means no supplier.
func SelectBest(links []*models.SKUSupplier, suppliersByID map[string]*models.Supplier) *Selection {
	if len(links) == 0 {
		return nil
	}
	if len(links) == 1 {
		return &Selection{
			Link:     links[0],
			Supplier: suppliersByID[links[0].SupplierID],
		}
	}

	var best *Selection
	for _, link := range links {
		score := linkScore(link, suppliersByID[link.SupplierID])
		if best == nil || score > best.Score {
			best = &Selection{
				Link:     link,
				Supplier: suppliersByID[link.SupplierID],
				Score:    score,
			}
		}
	}
	return best
}
