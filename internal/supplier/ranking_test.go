package supplier

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/stokhq/inventory-agent/internal/models"
)

func f(v float64) *float64 { return &v }
func i(v int) *int         { return &v }

type mockSupplierRepo struct {
	suppliers []*models.Supplier
	ranks     map[string]int
}

func (m *mockSupplierRepo) GetByID(ctx context.Context, id string) (*models.Supplier, error) {
	for _, s := range m.suppliers {
		if s.ID == id {
			return s, nil
		}
	}
	return nil, nil
}

func (m *mockSupplierRepo) ListActive(ctx context.Context) ([]*models.Supplier, error) {
	return m.suppliers, nil
}

func (m *mockSupplierRepo) UpdateRank(ctx context.Context, id string, rank int) error {
	if m.ranks == nil {
		m.ranks = make(map[string]int)
	}
	m.ranks[id] = rank
	return nil
}

func TestCompositeScoreMissingMetricsContributeZero(t *testing.T) {
	empty := &models.Supplier{}
	assert.Equal(t, 0.0, CompositeScore(empty))

	measured := &models.Supplier{
		OnTimeRate:      f(0.9),
		QualityRate:     f(0.8),
		AvgLeadTimeDays: f(10),
		CostVariancePct: f(4),
	}
	want := 0.4*0.9 + 0.35*0.8 - 0.5*10 - 0.25*4
	assert.InDelta(t, want, CompositeScore(measured), 1e-9)
}

func TestRankAllWritesDescendingPositions(t *testing.T) {
	repo := &mockSupplierRepo{suppliers: []*models.Supplier{
		{ID: "slow", OnTimeRate: f(0.7), QualityRate: f(0.7), AvgLeadTimeDays: f(20)},
		{ID: "fast", OnTimeRate: f(0.95), QualityRate: f(0.9), AvgLeadTimeDays: f(3)},
		{ID: "unmeasured"},
	}}
	r := NewRanker(repo, zap.NewNop())

	require.NoError(t, r.RankAll(context.Background()))

	assert.Equal(t, 1, repo.ranks["unmeasured"]) // zero beats the negative lead-time scores
	assert.Equal(t, 2, repo.ranks["fast"])
	assert.Equal(t, 3, repo.ranks["slow"])
}

func TestSelectBestNoCandidates(t *testing.T) {
	assert.Nil(t, SelectBest(nil, nil))
}

func TestSelectBestSingleCandidateSkipsScoring(t *testing.T) {
	link := &models.SKUSupplier{ID: "l1", SupplierID: "s1"}
	sel := SelectBest([]*models.SKUSupplier{link}, map[string]*models.Supplier{
		"s1": {ID: "s1"},
	})

	require.NotNil(t, sel)
	assert.Equal(t, "l1", sel.Link.ID)
	assert.Equal(t, 0.0, sel.Score)
}

func TestSelectBestPrefersReliablePreferredSupplier(t *testing.T) {
	good := &models.Supplier{ID: "good", OnTimeRate: f(0.95), QualityRate: f(0.9), AvgLeadTimeDays: f(5), CostVariancePct: f(2)}
	poor := &models.Supplier{ID: "poor", OnTimeRate: f(0.7), QualityRate: f(0.7), AvgLeadTimeDays: f(20), CostVariancePct: f(10)}

	links := []*models.SKUSupplier{
		{ID: "l-poor", SupplierID: "poor"},
		{ID: "l-good", SupplierID: "good", IsPreferred: true},
	}

	sel := SelectBest(links, map[string]*models.Supplier{"good": good, "poor": poor})
	require.NotNil(t, sel)
	assert.Equal(t, "l-good", sel.Link.ID)
}

func TestSelectBestTieKeepsFirstEncountered(t *testing.T) {
	a := &models.Supplier{ID: "a", OnTimeRate: f(0.9), QualityRate: f(0.9), AvgLeadTimeDays: f(10), CostVariancePct: f(5)}
	b := &models.Supplier{ID: "b", OnTimeRate: f(0.9), QualityRate: f(0.9), AvgLeadTimeDays: f(10), CostVariancePct: f(5)}

	links := []*models.SKUSupplier{
		{ID: "l-a", SupplierID: "a"},
		{ID: "l-b", SupplierID: "b"},
	}

	sel := SelectBest(links, map[string]*models.Supplier{"a": a, "b": b})
	require.NotNil(t, sel)
	assert.Equal(t, "l-a", sel.Link.ID)
}

func TestSelectBestUsesDefaultsForUnmeasuredSupplier(t *testing.T) {
	links := []*models.SKUSupplier{
		{ID: "l-1", SupplierID: "s1"},
		{ID: "l-2", SupplierID: "s2", LeadTimeDays: i(2)},
	}
	// Neither supplier is known: defaults apply, but l-2's shorter link
	// lead time beats the 14-day default
	sel := SelectBest(links, map[string]*models.Supplier{})
	require.NotNil(t, sel)
	assert.Equal(t, "l-2", sel.Link.ID)
}
