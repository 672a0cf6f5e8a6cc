package podoc

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/stokhq/inventory-agent/internal/config"
	"github.com/stokhq/inventory-agent/internal/models"
)

func qty(v int) *int { return &v }

func newTestGenerator(t *testing.T) *Generator {
	t.Helper()
	g := NewGenerator(config.PurchaseOrderConfig{
		OutputDir:   t.TempDir(),
		CompanyName: "STOK Inventory",
	}, zap.NewNop())
	g.now = func() time.Time { return time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC) }
	return g
}

func TestGenerateWritesWorkbook(t *testing.T) {
	g := newTestGenerator(t)

	action := &models.PendingAction{
		ID:             "aaaabbbb-0000-0000-0000-000000000000",
		RecommendedQty: qty(120),
	}
	sku := &models.SKU{SKUCode: "WIDGET-1", Name: "Widget", UnitCost: 4.25}
	supplier := &models.Supplier{Name: "Acme Corp", ContactEmail: "orders@acme.example"}

	path, err := g.Generate(action, sku, supplier)
	require.NoError(t, err)
	assert.Equal(t, "PO-20250601-aaaabbbb.xlsx", filepath.Base(path))

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	get := func(cell string) string {
		v, err := f.GetCellValue(sheetName, cell)
		require.NoError(t, err)
		return v
	}
	assert.Equal(t, "STOK Inventory", get("A1"))
	assert.Equal(t, "Acme Corp", get("B6"))
	assert.Equal(t, "WIDGET-1", get("A10"))
	assert.Equal(t, "120", get("C10"))
	assert.Equal(t, "4.25", get("D10"))
	// 120 * 4.25 computed exactly
	assert.Equal(t, "510.00", get("E10"))
	assert.Equal(t, "510.00", get("E12"))
}

func TestGenerateWithoutSupplier(t *testing.T) {
	g := newTestGenerator(t)

	action := &models.PendingAction{ID: "short", RecommendedQty: qty(10)}
	sku := &models.SKU{SKUCode: "SKU-2", Name: "Gadget", UnitCost: 1.10}

	path, err := g.Generate(action, sku, nil)
	require.NoError(t, err)

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	v, err := f.GetCellValue(sheetName, "B6")
	require.NoError(t, err)
	assert.Equal(t, "To be assigned", v)
}

func TestGenerateRequiresQuantity(t *testing.T) {
	g := newTestGenerator(t)

	_, err := g.Generate(&models.PendingAction{ID: "a1"}, &models.SKU{}, nil)
	assert.Error(t, err)
}
