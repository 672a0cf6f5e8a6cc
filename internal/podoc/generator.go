package podoc

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/stokhq/inventory-agent/internal/config"
	"github.com/stokhq/inventory-agent/internal/models"
)

const sheetName = "Purchase Order"

// Generator produces purchase order spreadsheets for approved order
// actions. Documents are written under the configured output directory and
// attached to the purchasing notification.
type Generator struct {
	cfg    config.PurchaseOrderConfig
	logger *zap.Logger
	now    func() time.Time
}

// NewGenerator creates a purchase order document generator.
func NewGenerator(cfg config.PurchaseOrderConfig, logger *zap.Logger) *Generator {
	return &Generator{
		cfg:    cfg,
		logger: logger,
		now:    time.Now,
	}
}

// Generate writes the purchase order document for one approved action and
// returns its path. The supplier may be nil when the action carries no
// sourcing candidate.
func (g *Generator) Generate(action *models.PendingAction, sku *models.SKU, supplier *models.Supplier) (string, error) {
	if action.RecommendedQty == nil {
		return "", fmt.Errorf("action %s has no recommended quantity", action.ID)
	}
	qty := *action.RecommendedQty

	unitCost := decimal.NewFromFloat(sku.UnitCost)
	total := unitCost.Mul(decimal.NewFromInt(int64(qty))).Round(2)

	f := excelize.NewFile()
	defer f.Close()

	index, err := f.NewSheet(sheetName)
	if err != nil {
		return "", fmt.Errorf("create sheet: %w", err)
	}
	f.SetActiveSheet(index)
	if err := f.DeleteSheet("Sheet1"); err != nil {
		g.logger.Warn("Failed to remove default sheet", zap.Error(err))
	}

	now := g.now()
	poNumber := fmt.Sprintf("PO-%s-%s", now.Format("20060102"), shortID(action.ID))

	g.setCell(f, "A1", g.cfg.CompanyName)
	g.setCell(f, "A2", "PURCHASE ORDER")
	g.setCell(f, "A3", fmt.Sprintf("PO Number: %s", poNumber))
	g.setCell(f, "A4", fmt.Sprintf("Date: %s", now.Format("2006-01-02")))

	g.setCell(f, "A6", "Supplier")
	if supplier != nil {
		g.setCell(f, "B6", supplier.Name)
		g.setCell(f, "B7", supplier.ContactEmail)
	} else {
		g.setCell(f, "B6", "To be assigned")
	}

	g.setCell(f, "A9", "SKU Code")
	g.setCell(f, "B9", "Item")
	g.setCell(f, "C9", "Quantity")
	g.setCell(f, "D9", "Unit Cost")
	g.setCell(f, "E9", "Total")

	g.setCell(f, "A10", sku.SKUCode)
	g.setCell(f, "B10", sku.Name)
	g.setCell(f, "C10", qty)
	g.setCell(f, "D10", unitCost.StringFixed(2))
	g.setCell(f, "E10", total.StringFixed(2))

	g.setCell(f, "D12", "Order Total")
	g.setCell(f, "E12", total.StringFixed(2))

	g.setCell(f, "A14", fmt.Sprintf("Generated from action %s", action.ID))

	if err := os.MkdirAll(g.cfg.OutputDir, 0o755); err != nil {
		return "", fmt.Errorf("create output dir: %w", err)
	}
	outputPath := filepath.Join(g.cfg.OutputDir, poNumber+".xlsx")
	if err := f.SaveAs(outputPath); err != nil {
		return "", fmt.Errorf("save purchase order: %w", err)
	}

	g.logger.Info("Purchase order generated",
		zap.String("po_number", poNumber),
		zap.String("sku_code", sku.SKUCode),
		zap.Int("quantity", qty),
		zap.String("total", total.StringFixed(2)),
		zap.String("path", outputPath))
	return outputPath, nil
}

func (g *Generator) setCell(f *excelize.File, cell string, value interface{}) {
	if err := f.SetCellValue(sheetName, cell, value); err != nil {
		g.logger.Warn("Failed to set cell value",
			zap.String("cell", cell),
			zap.Error(err))
	}
}

// shortID keeps file names readable; action IDs are UUIDs.
func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
