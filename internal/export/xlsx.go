// Package export renders portfolio reports as downloadable XLSX workbooks.
package export

import (
	"fmt"

	"github.com/xuri/excelize/v2"

	"github.com/vaultfolio/vaultfolio/internal/domain"
)

const (
	sheetPortfolio   = "Portfolio"
	sheetDiagnostics = "Diagnostics"
)

// Workbook renders a valued portfolio report into a two-sheet workbook:
// the valued lines with totals, and a diagnostics sheet listing skipped
// assets and workspace errors.
func Workbook(identity string, rep domain.PortfolioReport) (*excelize.File, error) {
	f := excelize.NewFile()
	f.SetSheetName("Sheet1", sheetPortfolio)
	if _, err := f.NewSheet(sheetDiagnostics); err != nil {
		return nil, fmt.Errorf("creating diagnostics sheet: %w", err)
	}

	if err := writePortfolio(f, identity, rep); err != nil {
		return nil, err
	}
	if err := writeDiagnostics(f, rep); err != nil {
		return nil, err
	}

	f.SetActiveSheet(0)
	return f, nil
}

func writePortfolio(f *excelize.File, identity string, rep domain.PortfolioReport) error {
	header, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("creating header style: %w", err)
	}

	if err := setRow(f, sheetPortfolio, 1, "Identity", identity); err != nil {
		return err
	}
	if err := setRow(f, sheetPortfolio, 2, "Generated", rep.GeneratedAt.Format("2006-01-02 15:04:05 UTC")); err != nil {
		return err
	}

	const headerRow = 4
	if err := setRow(f, sheetPortfolio, headerRow,
		"Symbol", "Quantity", "Price USD", "Value USD", "PnL 24h USD", "PnL 24h %"); err != nil {
		return err
	}
	if err := f.SetRowStyle(sheetPortfolio, headerRow, headerRow, header); err != nil {
		return fmt.Errorf("styling header row: %w", err)
	}

	row := headerRow
	for _, line := range rep.Lines {
		row++
		if err := setRow(f, sheetPortfolio, row,
			line.Symbol,
			line.Quantity.InexactFloat64(),
			line.CurrentPrice.InexactFloat64(),
			line.Value.InexactFloat64(),
			line.PnlAbsolute.InexactFloat64(),
			line.PnlPercent.InexactFloat64(),
		); err != nil {
			return err
		}
	}

	row += 2
	if err := setRow(f, sheetPortfolio, row, "Total", "", "",
		rep.TotalValue.InexactFloat64(), rep.TotalPnlAbsolute.InexactFloat64()); err != nil {
		return err
	}
	if err := f.SetRowStyle(sheetPortfolio, row, row, header); err != nil {
		return fmt.Errorf("styling total row: %w", err)
	}

	if err := f.SetColWidth(sheetPortfolio, "A", "F", 16); err != nil {
		return fmt.Errorf("setting column widths: %w", err)
	}
	return nil
}

func writeDiagnostics(f *excelize.File, rep domain.PortfolioReport) error {
	if err := setRow(f, sheetDiagnostics, 1, "Skipped assets"); err != nil {
		return err
	}
	if err := setRow(f, sheetDiagnostics, 2, "Symbol", "Workspace", "Vault account", "Reason"); err != nil {
		return err
	}
	row := 2
	for _, s := range rep.Skipped {
		row++
		if err := setRow(f, sheetDiagnostics, row,
			s.Symbol, string(s.Workspace), s.VaultAccountID, string(s.Reason)); err != nil {
			return err
		}
	}

	row += 2
	if err := setRow(f, sheetDiagnostics, row, "Workspace errors"); err != nil {
		return err
	}
	row++
	if err := setRow(f, sheetDiagnostics, row, "Workspace", "Vault account", "Error"); err != nil {
		return err
	}
	for _, we := range rep.WorkspaceErrors {
		row++
		if err := setRow(f, sheetDiagnostics, row,
			string(we.Workspace), we.VaultAccountID, we.Err); err != nil {
			return err
		}
	}

	if err := f.SetColWidth(sheetDiagnostics, "A", "D", 22); err != nil {
		return fmt.Errorf("setting column widths: %w", err)
	}
	return nil
}

func setRow(f *excelize.File, sheet string, row int, values ...any) error {
	for i, v := range values {
		cell, err := excelize.CoordinatesToCellName(i+1, row)
		if err != nil {
			return fmt.Errorf("computing cell name: %w", err)
		}
		if err := f.SetCellValue(sheet, cell, v); err != nil {
			return fmt.Errorf("writing cell %s!%s: %w", sheet, cell, err)
		}
	}
	return nil
}
