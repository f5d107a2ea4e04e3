package export

import (
	"bytes"
	"fmt"
	"time"

	"github.com/mcsmartbytes/job-sense/internal/domain"
	"github.com/mcsmartbytes/job-sense/internal/mapper"
	"github.com/xuri/excelize/v2"
)

const (
	summarySheet = "Job Costs"
	entriesSheet = "Cost Entries"
)

var (
	summaryHeaders = []string{"Job", "Status", "Start", "End", "Budget", "Actual", "Variance", "Variance %"}
	summaryWidths  = []float64{36, 12, 12, 12, 14, 14, 14, 12}
	entryHeaders   = []string{"Job", "Date", "Cost code", "Description", "Amount"}
	entryWidths    = []float64{36, 12, 14, 48, 14}
)

// JobCostWorkbook renders one summary row per job and one sheet of cost entries.
// Jobs must have budgets and costs loaded.
func JobCostWorkbook(jobs []domain.Job) ([]byte, error) {
	f := excelize.NewFile()

	summaryIdx, err := f.NewSheet(summarySheet)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to create sheet: %w", err)
	}
	if _, err := f.NewSheet(entriesSheet); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to create sheet: %w", err)
	}
	f.DeleteSheet("Sheet1")
	f.SetActiveSheet(summaryIdx)

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#E6F3FF"}, Pattern: 1},
		Border: []excelize.Border{
			{Type: "left", Color: "000000", Style: 1},
			{Type: "top", Color: "000000", Style: 1},
			{Type: "bottom", Color: "000000", Style: 1},
			{Type: "right", Color: "000000", Style: 1},
		},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to create header style: %w", err)
	}
	moneyFmt := "#,##0.00"
	moneyStyle, err := f.NewStyle(&excelize.Style{CustomNumFmt: &moneyFmt})
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to create money style: %w", err)
	}

	if err := writeHeader(f, summarySheet, summaryHeaders, summaryWidths, headerStyle); err != nil {
		f.Close()
		return nil, err
	}
	if err := writeHeader(f, entriesSheet, entryHeaders, entryWidths, headerStyle); err != nil {
		f.Close()
		return nil, err
	}

	entryRow := 2
	for i := range jobs {
		job := &jobs[i]
		row := i + 2

		v := mapper.JobVariance(job)
		values := []interface{}{
			job.Name,
			string(job.Status),
			formatDate(job.StartDate),
			formatDate(job.EndDate),
			v.BudgetTotal.InexactFloat64(),
			v.ActualTotal.InexactFloat64(),
			v.Variance.InexactFloat64(),
			v.VariancePct.InexactFloat64(),
		}
		if err := writeRow(f, summarySheet, row, values); err != nil {
			f.Close()
			return nil, err
		}
		if err := styleRange(f, summarySheet, 5, 8, row, moneyStyle); err != nil {
			f.Close()
			return nil, err
		}

		for _, cost := range job.Costs {
			code := ""
			if cost.CostCode != nil {
				code = cost.CostCode.Code
			}
			entry := []interface{}{
				job.Name,
				cost.CreatedAt.Format("2006-01-02"),
				code,
				cost.Description,
				cost.Amount.InexactFloat64(),
			}
			if err := writeRow(f, entriesSheet, entryRow, entry); err != nil {
				f.Close()
				return nil, err
			}
			if err := styleRange(f, entriesSheet, 5, 5, entryRow, moneyStyle); err != nil {
				f.Close()
				return nil, err
			}
			entryRow++
		}
	}

	for _, sheet := range []string{summarySheet, entriesSheet} {
		if err := f.SetPanes(sheet, &excelize.Panes{
			Freeze:      true,
			YSplit:      1,
			TopLeftCell: "A2",
			ActivePane:  "bottomLeft",
		}); err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to freeze panes: %w", err)
		}
	}

	var buf bytes.Buffer
	if _, err := f.WriteTo(&buf); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to write to buffer: %w", err)
	}
	if err := f.Close(); err != nil {
		return nil, fmt.Errorf("failed to close workbook: %w", err)
	}
	return buf.Bytes(), nil
}

func formatDate(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format("2006-01-02")
}

func writeHeader(f *excelize.File, sheet string, headers []string, widths []float64, style int) error {
	for i, header := range headers {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return fmt.Errorf("failed to get cell name: %w", err)
		}
		if err := f.SetCellValue(sheet, cell, header); err != nil {
			return fmt.Errorf("failed to set header: %w", err)
		}
		if err := f.SetCellStyle(sheet, cell, cell, style); err != nil {
			return fmt.Errorf("failed to set header style: %w", err)
		}
		col, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			return fmt.Errorf("failed to get column name: %w", err)
		}
		if err := f.SetColWidth(sheet, col, col, widths[i]); err != nil {
			return fmt.Errorf("failed to set column width: %w", err)
		}
	}
	return nil
}

func writeRow(f *excelize.File, sheet string, row int, values []interface{}) error {
	for i, value := range values {
		cell, err := excelize.CoordinatesToCellName(i+1, row)
		if err != nil {
			return fmt.Errorf("failed to get cell name: %w", err)
		}
		if err := f.SetCellValue(sheet, cell, value); err != nil {
			return fmt.Errorf("failed to set cell value at row %d, col %d: %w", row, i+1, err)
		}
	}
	return nil
}

func styleRange(f *excelize.File, sheet string, fromCol, toCol, row, style int) error {
	from, err := excelize.CoordinatesToCellName(fromCol, row)
	if err != nil {
		return err
	}
	to, err := excelize.CoordinatesToCellName(toCol, row)
	if err != nil {
		return err
	}
	return f.SetCellStyle(sheet, from, to, style)
}
