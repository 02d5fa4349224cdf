// Package report builds spreadsheet exports of production data
package report

import (
	"fmt"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/xelth-com/garmentflow/internal/models"
)

const workOrderSheet = "Work Orders"

var workOrderHeaders = []string{
	"Work Order", "Product", "Quantity", "Stage", "Priority",
	"Started", "Estimated Completion", "Completed", "Created By",
}

// ExportWorkOrders writes one row per work order. The caller closes the file.
func ExportWorkOrders(wos []models.WorkOrder, generatedAt time.Time) (*excelize.File, string, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", workOrderSheet); err != nil {
		return nil, "", fmt.Errorf("rename sheet: %w", err)
	}

	boldStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Size: 11},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"#D9E1F2"}},
		Border: []excelize.Border{
			{Type: "bottom", Color: "000000", Style: 1},
		},
	})
	if err != nil {
		return nil, "", fmt.Errorf("header style: %w", err)
	}

	for i, h := range workOrderHeaders {
		col, _ := excelize.ColumnNumberToName(i + 1)
		cell := col + "1"
		f.SetCellValue(workOrderSheet, cell, h)
		f.SetCellStyle(workOrderSheet, cell, cell, boldStyle)
	}

	for idx, wo := range wos {
		row := idx + 2
		f.SetCellValue(workOrderSheet, fmt.Sprintf("A%d", row), wo.WorkOrderNumber)
		f.SetCellValue(workOrderSheet, fmt.Sprintf("B%d", row), wo.ProductName)
		f.SetCellValue(workOrderSheet, fmt.Sprintf("C%d", row), wo.Quantity)
		f.SetCellValue(workOrderSheet, fmt.Sprintf("D%d", row), wo.CurrentStage.Label())
		f.SetCellValue(workOrderSheet, fmt.Sprintf("E%d", row), wo.Priority)
		f.SetCellValue(workOrderSheet, fmt.Sprintf("F%d", row), timeCell(wo.StartedAt))
		f.SetCellValue(workOrderSheet, fmt.Sprintf("G%d", row), timeCell(wo.EstimatedCompletion))
		f.SetCellValue(workOrderSheet, fmt.Sprintf("H%d", row), timeCell(wo.CompletedAt))
		f.SetCellValue(workOrderSheet, fmt.Sprintf("I%d", row), wo.CreatedBy)
	}

	colWidths := []float64{24, 28, 10, 22, 9, 18, 20, 18, 16}
	for i, w := range colWidths {
		col, _ := excelize.ColumnNumberToName(i + 1)
		f.SetColWidth(workOrderSheet, col, col, w)
	}

	filename := fmt.Sprintf("work_orders_%s.xlsx", generatedAt.Format("20060102_1504"))
	return f, filename, nil
}

func timeCell(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format("2006-01-02 15:04")
}
