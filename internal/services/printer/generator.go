package printer

import (
	"bytes"
	"fmt"
	"time"

	"github.com/jung-kurt/gofpdf"
	"github.com/skip2/go-qrcode"

	"github.com/xelth-com/garmentflow/internal/models"
	"github.com/xelth-com/garmentflow/internal/services/quality"
)

// TravelerConfig holds configuration for traveler generation
type TravelerConfig struct {
	CompanyName string
	BaseURL     string // QR codes point to BaseURL + "/work-orders/{id}"
}

// TravelerData is everything printed on a work order traveler
type TravelerData struct {
	WorkOrder   models.WorkOrder
	History     []models.StageHistory
	Inspections []models.QualityInspection
	PrintedAt   time.Time
}

// TravelerURL returns the link encoded in the traveler QR code
func TravelerURL(cfg TravelerConfig, workOrderID string) string {
	return fmt.Sprintf("%s/work-orders/%s", cfg.BaseURL, workOrderID)
}

// GenerateTravelerPDF creates the A4 sheet that follows a work order through
// the shop floor: header with QR code, stage ledger and inspection results.
func GenerateTravelerPDF(cfg TravelerConfig, data TravelerData) ([]byte, error) {
	wo := data.WorkOrder
	printedAt := data.PrintedAt
	if printedAt.IsZero() {
		printedAt = time.Now().UTC()
	}

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(15, 15, 15)
	pdf.SetAutoPageBreak(true, 15)
	pdf.AddPage()

	// Header
	pdf.SetFont("Arial", "B", 16)
	pdf.CellFormat(130, 8, cfg.CompanyName, "", 1, "L", false, 0, "")
	pdf.SetFont("Arial", "", 11)
	pdf.CellFormat(130, 6, "Work Order Traveler", "", 1, "L", false, 0, "")

	qrPng, err := qrcode.Encode(TravelerURL(cfg, wo.ID), qrcode.Medium, 256)
	if err != nil {
		return nil, fmt.Errorf("failed to encode QR code: %w", err)
	}
	imgOptions := gofpdf.ImageOptions{ImageType: "PNG", ReadDpi: true}
	imgName := "qr_" + wo.ID
	pdf.RegisterImageOptionsReader(imgName, imgOptions, bytes.NewReader(qrPng))
	pdf.ImageOptions(imgName, 160, 12, 35, 35, false, imgOptions, 0, "")

	pdf.Ln(6)
	field := func(label, value string) {
		pdf.SetFont("Arial", "B", 10)
		pdf.CellFormat(45, 6, label, "", 0, "L", false, 0, "")
		pdf.SetFont("Arial", "", 10)
		pdf.CellFormat(90, 6, value, "", 1, "L", false, 0, "")
	}
	field("Work order", wo.WorkOrderNumber)
	field("Product", wo.ProductName)
	field("Quantity", fmt.Sprintf("%d", wo.Quantity))
	field("Priority", fmt.Sprintf("%d", wo.Priority))
	field("Current stage", wo.CurrentStage.Label())
	field("Started", formatTime(wo.StartedAt))
	field("Estimated completion", formatTime(wo.EstimatedCompletion))
	field("Completed", formatTime(wo.CompletedAt))

	// Stage ledger
	pdf.Ln(6)
	pdf.SetFont("Arial", "B", 12)
	pdf.CellFormat(0, 8, "Stages", "", 1, "L", false, 0, "")
	widths := []float64{45, 40, 40, 25, 30}
	header := []string{"Stage", "Started", "Completed", "Minutes", "By"}
	pdf.SetFont("Arial", "B", 9)
	pdf.SetFillColor(217, 225, 242)
	for i, h := range header {
		pdf.CellFormat(widths[i], 7, h, "1", 0, "C", true, 0, "")
	}
	pdf.Ln(-1)
	pdf.SetFont("Arial", "", 9)
	for _, h := range data.History {
		completed := "running"
		if h.CompletedAt != nil {
			completed = h.CompletedAt.Format("2006-01-02 15:04")
		}
		minutes := ""
		if h.Duration != nil {
			minutes = fmt.Sprintf("%d", *h.Duration)
		}
		row := []string{h.Stage.Label(), h.StartedAt.Format("2006-01-02 15:04"), completed, minutes, h.UserID}
		for i, v := range row {
			pdf.CellFormat(widths[i], 6, truncate(v, 24), "1", 0, "L", false, 0, "")
		}
		pdf.Ln(-1)
	}

	// Inspections
	if len(data.Inspections) > 0 {
		pdf.Ln(6)
		pdf.SetFont("Arial", "B", 12)
		pdf.CellFormat(0, 8, "Quality inspections", "", 1, "L", false, 0, "")
		pdf.SetFont("Arial", "", 9)
		for _, insp := range data.Inspections {
			line := fmt.Sprintf("%s  %s  total %d / passed %d / repaired %d / rejected %d  -> %s (%s)",
				insp.InspectedAt.Format("2006-01-02 15:04"), insp.Stage.Label(),
				insp.TotalQuantity, insp.PassedQuantity, insp.RepairedQuantity, insp.RejectedQuantity,
				insp.FinalStatus, quality.DispositionLabel(insp.Counts()))
			pdf.CellFormat(0, 6, line, "", 1, "L", false, 0, "")
			for _, issue := range insp.Issues {
				pdf.CellFormat(0, 5, fmt.Sprintf("    - [%s/%s] %s: %s", issue.Severity, issue.Category, issue.Type, issue.Description), "", 1, "L", false, 0, "")
			}
		}
	}

	pdf.Ln(4)
	pdf.SetFont("Arial", "I", 8)
	pdf.CellFormat(0, 5, "Printed "+printedAt.Format(time.RFC3339), "", 1, "R", false, 0, "")

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func formatTime(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return t.Format("2006-01-02 15:04")
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-1] + "~"
}
