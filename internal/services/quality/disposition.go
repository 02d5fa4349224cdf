package quality

import "github.com/xelth-com/garmentflow/internal/models"

// DeriveDisposition computes the overall verdict of a batch. Uniform batches
// take their own verdict; in mixed batches any reject wins, then any repair.
func DeriveDisposition(c models.InspectionCounts) models.Disposition {
	switch {
	case c.Passed == c.Total:
		return models.DispositionPass
	case c.Rejected == c.Total:
		return models.DispositionReject
	case c.Repaired == c.Total:
		return models.DispositionRepair
	case c.Rejected > 0:
		return models.DispositionReject
	case c.Repaired > 0:
		return models.DispositionRepair
	default:
		return models.DispositionPass
	}
}

// ShouldAdvance reports whether the batch has salvageable output and no
// rejects blocking the move from quality control to finishing. A single
// rejected unit keeps the work order at quality control for rework.
func ShouldAdvance(c models.InspectionCounts) bool {
	if c.Rejected > 0 {
		return false
	}
	return c.Passed > 0 || c.Repaired > 0
}

// DispositionLabel returns the summary text shown for uniform batches
func DispositionLabel(c models.InspectionCounts) string {
	switch {
	case c.Passed == c.Total:
		return "All Passed"
	case c.Rejected == c.Total:
		return "All Rejected"
	case c.Repaired == c.Total:
		return "All Repaired"
	}
	return "Mixed"
}
