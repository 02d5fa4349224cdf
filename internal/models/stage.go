package models

import "fmt"

// Stage is a production stage of a work order
type Stage string

const (
	StageOrderProcessing     Stage = "order_processing"
	StageMaterialProcurement Stage = "material_procurement"
	StageCutting             Stage = "cutting"
	StageSewingAssembly      Stage = "sewing_assembly"
	StageQualityControl      Stage = "quality_control"
	StageFinishing           Stage = "finishing"
	StageDispatch            Stage = "dispatch"
	StageDelivered           Stage = "delivered" // terminal
)

// StageSequence is the ordered list of production stages.
// The index of a stage defines its position in the workflow.
var StageSequence = []Stage{
	StageOrderProcessing,
	StageMaterialProcurement,
	StageCutting,
	StageSewingAssembly,
	StageQualityControl,
	StageFinishing,
	StageDispatch,
	StageDelivered,
}

// Index returns the position of the stage in StageSequence, or -1 if unknown
func (s Stage) Index() int {
	for i, st := range StageSequence {
		if st == s {
			return i
		}
	}
	return -1
}

// Valid reports whether the stage is part of the sequence
func (s Stage) Valid() bool {
	return s.Index() >= 0
}

// IsTerminal reports whether the stage is the last one
func (s Stage) IsTerminal() bool {
	return s == StageDelivered
}

// Next returns the stage following s. The terminal stage and unknown stages
// map to delivered.
func (s Stage) Next() Stage {
	i := s.Index()
	if i < 0 || i >= len(StageSequence)-1 {
		return StageDelivered
	}
	return StageSequence[i+1]
}

// Label returns a human readable label for UI and documents
func (s Stage) Label() string {
	switch s {
	case StageOrderProcessing:
		return "Order Processing"
	case StageMaterialProcurement:
		return "Material Procurement"
	case StageCutting:
		return "Cutting"
	case StageSewingAssembly:
		return "Sewing & Assembly"
	case StageQualityControl:
		return "Quality Control"
	case StageFinishing:
		return "Finishing"
	case StageDispatch:
		return "Dispatch"
	case StageDelivered:
		return "Delivered"
	}
	return string(s)
}

// ParseStage converts a raw string into a Stage
func ParseStage(raw string) (Stage, error) {
	s := Stage(raw)
	if !s.Valid() {
		return "", fmt.Errorf("unknown stage %q", raw)
	}
	return s, nil
}
