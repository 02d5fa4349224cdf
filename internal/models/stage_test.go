package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStageSequenceNext(t *testing.T) {
	tests := []struct {
		stage Stage
		next  Stage
	}{
		{StageOrderProcessing, StageMaterialProcurement},
		{StageMaterialProcurement, StageCutting},
		{StageCutting, StageSewingAssembly},
		{StageSewingAssembly, StageQualityControl},
		{StageQualityControl, StageFinishing},
		{StageFinishing, StageDispatch},
		{StageDispatch, StageDelivered},
		{StageDelivered, StageDelivered},
		{Stage("ironing"), StageDelivered},
	}
	for _, tt := range tests {
		t.Run(string(tt.stage), func(t *testing.T) {
			assert.Equal(t, tt.next, tt.stage.Next())
		})
	}
}

func TestStageIndexAndValid(t *testing.T) {
	assert.Len(t, StageSequence, 8)
	for i, st := range StageSequence {
		assert.Equal(t, i, st.Index())
		assert.True(t, st.Valid())
	}
	assert.Equal(t, -1, Stage("").Index())
	assert.False(t, Stage("packing").Valid())
	assert.True(t, StageDelivered.IsTerminal())
	assert.False(t, StageDispatch.IsTerminal())
}

func TestParseStage(t *testing.T) {
	st, err := ParseStage("quality_control")
	require.NoError(t, err)
	assert.Equal(t, StageQualityControl, st)

	_, err = ParseStage("Quality Control")
	assert.Error(t, err)
}

func TestStageLabel(t *testing.T) {
	assert.Equal(t, "Sewing & Assembly", StageSewingAssembly.Label())
	assert.Equal(t, "custom", Stage("custom").Label())
}

func TestDurationMinutes(t *testing.T) {
	start := time.Date(2024, 1, 1, 8, 0, 0, 0, time.UTC)

	d, ok := DurationMinutes(start, start.Add(90*time.Minute+59*time.Second))
	assert.True(t, ok)
	assert.Equal(t, 90, d, "partial minutes are truncated")

	d, ok = DurationMinutes(start, start)
	assert.True(t, ok)
	assert.Equal(t, 0, d)

	d, ok = DurationMinutes(start, start.Add(-5*time.Minute))
	assert.False(t, ok)
	assert.Equal(t, 0, d)
}

func TestInspectionCountsBalanced(t *testing.T) {
	assert.True(t, InspectionCounts{Total: 10, Passed: 7, Repaired: 2, Rejected: 1}.Balanced())
	assert.True(t, InspectionCounts{}.Balanced())
	assert.False(t, InspectionCounts{Total: 10, Passed: 7, Repaired: 2}.Balanced())
}

func TestIssueEnums(t *testing.T) {
	assert.True(t, SeverityCritical.Valid())
	assert.False(t, IssueSeverity("cosmetic").Valid())
	assert.True(t, IssueCategoryRepair.Valid())
	assert.False(t, IssueCategory("scrap").Valid())
}

func TestSampleStatusTransitions(t *testing.T) {
	assert.True(t, SampleStatusRequested.CanTransitionTo(SampleStatusInDevelopment))
	assert.True(t, SampleStatusInDevelopment.CanTransitionTo(SampleStatusSent))
	assert.True(t, SampleStatusSent.CanTransitionTo(SampleStatusApproved))
	assert.True(t, SampleStatusSent.CanTransitionTo(SampleStatusRejected))
	assert.True(t, SampleStatusRejected.CanTransitionTo(SampleStatusInDevelopment))

	assert.False(t, SampleStatusRequested.CanTransitionTo(SampleStatusApproved))
	assert.False(t, SampleStatusApproved.CanTransitionTo(SampleStatusInDevelopment))
}

func TestGenerateNumber(t *testing.T) {
	at := time.Date(2024, 5, 17, 10, 0, 0, 0, time.UTC)
	n := generateNumber("WO", at)
	assert.Regexp(t, `^WO-20240517-[0-9A-F]{6}$`, n)
	assert.NotEqual(t, n, generateNumber("WO", at))
}
