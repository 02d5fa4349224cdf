package quality_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/xelth-com/garmentflow/internal/apperr"
	"github.com/xelth-com/garmentflow/internal/models"
	"github.com/xelth-com/garmentflow/internal/services/quality"
	"github.com/xelth-com/garmentflow/internal/services/workflow"
	"github.com/xelth-com/garmentflow/internal/services/workorder"
	"github.com/xelth-com/garmentflow/internal/testutil"
)

const inspector = "inspector-1"

type captured struct{ events []workflow.Event }

func (c *captured) Publish(evt workflow.Event) { c.events = append(c.events, evt) }

type fixture struct {
	db     *gorm.DB
	clock  *testutil.Clock
	engine *workflow.Engine
	svc    *quality.Service
	events *captured
	wo     *models.WorkOrder
}

// setup creates a work order already sitting at stage
func setup(t *testing.T, stage models.Stage) *fixture {
	t.Helper()
	db := testutil.OpenTestDB(t)
	clock := testutil.NewClock()
	events := &captured{}
	engine := workflow.NewEngine(db, workflow.WithClock(clock.Now), workflow.WithPublisher(events))

	item := testutil.SeedApprovedItem(t, db, 5)
	ctx := context.Background()
	wo, err := workorder.NewService(db, engine, nil).CreateWorkOrder(ctx, item.ID, "planner-1", workorder.CreateOptions{})
	require.NoError(t, err)
	if stage != models.StageOrderProcessing {
		_, err = engine.UpdateStage(ctx, wo.ID, stage, "planner-1", "")
		require.NoError(t, err)
	}
	events.events = nil

	return &fixture{db: db, clock: clock, engine: engine, svc: quality.NewService(db, engine, nil), events: events, wo: wo}
}

func (f *fixture) currentStage(t *testing.T) models.Stage {
	t.Helper()
	var wo models.WorkOrder
	require.NoError(t, f.db.Where("id = ?", f.wo.ID).First(&wo).Error)
	return wo.CurrentStage
}

func (f *fixture) inspectionCount(t *testing.T) int64 {
	t.Helper()
	var n int64
	require.NoError(t, f.db.Model(&models.QualityInspection{}).Where("work_order_id = ?", f.wo.ID).Count(&n).Error)
	return n
}

func (f *fixture) request(passed, repaired, rejected, total int) quality.InspectionRequest {
	req := quality.InspectionRequest{
		WorkOrderID: f.wo.ID,
		Stage:       models.StageQualityControl,
		Counts:      models.InspectionCounts{Total: total, Passed: passed, Repaired: repaired, Rejected: rejected},
		InspectorID: inspector,
	}
	if repaired > 0 {
		req.Issues = append(req.Issues, models.QualityIssue{
			Type: "loose thread", Severity: models.SeverityMinor, Category: models.IssueCategoryRepair, Description: "collar",
		})
		req.RepairNotes = "re-stitched collar"
	}
	if rejected > 0 {
		req.Issues = append(req.Issues, models.QualityIssue{
			Type: "fabric hole", Severity: models.SeverityCritical, Category: models.IssueCategoryReject, Description: "left sleeve",
		})
	}
	return req
}

func TestRecordInspectionQuantityMismatch(t *testing.T) {
	f := setup(t, models.StageQualityControl)

	_, err := f.svc.RecordInspection(context.Background(), f.request(3, 2, 1, 5))
	require.ErrorIs(t, err, apperr.ErrQuantityMismatch)
	e, ok := apperr.As(err)
	require.True(t, ok)
	assert.Equal(t, 6, e.Details["sum"])
	assert.Equal(t, 5, e.Details["total"])
	assert.Equal(t, int64(0), f.inspectionCount(t), "nothing is written on validation failure")

	insp, err := f.svc.RecordInspection(context.Background(), f.request(3, 1, 1, 5))
	require.NoError(t, err)
	assert.Equal(t, models.DispositionReject, insp.FinalStatus)
	assert.Equal(t, int64(1), f.inspectionCount(t))
}

func TestRecordInspectionRejectsKeepWorkOrderAtQC(t *testing.T) {
	f := setup(t, models.StageQualityControl)

	insp, err := f.svc.RecordInspection(context.Background(), f.request(4, 0, 1, 5))
	require.NoError(t, err)
	assert.Equal(t, models.DispositionReject, insp.Status)
	assert.Equal(t, models.DispositionReject, insp.FinalStatus)
	assert.Equal(t, models.StageQualityControl, f.currentStage(t))

	open, err := f.engine.OpenEntries(context.Background(), f.wo.ID)
	require.NoError(t, err)
	require.Len(t, open, 1)
	assert.Equal(t, models.StageQualityControl, open[0].Stage)
	assert.Empty(t, f.events.events)
}

func TestRecordInspectionAllRejectedStays(t *testing.T) {
	f := setup(t, models.StageQualityControl)

	_, err := f.svc.RecordInspection(context.Background(), f.request(0, 0, 5, 5))
	require.NoError(t, err)
	assert.Equal(t, models.StageQualityControl, f.currentStage(t))
}

func TestRecordInspectionRepairedBatchAdvances(t *testing.T) {
	f := setup(t, models.StageQualityControl)
	f.clock.Advance(90 * time.Minute)

	insp, err := f.svc.RecordInspection(context.Background(), f.request(0, 5, 0, 5))
	require.NoError(t, err)
	assert.Equal(t, models.DispositionRepair, insp.FinalStatus)
	require.Len(t, insp.Issues, 1)
	assert.Equal(t, models.StageFinishing, f.currentStage(t))

	history, err := f.engine.History(context.Background(), f.wo.ID)
	require.NoError(t, err)
	var qc, finishing *models.StageHistory
	for i := range history {
		switch history[i].Stage {
		case models.StageQualityControl:
			qc = &history[i]
		case models.StageFinishing:
			finishing = &history[i]
		}
	}
	require.NotNil(t, qc)
	require.NotNil(t, qc.CompletedAt)
	require.NotNil(t, qc.Duration)
	assert.Equal(t, 0, *qc.Duration, "inspection closes quality control with zero duration")
	assert.Contains(t, qc.Notes, "QC completed by "+inspector)

	require.NotNil(t, finishing)
	assert.True(t, finishing.IsOpen())
	assert.Equal(t, inspector, finishing.UserID)

	require.Len(t, f.events.events, 1)
	assert.Equal(t, workflow.EventStageAdvanced, f.events.events[0].Type)
	assert.Equal(t, models.StageFinishing, f.events.events[0].CurrentStage)
}

func TestRecordInspectionAllPassedAdvances(t *testing.T) {
	f := setup(t, models.StageQualityControl)

	insp, err := f.svc.RecordInspection(context.Background(), f.request(5, 0, 0, 5))
	require.NoError(t, err)
	assert.Equal(t, models.DispositionPass, insp.FinalStatus)
	assert.NotNil(t, insp.Issues)
	assert.Equal(t, models.StageFinishing, f.currentStage(t))
}

func TestRecordInspectionOutsideQCNeverAdvances(t *testing.T) {
	f := setup(t, models.StageSewingAssembly)

	req := f.request(5, 0, 0, 5)
	req.Stage = models.StageSewingAssembly
	insp, err := f.svc.RecordInspection(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, models.DispositionPass, insp.FinalStatus)
	assert.Equal(t, models.StageSewingAssembly, f.currentStage(t))
}

func TestQCInspectionOnDeliveredOrderDoesNotReopen(t *testing.T) {
	f := setup(t, models.StageDispatch)
	ctx := context.Background()
	_, err := f.engine.FinishStage(ctx, f.wo.ID, models.StageDispatch, inspector, "")
	require.NoError(t, err)
	f.events.events = nil

	_, err = f.svc.RecordInspection(ctx, f.request(5, 0, 0, 5))
	require.NoError(t, err)
	assert.Equal(t, int64(1), f.inspectionCount(t))

	var wo models.WorkOrder
	require.NoError(t, f.db.Where("id = ?", f.wo.ID).First(&wo).Error)
	assert.Equal(t, models.StageDelivered, wo.CurrentStage)
	assert.NotNil(t, wo.CompletedAt)

	open, err := f.engine.OpenEntries(ctx, f.wo.ID)
	require.NoError(t, err)
	assert.Empty(t, open)
	assert.Empty(t, f.events.events)
}

func TestQCInspectionBeforeQCDoesNotSkipAhead(t *testing.T) {
	f := setup(t, models.StageCutting)
	ctx := context.Background()

	_, err := f.svc.RecordInspection(ctx, f.request(5, 0, 0, 5))
	require.NoError(t, err)
	assert.Equal(t, models.StageCutting, f.currentStage(t))

	open, err := f.engine.OpenEntries(ctx, f.wo.ID)
	require.NoError(t, err)
	require.Len(t, open, 1)
	assert.Equal(t, models.StageCutting, open[0].Stage)
	assert.Empty(t, f.events.events)
}

func TestRecordInspectionDefaultsToQualityControl(t *testing.T) {
	f := setup(t, models.StageQualityControl)

	req := f.request(5, 0, 0, 5)
	req.Stage = ""
	insp, err := f.svc.RecordInspection(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, models.StageQualityControl, insp.Stage)
	assert.Equal(t, models.StageFinishing, f.currentStage(t))
}

func TestRecordInspectionValidationErrors(t *testing.T) {
	f := setup(t, models.StageQualityControl)
	ctx := context.Background()

	noIssues := f.request(4, 0, 1, 5)
	noIssues.Issues = nil
	_, err := f.svc.RecordInspection(ctx, noIssues)
	assert.ErrorIs(t, err, apperr.ErrMissingIssues)

	noDate := f.request(5, 0, 0, 5)
	noDate.Reinspection = &quality.Reinspection{Required: true}
	_, err = f.svc.RecordInspection(ctx, noDate)
	assert.ErrorIs(t, err, apperr.ErrMissingReinspectionDate)

	noInspector := f.request(5, 0, 0, 5)
	noInspector.InspectorID = ""
	_, err = f.svc.RecordInspection(ctx, noInspector)
	assert.ErrorIs(t, err, apperr.ErrValidation)

	missingWO := f.request(5, 0, 0, 5)
	missingWO.WorkOrderID = "missing"
	_, err = f.svc.RecordInspection(ctx, missingWO)
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	assert.Equal(t, int64(0), f.inspectionCount(t))
	assert.Equal(t, models.StageQualityControl, f.currentStage(t))
}

func TestReinspectionIsStored(t *testing.T) {
	f := setup(t, models.StageQualityControl)

	date := f.clock.Now().Add(48 * time.Hour)
	req := f.request(4, 0, 1, 5)
	req.Reinspection = &quality.Reinspection{Required: true, Date: &date}
	insp, err := f.svc.RecordInspection(context.Background(), req)
	require.NoError(t, err)

	list, err := f.svc.ListInspections(context.Background(), f.wo.ID)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, insp.ID, list[0].ID)
	assert.True(t, list[0].ReinspectionRequired)
	require.NotNil(t, list[0].ReinspectionDate)
	assert.True(t, date.Equal(*list[0].ReinspectionDate))
	require.Len(t, list[0].Issues, 1)
	assert.Equal(t, models.SeverityCritical, list[0].Issues[0].Severity)
}

func TestUpdateInspectionNotesAndSummary(t *testing.T) {
	f := setup(t, models.StageQualityControl)
	ctx := context.Background()

	first, err := f.svc.RecordInspection(ctx, f.request(3, 0, 2, 5))
	require.NoError(t, err)
	f.clock.Advance(time.Hour)
	_, err = f.svc.RecordInspection(ctx, f.request(4, 1, 0, 5))
	require.NoError(t, err)

	updated, err := f.svc.UpdateInspectionNotes(ctx, first.ID, "rejects sent back to cutting", "supervisor-1")
	require.NoError(t, err)
	assert.Equal(t, "rejects sent back to cutting", updated.Notes)
	assert.Equal(t, 3, updated.PassedQuantity, "counts are immutable")

	_, err = f.svc.UpdateInspectionNotes(ctx, "missing", "x", "supervisor-1")
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	sum, err := f.svc.Summarize(ctx, f.wo.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, sum.Inspections)
	assert.Equal(t, models.InspectionCounts{Total: 10, Passed: 7, Repaired: 1, Rejected: 2}, sum.Counts)
	assert.Equal(t, models.DispositionRepair, sum.Latest)
}
