package tracker_test

import (
	"fmt"
	"testing"
	"time"

	"github.com/mcsmartbytes/job-sense/internal/domain"
	"github.com/mcsmartbytes/job-sense/internal/pipeline"
	"github.com/mcsmartbytes/job-sense/internal/tracker"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2026, 4, 2, 9, 30, 0, 0, time.UTC)

type testClock struct {
	now time.Time
}

func (c *testClock) Now() time.Time {
	return c.now
}

func newStore(clock *testClock) *tracker.Store {
	n := 0
	return tracker.NewStore(
		tracker.WithClock(clock.Now),
		tracker.WithIDGenerator(func() string {
			n++
			return fmt.Sprintf("id-%d", n)
		}),
	)
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func wonBid() pipeline.Bid {
	value := dec("4800")
	return pipeline.Bid{
		ID:              "bid-1",
		Name:            "Oak Street Plaza",
		Description:     "Mill and overlay, restripe",
		CustomerName:    "Oak Street LLC",
		CustomerAddress: "12 Oak St",
		Stage:           pipeline.StageWon,
		EstimatedValue:  &value,
	}
}

func TestCreateJobFromBid(t *testing.T) {
	clock := &testClock{now: fixedNow}
	s := newStore(clock)

	job := s.CreateJobFromBid(wonBid(), []tracker.LineItemInput{
		{ServiceName: "Sealcoat", Quantity: dec("1"), Unit: "ea", Rate: dec("100")},
		{ServiceName: "Striping", Quantity: dec("1"), Unit: "ea", Rate: dec("50")},
	})

	assert.Equal(t, domain.JobStatusPlanned, job.Status)
	assert.Equal(t, "Oak Street Plaza", job.Name)
	assert.Equal(t, "bid-1", job.BidID)
	assert.Equal(t, "Oak Street LLC", job.ClientName)
	assert.Equal(t, "12 Oak St", job.PropertyAddress)
	assert.Equal(t, "Mill and overlay, restripe", job.Notes)
	assert.True(t, job.EstimatedValue.Equal(dec("4800")))
	assert.True(t, job.Margin.Equal(dec("0.25")))
	require.NotNil(t, job.WonDate)
	assert.Equal(t, fixedNow, *job.WonDate)
	assert.Empty(t, job.Tasks)
	assert.Empty(t, job.Materials)

	require.Len(t, job.Phases, 5)
	wantPhases := []string{"Pre-Job", "Mobilization", "Execution", "Quality Check", "Closeout"}
	for i, p := range job.Phases {
		assert.Equal(t, wantPhases[i], p.Name)
		assert.Equal(t, tracker.PhaseStatusPending, p.Status)
		assert.Equal(t, job.ID, p.JobID)
		assert.Equal(t, i, p.SortOrder)
	}

	require.Len(t, job.LineItems, 2)
	for _, item := range job.LineItems {
		assert.NotEmpty(t, item.ID)
		assert.Equal(t, job.ID, item.JobID)
	}
	assert.Equal(t, "100.00", job.LineItems[0].Subtotal.StringFixed(2))
	assert.NotEqual(t, job.LineItems[0].ID, job.LineItems[1].ID)

	stored, err := s.Job(job.ID)
	require.NoError(t, err)
	assert.Equal(t, job, stored)
}

func TestCreateJobFromBid_Defaults(t *testing.T) {
	s := newStore(&testClock{now: fixedNow})

	job := s.CreateJobFromBid(pipeline.Bid{ID: "b", Name: "No value"}, nil)
	assert.True(t, job.EstimatedValue.IsZero())
	assert.NotNil(t, job.LineItems)
	assert.Empty(t, job.LineItems)

	job = s.CreateJobFromBid(pipeline.Bid{ID: "b", Name: "Computed"}, []tracker.LineItemInput{
		{ServiceName: "Crack fill", Quantity: dec("120"), Unit: "lf", Rate: dec("1.15")},
		{ServiceName: "Patching", Quantity: dec("2"), Unit: "ea", Rate: dec("50")},
		{ServiceName: "Edging", Quantity: dec("3"), Unit: "lf", Rate: dec("0.333")},
	})
	assert.Equal(t, "138.00", job.LineItems[0].Subtotal.StringFixed(2))
	assert.Equal(t, "100.00", job.LineItems[1].Subtotal.StringFixed(2))
	assert.True(t, job.LineItems[2].Subtotal.Equal(dec("1")), "subtotals round to cents")

	assert.Len(t, s.Jobs(), 2, "duplicate conversions create separate jobs")
}

func TestLineItemInput_Validate(t *testing.T) {
	negative := dec("-1")
	tests := []struct {
		name    string
		input   tracker.LineItemInput
		wantErr bool
	}{
		{"valid", tracker.LineItemInput{ServiceName: "Sealcoat", Quantity: dec("2"), Unit: "sqft", Rate: dec("50")}, false},
		{"zero quantity and rate", tracker.LineItemInput{ServiceName: "Mobilization", Unit: "ea"}, false},
		{"negative quantity", tracker.LineItemInput{ServiceName: "Sealcoat", Quantity: dec("-2"), Unit: "sqft", Rate: dec("50")}, true},
		{"negative rate", tracker.LineItemInput{ServiceName: "Sealcoat", Quantity: dec("2"), Unit: "sqft", Rate: dec("-50")}, true},
		{"blank service name", tracker.LineItemInput{ServiceName: "  ", Quantity: dec("2"), Unit: "sqft", Rate: dec("50")}, true},
		{"negative labor cost", tracker.LineItemInput{ServiceName: "Sealcoat", Quantity: dec("2"), Unit: "sqft", Rate: dec("50"), LaborCost: &negative}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.input.Validate()
			if tt.wantErr {
				assert.ErrorIs(t, err, tracker.ErrInvalidLineItem)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestPhaseMutations(t *testing.T) {
	clock := &testClock{now: fixedNow}
	s := newStore(clock)
	job := s.CreateJobFromBid(wonBid(), nil)

	clock.now = fixedNow.Add(time.Hour)
	phase, err := s.AddPhase(job.ID, tracker.PhaseInput{Name: "Warranty", SortOrder: 5})
	require.NoError(t, err)
	assert.Equal(t, tracker.PhaseStatusPending, phase.Status)

	got, err := s.Job(job.ID)
	require.NoError(t, err)
	assert.Len(t, got.Phases, 6)
	assert.Equal(t, clock.now, got.UpdatedAt)

	clock.now = fixedNow.Add(2 * time.Hour)
	done := tracker.PhaseStatusCompleted
	updated, err := s.UpdatePhase(job.ID, phase.ID, tracker.PhaseUpdate{Status: &done})
	require.NoError(t, err)
	assert.Equal(t, tracker.PhaseStatusCompleted, updated.Status)

	back := tracker.PhaseStatusPending
	_, err = s.UpdatePhase(job.ID, phase.ID, tracker.PhaseUpdate{Status: &back})
	require.NoError(t, err, "phase status is unconstrained")

	require.NoError(t, s.RemovePhase(job.ID, phase.ID))
	got, err = s.Job(job.ID)
	require.NoError(t, err)
	assert.Len(t, got.Phases, 5)

	assert.ErrorIs(t, s.RemovePhase(job.ID, phase.ID), tracker.ErrPhaseNotFound)
}

func TestMutationsOnUnknownJobChangeNothing(t *testing.T) {
	s := newStore(&testClock{now: fixedNow})
	s.CreateJobFromBid(wonBid(), nil)
	before := s.Snapshot()

	_, err := s.AddPhase("missing", tracker.PhaseInput{Name: "x"})
	assert.ErrorIs(t, err, tracker.ErrJobNotFound)
	_, err = s.UpdatePhase("missing", "p", tracker.PhaseUpdate{})
	assert.ErrorIs(t, err, tracker.ErrJobNotFound)
	assert.ErrorIs(t, s.RemovePhase("missing", "p"), tracker.ErrJobNotFound)
	_, err = s.AddTask("missing", tracker.TaskInput{Name: "x"})
	assert.ErrorIs(t, err, tracker.ErrJobNotFound)
	_, err = s.UpdateTask("missing", "t", tracker.TaskUpdate{})
	assert.ErrorIs(t, err, tracker.ErrJobNotFound)
	assert.ErrorIs(t, s.RemoveTask("missing", "t"), tracker.ErrJobNotFound)
	_, err = s.UpdateJob("missing", tracker.JobUpdate{})
	assert.ErrorIs(t, err, tracker.ErrJobNotFound)

	assert.Equal(t, before, s.Snapshot())
}

func TestTaskMutations(t *testing.T) {
	clock := &testClock{now: fixedNow}
	s := newStore(clock)
	job := s.CreateJobFromBid(wonBid(), nil)

	task, err := s.AddTask(job.ID, tracker.TaskInput{Name: "Order sealer", PhaseID: job.Phases[0].ID})
	require.NoError(t, err)
	assert.Equal(t, tracker.TaskStatusTodo, task.Status)

	blocked := tracker.TaskStatusBlocked
	assignee := "crew-2"
	clock.now = fixedNow.Add(time.Minute)
	updated, err := s.UpdateTask(job.ID, task.ID, tracker.TaskUpdate{Status: &blocked, Assignee: &assignee})
	require.NoError(t, err)
	assert.Equal(t, tracker.TaskStatusBlocked, updated.Status)
	assert.Equal(t, "crew-2", updated.Assignee)
	assert.Equal(t, "Order sealer", updated.Name)

	got, err := s.Job(job.ID)
	require.NoError(t, err)
	assert.Equal(t, clock.now, got.UpdatedAt)

	_, err = s.UpdateTask(job.ID, "nope", tracker.TaskUpdate{})
	assert.ErrorIs(t, err, tracker.ErrTaskNotFound)

	require.NoError(t, s.RemoveTask(job.ID, task.ID))
	got, err = s.Job(job.ID)
	require.NoError(t, err)
	assert.Empty(t, got.Tasks)
}

func TestMaterials(t *testing.T) {
	s := newStore(&testClock{now: fixedNow})
	job := s.CreateJobFromBid(wonBid(), nil)

	qty := dec("55")
	m, err := s.AddMaterial(job.ID, tracker.MaterialInput{Name: "Sealer", Quantity: &qty, Unit: "gal"})
	require.NoError(t, err)

	got, err := s.Job(job.ID)
	require.NoError(t, err)
	require.Len(t, got.Materials, 1)
	assert.Equal(t, "Sealer", got.Materials[0].Name)

	require.NoError(t, s.RemoveMaterial(job.ID, m.ID))
	assert.ErrorIs(t, s.RemoveMaterial(job.ID, m.ID), tracker.ErrMaterialNotFound)
}

func TestUpdateJob_StatusLifecycle(t *testing.T) {
	clock := &testClock{now: fixedNow}
	s := newStore(clock)
	job := s.CreateJobFromBid(wonBid(), nil)

	status := func(v domain.JobStatus) *domain.JobStatus { return &v }

	_, err := s.UpdateJob(job.ID, tracker.JobUpdate{Status: status(domain.JobStatusCompleted)})
	assert.ErrorIs(t, err, tracker.ErrInvalidTransition)

	clock.now = fixedNow.Add(24 * time.Hour)
	active, err := s.UpdateJob(job.ID, tracker.JobUpdate{Status: status(domain.JobStatusActive)})
	require.NoError(t, err)
	assert.Equal(t, domain.JobStatusActive, active.Status)
	require.NotNil(t, active.StartDate)
	assert.Equal(t, clock.now, *active.StartDate)

	_, err = s.UpdateJob(job.ID, tracker.JobUpdate{Status: status(domain.JobStatusPlanned)})
	assert.ErrorIs(t, err, tracker.ErrInvalidTransition)

	clock.now = fixedNow.Add(72 * time.Hour)
	done, err := s.UpdateJob(job.ID, tracker.JobUpdate{Status: status(domain.JobStatusCompleted)})
	require.NoError(t, err)
	require.NotNil(t, done.EndDate)
	assert.Equal(t, clock.now, *done.EndDate)

	_, err = s.UpdateJob(job.ID, tracker.JobUpdate{Status: status(domain.JobStatusCancelled)})
	assert.ErrorIs(t, err, tracker.ErrInvalidTransition)
}

func TestUpdateJob_CancelStampsEndDate(t *testing.T) {
	clock := &testClock{now: fixedNow}
	s := newStore(clock)
	status := func(v domain.JobStatus) *domain.JobStatus { return &v }

	planned := s.CreateJobFromBid(wonBid(), nil)
	clock.now = fixedNow.Add(48 * time.Hour)
	cancelled, err := s.UpdateJob(planned.ID, tracker.JobUpdate{Status: status(domain.JobStatusCancelled)})
	require.NoError(t, err)
	assert.Equal(t, domain.JobStatusCancelled, cancelled.Status)
	require.NotNil(t, cancelled.EndDate)
	assert.Equal(t, clock.now, *cancelled.EndDate)

	running := s.CreateJobFromBid(wonBid(), nil)
	_, err = s.UpdateJob(running.ID, tracker.JobUpdate{Status: status(domain.JobStatusActive)})
	require.NoError(t, err)
	explicit := fixedNow.Add(24 * time.Hour)
	cancelled, err = s.UpdateJob(running.ID, tracker.JobUpdate{Status: status(domain.JobStatusCancelled), EndDate: &explicit})
	require.NoError(t, err)
	require.NotNil(t, cancelled.EndDate)
	assert.Equal(t, explicit, *cancelled.EndDate)
}

func TestJobsByStatusAndStats(t *testing.T) {
	s := newStore(&testClock{now: fixedNow})
	s.AddJob(tracker.Job{Name: "done", Status: domain.JobStatusCompleted, EstimatedValue: dec("1000")})
	s.AddJob(tracker.Job{Name: "running", Status: domain.JobStatusActive, EstimatedValue: dec("500")})

	completed := s.JobsByStatus(domain.JobStatusCompleted)
	require.Len(t, completed, 1)
	assert.Equal(t, "done", completed[0].Name)
	assert.Empty(t, s.JobsByStatus(domain.JobStatusCancelled))

	stats := s.Stats()
	assert.Equal(t, 2, stats.TotalJobs)
	assert.Equal(t, 1, stats.ActiveJobs)
	assert.Equal(t, 1, stats.CompletedJobs)
	assert.True(t, stats.TotalRevenue.Equal(dec("1000")))
	assert.True(t, stats.AverageJobValue.Equal(dec("1000")))
}

func TestStats_Empty(t *testing.T) {
	stats := newStore(&testClock{now: fixedNow}).Stats()
	assert.Equal(t, 0, stats.TotalJobs)
	assert.True(t, stats.TotalRevenue.IsZero())
	assert.True(t, stats.AverageJobValue.IsZero())
}

func TestActiveJobAndRemove(t *testing.T) {
	s := newStore(&testClock{now: fixedNow})
	job := s.CreateJobFromBid(wonBid(), nil)

	require.NoError(t, s.SetActiveJob(job.ID))
	_, ok := s.ActiveJob()
	assert.True(t, ok)

	require.NoError(t, s.RemoveJob(job.ID))
	_, ok = s.ActiveJob()
	assert.False(t, ok)
	assert.ErrorIs(t, s.SetActiveJob(job.ID), tracker.ErrJobNotFound)
}

func TestSnapshotRestore(t *testing.T) {
	s := newStore(&testClock{now: fixedNow})
	job := s.CreateJobFromBid(wonBid(), nil)
	require.NoError(t, s.SetActiveJob(job.ID))

	restored := tracker.NewStore()
	restored.Restore(s.Snapshot())

	assert.Equal(t, s.Jobs(), restored.Jobs())
	active, ok := restored.ActiveJob()
	require.True(t, ok)
	assert.Equal(t, job.ID, active.ID)
}
