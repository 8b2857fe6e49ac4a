package placement

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/preetsahil/MP/internal/metrics"
	"github.com/preetsahil/MP/internal/queue"
)

type fixture struct {
	store *MemoryStore
	queue *queue.InMemory
	reg   *prometheus.Registry
	svc   *Service
	now   time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		store: NewMemoryStore(),
		queue: queue.NewInMemory(4),
		reg:   prometheus.NewRegistry(),
		now:   day(2029, 6, 1),
	}
	f.svc = NewService(f.store, f.queue,
		WithClock(func() time.Time { return f.now }),
		WithMetrics(metrics.New(f.reg)))
	return f
}

func (f *fixture) addJob(t *testing.T, job JobProfile) JobProfile {
	t.Helper()
	require.NoError(t, f.store.CreateJob(context.Background(), job))
	return job
}

func TestServiceCreateJob(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	x := primitive.NewObjectID().Hex()

	in := baseJob()
	in.ID = "ignored"
	in.Status = StatusCompleted
	in.CompanyName = "  Acme  "
	in.Workflow = []WorkflowStep{oaStep(day(2030, 2, 1), []string{x}, []string{x},
		OALink{StudentID: x, Link: "http://oa/x", Visible: true})}

	job, err := f.svc.CreateJob(ctx, in)
	require.NoError(t, err)
	assert.True(t, primitive.IsValidObjectID(job.ID))
	assert.Equal(t, StatusPending, job.Status)
	assert.Equal(t, "Acme", job.CompanyName)
	assert.False(t, job.RoundsBegun(), "rosters are never accepted on creation")
	assert.Empty(t, job.Workflow[0].Details.(OADetails).Links)
	assert.Len(t, in.Workflow[0].Details.(OADetails).Links, 1, "caller's job is untouched")
	assert.Equal(t, f.now, job.CreatedAt)

	stored, err := f.svc.GetJob(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, job.ID, stored.ID)

	in.Type = ""
	_, err = f.svc.CreateJob(ctx, in)
	var verr ValidationError
	assert.ErrorAs(t, err, &verr)

	pending, err := f.svc.ListJobs(ctx, StatusPending)
	require.NoError(t, err)
	assert.Len(t, pending, 1)
	_, err = f.svc.ListJobs(ctx, "archived")
	assert.ErrorAs(t, err, &verr)
}

func TestServiceTransitionAndDelete(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	job := baseJob()
	job.Status = StatusPending
	f.addJob(t, job)

	got, err := f.svc.TransitionJob(ctx, job.ID, ActionApprove)
	require.NoError(t, err)
	assert.Equal(t, StatusApproved, got.Status)

	_, err = f.svc.TransitionJob(ctx, job.ID, ActionApprove)
	assert.ErrorIs(t, err, ErrInvalidTransition)

	require.NoError(t, f.svc.DeleteJob(ctx, job.ID))
	_, err = f.svc.GetJob(ctx, job.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, f.svc.DeleteJob(ctx, job.ID), ErrNotFound)
}

func TestServiceCheckEligibility(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	st := baseStudent()
	f.store.PutStudent(st)
	job := f.addJob(t, baseJob())

	got, err := f.svc.CheckEligibility(ctx, st.ID, job.ID)
	require.NoError(t, err)
	assert.True(t, got.Eligible)
	assert.Nil(t, got.Reason)
	assert.False(t, got.IsDeadlineOver)
	assert.False(t, got.Applied)

	f.now = day(2031, 1, 1)
	got, err = f.svc.CheckEligibility(ctx, st.ID, job.ID)
	require.NoError(t, err)
	assert.True(t, got.Eligible, "deadline does not affect eligibility")
	assert.True(t, got.IsDeadlineOver)

	got, err = f.svc.CheckEligibility(ctx, primitive.NewObjectID().Hex(), job.ID)
	require.NoError(t, err)
	assert.False(t, got.Eligible)
	require.NotNil(t, got.Reason)
	assert.Equal(t, "student record not found", *got.Reason)

	_, err = f.svc.CheckEligibility(ctx, st.ID, primitive.NewObjectID().Hex())
	assert.ErrorIs(t, err, ErrNotFound)

	expected := `
# HELP placement_eligibility_evaluations_total Eligibility evaluations by outcome.
# TYPE placement_eligibility_evaluations_total counter
placement_eligibility_evaluations_total{result="eligible"} 2
`
	assert.NoError(t, testutil.GatherAndCompare(f.reg, strings.NewReader(expected), "placement_eligibility_evaluations_total"))
}

func TestServiceApply(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	st := baseStudent()
	f.store.PutStudent(st)
	job := f.addJob(t, baseJob())

	app, err := f.svc.Apply(ctx, st.ID, job.ID)
	require.NoError(t, err)
	assert.Equal(t, job.ID, app.JobID)
	assert.Equal(t, st.ID, app.StudentID)

	_, err = f.svc.Apply(ctx, st.ID, job.ID)
	assert.ErrorIs(t, err, ErrAlreadyApplied)

	status, err := f.svc.CheckEligibility(ctx, st.ID, job.ID)
	require.NoError(t, err)
	assert.True(t, status.Applied)

	weak := baseStudent()
	weak.CGPA = ptr(6.0)
	f.store.PutStudent(weak)
	_, err = f.svc.Apply(ctx, weak.ID, job.ID)
	assert.ErrorIs(t, err, ErrNotEligible)
	assert.ErrorContains(t, err, "cgpa")

	debarred := baseStudent()
	debarred.Debarred = true
	f.store.PutStudent(debarred)
	_, err = f.svc.Apply(ctx, debarred.ID, job.ID)
	assert.ErrorIs(t, err, ErrDebarred)

	pending := baseJob()
	pending.Status = StatusPending
	f.addJob(t, pending)
	_, err = f.svc.Apply(ctx, st.ID, pending.ID)
	assert.ErrorIs(t, err, ErrJobNotOpen)

	f.now = day(2031, 1, 1)
	other := baseStudent()
	f.store.PutStudent(other)
	_, err = f.svc.Apply(ctx, other.ID, job.ID)
	assert.ErrorIs(t, err, ErrDeadlineOver)
}

func TestServiceStudentViews(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	x := primitive.NewObjectID().Hex()

	a := baseJob()
	a.Workflow = []WorkflowStep{oaStep(day(2029, 5, 1), []string{x}, []string{x})}
	b := baseJob()
	b.Workflow = []WorkflowStep{
		{Details: ResumeShortlistingDetails{}, EligibleStudents: []string{x}, ShortlistedStudents: []string{x}},
		oaStep(day(2029, 7, 1), []string{x}, nil, OALink{StudentID: x, Visible: false}),
	}
	c := baseJob()
	c.Workflow = []WorkflowStep{oaStep(day(2029, 8, 1), []string{primitive.NewObjectID().Hex()}, nil)}
	f.addJob(t, a)
	f.addJob(t, b)
	f.addJob(t, c)

	upcoming, err := f.svc.ListUpcomingOAs(ctx, x)
	require.NoError(t, err)
	require.Len(t, upcoming, 1)
	assert.Equal(t, b.ID, upcoming[0].JobID)
	assert.Equal(t, LinkNotVisible, upcoming[0].Link)

	past, err := f.svc.ListPastOAs(ctx, x)
	require.NoError(t, err)
	require.Len(t, past, 1)
	assert.Equal(t, a.ID, past[0].JobID)
	assert.Equal(t, Shortlisted, past[0].WasShortlisted)

	steps, err := f.svc.StudentWorkflow(ctx, x, b.ID)
	require.NoError(t, err)
	require.Len(t, steps, 2)
	assert.Equal(t, StateResolved, steps[0].State)
	assert.Equal(t, 1, steps[1].Position)

	steps, err = f.svc.StudentWorkflow(ctx, x, c.ID)
	require.NoError(t, err)
	assert.Empty(t, steps)
}

func TestServiceRosters(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	good := baseStudent()
	weak := baseStudent()
	weak.Batch = "2024"
	f.store.PutStudent(good)
	f.store.PutStudent(weak)

	job := baseJob()
	job.Workflow = []WorkflowStep{NewStep(OADetails{Date: day(2029, 7, 1)}), NewStep(InterviewDetails{})}
	f.addJob(t, job)

	_, err := f.svc.SetEligibleStudents(ctx, job.ID, 0, []string{good.ID, weak.ID})
	var verr ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, err.Error(), weak.ID)
	assert.NotContains(t, err.Error(), good.ID+" (")

	stored, err := f.svc.GetJob(ctx, job.ID)
	require.NoError(t, err)
	assert.False(t, stored.RoundsBegun(), "a rejected roster writes nothing")

	_, err = f.svc.SetEligibleStudents(ctx, job.ID, 0, []string{good.ID})
	require.NoError(t, err)

	_, err = f.svc.SetOALinks(ctx, job.ID, 0, []OALink{{StudentID: good.ID, Link: "http://oa/1", Visible: true}})
	require.NoError(t, err)
	_, err = f.svc.SetLinkVisibility(ctx, job.ID, 0, good.ID, false)
	require.NoError(t, err)
	got, err := f.svc.SetShortlistedStudents(ctx, job.ID, 0, []string{good.ID})
	require.NoError(t, err)
	assert.Equal(t, StateResolved, got.Workflow[0].State())

	_, err = f.svc.ReorderSteps(ctx, job.ID, []int{1, 0})
	assert.ErrorIs(t, err, ErrWorkflowLocked)
	_, err = f.svc.RemoveStep(ctx, job.ID, 1)
	assert.ErrorIs(t, err, ErrWorkflowLocked)
	got, err = f.svc.AddStep(ctx, job.ID, GDDetails{Info: "final"})
	require.NoError(t, err)
	assert.Len(t, got.Workflow, 3)
	got, err = f.svc.UpdateStep(ctx, job.ID, 2, OthersDetails{RoundName: "HR"})
	require.NoError(t, err)
	assert.Equal(t, StepOthers, got.Workflow[2].Type())

	view := ProjectStep(good.ID, got, 0)
	require.NotNil(t, view)
	assert.Equal(t, LinkNotVisible, view.OA.Link)
}

func TestServiceUpdateStudentStatus(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	st := baseStudent()
	f.store.PutStudent(st)

	_, err := f.svc.UpdateStudentStatus(ctx, st.ID, StatusUpdate{})
	var verr ValidationError
	assert.ErrorAs(t, err, &verr)

	got, err := f.svc.UpdateStudentStatus(ctx, st.ID, StatusUpdate{Debarred: ptr(true), PlacementStatus: ptr(" placed ")})
	require.NoError(t, err)
	assert.True(t, got.Debarred)
	assert.Equal(t, "placed", got.PlacementStatus)
	assert.Equal(t, "", got.InternshipStatus)

	_, err = f.svc.UpdateStudentStatus(ctx, primitive.NewObjectID().Hex(), StatusUpdate{Debarred: ptr(false)})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestServiceScreening(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	good := baseStudent()
	weak := baseStudent()
	weak.Course = "MBA"
	f.store.PutStudent(good)
	f.store.PutStudent(weak)

	job := baseJob()
	job.Workflow = []WorkflowStep{NewStep(ResumeShortlistingDetails{})}
	f.addJob(t, job)

	_, err := f.svc.Apply(ctx, good.ID, job.ID)
	require.NoError(t, err)
	require.NoError(t, f.store.CreateApplication(ctx, Application{ID: "a2", JobID: job.ID, StudentID: weak.ID, CreatedAt: f.now}))
	gone := primitive.NewObjectID().Hex()
	require.NoError(t, f.store.CreateApplication(ctx, Application{ID: "a3", JobID: job.ID, StudentID: gone, CreatedAt: f.now}))

	msg, err := f.svc.RequestScreening(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, queue.TypeScreen, msg.Type)
	assert.Equal(t, job.ID, string(msg.Body))

	res, err := f.svc.ScreenApplicants(ctx, job.ID)
	require.NoError(t, err)
	assert.False(t, res.Skipped)
	assert.Equal(t, []string{good.ID}, res.Eligible)
	assert.Equal(t, []string{weak.ID, gone}, res.Rejected, "applicants without a student record are rejected")

	stored, err := f.svc.GetJob(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{good.ID}, stored.Workflow[0].EligibleStudents)

	_, err = f.svc.SetShortlistedStudents(ctx, job.ID, 0, []string{good.ID})
	require.NoError(t, err)
	res, err = f.svc.ScreenApplicants(ctx, job.ID)
	require.NoError(t, err)
	assert.True(t, res.Skipped)
	expected := `
# HELP placement_screening_runs_total Applicant screening runs by outcome.
# TYPE placement_screening_runs_total counter
placement_screening_runs_total{outcome="skipped"} 1
placement_screening_runs_total{outcome="updated"} 1
`
	assert.NoError(t, testutil.GatherAndCompare(f.reg, strings.NewReader(expected), "placement_screening_runs_total"))

	empty := baseJob()
	f.addJob(t, empty)
	_, err = f.svc.RequestScreening(ctx, empty.ID)
	var verr ValidationError
	assert.ErrorAs(t, err, &verr)

	noQueue := NewService(f.store, nil)
	_, err = noQueue.RequestScreening(ctx, job.ID)
	assert.Error(t, err)
}
