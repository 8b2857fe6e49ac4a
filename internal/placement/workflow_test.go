package placement

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func threeStepJob() JobProfile {
	job := baseJob()
	job.Workflow = []WorkflowStep{
		NewStep(ResumeShortlistingDetails{}),
		NewStep(OADetails{Date: day(2030, 2, 1)}),
		NewStep(InterviewDetails{Mode: "HR"}),
	}
	return job
}

func TestReorderBeforeRoundsBegin(t *testing.T) {
	job := threeStepJob()
	require.NoError(t, job.ReorderSteps([]int{2, 0, 1}))
	assert.Equal(t, StepInterview, job.Workflow[0].Type())
	assert.Equal(t, StepResumeShortlisting, job.Workflow[1].Type())
	assert.Equal(t, StepOA, job.Workflow[2].Type())

	assert.Error(t, job.ReorderSteps([]int{0, 0, 1}))
	assert.Error(t, job.ReorderSteps([]int{0, 1}))
	assert.Error(t, job.ReorderSteps([]int{0, 1, 3}))
}

func TestPositionalEditsLockedOnceRoundsBegin(t *testing.T) {
	x := primitive.NewObjectID().Hex()
	job := threeStepJob()
	require.NoError(t, job.SetEligible(0, []string{x}))
	assert.True(t, job.RoundsBegun())

	assert.ErrorIs(t, job.ReorderSteps([]int{1, 0, 2}), ErrWorkflowLocked)
	assert.ErrorIs(t, job.RemoveStep(2), ErrWorkflowLocked)
	assert.ErrorIs(t, job.UpdateStep(0, GDDetails{}), ErrWorkflowLocked)

	require.NoError(t, job.UpdateStep(2, GDDetails{Info: "panel"}), "steps without a roster may change type")
	require.NoError(t, job.AddStep(OthersDetails{RoundName: "Culture fit"}))
	assert.Len(t, job.Workflow, 4)
	assert.Equal(t, []string{x}, job.Workflow[0].EligibleStudents)
}

func TestStepIndexErrors(t *testing.T) {
	job := threeStepJob()
	assert.ErrorIs(t, job.RemoveStep(3), ErrStepIndex)
	assert.ErrorIs(t, job.UpdateStep(-1, GDDetails{}), ErrStepIndex)
	assert.ErrorIs(t, job.SetEligible(9, nil), ErrStepIndex)

	var verr ValidationError
	assert.ErrorAs(t, job.AddStep(nil), &verr)
	assert.ErrorAs(t, job.AddStep(UnknownDetails{Kind: "Quiz"}), &verr)
}

func TestRemoveStep(t *testing.T) {
	job := threeStepJob()
	require.NoError(t, job.RemoveStep(1))
	require.Len(t, job.Workflow, 2)
	assert.Equal(t, StepInterview, job.Workflow[1].Type())
}

func TestShortlistMustBeSubsetOfEligible(t *testing.T) {
	x := primitive.NewObjectID().Hex()
	y := primitive.NewObjectID().Hex()
	job := threeStepJob()

	require.NoError(t, job.SetEligible(1, []string{x, y, x}))
	assert.Equal(t, []string{x, y}, job.Workflow[1].EligibleStudents)

	var verr ValidationError
	assert.ErrorAs(t, job.SetShortlisted(1, []string{primitive.NewObjectID().Hex()}), &verr)
	require.NoError(t, job.SetShortlisted(1, []string{y}))
	assert.Equal(t, StateResolved, job.Workflow[1].State())

	assert.ErrorAs(t, job.SetEligible(1, []string{x}), &verr, "dropping a shortlisted student is refused")
	require.NoError(t, job.SetEligible(1, []string{y}))
}

func TestUpdateStepKeepsLinks(t *testing.T) {
	x := primitive.NewObjectID().Hex()
	job := threeStepJob()
	require.NoError(t, job.SetEligible(1, []string{x}))
	require.NoError(t, job.SetOALinks(1, []OALink{{StudentID: x, Link: "http://oa/x", Visible: true}}))

	require.NoError(t, job.UpdateStep(1, OADetails{Date: day(2030, 3, 1), Duration: "60"}))
	oa := job.Workflow[1].Details.(OADetails)
	assert.Equal(t, "60", oa.Duration)
	require.Len(t, oa.Links, 1)
	assert.Equal(t, "http://oa/x", oa.Links[0].Link)
}

func TestLinksOnlyForRosteredStudents(t *testing.T) {
	x := primitive.NewObjectID().Hex()
	y := primitive.NewObjectID().Hex()
	stranger := primitive.NewObjectID().Hex()
	strangerLink := []OALink{{StudentID: stranger, Link: "http://oa/stranger", Visible: true}}
	job := threeStepJob()

	require.NoError(t, job.AddStep(OADetails{Date: day(2030, 4, 1), Links: strangerLink}))
	assert.Empty(t, job.Workflow[3].Details.(OADetails).Links, "a new round has nobody to link")

	require.NoError(t, job.SetEligible(1, []string{x, y}))
	require.NoError(t, job.SetOALinks(1, []OALink{
		{StudentID: x, Link: "http://oa/x", Visible: true},
		{StudentID: y, Link: "http://oa/y", Visible: true},
	}))

	require.NoError(t, job.UpdateStep(1, OADetails{Duration: "90", Links: strangerLink}))
	oa := job.Workflow[1].Details.(OADetails)
	assert.Equal(t, "90", oa.Duration)
	require.Len(t, oa.Links, 2)
	assert.Equal(t, x, oa.Links[0].StudentID)
	assert.Equal(t, y, oa.Links[1].StudentID)
	assert.Nil(t, ProjectStep(stranger, job, 1))

	require.NoError(t, job.SetEligible(1, []string{x}))
	oa = job.Workflow[1].Details.(OADetails)
	require.Len(t, oa.Links, 1, "link of a student leaving the roster is dropped")
	assert.Equal(t, x, oa.Links[0].StudentID)

	require.NoError(t, job.SetEligible(1, []string{x, y}))
	p := ProjectStep(y, job, 1)
	require.NotNil(t, p)
	assert.Equal(t, NoLinkAvailable, p.OA.Link)
}

func TestSetOALinks(t *testing.T) {
	x := primitive.NewObjectID().Hex()
	y := primitive.NewObjectID().Hex()
	job := threeStepJob()
	require.NoError(t, job.SetEligible(1, []string{x}))

	var verr ValidationError
	assert.ErrorAs(t, job.SetOALinks(0, nil), &verr, "not an OA step")
	assert.ErrorAs(t, job.SetOALinks(1, []OALink{{StudentID: y, Link: "l"}}), &verr)
	assert.ErrorAs(t, job.SetOALinks(1, []OALink{{StudentID: x}, {StudentID: x}}), &verr)
	assert.ErrorAs(t, job.SetOALinks(1, []OALink{{Link: "l"}}), &verr)

	upper := "  " + x + "  "
	require.NoError(t, job.SetOALinks(1, []OALink{{StudentID: upper, Link: "http://oa/x", Visible: true}}))
	assert.Equal(t, x, job.Workflow[1].Details.(OADetails).Links[0].StudentID)
}

func TestSetLinkVisibility(t *testing.T) {
	x := primitive.NewObjectID().Hex()
	job := threeStepJob()
	require.NoError(t, job.SetEligible(1, []string{x}))

	require.NoError(t, job.SetLinkVisibility(1, x, false))
	p := ProjectStep(x, job, 1)
	require.NotNil(t, p)
	assert.Equal(t, LinkNotVisible, p.OA.Link)

	require.NoError(t, job.SetLinkVisibility(1, x, true))
	p = ProjectStep(x, job, 1)
	assert.Equal(t, NoLinkAvailable, p.OA.Link)
	assert.Len(t, job.Workflow[1].Details.(OADetails).Links, 1)

	assert.Error(t, job.SetLinkVisibility(1, primitive.NewObjectID().Hex(), true))
}

func TestCloneIsDeep(t *testing.T) {
	x := primitive.NewObjectID().Hex()
	job := threeStepJob()
	require.NoError(t, job.SetEligible(1, []string{x}))
	require.NoError(t, job.SetOALinks(1, []OALink{{StudentID: x, Link: "a", Visible: true}}))

	c := job.Clone()
	c.Workflow[1].EligibleStudents[0] = "changed"
	c.Workflow[1].Details.(OADetails).Links[0].Link = "b"
	c.EligibilityCriteria[0].DepartmentAllowed[0] = "changed"

	assert.Equal(t, x, job.Workflow[1].EligibleStudents[0])
	assert.Equal(t, "a", job.Workflow[1].Details.(OADetails).Links[0].Link)
	assert.NotEqual(t, "changed", job.EligibilityCriteria[0].DepartmentAllowed[0])
}

func TestJobTransitions(t *testing.T) {
	job := baseJob()
	job.Status = StatusPending

	require.NoError(t, job.Transition(ActionApprove))
	assert.Equal(t, StatusApproved, job.Status)
	assert.ErrorIs(t, job.Transition(ActionReject), ErrInvalidTransition)
	require.NoError(t, job.Transition(ActionComplete))
	require.NoError(t, job.Transition(ActionIncomplete))
	assert.Equal(t, StatusApproved, job.Status)

	var verr ValidationError
	assert.ErrorAs(t, job.Transition("archive"), &verr)
}

func TestValidateJob(t *testing.T) {
	job := baseJob()
	job.Normalize()
	require.NoError(t, ValidateJob(job))
	assert.Equal(t, "N/A", job.InternshipDuration)
	assert.Equal(t, "Private", job.Sector)

	intern := baseJob()
	intern.Type = JobTypeIntern6M
	intern.CTC = 0
	err := ValidateJob(intern)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "internship_duration")
	assert.Contains(t, err.Error(), "stipend")
	assert.NotContains(t, err.Error(), "ctc")

	bad := baseJob(EligibilitySet{GenderAllowed: "Other"})
	bad.Deadline = time.Time{}
	err = ValidateJob(bad)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "deadline is required")
	assert.Contains(t, err.Error(), "eligibility_criteria[0]")

	none := baseJob()
	none.EligibilityCriteria = nil
	assert.ErrorContains(t, ValidateJob(none), "at least one eligibility criteria set")
}

func TestDeadline(t *testing.T) {
	job := baseJob()
	assert.False(t, job.IsDeadlineOver(job.Deadline))
	assert.True(t, job.IsDeadlineOver(job.Deadline.Add(time.Second)))
	job.Deadline = time.Time{}
	assert.False(t, job.IsDeadlineOver(time.Now()))
}
