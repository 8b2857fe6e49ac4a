package placement

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMatchesBaseline(t *testing.T) {
	assert.True(t, Matches(baseStudent(), baseSet()))
}

func TestEachConditionFlipsMatch(t *testing.T) {
	cases := []struct {
		name    string
		student func(*Student)
		set     func(*EligibilitySet)
		want    Condition
	}{
		{"course differs", func(s *Student) { s.Course = "M.Tech" }, nil, CondCourse},
		{"course case differs", func(s *Student) { s.Course = "b.tech" }, nil, CondCourse},
		{"department not listed", func(s *Student) { s.Department = "CIVIL ENGINEERING" }, nil, CondDepartment},
		{"gender restricted", nil, func(e *EligibilitySet) { e.GenderAllowed = "Male" }, CondGender},
		{"batch differs", func(s *Student) { s.Batch = "2026" }, nil, CondBatch},
		{"cgpa below minimum", func(s *Student) { s.CGPA = ptr(7.49) }, nil, CondCGPA},
		{"active backlogs", func(s *Student) { s.ActiveBacklogs = true }, nil, CondActiveBacklogs},
		{"backlog history", func(s *Student) { s.BacklogsHistory = true }, nil, CondBacklogsHistory},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			st, set := baseStudent(), baseSet()
			if tc.student != nil {
				tc.student(&st)
			}
			if tc.set != nil {
				tc.set(&set)
			}
			failures := CheckSet(st, set)
			require.Len(t, failures, 1)
			assert.Equal(t, tc.want, failures[0].Condition)
			assert.False(t, Matches(st, set))
		})
	}
}

func TestBoundaryValuesPass(t *testing.T) {
	st, set := baseStudent(), baseSet()
	st.CGPA = ptr(set.MinimumCGPA)
	assert.True(t, Matches(st, set), "cgpa equal to minimum qualifies")

	st.ActiveBacklogs, st.BacklogsHistory = true, true
	set.ActiveBacklogsAllowed, set.HistoryBacklogsAllowed = true, true
	assert.True(t, Matches(st, set), "allowed backlogs qualify")

	set.GenderAllowed = "Female"
	assert.True(t, Matches(st, set))
	set.GenderAllowed = "female"
	assert.True(t, Matches(st, set), "gender compare is canonicalized")
}

func TestMissingDataFailsClosed(t *testing.T) {
	cases := map[string]func(*Student){
		"no course":     func(s *Student) { s.Course = "" },
		"no department": func(s *Student) { s.Department = "" },
		"no batch":      func(s *Student) { s.Batch = "" },
		"no cgpa":       func(s *Student) { s.CGPA = nil },
		"nan cgpa":      func(s *Student) { s.CGPA = ptr(math.NaN()) },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			st := baseStudent()
			mutate(&st)
			assert.False(t, Matches(st, baseSet()))
		})
	}

	t.Run("empty set", func(t *testing.T) {
		assert.False(t, Matches(baseStudent(), EligibilitySet{}))
	})
	t.Run("unknown gender needs Any", func(t *testing.T) {
		st := baseStudent()
		st.Gender = ""
		assert.True(t, Matches(st, baseSet()))
		set := baseSet()
		set.GenderAllowed = "Female"
		assert.False(t, Matches(st, set))
	})
	t.Run("legacy Other never matches a restricted set", func(t *testing.T) {
		st := baseStudent()
		st.Gender = "Other"
		set := baseSet()
		set.GenderAllowed = "Other"
		assert.False(t, Matches(st, set))
	})
}

func TestEvaluateOrAcrossSets(t *testing.T) {
	strict := baseSet()
	strict.MinimumCGPA = 9.0
	relaxed := baseSet()

	eval := Evaluate(baseStudent(), baseJob(strict, relaxed))
	assert.True(t, eval.Eligible)
	assert.Nil(t, eval.Reason)
	assert.Equal(t, 1, eval.MatchedSet)
}

func TestEvaluateFirstMatchWins(t *testing.T) {
	eval := Evaluate(baseStudent(), baseJob(baseSet(), baseSet()))
	assert.True(t, eval.Eligible)
	assert.Equal(t, 0, eval.MatchedSet)
}

func TestEvaluateReportsClosestSet(t *testing.T) {
	far := baseSet()
	far.CourseAllowed = "MBA"
	far.EligibleBatch = "2024"
	near := baseSet()
	near.MinimumCGPA = 9.0

	eval := Evaluate(baseStudent(), baseJob(far, near))
	require.False(t, eval.Eligible)
	require.NotNil(t, eval.Reason)
	assert.Contains(t, *eval.Reason, "criteria set 2")
	assert.Contains(t, *eval.Reason, "cgpa")
	assert.Equal(t, -1, eval.MatchedSet)
}

func TestEvaluateSingleSetReason(t *testing.T) {
	st := baseStudent()
	st.Batch = "2026"
	eval := Evaluate(st, baseJob())
	require.NotNil(t, eval.Reason)
	assert.Equal(t, `batch "2026" is not eligible (requires "2025")`, *eval.Reason)
}

func TestEvaluateWithoutCriteria(t *testing.T) {
	job := baseJob()
	job.EligibilityCriteria = nil
	eval := Evaluate(baseStudent(), job)
	assert.False(t, eval.Eligible)
	require.NotNil(t, eval.Reason)
	assert.Equal(t, NoCriteriaReason, *eval.Reason)
}

func TestDeadlineIndependentOfEligibility(t *testing.T) {
	job := baseJob()
	assert.False(t, job.IsDeadlineOver(day(2029, 12, 31)))
	assert.True(t, job.IsDeadlineOver(day(2030, 1, 2)))
	assert.True(t, Evaluate(baseStudent(), job).Eligible)

	job.Deadline = job.Deadline.AddDate(-10, 0, 0)
	assert.True(t, Evaluate(baseStudent(), job).Eligible, "deadline does not affect eligibility")
}
