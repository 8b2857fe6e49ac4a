package placement

import (
	"fmt"
	"math"
	"slices"
)

// Condition identifies one field check of an eligibility set.
type Condition string

const (
	CondCourse          Condition = "course"
	CondDepartment      Condition = "department"
	CondGender          Condition = "gender"
	CondBatch           Condition = "batch"
	CondCGPA            Condition = "cgpa"
	CondActiveBacklogs  Condition = "active_backlogs"
	CondBacklogsHistory Condition = "backlogs_history"
)

// Failure is one condition a student did not satisfy.
type Failure struct {
	Condition Condition
	Message   string
}

// NoCriteriaReason is reported for jobs without eligibility sets.
const NoCriteriaReason = "no eligibility criteria defined"

// CheckSet lists every condition of set that s fails, in field order. Missing
// student data never satisfies a condition.
func CheckSet(s Student, set EligibilitySet) []Failure {
	var out []Failure
	fail := func(c Condition, format string, args ...any) {
		out = append(out, Failure{Condition: c, Message: fmt.Sprintf(format, args...)})
	}

	if s.Course == "" || set.CourseAllowed == "" || s.Course != set.CourseAllowed {
		fail(CondCourse, "course %q is not allowed (requires %q)", s.Course, set.CourseAllowed)
	}
	if s.Department == "" || !slices.Contains(set.DepartmentAllowed, s.Department) {
		fail(CondDepartment, "department %q is not allowed", s.Department)
	}
	if !genderAllowed(set.GenderAllowed, s.Gender) {
		fail(CondGender, "gender %q is not allowed (requires %s)", s.Gender, set.GenderAllowed)
	}
	if s.Batch == "" || set.EligibleBatch == "" || s.Batch != set.EligibleBatch {
		fail(CondBatch, "batch %q is not eligible (requires %q)", s.Batch, set.EligibleBatch)
	}
	switch {
	case s.CGPA == nil || math.IsNaN(*s.CGPA):
		fail(CondCGPA, "cgpa is not recorded (requires %.2f)", set.MinimumCGPA)
	case *s.CGPA < set.MinimumCGPA:
		fail(CondCGPA, "cgpa %.2f is below the minimum %.2f", *s.CGPA, set.MinimumCGPA)
	}
	if !set.ActiveBacklogsAllowed && s.ActiveBacklogs {
		fail(CondActiveBacklogs, "active backlogs are not allowed")
	}
	if !set.HistoryBacklogsAllowed && s.BacklogsHistory {
		fail(CondBacklogsHistory, "backlog history is not allowed")
	}
	return out
}

func genderAllowed(allowed, gender string) bool {
	want, ok := ParseGender(allowed)
	if !ok {
		return false
	}
	if want == GenderAny {
		return true
	}
	have, ok := ParseGender(gender)
	return ok && have == want
}

// Matches reports whether s satisfies every condition of set.
func Matches(s Student, set EligibilitySet) bool {
	return len(CheckSet(s, set)) == 0
}

// Evaluation is the outcome of checking one student against one job.
type Evaluation struct {
	Eligible bool `json:"eligible"`
	// Reason is nil when eligible.
	Reason *string `json:"reason"`
	// MatchedSet is the index of the first matching set, -1 when none.
	MatchedSet int `json:"-"`
}

// Evaluate decides whether s is eligible for job: at least one eligibility
// set has to match. When none does, the reason names the first failing
// condition of the closest set, the one with the fewest failures (earliest
// wins ties).
func Evaluate(s Student, job JobProfile) Evaluation {
	if len(job.EligibilityCriteria) == 0 {
		return notEligible(NoCriteriaReason)
	}
	best, bestFailures := -1, []Failure(nil)
	for i, set := range job.EligibilityCriteria {
		failures := CheckSet(s, set)
		if len(failures) == 0 {
			return Evaluation{Eligible: true, MatchedSet: i}
		}
		if best < 0 || len(failures) < len(bestFailures) {
			best, bestFailures = i, failures
		}
	}
	reason := bestFailures[0].Message
	if len(job.EligibilityCriteria) > 1 {
		reason = fmt.Sprintf("criteria set %d: %s", best+1, reason)
	}
	return notEligible(reason)
}

func notEligible(reason string) Evaluation {
	return Evaluation{Eligible: false, Reason: &reason, MatchedSet: -1}
}
