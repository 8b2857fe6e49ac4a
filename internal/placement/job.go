package placement

import (
	"fmt"
	"strings"
	"time"
)

// JobType is the engagement offered by a posting.
type JobType string

const (
	JobTypeIntern2M  JobType = "2m Intern"
	JobTypeIntern6M  JobType = "6m Intern"
	JobTypeInternPPO JobType = "Intern+PPO"
	JobTypeInternFTE JobType = "Intern+FTE"
	JobTypeFTE       JobType = "FTE"
)

// Valid reports whether t is a known job type.
func (t JobType) Valid() bool {
	switch t {
	case JobTypeIntern2M, JobTypeIntern6M, JobTypeInternPPO, JobTypeInternFTE, JobTypeFTE:
		return true
	}
	return false
}

// IsInternship reports whether the posting includes an internship, which
// makes stipend and duration mandatory.
func (t JobType) IsInternship() bool {
	switch t {
	case JobTypeIntern2M, JobTypeIntern6M, JobTypeInternPPO, JobTypeInternFTE:
		return true
	}
	return false
}

// OffersFullTime reports whether the posting includes full-time employment,
// which makes CTC mandatory.
func (t JobType) OffersFullTime() bool {
	return t == JobTypeFTE || t == JobTypeInternFTE
}

// JobCategory classifies the role.
type JobCategory string

const (
	CategoryTech        JobCategory = "Tech"
	CategoryNonTech     JobCategory = "Non-Tech"
	CategoryTechNonTech JobCategory = "Tech+Non-Tech"
)

func (c JobCategory) Valid() bool {
	return c == CategoryTech || c == CategoryNonTech || c == CategoryTechNonTech
}

// JobStatus is the approval state of a posting.
type JobStatus string

const (
	StatusPending   JobStatus = "pending"
	StatusApproved  JobStatus = "approved"
	StatusRejected  JobStatus = "rejected"
	StatusCompleted JobStatus = "completed"
)

// Valid reports whether s is a known status.
func (s JobStatus) Valid() bool {
	switch s {
	case StatusPending, StatusApproved, StatusRejected, StatusCompleted:
		return true
	}
	return false
}

// EligibilitySet is one OR-branch of a job's eligibility criteria; every field
// of a set must hold for a student to match it.
type EligibilitySet struct {
	CourseAllowed          string   `json:"course_allowed"`
	DepartmentAllowed      []string `json:"department_allowed"`
	GenderAllowed          string   `json:"gender_allowed"`
	EligibleBatch          string   `json:"eligible_batch"`
	MinimumCGPA            float64  `json:"minimum_cgpa"`
	ActiveBacklogsAllowed  bool     `json:"active_backlogs"`
	HistoryBacklogsAllowed bool     `json:"history_backlogs"`
}

// JobProfile is one posting for a (company, role) pair together with its
// eligibility criteria and hiring workflow.
type JobProfile struct {
	ID                  string           `json:"id"`
	JobID               string           `json:"job_id"`
	RecruiterID         string           `json:"recruiter_id,omitempty"`
	CompanyName         string           `json:"company_name"`
	CompanyLogo         string           `json:"company_logo"`
	Role                string           `json:"job_role"`
	Description         string           `json:"jobdescription"`
	Location            string           `json:"joblocation"`
	Type                JobType          `json:"job_type"`
	InternshipDuration  string           `json:"internship_duration"`
	Category            JobCategory      `json:"job_category"`
	Sector              string           `json:"job_sector"`
	CTC                 float64          `json:"ctc"`
	BaseSalary          string           `json:"base_salary"`
	Stipend             float64          `json:"stipend"`
	Deadline            time.Time        `json:"deadline"`
	Status              JobStatus        `json:"status"`
	EligibilityCriteria []EligibilitySet `json:"eligibility_criteria"`
	Workflow            []WorkflowStep   `json:"Hiring_Workflow"`
	CreatedAt           time.Time        `json:"created_at"`
	UpdatedAt           time.Time        `json:"updated_at"`
}

// IsDeadlineOver reports whether now is past the application deadline. A job
// without a deadline never closes on time alone.
func (j JobProfile) IsDeadlineOver(now time.Time) bool {
	if j.Deadline.IsZero() {
		return false
	}
	return now.After(j.Deadline)
}

// ApprovalAction is a staff decision on a posting.
type ApprovalAction string

const (
	ActionApprove    ApprovalAction = "approve"
	ActionReject     ApprovalAction = "reject"
	ActionComplete   ApprovalAction = "complete"
	ActionIncomplete ApprovalAction = "incomplete"
)

var transitions = map[ApprovalAction]struct{ from, to JobStatus }{
	ActionApprove:    {StatusPending, StatusApproved},
	ActionReject:     {StatusPending, StatusRejected},
	ActionComplete:   {StatusApproved, StatusCompleted},
	ActionIncomplete: {StatusCompleted, StatusApproved},
}

// Transition moves the job to the state action leads to.
func (j *JobProfile) Transition(action ApprovalAction) error {
	t, ok := transitions[action]
	if !ok {
		return ValidationError(fmt.Sprintf("unknown action %q", action))
	}
	if j.Status != t.from {
		return fmt.Errorf("%w: cannot %s a %s job", ErrInvalidTransition, action, j.Status)
	}
	j.Status = t.to
	return nil
}

// Normalize trims free-text fields and fills defaults in place.
func (j *JobProfile) Normalize() {
	j.CompanyName = strings.TrimSpace(j.CompanyName)
	j.CompanyLogo = strings.TrimSpace(j.CompanyLogo)
	j.Role = strings.TrimSpace(j.Role)
	j.Location = strings.TrimSpace(j.Location)
	j.JobID = strings.TrimSpace(j.JobID)
	j.Sector = strings.TrimSpace(j.Sector)
	if j.Sector == "" {
		j.Sector = "Private"
	}
	if j.Type == JobTypeFTE {
		j.InternshipDuration = "N/A"
		j.Stipend = 0
	}
	for i := range j.EligibilityCriteria {
		set := &j.EligibilityCriteria[i]
		if g, ok := ParseGender(set.GenderAllowed); ok {
			set.GenderAllowed = string(g)
		}
	}
}

// ValidateJob checks a posting before it is stored.
func ValidateJob(j JobProfile) error {
	var problems []string
	if j.CompanyName == "" {
		problems = append(problems, "company_name is required")
	}
	if j.Role == "" {
		problems = append(problems, "job_role is required")
	}
	if !j.Type.Valid() {
		problems = append(problems, "job_type is required")
	}
	if !j.Category.Valid() {
		problems = append(problems, "job_category is required")
	}
	if j.Type.OffersFullTime() && j.CTC <= 0 {
		problems = append(problems, "ctc must be a positive number")
	}
	if j.Type.IsInternship() {
		if strings.TrimSpace(j.InternshipDuration) == "" {
			problems = append(problems, "internship_duration is required for internship-based job types")
		}
		if j.Stipend <= 0 {
			problems = append(problems, "stipend must be a positive number for internship-based job types")
		}
	}
	if j.Deadline.IsZero() {
		problems = append(problems, "deadline is required")
	}
	if len(j.EligibilityCriteria) == 0 {
		problems = append(problems, "at least one eligibility criteria set is required")
	}
	for i, set := range j.EligibilityCriteria {
		if err := validateSet(set); err != nil {
			problems = append(problems, fmt.Sprintf("eligibility_criteria[%d]: %v", i, err))
		}
	}
	for i, step := range j.Workflow {
		if !step.Type().Valid() {
			problems = append(problems, fmt.Sprintf("Hiring_Workflow[%d]: unknown step_type %q", i, step.Type()))
		}
	}
	if len(problems) > 0 {
		return ValidationError(strings.Join(problems, "; "))
	}
	return nil
}

func validateSet(s EligibilitySet) error {
	switch {
	case strings.TrimSpace(s.CourseAllowed) == "":
		return ValidationError("course_allowed is required")
	case len(s.DepartmentAllowed) == 0:
		return ValidationError("department_allowed must not be empty")
	case strings.TrimSpace(s.EligibleBatch) == "":
		return ValidationError("eligible_batch is required")
	case s.MinimumCGPA < 0:
		return ValidationError("minimum_cgpa must not be negative")
	}
	if _, ok := ParseGender(s.GenderAllowed); !ok {
		return ValidationError("gender_allowed must be one of Male, Female, Any")
	}
	return nil
}

// Clone returns a deep copy, so edits to the copy never reach the original's
// slices.
func (j JobProfile) Clone() JobProfile {
	out := j
	out.EligibilityCriteria = make([]EligibilitySet, len(j.EligibilityCriteria))
	for i, set := range j.EligibilityCriteria {
		set.DepartmentAllowed = append([]string(nil), set.DepartmentAllowed...)
		out.EligibilityCriteria[i] = set
	}
	out.Workflow = make([]WorkflowStep, len(j.Workflow))
	for i, s := range j.Workflow {
		if oa, ok := s.Details.(OADetails); ok {
			oa.Links = append([]OALink(nil), oa.Links...)
			s.Details = oa
		}
		s.EligibleStudents = append([]string(nil), s.EligibleStudents...)
		s.ShortlistedStudents = append([]string(nil), s.ShortlistedStudents...)
		out.Workflow[i] = s
	}
	return out
}
