package placement

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/preetsahil/MP/internal/ids"
)

// Texts shown in place of an assessment link.
const (
	LinkNotVisible    = "Link not visible"
	NoLinkAvailable   = "No link available"
	ResultNotDeclared = "Result yet to be declared"
)

// ShortlistStatus is a student's outcome on one step. It is encoded as the
// text ResultNotDeclared until a shortlist exists, then as a boolean.
type ShortlistStatus int

const (
	ShortlistPending ShortlistStatus = iota
	Shortlisted
	NotShortlisted
)

func (s ShortlistStatus) MarshalJSON() ([]byte, error) {
	switch s {
	case Shortlisted:
		return []byte("true"), nil
	case NotShortlisted:
		return []byte("false"), nil
	default:
		return json.Marshal(ResultNotDeclared)
	}
}

func (s *ShortlistStatus) UnmarshalJSON(b []byte) error {
	var v any
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	switch t := v.(type) {
	case bool:
		if t {
			*s = Shortlisted
		} else {
			*s = NotShortlisted
		}
	case string:
		*s = ShortlistPending
	default:
		return fmt.Errorf("invalid shortlist status %s", b)
	}
	return nil
}

// ShortlistOf reports studentID's outcome on step.
func ShortlistOf(step WorkflowStep, studentID string) ShortlistStatus {
	if len(step.ShortlistedStudents) == 0 {
		return ShortlistPending
	}
	if ids.Contains(step.ShortlistedStudents, studentID) {
		return Shortlisted
	}
	return NotShortlisted
}

// OAView is an assessment as one student may see it.
type OAView struct {
	Date           *time.Time      `json:"oa_date"`
	LoginTime      string          `json:"oa_login_time"`
	Duration       string          `json:"oa_duration"`
	Info           string          `json:"oa_info"`
	Link           string          `json:"oa_link"`
	IsLinkVisible  bool            `json:"isLinkVisible"`
	WasShortlisted ShortlistStatus `json:"was_shortlisted"`
}

// projectOA redacts the OA details of step for studentID. A student without
// a link entry sees the link as visible; an explicit hidden entry always wins.
func projectOA(studentID string, step WorkflowStep, d OADetails) OAView {
	v := OAView{
		LoginTime:      d.LoginTime,
		Duration:       d.Duration,
		Info:           d.Info,
		WasShortlisted: ShortlistOf(step, studentID),
	}
	if !d.Date.IsZero() {
		date := d.Date
		v.Date = &date
	}
	entry, found := d.linkFor(studentID)
	v.IsLinkVisible = !found || entry.Visible
	switch {
	case !v.IsLinkVisible:
		v.Link = LinkNotVisible
	case found && entry.Link != "":
		v.Link = entry.Link
	default:
		v.Link = NoLinkAvailable
	}
	return v
}

// ProjectedStep is one workflow step as seen by one student.
type ProjectedStep struct {
	Position       int             `json:"position"`
	StepType       StepType        `json:"step_type"`
	State          StepState       `json:"state"`
	WasShortlisted ShortlistStatus `json:"was_shortlisted"`
	// Details holds the stored fields of non-OA steps verbatim.
	Details map[string]any `json:"details,omitempty"`
	// OA is set for assessment steps instead of Details.
	OA *OAView `json:"oa,omitempty"`
}

// ProjectStep returns the student's view of the step at position in job, or
// nil when the student is not on that step's eligible roster or the position
// does not exist.
func ProjectStep(studentID string, job JobProfile, position int) *ProjectedStep {
	if position < 0 || position >= len(job.Workflow) {
		return nil
	}
	step := job.Workflow[position]
	if !step.IsEligible(studentID) {
		return nil
	}
	p := &ProjectedStep{
		Position:       position,
		StepType:       step.Type(),
		State:          step.State(),
		WasShortlisted: ShortlistOf(step, studentID),
	}
	if oa, ok := step.Details.(OADetails); ok {
		view := projectOA(studentID, step, oa)
		p.OA = &view
		return p
	}
	p.Details = DetailsMap(step.Details)
	return p
}

// ProjectWorkflow returns every step of job the student can see, in workflow
// order.
func ProjectWorkflow(studentID string, job JobProfile) []ProjectedStep {
	out := make([]ProjectedStep, 0, len(job.Workflow))
	for i := range job.Workflow {
		if p := ProjectStep(studentID, job, i); p != nil {
			out = append(out, *p)
		}
	}
	return out
}

// Redacted returns a copy of j without rosters or assessment links, for
// readers who may see the posting but not other students' progress.
func (j JobProfile) Redacted() JobProfile {
	out := j.Clone()
	for i := range out.Workflow {
		s := &out.Workflow[i]
		s.EligibleStudents = nil
		s.ShortlistedStudents = nil
		if oa, ok := s.Details.(OADetails); ok {
			oa.Links = nil
			s.Details = oa
		}
	}
	return out
}
