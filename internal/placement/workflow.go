package placement

import (
	"encoding/json"
	"fmt"

	"github.com/preetsahil/MP/internal/ids"
)

// StepState is derived from a step's rosters and never stored.
type StepState int

const (
	// StateNotReached: no eligible students recorded yet.
	StateNotReached StepState = iota
	// StateActive: students recorded, no shortlist yet.
	StateActive
	// StateResolved: shortlist published.
	StateResolved
)

func (s StepState) String() string {
	switch s {
	case StateActive:
		return "active"
	case StateResolved:
		return "resolved"
	default:
		return "not_reached"
	}
}

func (s StepState) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

// State derives the step's progress from its rosters.
func (s WorkflowStep) State() StepState {
	switch {
	case len(s.EligibleStudents) == 0:
		return StateNotReached
	case len(s.ShortlistedStudents) == 0:
		return StateActive
	default:
		return StateResolved
	}
}

// RoundsBegun reports whether any step of the job has a recorded roster, after
// which positional edits are refused.
func (j JobProfile) RoundsBegun() bool {
	for _, s := range j.Workflow {
		if s.HasRoster() {
			return true
		}
	}
	return false
}

func (j *JobProfile) step(i int) (*WorkflowStep, error) {
	if i < 0 || i >= len(j.Workflow) {
		return nil, fmt.Errorf("%w: %d (workflow has %d steps)", ErrStepIndex, i, len(j.Workflow))
	}
	return &j.Workflow[i], nil
}

// AddStep appends a round. Appending keeps every existing position intact, so
// it stays allowed after rounds have begun. A new round has no roster, so any
// assessment links in d are dropped.
func (j *JobProfile) AddStep(d StepDetails) error {
	if d == nil || !d.StepType().Valid() {
		return ValidationError("unknown step_type")
	}
	j.Workflow = append(j.Workflow, NewStep(withoutLinks(d)))
	return nil
}

// UpdateStep replaces the details of step i. Changing the round type of a step
// that already has a roster is refused. Assessment links are only written by
// SetOALinks and SetLinkVisibility; the stored ones are kept.
func (j *JobProfile) UpdateStep(i int, d StepDetails) error {
	if d == nil || !d.StepType().Valid() {
		return ValidationError("unknown step_type")
	}
	s, err := j.step(i)
	if err != nil {
		return err
	}
	if s.HasRoster() && s.Type() != d.StepType() {
		return fmt.Errorf("%w: step %d already has students", ErrWorkflowLocked, i)
	}
	d = withoutLinks(d)
	if oa, ok := d.(OADetails); ok {
		if prev, ok := s.Details.(OADetails); ok {
			oa.Links = prev.Links
			d = oa
		}
	}
	s.Details = d
	return nil
}

// RemoveStep deletes step i. Refused once rounds have begun.
func (j *JobProfile) RemoveStep(i int) error {
	if _, err := j.step(i); err != nil {
		return err
	}
	if j.RoundsBegun() {
		return ErrWorkflowLocked
	}
	j.Workflow = append(j.Workflow[:i], j.Workflow[i+1:]...)
	return nil
}

// ReorderSteps rearranges the workflow so that new position k holds the step
// previously at order[k]. Refused once rounds have begun.
func (j *JobProfile) ReorderSteps(order []int) error {
	if len(order) != len(j.Workflow) {
		return ValidationError(fmt.Sprintf("order must list all %d steps", len(j.Workflow)))
	}
	seen := make([]bool, len(order))
	for _, from := range order {
		if from < 0 || from >= len(order) || seen[from] {
			return ValidationError("order must be a permutation of step positions")
		}
		seen[from] = true
	}
	if j.RoundsBegun() {
		return ErrWorkflowLocked
	}
	next := make([]WorkflowStep, len(order))
	for to, from := range order {
		next[to] = j.Workflow[from]
	}
	j.Workflow = next
	return nil
}

// SetEligible replaces the eligible roster of step i. Callers are responsible
// for checking every student against the job's criteria first. Link entries of
// students leaving the roster are removed.
func (j *JobProfile) SetEligible(i int, studentIDs []string) error {
	s, err := j.step(i)
	if err != nil {
		return err
	}
	roster := canonical(studentIDs)
	for _, id := range s.ShortlistedStudents {
		if !ids.Contains(roster, id) {
			return ValidationError(fmt.Sprintf("student %s is shortlisted on step %d and must stay eligible", id, i))
		}
	}
	s.EligibleStudents = roster
	if oa, ok := s.Details.(OADetails); ok && len(oa.Links) > 0 {
		kept := make([]OALink, 0, len(oa.Links))
		for _, l := range oa.Links {
			if ids.Contains(roster, l.StudentID) {
				kept = append(kept, l)
			}
		}
		oa.Links = kept
		s.Details = oa
	}
	return nil
}

// SetShortlisted replaces the shortlist of step i; it must be a subset of the
// step's eligible roster.
func (j *JobProfile) SetShortlisted(i int, studentIDs []string) error {
	s, err := j.step(i)
	if err != nil {
		return err
	}
	roster := canonical(studentIDs)
	for _, id := range roster {
		if !s.IsEligible(id) {
			return ValidationError(fmt.Sprintf("student %s is not eligible for step %d", id, i))
		}
	}
	s.ShortlistedStudents = roster
	return nil
}

// SetOALinks replaces the individual links of OA step i.
func (j *JobProfile) SetOALinks(i int, links []OALink) error {
	s, oa, err := j.oaStep(i)
	if err != nil {
		return err
	}
	out := make([]OALink, 0, len(links))
	seen := make(map[string]struct{}, len(links))
	for _, l := range links {
		id, ok := ids.Normalize(l.StudentID)
		if !ok {
			return ValidationError("link entry without studentId")
		}
		if !s.IsEligible(id) {
			return ValidationError(fmt.Sprintf("student %s is not eligible for step %d", id, i))
		}
		if _, dup := seen[id]; dup {
			return ValidationError(fmt.Sprintf("duplicate link entry for student %s", id))
		}
		seen[id] = struct{}{}
		l.StudentID = id
		out = append(out, l)
	}
	oa.Links = out
	s.Details = oa
	return nil
}

// SetLinkVisibility toggles whether a student may see their link on OA step i,
// creating an empty entry when the student has none.
func (j *JobProfile) SetLinkVisibility(i int, studentID string, visible bool) error {
	s, oa, err := j.oaStep(i)
	if err != nil {
		return err
	}
	id, ok := ids.Normalize(studentID)
	if !ok || !s.IsEligible(id) {
		return ValidationError(fmt.Sprintf("student %s is not eligible for step %d", studentID, i))
	}
	links := append([]OALink(nil), oa.Links...)
	found := false
	for k := range links {
		if ids.Equal(links[k].StudentID, id) {
			links[k].Visible = visible
			found = true
		}
	}
	if !found {
		links = append(links, OALink{StudentID: id, Visible: visible})
	}
	oa.Links = links
	s.Details = oa
	return nil
}

func (j *JobProfile) oaStep(i int) (*WorkflowStep, OADetails, error) {
	s, err := j.step(i)
	if err != nil {
		return nil, OADetails{}, err
	}
	oa, ok := s.Details.(OADetails)
	if !ok {
		return nil, OADetails{}, ValidationError(fmt.Sprintf("step %d is not an OA", i))
	}
	return s, oa, nil
}

// withoutLinks strips the individual links from assessment details.
func withoutLinks(d StepDetails) StepDetails {
	if oa, ok := d.(OADetails); ok {
		oa.Links = nil
		return oa
	}
	return d
}

func canonical(list []string) []string {
	raw := make([]any, len(list))
	for i, s := range list {
		raw[i] = s
	}
	return ids.NormalizeAll(raw)
}
