package placement

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/preetsahil/MP/internal/ids"
	"github.com/preetsahil/MP/internal/metrics"
	"github.com/preetsahil/MP/internal/queue"
)

// Service coordinates the placement workflows over a Store.
type Service struct {
	jobs     JobRepository
	students StudentRepository
	apps     ApplicationRepository
	queue    queue.Queue
	metrics  *metrics.Metrics
	now      func() time.Time
}

// Option customizes a Service.
type Option func(*Service)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithMetrics records evaluations and screening runs.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// NewService creates a service backed by store. q may be nil when screening
// requests are not accepted by this process.
func NewService(store Store, q queue.Queue, opts ...Option) *Service {
	s := &Service{
		jobs:     store,
		students: store,
		apps:     store,
		queue:    q,
		now:      time.Now,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// CreateJob validates and stores a new posting in pending state.
func (s *Service) CreateJob(ctx context.Context, job JobProfile) (JobProfile, error) {
	job = job.Clone()
	job.Normalize()
	if err := ValidateJob(job); err != nil {
		return JobProfile{}, err
	}
	for i := range job.Workflow {
		step := &job.Workflow[i]
		step.EligibleStudents = nil
		step.ShortlistedStudents = nil
		step.Details = withoutLinks(step.Details)
	}
	now := s.now().UTC()
	job.ID = ids.New()
	job.Status = StatusPending
	job.CreatedAt, job.UpdatedAt = now, now
	if err := s.jobs.CreateJob(ctx, job); err != nil {
		return JobProfile{}, fmt.Errorf("create job: %w", err)
	}
	return job, nil
}

// GetJob returns one posting.
func (s *Service) GetJob(ctx context.Context, id string) (JobProfile, error) {
	return s.jobs.GetJob(ctx, id)
}

// ListJobs returns postings, optionally filtered by status.
func (s *Service) ListJobs(ctx context.Context, status JobStatus) ([]JobProfile, error) {
	if status != "" && !status.Valid() {
		return nil, ValidationError(fmt.Sprintf("unknown status %q", status))
	}
	return s.jobs.ListJobs(ctx, status)
}

// DeleteJob removes a posting.
func (s *Service) DeleteJob(ctx context.Context, id string) error {
	return s.jobs.DeleteJob(ctx, id)
}

// TransitionJob applies a staff approval decision.
func (s *Service) TransitionJob(ctx context.Context, id string, action ApprovalAction) (JobProfile, error) {
	return s.editJob(ctx, id, func(j *JobProfile) error { return j.Transition(action) })
}

// EligibilityStatus is what a student sees about one job.
type EligibilityStatus struct {
	Eligible       bool    `json:"eligible"`
	Reason         *string `json:"reason"`
	IsDeadlineOver bool    `json:"isDeadlineOver"`
	Applied        bool    `json:"applied"`
}

// CheckEligibility evaluates studentID against job jobID. Eligibility and the
// deadline are reported independently.
func (s *Service) CheckEligibility(ctx context.Context, studentID, jobID string) (EligibilityStatus, error) {
	job, err := s.jobs.GetJob(ctx, jobID)
	if err != nil {
		return EligibilityStatus{}, err
	}
	eval, err := s.evaluate(ctx, studentID, job)
	if err != nil {
		return EligibilityStatus{}, err
	}
	applied, err := s.apps.HasApplied(ctx, job.ID, studentID)
	if err != nil {
		return EligibilityStatus{}, fmt.Errorf("check application: %w", err)
	}
	return EligibilityStatus{
		Eligible:       eval.Eligible,
		Reason:         eval.Reason,
		IsDeadlineOver: job.IsDeadlineOver(s.now()),
		Applied:        applied,
	}, nil
}

// evaluate loads the student and checks them against job. A student with no
// record is simply not eligible.
func (s *Service) evaluate(ctx context.Context, studentID string, job JobProfile) (Evaluation, error) {
	student, err := s.students.GetStudent(ctx, studentID)
	switch {
	case errors.Is(err, ErrNotFound):
		return notEligible("student record not found"), nil
	case err != nil:
		return Evaluation{}, fmt.Errorf("load student: %w", err)
	}
	eval := Evaluate(student, job)
	s.metrics.ObserveEvaluation(eval.Eligible)
	return eval, nil
}

// Apply records an application after checking the job is open and the
// student may apply.
func (s *Service) Apply(ctx context.Context, studentID, jobID string) (Application, error) {
	job, err := s.jobs.GetJob(ctx, jobID)
	if err != nil {
		return Application{}, err
	}
	if job.Status != StatusApproved {
		return Application{}, ErrJobNotOpen
	}
	if job.IsDeadlineOver(s.now()) {
		return Application{}, ErrDeadlineOver
	}
	student, err := s.students.GetStudent(ctx, studentID)
	if err != nil {
		return Application{}, err
	}
	if student.Debarred {
		return Application{}, ErrDebarred
	}
	eval := Evaluate(student, job)
	s.metrics.ObserveEvaluation(eval.Eligible)
	if !eval.Eligible {
		return Application{}, fmt.Errorf("%w: %s", ErrNotEligible, *eval.Reason)
	}
	app := Application{
		ID:        uuid.NewString(),
		JobID:     job.ID,
		StudentID: student.ID,
		CreatedAt: s.now().UTC(),
	}
	if err := s.apps.CreateApplication(ctx, app); err != nil {
		return Application{}, err
	}
	return app, nil
}

// StudentWorkflow returns the steps of jobID the student is part of.
func (s *Service) StudentWorkflow(ctx context.Context, studentID, jobID string) ([]ProjectedStep, error) {
	job, err := s.jobs.GetJob(ctx, jobID)
	if err != nil {
		return nil, err
	}
	return ProjectWorkflow(studentID, job), nil
}

// ListUpcomingOAs returns the student's assessments still ahead.
func (s *Service) ListUpcomingOAs(ctx context.Context, studentID string) ([]ProjectedOA, error) {
	jobs, err := s.jobs.ListJobsForStudent(ctx, studentID)
	if err != nil {
		return nil, fmt.Errorf("list jobs for student: %w", err)
	}
	return UpcomingOAs(studentID, jobs, s.now()), nil
}

// ListPastOAs returns the student's assessments already held, newest first.
func (s *Service) ListPastOAs(ctx context.Context, studentID string) ([]ProjectedOA, error) {
	jobs, err := s.jobs.ListJobsForStudent(ctx, studentID)
	if err != nil {
		return nil, fmt.Errorf("list jobs for student: %w", err)
	}
	return PastOAs(studentID, jobs, s.now()), nil
}

// AddStep appends a round to the job's workflow.
func (s *Service) AddStep(ctx context.Context, jobID string, d StepDetails) (JobProfile, error) {
	return s.editJob(ctx, jobID, func(j *JobProfile) error { return j.AddStep(d) })
}

// UpdateStep replaces the details of one round.
func (s *Service) UpdateStep(ctx context.Context, jobID string, step int, d StepDetails) (JobProfile, error) {
	return s.editJob(ctx, jobID, func(j *JobProfile) error { return j.UpdateStep(step, d) })
}

// RemoveStep deletes one round.
func (s *Service) RemoveStep(ctx context.Context, jobID string, step int) (JobProfile, error) {
	return s.editJob(ctx, jobID, func(j *JobProfile) error { return j.RemoveStep(step) })
}

// ReorderSteps rearranges the workflow.
func (s *Service) ReorderSteps(ctx context.Context, jobID string, order []int) (JobProfile, error) {
	return s.editJob(ctx, jobID, func(j *JobProfile) error { return j.ReorderSteps(order) })
}

// SetEligibleStudents records who reached a step. Every student must exist and
// match the job's eligibility criteria.
func (s *Service) SetEligibleStudents(ctx context.Context, jobID string, step int, studentIDs []string) (JobProfile, error) {
	roster := canonical(studentIDs)
	students, err := s.students.ListStudents(ctx, roster)
	if err != nil {
		return JobProfile{}, fmt.Errorf("load students: %w", err)
	}
	byID := make(map[string]Student, len(students))
	for _, st := range students {
		byID[ids.MustNormalize(st.ID)] = st
	}
	return s.editJob(ctx, jobID, func(j *JobProfile) error {
		var rejected []string
		for _, id := range roster {
			st, ok := byID[id]
			if !ok {
				rejected = append(rejected, id+" (unknown student)")
				continue
			}
			eval := Evaluate(st, *j)
			s.metrics.ObserveEvaluation(eval.Eligible)
			if !eval.Eligible {
				rejected = append(rejected, fmt.Sprintf("%s (%s)", id, *eval.Reason))
			}
		}
		if len(rejected) > 0 {
			return ValidationError("not eligible: " + strings.Join(rejected, ", "))
		}
		return j.SetEligible(step, roster)
	})
}

// SetShortlistedStudents publishes the shortlist of a step.
func (s *Service) SetShortlistedStudents(ctx context.Context, jobID string, step int, studentIDs []string) (JobProfile, error) {
	return s.editJob(ctx, jobID, func(j *JobProfile) error { return j.SetShortlisted(step, studentIDs) })
}

// SetOALinks replaces the individual links of an OA step.
func (s *Service) SetOALinks(ctx context.Context, jobID string, step int, links []OALink) (JobProfile, error) {
	return s.editJob(ctx, jobID, func(j *JobProfile) error { return j.SetOALinks(step, links) })
}

// SetLinkVisibility shows or hides one student's OA link.
func (s *Service) SetLinkVisibility(ctx context.Context, jobID string, step int, studentID string, visible bool) (JobProfile, error) {
	return s.editJob(ctx, jobID, func(j *JobProfile) error { return j.SetLinkVisibility(step, studentID, visible) })
}

// UpdateStudentStatus applies an administrative status change.
func (s *Service) UpdateStudentStatus(ctx context.Context, studentID string, upd StatusUpdate) (Student, error) {
	if upd.Empty() {
		return Student{}, ValidationError("nothing to update")
	}
	return s.students.UpdateStudentStatus(ctx, studentID, upd)
}

// RequestScreening queues a screening run for the job's applicants.
func (s *Service) RequestScreening(ctx context.Context, jobID string) (queue.Message, error) {
	if s.queue == nil {
		return queue.Message{}, errors.New("screening queue not configured")
	}
	job, err := s.jobs.GetJob(ctx, jobID)
	if err != nil {
		return queue.Message{}, err
	}
	if len(job.Workflow) == 0 {
		return queue.Message{}, ValidationError("job has no workflow steps to screen into")
	}
	msg := queue.NewMessage(queue.TypeScreen, []byte(job.ID))
	err = s.queue.Publish(ctx, msg)
	s.metrics.ObservePublish(msg.Type, err)
	if err != nil {
		return queue.Message{}, fmt.Errorf("publish screening request: %w", err)
	}
	return msg, nil
}

// ScreeningResult summarizes one screening run.
type ScreeningResult struct {
	JobID    string   `json:"job_id"`
	Eligible []string `json:"eligible"`
	Rejected []string `json:"rejected"`
	Skipped  bool     `json:"skipped"`
}

// ScreenApplicants evaluates every applicant of jobID and records the eligible
// ones as the roster of the first workflow step. A first step that already has
// a shortlist is left alone.
func (s *Service) ScreenApplicants(ctx context.Context, jobID string) (ScreeningResult, error) {
	res := ScreeningResult{JobID: jobID, Eligible: []string{}, Rejected: []string{}}
	applicants, err := s.apps.ListApplicants(ctx, jobID)
	if err != nil {
		s.metrics.ObserveScreening("error")
		return res, fmt.Errorf("list applicants: %w", err)
	}
	students, err := s.students.ListStudents(ctx, applicants)
	if err != nil {
		s.metrics.ObserveScreening("error")
		return res, fmt.Errorf("load applicants: %w", err)
	}
	byID := make(map[string]Student, len(students))
	for _, st := range students {
		byID[ids.MustNormalize(st.ID)] = st
	}
	_, err = s.editJob(ctx, jobID, func(j *JobProfile) error {
		if len(j.Workflow) == 0 {
			return ValidationError("job has no workflow steps")
		}
		if len(j.Workflow[0].ShortlistedStudents) > 0 {
			res.Skipped = true
			return errSkip
		}
		for _, id := range applicants {
			id = ids.MustNormalize(id)
			st, ok := byID[id]
			if !ok {
				log.Printf("screening %s: applicant %s has no student record", jobID, id)
				res.Rejected = append(res.Rejected, id)
				continue
			}
			eval := Evaluate(st, *j)
			s.metrics.ObserveEvaluation(eval.Eligible)
			if eval.Eligible && !st.Debarred {
				res.Eligible = append(res.Eligible, id)
			} else {
				res.Rejected = append(res.Rejected, id)
			}
		}
		return j.SetEligible(0, res.Eligible)
	})
	switch {
	case errors.Is(err, errSkip):
		log.Printf("screening %s skipped: first step already shortlisted", jobID)
		s.metrics.ObserveScreening("skipped")
		return res, nil
	case err != nil:
		s.metrics.ObserveScreening("error")
		return res, err
	}
	s.metrics.ObserveScreening("updated")
	return res, nil
}

var errSkip = errors.New("skip")

// editJob loads a job, applies fn and replaces the stored document. Nothing is
// written when fn fails.
func (s *Service) editJob(ctx context.Context, id string, fn func(*JobProfile) error) (JobProfile, error) {
	job, err := s.jobs.GetJob(ctx, id)
	if err != nil {
		return JobProfile{}, err
	}
	if err := fn(&job); err != nil {
		return JobProfile{}, err
	}
	job.UpdatedAt = s.now().UTC()
	if err := s.jobs.ReplaceJob(ctx, job); err != nil {
		return JobProfile{}, fmt.Errorf("replace job: %w", err)
	}
	return job, nil
}
