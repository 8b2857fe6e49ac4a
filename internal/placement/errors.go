package placement

import "errors"

var (
	// ErrNotFound is returned when a job, student or application does not exist.
	ErrNotFound = errors.New("not found")
	// ErrWorkflowLocked is returned for structural workflow edits once any
	// step has a recorded roster.
	ErrWorkflowLocked = errors.New("hiring workflow is locked: rounds have begun")
	// ErrStepIndex is returned when a step position is out of range.
	ErrStepIndex = errors.New("workflow step out of range")
	// ErrInvalidTransition is returned for approval-state changes the job's
	// current state does not allow.
	ErrInvalidTransition = errors.New("invalid job status transition")
	ErrAlreadyApplied    = errors.New("already applied")
	ErrNotEligible       = errors.New("not eligible")
	ErrDeadlineOver      = errors.New("application deadline is over")
	ErrJobNotOpen        = errors.New("job is not open for applications")
	ErrDebarred          = errors.New("student is debarred")
)

// ValidationError describes invalid input.
type ValidationError string

func (e ValidationError) Error() string { return string(e) }
