package placement

import (
	"context"
	"time"
)

// JobRepository persists job postings. Writes replace the whole document.
type JobRepository interface {
	CreateJob(ctx context.Context, job JobProfile) error
	GetJob(ctx context.Context, id string) (JobProfile, error)
	// ListJobs returns every job, or only those in status when it is set.
	ListJobs(ctx context.Context, status JobStatus) ([]JobProfile, error)
	// ListJobsForStudent returns jobs where studentID is on the eligible
	// roster of at least one step.
	ListJobsForStudent(ctx context.Context, studentID string) ([]JobProfile, error)
	ReplaceJob(ctx context.Context, job JobProfile) error
	DeleteJob(ctx context.Context, id string) error
}

// StudentRepository reads student records and applies administrative status
// changes. Profiles themselves are maintained elsewhere.
type StudentRepository interface {
	GetStudent(ctx context.Context, id string) (Student, error)
	ListStudents(ctx context.Context, ids []string) ([]Student, error)
	UpdateStudentStatus(ctx context.Context, id string, upd StatusUpdate) (Student, error)
}

// Application records that a student applied to a job.
type Application struct {
	ID        string    `json:"id"`
	JobID     string    `json:"job_id"`
	StudentID string    `json:"student_id"`
	CreatedAt time.Time `json:"created_at"`
}

// ApplicationRepository tracks applications.
type ApplicationRepository interface {
	// CreateApplication returns ErrAlreadyApplied for a repeated pair.
	CreateApplication(ctx context.Context, app Application) error
	HasApplied(ctx context.Context, jobID, studentID string) (bool, error)
	// ListApplicants returns student ids in application order.
	ListApplicants(ctx context.Context, jobID string) ([]string, error)
}

// Store bundles every port a backend provides.
type Store interface {
	JobRepository
	StudentRepository
	ApplicationRepository
}
