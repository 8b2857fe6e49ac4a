package placement

import (
	"context"
	"sort"
	"sync"

	"github.com/preetsahil/MP/internal/ids"
)

// MemoryStore is a process-local Store for development and tests.
type MemoryStore struct {
	mu       sync.RWMutex
	jobs     map[string]JobProfile
	order    []string
	students map[string]Student
	apps     map[string][]Application
}

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		jobs:     make(map[string]JobProfile),
		students: make(map[string]Student),
		apps:     make(map[string][]Application),
	}
}

// PutStudent inserts or replaces a student record.
func (m *MemoryStore) PutStudent(s Student) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s.ID = ids.MustNormalize(s.ID)
	m.students[s.ID] = s
}

func (m *MemoryStore) CreateJob(_ context.Context, job JobProfile) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.jobs[job.ID]; exists {
		return ValidationError("job " + job.ID + " already exists")
	}
	m.jobs[job.ID] = job.Clone()
	m.order = append(m.order, job.ID)
	return nil
}

func (m *MemoryStore) GetJob(_ context.Context, id string) (JobProfile, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	job, ok := m.jobs[ids.MustNormalize(id)]
	if !ok {
		return JobProfile{}, ErrNotFound
	}
	return job.Clone(), nil
}

func (m *MemoryStore) ListJobs(_ context.Context, status JobStatus) ([]JobProfile, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := []JobProfile{}
	for _, id := range m.order {
		job := m.jobs[id]
		if status == "" || job.Status == status {
			out = append(out, job.Clone())
		}
	}
	return out, nil
}

func (m *MemoryStore) ListJobsForStudent(_ context.Context, studentID string) ([]JobProfile, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := []JobProfile{}
	for _, id := range m.order {
		job := m.jobs[id]
		for _, step := range job.Workflow {
			if step.IsEligible(studentID) {
				out = append(out, job.Clone())
				break
			}
		}
	}
	return out, nil
}

func (m *MemoryStore) ReplaceJob(_ context.Context, job JobProfile) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.jobs[job.ID]; !ok {
		return ErrNotFound
	}
	m.jobs[job.ID] = job.Clone()
	return nil
}

func (m *MemoryStore) DeleteJob(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	id = ids.MustNormalize(id)
	if _, ok := m.jobs[id]; !ok {
		return ErrNotFound
	}
	delete(m.jobs, id)
	delete(m.apps, id)
	for i, v := range m.order {
		if v == id {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
	return nil
}

func (m *MemoryStore) GetStudent(_ context.Context, id string) (Student, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.students[ids.MustNormalize(id)]
	if !ok {
		return Student{}, ErrNotFound
	}
	return s, nil
}

func (m *MemoryStore) ListStudents(_ context.Context, studentIDs []string) ([]Student, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := []Student{}
	for _, id := range studentIDs {
		if s, ok := m.students[ids.MustNormalize(id)]; ok {
			out = append(out, s)
		}
	}
	return out, nil
}

func (m *MemoryStore) UpdateStudentStatus(_ context.Context, id string, upd StatusUpdate) (Student, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id = ids.MustNormalize(id)
	s, ok := m.students[id]
	if !ok {
		return Student{}, ErrNotFound
	}
	upd.Apply(&s)
	m.students[id] = s
	return s, nil
}

func (m *MemoryStore) CreateApplication(_ context.Context, app Application) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.apps[app.JobID] {
		if a.StudentID == app.StudentID {
			return ErrAlreadyApplied
		}
	}
	m.apps[app.JobID] = append(m.apps[app.JobID], app)
	return nil
}

func (m *MemoryStore) HasApplied(_ context.Context, jobID, studentID string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, a := range m.apps[ids.MustNormalize(jobID)] {
		if ids.Equal(a.StudentID, studentID) {
			return true, nil
		}
	}
	return false, nil
}

func (m *MemoryStore) ListApplicants(_ context.Context, jobID string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	apps := append([]Application(nil), m.apps[ids.MustNormalize(jobID)]...)
	sort.SliceStable(apps, func(i, j int) bool { return apps[i].CreatedAt.Before(apps[j].CreatedAt) })
	out := make([]string, 0, len(apps))
	for _, a := range apps {
		out = append(out, a.StudentID)
	}
	return out, nil
}
