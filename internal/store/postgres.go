package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/preetsahil/MP/internal/ids"
	"github.com/preetsahil/MP/internal/placement"
)

const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
)

// PostgresStore keeps each job as one JSONB document so the hiring workflow is
// read and replaced as a unit. Students and applications are relational.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore wraps an open connection.
func NewPostgresStore(db *DB) *PostgresStore {
	return &PostgresStore{db: db.Client}
}

var _ placement.Store = (*PostgresStore)(nil)

func (s *PostgresStore) CreateJob(ctx context.Context, job placement.JobProfile) error {
	doc, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("encode job: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO jobs (id, status, document, created_at, updated_at) VALUES ($1, $2, $3, $4, $5)`,
		job.ID, string(job.Status), doc, job.CreatedAt, job.UpdatedAt)
	if isPgCode(err, pgUniqueViolation) {
		return placement.ValidationError("job " + job.ID + " already exists")
	}
	return err
}

func (s *PostgresStore) GetJob(ctx context.Context, id string) (placement.JobProfile, error) {
	row := s.db.QueryRowContext(ctx, `SELECT document FROM jobs WHERE id = $1`, ids.MustNormalize(id))
	var doc []byte
	if err := row.Scan(&doc); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return placement.JobProfile{}, placement.ErrNotFound
		}
		return placement.JobProfile{}, err
	}
	return decodeJob(doc)
}

func (s *PostgresStore) ListJobs(ctx context.Context, status placement.JobStatus) ([]placement.JobProfile, error) {
	if status == "" {
		return s.queryJobs(ctx, `SELECT document FROM jobs ORDER BY created_at, id`)
	}
	return s.queryJobs(ctx, `SELECT document FROM jobs WHERE status = $1 ORDER BY created_at, id`, string(status))
}

// ListJobsForStudent uses JSONB containment so the GIN index on the workflow
// answers the roster lookup.
func (s *PostgresStore) ListJobsForStudent(ctx context.Context, studentID string) ([]placement.JobProfile, error) {
	id, ok := ids.Normalize(studentID)
	if !ok {
		return []placement.JobProfile{}, nil
	}
	return s.queryJobs(ctx, `
		SELECT document FROM jobs
		WHERE document -> 'Hiring_Workflow' @> jsonb_build_array(
			jsonb_build_object('eligible_students', jsonb_build_array($1::text)))
		ORDER BY created_at, id`, id)
}

func (s *PostgresStore) ReplaceJob(ctx context.Context, job placement.JobProfile) error {
	doc, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("encode job: %w", err)
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE jobs SET status = $2, document = $3, updated_at = $4 WHERE id = $1`,
		job.ID, string(job.Status), doc, job.UpdatedAt)
	if err != nil {
		return err
	}
	return expectOne(res)
}

func (s *PostgresStore) DeleteJob(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM jobs WHERE id = $1`, ids.MustNormalize(id))
	if err != nil {
		return err
	}
	return expectOne(res)
}

func (s *PostgresStore) queryJobs(ctx context.Context, query string, args ...any) ([]placement.JobProfile, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []placement.JobProfile{}
	for rows.Next() {
		var doc []byte
		if err := rows.Scan(&doc); err != nil {
			return nil, err
		}
		job, err := decodeJob(doc)
		if err != nil {
			return nil, err
		}
		out = append(out, job)
	}
	return out, rows.Err()
}

func decodeJob(doc []byte) (placement.JobProfile, error) {
	var job placement.JobProfile
	if err := json.Unmarshal(doc, &job); err != nil {
		return placement.JobProfile{}, fmt.Errorf("decode job: %w", err)
	}
	job.ID = ids.MustNormalize(job.ID)
	return job, nil
}

const studentColumns = `id, email, name, department, course, batch, cgpa, gender,
	active_backlogs, backlogs_history, debarred, placement_status, internship_status`

type scanner interface {
	Scan(dest ...any) error
}

func scanStudent(row scanner) (placement.Student, error) {
	var (
		st   placement.Student
		cgpa sql.NullFloat64
	)
	err := row.Scan(&st.ID, &st.Email, &st.Name, &st.Department, &st.Course, &st.Batch, &cgpa, &st.Gender,
		&st.ActiveBacklogs, &st.BacklogsHistory, &st.Debarred, &st.PlacementStatus, &st.InternshipStatus)
	if err != nil {
		return placement.Student{}, err
	}
	if cgpa.Valid {
		v := cgpa.Float64
		st.CGPA = &v
	}
	return st, nil
}

func (s *PostgresStore) GetStudent(ctx context.Context, id string) (placement.Student, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+studentColumns+` FROM students WHERE id = $1`, ids.MustNormalize(id))
	st, err := scanStudent(row)
	if errors.Is(err, sql.ErrNoRows) {
		return placement.Student{}, placement.ErrNotFound
	}
	return st, err
}

// ListStudents returns the students that exist among studentIDs, in the order
// requested.
func (s *PostgresStore) ListStudents(ctx context.Context, studentIDs []string) ([]placement.Student, error) {
	out := []placement.Student{}
	if len(studentIDs) == 0 {
		return out, nil
	}
	wanted := make([]string, 0, len(studentIDs))
	for _, id := range studentIDs {
		if norm, ok := ids.Normalize(id); ok {
			wanted = append(wanted, norm)
		}
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+studentColumns+` FROM students WHERE id = ANY($1::text[])`, wanted)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	byID := make(map[string]placement.Student, len(wanted))
	for rows.Next() {
		st, err := scanStudent(rows)
		if err != nil {
			return nil, err
		}
		byID[st.ID] = st
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for _, id := range wanted {
		if st, ok := byID[id]; ok {
			out = append(out, st)
		}
	}
	return out, nil
}

func (s *PostgresStore) UpdateStudentStatus(ctx context.Context, id string, upd placement.StatusUpdate) (placement.Student, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return placement.Student{}, err
	}
	defer tx.Rollback()

	st, err := scanStudent(tx.QueryRowContext(ctx,
		`SELECT `+studentColumns+` FROM students WHERE id = $1 FOR UPDATE`, ids.MustNormalize(id)))
	if errors.Is(err, sql.ErrNoRows) {
		return placement.Student{}, placement.ErrNotFound
	}
	if err != nil {
		return placement.Student{}, err
	}
	upd.Apply(&st)
	_, err = tx.ExecContext(ctx,
		`UPDATE students SET debarred = $2, placement_status = $3, internship_status = $4 WHERE id = $1`,
		st.ID, st.Debarred, st.PlacementStatus, st.InternshipStatus)
	if err != nil {
		return placement.Student{}, err
	}
	return st, tx.Commit()
}

func (s *PostgresStore) CreateApplication(ctx context.Context, app placement.Application) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO applications (id, job_id, student_id, created_at) VALUES ($1, $2, $3, $4)`,
		app.ID, app.JobID, app.StudentID, app.CreatedAt)
	switch {
	case isPgCode(err, pgUniqueViolation):
		return placement.ErrAlreadyApplied
	case isPgCode(err, pgForeignKeyViolation):
		return placement.ErrNotFound
	}
	return err
}

func (s *PostgresStore) HasApplied(ctx context.Context, jobID, studentID string) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM applications WHERE job_id = $1 AND student_id = $2)`,
		ids.MustNormalize(jobID), ids.MustNormalize(studentID)).Scan(&exists)
	return exists, err
}

func (s *PostgresStore) ListApplicants(ctx context.Context, jobID string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT student_id FROM applications WHERE job_id = $1 ORDER BY created_at, id`, ids.MustNormalize(jobID))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

func expectOne(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return placement.ErrNotFound
	}
	return nil
}

func isPgCode(err error, code string) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == code
}
