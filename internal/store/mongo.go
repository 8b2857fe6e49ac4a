package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/preetsahil/MP/internal/ids"
	"github.com/preetsahil/MP/internal/placement"
)

// Mongo wraps a connected client and the database the portal uses.
type Mongo struct {
	Client *mongo.Client
	DB     *mongo.Database
}

// NewMongo connects with short timeouts and verifies the server is reachable.
func NewMongo(ctx context.Context, uri, database string) (*Mongo, error) {
	opts := options.Client().
		ApplyURI(uri).
		SetConnectTimeout(5 * time.Second).
		SetServerSelectionTimeout(5 * time.Second)
	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, err
	}
	m := &Mongo{Client: client, DB: client.Database(database)}
	return m, client.Ping(ctx, nil)
}

// Healthy verifies mongo connectivity.
func (m *Mongo) Healthy(ctx context.Context) bool {
	if m == nil || m.Client == nil {
		return false
	}
	return m.Client.Ping(ctx, nil) == nil
}

// Close disconnects the client.
func (m *Mongo) Close(ctx context.Context) error {
	if m == nil || m.Client == nil {
		return nil
	}
	return m.Client.Disconnect(ctx)
}

// MongoStore keeps jobs in the document shape the portal has always used:
// identifiers inside the hiring workflow are stored as ObjectIDs.
type MongoStore struct {
	jobs     *mongo.Collection
	students *mongo.Collection
	apps     *mongo.Collection
}

// NewMongoStore returns a store over the jobprofiles, students and
// applications collections.
func NewMongoStore(m *Mongo) *MongoStore {
	return &MongoStore{
		jobs:     m.DB.Collection("jobprofiles"),
		students: m.DB.Collection("students"),
		apps:     m.DB.Collection("applications"),
	}
}

var _ placement.Store = (*MongoStore)(nil)

// EnsureIndexes creates the indexes the queries rely on.
func (s *MongoStore) EnsureIndexes(ctx context.Context) error {
	_, err := s.jobs.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "Hiring_Workflow.eligible_students", Value: 1}}},
		{Keys: bson.D{{Key: "status", Value: 1}, {Key: "createdAt", Value: 1}}},
	})
	if err != nil {
		return fmt.Errorf("job indexes: %w", err)
	}
	_, err = s.apps.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "job_id", Value: 1}, {Key: "student_id", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return fmt.Errorf("application indexes: %w", err)
	}
	return nil
}

type setDoc struct {
	CourseAllowed          string   `bson:"course_allowed"`
	DepartmentAllowed      []string `bson:"department_allowed"`
	GenderAllowed          string   `bson:"gender_allowed"`
	EligibleBatch          string   `bson:"eligible_batch"`
	MinimumCGPA            float64  `bson:"minimum_cgpa"`
	ActiveBacklogsAllowed  bool     `bson:"active_backlogs"`
	HistoryBacklogsAllowed bool     `bson:"history_backlogs"`
}

type stepDoc struct {
	StepType    string   `bson:"step_type"`
	Details     bson.Raw `bson:"details,omitempty"`
	Eligible    []any    `bson:"eligible_students"`
	Shortlisted []any    `bson:"shortlisted_students"`
}

type jobDoc struct {
	ID                  any       `bson:"_id"`
	JobID               string    `bson:"job_id"`
	RecruiterID         any       `bson:"recruiter_id,omitempty"`
	CompanyName         string    `bson:"company_name"`
	CompanyLogo         string    `bson:"company_logo"`
	Role                string    `bson:"job_role"`
	Description         string    `bson:"jobdescription"`
	Location            string    `bson:"joblocation"`
	Type                string    `bson:"job_type"`
	InternshipDuration  string    `bson:"internship_duration"`
	Category            string    `bson:"job_category"`
	Sector              string    `bson:"job_sector"`
	CTC                 float64   `bson:"ctc"`
	BaseSalary          string    `bson:"base_salary"`
	Stipend             float64   `bson:"stipend"`
	Deadline            time.Time `bson:"deadline"`
	Status              string    `bson:"status"`
	EligibilityCriteria []setDoc  `bson:"eligibility_criteria"`
	Workflow            []stepDoc `bson:"Hiring_Workflow"`
	CreatedAt           time.Time `bson:"createdAt"`
	UpdatedAt           time.Time `bson:"updatedAt"`
}

// storedID converts a canonical identifier to the form kept in mongo.
func storedID(id string) any {
	if oid, ok := ids.ObjectID(id); ok {
		return oid
	}
	return id
}

func storedIDs(list []string) []any {
	out := make([]any, 0, len(list))
	for _, id := range list {
		out = append(out, storedID(id))
	}
	return out
}

func toJobDoc(j placement.JobProfile) (jobDoc, error) {
	doc := jobDoc{
		ID:                  storedID(j.ID),
		JobID:               j.JobID,
		CompanyName:         j.CompanyName,
		CompanyLogo:         j.CompanyLogo,
		Role:                j.Role,
		Description:         j.Description,
		Location:            j.Location,
		Type:                string(j.Type),
		InternshipDuration:  j.InternshipDuration,
		Category:            string(j.Category),
		Sector:              j.Sector,
		CTC:                 j.CTC,
		BaseSalary:          j.BaseSalary,
		Stipend:             j.Stipend,
		Deadline:            j.Deadline,
		Status:              string(j.Status),
		EligibilityCriteria: make([]setDoc, 0, len(j.EligibilityCriteria)),
		Workflow:            make([]stepDoc, 0, len(j.Workflow)),
		CreatedAt:           j.CreatedAt,
		UpdatedAt:           j.UpdatedAt,
	}
	if j.RecruiterID != "" {
		doc.RecruiterID = storedID(j.RecruiterID)
	}
	for _, set := range j.EligibilityCriteria {
		doc.EligibilityCriteria = append(doc.EligibilityCriteria, setDoc(set))
	}
	for i, step := range j.Workflow {
		details := placement.DetailsMap(step.Details)
		if links, ok := details["oa_link"].([]any); ok {
			for _, l := range links {
				if entry, ok := l.(map[string]any); ok {
					if sid, ok := entry["studentId"].(string); ok {
						entry["studentId"] = storedID(sid)
					}
				}
			}
		}
		raw, err := bson.Marshal(details)
		if err != nil {
			return jobDoc{}, fmt.Errorf("encode step %d: %w", i, err)
		}
		doc.Workflow = append(doc.Workflow, stepDoc{
			StepType:    string(step.Type()),
			Details:     raw,
			Eligible:    storedIDs(step.EligibleStudents),
			Shortlisted: storedIDs(step.ShortlistedStudents),
		})
	}
	return doc, nil
}

func fromJobDoc(d jobDoc) placement.JobProfile {
	j := placement.JobProfile{
		ID:                  ids.MustNormalize(d.ID),
		JobID:               d.JobID,
		RecruiterID:         ids.MustNormalize(d.RecruiterID),
		CompanyName:         d.CompanyName,
		CompanyLogo:         d.CompanyLogo,
		Role:                d.Role,
		Description:         d.Description,
		Location:            d.Location,
		Type:                placement.JobType(d.Type),
		InternshipDuration:  d.InternshipDuration,
		Category:            placement.JobCategory(d.Category),
		Sector:              d.Sector,
		CTC:                 d.CTC,
		BaseSalary:          d.BaseSalary,
		Stipend:             d.Stipend,
		Deadline:            d.Deadline.UTC(),
		Status:              placement.JobStatus(d.Status),
		EligibilityCriteria: make([]placement.EligibilitySet, 0, len(d.EligibilityCriteria)),
		Workflow:            make([]placement.WorkflowStep, 0, len(d.Workflow)),
		CreatedAt:           d.CreatedAt.UTC(),
		UpdatedAt:           d.UpdatedAt.UTC(),
	}
	for _, set := range d.EligibilityCriteria {
		j.EligibilityCriteria = append(j.EligibilityCriteria, placement.EligibilitySet(set))
	}
	for _, s := range d.Workflow {
		j.Workflow = append(j.Workflow, placement.StepFromParts(
			placement.StepType(s.StepType), rawDocument(s.Details), s.Eligible, s.Shortlisted))
	}
	return j
}

// rawDocument turns a stored details document into the loose map the
// placement package decodes, keeping ObjectIDs and dates in their bson form.
func rawDocument(r bson.Raw) map[string]any {
	out := map[string]any{}
	if len(r) == 0 {
		return out
	}
	elems, err := r.Elements()
	if err != nil {
		return out
	}
	for _, e := range elems {
		out[e.Key()] = rawValue(e.Value())
	}
	return out
}

func rawValue(v bson.RawValue) any {
	switch v.Type {
	case bson.TypeEmbeddedDocument:
		return rawDocument(v.Document())
	case bson.TypeArray:
		vals, err := v.Array().Values()
		if err != nil {
			return []any{}
		}
		out := make([]any, 0, len(vals))
		for _, x := range vals {
			out = append(out, rawValue(x))
		}
		return out
	case bson.TypeObjectID:
		return v.ObjectID()
	case bson.TypeDateTime:
		return primitive.DateTime(v.DateTime())
	case bson.TypeString:
		return v.StringValue()
	case bson.TypeBoolean:
		return v.Boolean()
	case bson.TypeDouble:
		return v.Double()
	case bson.TypeInt32:
		return int64(v.Int32())
	case bson.TypeInt64:
		return v.Int64()
	case bson.TypeNull, bson.TypeUndefined:
		return nil
	default:
		return v.String()
	}
}

func (s *MongoStore) CreateJob(ctx context.Context, job placement.JobProfile) error {
	doc, err := toJobDoc(job)
	if err != nil {
		return err
	}
	_, err = s.jobs.InsertOne(ctx, doc)
	if mongo.IsDuplicateKeyError(err) {
		return placement.ValidationError("job " + job.ID + " already exists")
	}
	return err
}

func (s *MongoStore) GetJob(ctx context.Context, id string) (placement.JobProfile, error) {
	var doc jobDoc
	err := s.jobs.FindOne(ctx, bson.M{"_id": storedID(ids.MustNormalize(id))}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return placement.JobProfile{}, placement.ErrNotFound
	}
	if err != nil {
		return placement.JobProfile{}, err
	}
	return fromJobDoc(doc), nil
}

func (s *MongoStore) ListJobs(ctx context.Context, status placement.JobStatus) ([]placement.JobProfile, error) {
	filter := bson.M{}
	if status != "" {
		filter["status"] = string(status)
	}
	return s.findJobs(ctx, filter)
}

// ListJobsForStudent matches the student under either stored form so records
// written before identifiers were normalized are still found.
func (s *MongoStore) ListJobsForStudent(ctx context.Context, studentID string) ([]placement.JobProfile, error) {
	id, ok := ids.Normalize(studentID)
	if !ok {
		return []placement.JobProfile{}, nil
	}
	forms := bson.A{id}
	if oid, ok := ids.ObjectID(id); ok {
		forms = append(forms, oid)
	}
	return s.findJobs(ctx, bson.M{"Hiring_Workflow.eligible_students": bson.M{"$in": forms}})
}

func (s *MongoStore) findJobs(ctx context.Context, filter bson.M) ([]placement.JobProfile, error) {
	cur, err := s.jobs.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}, {Key: "_id", Value: 1}}))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	out := []placement.JobProfile{}
	for cur.Next(ctx) {
		var doc jobDoc
		if err := cur.Decode(&doc); err != nil {
			return nil, fmt.Errorf("decode job: %w", err)
		}
		out = append(out, fromJobDoc(doc))
	}
	return out, cur.Err()
}

func (s *MongoStore) ReplaceJob(ctx context.Context, job placement.JobProfile) error {
	doc, err := toJobDoc(job)
	if err != nil {
		return err
	}
	res, err := s.jobs.ReplaceOne(ctx, bson.M{"_id": doc.ID}, doc)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return placement.ErrNotFound
	}
	return nil
}

func (s *MongoStore) DeleteJob(ctx context.Context, id string) error {
	id = ids.MustNormalize(id)
	res, err := s.jobs.DeleteOne(ctx, bson.M{"_id": storedID(id)})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return placement.ErrNotFound
	}
	_, err = s.apps.DeleteMany(ctx, bson.M{"job_id": id})
	return err
}

type studentDoc struct {
	ID               any      `bson:"_id"`
	Email            string   `bson:"email"`
	Name             string   `bson:"name"`
	Department       string   `bson:"department"`
	Course           string   `bson:"course"`
	Batch            string   `bson:"batch"`
	CGPA             *float64 `bson:"cgpa"`
	Gender           string   `bson:"gender"`
	ActiveBacklogs   bool     `bson:"active_backlogs"`
	BacklogsHistory  bool     `bson:"backlogs_history"`
	Debarred         bool     `bson:"debarred"`
	PlacementStatus  string   `bson:"placementstatus"`
	InternshipStatus string   `bson:"internshipstatus"`
}

func (d studentDoc) student() placement.Student {
	return placement.Student{
		ID:               ids.MustNormalize(d.ID),
		Email:            d.Email,
		Name:             d.Name,
		Department:       d.Department,
		Course:           d.Course,
		Batch:            d.Batch,
		CGPA:             d.CGPA,
		Gender:           d.Gender,
		ActiveBacklogs:   d.ActiveBacklogs,
		BacklogsHistory:  d.BacklogsHistory,
		Debarred:         d.Debarred,
		PlacementStatus:  d.PlacementStatus,
		InternshipStatus: d.InternshipStatus,
	}
}

func (s *MongoStore) GetStudent(ctx context.Context, id string) (placement.Student, error) {
	var doc studentDoc
	err := s.students.FindOne(ctx, bson.M{"_id": storedID(ids.MustNormalize(id))}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return placement.Student{}, placement.ErrNotFound
	}
	if err != nil {
		return placement.Student{}, err
	}
	return doc.student(), nil
}

func (s *MongoStore) ListStudents(ctx context.Context, studentIDs []string) ([]placement.Student, error) {
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
	cur, err := s.students.Find(ctx, bson.M{"_id": bson.M{"$in": storedIDs(wanted)}})
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	byID := make(map[string]placement.Student, len(wanted))
	for cur.Next(ctx) {
		var doc studentDoc
		if err := cur.Decode(&doc); err != nil {
			return nil, fmt.Errorf("decode student: %w", err)
		}
		st := doc.student()
		byID[st.ID] = st
	}
	if err := cur.Err(); err != nil {
		return nil, err
	}
	for _, id := range wanted {
		if st, ok := byID[id]; ok {
			out = append(out, st)
		}
	}
	return out, nil
}

func (s *MongoStore) UpdateStudentStatus(ctx context.Context, id string, upd placement.StatusUpdate) (placement.Student, error) {
	set := bson.M{}
	if upd.Debarred != nil {
		set["debarred"] = *upd.Debarred
	}
	// Apply trims the text fields; reuse it so both backends store the same.
	var probe placement.Student
	upd.Apply(&probe)
	if upd.PlacementStatus != nil {
		set["placementstatus"] = probe.PlacementStatus
	}
	if upd.InternshipStatus != nil {
		set["internshipstatus"] = probe.InternshipStatus
	}
	var doc studentDoc
	err := s.students.FindOneAndUpdate(ctx,
		bson.M{"_id": storedID(ids.MustNormalize(id))},
		bson.M{"$set": set},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return placement.Student{}, placement.ErrNotFound
	}
	if err != nil {
		return placement.Student{}, err
	}
	return doc.student(), nil
}

type applicationDoc struct {
	ID        string    `bson:"_id"`
	JobID     string    `bson:"job_id"`
	StudentID string    `bson:"student_id"`
	CreatedAt time.Time `bson:"createdAt"`
}

func (s *MongoStore) CreateApplication(ctx context.Context, app placement.Application) error {
	_, err := s.apps.InsertOne(ctx, applicationDoc{
		ID:        app.ID,
		JobID:     ids.MustNormalize(app.JobID),
		StudentID: ids.MustNormalize(app.StudentID),
		CreatedAt: app.CreatedAt,
	})
	if mongo.IsDuplicateKeyError(err) {
		return placement.ErrAlreadyApplied
	}
	return err
}

func (s *MongoStore) HasApplied(ctx context.Context, jobID, studentID string) (bool, error) {
	n, err := s.apps.CountDocuments(ctx, bson.M{
		"job_id":     ids.MustNormalize(jobID),
		"student_id": ids.MustNormalize(studentID),
	}, options.Count().SetLimit(1))
	return n > 0, err
}

func (s *MongoStore) ListApplicants(ctx context.Context, jobID string) ([]string, error) {
	cur, err := s.apps.Find(ctx, bson.M{"job_id": ids.MustNormalize(jobID)},
		options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}, {Key: "_id", Value: 1}}))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	out := []string{}
	for cur.Next(ctx) {
		var doc applicationDoc
		if err := cur.Decode(&doc); err != nil {
			return nil, fmt.Errorf("decode application: %w", err)
		}
		out = append(out, doc.StudentID)
	}
	return out, cur.Err()
}
