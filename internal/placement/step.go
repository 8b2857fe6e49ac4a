package placement

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/preetsahil/MP/internal/ids"
)

// StepType names one kind of hiring round.
type StepType string

const (
	StepResumeShortlisting StepType = "Resume Shortlisting"
	StepOA                 StepType = "OA"
	StepInterview          StepType = "Interview"
	StepGD                 StepType = "GD"
	StepOthers             StepType = "Others"
)

// Valid reports whether t is one of the known round types.
func (t StepType) Valid() bool {
	switch t {
	case StepResumeShortlisting, StepOA, StepInterview, StepGD, StepOthers:
		return true
	}
	return false
}

// StepDetails is the type-specific payload of a workflow step. The concrete
// type determines the step type, so a step can never carry details that do
// not belong to it.
type StepDetails interface {
	StepType() StepType
	toMap() map[string]any
}

// ResumeShortlistingDetails carries no fields.
type ResumeShortlistingDetails struct{}

func (ResumeShortlistingDetails) StepType() StepType      { return StepResumeShortlisting }
func (ResumeShortlistingDetails) toMap() map[string]any { return map[string]any{} }

// OALink is an individual assessment link for one student. Visible defaults to
// true when the stored entry has no visibility flag.
type OALink struct {
	StudentID string `json:"studentId"`
	Link      string `json:"oaLink"`
	Visible   bool   `json:"visibility"`
}

// OADetails describes an online assessment.
type OADetails struct {
	// Date is zero when the round has no date yet.
	Date      time.Time
	LoginTime string
	Duration  string
	Info      string
	Links     []OALink
}

func (OADetails) StepType() StepType { return StepOA }

func (d OADetails) toMap() map[string]any {
	links := make([]any, 0, len(d.Links))
	for _, l := range d.Links {
		links = append(links, map[string]any{
			"studentId":  l.StudentID,
			"oaLink":     l.Link,
			"visibility": l.Visible,
		})
	}
	m := map[string]any{
		"oa_login_time": d.LoginTime,
		"oa_duration":   d.Duration,
		"oa_info":       d.Info,
		"oa_link":       links,
	}
	if !d.Date.IsZero() {
		m["oa_date"] = d.Date.UTC()
	}
	return m
}

// linkFor returns the link entry owned by studentID, if any.
func (d OADetails) linkFor(studentID string) (OALink, bool) {
	for _, l := range d.Links {
		if ids.Equal(l.StudentID, studentID) {
			return l, true
		}
	}
	return OALink{}, false
}

// InterviewDetails describes an interview round.
type InterviewDetails struct {
	Mode string
	Date string
	Time string
	Info string
}

func (InterviewDetails) StepType() StepType { return StepInterview }

func (d InterviewDetails) toMap() map[string]any {
	return map[string]any{
		"interview_type": d.Mode,
		"interview_date": d.Date,
		"interview_time": d.Time,
		"interview_info": d.Info,
	}
}

// GDDetails describes a group discussion round.
type GDDetails struct {
	Date string
	Time string
	Info string
}

func (GDDetails) StepType() StepType { return StepGD }

func (d GDDetails) toMap() map[string]any {
	return map[string]any{
		"gd_date": d.Date,
		"gd_time": d.Time,
		"gd_info": d.Info,
	}
}

// OthersDetails describes a custom round.
type OthersDetails struct {
	RoundName string
	Date      string
	LoginTime string
	Duration  string
	Info      string
}

func (OthersDetails) StepType() StepType { return StepOthers }

func (d OthersDetails) toMap() map[string]any {
	return map[string]any{
		"others_round_name": d.RoundName,
		"others_date":       d.Date,
		"others_login_time": d.LoginTime,
		"others_duration":   d.Duration,
		"others_info":       d.Info,
	}
}

// UnknownDetails keeps a stored step whose type this service does not know.
// Validation rejects it on write; reads pass it through untouched.
type UnknownDetails struct {
	Kind StepType
	Raw  map[string]any
}

func (d UnknownDetails) StepType() StepType { return d.Kind }

func (d UnknownDetails) toMap() map[string]any {
	if d.Raw == nil {
		return map[string]any{}
	}
	return d.Raw
}

// DetailsMap renders details in their stored key/value form.
func DetailsMap(d StepDetails) map[string]any {
	if d == nil {
		return map[string]any{}
	}
	return d.toMap()
}

// DetailsFromMap builds the typed details for a step type from a loosely
// typed bag. Missing or malformed fields become zero values.
func DetailsFromMap(t StepType, m map[string]any) StepDetails {
	switch t {
	case StepResumeShortlisting:
		return ResumeShortlistingDetails{}
	case StepOA:
		d := OADetails{
			Date:      timeValue(m["oa_date"]),
			LoginTime: firstNonEmpty(stringValue(m["oa_login_time"]), stringValue(m["login_time"])),
			Duration:  stringValue(m["oa_duration"]),
			Info:      stringValue(m["oa_info"]),
		}
		for _, raw := range listValue(m["oa_link"]) {
			entry, ok := mapValue(raw)
			if !ok {
				continue
			}
			sid, ok := ids.Normalize(entry["studentId"])
			if !ok {
				continue
			}
			visible := true
			if v, ok := entry["visibility"].(bool); ok {
				visible = v
			}
			d.Links = append(d.Links, OALink{StudentID: sid, Link: stringValue(entry["oaLink"]), Visible: visible})
		}
		return d
	case StepInterview:
		return InterviewDetails{
			Mode: stringValue(m["interview_type"]),
			Date: stringValue(m["interview_date"]),
			Time: stringValue(m["interview_time"]),
			Info: stringValue(m["interview_info"]),
		}
	case StepGD:
		return GDDetails{
			Date: stringValue(m["gd_date"]),
			Time: stringValue(m["gd_time"]),
			Info: stringValue(m["gd_info"]),
		}
	case StepOthers:
		return OthersDetails{
			RoundName: stringValue(m["others_round_name"]),
			Date:      stringValue(m["others_date"]),
			LoginTime: stringValue(m["others_login_time"]),
			Duration:  stringValue(m["others_duration"]),
			Info:      stringValue(m["others_info"]),
		}
	default:
		return UnknownDetails{Kind: t, Raw: m}
	}
}

// WorkflowStep is one round of a job's hiring pipeline. Its position in the
// job's workflow is its identity.
type WorkflowStep struct {
	Details             StepDetails
	EligibleStudents    []string
	ShortlistedStudents []string
}

// NewStep returns a step with an empty roster.
func NewStep(d StepDetails) WorkflowStep {
	return WorkflowStep{Details: d}
}

// Type returns the step type carried by the details.
func (s WorkflowStep) Type() StepType {
	if s.Details == nil {
		return ""
	}
	return s.Details.StepType()
}

// HasRoster reports whether any student has been recorded on the step.
func (s WorkflowStep) HasRoster() bool {
	return len(s.EligibleStudents) > 0 || len(s.ShortlistedStudents) > 0
}

// IsEligible reports whether studentID reached this step.
func (s WorkflowStep) IsEligible(studentID string) bool {
	return ids.Contains(s.EligibleStudents, studentID)
}

type stepWire struct {
	StepType            StepType       `json:"step_type"`
	Details             map[string]any `json:"details"`
	EligibleStudents    []any          `json:"eligible_students"`
	ShortlistedStudents []any          `json:"shortlisted_students"`
}

// MarshalJSON writes the stored document shape.
func (s WorkflowStep) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		StepType            StepType       `json:"step_type"`
		Details             map[string]any `json:"details"`
		EligibleStudents    []string       `json:"eligible_students"`
		ShortlistedStudents []string       `json:"shortlisted_students"`
	}{
		StepType:            s.Type(),
		Details:             DetailsMap(s.Details),
		EligibleStudents:    nonNil(s.EligibleStudents),
		ShortlistedStudents: nonNil(s.ShortlistedStudents),
	})
}

// UnmarshalJSON reads the stored document shape, normalizing identifiers.
func (s *WorkflowStep) UnmarshalJSON(b []byte) error {
	var w stepWire
	if err := json.Unmarshal(b, &w); err != nil {
		return err
	}
	*s = StepFromParts(w.StepType, w.Details, w.EligibleStudents, w.ShortlistedStudents)
	return nil
}

// StepFromParts assembles a step from the loosely typed pieces a store hands
// back. It is the single place identifiers are normalized on ingestion.
func StepFromParts(t StepType, details map[string]any, eligible, shortlisted []any) WorkflowStep {
	return WorkflowStep{
		Details:             DetailsFromMap(t, details),
		EligibleStudents:    ids.NormalizeAll(eligible),
		ShortlistedStudents: ids.NormalizeAll(shortlisted),
	}
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04",
	"2006-01-02",
}

func timeValue(v any) time.Time {
	switch t := v.(type) {
	case time.Time:
		return t.UTC()
	case *time.Time:
		if t != nil {
			return t.UTC()
		}
	case primitive.DateTime:
		return t.Time().UTC()
	case string:
		s := strings.TrimSpace(t)
		for _, layout := range timeLayouts {
			if parsed, err := time.Parse(layout, s); err == nil {
				return parsed.UTC()
			}
		}
	case float64:
		if !math.IsNaN(t) && !math.IsInf(t, 0) {
			return time.UnixMilli(int64(t)).UTC()
		}
	case int64:
		return time.UnixMilli(t).UTC()
	case map[string]any:
		if d, ok := t["$date"]; ok {
			return timeValue(d)
		}
	}
	return time.Time{}
}

func stringValue(v any) string {
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case int:
		return strconv.Itoa(t)
	case int32:
		return strconv.FormatInt(int64(t), 10)
	case int64:
		return strconv.FormatInt(t, 10)
	case bool:
		return strconv.FormatBool(t)
	case time.Time:
		return t.UTC().Format(time.RFC3339)
	case nil:
		return ""
	default:
		return fmt.Sprint(t)
	}
}

func listValue(v any) []any {
	switch t := v.(type) {
	case []any:
		return t
	case primitive.A:
		return []any(t)
	case []map[string]any:
		out := make([]any, 0, len(t))
		for _, m := range t {
			out = append(out, m)
		}
		return out
	}
	return nil
}

func mapValue(v any) (map[string]any, bool) {
	switch t := v.(type) {
	case map[string]any:
		return t, true
	case primitive.M:
		return map[string]any(t), true
	}
	return nil, false
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
