package placement

import "strings"

// Gender is the canonical gender value used by eligibility sets.
type Gender string

const (
	GenderMale   Gender = "Male"
	GenderFemale Gender = "Female"
	GenderAny    Gender = "Any"
)

// ParseGender maps free-form input onto the canonical set. Anything else,
// including the legacy "Other", reports ok=false.
func ParseGender(s string) (Gender, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "male":
		return GenderMale, true
	case "female":
		return GenderFemale, true
	case "any", "all":
		return GenderAny, true
	default:
		return "", false
	}
}

// Student is the academic record eligibility is evaluated against.
type Student struct {
	ID         string `json:"id"`
	Email      string `json:"email"`
	Name       string `json:"name"`
	Department string `json:"department"`
	Course     string `json:"course"`
	Batch      string `json:"batch"`
	// CGPA is nil when not recorded.
	CGPA             *float64 `json:"cgpa"`
	Gender           string   `json:"gender"`
	ActiveBacklogs   bool     `json:"active_backlogs"`
	BacklogsHistory  bool     `json:"backlogs_history"`
	Debarred         bool     `json:"debarred"`
	PlacementStatus  string   `json:"placementstatus"`
	InternshipStatus string   `json:"internshipstatus"`
}

// StatusUpdate carries the administrative flags staff may change. Nil fields
// are left untouched.
type StatusUpdate struct {
	Debarred         *bool   `json:"debarred"`
	PlacementStatus  *string `json:"placementstatus"`
	InternshipStatus *string `json:"internshipstatus"`
}

// Apply copies the set fields of u onto s.
func (u StatusUpdate) Apply(s *Student) {
	if u.Debarred != nil {
		s.Debarred = *u.Debarred
	}
	if u.PlacementStatus != nil {
		s.PlacementStatus = strings.TrimSpace(*u.PlacementStatus)
	}
	if u.InternshipStatus != nil {
		s.InternshipStatus = strings.TrimSpace(*u.InternshipStatus)
	}
}

// Empty reports whether the update changes nothing.
func (u StatusUpdate) Empty() bool {
	return u.Debarred == nil && u.PlacementStatus == nil && u.InternshipStatus == nil
}
