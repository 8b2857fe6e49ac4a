package placement

import (
	"sort"
	"time"
)

// ProjectedOA is one assessment on a student's calendar.
type ProjectedOA struct {
	JobID       string `json:"job_id"`
	CompanyName string `json:"company_name"`
	CompanyLogo string `json:"company_logo"`
	OAView
}

// PartitionOAs collects every OA step of jobs on which studentID is eligible
// and splits them around now: a step is upcoming when its date is after now,
// past otherwise (including steps without a date). Upcoming keeps scan order;
// past is sorted most recent first with undated steps last.
func PartitionOAs(studentID string, jobs []JobProfile, now time.Time) (upcoming, past []ProjectedOA) {
	upcoming, past = []ProjectedOA{}, []ProjectedOA{}
	for _, job := range jobs {
		for _, step := range job.Workflow {
			oa, ok := step.Details.(OADetails)
			if !ok || !step.IsEligible(studentID) {
				continue
			}
			item := ProjectedOA{
				JobID:       job.ID,
				CompanyName: job.CompanyName,
				CompanyLogo: job.CompanyLogo,
				OAView:      projectOA(studentID, step, oa),
			}
			if !oa.Date.IsZero() && oa.Date.After(now) {
				upcoming = append(upcoming, item)
			} else {
				past = append(past, item)
			}
		}
	}
	sort.SliceStable(past, func(a, b int) bool {
		da, db := past[a].Date, past[b].Date
		switch {
		case da == nil:
			return false
		case db == nil:
			return true
		default:
			return da.After(*db)
		}
	})
	return upcoming, past
}

// UpcomingOAs returns the student's assessments dated after now.
func UpcomingOAs(studentID string, jobs []JobProfile, now time.Time) []ProjectedOA {
	upcoming, _ := PartitionOAs(studentID, jobs, now)
	return upcoming
}

// PastOAs returns the student's assessments not dated after now, most recent
// first.
func PastOAs(studentID string, jobs []JobProfile, now time.Time) []ProjectedOA {
	_, past := PartitionOAs(studentID, jobs, now)
	return past
}
