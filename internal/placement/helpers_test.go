package placement

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

func ptr[T any](v T) *T { return &v }

func baseStudent() Student {
	return Student{
		ID:         primitive.NewObjectID().Hex(),
		Email:      "asha@college.edu",
		Name:       "Asha",
		Department: "COMPUTER SCIENCE AND ENGINEERING",
		Course:     "B.Tech",
		Batch:      "2025",
		CGPA:       ptr(8.1),
		Gender:     "Female",
	}
}

func baseSet() EligibilitySet {
	return EligibilitySet{
		CourseAllowed:     "B.Tech",
		DepartmentAllowed: []string{"COMPUTER SCIENCE AND ENGINEERING", "ELECTRICAL ENGINEERING"},
		GenderAllowed:     "Any",
		EligibleBatch:     "2025",
		MinimumCGPA:       7.5,
	}
}

func baseJob(sets ...EligibilitySet) JobProfile {
	if len(sets) == 0 {
		sets = []EligibilitySet{baseSet()}
	}
	return JobProfile{
		ID:                  primitive.NewObjectID().Hex(),
		CompanyName:         "Acme",
		CompanyLogo:         "https://cdn.example.com/acme.png",
		Role:                "SDE",
		Type:                JobTypeFTE,
		Category:            CategoryTech,
		CTC:                 1800000,
		Deadline:            time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC),
		Status:              StatusApproved,
		EligibilityCriteria: sets,
	}
}

func oaStep(date time.Time, eligible []string, shortlisted []string, links ...OALink) WorkflowStep {
	return WorkflowStep{
		Details:             OADetails{Date: date, LoginTime: "09:30", Duration: "90", Info: "HackerRank", Links: links},
		EligibleStudents:    eligible,
		ShortlistedStudents: shortlisted,
	}
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 10, 0, 0, 0, time.UTC)
}
