package models

import (
	"strings"
	"time"
)

type ApplicationStatus string

const (
	StatusPending     ApplicationStatus = "pending"
	StatusViewed      ApplicationStatus = "viewed"
	StatusInterviewed ApplicationStatus = "interviewed"
	StatusOffered     ApplicationStatus = "offered"
	StatusRejected    ApplicationStatus = "rejected"
	StatusAccepted    ApplicationStatus = "accepted"
	StatusWithdrawn   ApplicationStatus = "withdrawn"
)

var applicationStatuses = map[ApplicationStatus]bool{
	StatusPending:     true,
	StatusViewed:      true,
	StatusInterviewed: true,
	StatusOffered:     true,
	StatusRejected:    true,
	StatusAccepted:    true,
	StatusWithdrawn:   true,
}

func (s ApplicationStatus) Valid() bool {
	return applicationStatuses[s]
}

// Application is the (job, applicant) pairing. Its ID is ApplicationID(jobID, applicantID).
type Application struct {
	ID          string            `json:"id" bson:"_id"`
	JobID       string            `json:"jobId" bson:"jobId"`
	ApplicantID string            `json:"applicantId" bson:"applicantId"`
	EmployerID  string            `json:"employerId" bson:"employerId"`
	Status      ApplicationStatus `json:"status" bson:"status"`
	CoverLetter string            `json:"coverLetter,omitempty" bson:"coverLetter,omitempty"`
	AppliedDate time.Time         `json:"appliedDate" bson:"appliedDate"`
	UpdatedAt   time.Time         `json:"updatedAt" bson:"updatedAt"`
}

const applicationKeySep = "_"

func ApplicationID(jobID, applicantID string) string {
	return jobID + applicationKeySep + applicantID
}

// SplitApplicationID reverses ApplicationID.
func SplitApplicationID(id string) (jobID, applicantID string, ok bool) {
	jobID, applicantID, ok = strings.Cut(id, applicationKeySep)
	if !ok || jobID == "" || applicantID == "" {
		return "", "", false
	}
	return jobID, applicantID, true
}

// AppliedEntry is one element of a user's derived "applied" list.
type AppliedEntry struct {
	ApplicationID string            `json:"applicationId"`
	Job           *JobSummary       `json:"job,omitempty"`
	JobID         string            `json:"jobId"`
	Status        ApplicationStatus `json:"status"`
	AppliedDate   time.Time         `json:"appliedDate"`
}

// ApplicantView is one row of a job's populated applicant list.
type ApplicantView struct {
	ID                string            `json:"id"`
	ApplicationID     string            `json:"applicationId"`
	FirstName         string            `json:"firstName"`
	LastName          string            `json:"lastName"`
	Phone             string            `json:"phone"`
	Role              string            `json:"role"`
	Title             string            `json:"title,omitempty"`
	Status            string            `json:"status,omitempty"`
	ApplicationStatus ApplicationStatus `json:"applicationStatus"`
	AppliedDate       time.Time         `json:"appliedDate"`
}

// ApplicationView is an application with its job and applicant populated.
type ApplicationView struct {
	Application
	Applicant *UserSummary `json:"applicant,omitempty"`
	Job       *JobSummary  `json:"job,omitempty"`
}
