package applications

import "jobconnect/models"

// Party is who is asking for a status change.
type Party int

const (
	Employer Party = iota
	Applicant
)

func (p Party) String() string {
	if p == Applicant {
		return "applicant"
	}
	return "employer"
}

var transitions = map[Party]map[models.ApplicationStatus][]models.ApplicationStatus{
	Employer: {
		models.StatusPending:     {models.StatusViewed, models.StatusRejected},
		models.StatusViewed:      {models.StatusInterviewed, models.StatusRejected},
		models.StatusInterviewed: {models.StatusOffered, models.StatusRejected},
		models.StatusOffered:     {models.StatusRejected},
	},
	Applicant: {
		models.StatusPending:     {models.StatusWithdrawn},
		models.StatusViewed:      {models.StatusWithdrawn},
		models.StatusInterviewed: {models.StatusWithdrawn},
		models.StatusOffered:     {models.StatusAccepted},
	},
}

// setters records which party ever writes a status. Re-writing the current
// status is allowed for that party.
var setters = map[models.ApplicationStatus]Party{
	models.StatusViewed:      Employer,
	models.StatusInterviewed: Employer,
	models.StatusOffered:     Employer,
	models.StatusRejected:    Employer,
	models.StatusAccepted:    Applicant,
	models.StatusWithdrawn:   Applicant,
}

// Allowed lists the statuses p may move an application to from the given status.
func Allowed(p Party, from models.ApplicationStatus) []models.ApplicationStatus {
	next := transitions[p][from]
	out := make([]models.ApplicationStatus, 0, len(next)+1)
	if setter, ok := setters[from]; ok && setter == p {
		out = append(out, from)
	}
	return append(out, next...)
}

// CanTransition reports whether p may set to when the application is at from.
func CanTransition(p Party, from, to models.ApplicationStatus) bool {
	for _, s := range Allowed(p, from) {
		if s == to {
			return true
		}
	}
	return false
}
