package models

import "time"

type JobListing struct {
	ID          string    `json:"id" bson:"_id"`
	UserID      string    `json:"userId" bson:"userId"`
	Title       string    `json:"title" bson:"title"`
	Company     string    `json:"company,omitempty" bson:"company,omitempty"`
	Description string    `json:"description,omitempty" bson:"description,omitempty"`
	StarRating  float64   `json:"starRating" bson:"starRating"`
	Position    string    `json:"position" bson:"position"`
	Location    string    `json:"location" bson:"location"`
	Duration    string    `json:"duration,omitempty" bson:"duration,omitempty"`
	Rate        float64   `json:"rate" bson:"rate"`
	Salary      string    `json:"salary,omitempty" bson:"salary,omitempty"`
	Experience  string    `json:"experience,omitempty" bson:"experience,omitempty"`
	Skills      []string  `json:"skills" bson:"skills"`
	Type        string    `json:"type" bson:"type"`
	PostedDate  time.Time `json:"postedDate" bson:"postedDate"`
	CreatedAt   time.Time `json:"createdAt" bson:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt,omitempty" bson:"updatedAt,omitempty"`
}

// JobSummary is the slice of a listing populated into messages and applications.
type JobSummary struct {
	ID       string  `json:"id"`
	Title    string  `json:"title"`
	Company  string  `json:"company,omitempty"`
	Position string  `json:"position"`
	Location string  `json:"location"`
	Rate     float64 `json:"rate"`
	Duration string  `json:"duration,omitempty"`
}

func (j JobListing) Summary() JobSummary {
	return JobSummary{
		ID:       j.ID,
		Title:    j.Title,
		Company:  j.Company,
		Position: j.Position,
		Location: j.Location,
		Rate:     j.Rate,
		Duration: j.Duration,
	}
}

// JobResponse is a listing with its applicants derived from applications.
type JobResponse struct {
	JobListing
	Applicants     []string `json:"applicants"`
	ApplicantCount int      `json:"applicantCount"`
	// HasApplied is true when the authenticated caller is among the applicants.
	HasApplied bool `json:"hasApplied"`
}
