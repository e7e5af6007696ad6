package models

import "time"

// InboxItem is the legacy message shape embedded on the user document.
type InboxItem struct {
	Subject     string    `json:"subject" bson:"subject"`
	Sender      string    `json:"sender" bson:"sender"`
	Preview     string    `json:"preview,omitempty" bson:"preview,omitempty"`
	Timestamp   time.Time `json:"timestamp" bson:"timestamp"`
	Read        bool      `json:"read" bson:"read"`
	Type        string    `json:"type,omitempty" bson:"type,omitempty"` // interview, offer, rejection, general
	FullMessage string    `json:"fullMessage" bson:"fullMessage"`
}

type User struct {
	ID        string `json:"id" bson:"_id"`
	FirstName string `json:"firstName" bson:"firstName"`
	LastName  string `json:"lastName" bson:"lastName"`
	Phone     string `json:"phone" bson:"phone"`
	Role      string `json:"role" bson:"role"`

	// employee
	Title  string `json:"title,omitempty" bson:"title,omitempty"`
	Status string `json:"status,omitempty" bson:"status,omitempty"`

	// employer
	CompanyName   string `json:"companyName,omitempty" bson:"companyName,omitempty"`
	BusinessType  string `json:"businessType,omitempty" bson:"businessType,omitempty"`
	Website       string `json:"website,omitempty" bson:"website,omitempty"`
	EmployeeCount string `json:"employeeCount,omitempty" bson:"employeeCount,omitempty"`
	WorkingHours  string `json:"workingHours,omitempty" bson:"workingHours,omitempty"`

	Email    string `json:"email,omitempty" bson:"email,omitempty"`
	Location string `json:"location,omitempty" bson:"location,omitempty"`
	About    string `json:"about,omitempty" bson:"about,omitempty"`

	Inbox []InboxItem `json:"inbox,omitempty" bson:"inbox,omitempty"`

	CreatedAt time.Time `json:"createdAt" bson:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt" bson:"updatedAt"`
}

func (u User) DisplayName() string {
	switch {
	case u.FirstName != "" && u.LastName != "":
		return u.FirstName + " " + u.LastName
	case u.FirstName != "":
		return u.FirstName
	case u.CompanyName != "":
		return u.CompanyName
	}
	return u.Phone
}

// UserSummary is what gets populated into messages and applicant lists.
type UserSummary struct {
	ID        string `json:"id"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Role      string `json:"role"`
}

func (u User) Summary() UserSummary {
	return UserSummary{ID: u.ID, FirstName: u.FirstName, LastName: u.LastName, Role: u.Role}
}

// PublicProfile strips contact details and the legacy inbox.
type PublicProfile struct {
	ID           string    `json:"id"`
	FirstName    string    `json:"firstName"`
	LastName     string    `json:"lastName"`
	Role         string    `json:"role"`
	Title        string    `json:"title,omitempty"`
	CompanyName  string    `json:"companyName,omitempty"`
	BusinessType string    `json:"businessType,omitempty"`
	Website      string    `json:"website,omitempty"`
	Location     string    `json:"location,omitempty"`
	About        string    `json:"about,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
}

func (u User) Public() PublicProfile {
	return PublicProfile{
		ID:           u.ID,
		FirstName:    u.FirstName,
		LastName:     u.LastName,
		Role:         u.Role,
		Title:        u.Title,
		CompanyName:  u.CompanyName,
		BusinessType: u.BusinessType,
		Website:      u.Website,
		Location:     u.Location,
		About:        u.About,
		CreatedAt:    u.CreatedAt,
	}
}
