// Package store defines the persistence contracts shared by the Mongo
// implementation in db and the in-process one in store/memstore.
package store

import (
	"context"
	"errors"
	"time"

	"jobconnect/models"
)

var (
	ErrNotFound  = errors.New("not found")
	ErrDuplicate = errors.New("duplicate key")
	// ErrConflict means a conditional update lost to a concurrent writer.
	ErrConflict = errors.New("conflict")
)

// JobFilter narrows ListJobs. Zero values mean "no constraint".
type JobFilter struct {
	Query    string
	Location string
	Type     string
	Skill    string
	OwnerID  string
	MinRate  *float64
	MaxRate  *float64
	Skip     int64
	Limit    int64
}

// MessageFilter selects one side of a user's mailbox.
type MessageFilter struct {
	ReceiverID string
	SenderID   string
	UnreadOnly bool
}

type UserStore interface {
	CreateUser(ctx context.Context, u *models.User) error
	GetUser(ctx context.Context, id string) (*models.User, error)
	GetUserByPhone(ctx context.Context, phone string) (*models.User, error)
	GetUsers(ctx context.Context, ids []string) (map[string]models.User, error)
	UpdateUser(ctx context.Context, id string, fields map[string]any) (*models.User, error)
}

type JobStore interface {
	CreateJob(ctx context.Context, j *models.JobListing) error
	GetJob(ctx context.Context, id string) (*models.JobListing, error)
	GetJobs(ctx context.Context, ids []string) (map[string]models.JobListing, error)
	ListJobs(ctx context.Context, f JobFilter) ([]models.JobListing, int64, error)
	// UpdateJob and DeleteJob match on both id and owner; a miss is ErrNotFound.
	UpdateJob(ctx context.Context, id, ownerID string, fields map[string]any) (*models.JobListing, error)
	DeleteJob(ctx context.Context, id, ownerID string) error
}

type ApplicationStore interface {
	// CreateApplication returns ErrDuplicate when the (job, applicant) pair exists.
	CreateApplication(ctx context.Context, a *models.Application) error
	GetApplication(ctx context.Context, id string) (*models.Application, error)
	ListApplicationsByJob(ctx context.Context, jobID string) ([]models.Application, error)
	ListApplicationsByApplicant(ctx context.Context, applicantID string) ([]models.Application, error)
	ListApplicationsByEmployer(ctx context.Context, employerID string) ([]models.Application, error)
	GetApplicationsByIDs(ctx context.Context, ids []string) (map[string]models.Application, error)
	// UpdateApplicationStatus only applies when the stored status equals from;
	// otherwise it returns ErrConflict (or ErrNotFound if the id is unknown).
	UpdateApplicationStatus(ctx context.Context, id string, from, to models.ApplicationStatus, at time.Time) (*models.Application, error)
	DeleteApplication(ctx context.Context, id string) error
	DeleteApplicationsByJob(ctx context.Context, jobID string) (int64, error)
}

type MessageStore interface {
	InsertMessages(ctx context.Context, msgs ...*models.Message) error
	// ListMessages returns newest first.
	ListMessages(ctx context.Context, f MessageFilter) ([]models.Message, error)
	// MarkRead reports ErrNotFound unless the message exists with that receiver.
	MarkRead(ctx context.Context, id, receiverID string) error
	CountUnread(ctx context.Context, receiverID string) (int64, error)
}

// Store is everything the handlers need from persistence.
type Store interface {
	UserStore
	JobStore
	ApplicationStore
	MessageStore
}
