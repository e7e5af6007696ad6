// Package memstore is an in-process implementation of store.Store. It backs
// STORE=memory and the handler tests.
package memstore

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"jobconnect/models"
	"jobconnect/store"
)

type Store struct {
	mu           sync.RWMutex
	users        map[string]models.User
	jobs         map[string]models.JobListing
	applications map[string]models.Application
	messages     map[string]models.Message
	// insertion order breaks createdAt ties so newest-first is stable
	msgSeq map[string]int
	seq    int
}

var _ store.Store = (*Store)(nil)

func New() *Store {
	return &Store{
		users:        make(map[string]models.User),
		jobs:         make(map[string]models.JobListing),
		applications: make(map[string]models.Application),
		messages:     make(map[string]models.Message),
		msgSeq:       make(map[string]int),
	}
}

// ---- users ----

func (s *Store) CreateUser(_ context.Context, u *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[u.ID]; ok {
		return store.ErrDuplicate
	}
	for _, existing := range s.users {
		if existing.Phone == u.Phone {
			return fmt.Errorf("phone %s: %w", u.Phone, store.ErrDuplicate)
		}
	}
	s.users[u.ID] = *u
	return nil
}

func (s *Store) GetUser(_ context.Context, id string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &u, nil
}

func (s *Store) GetUserByPhone(_ context.Context, phone string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, u := range s.users {
		if u.Phone == phone {
			return &u, nil
		}
	}
	return nil, store.ErrNotFound
}

func (s *Store) GetUsers(_ context.Context, ids []string) (map[string]models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]models.User, len(ids))
	for _, id := range ids {
		if u, ok := s.users[id]; ok {
			out[id] = u
		}
	}
	return out, nil
}

func (s *Store) UpdateUser(_ context.Context, id string, fields map[string]any) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	if phone, ok := fields["phone"].(string); ok && phone != u.Phone {
		for otherID, other := range s.users {
			if otherID != id && other.Phone == phone {
				return nil, fmt.Errorf("phone %s: %w", phone, store.ErrDuplicate)
			}
		}
	}
	for k, v := range fields {
		str, _ := v.(string)
		switch k {
		case "firstName":
			u.FirstName = str
		case "lastName":
			u.LastName = str
		case "phone":
			u.Phone = str
		case "email":
			u.Email = str
		case "location":
			u.Location = str
		case "about":
			u.About = str
		case "title":
			u.Title = str
		case "status":
			u.Status = str
		case "companyName":
			u.CompanyName = str
		case "businessType":
			u.BusinessType = str
		case "website":
			u.Website = str
		case "employeeCount":
			u.EmployeeCount = str
		case "workingHours":
			u.WorkingHours = str
		case "updatedAt":
			if t, ok := v.(time.Time); ok {
				u.UpdatedAt = t
			}
		default:
			return nil, fmt.Errorf("memstore: unsupported user field %q", k)
		}
	}
	s.users[id] = u
	return &u, nil
}

// AddInboxItem appends to the legacy embedded inbox. Used to seed fixtures.
func (s *Store) AddInboxItem(userID string, item models.InboxItem) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u := s.users[userID]
	u.Inbox = append(u.Inbox, item)
	s.users[userID] = u
}

// ---- jobs ----

func (s *Store) CreateJob(_ context.Context, j *models.JobListing) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.jobs[j.ID]; ok {
		return store.ErrDuplicate
	}
	s.jobs[j.ID] = *j
	return nil
}

func (s *Store) GetJob(_ context.Context, id string) (*models.JobListing, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	j, ok := s.jobs[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &j, nil
}

func (s *Store) GetJobs(_ context.Context, ids []string) (map[string]models.JobListing, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]models.JobListing, len(ids))
	for _, id := range ids {
		if j, ok := s.jobs[id]; ok {
			out[id] = j
		}
	}
	return out, nil
}

func (s *Store) ListJobs(_ context.Context, f store.JobFilter) ([]models.JobListing, int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var matched []models.JobListing
	for _, j := range s.jobs {
		if jobMatches(j, f) {
			matched = append(matched, j)
		}
	}
	sort.Slice(matched, func(a, b int) bool {
		if matched[a].PostedDate.Equal(matched[b].PostedDate) {
			return matched[a].ID > matched[b].ID
		}
		return matched[a].PostedDate.After(matched[b].PostedDate)
	})

	total := int64(len(matched))
	start := min(max(f.Skip, 0), total)
	end := total
	if f.Limit > 0 {
		end = min(start+f.Limit, total)
	}
	return matched[start:end], total, nil
}

func jobMatches(j models.JobListing, f store.JobFilter) bool {
	if f.OwnerID != "" && j.UserID != f.OwnerID {
		return false
	}
	if f.Location != "" && !containsFold(j.Location, f.Location) {
		return false
	}
	if f.Type != "" && !strings.EqualFold(j.Type, f.Type) {
		return false
	}
	if f.MinRate != nil && j.Rate < *f.MinRate {
		return false
	}
	if f.MaxRate != nil && j.Rate > *f.MaxRate {
		return false
	}
	if f.Skill != "" {
		found := false
		for _, sk := range j.Skills {
			if strings.EqualFold(sk, f.Skill) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if f.Query != "" {
		fields := append([]string{j.Title, j.Company, j.Description, j.Position}, j.Skills...)
		for _, v := range fields {
			if containsFold(v, f.Query) {
				return true
			}
		}
		return false
	}
	return true
}

func containsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}

func (s *Store) UpdateJob(_ context.Context, id, ownerID string, fields map[string]any) (*models.JobListing, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	j, ok := s.jobs[id]
	if !ok || j.UserID != ownerID {
		return nil, store.ErrNotFound
	}
	for k, v := range fields {
		switch k {
		case "title":
			j.Title, _ = v.(string)
		case "company":
			j.Company, _ = v.(string)
		case "description":
			j.Description, _ = v.(string)
		case "position":
			j.Position, _ = v.(string)
		case "location":
			j.Location, _ = v.(string)
		case "duration":
			j.Duration, _ = v.(string)
		case "salary":
			j.Salary, _ = v.(string)
		case "experience":
			j.Experience, _ = v.(string)
		case "type":
			j.Type, _ = v.(string)
		case "rate":
			j.Rate, _ = v.(float64)
		case "starRating":
			j.StarRating, _ = v.(float64)
		case "skills":
			j.Skills, _ = v.([]string)
		case "updatedAt":
			j.UpdatedAt, _ = v.(time.Time)
		default:
			return nil, fmt.Errorf("memstore: unsupported job field %q", k)
		}
	}
	s.jobs[id] = j
	return &j, nil
}

func (s *Store) DeleteJob(_ context.Context, id, ownerID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	j, ok := s.jobs[id]
	if !ok || j.UserID != ownerID {
		return store.ErrNotFound
	}
	delete(s.jobs, id)
	return nil
}

// ---- applications ----

func (s *Store) CreateApplication(_ context.Context, a *models.Application) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.applications[a.ID]; ok {
		return store.ErrDuplicate
	}
	s.applications[a.ID] = *a
	return nil
}

func (s *Store) GetApplication(_ context.Context, id string) (*models.Application, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.applications[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &a, nil
}

func (s *Store) listApplications(keep func(models.Application) bool) []models.Application {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []models.Application{}
	for _, a := range s.applications {
		if keep(a) {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].AppliedDate.Equal(out[j].AppliedDate) {
			return out[i].ID < out[j].ID
		}
		return out[i].AppliedDate.Before(out[j].AppliedDate)
	})
	return out
}

func (s *Store) ListApplicationsByJob(_ context.Context, jobID string) ([]models.Application, error) {
	return s.listApplications(func(a models.Application) bool { return a.JobID == jobID }), nil
}

func (s *Store) ListApplicationsByApplicant(_ context.Context, applicantID string) ([]models.Application, error) {
	return s.listApplications(func(a models.Application) bool { return a.ApplicantID == applicantID }), nil
}

func (s *Store) ListApplicationsByEmployer(_ context.Context, employerID string) ([]models.Application, error) {
	return s.listApplications(func(a models.Application) bool { return a.EmployerID == employerID }), nil
}

func (s *Store) GetApplicationsByIDs(_ context.Context, ids []string) (map[string]models.Application, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]models.Application, len(ids))
	for _, id := range ids {
		if a, ok := s.applications[id]; ok {
			out[id] = a
		}
	}
	return out, nil
}

func (s *Store) UpdateApplicationStatus(_ context.Context, id string, from, to models.ApplicationStatus, at time.Time) (*models.Application, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.applications[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	if a.Status != from {
		return nil, store.ErrConflict
	}
	a.Status = to
	a.UpdatedAt = at
	s.applications[id] = a
	return &a, nil
}

func (s *Store) DeleteApplication(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.applications[id]; !ok {
		return store.ErrNotFound
	}
	delete(s.applications, id)
	return nil
}

func (s *Store) DeleteApplicationsByJob(_ context.Context, jobID string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for id, a := range s.applications {
		if a.JobID == jobID {
			delete(s.applications, id)
			n++
		}
	}
	return n, nil
}

// ---- messages ----

func (s *Store) InsertMessages(_ context.Context, msgs ...*models.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, m := range msgs {
		if _, ok := s.messages[m.ID]; ok {
			return store.ErrDuplicate
		}
	}
	for _, m := range msgs {
		s.seq++
		s.messages[m.ID] = *m
		s.msgSeq[m.ID] = s.seq
	}
	return nil
}

func (s *Store) ListMessages(_ context.Context, f store.MessageFilter) ([]models.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []models.Message{}
	for _, m := range s.messages {
		if f.ReceiverID != "" && m.ReceiverID != f.ReceiverID {
			continue
		}
		if f.SenderID != "" && m.SenderID != f.SenderID {
			continue
		}
		if f.UnreadOnly && m.IsRead {
			continue
		}
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return s.msgSeq[out[i].ID] > s.msgSeq[out[j].ID]
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (s *Store) MarkRead(_ context.Context, id, receiverID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.messages[id]
	if !ok || m.ReceiverID != receiverID {
		return store.ErrNotFound
	}
	m.IsRead = true
	s.messages[id] = m
	return nil
}

func (s *Store) CountUnread(_ context.Context, receiverID string) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var n int64
	for _, m := range s.messages {
		if m.ReceiverID == receiverID && !m.IsRead {
			n++
		}
	}
	return n, nil
}
