package store

import (
	"context"
	"time"

	"jobconnect/models"
)

// Timeout bounds every store call made on behalf of a request.
const Timeout = 5 * time.Second

// Applied derives a user's applied list from their applications.
func Applied(ctx context.Context, s Store, userID string) ([]models.AppliedEntry, error) {
	apps, err := s.ListApplicationsByApplicant(ctx, userID)
	if err != nil {
		return nil, err
	}
	jobIDs := make([]string, 0, len(apps))
	for _, a := range apps {
		jobIDs = append(jobIDs, a.JobID)
	}
	jobs, err := s.GetJobs(ctx, jobIDs)
	if err != nil {
		return nil, err
	}

	out := make([]models.AppliedEntry, 0, len(apps))
	for _, a := range apps {
		e := models.AppliedEntry{
			ApplicationID: a.ID,
			JobID:         a.JobID,
			Status:        a.Status,
			AppliedDate:   a.AppliedDate,
		}
		if j, ok := jobs[a.JobID]; ok {
			sum := j.Summary()
			e.Job = &sum
		}
		out = append(out, e)
	}
	return out, nil
}

// ApplicantIDs returns the applicant ids of a job in application order.
func ApplicantIDs(ctx context.Context, s ApplicationStore, jobID string) ([]string, error) {
	apps, err := s.ListApplicationsByJob(ctx, jobID)
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(apps))
	for _, a := range apps {
		ids = append(ids, a.ApplicantID)
	}
	return ids, nil
}

// PopulateMessages attaches sender, receiver, job and the live application status.
func PopulateMessages(ctx context.Context, s Store, msgs []models.Message) ([]models.MessageView, error) {
	var userIDs, jobIDs, appIDs []string
	for _, m := range msgs {
		userIDs = append(userIDs, m.SenderID, m.ReceiverID)
		if m.JobID != "" {
			jobIDs = append(jobIDs, m.JobID)
		}
		if m.ApplicationID != "" {
			appIDs = append(appIDs, m.ApplicationID)
		}
	}

	users, err := s.GetUsers(ctx, dedupe(userIDs))
	if err != nil {
		return nil, err
	}
	jobs, err := s.GetJobs(ctx, dedupe(jobIDs))
	if err != nil {
		return nil, err
	}
	apps, err := s.GetApplicationsByIDs(ctx, dedupe(appIDs))
	if err != nil {
		return nil, err
	}

	out := make([]models.MessageView, 0, len(msgs))
	for _, m := range msgs {
		v := models.MessageView{Message: m}
		if u, ok := users[m.SenderID]; ok {
			sum := u.Summary()
			v.Sender = &sum
		}
		if u, ok := users[m.ReceiverID]; ok {
			sum := u.Summary()
			v.Receiver = &sum
		}
		if j, ok := jobs[m.JobID]; ok {
			sum := j.Summary()
			v.Job = &sum
		}
		if a, ok := apps[m.ApplicationID]; ok {
			v.ApplicationStatus = a.Status
		}
		out = append(out, v)
	}
	return out, nil
}

func dedupe(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	out := ids[:0:0]
	for _, id := range ids {
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}
