// Package applications handles applying to jobs and moving applications
// through their status workflow, notifying the other party on each step.
package applications

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/julienschmidt/httprouter"
	"github.com/rs/zerolog/log"

	"jobconnect/globals"
	"jobconnect/models"
	"jobconnect/mq"
	"jobconnect/rdx"
	"jobconnect/store"
	"jobconnect/utils"
)

type Handler struct {
	Store  store.Store
	Events mq.Emitter
	// Names is the display-name cache; may be nil.
	Names rdx.KV
}

func (h *Handler) nameOf(ctx context.Context, userID, fallback string) string {
	name, err := rdx.NameOf(ctx, h.Names, h.Store, userID)
	if err != nil || name == "" {
		return fallback
	}
	return name
}

// Apply handles POST /api/jobs/:id/apply.
func (h *Handler) Apply(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	var in struct {
		CoverLetter string `json:"coverLetter"`
	}
	if err := utils.DecodeJSON(r, &in); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), store.Timeout)
	defer cancel()

	callerID := utils.GetUserIDFromRequest(r)
	job, err := h.Store.GetJob(ctx, ps.ByName("id"))
	if errors.Is(err, store.ErrNotFound) {
		utils.RespondWithError(w, http.StatusNotFound, "Job not found")
		return
	}
	if err != nil {
		utils.RespondServerError(w, "Failed to load job", err)
		return
	}
	if job.UserID == callerID {
		utils.RespondWithError(w, http.StatusBadRequest, "You cannot apply to your own job")
		return
	}
	if utils.GetRoleFromRequest(r) != globals.RoleEmployee {
		utils.RespondWithError(w, http.StatusForbidden, "Only employees can apply to jobs")
		return
	}

	now := time.Now().UTC()
	app := &models.Application{
		ID:          models.ApplicationID(job.ID, callerID),
		JobID:       job.ID,
		ApplicantID: callerID,
		EmployerID:  job.UserID,
		Status:      models.StatusPending,
		CoverLetter: strings.TrimSpace(in.CoverLetter),
		AppliedDate: now,
		UpdatedAt:   now,
	}
	if err := h.Store.CreateApplication(ctx, app); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			utils.RespondWithError(w, http.StatusBadRequest, "You have already applied to this job")
			return
		}
		log.Error().Err(err).Str("jobId", job.ID).Msg("create application")
		utils.RespondServerError(w, "Failed to apply for job", err)
		return
	}

	applicantName := h.nameOf(ctx, callerID, "An applicant")
	employerName := job.Company
	if employerName == "" {
		employerName = h.nameOf(ctx, job.UserID, "the employer")
	}

	content := fmt.Sprintf("%s has applied for %s.", applicantName, job.Title)
	if app.CoverLetter != "" {
		content += "\n\n" + app.CoverLetter
	}
	toEmployer := &models.Message{
		ID:            utils.GetUUID(),
		JobID:         job.ID,
		ApplicationID: app.ID,
		SenderID:      callerID,
		ReceiverID:    job.UserID,
		Title:         "New application: " + job.Title,
		Content:       content,
		Type:          models.MessageApplication,
		CreatedAt:     now,
	}
	toApplicant := &models.Message{
		ID:            utils.GetUUID(),
		JobID:         job.ID,
		ApplicationID: app.ID,
		SenderID:      job.UserID,
		ReceiverID:    callerID,
		Title:         "Application submitted",
		Content:       fmt.Sprintf("Your application for %s at %s has been received.", job.Title, employerName),
		Type:          models.MessageConfirmation,
		CreatedAt:     now,
	}

	if err := h.Store.InsertMessages(ctx, toEmployer, toApplicant); err != nil {
		log.Error().Err(err).Str("applicationId", app.ID).Msg("apply: insert messages, removing application")
		undoCtx, undo := context.WithTimeout(context.WithoutCancel(ctx), store.Timeout)
		defer undo()
		if derr := h.Store.DeleteApplication(undoCtx, app.ID); derr != nil {
			log.Error().Err(derr).Str("applicationId", app.ID).Msg("apply: remove application")
		}
		utils.RespondServerError(w, "Failed to apply for job", err)
		return
	}
	mq.EmitMessages(ctx, h.Events, toEmployer, toApplicant)

	log.Info().Str("applicationId", app.ID).Msg("application created")
	utils.RespondWithJSON(w, http.StatusOK, utils.M{
		"message":     "Application submitted successfully",
		"application": app,
	})
}

// UpdateStatus handles PATCH /api/applications/:id/status.
func (h *Handler) UpdateStatus(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	h.updateStatus(w, r, ps.ByName("id"))
}

// UpdateApplicantStatus handles PATCH /api/jobs/:id/applicants/:applicantId/status.
func (h *Handler) UpdateApplicantStatus(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	h.updateStatus(w, r, models.ApplicationID(ps.ByName("id"), ps.ByName("applicantId")))
}

func (h *Handler) updateStatus(w http.ResponseWriter, r *http.Request, appID string) {
	var in struct {
		Status models.ApplicationStatus `json:"status"`
	}
	if err := utils.DecodeJSON(r, &in); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}
	if in.Status == "" {
		utils.RespondWithMissing(w, []string{"status"})
		return
	}
	if !in.Status.Valid() {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid status value")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), store.Timeout)
	defer cancel()

	if _, _, ok := models.SplitApplicationID(appID); !ok {
		utils.RespondWithError(w, http.StatusNotFound, "Application not found")
		return
	}
	app, err := h.Store.GetApplication(ctx, appID)
	if errors.Is(err, store.ErrNotFound) {
		utils.RespondWithError(w, http.StatusNotFound, "Application not found")
		return
	}
	if err != nil {
		utils.RespondServerError(w, "Failed to load application", err)
		return
	}

	callerID := utils.GetUserIDFromRequest(r)
	var party Party
	switch callerID {
	case app.EmployerID:
		party = Employer
	case app.ApplicantID:
		party = Applicant
	default:
		utils.RespondWithError(w, http.StatusForbidden, "You are not a party to this application")
		return
	}

	from := app.Status
	if !CanTransition(party, from, in.Status) {
		utils.RespondWithJSON(w, http.StatusConflict, utils.M{
			"error":   fmt.Sprintf("Cannot change status from %s to %s", from, in.Status),
			"from":    from,
			"to":      in.Status,
			"allowed": Allowed(party, from),
		})
		return
	}

	now := time.Now().UTC()
	if in.Status != from {
		app, err = h.Store.UpdateApplicationStatus(ctx, appID, from, in.Status, now)
		switch {
		case errors.Is(err, store.ErrConflict):
			utils.RespondWithJSON(w, http.StatusConflict, utils.M{
				"error": "Application status was changed by another request",
				"from":  from,
				"to":    in.Status,
			})
			return
		case errors.Is(err, store.ErrNotFound):
			utils.RespondWithError(w, http.StatusNotFound, "Application not found")
			return
		case err != nil:
			utils.RespondServerError(w, "Failed to update status", err)
			return
		}
	}

	jobTitle := "a job"
	if job, err := h.Store.GetJob(ctx, app.JobID); err == nil {
		jobTitle = job.Title
	}

	sender, receiver := app.EmployerID, app.ApplicantID
	if party == Applicant {
		sender, receiver = app.ApplicantID, app.EmployerID
	}
	title, content := statusNotice(in.Status, jobTitle, h.nameOf(ctx, sender, "Someone"))
	msg := &models.Message{
		ID:            utils.GetUUID(),
		JobID:         app.JobID,
		ApplicationID: app.ID,
		SenderID:      sender,
		ReceiverID:    receiver,
		Title:         title,
		Content:       content,
		Type:          models.MessageNotification,
		CreatedAt:     now,
	}
	if err := h.Store.InsertMessages(ctx, msg); err != nil {
		log.Error().Err(err).Str("applicationId", app.ID).Str("status", string(in.Status)).Msg("status notification")
		utils.RespondServerError(w, "Status updated but notification failed", err)
		return
	}
	mq.EmitMessages(ctx, h.Events, msg)

	log.Info().
		Str("applicationId", app.ID).
		Str("from", string(from)).
		Str("to", string(in.Status)).
		Str("by", party.String()).
		Msg("application status")
	utils.RespondWithJSON(w, http.StatusOK, utils.M{
		"application": app,
		"message":     msg,
	})
}

func statusNotice(s models.ApplicationStatus, jobTitle, actor string) (title, content string) {
	switch s {
	case models.StatusViewed:
		return "Application viewed", fmt.Sprintf("%s viewed your application for %s.", actor, jobTitle)
	case models.StatusInterviewed:
		return "Interview stage", fmt.Sprintf("%s moved your application for %s to the interview stage.", actor, jobTitle)
	case models.StatusOffered:
		return "Job offer", fmt.Sprintf("%s has offered you the %s position.", actor, jobTitle)
	case models.StatusRejected:
		return "Application update", fmt.Sprintf("%s will not be moving forward with your application for %s.", actor, jobTitle)
	case models.StatusAccepted:
		return "Offer accepted", fmt.Sprintf("%s accepted your offer for %s.", actor, jobTitle)
	case models.StatusWithdrawn:
		return "Application withdrawn", fmt.Sprintf("%s withdrew their application for %s.", actor, jobTitle)
	}
	return "Application update", fmt.Sprintf("Your application for %s is now %s.", jobTitle, s)
}
