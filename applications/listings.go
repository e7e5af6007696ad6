package applications

import (
	"context"
	"net/http"

	"github.com/julienschmidt/httprouter"

	"jobconnect/models"
	"jobconnect/store"
	"jobconnect/utils"
)

func (h *Handler) populate(ctx context.Context, apps []models.Application) ([]models.ApplicationView, error) {
	var userIDs, jobIDs []string
	for _, a := range apps {
		userIDs = append(userIDs, a.ApplicantID)
		jobIDs = append(jobIDs, a.JobID)
	}
	users, err := h.Store.GetUsers(ctx, userIDs)
	if err != nil {
		return nil, err
	}
	jobs, err := h.Store.GetJobs(ctx, jobIDs)
	if err != nil {
		return nil, err
	}

	out := make([]models.ApplicationView, 0, len(apps))
	for _, a := range apps {
		v := models.ApplicationView{Application: a}
		if u, ok := users[a.ApplicantID]; ok {
			sum := u.Summary()
			v.Applicant = &sum
		}
		if j, ok := jobs[a.JobID]; ok {
			sum := j.Summary()
			v.Job = &sum
		}
		out = append(out, v)
	}
	return out, nil
}

func (h *Handler) respondList(w http.ResponseWriter, r *http.Request, list func(context.Context, string) ([]models.Application, error)) {
	ctx, cancel := context.WithTimeout(r.Context(), store.Timeout)
	defer cancel()

	apps, err := list(ctx, utils.GetUserIDFromRequest(r))
	if err != nil {
		utils.RespondServerError(w, "Failed to fetch applications", err)
		return
	}
	views, err := h.populate(ctx, apps)
	if err != nil {
		utils.RespondServerError(w, "Failed to fetch applications", err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, utils.M{
		"success": true,
		"count":   len(views),
		"data":    views,
	})
}

// Mine handles GET /api/applications/mine.
func (h *Handler) Mine(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	h.respondList(w, r, h.Store.ListApplicationsByApplicant)
}

// ForEmployer handles GET /api/applications/employer. Store errors surface as 500.
func (h *Handler) ForEmployer(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	h.respondList(w, r, h.Store.ListApplicationsByEmployer)
}
