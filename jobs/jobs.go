package jobs

import (
	"context"
	"errors"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/julienschmidt/httprouter"
	"github.com/rs/zerolog/log"

	"jobconnect/models"
	"jobconnect/store"
	"jobconnect/utils"
)

type Handler struct {
	Store store.Store
	// PublicBaseURL is the client origin used in QR codes, e.g. https://jobs.example.com
	PublicBaseURL string
}

// GetJobs handles GET /api/jobs.
func (h *Handler) GetJobs(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	q := r.URL.Query()
	page, limit := utils.ParsePagination(r)

	filter := store.JobFilter{
		Query:    strings.TrimSpace(q.Get("q")),
		Location: strings.TrimSpace(q.Get("location")),
		Type:     strings.TrimSpace(q.Get("type")),
		Skill:    strings.TrimSpace(q.Get("skill")),
		OwnerID:  strings.TrimSpace(q.Get("employer")),
		MinRate:  utils.ParseFloatParam(r, "minRate"),
		MaxRate:  utils.ParseFloatParam(r, "maxRate"),
		Skip:     int64(page-1) * int64(limit),
		Limit:    int64(limit),
	}

	ctx, cancel := context.WithTimeout(r.Context(), store.Timeout)
	defer cancel()

	listings, total, err := h.Store.ListJobs(ctx, filter)
	if err != nil {
		log.Error().Err(err).Msg("list jobs")
		utils.RespondServerError(w, "Failed to fetch jobs", err)
		return
	}
	if listings == nil {
		listings = []models.JobListing{}
	}
	utils.RespondWithJSON(w, http.StatusOK, utils.M{
		"data":  listings,
		"total": total,
		"page":  page,
		"limit": limit,
	})
}

// GetJob handles GET /api/jobs/:id.
func (h *Handler) GetJob(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), store.Timeout)
	defer cancel()

	job, ok := h.loadJob(ctx, w, ps.ByName("id"))
	if !ok {
		return
	}
	applicants, err := store.ApplicantIDs(ctx, h.Store, job.ID)
	if err != nil {
		utils.RespondServerError(w, "Failed to load applicants", err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, models.JobResponse{
		JobListing:     *job,
		Applicants:     applicants,
		ApplicantCount: len(applicants),
		HasApplied:     slices.Contains(applicants, utils.GetUserIDFromRequest(r)),
	})
}

func (h *Handler) loadJob(ctx context.Context, w http.ResponseWriter, id string) (*models.JobListing, bool) {
	job, err := h.Store.GetJob(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		utils.RespondWithError(w, http.StatusNotFound, "Job not found")
		return nil, false
	}
	if err != nil {
		utils.RespondServerError(w, "Failed to load job", err)
		return nil, false
	}
	return job, true
}

const defaultJobType = "Full Time"

type jobInput struct {
	Title       string   `json:"title"`
	Company     string   `json:"company"`
	Description string   `json:"description"`
	Position    string   `json:"position"`
	Location    string   `json:"location"`
	Duration    string   `json:"duration"`
	Rate        *float64 `json:"rate"`
	Salary      string   `json:"salary"`
	Experience  string   `json:"experience"`
	Skills      []string `json:"skills"`
	Type        string   `json:"type"`
	StarRating  float64  `json:"starRating"`
}

func (in jobInput) missing() []string {
	var missing []string
	if strings.TrimSpace(in.Title) == "" {
		missing = append(missing, "title")
	}
	if strings.TrimSpace(in.Position) == "" {
		missing = append(missing, "position")
	}
	if strings.TrimSpace(in.Location) == "" {
		missing = append(missing, "location")
	}
	if in.Rate == nil {
		missing = append(missing, "rate")
	}
	return missing
}

// CreateJob handles POST /api/jobs. Employer role is checked by the router.
func (h *Handler) CreateJob(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var in jobInput
	if err := utils.DecodeJSON(r, &in); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}
	if missing := in.missing(); len(missing) > 0 {
		utils.RespondWithMissing(w, missing)
		return
	}
	if *in.Rate < 0 {
		utils.RespondWithError(w, http.StatusBadRequest, "Rate must not be negative")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), store.Timeout)
	defer cancel()

	ownerID := utils.GetUserIDFromRequest(r)
	company := strings.TrimSpace(in.Company)
	if company == "" {
		if owner, err := h.Store.GetUser(ctx, ownerID); err == nil {
			company = owner.CompanyName
		}
	}

	jobType := strings.TrimSpace(in.Type)
	if jobType == "" {
		jobType = defaultJobType
	}

	now := time.Now().UTC()
	job := &models.JobListing{
		ID:          utils.GetUUID(),
		UserID:      ownerID,
		Title:       strings.TrimSpace(in.Title),
		Company:     company,
		Description: in.Description,
		StarRating:  in.StarRating,
		Position:    strings.TrimSpace(in.Position),
		Location:    strings.TrimSpace(in.Location),
		Duration:    in.Duration,
		Rate:        *in.Rate,
		Salary:      in.Salary,
		Experience:  in.Experience,
		Skills:      cleanSkills(in.Skills),
		Type:        jobType,
		PostedDate:  now,
		CreatedAt:   now,
	}
	if err := h.Store.CreateJob(ctx, job); err != nil {
		log.Error().Err(err).Msg("create job")
		utils.RespondServerError(w, "Failed to create job", err)
		return
	}
	log.Info().Str("jobId", job.ID).Str("userId", ownerID).Msg("job posted")
	utils.RespondWithJSON(w, http.StatusCreated, job)
}

func cleanSkills(in []string) []string {
	out := []string{}
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

var stringJobFields = []string{"title", "company", "description", "position", "location", "duration", "salary", "experience", "type"}

// jobUpdate applies the allow-list to a PATCH body.
func jobUpdate(body map[string]any) (map[string]any, error) {
	update := map[string]any{}
	for _, key := range stringJobFields {
		if v, ok := body[key].(string); ok {
			update[key] = v
		}
	}
	for _, key := range []string{"title", "position", "location"} {
		if v, ok := update[key].(string); ok && strings.TrimSpace(v) == "" {
			return nil, errors.New(key + " cannot be empty")
		}
	}
	if v, ok := body["rate"].(float64); ok {
		if v < 0 {
			return nil, errors.New("rate must not be negative")
		}
		update["rate"] = v
	}
	if v, ok := body["starRating"].(float64); ok {
		update["starRating"] = v
	}
	if raw, ok := body["skills"].([]any); ok {
		skills := make([]string, 0, len(raw))
		for _, s := range raw {
			if str, ok := s.(string); ok {
				skills = append(skills, str)
			}
		}
		update["skills"] = cleanSkills(skills)
	}
	return update, nil
}

// UpdateJob handles PATCH /api/jobs/:id. Non-owners see 404.
func (h *Handler) UpdateJob(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	var body map[string]any
	if err := utils.DecodeJSON(r, &body); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}
	update, err := jobUpdate(body)
	if err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, err.Error())
		return
	}
	if len(update) == 0 {
		utils.RespondWithError(w, http.StatusBadRequest, "No valid fields to update")
		return
	}
	update["updatedAt"] = time.Now().UTC()

	ctx, cancel := context.WithTimeout(r.Context(), store.Timeout)
	defer cancel()

	job, err := h.Store.UpdateJob(ctx, ps.ByName("id"), utils.GetUserIDFromRequest(r), update)
	if errors.Is(err, store.ErrNotFound) {
		utils.RespondWithError(w, http.StatusNotFound, "Job not found or unauthorized")
		return
	}
	if err != nil {
		utils.RespondServerError(w, "Failed to update job", err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, job)
}

// DeleteJob handles DELETE /api/jobs/:id and drops the job's applications.
func (h *Handler) DeleteJob(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), store.Timeout)
	defer cancel()

	jobID := ps.ByName("id")
	err := h.Store.DeleteJob(ctx, jobID, utils.GetUserIDFromRequest(r))
	if errors.Is(err, store.ErrNotFound) {
		utils.RespondWithError(w, http.StatusNotFound, "Job not found or unauthorized")
		return
	}
	if err != nil {
		utils.RespondServerError(w, "Failed to delete job", err)
		return
	}

	removed, err := h.Store.DeleteApplicationsByJob(ctx, jobID)
	if err != nil {
		log.Error().Err(err).Str("jobId", jobID).Msg("delete applications of removed job")
		utils.RespondServerError(w, "Job deleted but its applications could not be removed", err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, utils.M{
		"message":             "Job deleted successfully",
		"removedApplications": removed,
	})
}

// GetEmployerJobs handles GET /api/employer/jobs.
func (h *Handler) GetEmployerJobs(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), store.Timeout)
	defer cancel()

	listings, total, err := h.Store.ListJobs(ctx, store.JobFilter{OwnerID: utils.GetUserIDFromRequest(r)})
	if err != nil {
		utils.RespondServerError(w, "Failed to fetch jobs", err)
		return
	}

	out := make([]models.JobResponse, 0, len(listings))
	for _, j := range listings {
		applicants, err := store.ApplicantIDs(ctx, h.Store, j.ID)
		if err != nil {
			utils.RespondServerError(w, "Failed to load applicants", err)
			return
		}
		out = append(out, models.JobResponse{JobListing: j, Applicants: applicants, ApplicantCount: len(applicants)})
	}
	utils.RespondWithJSON(w, http.StatusOK, utils.M{
		"data":  out,
		"total": total,
	})
}
