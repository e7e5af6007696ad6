package users

import (
	"context"
	"errors"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/julienschmidt/httprouter"
	"github.com/rs/zerolog/log"

	"jobconnect/globals"
	"jobconnect/middleware"
	"jobconnect/models"
	"jobconnect/rdx"
	"jobconnect/store"
	"jobconnect/utils"
)

type Handler struct {
	Store store.Store
	Auth  *middleware.Auth
	// Names is the display-name cache; may be nil.
	Names rdx.KV
}

type signupInput struct {
	FirstName     string `json:"firstName"`
	LastName      string `json:"lastName"`
	Phone         string `json:"phone"`
	Role          string `json:"role"`
	Title         string `json:"title"`
	Status        string `json:"status"`
	CompanyName   string `json:"companyName"`
	BusinessType  string `json:"businessType"`
	Website       string `json:"website"`
	EmployeeCount string `json:"employeeCount"`
	WorkingHours  string `json:"workingHours"`
	Email         string `json:"email"`
	Location      string `json:"location"`
	About         string `json:"about"`
}

func (in *signupInput) trim() {
	in.FirstName = strings.TrimSpace(in.FirstName)
	in.LastName = strings.TrimSpace(in.LastName)
	in.Phone = strings.TrimSpace(in.Phone)
	in.Role = strings.TrimSpace(in.Role)
}

func (in signupInput) missing() []string {
	var missing []string
	if in.FirstName == "" {
		missing = append(missing, "firstName")
	}
	if in.LastName == "" {
		missing = append(missing, "lastName")
	}
	if in.Phone == "" {
		missing = append(missing, "phone")
	}
	return missing
}

// CreateUser handles POST /api/users.
func (h *Handler) CreateUser(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var in signupInput
	if err := utils.DecodeJSON(r, &in); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}
	in.trim()
	if missing := in.missing(); len(missing) > 0 {
		utils.RespondWithMissing(w, missing)
		return
	}
	if in.Role == "" {
		in.Role = globals.RoleEmployee
	}
	if in.Role != globals.RoleEmployee && in.Role != globals.RoleEmployer {
		utils.RespondWithError(w, http.StatusBadRequest, "Role must be employee or employer")
		return
	}

	now := time.Now().UTC()
	user := &models.User{
		ID:        utils.GetUUID(),
		FirstName: in.FirstName,
		LastName:  in.LastName,
		Phone:     in.Phone,
		Role:      in.Role,
		Email:     strings.ToLower(strings.TrimSpace(in.Email)),
		Location:  in.Location,
		About:     in.About,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if in.Role == globals.RoleEmployee {
		user.Title = in.Title
		user.Status = in.Status
	} else {
		user.CompanyName = in.CompanyName
		user.BusinessType = in.BusinessType
		user.Website = in.Website
		user.EmployeeCount = in.EmployeeCount
		user.WorkingHours = in.WorkingHours
	}

	ctx, cancel := context.WithTimeout(r.Context(), store.Timeout)
	defer cancel()

	if err := h.Store.CreateUser(ctx, user); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			utils.RespondWithError(w, http.StatusConflict, "A user with this phone number already exists")
			return
		}
		log.Error().Err(err).Msg("create user")
		utils.RespondServerError(w, "Failed to create user", err)
		return
	}

	token, err := h.Auth.IssueToken(user.ID, user.Role, user.Phone)
	if err != nil {
		utils.RespondServerError(w, "Failed to generate token", err)
		return
	}
	setTokenCookie(w, r, token, h.Auth.TTL)

	log.Info().Str("userId", user.ID).Str("role", user.Role).Msg("user created")
	utils.RespondWithJSON(w, http.StatusCreated, utils.M{
		"user":    user,
		"token":   token,
		"message": "User created successfully",
	})
}

func setTokenCookie(w http.ResponseWriter, r *http.Request, token string, ttl time.Duration) {
	http.SetCookie(w, &http.Cookie{
		Name:     "token",
		Value:    token,
		Path:     "/",
		MaxAge:   int(ttl.Seconds()),
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteLaxMode,
	})
}

type profileResponse struct {
	*models.User
	Applied []models.AppliedEntry `json:"applied"`
}

// GetMe handles GET /api/users.
func (h *Handler) GetMe(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), store.Timeout)
	defer cancel()

	user, ok := h.loadCaller(ctx, w, r)
	if !ok {
		return
	}
	applied, err := store.Applied(ctx, h.Store, user.ID)
	if err != nil {
		utils.RespondServerError(w, "Failed to load applications", err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, profileResponse{User: user, Applied: applied})
}

func (h *Handler) loadCaller(ctx context.Context, w http.ResponseWriter, r *http.Request) (*models.User, bool) {
	user, err := h.Store.GetUser(ctx, utils.GetUserIDFromRequest(r))
	if errors.Is(err, store.ErrNotFound) {
		utils.RespondWithError(w, http.StatusNotFound, "User not found")
		return nil, false
	}
	if err != nil {
		utils.RespondServerError(w, "Failed to load user", err)
		return nil, false
	}
	return user, true
}

var (
	commonProfileFields   = []string{"firstName", "lastName", "email", "phone", "location", "about"}
	employeeProfileFields = []string{"title", "status"}
	employerProfileFields = []string{"companyName", "businessType", "website", "employeeCount", "workingHours"}
)

func allowedProfileFields(role string) []string {
	fields := append([]string{}, commonProfileFields...)
	switch role {
	case globals.RoleEmployee:
		fields = append(fields, employeeProfileFields...)
	case globals.RoleEmployer:
		fields = append(fields, employerProfileFields...)
	}
	return fields
}

// UpdateProfile handles PATCH /api/users/profile. Unknown keys are ignored.
func (h *Handler) UpdateProfile(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var body map[string]any
	if err := utils.DecodeJSON(r, &body); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), store.Timeout)
	defer cancel()

	user, ok := h.loadCaller(ctx, w, r)
	if !ok {
		return
	}

	update := map[string]any{}
	for _, key := range allowedProfileFields(user.Role) {
		v, ok := body[key].(string)
		if !ok {
			continue
		}
		v = strings.TrimSpace(v)
		if (key == "firstName" || key == "phone") && v == "" {
			continue
		}
		if key == "email" {
			v = strings.ToLower(v)
		}
		update[key] = v
	}
	if len(update) == 0 {
		utils.RespondWithError(w, http.StatusBadRequest, "No valid fields to update")
		return
	}
	update["updatedAt"] = time.Now().UTC()

	updated, err := h.Store.UpdateUser(ctx, user.ID, update)
	if errors.Is(err, store.ErrDuplicate) {
		utils.RespondWithError(w, http.StatusConflict, "A user with this phone number already exists")
		return
	}
	if err != nil {
		utils.RespondServerError(w, "Failed to update profile", err)
		return
	}

	if h.Names != nil {
		if err := rdx.ForgetName(ctx, h.Names, user.ID); err != nil {
			log.Warn().Err(err).Str("userId", user.ID).Msg("forget cached name")
		}
	}
	utils.RespondWithJSON(w, http.StatusOK, utils.M{"success": true, "user": updated})
}

// GetInbox handles GET /api/users/inbox, the embedded per-user inbox.
func (h *Handler) GetInbox(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), store.Timeout)
	defer cancel()

	user, ok := h.loadCaller(ctx, w, r)
	if !ok {
		return
	}
	inbox := append([]models.InboxItem{}, user.Inbox...)
	sort.SliceStable(inbox, func(i, j int) bool {
		return inbox[i].Timestamp.After(inbox[j].Timestamp)
	})
	utils.RespondWithJSON(w, http.StatusOK, utils.M{
		"success": true,
		"count":   len(inbox),
		"data":    inbox,
	})
}

// GetApplied handles GET /api/users/applied.
func (h *Handler) GetApplied(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), store.Timeout)
	defer cancel()

	applied, err := store.Applied(ctx, h.Store, utils.GetUserIDFromRequest(r))
	if err != nil {
		utils.RespondServerError(w, "Failed to load applications", err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, utils.M{
		"success": true,
		"count":   len(applied),
		"data":    applied,
	})
}

// GetProfile handles GET /api/profiles/:id.
func (h *Handler) GetProfile(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), store.Timeout)
	defer cancel()

	user, err := h.Store.GetUser(ctx, ps.ByName("id"))
	if errors.Is(err, store.ErrNotFound) {
		utils.RespondWithError(w, http.StatusNotFound, "User not found")
		return
	}
	if err != nil {
		utils.RespondServerError(w, "Failed to load user", err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, user.Public())
}
