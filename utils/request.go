package utils

import (
	"math"
	"net/http"
	"strconv"

	"github.com/google/uuid"

	"jobconnect/globals"
)

func GetUUID() string {
	return uuid.New().String()
}

func GetUserIDFromRequest(r *http.Request) string {
	id, _ := r.Context().Value(globals.UserIDKey).(string)
	return id
}

func GetRoleFromRequest(r *http.Request) string {
	role, _ := r.Context().Value(globals.RoleKey).(string)
	return role
}

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
	// (MaxPage-1)*MaxPageSize stays well inside int64.
	MaxPage = math.MaxInt32
)

// ParsePagination reads ?page and ?limit. page is clamped to [1, MaxPage],
// limit to [1, MaxPageSize].
func ParsePagination(r *http.Request) (page, limit int) {
	q := r.URL.Query()

	page, _ = strconv.Atoi(q.Get("page"))
	if page < 1 {
		page = 1
	}
	if page > MaxPage {
		page = MaxPage
	}
	limit, _ = strconv.Atoi(q.Get("limit"))
	if limit < 1 {
		limit = DefaultPageSize
	}
	if limit > MaxPageSize {
		limit = MaxPageSize
	}
	return page, limit
}

// ParseFloatParam returns nil when the parameter is absent or not a number.
func ParseFloatParam(r *http.Request, name string) *float64 {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil
	}
	return &v
}
