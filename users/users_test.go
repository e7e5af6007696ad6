package users

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/julienschmidt/httprouter"

	"jobconnect/middleware"
	"jobconnect/models"
	"jobconnect/rdx"
	"jobconnect/store/memstore"
)

type fixture struct {
	store  *memstore.Store
	auth   *middleware.Auth
	names  *rdx.MemoryKV
	router *httprouter.Router
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		store: memstore.New(),
		auth:  middleware.NewAuth([]byte("test-secret"), time.Hour),
		names: rdx.NewMemoryKV(),
	}
	h := &Handler{Store: f.store, Auth: f.auth, Names: f.names}
	f.router = httprouter.New()
	f.router.POST("/api/users", h.CreateUser)
	f.router.GET("/api/users", f.auth.Authenticate(h.GetMe))
	f.router.PATCH("/api/users/profile", f.auth.Authenticate(h.UpdateProfile))
	f.router.GET("/api/users/inbox", f.auth.Authenticate(h.GetInbox))
	f.router.GET("/api/users/applied", f.auth.Authenticate(h.GetApplied))
	f.router.GET("/api/profiles/:id", h.GetProfile)
	return f
}

func (f *fixture) seedUser(t *testing.T, u models.User) string {
	t.Helper()
	if err := f.store.CreateUser(context.Background(), &u); err != nil {
		t.Fatal(err)
	}
	tok, err := f.auth.IssueToken(u.ID, u.Role, u.Phone)
	if err != nil {
		t.Fatal(err)
	}
	return tok
}

func (f *fixture) do(method, path, token string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rr := httptest.NewRecorder()
	f.router.ServeHTTP(rr, req)
	return rr
}

func decode(t *testing.T, rr *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &out); err != nil {
		t.Fatalf("bad json %q: %v", rr.Body.String(), err)
	}
	return out
}

func TestCreateUser(t *testing.T) {
	f := newFixture(t)

	rr := f.do("POST", "/api/users", "", map[string]string{
		"firstName":   "Asha",
		"lastName":    "Menon",
		"phone":       "9000000001",
		"role":        "employer",
		"companyName": "Menon Foods",
		"title":       "ignored for employers",
	})
	if rr.Code != http.StatusCreated {
		t.Fatalf("status %d: %s", rr.Code, rr.Body.String())
	}
	out := decode(t, rr)
	tok, _ := out["token"].(string)
	claims, err := middleware.ParseToken(tok, f.auth.Secret)
	if err != nil {
		t.Fatalf("token: %v", err)
	}
	if claims.Role != "employer" || claims.Phone != "9000000001" {
		t.Fatalf("claims %+v", claims)
	}
	user := out["user"].(map[string]any)
	if user["companyName"] != "Menon Foods" || user["title"] != nil {
		t.Fatalf("role fields not applied: %v", user)
	}

	var cookie *http.Cookie
	for _, c := range rr.Result().Cookies() {
		if c.Name == "token" {
			cookie = c
		}
	}
	if cookie == nil || !cookie.HttpOnly || cookie.Value != tok {
		t.Fatalf("expected httpOnly token cookie, got %+v", cookie)
	}

	// same phone again
	rr = f.do("POST", "/api/users", "", map[string]string{
		"firstName": "Other", "lastName": "Person", "phone": "9000000001",
	})
	if rr.Code != http.StatusConflict {
		t.Fatalf("duplicate phone: status %d", rr.Code)
	}
}

func TestCreateUserValidation(t *testing.T) {
	f := newFixture(t)

	rr := f.do("POST", "/api/users", "", map[string]string{"firstName": "Asha"})
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status %d", rr.Code)
	}
	missing, _ := decode(t, rr)["missing"].([]any)
	if len(missing) != 2 || missing[0] != "lastName" || missing[1] != "phone" {
		t.Fatalf("missing = %v", missing)
	}

	rr = f.do("POST", "/api/users", "", map[string]string{
		"firstName": "A", "lastName": "B", "phone": "1", "role": "admin",
	})
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("bad role: status %d", rr.Code)
	}

	rr = f.do("POST", "/api/users", "", map[string]string{
		"firstName": "A", "lastName": "B", "phone": "2",
	})
	if rr.Code != http.StatusCreated {
		t.Fatalf("default role: status %d", rr.Code)
	}
	if role := decode(t, rr)["user"].(map[string]any)["role"]; role != "employee" {
		t.Fatalf("default role = %v", role)
	}
}

func TestGetMeIncludesApplied(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	tok := f.seedUser(t, models.User{ID: "u1", FirstName: "Ravi", Phone: "1", Role: "employee"})

	f.store.CreateJob(ctx, &models.JobListing{ID: "j1", UserID: "e1", Title: "Cook"})
	f.store.CreateApplication(ctx, &models.Application{
		ID: models.ApplicationID("j1", "u1"), JobID: "j1", ApplicantID: "u1", EmployerID: "e1",
		Status: models.StatusPending, AppliedDate: time.Now(),
	})

	rr := f.do("GET", "/api/users", tok, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("status %d", rr.Code)
	}
	out := decode(t, rr)
	applied := out["applied"].([]any)
	if out["id"] != "u1" || len(applied) != 1 {
		t.Fatalf("unexpected profile %v", out)
	}
	entry := applied[0].(map[string]any)
	if entry["status"] != "pending" || entry["job"].(map[string]any)["title"] != "Cook" {
		t.Fatalf("entry %v", entry)
	}

	if rr := f.do("GET", "/api/users", "", nil); rr.Code != http.StatusUnauthorized {
		t.Fatalf("no token: status %d", rr.Code)
	}
}

func TestUpdateProfileAllowList(t *testing.T) {
	f := newFixture(t)
	tok := f.seedUser(t, models.User{ID: "u1", FirstName: "Ravi", Phone: "1", Role: "employee"})
	ctx := context.Background()
	rdx.CacheName(ctx, f.names, "u1", "Ravi")

	rr := f.do("PATCH", "/api/users/profile", tok, map[string]any{
		"title":       "Line cook",
		"companyName": "not for employees",
		"role":        "employer",
	})
	if rr.Code != http.StatusOK {
		t.Fatalf("status %d: %s", rr.Code, rr.Body.String())
	}
	u, _ := f.store.GetUser(ctx, "u1")
	if u.Title != "Line cook" || u.CompanyName != "" || u.Role != "employee" {
		t.Fatalf("allow-list not applied: %+v", u)
	}
	if rdx.CachedName(ctx, f.names, "u1") != "" {
		t.Fatal("expected cached name to be dropped")
	}

	rr = f.do("PATCH", "/api/users/profile", tok, map[string]any{"role": "employer"})
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("nothing applicable: status %d", rr.Code)
	}
}

func TestLegacyInboxNewestFirst(t *testing.T) {
	f := newFixture(t)
	tok := f.seedUser(t, models.User{ID: "u1", FirstName: "Ravi", Phone: "1", Role: "employee"})
	base := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	f.store.AddInboxItem("u1", models.InboxItem{Subject: "old", Timestamp: base})
	f.store.AddInboxItem("u1", models.InboxItem{Subject: "new", Timestamp: base.Add(time.Hour)})

	rr := f.do("GET", "/api/users/inbox", tok, nil)
	out := decode(t, rr)
	data := out["data"].([]any)
	if len(data) != 2 || data[0].(map[string]any)["subject"] != "new" {
		t.Fatalf("inbox %v", data)
	}
}

func TestPublicProfileHidesContact(t *testing.T) {
	f := newFixture(t)
	f.seedUser(t, models.User{ID: "e1", FirstName: "Asha", Phone: "555", Email: "a@x.io", Role: "employer"})

	rr := f.do("GET", "/api/profiles/e1", "", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("status %d", rr.Code)
	}
	out := decode(t, rr)
	if out["phone"] != nil || out["email"] != nil || out["firstName"] != "Asha" {
		t.Fatalf("profile %v", out)
	}
	if rr := f.do("GET", "/api/profiles/nope", "", nil); rr.Code != http.StatusNotFound {
		t.Fatalf("unknown user: status %d", rr.Code)
	}
}
