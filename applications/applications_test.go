package applications

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/julienschmidt/httprouter"

	"jobconnect/middleware"
	"jobconnect/models"
	"jobconnect/mq"
	"jobconnect/rdx"
	"jobconnect/store"
	"jobconnect/store/memstore"
)

type fixture struct {
	mem    *memstore.Store
	auth   *middleware.Auth
	router *httprouter.Router

	mu     sync.Mutex
	events []mq.Event
}

func newFixture(t *testing.T, s store.Store) *fixture {
	t.Helper()
	f := &fixture{auth: middleware.NewAuth([]byte("test-secret"), time.Hour)}
	if s == nil {
		f.mem = memstore.New()
		s = f.mem
	}
	h := &Handler{
		Store: s,
		Names: rdx.NewMemoryKV(),
		Events: mq.Direct{Handle: func(e mq.Event) {
			f.mu.Lock()
			f.events = append(f.events, e)
			f.mu.Unlock()
		}},
	}
	a := f.auth
	f.router = httprouter.New()
	f.router.POST("/api/jobs/:id/apply", a.Authenticate(h.Apply))
	f.router.PATCH("/api/jobs/:id/applicants/:applicantId/status", a.Authenticate(h.UpdateApplicantStatus))
	f.router.PATCH("/api/applications/:id/status", a.Authenticate(h.UpdateStatus))
	f.router.GET("/api/applications/mine", a.Authenticate(h.Mine))
	f.router.GET("/api/applications/employer", a.Authenticate(h.ForEmployer))
	return f
}

// seed creates employer e1 with job j1 and employee u1. Returns both tokens.
func (f *fixture) seed(t *testing.T, s store.Store) (employer, employee string) {
	t.Helper()
	ctx := context.Background()
	s.CreateUser(ctx, &models.User{ID: "e1", FirstName: "Asha", LastName: "Menon", Phone: "1", Role: "employer", CompanyName: "Menon Foods"})
	s.CreateUser(ctx, &models.User{ID: "u1", FirstName: "Ravi", LastName: "Kumar", Phone: "2", Role: "employee"})
	s.CreateJob(ctx, &models.JobListing{ID: "j1", UserID: "e1", Title: "Line cook", Company: "Menon Foods", PostedDate: time.Now()})
	employer, _ = f.auth.IssueToken("e1", "employer", "1")
	employee, _ = f.auth.IssueToken("u1", "employee", "2")
	return employer, employee
}

func (f *fixture) do(method, path, token string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Authorization", "Bearer "+token)
	rr := httptest.NewRecorder()
	f.router.ServeHTTP(rr, req)
	return rr
}

func (f *fixture) messages(t *testing.T) []models.Message {
	t.Helper()
	ctx := context.Background()
	var all []models.Message
	for _, id := range []string{"e1", "u1", "e2"} {
		msgs, err := f.mem.ListMessages(ctx, store.MessageFilter{ReceiverID: id})
		if err != nil {
			t.Fatal(err)
		}
		all = append(all, msgs...)
	}
	return all
}

func TestApplyCreatesApplicationAndTwoMessages(t *testing.T) {
	f := newFixture(t, nil)
	_, employee := f.seed(t, f.mem)

	rr := f.do("POST", "/api/jobs/j1/apply", employee, map[string]string{"coverLetter": "Five years on the line."})
	if rr.Code != http.StatusOK {
		t.Fatalf("status %d: %s", rr.Code, rr.Body.String())
	}

	ids, _ := store.ApplicantIDs(context.Background(), f.mem, "j1")
	if len(ids) != 1 || ids[0] != "u1" {
		t.Fatalf("applicants = %v", ids)
	}

	msgs := f.messages(t)
	if len(msgs) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(msgs))
	}
	var sawApplication, sawConfirmation bool
	for _, m := range msgs {
		switch m.Type {
		case models.MessageApplication:
			sawApplication = m.SenderID == "u1" && m.ReceiverID == "e1" && m.ApplicationID == "j1_u1"
			if !bytes.Contains([]byte(m.Content), []byte("Five years")) {
				t.Errorf("cover letter missing from %q", m.Content)
			}
		case models.MessageConfirmation:
			sawConfirmation = m.SenderID == "e1" && m.ReceiverID == "u1"
		}
	}
	if !sawApplication || !sawConfirmation {
		t.Fatalf("unexpected messages %+v", msgs)
	}
	if len(f.events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(f.events))
	}
}

func TestReapplyIsRejected(t *testing.T) {
	f := newFixture(t, nil)
	_, employee := f.seed(t, f.mem)

	f.do("POST", "/api/jobs/j1/apply", employee, nil)
	rr := f.do("POST", "/api/jobs/j1/apply", employee, nil)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status %d", rr.Code)
	}
	if n := len(f.messages(t)); n != 2 {
		t.Fatalf("expected no extra messages, have %d", n)
	}
	if ids, _ := store.ApplicantIDs(context.Background(), f.mem, "j1"); len(ids) != 1 {
		t.Fatalf("applicants = %v", ids)
	}
}

func TestApplyGuards(t *testing.T) {
	f := newFixture(t, nil)
	employer, _ := f.seed(t, f.mem)
	f.mem.CreateUser(context.Background(), &models.User{ID: "e2", FirstName: "Other", Phone: "3", Role: "employer"})
	otherEmployer, _ := f.auth.IssueToken("e2", "employer", "3")

	if rr := f.do("POST", "/api/jobs/j1/apply", employer, nil); rr.Code != http.StatusBadRequest {
		t.Fatalf("owner apply: status %d", rr.Code)
	}
	if rr := f.do("POST", "/api/jobs/j1/apply", otherEmployer, nil); rr.Code != http.StatusForbidden {
		t.Fatalf("employer apply: status %d", rr.Code)
	}
	if rr := f.do("POST", "/api/jobs/nope/apply", otherEmployer, nil); rr.Code != http.StatusNotFound {
		t.Fatalf("missing job: status %d", rr.Code)
	}
	if n := len(f.messages(t)); n != 0 {
		t.Fatalf("expected no messages, have %d", n)
	}
}

type failingMessages struct {
	*memstore.Store
}

func (failingMessages) InsertMessages(context.Context, ...*models.Message) error {
	return errors.New("write concern timeout")
}

func TestApplyRemovesApplicationWhenMessagesFail(t *testing.T) {
	mem := memstore.New()
	f := newFixture(t, failingMessages{mem})
	f.mem = mem
	_, employee := f.seed(t, mem)

	rr := f.do("POST", "/api/jobs/j1/apply", employee, nil)
	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("status %d", rr.Code)
	}
	var out map[string]any
	json.Unmarshal(rr.Body.Bytes(), &out)
	if out["detail"] != "write concern timeout" {
		t.Fatalf("body %v", out)
	}
	if _, err := mem.GetApplication(context.Background(), "j1_u1"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("application should be removed, got %v", err)
	}
	if len(f.events) != 0 {
		t.Fatalf("no events expected, got %d", len(f.events))
	}
}

func TestStatusWorkflow(t *testing.T) {
	f := newFixture(t, nil)
	employer, employee := f.seed(t, f.mem)
	f.do("POST", "/api/jobs/j1/apply", employee, nil)
	ctx := context.Background()

	steps := []struct {
		token  string
		path   string
		status string
		want   int
	}{
		{employer, "/api/jobs/j1/applicants/u1/status", "viewed", http.StatusOK},
		{employer, "/api/applications/j1_u1/status", "interviewed", http.StatusOK},
		{employer, "/api/applications/j1_u1/status", "pending", http.StatusConflict},
		{employee, "/api/applications/j1_u1/status", "offered", http.StatusConflict},
		{employer, "/api/applications/j1_u1/status", "offered", http.StatusOK},
		{employee, "/api/applications/j1_u1/status", "accepted", http.StatusOK},
		{employer, "/api/applications/j1_u1/status", "rejected", http.StatusConflict},
	}
	for i, s := range steps {
		rr := f.do("PATCH", s.path, s.token, map[string]string{"status": s.status})
		if rr.Code != s.want {
			t.Fatalf("step %d (%s): status %d, want %d: %s", i, s.status, rr.Code, s.want, rr.Body.String())
		}
	}

	app, _ := f.mem.GetApplication(ctx, "j1_u1")
	if app.Status != models.StatusAccepted {
		t.Fatalf("final status %s", app.Status)
	}
	// 2 from apply + 4 successful changes
	if n := len(f.messages(t)); n != 6 {
		t.Fatalf("expected 6 messages, got %d", n)
	}
}

func TestRepeatedStatusStillNotifies(t *testing.T) {
	f := newFixture(t, nil)
	employer, employee := f.seed(t, f.mem)
	f.do("POST", "/api/jobs/j1/apply", employee, nil)

	for _, s := range []string{"rejected", "rejected"} {
		rr := f.do("PATCH", "/api/applications/j1_u1/status", employer, map[string]string{"status": s})
		if rr.Code != http.StatusOK {
			t.Fatalf("status %d: %s", rr.Code, rr.Body.String())
		}
	}
	app, _ := f.mem.GetApplication(context.Background(), "j1_u1")
	if app.Status != models.StatusRejected {
		t.Fatalf("status %s", app.Status)
	}

	inbox, _ := f.mem.ListMessages(context.Background(), store.MessageFilter{ReceiverID: "u1"})
	notifications := 0
	for _, m := range inbox {
		if m.Type == models.MessageNotification {
			notifications++
		}
	}
	if notifications != 2 {
		t.Fatalf("expected 2 notifications, got %d", notifications)
	}
}

func TestStatusValidation(t *testing.T) {
	f := newFixture(t, nil)
	employer, employee := f.seed(t, f.mem)
	f.do("POST", "/api/jobs/j1/apply", employee, nil)
	f.mem.CreateUser(context.Background(), &models.User{ID: "x1", Phone: "9", Role: "employer"})
	stranger, _ := f.auth.IssueToken("x1", "employer", "9")

	rr := f.do("PATCH", "/api/applications/j1_u1/status", employer, map[string]string{"status": "hired"})
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("unknown status: %d", rr.Code)
	}
	rr = f.do("PATCH", "/api/applications/j1_u1/status", stranger, map[string]string{"status": "viewed"})
	if rr.Code != http.StatusForbidden {
		t.Fatalf("stranger: %d", rr.Code)
	}
	rr = f.do("PATCH", "/api/applications/j1_nobody/status", employer, map[string]string{"status": "viewed"})
	if rr.Code != http.StatusNotFound {
		t.Fatalf("missing application: %d", rr.Code)
	}

	rr = f.do("PATCH", "/api/applications/j1_u1/status", employer, map[string]string{"status": "offered"})
	if rr.Code != http.StatusConflict {
		t.Fatalf("skip ahead: %d", rr.Code)
	}
	var out map[string]any
	json.Unmarshal(rr.Body.Bytes(), &out)
	allowed, _ := out["allowed"].([]any)
	if out["from"] != "pending" || out["to"] != "offered" || len(allowed) != 2 {
		t.Fatalf("conflict body %v", out)
	}
}

func TestListings(t *testing.T) {
	f := newFixture(t, nil)
	employer, employee := f.seed(t, f.mem)
	f.do("POST", "/api/jobs/j1/apply", employee, nil)

	for _, c := range []struct{ path, token string }{
		{"/api/applications/mine", employee},
		{"/api/applications/employer", employer},
	} {
		rr := f.do("GET", c.path, c.token, nil)
		var out struct {
			Count int                      `json:"count"`
			Data  []models.ApplicationView `json:"data"`
		}
		json.Unmarshal(rr.Body.Bytes(), &out)
		if out.Count != 1 || out.Data[0].Job == nil || out.Data[0].Applicant == nil {
			t.Fatalf("%s: %s", c.path, rr.Body.String())
		}
		if out.Data[0].Job.Title != "Line cook" || out.Data[0].Applicant.FirstName != "Ravi" {
			t.Fatalf("%s: populated %+v", c.path, out.Data[0])
		}
	}

	rr := f.do("GET", "/api/applications/employer", employee, nil)
	var out struct {
		Count int `json:"count"`
	}
	json.Unmarshal(rr.Body.Bytes(), &out)
	if out.Count != 0 {
		t.Fatalf("employee sees %d employer applications", out.Count)
	}
}
