package messages

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
	"jobconnect/mq"
	"jobconnect/store"
	"jobconnect/store/memstore"
)

type fixture struct {
	store  *memstore.Store
	auth   *middleware.Auth
	router *httprouter.Router
	events []mq.Event
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{store: memstore.New(), auth: middleware.NewAuth([]byte("test-secret"), time.Hour)}
	h := &Handler{Store: f.store, Events: mq.Direct{Handle: func(e mq.Event) { f.events = append(f.events, e) }}}
	a := f.auth
	f.router = httprouter.New()
	f.router.GET("/api/messages/inbox", a.Authenticate(h.GetInbox))
	f.router.GET("/api/messages/sent", a.Authenticate(h.GetSent))
	f.router.GET("/api/messages/unread-count", a.Authenticate(h.UnreadCount))
	f.router.PATCH("/api/messages/:id/read", a.Authenticate(h.MarkRead))
	f.router.POST("/api/messages", a.Authenticate(h.Send))

	ctx := context.Background()
	f.store.CreateUser(ctx, &models.User{ID: "e1", FirstName: "Asha", LastName: "Menon", Phone: "1", Role: "employer"})
	f.store.CreateUser(ctx, &models.User{ID: "u1", FirstName: "Ravi", LastName: "Kumar", Phone: "2", Role: "employee"})
	f.store.CreateJob(ctx, &models.JobListing{ID: "j1", UserID: "e1", Title: "Line cook", Position: "Cook", Location: "Pune", Rate: 300})
	return f
}

func (f *fixture) token(id, role string) string {
	tok, _ := f.auth.IssueToken(id, role, "")
	return tok
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

type listResponse struct {
	Success bool                 `json:"success"`
	Count   int                  `json:"count"`
	Data    []models.MessageView `json:"data"`
}

func TestInboxPopulatedNewestFirst(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	base := time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)
	f.store.CreateApplication(ctx, &models.Application{ID: "j1_u1", JobID: "j1", ApplicantID: "u1", EmployerID: "e1", Status: models.StatusInterviewed})
	f.store.InsertMessages(ctx,
		&models.Message{ID: "m1", SenderID: "u1", ReceiverID: "e1", JobID: "j1", ApplicationID: "j1_u1", Title: "old", Type: models.MessageApplication, CreatedAt: base},
		&models.Message{ID: "m2", SenderID: "u1", ReceiverID: "e1", Title: "new", Type: models.MessageDirect, CreatedAt: base.Add(time.Minute)},
		&models.Message{ID: "m3", SenderID: "e1", ReceiverID: "u1", Title: "not mine", CreatedAt: base},
	)

	rr := f.do("GET", "/api/messages/inbox", f.token("e1", "employer"), nil)
	var out listResponse
	json.Unmarshal(rr.Body.Bytes(), &out)
	if !out.Success || out.Count != 2 || out.Data[0].ID != "m2" || out.Data[1].ID != "m1" {
		t.Fatalf("inbox %s", rr.Body.String())
	}
	old := out.Data[1]
	if old.Sender == nil || old.Sender.FirstName != "Ravi" {
		t.Fatalf("sender not populated: %+v", old.Sender)
	}
	if old.Job == nil || old.Job.Title != "Line cook" || old.Job.Rate != 300 {
		t.Fatalf("job not populated: %+v", old.Job)
	}
	if old.ApplicationStatus != models.StatusInterviewed {
		t.Fatalf("applicationStatus = %q", old.ApplicationStatus)
	}
	if out.Data[0].Job != nil || out.Data[0].ApplicationStatus != "" {
		t.Fatalf("direct message should carry no job: %+v", out.Data[0])
	}
}

func TestMarkReadOnlyByReceiver(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.store.InsertMessages(ctx, &models.Message{ID: "m1", SenderID: "u1", ReceiverID: "e1", Title: "hi", CreatedAt: time.Now()})

	if rr := f.do("PATCH", "/api/messages/m1/read", f.token("u1", "employee"), nil); rr.Code != http.StatusNotFound {
		t.Fatalf("sender mark read: status %d", rr.Code)
	}
	if n, _ := f.store.CountUnread(ctx, "e1"); n != 1 {
		t.Fatal("isRead changed by non-receiver")
	}

	employer := f.token("e1", "employer")
	for i := 0; i < 2; i++ {
		if rr := f.do("PATCH", "/api/messages/m1/read", employer, nil); rr.Code != http.StatusOK {
			t.Fatalf("receiver mark read #%d: status %d", i, rr.Code)
		}
	}
	rr := f.do("GET", "/api/messages/unread-count", employer, nil)
	var out map[string]float64
	json.Unmarshal(rr.Body.Bytes(), &out)
	if out["count"] != 0 {
		t.Fatalf("unread count %v", out)
	}
}

func TestUnreadFilterAndSent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	now := time.Now()
	f.store.InsertMessages(ctx,
		&models.Message{ID: "m1", SenderID: "u1", ReceiverID: "e1", Title: "a", CreatedAt: now},
		&models.Message{ID: "m2", SenderID: "u1", ReceiverID: "e1", Title: "b", IsRead: true, CreatedAt: now},
	)

	var out listResponse
	rr := f.do("GET", "/api/messages/inbox?unread=true", f.token("e1", "employer"), nil)
	json.Unmarshal(rr.Body.Bytes(), &out)
	if out.Count != 1 || out.Data[0].ID != "m1" {
		t.Fatalf("unread inbox %s", rr.Body.String())
	}

	rr = f.do("GET", "/api/messages/sent", f.token("u1", "employee"), nil)
	out = listResponse{}
	json.Unmarshal(rr.Body.Bytes(), &out)
	if out.Count != 2 || out.Data[0].Receiver == nil || out.Data[0].Receiver.ID != "e1" {
		t.Fatalf("sent %s", rr.Body.String())
	}
}

func TestSend(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	employee := f.token("u1", "employee")

	rr := f.do("POST", "/api/messages", employee, map[string]string{"receiverId": "e1"})
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("missing: status %d", rr.Code)
	}
	var bad map[string]any
	json.Unmarshal(rr.Body.Bytes(), &bad)
	if missing := bad["missing"].([]any); len(missing) != 2 {
		t.Fatalf("missing = %v", missing)
	}

	rr = f.do("POST", "/api/messages", employee, map[string]string{"receiverId": "ghost", "title": "t", "content": "c"})
	if rr.Code != http.StatusNotFound {
		t.Fatalf("unknown receiver: status %d", rr.Code)
	}

	rr = f.do("POST", "/api/messages", employee, map[string]string{"receiverId": "e1", "jobId": "j1", "title": "Question", "content": "Is parking available?"})
	if rr.Code != http.StatusCreated {
		t.Fatalf("send: status %d %s", rr.Code, rr.Body.String())
	}
	inbox, _ := f.store.ListMessages(ctx, store.MessageFilter{ReceiverID: "e1"})
	if len(inbox) != 1 || inbox[0].Type != models.MessageDirect || inbox[0].SenderID != "u1" {
		t.Fatalf("stored %+v", inbox)
	}
	if len(f.events) != 1 || f.events[0].Message.ID != inbox[0].ID {
		t.Fatalf("events %+v", f.events)
	}
}
