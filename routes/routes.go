package routes

import (
	"github.com/julienschmidt/httprouter"

	"jobconnect/applications"
	"jobconnect/auth"
	"jobconnect/globals"
	"jobconnect/jobs"
	"jobconnect/messages"
	"jobconnect/middleware"
	"jobconnect/mq"
	"jobconnect/notify"
	"jobconnect/ratelim"
	"jobconnect/rdx"
	"jobconnect/store"
	"jobconnect/users"
)

// Options carries everything the handlers are built from.
type Options struct {
	Store   store.Store
	KV      rdx.KV
	Events  mq.Emitter
	Auth    *middleware.Auth
	Limiter *ratelim.RateLimiter
	// Hub is optional; without it the websocket route is not registered.
	Hub           *notify.Hub
	Sender        auth.CodeSender
	PublicBaseURL string
}

func (o Options) limit(h httprouter.Handle) httprouter.Handle {
	if o.Limiter == nil {
		return h
	}
	return o.Limiter.Limit(h)
}

// Register adds every API route to router.
func Register(router *httprouter.Router, o Options) {
	if o.Sender == nil {
		o.Sender = auth.LogSender{}
	}
	AddUserRoutes(router, o)
	AddAuthRoutes(router, o)
	AddJobRoutes(router, o)
	AddApplicationRoutes(router, o)
	AddMessageRoutes(router, o)
	AddLiveRoutes(router, o)
}

func AddUserRoutes(router *httprouter.Router, o Options) {
	h := &users.Handler{Store: o.Store, Auth: o.Auth, Names: o.KV}
	a := o.Auth

	router.POST("/api/users", o.limit(h.CreateUser))
	router.GET("/api/users", a.Authenticate(h.GetMe))
	router.PATCH("/api/users/profile", a.Authenticate(h.UpdateProfile))
	router.GET("/api/users/inbox", a.Authenticate(h.GetInbox))
	router.GET("/api/users/applied", a.Authenticate(h.GetApplied))
	router.GET("/api/profiles/:id", h.GetProfile)
}

func AddAuthRoutes(router *httprouter.Router, o Options) {
	h := &auth.Handler{Store: o.Store, Auth: o.Auth, KV: o.KV, Sender: o.Sender}

	router.POST("/api/auth/otp/request", o.limit(h.RequestOTP))
	router.POST("/api/auth/otp/verify", o.limit(h.VerifyOTP))
	router.POST("/api/auth/logout", auth.Logout)
}

func AddJobRoutes(router *httprouter.Router, o Options) {
	h := &jobs.Handler{Store: o.Store, PublicBaseURL: o.PublicBaseURL}
	a := o.Auth

	router.GET("/api/jobs", h.GetJobs)
	router.GET("/api/jobs/:id", a.OptionalAuth(h.GetJob))
	router.GET("/api/jobs/:id/qr", h.JobQR)
	router.POST("/api/jobs", a.Authenticate(middleware.RequireRole(globals.RoleEmployer, h.CreateJob)))
	router.PATCH("/api/jobs/:id", a.Authenticate(h.UpdateJob))
	router.DELETE("/api/jobs/:id", a.Authenticate(h.DeleteJob))
	router.GET("/api/jobs/:id/applicants", a.Authenticate(h.GetApplicants))
	router.GET("/api/jobs/:id/applicants/export", a.Authenticate(h.ExportApplicants))
	router.GET("/api/employer/jobs", a.Authenticate(middleware.RequireRole(globals.RoleEmployer, h.GetEmployerJobs)))
}

func AddApplicationRoutes(router *httprouter.Router, o Options) {
	h := &applications.Handler{Store: o.Store, Events: o.Events, Names: o.KV}
	a := o.Auth

	router.POST("/api/jobs/:id/apply", o.limit(a.Authenticate(h.Apply)))
	router.PATCH("/api/jobs/:id/applicants/:applicantId/status", a.Authenticate(h.UpdateApplicantStatus))
	router.PATCH("/api/applications/:id/status", a.Authenticate(h.UpdateStatus))
	router.GET("/api/applications/mine", a.Authenticate(h.Mine))
	router.GET("/api/applications/employer", a.Authenticate(middleware.RequireRole(globals.RoleEmployer, h.ForEmployer)))
}

func AddMessageRoutes(router *httprouter.Router, o Options) {
	h := &messages.Handler{Store: o.Store, Events: o.Events}
	a := o.Auth

	router.GET("/api/messages/inbox", a.Authenticate(h.GetInbox))
	router.GET("/api/messages/sent", a.Authenticate(h.GetSent))
	router.GET("/api/messages/unread-count", a.Authenticate(h.UnreadCount))
	router.PATCH("/api/messages/:id/read", a.Authenticate(h.MarkRead))
	router.POST("/api/messages", o.limit(a.Authenticate(h.Send)))
}

func AddLiveRoutes(router *httprouter.Router, o Options) {
	if o.Hub == nil {
		return
	}
	router.GET("/api/ws/inbox", notify.WebSocketHandler(o.Hub, o.Auth.Secret))
}
