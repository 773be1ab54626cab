// Package router wires HTTP routes onto the Echo instance. Routes are
// grouped by the access they require: public browse endpoints (with
// response caching), authenticated user endpoints (rate limited), and
// role-restricted administration.
package router

import (
	"github.com/labstack/echo/v4"

	"trainbook/internal/handler"
	"trainbook/internal/middleware"
	"trainbook/internal/model"
)

// RegisterRoutes registers routes that need no authentication at all:
// the health probe and the payment gateway webhook.
func RegisterRoutes(e *echo.Echo, wh *handler.WebhookHandler) {
	e.GET("/healthz", handler.Health)
	// The gateway authenticates by knowing the payment identifiers it
	// issued; the handler rejects anything it cannot match.
	e.POST("/v1/payments/webhook", wh.Receive)
}

// RegisterAuth registers the token lifecycle endpoints under /v1/auth
// and the authenticated /v1/me.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, jwtSecret string) {
	g := e.Group("/v1/auth")
	g.POST("/register", a.Register)
	g.POST("/login", a.Login)
	g.POST("/refresh", a.Refresh)
	g.POST("/logout", a.Logout)

	auth := e.Group("/v1", middleware.JWTAuth(jwtSecret))
	auth.GET("/me", a.Me)
}

// RegisterPublic registers unauthenticated browse endpoints. The cache
// middleware short-circuits repeated reads of the schedule.
func RegisterPublic(e *echo.Echo, v *handler.VenueHandler, t *handler.TrainerHandler,
	s *handler.SessionHandler, f *handler.FeedbackHandler, cache echo.MiddlewareFunc) {
	g := e.Group("/v1", cache)
	g.GET("/venues", v.List)
	g.GET("/venues/:id", v.Get)
	g.GET("/trainers", t.List)
	g.GET("/trainers/:id", t.Get)
	g.GET("/sessions", s.List)
	g.GET("/sessions/:id", s.Get)
	g.GET("/sessions/:id/feedback", f.ListBySession)
}

// RegisterUser registers the endpoints every authenticated user may
// call: the enrollment lifecycle, subscription purchase and the
// caller's own notification history.
func RegisterUser(e *echo.Echo, en *handler.EnrollmentHandler, sub *handler.SubscriptionHandler,
	n *handler.NotificationHandler, f *handler.FeedbackHandler,
	jwtSecret string, limiter echo.MiddlewareFunc) {
	g := e.Group("/v1", middleware.JWTAuth(jwtSecret), limiter)

	g.POST("/sessions/:id/enroll", en.Enroll)
	g.POST("/sessions/:id/unenroll", en.Unenroll)
	g.POST("/sessions/:id/confirm", en.Confirm)
	g.POST("/sessions/:id/feedback", f.Create)

	g.GET("/subscriptions", sub.List)
	g.POST("/subscriptions", sub.Purchase)

	g.GET("/notifications", n.List)
}

// RegisterAdmin registers role-restricted administration: venue and
// trainer management and the maintenance sweeps are admin only, session
// scheduling is open to admins and trainers.
func RegisterAdmin(e *echo.Echo, v *handler.VenueHandler, t *handler.TrainerHandler,
	s *handler.SessionHandler, ops *handler.OpsHandler, jwtSecret string) {
	admin := e.Group("/v1",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole(model.RoleAdmin),
	)
	admin.POST("/venues", v.Create)
	admin.DELETE("/venues/:id", v.Delete)
	admin.POST("/trainers", t.Create)
	admin.POST("/ops/backfill", ops.Backfill)
	admin.POST("/ops/reconcile", ops.Reconcile)

	staff := e.Group("/v1",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole(model.RoleAdmin, model.RoleTrainer),
	)
	staff.POST("/sessions", s.Create)
	staff.DELETE("/sessions/:id", s.Delete)
}
