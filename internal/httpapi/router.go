// Package httpapi assembles the echo router shared by the database server
// and the mock server.
package httpapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/sudo-init-do/taskmarket/internal/admin"
	"github.com/sudo-init-do/taskmarket/internal/auth"
	"github.com/sudo-init-do/taskmarket/internal/catalog"
	"github.com/sudo-init-do/taskmarket/internal/config"
	"github.com/sudo-init-do/taskmarket/internal/events"
	"github.com/sudo-init-do/taskmarket/internal/marketplace"
	mware "github.com/sudo-init-do/taskmarket/internal/middleware"
	"github.com/sudo-init-do/taskmarket/internal/model"
	"github.com/sudo-init-do/taskmarket/internal/payment"
	"github.com/sudo-init-do/taskmarket/internal/resp"
	"github.com/sudo-init-do/taskmarket/internal/store"
	"github.com/sudo-init-do/taskmarket/internal/stream"
	"github.com/sudo-init-do/taskmarket/internal/user"
	"github.com/sudo-init-do/taskmarket/internal/validate"
)

// Deps are the collaborators the router wires into handlers
type Deps struct {
	Config *config.Config
	Store  store.Store
	// Events receives committed domain events; the hub is added to it
	Events     events.Publisher
	Hub        *stream.Hub
	Recomputer catalog.Recomputer
	Log        *zap.Logger
}

// NewRouter builds the echo instance with every route registered
func NewRouter(d Deps) *echo.Echo {
	cfg := d.Config
	if d.Log == nil {
		d.Log = zap.L()
	}
	if d.Hub == nil {
		d.Hub = stream.NewHub()
	}
	pub := events.Fanout{d.Events, d.Hub}

	tokens := auth.NewTokens(cfg.JWT.Secret, cfg.TokenTTL())
	authSvc := auth.NewService(d.Store, tokens)
	manager := marketplace.NewManager(d.Store, pub, cfg.Payment.CommissionBps)
	workflow := payment.NewWorkflow(d.Store, pub)
	agg := catalog.NewAggregator(d.Store)
	recompute := d.Recomputer
	if recompute == nil {
		recompute = catalog.SyncRecomputer{Aggregator: agg}
	}
	cat := catalog.New(d.Store, recompute)

	authH := auth.NewHandler(authSvc)
	marketH := marketplace.NewHandler(manager)
	payH := payment.NewHandler(workflow)
	catH := catalog.NewHandler(cat, agg)
	adminH := admin.NewHandler(d.Store, authSvc)
	userH := user.NewHandler(d.Store)
	streamH := stream.NewHandler(d.Hub, d.Store, cfg.AllowedOrigins())

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = validate.New()
	e.HTTPErrorHandler = resp.ErrorHandler(cfg.IsProduction())

	// Basic middleware
	e.Use(echomw.Recover())
	e.Use(echomw.RequestID())
	e.Use(mware.RequestLogger(d.Log))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{AllowOrigins: cfg.AllowedOrigins()}))

	// Health
	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, echo.Map{"status": "ok"})
	})
	e.GET("/ready", func(c echo.Context) error {
		if err := d.Store.Ping(c.Request().Context()); err != nil {
			return c.JSON(http.StatusServiceUnavailable, echo.Map{"status": "not_ready", "error": "store unreachable"})
		}
		return c.JSON(http.StatusOK, echo.Map{"status": "ready"})
	})

	// Auth routes with per-IP rate limiting to protect signup/login from abuse
	jwt := mware.JWTMiddleware(tokens, authSvc)
	authGroup := e.Group("/auth")
	limiter := rateLimit(cfg)
	authGroup.POST("/signup", authH.Signup, limiter)
	authGroup.POST("/login", authH.Login, limiter)
	authGroup.GET("/me", authH.Me, jwt)

	// Public catalog and profiles
	e.GET("/api/services", catH.ListServices)
	e.GET("/api/services/:id", catH.GetService)
	e.GET("/api/providers/:id/reviews", marketH.ProviderReviews)
	e.GET("/api/users/:id/profile", userH.GetPublicProfile)

	// Protected routes
	api := e.Group("/api", jwt)
	client := mware.RequireRoles(model.RoleClient)
	provider := mware.RequireRoles(model.RoleProvider)
	owner := mware.RequireRoles(model.RoleClient, model.RoleAdmin)

	api.PATCH("/users/profile", userH.UpdateProfile)

	api.POST("/tasks", marketH.CreateTask, client)
	api.GET("/tasks", marketH.ListTasks)
	api.GET("/tasks/:taskId", marketH.GetTask)
	api.GET("/tasks/:taskId/events", streamH.TaskEvents)
	api.POST("/tasks/:taskId/start", marketH.StartTask, provider)
	api.POST("/tasks/:taskId/complete", marketH.CompleteTask, owner)
	api.POST("/tasks/:taskId/cancel", marketH.CancelTask, owner)
	api.POST("/tasks/:taskId/reviews", marketH.CreateReview, client)
	api.POST("/tasks/:taskId/bids/:bidId/accept", marketH.Accept, owner)
	api.POST("/tasks/:taskId/bids/:bidId/reject", marketH.Reject, owner)

	api.POST("/bids", marketH.SubmitBid, provider)
	api.GET("/bids/task/:taskId", marketH.ListBids)
	api.PATCH("/bids/:bidId/respond", marketH.Respond, owner)
	api.POST("/bids/:bidId/withdraw", marketH.WithdrawBid, provider)

	api.GET("/payments/:id", payH.Get)
	api.POST("/payments/:id/proof", payH.SubmitProof, client)

	api.POST("/services", catH.CreateService, provider)
	api.POST("/services/:id/bookings", catH.CreateBooking, client)
	api.POST("/bookings/:id/complete", catH.CompleteBooking, provider)
	api.POST("/bookings/:id/cancel", catH.CancelBooking)
	api.POST("/bookings/:id/rate", catH.RateBooking, client)

	// Admin routes
	adm := api.Group("/admin", mware.AdminGuard)
	adm.GET("/stats", adminH.Stats)
	adm.GET("/users", adminH.ListUsers)
	adm.POST("/users/:id/suspend", adminH.SuspendUser)
	adm.POST("/users/:id/activate", adminH.ActivateUser)
	adm.GET("/payments/pending", payH.ListPending)
	adm.POST("/payments/:id/verify", payH.Verify)
	adm.POST("/services/:id/recompute", catH.Recompute)

	return e
}

func rateLimit(cfg *config.Config) echo.MiddlewareFunc {
	if cfg.HTTP.AuthRateLimit <= 0 {
		return func(next echo.HandlerFunc) echo.HandlerFunc { return next }
	}
	return echomw.RateLimiterWithConfig(echomw.RateLimiterConfig{
		Store: echomw.NewRateLimiterMemoryStore(rate.Limit(cfg.HTTP.AuthRateLimit)),
		DenyHandler: func(c echo.Context, _ string, _ error) error {
			return echo.NewHTTPError(http.StatusTooManyRequests, "too many requests")
		},
	})
}
