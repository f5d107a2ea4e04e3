package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/mcsmartbytes/job-sense/internal/auth"
	"github.com/mcsmartbytes/job-sense/internal/config"
	"github.com/mcsmartbytes/job-sense/internal/http/handler"
	"github.com/mcsmartbytes/job-sense/internal/http/middleware"
	httpSwagger "github.com/swaggo/http-swagger/v2"
	"go.uber.org/zap"

	_ "github.com/mcsmartbytes/job-sense/docs" // Import generated swagger docs
)

type Router struct {
	cfg             *config.Config
	logger          *zap.Logger
	authMiddleware  *auth.Middleware
	rateLimiter     *middleware.RateLimiter
	healthHandler   *handler.HealthHandler
	authHandler     *handler.AuthHandler
	siteHandler     *handler.SiteHandler
	costCodeHandler *handler.CostCodeHandler
	estimateHandler *handler.EstimateHandler
	jobHandler      *handler.JobHandler
	pipelineHandler *handler.PipelineHandler
	trackerHandler  *handler.TrackerHandler
}

func NewRouter(
	cfg *config.Config,
	logger *zap.Logger,
	authMiddleware *auth.Middleware,
	rateLimiter *middleware.RateLimiter,
	healthHandler *handler.HealthHandler,
	authHandler *handler.AuthHandler,
	siteHandler *handler.SiteHandler,
	costCodeHandler *handler.CostCodeHandler,
	estimateHandler *handler.EstimateHandler,
	jobHandler *handler.JobHandler,
	pipelineHandler *handler.PipelineHandler,
	trackerHandler *handler.TrackerHandler,
) *Router {
	return &Router{
		cfg:             cfg,
		logger:          logger,
		authMiddleware:  authMiddleware,
		rateLimiter:     rateLimiter,
		healthHandler:   healthHandler,
		authHandler:     authHandler,
		siteHandler:     siteHandler,
		costCodeHandler: costCodeHandler,
		estimateHandler: estimateHandler,
		jobHandler:      jobHandler,
		pipelineHandler: pipelineHandler,
		trackerHandler:  trackerHandler,
	}
}

func (rt *Router) Setup() http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.Logging(rt.logger))
	r.Use(middleware.Recovery(rt.logger))
	r.Use(middleware.SecurityHeaders(&rt.cfg.Security))
	r.Use(middleware.CORS(&rt.cfg.CORS, &rt.cfg.App, rt.logger))
	r.Use(rt.rateLimiter.LimitByIP)

	r.Get("/health", rt.healthHandler.Live)
	r.Get("/health/db", rt.healthHandler.Database)
	r.Get("/health/ready", rt.healthHandler.Ready)

	if rt.cfg.Server.EnableSwagger {
		r.Get("/swagger/*", httpSwagger.Handler(
			httpSwagger.URL("/swagger/doc.json"),
		))
	}

	r.Route("/api/v1", func(r chi.Router) {
		// Public credential endpoints
		r.Route("/auth", func(r chi.Router) {
			r.Use(rt.rateLimiter.LimitCredentials)
			r.Post("/register", rt.authHandler.Register)
			r.Post("/verify", rt.authHandler.VerifyEmail)
			r.Post("/login", rt.authHandler.Login)
			r.Post("/password-reset/request", rt.authHandler.RequestPasswordReset)
			r.Post("/password-reset", rt.authHandler.ResetPassword)
		})

		// Protected routes
		r.Group(func(r chi.Router) {
			r.Use(rt.authMiddleware.Authenticate)
			r.Use(rt.rateLimiter.LimitByUser)

			r.Get("/profile", rt.authHandler.GetProfile)
			r.Put("/profile", rt.authHandler.UpdateProfile)

			r.Route("/sites", func(r chi.Router) {
				r.Get("/", rt.siteHandler.List)
				r.Post("/", rt.siteHandler.Create)
				r.Get("/{id}", rt.siteHandler.GetByID)
				r.Delete("/{id}", rt.siteHandler.Delete)
				r.Get("/{id}/objects", rt.siteHandler.ListObjects)
				r.Put("/{id}/objects", rt.siteHandler.ReplaceObjects)
			})

			r.Get("/cost-codes", rt.costCodeHandler.List)

			r.Route("/estimates", func(r chi.Router) {
				r.Get("/", rt.estimateHandler.List)
				r.Post("/", rt.estimateHandler.Create)
				r.Get("/{id}", rt.estimateHandler.GetByID)
				r.Patch("/{id}", rt.estimateHandler.Update)
				r.Delete("/{id}", rt.estimateHandler.Delete)
				r.Post("/{id}/line-items", rt.estimateHandler.AddLineItem)
				r.Delete("/{id}/line-items/{itemId}", rt.estimateHandler.DeleteLineItem)
				r.Post("/{id}/convert", rt.estimateHandler.Convert)
				r.Get("/{id}/pdf", rt.estimateHandler.PDF)
			})

			r.Route("/jobs", func(r chi.Router) {
				r.Get("/", rt.jobHandler.List)
				r.Get("/{id}", rt.jobHandler.GetByID)
				r.Post("/{id}/costs", rt.jobHandler.AddCost)
				r.Patch("/{id}/status", rt.jobHandler.UpdateStatus)
			})

			r.Get("/reports/job-costs", rt.jobHandler.CostReport)

			r.Route("/pipeline", func(r chi.Router) {
				r.Get("/bids", rt.pipelineHandler.ListBids)
				r.Post("/bids", rt.pipelineHandler.CreateBid)
				r.Get("/bids/{id}", rt.pipelineHandler.GetBid)
				r.Patch("/bids/{id}", rt.pipelineHandler.UpdateBid)
				r.Delete("/bids/{id}", rt.pipelineHandler.DeleteBid)
				r.Post("/bids/{id}/convert", rt.pipelineHandler.ConvertBid)
				r.Post("/bids/{id}/estimate", rt.pipelineHandler.CreateEstimate)
				r.Get("/board", rt.pipelineHandler.Board)
				r.Get("/stats", rt.pipelineHandler.Stats)
				r.Get("/filters", rt.pipelineHandler.Filters)
				r.Patch("/filters", rt.pipelineHandler.SetFilters)
				r.Delete("/filters", rt.pipelineHandler.ClearFilters)
				r.Get("/active", rt.pipelineHandler.ActiveBid)
				r.Put("/active", rt.pipelineHandler.SetActiveBid)
			})

			r.Route("/tracker", func(r chi.Router) {
				r.Get("/jobs", rt.trackerHandler.ListJobs)
				r.Get("/jobs/{id}", rt.trackerHandler.GetJob)
				r.Patch("/jobs/{id}", rt.trackerHandler.UpdateJob)
				r.Delete("/jobs/{id}", rt.trackerHandler.DeleteJob)
				r.Post("/jobs/{id}/phases", rt.trackerHandler.AddPhase)
				r.Patch("/jobs/{id}/phases/{phaseId}", rt.trackerHandler.UpdatePhase)
				r.Delete("/jobs/{id}/phases/{phaseId}", rt.trackerHandler.RemovePhase)
				r.Post("/jobs/{id}/tasks", rt.trackerHandler.AddTask)
				r.Patch("/jobs/{id}/tasks/{taskId}", rt.trackerHandler.UpdateTask)
				r.Delete("/jobs/{id}/tasks/{taskId}", rt.trackerHandler.RemoveTask)
				r.Post("/jobs/{id}/materials", rt.trackerHandler.AddMaterial)
				r.Delete("/jobs/{id}/materials/{materialId}", rt.trackerHandler.RemoveMaterial)
				r.Get("/stats", rt.trackerHandler.Stats)
				r.Get("/active", rt.trackerHandler.ActiveJob)
				r.Put("/active", rt.trackerHandler.SetActiveJob)
			})
		})
	})

	return r
}
