package routes

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/markbang/cyop/api/controllers"
	"github.com/markbang/cyop/api/middleware"
	"github.com/markbang/cyop/internal/captions"
	"github.com/markbang/cyop/internal/datasets"
	"github.com/markbang/cyop/internal/tasks"
	"github.com/markbang/cyop/internal/templates"
	"github.com/markbang/cyop/internal/uploads"
	"github.com/markbang/cyop/pkg/auth/session"
	"github.com/markbang/cyop/pkg/config"
	"github.com/markbang/cyop/pkg/db"
	"github.com/markbang/cyop/pkg/logger"
	"github.com/markbang/cyop/pkg/redis"
)

type sessionManager interface {
	session.AccessSessionChecker
	Generate(ctx context.Context, accessID string) (string, error)
	Rotate(ctx context.Context, oldAccessID, provided string) (string, string, error)
	Revoke(ctx context.Context, accessID string) error
}

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP db.Pinger,
	redisClient *redis.Client,
	sessionManager sessionManager,
	captionService captions.Service,
	uploadService uploads.Service,
	taskService tasks.Service,
	templateService templates.Service,
	datasetService datasets.Service,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
	)

	tokenPolicy := middleware.NewRateLimitPolicy(
		"token",
		cfg.Auth.TokenWindow,
		cfg.Auth.TokenIPLimit,
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		if redisClient != nil {
			r.Get("/ready", controllers.HealthReady(cfg, logg, dbP, redisClient))
		} else {
			r.Get("/ready", controllers.HealthReady(cfg, logg, dbP))
		}
	})

	r.Route("/api/public", func(r chi.Router) {
		r.Get("/ping", controllers.PublicPing())
		r.Post("/validate", controllers.PublicValidate(logg))
	})

	r.Route("/api/v1/auth", func(r chi.Router) {
		r.With(middleware.RateLimit(tokenPolicy, redisClient, logg)).Post("/token", controllers.AuthIssue(sessionManager, cfg.JWT, logg))
		r.Post("/refresh", controllers.AuthRefresh(sessionManager, cfg.JWT, logg))
		r.Post("/logout", controllers.AuthLogout(sessionManager, cfg.JWT, logg))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, sessionManager, logg))

		r.Get("/ping", controllers.PrivatePing())

		r.Route("/requirements", func(r chi.Router) {
			r.Post("/", controllers.CreateRequirement(datasetService, logg))
			r.Get("/", controllers.ListRequirements(datasetService, logg))
			r.Get("/{requirementId}/datasets", controllers.ListDatasets(datasetService, logg))
		})

		r.Route("/datasets", func(r chi.Router) {
			r.Post("/", controllers.CreateDataset(datasetService, logg))
			r.Route("/{datasetId}", func(r chi.Router) {
				r.Get("/", controllers.GetDataset(datasetService, logg))
				r.Post("/metrics/recompute", controllers.RecomputeDatasetMetrics(datasetService, logg))

				r.Get("/captions", controllers.ListCaptions(captionService, logg))
				r.Post("/captions/trigger", controllers.TriggerCaptioning(captionService, logg))
				r.Get("/captions/export", controllers.ExportCaptions(captionService, logg))

				r.Get("/assets", controllers.ListAssets(uploadService, logg))
				r.Get("/tasks", controllers.ListTasks(taskService, logg))
			})
		})

		r.Route("/captions", func(r chi.Router) {
			r.Post("/", controllers.CreateCaption(captionService, logg))
			r.Post("/approve", controllers.ApproveCaptionsBatch(captionService, logg))
			r.Post("/reject", controllers.RejectCaptionsBatch(captionService, logg))
			r.Route("/{captionId}", func(r chi.Router) {
				r.Get("/", controllers.GetCaption(captionService, logg))
				r.Patch("/", controllers.UpdateCaption(captionService, logg))
				r.Delete("/", controllers.DeleteCaption(captionService, logg))
				r.Post("/approve", controllers.ApproveCaption(captionService, logg))
				r.Post("/reject", controllers.RejectCaption(captionService, logg))
				r.Post("/regenerate", controllers.RegenerateCaption(captionService, logg))
			})
		})

		r.Route("/uploads", func(r chi.Router) {
			r.Post("/", controllers.RequestUpload(uploadService, logg))
			r.Route("/{assetId}", func(r chi.Router) {
				r.Get("/", controllers.GetAsset(uploadService, logg))
				r.Post("/finalize", controllers.FinalizeUpload(uploadService, logg))
				r.Delete("/", controllers.DeleteAsset(uploadService, logg))
			})
		})

		r.Route("/tasks", func(r chi.Router) {
			r.Post("/", controllers.CreateTask(taskService, logg))
			r.Route("/{taskId}", func(r chi.Router) {
				r.Get("/", controllers.GetTask(taskService, logg))
				r.Patch("/", controllers.UpdateTask(taskService, logg))
				r.Delete("/", controllers.DeleteTask(taskService, logg))
			})
		})

		r.Route("/templates", func(r chi.Router) {
			r.Post("/", controllers.CreateTemplate(templateService, logg))
			r.Get("/", controllers.ListTemplates(templateService, logg))
			r.Route("/{templateId}", func(r chi.Router) {
				r.Get("/", controllers.GetTemplate(templateService, logg))
				r.Patch("/", controllers.UpdateTemplate(templateService, logg))
				r.Delete("/", controllers.DeleteTemplate(templateService, logg))
				r.Post("/default", controllers.SetDefaultTemplate(templateService, logg))
			})
		})
	})

	return r
}
