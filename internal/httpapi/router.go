package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"homeservices/internal/api"
	"homeservices/internal/auth"
	"homeservices/internal/history"
	"homeservices/internal/notify"
	"homeservices/internal/portal"
	"homeservices/internal/request"
	"homeservices/internal/routing"
	"homeservices/internal/storage"
	"homeservices/pkg/config"
)

type Dependencies struct {
	Cfg        config.Config
	DB         *pgxpool.Pool
	Log        *zap.Logger
	RouteCache *routing.Cache
}

func NewRouter(deps Dependencies) http.Handler {
	r := chi.NewRouter()

	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		api.WriteError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "method not allowed")
	})
	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		api.WriteError(w, http.StatusNotFound, "NOT_FOUND", "no such route")
	})

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	signer := portal.LinkSigner{
		Secret:  deps.Cfg.PortalLinkSecret,
		TTL:     time.Duration(deps.Cfg.PortalLinkTTLHours) * time.Hour,
		BaseURL: deps.Cfg.PortalBaseURL,
	}

	authRepo := auth.NewRepository(deps.DB)
	authHandlers := auth.Handlers{
		Sessions:   authRepo,
		SessionTTL: time.Duration(deps.Cfg.SessionTTLHours) * time.Hour,
		Log:        deps.Log,
	}

	sender := notify.NewSender(deps.Cfg.Email, deps.Log)
	dispatcher := notify.NewDispatcher(sender, signer.Link, deps.Cfg.Email.FromAddr, deps.Log)

	requestRepo := request.NewRepository(deps.DB)
	requestSvc := &request.Service{
		DB:       deps.DB,
		Requests: requestRepo,
		Users:    authRepo,
		Notify:   dispatcher,
		Log:      deps.Log,
	}
	historyRepo := history.NewRepository(deps.DB)
	requestHandlers := request.Handlers{Svc: requestSvc, History: historyRepo, Log: deps.Log}

	attachmentRepo := storage.NewRepository(deps.DB)
	attachmentHandlers := storage.Handlers{
		Repo:  attachmentRepo,
		Store: storage.NewBucketClient(deps.Cfg.Storage),
		Svc:   requestSvc,
		Log:   deps.Log,
	}

	routingClient := routing.NewClient(
		deps.Cfg.RoutingMirrors,
		time.Duration(deps.Cfg.RoutingTimeoutSeconds)*time.Second,
		deps.Log,
	)
	routingHandlers := routing.Handlers{Client: routingClient, Cache: deps.RouteCache}

	portalHandlers := portal.Handlers{Signer: signer, Svc: requestSvc}

	// v1
	r.Route("/v1", func(r chi.Router) {
		r.Post("/auth/login", authHandlers.Login)
		r.Post("/auth/logout", authHandlers.Logout)

		// Session-scoped APIs
		r.Group(func(r chi.Router) {
			r.Use(auth.SessionAuth(authRepo))

			r.Get("/statuses", requestHandlers.Statuses)

			r.Post("/requests", requestHandlers.Create)
			r.Get("/requests", requestHandlers.List)
			r.Get("/requests/{id}", requestHandlers.Get)
			r.Get("/requests/{id}/history", requestHandlers.ListHistory)
			r.Patch("/requests/{id}/status", requestHandlers.PatchStatus)
			r.Post("/requests/{id}/cancel", requestHandlers.Cancel)

			r.Post("/requests/{id}/quote/decision", requestHandlers.DecideQuote)
			r.Post("/requests/{id}/execution-date/decision", requestHandlers.DecideDate)

			r.Post("/requests/{id}/attachments", attachmentHandlers.Upload)
			r.Get("/requests/{id}/attachments", attachmentHandlers.List)
			r.Delete("/requests/{id}/attachments/{attachmentID}", attachmentHandlers.Delete)

			r.Get("/routing/directions", routingHandlers.Directions)

			// Administrator operations
			r.Group(func(r chi.Router) {
				r.Use(auth.RequireRole(auth.RoleAdmin))

				r.Post("/requests/{id}/quote", requestHandlers.SendQuote)
				r.Post("/requests/{id}/execution-date", requestHandlers.ProposeDate)
				r.Post("/requests/{id}/assign", requestHandlers.Assign)
			})
		})

		// Portal: link-token endpoints used by a separate frontend domain.
		// Only allow CORS for explicitly configured origins.
		r.Route("/portal", func(r chi.Router) {
			r.Use(api.CORSMiddleware(api.CORSOptions{
				AllowedOrigins: deps.Cfg.PortalAllowedOrigins,
				AllowedMethods: []string{"GET", "POST", "OPTIONS"},
				AllowedHeaders: []string{"Content-Type"},
				MaxAgeSeconds:  600,
			}))

			r.Get("/{token}", portalHandlers.View)
			r.Post("/{token}/execution-date/decision", portalHandlers.DecideDate)
		})
	})

	return r
}
