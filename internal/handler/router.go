package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/sponsorlink/marketplace/backend/internal/handler/chat"
	"github.com/sponsorlink/marketplace/backend/internal/handler/playbook"
	"github.com/sponsorlink/marketplace/backend/internal/handler/stream"
	"github.com/sponsorlink/marketplace/backend/internal/handler/ws"
	middlewarePkg "github.com/sponsorlink/marketplace/backend/internal/middleware"
	chatService "github.com/sponsorlink/marketplace/backend/internal/service/chat"
	"github.com/sponsorlink/marketplace/backend/pkg/utils"
)

// RouterOptions carries the collaborators the router wires in.
type RouterOptions struct {
	Logger           *zap.Logger
	Limiter          *middlewarePkg.RateLimiter
	SubscriberBuffer int
}

// NewRouter wires HTTP routes to core services.
func NewRouter(chatSvc *chatService.Service, opts RouterOptions) http.Handler {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middlewarePkg.RequestLogger(logger))
	r.Use(middleware.Recoverer)
	r.Use(middlewarePkg.CORS)

	var (
		limiter func(http.Handler) http.Handler
		allow   func(string) bool
	)
	if opts.Limiter != nil {
		limiter = opts.Limiter.PerSession
		allow = opts.Limiter.Allow
	}

	playbookHandler := playbook.New(chatSvc.Playbooks())
	chatHandler := chat.New(chatSvc, limiter)
	streamHandler := stream.New(chatSvc, logger, opts.SubscriberBuffer)
	wsHandler := ws.New(chatSvc, logger, opts.SubscriberBuffer, allow)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		utils.RespondJSON(w, http.StatusOK, map[string]any{
			"status":   "ok",
			"sessions": chatSvc.Len(),
		})
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api", func(api chi.Router) {
		playbookHandler.RegisterRoutes(api)
		chatHandler.RegisterRoutes(api)
		streamHandler.RegisterRoutes(api)
		wsHandler.RegisterRoutes(api)
	})

	return r
}
