package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	callHandler "github.com/pcheng/callscribe/internal/handler/call"
	middlewarePkg "github.com/pcheng/callscribe/internal/middleware"
	"github.com/pcheng/callscribe/internal/service/pipeline"
	"github.com/pcheng/callscribe/pkg/utils"
)

// NewRouter wires HTTP routes to the call pipeline.
func NewRouter(registry *pipeline.Registry, hub *pipeline.Hub, exec *pipeline.Executor) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middlewarePkg.CORS)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		utils.RespondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api", func(api chi.Router) {
		callHandler.New(registry, hub, exec).RegisterRoutes(api)
	})

	return r
}
