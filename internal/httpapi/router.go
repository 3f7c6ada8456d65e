// Package httpapi exposes the link registry, the resolver and the
// description generator over HTTP.
package httpapi

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"

	"quicklook/internal/describe"
	"quicklook/internal/domain"
)

// LinkService is the subset of the registry used by the API.
type LinkService interface {
	Create(ctx context.Context, in domain.CreateInput) (domain.LinkRecord, error)
	Lookup(ctx context.Context, code string) (domain.LinkRecord, error)
}

// CodeResolver writes the negotiated response for a short code.
type CodeResolver interface {
	ServeCode(w http.ResponseWriter, r *http.Request, code string)
}

// Handler holds the dependencies of the HTTP handlers.
type Handler struct {
	links     LinkService
	resolver  CodeResolver
	describer describe.Describer
	log       logrus.FieldLogger
}

func NewHandler(links LinkService, resolver CodeResolver, describer describe.Describer, logger logrus.FieldLogger) *Handler {
	return &Handler{
		links:     links,
		resolver:  resolver,
		describer: describer,
		log:       logger.WithField("component", "httpapi"),
	}
}

// NewRouter wires the routes and middleware.
func NewRouter(h *Handler, logger logrus.FieldLogger) *chi.Mux {
	r := chi.NewRouter()

	r.Use(requestID)
	r.Use(accessLog(logger.WithField("component", "http")))
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))

	// Set before the sub-router is mounted so it inherits both handlers.
	r.NotFound(h.notFound)
	r.MethodNotAllowed(h.notFound)

	r.Get("/healthz", h.Health)
	r.Get("/s/{code}", h.Resolve)
	r.Route("/api", func(r chi.Router) {
		r.Post("/links", h.CreateLink)
		r.Get("/links/{code}", h.GetLink)
		r.Post("/describe", h.Describe)
	})
	return r
}
