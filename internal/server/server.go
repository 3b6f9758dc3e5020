// Package server exposes datasets over HTTP.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/KaramelBytes/minedash/internal/auth"
	"github.com/KaramelBytes/minedash/internal/dataset"
	"github.com/KaramelBytes/minedash/internal/pipeline"
	"github.com/KaramelBytes/minedash/internal/store"
	"github.com/KaramelBytes/minedash/internal/utils"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Options wires a Server.
type Options struct {
	Catalog  *dataset.Catalog
	Uploads  *store.Registry
	Resolver pipeline.Resolver
	Gate     *auth.Gate
	Origins  []string
	TopN     int
	Logger   *utils.Logger
}

// Server holds the dependencies shared by all handlers.
type Server struct {
	catalog  *dataset.Catalog
	uploads  *store.Registry
	resolver pipeline.Resolver
	gate     *auth.Gate
	origins  []string
	topN     int
	log      *utils.Logger
}

// New builds a Server. Catalog is required; Uploads may be nil to disable
// the admin routes.
func New(opt Options) *Server {
	s := &Server{
		catalog:  opt.Catalog,
		uploads:  opt.Uploads,
		resolver: opt.Resolver,
		gate:     opt.Gate,
		origins:  opt.Origins,
		topN:     opt.TopN,
		log:      opt.Logger,
	}
	if s.log == nil {
		s.log = utils.Discard()
	}
	s.log = s.log.With("http")
	if s.topN <= 0 {
		s.topN = pipeline.DefaultTopN
	}
	return s
}

// Routes builds the router.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.logRequests)
	r.Use(CORSMiddleware(s.origins))

	r.Get("/", RootHandler)
	r.Route("/datasets", func(r chi.Router) {
		r.Get("/", s.listDatasets)
		r.Route("/{name}", func(r chi.Router) {
			r.Get("/view", s.viewDataset)
			r.Get("/markers", s.markers)
			r.Get("/chart", s.chart)
			r.Get("/export.xlsx", s.exportXLSX)
		})
	})
	if s.uploads != nil {
		r.Mount("/admin", s.adminRoutes())
	}
	return r
}

func (s *Server) adminRoutes() http.Handler {
	r := chi.NewRouter()
	r.Post("/datasets", s.uploadDataset)
	r.Get("/datasets", s.listUploads)
	r.Get("/datasets/{name}", s.previewUpload)
	r.Delete("/datasets/{name}", s.removeUpload)
	return r
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		s.log.Info("listening on %s", addr)
		errCh <- srv.ListenAndServe()
	}()
	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("listen: %w", err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		s.log.Info("shutting down")
		return srv.Shutdown(shutdownCtx)
	}
}

// RootHandler answers health checks.
func RootHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	fmt.Fprintln(w, "minedash is up!")
}
