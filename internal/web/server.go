// Package web serves the storefront pages, wallet endpoints and operational
// endpoints over HTTP.
package web

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"drop-storefront/internal/content"
	"drop-storefront/internal/domain"
	"drop-storefront/internal/observability"
	"drop-storefront/internal/storefront"
	"drop-storefront/internal/wallet"
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed static
var staticFS embed.FS

// CollectionSource loads collections by slug.
type CollectionSource interface {
	FetchCollection(ctx context.Context, slug string) (*domain.Collection, error)
}

// Config holds the server's collaborators.
type Config struct {
	Content  CollectionSource
	Images   *content.ImageBuilder
	Registry *storefront.Registry
	Wallet   *wallet.Connector
	Sessions *SessionManager
	Recorder *storefront.Recorder
	Logger   *zap.Logger

	// BaseContext outlives requests; background mints run under it.
	BaseContext context.Context
	// Status is merged into the /status response.
	Status func() map[string]any
}

// Server is the storefront HTTP handler.
type Server struct {
	content  CollectionSource
	registry *storefront.Registry
	wallet   *wallet.Connector
	sessions *SessionManager
	recorder *storefront.Recorder
	logger   *zap.Logger
	baseCtx  context.Context
	status   func() map[string]any

	templates *template.Template
	started   time.Time
	mints     sync.WaitGroup
	router    chi.Router
}

// NewServer builds the router and parses the embedded templates.
func NewServer(cfg Config) (*Server, error) {
	if cfg.Content == nil || cfg.Registry == nil || cfg.Wallet == nil || cfg.Sessions == nil {
		return nil, errors.New("web: content, registry, wallet and sessions are required")
	}
	if cfg.Images == nil {
		cfg.Images = content.NewImageBuilder(content.DefaultConfig())
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.BaseContext == nil {
		cfg.BaseContext = context.Background()
	}

	tmpl, err := template.New("storefront").Funcs(template.FuncMap{
		"imageURL": cfg.Images.URL,
		"dict":     dict,
	}).ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}

	s := &Server{
		content:   cfg.Content,
		registry:  cfg.Registry,
		wallet:    cfg.Wallet,
		sessions:  cfg.Sessions,
		recorder:  cfg.Recorder,
		logger:    cfg.Logger.Named("web"),
		baseCtx:   cfg.BaseContext,
		status:    cfg.Status,
		templates: tmpl,
		started:   time.Now(),
	}
	s.router = s.routes()
	return s, nil
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Wait blocks until every background mint has settled.
func (s *Server) Wait() {
	s.mints.Wait()
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Handle("/metrics", observability.Handler())
	r.Get("/status", s.handleStatus)

	static, _ := fs.Sub(staticFS, "static")
	r.Handle("/static/*", http.StripPrefix("/static/", http.FileServer(http.FS(static))))

	r.Group(func(r chi.Router) {
		r.Use(s.sessions.Middleware)

		r.Route("/nft/{slug}", func(r chi.Router) {
			r.Get("/", s.handlePage)
			r.Get("/state", s.handleState)
			r.Post("/mint", s.handleMint)
			r.Post("/modal/close", s.handleCloseModal)
			r.Post("/notifications/{id}/dismiss", s.handleDismiss)
		})

		r.Route("/wallet", func(r chi.Router) {
			r.Post("/challenge", s.handleChallenge)
			r.Post("/connect", s.handleConnect)
			r.Post("/disconnect", s.handleDisconnect)
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		s.renderNotFound(w)
	})
	return r
}

// requestLogger logs one line per request.
func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Debug("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("elapsed", time.Since(start)),
			zap.String("request_id", middleware.GetReqID(r.Context())),
		)
	})
}

// dict builds a map from alternating keys and values for template partials.
func dict(kv ...any) (map[string]any, error) {
	if len(kv)%2 != 0 {
		return nil, errors.New("dict: odd number of arguments")
	}
	m := make(map[string]any, len(kv)/2)
	for i := 0; i < len(kv); i += 2 {
		key, ok := kv[i].(string)
		if !ok {
			return nil, fmt.Errorf("dict: key %v is not a string", kv[i])
		}
		m[key] = kv[i+1]
	}
	return m, nil
}
