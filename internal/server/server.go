// Package server exposes the analysis pipeline over HTTP. Analyses run in the
// background and are polled by id.
package server

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/xaenox/gamer-card/internal/models"
	"github.com/xaenox/gamer-card/internal/pipeline"
	"github.com/xaenox/gamer-card/internal/storage"
)

// Runner is satisfied by *pipeline.Runner
type Runner interface {
	Run(ctx context.Context, reference string, observe pipeline.Observer) (*models.Analysis, error)
}

type Config struct {
	// AnalysisTimeout bounds one background run
	AnalysisTimeout time.Duration
	// RateLimit is the number of submissions allowed per IP per minute; 0 disables it
	RateLimit int
	// CORSOrigins lists browser origins allowed to call the API; empty disables CORS
	CORSOrigins []string
}

type Server struct {
	runner   Runner
	results  *storage.ResultStore
	config   Config
	validate *validator.Validate
	logger   *zap.Logger
	running  sync.WaitGroup
}

func New(runner Runner, results *storage.ResultStore, config Config, logger *zap.Logger) *Server {
	if config.AnalysisTimeout <= 0 {
		config.AnalysisTimeout = 3 * time.Minute
	}
	return &Server{
		runner:   runner,
		results:  results,
		config:   config,
		validate: validator.New(),
		logger:   logger,
	}
}

func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(chimiddleware.Recoverer)
	if len(s.config.CORSOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: s.config.CORSOrigins,
			AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
			AllowedHeaders: []string{"Content-Type"},
			ExposedHeaders: []string{"Location"},
			MaxAge:         300,
		}))
	}

	r.Get("/healthz", s.handleHealth)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1/analyses", func(r chi.Router) {
		r.With(s.rateLimit()).Post("/", s.handleSubmit)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", s.handleGet)
			r.Get("/card.png", s.handleImage(func(a *models.Analysis) []byte { return a.Card }))
			r.Get("/portrait.png", s.handleImage(func(a *models.Analysis) []byte { return a.Portrait }))
		})
	})

	return r
}

// Wait blocks until every background run started so far has finished
func (s *Server) Wait() {
	s.running.Wait()
}

func (s *Server) rateLimit() func(http.Handler) http.Handler {
	if s.config.RateLimit <= 0 {
		return func(next http.Handler) http.Handler { return next }
	}
	return httprate.Limit(
		s.config.RateLimit,
		time.Minute,
		httprate.WithKeyFuncs(httprate.KeyByIP),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			writeError(w, http.StatusTooManyRequests, "rate limit exceeded",
				"Too many analyses requested. Please wait a minute and try again.")
		}),
	)
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Debug("HTTP request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("duration", time.Since(start)),
			zap.String("request_id", chimiddleware.GetReqID(r.Context())))
	})
}
