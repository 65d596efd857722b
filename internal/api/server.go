// Package api exposes search, duplicate resolution, bio classification and
// share ingestion over HTTP.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"go.uber.org/zap"

	"github.com/sells-group/placematch/internal/debounce"
	"github.com/sells-group/placematch/internal/metrics"
	"github.com/sells-group/placematch/internal/model"
	"github.com/sells-group/placematch/internal/share"
)

// Searcher runs the candidate search pipeline.
type Searcher interface {
	Search(ctx context.Context, q model.SearchQuery) ([]model.CandidatePlace, error)
}

// Resolver finds known duplicates of a place.
type Resolver interface {
	Resolve(ctx context.Context, candidate model.PlaceRecord) []model.DuplicateMatch
}

// BioClassifier scores profile biographies.
type BioClassifier interface {
	Classify(text string) model.BioSignalSet
}

// ShareWorkflow drives share sessions.
type ShareWorkflow interface {
	Ingest(ctx context.Context, p share.Payload) (*share.Session, error)
	Select(ctx context.Context, s *share.Session, candidate model.CandidatePlace) error
	Manual(draft model.PlaceRecord) (*share.Session, error)
	Persist(ctx context.Context, s *share.Session, authorRef string) (*model.PlaceRecord, error)
}

// Pinger reports store health.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Deps are the components the handlers call into.
type Deps struct {
	Search     Searcher
	Resolver   Resolver
	Classifier BioClassifier
	Share      ShareWorkflow

	// Health is optional; when nil /health only reports liveness.
	Health Pinger
}

// Options configures middleware.
type Options struct {
	CORSOrigins       []string
	RequestsPerMinute int
	DebounceQuiet     time.Duration
}

// Server holds the API handlers.
type Server struct {
	deps Deps
	opts Options
	live *debounce.Debouncer[[]model.CandidatePlace]
}

// NewServer creates a Server.
func NewServer(deps Deps, opts Options) *Server {
	if len(opts.CORSOrigins) == 0 {
		opts.CORSOrigins = []string{"*"}
	}
	return &Server{
		deps: deps,
		opts: opts,
		live: debounce.New[[]model.CandidatePlace](opts.DebounceQuiet),
	}
}

// Routes builds the chi router.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(requestLogger)
	r.Use(chimiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.opts.CORSOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Client-ID"},
		MaxAge:         300,
	}))

	r.Get("/health", s.health)
	r.Handle("/metrics", metrics.Handler())

	r.Route("/v1", func(r chi.Router) {
		if s.opts.RequestsPerMinute > 0 {
			r.Use(httprate.LimitByIP(s.opts.RequestsPerMinute, time.Minute))
		}

		r.Post("/search", s.search)
		r.Get("/search/live", s.searchLive)
		r.Post("/resolve", s.resolve)
		r.Post("/bio/classify", s.classifyBio)

		r.Post("/share", s.shareIngest)
		r.Post("/share/select", s.shareSelect)
		r.Post("/share/manual", s.shareManual)
		r.Post("/places/persist", s.persist)
	})

	return r
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		zap.L().Debug("api: request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("elapsed", time.Since(start)),
			zap.String("request_id", chimiddleware.GetReqID(r.Context())),
		)
	})
}
