package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/goliatone/go-library-catalog/readcache"
	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// Prefix is the path prefix of the library routes.
const Prefix = "/lib"

// RequestObserver records served requests, typically as metrics.
type RequestObserver interface {
	ObserveRequest(route string, status int, elapsed time.Duration)
}

// Server serves the catalog routes.
type Server struct {
	db       readcache.Scoper
	reader   readcache.Reader
	logger   *zap.Logger
	observer RequestObserver
	metrics  http.Handler
	health   func(ctx context.Context) error
	version  string
	router   *mux.Router
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the request logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithRequestObserver registers a RequestObserver.
func WithRequestObserver(o RequestObserver) Option {
	return func(s *Server) { s.observer = o }
}

// WithMetricsHandler serves h on /metrics.
func WithMetricsHandler(h http.Handler) Option {
	return func(s *Server) { s.metrics = h }
}

// WithHealthCheck makes /healthz report the result of check.
func WithHealthCheck(check func(ctx context.Context) error) Option {
	return func(s *Server) { s.health = check }
}

// WithVersion sets the version shown on the home page.
func WithVersion(v string) Option {
	return func(s *Server) { s.version = v }
}

// New returns a Server writing through db and reading through reader.
func New(db readcache.Scoper, reader readcache.Reader, opts ...Option) *Server {
	s := &Server{
		db:      db,
		reader:  reader,
		logger:  zap.NewNop(),
		version: "dev",
	}
	for _, opt := range opts {
		opt(s)
	}
	s.router = s.routes()
	return s
}

func (s *Server) routes() *mux.Router {
	r := mux.NewRouter()
	r.Use(s.observe)
	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.writeError(w, r, errRoute)
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusMethodNotAllowed, errorBody{Error: "method not allowed", Status: http.StatusMethodNotAllowed})
	})

	r.HandleFunc("/", s.home).Methods(http.MethodGet)
	r.HandleFunc("/healthz", s.healthz).Methods(http.MethodGet)
	if s.metrics != nil {
		r.Handle("/metrics", s.metrics).Methods(http.MethodGet)
	}

	lib := r.PathPrefix(Prefix + "/{item}").Subrouter()
	lib.HandleFunc("/create", s.createRecord).Methods(http.MethodGet, http.MethodPost)
	lib.HandleFunc("/find", s.findByName).Methods(http.MethodGet)
	lib.HandleFunc("/index", s.indexRecords).Methods(http.MethodGet)
	lib.HandleFunc("/{id:[0-9]+}", s.readRecord).Methods(http.MethodGet)
	lib.HandleFunc("/{id:[0-9]+}/update", s.updateRecord).Methods(http.MethodGet, http.MethodPost)
	lib.HandleFunc("/{id:[0-9]+}/delete", s.deleteRecord).Methods(http.MethodGet, http.MethodPost)
	return r
}

// Handler returns the routes wrapped with panic recovery.
func (s *Server) Handler() http.Handler {
	recovery := handlers.RecoveryHandler(
		handlers.RecoveryLogger(zap.NewStdLog(s.logger.Named("recovery"))),
		handlers.PrintRecoveryStack(true),
	)
	return recovery(s.router)
}

// HTTPServer returns an http.Server for addr serving Handler.
func (s *Server) HTTPServer(addr string, readTimeout, writeTimeout time.Duration) *http.Server {
	return &http.Server{
		Addr:         addr,
		Handler:      s.Handler(),
		ReadTimeout:  readTimeout,
		WriteTimeout: writeTimeout,
		ErrorLog:     zap.NewStdLog(s.logger.Named("http")),
	}
}
