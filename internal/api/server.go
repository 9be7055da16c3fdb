package api

import (
	"context"
	"io/fs"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/snarg/meeting-intel/internal/config"
	"github.com/snarg/meeting-intel/internal/credentials"
	"github.com/snarg/meeting-intel/internal/demo"
	"github.com/snarg/meeting-intel/internal/events"
	"github.com/snarg/meeting-intel/internal/metrics"
	"github.com/snarg/meeting-intel/internal/session"
)

// MQTTPublisher is the optional run-notification broker connection.
type MQTTPublisher interface {
	RunPublisher
	ConnChecker
}

// Deps are the long-lived components the HTTP API serves. Corpus, MQTT and
// WebFS may be nil.
type Deps struct {
	Config    *config.Config
	Builder   RunConfigBuilder
	Resolver  *credentials.Resolver
	Sessions  *session.Store
	Corpus    *demo.Corpus
	Bus       *events.Bus
	MQTT      MQTTPublisher
	WebFS     fs.FS
	Version   string
	StartTime time.Time
}

type Server struct {
	http     *http.Server
	handler  http.Handler
	events   *EventsHandler
	notifier *Notifier
	stats    *liveStats
	log      zerolog.Logger
}

func NewServer(d Deps, log zerolog.Logger) *Server {
	cfg := d.Config

	var pub RunPublisher
	var conn ConnChecker
	if d.MQTT != nil {
		pub, conn = d.MQTT, d.MQTT
	}
	notifier := NewNotifier(d.Bus, pub, log)
	process := NewProcessHandler(d.Builder, d.Sessions, notifier, cfg.MaxConcurrentRuns, cfg.TempDir, cfg.UploadMaxMB, log)
	stream := NewEventsHandler(d.Bus)

	r := chi.NewRouter()

	// Global middleware
	r.Use(RequestID)
	r.Use(Logger(log))
	r.Use(Recoverer)
	r.Use(metrics.InstrumentHandler)
	r.Use(CORS)

	// Unauthenticated
	r.Get("/api/v1/health", NewHealthHandler(d.Resolver, d.Corpus, conn, d.Version, d.StartTime).ServeHTTP)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(BearerAuth(cfg.AuthToken))
		process.Routes(r)
		NewSessionHandler(d.Sessions, d.Corpus, log).Routes(r)
		NewDemoHandler(d.Corpus, log).Routes(r)
		stream.Routes(r)
		r.Get("/credentials", CredentialsHandler(d.Resolver, cfg.SecretsFile))
	})

	if d.WebFS != nil {
		r.Handle("/*", http.FileServer(http.FS(d.WebFS)))
	}

	return &Server{
		http: &http.Server{
			Addr:         cfg.HTTPAddr,
			Handler:      r,
			ReadTimeout:  cfg.ReadTimeout,
			WriteTimeout: cfg.WriteTimeout,
			IdleTimeout:  cfg.IdleTimeout,
		},
		handler:  r,
		events:   stream,
		notifier: notifier,
		stats: &liveStats{
			sessions: d.Sessions,
			process:  process,
			bus:      d.Bus,
			corpus:   d.Corpus,
		},
		log: log,
	}
}

// Handler returns the router, for tests and embedding.
func (s *Server) Handler() http.Handler { return s.handler }

// Stats exposes live counters for the scrape-time metrics collector.
func (s *Server) Stats() metrics.LiveStats { return s.stats }

func (s *Server) Start() error {
	s.log.Info().Str("addr", s.http.Addr).Msg("http server starting")
	err := s.http.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info().Msg("http server shutting down")
	s.events.Close()
	err := s.http.Shutdown(ctx)
	if nerr := s.notifier.Close(ctx); nerr != nil && err == nil {
		err = nerr
	}
	return err
}

type liveStats struct {
	sessions *session.Store
	process  *ProcessHandler
	bus      *events.Bus
	corpus   *demo.Corpus
}

func (l *liveStats) ActiveSessions() int {
	if l.sessions == nil {
		return 0
	}
	return l.sessions.Len()
}

func (l *liveStats) RunsInFlight() int { return l.process.RunsInFlight() }

func (l *liveStats) SSESubscriberCount() int {
	if l.bus == nil {
		return 0
	}
	return l.bus.SubscriberCount()
}

func (l *liveStats) DemoRecordCount() int {
	if l.corpus == nil {
		return 0
	}
	return l.corpus.Len()
}
