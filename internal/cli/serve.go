package cli

import (
	"context"
	"io/fs"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	meetingintel "github.com/snarg/meeting-intel"
	"github.com/snarg/meeting-intel/internal/api"
	"github.com/snarg/meeting-intel/internal/credentials"
	"github.com/snarg/meeting-intel/internal/demo"
	"github.com/snarg/meeting-intel/internal/events"
	"github.com/snarg/meeting-intel/internal/metrics"
	"github.com/snarg/meeting-intel/internal/mqttclient"
	"github.com/snarg/meeting-intel/internal/pipeline"
	"github.com/snarg/meeting-intel/internal/session"
)

func NewServeCmd(deps *Dependencies) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and dashboard",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), deps)
		},
	}
	cmd.Flags().StringVar(&deps.overrides.HTTPAddr, "addr", "", "HTTP listen address (default :8080)")
	return cmd
}

func runServe(parent context.Context, deps *Dependencies) error {
	cfg := deps.Config
	log := deps.Log
	log.Info().Str("version", deps.Version).Msg("meeting-intel starting")

	// Context for graceful shutdown
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Credentials are resolved per run; this is only a startup report.
	resolver := credentials.NewResolver(cfg.SecretsFile)
	statuses, err := resolver.Status()
	if err != nil {
		log.Warn().Err(err).Msg("secrets file unreadable")
	}
	for _, s := range statuses {
		log.Info().Str("name", s.Name).Bool("resolvable", s.Resolvable).Str("source", string(s.Source)).Msg("credential")
	}

	// Sessions
	sessions := session.NewStore(cfg.SessionTTL, log)
	sessions.Start()
	defer sessions.Stop()

	// Demo corpus
	demoLog := log.With().Str("component", "demo").Logger()
	src, err := demoSource(cfg, demoLog)
	if err != nil {
		return err
	}
	corpus := demo.NewCorpus(src, demoLog)
	if _, err := corpus.Reload(ctx); err != nil {
		log.Warn().Err(err).Msg("demo corpus not loaded")
	}
	if dirSrc, ok := src.(*demo.DirSource); ok && cfg.DemoWatch {
		if dir := dirSrc.Dir(); dir != "" {
			w := demo.NewWatcher(dir, cfg.DemoPattern, func() {
				if _, err := corpus.Reload(ctx); err != nil {
					demoLog.Warn().Err(err).Msg("demo corpus reload failed")
				}
			}, demoLog)
			if err := w.Start(); err != nil {
				log.Warn().Err(err).Str("dir", dir).Msg("demo watcher not started")
			} else {
				defer w.Stop()
			}
		}
	}

	// MQTT (optional)
	var mqtt api.MQTTPublisher
	if cfg.MQTT.Enabled() {
		pub, err := mqttclient.Connect(mqttclient.Options{
			BrokerURL:   cfg.MQTT.BrokerURL,
			ClientID:    cfg.MQTT.ClientID,
			TopicPrefix: cfg.MQTT.TopicPrefix,
			Username:    cfg.MQTT.Username,
			Password:    cfg.MQTT.Password,
			Log:         log,
		})
		if err != nil {
			log.Error().Err(err).Str("broker", cfg.MQTT.BrokerURL).Msg("mqtt connect failed, run notifications disabled")
		} else {
			defer pub.Close()
			mqtt = pub
		}
	}

	web, err := fs.Sub(meetingintel.WebFiles, "web")
	if err != nil {
		return err
	}

	// HTTP Server
	httpLog := log.With().Str("component", "http").Logger()
	srv := api.NewServer(api.Deps{
		Config:    cfg,
		Builder:   pipeline.NewBuilder(cfg, resolver, log),
		Resolver:  resolver,
		Sessions:  sessions,
		Corpus:    corpus,
		Bus:       events.NewBus(256),
		MQTT:      mqtt,
		WebFS:     web,
		Version:   deps.Version,
		StartTime: deps.StartTime,
	}, httpLog)
	prometheus.MustRegister(metrics.NewCollector(srv.Stats()))

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	// Wait for shutdown signal or server error
	select {
	case <-ctx.Done():
		log.Info().Msg("shutdown signal received")
	case err := <-errCh:
		if err != nil {
			log.Error().Err(err).Msg("http server error")
			return err
		}
	}

	// Graceful shutdown; in-flight runs get the full write timeout.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.WriteTimeout+10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("http server shutdown error")
	}

	log.Info().Msg("meeting-intel stopped")
	return nil
}
