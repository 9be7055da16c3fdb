package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/snarg/meeting-intel/internal/credentials"
	"github.com/snarg/meeting-intel/internal/demo"
)

type HealthResponse struct {
	Status        string            `json:"status"`
	Version       string            `json:"version"`
	UptimeSeconds int64             `json:"uptime_seconds"`
	Checks        map[string]string `json:"checks"`
}

// ConnChecker reports broker connectivity.
type ConnChecker interface {
	IsConnected() bool
}

type HealthHandler struct {
	resolver  *credentials.Resolver
	corpus    *demo.Corpus
	mqtt      ConnChecker
	version   string
	startTime time.Time
}

// NewHealthHandler creates the handler. corpus and mqtt may be nil.
func NewHealthHandler(resolver *credentials.Resolver, corpus *demo.Corpus, mqtt ConnChecker, version string, startTime time.Time) *HealthHandler {
	return &HealthHandler{
		resolver:  resolver,
		corpus:    corpus,
		mqtt:      mqtt,
		version:   version,
		startTime: startTime,
	}
}

// ServeHTTP reports "degraded" when processing cannot start or the broker is
// down. The service itself has no hard dependencies, so it always answers 200.
func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	checks := make(map[string]string)
	status := "healthy"

	if h.resolver != nil {
		if h.resolver.Get(credentials.OpenAIKey) != "" {
			checks["openai_key"] = "ok"
		} else {
			checks["openai_key"] = "missing"
			status = "degraded"
		}
		if h.resolver.Get(credentials.AssemblyAIKey) != "" {
			checks["assemblyai_key"] = "ok"
		} else {
			checks["assemblyai_key"] = "missing"
		}
	}

	if h.mqtt != nil {
		if h.mqtt.IsConnected() {
			checks["mqtt"] = "ok"
		} else {
			checks["mqtt"] = "disconnected"
			status = "degraded"
		}
	} else {
		checks["mqtt"] = "not_configured"
	}

	if h.corpus != nil {
		checks["demo_corpus"] = strconv.Itoa(h.corpus.Len()) + " records"
	} else {
		checks["demo_corpus"] = "not_configured"
	}

	WriteJSON(w, http.StatusOK, HealthResponse{
		Status:        status,
		Version:       h.version,
		UptimeSeconds: int64(time.Since(h.startTime).Seconds()),
		Checks:        checks,
	})
}
