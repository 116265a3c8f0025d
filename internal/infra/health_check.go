package infra

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"

	"github.com/iamwavecut/guardbot/internal/db"
)

type statusResponse struct {
	Status    string `json:"status"`
	Bot       string `json:"bot"`
	Uptime    int64  `json:"uptime"`
	Groups    int64  `json:"groups"`
	Users     int64  `json:"users"`
	Timestamp string `json:"timestamp"`
}

type healthResponse struct {
	Status string  `json:"status"`
	Uptime float64 `json:"uptime"`
}

// HealthServer exposes process status, uptime and in-memory counts over a
// plain HTTP listener, plus prometheus metrics.
type HealthServer struct {
	store     db.Client
	startedAt time.Time
	srv       *http.Server
}

func NewHealthServer(store db.Client, port int) *HealthServer {
	h := &HealthServer{
		store:     store,
		startedAt: time.Now(),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/", h.handleStatus)
	mux.HandleFunc("/health", h.handleHealth)
	mux.Handle("/metrics", promhttp.Handler())

	h.srv = &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return h
}

func (h *HealthServer) Start(ctx context.Context) error {
	go func() {
		log.WithField("addr", h.srv.Addr).Info("health server listening")
		if err := h.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Error("health server failed")
		}
	}()
	return nil
}

func (h *HealthServer) Stop(ctx context.Context) error {
	return h.srv.Shutdown(ctx)
}

func (h *HealthServer) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}

	groups, err := h.store.CountChats(r.Context())
	if err != nil {
		log.WithError(err).Error("cant count chats for status")
	}
	users, err := h.store.CountUsers(r.Context())
	if err != nil {
		log.WithError(err).Error("cant count users for status")
	}

	writeJSON(w, statusResponse{
		Status:    "ok",
		Bot:       "guardbot",
		Uptime:    int64(time.Since(h.startedAt).Seconds()),
		Groups:    groups,
		Users:     users,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}

func (h *HealthServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, healthResponse{
		Status: "ok",
		Uptime: time.Since(h.startedAt).Seconds(),
	})
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.WithError(err).Error("cant encode response")
	}
}
