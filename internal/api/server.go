// Package api exposes the status and admin HTTP surface: health, metrics,
// read-only economy queries, and token-guarded admin adjustments.
package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/betterhood/hoodbot/internal/config"
	"github.com/betterhood/hoodbot/internal/metrics"
	mW "github.com/betterhood/hoodbot/internal/middleware"
	"github.com/betterhood/hoodbot/internal/services"
)

type Server struct {
	economy *services.Economy
	tracker *services.Tracker
	cfg     config.APIConfig
	log     *zap.Logger
}

func NewServer(economy *services.Economy, tracker *services.Tracker, collector *metrics.Collector, cfg config.APIConfig, log *zap.Logger) *http.Server {
	s := &Server{economy: economy, tracker: tracker, cfg: cfg, log: log}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"https://*", "http://*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
		MaxAge:         86400,
	}))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
	})
	r.Handle("/metrics", collector.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/leaderboard", s.handleLeaderboard)
		r.Get("/accounts/{userID}/balance", s.handleBalance)
		r.Post("/admin/token", s.handleToken)

		r.Group(func(r chi.Router) {
			r.Use(mW.Auth(cfg.JWTSecret))
			r.Post("/admin/adjust", s.handleAdjust)
		})
	})

	return &http.Server{
		Addr:         cfg.Addr,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
}

func (s *Server) handleBalance(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")

	account, err := s.economy.Balance(r.Context(), userID)
	if err != nil {
		s.log.Error("balance query failed", zap.String("user_id", userID), zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "balance lookup failed"})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"user_id": account.UserID,
		"wallet":  account.Wallet,
		"bank":    account.Bank,
	})
}

func (s *Server) handleLeaderboard(w http.ResponseWriter, r *http.Request) {
	board, err := s.tracker.Leaderboard(r.Context(), 10)
	if err != nil {
		s.log.Error("leaderboard query failed", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "leaderboard lookup failed"})
		return
	}
	writeJSON(w, http.StatusOK, board)
}

type tokenRequest struct {
	Secret string `json:"secret"`
}

func (s *Server) handleToken(w http.ResponseWriter, r *http.Request) {
	var req tokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if s.cfg.AdminSecret == "" || req.Secret != s.cfg.AdminSecret {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "invalid admin secret"})
		return
	}

	token, err := mW.IssueToken(s.cfg.JWTSecret, s.cfg.JWTExpiry)
	if err != nil {
		s.log.Error("failed to sign admin token", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "token signing failed"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"token": token})
}

type adjustRequest struct {
	UserID string `json:"user_id"`
	Wallet int64  `json:"wallet"`
	Bank   int64  `json:"bank"`
	Reason string `json:"reason"`
}

func (s *Server) handleAdjust(w http.ResponseWriter, r *http.Request) {
	var req adjustRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.UserID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	if err := s.economy.AdminAdjust(r.Context(), req.UserID, req.Wallet, req.Bank, req.Reason); err != nil {
		s.log.Error("admin adjustment failed", zap.String("user_id", req.UserID), zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "adjustment failed"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}
