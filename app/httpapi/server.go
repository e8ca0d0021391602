// Package httpapi serves health, metrics and a read-only leaderboard API.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	activityservice "github.com/Black-And-White-Club/activity-bot/app/modules/activity/application"
	commandhandlers "github.com/Black-And-White-Club/activity-bot/app/modules/commands"
	"github.com/Black-And-White-Club/activity-bot/app/shared/platform"
	"github.com/Black-And-White-Club/activity-bot/internal/observability/attr"
	"github.com/Black-And-White-Club/activity-bot/internal/results"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"
)

// Queries is the read side of the activity service.
type Queries interface {
	Leaderboard(ctx context.Context, limit int) ([]activityservice.LeaderboardEntry, error)
	GetUser(ctx context.Context, userID platform.UserID) (results.OperationResult[activityservice.UserView, activityservice.Failure], error)
	InactivityReport(ctx context.Context, cutoff time.Time) ([]activityservice.InactiveUser, error)
}

// Config configures the HTTP server.
type Config struct {
	Address        string
	JWTSecret      string
	RateLimit      float64
	RateBurst      int
	AllowedOrigins []string
	InactiveAfter  time.Duration
}

// Server is the HTTP surface.
type Server struct {
	cfg     Config
	queries Queries
	logger  *slog.Logger
	cutoffs *commandhandlers.CutoffParser
	router  chi.Router
	now     func() time.Time
}

// NewServer builds the router. /metrics serves gatherer; the API routes
// are mounted only when a JWT secret is configured.
func NewServer(cfg Config, queries Queries, gatherer prometheus.Gatherer, logger *slog.Logger) *Server {
	if cfg.RateLimit <= 0 {
		cfg.RateLimit = 5
	}
	if cfg.RateBurst <= 0 {
		cfg.RateBurst = 10
	}
	s := &Server{
		cfg:     cfg,
		queries: queries,
		logger:  logger,
		cutoffs: commandhandlers.NewCutoffParser(cfg.InactiveAfter),
		now:     time.Now,
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	if gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	}

	if cfg.JWTSecret != "" {
		limiter := NewClientLimiter(rate.Limit(cfg.RateLimit), cfg.RateBurst, DefaultClientIdleTTL)
		validator := NewTokenValidator(cfg.JWTSecret)
		r.Route("/api/v1", func(r chi.Router) {
			r.Use(CORSMiddleware(cfg.AllowedOrigins))
			r.Use(AuthMiddleware(validator))
			r.Use(RateLimitMiddleware(limiter))

			r.Get("/leaderboard", s.handleLeaderboard)
			r.Get("/leaderboard.png", s.handleLeaderboardChart)
			r.Get("/leaderboard.xlsx", s.handleLeaderboardSheet)
			r.Get("/users/{userID}", s.handleUser)
			r.Get("/inactive", s.handleInactive)
		})
	}
	s.router = r
	return s
}

// Handler exposes the router.
func (s *Server) Handler() http.Handler { return s.router }

// Run serves until ctx is done, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Address,
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("HTTP server listening", attr.String("address", s.cfg.Address))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

type leaderboardItem struct {
	Position int    `json:"position"`
	UserID   string `json:"user_id"`
	Score    int64  `json:"score"`
	Rank     string `json:"rank,omitempty"`
}

type userItem struct {
	UserID        string     `json:"user_id"`
	Score         int64      `json:"score"`
	Rank          string     `json:"rank,omitempty"`
	FirstSeenAt   time.Time  `json:"first_seen_at"`
	LastMessageAt *time.Time `json:"last_message_at,omitempty"`
}

type inactiveItem struct {
	UserID        string    `json:"user_id"`
	Score         int64     `json:"score"`
	LastMessageAt time.Time `json:"last_message_at"`
	DaysInactive  int       `json:"days_inactive"`
}

func (s *Server) leaderboard(w http.ResponseWriter, r *http.Request) ([]activityservice.LeaderboardEntry, bool) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			http.Error(w, "limit must be a number", http.StatusBadRequest)
			return nil, false
		}
		limit = n
	}
	entries, err := s.queries.Leaderboard(r.Context(), limit)
	if err != nil {
		s.serverError(w, r, err)
		return nil, false
	}
	return entries, true
}

func (s *Server) handleLeaderboard(w http.ResponseWriter, r *http.Request) {
	entries, ok := s.leaderboard(w, r)
	if !ok {
		return
	}
	items := make([]leaderboardItem, len(entries))
	for i, e := range entries {
		items[i] = leaderboardItem{Position: e.Position, UserID: string(e.UserID), Score: e.Score, Rank: e.Tier}
	}
	s.writeJSON(w, items)
}

func (s *Server) handleLeaderboardChart(w http.ResponseWriter, r *http.Request) {
	entries, ok := s.leaderboard(w, r)
	if !ok {
		return
	}
	png, err := RenderLeaderboardChart(entries)
	if err != nil {
		s.serverError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	_, _ = w.Write(png)
}

func (s *Server) handleLeaderboardSheet(w http.ResponseWriter, r *http.Request) {
	entries, ok := s.leaderboard(w, r)
	if !ok {
		return
	}
	body, err := RenderLeaderboardSheet(entries)
	if err != nil {
		s.serverError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="leaderboard.xlsx"`)
	_, _ = w.Write(body)
}

func (s *Server) handleUser(w http.ResponseWriter, r *http.Request) {
	userID := platform.UserID(chi.URLParam(r, "userID"))
	res, err := s.queries.GetUser(r.Context(), userID)
	if err != nil {
		s.serverError(w, r, err)
		return
	}
	if res.IsFailure() {
		http.Error(w, res.Failure.Message, http.StatusNotFound)
		return
	}
	u := res.Success
	s.writeJSON(w, userItem{
		UserID:        string(u.UserID),
		Score:         u.Score,
		Rank:          u.Tier,
		FirstSeenAt:   u.FirstSeenAt,
		LastMessageAt: u.LastMessageAt,
	})
}

func (s *Server) handleInactive(w http.ResponseWriter, r *http.Request) {
	cutoff, err := s.cutoffs.Parse(r.URL.Query().Get("since"), s.now())
	if err != nil {
		http.Error(w, "since: "+err.Error(), http.StatusBadRequest)
		return
	}
	users, err := s.queries.InactivityReport(r.Context(), cutoff)
	if err != nil {
		s.serverError(w, r, err)
		return
	}
	items := make([]inactiveItem, len(users))
	for i, u := range users {
		items[i] = inactiveItem{UserID: string(u.UserID), Score: u.Score, LastMessageAt: u.LastMessageAt, DaysInactive: u.DaysInactive}
	}
	s.writeJSON(w, items)
}

func (s *Server) writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Warn("Failed to write response", attr.Error(err))
	}
}

func (s *Server) serverError(w http.ResponseWriter, r *http.Request, err error) {
	s.logger.ErrorContext(r.Context(), "HTTP request failed",
		attr.String("path", r.URL.Path),
		attr.String("request_id", middleware.GetReqID(r.Context())),
		attr.Error(err),
	)
	http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
}
