package admin

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/digkill/TGCreatorPayBot/internal/models"
	"github.com/digkill/TGCreatorPayBot/internal/service"
)

// Exporter snapshots the submission ledger to external storage and
// returns the location of the snapshot.
type Exporter interface {
	Export(ctx context.Context) (string, error)
}

type Server struct {
	addr     string
	username string
	password string
	log      *slog.Logger
	users    *service.UserService
	subs     *service.SubmissionService
	exporter Exporter
	router   *chi.Mux
}

func NewServer(addr, username, password string, log *slog.Logger, users *service.UserService, subs *service.SubmissionService, exporter Exporter) *Server {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	s := &Server{
		addr:     addr,
		username: username,
		password: password,
		log:      log,
		users:    users,
		subs:     subs,
		exporter: exporter,
		router:   r,
	}
	r.Group(func(protected chi.Router) {
		protected.Use(s.basicAuthMiddleware())
		protected.Get("/submissions", s.handleListSubmissions)
		protected.Get("/balances", s.handleBalances)
		protected.Post("/reconcile", s.handleReconcile)
		protected.Post("/export", s.handleExport)
	})
	return s
}

func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:         s.addr,
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.log.Error("admin shutdown error", "err", err)
		}
	}()

	s.log.Info("admin panel listening", "addr", s.addr)
	if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("admin listen: %w", err)
	}
	return nil
}

type submissionResponse struct {
	ID        string `json:"id"`
	UserID    string `json:"user_id"`
	Platform  string `json:"platform"`
	Link      string `json:"link"`
	Views     int64  `json:"views"`
	Qualified bool   `json:"qualified"`
	Amount    string `json:"amount"`
	CreatedAt string `json:"created_at"`
}

func (s *Server) handleListSubmissions(w http.ResponseWriter, r *http.Request) {
	limit := 10
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			http.Error(w, "invalid limit", http.StatusBadRequest)
			return
		}
		limit = parsed
	}
	subs, err := s.subs.ListRecent(r.Context(), limit)
	if err != nil {
		s.internalError(w, err)
		return
	}
	out := make([]submissionResponse, 0, len(subs))
	for _, sub := range subs {
		out = append(out, toSubmissionResponse(sub))
	}
	s.writeJSON(w, http.StatusOK, out)
}

type balanceResponse struct {
	UserID   string `json:"user_id"`
	FullName string `json:"full_name"`
	Balance  string `json:"balance"`
}

func (s *Server) handleBalances(w http.ResponseWriter, r *http.Request) {
	users, err := s.users.ListBalances(r.Context())
	if err != nil {
		s.internalError(w, err)
		return
	}
	outstanding, err := s.users.Outstanding(r.Context())
	if err != nil {
		s.internalError(w, err)
		return
	}
	balances := make([]balanceResponse, 0, len(users))
	for _, u := range users {
		balances = append(balances, balanceResponse{
			UserID:   u.ExternalID,
			FullName: u.FullName,
			Balance:  u.Balance.StringFixed(2),
		})
	}
	s.writeJSON(w, http.StatusOK, map[string]any{
		"balances":    balances,
		"outstanding": outstanding.StringFixed(2),
	})
}

func (s *Server) handleReconcile(w http.ResponseWriter, r *http.Request) {
	checked, err := s.users.ReconcileAll(r.Context())
	if err != nil {
		s.internalError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"checked": checked})
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	if s.exporter == nil {
		http.Error(w, "export storage not configured", http.StatusServiceUnavailable)
		return
	}
	url, err := s.exporter.Export(r.Context())
	if err != nil {
		s.internalError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"url": url})
}

func (s *Server) basicAuthMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, pass, ok := r.BasicAuth()
			if !ok || user != s.username || pass != s.password {
				w.Header().Set("WWW-Authenticate", `Basic realm="creatorpaybot"`)
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (s *Server) internalError(w http.ResponseWriter, err error) {
	s.log.Error("admin handler error", "err", err)
	http.Error(w, "internal error", http.StatusInternalServerError)
}

func toSubmissionResponse(sub models.Submission) submissionResponse {
	return submissionResponse{
		ID:        sub.ID,
		UserID:    sub.UserID,
		Platform:  sub.Platform,
		Link:      sub.Link,
		Views:     sub.Views,
		Qualified: sub.Qualified,
		Amount:    sub.Amount.StringFixed(2),
		CreatedAt: sub.CreatedAt.Format(time.RFC3339),
	}
}
