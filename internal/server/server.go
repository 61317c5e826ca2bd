package server

import (
	"database/sql"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/ewhitaker/rallyup/internal/handler"
	"github.com/ewhitaker/rallyup/internal/leaderboard"
	"github.com/ewhitaker/rallyup/internal/middleware"
	"github.com/ewhitaker/rallyup/internal/model"
	"github.com/ewhitaker/rallyup/internal/photostore"
	"github.com/ewhitaker/rallyup/internal/store"
	ws "github.com/ewhitaker/rallyup/internal/websocket"
)

type Server struct {
	db           *sql.DB
	hub          *ws.Hub
	board        *leaderboard.Service
	authH        *handler.AuthHandler
	teamH        *handler.TeamHandler
	donationH    *handler.DonationHandler
	productH     *handler.ProductHandler
	photoH       *handler.PhotoHandler
	activityH    *handler.ActivityHandler
	adjustmentH  *handler.AdjustmentHandler
	leaderboardH *handler.LeaderboardHandler
	settingsH    *handler.SettingsHandler
	userH        *handler.UserHandler
	sessionStore *store.SessionStore
	userStore    *store.UserStore
	rateLimiter  *middleware.RateLimiter
	logger       *slog.Logger
}

func New(db *sql.DB, photos *photostore.Manager, logger *slog.Logger) *Server {
	hub := ws.NewHub(logger.With("component", "websocket"))

	teamStore := store.NewTeamStore(db)
	userStore := store.NewUserStore(db)
	sessionStore := store.NewSessionStore(db)
	donationStore := store.NewDonationStore(db)
	productStore := store.NewProductStore(db)
	saleStore := store.NewSaleStore(db)
	photoStore := store.NewPhotoStore(db)
	activityStore := store.NewActivityStore(db)
	pointStore := store.NewPointStore(db)
	settingsStore := store.NewSettingsStore(db)

	board := leaderboard.NewService(db, hub, logger.With("component", "leaderboard"))

	return &Server{
		db:           db,
		hub:          hub,
		board:        board,
		authH:        handler.NewAuthHandler(userStore, sessionStore, logger.With("component", "auth")),
		teamH:        handler.NewTeamHandler(teamStore, pointStore, board, hub, logger.With("component", "team")),
		donationH:    handler.NewDonationHandler(donationStore, teamStore, settingsStore, board, hub, logger.With("component", "donation")),
		productH:     handler.NewProductHandler(productStore, saleStore, teamStore, board, hub, logger.With("component", "product")),
		photoH:       handler.NewPhotoHandler(photoStore, teamStore, settingsStore, photos, board, hub, logger.With("component", "photo")),
		activityH:    handler.NewActivityHandler(activityStore, teamStore, board, hub, logger.With("component", "activity")),
		adjustmentH:  handler.NewAdjustmentHandler(pointStore, teamStore, board, hub, logger.With("component", "adjustment")),
		leaderboardH: handler.NewLeaderboardHandler(board, logger.With("component", "leaderboard")),
		settingsH:    handler.NewSettingsHandler(settingsStore, board, logger.With("component", "settings")),
		userH:        handler.NewUserHandler(userStore, sessionStore, teamStore, board, logger.With("component", "user")),
		sessionStore: sessionStore,
		userStore:    userStore,
		rateLimiter:  middleware.NewRateLimiter(),
		logger:       logger,
	}
}

// SessionStore returns the session store for cleanup tasks.
func (s *Server) SessionStore() *store.SessionStore {
	return s.sessionStore
}

// RateLimiter returns the rate limiter for cleanup tasks.
func (s *Server) RateLimiter() *middleware.RateLimiter {
	return s.rateLimiter
}

// Leaderboard returns the leaderboard service for the refresh scheduler.
func (s *Server) Leaderboard() *leaderboard.Service {
	return s.board
}

func (s *Server) Router() http.Handler {
	outerMux := http.NewServeMux()

	// Public routes (no auth required)
	outerMux.HandleFunc("POST /api/auth/login", s.rateLimitedHandler(s.authH.Login))
	outerMux.HandleFunc("GET /health", s.healthHandler)

	// Protected routes — wrapped with RequireAuth middleware
	protectedMux := http.NewServeMux()
	s.registerProtectedRoutes(protectedMux)

	authMiddleware := middleware.RequireAuth(s.sessionStore, s.userStore)
	outerMux.Handle("/", authMiddleware(protectedMux))

	return middleware.RequestLogger(s.logger.With("component", "http"))(outerMux)
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

func (s *Server) rateLimitedHandler(h http.HandlerFunc) http.HandlerFunc {
	keyFunc := func(r *http.Request) string {
		return middleware.RealIP(r)
	}
	rl := middleware.RateLimit(s.rateLimiter, keyFunc, 10, time.Minute)
	return func(w http.ResponseWriter, r *http.Request) {
		rl(http.HandlerFunc(h)).ServeHTTP(w, r)
	}
}

func (s *Server) registerProtectedRoutes(mux *http.ServeMux) {
	admin := middleware.RequireAdmin
	staff := middleware.RequireRole(model.RoleStaff)
	staffOrCoach := middleware.RequireRole(model.RoleStaff, model.RoleCoach)

	handle := func(pattern string, wrap func(http.Handler) http.Handler, h http.HandlerFunc) {
		mux.Handle(pattern, wrap(h))
	}

	// Auth
	mux.HandleFunc("POST /api/auth/logout", s.authH.Logout)
	mux.HandleFunc("GET /api/auth/me", s.authH.Me)

	// Leaderboard (any authenticated user)
	mux.HandleFunc("GET /api/leaderboard", s.leaderboardH.Get)
	mux.HandleFunc("GET /api/statistics", s.leaderboardH.Statistics)

	// Teams (admin)
	mux.HandleFunc("GET /api/teams", s.teamH.List)
	mux.HandleFunc("GET /api/teams/{id}", s.teamH.Get)
	handle("POST /api/teams", admin, s.teamH.Create)
	handle("PUT /api/teams/{id}", admin, s.teamH.Update)
	handle("DELETE /api/teams/{id}", admin, s.teamH.Delete)
	handle("POST /api/teams/{id}/reset-points", admin, s.teamH.ResetPoints)
	handle("GET /api/teams/{id}/points", staffOrCoach, s.adjustmentH.ListByTeam)

	// Donations
	handle("POST /api/donations", staffOrCoach, s.donationH.Create)
	mux.HandleFunc("GET /api/donations", s.donationH.List)

	// Products (admin manage) and sales (staff record)
	mux.HandleFunc("GET /api/products", s.productH.List)
	handle("POST /api/products", admin, s.productH.Create)
	handle("PUT /api/products/{id}", admin, s.productH.Update)
	handle("POST /api/sales", staff, s.productH.CreateSale)
	mux.HandleFunc("GET /api/sales", s.productH.ListSales)
	handle("DELETE /api/sales/{id}", admin, s.productH.DeleteSale)

	// Photos: any member may submit; coach/staff/admin review
	mux.HandleFunc("POST /api/photos", s.photoH.Create)
	mux.HandleFunc("GET /api/photos", s.photoH.List)
	handle("POST /api/photos/{id}/approve", staffOrCoach, s.photoH.Approve)
	handle("POST /api/photos/{id}/reject", staffOrCoach, s.photoH.Reject)

	// Activities
	mux.HandleFunc("GET /api/activities", s.activityH.List)
	handle("POST /api/activities", staff, s.activityH.Create)
	handle("PUT /api/activities/{id}", staff, s.activityH.Update)
	mux.HandleFunc("POST /api/activities/{id}/submissions", s.activityH.CreateSubmission)
	mux.HandleFunc("GET /api/activity-submissions", s.activityH.ListSubmissions)
	handle("POST /api/activity-submissions/{id}/approve", staffOrCoach, s.activityH.ApproveSubmission)
	handle("POST /api/activity-submissions/{id}/reject", staffOrCoach, s.activityH.RejectSubmission)

	// Manual point awards
	handle("POST /api/points/adjustments", staff, s.adjustmentH.Create)

	// Settings (admin)
	handle("GET /api/settings", admin, s.settingsH.Get)
	handle("PUT /api/settings", admin, s.settingsH.Update)

	// Users (admin)
	handle("GET /api/users", admin, s.userH.List)
	handle("POST /api/users", admin, s.userH.Create)
	handle("PUT /api/users/{id}", admin, s.userH.Update)
	handle("DELETE /api/users/{id}", admin, s.userH.Delete)

	// WebSocket
	mux.HandleFunc("GET /ws", ws.HandleWebSocket(s.hub))
}
