package server

import (
	"context"
	"net/http"
	"time"

	"github.com/mentorway/mentorway-be/internal/auth"
	"github.com/mentorway/mentorway-be/internal/booking"
	"github.com/mentorway/mentorway-be/internal/chat"
	"github.com/mentorway/mentorway-be/internal/config"
	"github.com/mentorway/mentorway-be/internal/http/handlers"
	"github.com/mentorway/mentorway-be/internal/middleware"
	"github.com/mentorway/mentorway-be/internal/notify"
	"github.com/mentorway/mentorway-be/internal/payments"
	"github.com/mentorway/mentorway-be/internal/storage"
	"github.com/mentorway/mentorway-be/internal/uploads"
)

// Server wraps an http.Server with configured routes.
type Server struct {
	inner *http.Server
}

// New wires up middleware, routes, and returns a ready server.
func New(cfg config.Config, store storage.Store, notifier notify.Notifier, up uploads.Store) *Server {
	mux := http.NewServeMux()
	tokens := auth.NewTokenManager(cfg.JWTSecret, cfg.JWTIssuer, cfg.JWTTTL)

	health := handlers.NewHealthHandler(time.Now())
	health.Register(mux)
	authHandler := handlers.NewAuthHandler(store, tokens, &cfg)
	authHandler.Register(mux)

	bookingSvc := booking.NewService(store, store, notifier, payments.NewWalletRefunder(store))

	protected := http.NewServeMux()
	handlers.NewUsersHandler(store).Register(protected)
	handlers.NewSessionsHandler(bookingSvc).Register(protected)
	handlers.NewArticlesHandler(store, up).Register(protected)
	handlers.NewGroupsHandler(store).Register(protected)
	mux.Handle("/api/", middleware.RequireAuth(tokens, protected))

	chatSvc := chat.NewService(store, store, chat.NewPresence(), chat.NewRooms())
	hub := chat.NewHub(chatSvc, tokens, cfg.CORSOrigins)
	mux.HandleFunc("/ws", hub.ServeWS)

	handler := middleware.CORS(cfg.CORSOrigins, middleware.Logging(mux))

	httpServer := &http.Server{
		Addr:              cfg.HTTPAddress(),
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	return &Server{inner: httpServer}
}

// Start begins serving HTTP traffic.
func (s *Server) Start() error {
	return s.inner.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.inner.Shutdown(ctx)
}
