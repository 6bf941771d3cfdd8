package app

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/nabilhamdi/waraqa/internal/api/handlers"
	appMiddleware "github.com/nabilhamdi/waraqa/internal/api/middlewares"
	"github.com/nabilhamdi/waraqa/internal/config"
	"github.com/nabilhamdi/waraqa/internal/core"
	"github.com/nabilhamdi/waraqa/internal/core/engine"
	"github.com/nabilhamdi/waraqa/internal/core/ingest"
	"github.com/nabilhamdi/waraqa/internal/notify"
)

// Server wraps the HTTP server instance and its handlers.
type Server struct {
	httpServer *http.Server
}

// NewServer builds and wires all routes.
func NewServer(cfg *config.Config, store core.Store, objects core.ObjectStore, ing ingest.Ingestor, eng *engine.ChatEngine, hub *notify.Hub) *Server {
	authHandler := handlers.NewAuthHandler(store, cfg.JWTSecret)
	fileHandler := handlers.NewFileHandler(store, objects, ing, cfg)
	chatHandler := handlers.NewChatHandler(store)
	messageHandler := handlers.NewMessageHandler(store, eng)
	notifHandler := handlers.NewNotificationHandler(store)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{cfg.CorsOrigin},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	r.Route("/api/v1", func(api chi.Router) {
		api.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{"status":"ok"}`))
		})

		// public endpoints
		api.Post("/auth/signup", authHandler.Signup)
		api.Post("/auth/login", authHandler.Login)

		// protected endpoints
		api.Group(func(protected chi.Router) {
			protected.Use(appMiddleware.JWTMiddleware(cfg.JWTSecret))

			protected.Post("/files", fileHandler.Upload)
			protected.Get("/files", fileHandler.List)
			protected.Get("/files/{id}", fileHandler.Get)
			protected.Get("/files/{id}/status", fileHandler.Status)
			protected.Delete("/files/{id}", fileHandler.Delete)

			protected.Post("/chats", chatHandler.Create)
			protected.Get("/chats", chatHandler.List)
			protected.Get("/chats/{id}", chatHandler.Get)
			protected.Put("/chats/{id}", chatHandler.Update)
			protected.Delete("/chats/{id}", chatHandler.Delete)

			protected.Post("/chats/{id}/messages", messageHandler.Send)
			protected.Get("/chats/{id}/messages", messageHandler.List)

			protected.Get("/notifications", notifHandler.List)
			protected.Put("/notifications/{id}/read", notifHandler.MarkRead)

			protected.Get("/ws", hub.Handle)
		})
	})

	httpSrv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: r,
	}

	return &Server{httpServer: httpSrv}
}

// Start runs the HTTP server.
func (s *Server) Start() {
	log.Printf("HTTP server listening on %s", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatalf("server error: %v", err)
	}
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	log.Println("Shutting down HTTP server...")
	return s.httpServer.Shutdown(ctx)
}
