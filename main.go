package main

import (
	"net/http"
	"os"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/avelez/duet/internal/auth"
	"github.com/avelez/duet/internal/config"
	"github.com/avelez/duet/internal/handlers"
	"github.com/avelez/duet/internal/middleware"
	"github.com/avelez/duet/internal/store/sqlstore"
	"github.com/avelez/duet/internal/upload"
	"github.com/avelez/duet/internal/ws"
)

func main() {
	cfg := config.Load()

	logger := zerolog.New(os.Stderr).With().Timestamp().Logger()
	if cfg.IsDevelopment() {
		logger = logger.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}

	store, err := sqlstore.New(cfg.DBDriver, cfg.DBURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("database init failed")
	}

	uploader, err := upload.NewDiskSaver(cfg.UploadDir)
	if err != nil {
		logger.Fatal().Err(err).Msg("upload dir init failed")
	}

	tokens := auth.NewTokens(cfg.JWTSecret)

	// Initialize WebSocket hub
	hub := ws.NewHub(ws.NewMemoryRegistry(), logger)
	go hub.Run()

	// Initialize handlers
	authHandler := &handlers.AuthHandler{Store: store, Tokens: tokens, Uploader: uploader, Logger: logger}
	messageHandler := &handlers.MessageHandler{Store: store, Hub: hub, Uploader: uploader, Logger: logger}

	requireAuth := middleware.Auth(tokens)

	r := mux.NewRouter()
	r.Use(middleware.Logging(logger))

	// Auth endpoints
	r.HandleFunc("/auth/signup", authHandler.Signup).Methods("POST")
	r.HandleFunc("/auth/login", authHandler.Login).Methods("POST")
	r.HandleFunc("/auth/logout", authHandler.Logout).Methods("POST")
	r.Handle("/auth/check", requireAuth(http.HandlerFunc(authHandler.Check))).Methods("GET")
	r.Handle("/auth/update-profile", requireAuth(http.HandlerFunc(authHandler.UpdateProfile))).Methods("PUT")

	// Message endpoints
	r.Handle("/messages/users", requireAuth(http.HandlerFunc(messageHandler.GetUsers))).Methods("GET")
	r.Handle("/messages/send/{peerId}", requireAuth(http.HandlerFunc(messageHandler.SendMessage))).Methods("POST")
	r.Handle("/messages/delete/{messageId}", requireAuth(http.HandlerFunc(messageHandler.DeleteMessage))).Methods("DELETE")
	r.Handle("/messages/{peerId}", requireAuth(http.HandlerFunc(messageHandler.GetMessages))).Methods("GET")

	// WebSocket endpoint; the user id comes from the verified session cookie
	r.Handle("/ws", requireAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ws.ServeWs(hub, w, r, middleware.UserID(r.Context()))
	})))

	// Uploaded images and metrics
	r.PathPrefix("/uploads/").Handler(http.StripPrefix("/uploads/", http.FileServer(http.Dir(cfg.UploadDir))))
	r.Handle("/metrics", promhttp.Handler()).Methods("GET")

	logger.Info().Str("addr", cfg.Addr).Msg("starting server")
	if err := http.ListenAndServe(cfg.Addr, r); err != nil {
		logger.Fatal().Err(err).Msg("server exited")
	}
}
