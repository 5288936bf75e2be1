package main

import (
	"context"
	"net/http"

	"github.com/buddy-ya/chat-engine/config"
	"github.com/buddy-ya/chat-engine/internal/auth"
	"github.com/buddy-ya/chat-engine/internal/db"
	"github.com/buddy-ya/chat-engine/internal/handlers"
	"github.com/buddy-ya/chat-engine/internal/middlewares"
	"github.com/buddy-ya/chat-engine/internal/push"
	"github.com/buddy-ya/chat-engine/internal/realtime"
	"github.com/buddy-ya/chat-engine/internal/repository"
	"github.com/buddy-ya/chat-engine/internal/services"
	"github.com/buddy-ya/chat-engine/internal/storage"
	"github.com/buddy-ya/chat-engine/pkg/log"

	muxHandlers "github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	// Load config and init systems
	cfg := config.LoadConfig()
	log.InitLogger()

	verifier, err := auth.NewVerifier(cfg.JWTSecret)
	if err != nil {
		log.Logger.Fatal().Err(err).Msg("auth verifier init failed")
	}

	// DB init
	conn, err := db.InitDB(cfg)
	if err != nil {
		log.Logger.Fatal().Err(err).Msg("database init failed")
	}

	// External collaborators
	attachments, err := storage.NewClient(context.Background(),
		cfg.StorageBucket, cfg.StorageBaseURL, cfg.AttachmentPrefix, cfg.StorageKeyPath)
	if err != nil {
		log.Logger.Fatal().Err(err).Msg("object storage init failed")
	}
	pusher := push.NewClient(cfg.PushEndpoint, cfg.PushTimeout)

	// Repos, realtime services and the pipeline
	memberRepo := repository.NewMemberRepo(conn)
	roomRepo := repository.NewRoomRepo(conn)
	messageRepo := repository.NewMessageRepo(conn)
	membershipRepo := repository.NewMembershipRepo(conn)
	tokenRepo := repository.NewPushTokenRepo(conn)

	registry := realtime.NewRegistry()
	hub := realtime.NewHub()

	notifier := services.NewNotificationService(tokenRepo, memberRepo, pusher, cfg.PushTimeout)
	chatSvc := services.NewChatService(messageRepo, roomRepo, membershipRepo, attachments, registry, hub, notifier, cfg.UploadTimeout)

	// Router & CORS
	r := mux.NewRouter()
	r.Use(middlewares.PrometheusMetricsMiddleware)
	cors := muxHandlers.CORS(
		muxHandlers.AllowedOrigins([]string{"*"}),
		muxHandlers.AllowedMethods([]string{
			http.MethodGet, http.MethodPost, http.MethodOptions,
		}),
		muxHandlers.AllowedHeaders([]string{"Content-Type", "Authorization"}),
	)

	r.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte("OK"))
	}).Methods("GET")
	r.Handle("/metrics", promhttp.Handler()).Methods("GET")

	// Realtime channel: authenticated at the handshake, one connection per tab.
	whoAmI := func(req *http.Request) (int64, error) {
		claims, err := verifier.VerifyRequest(req)
		if err != nil {
			return 0, err
		}
		return claims.MemberID, nil
	}
	r.Handle("/ws/chat", realtime.Handler(hub, registry, chatSvc, whoAmI)).Methods("GET")

	// Out-of-band attachment path
	memberAuth := middlewares.RequireMemberAuth(verifier)
	chatHandler := handlers.NewChatHandler(chatSvc, cfg.UploadMaxBytes)
	r.Handle("/api/v1/rooms/{roomId}/images",
		memberAuth(http.HandlerFunc(chatHandler.UploadImage))).Methods("POST")

	log.Logger.Info().Str("port", cfg.Port).Msg("chat engine listening")
	if err := http.ListenAndServe(":"+cfg.Port, cors(r)); err != nil {
		log.Logger.Fatal().Err(err).Msg("server stopped")
	}
}
