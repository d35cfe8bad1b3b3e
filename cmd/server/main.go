package main

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/keenon/cardapi/internal/auth"
	"github.com/keenon/cardapi/internal/config"
	"github.com/keenon/cardapi/internal/database"
	"github.com/keenon/cardapi/internal/email"
	"github.com/keenon/cardapi/internal/logging"
	"github.com/keenon/cardapi/internal/redisconn"
	"github.com/keenon/cardapi/internal/server"
	"github.com/keenon/cardapi/internal/service"
	"github.com/keenon/cardapi/internal/token"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	closeLog, err := logging.Setup(cfg.LogFile)
	if err != nil {
		log.Fatalf("log setup error: %v", err)
	}
	defer closeLog()

	db, err := database.Connect(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("database error: %v", err)
	}
	defer db.Close()

	redisClient, err := redisconn.Connect(context.Background(), cfg.RedisURL)
	if err != nil {
		log.Fatalf("redis error: %v", err)
	}
	defer redisClient.Close()

	tokens, err := token.NewCodec(
		cfg.AccessTokenPrivateKey, cfg.AccessTokenPublicKey,
		cfg.RefreshTokenPrivateKey, cfg.RefreshTokenPublicKey,
	)
	if err != nil {
		log.Fatalf("token keys error: %v", err)
	}

	users := auth.NewUserRepository(db)
	apiKeys := auth.NewAPIKeyRepository(db)
	sessions := &auth.SessionStore{Redis: redisClient}
	guard := &auth.IPGuard{Redis: redisClient}
	mailer := &email.VerificationMailer{Sender: email.NewSender(cfg.Email)}

	twoFactor := &service.TwoFactorService{
		Users: users,
		TOTP:  auth.NewTOTPService(cfg.TOTPIssuer),
	}
	authSvc := &service.AuthService{
		Users:      users,
		Sessions:   sessions,
		Tokens:     tokens,
		Hasher:     auth.NewBcryptHasher(),
		TwoFactor:  twoFactor,
		Mailer:     mailer,
		Origin:     cfg.Origin,
		AccessTTL:  cfg.AccessTokenTTL,
		RefreshTTL: cfg.RefreshTokenTTL,
		SessionTTL: cfg.SessionTTL,
	}
	apiKeySvc := &service.APIKeyService{Users: users, Keys: apiKeys}

	api := server.NewServer(cfg, authSvc, twoFactor, apiKeySvc, users, sessions, tokens, guard, redisClient)

	addr := ":" + cfg.Port
	srv := &http.Server{
		Addr:         addr,
		Handler:      api.Router(),
		ReadTimeout:  time.Minute,
		WriteTimeout: time.Minute,
	}

	log.Printf("Listening on %s", addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatalf("server error: %v", err)
	}
}
