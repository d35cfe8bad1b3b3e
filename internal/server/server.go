package server

import (
	"log"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"
	"github.com/redis/go-redis/v9"

	"github.com/keenon/cardapi/internal/apperr"
	"github.com/keenon/cardapi/internal/auth"
	"github.com/keenon/cardapi/internal/config"
	"github.com/keenon/cardapi/internal/service"
	"github.com/keenon/cardapi/internal/token"
)

type Server struct {
	Auth      *service.AuthService
	TwoFactor *service.TwoFactorService
	APIKeys   *service.APIKeyService
	Users     service.UserStore
	Sessions  service.SessionStore
	Tokens    *token.Codec
	IPGuard   *auth.IPGuard
	Redis     *redis.Client
	cfg       config.Config

	trustedProxies []net.IPNet
}

func NewServer(cfg config.Config, authSvc *service.AuthService, twoFactor *service.TwoFactorService, apiKeys *service.APIKeyService, users service.UserStore, sessions service.SessionStore, tokens *token.Codec, guard *auth.IPGuard, redisClient *redis.Client) *Server {
	return &Server{
		Auth:      authSvc,
		TwoFactor: twoFactor,
		APIKeys:   apiKeys,
		Users:     users,
		Sessions:  sessions,
		Tokens:    tokens,
		IPGuard:   guard,
		Redis:     redisClient,
		cfg:       cfg,

		trustedProxies: parseProxyCIDRs(cfg.TrustedProxies),
	}
}

func rateLimitHandler(message string) func(http.ResponseWriter, *http.Request) {
	return func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusTooManyRequests, apperr.CodeTooManyRequests, message)
	}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	formatter := &middleware.DefaultLogFormatter{
		Logger:  log.New(log.Writer(), "", log.Flags()),
		NoColor: true,
	}
	r.Use(middleware.RequestLogger(formatter))
	r.Use(middleware.Recoverer)
	r.Use(secureHeaders)
	r.Use(s.blockSuspiciousIPs)
	r.Use(httprate.Limit(100, time.Minute,
		httprate.WithKeyFuncs(httprate.KeyByIP),
		httprate.WithLimitHandler(rateLimitHandler("Too many requests, please try again later")),
	))

	authLimit := httprate.Limit(10, 15*time.Minute,
		httprate.WithKeyFuncs(httprate.KeyByIP),
		httprate.WithLimitHandler(rateLimitHandler("Too many login attempts, please try again later")),
	)
	verifyLimit := httprate.Limit(3, time.Hour,
		httprate.WithKeyFuncs(httprate.KeyByIP),
		httprate.WithLimitHandler(rateLimitHandler("Too many verification attempts, please try again later")),
	)

	r.Route("/api/auth", func(ar chi.Router) {
		ar.With(s.csrfProtect).Get("/csrf-token", s.handleCSRFToken)
		ar.With(authLimit, s.csrfProtect).Post("/register", s.handleRegister)
		ar.With(authLimit).Post("/login", s.handleLogin)
		ar.With(authLimit).Post("/verify-2fa", s.handleVerifyTwoFactorLogin)
		ar.Get("/refresh", s.handleRefresh)
		ar.With(verifyLimit).Get("/verifyemail/{code}", s.handleVerifyEmail)
		ar.With(s.deserializeUser, s.requireUser).Get("/logout", s.handleLogout)
	})

	r.Route("/api/user", func(ur chi.Router) {
		ur.Use(s.deserializeUser, s.requireUser)
		ur.Get("/profile", s.handleProfile)
		ur.Post("/2fa/setup", s.handleTwoFactorSetup)
		ur.Post("/2fa/verify", s.handleTwoFactorVerify)
		ur.Post("/2fa/validate", s.handleTwoFactorValidate)
		ur.Post("/2fa/disable", s.handleTwoFactorDisable)
	})

	r.Route("/api/api-keys", func(kr chi.Router) {
		kr.With(s.apiKeyAuth()).Get("/validate", s.handleValidateAPIKey)

		kr.Group(func(pr chi.Router) {
			pr.Use(s.deserializeUser, s.requireUser)
			pr.Get("/", s.handleListAPIKeys)
			pr.With(s.csrfProtect).Post("/", s.handleCreateAPIKey)
			pr.With(s.csrfProtect).Delete("/{id}", s.handleRevokeAPIKey)
		})
	})

	r.With(s.deserializeUser, s.requireUser, s.requireRole(auth.RoleAdmin)).
		Get("/api/admin/users", s.handleListUsers)

	r.Get("/api/healthz", s.handleHealthz)

	return r
}
