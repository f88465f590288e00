package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/p1m/productivity-suite/internal/config"
	"github.com/p1m/productivity-suite/internal/service"
)

// NewRouter wires middleware and routes.
func NewRouter(cfg config.ServerConfig, authService *service.AuthService, log zerolog.Logger) (*gin.Engine, error) {
	if err := RegisterValidators(); err != nil {
		return nil, err
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(RequestLogger(log))
	r.Use(CORSMiddleware(cfg.CORSOrigins, cfg.CORSCredentials))
	r.Use(AuthMiddleware(authService.Tokens()))

	r.GET("/", Root)
	r.GET("/ping", Ping)
	r.GET("/openapi.json", OpenAPIDoc)

	authHandler := NewAuthHandler(authService, log)
	auth := r.Group(AuthBasePath, NewRateLimiter(cfg.RateLimitPerMin).Handler())
	{
		auth.POST("/login", authHandler.Login)
		auth.POST("/logout", authHandler.Logout)
		auth.POST("/register", authHandler.Register)
		auth.GET("/me", authHandler.Me)
		auth.POST("/change-password", authHandler.ChangePassword)
		auth.POST("/verify-otp", authHandler.VerifyOtp)
		auth.POST("/reset-password", authHandler.ResetPassword)
		auth.POST("/refresh", authHandler.Refresh)
	}

	return r, nil
}
