package handler

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/p1m/productivity-suite/internal/logger"
	"github.com/p1m/productivity-suite/internal/model"
	"github.com/p1m/productivity-suite/internal/service"
)

const (
	AuthBasePath = "/productivity-suite/api/v1/auth"

	authUserKey   = "auth_user"
	authClaimsKey = "auth_claims"
	requestIDKey  = "request_id"
)

// paths reachable without a bearer token, matched after the auth prefix rule
var publicExact = map[string]struct{}{
	"/":             {},
	"/ping":         {},
	"/openapi.json": {},
}

var protectedAuthPaths = map[string]struct{}{
	AuthBasePath + "/me": {},
}

func isPublicPath(path string) bool {
	if _, ok := publicExact[path]; ok {
		return true
	}
	if path == "/swagger" || strings.HasPrefix(path, "/swagger/") {
		return true
	}
	if strings.HasPrefix(path, AuthBasePath+"/") {
		_, protected := protectedAuthPaths[strings.TrimSuffix(path, "/")]
		return !protected
	}
	return false
}

// AuthMiddleware requires a valid access token on every path outside the public allow-list.
func AuthMiddleware(tokens *service.TokenService) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method == http.MethodOptions || isPublicPath(c.Request.URL.Path) {
			c.Next()
			return
		}

		token, err := service.BearerToken(c.GetHeader("Authorization"))
		if err != nil {
			unauthorized(c, "Missing or invalid Authorization header.")
			return
		}

		claims, err := tokens.ValidateAccess(token)
		if err != nil {
			if errors.Is(err, service.ErrTokenExpired) {
				unauthorized(c, "Access token has expired.")
				return
			}
			unauthorized(c, "You are not authorized to access this resource.")
			return
		}

		c.Set(authClaimsKey, claims)
		c.Set(authUserKey, &model.AuthUser{ID: claims.ID, Email: claims.Subject})
		c.Next()
	}
}

func GetAuthUser(c *gin.Context) *model.AuthUser {
	if value, ok := c.Get(authUserKey); ok {
		if user, ok := value.(*model.AuthUser); ok {
			return user
		}
	}
	return nil
}

func GetAuthClaims(c *gin.Context) *service.Claims {
	if value, ok := c.Get(authClaimsKey); ok {
		if claims, ok := value.(*service.Claims); ok {
			return claims
		}
	}
	return nil
}

// RequestLogger logs each request with latency and a request id, and records
// the start time used for the response duration.
func RequestLogger(log zerolog.Logger) gin.HandlerFunc {
	log = logger.Component(log, "http")

	return func(c *gin.Context) {
		start := time.Now()
		c.Set(requestStartKey, start)

		requestID := strings.TrimSpace(c.GetHeader("X-Request-ID"))
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Set(requestIDKey, requestID)
		c.Writer.Header().Set("X-Request-ID", requestID)

		c.Next()

		status := c.Writer.Status()
		var event *zerolog.Event
		switch {
		case status >= 500:
			event = log.Error()
		case status >= 400:
			event = log.Warn()
		default:
			event = log.Info()
		}
		if user := GetAuthUser(c); user != nil {
			event = event.Int64("user_id", user.ID)
		}
		if len(c.Errors) > 0 {
			event = event.Str("errors", c.Errors.String())
		}
		event.
			Str(logger.FieldRequestID, requestID).
			Int("status", status).
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Dur("latency", time.Since(start)).
			Str("client_ip", c.ClientIP()).
			Msg("http_request")
	}
}

func CORSMiddleware(allowedOrigins []string, allowCredentials bool) gin.HandlerFunc {
	originMap := make(map[string]struct{}, len(allowedOrigins))
	for _, origin := range allowedOrigins {
		trimmed := strings.TrimSpace(origin)
		if trimmed == "" {
			continue
		}
		originMap[trimmed] = struct{}{}
	}

	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		if origin != "" {
			if _, ok := originMap[origin]; ok {
				c.Header("Access-Control-Allow-Origin", origin)
				c.Header("Vary", "Origin")
				if allowCredentials {
					c.Header("Access-Control-Allow-Credentials", "true")
				}
				c.Header("Access-Control-Allow-Headers", "Authorization, Content-Type, X-Request-Start-Time, X-Request-ID")
				c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
			}
		}

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}
