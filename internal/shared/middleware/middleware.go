package middleware

import (
	"net/http"
	"slices"
	"strings"
	"time"

	"busline/internal/shared/config"
	"busline/internal/shared/utils/response"
	"busline/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
)

// Roles carried in the "role" claim of staff access tokens
const (
	RoleAdmin = "ADMIN"
	RoleStaff = "STAFF"
)

// JWTAuthWithConfig validates an HS256 bearer access token and stores its
// claims on the context.
func JWTAuthWithConfig(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, reason := parseBearer(c.GetHeader("Authorization"), cfg.JWT.Secret)
		if reason != "" {
			logger.GetDefault().LogAuthFailure(c.Request.Context(), reason, c.ClientIP())
			response.Abort(c, http.StatusUnauthorized, reason, nil)
			return
		}

		c.Set("user_id", claims["user_id"])
		c.Set("user_email", claims["email"])
		c.Set("user_role", claims["role"])
		c.Next()
	}
}

func parseBearer(header, secret string) (jwt.MapClaims, string) {
	if header == "" {
		return nil, "Authorization header is required"
	}

	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || parts[0] != "Bearer" {
		return nil, "authorization header format must be Bearer {token}"
	}

	token, err := jwt.Parse(parts[1], func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return []byte(secret), nil
	})
	if err != nil || !token.Valid {
		return nil, "invalid or expired token"
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, "invalid token claims"
	}
	if tokenType, ok := claims["type"]; !ok || tokenType != "access" {
		return nil, "invalid token type"
	}
	return claims, ""
}

// RequireRoles middleware checks if user has any of the required roles
func RequireRoles(requiredRoles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		value, exists := c.Get("user_role")
		if !exists {
			response.Abort(c, http.StatusUnauthorized, "user role not found in context", nil)
			return
		}

		role, _ := value.(string)
		if !slices.Contains(requiredRoles, role) {
			response.Abort(c, http.StatusForbidden, "Insufficient permissions", nil)
			return
		}

		c.Next()
	}
}

// RequestIDHeader is echoed back on every response, generated when the caller sent none
const RequestIDHeader = "X-Request-ID"

// RequestLogger logs every request after it completes
func RequestLogger(log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader(RequestIDHeader)
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Header(RequestIDHeader, requestID)

		start := time.Now()
		c.Next()
		log.WithRequestID(requestID).LogHTTPRequest(c, time.Since(start))
	}
}
