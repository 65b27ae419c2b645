package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/highprosper/backend/internal/infrastructure/auth"
	"github.com/highprosper/backend/internal/interfaces/http/dto"
)

const (
	claimsKey      = "jwt_claims"
	principalIDKey = "principal_id"
	roleKey        = "principal_role"

	bearerPrefix = "Bearer "
)

// JWTConfig configures the auth middleware
type JWTConfig struct {
	Service *auth.JWTService
	// SkipPaths are path prefixes that bypass authentication entirely
	// (webhooks authenticate by signature, health checks not at all)
	SkipPaths []string
}

// JWTAuth returns a middleware validating Bearer tokens and binding the
// principal's claims to the request context.
func JWTAuth(cfg JWTConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		path := c.Request.URL.Path
		for _, skip := range cfg.SkipPaths {
			if strings.HasPrefix(path, skip) {
				c.Next()
				return
			}
		}

		token := extractToken(c)
		if token == "" {
			abortUnauthorized(c, dto.ErrCodeUnauthorized, "Missing authentication token")
			return
		}

		claims, err := cfg.Service.Validate(token)
		if err != nil {
			if errors.Is(err, auth.ErrExpiredToken) {
				abortUnauthorized(c, dto.ErrCodeUnauthorized, "Token has expired")
				return
			}
			abortUnauthorized(c, dto.ErrCodeUnauthorized, "Invalid authentication token")
			return
		}

		c.Set(claimsKey, claims)
		c.Set(principalIDKey, claims.PrincipalID)
		c.Set(roleKey, claims.Role)
		c.Next()
	}
}

// RequireRole returns a middleware rejecting principals outside the allowed
// roles. Must run after JWTAuth.
func RequireRole(roles ...string) gin.HandlerFunc {
	allowed := make(map[string]struct{}, len(roles))
	for _, r := range roles {
		allowed[r] = struct{}{}
	}
	return func(c *gin.Context) {
		if _, ok := allowed[GetRole(c)]; !ok {
			c.AbortWithStatusJSON(http.StatusForbidden,
				dto.NewErrorResponse(dto.ErrCodeForbidden, "Insufficient role"))
			return
		}
		c.Next()
	}
}

// extractToken reads the bearer token from the Authorization header, falling
// back to the token query parameter used by websocket clients.
func extractToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	if strings.HasPrefix(header, bearerPrefix) {
		return strings.TrimPrefix(header, bearerPrefix)
	}
	return c.Query("token")
}

func abortUnauthorized(c *gin.Context, code, message string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, dto.NewErrorResponse(code, message))
}

// GetClaims returns the validated claims bound to the request, nil outside
// authenticated routes.
func GetClaims(c *gin.Context) *auth.Claims {
	if v, ok := c.Get(claimsKey); ok {
		if claims, ok := v.(*auth.Claims); ok {
			return claims
		}
	}
	return nil
}

// GetPrincipalID returns the authenticated principal's id, uuid.Nil when
// unauthenticated.
func GetPrincipalID(c *gin.Context) uuid.UUID {
	id, err := uuid.Parse(c.GetString(principalIDKey))
	if err != nil {
		return uuid.Nil
	}
	return id
}

// GetRole returns the authenticated principal's role string
func GetRole(c *gin.Context) string {
	return c.GetString(roleKey)
}
