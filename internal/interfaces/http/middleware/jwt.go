package middleware

import (
	"errors"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/cashledger/backend/internal/domain/shared"
	"github.com/cashledger/backend/internal/infrastructure/auth"
	"github.com/cashledger/backend/internal/infrastructure/logger"
	"github.com/cashledger/backend/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// JWT context keys
const (
	JWTClaimsKey  = "jwt_claims"
	ScopeKey      = "request_scope"
	AuthHeaderKey = "Authorization"
	BearerPrefix  = "Bearer "
)

// TokenValidator validates bearer tokens issued by the identity provider
type TokenValidator interface {
	ValidateAccessToken(tokenString string) (*auth.Claims, error)
}

// JWTMiddlewareConfig holds configuration for JWT middleware
type JWTMiddlewareConfig struct {
	Validator TokenValidator
	// Blacklist is optional. When set, a lookup failure rejects the request.
	Blacklist auth.TokenBlacklist
	SkipPaths []string
	Logger    *zap.Logger
}

// JWTAuth validates the bearer token, checks revocation and stores the
// caller's claims and shared.Scope in the gin and request contexts.
func JWTAuth(cfg JWTMiddlewareConfig) gin.HandlerFunc {
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}

	return func(c *gin.Context) {
		if slices.Contains(cfg.SkipPaths, c.Request.URL.Path) {
			c.Next()
			return
		}

		header := c.GetHeader(AuthHeaderKey)
		token, ok := strings.CutPrefix(header, BearerPrefix)
		if !ok || strings.TrimSpace(token) == "" {
			abortUnauthorized(c, log, auth.ErrInvalidToken, "missing or malformed authorization header")
			return
		}

		claims, err := cfg.Validator.ValidateAccessToken(token)
		if err != nil {
			abortUnauthorized(c, log, err, "token validation failed")
			return
		}

		if cfg.Blacklist != nil {
			revoked, err := isRevoked(c, cfg.Blacklist, claims)
			if err != nil {
				log.Error("Token revocation lookup failed",
					zap.String("jti", claims.ID),
					zap.String("user_id", claims.UserID),
					zap.Error(err))
				status, resp := dto.FromError(shared.NewInfrastructureError(err), requestIDOf(c))
				c.AbortWithStatusJSON(status, resp)
				return
			}
			if revoked {
				abortUnauthorized(c, log, auth.ErrTokenBlacklisted, "token revoked")
				return
			}
		}

		scope, err := claims.Scope()
		if err != nil {
			abortUnauthorized(c, log, err, "claims do not form a scope")
			return
		}

		c.Set(JWTClaimsKey, claims)
		c.Set(ScopeKey, scope)
		c.Request = c.Request.WithContext(logger.WithScope(c.Request.Context(), scope))
		c.Next()
	}
}

func isRevoked(c *gin.Context, blacklist auth.TokenBlacklist, claims *auth.Claims) (bool, error) {
	ctx := c.Request.Context()
	if claims.ID != "" {
		revoked, err := blacklist.IsBlacklisted(ctx, claims.ID)
		if err != nil || revoked {
			return revoked, err
		}
	}
	var issuedAt time.Time
	if claims.IssuedAt != nil {
		issuedAt = claims.IssuedAt.Time
	}
	return blacklist.IsUserTokenInvalidated(ctx, claims.UserID, issuedAt)
}

func abortUnauthorized(c *gin.Context, log *zap.Logger, err error, reason string) {
	log.Warn("JWT authentication failed",
		zap.String("reason", reason),
		zap.String("path", c.Request.URL.Path),
		zap.Error(err))

	code, message := dto.ErrCodeTokenInvalid, "Invalid token"
	switch {
	case errors.Is(err, auth.ErrExpiredToken):
		code, message = dto.ErrCodeTokenExpired, "Token has expired"
	case errors.Is(err, auth.ErrTokenBlacklisted):
		code, message = dto.ErrCodeTokenRevoked, "Token has been revoked"
	case errors.Is(err, auth.ErrTokenNotYetValid):
		message = "Token is not yet valid"
	case errors.Is(err, auth.ErrMissingTenantID), errors.Is(err, auth.ErrMissingUserID), errors.Is(err, auth.ErrInvalidClaims):
		message = "Token does not identify a caller"
	}
	c.AbortWithStatusJSON(http.StatusUnauthorized, dto.NewErrorResponse(code, message, requestIDOf(c)))
}

// GetJWTClaims retrieves JWT claims from gin.Context
func GetJWTClaims(c *gin.Context) *auth.Claims {
	if v, ok := c.Get(JWTClaimsKey); ok {
		if claims, ok := v.(*auth.Claims); ok {
			return claims
		}
	}
	return nil
}

// GetScope returns the caller scope stored by JWTAuth
func GetScope(c *gin.Context) (shared.Scope, bool) {
	if v, ok := c.Get(ScopeKey); ok {
		if scope, ok := v.(shared.Scope); ok {
			return scope, true
		}
	}
	return shared.Scope{}, false
}

// RequireTenantCaller rejects system callers on tenant-facing routes. A
// tenant-less non-system caller is reported as not found.
func RequireTenantCaller() gin.HandlerFunc {
	return func(c *gin.Context) {
		scope, ok := GetScope(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized,
				dto.NewErrorResponse(dto.ErrCodeUnauthorized, "Authentication required", requestIDOf(c)))
			return
		}
		var err error
		switch {
		case scope.IsSystem():
			err = shared.ErrForbidden.With("reason", "tenant_route")
		case !scope.HasTenant():
			err = shared.ErrTenantRequired
		}
		if err != nil {
			status, resp := dto.FromError(err, requestIDOf(c))
			c.AbortWithStatusJSON(status, resp)
			return
		}
		c.Next()
	}
}

// RequireSystemCaller admits only the back-office caller
func RequireSystemCaller() gin.HandlerFunc {
	return func(c *gin.Context) {
		scope, ok := GetScope(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized,
				dto.NewErrorResponse(dto.ErrCodeUnauthorized, "Authentication required", requestIDOf(c)))
			return
		}
		if !scope.IsSystem() {
			status, resp := dto.FromError(shared.ErrForbidden.With("reason", "system_only"), requestIDOf(c))
			c.AbortWithStatusJSON(status, resp)
			return
		}
		c.Next()
	}
}
