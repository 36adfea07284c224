package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/cashledger/backend/internal/domain/shared"
	"github.com/cashledger/backend/internal/infrastructure/auth"
	"github.com/cashledger/backend/internal/infrastructure/config"
	"github.com/cashledger/backend/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newTestJWTService() *auth.JWTService {
	return auth.NewJWTService(config.JWTConfig{
		Secret:                "test-secret-key-at-least-32-chars",
		Issuer:                "test-issuer",
		AccessTokenExpiration: 15 * time.Minute,
	})
}

func issueToken(t *testing.T, svc *auth.JWTService, input auth.GenerateTokenInput) string {
	t.Helper()
	token, _, err := svc.GenerateAccessToken(input)
	require.NoError(t, err)
	return token
}

func decodeResponse(t *testing.T, w *httptest.ResponseRecorder) dto.Response {
	t.Helper()
	var resp dto.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

// withScope stands in for JWTAuth in tests of later middleware
func withScope(scope shared.Scope) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(ScopeKey, scope)
		c.Next()
	}
}

func scopeRef(s shared.Scope) *shared.Scope { return &s }

type failingBlacklist struct{ auth.TokenBlacklist }

func (failingBlacklist) IsBlacklisted(context.Context, string) (bool, error) {
	return false, errors.New("redis: connection refused")
}

func newAuthRouter(cfg JWTMiddlewareConfig, handler gin.HandlerFunc) *gin.Engine {
	router := gin.New()
	router.Use(RequestID(), JWTAuth(cfg))
	router.GET("/api/v1/test", handler)
	router.GET("/health", func(c *gin.Context) { c.Status(http.StatusOK) })
	return router
}

func TestJWTAuth_ValidToken(t *testing.T) {
	svc := newTestJWTService()
	input := auth.GenerateTokenInput{
		TenantID:    uuid.New(),
		UserID:      uuid.New(),
		Permissions: []string{shared.PermLedgerRead},
	}
	token := issueToken(t, svc, input)

	var got shared.Scope
	router := newAuthRouter(JWTMiddlewareConfig{Validator: svc}, func(c *gin.Context) {
		scope, ok := GetScope(c)
		require.True(t, ok)
		got = scope
		assert.NotNil(t, GetJWTClaims(c))
		c.Status(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/test", nil)
	req.Header.Set(AuthHeaderKey, BearerPrefix+token)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, input.TenantID, got.TenantID)
	assert.Equal(t, input.UserID, got.UserID)
	assert.True(t, got.Can(shared.PermLedgerRead))
}

func TestJWTAuth_Rejections(t *testing.T) {
	svc := newTestJWTService()
	expired := auth.NewJWTService(config.JWTConfig{
		Secret:                "test-secret-key-at-least-32-chars",
		Issuer:                "test-issuer",
		AccessTokenExpiration: -time.Minute,
	})

	tests := []struct {
		name     string
		header   string
		wantCode string
	}{
		{"missing header", "", dto.ErrCodeTokenInvalid},
		{"wrong scheme", "Basic abc", dto.ErrCodeTokenInvalid},
		{"empty bearer", "Bearer ", dto.ErrCodeTokenInvalid},
		{"garbage token", "Bearer not-a-jwt", dto.ErrCodeTokenInvalid},
		{"expired token", "Bearer " + issueToken(t, expired, auth.GenerateTokenInput{TenantID: uuid.New(), UserID: uuid.New()}), dto.ErrCodeTokenExpired},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := newAuthRouter(JWTMiddlewareConfig{Validator: svc}, func(c *gin.Context) {
				t.Fatal("handler must not run")
			})
			req := httptest.NewRequest(http.MethodGet, "/api/v1/test", nil)
			if tt.header != "" {
				req.Header.Set(AuthHeaderKey, tt.header)
			}
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			assert.Equal(t, http.StatusUnauthorized, w.Code)
			resp := decodeResponse(t, w)
			require.NotNil(t, resp.Error)
			assert.Equal(t, tt.wantCode, resp.Error.Code)
			assert.NotEmpty(t, resp.Error.RequestID)
		})
	}
}

func TestJWTAuth_SkipPaths(t *testing.T) {
	router := newAuthRouter(JWTMiddlewareConfig{
		Validator: newTestJWTService(),
		SkipPaths: []string{"/health"},
	}, func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestJWTAuth_Revocation(t *testing.T) {
	svc := newTestJWTService()
	userID := uuid.New()
	token := issueToken(t, svc, auth.GenerateTokenInput{TenantID: uuid.New(), UserID: userID})
	claims, err := svc.ValidateAccessToken(token)
	require.NoError(t, err)

	t.Run("revoked jti", func(t *testing.T) {
		bl := auth.NewInMemoryTokenBlacklist()
		require.NoError(t, bl.AddToBlacklist(context.Background(), claims.ID, time.Minute))

		router := newAuthRouter(JWTMiddlewareConfig{Validator: svc, Blacklist: bl}, func(c *gin.Context) {
			c.Status(http.StatusOK)
		})
		req := httptest.NewRequest(http.MethodGet, "/api/v1/test", nil)
		req.Header.Set(AuthHeaderKey, BearerPrefix+token)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Equal(t, dto.ErrCodeTokenRevoked, decodeResponse(t, w).Error.Code)
	})

	t.Run("lookup failure fails closed", func(t *testing.T) {
		router := newAuthRouter(JWTMiddlewareConfig{Validator: svc, Blacklist: failingBlacklist{}}, func(c *gin.Context) {
			c.Status(http.StatusOK)
		})
		req := httptest.NewRequest(http.MethodGet, "/api/v1/test", nil)
		req.Header.Set(AuthHeaderKey, BearerPrefix+token)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
		assert.NotContains(t, w.Body.String(), "connection refused")
	})
}

func TestRequireTenantCaller(t *testing.T) {
	tests := []struct {
		name       string
		scope      *shared.Scope
		wantStatus int
	}{
		{"no scope", nil, http.StatusUnauthorized},
		{"system caller", scopeRef(shared.SystemScope(uuid.New())), http.StatusForbidden},
		{"tenantless caller", &shared.Scope{UserID: uuid.New()}, http.StatusNotFound},
		{"tenant caller", scopeRef(shared.NewTenantScope(uuid.New(), uuid.New())), http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := gin.New()
			if tt.scope != nil {
				router.Use(withScope(*tt.scope))
			}
			router.Use(RequireTenantCaller())
			router.GET("/x", func(c *gin.Context) { c.Status(http.StatusOK) })

			w := httptest.NewRecorder()
			router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/x", nil))
			assert.Equal(t, tt.wantStatus, w.Code)
		})
	}
}

func TestRequireSystemCaller(t *testing.T) {
	router := gin.New()
	router.GET("/tenant", withScope(shared.NewTenantScope(uuid.New(), uuid.New())), RequireSystemCaller(),
		func(c *gin.Context) { c.Status(http.StatusOK) })
	router.GET("/system", withScope(shared.SystemScope(uuid.New())), RequireSystemCaller(),
		func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/tenant", nil))
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/system", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}
