package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/cashledger/backend/internal/infrastructure/config"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func swaggerStatus(cfg config.SwaggerConfig, remoteAddr string) int {
	router := gin.New()
	router.GET("/swagger/*any", SwaggerGuard(cfg), func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodGet, "/swagger/index.html", nil)
	req.RemoteAddr = remoteAddr
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w.Code
}

func TestSwaggerGuard(t *testing.T) {
	tests := []struct {
		name   string
		cfg    config.SwaggerConfig
		remote string
		want   int
	}{
		{"disabled", config.SwaggerConfig{}, "127.0.0.1:1", http.StatusNotFound},
		{"enabled without allowlist", config.SwaggerConfig{Enabled: true}, "203.0.113.9:1", http.StatusOK},
		{"single address allowed", config.SwaggerConfig{Enabled: true, AllowedIPs: []string{"192.168.1.10"}}, "192.168.1.10:1", http.StatusOK},
		{"single address denied", config.SwaggerConfig{Enabled: true, AllowedIPs: []string{"192.168.1.10"}}, "192.168.1.11:1", http.StatusForbidden},
		{"cidr allowed", config.SwaggerConfig{Enabled: true, AllowedIPs: []string{"10.0.0.0/8"}}, "10.20.30.40:1", http.StatusOK},
		{"cidr denied", config.SwaggerConfig{Enabled: true, AllowedIPs: []string{"10.0.0.0/8"}}, "11.0.0.1:1", http.StatusForbidden},
		{"garbage entries only", config.SwaggerConfig{Enabled: true, AllowedIPs: []string{"not-an-ip"}}, "127.0.0.1:1", http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, swaggerStatus(tt.cfg, tt.remote))
		})
	}
}

func TestNoRoute(t *testing.T) {
	router := gin.New()
	router.Use(RequestID())
	router.NoRoute(NoRoute())

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/missing", nil))

	assert.Equal(t, http.StatusNotFound, w.Code)
	resp := decodeResponse(t, w)
	assert.Equal(t, "ERR_ROUTE_NOT_FOUND", resp.Error.Code)
	assert.NotEmpty(t, resp.Error.RequestID)
}
