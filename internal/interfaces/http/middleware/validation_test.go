package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/cashledger/backend/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type validationPayload struct {
	UnitID string `json:"unit_id" binding:"required,uuid"`
	Date   string `json:"business_date" binding:"required,datetime=2006-01-02"`
	Method string `json:"payment_method" binding:"omitempty,oneof=cash pix"`
	Notes  string `json:"notes" binding:"max=5"`
	Amount int    `json:"amount"`
}

func newValidationRouter() *gin.Engine {
	SetupValidator()
	router := gin.New()
	router.Use(RequestID())
	router.POST("/test", func(c *gin.Context) {
		var req validationPayload
		if !BindJSON(c, &req) {
			return
		}
		c.Status(http.StatusOK)
	})
	return router
}

func postJSON(router *gin.Engine, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/test", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestBindJSON_ValidationDetails(t *testing.T) {
	w := postJSON(newValidationRouter(), `{"unit_id":"nope","business_date":"18/10/2026","payment_method":"gold","notes":"too long"}`)

	require.Equal(t, http.StatusBadRequest, w.Code)
	resp := decodeResponse(t, w)
	require.NotNil(t, resp.Error)
	assert.Equal(t, dto.ErrCodeValidation, resp.Error.Code)

	details, ok := resp.Error.Details.([]any)
	require.True(t, ok)
	fields := map[string]string{}
	for _, d := range details {
		m := d.(map[string]any)
		fields[m["field"].(string)] = m["message"].(string)
	}
	assert.Equal(t, "Invalid UUID format", fields["unit_id"])
	assert.Equal(t, "Must be a date formatted as 2006-01-02", fields["business_date"])
	assert.Equal(t, "Must be one of: cash pix", fields["payment_method"])
	assert.Equal(t, "Must be at most 5 characters", fields["notes"])
}

func TestBindJSON_MalformedPayloads(t *testing.T) {
	router := newValidationRouter()

	t.Run("syntax error", func(t *testing.T) {
		w := postJSON(router, `{"unit_id":`)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("type mismatch names the field", func(t *testing.T) {
		w := postJSON(router, `{"unit_id":"6f1c1f47-41f4-4a0f-a0b8-8d1f0f5a77d1","business_date":"2026-10-18","amount":"ten"}`)
		require.Equal(t, http.StatusBadRequest, w.Code)
		resp := decodeResponse(t, w)
		assert.Equal(t, dto.ErrCodeValidation, resp.Error.Code)
		assert.Contains(t, w.Body.String(), "amount")
	})

	t.Run("valid payload", func(t *testing.T) {
		w := postJSON(router, `{"unit_id":"6f1c1f47-41f4-4a0f-a0b8-8d1f0f5a77d1","business_date":"2026-10-18"}`)
		assert.Equal(t, http.StatusOK, w.Code)
	})
}

func TestBindQuery(t *testing.T) {
	SetupValidator()
	type query struct {
		Status string `form:"status" binding:"omitempty,oneof=pending approved"`
	}
	router := gin.New()
	router.GET("/test", func(c *gin.Context) {
		var q query
		if !BindQuery(c, &q) {
			return
		}
		c.String(http.StatusOK, q.Status)
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/test?status=pending", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "pending", w.Body.String())

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/test?status=bogus", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), `"field":"status"`)
}
