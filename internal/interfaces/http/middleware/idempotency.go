package middleware

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/cashledger/backend/internal/domain/shared"
	"github.com/cashledger/backend/internal/infrastructure/cache"
	"github.com/cashledger/backend/internal/infrastructure/logger"
	"github.com/cashledger/backend/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// IdempotentReplayHeader is set on responses served from the idempotency store
const IdempotentReplayHeader = "Idempotent-Replayed"

// DefaultIdempotencyHeader is the request header carrying the client key
const DefaultIdempotencyHeader = "Idempotency-Key"

const maxIdempotencyKeyLength = 255

// IdempotencyConfig configures the Idempotency middleware
type IdempotencyConfig struct {
	Header  string
	Store   shared.IdempotencyStore
	Locker  cache.Locker
	TTL     time.Duration
	LockTTL time.Duration
	Logger  *zap.Logger
}

// storedResponse is what the store keeps per completed key
type storedResponse struct {
	Status      int    `json:"status"`
	RequestHash string `json:"request_hash"`
	ContentType string `json:"content_type"`
	Body        []byte `json:"body"`
}

// Idempotency replays the stored response of a completed mutation when the
// client retries with the same key. Keys are scoped to the caller and the
// request path; reusing a key with a different body is rejected. A key that
// is still being processed answers 409. Only 2xx outcomes are stored, so a
// failed attempt can be retried with the same key.
//
// Store failures disable replay for the request rather than failing it.
func Idempotency(cfg IdempotencyConfig) gin.HandlerFunc {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.Header == "" {
		cfg.Header = DefaultIdempotencyHeader
	}

	return func(c *gin.Context) {
		key := c.GetHeader(cfg.Header)
		if key == "" || !isMutation(c.Request.Method) {
			c.Next()
			return
		}
		if len(key) > maxIdempotencyKeyLength {
			c.AbortWithStatusJSON(http.StatusBadRequest, dto.NewValidationErrorResponse(
				"Request validation failed", requestIDOf(c),
				[]dto.ValidationDetail{{Field: cfg.Header, Message: "Must be at most 255 characters"}}))
			return
		}

		body, err := io.ReadAll(c.Request.Body)
		if err != nil {
			HandleBindError(c, err)
			return
		}
		c.Request.Body = io.NopCloser(bytes.NewReader(body))

		ctx := c.Request.Context()
		log := logger.Enrich(ctx, cfg.Logger)
		storeKey := idempotencyStoreKey(c, key)
		hash := requestHash(c.Request.Method, c.Request.URL.Path, body)

		if replayed := replayStored(c, cfg.Store, storeKey, hash, log); replayed {
			return
		}

		lock, err := cfg.Locker.TryLock(ctx, storeKey, cfg.LockTTL)
		switch {
		case errors.Is(err, cache.ErrLockHeld):
			c.AbortWithStatusJSON(http.StatusConflict, dto.NewErrorResponse(
				dto.ErrCodeIdempotencyPending,
				"A request with this idempotency key is still being processed",
				requestIDOf(c),
			))
			return
		case err != nil:
			log.Warn("Idempotency lock unavailable, processing without replay", zap.Error(err))
			c.Next()
			return
		}
		defer func() {
			if err := lock.Release(context.WithoutCancel(ctx)); err != nil {
				log.Warn("Failed to release idempotency lock", zap.Error(err))
			}
		}()

		// a concurrent holder may have completed between the lookup and the lock
		if replayed := replayStored(c, cfg.Store, storeKey, hash, log); replayed {
			return
		}

		rec := &recordingWriter{ResponseWriter: c.Writer}
		c.Writer = rec
		c.Next()

		status := rec.Status()
		if status < 200 || status >= 300 {
			return
		}
		payload, err := json.Marshal(storedResponse{
			Status:      status,
			RequestHash: hash,
			ContentType: rec.Header().Get("Content-Type"),
			Body:        rec.buf.Bytes(),
		})
		if err == nil {
			err = cfg.Store.SaveResult(context.WithoutCancel(ctx), storeKey, payload, cfg.TTL)
		}
		if err != nil {
			log.Warn("Failed to store idempotent response", zap.Error(err))
		}
	}
}

// replayStored answers the request from the store when key has completed.
// It reports whether a response was written.
func replayStored(c *gin.Context, store shared.IdempotencyStore, key, hash string, log *zap.Logger) bool {
	raw, found, err := store.LoadResult(c.Request.Context(), key)
	if err != nil {
		log.Warn("Idempotency lookup failed", zap.Error(err))
		return false
	}
	if !found {
		return false
	}

	var stored storedResponse
	if err := json.Unmarshal(raw, &stored); err != nil {
		log.Warn("Discarding unreadable idempotent response", zap.Error(err))
		return false
	}
	if stored.RequestHash != hash {
		c.AbortWithStatusJSON(http.StatusUnprocessableEntity, dto.NewErrorResponse(
			dto.ErrCodeIdempotencyReused,
			"The idempotency key was already used for a different request",
			requestIDOf(c),
		))
		return true
	}

	c.Header(IdempotentReplayHeader, "true")
	c.Data(stored.Status, stored.ContentType, stored.Body)
	c.Abort()
	return true
}

func idempotencyStoreKey(c *gin.Context, key string) string {
	owner := "anonymous"
	if scope, ok := GetScope(c); ok {
		owner = scope.TenantID.String() + ":" + scope.UserID.String()
	}
	return "http:" + owner + ":" + c.Request.Method + ":" + c.Request.URL.Path + ":" + key
}

func requestHash(method, path string, body []byte) string {
	h := sha256.New()
	h.Write([]byte(method + " " + path + " "))
	h.Write(body)
	return hex.EncodeToString(h.Sum(nil))
}

func isMutation(method string) bool {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
		return true
	}
	return false
}

// recordingWriter copies the response body while passing it through
type recordingWriter struct {
	gin.ResponseWriter
	buf bytes.Buffer
}

func (w *recordingWriter) Write(b []byte) (int, error) {
	w.buf.Write(b)
	return w.ResponseWriter.Write(b)
}

func (w *recordingWriter) WriteString(s string) (int, error) {
	w.buf.WriteString(s)
	return w.ResponseWriter.WriteString(s)
}
