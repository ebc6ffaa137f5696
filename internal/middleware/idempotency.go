package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"smartmove/internal/redis"
)

const (
	idempotencyHeader = "Idempotency-Key"
	idempotencyTTL    = 24 * time.Hour
	inflightTTL       = 30 * time.Second
)

// cachedResponse stores the response for idempotent requests.
type cachedResponse struct {
	StatusCode int             `json:"status_code"`
	Body       json.RawMessage `json:"body"`
	Headers    http.Header     `json:"headers"`
}

// responseWriter wraps gin.ResponseWriter to capture the response.
type responseWriter struct {
	gin.ResponseWriter
	body *bytes.Buffer
}

func (w *responseWriter) Write(b []byte) (int, error) {
	w.body.Write(b)
	return w.ResponseWriter.Write(b)
}

// IdempotencyMiddleware replays the stored response when a POST is repeated
// with the same Idempotency-Key, so a retried approval never runs twice.
// Keys are scoped to the route. A repeat that arrives while the first call is
// still running gets 409.
func IdempotencyMiddleware(store redis.IdempotencyStoreInterface, log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method != http.MethodPost {
			c.Next()
			return
		}
		key := c.GetHeader(idempotencyHeader)
		if key == "" {
			c.Next()
			return
		}

		ctx := c.Request.Context()
		scoped := c.Request.URL.Path + ":" + key

		data, err := store.Get(ctx, scoped)
		if err != nil {
			// Redis error - proceed without idempotency.
			log.Warn().Err(err).Str("key", key).Msg("idempotency lookup failed")
			c.Next()
			return
		}
		if replay(c, data) {
			return
		}

		reserved, err := store.Reserve(ctx, scoped, inflightTTL)
		if err != nil {
			log.Warn().Err(err).Str("key", key).Msg("idempotency reserve failed")
			c.Next()
			return
		}
		if !reserved {
			c.AbortWithStatusJSON(http.StatusConflict, gin.H{"error": "a request with this idempotency key is in progress"})
			return
		}
		defer func() {
			if err := store.Release(context.WithoutCancel(ctx), scoped); err != nil {
				log.Warn().Err(err).Str("key", key).Msg("idempotency release failed")
			}
		}()

		// The first call may have finished between the lookup and the reserve.
		data, err = store.Get(ctx, scoped)
		if err != nil {
			log.Warn().Err(err).Str("key", key).Msg("idempotency lookup failed")
		} else if replay(c, data) {
			return
		}

		w := &responseWriter{ResponseWriter: c.Writer, body: &bytes.Buffer{}}
		c.Writer = w

		c.Next()

		if !cacheable(c.Writer.Status()) {
			return
		}
		response := cachedResponse{
			StatusCode: c.Writer.Status(),
			Body:       w.body.Bytes(),
			Headers:    extractResponseHeaders(c),
		}
		encoded, err := json.Marshal(response)
		if err != nil {
			return
		}
		if err := store.Save(context.WithoutCancel(ctx), scoped, encoded, idempotencyTTL); err != nil {
			log.Warn().Err(err).Str("key", key).Msg("idempotency save failed")
		}
	}
}

// replay writes a stored response and aborts the chain. It reports false when
// there is nothing usable to replay.
func replay(c *gin.Context, data []byte) bool {
	if data == nil {
		return false
	}
	var cached cachedResponse
	if err := json.Unmarshal(data, &cached); err != nil {
		return false
	}
	for k, v := range cached.Headers {
		for _, val := range v {
			c.Header(k, val)
		}
	}
	c.Header("Idempotent-Replay", "true")
	c.Data(cached.StatusCode, "application/json", cached.Body)
	c.Abort()
	return true
}

// cacheable reports whether a response is final. Server errors and lock
// contention are left uncached so the client can retry.
func cacheable(status int) bool {
	return status >= 200 && status < 500 && status != http.StatusLocked
}

// extractResponseHeaders extracts headers to cache.
func extractResponseHeaders(c *gin.Context) http.Header {
	headers := make(http.Header)
	// Only cache Content-Type header.
	if ct := c.Writer.Header().Get("Content-Type"); ct != "" {
		headers.Set("Content-Type", ct)
	}
	return headers
}
