package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memIdempotencyStore struct {
	mu       sync.Mutex
	data     map[string][]byte
	inflight map[string]bool
	getErr   error

	// beforeReserve runs before a reservation is taken.
	beforeReserve func()
}

func newMemIdempotencyStore() *memIdempotencyStore {
	return &memIdempotencyStore{data: map[string][]byte{}, inflight: map[string]bool{}}
}

func (s *memIdempotencyStore) Get(ctx context.Context, key string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.getErr != nil {
		return nil, s.getErr
	}
	return s.data[key], nil
}

func (s *memIdempotencyStore) Reserve(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	if s.beforeReserve != nil {
		s.beforeReserve()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.inflight[key] {
		return false, nil
	}
	s.inflight[key] = true
	return true, nil
}

func (s *memIdempotencyStore) Save(ctx context.Context, key string, data []byte, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = data
	return nil
}

func (s *memIdempotencyStore) Release(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.inflight, key)
	return nil
}

func newIdempotentEngine(store *memIdempotencyStore, status int, calls *int) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(IdempotencyMiddleware(store, zerolog.Nop()))
	r.POST("/v1/requests/:id/approve", func(c *gin.Context) {
		*calls++
		c.JSON(status, gin.H{"call": *calls})
	})
	r.GET("/v1/requests/:id", func(c *gin.Context) {
		*calls++
		c.JSON(http.StatusOK, gin.H{"call": *calls})
	})
	return r
}

func post(r http.Handler, path, key string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, nil)
	if key != "" {
		req.Header.Set(idempotencyHeader, key)
	}
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)
	return rr
}

func TestIdempotency_ReplaysStoredResponse(t *testing.T) {
	store := newMemIdempotencyStore()
	calls := 0
	r := newIdempotentEngine(store, http.StatusOK, &calls)

	first := post(r, "/v1/requests/r1/approve", "k1")
	second := post(r, "/v1/requests/r1/approve", "k1")

	assert.Equal(t, 1, calls)
	assert.Equal(t, http.StatusOK, second.Code)
	assert.JSONEq(t, first.Body.String(), second.Body.String())
	assert.Equal(t, "true", second.Header().Get("Idempotent-Replay"))
	assert.Empty(t, store.inflight)
}

func TestIdempotency_KeysAreScopedToTheRoute(t *testing.T) {
	store := newMemIdempotencyStore()
	calls := 0
	r := newIdempotentEngine(store, http.StatusOK, &calls)

	post(r, "/v1/requests/r1/approve", "k1")
	post(r, "/v1/requests/r2/approve", "k1")

	assert.Equal(t, 2, calls)
}

func TestIdempotency_LockedResponsesAreNotStored(t *testing.T) {
	store := newMemIdempotencyStore()
	calls := 0
	r := newIdempotentEngine(store, http.StatusLocked, &calls)

	post(r, "/v1/requests/r1/approve", "k1")
	post(r, "/v1/requests/r1/approve", "k1")

	assert.Equal(t, 2, calls)
	assert.Empty(t, store.data)
}

func TestIdempotency_InFlightDuplicateIsRejected(t *testing.T) {
	store := newMemIdempotencyStore()
	store.inflight["/v1/requests/r1/approve:k1"] = true
	calls := 0
	r := newIdempotentEngine(store, http.StatusOK, &calls)

	rr := post(r, "/v1/requests/r1/approve", "k1")

	assert.Equal(t, http.StatusConflict, rr.Code)
	assert.Zero(t, calls)
}

func TestIdempotency_PassThrough(t *testing.T) {
	store := newMemIdempotencyStore()
	calls := 0
	r := newIdempotentEngine(store, http.StatusOK, &calls)

	post(r, "/v1/requests/r1/approve", "")
	post(r, "/v1/requests/r1/approve", "")
	require.Equal(t, 2, calls)

	req := httptest.NewRequest(http.MethodGet, "/v1/requests/r1", nil)
	req.Header.Set(idempotencyHeader, "k1")
	r.ServeHTTP(httptest.NewRecorder(), req)
	r.ServeHTTP(httptest.NewRecorder(), req)
	assert.Equal(t, 4, calls)

	store.getErr = errors.New("redis down")
	post(r, "/v1/requests/r1/approve", "k2")
	assert.Equal(t, 5, calls)
}

func TestIdempotency_ResponseSavedBeforeReserveIsReplayed(t *testing.T) {
	store := newMemIdempotencyStore()
	calls := 0
	r := newIdempotentEngine(store, http.StatusConflict, &calls)

	// The original call completes after the duplicate's lookup but before
	// its reservation.
	saved := []byte(`{"status_code":200,"body":{"call":1},"headers":{"Content-Type":["application/json; charset=utf-8"]}}`)
	store.beforeReserve = func() {
		store.beforeReserve = nil
		require.NoError(t, store.Save(context.Background(), "/v1/requests/r1/approve:k1", saved, time.Hour))
	}

	rr := post(r, "/v1/requests/r1/approve", "k1")

	assert.Zero(t, calls)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"call":1}`, rr.Body.String())
	assert.Equal(t, "true", rr.Header().Get("Idempotent-Replay"))
	assert.Equal(t, saved, store.data["/v1/requests/r1/approve:k1"])
	assert.Empty(t, store.inflight)
}
