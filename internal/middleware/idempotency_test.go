package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"

	"vledger/pkg/logger"
)

func TestIdempotencyMiddleware_ConcurrentRequests(t *testing.T) {
	rdb := redis.NewClient(&redis.Options{
		Addr: "localhost:6379",
	})
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		t.Skip("Redis not available")
	}

	mw := NewIdempotencyMiddleware(rdb, 10*time.Second, logger.NewNop())

	slowHandler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(2 * time.Second)
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("success"))
	})

	wrapped := mw.Require(slowHandler)

	var wg sync.WaitGroup
	wg.Add(2)

	// First request holds the lock while processing.
	go func() {
		defer wg.Done()
		req := httptest.NewRequest("POST", "/", nil)
		req.Header.Set("Idempotency-Key", "test-key-1")
		w := httptest.NewRecorder()
		wrapped.ServeHTTP(w, req)
		assert.Equal(t, http.StatusOK, w.Code)
	}()

	// Second request with the same key waits and gets the replayed response.
	go func() {
		defer wg.Done()
		time.Sleep(100 * time.Millisecond)
		req := httptest.NewRequest("POST", "/", nil)
		req.Header.Set("Idempotency-Key", "test-key-1")
		w := httptest.NewRecorder()
		wrapped.ServeHTTP(w, req)
		assert.Equal(t, http.StatusOK, w.Code)
	}()

	wg.Wait()
}

func TestIdempotencyMiddleware_RequiresKey(t *testing.T) {
	rdb := redis.NewClient(&redis.Options{
		Addr: "localhost:6379",
	})
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		t.Skip("Redis not available")
	}

	mw := NewIdempotencyMiddleware(rdb, time.Minute, logger.NewNop())
	wrapped := mw.Require(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest("POST", "/", nil)
	w := httptest.NewRecorder()
	wrapped.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}
