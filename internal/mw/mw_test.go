package mw

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/patrickmn/go-cache"
	"github.com/stretchr/testify/assert"
	"golang.org/x/time/rate"
)

func perform(r *gin.Engine, method, path string, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestCache(t *testing.T) {
	gin.SetMode(gin.TestMode)
	store := cache.New(time.Minute, time.Minute)
	calls := 0
	status := http.StatusOK

	r := gin.New()
	r.Use(Cache(store, time.Minute))
	r.GET("/beds", func(c *gin.Context) {
		calls++
		c.Header("X-Served-By", "handler")
		c.String(status, "beds")
	})

	first := perform(r, http.MethodGet, "/beds", nil)
	second := perform(r, http.MethodGet, "/beds", nil)
	assert.Equal(t, 1, calls)
	assert.Equal(t, "beds", second.Body.String())
	assert.Equal(t, first.Code, second.Code)
	assert.Equal(t, "handler", second.Header().Get("X-Served-By"), "cached headers are replayed")
	assert.Equal(t, "HIT", second.Header().Get("X-Cache"))

	// Role is part of the key.
	perform(r, http.MethodGet, "/beds", map[string]string{"X-Actor-Role": "REQUESTER"})
	assert.Equal(t, 2, calls)

	// Failures are not cached.
	status = http.StatusInternalServerError
	perform(r, http.MethodGet, "/beds?x=1", nil)
	perform(r, http.MethodGet, "/beds?x=1", nil)
	assert.Equal(t, 4, calls)
}

func TestInvalidate(t *testing.T) {
	testCases := []struct {
		name        string
		method      string
		status      int
		wantFlushed bool
	}{
		{name: "Successful write", method: http.MethodPost, status: http.StatusOK, wantFlushed: true},
		{name: "Failed write", method: http.MethodPost, status: http.StatusConflict, wantFlushed: false},
		{name: "Read", method: http.MethodGet, status: http.StatusOK, wantFlushed: false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			gin.SetMode(gin.TestMode)
			store := cache.New(time.Minute, time.Minute)
			store.Set("GET /api/rooms/1/beds", "cached", time.Minute)

			r := gin.New()
			r.Use(Invalidate(store))
			r.Handle(tc.method, "/occupancies", func(c *gin.Context) {
				c.Status(tc.status)
			})
			perform(r, tc.method, "/occupancies", nil)

			_, found := store.Get("GET /api/rooms/1/beds")
			assert.Equal(t, tc.wantFlushed, !found)
		})
	}
}

func TestRateLimiter(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(RateLimiter(rate.Limit(0.001), 2))
	r.GET("/ping", func(c *gin.Context) { c.Status(http.StatusOK) })

	alice := map[string]string{"X-Actor-ID": "alice"}
	bob := map[string]string{"X-Actor-ID": "bob"}

	assert.Equal(t, http.StatusOK, perform(r, http.MethodGet, "/ping", alice).Code)
	assert.Equal(t, http.StatusOK, perform(r, http.MethodGet, "/ping", alice).Code)
	limited := perform(r, http.MethodGet, "/ping", alice)
	assert.Equal(t, http.StatusTooManyRequests, limited.Code)
	assert.Contains(t, limited.Body.String(), "100006")

	// Each actor has its own bucket.
	assert.Equal(t, http.StatusOK, perform(r, http.MethodGet, "/ping", bob).Code)
}

func TestRateLimiter_RotatingActorIDs(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(RateLimiter(rate.Limit(0.001), 2))
	r.GET("/ping", func(c *gin.Context) { c.Status(http.StatusOK) })

	// One address may spend sharedIPFactor actors' worth of burst, no matter the header.
	allowed := 0
	for i := 0; i < 3*sharedIPFactor*2; i++ {
		w := perform(r, http.MethodGet, "/ping", map[string]string{"X-Actor-ID": fmt.Sprintf("rotating-%d", i)})
		if w.Code == http.StatusOK {
			allowed++
		}
	}
	assert.Equal(t, sharedIPFactor*2, allowed)
}

func TestKeyedRateLimiter(t *testing.T) {
	l := NewKeyedRateLimiter(rate.Limit(1), 1, time.Minute)
	assert.Same(t, l.GetLimiter("10.0.0.1|alice"), l.GetLimiter("10.0.0.1|alice"))
	assert.NotSame(t, l.GetLimiter("10.0.0.1|alice"), l.GetLimiter("10.0.0.2|alice"))
	assert.Equal(t, 2, l.Len())
}

func TestKeyedRateLimiter_EvictsIdleBuckets(t *testing.T) {
	l := NewKeyedRateLimiter(rate.Limit(1), 1, 20*time.Millisecond)
	first := l.GetLimiter("10.0.0.1|alice")

	assert.Eventually(t, func() bool { return l.Len() == 0 }, time.Second, 10*time.Millisecond)
	assert.NotSame(t, first, l.GetLimiter("10.0.0.1|alice"))
}
