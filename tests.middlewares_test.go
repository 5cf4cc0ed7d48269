package main

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/julienschmidt/httprouter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// TestMiddlewaresStacks ensures we get both public and ops middlewares
// stacks with exact number of elements in those stacks.
func TestMiddlewaresStacks(t *testing.T) {
	api := newTestAPIHandler(nil, nil)
	pub, ops := api.MiddlewaresStacks()
	assert.Equal(t, 8, len(*pub))
	assert.Equal(t, 6, len(*ops))
}

// TestChain ensures each middleware in the stack is called as well the handler.
func TestChain(t *testing.T) {
	var ca, cb, cc, ch bool
	queue := make(chan int, 4)

	middlewareA := func(next httprouter.Handle) httprouter.Handle {
		return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
			queue <- 1
			ca = true
			next(w, r, ps)
		}
	}
	middlewareB := func(next httprouter.Handle) httprouter.Handle {
		return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
			queue <- 2
			cb = true
			next(w, r, ps)
		}
	}
	middlewareC := func(next httprouter.Handle) httprouter.Handle {
		return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
			queue <- 3
			cc = true
			next(w, r, ps)
		}
	}
	middlewares := Middlewares{
		middlewareA,
		middlewareB,
		middlewareC,
	}

	handler := func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		queue <- 4
		ch = true
	}

	chained := (&middlewares).Chain(handler)
	req := httptest.NewRequest("GET", "/books", nil)
	w := httptest.NewRecorder()
	chained(w, req, nil)

	t.Run("check calling", func(t *testing.T) {
		assert.Equal(t, true, ca)
		assert.Equal(t, true, cb)
		assert.Equal(t, true, cc)
		assert.Equal(t, true, ch)
	})

	t.Run("check ordering", func(t *testing.T) {
		assert.Equal(t, 1, <-queue)
		assert.Equal(t, 2, <-queue)
		assert.Equal(t, 3, <-queue)
		assert.Equal(t, 4, <-queue)
	})
}

// TestRequestsCounterMiddleware ensures the request counter increment.
func TestRequestsCounterMiddleware(t *testing.T) {
	api := newTestAPIHandler(nil, nil)
	req := httptest.NewRequest("GET", "/books", nil)
	w := httptest.NewRecorder()
	var num uint64
	handler := func(w http.ResponseWriter, req *http.Request, ps httprouter.Params) {
		num = GetRequestNumberFromContext(req.Context())
	}
	wrapped := api.RequestsCounterMiddleware(handler)
	wrapped(w, req, nil)
	wrapped(w, req, nil)
	assert.Equal(t, uint64(2), num)
	assert.Equal(t, uint64(2), api.stats.called)
}

// TestRequestIDMiddleware ensures the id is in the context and the response headers.
func TestRequestIDMiddleware(t *testing.T) {
	api := newTestAPIHandler(nil, nil)
	w := httptest.NewRecorder()
	var got string
	api.RequestIDMiddleware(func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		got = GetValueFromContext(r.Context(), RequestIDContextKey)
	})(w, httptest.NewRequest(http.MethodGet, "/books", nil), nil)
	assert.Equal(t, "r:abc", got)
	assert.Equal(t, "r:abc", w.Header().Get(RequestIDHeader))
}

// TestCORSMiddleware ensures the configured origin is allowed.
func TestCORSMiddleware(t *testing.T) {
	api := newTestAPIHandler(&Config{FrontendURL: "http://front.local"}, nil)
	w := httptest.NewRecorder()
	api.CORSMiddleware(func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {})(
		w, httptest.NewRequest(http.MethodGet, "/books", nil), nil)
	assert.Equal(t, "http://front.local", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", w.Header().Get("Access-Control-Allow-Credentials"))
	assert.Equal(t, "GET, POST, PUT, DELETE, OPTIONS, HEAD", w.Header().Get("Access-Control-Allow-Methods"))
	assert.Equal(t, "origin, content-type, accept, authorization", w.Header().Get("Access-Control-Allow-Headers"))
}

// TestPanicRecoveryMiddleware ensures a panic ends with a 500 json response.
func TestPanicRecoveryMiddleware(t *testing.T) {
	api := newTestAPIHandler(nil, nil)
	w := httptest.NewRecorder()
	handle := api.PanicRecoveryMiddleware(func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		panic("boom")
	})
	assert.NotPanics(t, func() {
		handle(w, httptest.NewRequest(http.MethodGet, "/books", nil), nil)
	})
	res := w.Result()
	defer res.Body.Close()
	assert.Equal(t, http.StatusInternalServerError, res.StatusCode)
	assert.Equal(t, "Failed to process the request.", decodeBody(t, res)["error"])
}

// TestStatsMiddleware ensures responses are counted per status code.
func TestStatsMiddleware(t *testing.T) {
	api := newTestAPIHandler(nil, nil)
	handle := api.StatsMiddleware(func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		if r.URL.Path == "/missing" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		_, _ = w.Write([]byte("ok"))
	})
	handle(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/books", nil), nil)
	handle(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/books", nil), nil)
	handle(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/missing", nil), nil)
	assert.Equal(t, uint64(2), api.stats.status[http.StatusOK])
	assert.Equal(t, uint64(1), api.stats.status[http.StatusNotFound])
}

// TestMaintenanceModeMiddleware ensures requests are blocked while in maintenance.
func TestMaintenanceModeMiddleware(t *testing.T) {
	api := newTestAPIHandler(nil, nil)
	var called bool
	handle := api.MaintenanceModeMiddleware(func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		called = true
	})

	w := httptest.NewRecorder()
	handle(w, httptest.NewRequest(http.MethodGet, "/books", nil), nil)
	assert.True(t, called)
	assert.Equal(t, http.StatusOK, w.Code)

	called = false
	api.mode.Enable("database upgrade", api.clock.Now())
	w = httptest.NewRecorder()
	handle(w, httptest.NewRequest(http.MethodGet, "/books", nil), nil)
	res := w.Result()
	defer res.Body.Close()
	assert.False(t, called)
	assert.Equal(t, http.StatusServiceUnavailable, res.StatusCode)
	assert.Equal(t, "database upgrade", decodeBody(t, res)["reason"])
}

// TestRateLimitMiddleware ensures a client exhausting its burst gets 429.
func TestRateLimitMiddleware(t *testing.T) {
	config := &Config{Server: ServerConfig{RateLimit: 0.001, RateBurst: 2}}
	api := newTestAPIHandler(config, nil)
	require.NotNil(t, api.limiter)
	handle := api.RateLimitMiddleware(func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {})

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodGet, "/books", nil)
		req.RemoteAddr = "10.0.0.1:5555"
		w := httptest.NewRecorder()
		handle(w, req, nil)
		codes = append(codes, w.Code)
	}
	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)

	// another client has its own bucket.
	req := httptest.NewRequest(http.MethodGet, "/books", nil)
	req.RemoteAddr = "10.0.0.2:5555"
	w := httptest.NewRecorder()
	handle(w, req, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	t.Run("disabled when limit is zero", func(t *testing.T) {
		api := newTestAPIHandler(nil, nil)
		assert.Nil(t, api.limiter)
		assert.Empty(t, api.BackgroundJobs())
	})
}

// TestClientsLimiterEvict ensures idle clients are dropped.
func TestClientsLimiterEvict(t *testing.T) {
	clock := NewMockClocker()
	cl := NewClientsLimiter(1, 1, clock)
	cl.Allow("10.0.0.1")
	clock.MockNow = clock.MockNow.Add(time.Minute)
	cl.Allow("10.0.0.2")
	assert.Equal(t, 2, cl.Size())

	clock.MockNow = clock.MockNow.Add(limiterIdleTimeout)
	cl.Evict()
	assert.Equal(t, 1, cl.Size())
}

// TestCoreMiddleware ensures handlers get the request-scoped logger.
func TestCoreMiddleware(t *testing.T) {
	api := newTestAPIHandler(nil, nil)
	var logger *zap.Logger
	api.CoreMiddleware(func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		logger, _ = r.Context().Value(LoggerContextKey).(*zap.Logger)
	})(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/books", nil), nil)
	assert.NotNil(t, logger)
}

// TestRateLimitMiddleware_ProxyHeaders ensures forwarding headers only pick
// the client bucket when they are trusted.
func TestRateLimitMiddleware_ProxyHeaders(t *testing.T) {
	send := func(api *APIHandler, forwarded string) int {
		req := httptest.NewRequest(http.MethodGet, "/books", nil)
		req.RemoteAddr = "10.0.0.1:5555"
		req.Header.Set("X-Forwarded-For", forwarded)
		w := httptest.NewRecorder()
		api.RateLimitMiddleware(func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {})(w, req, nil)
		return w.Code
	}

	t.Run("untrusted headers are ignored", func(t *testing.T) {
		api := newTestAPIHandler(&Config{Server: ServerConfig{RateLimit: 0.001, RateBurst: 1}}, nil)
		assert.Equal(t, http.StatusOK, send(api, "1.1.1.1"))
		assert.Equal(t, http.StatusTooManyRequests, send(api, "2.2.2.2"))
		assert.Equal(t, http.StatusTooManyRequests, send(api, "3.3.3.3"))
		assert.Equal(t, 1, api.limiter.Size())
	})

	t.Run("trusted headers identify clients", func(t *testing.T) {
		api := newTestAPIHandler(&Config{Server: ServerConfig{RateLimit: 0.001, RateBurst: 1, TrustProxyHeaders: true}}, nil)
		assert.Equal(t, http.StatusOK, send(api, "1.1.1.1"))
		assert.Equal(t, http.StatusOK, send(api, "2.2.2.2"))
		assert.Equal(t, http.StatusTooManyRequests, send(api, "1.1.1.1"))
		assert.Equal(t, 2, api.limiter.Size())
	})
}
