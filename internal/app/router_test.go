package app

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/nowlisten/nowlisten/internal/observability"
	_ "github.com/nowlisten/nowlisten/testing"
)

func TestRouterHealthz(t *testing.T) {
	router := NewRouter(RouterParams{
		Logger: discardLogger(),
		Config: &Config{AppRequestTimeout: time.Second},
		Checks: map[string]Pinger{
			"redis": PingFunc(func(context.Context) error { return nil }),
		},
	})
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"status":"ok","redis":"ok"}`, rec.Body.String())
	require.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))

	router = NewRouter(RouterParams{
		Logger: discardLogger(),
		Checks: map[string]Pinger{
			"postgres": PingFunc(func(context.Context) error { return errors.New("down") }),
		},
	})
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	require.JSONEq(t, `{"status":"degraded","postgres":"down"}`, rec.Body.String())
}

func TestRouterExposesMetrics(t *testing.T) {
	metrics := observability.NewMetrics()
	router := NewRouter(RouterParams{Logger: discardLogger(), Metrics: metrics})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `nowlisten_http_requests_total{code="200",route="/healthz"} 1`)
}

func TestRouterRejectsBadBearer(t *testing.T) {
	router := NewRouter(RouterParams{Logger: discardLogger(), Tokens: NewAccessTokens("secret")})
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("Authorization", "Bearer junk")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestTestModeFollowsEnvironment(t *testing.T) {
	require.True(t, InTestMode())

	t.Setenv(TestModeEnv, "0")
	RefreshTestMode()
	require.False(t, InTestMode())

	t.Setenv(TestModeEnv, "1")
	RefreshTestMode()
	require.True(t, InTestMode())
}
