package app

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"

	"github.com/nowlisten/nowlisten/internal/shared"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestAccessTokensRoundTrip(t *testing.T) {
	tokens := NewAccessTokens("secret")
	raw, err := tokens.Issue("u1", "Alice@X.com", time.Minute)
	require.NoError(t, err)

	p, err := tokens.Verify(raw)
	require.NoError(t, err)
	require.Equal(t, shared.Principal{UserID: "u1", Email: "alice@x.com"}, p)
}

func TestAccessTokensRejects(t *testing.T) {
	tokens := NewAccessTokens("secret")

	expired, err := tokens.Issue("u1", "a@x.com", -time.Minute)
	require.NoError(t, err)
	_, err = tokens.Verify(expired)
	require.ErrorIs(t, err, ErrInvalidToken)

	foreign, err := NewAccessTokens("other").Issue("u1", "a@x.com", time.Minute)
	require.NoError(t, err)
	_, err = tokens.Verify(foreign)
	require.ErrorIs(t, err, ErrInvalidToken)

	hs512, err := jwt.NewWithClaims(jwt.SigningMethodHS512, AccessClaims{
		RegisteredClaims: jwt.RegisteredClaims{Subject: "u1", ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Minute))},
	}).SignedString([]byte("secret"))
	require.NoError(t, err)
	_, err = tokens.Verify(hs512)
	require.ErrorIs(t, err, ErrInvalidToken)

	noSubject, err := tokens.Issue("", "a@x.com", time.Minute)
	require.NoError(t, err)
	_, err = tokens.Verify(noSubject)
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestPrincipalMiddleware(t *testing.T) {
	tokens := NewAccessTokens("secret")
	var seen shared.Principal
	var authenticated bool
	handler := PrincipalMiddleware(tokens, discardLogger())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, authenticated = shared.PrincipalFromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusNoContent, rec.Code)
	require.False(t, authenticated)

	raw, err := tokens.Issue("u1", "a@x.com", time.Minute)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+raw)
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusNoContent, rec.Code)
	require.True(t, authenticated)
	require.Equal(t, "u1", seen.UserID)

	for _, header := range []string{"Bearer nope", "Basic abc", "Bearer "} {
		authenticated = false
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", header)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		require.Equal(t, http.StatusUnauthorized, rec.Code, header)
		require.False(t, authenticated)
	}
}
