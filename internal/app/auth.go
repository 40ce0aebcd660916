package app

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/nowlisten/nowlisten/internal/platform/httpx"
	"github.com/nowlisten/nowlisten/internal/shared"
)

// ErrInvalidToken is returned for any access token that fails verification.
var ErrInvalidToken = errors.New("invalid access token")

// AccessClaims are the claims carried by access tokens issued by the identity service.
type AccessClaims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// AccessTokens verifies HS256 access tokens.
type AccessTokens struct {
	secret []byte
}

// NewAccessTokens builds a verifier for secret.
func NewAccessTokens(secret string) *AccessTokens {
	return &AccessTokens{secret: []byte(secret)}
}

// Issue signs a token for userID. Used by tests and local tooling; production
// tokens come from the identity service.
func (a *AccessTokens) Issue(userID, email string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := AccessClaims{
		Email: email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
}

// Verify parses raw and returns the principal it names.
func (a *AccessTokens) Verify(raw string) (shared.Principal, error) {
	token, err := jwt.ParseWithClaims(raw, &AccessClaims{}, func(t *jwt.Token) (interface{}, error) {
		return a.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil {
		return shared.Principal{}, ErrInvalidToken
	}
	claims, ok := token.Claims.(*AccessClaims)
	if !ok || !token.Valid || claims.Subject == "" {
		return shared.Principal{}, ErrInvalidToken
	}
	return shared.Principal{UserID: claims.Subject, Email: shared.NormalizeEmail(claims.Email)}, nil
}

// PrincipalMiddleware resolves a bearer token into a request principal. Requests
// without a token pass through anonymously; handlers decide whether that is allowed.
func PrincipalMiddleware(tokens *AccessTokens, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if header == "" {
				next.ServeHTTP(w, r)
				return
			}
			raw, ok := strings.CutPrefix(header, "Bearer ")
			if !ok || strings.TrimSpace(raw) == "" {
				httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "")
				return
			}
			principal, err := tokens.Verify(strings.TrimSpace(raw))
			if err != nil {
				logger.Debug("reject access token", slog.String("path", r.URL.Path), slog.Any("error", err))
				httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "")
				return
			}
			next.ServeHTTP(w, r.WithContext(shared.ContextWithPrincipal(r.Context(), principal)))
		})
	}
}
