package http

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const tokenIssuer = "picloud"

// WithAuthSecret requires a bearer token signed with secret on the routes
// that change state: POST /dispatch and /debug. Reads stay open.
func WithAuthSecret(secret []byte) Option {
	return func(s *Server) {
		s.secret = secret
	}
}

// IssueToken signs a token for subject, valid for ttl.
func IssueToken(secret []byte, subject string, ttl time.Duration) (string, error) {
	if len(secret) == 0 {
		return "", errors.New("empty signing secret")
	}
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Issuer:    tokenIssuer,
		Subject:   subject,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
}

// VerifyToken checks the signature, issuer and expiry of raw and returns
// its subject.
func VerifyToken(secret []byte, raw string) (string, error) {
	claims := &jwt.RegisteredClaims{}
	_, err := jwt.ParseWithClaims(raw, claims,
		func(*jwt.Token) (any, error) { return secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(tokenIssuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return "", fmt.Errorf("invalid token: %w", err)
	}
	return claims.Subject, nil
}

func (s *Server) requireToken(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		if !ok || raw == "" {
			w.Header().Set("WWW-Authenticate", `Bearer realm="picloud"`)
			writeError(w, http.StatusUnauthorized, "missing bearer token")
			return
		}
		subject, err := VerifyToken(s.secret, raw)
		if err != nil {
			w.Header().Set("WWW-Authenticate", `Bearer realm="picloud", error="invalid_token"`)
			writeError(w, http.StatusUnauthorized, "invalid or expired token")
			s.logger.Warn("rejected token", "path", r.URL.Path, "error", err)
			return
		}
		s.logger.Debug("authorized", "subject", subject, "path", r.URL.Path)
		next.ServeHTTP(w, r)
	})
}
