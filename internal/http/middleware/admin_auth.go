package middleware

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

type contextKey string

const adminClaimsKey contextKey = "adminClaims"

// AdminAuthOption tunes AdminJWT.
type AdminAuthOption func(*adminAuth)

type adminAuth struct {
	secret []byte
	issuer string
	leeway time.Duration
}

// WithAdminIssuer requires the token's iss claim to equal issuer.
func WithAdminIssuer(issuer string) AdminAuthOption {
	return func(a *adminAuth) { a.issuer = strings.TrimSpace(issuer) }
}

// WithAdminLeeway tolerates clock skew when checking exp and nbf.
func WithAdminLeeway(d time.Duration) AdminAuthOption {
	return func(a *adminAuth) { a.leeway = d }
}

// AdminJWT guards the studio owner's review endpoints. Tokens must be
// HMAC-signed with secret and carry an exp claim. An empty secret rejects
// every request.
func AdminJWT(secret string, opts ...AdminAuthOption) func(http.Handler) http.Handler {
	a := &adminAuth{secret: []byte(secret)}
	for _, opt := range opts {
		opt(a)
	}

	parserOpts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg(), jwt.SigningMethodHS384.Alg(), jwt.SigningMethodHS512.Alg()}),
		jwt.WithExpirationRequired(),
	}
	if a.issuer != "" {
		parserOpts = append(parserOpts, jwt.WithIssuer(a.issuer))
	}
	if a.leeway > 0 {
		parserOpts = append(parserOpts, jwt.WithLeeway(a.leeway))
	}
	parser := jwt.NewParser(parserOpts...)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if len(a.secret) == 0 {
				unauthorized(w, "admin auth disabled")
				return
			}
			tokenString, ok := bearerToken(r)
			if !ok {
				unauthorized(w, "missing authorization header")
				return
			}

			claims := jwt.RegisteredClaims{}
			token, err := parser.ParseWithClaims(tokenString, &claims, func(*jwt.Token) (any, error) {
				return a.secret, nil
			})
			if err != nil || !token.Valid {
				unauthorized(w, "invalid token")
				return
			}
			ctx := context.WithValue(r.Context(), adminClaimsKey, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// AdminClaimsFromContext returns admin JWT claims if present.
func AdminClaimsFromContext(ctx context.Context) (jwt.RegisteredClaims, bool) {
	claims, ok := ctx.Value(adminClaimsKey).(jwt.RegisteredClaims)
	return claims, ok
}

func bearerToken(r *http.Request) (string, bool) {
	scheme, token, found := strings.Cut(strings.TrimSpace(r.Header.Get("Authorization")), " ")
	if !found || !strings.EqualFold(scheme, "bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

func unauthorized(w http.ResponseWriter, msg string) {
	w.Header().Set("WWW-Authenticate", `Bearer realm="studio-admin"`)
	http.Error(w, msg, http.StatusUnauthorized)
}
