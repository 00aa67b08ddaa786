package httpapi

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
)

// CallerHeader carries the caller id when no JWT secret is configured.
const CallerHeader = "X-Caller-ID"

// AuthConfig selects how callers are authenticated. With an empty Secret the
// server trusts CallerHeader, which is only suitable behind a gateway that
// has already verified the caller.
type AuthConfig struct {
	Secret   string
	Issuer   string
	Audience string
}

type JWTClaims struct {
	Issuer    string `json:"iss,omitempty"`
	Subject   string `json:"sub,omitempty"`
	Audience  any    `json:"aud,omitempty"` // string or []string
	ExpiresAt int64  `json:"exp,omitempty"`
	NotBefore int64  `json:"nbf,omitempty"`
	IssuedAt  int64  `json:"iat,omitempty"`
}

type ctxKey string

const ctxKeyCaller ctxKey = "caller"

// callerFrom returns the authenticated caller or uuid.Nil.
func callerFrom(ctx context.Context) uuid.UUID {
	id, _ := ctx.Value(ctxKeyCaller).(uuid.UUID)
	return id
}

func withCaller(ctx context.Context, id uuid.UUID) context.Context {
	return context.WithValue(ctx, ctxKeyCaller, id)
}

func parseBearerToken(r *http.Request) (string, bool) {
	h := r.Header.Get("Authorization")
	if h == "" {
		return "", false
	}
	if !strings.HasPrefix(h, "Bearer ") && !strings.HasPrefix(h, "bearer ") {
		return "", false
	}
	return strings.TrimSpace(h[len("Bearer "):]), true
}

func base64URLDecode(s string) ([]byte, error) {
	// JWT uses base64url without padding
	return base64.RawURLEncoding.DecodeString(strings.TrimRight(s, "="))
}

func verifyHS256(token, secret string) (JWTClaims, error) {
	var empty JWTClaims
	parts := strings.Split(token, ".")
	if len(parts) != 3 {
		return empty, errors.New("invalid token format")
	}
	headerB, err := base64URLDecode(parts[0])
	if err != nil {
		return empty, errors.New("bad header b64")
	}
	payloadB, err := base64URLDecode(parts[1])
	if err != nil {
		return empty, errors.New("bad payload b64")
	}
	sigB, err := base64URLDecode(parts[2])
	if err != nil {
		return empty, errors.New("bad signature b64")
	}

	// Expect alg HS256
	var hdr struct{ Alg, Typ string }
	if err := json.Unmarshal(headerB, &hdr); err != nil {
		return empty, errors.New("bad header json")
	}
	if !strings.EqualFold(hdr.Alg, "HS256") {
		return empty, errors.New("unsupported alg")
	}

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(parts[0] + "." + parts[1]))
	if !hmac.Equal(sigB, mac.Sum(nil)) {
		return empty, errors.New("invalid signature")
	}

	var claims JWTClaims
	if err := json.Unmarshal(payloadB, &claims); err != nil {
		return empty, errors.New("bad claims json")
	}
	return claims, nil
}

func audContains(aud any, expected string) bool {
	if expected == "" {
		return true
	}
	switch v := aud.(type) {
	case string:
		return strings.EqualFold(v, expected)
	case []any:
		for _, it := range v {
			if s, ok := it.(string); ok && strings.EqualFold(s, expected) {
				return true
			}
		}
	}
	return false
}

// callerFromJWT validates the bearer token and returns its subject as the caller.
func (cfg AuthConfig) callerFromJWT(tok string, now time.Time) (uuid.UUID, error) {
	claims, err := verifyHS256(tok, cfg.Secret)
	if err != nil {
		return uuid.Nil, err
	}
	unix := now.Unix()
	if claims.NotBefore != 0 && unix < claims.NotBefore {
		return uuid.Nil, errors.New("token not yet valid")
	}
	if claims.ExpiresAt != 0 && unix >= claims.ExpiresAt {
		return uuid.Nil, errors.New("token expired")
	}
	if cfg.Issuer != "" && !strings.EqualFold(claims.Issuer, cfg.Issuer) {
		return uuid.Nil, errors.New("unexpected issuer")
	}
	if !audContains(claims.Audience, cfg.Audience) {
		return uuid.Nil, errors.New("unexpected audience")
	}
	id, err := uuid.Parse(claims.Subject)
	if err != nil || id == uuid.Nil {
		return uuid.Nil, errors.New("subject is not a caller id")
	}
	return id, nil
}

// authenticate resolves the caller and stores it in the request context.
// Requests without credentials pass through with no caller so the service
// reports them as unauthenticated; bad credentials are rejected here.
func authenticate(cfg AuthConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var caller uuid.UUID
			if cfg.Secret != "" {
				if tok, ok := parseBearerToken(r); ok {
					id, err := cfg.callerFromJWT(tok, time.Now())
					if err != nil {
						writeErr(w, http.StatusUnauthorized, "unauthenticated", "unauthenticated")
						return
					}
					caller = id
				}
			} else if raw := strings.TrimSpace(r.Header.Get(CallerHeader)); raw != "" {
				id, err := uuid.Parse(raw)
				if err != nil {
					writeErr(w, http.StatusUnauthorized, "unauthenticated", "unauthenticated")
					return
				}
				caller = id
			}
			next.ServeHTTP(w, r.WithContext(withCaller(r.Context(), caller)))
		})
	}
}
