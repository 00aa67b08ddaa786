package httpapi

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
)

const testSecret = "dev-secret"

func signHS256(t *testing.T, secret string, claims map[string]any) string {
	t.Helper()
	hdr, _ := json.Marshal(map[string]string{"alg": "HS256", "typ": "JWT"})
	body, err := json.Marshal(claims)
	if err != nil {
		t.Fatalf("marshal claims: %v", err)
	}
	unsigned := base64.RawURLEncoding.EncodeToString(hdr) + "." + base64.RawURLEncoding.EncodeToString(body)
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(unsigned))
	return unsigned + "." + base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}

func postWithToken(h http.Handler, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/v1/entries", strings.NewReader(`{"title":"Notes","message":"hi"}`))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestAuth_JWT(t *testing.T) {
	cfg := AuthConfig{Secret: testSecret, Issuer: "journal", Audience: "journal-api"}
	caller := uuid.New()
	exp := time.Now().Add(time.Hour).Unix()
	valid := map[string]any{"sub": caller.String(), "iss": "journal", "aud": []string{"journal-api"}, "exp": exp}

	cases := []struct {
		name   string
		token  string
		status int
	}{
		{"valid", signHS256(t, testSecret, valid), http.StatusCreated},
		{"missing", "", http.StatusUnauthorized},
		{"wrong secret", signHS256(t, "other", valid), http.StatusUnauthorized},
		{"expired", signHS256(t, testSecret, map[string]any{"sub": caller.String(), "iss": "journal", "aud": "journal-api", "exp": time.Now().Add(-time.Minute).Unix()}), http.StatusUnauthorized},
		{"wrong issuer", signHS256(t, testSecret, map[string]any{"sub": caller.String(), "iss": "other", "aud": "journal-api", "exp": exp}), http.StatusUnauthorized},
		{"wrong audience", signHS256(t, testSecret, map[string]any{"sub": caller.String(), "iss": "journal", "aud": "other", "exp": exp}), http.StatusUnauthorized},
		{"subject not uuid", signHS256(t, testSecret, map[string]any{"sub": "alice", "iss": "journal", "aud": "journal-api", "exp": exp}), http.StatusUnauthorized},
		{"garbage", "a.b", http.StatusUnauthorized},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, _, h := setup(t, WithAuth(cfg))
			rec := postWithToken(h, tc.token)
			if rec.Code != tc.status {
				t.Fatalf("expected %d, got %d: %s", tc.status, rec.Code, rec.Body.String())
			}
		})
	}
}

func TestAuth_JWTIgnoresCallerHeader(t *testing.T) {
	_, _, h := setup(t, WithAuth(AuthConfig{Secret: testSecret}))
	req := httptest.NewRequest(http.MethodPost, "/v1/entries", strings.NewReader(`{"title":"Notes","message":"hi"}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(CallerHeader, uuid.NewString())
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestAuth_SubjectBecomesOwner(t *testing.T) {
	caller := uuid.New()
	_, _, h := setup(t, WithAuth(AuthConfig{Secret: testSecret}))
	rec := postWithToken(h, signHS256(t, testSecret, map[string]any{"sub": caller.String()}))
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rec.Code)
	}
	var er entryResp
	if err := json.Unmarshal(rec.Body.Bytes(), &er); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if er.Owner != caller.String() {
		t.Fatalf("owner %s, want %s", er.Owner, caller)
	}
}
