package services

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"errors"
	"math/big"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/yungbote/infographic-backend/internal/pkg/logger"
)

const (
	testTenant = "11111111-2222-3333-4444-555555555555"
	testClient = "app-client-id"
)

type jwksFixture struct {
	key    *rsa.PrivateKey
	kid    string
	hits   atomic.Int32
	server *httptest.Server
}

func newJWKSFixture(t *testing.T) *jwksFixture {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("GenerateKey: %v", err)
	}
	f := &jwksFixture{key: key, kid: "kid-1"}
	f.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.hits.Add(1)
		set := jwkSet{Keys: []jwk{{
			Kty: "RSA",
			Kid: f.kid,
			Use: "sig",
			N:   base64.RawURLEncoding.EncodeToString(key.PublicKey.N.Bytes()),
			E:   base64.RawURLEncoding.EncodeToString(big.NewInt(int64(key.PublicKey.E)).Bytes()),
		}}}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(set)
	}))
	t.Cleanup(f.server.Close)
	return f
}

func (f *jwksFixture) sign(t *testing.T, kid string, claims jwt.MapClaims) string {
	t.Helper()
	tok := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	tok.Header["kid"] = kid
	s, err := tok.SignedString(f.key)
	if err != nil {
		t.Fatalf("SignedString: %v", err)
	}
	return s
}

func validClaims() jwt.MapClaims {
	return jwt.MapClaims{
		"sub":                "subject-1",
		"aud":                testClient,
		"iss":                "https://login.microsoftonline.com/" + testTenant + "/v2.0",
		"exp":                time.Now().Add(time.Hour).Unix(),
		"preferred_username": "Ada@Example.com",
		"name":               "Ada",
		"tid":                testTenant,
	}
}

func newTestVerifier(f *jwksFixture) TokenVerifier {
	return NewTokenVerifier(logger.Nop(), TokenVerifierConfig{
		TenantID: testTenant,
		ClientID: testClient,
		JWKSURL:  f.server.URL,
	})
}

func TestTokenVerifierAcceptsValidToken(t *testing.T) {
	f := newJWKSFixture(t)
	v := newTestVerifier(f)

	id, err := v.Verify(context.Background(), "bearer "+f.sign(t, f.kid, validClaims()))
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if id.Subject != "subject-1" || id.PrimaryEmail() != "Ada@Example.com" || id.TenantClaim != testTenant {
		t.Fatalf("unexpected identity %+v", id)
	}
}

func TestTokenVerifierAcceptsAPIAudienceAndV1Issuer(t *testing.T) {
	f := newJWKSFixture(t)
	v := newTestVerifier(f)

	claims := validClaims()
	claims["aud"] = []any{"other", "api://" + testClient}
	claims["iss"] = "https://sts.windows.net/" + testTenant + "/"
	if _, err := v.Verify(context.Background(), "Bearer "+f.sign(t, f.kid, claims)); err != nil {
		t.Fatalf("Verify: %v", err)
	}
}

func TestTokenVerifierRejections(t *testing.T) {
	f := newJWKSFixture(t)
	v := newTestVerifier(f)

	cases := map[string]func(jwt.MapClaims){
		"wrong audience": func(c jwt.MapClaims) { c["aud"] = "someone-else" },
		"wrong issuer":   func(c jwt.MapClaims) { c["iss"] = "https://evil.example.com/" },
		"expired":        func(c jwt.MapClaims) { c["exp"] = time.Now().Add(-time.Hour).Unix() },
		"missing exp":    func(c jwt.MapClaims) { delete(c, "exp") },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			claims := validClaims()
			mutate(claims)
			_, err := v.Verify(context.Background(), "Bearer "+f.sign(t, f.kid, claims))
			if !errors.Is(err, ErrUnauthorized) {
				t.Fatalf("expected ErrUnauthorized, got %v", err)
			}
		})
	}

	for _, header := range []string{"", "Bearer", "Basic abc", "Bearer not.a.jwt"} {
		if _, err := v.Verify(context.Background(), header); !errors.Is(err, ErrUnauthorized) {
			t.Fatalf("header %q: expected ErrUnauthorized, got %v", header, err)
		}
	}
}

func TestTokenVerifierRejectsHS256(t *testing.T) {
	f := newJWKSFixture(t)
	v := newTestVerifier(f)

	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, validClaims())
	tok.Header["kid"] = f.kid
	s, err := tok.SignedString([]byte("shared-secret"))
	if err != nil {
		t.Fatalf("SignedString: %v", err)
	}
	if _, err := v.Verify(context.Background(), "Bearer "+s); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
}

func TestTokenVerifierThrottlesUnknownKidRefresh(t *testing.T) {
	f := newJWKSFixture(t)
	v := newTestVerifier(f)

	if _, err := v.Verify(context.Background(), "Bearer "+f.sign(t, f.kid, validClaims())); err != nil {
		t.Fatalf("Verify: %v", err)
	}
	for i := 0; i < 5; i++ {
		if _, err := v.Verify(context.Background(), "Bearer "+f.sign(t, "unknown-kid", validClaims())); !errors.Is(err, ErrUnauthorized) {
			t.Fatalf("expected ErrUnauthorized, got %v", err)
		}
	}
	if got := f.hits.Load(); got != 1 {
		t.Fatalf("expected a single JWKS fetch, got %d", got)
	}
}

func TestTokenVerifierBypassAndMissingConfig(t *testing.T) {
	bypass := NewTokenVerifier(logger.Nop(), TokenVerifierConfig{Bypass: true})
	id, err := bypass.Verify(context.Background(), "")
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if id.Subject != "local-dev" || id.Email != "dev@localhost" || id.Name != "Local Developer" || !id.Bypass {
		t.Fatalf("unexpected bypass identity %+v", id)
	}

	missing := NewTokenVerifier(logger.Nop(), TokenVerifierConfig{ClientID: testClient})
	if _, err := missing.Verify(context.Background(), "Bearer x"); !errors.Is(err, ErrAuthConfigMissing) {
		t.Fatalf("expected ErrAuthConfigMissing, got %v", err)
	}
}
