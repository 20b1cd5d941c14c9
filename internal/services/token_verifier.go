package services

import (
	"context"
	"crypto/rsa"
	"crypto/subtle"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/time/rate"

	"github.com/yungbote/infographic-backend/internal/pkg/ctxutil"
	"github.com/yungbote/infographic-backend/internal/pkg/logger"
)

var bypassIdentity = ctxutil.Identity{
	Subject: "local-dev",
	Email:   "dev@localhost",
	Name:    "Local Developer",
	Bypass:  true,
}

type TokenVerifier interface {
	// Verify checks the Authorization header value and returns the caller.
	Verify(ctx context.Context, authorizationHeader string) (*ctxutil.Identity, error)
	Bypass() bool
}

type TokenVerifierConfig struct {
	TenantID   string
	ClientID   string
	JWKSURL    string
	Bypass     bool
	HTTPClient *http.Client
}

type tokenVerifier struct {
	log      *logger.Logger
	bypass   bool
	tenantID string
	clientID string
	issuers  []string
	jwks     *jwksCache
	leeway   time.Duration
}

func NewTokenVerifier(log *logger.Logger, cfg TokenVerifierConfig) TokenVerifier {
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	tenantID := strings.TrimSpace(cfg.TenantID)
	jwksURL := strings.TrimSpace(cfg.JWKSURL)
	if jwksURL == "" && tenantID != "" {
		jwksURL = fmt.Sprintf("https://login.microsoftonline.com/%s/discovery/v2.0/keys", tenantID)
	}
	v := &tokenVerifier{
		log:      log.With("service", "TokenVerifier"),
		bypass:   cfg.Bypass,
		tenantID: tenantID,
		clientID: strings.TrimSpace(cfg.ClientID),
		jwks:     newJWKSCache(httpClient, jwksURL),
		leeway:   60 * time.Second,
	}
	if tenantID != "" {
		v.issuers = []string{
			fmt.Sprintf("https://login.microsoftonline.com/%s/v2.0", tenantID),
			fmt.Sprintf("https://sts.windows.net/%s/", tenantID),
		}
	}
	return v
}

func (v *tokenVerifier) Bypass() bool { return v.bypass }

func (v *tokenVerifier) Verify(ctx context.Context, authorizationHeader string) (*ctxutil.Identity, error) {
	if v.bypass {
		id := bypassIdentity
		return &id, nil
	}
	if v.tenantID == "" || v.clientID == "" {
		return nil, ErrAuthConfigMissing
	}

	token, ok := bearerToken(authorizationHeader)
	if !ok {
		return nil, ErrUnauthorized
	}
	claims, err := v.verify(ctx, token)
	if err != nil {
		v.log.Debug("bearer token rejected", "error", err)
		return nil, ErrUnauthorized
	}
	return claimsToIdentity(claims), nil
}

func bearerToken(header string) (string, bool) {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

func (v *tokenVerifier) verify(ctx context.Context, tokenString string) (jwt.MapClaims, error) {
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{"RS256"}),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(v.leeway),
	)
	claims := jwt.MapClaims{}
	tok, err := parser.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		kid, _ := t.Header["kid"].(string)
		if strings.TrimSpace(kid) == "" {
			return nil, fmt.Errorf("missing kid")
		}
		return v.jwks.getKey(ctx, kid)
	})
	if err != nil {
		return nil, fmt.Errorf("invalid token: %w", err)
	}
	if tok == nil || !tok.Valid {
		return nil, fmt.Errorf("invalid token")
	}

	if !audContains(claims["aud"], v.clientID, "api://"+v.clientID) {
		return nil, fmt.Errorf("audience mismatch")
	}
	// both v1 and v2 issuer formats are emitted for the same tenant
	if iss, _ := claims["iss"].(string); iss != "" && !containsIssuer(v.issuers, iss) {
		return nil, fmt.Errorf("issuer mismatch: %q", iss)
	}
	return claims, nil
}

func claimsToIdentity(c jwt.MapClaims) *ctxutil.Identity {
	str := func(k string) string {
		s, _ := c[k].(string)
		return strings.TrimSpace(s)
	}
	return &ctxutil.Identity{
		Subject:           str("sub"),
		Email:             str("email"),
		PreferredUsername: str("preferred_username"),
		UPN:               str("upn"),
		Name:              str("name"),
		TenantClaim:       str("tid"),
	}
}

func containsIssuer(list []string, iss string) bool {
	for _, v := range list {
		if len(v) == len(iss) && subtle.ConstantTimeCompare([]byte(v), []byte(iss)) == 1 {
			return true
		}
	}
	return false
}

func audContains(aud any, accepted ...string) bool {
	match := func(s string) bool {
		for _, a := range accepted {
			if s == a {
				return true
			}
		}
		return false
	}
	switch v := aud.(type) {
	case string:
		return match(v)
	case []any:
		for _, it := range v {
			if s, ok := it.(string); ok && match(s) {
				return true
			}
		}
	case []string:
		for _, s := range v {
			if match(s) {
				return true
			}
		}
	}
	return false
}

// ----- JWKS cache -----

type jwksCache struct {
	httpClient *http.Client
	url        string
	ttl        time.Duration
	// unknown kids must not turn into a fetch per request
	refreshLimiter *rate.Limiter
	now            func() time.Time

	mu        sync.RWMutex
	keys      map[string]*rsa.PublicKey
	fetchedAt time.Time
}

func newJWKSCache(httpClient *http.Client, url string) *jwksCache {
	return &jwksCache{
		httpClient:     httpClient,
		url:            url,
		ttl:            6 * time.Hour,
		refreshLimiter: rate.NewLimiter(rate.Every(30*time.Second), 1),
		now:            time.Now,
		keys:           map[string]*rsa.PublicKey{},
	}
}

type jwkSet struct {
	Keys []jwk `json:"keys"`
}

type jwk struct {
	Kty string `json:"kty"`
	Kid string `json:"kid"`
	Use string `json:"use"`
	N   string `json:"n"`
	E   string `json:"e"`
}

func (j *jwksCache) getKey(ctx context.Context, kid string) (*rsa.PublicKey, error) {
	j.mu.RLock()
	key := j.keys[kid]
	stale := j.now().Sub(j.fetchedAt) > j.ttl
	j.mu.RUnlock()

	if key != nil && !stale {
		return key, nil
	}
	if strings.TrimSpace(j.url) == "" {
		return nil, errors.New("jwks url not set")
	}
	if !j.refreshLimiter.Allow() {
		if key != nil {
			return key, nil
		}
		return nil, fmt.Errorf("kid not found in jwks (refresh throttled): %s", kid)
	}

	if err := j.refresh(ctx); err != nil {
		if key != nil {
			return key, nil
		}
		return nil, err
	}

	j.mu.RLock()
	defer j.mu.RUnlock()
	key = j.keys[kid]
	if key == nil {
		return nil, fmt.Errorf("kid not found in jwks: %s", kid)
	}
	return key, nil
}

func (j *jwksCache) refresh(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, j.url, nil)
	if err != nil {
		return err
	}
	res, err := j.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		return fmt.Errorf("jwks fetch failed: %s", res.Status)
	}

	var set jwkSet
	if err := json.NewDecoder(res.Body).Decode(&set); err != nil {
		return err
	}

	next := map[string]*rsa.PublicKey{}
	for _, k := range set.Keys {
		if strings.TrimSpace(k.Kid) == "" || k.Kty != "RSA" {
			continue
		}
		if k.Use != "" && k.Use != "sig" {
			continue
		}
		if pub, err := rsaFromModExp(k.N, k.E); err == nil {
			next[k.Kid] = pub
		}
	}
	if len(next) == 0 {
		return fmt.Errorf("jwks contained no usable keys")
	}

	j.mu.Lock()
	j.keys = next
	j.fetchedAt = j.now()
	j.mu.Unlock()
	return nil
}

func rsaFromModExp(nB64, eB64 string) (*rsa.PublicKey, error) {
	nb, err := base64.RawURLEncoding.DecodeString(nB64)
	if err != nil {
		return nil, err
	}
	eb, err := base64.RawURLEncoding.DecodeString(eB64)
	if err != nil {
		return nil, err
	}

	n := new(big.Int).SetBytes(nb)
	e := 0
	for _, b := range eb {
		e = e<<8 + int(b)
	}
	if e == 0 {
		return nil, fmt.Errorf("invalid exponent")
	}
	return &rsa.PublicKey{N: n, E: e}, nil
}
