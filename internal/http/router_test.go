package http

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/yungbote/infographic-backend/internal/data/repos"
	"github.com/yungbote/infographic-backend/internal/data/repos/testutil"
	types "github.com/yungbote/infographic-backend/internal/domain"
	httpH "github.com/yungbote/infographic-backend/internal/http/handlers"
	httpMW "github.com/yungbote/infographic-backend/internal/http/middleware"
	"github.com/yungbote/infographic-backend/internal/http/response"
	"github.com/yungbote/infographic-backend/internal/observability"
	"github.com/yungbote/infographic-backend/internal/pkg/ctxutil"
	"github.com/yungbote/infographic-backend/internal/pkg/httpx"
	"github.com/yungbote/infographic-backend/internal/pkg/logger"
	"github.com/yungbote/infographic-backend/internal/pkg/ratelimit"
	"github.com/yungbote/infographic-backend/internal/platform/gemini"
	"github.com/yungbote/infographic-backend/internal/services"
)

const testDim = 4

type stubAI struct {
	text  string
	image []byte

	embedErr error
	// embedDim overrides the returned vector length when non-zero.
	embedDim int
}

func (a *stubAI) TextModel() string  { return "text-model" }
func (a *stubAI) ImageModel() string { return "image-model" }
func (a *stubAI) EmbedModel() string { return "embed-model" }

func (a *stubAI) GenerateContent(_ context.Context, model string, _ []gemini.Part, _ gemini.GenerationConfig) (*gemini.RawResult, error) {
	part := map[string]any{"text": a.text}
	if a.image != nil {
		part = map[string]any{"inlineData": map[string]any{
			"mimeType": "image/png",
			"data":     base64.StdEncoding.EncodeToString(a.image),
		}}
	}
	body, _ := json.Marshal(map[string]any{
		"candidates": []any{map[string]any{"content": map[string]any{"parts": []any{part}}}},
	})
	return &gemini.RawResult{Model: model, Body: body}, nil
}

func (a *stubAI) EmbedText(_ context.Context, _ string, text string) ([]float64, error) {
	if a.embedErr != nil {
		return nil, a.embedErr
	}
	n := testDim
	if a.embedDim > 0 {
		n = a.embedDim
	}
	out := make([]float64, n)
	for i := range out {
		out[i] = float64(len(text)+i) / 10
	}
	return out, nil
}

type fixedVerifier struct{ id *ctxutil.Identity }

func (v fixedVerifier) Verify(context.Context, string) (*ctxutil.Identity, error) { return v.id, nil }
func (v fixedVerifier) Bypass() bool                                             { return true }

type countingSigner struct {
	mu    sync.Mutex
	calls int
}

func (s *countingSigner) SignedPutURL(bucket, object, _ string, _ time.Time) (string, error) {
	s.mu.Lock()
	s.calls++
	s.mu.Unlock()
	return fmt.Sprintf("https://storage.googleapis.com/%s/%s?X-Goog-Signature=put", bucket, object), nil
}

func (s *countingSigner) SignedGetURL(bucket, object string, _ time.Time) (string, error) {
	s.mu.Lock()
	s.calls++
	s.mu.Unlock()
	return fmt.Sprintf("https://storage.googleapis.com/%s/%s?X-Goog-Signature=get", bucket, object), nil
}

func (s *countingSigner) Account() string { return "signer@example.iam.gserviceaccount.com" }

type testEnv struct {
	router  *gin.Engine
	db      *gorm.DB
	signer  *countingSigner
	queries *atomic.Int64
	owner   *types.User
	tenant  *types.Tenant
}

func countQueries(tb testing.TB, gdb *gorm.DB) *atomic.Int64 {
	tb.Helper()
	var n atomic.Int64
	inc := func(*gorm.DB) { n.Add(1) }
	cb := gdb.Callback()
	if err := cb.Query().Before("gorm:query").Register("test:count_query", inc); err != nil {
		tb.Fatalf("register query callback: %v", err)
	}
	if err := cb.Row().Before("gorm:row").Register("test:count_row", inc); err != nil {
		tb.Fatalf("register row callback: %v", err)
	}
	if err := cb.Raw().Before("gorm:raw").Register("test:count_raw", inc); err != nil {
		tb.Fatalf("register raw callback: %v", err)
	}
	if err := cb.Create().Before("gorm:create").Register("test:count_create", inc); err != nil {
		tb.Fatalf("register create callback: %v", err)
	}
	return &n
}

// newTestEnv wires the real services on SQLite. verifier nil means a verifier
// with identity provider configuration present and bypass disabled.
func newTestEnv(t *testing.T, verifier services.TokenVerifier) *testEnv {
	t.Helper()
	return newTestEnvWithAI(t, verifier, &stubAI{image: []byte("png-bytes")})
}

func newTestEnvWithAI(t *testing.T, verifier services.TokenVerifier, ai *stubAI) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)
	ctx := context.Background()
	log := logger.Nop()
	gdb := testutil.SQLite(t)

	tenant := testutil.SeedTenant(t, ctx, gdb, types.DefaultTenantSlug, time.Now().Add(-time.Hour).UTC())
	owner := testutil.SeedUser(t, ctx, gdb, tenant.ID, "owner@example.com")

	if verifier == nil {
		verifier = services.NewTokenVerifier(log, services.TokenVerifierConfig{
			TenantID: "11111111-2222-3333-4444-555555555555",
			ClientID: "client-id",
			JWKSURL:  "http://127.0.0.1:1/keys",
		})
	}

	tenants := repos.NewTenantRepo(gdb, log)
	users := repos.NewUserRepo(gdb, log)
	styles := repos.NewStyleRepo(gdb, log)
	history := repos.NewHistoryRepo(gdb, log)

	signer := &countingSigner{}
	resolver := services.NewTenantResolver(log, tenants, users, services.TenantResolverConfig{})
	embeddings := services.NewEmbeddingService(log, ai, testDim)
	loader := services.NewMediaLoader(log, nil, services.MediaLoaderConfig{})
	historySvc := services.NewHistoryService(log, history, styles)
	metrics := observability.NewMetrics()

	router := NewRouter(RouterConfig{
		Log:                 log,
		CORSOrigins:         []string{"*"},
		Metrics:             metrics,
		AuthMiddleware:      httpMW.NewAuthMiddleware(log, verifier),
		RateLimitMiddleware: httpMW.NewRateLimitMiddleware(log, ratelimit.NewInMemory(time.Minute), 1000, metrics),
		HealthHandler:       httpH.NewHealthHandler(),
		AnalysisHandler: httpH.NewAnalysisHandler(log,
			services.NewDocumentAnalysisService(log, ai, loader),
			services.NewStyleAnalysisService(log, ai, loader, embeddings, styles),
			resolver),
		GenerationHandler: httpH.NewGenerationHandler(log,
			services.NewImageGenerationService(log, ai, loader, historySvc),
			services.NewPromptOptimizer(log, ai),
			resolver),
		EmbeddingHandler: httpH.NewEmbeddingHandler(log, embeddings),
		BlobHandler: httpH.NewBlobHandler(log, services.NewBlobCredentialService(log, signer, services.BlobCredentialConfig{
			DefaultContainer: "uploads",
		})),
		StyleHandler: httpH.NewStyleHandler(log,
			services.NewStyleLibraryService(log, styles, embeddings),
			embeddings,
			services.NewBackfillService(log, styles, embeddings, 2),
			resolver),
		HistoryHandler: httpH.NewHistoryHandler(log, historySvc, resolver),
	})

	return &testEnv{
		router:  router,
		db:      gdb,
		signer:  signer,
		queries: countQueries(t, gdb),
		owner:   owner,
		tenant:  tenant,
	}
}

func bypassVerifier() services.TokenVerifier {
	return fixedVerifier{id: &ctxutil.Identity{Subject: "owner-sub", Email: "owner@example.com", Name: "Owner"}}
}

func (e *testEnv) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var env response.ErrorEnvelope
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode envelope: %v body=%s", err, rec.Body.String())
	}
	return env.Error.Code
}

func TestBackfillDryRunPersistsNothing(t *testing.T) {
	env := newTestEnv(t, bypassVerifier())
	ctx := context.Background()
	base := time.Now().Add(-30 * time.Minute).UTC()
	for i := 0; i < 5; i++ {
		testutil.SeedStyle(t, ctx, env.db, env.tenant.ID, env.owner.ID, fmt.Sprintf("style-%d", i), nil, base.Add(time.Duration(i)*time.Minute))
	}

	rec := env.do(t, http.MethodPost, "/styles-backfill", map[string]any{"limit": 2, "dryRun": true})
	if rec.Code != http.StatusOK {
		t.Fatalf("status: want=%d got=%d body=%s", http.StatusOK, rec.Code, rec.Body.String())
	}
	var out services.BackfillResult
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out.Processed != 2 || out.Updated > 2 || out.Remaining < 3 || !out.DryRun {
		t.Fatalf("result: got=%+v", out)
	}
	var withEmbedding int64
	if err := env.db.Model(&types.Style{}).Where("embedding IS NOT NULL").Count(&withEmbedding).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	if withEmbedding != 0 {
		t.Fatalf("dry run persisted %d embeddings", withEmbedding)
	}
}

func TestProtectedRoutesRequireBearerToken(t *testing.T) {
	env := newTestEnv(t, nil)
	routes := []struct{ method, path string }{
		{http.MethodPost, "/analyze-document"},
		{http.MethodPost, "/generate-images"},
		{http.MethodGet, "/styles"},
		{http.MethodPost, "/styles/search"},
		{http.MethodGet, "/history"},
		{http.MethodPost, "/blob-sas"},
		{http.MethodPost, "/styles-backfill"},
	}
	for _, rt := range routes {
		rec := env.do(t, rt.method, rt.path, map[string]any{})
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("%s %s status: want=%d got=%d", rt.method, rt.path, http.StatusUnauthorized, rec.Code)
		}
		if code := errorCode(t, rec); code != "unauthorized" {
			t.Fatalf("%s %s code: want=%q got=%q", rt.method, rt.path, "unauthorized", code)
		}
	}
}

func TestBlobCredentialRejectsTraversal(t *testing.T) {
	env := newTestEnv(t, bypassVerifier())
	rec := env.do(t, http.MethodPost, "/blob-sas", map[string]any{"fileName": "../etc/passwd"})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status: want=%d got=%d body=%s", http.StatusBadRequest, rec.Code, rec.Body.String())
	}
	if code := errorCode(t, rec); code != "bad_request" {
		t.Fatalf("code: want=%q got=%q", "bad_request", code)
	}
	if env.signer.calls != 0 {
		t.Fatalf("signer called %d times for a rejected name", env.signer.calls)
	}
}

func TestBlobCredentialIssued(t *testing.T) {
	env := newTestEnv(t, bypassVerifier())
	rec := env.do(t, http.MethodPost, "/blob-sas", map[string]any{"fileName": "decks/q3.pdf"})
	if rec.Code != http.StatusOK {
		t.Fatalf("status: want=%d got=%d body=%s", http.StatusOK, rec.Code, rec.Body.String())
	}
	var cred services.BlobCredential
	if err := json.Unmarshal(rec.Body.Bytes(), &cred); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if cred.Container != "uploads" || cred.BlobName != "decks/q3.pdf" || cred.Token == "" || cred.ReadURL == "" {
		t.Fatalf("credential: got=%+v", cred)
	}
}

func TestStyleSearchRejectsWrongDimensionWithoutStoreAccess(t *testing.T) {
	env := newTestEnv(t, bypassVerifier())
	before := env.queries.Load()
	rec := env.do(t, http.MethodPost, "/styles/search", map[string]any{"embedding": []float64{0.1, 0.2}})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status: want=%d got=%d body=%s", http.StatusBadRequest, rec.Code, rec.Body.String())
	}
	if code := errorCode(t, rec); code != "bad_request" {
		t.Fatalf("code: want=%q got=%q", "bad_request", code)
	}
	if after := env.queries.Load(); after != before {
		t.Fatalf("store queried %d times", after-before)
	}
}

func TestStyleLifecycleKeepsHistory(t *testing.T) {
	env := newTestEnv(t, bypassVerifier())

	rec := env.do(t, http.MethodPost, "/styles", map[string]any{"name": "Blueprint", "prompt": "blue lines on white", "tags": []string{"tech"}})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create style: want=%d got=%d body=%s", http.StatusCreated, rec.Code, rec.Body.String())
	}
	var created struct {
		Style           types.Style `json:"style"`
		EmbeddingStatus string      `json:"embedding_status"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if created.EmbeddingStatus != "present" {
		t.Fatalf("embedding status: want=%q got=%q", "present", created.EmbeddingStatus)
	}

	rec = env.do(t, http.MethodPost, "/generate-images", map[string]any{"prompt": "quarterly results", "styleId": created.Style.ID.String()})
	if rec.Code != http.StatusOK {
		t.Fatalf("generate: want=%d got=%d body=%s", http.StatusOK, rec.Code, rec.Body.String())
	}
	var gen services.GeneratedImage
	if err := json.Unmarshal(rec.Body.Bytes(), &gen); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if gen.HistoryID == nil || gen.AspectRatio != "16:9" {
		t.Fatalf("generated: got=%+v", gen)
	}

	rec = env.do(t, http.MethodDelete, "/styles/"+created.Style.ID.String(), nil)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("delete: want=%d got=%d body=%s", http.StatusNoContent, rec.Code, rec.Body.String())
	}

	rec = env.do(t, http.MethodGet, "/history/"+gen.HistoryID.String(), nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("history: want=%d got=%d body=%s", http.StatusOK, rec.Code, rec.Body.String())
	}
	var h types.History
	if err := json.Unmarshal(rec.Body.Bytes(), &h); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if h.StyleID != nil {
		t.Fatalf("history style reference should be cleared, got=%v", h.StyleID)
	}

	rec = env.do(t, http.MethodDelete, "/styles/"+created.Style.ID.String(), nil)
	if rec.Code != http.StatusNotFound || errorCode(t, rec) != "not_found" {
		t.Fatalf("second delete: status=%d body=%s", rec.Code, rec.Body.String())
	}
}

func TestGenerateImagesValidatesAspectRatio(t *testing.T) {
	env := newTestEnv(t, bypassVerifier())
	rec := env.do(t, http.MethodPost, "/generate-images", map[string]any{"prompt": "x", "aspectRatio": "7:3"})
	if rec.Code != http.StatusBadRequest || errorCode(t, rec) != "bad_request" {
		t.Fatalf("status=%d body=%s", rec.Code, rec.Body.String())
	}
}

func TestRouterEnvelopes(t *testing.T) {
	env := newTestEnv(t, nil)

	rec := env.do(t, http.MethodGet, "/health", nil)
	if rec.Code != http.StatusOK || rec.Body.String() != `{"status":"ok"}` {
		t.Fatalf("health: status=%d body=%s", rec.Code, rec.Body.String())
	}

	rec = env.do(t, http.MethodGet, "/nope", nil)
	if rec.Code != http.StatusNotFound || errorCode(t, rec) != "not_found" {
		t.Fatalf("no route: status=%d body=%s", rec.Code, rec.Body.String())
	}

	rec = env.do(t, http.MethodPut, "/styles", nil)
	if rec.Code != http.StatusMethodNotAllowed || errorCode(t, rec) != "method_not_allowed" {
		t.Fatalf("no method: status=%d body=%s", rec.Code, rec.Body.String())
	}

	rec = env.do(t, http.MethodOptions, "/generate-images", nil)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("options: want=%d got=%d", http.StatusNoContent, rec.Code)
	}

	rec = env.do(t, http.MethodGet, "/metrics", nil)
	if rec.Code != http.StatusOK || !bytes.Contains(rec.Body.Bytes(), []byte("infographic_http_requests_total")) {
		t.Fatalf("metrics: status=%d", rec.Code)
	}
}

func withDetailedErrors(t *testing.T, on bool) {
	t.Helper()
	prev := response.DetailedErrors()
	response.SetDetailedErrors(on)
	t.Cleanup(func() { response.SetDetailedErrors(prev) })
}

func TestEmbeddingFailureTextIsSanitized(t *testing.T) {
	const secret = "INTERNAL-SECRET project=acme-prod"
	upstream := &httpx.StatusError{Service: "gemini", StatusCode: 500, Body: secret}

	cases := []struct {
		name     string
		detailed bool
	}{
		{"generic", false},
		{"detailed", true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			withDetailedErrors(t, tc.detailed)
			env := newTestEnvWithAI(t, bypassVerifier(), &stubAI{embedErr: upstream})

			rec := env.do(t, http.MethodPost, "/styles", map[string]any{"name": "Neon", "prompt": "neon glow"})
			if rec.Code != http.StatusCreated {
				t.Fatalf("create style: want=%d got=%d body=%s", http.StatusCreated, rec.Code, rec.Body.String())
			}
			var created struct {
				EmbeddingStatus string `json:"embedding_status"`
				EmbeddingError  string `json:"embedding_error"`
			}
			if err := json.Unmarshal(rec.Body.Bytes(), &created); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if created.EmbeddingStatus != "failed" || !strings.HasPrefix(created.EmbeddingError, services.ReasonProviderError) {
				t.Fatalf("create style: got=%+v", created)
			}

			rec = env.do(t, http.MethodPost, "/styles-backfill", map[string]any{})
			if rec.Code != http.StatusOK {
				t.Fatalf("backfill: want=%d got=%d body=%s", http.StatusOK, rec.Code, rec.Body.String())
			}
			var out services.BackfillResult
			if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if len(out.Failed) != 1 || !strings.HasPrefix(out.Failed[0].Reason, services.ReasonProviderError) {
				t.Fatalf("backfill failures: got=%+v", out.Failed)
			}

			leaked := strings.Contains(created.EmbeddingError, secret) || strings.Contains(out.Failed[0].Reason, secret)
			if leaked != tc.detailed {
				t.Fatalf("upstream text exposed=%v with detailed errors=%v: %q / %q", leaked, tc.detailed, created.EmbeddingError, out.Failed[0].Reason)
			}
		})
	}
}

func TestEmbeddingsProviderDimensionMismatchIsBadGateway(t *testing.T) {
	withDetailedErrors(t, false)
	env := newTestEnvWithAI(t, bypassVerifier(), &stubAI{embedDim: 2})

	rec := env.do(t, http.MethodPost, "/embeddings", map[string]any{"text": "hello"})
	if rec.Code != http.StatusBadGateway {
		t.Fatalf("status: want=%d got=%d body=%s", http.StatusBadGateway, rec.Code, rec.Body.String())
	}
	if code := errorCode(t, rec); code != "embedding_failed" {
		t.Fatalf("code: want=%q got=%q", "embedding_failed", code)
	}
	if strings.Contains(rec.Body.String(), "dimension") {
		t.Fatalf("5xx body should carry the generic message, got %s", rec.Body.String())
	}
}
