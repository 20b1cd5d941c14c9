package services

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/infographic-backend/internal/data/repos"
	"github.com/yungbote/infographic-backend/internal/data/repos/testutil"
	"github.com/yungbote/infographic-backend/internal/pkg/httpx"
	"github.com/yungbote/infographic-backend/internal/platform/gemini"
)

type testDB struct {
	*gorm.DB
}

func (d *testDB) count(t *testing.T, model any) int64 {
	t.Helper()
	var n int64
	if err := d.DB.Model(model).Count(&n).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	return n
}

// fakeAI answers generateContent with a canned text or image and embedText
// with a deterministic vector of dim values.
type fakeAI struct {
	mu sync.Mutex

	text     string
	image    []byte
	genErr   error
	dim      int
	embedErr error
	noVector bool

	generateCalls []fakeGenerateCall
	embedCalls    int
}

type fakeGenerateCall struct {
	Model string
	Parts []gemini.Part
	Cfg   gemini.GenerationConfig
}

func (f *fakeAI) TextModel() string  { return "text-model" }
func (f *fakeAI) ImageModel() string { return "image-model" }
func (f *fakeAI) EmbedModel() string { return "embed-model" }

func (f *fakeAI) GenerateContent(_ context.Context, model string, parts []gemini.Part, cfg gemini.GenerationConfig) (*gemini.RawResult, error) {
	f.mu.Lock()
	f.generateCalls = append(f.generateCalls, fakeGenerateCall{Model: model, Parts: parts, Cfg: cfg})
	f.mu.Unlock()
	if f.genErr != nil {
		return nil, f.genErr
	}
	var part map[string]any
	if f.image != nil {
		part = map[string]any{"inlineData": map[string]any{
			"mimeType": "image/png",
			"data":     base64.StdEncoding.EncodeToString(f.image),
		}}
	} else {
		part = map[string]any{"text": f.text}
	}
	body, _ := json.Marshal(map[string]any{
		"candidates": []any{map[string]any{"content": map[string]any{"parts": []any{part}}}},
	})
	return &gemini.RawResult{Model: model, Body: body}, nil
}

func (f *fakeAI) EmbedText(_ context.Context, _ string, text string) ([]float64, error) {
	f.mu.Lock()
	f.embedCalls++
	f.mu.Unlock()
	if f.embedErr != nil {
		return nil, f.embedErr
	}
	if f.noVector || strings.Contains(text, "no-vector") {
		return nil, nil
	}
	if strings.Contains(text, "fail-embed") {
		return nil, fmt.Errorf("provider exploded")
	}
	out := make([]float64, f.dim)
	for i := range out {
		out[i] = float64(len(text)+i) / 100
	}
	return out, nil
}

func (f *fakeAI) calls() []fakeGenerateCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]fakeGenerateCall(nil), f.generateCalls...)
}

type libraryFixture struct {
	db      *testDB
	tenants repos.TenantRepo
	users   repos.UserRepo
	styles  repos.StyleRepo
	history repos.HistoryRepo
	caller  *Caller
}

func newLibraryFixture(t *testing.T) *libraryFixture {
	t.Helper()
	gdb := testutil.SQLite(t)
	log := testutil.Logger(t)
	f := &libraryFixture{
		db:      &testDB{gdb},
		tenants: repos.NewTenantRepo(gdb, log),
		users:   repos.NewUserRepo(gdb, log),
		styles:  repos.NewStyleRepo(gdb, log),
		history: repos.NewHistoryRepo(gdb, log),
	}
	f.caller = f.newCaller(t, "owner@example.com", nil)
	return f
}

// newCaller creates a user in tenantID, or in a fresh tenant when nil.
func (f *libraryFixture) newCaller(t *testing.T, email string, tenantID *uuid.UUID) *Caller {
	t.Helper()
	ctx := context.Background()
	var tid uuid.UUID
	if tenantID != nil {
		tid = *tenantID
	} else if f.caller != nil {
		tid = f.caller.TenantID
	} else {
		tid = testutil.SeedTenant(t, ctx, f.db.DB, "t-"+uuid.NewString()[:8], time.Now().UTC()).ID
	}
	u := testutil.SeedUser(t, ctx, f.db.DB, tid, email)
	return &Caller{TenantID: tid, UserID: &u.ID, Email: email}
}

func secondsDuration(n int) time.Duration { return time.Duration(n) * time.Second }

// upstreamSecretErr mimics a provider error whose body must never reach callers.
var upstreamSecretErr = &httpx.StatusError{Service: "gemini", StatusCode: 500, Body: "INTERNAL-SECRET project=acme-prod"}
