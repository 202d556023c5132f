package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/99designs/keyring"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"discussdraft/internal/database"
	"discussdraft/internal/models"
	"discussdraft/internal/orchestrator"
	"discussdraft/internal/repositories"
	"discussdraft/internal/services"
	"discussdraft/internal/tests/mocks"
)

type testEnv struct {
	router   *gin.Engine
	gen      *mocks.GeneratorMock
	settings services.SettingsService
	history  services.HistoryService
}

func newTestEnv(t *testing.T, qps float64) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := database.Init(database.Config{Path: filepath.Join(t.TempDir(), "test.db")})
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})

	catalog, err := services.NewModelCatalogService()
	require.NoError(t, err)
	keys := services.NewKeyringServiceWith(keyring.NewArrayKeyring(nil))

	env := &testEnv{
		gen:      &mocks.GeneratorMock{},
		settings: services.NewSettingsService(repositories.NewSettingsRepository(db), keys, catalog),
		history:  services.NewHistoryService(repositories.NewHistoryRepository(db)),
	}
	env.router = NewRouter(Deps{
		Settings:     env.settings,
		History:      env.history,
		Catalog:      catalog,
		Generator:    env.gen,
		RateLimitQPS: qps,
	})
	return env
}

func (e *testEnv) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	switch b := body.(type) {
	case nil:
	case string:
		buf.WriteString(b)
	default:
		require.NoError(t, json.NewEncoder(&buf).Encode(b))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func (e *testEnv) saveClaudeKey(t *testing.T) {
	t.Helper()
	in := *models.DefaultSettings()
	in.ClaudeAPIKey = "sk-ant-0123456789abcdef"
	_, err := e.settings.Update(context.Background(), in)
	require.NoError(t, err)
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v))
	return v
}

func TestGenerate_FillsFromStoredSettings(t *testing.T) {
	env := newTestEnv(t, 0)
	env.saveClaudeKey(t)

	w := env.do(t, http.MethodPost, "/v1/messages/generate-main-post", map[string]any{"topic": "Climate"})

	require.Equal(t, http.StatusOK, w.Code)
	out := decode[models.GenerationOutcome](t, w)
	assert.True(t, out.Success)
	assert.Equal(t, "generated text", out.Text)

	calls := env.gen.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, models.KindMainPost, calls[0].Kind)
	assert.Equal(t, models.ProviderClaude, calls[0].Provider)
	assert.Equal(t, models.DefaultClaudeModel, calls[0].Model)
	assert.Equal(t, "sk-ant-0123456789abcdef", calls[0].APIKey)
	assert.Equal(t, "Climate", calls[0].Topic)
}

func TestGenerate_ExplicitFieldsWin(t *testing.T) {
	env := newTestEnv(t, 0)

	w := env.do(t, http.MethodPost, "/v1/messages/generate-reply", map[string]any{
		"kind":       "main-post",
		"aiProvider": "gemini",
		"apiKey":     "AIza0123456789",
		"model":      "gemini-2.5-flash",
		"topic":      "T",
	})

	require.Equal(t, http.StatusOK, w.Code)
	call := env.gen.Calls()[0]
	assert.Equal(t, models.KindReply, call.Kind)
	assert.Equal(t, models.ProviderGemini, call.Provider)
	assert.Equal(t, "gemini-2.5-flash", call.Model)
	assert.Equal(t, "AIza0123456789", call.APIKey)
}

func TestGenerate_FailureIsStill200(t *testing.T) {
	env := newTestEnv(t, 0)
	env.gen.GenerateFunc = func(context.Context, models.GenerationRequest) (models.GenerationOutcome, error) {
		return models.Failed("rate limited"), nil
	}

	w := env.do(t, http.MethodPost, "/v1/messages/generate-reply", map[string]any{"topic": "T"})

	require.Equal(t, http.StatusOK, w.Code)
	out := decode[models.GenerationOutcome](t, w)
	assert.False(t, out.Success)
	assert.Equal(t, "rate limited", out.Error)
}

func TestGenerate_MalformedBody(t *testing.T) {
	env := newTestEnv(t, 0)

	w := env.do(t, http.MethodPost, "/v1/messages/generate-main-post", "{not json")

	require.Equal(t, http.StatusBadRequest, w.Code)
	out := decode[models.GenerationOutcome](t, w)
	assert.False(t, out.Success)
	assert.NotEmpty(t, out.Error)
	assert.Empty(t, env.gen.Calls())
}

func TestOpenSettings_MasksKeys(t *testing.T) {
	env := newTestEnv(t, 0)
	env.saveClaudeKey(t)

	w := env.do(t, http.MethodPost, "/v1/messages/open-settings", nil)

	require.Equal(t, http.StatusOK, w.Code)
	var body struct {
		Settings models.Settings        `json:"settings"`
		Models   []models.LLMModelGroup `json:"models"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "sk-a****cdef", body.Settings.ClaudeAPIKey)
	assert.Len(t, body.Models, 2)
	assert.NotContains(t, w.Body.String(), "sk-ant-0123456789abcdef")
}

func TestPageContext(t *testing.T) {
	env := newTestEnv(t, 0)
	html, err := os.ReadFile("../page/testdata/discussion.html")
	require.NoError(t, err)

	w := env.do(t, http.MethodPost, "/v1/pages/context", map[string]any{
		"html":       string(html),
		"url":        "https://school.instructure.com/courses/42/discussion_topics/7",
		"replyCount": 2,
	})

	require.Equal(t, http.StatusOK, w.Code)
	body := decode[pageContextResponse](t, w)
	assert.True(t, body.IsDiscussionPage)
	assert.Equal(t, "Climate Policy", body.Context.Topic)
	assert.Equal(t, "ENV 101", body.Context.CourseName)
	assert.Len(t, body.ReplyCandidates, 2)
	assert.Len(t, body.Targets, 3)
}

func TestPageContext_DefaultReplyCountAndMissingHTML(t *testing.T) {
	env := newTestEnv(t, 0)
	html, err := os.ReadFile("../page/testdata/discussion.html")
	require.NoError(t, err)

	w := env.do(t, http.MethodPost, "/v1/pages/context", map[string]any{"html": string(html)})
	require.Equal(t, http.StatusOK, w.Code)
	body := decode[pageContextResponse](t, w)
	assert.False(t, body.IsDiscussionPage)
	assert.Len(t, body.ReplyCandidates, models.DefaultReplyCount)

	w = env.do(t, http.MethodPost, "/v1/pages/context", map[string]any{"url": "x"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHistoryEndpoints(t *testing.T) {
	env := newTestEnv(t, 0)
	ctx := context.Background()
	_, err := env.history.SaveMainPost(ctx, "first", "one")
	require.NoError(t, err)
	_, err = env.history.SaveReply(ctx, "second", "two", "Ada")
	require.NoError(t, err)

	w := env.do(t, http.MethodGet, "/v1/history", nil)
	require.Equal(t, http.StatusOK, w.Code)
	list := decode[struct {
		History []models.HistoryRecord `json:"history"`
	}](t, w)
	require.Len(t, list.History, 2)
	assert.Equal(t, "second", list.History[0].Topic)

	assert.Equal(t, http.StatusNotFound, env.do(t, http.MethodDelete, "/v1/history/5", nil).Code)
	assert.Equal(t, http.StatusBadRequest, env.do(t, http.MethodDelete, "/v1/history/abc", nil).Code)
	require.Equal(t, http.StatusOK, env.do(t, http.MethodDelete, "/v1/history/0", nil).Code)

	records, err := env.history.List(ctx)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "first", records[0].Topic)

	require.Equal(t, http.StatusOK, env.do(t, http.MethodDelete, "/v1/history", nil).Code)
	records, err = env.history.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestUpdateSettings(t *testing.T) {
	env := newTestEnv(t, 0)

	bad := *models.DefaultSettings()
	bad.Temperature = 3
	bad.ClaudeAPIKey = "sk-ant-0123456789"
	w := env.do(t, http.MethodPut, "/v1/settings", bad)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	noKey := *models.DefaultSettings()
	w = env.do(t, http.MethodPut, "/v1/settings", noKey)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "api key required for Claude")

	good := *models.DefaultSettings()
	good.ClaudeAPIKey = "sk-ant-0123456789"
	good.MaxTokens = 2000
	w = env.do(t, http.MethodPut, "/v1/settings", good)
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotContains(t, w.Body.String(), "sk-ant-0123456789")

	got, err := env.settings.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2000, got.MaxTokens)
	assert.Equal(t, "sk-ant-0123456789", got.ClaudeAPIKey)
}

func TestUpdateSettings_OmittedFieldsKeepStoredValues(t *testing.T) {
	env := newTestEnv(t, 0)
	env.saveClaudeKey(t)

	w := env.do(t, http.MethodPut, "/v1/settings", map[string]any{
		"temperature":      0.3,
		"maxTokens":        1800,
		"sideInstructions": "cite one source",
	})
	require.Equal(t, http.StatusOK, w.Code)

	w = env.do(t, http.MethodPut, "/v1/settings", map[string]any{"aiProvider": "claude", "claudeModel": models.DefaultClaudeModel})
	require.Equal(t, http.StatusOK, w.Code)

	got, err := env.settings.Get(context.Background())
	require.NoError(t, err)
	assert.InDelta(t, 0.3, got.Temperature, 1e-9)
	assert.Equal(t, 1800, got.MaxTokens)
	assert.Equal(t, "cite one source", got.SideInstructions)

	w = env.do(t, http.MethodPut, "/v1/settings", map[string]any{"temperature": 0, "sideInstructions": ""})
	require.Equal(t, http.StatusOK, w.Code)

	got, err = env.settings.Get(context.Background())
	require.NoError(t, err)
	assert.Zero(t, got.Temperature)
	assert.Empty(t, got.SideInstructions)
}

func TestRateLimit(t *testing.T) {
	env := newTestEnv(t, 1)

	first := env.do(t, http.MethodGet, "/v1/history", nil)
	second := env.do(t, http.MethodGet, "/v1/history", nil)

	assert.Equal(t, http.StatusOK, first.Code)
	assert.Equal(t, http.StatusTooManyRequests, second.Code)
}

func TestRateLimit_LoopbackIsExempt(t *testing.T) {
	env := newTestEnv(t, 1)

	for i := 0; i < 5; i++ {
		req := httptest.NewRequest(http.MethodGet, "/v1/history", nil)
		req.RemoteAddr = "127.0.0.1:40000"
		w := httptest.NewRecorder()
		env.router.ServeHTTP(w, req)
		require.Equal(t, http.StatusOK, w.Code, "request %d", i)
	}
}

func TestRemoteGenerator(t *testing.T) {
	env := newTestEnv(t, 0)
	env.saveClaudeKey(t)
	srv := httptest.NewServer(env.router)
	t.Cleanup(srv.Close)

	gen := NewRemoteGenerator(srv.URL, srv.Client())
	out, err := gen.Generate(context.Background(), models.GenerationRequest{Kind: models.KindReply, Topic: "T"})
	require.NoError(t, err)
	assert.True(t, out.Success)
	assert.Equal(t, models.KindReply, env.gen.Calls()[0].Kind)
}

func TestRemoteGenerator_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := NewRemoteGenerator(url, nil).Generate(context.Background(), models.GenerationRequest{Kind: models.KindMainPost})
	assert.ErrorIs(t, err, orchestrator.ErrRuntimeLost)
}

func TestNewRemoteGenerator_AddsScheme(t *testing.T) {
	g := NewRemoteGenerator("127.0.0.1:8787/", nil)
	assert.Equal(t, "http://127.0.0.1:8787", g.BaseURL)
}
