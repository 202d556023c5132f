package main

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"discussdraft/internal/models"
	"discussdraft/internal/orchestrator"
	"discussdraft/internal/page"
	"discussdraft/internal/tests/mocks"
)

const fixturePage = "internal/page/testdata/discussion.html"

func TestExtractCommand(t *testing.T) {
	var out bytes.Buffer
	root := newRootCmd()
	root.SetOut(&out)
	root.SetErr(&bytes.Buffer{})
	root.SetArgs([]string{"extract", fixturePage, "--url", "https://x/courses/1/discussion_topics/2", "--reply-count", "1"})

	require.NoError(t, root.Execute())

	var got extractOutput
	require.NoError(t, json.Unmarshal(out.Bytes(), &got))
	assert.True(t, got.IsDiscussionPage)
	assert.Equal(t, "Climate Policy", got.Context.Topic)
	assert.Len(t, got.ReplyCandidates, 1)
	assert.Len(t, got.Targets, 3)
}

func TestPresenterOutput(t *testing.T) {
	var out bytes.Buffer
	p := &terminalPresenter{out: &out}

	p.ShowLoading("working")
	p.ShowResult(orchestrator.Result{
		Text:      "hello",
		Topic:     "Climate",
		ReplyTo:   "Ada",
		MaxTokens: 1000,
		Usage:     &models.TokenUsage{PromptTokens: 3, CompletionTokens: 2},
		Warning:   orchestrator.TruncationWarning,
	})
	p.ShowError("rate limited")
	p.ShowNotification(orchestrator.Notification{Title: "api key required", Message: "configure it", Action: "open-settings"})
	p.Close()

	s := out.String()
	assert.Contains(t, s, "... working")
	assert.Contains(t, s, "Reply to Ada · Climate")
	assert.Contains(t, s, "tokens: 3 prompt, 2 completion (limit 1000)")
	assert.Contains(t, s, "! "+orchestrator.TruncationWarning)
	assert.Contains(t, s, "error: rate limited")
	assert.Contains(t, s, "discussdraft settings set")
	assert.True(t, strings.HasSuffix(s, "closed.\n"))
}

func TestPrintHistory(t *testing.T) {
	now := time.Date(2025, 5, 1, 12, 0, 0, 0, time.UTC)
	records := []models.HistoryRecord{
		{Replies: []models.HistoryReply{{Content: "a reply", ReplyTo: "Ada"}}, Topic: "Climate", Timestamp: now.Add(-2 * time.Hour)},
		{MainPost: "the   main\npost", Topic: "Energy", Timestamp: now.Add(-30 * time.Second)},
	}
	var out bytes.Buffer

	printHistory(&out, records, now)

	assert.Equal(t,
		"0. reply to Ada · Climate · 2h ago\n   a reply\n1. main post · Energy · just now\n   the main post\n",
		out.String())

	out.Reset()
	printHistory(&out, nil, now)
	assert.Equal(t, "no saved drafts\n", out.String())
}

func TestApplySettingsFlags(t *testing.T) {
	current := *models.DefaultSettings()
	current.ClaudeAPIKey = "sk-ant-stored"
	changed := map[string]bool{"provider": true, "gemini-key": true, "temperature": true}
	f := settingsFlags{provider: "Gemini", geminiKey: "AIza123", temperature: 0, maxTokens: 5}

	in := applySettingsFlags(current, f, func(name string) bool { return changed[name] })

	assert.Equal(t, models.ProviderGemini, in.Provider)
	assert.Equal(t, "AIza123", in.GeminiAPIKey)
	assert.Empty(t, in.ClaudeAPIKey)
	assert.Zero(t, in.Temperature)
	assert.Equal(t, models.DefaultMaxTokens, in.MaxTokens)
}

func TestRunDraft_RegeneratesAndCloses(t *testing.T) {
	gen := &mocks.GeneratorMock{}
	presenter := &mocks.PresenterMock{}
	orch := orchestrator.New(orchestrator.Config{
		Generator: gen,
		Settings:  &mocks.SettingsSourceMock{},
		History:   &mocks.HistoryRecorderMock{},
		Pages:     page.FileSource{Path: fixturePage},
		Presenter: presenter,
	})

	err := runDraft(context.Background(), orch, draftFlags{reply: "p1", regenerate: 1, moreTokens: 1}, strings.NewReader(""), &bytes.Buffer{})
	require.NoError(t, err)

	calls := gen.Calls()
	require.Len(t, calls, 3)
	assert.Equal(t, "Ada Lovelace", calls[0].AuthorName)
	assert.Equal(t, 1500, calls[2].MaxTokensOr(0))
	assert.Equal(t, orchestrator.Idle, orch.State())
	assert.Equal(t, 1, presenter.Snapshot().Closes)
}

func TestRunDraft_Interactive(t *testing.T) {
	gen := &mocks.GeneratorMock{}
	orch := orchestrator.New(orchestrator.Config{
		Generator: gen,
		Settings:  &mocks.SettingsSourceMock{},
		History:   &mocks.HistoryRecorderMock{},
		Pages:     page.FileSource{Path: fixturePage},
		Presenter: &mocks.PresenterMock{},
	})

	err := runDraft(context.Background(), orch, draftFlags{interactive: true}, strings.NewReader("r\nx\nm\nq\n"), &bytes.Buffer{})
	require.NoError(t, err)

	assert.Len(t, gen.Calls(), 3)
}

func TestRunDraft_InteractiveAfterFailedFirstDraft(t *testing.T) {
	attempts := 0
	gen := &mocks.GeneratorMock{GenerateFunc: func(context.Context, models.GenerationRequest) (models.GenerationOutcome, error) {
		attempts++
		if attempts == 1 {
			return models.Failed("overloaded"), nil
		}
		return models.Succeeded("second try", "", nil), nil
	}}
	presenter := &mocks.PresenterMock{}
	orch := orchestrator.New(orchestrator.Config{
		Generator: gen,
		Settings:  &mocks.SettingsSourceMock{},
		History:   &mocks.HistoryRecorderMock{},
		Pages:     page.FileSource{Path: fixturePage},
		Presenter: presenter,
	})

	err := runDraft(context.Background(), orch, draftFlags{interactive: true}, strings.NewReader("r\nq\n"), &bytes.Buffer{})
	require.ErrorIs(t, err, orchestrator.ErrGenerationFailed)

	assert.Len(t, gen.Calls(), 2)
	assert.Equal(t, orchestrator.Idle, orch.State())
	calls := presenter.Snapshot()
	require.Len(t, calls.Results, 1)
	assert.Equal(t, "second try", calls.Results[0].Text)
	assert.Equal(t, 1, calls.Closes)
}

func TestRunDraft_FailureWithoutInteractiveReturnsAtOnce(t *testing.T) {
	gen := &mocks.GeneratorMock{GenerateFunc: func(context.Context, models.GenerationRequest) (models.GenerationOutcome, error) {
		return models.Failed("overloaded"), nil
	}}
	orch := orchestrator.New(orchestrator.Config{
		Generator: gen,
		Settings:  &mocks.SettingsSourceMock{},
		History:   &mocks.HistoryRecorderMock{},
		Pages:     page.FileSource{Path: fixturePage},
		Presenter: &mocks.PresenterMock{},
	})

	err := runDraft(context.Background(), orch, draftFlags{regenerate: 2}, strings.NewReader("r\n"), &bytes.Buffer{})
	require.ErrorIs(t, err, orchestrator.ErrGenerationFailed)
	assert.Len(t, gen.Calls(), 1)
}

func TestDescribeTarget(t *testing.T) {
	assert.Equal(t, "+ main post", describeTarget(page.Target{Kind: page.TargetMain}))
	assert.Equal(t, "+ reply to Ada (p1)", describeTarget(page.Target{Kind: page.TargetPost, EntryID: "p1", Author: "Ada"}))
}
