package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"discussdraft/internal/events"
	"discussdraft/internal/llm/prompts"
	"discussdraft/internal/models"
	"discussdraft/internal/page"
)

// Generator produces an outcome for a request. A non-nil error means the
// generation runtime itself could not be reached; provider failures are
// reported in the outcome.
type Generator interface {
	Generate(ctx context.Context, req models.GenerationRequest) (models.GenerationOutcome, error)
}

type SettingsSource interface {
	Get(ctx context.Context) (*models.Settings, error)
}

type HistoryRecorder interface {
	SaveMainPost(ctx context.Context, topic, text string) (*models.HistoryRecord, error)
	SaveReply(ctx context.Context, topic, text, replyTo string) (*models.HistoryRecord, error)
}

// PageSource yields a fresh view of the discussion page.
type PageSource interface {
	Load(ctx context.Context) (*page.Extractor, error)
}

type Config struct {
	Generator Generator
	Settings  SettingsSource
	History   HistoryRecorder
	Pages     PageSource
	Presenter Presenter
}

// Orchestrator runs one draft cycle at a time:
// Idle -> Loading -> Displaying | ErrorShown, back to Idle on Close.
type Orchestrator struct {
	gen       Generator
	settings  SettingsSource
	history   HistoryRecorder
	pages     PageSource
	presenter Presenter
	targets   *page.TargetRegistry

	mu    sync.Mutex
	state State
	cycle uint64
	last  *run
}

type run struct {
	req     models.GenerationRequest
	topic   string
	replyTo string
	entryID string
}

func New(cfg Config) *Orchestrator {
	return &Orchestrator{
		gen:       cfg.Generator,
		settings:  cfg.Settings,
		history:   cfg.History,
		pages:     cfg.Pages,
		presenter: cfg.Presenter,
		targets:   page.NewTargetRegistry(),
	}
}

func (o *Orchestrator) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

// Toggle closes the open cycle, or starts the flow for target when idle.
func (o *Orchestrator) Toggle(ctx context.Context, target page.Target) error {
	o.mu.Lock()
	open := o.state != Idle
	o.mu.Unlock()
	if open {
		o.Close(ctx)
		return nil
	}
	if target.Kind == page.TargetMain {
		return o.StartMainPostFlow(ctx)
	}
	return o.StartReplyFlow(ctx, target.EntryID)
}

// Close returns to Idle. A generation still in flight completes in the
// background and its result is discarded.
func (o *Orchestrator) Close(ctx context.Context) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.state == Idle {
		return
	}
	o.state = Idle
	o.cycle++
	o.last = nil
	o.presenter.Close()
	events.Emit(ctx, events.DraftClosed, events.NewInfo("draft closed"))
}

func (o *Orchestrator) StartMainPostFlow(ctx context.Context) error {
	id, settings, err := o.open(ctx)
	if err != nil {
		return err
	}

	ext, err := o.pages.Load(ctx)
	if err != nil {
		o.fail(ctx, id, err.Error())
		return fmt.Errorf("load page: %w", err)
	}
	dc := ext.MainContext()
	if dc.Topic == "" {
		o.fail(ctx, id, MsgTopicNotFound)
		return ErrTopicNotFound
	}

	req := baseRequest(settings, models.KindMainPost)
	req.Topic = dc.Topic
	req.Instructions = dc.Instructions + prompts.SummarizePosts(dc.TopLevelPosts)
	req.Requirements = dc.Requirements
	req.CourseName = dc.CourseName

	return o.generate(ctx, id, run{req: req, topic: dc.Topic})
}

func (o *Orchestrator) StartReplyFlow(ctx context.Context, entryID string) error {
	id, settings, err := o.open(ctx)
	if err != nil {
		return err
	}

	ext, err := o.pages.Load(ctx)
	if err != nil {
		o.fail(ctx, id, err.Error())
		return fmt.Errorf("load page: %w", err)
	}
	pc, ok := ext.PostContext(entryID)
	if !ok {
		o.fail(ctx, id, MsgPostNotFound)
		return ErrPostNotFound
	}
	topic, _ := ext.ExtractTopic()

	req := baseRequest(settings, models.KindReply)
	req.Topic = topic
	req.OriginalPost = prompts.ReplyContext(pc)
	req.AuthorName = pc.Post.Author

	return o.generate(ctx, id, run{req: req, topic: topic, replyTo: pc.Post.Author, entryID: entryID})
}

// Regenerate replays the last request unchanged.
func (o *Orchestrator) Regenerate(ctx context.Context) error {
	o.mu.Lock()
	r, err := o.replayable()
	if err != nil {
		o.mu.Unlock()
		return err
	}
	id := o.begin(regeneratingMessage)
	o.mu.Unlock()

	return o.generate(ctx, id, r)
}

// RegenerateWithMoreTokens replays the last request with its token limit
// raised by TokenIncrement, up to MaxTokenCeiling.
func (o *Orchestrator) RegenerateWithMoreTokens(ctx context.Context) error {
	o.mu.Lock()
	r, err := o.replayable()
	if err != nil {
		o.mu.Unlock()
		return err
	}
	current := r.req.MaxTokensOr(models.DefaultMaxTokens)
	if current >= MaxTokenCeiling {
		o.presenter.ShowNotification(Notification{
			Title:   "token limit",
			Message: MsgAlreadyAtMaximum,
			Timeout: NotificationTimeout,
		})
		o.mu.Unlock()
		return ErrAlreadyAtMaximum
	}
	r.req = r.req.WithMaxTokens(min(current+TokenIncrement, MaxTokenCeiling))
	id := o.begin(moreTokensMessage)
	o.mu.Unlock()

	return o.generate(ctx, id, r)
}

// Rescan reloads the page and returns generate targets not offered before.
func (o *Orchestrator) Rescan(ctx context.Context) ([]page.Target, error) {
	ext, err := o.pages.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load page: %w", err)
	}
	fresh := o.targets.Register(ext.Targets())
	if len(fresh) > 0 {
		events.Emit(ctx, events.PageRescanned, events.NewInfo(fmt.Sprintf("%d new draft targets", len(fresh))))
	}
	return fresh, nil
}

// open reserves a new cycle, forgetting the previous cycle's request, and
// loads settings. Without a usable key the
// cycle is released and a notification points the user at the settings.
func (o *Orchestrator) open(ctx context.Context) (uint64, *models.Settings, error) {
	o.mu.Lock()
	if o.state != Idle {
		o.mu.Unlock()
		return 0, nil, ErrCycleOpen
	}
	o.cycle++
	id := o.cycle
	o.state = Loading
	o.last = nil
	o.mu.Unlock()

	settings, err := o.settings.Get(ctx)
	if err != nil {
		o.fail(ctx, id, "could not load settings: "+err.Error())
		return 0, nil, fmt.Errorf("load settings: %w", err)
	}

	o.mu.Lock()
	defer o.mu.Unlock()
	if o.cycle != id {
		return 0, nil, ErrCycleOpen
	}
	if !settings.HasUsableKey() {
		o.state = Idle
		o.presenter.ShowNotification(Notification{
			Title:   "api key required",
			Message: fmt.Sprintf("please configure your %s api key in the settings.", settings.Provider.DisplayName()),
			Action:  "open-settings",
			Timeout: NotificationTimeout,
		})
		return 0, nil, fmt.Errorf("%w for %s", ErrMissingAPIKey, settings.Provider.DisplayName())
	}
	o.presenter.ShowLoading(loadingMessage)
	return id, settings, nil
}

// begin starts a replay cycle. Callers hold o.mu.
func (o *Orchestrator) begin(message string) uint64 {
	o.cycle++
	o.state = Loading
	o.presenter.ShowLoading(message)
	return o.cycle
}

// replayable returns a copy of the last run. Callers hold o.mu.
func (o *Orchestrator) replayable() (run, error) {
	if (o.state != Displaying && o.state != ErrorShown) || o.last == nil {
		return run{}, ErrNothingToRegenerate
	}
	return *o.last, nil
}

func (o *Orchestrator) generate(ctx context.Context, id uint64, r run) error {
	ctx = events.WithSession(ctx, fmt.Sprintf("cycle-%d", id))

	o.mu.Lock()
	if o.cycle == id {
		last := r
		o.last = &last
	}
	o.mu.Unlock()

	events.Emit(ctx, events.DraftStarted, events.NewInfo("generating "+string(r.req.Kind)).
		With("provider", string(r.req.Provider)).
		With("max_tokens", fmt.Sprint(r.req.MaxTokensOr(models.DefaultMaxTokens))))

	outcome, err := o.gen.Generate(ctx, r.req)
	if err != nil {
		msg := err.Error()
		if errors.Is(err, ErrRuntimeLost) {
			msg = MsgRuntimeLost
		}
		o.fail(ctx, id, msg)
		return err
	}
	if !outcome.Success {
		o.fail(ctx, id, outcome.Error)
		return fmt.Errorf("%w: %s", ErrGenerationFailed, outcome.Error)
	}

	o.record(ctx, r, outcome.Text)

	o.mu.Lock()
	defer o.mu.Unlock()
	if o.cycle != id || o.state != Loading {
		events.Emit(ctx, events.DraftDiscarded, events.NewWarn("draft finished after the panel closed"))
		return nil
	}
	o.state = Displaying
	result := Result{
		Kind:         r.req.Kind,
		Text:         outcome.Text,
		Topic:        r.topic,
		ReplyTo:      r.replyTo,
		EntryID:      r.entryID,
		FinishReason: outcome.FinishReason,
		Usage:        outcome.Usage,
		MaxTokens:    r.req.MaxTokensOr(models.DefaultMaxTokens),
	}
	if outcome.Truncated() {
		result.Warning = TruncationWarning
	}
	o.presenter.ShowResult(result)
	events.Emit(ctx, events.DraftCompleted, events.NewSuccess("draft ready"))
	return nil
}

func (o *Orchestrator) fail(ctx context.Context, id uint64, message string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.cycle != id || o.state != Loading {
		events.Emit(ctx, events.DraftDiscarded, events.NewWarn("failure arrived after the panel closed"))
		return
	}
	o.state = ErrorShown
	o.presenter.ShowError(message)
	events.Emit(ctx, events.DraftCompleted, events.NewError(message))
}

// record saves a successful draft. History is best effort.
func (o *Orchestrator) record(ctx context.Context, r run, text string) {
	var err error
	if r.req.Kind == models.KindMainPost {
		_, err = o.history.SaveMainPost(ctx, r.topic, text)
	} else {
		_, err = o.history.SaveReply(ctx, r.topic, text, r.replyTo)
	}
	if err != nil {
		slog.Warn("save history", slog.Any("error", err))
	}
}

func baseRequest(s *models.Settings, kind models.GenerationKind) models.GenerationRequest {
	temperature := s.Temperature
	maxTokens := s.MaxTokens
	if maxTokens <= 0 {
		maxTokens = models.DefaultMaxTokens
	}
	return models.GenerationRequest{
		Kind:             kind,
		Provider:         s.Provider,
		APIKey:           s.APIKeyFor(s.Provider),
		Model:            s.ModelFor(s.Provider),
		Temperature:      &temperature,
		MaxTokens:        &maxTokens,
		SideInstructions: s.SideInstructions,
	}
}
