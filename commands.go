package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"discussdraft/internal/config"
	"discussdraft/internal/database"
	"discussdraft/internal/models"
	"discussdraft/internal/orchestrator"
	"discussdraft/internal/page"
	"discussdraft/internal/utils"
)

type rootOptions struct {
	cfg    *config.Config
	logger *slog.Logger
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	root := &cobra.Command{
		Use:           "discussdraft",
		Short:         "Draft discussion posts and replies with Claude or Gemini",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := utils.LoadEnv(); err != nil {
				return fmt.Errorf("load .env: %w", err)
			}
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			opts.cfg = cfg
			opts.logger = cfg.Log.NewLogger(cmd.ErrOrStderr())
			slog.SetDefault(opts.logger)
			return nil
		},
	}
	root.AddCommand(
		newServeCmd(opts),
		newExtractCmd(),
		newDraftCmd(opts),
		newWatchCmd(opts),
		newHistoryCmd(opts),
		newSettingsCmd(opts),
		newOpenSettingsCmd(opts),
	)
	return root
}

func (o *rootOptions) withApp(fn func(app *App) error) error {
	app, err := NewApp(o.cfg, o.logger)
	if err != nil {
		return err
	}
	defer app.Close()
	return fn(app)
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func newServeCmd(opts *rootOptions) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the message endpoints for the browser extension",
		RunE: func(cmd *cobra.Command, args []string) error {
			if addr == "" {
				addr = opts.cfg.Address
			}
			if !database.IsDevelopment() || opts.cfg.Log.Level != "debug" {
				gin.SetMode(gin.ReleaseMode)
			}
			return opts.withApp(func(app *App) error {
				ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
				defer cancel()

				srv := &http.Server{Addr: addr, Handler: app.Router(), ReadHeaderTimeout: 10 * time.Second}
				errCh := make(chan error, 1)
				go func() { errCh <- srv.ListenAndServe() }()
				slog.Info("discussdraft started", slog.String("address", addr), slog.Any("config", *opts.cfg))

				select {
				case err := <-errCh:
					if !errors.Is(err, http.ErrServerClosed) {
						return err
					}
					return nil
				case <-ctx.Done():
				}
				shutdownCtx, stop := context.WithTimeout(context.Background(), 5*time.Second)
				defer stop()
				slog.Info("discussdraft gracefully shutdown")
				return srv.Shutdown(shutdownCtx)
			})
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (defaults to the configured address)")
	return cmd
}

type extractOutput struct {
	IsDiscussionPage bool                     `json:"isDiscussionPage"`
	Context          models.DiscussionContext `json:"context"`
	ReplyCandidates  []models.Post            `json:"replyCandidates"`
	Targets          []page.Target            `json:"targets"`
}

func newExtractCmd() *cobra.Command {
	var (
		url        string
		replyCount int
	)
	cmd := &cobra.Command{
		Use:   "extract <page.html>",
		Short: "Print the discussion context found in a saved page",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ext, err := page.FileSource{Path: args[0]}.Load(cmd.Context())
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), extractOutput{
				IsDiscussionPage: page.IsDiscussionPage(url),
				Context:          ext.MainContext(),
				ReplyCandidates:  ext.SampleReplyCandidates(replyCount),
				Targets:          ext.Targets(),
			})
		},
	}
	cmd.Flags().StringVar(&url, "url", "", "address the page was saved from")
	cmd.Flags().IntVar(&replyCount, "reply-count", models.DefaultReplyCount, "number of reply candidates to sample")
	return cmd
}

type draftFlags struct {
	reply       string
	remote      string
	regenerate  int
	moreTokens  int
	interactive bool
}

func newDraftCmd(opts *rootOptions) *cobra.Command {
	var f draftFlags
	cmd := &cobra.Command{
		Use:   "draft <page.html>",
		Short: "Draft a main post, or a reply with --reply",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withApp(func(app *App) error {
				out := cmd.OutOrStdout()
				orch := app.Orchestrator(page.FileSource{Path: args[0]}, &terminalPresenter{out: out}, f.remote)
				return runDraft(cmd.Context(), orch, f, cmd.InOrStdin(), out)
			})
		},
	}
	cmd.Flags().StringVar(&f.reply, "reply", "", "entry id of the post to reply to")
	cmd.Flags().StringVar(&f.remote, "remote", "", "address of a running discussdraft server")
	cmd.Flags().IntVar(&f.regenerate, "regenerate", 0, "regenerate this many times after the first draft")
	cmd.Flags().IntVar(&f.moreTokens, "more-tokens", 0, "regenerate with a larger token limit this many times")
	cmd.Flags().BoolVarP(&f.interactive, "interactive", "i", false, "keep the panel open for regenerate commands")
	return cmd
}

func runDraft(ctx context.Context, orch *orchestrator.Orchestrator, f draftFlags, in io.Reader, out io.Writer) error {
	var err error
	if f.reply != "" {
		err = orch.StartReplyFlow(ctx, f.reply)
	} else {
		err = orch.StartMainPostFlow(ctx)
	}
	if err != nil {
		if f.interactive && retryable(err) {
			interact(ctx, orch, in, out)
			orch.Close(ctx)
		}
		return err
	}
	for i := 0; i < f.regenerate; i++ {
		if err := orch.Regenerate(ctx); err != nil {
			return err
		}
	}
	for i := 0; i < f.moreTokens; i++ {
		if err := orch.RegenerateWithMoreTokens(ctx); err != nil {
			if errors.Is(err, orchestrator.ErrAlreadyAtMaximum) {
				break
			}
			return err
		}
	}
	if f.interactive {
		interact(ctx, orch, in, out)
	}
	orch.Close(ctx)
	return nil
}

// retryable reports whether a failed first draft left a request that can be
// regenerated.
func retryable(err error) bool {
	return errors.Is(err, orchestrator.ErrGenerationFailed) || errors.Is(err, orchestrator.ErrRuntimeLost)
}

// interact reads one command per line: r regenerates, m regenerates with
// more tokens, q closes.
func interact(ctx context.Context, orch *orchestrator.Orchestrator, in io.Reader, out io.Writer) {
	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, "[r]egenerate, [m]ore tokens, [q]uit: ")
		if !scanner.Scan() {
			return
		}
		var err error
		switch strings.ToLower(strings.TrimSpace(scanner.Text())) {
		case "r":
			err = orch.Regenerate(ctx)
		case "m":
			err = orch.RegenerateWithMoreTokens(ctx)
		case "q", "":
			return
		default:
			continue
		}
		if err != nil && !errors.Is(err, orchestrator.ErrAlreadyAtMaximum) {
			slog.Debug("regenerate failed", slog.Any("error", err))
		}
	}
}

func newWatchCmd(opts *rootOptions) *cobra.Command {
	var poll time.Duration
	cmd := &cobra.Command{
		Use:   "watch <page.html>",
		Short: "Report new draft targets whenever the saved page changes",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withApp(func(app *App) error {
				ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
				defer cancel()
				out := cmd.OutOrStdout()
				orch := app.Orchestrator(page.FileSource{Path: args[0]}, &terminalPresenter{out: out}, "")
				return watchPage(ctx, args[0], orch, opts.cfg.RescanDelay, poll, out)
			})
		},
	}
	cmd.Flags().DurationVar(&poll, "poll", 250*time.Millisecond, "how often to check the file for changes")
	return cmd
}

// watchPage feeds file changes to a debounced watcher and prints the targets
// each rescan discovers.
func watchPage(ctx context.Context, path string, orch *orchestrator.Orchestrator, delay, poll time.Duration, out io.Writer) error {
	rescan := func() {
		targets, err := orch.Rescan(ctx)
		if err != nil {
			slog.Warn("rescan failed", slog.Any("error", err))
			return
		}
		for _, t := range targets {
			fmt.Fprintln(out, describeTarget(t))
		}
	}
	rescan()
	w := page.NewWatcher(delay, rescan)

	var lastMod time.Time
	if info, err := os.Stat(path); err == nil {
		lastMod = info.ModTime()
	}
	ticker := time.NewTicker(poll)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			info, err := os.Stat(path)
			if err != nil || !info.ModTime().After(lastMod) {
				continue
			}
			lastMod = info.ModTime()
			data, err := os.ReadFile(path)
			if err != nil {
				continue
			}
			w.Observe([]string{string(data)})
		}
	}
}

func describeTarget(t page.Target) string {
	if t.Kind == page.TargetMain {
		return "+ main post"
	}
	return fmt.Sprintf("+ reply to %s (%s)", t.Author, t.EntryID)
}

func newHistoryCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List, delete or clear saved drafts",
	}
	list := &cobra.Command{
		Use:   "list",
		Short: "List saved drafts, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withApp(func(app *App) error {
				records, err := app.services.History.List(cmd.Context())
				if err != nil {
					return err
				}
				printHistory(cmd.OutOrStdout(), records, time.Now())
				return nil
			})
		},
	}
	del := &cobra.Command{
		Use:   "delete <index>",
		Short: "Delete the draft at index",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			index, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("index must be an integer: %w", err)
			}
			return opts.withApp(func(app *App) error {
				return app.services.History.Delete(cmd.Context(), index)
			})
		},
	}
	clearCmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete every saved draft",
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withApp(func(app *App) error {
				return app.services.History.Clear(cmd.Context())
			})
		},
	}
	cmd.AddCommand(list, del, clearCmd)
	return cmd
}

func printHistory(w io.Writer, records []models.HistoryRecord, now time.Time) {
	if len(records) == 0 {
		fmt.Fprintln(w, "no saved drafts")
		return
	}
	for i, rec := range records {
		fmt.Fprintf(w, "%d. %s · %s · %s\n", i, rec.Label(), rec.TopicPreview(), rec.Age(now))
		fmt.Fprintf(w, "   %s\n", utils.Truncate(utils.CollapseSpace(rec.Content()), 100))
	}
}

type settingsFlags struct {
	provider         string
	claudeKey        string
	geminiKey        string
	claudeModel      string
	geminiModel      string
	temperature      float64
	maxTokens        int
	replyCount       int
	sideInstructions string
}

func newSettingsCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "settings",
		Short: "Show or change the draft settings",
	}
	show := &cobra.Command{
		Use:   "show",
		Short: "Print the settings with keys masked",
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withApp(func(app *App) error {
				s, err := app.services.Settings.Get(cmd.Context())
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), s.Masked())
			})
		},
	}

	var f settingsFlags
	set := &cobra.Command{
		Use:   "set",
		Short: "Validate and save settings",
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withApp(func(app *App) error {
				current, err := app.services.Settings.Get(cmd.Context())
				if err != nil {
					return err
				}
				in := applySettingsFlags(*current, f, cmd.Flags().Changed)
				saved, err := app.services.Settings.Update(cmd.Context(), in)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "settings saved")
				return printJSON(cmd.OutOrStdout(), saved.Masked())
			})
		},
	}
	fl := set.Flags()
	fl.StringVar(&f.provider, "provider", "", "claude or gemini")
	fl.StringVar(&f.claudeKey, "claude-key", "", "Claude API key (sk-ant-...)")
	fl.StringVar(&f.geminiKey, "gemini-key", "", "Gemini API key (AIza...)")
	fl.StringVar(&f.claudeModel, "claude-model", "", "Claude model id")
	fl.StringVar(&f.geminiModel, "gemini-model", "", "Gemini model id")
	fl.Float64Var(&f.temperature, "temperature", models.DefaultTemperature, "sampling temperature between 0 and 2")
	fl.IntVar(&f.maxTokens, "max-tokens", models.DefaultMaxTokens, "maximum output tokens")
	fl.IntVar(&f.replyCount, "reply-count", models.DefaultReplyCount, "reply candidates to sample")
	fl.StringVar(&f.sideInstructions, "side-instructions", "", "extra instructions added to every prompt")

	cmd.AddCommand(show, set)
	return cmd
}

// applySettingsFlags overlays the flags the user set on current. Stored keys
// are cleared so Update keeps them unless a new one is given.
func applySettingsFlags(current models.Settings, f settingsFlags, changed func(string) bool) models.Settings {
	in := current
	in.ClaudeAPIKey, in.GeminiAPIKey = "", ""
	if changed("provider") {
		in.Provider = models.Provider(strings.ToLower(f.provider))
	}
	if changed("claude-key") {
		in.ClaudeAPIKey = f.claudeKey
	}
	if changed("gemini-key") {
		in.GeminiAPIKey = f.geminiKey
	}
	if changed("claude-model") {
		in.ClaudeModel = f.claudeModel
	}
	if changed("gemini-model") {
		in.GeminiModel = f.geminiModel
	}
	if changed("temperature") {
		in.Temperature = f.temperature
	}
	if changed("max-tokens") {
		in.MaxTokens = f.maxTokens
	}
	if changed("reply-count") {
		in.ReplyCount = f.replyCount
	}
	if changed("side-instructions") {
		in.SideInstructions = f.sideInstructions
	}
	return in
}

func newOpenSettingsCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "open-settings",
		Short: "Print the settings and the selectable models",
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withApp(func(app *App) error {
				s, err := app.services.Settings.Get(cmd.Context())
				if err != nil {
					return err
				}
				groups, err := app.services.Catalog.ListModelGroups()
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), map[string]any{
					"settings": s.Masked(),
					"models":   groups,
				})
			})
		},
	}
}
