package main

import (
	"fmt"
	"io"
	"strings"

	"discussdraft/internal/orchestrator"
)

// terminalPresenter prints the draft panel to a terminal.
type terminalPresenter struct {
	out io.Writer
}

func (p *terminalPresenter) ShowLoading(message string) {
	fmt.Fprintf(p.out, "... %s\n", message)
}

func (p *terminalPresenter) ShowResult(r orchestrator.Result) {
	title := "Main post"
	if r.ReplyTo != "" {
		title = "Reply to " + r.ReplyTo
	}
	rule := strings.Repeat("-", 60)
	fmt.Fprintf(p.out, "%s\n%s · %s\n%s\n%s\n%s\n", rule, title, r.Topic, rule, r.Text, rule)
	if r.Usage != nil {
		fmt.Fprintf(p.out, "tokens: %d prompt, %d completion (limit %d)\n",
			r.Usage.PromptTokens, r.Usage.CompletionTokens, r.MaxTokens)
	}
	if r.Warning != "" {
		fmt.Fprintf(p.out, "! %s\n", r.Warning)
	}
}

func (p *terminalPresenter) ShowError(message string) {
	fmt.Fprintf(p.out, "error: %s\n", message)
}

func (p *terminalPresenter) ShowNotification(n orchestrator.Notification) {
	fmt.Fprintf(p.out, "[%s] %s\n", n.Title, n.Message)
	if n.Action == "open-settings" {
		fmt.Fprintln(p.out, "run `discussdraft settings set` to configure it.")
	}
}

func (p *terminalPresenter) Close() {
	fmt.Fprintln(p.out, "closed.")
}
