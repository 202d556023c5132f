package mocks

import (
	"sync"

	"discussdraft/internal/orchestrator"
)

// PresenterMock records what the orchestrator asked it to show.
type PresenterMock struct {
	mu            sync.Mutex
	Loading       []string
	Results       []orchestrator.Result
	Errors        []string
	Notifications []orchestrator.Notification
	Closes        int
}

func (p *PresenterMock) ShowLoading(message string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Loading = append(p.Loading, message)
}

func (p *PresenterMock) ShowResult(r orchestrator.Result) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Results = append(p.Results, r)
}

func (p *PresenterMock) ShowError(message string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Errors = append(p.Errors, message)
}

func (p *PresenterMock) ShowNotification(n orchestrator.Notification) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Notifications = append(p.Notifications, n)
}

func (p *PresenterMock) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Closes++
}

// PresenterCalls is a copy of what a PresenterMock has recorded.
type PresenterCalls struct {
	Loading       []string
	Results       []orchestrator.Result
	Errors        []string
	Notifications []orchestrator.Notification
	Closes        int
}

func (p *PresenterMock) Snapshot() PresenterCalls {
	p.mu.Lock()
	defer p.mu.Unlock()
	return PresenterCalls{
		Loading:       append([]string(nil), p.Loading...),
		Results:       append([]orchestrator.Result(nil), p.Results...),
		Errors:        append([]string(nil), p.Errors...),
		Notifications: append([]orchestrator.Notification(nil), p.Notifications...),
		Closes:        p.Closes,
	}
}
