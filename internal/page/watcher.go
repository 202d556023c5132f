package page

import (
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/bep/debounce"
)

const DefaultRescanDelay = 500 * time.Millisecond

var relevantDescendants = strings.Join([]string{
	entrySelector,
	`[data-testid="discussion-topic-reply"]`,
	`[data-testid="discussion-root-entry-container"]`,
}, ", ")

// Watcher coalesces bursts of page mutations into a single rescan that runs
// once no relevant mutation has arrived for the configured delay.
type Watcher struct {
	schedule func(func())
	rescan   func()

	mu      sync.Mutex
	pending int
}

func NewWatcher(delay time.Duration, rescan func()) *Watcher {
	if delay <= 0 {
		delay = DefaultRescanDelay
	}
	return &Watcher{
		schedule: debounce.New(delay),
		rescan:   rescan,
	}
}

// Observe inspects one batch of added nodes, given as HTML fragments, and
// schedules a rescan when any of them can carry a new generate target. It
// reports whether a rescan was scheduled.
func (w *Watcher) Observe(added []string) bool {
	if !batchIsRelevant(added) {
		return false
	}
	w.mu.Lock()
	w.pending++
	w.mu.Unlock()
	w.schedule(w.fire)
	return true
}

// Pending returns how many relevant batches arrived since the last rescan.
func (w *Watcher) Pending() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.pending
}

func (w *Watcher) fire() {
	w.mu.Lock()
	w.pending = 0
	w.mu.Unlock()
	if w.rescan != nil {
		w.rescan()
	}
}

func batchIsRelevant(added []string) bool {
	for _, fragment := range added {
		if fragmentIsRelevant(fragment) {
			return true
		}
	}
	return false
}

func fragmentIsRelevant(fragment string) bool {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(fragment))
	if err != nil {
		return false
	}
	relevant := false
	doc.Find("body").Children().EachWithBreak(func(_ int, node *goquery.Selection) bool {
		_, hasEntry := node.Attr("data-entry-id")
		_, hasTestID := node.Attr("data-testid")
		if hasEntry || hasTestID || node.Find(relevantDescendants).Length() > 0 {
			relevant = true
			return false
		}
		return true
	})
	return relevant
}
