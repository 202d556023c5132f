package page

import "sync"

type TargetKind string

const (
	TargetMain TargetKind = "main"
	TargetPost TargetKind = "post"
)

const (
	mainReplyButtonSelector = `button[data-testid="discussion-topic-reply"]`
	postReplyButtonSelector = `button[data-testid="threading-toolbar-reply"]`
)

// Target is a place on the page where a draft can be requested.
type Target struct {
	Kind    TargetKind `json:"kind"`
	EntryID string     `json:"entryId,omitempty"`
	Author  string     `json:"author,omitempty"`
}

func (t Target) key() string {
	if t.Kind == TargetMain {
		return string(TargetMain)
	}
	return string(t.Kind) + ":" + t.EntryID
}

// Targets lists the main target, when the page has a topic reply button, and
// one target per top-level post that has its own reply button.
func (e *Extractor) Targets() []Target {
	var out []Target
	if e.doc.Find(mainReplyButtonSelector).Length() > 0 {
		out = append(out, Target{Kind: TargetMain})
	}
	for _, en := range e.entries() {
		if !isTopLevel(en.sel) || en.sel.Find(postReplyButtonSelector).Length() == 0 {
			continue
		}
		out = append(out, Target{Kind: TargetPost, EntryID: en.post.ID, Author: en.post.Author})
	}
	return out
}

// TargetRegistry remembers which targets were already offered so rescans
// only surface new ones.
type TargetRegistry struct {
	mu   sync.Mutex
	seen map[string]struct{}
}

func NewTargetRegistry() *TargetRegistry {
	return &TargetRegistry{seen: make(map[string]struct{})}
}

// Register records targets and returns those not seen before, in order.
func (r *TargetRegistry) Register(targets []Target) []Target {
	r.mu.Lock()
	defer r.mu.Unlock()
	var fresh []Target
	for _, t := range targets {
		k := t.key()
		if _, ok := r.seen[k]; ok {
			continue
		}
		r.seen[k] = struct{}{}
		fresh = append(fresh, t)
	}
	return fresh
}

func (r *TargetRegistry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.seen)
}
