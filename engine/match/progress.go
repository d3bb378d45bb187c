package match

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// State names a phase of a match request.
type State string

const (
	StateReceived    State = "received"
	StateNormalizing State = "normalizing"
	StateEmbedding   State = "embedding"
	StateSearching   State = "searching"
	StateRanked      State = "ranked"
	StateDone        State = "done"
	StateFailed      State = "failed"
)

// Snapshot is a point-in-time view of a request's progress.
type Snapshot struct {
	Token     string    `json:"token"`
	State     State     `json:"state"`
	Detail    string    `json:"detail,omitempty"`
	Error     string    `json:"error,omitempty"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Tracker hands out per-request progress handles addressed by token. Each
// request gets its own handle, so concurrent searches never observe each
// other's state. Retention is bounded: once capacity is exceeded the oldest
// finished request is dropped.
type Tracker struct {
	mu       sync.Mutex
	capacity int
	handles  map[string]*Handle
	order    []string
}

// DefaultTrackerCapacity bounds how many request snapshots are retained.
const DefaultTrackerCapacity = 1024

// NewTracker creates a tracker retaining up to capacity request handles.
func NewTracker(capacity int) *Tracker {
	if capacity <= 0 {
		capacity = DefaultTrackerCapacity
	}
	return &Tracker{
		capacity: capacity,
		handles:  make(map[string]*Handle),
	}
}

// Start registers a new request and returns its handle.
func (t *Tracker) Start() *Handle {
	h := &Handle{
		token: uuid.NewString(),
		snap: Snapshot{
			State:     StateReceived,
			UpdatedAt: time.Now(),
		},
	}
	h.snap.Token = h.token

	t.mu.Lock()
	defer t.mu.Unlock()
	t.handles[h.token] = h
	t.order = append(t.order, h.token)
	t.evictLocked()
	return h
}

// evictLocked drops the oldest finished handles while over capacity. An
// in-flight handle is never evicted.
func (t *Tracker) evictLocked() {
	for len(t.handles) > t.capacity {
		evicted := false
		for i, token := range t.order {
			h := t.handles[token]
			if h == nil {
				t.order = append(t.order[:i], t.order[i+1:]...)
				evicted = true
				break
			}
			if s := h.Snapshot().State; s == StateDone || s == StateFailed {
				delete(t.handles, token)
				t.order = append(t.order[:i], t.order[i+1:]...)
				evicted = true
				break
			}
		}
		if !evicted {
			return
		}
	}
}

// Get returns the snapshot for a token.
func (t *Tracker) Get(token string) (Snapshot, bool) {
	t.mu.Lock()
	h, ok := t.handles[token]
	t.mu.Unlock()
	if !ok {
		return Snapshot{}, false
	}
	return h.Snapshot(), true
}

// Handle tracks one request's progress.
type Handle struct {
	mu    sync.Mutex
	token string
	snap  Snapshot
}

// Token returns the request token handed back to the caller.
func (h *Handle) Token() string { return h.token }

// Step advances the request to a new state.
func (h *Handle) Step(state State, detail string) {
	h.mu.Lock()
	h.snap.State = state
	h.snap.Detail = detail
	h.snap.UpdatedAt = time.Now()
	h.mu.Unlock()
}

// Done marks the request complete.
func (h *Handle) Done() { h.Step(StateDone, "") }

// Fail marks the request failed with the given error.
func (h *Handle) Fail(err error) {
	h.mu.Lock()
	h.snap.State = StateFailed
	h.snap.Error = err.Error()
	h.snap.UpdatedAt = time.Now()
	h.mu.Unlock()
}

// Snapshot returns a copy of the current progress.
func (h *Handle) Snapshot() Snapshot {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.snap
}
