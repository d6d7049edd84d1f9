package orchestrator

import (
	"sync"
	"time"
)

// tombstoneGrace is how long a cancellation marker outlives registry
// removal, so a delayed process-exit event is still classified as canceled
// instead of unknown.
const tombstoneGrace = 30 * time.Second

// Registry is the active-session table, the only shared mutable state in
// the core. Inserts and removes are atomic under one mutex; the id-keyed
// and URL-keyed lookups used during cancellation are independent read-only
// scans.
type Registry struct {
	mu       sync.Mutex
	sessions map[string]*Session
	canceled map[string]time.Time
	nowFn    func() time.Time
}

func NewRegistry() *Registry {
	return &Registry{
		sessions: make(map[string]*Session),
		canceled: make(map[string]time.Time),
		nowFn:    time.Now,
	}
}

func (r *Registry) Add(s *Session) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[s.ID] = s
}

func (r *Registry) Get(id string) (*Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	return s, ok
}

// FindByURL scans sessions by original source URL. Supports legacy cancel
// requests that carry only the URL.
func (r *Registry) FindByURL(url string) (*Session, bool) {
	if url == "" {
		return nil, false
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.sessions {
		if s.Request.DownloadURL == url {
			return s, true
		}
	}
	return nil, false
}

// Remove deletes the session and reports whether it was present.
func (r *Registry) Remove(id string) (*Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	if ok {
		delete(r.sessions, id)
	}
	return s, ok
}

// MarkCanceled writes a tombstone for id.
func (r *Registry) MarkCanceled(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reapLocked()
	r.canceled[id] = r.nowFn()
}

// WasCanceled reports whether id has a live tombstone.
func (r *Registry) WasCanceled(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	at, ok := r.canceled[id]
	if !ok {
		return false
	}
	if r.nowFn().Sub(at) > tombstoneGrace {
		delete(r.canceled, id)
		return false
	}
	return true
}

// ClearTombstone drops the cancellation marker once the exit has been
// classified.
func (r *Registry) ClearTombstone(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.canceled, id)
}

// ActiveOutputPaths snapshots the output paths of all active sessions for
// collision-free path resolution.
func (r *Registry) ActiveOutputPaths() map[string]struct{} {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[string]struct{}, len(r.sessions))
	for _, s := range r.sessions {
		out[s.OutputPath] = struct{}{}
	}
	return out
}

// All snapshots the active sessions.
func (r *Registry) All() []*Session {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		out = append(out, s)
	}
	return out
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

func (r *Registry) reapLocked() {
	cutoff := r.nowFn().Add(-tombstoneGrace)
	for id, at := range r.canceled {
		if at.Before(cutoff) {
			delete(r.canceled, id)
		}
	}
}
