package scanner

import (
	"sync"

	"go.uber.org/zap"
)

// Entry is the scanner of one session together with the feed its frames
// arrive on.
type Entry struct {
	Scanner *Scanner
	Feed    *FrameFeed
}

// Registry keeps at most one scanner per session.
type Registry struct {
	decoder Decoder
	fps     int
	log     *zap.Logger

	mu      sync.Mutex
	entries map[string]*Entry
}

func NewRegistry(decoder Decoder, fps int, log *zap.Logger) *Registry {
	return &Registry{
		decoder: decoder,
		fps:     fps,
		log:     log,
		entries: make(map[string]*Entry),
	}
}

// Get returns the session's scanner, creating it with writer on first use.
func (r *Registry) Get(sessionID string, writer QuantityWriter) *Entry {
	r.mu.Lock()
	defer r.mu.Unlock()

	if e, ok := r.entries[sessionID]; ok {
		return e
	}
	feed := NewFrameFeed()
	e := &Entry{
		Scanner: New(feed, r.decoder, writer, r.fps, r.log.With(zap.String("session", sessionID))),
		Feed:    feed,
	}
	r.entries[sessionID] = e
	return e
}

// Lookup returns the session's scanner without creating one.
func (r *Registry) Lookup(sessionID string) (*Entry, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[sessionID]
	return e, ok
}

// Close stops the session's scanner, releasing its camera, and forgets it.
func (r *Registry) Close(sessionID string) {
	r.mu.Lock()
	e, ok := r.entries[sessionID]
	delete(r.entries, sessionID)
	r.mu.Unlock()

	if ok {
		e.Scanner.Stop()
	}
}

// CloseAll stops every scanner. Used at shutdown.
func (r *Registry) CloseAll() {
	r.mu.Lock()
	entries := r.entries
	r.entries = make(map[string]*Entry)
	r.mu.Unlock()

	for _, e := range entries {
		e.Scanner.Stop()
	}
}
