package http

import (
	"sync"
	"time"
)

// Flash kinds
const (
	FlashSuccess = "success"
	FlashError   = "error"
	FlashInfo    = "info"
)

// flashTTL drops flashes of clients that never came back for them
const flashTTL = 10 * time.Minute

// Flash is a one-shot message shown on the next rendered page
type Flash struct {
	Kind string
	Text string
}

type pendingFlashes struct {
	flashes []Flash
	added   time.Time
}

// flashStore keeps pending flashes per session in memory
type flashStore struct {
	mu      sync.Mutex
	pending map[string]*pendingFlashes
	now     func() time.Time
}

func newFlashStore() *flashStore {
	return &flashStore{
		pending: make(map[string]*pendingFlashes),
		now:     time.Now,
	}
}

func (f *flashStore) Add(sessionID, kind, text string) {
	f.mu.Lock()
	defer f.mu.Unlock()

	now := f.now()
	for id, p := range f.pending {
		if now.Sub(p.added) > flashTTL {
			delete(f.pending, id)
		}
	}

	p, ok := f.pending[sessionID]
	if !ok {
		p = &pendingFlashes{}
		f.pending[sessionID] = p
	}
	p.flashes = append(p.flashes, Flash{Kind: kind, Text: text})
	p.added = now
}

// Pop returns and forgets the session's pending flashes
func (f *flashStore) Pop(sessionID string) []Flash {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.pending[sessionID]
	if !ok {
		return nil
	}
	delete(f.pending, sessionID)
	return p.flashes
}

