package videoroom

import "sync"

// Participant is one remote publisher's roster entry, spec §4.5.
type Participant struct {
	FeedID  uint64
	Display string
}

// roster tracks participants keyed by feed id, under one mutex. Grounded
// on the same add/remove/find-by-id shape as pkg/session's handle
// registry.
type roster struct {
	mu           sync.RWMutex
	participants map[uint64]*Participant
}

func newRoster() *roster {
	return &roster{participants: make(map[uint64]*Participant)}
}

// Upsert adds or updates the participant for feedID, returning true if it
// is new.
func (r *roster) Upsert(feedID uint64, display string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if p, exists := r.participants[feedID]; exists {
		p.Display = display
		return false
	}
	r.participants[feedID] = &Participant{FeedID: feedID, Display: display}
	return true
}

// Remove drops the participant for feedID, if present.
func (r *roster) Remove(feedID uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.participants, feedID)
}

// Find returns the participant for feedID, or nil if none is registered.
func (r *roster) Find(feedID uint64) *Participant {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.participants[feedID]
}

// Count returns the number of participants currently in the roster.
func (r *roster) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.participants)
}

// Clear removes every participant and returns the ones that were present.
func (r *roster) Clear() []*Participant {
	r.mu.Lock()
	defer r.mu.Unlock()

	all := make([]*Participant, 0, len(r.participants))
	for _, p := range r.participants {
		all = append(all, p)
	}
	r.participants = make(map[uint64]*Participant)
	return all
}
