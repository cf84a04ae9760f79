package janusapi

import (
	"sync"
	"time"

	"github.com/coderoom/janusrtc/pkg/wire"
)

// DefaultRequestTimeout bounds how long a pending request waits for a
// matching reply before its callback fires with ErrTimeout.
const DefaultRequestTimeout = 20 * time.Second

// ReplyFunc receives the final reply envelope for a pending request, or a
// non-nil error (wire.ErrTimeout, wire.ErrCancelled, a *wire.ServerError, or
// a *wire.TransportFailure) if none arrived. For a send_message call it may be invoked twice — once
// for the immediate `success`, once more for a later `event` sharing the
// same transaction — matching the Janus plugin push-notification idiom;
// every other call site is invoked exactly once.
type ReplyFunc func(env *wire.Envelope, err error)

// pendingEntry is one row of the PendingTable. Mirrors the identity-checked
// timer pattern used for standalone-ack bookkeeping: a fired timer verifies
// it is still the current entry for its transaction before acting, so a
// timer racing a reply never double-fires the callback.
type pendingEntry struct {
	transaction      string
	wantsPluginReply bool
	cb               ReplyFunc
	timer            *time.Timer
	done             bool // true once a terminal reply has fired
}

// PendingTable correlates outbound requests with their replies by
// transaction id, implementing the ack-vs-final rule in full: an `ack` is
// "still pending" for a request whose callback wants the plugin reply, and
// "done" for every other request.
type PendingTable struct {
	mu      sync.Mutex
	entries map[string]*pendingEntry
}

// NewPendingTable creates an empty table.
func NewPendingTable() *PendingTable {
	return &PendingTable{entries: make(map[string]*pendingEntry)}
}

// Add registers a pending request. timeout <= 0 uses DefaultRequestTimeout.
func (t *PendingTable) Add(transaction string, wantsPluginReply bool, timeout time.Duration, cb ReplyFunc) error {
	if timeout <= 0 {
		timeout = DefaultRequestTimeout
	}

	t.mu.Lock()
	if _, exists := t.entries[transaction]; exists {
		t.mu.Unlock()
		return ErrDuplicateTransaction
	}

	entry := &pendingEntry{
		transaction:      transaction,
		wantsPluginReply: wantsPluginReply,
		cb:               cb,
	}
	entry.timer = time.AfterFunc(timeout, func() {
		t.expire(transaction, entry)
	})
	t.entries[transaction] = entry
	t.mu.Unlock()

	return nil
}

// Resolve delivers an inbound envelope to its pending entry, if any.
// Returns true if a pending entry matched the envelope's transaction
// (whether or not that reply was terminal).
func (t *PendingTable) Resolve(env *wire.Envelope) bool {
	if env.Transaction == "" {
		return false
	}

	t.mu.Lock()
	entry, ok := t.entries[env.Transaction]
	if !ok || entry.done {
		t.mu.Unlock()
		return false
	}

	if env.Janus == wire.KindAck && entry.wantsPluginReply {
		// Still pending: the caller wants the plugin's success/event, not
		// just transport confirmation that the request was queued.
		t.mu.Unlock()
		return true
	}

	terminal := true
	if entry.wantsPluginReply && env.Janus == wire.KindSuccess {
		// A send_message success is not terminal by itself — a later event
		// sharing this transaction may still arrive.
		terminal = false
	}

	if terminal {
		entry.done = true
		entry.timer.Stop()
		delete(t.entries, env.Transaction)
	}
	t.mu.Unlock()

	entry.cb(env, replyError(env))
	return true
}

// CancelAll fires every still-pending callback with err and clears the
// table. Used when a session or handle tears down (spec §5 Cancellation).
func (t *PendingTable) CancelAll(err error) {
	t.mu.Lock()
	entries := make([]*pendingEntry, 0, len(t.entries))
	for _, e := range t.entries {
		if !e.done {
			e.done = true
			e.timer.Stop()
			entries = append(entries, e)
		}
	}
	t.entries = make(map[string]*pendingEntry)
	t.mu.Unlock()

	for _, e := range entries {
		e.cb(nil, err)
	}
}

// Forget removes a pending entry without invoking its callback. Used to
// unwind registration when the subsequent transport write fails synchronously.
func (t *PendingTable) Forget(transaction string) {
	t.mu.Lock()
	if entry, ok := t.entries[transaction]; ok {
		entry.done = true
		entry.timer.Stop()
		delete(t.entries, transaction)
	}
	t.mu.Unlock()
}

// Count returns the number of pending entries.
func (t *PendingTable) Count() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.entries)
}

func (t *PendingTable) expire(transaction string, entry *pendingEntry) {
	t.mu.Lock()
	current, ok := t.entries[transaction]
	if !ok || current != entry || current.done {
		t.mu.Unlock()
		return
	}
	current.done = true
	delete(t.entries, transaction)
	t.mu.Unlock()

	entry.cb(nil, wire.ErrTimeout)
}

// replyError converts an `error`-kind envelope into a *wire.ServerError; any
// other kind yields a nil error.
func replyError(env *wire.Envelope) error {
	if env.Janus != wire.KindError || env.Error == nil {
		return nil
	}
	return &wire.ServerError{Code: env.Error.Code, Reason: env.Error.Reason}
}
