package eventloop

import (
	"sync"

	"github.com/pion/logging"
)

// DefaultQueueDepth bounds each key's backlog before Post blocks the caller.
const DefaultQueueDepth = 64

// Config configures a Loop.
type Config struct {
	// QueueDepth bounds the per-key backlog. Defaults to DefaultQueueDepth.
	QueueDepth int

	// LoggerFactory creates the component's logger. If nil, logging is
	// disabled.
	LoggerFactory logging.LoggerFactory
}

// Loop runs one worker goroutine per distinct key, each draining its own
// FIFO channel of posted functions. Keys are created lazily on first Post
// and torn down by Close.
type Loop struct {
	config Config
	log    logging.LeveledLogger

	mu      sync.Mutex
	queues  map[string]chan func()
	closing bool
	wg      sync.WaitGroup
}

// New creates a Loop.
func New(config Config) *Loop {
	if config.QueueDepth <= 0 {
		config.QueueDepth = DefaultQueueDepth
	}

	l := &Loop{
		config: config,
		queues: make(map[string]chan func()),
	}
	if config.LoggerFactory != nil {
		l.log = config.LoggerFactory.NewLogger("eventloop")
	}
	return l
}

// Post enqueues fn to run on key's worker, preserving FIFO order relative to
// every other fn posted to the same key. Returns false if the loop is
// closing and fn was dropped.
func (l *Loop) Post(key string, fn func()) bool {
	l.mu.Lock()
	if l.closing {
		l.mu.Unlock()
		return false
	}

	q, ok := l.queues[key]
	if !ok {
		q = make(chan func(), l.config.QueueDepth)
		l.queues[key] = q
		l.wg.Add(1)
		go l.drain(key, q)
	}
	l.mu.Unlock()

	q <- fn
	return true
}

// Forget stops and removes key's worker once its current backlog drains.
// Safe to call even if key was never used.
func (l *Loop) Forget(key string) {
	l.mu.Lock()
	q, ok := l.queues[key]
	if ok {
		delete(l.queues, key)
	}
	l.mu.Unlock()

	if ok {
		close(q)
	}
}

// Close stops every worker once its current backlog drains and waits for
// them to exit. No further Post call succeeds afterward.
func (l *Loop) Close() {
	l.mu.Lock()
	if l.closing {
		l.mu.Unlock()
		return
	}
	l.closing = true
	queues := l.queues
	l.queues = make(map[string]chan func())
	l.mu.Unlock()

	for _, q := range queues {
		close(q)
	}
	l.wg.Wait()
}

func (l *Loop) drain(key string, q chan func()) {
	defer l.wg.Done()
	for fn := range q {
		l.run(key, fn)
	}
}

func (l *Loop) run(key string, fn func()) {
	defer func() {
		if r := recover(); r != nil && l.log != nil {
			l.log.Warnf("eventloop: recovered panic on key %q: %v", key, r)
		}
	}()
	fn()
}
