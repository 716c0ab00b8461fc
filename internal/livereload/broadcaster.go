// Package livereload tells connected development clients to reload after a
// rebuild changed the output tree. Delivery is best effort: every send runs
// on its own goroutine with a timeout, and a client whose send fails is
// dropped. A build never waits for a client.
package livereload

import (
	"context"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/specialistvlad/assetgrid/internal/ctxlog"
	"github.com/specialistvlad/assetgrid/internal/scheduler"
)

// DefaultSendTimeout bounds a single delivery to one client.
const DefaultSendTimeout = 5 * time.Second

// Notification is the payload pushed to clients.
type Notification struct {
	RunID string    `json:"run_id"`
	Paths []string  `json:"paths"`
	At    time.Time `json:"at"`
}

// Client is one connected development client. Implementations must be
// comparable; pointer receivers are the norm.
type Client interface {
	ID() string
	Reload(ctx context.Context, n Notification) error
}

// Broadcaster owns the set of connected clients.
type Broadcaster struct {
	mu      sync.Mutex
	clients map[string]Client

	timeout     time.Duration
	onBroadcast func(n Notification, clients int)

	sends      sync.WaitGroup
	broadcasts atomic.Int64
}

// Option configures a Broadcaster.
type Option func(*Broadcaster)

// WithSendTimeout bounds each delivery. Non-positive values keep the default.
func WithSendTimeout(d time.Duration) Option {
	return func(b *Broadcaster) {
		if d > 0 {
			b.timeout = d
		}
	}
}

// WithBroadcastHook is called once per broadcast with the number of clients
// it was sent to.
func WithBroadcastHook(fn func(n Notification, clients int)) Option {
	return func(b *Broadcaster) {
		b.onBroadcast = fn
	}
}

// NewBroadcaster creates a broadcaster with no clients.
func NewBroadcaster(opts ...Option) *Broadcaster {
	b := &Broadcaster{
		clients: make(map[string]Client),
		timeout: DefaultSendTimeout,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Add registers a client, replacing any client with the same ID.
func (b *Broadcaster) Add(c Client) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.clients[c.ID()] = c
}

// Remove forgets a client. Unknown IDs are ignored.
func (b *Broadcaster) Remove(id string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.clients, id)
}

// drop removes c only if it is still the client registered under its ID.
func (b *Broadcaster) drop(c Client) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if cur, ok := b.clients[c.ID()]; ok && cur == c {
		delete(b.clients, c.ID())
	}
}

// Len returns the number of connected clients.
func (b *Broadcaster) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.clients)
}

// IDs returns the connected client IDs, sorted.
func (b *Broadcaster) IDs() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	ids := make([]string, 0, len(b.clients))
	for id := range b.clients {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// Broadcasts returns how many notifications have been emitted.
func (b *Broadcaster) Broadcasts() int64 {
	return b.broadcasts.Load()
}

// OnOutputChanged pushes n to every connected client and returns without
// waiting for any of them.
func (b *Broadcaster) OnOutputChanged(ctx context.Context, n Notification) {
	b.mu.Lock()
	targets := make([]Client, 0, len(b.clients))
	for _, c := range b.clients {
		targets = append(targets, c)
	}
	b.mu.Unlock()

	b.broadcasts.Add(1)
	if b.onBroadcast != nil {
		b.onBroadcast(n, len(targets))
	}

	logger := ctxlog.FromContext(ctx)
	logger.Info("🔄 Broadcasting reload", "clients", len(targets), "paths", len(n.Paths))

	// Sends outlive the triggering run, so they are detached from its
	// cancellation and bounded by the send timeout instead.
	base := context.WithoutCancel(ctx)
	for _, c := range targets {
		b.sends.Add(1)
		go func() {
			defer b.sends.Done()
			sendCtx, cancel := context.WithTimeout(base, b.timeout)
			defer cancel()
			if err := c.Reload(sendCtx, n); err != nil {
				logger.Debug("Dropping live reload client.", "client", c.ID(), "error", err)
				b.drop(c)
			}
		}()
	}
}

// OnRunFinished broadcasts when run succeeded and changed at least one
// output. It reports whether a broadcast was made.
func (b *Broadcaster) OnRunFinished(ctx context.Context, run *scheduler.BuildRun) bool {
	if run == nil || !run.Succeeded() {
		return false
	}
	paths := run.ChangedPaths()
	if len(paths) == 0 {
		return false
	}
	b.OnOutputChanged(ctx, Notification{
		RunID: run.ID.String(),
		Paths: paths,
		At:    run.FinishedAt(),
	})
	return true
}

// Wait blocks until every in-flight send has finished.
func (b *Broadcaster) Wait() {
	b.sends.Wait()
}
