package logtail

import (
	"context"
	"log/slog"
	"sync"

	"github.com/brightfame/towerctl/internal/docker"
)

// DefaultCapacity is the number of lines a Buffer keeps when none is configured.
const DefaultCapacity = 500

// Buffer is a bounded, append-only list of log lines. Append returns a new
// Buffer and never mutates the receiver's visible lines.
type Buffer struct {
	capacity int
	lines    []string
}

// NewBuffer returns an empty buffer holding at most capacity lines.
func NewBuffer(capacity int) Buffer {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return Buffer{capacity: capacity}
}

// Append returns a buffer with line added, dropping the oldest line when full.
func (b Buffer) Append(line string) Buffer {
	if b.capacity <= 0 {
		b.capacity = DefaultCapacity
	}
	start := 0
	if len(b.lines) >= b.capacity {
		start = len(b.lines) - b.capacity + 1
	}
	next := make([]string, 0, len(b.lines)-start+1)
	next = append(next, b.lines[start:]...)
	next = append(next, line)
	return Buffer{capacity: b.capacity, lines: next}
}

// Last returns up to n of the newest lines, oldest first. n <= 0 returns
// every buffered line.
func (b Buffer) Last(n int) []string {
	if n <= 0 || n >= len(b.lines) {
		return b.lines
	}
	return b.lines[len(b.lines)-n:]
}

// Streamer opens a container's log stream. docker.Engine satisfies it.
type Streamer interface {
	StreamLogs(ctx context.Context, name string, opts docker.LogOptions, h docker.LogHandlers) error
}

// Subscription is one running log stream. Close releases it.
type Subscription struct {
	cancel context.CancelFunc
	done   chan struct{}
	once   sync.Once
}

// Subscribe starts streaming name's logs in the background. The daemon writes
// its logs to stderr, so only stderr lines reach onLine; stdout lines and
// stream errors are logged.
func Subscribe(ctx context.Context, s Streamer, name string, onLine func(string)) *Subscription {
	ctx, cancel := context.WithCancel(ctx)
	sub := &Subscription{cancel: cancel, done: make(chan struct{})}

	go func() {
		defer close(sub.done)
		_ = s.StreamLogs(ctx, name, docker.LogOptions{Follow: true}, docker.LogHandlers{
			OnStderr: onLine,
			OnStdout: func(line string) {
				slog.Debug("daemon stdout", "container", name, "line", line)
			},
			OnError: func(err error) {
				slog.Warn("log stream error", "container", name, "error", err)
			},
			OnClose: func() {
				slog.Debug("log stream closed", "container", name)
			},
		})
	}()

	return sub
}

// Close cancels the stream and waits for it to finish. It is safe to call more than once.
func (s *Subscription) Close() {
	s.once.Do(func() {
		s.cancel()
		<-s.done
	})
}

// Done is closed once the stream has ended.
func (s *Subscription) Done() <-chan struct{} { return s.done }

// Tailer keeps at most one subscription alive at a time.
type Tailer struct {
	streamer Streamer

	mu     sync.Mutex
	sub    *Subscription
	target string
}

// NewTailer returns a Tailer that opens streams through s.
func NewTailer(s Streamer) *Tailer {
	return &Tailer{streamer: s}
}

// Acquire starts a subscription to target unless one to the same target is
// already active. A live subscription to another target is closed first. It
// reports whether a new subscription was started.
func (t *Tailer) Acquire(ctx context.Context, target string, onLine func(string)) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.sub != nil {
		if t.target == target && !ended(t.sub) {
			return false
		}
		t.sub.Close()
	}
	t.sub = Subscribe(ctx, t.streamer, target, onLine)
	t.target = target
	return true
}

// Release closes the active subscription, if any.
func (t *Tailer) Release() {
	t.mu.Lock()
	sub := t.sub
	t.sub = nil
	t.target = ""
	t.mu.Unlock()

	if sub != nil {
		sub.Close()
	}
}

// Following reports whether a subscription to target is currently streaming.
func (t *Tailer) Following(target string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.sub != nil && t.target == target && !ended(t.sub)
}

func ended(sub *Subscription) bool {
	select {
	case <-sub.Done():
		return true
	default:
		return false
	}
}
