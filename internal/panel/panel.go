// Package panel ties the daemon's launch, detection and log tailing together
// behind one controller shared by the CLI, the terminal panel and the HTTP
// backend.
package panel

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/brightfame/towerctl/internal/docker"
	"github.com/brightfame/towerctl/internal/logtail"
	"github.com/brightfame/towerctl/internal/reconciler"
	"github.com/brightfame/towerctl/internal/watchconfig"
)

var (
	// ErrAlreadyRunning is returned by Start when the daemon is present.
	ErrAlreadyRunning = errors.New("daemon is already running")
	// ErrStartInFlight is returned by Start while another start is in progress.
	ErrStartInFlight = errors.New("a start is already in progress")
)

// Options configures a Controller.
type Options struct {
	Daemon   watchconfig.Daemon
	LogLines int
}

// Controller drives one daemon instance through an injected Engine.
type Controller struct {
	engine   docker.Engine
	daemon   watchconfig.Daemon
	logLines int

	// observe serialises Apply so the published state and the log
	// subscription always follow the same listing.
	observe sync.Mutex
	rec     *reconciler.Reconciler
	tail    *logtail.Tailer

	mu    sync.Mutex
	logs  logtail.Buffer
	snap  atomic.Pointer[reconciler.Snapshot]
	start atomic.Bool

	// ctx scopes log subscriptions to the controller's lifetime.
	ctx    context.Context
	cancel context.CancelFunc
}

// New returns a Controller in the Absent state.
func New(engine docker.Engine, opts Options) *Controller {
	ctx, cancel := context.WithCancel(context.Background())
	c := &Controller{
		engine:   engine,
		daemon:   opts.Daemon,
		logLines: opts.LogLines,
		rec:      reconciler.New(opts.Daemon),
		logs:     logtail.NewBuffer(opts.LogLines),
		tail:     logtail.NewTailer(engine),
		ctx:      ctx,
		cancel:   cancel,
	}
	initial := c.rec.Snapshot()
	c.snap.Store(&initial)
	return c
}

// Daemon returns the identity the controller looks for.
func (c *Controller) Daemon() watchconfig.Daemon { return c.daemon }

// Snapshot returns the most recently published snapshot.
func (c *Controller) Snapshot() reconciler.Snapshot { return *c.snap.Load() }

// Starting reports whether a start is in flight.
func (c *Controller) Starting() bool { return c.start.Load() }

// Logs returns up to n of the newest buffered daemon log lines, oldest
// first. n <= 0 returns the whole buffer.
func (c *Controller) Logs(n int) []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.logs.Last(n)
}

// Refresh lists running containers, applies the listing to the reconciler
// and starts or releases the log subscription on transitions.
func (c *Controller) Refresh(ctx context.Context) (reconciler.Snapshot, error) {
	containers, err := c.engine.ListContainers(ctx, docker.ListOptions{RunningOnly: true})
	if err != nil {
		return c.Snapshot(), err
	}
	return c.Apply(containers), nil
}

// Apply feeds one listing to the reconciler. Listings are applied in
// completion order; the last one applied wins.
func (c *Controller) Apply(containers []docker.ContainerView) reconciler.Snapshot {
	c.observe.Lock()
	defer c.observe.Unlock()

	snap, tr := c.rec.Observe(containers)
	c.snap.Store(&snap)

	switch tr {
	case reconciler.TransitionAppeared:
		slog.Info("daemon detected", "container", snap.Daemon.Name(), "id", snap.Daemon.ShortID())
	case reconciler.TransitionDisappeared:
		slog.Info("daemon gone")
		c.tail.Release()
	}
	if snap.Present() {
		if snap.ConfigErr != nil {
			slog.Debug("daemon configuration unknown", "error", snap.ConfigErr)
		}
		// Follow the container that was actually matched; it may have been
		// recognised by image under another name. A new stream replays the
		// whole log, so start from an empty buffer.
		if id := snap.Daemon.ID; !c.tail.Following(id) {
			c.tail.Release()
			c.mu.Lock()
			c.logs = logtail.NewBuffer(c.logLines)
			c.mu.Unlock()
			c.tail.Acquire(c.ctx, id, c.appendLog)
		}
	}
	return snap
}

func (c *Controller) appendLog(line string) {
	c.mu.Lock()
	c.logs = c.logs.Append(line)
	c.mu.Unlock()
}

// Start launches the daemon with cfg and returns the argument vector used.
// The in-flight flag is cleared on every path.
func (c *Controller) Start(ctx context.Context, cfg watchconfig.StartConfiguration) ([]string, error) {
	args, err := c.daemon.BuildLaunchArguments(cfg)
	if err != nil {
		return nil, err
	}
	if c.Snapshot().Present() {
		return nil, ErrAlreadyRunning
	}
	if !c.start.CompareAndSwap(false, true) {
		return nil, ErrStartInFlight
	}
	defer c.start.Store(false)

	slog.Info("starting daemon", "args", args)
	id, err := c.engine.Run(ctx, args)
	if err != nil {
		return args, fmt.Errorf("start failed: %w", err)
	}
	slog.Info("daemon started", "id", id)
	return args, nil
}

// Stop asks the engine to stop the daemon container. The result becomes
// visible on the next Refresh.
func (c *Controller) Stop(ctx context.Context) error {
	name := c.daemon.ContainerName
	if name == "" {
		name = watchconfig.DefaultDaemon().ContainerName
	}
	if d := c.Snapshot().Daemon; d != nil {
		name = d.Name()
	}
	slog.Info("stopping daemon", "container", name)
	return c.engine.Stop(ctx, name)
}

// Watch refreshes every interval until ctx is done. Each snapshot is passed
// to onSnapshot when it is non-nil.
func (c *Controller) Watch(ctx context.Context, every time.Duration, onSnapshot func(reconciler.Snapshot)) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	c.poll(ctx, onSnapshot)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.poll(ctx, onSnapshot)
		}
	}
}

// poll runs one refresh, recovering from panics.
func (c *Controller) poll(ctx context.Context, onSnapshot func(reconciler.Snapshot)) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("panic in poll loop (recovered)", "panic", r)
		}
	}()

	snap, err := c.Refresh(ctx)
	if err != nil {
		slog.Warn("poll failed", "error", err)
		return
	}
	if onSnapshot != nil {
		onSnapshot(snap)
	}
}

// Close releases the log subscription. The controller must not be used afterwards.
func (c *Controller) Close() {
	c.observe.Lock()
	defer c.observe.Unlock()
	c.cancel()
	c.tail.Release()
}
