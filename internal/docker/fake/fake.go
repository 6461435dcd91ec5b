// Package fake provides an in-memory docker.Engine for tests.
package fake

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/brightfame/towerctl/internal/docker"
)

// Engine is a docker.Engine backed by a slice of containers. Run appends a
// container built from the argument vector; Stop removes it.
type Engine struct {
	mu         sync.Mutex
	containers []docker.ContainerView
	logLines   []string

	ListErr error
	RunErr  error
	StopErr error
	LogsErr error

	// RunBlock, when non-nil, makes Run wait until it is closed.
	RunBlock chan struct{}

	RunCalls  [][]string
	StopCalls []string
	LogsCalls []string
	ListCalls int
}

var _ docker.Engine = (*Engine)(nil)

// New returns an engine reporting containers.
func New(containers ...docker.ContainerView) *Engine {
	return &Engine{containers: containers}
}

// SetContainers replaces the reported containers.
func (e *Engine) SetContainers(containers ...docker.ContainerView) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.containers = containers
}

// SetLogs sets the lines emitted on stderr by StreamLogs.
func (e *Engine) SetLogs(lines ...string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.logLines = lines
}

// Runs returns a copy of the recorded Run argument vectors.
func (e *Engine) Runs() [][]string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([][]string(nil), e.RunCalls...)
}

// LogTargets returns a copy of the names or IDs StreamLogs was opened for.
func (e *Engine) LogTargets() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]string(nil), e.LogsCalls...)
}

// Stops returns a copy of the recorded Stop names.
func (e *Engine) Stops() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]string(nil), e.StopCalls...)
}

func (e *Engine) ListContainers(_ context.Context, opts docker.ListOptions) ([]docker.ContainerView, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.ListCalls++
	if e.ListErr != nil {
		return nil, e.ListErr
	}
	out := make([]docker.ContainerView, 0, len(e.containers))
	for _, c := range e.containers {
		if opts.RunningOnly && c.State != "" && c.State != "running" {
			continue
		}
		out = append(out, c)
	}
	return out, nil
}

func (e *Engine) Run(ctx context.Context, args []string) (string, error) {
	e.mu.Lock()
	e.RunCalls = append(e.RunCalls, append([]string(nil), args...))
	block := e.RunBlock
	e.mu.Unlock()

	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.RunErr != nil {
		return "", e.RunErr
	}
	spec, err := docker.ParseRunArgs(args)
	if err != nil {
		return "", err
	}
	id := strings.Repeat("f", 64)
	e.containers = append(e.containers, docker.ContainerView{
		ID:      id,
		Names:   []string{"/" + spec.Name},
		Image:   spec.Image,
		Command: strings.Join(append([]string{"/watchtower"}, spec.Cmd...), " "),
		Created: time.Now().UTC(),
		State:   "running",
		Status:  "Up 1 second",
	})
	return id, nil
}

func (e *Engine) Stop(_ context.Context, name string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.StopCalls = append(e.StopCalls, name)
	if e.StopErr != nil {
		return e.StopErr
	}
	if i := e.find(name); i >= 0 {
		e.containers = append(e.containers[:i:i], e.containers[i+1:]...)
		return nil
	}
	return errors.New("no such container: " + name)
}

// find returns the index of the container with the given name or ID, or -1.
func (e *Engine) find(name string) int {
	for i, c := range e.containers {
		if c.Name() == strings.TrimPrefix(name, "/") || c.ID == name {
			return i
		}
	}
	return -1
}

// StreamLogs emits the configured lines on stderr. A followed stream then
// blocks until ctx is cancelled. Like the engine, it fails for a name or ID
// that matches no container.
func (e *Engine) StreamLogs(ctx context.Context, name string, opts docker.LogOptions, h docker.LogHandlers) error {
	if h.OnClose != nil {
		defer h.OnClose()
	}
	e.mu.Lock()
	e.LogsCalls = append(e.LogsCalls, name)
	lines := append([]string(nil), e.logLines...)
	logsErr := e.LogsErr
	if logsErr == nil && e.find(name) < 0 {
		logsErr = errors.New("no such container: " + name)
	}
	e.mu.Unlock()

	if logsErr != nil {
		if h.OnError != nil {
			h.OnError(logsErr)
		}
		return logsErr
	}
	if opts.Tail > 0 && opts.Tail < len(lines) {
		lines = lines[len(lines)-opts.Tail:]
	}
	for _, l := range lines {
		if h.OnStderr != nil {
			h.OnStderr(l)
		}
	}
	if opts.Follow {
		<-ctx.Done()
	}
	return nil
}
