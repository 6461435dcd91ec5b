package tui

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brightfame/towerctl/internal/docker"
	"github.com/brightfame/towerctl/internal/reconciler"
	"github.com/brightfame/towerctl/internal/watchconfig"
)

type stubController struct {
	mu       sync.Mutex
	snap     reconciler.Snapshot
	logs     []string
	startErr error
	refErr   error
	starts   []watchconfig.StartConfiguration
	stops    int

	logsAsked int
}

func (s *stubController) Refresh(context.Context) (reconciler.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snap, s.refErr
}

func (s *stubController) Start(_ context.Context, cfg watchconfig.StartConfiguration) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.starts = append(s.starts, cfg)
	if s.startErr != nil {
		return nil, s.startErr
	}
	return watchconfig.BuildLaunchArguments(cfg)
}

func (s *stubController) Stop(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stops++
	return nil
}

func (s *stubController) Logs(n int) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.logsAsked = n
	if n > 0 && n < len(s.logs) {
		return s.logs[len(s.logs)-n:]
	}
	return s.logs
}

func key(s string) tea.KeyMsg {
	switch s {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "tab":
		return tea.KeyMsg{Type: tea.KeyTab}
	case "space":
		return tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}}
	case "right":
		return tea.KeyMsg{Type: tea.KeyRight}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func send(t *testing.T, m *Model, msgs ...tea.Msg) tea.Cmd {
	t.Helper()
	var cmd tea.Cmd
	for _, msg := range msgs {
		_, cmd = m.Update(msg)
	}
	return cmd
}

func absentSnapshot(names ...string) reconciler.Snapshot {
	snap := reconciler.Snapshot{State: reconciler.StateAbsent}
	for _, n := range names {
		snap.Containers = append(snap.Containers, docker.ContainerView{
			ID: n + "-id", Names: []string{"/" + n}, Image: n + ":latest", State: "running", Status: "Up 2 hours",
		})
	}
	return snap
}

func TestInitRefreshes(t *testing.T) {
	ctrl := &stubController{snap: absentSnapshot("nginx")}
	m := New(ctrl, Options{Poll: time.Second})
	require.NotNil(t, m.Init())

	msg := refreshCmd(ctrl, m.logLines)()
	require.IsType(t, snapshotMsg{}, msg)
	send(t, m, msg)
	assert.True(t, m.polled)
	assert.Contains(t, m.View(), "not running")
	assert.Contains(t, m.View(), "Check every")
}

func TestStartMonitorAll(t *testing.T) {
	ctrl := &stubController{snap: absentSnapshot("nginx")}
	m := New(ctrl, Options{Defaults: watchconfig.StartConfiguration{Magnitude: 10, Unit: watchconfig.Minutes, MonitorAll: true}})
	send(t, m, refreshCmd(ctrl, m.logLines)())

	cmd := send(t, m, key("enter"))
	require.NotNil(t, cmd)
	assert.True(t, m.starting)
	assert.Contains(t, m.View(), "Starting")

	// A second Enter while in flight is ignored.
	assert.Nil(t, send(t, m, key("enter")))

	msg := startCmd(ctrl, formConfig(t, m))()
	send(t, m, msg)
	assert.False(t, m.starting)
	require.IsType(t, startedMsg{}, msg)
	assert.Contains(t, m.lastArgs, "600")
}

func formConfig(t *testing.T, m *Model) watchconfig.StartConfiguration {
	t.Helper()
	cfg, err := m.startConfiguration()
	require.NoError(t, err)
	return cfg
}

func TestSelectTargets(t *testing.T) {
	ctrl := &stubController{snap: absentSnapshot("nginx", "redis")}
	m := New(ctrl, Options{Defaults: watchconfig.StartConfiguration{Magnitude: 2, Unit: watchconfig.Hours, MonitorAll: true}})
	send(t, m, refreshCmd(ctrl, m.logLines)())

	// magnitude -> unit -> watch all; uncheck it, then move to the picker.
	send(t, m, key("tab"), key("tab"), key("space"))
	assert.False(t, m.monitorAll)
	send(t, m, key("tab"))
	assert.Equal(t, fieldContainers, m.focus)

	send(t, m, key("space"))
	cfg, err := m.startConfiguration()
	require.NoError(t, err)
	assert.Equal(t, []string{"/nginx"}, cfg.Targets)
	assert.Equal(t, int64(2), cfg.Magnitude)
	assert.Equal(t, watchconfig.Hours, cfg.Unit)

	args, err := watchconfig.BuildLaunchArguments(cfg)
	require.NoError(t, err)
	assert.Equal(t, []string{"7200", "nginx"}, args[len(args)-2:])

	// Containers that stop running drop out of the selection.
	ctrl.snap = absentSnapshot("redis")
	send(t, m, refreshCmd(ctrl, m.logLines)())
	cfg, err = m.startConfiguration()
	require.NoError(t, err)
	assert.Empty(t, cfg.Targets)

	send(t, m, key("enter"))
	require.Error(t, m.err)
	assert.False(t, m.starting)
}

func TestUnitAndChannelCycle(t *testing.T) {
	m := New(&stubController{}, Options{Defaults: watchconfig.StartConfiguration{Magnitude: 1, Unit: watchconfig.Minutes}})
	send(t, m, key("tab"))
	require.Equal(t, fieldUnit, m.focus)
	send(t, m, key("right"))
	assert.Equal(t, watchconfig.Hours, m.unit)
	send(t, m, key("space"))
	assert.Equal(t, watchconfig.Seconds, m.unit)

	send(t, m, key("tab"), key("tab"))
	require.Equal(t, fieldChannel, m.focus)
	assert.Equal(t, "custom", m.channel)
	send(t, m, key("space"))
	assert.Equal(t, "slack", m.channel)
	assert.Equal(t, "slack://[botname@]token-a/token-b/token-c", m.url.Placeholder)
}

func TestInvalidMagnitude(t *testing.T) {
	ctrl := &stubController{snap: absentSnapshot()}
	m := New(ctrl, Options{Defaults: watchconfig.StartConfiguration{MonitorAll: true, Unit: watchconfig.Minutes}})
	send(t, m, refreshCmd(ctrl, m.logLines)())

	send(t, m, key("a"), key("b"))
	assert.Nil(t, send(t, m, key("enter")))
	assert.ErrorIs(t, m.err, watchconfig.ErrInvalidDuration)
	assert.Empty(t, ctrl.starts)
	assert.Contains(t, m.View(), "Error:")
}

func TestStartFailureShowsError(t *testing.T) {
	ctrl := &stubController{snap: absentSnapshot(), startErr: errors.New("image pull failed")}
	m := New(ctrl, Options{Defaults: watchconfig.StartConfiguration{Magnitude: 5, Unit: watchconfig.Minutes, MonitorAll: true}})
	send(t, m, refreshCmd(ctrl, m.logLines)(), key("enter"))
	require.True(t, m.starting)

	send(t, m, startCmd(ctrl, formConfig(t, m))())
	assert.False(t, m.starting)
	assert.Contains(t, m.View(), "image pull failed")
}

func TestRunningView(t *testing.T) {
	view := docker.ContainerView{ID: "0123456789abcdef", Names: []string{"/watchtower"}, Image: "containrrr/watchtower"}
	rc := watchconfig.RunningConfiguration{Interval: 600, Targets: []string{"nginx", "redis"}, Shape: watchconfig.ShapeIntervalAndTargets}
	ctrl := &stubController{
		snap: reconciler.Snapshot{State: reconciler.StatePresent, Daemon: &view, Running: &rc},
		logs: []string{"level=info msg=\"Scheduling first run\""},
	}
	m := New(ctrl, Options{})
	send(t, m, refreshCmd(ctrl, m.logLines)())

	out := m.View()
	assert.Contains(t, out, "running (0123456789ab)")
	assert.Contains(t, out, "Interval: 600 seconds")
	assert.Contains(t, out, "nginx, redis")
	assert.Contains(t, out, "Scheduling first run")
	assert.Equal(t, defaultLogLines, ctrl.logsAsked, "the panel only fetches the lines it shows")

	cmd := send(t, m, key("x"))
	require.NotNil(t, cmd)
	require.IsType(t, stoppedMsg{}, cmd())
	assert.Equal(t, 1, ctrl.stops)

	// Enter does nothing while the daemon is running.
	assert.Nil(t, send(t, m, key("enter")))
	assert.Empty(t, ctrl.starts)
}

func TestRunningViewUnknownConfiguration(t *testing.T) {
	view := docker.ContainerView{ID: "abc", Names: []string{"/watchtower"}, Command: "/bin/sh -c run"}
	_, perr := watchconfig.Parse(view.Command)
	m := New(&stubController{}, Options{})
	send(t, m, snapshotMsg{snap: reconciler.Snapshot{State: reconciler.StatePresent, Daemon: &view, ConfigErr: perr}})

	out := m.View()
	assert.Contains(t, out, "Configuration unknown")
	assert.Contains(t, out, "Watchtower is running")
}

func TestStoppedAfterRunning(t *testing.T) {
	view := docker.ContainerView{ID: "abc", Names: []string{"/watchtower"}}
	m := New(&stubController{}, Options{})
	send(t, m, snapshotMsg{snap: reconciler.Snapshot{State: reconciler.StatePresent, Daemon: &view}})
	send(t, m, snapshotMsg{snap: absentSnapshot()})
	assert.Contains(t, m.View(), "Watchtower stopped.")
}

func TestRefreshErrorKeepsView(t *testing.T) {
	ctrl := &stubController{snap: absentSnapshot("nginx")}
	m := New(ctrl, Options{})
	send(t, m, refreshCmd(ctrl, m.logLines)())

	ctrl.refErr = errors.New("cannot connect to the docker daemon")
	send(t, m, refreshCmd(ctrl, m.logLines)())
	assert.True(t, m.polled)
	assert.Contains(t, m.View(), "cannot connect")
	assert.Len(t, m.containers.Items(), 1)
}

func TestQuit(t *testing.T) {
	m := New(&stubController{}, Options{})
	cmd := send(t, m, tea.KeyMsg{Type: tea.KeyCtrlC})
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())

	// q is typed into the focused text field rather than quitting.
	send(t, m, key("q"))
	assert.Equal(t, "q", m.magnitude.Value())
}
