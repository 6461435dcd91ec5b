package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/brightfame/towerctl/internal/docker"
	"github.com/brightfame/towerctl/internal/notify"
	"github.com/brightfame/towerctl/internal/reconciler"
	"github.com/brightfame/towerctl/internal/watchconfig"
)

// Controller defines the subset of panel.Controller behaviour the TUI needs.
type Controller interface {
	Refresh(ctx context.Context) (reconciler.Snapshot, error)
	Start(ctx context.Context, cfg watchconfig.StartConfiguration) ([]string, error)
	Stop(ctx context.Context) error
	Logs(n int) []string
}

// Options configures the panel.
type Options struct {
	Poll     time.Duration
	Defaults watchconfig.StartConfiguration
	LogLines int
}

type field int

const (
	fieldMagnitude field = iota
	fieldUnit
	fieldMonitorAll
	fieldContainers
	fieldChannel
	fieldURL
)

const (
	defaultPoll     = 2 * time.Second
	defaultLogLines = 15
	requestTimeout  = 30 * time.Second
)

var (
	titleStyle   = lipgloss.NewStyle().Bold(true)
	runningStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("42"))
	stoppedStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("203"))
	errStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("203"))
	helpStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("244"))
	focusStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("212"))
	boxStyle     = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
)

// Model represents the Bubble Tea state. All state is owned by Update;
// Docker calls run in commands and report back as messages.
type Model struct {
	ctrl     Controller
	poll     time.Duration
	logLines int

	snap   reconciler.Snapshot
	polled bool
	logs   []string

	focus      field
	magnitude  textinput.Model
	unit       watchconfig.Unit
	monitorAll bool
	channel    string
	url        textinput.Model
	containers list.Model
	selected   map[string]bool

	starting bool
	spin     spinner.Model
	lastArgs []string
	status   string
	err      error

	width  int
	height int
}

// New constructs the panel model with the start form pre-filled from opts.Defaults.
func New(ctrl Controller, opts Options) *Model {
	if opts.Poll <= 0 {
		opts.Poll = defaultPoll
	}
	if opts.LogLines <= 0 {
		opts.LogLines = defaultLogLines
	}
	unit := opts.Defaults.Unit
	if _, err := watchconfig.ParseUnit(string(unit)); err != nil {
		unit = watchconfig.Minutes
	}

	mag := textinput.New()
	mag.CharLimit = 9
	mag.Placeholder = "10"
	if opts.Defaults.Magnitude > 0 {
		mag.SetValue(fmt.Sprint(opts.Defaults.Magnitude))
	}
	mag.Focus()

	channel := notify.KindOf(opts.Defaults.NotificationURL)
	url := textinput.New()
	url.Placeholder = notify.Placeholder(channel)
	url.SetValue(opts.Defaults.NotificationURL)

	lst := list.New([]list.Item{}, list.NewDefaultDelegate(), 0, 8)
	lst.Title = "Containers to watch"
	lst.SetShowHelp(false)
	lst.SetFilteringEnabled(false)
	lst.SetShowStatusBar(false)
	lst.DisableQuitKeybindings()

	selected := make(map[string]bool)
	for _, t := range opts.Defaults.Targets {
		selected["/"+strings.TrimPrefix(t, "/")] = true
	}

	return &Model{
		ctrl:       ctrl,
		poll:       opts.Poll,
		logLines:   opts.LogLines,
		snap:       reconciler.Snapshot{State: reconciler.StateAbsent},
		focus:      fieldMagnitude,
		magnitude:  mag,
		unit:       unit,
		monitorAll: opts.Defaults.MonitorAll || len(opts.Defaults.Targets) == 0,
		channel:    channel,
		url:        url,
		containers: lst,
		selected:   selected,
		spin:       spinner.New(spinner.WithSpinner(spinner.Dot)),
		status:     "Checking for the update daemon…",
	}
}

// Run spins up the Bubble Tea program on the alternate screen.
func Run(ctrl Controller, opts Options) error {
	prog := tea.NewProgram(New(ctrl, opts), tea.WithAltScreen())
	_, err := prog.Run()
	return err
}

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	return tea.Batch(refreshCmd(m.ctrl, m.logLines), tickCmd(m.poll), textinput.Blink)
}

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.containers.SetSize(msg.Width, min(10, max(4, msg.Height/3)))
		return m, nil

	case tickMsg:
		return m, tea.Batch(refreshCmd(m.ctrl, m.logLines), tickCmd(m.poll))

	case snapshotMsg:
		m.applySnapshot(msg.snap, msg.logs)
		return m, nil

	case startedMsg:
		m.starting = false
		m.lastArgs = msg.args
		m.err = nil
		m.status = "Daemon launched."
		return m, refreshCmd(m.ctrl, m.logLines)

	case stoppedMsg:
		m.err = nil
		m.status = "Stop requested."
		return m, refreshCmd(m.ctrl, m.logLines)

	case errMsg:
		m.starting = false
		m.err = msg.err
		return m, nil

	case spinner.TickMsg:
		if !m.starting {
			return m, nil
		}
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	return m.updateFocused(msg)
}

func (m *Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c", "esc":
		return m, tea.Quit
	}

	if m.snap.Present() {
		switch msg.String() {
		case "q":
			return m, tea.Quit
		case "x":
			m.status = "Stopping daemon…"
			return m, stopCmd(m.ctrl)
		}
		return m, nil
	}

	switch msg.String() {
	case "tab", "down":
		if msg.String() == "down" && m.focus == fieldContainers {
			break
		}
		return m, m.setFocus(m.nextField(1))
	case "shift+tab", "up":
		if msg.String() == "up" && m.focus == fieldContainers {
			break
		}
		return m, m.setFocus(m.nextField(-1))
	case "enter":
		return m.submit()
	case "q":
		if !m.editingText() {
			return m, tea.Quit
		}
	case " ", "left", "right":
		if m.toggleFocused(msg.String()) {
			return m, nil
		}
	}

	return m.updateFocused(msg)
}

// editingText reports whether keystrokes go to a text input.
func (m *Model) editingText() bool {
	return m.focus == fieldMagnitude || m.focus == fieldURL
}

// toggleFocused handles space and arrow keys on the non-text fields. It
// reports whether the key was consumed.
func (m *Model) toggleFocused(key string) bool {
	switch m.focus {
	case fieldUnit:
		if key == "left" {
			// Two steps forward is one step back on a three-item cycle.
			m.unit = m.unit.Next().Next()
		} else {
			m.unit = m.unit.Next()
		}
		return true
	case fieldMonitorAll:
		if key == " " {
			m.monitorAll = !m.monitorAll
			return true
		}
	case fieldContainers:
		if key == " " {
			m.toggleCurrentSelection()
			return true
		}
	case fieldChannel:
		m.channel = notify.NextChannel(m.channel)
		m.url.Placeholder = notify.Placeholder(m.channel)
		return true
	}
	return false
}

func (m *Model) updateFocused(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch m.focus {
	case fieldMagnitude:
		m.magnitude, cmd = m.magnitude.Update(msg)
	case fieldURL:
		m.url, cmd = m.url.Update(msg)
	case fieldContainers:
		m.containers, cmd = m.containers.Update(msg)
	}
	return m, cmd
}

func (m *Model) nextField(step int) field {
	order := []field{fieldMagnitude, fieldUnit, fieldMonitorAll}
	if !m.monitorAll {
		order = append(order, fieldContainers)
	}
	order = append(order, fieldChannel, fieldURL)

	idx := 0
	for i, f := range order {
		if f == m.focus {
			idx = i
		}
	}
	idx = (idx + step + len(order)) % len(order)
	return order[idx]
}

func (m *Model) setFocus(f field) tea.Cmd {
	m.focus = f
	m.magnitude.Blur()
	m.url.Blur()
	switch f {
	case fieldMagnitude:
		return m.magnitude.Focus()
	case fieldURL:
		return m.url.Focus()
	}
	return nil
}

// startConfiguration builds a fresh StartConfiguration from the form.
func (m *Model) startConfiguration() (watchconfig.StartConfiguration, error) {
	magnitude, err := watchconfig.ParseMagnitude(m.magnitude.Value())
	if err != nil {
		return watchconfig.StartConfiguration{}, err
	}
	cfg := watchconfig.StartConfiguration{
		Magnitude:       magnitude,
		Unit:            m.unit,
		MonitorAll:      m.monitorAll,
		NotificationURL: strings.TrimSpace(m.url.Value()),
	}
	if !m.monitorAll {
		for _, it := range m.containers.Items() {
			if ci, ok := it.(containerItem); ok && ci.selected {
				cfg.Targets = append(cfg.Targets, ci.key())
			}
		}
	}
	if err := notify.Validate(cfg.NotificationURL); err != nil {
		return watchconfig.StartConfiguration{}, err
	}
	return cfg, nil
}

func (m *Model) submit() (tea.Model, tea.Cmd) {
	if m.starting {
		return m, nil
	}
	cfg, err := m.startConfiguration()
	if err != nil {
		m.err = err
		return m, nil
	}
	if !cfg.MonitorAll && len(cfg.Targets) == 0 {
		m.err = fmt.Errorf("select at least one container or enable \"watch all\"")
		return m, nil
	}
	m.err = nil
	m.starting = true
	m.status = "Starting daemon…"
	return m, tea.Batch(startCmd(m.ctrl, cfg), m.spin.Tick)
}

func (m *Model) applySnapshot(snap reconciler.Snapshot, logs []string) {
	wasPresent := m.snap.Present()
	m.snap = snap
	m.polled = true
	m.logs = logs

	switch {
	case snap.Present():
		m.status = fmt.Sprintf("Watchtower is running (%s).", snap.Daemon.ShortID())
	case wasPresent:
		m.status = "Watchtower stopped."
	case !m.starting:
		m.status = "Watchtower is not running."
	}

	items := make([]list.Item, 0, len(snap.Containers))
	seen := make(map[string]bool)
	for _, c := range snap.Containers {
		it := containerItem{view: c}
		if it.key() == "" {
			continue
		}
		it.selected = m.selected[it.key()]
		seen[it.key()] = true
		items = append(items, it)
	}
	// Forget selections for containers that are no longer running.
	for k := range m.selected {
		if !seen[k] {
			delete(m.selected, k)
		}
	}
	m.containers.SetItems(items)
}

func (m *Model) toggleCurrentSelection() {
	idx := m.containers.Index()
	items := m.containers.Items()
	if idx < 0 || idx >= len(items) {
		return
	}
	item, ok := items[idx].(containerItem)
	if !ok {
		return
	}
	item.selected = !item.selected
	if item.selected {
		m.selected[item.key()] = true
	} else {
		delete(m.selected, item.key())
	}
	m.containers.SetItem(idx, item)
}

// View implements tea.Model.
func (m *Model) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("towerctl"))
	b.WriteString("  ")
	if m.snap.Present() {
		b.WriteString(runningStyle.Render(m.status))
	} else {
		b.WriteString(stoppedStyle.Render(m.status))
	}
	b.WriteString("\n\n")

	if m.snap.Present() {
		b.WriteString(m.viewRunning())
	} else if m.polled {
		b.WriteString(m.viewStopped())
	}

	if m.err != nil {
		b.WriteString(errStyle.Render(fmt.Sprintf("Error: %v", m.err)))
		b.WriteByte('\n')
	}

	help := "tab next field • space toggle • ←/→ change • enter start • esc quit"
	if m.snap.Present() {
		help = "x stop • q quit"
	}
	b.WriteString(helpStyle.Render(help))
	return b.String()
}

func (m *Model) viewRunning() string {
	var b strings.Builder

	var cfg string
	if rc := m.snap.Running; rc != nil {
		targets := "all containers"
		if !rc.MonitorAll() {
			targets = strings.Join(rc.Targets, ", ")
		}
		cfg = fmt.Sprintf("Interval: %s seconds\nWatching: %s", rc.Interval, targets)
	} else {
		cfg = "Configuration unknown"
		if m.snap.ConfigErr != nil {
			cfg += fmt.Sprintf("\n%v", m.snap.ConfigErr)
		}
	}
	b.WriteString(boxStyle.Render(cfg))
	b.WriteString("\n\n")

	b.WriteString(titleStyle.Render("Logs"))
	b.WriteByte('\n')
	lines := m.logs
	if len(lines) == 0 {
		b.WriteString(helpStyle.Render("(no output yet)"))
		b.WriteByte('\n')
	}
	for _, l := range lines {
		b.WriteString(l)
		b.WriteByte('\n')
	}
	b.WriteByte('\n')
	return b.String()
}

func (m *Model) viewStopped() string {
	var b strings.Builder

	label := func(f field, text string) string {
		if m.focus == f {
			return focusStyle.Render("› " + text)
		}
		return "  " + text
	}

	b.WriteString(label(fieldMagnitude, "Check every  "))
	b.WriteString(m.magnitude.View())
	b.WriteByte('\n')
	b.WriteString(label(fieldUnit, "Unit         "))
	b.WriteString(string(m.unit))
	b.WriteByte('\n')

	check := "[ ]"
	if m.monitorAll {
		check = "[x]"
	}
	b.WriteString(label(fieldMonitorAll, "Watch all    "))
	b.WriteString(check)
	b.WriteByte('\n')

	if !m.monitorAll {
		if m.focus == fieldContainers {
			b.WriteString(focusStyle.Render("› "))
		}
		if len(m.containers.Items()) == 0 {
			b.WriteString(helpStyle.Render("No running containers."))
			b.WriteByte('\n')
		} else {
			b.WriteString(m.containers.View())
			b.WriteByte('\n')
		}
	}

	b.WriteString(label(fieldChannel, "Notify via   "))
	b.WriteString(m.channel)
	b.WriteByte('\n')
	b.WriteString(label(fieldURL, "URL          "))
	b.WriteString(m.url.View())
	b.WriteString("\n\n")

	if m.starting {
		b.WriteString(m.spin.View())
		b.WriteString(" Starting…\n")
	} else if len(m.lastArgs) > 0 {
		b.WriteString(helpStyle.Render("last launch: docker run " + strings.Join(m.lastArgs, " ")))
		b.WriteByte('\n')
	}
	return b.String()
}

// containerItem adapts docker.ContainerView to the bubbles list item interface.
type containerItem struct {
	view     docker.ContainerView
	selected bool
}

// key is the display name as the engine reports it, leading slash included.
func (c containerItem) key() string {
	if len(c.view.Names) == 0 {
		return ""
	}
	return c.view.Names[0]
}

func (c containerItem) Title() string {
	mark := " "
	if c.selected {
		mark = "✓"
	}
	return fmt.Sprintf("[%s] %s", mark, c.view.Name())
}

func (c containerItem) Description() string {
	return fmt.Sprintf("%s • %s", c.view.Image, c.view.Status)
}

func (c containerItem) FilterValue() string { return c.view.Name() }

type tickMsg time.Time

type snapshotMsg struct {
	snap reconciler.Snapshot
	logs []string
}

type startedMsg struct{ args []string }

type stoppedMsg struct{}

type errMsg struct{ err error }

func (e errMsg) Error() string { return e.err.Error() }

func tickCmd(every time.Duration) tea.Cmd {
	return tea.Tick(every, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func refreshCmd(ctrl Controller, logLines int) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		snap, err := ctrl.Refresh(ctx)
		if err != nil {
			return errMsg{err}
		}
		return snapshotMsg{snap: snap, logs: ctrl.Logs(logLines)}
	}
}

func startCmd(ctrl Controller, cfg watchconfig.StartConfiguration) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		args, err := ctrl.Start(ctx, cfg)
		if err != nil {
			return errMsg{err}
		}
		return startedMsg{args: args}
	}
}

func stopCmd(ctrl Controller) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		if err := ctrl.Stop(ctx); err != nil {
			return errMsg{err}
		}
		return stoppedMsg{}
	}
}
