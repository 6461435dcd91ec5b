package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"

	"github.com/brightfame/towerctl/assets"
	"github.com/brightfame/towerctl/internal/config"
	"github.com/brightfame/towerctl/internal/constants"
	"github.com/brightfame/towerctl/internal/docker"
	"github.com/brightfame/towerctl/internal/docker/fake"
	"github.com/brightfame/towerctl/internal/panel"
)

// testConfig writes a towerctl.toml into a temp dir and returns its path.
func testConfig(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()

	configContent := `[panel]
poll_every = "1s"
log_lines = 20

[defaults]
duration = 10
unit = "minutes"
`
	path := filepath.Join(dir, constants.ConfigFile)
	if err := os.WriteFile(path, []byte(configContent), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

// withEngine makes every command talk to e.
func withEngine(t *testing.T, e docker.Engine, err error) {
	t.Helper()
	old := newEngine
	newEngine = func(context.Context) (docker.Engine, error) { return e, err }
	t.Cleanup(func() { newEngine = old })
}

func daemonContainer(command string) docker.ContainerView {
	return docker.ContainerView{
		ID:      "3f2a9c1b7d4e5f60718293a4b5c6d7e8",
		Names:   []string{"/watchtower"},
		Image:   "containrrr/watchtower",
		Command: command,
		State:   "running",
		Status:  "Up 3 hours",
	}
}

func nginxContainer() docker.ContainerView {
	return docker.ContainerView{
		ID:     "a1b2c3d4e5f6a7b8c9d0",
		Names:  []string{"/nginx"},
		Image:  "nginx:1.27",
		State:  "running",
		Status: "Up 2 days",
	}
}

// resetFlags restores every flag to its default so commands can run more
// than once in a test binary.
func resetFlags(c *cobra.Command) {
	reset := func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	}
	c.Flags().VisitAll(reset)
	c.PersistentFlags().VisitAll(reset)
	for _, sub := range c.Commands() {
		resetFlags(sub)
	}
}

// execute runs the root command with args and returns what it printed to stdout.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	resetFlags(rootCmd)

	old := os.Stdout
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatal(err)
	}
	os.Stdout = w

	outCh := make(chan string)
	go func() {
		var buf bytes.Buffer
		_, _ = io.Copy(&buf, r)
		outCh <- buf.String()
	}()

	rootCmd.SetArgs(args)
	execErr := rootCmd.Execute()

	_ = w.Close()
	os.Stdout = old
	return <-outCh, execErr
}

func TestVersion(t *testing.T) {
	output, err := execute(t, "version")
	if err != nil {
		t.Fatalf("version: %v", err)
	}
	if !strings.Contains(output, "towerctl version dev") {
		t.Errorf("unexpected version output: %q", output)
	}
}

func TestInitWritesDefaultConfig(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "project")

	output, err := execute(t, "init", dir)
	if err != nil {
		t.Fatalf("init: %v", err)
	}
	if !strings.Contains(output, "Created towerctl.toml") {
		t.Errorf("unexpected init output: %q", output)
	}

	path := filepath.Join(dir, constants.ConfigFile)
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read config: %v", err)
	}
	if string(data) != assets.DefaultConfig {
		t.Error("written config should match the embedded template")
	}

	cfg, err := config.Load(path)
	if err != nil {
		t.Fatalf("written config does not load: %v", err)
	}
	if cfg.Defaults.Duration != 10 || cfg.Defaults.Unit != "minutes" {
		t.Errorf("unexpected defaults: %+v", cfg.Defaults)
	}

	_, err = execute(t, "init", dir)
	if err == nil || !strings.Contains(err.Error(), "already exists") {
		t.Errorf("expected 'already exists' error, got %v", err)
	}
}

func TestStartDryRun(t *testing.T) {
	e := fake.New(nginxContainer())
	withEngine(t, e, nil)

	output, err := execute(t, "--config", testConfig(t), "start", "--dry-run", "--every", "2", "--unit", "hrs", "/nginx", "redis")
	if err != nil {
		t.Fatalf("start --dry-run: %v", err)
	}

	for _, want := range []string{
		"Interval: 7200 seconds (2h 0m 0s)",
		"Watching: /nginx, redis",
		"docker run --name watchtower --rm --detach -v /var/run/docker.sock:/var/run/docker.sock containrrr/watchtower --interval 7200 nginx redis",
		"dry run",
	} {
		if !strings.Contains(output, want) {
			t.Errorf("expected %q in output, got: %q", want, output)
		}
	}
	if len(e.Runs()) != 0 {
		t.Errorf("dry run must not start anything, got %v", e.Runs())
	}
}

func TestStartDryRunUsesConfigDefaults(t *testing.T) {
	withEngine(t, fake.New(), nil)

	output, err := execute(t, "--config", testConfig(t), "start", "--dry-run", "--notify", "discord://token@id")
	if err != nil {
		t.Fatalf("start --dry-run: %v", err)
	}
	if !strings.Contains(output, "--interval 600") {
		t.Errorf("expected config default of 10 minutes, got: %q", output)
	}
	if !strings.Contains(output, "Watching: all containers") {
		t.Errorf("expected all containers, got: %q", output)
	}
	if !strings.Contains(output, "-e WATCHTOWER_NOTIFICATION_URL=discord://token@id") {
		t.Errorf("expected notification env, got: %q", output)
	}
}

func TestStart(t *testing.T) {
	e := fake.New(nginxContainer())
	withEngine(t, e, nil)

	output, err := execute(t, "--config", testConfig(t), "start", "--all", "--every", "30", "--unit", "s", "nginx")
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if !strings.Contains(output, "Watchtower started: checking all containers every 30s.") {
		t.Errorf("unexpected output: %q", output)
	}

	runs := e.Runs()
	if len(runs) != 1 {
		t.Fatalf("expected one run, got %d", len(runs))
	}
	got := strings.Join(runs[0], " ")
	if !strings.HasSuffix(got, "containrrr/watchtower --interval 30") {
		t.Errorf("--all should drop targets, got %q", got)
	}
}

func TestStartRejections(t *testing.T) {
	tests := []struct {
		name    string
		engine  *fake.Engine
		args    []string
		wantErr error
		wantMsg string
	}{
		{
			name:    "already running",
			engine:  fake.New(daemonContainer("/watchtower")),
			args:    []string{"start"},
			wantErr: panel.ErrAlreadyRunning,
		},
		{
			name:    "unknown unit",
			engine:  fake.New(),
			args:    []string{"start", "--unit", "days"},
			wantMsg: "unknown duration unit",
		},
		{
			name:    "zero interval",
			engine:  fake.New(),
			args:    []string{"start", "--every", "0"},
			wantMsg: "invalid duration",
		},
		{
			name:    "bad notification url",
			engine:  fake.New(),
			args:    []string{"start", "--dry-run", "--notify", "nope"},
			wantMsg: "invalid notification url",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			withEngine(t, tt.engine, nil)
			_, err := execute(t, append([]string{"--config", testConfig(t)}, tt.args...)...)
			if err == nil {
				t.Fatal("expected an error")
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Errorf("expected %v, got %v", tt.wantErr, err)
			}
			if tt.wantMsg != "" && !strings.Contains(err.Error(), tt.wantMsg) {
				t.Errorf("expected %q in error, got %v", tt.wantMsg, err)
			}
			if len(tt.engine.Runs()) != 0 {
				t.Errorf("nothing should have been started, got %v", tt.engine.Runs())
			}
		})
	}
}

func TestEngineUnavailable(t *testing.T) {
	withEngine(t, nil, errors.New("docker: daemon is not running"))

	for _, args := range [][]string{{"start"}, {"stop"}, {"status"}, {"containers"}, {"logs"}} {
		_, err := execute(t, append([]string{"--config", testConfig(t)}, args...)...)
		if err == nil || !strings.Contains(err.Error(), "daemon is not running") {
			t.Errorf("%s: expected engine error, got %v", args[0], err)
		}
	}
}

func TestStatusWithoutDaemon(t *testing.T) {
	withEngine(t, fake.New(nginxContainer()), nil)

	output, err := execute(t, "--config", testConfig(t), "status")
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if !strings.Contains(output, "Watchtower is not running") {
		t.Errorf("expected 'not running' message, got: %q", output)
	}
}

func TestStatusRunning(t *testing.T) {
	withEngine(t, fake.New(nginxContainer(), daemonContainer("/watchtower --interval 600 nginx")), nil)

	output, err := execute(t, "--config", testConfig(t), "status")
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	for _, want := range []string{
		"Watchtower is running.",
		"Container: watchtower (3f2a9c1b7d4e)",
		"Interval:  600 seconds (10m 0s)",
		"Watching:  nginx",
		"Relaunch with: towerctl start --every 600 --unit seconds nginx",
	} {
		if !strings.Contains(output, want) {
			t.Errorf("expected %q in output, got: %q", want, output)
		}
	}
}

func TestStatusUnknownConfiguration(t *testing.T) {
	withEngine(t, fake.New(daemonContainer("/bin/sh -c 'watchtower'")), nil)

	output, err := execute(t, "--config", testConfig(t), "status")
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if !strings.Contains(output, "Watchtower is running.") || !strings.Contains(output, "Config:    unknown") {
		t.Errorf("a running daemon with an unparseable command is running with unknown config, got: %q", output)
	}
}

func TestStatusStructuredOutput(t *testing.T) {
	withEngine(t, fake.New(daemonContainer("/watchtower --interval 300")), nil)
	cfgPath := testConfig(t)

	output, err := execute(t, "--config", cfgPath, "status", "-o", "json")
	if err != nil {
		t.Fatalf("status -o json: %v", err)
	}
	var asJSON map[string]any
	if err := json.Unmarshal([]byte(output), &asJSON); err != nil {
		t.Fatalf("invalid json %q: %v", output, err)
	}
	if asJSON["state"] != "present" {
		t.Errorf("unexpected state: %v", asJSON["state"])
	}
	cfg, _ := asJSON["configuration"].(map[string]any)
	if cfg["interval_seconds"] != float64(300) || cfg["monitor_all"] != true {
		t.Errorf("unexpected configuration: %v", asJSON["configuration"])
	}

	output, err = execute(t, "--config", cfgPath, "status", "-o", "yaml")
	if err != nil {
		t.Fatalf("status -o yaml: %v", err)
	}
	var asYAML struct {
		State         string `yaml:"state"`
		Configuration struct {
			IntervalSeconds uint64 `yaml:"interval_seconds"`
			Shape           string `yaml:"shape"`
		} `yaml:"configuration"`
	}
	if err := yaml.Unmarshal([]byte(output), &asYAML); err != nil {
		t.Fatalf("invalid yaml %q: %v", output, err)
	}
	if asYAML.State != "present" || asYAML.Configuration.IntervalSeconds != 300 || asYAML.Configuration.Shape != "interval" {
		t.Errorf("unexpected yaml status: %+v", asYAML)
	}

	_, err = execute(t, "--config", cfgPath, "status", "-o", "xml")
	if err == nil || !strings.Contains(err.Error(), "unknown output format") {
		t.Errorf("expected output format error, got %v", err)
	}
}

func TestStop(t *testing.T) {
	e := fake.New(daemonContainer("/watchtower"))
	withEngine(t, e, nil)
	cfgPath := testConfig(t)

	output, err := execute(t, "--config", cfgPath, "stop")
	if err != nil {
		t.Fatalf("stop: %v", err)
	}
	if !strings.Contains(output, "Stop requested for watchtower") {
		t.Errorf("unexpected output: %q", output)
	}
	if got := e.Stops(); len(got) != 1 || got[0] != "watchtower" {
		t.Errorf("unexpected stop calls: %v", got)
	}

	output, err = execute(t, "--config", cfgPath, "stop")
	if err != nil {
		t.Fatalf("second stop: %v", err)
	}
	if !strings.Contains(output, "Watchtower is not running") {
		t.Errorf("unexpected output: %q", output)
	}
}

func TestLogs(t *testing.T) {
	e := fake.New(daemonContainer("/watchtower"))
	e.SetLogs(`level=info msg="Watchtower 1.7.1"`, `level=info msg="Scheduling first run"`, `level=info msg="Session done"`)
	withEngine(t, e, nil)

	output, err := execute(t, "--config", testConfig(t), "logs", "--tail", "2")
	if err != nil {
		t.Fatalf("logs: %v", err)
	}
	if strings.Contains(output, "Watchtower 1.7.1") {
		t.Errorf("--tail 2 should drop the first line, got: %q", output)
	}
	if !strings.Contains(output, "Scheduling first run") || !strings.Contains(output, "Session done") {
		t.Errorf("unexpected logs output: %q", output)
	}
}

func TestLogsWithoutDaemon(t *testing.T) {
	withEngine(t, fake.New(), nil)

	_, err := execute(t, "--config", testConfig(t), "logs")
	if err == nil || !strings.Contains(err.Error(), "not running") {
		t.Errorf("expected 'not running' error, got %v", err)
	}
}

func TestContainers(t *testing.T) {
	withEngine(t, fake.New(nginxContainer(), daemonContainer("/watchtower")), nil)

	output, err := execute(t, "--config", testConfig(t), "containers")
	if err != nil {
		t.Fatalf("containers: %v", err)
	}
	for _, want := range []string{"CONTAINER ID", "nginx:1.27", "watchtower (watchtower)", "a1b2c3d4e5f6"} {
		if !strings.Contains(output, want) {
			t.Errorf("expected %q in output, got: %q", want, output)
		}
	}
}

func TestParse(t *testing.T) {
	output, err := execute(t, "--config", testConfig(t), "parse", "/watchtower --interval 300 a b")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	for _, want := range []string{
		"Shape:     interval+targets",
		"Interval:  300 seconds (5m 0s)",
		"Watching:  a, b",
		"Relaunch:  towerctl start --every 300 --unit seconds a b",
	} {
		if !strings.Contains(output, want) {
			t.Errorf("expected %q in output, got: %q", want, output)
		}
	}

	_, err = execute(t, "--config", testConfig(t), "parse", "/bin/sh -c run")
	if err == nil {
		t.Error("expected an error for a foreign command")
	}
}

func TestNotify(t *testing.T) {
	output, err := execute(t, "notify")
	if err != nil {
		t.Fatalf("notify: %v", err)
	}
	if !strings.Contains(output, "slack://[botname@]token-a/token-b/token-c") || !strings.Contains(output, "discord://token@id") {
		t.Errorf("expected channel placeholders, got: %q", output)
	}

	output, err = execute(t, "notify", "slack://bot@a/b/c")
	if err != nil {
		t.Fatalf("notify url: %v", err)
	}
	if !strings.Contains(output, "Channel: slack") || !strings.Contains(output, "WATCHTOWER_NOTIFICATIONS=shoutrrr") {
		t.Errorf("unexpected output: %q", output)
	}

	if _, err := execute(t, "notify", "no-scheme"); err == nil {
		t.Error("expected an error for a URL without a scheme")
	}
}

func TestFormatInterval(t *testing.T) {
	tests := []struct {
		secs uint64
		want string
	}{
		{0, "0s"},
		{45, "45s"},
		{600, "10m 0s"},
		{86400, "24h 0m 0s"},
		{3725, "1h 2m 5s"},
	}
	for _, tt := range tests {
		if got := formatInterval(tt.secs); got != tt.want {
			t.Errorf("formatInterval(%d) = %q, want %q", tt.secs, got, tt.want)
		}
	}
}
