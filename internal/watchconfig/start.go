package watchconfig

import (
	"fmt"
	"strings"

	"github.com/brightfame/towerctl/internal/constants"
	"github.com/brightfame/towerctl/internal/notify"
)

// StartConfiguration is the form state submitted to start the daemon. It is
// built fresh for each start and consumed once.
type StartConfiguration struct {
	Magnitude       int64
	Unit            Unit
	MonitorAll      bool
	Targets         []string
	NotificationURL string
}

// Interval normalises the configured magnitude and unit into seconds.
func (c StartConfiguration) Interval() (PollInterval, error) {
	return Normalize(c.Magnitude, c.Unit)
}

// BuildLaunchArguments builds the launch vector for the default daemon.
func BuildLaunchArguments(cfg StartConfiguration) ([]string, error) {
	return DefaultDaemon().BuildLaunchArguments(cfg)
}

// BuildLaunchArguments returns the docker-run style argument vector that
// starts the daemon with cfg. Targets are only appended when MonitorAll is
// false, each with a single leading "/" removed.
func (d Daemon) BuildLaunchArguments(cfg StartConfiguration) ([]string, error) {
	d = d.withDefaults()

	interval, err := cfg.Interval()
	if err != nil {
		return nil, err
	}

	args := []string{
		"--name", d.ContainerName,
		"--rm",
		"--detach",
		"-v", fmt.Sprintf("%s:%s", d.SocketPath, d.SocketPath),
	}
	if err := notify.Validate(cfg.NotificationURL); err != nil {
		return nil, err
	}
	for _, kv := range notify.Env(cfg.NotificationURL) {
		args = append(args, "-e", kv)
	}
	args = append(args, d.Image, constants.IntervalFlag, interval.String())

	if !cfg.MonitorAll {
		for _, t := range cfg.Targets {
			args = append(args, strings.TrimPrefix(t, "/"))
		}
	}
	return args, nil
}
