package panel

import (
	"time"

	"github.com/brightfame/towerctl/internal/docker"
	"github.com/brightfame/towerctl/internal/reconciler"
	"github.com/brightfame/towerctl/internal/watchconfig"
)

// ConfigUnknown is reported in place of a configuration that could not be
// recovered from a running daemon.
const ConfigUnknown = "unknown"

// Configuration is the serialisable form of a RunningConfiguration.
type Configuration struct {
	IntervalSeconds uint64   `json:"interval_seconds" yaml:"interval_seconds"`
	MonitorAll      bool     `json:"monitor_all" yaml:"monitor_all"`
	Targets         []string `json:"targets" yaml:"targets"`
	Shape           string   `json:"shape" yaml:"shape"`
}

// NewConfiguration converts rc for output.
func NewConfiguration(rc watchconfig.RunningConfiguration) Configuration {
	targets := rc.Targets
	if targets == nil {
		targets = []string{}
	}
	return Configuration{
		IntervalSeconds: rc.Interval.Seconds(),
		MonitorAll:      rc.MonitorAll(),
		Targets:         targets,
		Shape:           rc.Shape.String(),
	}
}

// Status is the serialisable form of a Snapshot. Configuration holds a
// Configuration when known, ConfigUnknown when the daemon is running with a
// command that could not be parsed, and nil when the daemon is absent.
type Status struct {
	State         string                `json:"state" yaml:"state"`
	Starting      bool                  `json:"starting" yaml:"starting"`
	Daemon        *docker.ContainerView `json:"daemon,omitempty" yaml:"daemon,omitempty"`
	Configuration any                   `json:"configuration" yaml:"configuration"`
	ConfigError   string                `json:"config_error,omitempty" yaml:"config_error,omitempty"`
	ObservedAt    time.Time             `json:"observed_at" yaml:"observed_at"`
}

// NewStatus converts snap for output.
func NewStatus(snap reconciler.Snapshot, starting bool) Status {
	st := Status{
		State:      string(snap.State),
		Starting:   starting,
		Daemon:     snap.Daemon,
		ObservedAt: snap.ObservedAt,
	}
	switch {
	case snap.Running != nil:
		st.Configuration = NewConfiguration(*snap.Running)
	case snap.Present():
		st.Configuration = ConfigUnknown
		if snap.ConfigErr != nil {
			st.ConfigError = snap.ConfigErr.Error()
		}
	}
	return st
}

// Status returns the current snapshot in serialisable form.
func (c *Controller) Status() Status {
	return NewStatus(c.Snapshot(), c.Starting())
}
