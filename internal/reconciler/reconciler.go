// Package reconciler decides, from one listing of running containers, whether
// the update daemon is present and what configuration it is running with.
package reconciler

import (
	"time"

	"github.com/brightfame/towerctl/internal/docker"
	"github.com/brightfame/towerctl/internal/watchconfig"
)

// State is the liveness of the daemon as seen by the last observation.
type State string

const (
	StateAbsent  State = "absent"
	StatePresent State = "present"
)

// Transition names the edge taken by an observation.
type Transition int

const (
	TransitionNone Transition = iota
	TransitionAppeared
	TransitionDisappeared
)

func (t Transition) String() string {
	switch t {
	case TransitionAppeared:
		return "appeared"
	case TransitionDisappeared:
		return "disappeared"
	default:
		return "none"
	}
}

// Snapshot is an immutable view of the reconciled state. Callers must not
// modify the slices it exposes.
type Snapshot struct {
	State      State
	Daemon     *docker.ContainerView
	Running    *watchconfig.RunningConfiguration
	ConfigErr  error
	Containers []docker.ContainerView
	ObservedAt time.Time
}

// Present reports whether the daemon was found.
func (s Snapshot) Present() bool { return s.State == StatePresent }

// ConfigKnown reports whether the daemon's configuration could be recovered.
func (s Snapshot) ConfigKnown() bool { return s.Running != nil }

// Reconciler holds the latest snapshot. Observations are applied in the
// order they complete; the most recent one always wins.
type Reconciler struct {
	daemon  watchconfig.Daemon
	now     func() time.Time
	current Snapshot
}

// New returns a reconciler in the Absent state.
func New(daemon watchconfig.Daemon) *Reconciler {
	return &Reconciler{
		daemon:  daemon,
		now:     time.Now,
		current: Snapshot{State: StateAbsent},
	}
}

// Snapshot returns the latest snapshot.
func (r *Reconciler) Snapshot() Snapshot { return r.current }

// Observe applies one listing of running containers.
func (r *Reconciler) Observe(containers []docker.ContainerView) (Snapshot, Transition) {
	next := Derive(r.daemon, containers)
	next.ObservedAt = r.now()

	var tr Transition
	switch {
	case r.current.State == StateAbsent && next.State == StatePresent:
		tr = TransitionAppeared
	case r.current.State == StatePresent && next.State == StateAbsent:
		tr = TransitionDisappeared
	}

	r.current = next
	return next, tr
}

// Derive is the pure decision function applied to each listing.
func Derive(daemon watchconfig.Daemon, containers []docker.ContainerView) Snapshot {
	snap := Snapshot{
		State:      StateAbsent,
		Containers: append([]docker.ContainerView(nil), containers...),
	}

	match := FindDaemon(daemon, snap.Containers)
	if match == nil {
		return snap
	}

	snap.State = StatePresent
	snap.Daemon = match
	rc, err := daemon.Parse(match.Command)
	if err != nil {
		snap.ConfigErr = err
		return snap
	}
	snap.Running = &rc
	return snap
}

// FindDaemon returns the first container whose first display name is the
// daemon's container name or whose image is the daemon image.
func FindDaemon(daemon watchconfig.Daemon, containers []docker.ContainerView) *docker.ContainerView {
	for i := range containers {
		c := &containers[i]
		if (len(c.Names) > 0 && daemon.MatchesName(c.Names[0])) || daemon.MatchesImage(c.Image) {
			return c
		}
	}
	return nil
}
