package watchconfig

import (
	"strings"

	"github.com/brightfame/towerctl/internal/constants"
)

// Daemon describes the fixed identity of the update daemon: which image is
// launched, under which container name, and how its command line begins.
type Daemon struct {
	Image         string
	ContainerName string
	Entrypoint    string
	SocketPath    string
}

// DefaultDaemon returns the stock watchtower identity.
func DefaultDaemon() Daemon {
	return Daemon{
		Image:         constants.DaemonImage,
		ContainerName: constants.DaemonContainerName,
		Entrypoint:    constants.DaemonEntrypoint,
		SocketPath:    constants.DockerSocketPath,
	}
}

// withDefaults fills empty fields from DefaultDaemon.
func (d Daemon) withDefaults() Daemon {
	def := DefaultDaemon()
	if d.Image == "" {
		d.Image = def.Image
	}
	if d.ContainerName == "" {
		d.ContainerName = def.ContainerName
	}
	if d.Entrypoint == "" {
		d.Entrypoint = def.Entrypoint
	}
	if d.SocketPath == "" {
		d.SocketPath = def.SocketPath
	}
	return d
}

// MatchesName reports whether a reported container name refers to the daemon.
// Docker reports names with a leading slash.
func (d Daemon) MatchesName(name string) bool {
	return strings.TrimPrefix(name, "/") == d.withDefaults().ContainerName
}

// MatchesImage reports whether an image reference is the daemon image.
func (d Daemon) MatchesImage(image string) bool {
	return image == d.withDefaults().Image
}
