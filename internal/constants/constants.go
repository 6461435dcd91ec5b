package constants

// Daemon identity. The panel recognises the daemon container by either name or image.
const (
	DaemonImage         = "containrrr/watchtower"
	DaemonContainerName = "watchtower"
	DaemonEntrypoint    = "/watchtower"
	DockerSocketPath    = "/var/run/docker.sock"
)

// Daemon command-line flags.
const (
	IntervalFlag = "--interval"
)

// Environment variables understood by the daemon for notifications.
const (
	NotificationsEnv   = "WATCHTOWER_NOTIFICATIONS"
	NotificationURLEnv = "WATCHTOWER_NOTIFICATION_URL"
	NotificationDriver = "shoutrrr"
)

// Standard paths used by towerctl.
const (
	ConfigFile = "towerctl.toml"
	EnvFile    = ".env"
)
