package notify

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/brightfame/towerctl/internal/constants"
)

// Channel kinds offered by the panel.
const (
	ChannelSlack   = "slack"
	ChannelDiscord = "discord"
	ChannelCustom  = "custom"
)

// Channels lists the kinds in the order the panel cycles through them.
var Channels = []string{ChannelSlack, ChannelDiscord, ChannelCustom}

var placeholders = map[string]string{
	ChannelSlack:   "slack://[botname@]token-a/token-b/token-c",
	ChannelDiscord: "discord://token@id",
	ChannelCustom:  "custom://",
}

// ErrInvalidURL is returned for notification URLs that are not URIs with a scheme.
var ErrInvalidURL = errors.New("invalid notification url")

// Placeholder returns the example URL shown for a channel kind.
func Placeholder(kind string) string {
	if p, ok := placeholders[kind]; ok {
		return p
	}
	return placeholders[ChannelCustom]
}

// NextChannel returns the kind after kind in Channels, wrapping around.
func NextChannel(kind string) string {
	for i, k := range Channels {
		if k == kind {
			return Channels[(i+1)%len(Channels)]
		}
	}
	return Channels[0]
}

// KindOf guesses the channel kind from a URL's scheme.
func KindOf(rawURL string) string {
	scheme, _, ok := strings.Cut(rawURL, "://")
	if !ok {
		return ChannelCustom
	}
	switch strings.ToLower(scheme) {
	case ChannelSlack:
		return ChannelSlack
	case ChannelDiscord:
		return ChannelDiscord
	default:
		return ChannelCustom
	}
}

// Validate checks only that rawURL is a URI with a scheme. Whether the
// daemon can deliver to it is never checked here. An empty URL is valid and
// means notifications are disabled.
func Validate(rawURL string) error {
	if rawURL == "" {
		return nil
	}
	if strings.ContainsAny(rawURL, " \t\n") {
		return fmt.Errorf("%w: %q contains whitespace", ErrInvalidURL, rawURL)
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}
	if u.Scheme == "" {
		return fmt.Errorf("%w: %q has no scheme", ErrInvalidURL, rawURL)
	}
	return nil
}

// Env returns the environment entries that hand rawURL to the daemon, or nil
// when rawURL is empty.
func Env(rawURL string) []string {
	if rawURL == "" {
		return nil
	}
	return []string{
		constants.NotificationsEnv + "=" + constants.NotificationDriver,
		constants.NotificationURLEnv + "=" + rawURL,
	}
}
