package watchconfig

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// DefaultPollInterval is used when neither the form nor a parsed command
// names an interval: one day.
const DefaultPollInterval PollInterval = 86400

var (
	// ErrInvalidDuration is returned for non-numeric, zero, negative or
	// overflowing magnitudes.
	ErrInvalidDuration = errors.New("invalid duration")
	// ErrUnknownUnit is returned for any unit outside seconds, minutes, hours.
	ErrUnknownUnit = errors.New("unknown duration unit")
)

// PollInterval is a poll interval in whole seconds.
type PollInterval uint64

// Seconds returns the interval as a plain integer.
func (p PollInterval) Seconds() uint64 { return uint64(p) }

func (p PollInterval) String() string { return strconv.FormatUint(uint64(p), 10) }

// Unit is a user-facing duration unit.
type Unit string

const (
	Seconds Unit = "seconds"
	Minutes Unit = "minutes"
	Hours   Unit = "hours"
)

// Units lists the accepted units in the order the panel cycles through them.
var Units = []Unit{Minutes, Hours, Seconds}

var unitAliases = map[string]Unit{
	"s": Seconds, "sec": Seconds, "secs": Seconds, "second": Seconds, "seconds": Seconds,
	"m": Minutes, "min": Minutes, "mins": Minutes, "minute": Minutes, "minutes": Minutes,
	"h": Hours, "hr": Hours, "hrs": Hours, "hour": Hours, "hours": Hours,
}

// ParseUnit maps user input (including short forms such as "mins") onto a Unit.
func ParseUnit(s string) (Unit, error) {
	u, ok := unitAliases[strings.ToLower(strings.TrimSpace(s))]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownUnit, s)
	}
	return u, nil
}

// factor returns the number of seconds in one unit.
func (u Unit) factor() (uint64, error) {
	switch u {
	case Seconds:
		return 1, nil
	case Minutes:
		return 60, nil
	case Hours:
		return 3600, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownUnit, string(u))
	}
}

// Next returns the unit after u in Units, wrapping around.
func (u Unit) Next() Unit {
	for i, cand := range Units {
		if cand == u {
			return Units[(i+1)%len(Units)]
		}
	}
	return Units[0]
}

// Normalize converts magnitude in unit into canonical seconds.
// Unknown units are rejected rather than treated as hours.
func Normalize(magnitude int64, unit Unit) (PollInterval, error) {
	f, err := unit.factor()
	if err != nil {
		return 0, err
	}
	if magnitude <= 0 {
		return 0, fmt.Errorf("%w: %d must be positive", ErrInvalidDuration, magnitude)
	}
	if uint64(magnitude) > math.MaxInt64/f {
		return 0, fmt.Errorf("%w: %d %s overflows", ErrInvalidDuration, magnitude, unit)
	}
	return PollInterval(uint64(magnitude) * f), nil
}

// ParseMagnitude parses the text of a duration field.
func ParseMagnitude(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("%w: empty", ErrInvalidDuration)
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q is not a whole number", ErrInvalidDuration, s)
	}
	if n <= 0 {
		return 0, fmt.Errorf("%w: %d must be positive", ErrInvalidDuration, n)
	}
	return n, nil
}
