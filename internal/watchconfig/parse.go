package watchconfig

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"github.com/brightfame/towerctl/internal/constants"
)

// ErrUnrecognizedCommand is matched by every *ParseError.
var ErrUnrecognizedCommand = errors.New("unrecognized daemon command")

// ParseError describes why a command string could not be mapped back to a
// configuration. Callers treat it as "configuration unknown".
type ParseError struct {
	Command string
	Pos     int // index of the offending token, -1 for the whole input
	Reason  string
}

func (e *ParseError) Error() string {
	if e.Pos >= 0 {
		return fmt.Sprintf("parse %q: token %d: %s", e.Command, e.Pos, e.Reason)
	}
	return fmt.Sprintf("parse %q: %s", e.Command, e.Reason)
}

func (e *ParseError) Is(target error) bool { return target == ErrUnrecognizedCommand }

// Shape tags which optional clauses were present in a parsed command.
type Shape int

const (
	ShapeBare Shape = iota
	ShapeInterval
	ShapeTargets
	ShapeIntervalAndTargets
)

func (s Shape) String() string {
	switch s {
	case ShapeBare:
		return "bare"
	case ShapeInterval:
		return "interval"
	case ShapeTargets:
		return "targets"
	case ShapeIntervalAndTargets:
		return "interval+targets"
	default:
		return "shape(" + strconv.Itoa(int(s)) + ")"
	}
}

// RunningConfiguration is the configuration recovered from a live daemon's
// command string. An empty Targets slice means every container is monitored.
type RunningConfiguration struct {
	Interval PollInterval
	Targets  []string
	Shape    Shape
}

// MonitorAll reports whether the daemon watches every container.
func (r RunningConfiguration) MonitorAll() bool { return len(r.Targets) == 0 }

// StartConfiguration returns the form state that would relaunch the daemon
// with the same behaviour.
func (r RunningConfiguration) StartConfiguration() StartConfiguration {
	return StartConfiguration{
		Magnitude:  int64(r.Interval),
		Unit:       Seconds,
		MonitorAll: r.MonitorAll(),
		Targets:    append([]string(nil), r.Targets...),
	}
}

// Parse recovers the configuration of the default daemon from its command string.
func Parse(command string) (RunningConfiguration, error) {
	return DefaultDaemon().Parse(command)
}

// Parse recovers a RunningConfiguration from a command string of the form
//
//	ENTRYPOINT [--interval DIGITS] {TARGET}
//
// Runs of whitespace separate tokens. "--interval=DIGITS" is also accepted.
func (d Daemon) Parse(command string) (RunningConfiguration, error) {
	d = d.withDefaults()
	p := &parser{command: command, toks: tokenize(command)}
	return p.parse(d.Entrypoint)
}

type parser struct {
	command string
	toks    []string
	pos     int
}

func (p *parser) fail(pos int, format string, args ...any) error {
	return &ParseError{Command: p.command, Pos: pos, Reason: fmt.Sprintf(format, args...)}
}

func (p *parser) peek() (string, bool) {
	if p.pos >= len(p.toks) {
		return "", false
	}
	return p.toks[p.pos], true
}

func (p *parser) parse(entrypoint string) (RunningConfiguration, error) {
	tok, ok := p.peek()
	if !ok {
		return RunningConfiguration{}, p.fail(-1, "empty command")
	}
	if tok != entrypoint {
		return RunningConfiguration{}, p.fail(0, "expected %q, got %q", entrypoint, tok)
	}
	p.pos++

	interval, hasInterval, err := p.parseInterval()
	if err != nil {
		return RunningConfiguration{}, err
	}
	targets := p.parseTargets()

	cfg := RunningConfiguration{Interval: DefaultPollInterval, Targets: targets}
	if hasInterval {
		cfg.Interval = interval
	}
	switch {
	case hasInterval && len(targets) > 0:
		cfg.Shape = ShapeIntervalAndTargets
	case hasInterval:
		cfg.Shape = ShapeInterval
	case len(targets) > 0:
		cfg.Shape = ShapeTargets
	default:
		cfg.Shape = ShapeBare
	}
	return cfg, nil
}

func (p *parser) parseInterval() (PollInterval, bool, error) {
	tok, ok := p.peek()
	if !ok {
		return 0, false, nil
	}

	var digits string
	at := p.pos
	switch {
	case tok == constants.IntervalFlag:
		p.pos++
		v, ok := p.peek()
		if !ok {
			return 0, false, p.fail(at, "%s needs a value", constants.IntervalFlag)
		}
		digits = v
		at = p.pos
		p.pos++
	case strings.HasPrefix(tok, constants.IntervalFlag+"="):
		digits = strings.TrimPrefix(tok, constants.IntervalFlag+"=")
		p.pos++
	default:
		return 0, false, nil
	}

	if !isDigits(digits) {
		return 0, false, p.fail(at, "interval %q is not an unsigned integer", digits)
	}
	n, err := strconv.ParseUint(digits, 10, 64)
	if err != nil {
		return 0, false, p.fail(at, "interval %q out of range", digits)
	}
	return PollInterval(n), true, nil
}

func (p *parser) parseTargets() []string {
	if p.pos >= len(p.toks) {
		return []string{}
	}
	targets := make([]string, 0, len(p.toks)-p.pos)
	targets = append(targets, p.toks[p.pos:]...)
	p.pos = len(p.toks)
	return targets
}

func tokenize(s string) []string {
	return strings.FieldsFunc(s, unicode.IsSpace)
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
