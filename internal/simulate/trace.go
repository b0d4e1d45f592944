package simulate

import (
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/vnykmshr/tempo/pkg/common/errors"
	"github.com/vnykmshr/tempo/pkg/common/validation"
	"github.com/vnykmshr/tempo/pkg/ratelimit/throttle"
)

const module = "simulate"

// MaxMillis bounds every time in a trace to one day.
const MaxMillis int64 = 24 * 60 * 60 * 1000

// Control names accepted in a trace.
const (
	ControlDebounce = "debounce"
	ControlThrottle = "throttle"
)

// Trace is a recorded sequence of calls to replay against one control.
// All times are in milliseconds.
type Trace struct {
	Name    string  `yaml:"name"`
	Control string  `yaml:"control"`
	Policy  string  `yaml:"policy,omitempty"`
	Delay   int64   `yaml:"delay"`
	MaxWait int64   `yaml:"max_wait,omitempty"`
	Leading bool    `yaml:"leading,omitempty"`
	Events  []Event `yaml:"events"`
}

// Event is one call made at At milliseconds after the start of the trace.
type Event struct {
	At  int64  `yaml:"at"`
	Arg string `yaml:"arg"`
}

// Parse decodes and validates a YAML trace. Unknown fields are rejected.
func Parse(r io.Reader) (*Trace, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var t Trace
	if err := dec.Decode(&t); err != nil {
		return nil, fmt.Errorf("failed to decode trace: %w", err)
	}
	if err := t.Validate(); err != nil {
		return nil, err
	}
	return &t, nil
}

// Load reads a trace file.
func Load(path string) (*Trace, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Parse(f)
}

// Validate checks that the trace can be replayed.
func (t *Trace) Validate() error {
	if err := validation.ValidateOneOf(module, "control", t.Control, ControlDebounce, ControlThrottle); err != nil {
		return err
	}
	if t.Control == ControlThrottle {
		if _, err := throttle.ParsePolicy(t.Policy); err != nil {
			return err
		}
	}
	if t.Delay < 0 {
		return errors.NewValidationError(module, "delay", t.Delay, "cannot be negative")
	}
	if t.MaxWait < 0 || (t.MaxWait > 0 && t.MaxWait < t.Delay) {
		return errors.NewValidationError(module, "max_wait", t.MaxWait, "must be 0 or at least delay")
	}
	if t.Delay > MaxMillis {
		return errors.NewValidationError(module, "delay", t.Delay, "exceeds one day")
	}
	if t.MaxWait > MaxMillis {
		return errors.NewValidationError(module, "max_wait", t.MaxWait, "exceeds one day")
	}

	var prev int64
	for i, e := range t.Events {
		if e.At < prev {
			return errors.NewValidationError(module, fmt.Sprintf("events[%d].at", i), e.At, "out of order").
				WithHint("list events in ascending time")
		}
		if e.At > MaxMillis {
			return errors.NewValidationError(module, fmt.Sprintf("events[%d].at", i), e.At, "exceeds one day")
		}
		prev = e.At
	}
	return nil
}
