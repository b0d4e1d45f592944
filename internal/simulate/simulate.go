// Package simulate replays call traces against the debounce and throttle
// controls on a virtual clock, producing a deterministic report of which
// calls executed and when.
package simulate

import (
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/vnykmshr/tempo/pkg/common/clock"
	"github.com/vnykmshr/tempo/pkg/ratelimit/debounce"
	"github.com/vnykmshr/tempo/pkg/ratelimit/throttle"
)

// epoch is the virtual start time of every replay.
var epoch = time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC)

// Execution is one run of the wrapped function.
type Execution struct {
	At   int64  `yaml:"at"`
	Arg  string `yaml:"arg"`
	Edge string `yaml:"edge"`
}

// Edge values reported for an execution.
const (
	EdgeImmediate = "immediate"
	EdgeTrailing  = "trailing"
)

// Report is the outcome of replaying a Trace.
type Report struct {
	ID         string      `yaml:"id"`
	Name       string      `yaml:"name,omitempty"`
	Control    string      `yaml:"control"`
	Policy     string      `yaml:"policy,omitempty"`
	Delay      int64       `yaml:"delay"`
	Calls      int         `yaml:"calls"`
	Suppressed int         `yaml:"suppressed"`
	Executions []Execution `yaml:"executions"`
}

// Run replays trace and reports every execution.
func Run(trace *Trace, logger *zap.Logger) (*Report, error) {
	if err := trace.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	clk := clock.NewManual(epoch)
	report := &Report{
		ID:      uuid.NewString(),
		Name:    trace.Name,
		Control: trace.Control,
		Delay:   trace.Delay,
		Calls:   len(trace.Events),
	}

	inCall := false
	record := func(arg string) {
		edge := EdgeTrailing
		if inCall {
			edge = EdgeImmediate
		}
		report.Executions = append(report.Executions, Execution{
			At:   clk.Now().Sub(epoch).Milliseconds(),
			Arg:  arg,
			Edge: edge,
		})
	}

	call, stop, err := newControl(trace, clk, record, logger)
	if err != nil {
		return nil, err
	}
	defer stop()
	if trace.Control == ControlThrottle {
		policy, _ := throttle.ParsePolicy(trace.Policy)
		report.Policy = policy.String()
	}

	for _, e := range trace.Events {
		clk.Advance(ms(e.At) - clk.Now().Sub(epoch))
		inCall = true
		call(e.Arg)
		inCall = false
	}
	// Let any trailing execution fire.
	clk.Advance(ms(trace.Delay) + ms(trace.MaxWait))

	report.Suppressed = report.Calls - len(report.Executions)
	if report.Suppressed < 0 {
		report.Suppressed = 0
	}
	logger.Debug("trace replayed",
		zap.String("id", report.ID),
		zap.Int("calls", report.Calls),
		zap.Int("executions", len(report.Executions)))
	return report, nil
}

func newControl(trace *Trace, clk clock.Clock, f func(string), logger *zap.Logger) (func(string), func(), error) {
	switch trace.Control {
	case ControlDebounce:
		d, err := debounce.NewWithConfig(f, debounce.Config{
			Delay:   ms(trace.Delay),
			MaxWait: ms(trace.MaxWait),
			Leading: trace.Leading,
			Name:    trace.Name,
			Clock:   clk,
			Logger:  logger,
		})
		if err != nil {
			return nil, nil, err
		}
		return d.Call, d.Stop, nil
	default:
		policy, err := throttle.ParsePolicy(trace.Policy)
		if err != nil {
			return nil, nil, err
		}
		t, err := throttle.NewWithConfig(f, throttle.Config{
			Interval: ms(trace.Delay),
			Policy:   policy,
			Name:     trace.Name,
			Clock:    clk,
			Logger:   logger,
		})
		if err != nil {
			return nil, nil, err
		}
		return func(arg string) { t.Call(arg) }, t.Stop, nil
	}
}

func ms(n int64) time.Duration {
	return time.Duration(n) * time.Millisecond
}
