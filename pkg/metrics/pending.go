package metrics

import (
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
)

// PendingState is one control's share of a ControlPending gauge. Controls
// that report under the same name, such as the members of a keyed group,
// each add at most one to the gauge, so it counts the controls that have a
// call waiting.
type PendingState struct {
	reported atomic.Bool
}

// Update moves g by one when the control's pending state changes.
func (p *PendingState) Update(g prometheus.Gauge, pending bool) {
	if p.reported.Swap(pending) == pending {
		return
	}
	if pending {
		g.Inc()
	} else {
		g.Dec()
	}
}
