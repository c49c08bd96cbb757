package reconcile

import (
	"context"
	"fmt"
	"time"

	"github.com/quantrail/corebook/internal/brokerage"
	"github.com/quantrail/corebook/internal/eventbus"
	"go.uber.org/zap"
)

// considerUnknown handles a brokerage id present in a poll fetch that the
// reconciler has no local record of at all (spec §4.4 step 3): it is
// filtered first against the recently-terminated ring (a legitimate race
// between a fill and this poll) and against the engine's own start time
// (a stale order from before this run), then queued for deferred
// verification. The first id to start a fresh round schedules the 2 s
// verification timer.
func (r *Reconciler) considerUnknown(brokerageID string, fresh brokerage.WireOrder) {
	if r.ring.Contains(brokerageID) {
		return
	}
	if fresh.TransactionTime.Before(r.initUTC) {
		return
	}

	r.mu.Lock()
	if _, already := r.unknown[brokerageID]; !already {
		r.unknown[brokerageID] = time.Now()
	}
	first := !r.unknownScheduled
	if first {
		r.unknownScheduled = true
	}
	r.mu.Unlock()

	if first {
		time.AfterFunc(r.unknownGrace, func() {
			r.verifyUnknown(context.Background())
		})
	}
}

// verifyUnknown is the deferred unknown-id verification spec §4.4
// describes: ids the brokerage's own id lookup resolves are dropped
// first; any still unresolved are checked against the last minute's
// rejected orders. Anything surviving both filters is state corruption —
// a fatal UnknownOrderId error event is raised for each.
func (r *Reconciler) verifyUnknown(ctx context.Context) {
	r.mu.Lock()
	ids := make([]string, 0, len(r.unknown))
	for id := range r.unknown {
		ids = append(ids, id)
	}
	r.mu.Unlock()

	remaining := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok, err := r.broker.GetOrder(ctx, id); err == nil && ok {
			continue
		}
		remaining = append(remaining, id)
	}

	if len(remaining) > 0 {
		if rejected, err := r.broker.GetRecentRejected(ctx, time.Now().Add(-time.Minute)); err == nil {
			rejectedSet := make(map[string]bool, len(rejected))
			for _, wo := range rejected {
				rejectedSet[wo.ID] = true
			}
			filtered := remaining[:0]
			for _, id := range remaining {
				if !rejectedSet[id] {
					filtered = append(filtered, id)
				}
			}
			remaining = filtered
		}
	}

	r.mu.Lock()
	r.unknown = make(map[string]time.Time)
	r.unknownScheduled = false
	r.mu.Unlock()

	for _, id := range remaining {
		r.log.Error("reconcile: unresolved unknown brokerage order id", zap.String("brokerageID", id))
		if r.metrics != nil {
			r.metrics.RecordUnknownOrderID()
		}
		_ = r.bus.PublishError(context.Background(), eventbus.ErrorEvent{
			Severity: eventbus.SeverityError,
			Code:     "UnknownOrderId",
			Message:  fmt.Sprintf("brokerage order id %s has no corresponding internal record", id),
		})
	}
}
