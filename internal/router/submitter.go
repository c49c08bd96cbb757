package router

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/quantrail/corebook/internal/brokerage"
	"github.com/quantrail/corebook/internal/core"
	"github.com/quantrail/corebook/internal/eventbus"
	"github.com/quantrail/corebook/internal/order"
	"github.com/quantrail/corebook/internal/portfolio"
	"github.com/quantrail/corebook/internal/ratelimit"
)

// Tracker learns the brokerage-id -> internal-order-id mapping the
// instant a child leg is submitted. internal/reconcile.Reconciler
// implements this: it imports router, so the dependency runs one way and
// Submitter depends only on this narrow interface rather than on the
// reconciler package itself.
type Tracker interface {
	Track(brokerageID string, orderID core.OrderId)
}

// Submitter places one child submit-request against the brokerage adapter
// and folds the result into an existing ticket. It is shared by the
// Router (the first leg of every order) and the Fill
// Reconciler (asynchronous contingent-chain legs, spec §4.3/§4.4), so
// both obey the same rate limit, retry, and direction-conversion rules.
type Submitter struct {
	Broker   brokerage.Broker
	Retrier  *brokerage.Retrier
	Limiter  *ratelimit.Limiter
	Holdings *portfolio.Arena

	// Tracker is optional: nil until the Fill Reconciler is wired up
	// (e.g. in router unit tests, which never poll for fills).
	Tracker Tracker

	// Bus is optional: when set, every status transition this Submitter
	// applies to a ticket is also published to it, so the strategy-facing
	// event stream carries Submitted/Invalid events alongside the
	// reconciler's own PartiallyFilled/Filled/Canceled ones.
	Bus *eventbus.Bus
}

// publish forwards ev to s.Bus if one is wired. If the bus could not
// accept it before ctx was done, the error is discarded rather than
// failing the submission.
func (s *Submitter) publish(ctx context.Context, ev order.Event) {
	if s.Bus == nil {
		return
	}
	_ = s.Bus.PublishOrderEvent(ctx, ev)
}

// SubmitChild submits req (one leg of ticket's logical order) against
// secID's current holding for direction purposes, records the resulting
// brokerage id on ticket, and applies a Submitted event. A business
// rejection from the brokerage (WireSubmitResult.OK == false) transitions
// ticket to Invalid instead.
func (s *Submitter) SubmitChild(ctx context.Context, ticket *order.Ticket, secID core.SymbolId, req order.Request) error {
	if err := s.Limiter.Wait(ctx, ratelimit.CategoryOrders); err != nil {
		return err
	}

	currentQty := s.Holdings.Get(secID).Quantity
	wireType := brokerage.ConvertOrderType(req.Type)
	direction := brokerage.ConvertDirection(currentQty, req.Quantity)
	// A fresh client-order-id per leg, not per ticket: a zero-crossing
	// order submits two legs under one ticket, and each is a distinct
	// brokerage order that must not look like a duplicate of the other.
	// It's minted once here, before the retry closure, so every retried
	// attempt of this leg reuses the same key.
	clientOrderID := uuid.NewString()

	var result brokerage.WireSubmitResult
	err := s.Retrier.Do(ctx, "place-order", func() error {
		res, placeErr := s.Broker.PlaceOrder(ctx, req, wireType, direction, clientOrderID)
		if placeErr != nil {
			return brokerage.MarkTransportError(placeErr)
		}
		result = res
		return nil
	})
	if err != nil {
		ev := order.Event{OrderID: ticket.OrderID(), UTCTime: time.Now().UTC(), Status: order.StatusInvalid, Message: err.Error()}
		ticket.ApplyEvent(ev)
		s.publish(ctx, ev)
		return err
	}

	if !result.OK {
		msg := "brokerage rejected order"
		if len(result.Errors) > 0 {
			msg = result.Errors[0]
		}
		ev := order.Event{OrderID: ticket.OrderID(), UTCTime: time.Now().UTC(), Status: order.StatusInvalid, Message: msg}
		ticket.ApplyEvent(ev)
		s.publish(ctx, ev)
		return fmt.Errorf("brokerage: %s", msg)
	}

	ticket.AddBrokerageID(result.ID)
	if s.Tracker != nil {
		s.Tracker.Track(result.ID, ticket.OrderID())
	}
	ev := order.Event{OrderID: ticket.OrderID(), UTCTime: time.Now().UTC(), Status: order.StatusSubmitted}
	ticket.ApplyEvent(ev)
	s.publish(ctx, ev)
	return nil
}
