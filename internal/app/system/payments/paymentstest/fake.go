// Package paymentstest provides an in-memory payment gateway for tests.
package paymentstest

import (
	"context"
	"errors"
	"sync"

	"github.com/dalemusser/fundhub/internal/app/system/livefeed"
	"github.com/dalemusser/fundhub/internal/app/system/payments"
	"github.com/dalemusser/fundhub/internal/domain/models"
)

// ErrUnknownOrder is returned by VerifyCapture for orders never created.
var ErrUnknownOrder = errors.New("unknown order")

// Gateway records created orders and reports whatever state the test set.
type Gateway struct {
	mu        sync.Mutex
	orders    map[string]payments.Order
	states    map[string]string
	CreateErr error
	VerifyErr error
}

func NewGateway() *Gateway {
	return &Gateway{
		orders: make(map[string]payments.Order),
		states: make(map[string]string),
	}
}

func (g *Gateway) CreateOrder(ctx context.Context, o payments.Order) (payments.Checkout, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.CreateErr != nil {
		return payments.Checkout{}, g.CreateErr
	}
	g.orders[o.ID] = o
	g.states[o.ID] = payments.StatePending
	return payments.Checkout{
		OrderID:     o.ID,
		RedirectURL: "https://pay.example.test/checkout/" + o.ID,
		Token:       "tok-" + o.ID,
	}, nil
}

func (g *Gateway) VerifyCapture(ctx context.Context, orderID string) (payments.Capture, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.VerifyErr != nil {
		return payments.Capture{}, g.VerifyErr
	}
	o, ok := g.orders[orderID]
	state, known := g.states[orderID]
	if !known {
		return payments.Capture{}, ErrUnknownOrder
	}
	return payments.Capture{
		OrderID:       orderID,
		ProviderTxnID: "txn-" + orderID,
		State:         state,
		Raw:           state,
		Amount:        amountOf(o, ok),
	}, nil
}

func amountOf(o payments.Order, ok bool) models.Money {
	if !ok {
		return 0
	}
	return o.Amount
}

// SetState sets the provider state reported for an order. Orders the
// gateway never saw are registered with no amount.
func (g *Gateway) SetState(orderID, state string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.states[orderID] = state
}

// SetAmount overrides the amount the provider reports for an order.
func (g *Gateway) SetAmount(orderID string, amount models.Money) {
	g.mu.Lock()
	defer g.mu.Unlock()
	o := g.orders[orderID]
	o.ID = orderID
	o.Amount = amount
	g.orders[orderID] = o
}

// Order returns the order as the gateway received it.
func (g *Gateway) Order(orderID string) (payments.Order, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	o, ok := g.orders[orderID]
	return o, ok
}

// Orders returns how many orders were created.
func (g *Gateway) Orders() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.orders)
}

// Feed collects published live feed events.
type Feed struct {
	mu     sync.Mutex
	events []livefeed.Event
}

func (f *Feed) Publish(ev livefeed.Event) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, ev)
}

// Events returns a copy of everything published so far.
func (f *Feed) Events() []livefeed.Event {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]livefeed.Event(nil), f.events...)
}
