// internal/app/system/payments/gateway.go
package payments

import (
	"context"
	"errors"
	"fmt"

	"github.com/dalemusser/fundhub/internal/domain/models"
	"github.com/midtrans/midtrans-go"
	"github.com/midtrans/midtrans-go/coreapi"
	"github.com/midtrans/midtrans-go/snap"
	"github.com/shopspring/decimal"
)

// Provider states as reported by VerifyCapture.
const (
	StatePaid    = "paid"
	StatePending = "pending"
	StateFailed  = "failed"
)

// Order is what the provider is asked to charge. Amount is in minor units
// of Currency.
type Order struct {
	ID        string
	Amount    models.Money
	Currency  string
	DonorName string
}

// Checkout is where the donor completes payment.
type Checkout struct {
	OrderID     string `json:"order_id"`
	RedirectURL string `json:"redirect_url"`
	Token       string `json:"token,omitempty"`
}

// Capture is the provider's view of an order.
type Capture struct {
	OrderID       string
	ProviderTxnID string
	// State is one of StatePaid, StatePending or StateFailed.
	State string
	// Raw is the provider's own status string.
	Raw    string
	Amount models.Money
}

// Gateway is the payment provider.
type Gateway interface {
	CreateOrder(ctx context.Context, o Order) (Checkout, error)
	VerifyCapture(ctx context.Context, orderID string) (Capture, error)
}

// MidtransCurrency is the only currency Midtrans settles in. Its gross
// amounts are whole rupiah.
const MidtransCurrency = "IDR"

// Midtrans charges through Snap and verifies through the Core API.
type Midtrans struct {
	snap snap.Client
	core coreapi.Client
}

func NewMidtrans(serverKey string, production bool) *Midtrans {
	env := midtrans.Sandbox
	if production {
		env = midtrans.Production
	}
	m := &Midtrans{}
	m.snap.New(serverKey, env)
	m.core.New(serverKey, env)
	return m
}

func (m *Midtrans) CreateOrder(ctx context.Context, o Order) (Checkout, error) {
	gross, err := midtransGross(o)
	if err != nil {
		return Checkout{}, err
	}
	req := &snap.Request{
		TransactionDetails: midtrans.TransactionDetails{
			OrderID:  o.ID,
			GrossAmt: gross,
		},
		CustomerDetail: &midtrans.CustomerDetails{
			FName: o.DonorName,
		},
	}

	resp, merr := m.snap.CreateTransaction(req)
	if resp == nil {
		if merr != nil {
			return Checkout{}, merr
		}
		return Checkout{}, errors.New("empty response from payment provider")
	}
	if resp.RedirectURL == "" {
		if merr != nil {
			return Checkout{}, merr
		}
		return Checkout{}, fmt.Errorf("payment provider returned no redirect url for order %s", o.ID)
	}
	return Checkout{OrderID: o.ID, RedirectURL: resp.RedirectURL, Token: resp.Token}, nil
}

func (m *Midtrans) VerifyCapture(ctx context.Context, orderID string) (Capture, error) {
	resp, merr := m.core.CheckTransaction(orderID)
	if resp == nil {
		if merr != nil {
			return Capture{}, merr
		}
		return Capture{}, errors.New("empty response from payment provider")
	}

	c := Capture{
		OrderID:       orderID,
		ProviderTxnID: resp.TransactionID,
		Raw:           resp.TransactionStatus,
		State:         stateFor(resp.TransactionStatus, resp.FraudStatus),
	}
	if resp.GrossAmount != "" {
		amt, err := moneyFromGross(resp.GrossAmount)
		if err != nil {
			return Capture{}, err
		}
		c.Amount = amt
	}
	return c, nil
}

// midtransGross converts an order amount to whole rupiah.
func midtransGross(o Order) (int64, error) {
	if o.Currency != MidtransCurrency {
		return 0, fmt.Errorf("order %s is in %q; midtrans charges in %s only", o.ID, o.Currency, MidtransCurrency)
	}
	if o.Amount%100 != 0 {
		return 0, fmt.Errorf("order %s amount %s has a fractional rupiah", o.ID, o.Amount)
	}
	return int64(o.Amount / 100), nil
}

// moneyFromGross parses a Midtrans gross_amount such as "150000.00".
func moneyFromGross(s string) (models.Money, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, fmt.Errorf("parse gross amount %q: %w", s, err)
	}
	amt, err := models.MoneyFromDecimal(d)
	if err != nil {
		return 0, fmt.Errorf("gross amount %q: %w", s, err)
	}
	return amt, nil
}

func stateFor(status, fraud string) string {
	switch status {
	case "capture":
		if fraud == "challenge" || fraud == "deny" {
			return StatePending
		}
		return StatePaid
	case "settlement":
		return StatePaid
	case "deny", "cancel", "expire", "failure":
		return StateFailed
	default:
		return StatePending
	}
}
