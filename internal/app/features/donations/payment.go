// internal/app/features/donations/payment.go
package donations

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/dalemusser/fundhub/internal/app/system/apperr"
	"github.com/dalemusser/fundhub/internal/app/system/httpjson"
	"github.com/dalemusser/fundhub/internal/app/system/limits"
	"github.com/dalemusser/fundhub/internal/app/system/payments"
	"github.com/dalemusser/fundhub/internal/app/system/timeouts"
	"github.com/dalemusser/fundhub/internal/domain/models"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// Public payment states. Anything short of recorded is reported as pending
// so a client never shows success before the donation is in the ledger.
const (
	statusRecorded = "recorded"
	statusPending  = "pending"
	statusFailed   = "failed"
)

type paymentStatus struct {
	OrderID    string              `json:"order_id"`
	CampaignID primitive.ObjectID  `json:"campaign_id"`
	Amount     models.Money        `json:"amount"`
	Status     string              `json:"status"`
	DonationID *primitive.ObjectID `json:"donation_id,omitempty"`
}

func publicStatus(pc models.PaymentCapture) paymentStatus {
	st := statusPending
	switch pc.Status {
	case models.CaptureRecorded:
		st = statusRecorded
	case models.CaptureFailed:
		st = statusFailed
	}
	return paymentStatus{
		OrderID:    pc.ID,
		CampaignID: pc.CampaignID,
		Amount:     pc.Amount,
		Status:     st,
		DonationID: pc.DonationID,
	}
}

// httpStatusFor maps a settled capture to the response code: 200 once
// recorded, 202 while anything is still outstanding, 402 when the provider
// refused the payment.
func httpStatusFor(ps paymentStatus) int {
	switch ps.Status {
	case statusRecorded:
		return http.StatusOK
	case statusFailed:
		return http.StatusPaymentRequired
	default:
		return http.StatusAccepted
	}
}

// ServeCheckout handles POST /donations/checkout.
func (h *Handler) ServeCheckout(w http.ResponseWriter, r *http.Request) {
	var in payments.CheckoutInput
	if err := httpjson.Decode(w, r, &in); err != nil {
		httpjson.Error(w, h.Log, "checkout", err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Long())
	defer cancel()

	co, err := h.Payments.Checkout(ctx, in)
	if err != nil {
		httpjson.Error(w, h.Log, "checkout", err)
		return
	}
	httpjson.Write(w, http.StatusCreated, co)
}

// ServeStatus handles GET /donations/{orderID} for clients polling after
// the provider redirect.
func (h *Handler) ServeStatus(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	pc, err := h.Payments.Status(ctx, chi.URLParam(r, "orderID"))
	if err != nil {
		httpjson.Error(w, h.Log, "payment status", err)
		return
	}
	httpjson.OK(w, publicStatus(pc))
}

// ServeConfirm handles POST /donations/{orderID}/confirm, sent by the client
// when the donor returns from the provider.
func (h *Handler) ServeConfirm(w http.ResponseWriter, r *http.Request) {
	h.settle(w, r, chi.URLParam(r, "orderID"), "confirm payment")
}

// notification is the part of the provider's webhook body we read. The
// body is never trusted; the order is verified with the provider.
type notification struct {
	OrderID string `json:"order_id"`
}

// ServeNotify handles POST /payments/notify, the provider webhook. Unknown
// fields are expected.
func (h *Handler) ServeNotify(w http.ResponseWriter, r *http.Request) {
	var n notification
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, limits.MaxNotifyBody)).Decode(&n); err != nil {
		httpjson.Error(w, h.Log, "payment notification", apperr.Validation("", "invalid JSON body"))
		return
	}
	n.OrderID = strings.TrimSpace(n.OrderID)
	if n.OrderID == "" {
		httpjson.Error(w, h.Log, "payment notification", apperr.Validation("order_id", "Order id is required."))
		return
	}
	h.Log.Info("payment notification received", zap.String("order_id", n.OrderID))
	h.settle(w, r, n.OrderID, "payment notification")
}

func (h *Handler) settle(w http.ResponseWriter, r *http.Request, orderID, op string) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Long())
	defer cancel()

	pc, err := h.Payments.Settle(ctx, orderID)
	if err != nil {
		httpjson.Error(w, h.Log, op, err)
		return
	}
	ps := publicStatus(pc)
	httpjson.Write(w, httpStatusFor(ps), ps)
}
