package order

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	ErrEmptyCart         = errors.New("order has no items")
	ErrMissingOrderID    = errors.New("order id not assigned")
	ErrMissingHolder     = errors.New("discount requires customer name and ID")
	ErrReasonRequired    = errors.New("decline reason is required")
	ErrNotAwaitingReview = errors.New("order is not awaiting payment verification")
	ErrNotApproved       = errors.New("order payment has not been approved")
)

type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Event is one legal input to the order state machine. Every UI surface goes
// through ApplyTransition with one of these instead of reshaping the record
// by hand.
type Event interface {
	eventName() string
}

// SaveForLater defers an unpaid order: the "Later" button on the payment
// surface. Totals are recomputed and the order parks in Pending Payment under
// its already-assigned identifier.
type SaveForLater struct {
	TaxAmount       float64
	DiscountPercent float64
	At              time.Time
}

// ConfirmPayment captures payment and dispatches the order to the kitchen.
type ConfirmPayment struct {
	Payment         Payment
	TaxAmount       float64
	DiscountPercent float64
	ReferenceMin    int
	At              time.Time
}

// Cancel is the compensating transaction behind the Back button. Inventory
// restoration happens before the record delete; the reducer only moves state.
type Cancel struct {
	At time.Time
}

// ApproveVerification resolves a delivery order's payment proof positively.
// It does not dispatch to the kitchen; that stays an explicit second step.
type ApproveVerification struct {
	At time.Time
}

// DeclineVerification resolves a payment proof negatively, with a mandatory
// reason.
type DeclineVerification struct {
	Reason string
	At     time.Time
}

// DispatchToKitchen is the human checkpoint after payment approval.
type DispatchToKitchen struct {
	At time.Time
}

// Complete closes out a kitchen order.
type Complete struct {
	At time.Time
}

func (SaveForLater) eventName() string        { return "save_for_later" }
func (ConfirmPayment) eventName() string      { return "confirm_payment" }
func (Cancel) eventName() string              { return "cancel" }
func (ApproveVerification) eventName() string { return "approve_verification" }
func (DeclineVerification) eventName() string { return "decline_verification" }
func (DispatchToKitchen) eventName() string   { return "dispatch_to_kitchen" }
func (Complete) eventName() string            { return "complete" }

// ApplyTransition is the single reducer every surface uses to mutate an
// order. It returns the next order value; the input is never modified. All
// monetary fields in the result are freshly recomputed, never carried over
// from the possibly stale input.
func ApplyTransition(o Order, ev Event) (Order, error) {
	switch e := ev.(type) {
	case SaveForLater:
		return applySaveForLater(o, e)
	case ConfirmPayment:
		return applyConfirmPayment(o, e)
	case Cancel:
		o.Status = StatusCancelled
		o.UpdatedAt = e.At
		return o, nil
	case ApproveVerification:
		return applyApprove(o, e)
	case DeclineVerification:
		return applyDecline(o, e)
	case DispatchToKitchen:
		if o.Status != StatusPaymentApproved {
			return o, ErrNotApproved
		}
		at := e.At
		o.Status = StatusInKitchen
		o.SentToKitchenAt = &at
		o.UpdatedAt = at
		return o, nil
	case Complete:
		if o.Status != StatusInKitchen {
			return o, fmt.Errorf("cannot complete order in status %q", o.Status)
		}
		o.Status = StatusCompleted
		o.UpdatedAt = e.At
		return o, nil
	default:
		return o, fmt.Errorf("unknown order event %T", ev)
	}
}

func applySaveForLater(o Order, e SaveForLater) (Order, error) {
	if o.ID.IsZero() {
		return o, ErrMissingOrderID
	}
	if len(o.Items) == 0 {
		return o, ErrEmptyCart
	}
	if err := requireDiscountHolder(o.Discount); err != nil {
		return o, err
	}
	applyStatutoryRate(&o, e.DiscountPercent)
	Recalculate(&o, e.TaxAmount)
	o.Status = StatusPendingPayment
	o.UpdatedAt = e.At
	return o, nil
}

func applyConfirmPayment(o Order, e ConfirmPayment) (Order, error) {
	if o.ID.IsZero() {
		return o, ErrMissingOrderID
	}
	if len(o.Items) == 0 {
		return o, ErrEmptyCart
	}
	if err := requireDiscountHolder(o.Discount); err != nil {
		return o, err
	}
	if err := validatePayment(e.Payment, e.ReferenceMin); err != nil {
		return o, err
	}

	applyStatutoryRate(&o, e.DiscountPercent)
	Recalculate(&o, e.TaxAmount)

	payment := e.Payment
	payment.Total = o.Total
	if payment.Method == PaymentCash {
		payment.Change = Change(payment.AmountReceived, o.Total)
	}
	o.Payment = &payment
	o.PaymentMethod = payment.Method

	at := e.At
	o.Status = StatusInKitchen
	o.SentToKitchenAt = &at
	o.UpdatedAt = at
	return o, nil
}

func applyApprove(o Order, e ApproveVerification) (Order, error) {
	if o.Status != StatusPendingPayment {
		return o, ErrNotAwaitingReview
	}
	at := e.At
	o.Status = StatusPaymentApproved
	o.ApprovedAt = &at
	o.UpdatedAt = at
	return o, nil
}

func applyDecline(o Order, e DeclineVerification) (Order, error) {
	if strings.TrimSpace(e.Reason) == "" {
		return o, ErrReasonRequired
	}
	if o.Status != StatusPendingPayment {
		return o, ErrNotAwaitingReview
	}
	at := e.At
	o.Status = StatusPaymentDeclined
	o.DeclinedAt = &at
	o.DeclineReason = strings.TrimSpace(e.Reason)
	o.UpdatedAt = at
	return o, nil
}

// applyStatutoryRate pins PWD and Senior Citizen discounts to the configured
// percentage. The rate a client sends with the draft is never trusted.
func applyStatutoryRate(o *Order, percent float64) {
	if o.Discount == nil || !o.Discount.Type.RequiresHolder() {
		return
	}
	d := *o.Discount
	d.Percent = percent
	o.Discount = &d
}

func requireDiscountHolder(d *Discount) error {
	if d == nil || !d.Type.RequiresHolder() {
		return nil
	}
	if strings.TrimSpace(d.HolderName) == "" || strings.TrimSpace(d.HolderID) == "" {
		return ErrMissingHolder
	}
	return nil
}

func validatePayment(p Payment, referenceMin int) error {
	switch p.Method {
	case PaymentCash:
		if p.AmountReceived <= 0 {
			return &ValidationError{Field: "amountReceived", Message: "cash received must be greater than zero"}
		}
	case PaymentGCash, PaymentCard, PaymentBankTransfer:
		ref := strings.TrimSpace(p.ReferenceNumber)
		if len(ref) < referenceMin {
			return &ValidationError{
				Field:   "referenceNumber",
				Message: fmt.Sprintf("reference number must be at least %d characters", referenceMin),
			}
		}
	default:
		return &ValidationError{Field: "paymentMethod", Message: "unsupported payment method"}
	}
	return nil
}
