package order

import (
	"errors"
	"testing"
	"time"
)

var testNow = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func draftOrder() Order {
	return Order{
		ID:    PersistedID("ORD-1042"),
		Type:  TypeDineIn,
		Items: []LineItem{{Name: "Sinigang", UnitPrice: 250, Quantity: 1}},
	}
}

func TestSaveForLaterParksOrderPending(t *testing.T) {
	o, err := ApplyTransition(draftOrder(), SaveForLater{TaxAmount: DefaultTaxAmount, At: testNow})
	if err != nil {
		t.Fatalf("ApplyTransition: %v", err)
	}
	if o.Status != StatusPendingPayment {
		t.Fatalf("Status = %q, want %q", o.Status, StatusPendingPayment)
	}
	if !almostEqual(o.Total, 255) {
		t.Fatalf("Total = %v, want 255", o.Total)
	}
	if o.ID.String() != "ORD-1042" {
		t.Fatalf("order number changed to %q", o.ID)
	}
}

func TestSaveForLaterRejectsEmptyCart(t *testing.T) {
	o := draftOrder()
	o.Items = nil
	if _, err := ApplyTransition(o, SaveForLater{TaxAmount: DefaultTaxAmount, At: testNow}); !errors.Is(err, ErrEmptyCart) {
		t.Fatalf("err = %v, want ErrEmptyCart", err)
	}
}

func TestSaveForLaterRejectsMissingID(t *testing.T) {
	o := draftOrder()
	o.ID = OrderID{}
	if _, err := ApplyTransition(o, SaveForLater{TaxAmount: DefaultTaxAmount, At: testNow}); !errors.Is(err, ErrMissingOrderID) {
		t.Fatalf("err = %v, want ErrMissingOrderID", err)
	}
}

func TestDiscountHolderRequiredForSeniorAndPWD(t *testing.T) {
	for _, dt := range []DiscountType{DiscountPWD, DiscountSenior} {
		t.Run(string(dt), func(t *testing.T) {
			o := draftOrder()
			o.Discount = &Discount{Type: dt}
			ev := SaveForLater{TaxAmount: DefaultTaxAmount, DiscountPercent: 20, At: testNow}
			if _, err := ApplyTransition(o, ev); !errors.Is(err, ErrMissingHolder) {
				t.Fatalf("err = %v, want ErrMissingHolder", err)
			}

			o.Discount.HolderName = "Jose Reyes"
			o.Discount.HolderID = "SC-2210"
			if _, err := ApplyTransition(o, ev); err != nil {
				t.Fatalf("with holder info: %v", err)
			}
		})
	}
}

func TestConfirmCashPaymentComputesChange(t *testing.T) {
	o := draftOrder()
	o.Discount = &Discount{Type: DiscountSenior, HolderName: "Jose", HolderID: "SC-1"}

	got, err := ApplyTransition(o, ConfirmPayment{
		Payment:         Payment{Method: PaymentCash, AmountReceived: 300},
		TaxAmount:       DefaultTaxAmount,
		DiscountPercent: 20,
		At:              testNow,
	})
	if err != nil {
		t.Fatalf("ApplyTransition: %v", err)
	}
	if got.Status != StatusInKitchen {
		t.Fatalf("Status = %q, want %q", got.Status, StatusInKitchen)
	}
	if got.Payment == nil {
		t.Fatal("Payment not recorded")
	}
	// 250 - 50 senior discount + 5 tax = 205; change on 300 is 95.
	if !almostEqual(got.Payment.Total, 205) {
		t.Fatalf("Payment.Total = %v, want 205", got.Payment.Total)
	}
	if !almostEqual(got.Payment.Change, 95) {
		t.Fatalf("Payment.Change = %v, want 95", got.Payment.Change)
	}
	if got.SentToKitchenAt == nil || !got.SentToKitchenAt.Equal(testNow) {
		t.Fatalf("SentToKitchenAt = %v, want %v", got.SentToKitchenAt, testNow)
	}
}

func TestConfirmCashRequiresPositiveAmount(t *testing.T) {
	_, err := ApplyTransition(draftOrder(), ConfirmPayment{
		Payment:   Payment{Method: PaymentCash, AmountReceived: 0},
		TaxAmount: DefaultTaxAmount,
		At:        testNow,
	})
	var verr *ValidationError
	if !errors.As(err, &verr) || verr.Field != "amountReceived" {
		t.Fatalf("err = %v, want amountReceived validation error", err)
	}
}

func TestConfirmRejectsShortReference(t *testing.T) {
	_, err := ApplyTransition(draftOrder(), ConfirmPayment{
		Payment:      Payment{Method: PaymentGCash, ReferenceNumber: "AB12"},
		TaxAmount:    DefaultTaxAmount,
		ReferenceMin: 8,
		At:           testNow,
	})
	var verr *ValidationError
	if !errors.As(err, &verr) || verr.Field != "referenceNumber" {
		t.Fatalf("err = %v, want referenceNumber validation error", err)
	}
}

func TestConfirmAcceptsReferenceAtMinimum(t *testing.T) {
	got, err := ApplyTransition(draftOrder(), ConfirmPayment{
		Payment:      Payment{Method: PaymentCard, ReferenceNumber: "REF45678"},
		TaxAmount:    DefaultTaxAmount,
		ReferenceMin: 8,
		At:           testNow,
	})
	if err != nil {
		t.Fatalf("ApplyTransition: %v", err)
	}
	if got.PaymentMethod != PaymentCard {
		t.Fatalf("PaymentMethod = %q, want Card", got.PaymentMethod)
	}
}

func TestStatutoryDiscountRateOverridesClientValue(t *testing.T) {
	o := draftOrder()
	o.Discount = &Discount{Type: DiscountPWD, Percent: 95, HolderName: "Jose", HolderID: "PWD-7"}

	got, err := ApplyTransition(o, SaveForLater{
		TaxAmount:       DefaultTaxAmount,
		DiscountPercent: 20,
		At:              testNow,
	})
	if err != nil {
		t.Fatalf("ApplyTransition: %v", err)
	}
	// 20% of 250, never the 95% the client asked for.
	if got.Discount == nil || !almostEqual(got.Discount.Amount, 50) {
		t.Fatalf("Discount = %+v, want amount 50", got.Discount)
	}
	if !almostEqual(got.Total, 205) {
		t.Fatalf("Total = %v, want 205", got.Total)
	}
	if o.Discount.Percent != 95 {
		t.Fatal("reducer mutated the input discount")
	}
}

func TestApproveOnlyFromPendingPayment(t *testing.T) {
	o := draftOrder()
	o.Status = StatusPendingPayment
	got, err := ApplyTransition(o, ApproveVerification{At: testNow})
	if err != nil {
		t.Fatalf("ApplyTransition: %v", err)
	}
	if got.Status != StatusPaymentApproved {
		t.Fatalf("Status = %q, want %q", got.Status, StatusPaymentApproved)
	}
	if got.ApprovedAt == nil {
		t.Fatal("ApprovedAt not set")
	}

	// Approval never dispatches; the kitchen handoff is its own event.
	if got.SentToKitchenAt != nil {
		t.Fatal("approval must not send the order to the kitchen")
	}

	got.Status = StatusInKitchen
	if _, err := ApplyTransition(got, ApproveVerification{At: testNow}); !errors.Is(err, ErrNotAwaitingReview) {
		t.Fatalf("err = %v, want ErrNotAwaitingReview", err)
	}
}

func TestDeclineRequiresReason(t *testing.T) {
	o := draftOrder()
	o.Status = StatusPendingPayment

	if _, err := ApplyTransition(o, DeclineVerification{Reason: "  ", At: testNow}); !errors.Is(err, ErrReasonRequired) {
		t.Fatalf("err = %v, want ErrReasonRequired", err)
	}

	got, err := ApplyTransition(o, DeclineVerification{Reason: "blurry screenshot", At: testNow})
	if err != nil {
		t.Fatalf("ApplyTransition: %v", err)
	}
	if got.Status != StatusPaymentDeclined {
		t.Fatalf("Status = %q, want %q", got.Status, StatusPaymentDeclined)
	}
	if got.DeclineReason != "blurry screenshot" {
		t.Fatalf("DeclineReason = %q", got.DeclineReason)
	}
}

func TestDispatchRequiresApproval(t *testing.T) {
	o := draftOrder()
	o.Status = StatusPendingPayment
	if _, err := ApplyTransition(o, DispatchToKitchen{At: testNow}); !errors.Is(err, ErrNotApproved) {
		t.Fatalf("err = %v, want ErrNotApproved", err)
	}

	o.Status = StatusPaymentApproved
	got, err := ApplyTransition(o, DispatchToKitchen{At: testNow})
	if err != nil {
		t.Fatalf("ApplyTransition: %v", err)
	}
	if got.Status != StatusInKitchen {
		t.Fatalf("Status = %q, want %q", got.Status, StatusInKitchen)
	}
}

func TestCompleteOnlyFromKitchen(t *testing.T) {
	o := draftOrder()
	o.Status = StatusInKitchen
	got, err := ApplyTransition(o, Complete{At: testNow})
	if err != nil {
		t.Fatalf("ApplyTransition: %v", err)
	}
	if got.Status != StatusCompleted {
		t.Fatalf("Status = %q, want %q", got.Status, StatusCompleted)
	}

	if _, err := ApplyTransition(got, Complete{At: testNow}); err == nil {
		t.Fatal("completing a completed order should fail")
	}
}

func TestCancelLeavesInputUnchanged(t *testing.T) {
	o := draftOrder()
	o.Status = StatusPendingPayment
	got, err := ApplyTransition(o, Cancel{At: testNow})
	if err != nil {
		t.Fatalf("ApplyTransition: %v", err)
	}
	if got.Status != StatusCancelled {
		t.Fatalf("Status = %q, want %q", got.Status, StatusCancelled)
	}
	if o.Status != StatusPendingPayment {
		t.Fatal("reducer mutated its input")
	}
}
