package order

import (
	"math"
	"testing"
)

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestSubtotalResumsItems(t *testing.T) {
	items := []LineItem{
		{Name: "Sisig", UnitPrice: 120, Quantity: 2},
		{Name: "Rice", UnitPrice: 25, Quantity: 4},
	}
	if got := Subtotal(items); !almostEqual(got, 340) {
		t.Fatalf("Subtotal = %v, want 340", got)
	}
}

func TestSubtotalTreatsMissingQuantityAsOne(t *testing.T) {
	items := []LineItem{{Name: "Halo-halo", UnitPrice: 95, Quantity: 0}}
	if got := Subtotal(items); !almostEqual(got, 95) {
		t.Fatalf("Subtotal = %v, want 95", got)
	}
}

func TestRecalculateSeniorDiscount(t *testing.T) {
	// 250 subtotal, 5 tax, 20% senior discount on the subtotal only.
	o := Order{
		Items:    []LineItem{{Name: "Bulalo", UnitPrice: 250, Quantity: 1}},
		Discount: &Discount{Type: DiscountSenior, Percent: 20},
	}
	Recalculate(&o, DefaultTaxAmount)

	if !almostEqual(o.Subtotal, 250) {
		t.Fatalf("Subtotal = %v, want 250", o.Subtotal)
	}
	if !almostEqual(o.Tax, 5) {
		t.Fatalf("Tax = %v, want 5", o.Tax)
	}
	if o.Discount == nil || !almostEqual(o.Discount.Amount, 50) {
		t.Fatalf("Discount = %+v, want amount 50", o.Discount)
	}
	if !almostEqual(o.Total, 205) {
		t.Fatalf("Total = %v, want 205", o.Total)
	}
}

func TestRecalculateStripsZeroDiscount(t *testing.T) {
	o := Order{
		Items:    []LineItem{{Name: "Lumpia", UnitPrice: 80, Quantity: 1}},
		Discount: &Discount{Type: DiscountSpecial, Amount: 0},
	}
	Recalculate(&o, DefaultTaxAmount)

	if o.Discount != nil {
		t.Fatalf("zero discount should be stripped, got %+v", o.Discount)
	}
	if !almostEqual(o.Total, 85) {
		t.Fatalf("Total = %v, want 85", o.Total)
	}
}

func TestRecalculateSpecialDiscountDirectAmount(t *testing.T) {
	o := Order{
		Items:    []LineItem{{Name: "Lechon", UnitPrice: 400, Quantity: 1}},
		Discount: &Discount{Type: DiscountSpecial, Amount: 100},
	}
	Recalculate(&o, DefaultTaxAmount)

	if !almostEqual(o.Total, 305) {
		t.Fatalf("Total = %v, want 305", o.Total)
	}
}

func TestRecalculateDoesNotClampNegativeTotal(t *testing.T) {
	// An over-sized special discount drives the total negative; the stored
	// total keeps the real arithmetic result.
	o := Order{
		Items:    []LineItem{{Name: "Taho", UnitPrice: 20, Quantity: 1}},
		Discount: &Discount{Type: DiscountSpecial, Amount: 100},
	}
	Recalculate(&o, DefaultTaxAmount)

	if !almostEqual(o.Total, -75) {
		t.Fatalf("Total = %v, want -75", o.Total)
	}
}

func TestRecalculateIsIdempotent(t *testing.T) {
	o := Order{
		Items:    []LineItem{{Name: "Adobo", UnitPrice: 150, Quantity: 2}},
		Discount: &Discount{Type: DiscountPWD, Percent: 20, HolderName: "Ana", HolderID: "PWD-001"},
	}
	Recalculate(&o, DefaultTaxAmount)
	first := o
	Recalculate(&o, DefaultTaxAmount)

	if o.Subtotal != first.Subtotal || o.Tax != first.Tax || o.Total != first.Total {
		t.Fatalf("second pass changed totals: %+v vs %+v", o, first)
	}
	if o.Discount.Amount != first.Discount.Amount {
		t.Fatalf("second pass changed discount: %v vs %v", o.Discount.Amount, first.Discount.Amount)
	}
}

func TestChangeAndBalanceDueClampAtZero(t *testing.T) {
	tests := []struct {
		name              string
		received, total   float64
		change, balance   float64
	}{
		{"exact", 205, 205, 0, 0},
		{"overpaid", 300, 205, 95, 0},
		{"underpaid", 100, 205, 0, 105},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Change(tt.received, tt.total); !almostEqual(got, tt.change) {
				t.Errorf("Change = %v, want %v", got, tt.change)
			}
			if got := BalanceDue(tt.received, tt.total); !almostEqual(got, tt.balance) {
				t.Errorf("BalanceDue = %v, want %v", got, tt.balance)
			}
		})
	}
}
