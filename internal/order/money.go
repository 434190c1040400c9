package order

import "math"

// DefaultTaxAmount is the fixed absolute tax applied once per order. Tax is a
// constant peso amount, never a percentage of the subtotal.
const DefaultTaxAmount = 5.00

func round2(value float64) float64 {
	return math.Round(value*100) / 100
}

// Subtotal re-sums the line items. The stored subtotal is only a cache; the
// items are the source of truth, so every caller recomputes from them.
func Subtotal(items []LineItem) float64 {
	var sum float64
	for _, item := range items {
		qty := item.Quantity
		if qty <= 0 {
			qty = 1
		}
		sum = round2(sum + round2(item.UnitPrice*float64(qty)))
	}
	return sum
}

// DiscountAmount computes the peso discount for the given subtotal. PWD and
// Senior Citizen discounts are a percentage of the subtotal; a Special
// discount carries its amount directly.
func DiscountAmount(d *Discount, subtotal float64) float64 {
	if d == nil || d.Type == DiscountNone {
		return 0
	}
	if d.Type.RequiresHolder() {
		return round2(subtotal * d.Percent / 100)
	}
	return round2(d.Amount)
}

// Recalculate refreshes every derived monetary field from the line items.
// Idempotent: running it twice on unchanged inputs yields identical output.
// The total is deliberately not clamped at zero; only change/balance-due
// displays clamp.
func Recalculate(o *Order, taxAmount float64) {
	// Items and Discount are copied before writing so callers holding the
	// original order never see derived fields change under them.
	items := make([]LineItem, len(o.Items))
	copy(items, o.Items)
	o.Items = items

	o.Subtotal = Subtotal(o.Items)
	o.Tax = round2(taxAmount)

	discount := DiscountAmount(o.Discount, o.Subtotal)
	if discount == 0 {
		// A zero discount is stripped, not zeroed, so downstream displays
		// never see ambiguous empty discount fields.
		o.Discount = nil
	} else {
		d := *o.Discount
		d.Amount = discount
		o.Discount = &d
	}

	o.Total = round2(o.Subtotal + o.Tax - discount)
	for i := range o.Items {
		qty := o.Items[i].Quantity
		if qty <= 0 {
			qty = 1
		}
		o.Items[i].LineTotal = round2(o.Items[i].UnitPrice * float64(qty))
	}
}

// Change is the cash returned to the customer, floored at zero.
func Change(received, total float64) float64 {
	return round2(math.Max(0, received-total))
}

// BalanceDue is the amount still owed, floored at zero.
func BalanceDue(received, total float64) float64 {
	return round2(math.Max(0, total-received))
}

func (o Order) DiscountValue() float64 {
	if o.Discount == nil {
		return 0
	}
	return o.Discount.Amount
}
