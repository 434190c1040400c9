package session

import (
	"testing"

	"kusina-order-service/internal/order"
)

func TestDraftFromOrderRoundTrip(t *testing.T) {
	pax := 4
	o := order.Order{
		ID:          order.PersistedID("ORD-0042"),
		Type:        order.TypeDineIn,
		TableNumber: "7",
		Pax:         &pax,
		Items:       []order.LineItem{{Name: "Adobo", UnitPrice: 180, Quantity: 2}},
		Discount:    &order.Discount{Type: order.DiscountSenior, Percent: 20, HolderName: "Jose", HolderID: "SC-1"},
	}

	draft := DraftFromOrder(o)
	if !draft.EditMode {
		t.Fatal("resumed drafts must be in edit mode")
	}

	back := draft.ToOrder()
	if back.ID.String() != "ORD-0042" || back.ID.Provisional() {
		t.Fatalf("ID = %v (provisional=%v)", back.ID, back.ID.Provisional())
	}
	if back.TableNumber != "7" || back.Pax == nil || *back.Pax != 4 {
		t.Fatalf("table/pax lost: %q / %v", back.TableNumber, back.Pax)
	}
	if len(back.Items) != 1 || back.Items[0].Name != "Adobo" {
		t.Fatalf("items lost: %+v", back.Items)
	}
	if back.Discount == nil || back.Discount.Type != order.DiscountSenior {
		t.Fatalf("discount lost: %+v", back.Discount)
	}
}

func TestDraftOrderIDProvisional(t *testing.T) {
	d := Draft{OrderNumber: "LOCAL-17", Provisional: true}
	if !d.OrderID().Provisional() {
		t.Fatal("provisional flag not carried into OrderID")
	}

	if !(Draft{}).OrderID().IsZero() {
		t.Fatal("empty draft must produce a zero OrderID")
	}
}
