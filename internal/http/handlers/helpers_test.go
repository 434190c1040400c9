package handlers

import (
	"net/http/httptest"
	"strings"
	"testing"

	"kusina-order-service/internal/order"
)

func TestValidateProofReference(t *testing.T) {
	tests := []struct {
		name      string
		reference string
		want      bool
	}{
		{"plain digits", "12345", true},
		{"surrounding whitespace trimmed", " 12345 ", true},
		{"embedded separators", "12-34 5", false},
		{"too short", "AB12", false},
		{"only punctuation", "-----", false},
		{"punctuation padding", "!!AB1-2C**", false},
		{"trailing punctuation", "ABCDE!!!!!", false},
		{"mixed case letters", "Ref9x", true},
		{"empty", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := validateProofReference(tt.reference, 5); got != tt.want {
				t.Fatalf("validateProofReference(%q) = %v, want %v", tt.reference, got, tt.want)
			}
		})
	}
}

func TestDecodeOptionalJSONToleratesEmptyBody(t *testing.T) {
	var body struct {
		SessionKey string `json:"sessionKey"`
	}

	r := httptest.NewRequest("POST", "/api/pos/orders/ORD-1/cancel", nil)
	decodeOptionalJSON(r, &body)
	if body.SessionKey != "" {
		t.Fatalf("SessionKey = %q, want empty", body.SessionKey)
	}

	r = httptest.NewRequest("POST", "/api/pos/orders/ORD-1/cancel",
		strings.NewReader(`{"sessionKey":"till-3"}`))
	decodeOptionalJSON(r, &body)
	if body.SessionKey != "till-3" {
		t.Fatalf("SessionKey = %q, want till-3", body.SessionKey)
	}
}

func TestOrderPayloadSuppressesTableForTakeOut(t *testing.T) {
	o := order.Order{
		ID:          order.PersistedID("ORD-7"),
		Type:        order.TypeTakeOut,
		TableNumber: "12",
	}
	payload := orderPayload(o)
	if _, ok := payload["tableNumber"]; ok {
		t.Fatal("take-out orders must not expose table fields")
	}

	o.Type = order.TypeDineIn
	payload = orderPayload(o)
	if payload["tableNumber"] != "12" {
		t.Fatalf("tableNumber = %v, want 12", payload["tableNumber"])
	}
	if payload["pax"] != "N/A" {
		t.Fatalf("pax = %v, want N/A when not entered", payload["pax"])
	}
}
