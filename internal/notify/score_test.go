package notify

import (
	"errors"
	"testing"
	"time"

	"kusina-order-service/internal/order"
)

func pendingOrder(number, name, phone string, method order.PaymentMethod, ref string) order.Order {
	o := order.Order{
		ID:            order.PersistedID(number),
		Type:          order.TypeDelivery,
		Status:        order.StatusPendingPayment,
		CustomerName:  name,
		CustomerPhone: phone,
		PaymentMethod: method,
		CreatedAt:     time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC),
	}
	if ref != "" {
		o.Payment = &order.Payment{Method: method, ReferenceNumber: ref}
	}
	return o
}

func TestScoreWeights(t *testing.T) {
	o := pendingOrder("ORD-2001", "Maria Santos", "09171234567", order.PaymentGCash, "GC-99887766")

	tests := []struct {
		name  string
		proof Proof
		want  int
	}{
		{
			name:  "reference only",
			proof: Proof{Reference: "GC-99887766"},
			want:  10,
		},
		{
			name:  "name only",
			proof: Proof{CustomerName: "maria santos"},
			want:  5,
		},
		{
			name:  "phone only international form",
			proof: Proof{CustomerPhone: "+63 917 123 4567"},
			want:  3,
		},
		{
			name:  "payment method only",
			proof: Proof{PaymentMethod: order.PaymentGCash},
			want:  2,
		},
		{
			name: "everything",
			proof: Proof{
				Reference:     "gc-99887766",
				CustomerName:  "Maria Santos",
				CustomerPhone: "09171234567",
				PaymentMethod: order.PaymentGCash,
			},
			want: 20,
		},
		{
			name:  "nothing",
			proof: Proof{Reference: "X-000", CustomerName: "Juan"},
			want:  0,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Score(o, tt.proof); got != tt.want {
				t.Fatalf("Score = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestScoreMatchesOrderNumberAsReference(t *testing.T) {
	o := pendingOrder("ORD-2002", "", "", order.PaymentGCash, "")
	if got := Score(o, Proof{Reference: "ord-2002"}); got != 10 {
		t.Fatalf("Score = %d, want 10", got)
	}
}

func TestBestMatchPicksHighestScore(t *testing.T) {
	candidates := []order.Order{
		pendingOrder("ORD-1", "Ana Cruz", "09170000001", order.PaymentGCash, ""),
		pendingOrder("ORD-2", "Maria Santos", "09171234567", order.PaymentGCash, "GC-555"),
		pendingOrder("ORD-3", "Maria Santos", "09999999999", order.PaymentCard, ""),
	}
	best, err := BestMatch(candidates, Proof{
		Reference:     "GC-555",
		CustomerName:  "Maria Santos",
		PaymentMethod: order.PaymentGCash,
	})
	if err != nil {
		t.Fatalf("BestMatch: %v", err)
	}
	if best.ID.String() != "ORD-2" {
		t.Fatalf("best = %s, want ORD-2", best.ID)
	}
}

func TestBestMatchZeroScoreIsError(t *testing.T) {
	candidates := []order.Order{
		pendingOrder("ORD-1", "Ana Cruz", "09170000001", order.PaymentGCash, ""),
	}
	_, err := BestMatch(candidates, Proof{Reference: "NOPE", CustomerName: "Pedro"})
	if !errors.Is(err, ErrNoMatchingOrder) {
		t.Fatalf("err = %v, want ErrNoMatchingOrder", err)
	}
}

func TestUnlinkedNotificationRematchesAtResolution(t *testing.T) {
	// The proof arrived before its order did, so it was stored unlinked.
	n := Notification{
		ID:            "n-1",
		Reference:     "GC-424242",
		CustomerName:  "Maria Santos",
		CustomerPhone: "09171234567",
		PaymentMethod: order.PaymentGCash,
		Status:        StatusPending,
	}

	// No pending order yet: approval must surface the explicit no-match error.
	if _, err := BestMatch(nil, ProofFromNotification(n)); !errors.Is(err, ErrNoMatchingOrder) {
		t.Fatalf("err = %v, want ErrNoMatchingOrder", err)
	}

	// Once the order lands, re-scoring the same stored proof links it.
	late := pendingOrder("ORD-9001", "Maria Santos", "09171234567", order.PaymentGCash, "GC-424242")
	best, err := BestMatch([]order.Order{late}, ProofFromNotification(n))
	if err != nil {
		t.Fatalf("BestMatch: %v", err)
	}
	if best.ID.String() != "ORD-9001" {
		t.Fatalf("best = %s, want ORD-9001", best.ID)
	}
}

func TestBestMatchTieGoesToNewestOrder(t *testing.T) {
	older := pendingOrder("ORD-old", "Maria Santos", "", order.PaymentGCash, "")
	newer := pendingOrder("ORD-new", "Maria Santos", "", order.PaymentGCash, "")
	newer.CreatedAt = older.CreatedAt.Add(time.Hour)

	best, err := BestMatch([]order.Order{older, newer}, Proof{CustomerName: "Maria Santos"})
	if err != nil {
		t.Fatalf("BestMatch: %v", err)
	}
	if best.ID.String() != "ORD-new" {
		t.Fatalf("best = %s, want ORD-new", best.ID)
	}
}
