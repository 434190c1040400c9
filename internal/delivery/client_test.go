package delivery

import (
	"context"
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"go.uber.org/zap"
)

func testStops() (Stop, Stop) {
	pickup := Stop{Latitude: 14.5995, Longitude: 120.9842, Address: "Kusina Main Branch"}
	dropoff := Stop{Latitude: 14.5547, Longitude: 121.0244, Address: "Customer address"}
	return pickup, dropoff
}

func TestGetQuoteSendsMotorcycleServiceType(t *testing.T) {
	var got quoteRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v3/quotations" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode request: %v", err)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"quotationId": "Q-123",
			"priceBreakdown": map[string]string{
				"total":    "88.00",
				"currency": "PHP",
			},
		})
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "test-key", time.Second, 50, zap.NewNop())
	pickup, dropoff := testStops()
	quote, err := client.GetQuote(context.Background(), pickup, dropoff)
	if err != nil {
		t.Fatalf("GetQuote: %v", err)
	}

	if got.ServiceType != "MOTORCYCLE" {
		t.Fatalf("serviceType = %q, want MOTORCYCLE", got.ServiceType)
	}
	if len(got.Stops) != 2 {
		t.Fatalf("stops = %d, want 2", len(got.Stops))
	}
	if got.Item.Quantity != "1" || got.Item.Weight == "" {
		t.Fatalf("item = %+v, want single small package", got.Item)
	}
	if quote.QuoteID != "Q-123" || quote.Fee != 88 || quote.Fallback {
		t.Fatalf("quote = %+v", quote)
	}
}

func TestGetQuoteStopCoordinatesAreStrings(t *testing.T) {
	pickup, _ := testStops()
	raw, err := json.Marshal(pickup)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var decoded struct {
		Coordinates struct {
			Lat string `json:"lat"`
			Lng string `json:"lng"`
		} `json:"coordinates"`
	}
	if err := json.Unmarshal(raw, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if decoded.Coordinates.Lat != "14.599500" || decoded.Coordinates.Lng != "120.984200" {
		t.Fatalf("coordinates = %+v", decoded.Coordinates)
	}
}

func TestGetQuoteFallsBackWhenAPIUnreachable(t *testing.T) {
	client := NewClient("http://127.0.0.1:1", "test-key", 200*time.Millisecond, 50, zap.NewNop())
	pickup, dropoff := testStops()
	quote, err := client.GetQuote(context.Background(), pickup, dropoff)
	if err != nil {
		t.Fatalf("GetQuote: %v", err)
	}
	if !quote.Fallback || quote.Fee != 50 {
		t.Fatalf("quote = %+v, want fallback fee 50", quote)
	}
}

func TestGetQuoteFallsBackOnServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "test-key", time.Second, 75, zap.NewNop())
	pickup, dropoff := testStops()
	quote, err := client.GetQuote(context.Background(), pickup, dropoff)
	if err != nil {
		t.Fatalf("GetQuote: %v", err)
	}
	if !quote.Fallback || quote.Fee != 75 {
		t.Fatalf("quote = %+v, want fallback fee 75", quote)
	}
}

func TestGetQuoteRejectsNonFiniteCoordinates(t *testing.T) {
	client := NewClient("http://unused", "test-key", time.Second, 50, zap.NewNop())
	pickup, dropoff := testStops()
	pickup.Latitude = math.NaN()
	if _, err := client.GetQuote(context.Background(), pickup, dropoff); err != ErrInvalidCoordinates {
		t.Fatalf("err = %v, want ErrInvalidCoordinates", err)
	}
}

func TestBookRefusesFallbackQuote(t *testing.T) {
	client := NewClient("http://unused", "test-key", time.Second, 50, zap.NewNop())
	if _, err := client.Book(context.Background(), Quote{Fallback: true, Fee: 50}, "Kusina", "0917", "Maria", "0918"); err == nil {
		t.Fatal("booking a fallback quote should fail")
	}
}

func TestBookReturnsBookingRef(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v3/orders" {
			t.Errorf("path = %s", r.URL.Path)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"orderId":   "BK-777",
			"shareLink": "https://track.example/BK-777",
		})
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "test-key", time.Second, 50, zap.NewNop())
	booking, err := client.Book(context.Background(), Quote{QuoteID: "Q-1", Fee: 88}, "Kusina", "0917", "Maria", "0918")
	if err != nil {
		t.Fatalf("Book: %v", err)
	}
	if booking.BookingRef != "BK-777" {
		t.Fatalf("booking = %+v", booking)
	}
}
