package delivery

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"
)

// Motorcycle couriers handle all restaurant deliveries; larger vehicle
// classes are never requested.
const serviceTypeMotorcycle = "MOTORCYCLE"

var ErrInvalidCoordinates = errors.New("latitude and longitude must be finite")

// Stop is one point on the courier route.
type Stop struct {
	Latitude  float64 `json:"-"`
	Longitude float64 `json:"-"`
	Address   string  `json:"address"`
}

// The courier API wants coordinates as strings.
func (s Stop) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Coordinates struct {
			Lat string `json:"lat"`
			Lng string `json:"lng"`
		} `json:"coordinates"`
		Address string `json:"address"`
	}{
		Coordinates: struct {
			Lat string `json:"lat"`
			Lng string `json:"lng"`
		}{
			Lat: strconv.FormatFloat(s.Latitude, 'f', 6, 64),
			Lng: strconv.FormatFloat(s.Longitude, 'f', 6, 64),
		},
		Address: s.Address,
	})
}

type Quote struct {
	QuoteID  string  `json:"quoteId,omitempty"`
	Fee      float64 `json:"fee"`
	Currency string  `json:"currency,omitempty"`
	// Fallback marks a flat-fee quote returned because the courier API was
	// unreachable; it carries no QuoteID and cannot be booked.
	Fallback bool `json:"fallback,omitempty"`
}

type Booking struct {
	BookingRef  string `json:"bookingRef"`
	ShareLink   string `json:"shareLink,omitempty"`
	DriverPhone string `json:"driverPhone,omitempty"`
}

// Client talks to the courier quotation/booking API.
type Client struct {
	BaseURL     string
	APIKey      string
	FallbackFee float64
	HTTP        *http.Client
	Log         *zap.Logger
}

func NewClient(baseURL, apiKey string, timeout time.Duration, fallbackFee float64, log *zap.Logger) *Client {
	return &Client{
		BaseURL:     baseURL,
		APIKey:      apiKey,
		FallbackFee: fallbackFee,
		HTTP:        &http.Client{Timeout: timeout},
		Log:         log,
	}
}

// deliveryItem describes the package on the courier contract. Restaurant
// orders always ship as one small food package.
type deliveryItem struct {
	Quantity string `json:"quantity"`
	Weight   string `json:"weight"`
}

var defaultItem = deliveryItem{Quantity: "1", Weight: "LESS_THAN_3KG"}

type quoteRequest struct {
	ServiceType string       `json:"serviceType"`
	Stops       []Stop       `json:"stops"`
	Item        deliveryItem `json:"item"`
}

type quoteResponse struct {
	QuotationID    string `json:"quotationId"`
	PriceBreakdown struct {
		Total    string `json:"total"`
		Currency string `json:"currency"`
	} `json:"priceBreakdown"`
}

// GetQuote prices a pickup-to-dropoff run. When the courier API errors or
// times out, the configured flat fallback fee is returned instead of failing
// the checkout.
func (c *Client) GetQuote(ctx context.Context, pickup, dropoff Stop) (Quote, error) {
	for _, stop := range []Stop{pickup, dropoff} {
		if !isFinite(stop.Latitude) || !isFinite(stop.Longitude) {
			return Quote{}, ErrInvalidCoordinates
		}
	}

	body, err := json.Marshal(quoteRequest{
		ServiceType: serviceTypeMotorcycle,
		Stops:       []Stop{pickup, dropoff},
		Item:        defaultItem,
	})
	if err != nil {
		return Quote{}, err
	}

	var parsed quoteResponse
	if err := c.post(ctx, "/v3/quotations", body, &parsed); err != nil {
		c.Log.Warn("courier quote failed, using fallback fee",
			zap.Float64("fallbackFee", c.FallbackFee),
			zap.Error(err))
		return Quote{Fee: c.FallbackFee, Fallback: true}, nil
	}

	fee, err := strconv.ParseFloat(parsed.PriceBreakdown.Total, 64)
	if err != nil {
		c.Log.Warn("courier quote returned unparseable total, using fallback fee",
			zap.String("total", parsed.PriceBreakdown.Total))
		return Quote{Fee: c.FallbackFee, Fallback: true}, nil
	}
	return Quote{
		QuoteID:  parsed.QuotationID,
		Fee:      fee,
		Currency: parsed.PriceBreakdown.Currency,
	}, nil
}

type bookingRequest struct {
	QuotationID string       `json:"quotationId"`
	Sender      contact      `json:"sender"`
	Recipient   contact      `json:"recipient"`
	Item        deliveryItem `json:"item"`
}

type contact struct {
	Name  string `json:"name"`
	Phone string `json:"phone"`
}

type bookingResponse struct {
	OrderID   string `json:"orderId"`
	ShareLink string `json:"shareLink"`
	Driver    struct {
		Phone string `json:"phone"`
	} `json:"driver"`
}

// Book places a courier order against a previously issued quote. Unlike
// quoting, booking has no fallback: a failed booking is a real error the
// cashier has to see.
func (c *Client) Book(ctx context.Context, quote Quote, senderName, senderPhone, recipientName, recipientPhone string) (Booking, error) {
	if quote.Fallback || quote.QuoteID == "" {
		return Booking{}, errors.New("cannot book a fallback quote")
	}
	body, err := json.Marshal(bookingRequest{
		QuotationID: quote.QuoteID,
		Sender:      contact{Name: senderName, Phone: senderPhone},
		Recipient:   contact{Name: recipientName, Phone: recipientPhone},
		Item:        defaultItem,
	})
	if err != nil {
		return Booking{}, err
	}

	var parsed bookingResponse
	if err := c.post(ctx, "/v3/orders", body, &parsed); err != nil {
		return Booking{}, err
	}
	return Booking{
		BookingRef:  parsed.OrderID,
		ShareLink:   parsed.ShareLink,
		DriverPhone: parsed.Driver.Phone,
	}, nil
}

func (c *Client) post(ctx context.Context, path string, body []byte, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+path, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.APIKey)

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("courier api returned %d", resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
