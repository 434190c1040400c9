package order

import (
	"strconv"
	"time"
)

type Type string

const (
	TypeDineIn   Type = "Dine in"
	TypeTakeOut  Type = "Take out"
	TypeDelivery Type = "Delivery"
)

type Status string

const (
	StatusPendingPayment  Status = "Pending Payment"
	StatusInKitchen       Status = "In the Kitchen"
	StatusCompleted       Status = "Completed"
	StatusCancelled       Status = "Cancelled"
	StatusPaymentApproved Status = "Payment Approved"
	StatusPaymentDeclined Status = "Payment Declined"
)

type DiscountType string

const (
	DiscountNone    DiscountType = ""
	DiscountPWD     DiscountType = "PWD"
	DiscountSenior  DiscountType = "Senior Citizen"
	DiscountSpecial DiscountType = "Special"
)

// RequiresHolder reports whether the discount type needs a customer name and
// ID before the order may proceed.
func (d DiscountType) RequiresHolder() bool {
	return d == DiscountPWD || d == DiscountSenior
}

type PaymentMethod string

const (
	PaymentCash         PaymentMethod = "Cash"
	PaymentGCash        PaymentMethod = "GCash"
	PaymentCard         PaymentMethod = "Card"
	PaymentBankTransfer PaymentMethod = "Bank Transfer"
)

type LineItem struct {
	Name      string  `json:"name"`
	UnitPrice float64 `json:"unitPrice"`
	Quantity  int     `json:"quantity"`
	LineTotal float64 `json:"lineTotal"`
}

type Discount struct {
	Type       DiscountType `json:"type"`
	Percent    float64      `json:"percent,omitempty"`
	Amount     float64      `json:"amount"`
	HolderName string       `json:"holderName,omitempty"`
	HolderID   string       `json:"holderId,omitempty"`
}

type Payment struct {
	Method          PaymentMethod `json:"method"`
	AmountReceived  float64       `json:"amountReceived,omitempty"`
	Change          float64       `json:"change,omitempty"`
	ReferenceNumber string        `json:"referenceNumber,omitempty"`
	Total           float64       `json:"total"`
}

// OrderID distinguishes a confirmed backend identifier from a provisional one
// minted locally when the backend was unreachable. Callers branch on
// Provisional() instead of sniffing string prefixes.
type OrderID struct {
	value       string
	provisional bool
}

func PersistedID(value string) OrderID   { return OrderID{value: value} }
func ProvisionalID(value string) OrderID { return OrderID{value: value, provisional: true} }

func (id OrderID) String() string    { return id.value }
func (id OrderID) Provisional() bool { return id.provisional }
func (id OrderID) IsZero() bool      { return id.value == "" }

type Order struct {
	ID            OrderID
	Type          Type
	TableNumber   string
	Pax           *int
	Items         []LineItem
	Subtotal      float64
	Tax           float64
	Discount      *Discount
	Total         float64
	PaymentMethod PaymentMethod
	Payment       *Payment
	Status        Status
	CustomerName  string
	CustomerPhone string
	DeliveryRef   string
	DeclineReason string

	InventoryRestored bool

	CreatedAt       time.Time
	UpdatedAt       time.Time
	SentToKitchenAt *time.Time
	ApprovedAt      *time.Time
	DeclinedAt      *time.Time
}

// PaxLabel renders the pax count for display. Dine-in orders with no pax
// entered show "N/A"; that is distinct from an explicit zero.
func (o Order) PaxLabel() string {
	if o.Pax == nil {
		return "N/A"
	}
	return strconv.Itoa(*o.Pax)
}

// ShowsTable reports whether table/pax fields apply to this order at all.
// Take-out and delivery orders suppress them entirely.
func (o Order) ShowsTable() bool {
	return o.Type == TypeDineIn
}

func (o Order) DiscountType() DiscountType {
	if o.Discount == nil {
		return DiscountNone
	}
	return o.Discount.Type
}
