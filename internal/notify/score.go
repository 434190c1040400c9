package notify

import (
	"errors"
	"strings"

	"kusina-order-service/internal/order"
)

var ErrNoMatchingOrder = errors.New("no order matches the submitted proof")

// Match weights. Reference numbers are near-unique so they dominate; the
// softer signals only break ties.
const (
	scoreReference     = 10
	scoreCustomerName  = 5
	scoreCustomerPhone = 3
	scorePaymentMethod = 2
)

// Proof is what a customer submits from the public payment page. JSON
// submissions carry the receipt screenshot inline as ImageBase64; multipart
// submissions attach it as a file instead.
type Proof struct {
	Reference     string              `json:"referenceNumber"`
	CustomerName  string              `json:"customerName"`
	CustomerPhone string              `json:"customerPhone"`
	PaymentMethod order.PaymentMethod `json:"paymentMethod"`
	Amount        float64             `json:"amount"`
	ImageBase64   string              `json:"imageBase64,omitempty"`
	ImageURL      string              `json:"imageUrl,omitempty"`
}

// ProofFromNotification reconstructs the submitted proof from its stored
// record, so resolution can re-run the match against orders that arrived
// after the proof did.
func ProofFromNotification(n Notification) Proof {
	return Proof{
		Reference:     n.Reference,
		CustomerName:  n.CustomerName,
		CustomerPhone: n.CustomerPhone,
		PaymentMethod: n.PaymentMethod,
		Amount:        n.Amount,
	}
}

// Score rates how well a pending order matches a submitted proof. Zero means
// no signal at all.
func Score(o order.Order, p Proof) int {
	score := 0
	if ref := normalize(p.Reference); ref != "" {
		if o.Payment != nil && normalize(o.Payment.ReferenceNumber) == ref {
			score += scoreReference
		} else if normalize(o.ID.String()) == ref {
			score += scoreReference
		}
	}
	if name := normalize(p.CustomerName); name != "" && name == normalize(o.CustomerName) {
		score += scoreCustomerName
	}
	if phone := normalizePhone(p.CustomerPhone); phone != "" && phone == normalizePhone(o.CustomerPhone) {
		score += scoreCustomerPhone
	}
	if p.PaymentMethod != "" && p.PaymentMethod == o.PaymentMethod {
		score += scorePaymentMethod
	}
	return score
}

// BestMatch picks the highest-scoring order for a proof. Ties go to the most
// recently created order. A zero best score is ErrNoMatchingOrder: the proof
// is stored anyway, but unlinked.
func BestMatch(candidates []order.Order, p Proof) (order.Order, error) {
	var (
		best      order.Order
		bestScore int
	)
	for _, candidate := range candidates {
		s := Score(candidate, p)
		if s > bestScore || (s == bestScore && s > 0 && candidate.CreatedAt.After(best.CreatedAt)) {
			best = candidate
			bestScore = s
		}
	}
	if bestScore == 0 {
		return order.Order{}, ErrNoMatchingOrder
	}
	return best, nil
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func normalizePhone(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	digits := b.String()
	// Local numbers are written both as 09xx and +639xx.
	if strings.HasPrefix(digits, "63") && len(digits) > 2 {
		digits = "0" + digits[2:]
	}
	return digits
}
