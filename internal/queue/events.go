package queue

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	amqp "github.com/rabbitmq/amqp091-go"
)

// All order-flow events fan out through one topic exchange. A worker turns
// them into delivery-ready jobs on direct exchanges with dead-letter queues.
const (
	EventsExchange = "kusina.events"
	EventsQueue    = "kusina.notifications"

	AdminAlertExchange = "kusina.admin_alerts"
	AdminAlertQueue    = "kusina.admin_alerts.process"
	AdminAlertDLQ      = "kusina.admin_alerts.dlq"
	AdminAlertRK       = "process"
	AdminAlertDeadRK   = "dead"

	CustomerSMSExchange = "kusina.customer_sms"
	CustomerSMSQueue    = "kusina.customer_sms.send"
	CustomerSMSDLQ      = "kusina.customer_sms.dlq"
	CustomerSMSRK       = "send"
	CustomerSMSDeadRK   = "dead"

	EventOrderStatusUpdated = "order.status.updated"
	EventProofSubmitted     = "payment.proof.submitted"
	EventStockDepleted      = "inventory.stock.depleted"
)

type OrderStatusUpdatedEvent struct {
	Type        string    `json:"type"`
	OrderNumber string    `json:"orderNumber"`
	Status      string    `json:"status"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

type ProofSubmittedEvent struct {
	Type           string    `json:"type"`
	NotificationID string    `json:"notificationId"`
	OrderNumber    string    `json:"orderNumber,omitempty"`
	SubmittedAt    time.Time `json:"submittedAt"`
}

// PublishOrderStatusUpdated is best-effort: a nil client or a broker error
// never blocks the order flow itself.
func PublishOrderStatusUpdated(ctx context.Context, qc *Client, orderNumber, status string) error {
	if qc == nil {
		return nil
	}
	return qc.PublishJSON(ctx, EventsExchange, EventOrderStatusUpdated, OrderStatusUpdatedEvent{
		Type:        EventOrderStatusUpdated,
		OrderNumber: orderNumber,
		Status:      status,
		UpdatedAt:   time.Now().UTC(),
	})
}

func PublishProofSubmitted(ctx context.Context, qc *Client, notificationID, orderNumber string) error {
	if qc == nil {
		return nil
	}
	return qc.PublishJSON(ctx, EventsExchange, EventProofSubmitted, ProofSubmittedEvent{
		Type:           EventProofSubmitted,
		NotificationID: notificationID,
		OrderNumber:    orderNumber,
		SubmittedAt:    time.Now().UTC(),
	})
}

type StockDepletedEvent struct {
	Type  string    `json:"type"`
	Items []string  `json:"items"`
	At    time.Time `json:"at"`
}

// PublishStockDepleted flags items at or below their low-stock threshold so
// the admin hears about it without watching the inventory screen.
func PublishStockDepleted(ctx context.Context, qc *Client, items []string) error {
	if qc == nil || len(items) == 0 {
		return nil
	}
	return qc.PublishJSON(ctx, EventsExchange, EventStockDepleted, StockDepletedEvent{
		Type:  EventStockDepleted,
		Items: items,
		At:    time.Now().UTC(),
	})
}

func EnsureEventsTopology(ctx context.Context, qc *Client) error {
	if qc == nil {
		return nil
	}
	if err := qc.EnsureExchange(EventsExchange); err != nil {
		return err
	}
	if _, err := qc.EnsureQueue(EventsQueue); err != nil {
		return err
	}
	// Both event kinds land on one worker queue.
	return qc.BindQueue(EventsQueue, EventsExchange, "#")
}

func EnsureAdminAlertTopology(ctx context.Context, qc *Client) error {
	return ensureJobTopology(qc, AdminAlertExchange, AdminAlertQueue, AdminAlertDLQ, AdminAlertRK, AdminAlertDeadRK)
}

func EnsureCustomerSMSTopology(ctx context.Context, qc *Client) error {
	return ensureJobTopology(qc, CustomerSMSExchange, CustomerSMSQueue, CustomerSMSDLQ, CustomerSMSRK, CustomerSMSDeadRK)
}

func ensureJobTopology(qc *Client, exchange, queueName, dlq, rk, deadRK string) error {
	if qc == nil {
		return nil
	}
	if err := qc.EnsureExchangeKind(exchange, "direct"); err != nil {
		return err
	}
	if _, err := qc.EnsureQueue(dlq); err != nil {
		return err
	}
	if err := qc.BindQueue(dlq, exchange, deadRK); err != nil {
		return err
	}
	if _, err := qc.EnsureQueueWithArgs(queueName, amqp.Table{
		"x-dead-letter-exchange":    exchange,
		"x-dead-letter-routing-key": deadRK,
	}); err != nil {
		return err
	}
	return qc.BindQueue(queueName, exchange, rk)
}

// ProcessEventToJobs turns one event into the concrete delivery jobs the
// downstream senders consume.
func ProcessEventToJobs(ctx context.Context, db *pgxpool.Pool, qc *Client, body []byte) error {
	if db == nil || qc == nil {
		return nil
	}

	var envelope struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return err
	}

	switch strings.TrimSpace(envelope.Type) {
	case EventProofSubmitted:
		return proofSubmittedJobs(ctx, db, qc, body)
	case EventOrderStatusUpdated:
		return statusUpdatedJobs(ctx, db, qc, body)
	case EventStockDepleted:
		return stockDepletedJobs(ctx, qc, body)
	default:
		// Unknown envelopes are dropped, not retried.
		return nil
	}
}

func proofSubmittedJobs(ctx context.Context, db *pgxpool.Pool, qc *Client, body []byte) error {
	var evt ProofSubmittedEvent
	if err := json.Unmarshal(body, &evt); err != nil {
		return err
	}

	var (
		reference    string
		customerName *string
		amount       *float64
	)
	err := db.QueryRow(ctx, `
		select reference, customer_name, amount from notifications where id = $1
	`, evt.NotificationID).Scan(&reference, &customerName, &amount)
	if err != nil {
		return err
	}

	job := map[string]any{
		"kind":           "push.admin_payment_review",
		"notificationId": evt.NotificationID,
		"orderNumber":    evt.OrderNumber,
		"reference":      reference,
		"customerName":   customerName,
		"amount":         amount,
		"createdAt":      time.Now().UTC().Format(time.RFC3339),
		"attempt":        1,
	}
	return qc.PublishJSON(ctx, AdminAlertExchange, AdminAlertRK, job)
}

func stockDepletedJobs(ctx context.Context, qc *Client, body []byte) error {
	var evt StockDepletedEvent
	if err := json.Unmarshal(body, &evt); err != nil {
		return err
	}
	if len(evt.Items) == 0 {
		return nil
	}
	job := map[string]any{
		"kind":      "push.admin_stock_alert",
		"items":     evt.Items,
		"createdAt": time.Now().UTC().Format(time.RFC3339),
		"attempt":   1,
	}
	return qc.PublishJSON(ctx, AdminAlertExchange, AdminAlertRK, job)
}

func statusUpdatedJobs(ctx context.Context, db *pgxpool.Pool, qc *Client, body []byte) error {
	var evt OrderStatusUpdatedEvent
	if err := json.Unmarshal(body, &evt); err != nil {
		return err
	}

	// Customers only hear about verification outcomes.
	kind := ""
	switch evt.Status {
	case "Payment Approved":
		kind = "sms.payment_approved"
	case "Payment Declined":
		kind = "sms.payment_declined"
	default:
		return nil
	}

	var (
		phone         *string
		declineReason *string
	)
	err := db.QueryRow(ctx, `
		select customer_phone, decline_reason from orders where order_number = $1
	`, evt.OrderNumber).Scan(&phone, &declineReason)
	if err != nil {
		return err
	}
	if phone == nil || strings.TrimSpace(*phone) == "" {
		return nil
	}

	job := map[string]any{
		"kind":        kind,
		"orderNumber": evt.OrderNumber,
		"phone":       *phone,
		"createdAt":   time.Now().UTC().Format(time.RFC3339),
		"attempt":     1,
	}
	if kind == "sms.payment_declined" && declineReason != nil {
		job["reason"] = *declineReason
	}
	return qc.PublishJSON(ctx, CustomerSMSExchange, CustomerSMSRK, job)
}
