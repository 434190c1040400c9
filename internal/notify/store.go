package notify

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"kusina-order-service/internal/order"
	"kusina-order-service/internal/utils"
)

var (
	ErrNotFound        = errors.New("notification not found")
	ErrAlreadyResolved = errors.New("notification already resolved")
	ErrReasonRequired  = errors.New("decline reason is required")
)

type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusDeclined Status = "declined"
)

// Notification is one payment-verification request awaiting admin review.
// OrderNumber is empty when the proof could not be matched to any order.
type Notification struct {
	ID            string              `json:"id"`
	OrderNumber   string              `json:"orderNumber,omitempty"`
	Reference     string              `json:"referenceNumber"`
	CustomerName  string              `json:"customerName,omitempty"`
	CustomerPhone string              `json:"customerPhone,omitempty"`
	PaymentMethod order.PaymentMethod `json:"paymentMethod,omitempty"`
	Amount        float64             `json:"amount,omitempty"`
	ProofURL      string              `json:"proofUrl,omitempty"`
	Status        Status              `json:"status"`
	DeclineReason string              `json:"declineReason,omitempty"`
	Seen          bool                `json:"seen"`
	CreatedAt     time.Time           `json:"createdAt"`
	ResolvedAt    *time.Time          `json:"resolvedAt,omitempty"`
}

type Store struct {
	DB *pgxpool.Pool
}

func NewStore(db *pgxpool.Pool) *Store {
	return &Store{DB: db}
}

func (s *Store) Create(ctx context.Context, p Proof, orderNumber string) (Notification, error) {
	row := s.DB.QueryRow(ctx, `
		insert into notifications (
			order_number, reference, customer_name, customer_phone,
			payment_method, amount, proof_url, status, seen, created_at
		)
		values ($1, $2, $3, $4, $5, $6, $7, 'pending', false, now())
		returning id, order_number, reference, customer_name, customer_phone,
			payment_method, amount, proof_url, status, decline_reason, seen,
			created_at, resolved_at
	`, nullable(orderNumber), p.Reference, nullable(p.CustomerName), nullable(p.CustomerPhone),
		nullable(string(p.PaymentMethod)), p.Amount, nullable(p.ImageURL))
	return scanNotification(row)
}

func (s *Store) Get(ctx context.Context, id string) (Notification, error) {
	row := s.DB.QueryRow(ctx, `
		select id, order_number, reference, customer_name, customer_phone,
			payment_method, amount, proof_url, status, decline_reason, seen,
			created_at, resolved_at
		from notifications where id = $1
	`, id)
	n, err := scanNotification(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Notification{}, ErrNotFound
	}
	return n, err
}

func (s *Store) List(ctx context.Context, pendingOnly bool) ([]Notification, error) {
	query := `
		select id, order_number, reference, customer_name, customer_phone,
			payment_method, amount, proof_url, status, decline_reason, seen,
			created_at, resolved_at
		from notifications`
	if pendingOnly {
		query += ` where status = 'pending'`
	}
	query += ` order by created_at desc`

	rows, err := s.DB.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]Notification, 0)
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

// UnseenCount feeds the admin badge stream.
func (s *Store) UnseenCount(ctx context.Context) (int, error) {
	var count int
	err := s.DB.QueryRow(ctx,
		`select count(*) from notifications where not seen and status = 'pending'`,
	).Scan(&count)
	return count, err
}

// LinkOrder records the order a proof was matched to at resolution time.
func (s *Store) LinkOrder(ctx context.Context, id, orderNumber string) error {
	tag, err := s.DB.Exec(ctx,
		`update notifications set order_number = $2 where id = $1`, id, orderNumber)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Store) MarkSeen(ctx context.Context, id string) error {
	tag, err := s.DB.Exec(ctx,
		`update notifications set seen = true where id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Approve resolves a pending notification. The status guard in the update
// makes resolution first-writer-wins: a second admin clicking approve or
// decline gets ErrAlreadyResolved instead of silently flipping the outcome.
func (s *Store) Approve(ctx context.Context, id string) (Notification, error) {
	return s.resolve(ctx, id, StatusApproved, "")
}

func (s *Store) Decline(ctx context.Context, id string, reason string) (Notification, error) {
	if strings.TrimSpace(reason) == "" {
		return Notification{}, ErrReasonRequired
	}
	return s.resolve(ctx, id, StatusDeclined, strings.TrimSpace(reason))
}

func (s *Store) resolve(ctx context.Context, id string, status Status, reason string) (Notification, error) {
	tag, err := s.DB.Exec(ctx, `
		update notifications
		set status = $2, decline_reason = $3, resolved_at = now(), seen = true
		where id = $1 and status = 'pending'
	`, id, string(status), nullable(reason))
	if err != nil {
		return Notification{}, err
	}
	if tag.RowsAffected() == 0 {
		// Either missing or already resolved; disambiguate for the caller.
		if _, err := s.Get(ctx, id); errors.Is(err, ErrNotFound) {
			return Notification{}, ErrNotFound
		}
		return Notification{}, ErrAlreadyResolved
	}
	return s.Get(ctx, id)
}

func scanNotification(row pgx.Row) (Notification, error) {
	var (
		n             Notification
		orderNumber   pgtype.Text
		customerName  pgtype.Text
		customerPhone pgtype.Text
		paymentMethod pgtype.Text
		amount        pgtype.Numeric
		proofURL      pgtype.Text
		status        string
		declineReason pgtype.Text
		resolvedAt    pgtype.Timestamptz
	)
	err := row.Scan(&n.ID, &orderNumber, &n.Reference, &customerName, &customerPhone,
		&paymentMethod, &amount, &proofURL, &status, &declineReason, &n.Seen,
		&n.CreatedAt, &resolvedAt)
	if err != nil {
		return Notification{}, err
	}
	if orderNumber.Valid {
		n.OrderNumber = orderNumber.String
	}
	if customerName.Valid {
		n.CustomerName = customerName.String
	}
	if customerPhone.Valid {
		n.CustomerPhone = customerPhone.String
	}
	if paymentMethod.Valid {
		n.PaymentMethod = order.PaymentMethod(paymentMethod.String)
	}
	n.Amount = utils.NumericToFloat64(amount)
	if proofURL.Valid {
		n.ProofURL = proofURL.String
	}
	n.Status = Status(status)
	if declineReason.Valid {
		n.DeclineReason = declineReason.String
	}
	if resolvedAt.Valid {
		t := resolvedAt.Time
		n.ResolvedAt = &t
	}
	return n, nil
}

func nullable(value string) any {
	if value == "" {
		return nil
	}
	return value
}
