package session

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"kusina-order-service/internal/order"
)

var ErrNoDraft = errors.New("no draft for session")

// Draft is the POS terminal's in-progress order: everything the cashier has
// keyed in but not yet committed. One draft per terminal session; resuming a
// parked order loads its record into the draft with EditMode set.
type Draft struct {
	OrderNumber   string              `json:"orderNumber,omitempty"`
	Provisional   bool                `json:"provisional,omitempty"`
	Type          order.Type          `json:"orderType,omitempty"`
	TableNumber   string              `json:"tableNumber,omitempty"`
	Pax           *int                `json:"pax,omitempty"`
	Items         []order.LineItem    `json:"items,omitempty"`
	Discount      *order.Discount     `json:"discount,omitempty"`
	PaymentMethod order.PaymentMethod `json:"paymentMethod,omitempty"`
	CustomerName  string              `json:"customerName,omitempty"`
	CustomerPhone string              `json:"customerPhone,omitempty"`

	// EditMode marks a draft loaded from a parked order rather than started
	// fresh; committing it patches the existing record instead of creating.
	EditMode bool `json:"editMode,omitempty"`
}

func (d Draft) OrderID() order.OrderID {
	if d.OrderNumber == "" {
		return order.OrderID{}
	}
	if d.Provisional {
		return order.ProvisionalID(d.OrderNumber)
	}
	return order.PersistedID(d.OrderNumber)
}

// ToOrder shapes the draft for the state machine.
func (d Draft) ToOrder() order.Order {
	return order.Order{
		ID:            d.OrderID(),
		Type:          d.Type,
		TableNumber:   d.TableNumber,
		Pax:           d.Pax,
		Items:         d.Items,
		Discount:      d.Discount,
		PaymentMethod: d.PaymentMethod,
		CustomerName:  d.CustomerName,
		CustomerPhone: d.CustomerPhone,
	}
}

// DraftFromOrder seeds an edit-mode draft from a parked order record.
func DraftFromOrder(o order.Order) Draft {
	return Draft{
		OrderNumber:   o.ID.String(),
		Provisional:   o.ID.Provisional(),
		Type:          o.Type,
		TableNumber:   o.TableNumber,
		Pax:           o.Pax,
		Items:         o.Items,
		Discount:      o.Discount,
		PaymentMethod: o.PaymentMethod,
		CustomerName:  o.CustomerName,
		CustomerPhone: o.CustomerPhone,
		EditMode:      true,
	}
}

type Store struct {
	DB *pgxpool.Pool
}

func NewStore(db *pgxpool.Pool) *Store {
	return &Store{DB: db}
}

func (s *Store) Save(ctx context.Context, sessionKey string, d Draft) error {
	payload, err := json.Marshal(d)
	if err != nil {
		return err
	}
	_, err = s.DB.Exec(ctx, `
		insert into pos_sessions (session_key, draft, updated_at)
		values ($1, $2, now())
		on conflict (session_key) do update set draft = excluded.draft, updated_at = now()
	`, sessionKey, payload)
	return err
}

func (s *Store) Load(ctx context.Context, sessionKey string) (Draft, error) {
	var payload []byte
	err := s.DB.QueryRow(ctx,
		`select draft from pos_sessions where session_key = $1`, sessionKey,
	).Scan(&payload)
	if errors.Is(err, pgx.ErrNoRows) {
		return Draft{}, ErrNoDraft
	}
	if err != nil {
		return Draft{}, err
	}
	var d Draft
	if err := json.Unmarshal(payload, &d); err != nil {
		return Draft{}, err
	}
	return d, nil
}

// Clear wipes the terminal's draft, the "start new order" reset.
func (s *Store) Clear(ctx context.Context, sessionKey string) error {
	_, err := s.DB.Exec(ctx,
		`delete from pos_sessions where session_key = $1`, sessionKey)
	return err
}
