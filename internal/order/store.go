package order

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"kusina-order-service/internal/utils"
)

var ErrNotFound = errors.New("order not found")

// Store is the order record store: one row per order, keyed by the
// human-meaningful order number assigned at the POS. Three surfaces (POS,
// payment, shipping) write the same record; every write is a field-level
// merge, never a blind replace, and last writer wins per field.
type Store struct {
	DB *pgxpool.Pool
}

func NewStore(db *pgxpool.Pool) *Store {
	return &Store{DB: db}
}

// Patch carries only the fields a surface intends to write. Nil pointers are
// left untouched in the stored record.
type Patch struct {
	Status        *Status
	Type          *Type
	TableNumber   *string
	Pax           *int
	Items         []LineItem
	Subtotal      *float64
	Tax           *float64
	Total         *float64
	Discount      *Discount
	ClearDiscount bool
	PaymentMethod *PaymentMethod
	Payment       *Payment
	CustomerName  *string
	CustomerPhone *string
	DeliveryRef   *string
	DeclineReason *string

	SentToKitchenAt   *time.Time
	ApprovedAt        *time.Time
	DeclinedAt        *time.Time
	InventoryRestored *bool
}

func (s *Store) Create(ctx context.Context, o Order) error {
	items, err := json.Marshal(o.Items)
	if err != nil {
		return err
	}
	var payment []byte
	if o.Payment != nil {
		if payment, err = json.Marshal(o.Payment); err != nil {
			return err
		}
	}

	var (
		discountType    *string
		discountPercent *float64
		discountAmount  *float64
		discountName    *string
		discountID      *string
	)
	if o.Discount != nil {
		t := string(o.Discount.Type)
		discountType = &t
		discountPercent = &o.Discount.Percent
		discountAmount = &o.Discount.Amount
		if o.Discount.HolderName != "" {
			discountName = &o.Discount.HolderName
		}
		if o.Discount.HolderID != "" {
			discountID = &o.Discount.HolderID
		}
	}

	_, err = s.DB.Exec(ctx, `
		insert into orders (
			order_number, order_type, table_number, pax, items,
			subtotal, tax, discount_type, discount_percent, discount_amount,
			discount_name, discount_id, total, payment_method, payment,
			status, customer_name, customer_phone, delivery_ref,
			provisional, inventory_restored, created_at, updated_at
		)
		values (
			$1,$2,$3,$4,$5,
			$6,$7,$8,$9,$10,
			$11,$12,$13,$14,$15,
			$16,$17,$18,$19,
			$20,false, now(), now()
		)
	`,
		o.ID.String(), string(o.Type), nilIfEmpty(o.TableNumber), o.Pax, items,
		o.Subtotal, o.Tax, discountType, discountPercent, discountAmount,
		discountName, discountID, o.Total, nilIfEmpty(string(o.PaymentMethod)), payment,
		string(o.Status), nilIfEmpty(o.CustomerName), nilIfEmpty(o.CustomerPhone), nilIfEmpty(o.DeliveryRef),
		o.ID.Provisional(),
	)
	return err
}

// Exists is the check every surface runs before writing: the POS, payment and
// shipping pages may each be the first to persist a given order number.
func (s *Store) Exists(ctx context.Context, orderNumber string) (bool, error) {
	var exists bool
	err := s.DB.QueryRow(ctx,
		`select exists(select 1 from orders where order_number = $1)`, orderNumber,
	).Scan(&exists)
	return exists, err
}

// Upsert merges the patch into an existing record, or creates a fresh record
// when none exists yet.
func (s *Store) Upsert(ctx context.Context, orderNumber string, p Patch) error {
	exists, err := s.Exists(ctx, orderNumber)
	if err != nil {
		return err
	}
	if !exists {
		return s.createFromPatch(ctx, orderNumber, p)
	}
	return s.merge(ctx, orderNumber, p)
}

func (s *Store) merge(ctx context.Context, orderNumber string, p Patch) error {
	set := []string{"updated_at = now()"}
	args := []any{orderNumber}
	add := func(column string, value any) {
		args = append(args, value)
		set = append(set, fmt.Sprintf("%s = $%d", column, len(args)))
	}

	if p.Status != nil {
		add("status", string(*p.Status))
	}
	if p.Type != nil {
		add("order_type", string(*p.Type))
	}
	if p.TableNumber != nil {
		add("table_number", nilIfEmpty(*p.TableNumber))
	}
	if p.Pax != nil {
		add("pax", *p.Pax)
	}
	if p.Items != nil {
		items, err := json.Marshal(p.Items)
		if err != nil {
			return err
		}
		add("items", items)
	}
	if p.Subtotal != nil {
		add("subtotal", *p.Subtotal)
	}
	if p.Tax != nil {
		add("tax", *p.Tax)
	}
	if p.Total != nil {
		add("total", *p.Total)
	}
	if p.ClearDiscount {
		// Zero discount strips the fields from the record entirely.
		set = append(set,
			"discount_type = null", "discount_percent = null", "discount_amount = null",
			"discount_name = null", "discount_id = null")
	} else if p.Discount != nil {
		add("discount_type", string(p.Discount.Type))
		add("discount_percent", p.Discount.Percent)
		add("discount_amount", p.Discount.Amount)
		add("discount_name", nilIfEmpty(p.Discount.HolderName))
		add("discount_id", nilIfEmpty(p.Discount.HolderID))
	}
	if p.PaymentMethod != nil {
		add("payment_method", string(*p.PaymentMethod))
	}
	if p.Payment != nil {
		payment, err := json.Marshal(p.Payment)
		if err != nil {
			return err
		}
		add("payment", payment)
	}
	if p.CustomerName != nil {
		add("customer_name", nilIfEmpty(*p.CustomerName))
	}
	if p.CustomerPhone != nil {
		add("customer_phone", nilIfEmpty(*p.CustomerPhone))
	}
	if p.DeliveryRef != nil {
		add("delivery_ref", nilIfEmpty(*p.DeliveryRef))
	}
	if p.DeclineReason != nil {
		add("decline_reason", nilIfEmpty(*p.DeclineReason))
	}
	if p.SentToKitchenAt != nil {
		add("sent_to_kitchen_at", *p.SentToKitchenAt)
	}
	if p.ApprovedAt != nil {
		add("approved_at", *p.ApprovedAt)
	}
	if p.DeclinedAt != nil {
		add("declined_at", *p.DeclinedAt)
	}
	if p.InventoryRestored != nil {
		add("inventory_restored", *p.InventoryRestored)
	}

	query := "update orders set "
	for i, clause := range set {
		if i > 0 {
			query += ", "
		}
		query += clause
	}
	query += " where order_number = $1"

	tag, err := s.DB.Exec(ctx, query, args...)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Store) createFromPatch(ctx context.Context, orderNumber string, p Patch) error {
	o := Order{ID: PersistedID(orderNumber), Status: StatusPendingPayment}
	if p.Status != nil {
		o.Status = *p.Status
	}
	if p.Type != nil {
		o.Type = *p.Type
	}
	if p.TableNumber != nil {
		o.TableNumber = *p.TableNumber
	}
	o.Pax = p.Pax
	o.Items = p.Items
	if p.Subtotal != nil {
		o.Subtotal = *p.Subtotal
	}
	if p.Tax != nil {
		o.Tax = *p.Tax
	}
	if p.Total != nil {
		o.Total = *p.Total
	}
	if !p.ClearDiscount {
		o.Discount = p.Discount
	}
	if p.PaymentMethod != nil {
		o.PaymentMethod = *p.PaymentMethod
	}
	o.Payment = p.Payment
	if p.CustomerName != nil {
		o.CustomerName = *p.CustomerName
	}
	if p.CustomerPhone != nil {
		o.CustomerPhone = *p.CustomerPhone
	}
	if p.DeliveryRef != nil {
		o.DeliveryRef = *p.DeliveryRef
	}
	return s.Create(ctx, o)
}

const orderColumns = `
	order_number, order_type, table_number, pax, items,
	subtotal, tax, discount_type, discount_percent, discount_amount,
	discount_name, discount_id, total, payment_method, payment,
	status, customer_name, customer_phone, delivery_ref, decline_reason,
	provisional, inventory_restored,
	created_at, updated_at, sent_to_kitchen_at, approved_at, declined_at
`

func (s *Store) Get(ctx context.Context, orderNumber string) (Order, error) {
	row := s.DB.QueryRow(ctx,
		`select `+orderColumns+` from orders where order_number = $1`, orderNumber)
	o, err := scanOrder(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Order{}, ErrNotFound
	}
	return o, err
}

// ListByStatus returns orders in the given status, newest first. Used by the
// admin surfaces and by payment-verification matching.
func (s *Store) ListByStatus(ctx context.Context, status Status) ([]Order, error) {
	rows, err := s.DB.Query(ctx,
		`select `+orderColumns+` from orders where status = $1 order by created_at desc`,
		string(status))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	orders := make([]Order, 0)
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, o)
	}
	return orders, rows.Err()
}

func (s *Store) Delete(ctx context.Context, orderNumber string) error {
	tag, err := s.DB.Exec(ctx, `delete from orders where order_number = $1`, orderNumber)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func scanOrder(row pgx.Row) (Order, error) {
	var (
		o               Order
		number          string
		orderType       string
		tableNumber     pgtype.Text
		pax             pgtype.Int4
		items           []byte
		subtotal        pgtype.Numeric
		tax             pgtype.Numeric
		discountType    pgtype.Text
		discountPercent pgtype.Numeric
		discountAmount  pgtype.Numeric
		discountName    pgtype.Text
		discountID      pgtype.Text
		total           pgtype.Numeric
		paymentMethod   pgtype.Text
		payment         []byte
		status          string
		customerName    pgtype.Text
		customerPhone   pgtype.Text
		deliveryRef     pgtype.Text
		declineReason   pgtype.Text
		provisional     bool
		createdAt       pgtype.Timestamptz
		updatedAt       pgtype.Timestamptz
		sentToKitchenAt pgtype.Timestamptz
		approvedAt      pgtype.Timestamptz
		declinedAt      pgtype.Timestamptz
	)

	err := row.Scan(
		&number, &orderType, &tableNumber, &pax, &items,
		&subtotal, &tax, &discountType, &discountPercent, &discountAmount,
		&discountName, &discountID, &total, &paymentMethod, &payment,
		&status, &customerName, &customerPhone, &deliveryRef, &declineReason,
		&provisional, &o.InventoryRestored,
		&createdAt, &updatedAt, &sentToKitchenAt, &approvedAt, &declinedAt,
	)
	if err != nil {
		return Order{}, err
	}

	if provisional {
		o.ID = ProvisionalID(number)
	} else {
		o.ID = PersistedID(number)
	}
	o.Type = Type(orderType)
	o.TableNumber = textOr(tableNumber)
	if pax.Valid {
		v := int(pax.Int32)
		o.Pax = &v
	}
	if len(items) > 0 {
		if err := json.Unmarshal(items, &o.Items); err != nil {
			return Order{}, err
		}
	}
	o.Subtotal = utils.NumericToFloat64(subtotal)
	o.Tax = utils.NumericToFloat64(tax)
	o.Total = utils.NumericToFloat64(total)
	if discountType.Valid && discountType.String != "" {
		o.Discount = &Discount{
			Type:       DiscountType(discountType.String),
			Percent:    utils.NumericToFloat64(discountPercent),
			Amount:     utils.NumericToFloat64(discountAmount),
			HolderName: textOr(discountName),
			HolderID:   textOr(discountID),
		}
	}
	o.PaymentMethod = PaymentMethod(textOr(paymentMethod))
	if len(payment) > 0 {
		var p Payment
		if err := json.Unmarshal(payment, &p); err != nil {
			return Order{}, err
		}
		o.Payment = &p
	}
	o.Status = Status(status)
	o.CustomerName = textOr(customerName)
	o.CustomerPhone = textOr(customerPhone)
	o.DeliveryRef = textOr(deliveryRef)
	o.DeclineReason = textOr(declineReason)
	if createdAt.Valid {
		o.CreatedAt = createdAt.Time
	}
	if updatedAt.Valid {
		o.UpdatedAt = updatedAt.Time
	}
	o.SentToKitchenAt = timeOr(sentToKitchenAt)
	o.ApprovedAt = timeOr(approvedAt)
	o.DeclinedAt = timeOr(declinedAt)
	return o, nil
}

func textOr(value pgtype.Text) string {
	if value.Valid {
		return value.String
	}
	return ""
}

func timeOr(value pgtype.Timestamptz) *time.Time {
	if !value.Valid {
		return nil
	}
	t := value.Time
	return &t
}

func nilIfEmpty(value string) any {
	if value == "" {
		return nil
	}
	return value
}
