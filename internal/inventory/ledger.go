package inventory

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"kusina-order-service/internal/utils"
)

var ErrItemNotFound = errors.New("inventory item not found")

// InsufficientStockError aborts a whole deduction batch: stock levels either
// all move or none do.
type InsufficientStockError struct {
	ItemName  string
	Needed    float64
	Available float64
	Unit      BaseUnit
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for %s: need %.2f %s, have %.2f %s",
		e.ItemName, e.Needed, e.Unit, e.Available, e.Unit)
}

type Item struct {
	ID                string    `json:"id"`
	Name              string    `json:"name"`
	Quantity          float64   `json:"quantity"`
	BaseUnit          BaseUnit  `json:"baseUnit"`
	PiecesPerBox      float64   `json:"piecesPerBox,omitempty"`
	LowStockThreshold float64   `json:"lowStockThreshold,omitempty"`
	CreatedAt         time.Time `json:"createdAt"`
	UpdatedAt         time.Time `json:"updatedAt"`
}

// Requirement is one recipe line: how much of an inventory item a single
// serving consumes, in whatever display unit the recipe was written in.
type Requirement struct {
	ItemID string  `json:"inventoryItemId"`
	Amount float64 `json:"amount"`
	Unit   string  `json:"unit"`
}

// Ledger owns stock levels. All multi-item movements run in one transaction.
type Ledger struct {
	DB  *pgxpool.Pool
	Log *zap.Logger
}

func NewLedger(db *pgxpool.Pool, log *zap.Logger) *Ledger {
	return &Ledger{DB: db, Log: log}
}

func (l *Ledger) CreateItem(ctx context.Context, name string, quantity float64, unit string, piecesPerBox float64) (Item, error) {
	base, baseUnit, err := ToBase(quantity, unit, piecesPerBox)
	if err != nil {
		return Item{}, err
	}
	var item Item
	var qty pgtype.Numeric
	err = l.DB.QueryRow(ctx, `
		insert into inventory_items (name, quantity, base_unit, pieces_per_box, created_at, updated_at)
		values ($1, $2, $3, $4, now(), now())
		returning id, name, quantity, base_unit, pieces_per_box, created_at, updated_at
	`, name, base, string(baseUnit), piecesPerBox).Scan(
		&item.ID, &item.Name, &qty, &item.BaseUnit, &item.PiecesPerBox,
		&item.CreatedAt, &item.UpdatedAt,
	)
	if err != nil {
		return Item{}, err
	}
	item.Quantity = utils.NumericToFloat64(qty)
	return item, nil
}

func (l *Ledger) GetItem(ctx context.Context, id string) (Item, error) {
	row := l.DB.QueryRow(ctx, `
		select id, name, quantity, base_unit, pieces_per_box, low_stock_threshold, created_at, updated_at
		from inventory_items where id = $1
	`, id)
	item, err := scanItem(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Item{}, ErrItemNotFound
	}
	return item, err
}

func (l *Ledger) ListItems(ctx context.Context) ([]Item, error) {
	rows, err := l.DB.Query(ctx, `
		select id, name, quantity, base_unit, pieces_per_box, low_stock_threshold, created_at, updated_at
		from inventory_items order by name
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]Item, 0)
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// ReceiveStock adds delivered stock, converting from the delivery unit.
func (l *Ledger) ReceiveStock(ctx context.Context, id string, amount float64, unit string) (Item, error) {
	item, err := l.GetItem(ctx, id)
	if err != nil {
		return Item{}, err
	}
	base, baseUnit, err := ToBase(amount, unit, item.PiecesPerBox)
	if err != nil {
		return Item{}, err
	}
	if baseUnit != item.BaseUnit {
		return Item{}, fmt.Errorf("unit %q does not match item base unit %s", unit, item.BaseUnit)
	}
	_, err = l.DB.Exec(ctx, `
		update inventory_items set quantity = quantity + $2, updated_at = now() where id = $1
	`, id, base)
	if err != nil {
		return Item{}, err
	}
	return l.GetItem(ctx, id)
}

func (l *Ledger) DeleteItem(ctx context.Context, id string) error {
	tag, err := l.DB.Exec(ctx, `delete from inventory_items where id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrItemNotFound
	}
	return nil
}

// ConsumeForOrder deducts every requirement for a dispatched order in one
// transaction. Any shortage or unknown item aborts the whole batch.
func (l *Ledger) ConsumeForOrder(ctx context.Context, orderNumber string, reqs []Requirement) error {
	if len(reqs) == 0 {
		return nil
	}
	tx, err := l.DB.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if err := applyMovements(ctx, tx, reqs, -1); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return err
	}
	l.Log.Info("inventory consumed",
		zap.String("orderNumber", orderNumber),
		zap.Int("lines", len(reqs)))
	return nil
}

// RestoreForOrder is the compensating write behind order cancellation. It is
// idempotent: the order's inventory_restored flag is checked and set inside
// the same transaction, so a retried cancellation never double-credits stock.
func (l *Ledger) RestoreForOrder(ctx context.Context, orderNumber string, reqs []Requirement) error {
	tx, err := l.DB.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	var restored bool
	err = tx.QueryRow(ctx, `
		select inventory_restored from orders where order_number = $1 for update
	`, orderNumber).Scan(&restored)
	if errors.Is(err, pgx.ErrNoRows) {
		// No record means nothing was ever deducted against it.
		return nil
	}
	if err != nil {
		return err
	}
	if restored {
		l.Log.Info("inventory already restored, skipping",
			zap.String("orderNumber", orderNumber))
		return nil
	}

	if err := applyMovements(ctx, tx, reqs, +1); err != nil {
		return err
	}
	if _, err := tx.Exec(ctx, `
		update orders set inventory_restored = true, updated_at = now() where order_number = $1
	`, orderNumber); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return err
	}
	l.Log.Info("inventory restored",
		zap.String("orderNumber", orderNumber),
		zap.Int("lines", len(reqs)))
	return nil
}

// Deduct applies a one-recipe deduction inside a caller-owned transaction, so
// a product save can spend its ingredients atomically with the menu write.
func Deduct(ctx context.Context, tx pgx.Tx, reqs []Requirement) error {
	return applyMovements(ctx, tx, reqs, -1)
}

// ScaleRequirements multiplies each recipe line by a serving count. A product
// save deducts exactly one recipe per ingredient line; batch builds scale it.
func ScaleRequirements(reqs []Requirement, servings int) []Requirement {
	if servings <= 0 {
		servings = 1
	}
	out := make([]Requirement, len(reqs))
	for i, req := range reqs {
		req.Amount *= float64(servings)
		out[i] = req
	}
	return out
}

// DeductForRecipeBuild consumes ingredients for a kitchen batch build, the
// same all-or-nothing way an order dispatch does.
func (l *Ledger) DeductForRecipeBuild(ctx context.Context, reqs []Requirement) error {
	if len(reqs) == 0 {
		return nil
	}
	tx, err := l.DB.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if err := applyMovements(ctx, tx, reqs, -1); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// applyMovements moves stock by sign*requirement for each line, locking each
// row before reading so concurrent batches serialize per item.
func applyMovements(ctx context.Context, tx pgx.Tx, reqs []Requirement, sign float64) error {
	for _, req := range reqs {
		var (
			name         string
			qty          pgtype.Numeric
			baseUnit     string
			piecesPerBox pgtype.Numeric
		)
		err := tx.QueryRow(ctx, `
			select name, quantity, base_unit, pieces_per_box
			from inventory_items where id = $1 for update
		`, req.ItemID).Scan(&name, &qty, &baseUnit, &piecesPerBox)
		if errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("%w: %s", ErrItemNotFound, req.ItemID)
		}
		if err != nil {
			return err
		}

		amount, reqBase, err := ToBase(req.Amount, req.Unit, utils.NumericToFloat64(piecesPerBox))
		if err != nil {
			return err
		}
		if string(reqBase) != baseUnit {
			return fmt.Errorf("recipe unit %q does not match %s base unit %s", req.Unit, name, baseUnit)
		}

		available := utils.NumericToFloat64(qty)
		if sign < 0 && available < amount {
			return &InsufficientStockError{
				ItemName:  name,
				Needed:    amount,
				Available: available,
				Unit:      BaseUnit(baseUnit),
			}
		}

		if _, err := tx.Exec(ctx, `
			update inventory_items set quantity = quantity + $2, updated_at = now() where id = $1
		`, req.ItemID, sign*amount); err != nil {
			return err
		}
	}
	return nil
}

// ZeroedItems lists item IDs whose stock has hit zero, for the menu
// availability sweep.
func (l *Ledger) ZeroedItems(ctx context.Context) ([]string, error) {
	rows, err := l.DB.Query(ctx, `select id from inventory_items where quantity <= 0`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ids := make([]string, 0)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// LowStockItems lists items at or below their low-stock threshold. Items with
// no threshold configured only report when fully depleted.
func (l *Ledger) LowStockItems(ctx context.Context) ([]Item, error) {
	rows, err := l.DB.Query(ctx, `
		select id, name, quantity, base_unit, pieces_per_box, low_stock_threshold, created_at, updated_at
		from inventory_items where quantity <= coalesce(low_stock_threshold, 0)
		order by name
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]Item, 0)
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

func scanItem(row pgx.Row) (Item, error) {
	var (
		item         Item
		qty          pgtype.Numeric
		baseUnit     string
		piecesPerBox pgtype.Numeric
		threshold    pgtype.Numeric
	)
	err := row.Scan(&item.ID, &item.Name, &qty, &baseUnit, &piecesPerBox,
		&threshold, &item.CreatedAt, &item.UpdatedAt)
	if err != nil {
		return Item{}, err
	}
	item.Quantity = utils.NumericToFloat64(qty)
	item.BaseUnit = BaseUnit(baseUnit)
	item.PiecesPerBox = utils.NumericToFloat64(piecesPerBox)
	item.LowStockThreshold = utils.NumericToFloat64(threshold)
	return item, nil
}
