package menu

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"kusina-order-service/internal/inventory"
	"kusina-order-service/internal/order"
	"kusina-order-service/internal/utils"
)

var ErrNotFound = errors.New("menu item not found")

type MenuItem struct {
	ID          string                  `json:"id"`
	Name        string                  `json:"name"`
	Category    string                  `json:"category"`
	Price       float64                 `json:"price"`
	ImageURL    string                  `json:"imageUrl,omitempty"`
	Ingredients []inventory.Requirement `json:"ingredients,omitempty"`
	IsAvailable bool                    `json:"isAvailable"`
	CreatedAt   time.Time               `json:"createdAt"`
	UpdatedAt   time.Time               `json:"updatedAt"`
}

type Store struct {
	DB  *pgxpool.Pool
	Log *zap.Logger
}

func NewStore(db *pgxpool.Pool, log *zap.Logger) *Store {
	return &Store{DB: db, Log: log}
}

type CreateInput struct {
	Name        string                  `json:"name"`
	Category    string                  `json:"category"`
	Price       float64                 `json:"price"`
	ImageURL    string                  `json:"imageUrl"`
	Ingredients []inventory.Requirement `json:"ingredients"`
}

// Create inserts the menu item and deducts one recipe's worth of each
// ingredient in the same transaction: saving a product spends the stock used
// to prepare it, and a shortage aborts the save entirely.
func (s *Store) Create(ctx context.Context, in CreateInput) (MenuItem, error) {
	ingredients, err := json.Marshal(in.Ingredients)
	if err != nil {
		return MenuItem{}, err
	}

	tx, err := s.DB.Begin(ctx)
	if err != nil {
		return MenuItem{}, err
	}
	defer tx.Rollback(ctx)

	row := tx.QueryRow(ctx, `
		insert into menus (name, category, price, image_url, ingredients, is_available, created_at, updated_at)
		values ($1, $2, $3, $4, $5, true, now(), now())
		returning id, name, category, price, image_url, ingredients, is_available, created_at, updated_at
	`, in.Name, in.Category, in.Price, in.ImageURL, ingredients)
	item, err := scanMenuItem(row)
	if err != nil {
		return MenuItem{}, err
	}
	if err := inventory.Deduct(ctx, tx, in.Ingredients); err != nil {
		return MenuItem{}, err
	}
	if err := tx.Commit(ctx); err != nil {
		return MenuItem{}, err
	}
	return item, nil
}

func (s *Store) Get(ctx context.Context, id string) (MenuItem, error) {
	row := s.DB.QueryRow(ctx, `
		select id, name, category, price, image_url, ingredients, is_available, created_at, updated_at
		from menus where id = $1
	`, id)
	item, err := scanMenuItem(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return MenuItem{}, ErrNotFound
	}
	return item, err
}

func (s *Store) List(ctx context.Context, availableOnly bool) ([]MenuItem, error) {
	query := `
		select id, name, category, price, image_url, ingredients, is_available, created_at, updated_at
		from menus`
	if availableOnly {
		query += ` where is_available`
	}
	query += ` order by category, name`

	rows, err := s.DB.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]MenuItem, 0)
	for rows.Next() {
		item, err := scanMenuItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

type UpdateInput struct {
	Name        *string                  `json:"name"`
	Category    *string                  `json:"category"`
	Price       *float64                 `json:"price"`
	ImageURL    *string                  `json:"imageUrl"`
	Ingredients *[]inventory.Requirement `json:"ingredients"`
	IsAvailable *bool                    `json:"isAvailable"`
}

func (s *Store) Update(ctx context.Context, id string, in UpdateInput) (MenuItem, error) {
	current, err := s.Get(ctx, id)
	if err != nil {
		return MenuItem{}, err
	}
	if in.Name != nil {
		current.Name = *in.Name
	}
	if in.Category != nil {
		current.Category = *in.Category
	}
	if in.Price != nil {
		current.Price = *in.Price
	}
	if in.ImageURL != nil {
		current.ImageURL = *in.ImageURL
	}
	if in.Ingredients != nil {
		current.Ingredients = *in.Ingredients
	}
	if in.IsAvailable != nil {
		current.IsAvailable = *in.IsAvailable
	}

	ingredients, err := json.Marshal(current.Ingredients)
	if err != nil {
		return MenuItem{}, err
	}
	_, err = s.DB.Exec(ctx, `
		update menus
		set name = $2, category = $3, price = $4, image_url = $5,
			ingredients = $6, is_available = $7, updated_at = now()
		where id = $1
	`, id, current.Name, current.Category, current.Price, current.ImageURL,
		ingredients, current.IsAvailable)
	if err != nil {
		return MenuItem{}, err
	}
	return s.Get(ctx, id)
}

func (s *Store) Delete(ctx context.Context, id string) error {
	tag, err := s.DB.Exec(ctx, `delete from menus where id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// RequirementsForItems expands an order's line items into inventory
// requirements, multiplying each recipe line by the ordered quantity. Line
// items are matched to menus by name; items with no recipe contribute
// nothing.
func (s *Store) RequirementsForItems(ctx context.Context, items []order.LineItem) ([]inventory.Requirement, error) {
	reqs := make([]inventory.Requirement, 0)
	for _, line := range items {
		var raw []byte
		err := s.DB.QueryRow(ctx,
			`select ingredients from menus where name = $1`, line.Name,
		).Scan(&raw)
		if errors.Is(err, pgx.ErrNoRows) {
			continue
		}
		if err != nil {
			return nil, err
		}
		var recipe []inventory.Requirement
		if len(raw) > 0 {
			if err := json.Unmarshal(raw, &recipe); err != nil {
				return nil, err
			}
		}
		qty := line.Quantity
		if qty <= 0 {
			qty = 1
		}
		for _, ing := range recipe {
			ing.Amount *= float64(qty)
			reqs = append(reqs, ing)
		}
	}
	return reqs, nil
}

// SweepAvailability clears is_available on every menu whose recipe references
// an inventory item that has run out. Run after dispatches and recipe builds.
func (s *Store) SweepAvailability(ctx context.Context, ledger *inventory.Ledger) (int, error) {
	zeroed, err := ledger.ZeroedItems(ctx)
	if err != nil {
		return 0, err
	}
	if len(zeroed) == 0 {
		return 0, nil
	}
	zeroedSet := make(map[string]bool, len(zeroed))
	for _, id := range zeroed {
		zeroedSet[id] = true
	}

	all, err := s.List(ctx, false)
	if err != nil {
		return 0, err
	}

	swept := 0
	for _, item := range all {
		if !item.IsAvailable {
			continue
		}
		for _, ing := range item.Ingredients {
			if !zeroedSet[ing.ItemID] {
				continue
			}
			if _, err := s.DB.Exec(ctx, `
				update menus set is_available = false, updated_at = now() where id = $1
			`, item.ID); err != nil {
				return swept, err
			}
			s.Log.Info("menu marked unavailable",
				zap.String("menuId", item.ID),
				zap.String("menuName", item.Name),
				zap.String("inventoryItemId", ing.ItemID))
			swept++
			break
		}
	}
	return swept, nil
}

func scanMenuItem(row pgx.Row) (MenuItem, error) {
	var (
		item        MenuItem
		price       pgtype.Numeric
		imageURL    pgtype.Text
		ingredients []byte
	)
	err := row.Scan(&item.ID, &item.Name, &item.Category, &price, &imageURL,
		&ingredients, &item.IsAvailable, &item.CreatedAt, &item.UpdatedAt)
	if err != nil {
		return MenuItem{}, err
	}
	item.Price = utils.NumericToFloat64(price)
	if imageURL.Valid {
		item.ImageURL = imageURL.String
	}
	if len(ingredients) > 0 {
		if err := json.Unmarshal(ingredients, &item.Ingredients); err != nil {
			return MenuItem{}, err
		}
	}
	return item, nil
}
