package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"foodDeliveryMarketplace/models"
)

const itemColumns = `id, shop_id, name, category, food_type, price, created_at, rating_count, rating_total`

const qualifiedItemColumns = `i.id, i.shop_id, i.name, i.category, i.food_type, i.price, i.created_at, i.rating_count, i.rating_total`

// ItemRepository persists menu items in SQLite.
type ItemRepository struct {
	db *sql.DB
}

func NewItemRepository(db *sql.DB) *ItemRepository {
	return &ItemRepository{db: db}
}

func (r *ItemRepository) Create(ctx context.Context, it *models.Item) (*models.Item, error) {
	if it == nil {
		return nil, errors.New("item is nil")
	}
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	out := *it
	if out.ID == "" {
		out.ID = uuid.NewString()
	}
	if out.CreatedAt.IsZero() {
		out.CreatedAt = time.Now().UTC()
	}
	out.CreatedAt = fromMillis(toMillis(out.CreatedAt))
	out.Rating = models.ItemRating{}
	_, err := r.db.ExecContext(ctx, `INSERT INTO items (`+itemColumns+`) VALUES (?,?,?,?,?,?,?,0,0)`,
		out.ID, out.ShopID, out.Name, out.Category, out.FoodType, out.Price.String(), toMillis(out.CreatedAt))
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *ItemRepository) GetByID(ctx context.Context, id string) (*models.Item, error) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	return scanItem(r.db.QueryRowContext(ctx, `SELECT `+itemColumns+` FROM items WHERE id = ?`, id))
}

// Update overwrites the editable fields of an item and reports whether it existed.
// Shop, rating and creation time are left untouched.
func (r *ItemRepository) Update(ctx context.Context, it *models.Item) (bool, error) {
	if it == nil {
		return false, errors.New("item is nil")
	}
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	res, err := r.db.ExecContext(ctx, `UPDATE items SET name = ?, category = ?, food_type = ?, price = ? WHERE id = ?`,
		it.Name, it.Category, it.FoodType, it.Price.String(), it.ID)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// AddRating folds stars into the item's running rating in one statement and
// returns the updated item, or nil when it does not exist.
func (r *ItemRepository) AddRating(ctx context.Context, id string, stars int) (*models.Item, error) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	res, err := r.db.ExecContext(ctx, `UPDATE items SET rating_count = rating_count + 1, rating_total = rating_total + ? WHERE id = ?`, stars, id)
	if err != nil {
		return nil, err
	}
	if n, err := res.RowsAffected(); err != nil || n == 0 {
		return nil, err
	}
	return scanItem(r.db.QueryRowContext(ctx, `SELECT `+itemColumns+` FROM items WHERE id = ?`, id))
}

// Delete removes an item and reports whether it existed.
func (r *ItemRepository) Delete(ctx context.Context, id string) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	res, err := r.db.ExecContext(ctx, `DELETE FROM items WHERE id = ?`, id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

func (r *ItemRepository) ListByShop(ctx context.Context, shopID string) ([]*models.Item, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	rows, err := r.db.QueryContext(ctx, `SELECT `+itemColumns+` FROM items WHERE shop_id = ? ORDER BY created_at DESC, id`, shopID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanItemRows(rows)
}

// ListByCity returns the items of every shop located in city.
func (r *ItemRepository) ListByCity(ctx context.Context, city string) ([]*models.Item, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	rows, err := r.db.QueryContext(ctx, `
SELECT `+qualifiedItemColumns+`
FROM items i
JOIN shops s ON s.id = i.shop_id
WHERE s.city = ? COLLATE NOCASE
ORDER BY i.created_at DESC, i.id`, strings.TrimSpace(city))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanItemRows(rows)
}

// Search returns the items of shops in city whose name or category contains query,
// ignoring case, ordered by name.
func (r *ItemRepository) Search(ctx context.Context, city, query string) ([]*models.Item, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	pattern := "%" + escapeLike(strings.TrimSpace(query)) + "%"
	rows, err := r.db.QueryContext(ctx, `
SELECT `+qualifiedItemColumns+`
FROM items i
JOIN shops s ON s.id = i.shop_id
WHERE s.city = ? COLLATE NOCASE
  AND (i.name LIKE ? ESCAPE '\' OR i.category LIKE ? ESCAPE '\')
ORDER BY i.name COLLATE NOCASE, i.id`, strings.TrimSpace(city), pattern, pattern)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanItemRows(rows)
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string { return likeEscaper.Replace(s) }

func scanItemRows(rows *sql.Rows) ([]*models.Item, error) {
	var out []*models.Item
	for rows.Next() {
		it, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, it)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func scanItem(row rowScanner) (*models.Item, error) {
	var it models.Item
	var created int64
	var count, total int
	if err := row.Scan(&it.ID, &it.ShopID, &it.Name, &it.Category, &it.FoodType, &it.Price, &created, &count, &total); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	it.CreatedAt = fromMillis(created)
	it.Rating = models.NewItemRating(count, total)
	return &it, nil
}
