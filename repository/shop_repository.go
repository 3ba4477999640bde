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

const shopColumns = `id, owner_id, name, city, address, lat, lng, created_at`

// ShopRepository persists shops in SQLite.
type ShopRepository struct {
	db *sql.DB
}

func NewShopRepository(db *sql.DB) *ShopRepository {
	return &ShopRepository{db: db}
}

// Upsert inserts the owner's shop, or updates name, city, address and location
// of the existing one. The stored shop is returned.
func (r *ShopRepository) Upsert(ctx context.Context, s *models.Shop) (*models.Shop, error) {
	if s == nil {
		return nil, errors.New("shop is nil")
	}
	if s.OwnerID == "" {
		return nil, errors.New("shop owner is empty")
	}
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	id := s.ID
	if id == "" {
		id = uuid.NewString()
	}
	created := s.CreatedAt
	if created.IsZero() {
		created = time.Now().UTC()
	}
	_, err := r.db.ExecContext(ctx, `
INSERT INTO shops (`+shopColumns+`) VALUES (?,?,?,?,?,?,?,?)
ON CONFLICT(owner_id) DO UPDATE SET
  name = excluded.name,
  city = excluded.city,
  address = excluded.address,
  lat = excluded.lat,
  lng = excluded.lng`,
		id, s.OwnerID, s.Name, strings.TrimSpace(s.City), s.Address, s.Lat, s.Lng, toMillis(created))
	if err != nil {
		return nil, err
	}
	return r.GetByOwner(ctx, s.OwnerID)
}

func (r *ShopRepository) GetByID(ctx context.Context, id string) (*models.Shop, error) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	return scanShop(r.db.QueryRowContext(ctx, `SELECT `+shopColumns+` FROM shops WHERE id = ?`, id))
}

func (r *ShopRepository) GetByOwner(ctx context.Context, ownerID string) (*models.Shop, error) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	return scanShop(r.db.QueryRowContext(ctx, `SELECT `+shopColumns+` FROM shops WHERE owner_id = ?`, ownerID))
}

// ListByCity returns shops of a city, case-insensitively, ordered by name.
func (r *ShopRepository) ListByCity(ctx context.Context, city string) ([]*models.Shop, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	rows, err := r.db.QueryContext(ctx, `SELECT `+shopColumns+` FROM shops WHERE city = ? COLLATE NOCASE ORDER BY name, id`, strings.TrimSpace(city))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*models.Shop
	for rows.Next() {
		s, err := scanShop(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func scanShop(row rowScanner) (*models.Shop, error) {
	var s models.Shop
	var created int64
	if err := row.Scan(&s.ID, &s.OwnerID, &s.Name, &s.City, &s.Address, &s.Lat, &s.Lng, &created); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	s.CreatedAt = fromMillis(created)
	return &s, nil
}
