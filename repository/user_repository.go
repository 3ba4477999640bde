package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"foodDeliveryMarketplace/internal/geo"
	"foodDeliveryMarketplace/models"
)

const userColumns = `id, full_name, email, password_hash, mobile, role, lat, lng, is_available, created_at`

type UserRepository struct {
	db *sql.DB
}

func NewUserRepository(db *sql.DB) *UserRepository {
	return &UserRepository{db: db}
}

// Create inserts a new user. ID and CreatedAt are assigned when empty; role defaults to 'user'.
func (r *UserRepository) Create(ctx context.Context, u *models.User) (*models.User, error) {
	if u == nil {
		return nil, errors.New("user is nil")
	}
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	out := *u
	if out.ID == "" {
		out.ID = uuid.NewString()
	}
	if out.Role == "" {
		out.Role = models.RoleUser
	}
	if out.CreatedAt.IsZero() {
		out.CreatedAt = time.Now().UTC()
	}
	out.Email = strings.ToLower(strings.TrimSpace(out.Email))
	out.CreatedAt = fromMillis(toMillis(out.CreatedAt))

	_, err := r.db.ExecContext(ctx, `INSERT INTO users (`+userColumns+`) VALUES (?,?,?,?,?,?,?,?,?,?)`,
		out.ID, out.FullName, out.Email, out.PasswordHash, out.Mobile, string(out.Role),
		out.Lat, out.Lng, out.IsAvailable, toMillis(out.CreatedAt))
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *UserRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	return scanUser(r.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, id))
}

// GetByEmail looks a user up by email, case-insensitively.
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	email = strings.ToLower(strings.TrimSpace(email))
	return scanUser(r.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE email = ?`, email))
}

// UpdateLocation stores the last known position of a user. Returns sql.ErrNoRows for unknown ids.
func (r *UserRepository) UpdateLocation(ctx context.Context, id string, lat, lng float64) error {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	res, err := r.db.ExecContext(ctx, `UPDATE users SET lat = ?, lng = ? WHERE id = ?`, lat, lng, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// SetAvailability toggles whether an agent accepts new deliveries.
func (r *UserRepository) SetAvailability(ctx context.Context, id string, available bool) error {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	res, err := r.db.ExecContext(ctx, `UPDATE users SET is_available = ? WHERE id = ?`, available, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func (r *UserRepository) ListAvailableAgents(ctx context.Context, box geo.BoundingBox) ([]*models.User, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	rows, err := r.db.QueryContext(ctx, `
SELECT `+userColumns+`
FROM users
WHERE role = ? AND is_available = 1
  AND lat BETWEEN ? AND ?
  AND lng BETWEEN ? AND ?
ORDER BY id`, string(models.RoleDeliveryBoy), box.MinLat, box.MaxLat, box.MinLng, box.MaxLng)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*models.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*models.User, error) {
	var u models.User
	var role string
	var created int64
	err := row.Scan(&u.ID, &u.FullName, &u.Email, &u.PasswordHash, &u.Mobile, &role, &u.Lat, &u.Lng, &u.IsAvailable, &created)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	u.Role = models.Role(role)
	u.CreatedAt = fromMillis(created)
	return &u, nil
}
