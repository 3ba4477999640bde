package repository

import (
	"context"
	"time"

	"foodDeliveryMarketplace/internal/geo"
	"foodDeliveryMarketplace/models"
)

// UserRepositoryI defines operations on User entities.
type UserRepositoryI interface {
	Create(ctx context.Context, u *models.User) (*models.User, error)
	GetByID(ctx context.Context, id string) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	UpdateLocation(ctx context.Context, id string, lat, lng float64) error
	SetAvailability(ctx context.Context, id string, available bool) error
	// ListAvailableAgents returns available delivery agents whose last known
	// location falls inside box. Callers apply the exact radius check.
	ListAvailableAgents(ctx context.Context, box geo.BoundingBox) ([]*models.User, error)
}

// ShopRepositoryI defines operations on Shop entities.
type ShopRepositoryI interface {
	// Upsert creates the owner's shop or updates it in place; an owner has at most one shop.
	Upsert(ctx context.Context, s *models.Shop) (*models.Shop, error)
	GetByID(ctx context.Context, id string) (*models.Shop, error)
	GetByOwner(ctx context.Context, ownerID string) (*models.Shop, error)
	ListByCity(ctx context.Context, city string) ([]*models.Shop, error)
}

// ItemRepositoryI defines operations on Item entities.
type ItemRepositoryI interface {
	Create(ctx context.Context, it *models.Item) (*models.Item, error)
	GetByID(ctx context.Context, id string) (*models.Item, error)
	Update(ctx context.Context, it *models.Item) (bool, error)
	AddRating(ctx context.Context, id string, stars int) (*models.Item, error)
	Delete(ctx context.Context, id string) (bool, error)
	ListByShop(ctx context.Context, shopID string) ([]*models.Item, error)
	ListByCity(ctx context.Context, city string) ([]*models.Item, error)
	Search(ctx context.Context, city, query string) ([]*models.Item, error)
}

// ShopOrderUpdate carries the fields written alongside a status change.
// A nil OTP clears any stored code and expiry.
type ShopOrderUpdate struct {
	OTP *models.OTP
	At  time.Time
}

// StaleShopOrder is a sub-order out for delivery whose code is missing or expired.
type StaleShopOrder struct {
	OrderID   string
	BuyerID   string
	ShopOrder models.ShopOrder
}

// OrderRepositoryI defines operations on Order entities and their sub-orders.
// Mutations of a sub-order are conditional: they report applied=false when the
// stored state no longer matches the expected one.
type OrderRepositoryI interface {
	Create(ctx context.Context, o *models.Order) (*models.Order, error)
	GetByID(ctx context.Context, id string) (*models.Order, error)
	GetByShopOrderID(ctx context.Context, shopOrderID string) (*models.Order, error)
	GetByRazorpayOrderID(ctx context.Context, razorpayOrderID string) (*models.Order, error)
	ListByBuyer(ctx context.Context, buyerID string) ([]*models.Order, error)
	ListByOwner(ctx context.Context, ownerID string) ([]*models.Order, error)
	ListByAgent(ctx context.Context, agentID string) ([]*models.Order, error)
	Delete(ctx context.Context, id string) (bool, error)
	MarkPaid(ctx context.Context, id, paymentID string) (bool, error)

	TransitionStatus(ctx context.Context, shopOrderID string, from, to models.ShopOrderStatus, upd ShopOrderUpdate) (bool, error)
	AssignAgent(ctx context.Context, shopOrderID, agentID string, at time.Time) (bool, error)
	MarkDelivered(ctx context.Context, shopOrderID, code string, at time.Time) (bool, error)
	ReplaceOTP(ctx context.Context, shopOrderID string, oldCode *string, oldExpiry *time.Time, next models.OTP, at time.Time) (bool, error)
	ListStaleOTP(ctx context.Context, now time.Time, afterID string, limit int) ([]StaleShopOrder, error)
}
