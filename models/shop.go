package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Shop is a restaurant owned by exactly one owner account.
type Shop struct {
	ID        string    `db:"id" json:"id"`
	OwnerID   string    `db:"owner_id" json:"ownerId"`
	Name      string    `db:"name" json:"name"`
	City      string    `db:"city" json:"city"`
	Address   string    `db:"address" json:"address"`
	Lat       float64   `db:"lat" json:"lat"`
	Lng       float64   `db:"lng" json:"lng"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
}

// Item is a menu entry of a shop.
type Item struct {
	ID        string          `db:"id" json:"id"`
	ShopID    string          `db:"shop_id" json:"shopId"`
	Name      string          `db:"name" json:"name"`
	Category  string          `db:"category" json:"category"`
	FoodType  string          `db:"food_type" json:"foodType"`
	Price     decimal.Decimal `db:"price" json:"price"`
	Rating    ItemRating      `json:"rating"`
	CreatedAt time.Time       `db:"created_at" json:"createdAt"`
}

// ItemRating is the running mean of buyer ratings on a 1..5 scale.
type ItemRating struct {
	Average float64 `json:"average"`
	Count   int     `json:"count"`
}

// Ratings bound the stars a buyer may give an item.
const (
	MinRating = 1
	MaxRating = 5
)

// NewItemRating derives the mean from a count and the sum of all stars given.
func NewItemRating(count, total int) ItemRating {
	if count <= 0 {
		return ItemRating{}
	}
	return ItemRating{Average: float64(total) / float64(count), Count: count}
}
