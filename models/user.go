package models

import "time"

// Role identifies what a user may do in the marketplace.
type Role string

const (
	RoleUser        Role = "user"
	RoleOwner       Role = "owner"
	RoleDeliveryBoy Role = "deliveryBoy"
	RoleSuperAdmin  Role = "superadmin"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleOwner, RoleDeliveryBoy, RoleSuperAdmin:
		return true
	}
	return false
}

// User represents any account: buyer, shop owner, delivery agent or super admin.
// Delivery agents keep their last known location and availability on this record.
type User struct {
	ID           string    `db:"id" json:"id"`
	FullName     string    `db:"full_name" json:"fullName"`
	Email        string    `db:"email" json:"email"`
	PasswordHash string    `db:"password_hash" json:"-"`
	Mobile       string    `db:"mobile" json:"mobile"`
	Role         Role      `db:"role" json:"role"`
	Lat          float64   `db:"lat" json:"lat"`
	Lng          float64   `db:"lng" json:"lng"`
	IsAvailable  bool      `db:"is_available" json:"isAvailable"`
	CreatedAt    time.Time `db:"created_at" json:"createdAt"`
}

// IsAgent reports whether the user is a delivery agent.
func (u *User) IsAgent() bool {
	return u != nil && u.Role == RoleDeliveryBoy
}
