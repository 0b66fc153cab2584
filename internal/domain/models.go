package domain

import "time"

// Category classifies a product for display grouping
type Category string

const (
	CategorySnacks     Category = "Snacks"
	CategoryStationery Category = "Stationery"
	CategoryDrinks     Category = "Drinks"
)

// ValidCategory reports whether c is one of the three known categories
func ValidCategory(c Category) bool {
	switch c {
	case CategorySnacks, CategoryStationery, CategoryDrinks:
		return true
	}
	return false
}

// User account created at signup. Password holds the bcrypt hash, never
// the plaintext, and is excluded from JSON.
type User struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Password  string    `json:"-"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"created_at"`
}

// Product is a catalog entry. Name is the business key used by all
// catalog mutations; Quantity is the live stock.
type Product struct {
	ID       int64    `json:"id"`
	Name     string   `json:"name"`
	Price    float64  `json:"price"`
	Quantity int64    `json:"quantity"`
	ImageURL string   `json:"imageUrl"`
	Category Category `json:"category"`
}

// OrderStatus order lifecycle state
type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusConfirmed OrderStatus = "confirmed"
	OrderStatusDelivered OrderStatus = "delivered"
	OrderStatusCancelled OrderStatus = "cancelled"
)

// OrderItem is a line item captured by value at placement time: Name and
// Price are copies, so later catalog edits do not alter past orders.
type OrderItem struct {
	ProductID int64   `json:"productId"`
	Name      string  `json:"name"`
	Price     float64 `json:"price"`
	Quantity  int64   `json:"quantity"`
}

// Address delivery address attached to an order
type Address struct {
	FullName     string `json:"fullName"`
	PhoneNumber  string `json:"phoneNumber"`
	AddressLine1 string `json:"addressLine1"`
	AddressLine2 string `json:"addressLine2,omitempty"`
	City         string `json:"city"`
	State        string `json:"state"`
	Pincode      string `json:"pincode"`
}

// Order is created exactly once per successful checkout. ID is the
// human-readable generated identifier (e.g. TSH123456ABCDE). User name
// and email are denormalized snapshots, not live joins.
type Order struct {
	ID        string      `json:"orderId"`
	UserID    string      `json:"userId"`
	UserName  string      `json:"userName"`
	UserEmail string      `json:"userEmail"`
	Items     []OrderItem `json:"items"`
	Total     float64     `json:"total"`
	Address   Address     `json:"address"`
	Status    OrderStatus `json:"status"`
	CreatedAt time.Time   `json:"created_at"`
}

// PasswordReset is a single-use reset credential. TokenHash is the
// sha256 hex of the raw token; the raw token only ever travels by email.
type PasswordReset struct {
	ID        int64
	UserID    string
	TokenHash string
	ExpiresAt time.Time
	Used      bool
	CreatedAt time.Time
}
