package models

import (
	"time"

	"github.com/shopspring/decimal"
)

const OrderStatusPendingPayment = "pending_payment"

// User with an empty PasswordHash can only sign in through a federated provider.
type User struct {
	ID                uint      `gorm:"primaryKey;autoIncrement"   json:"id"`
	Email             string    `gorm:"uniqueIndex;not null"       json:"email"`
	FullName          string    `gorm:"uniqueIndex;not null"       json:"full_name"`
	PasswordHash      string    `gorm:"not null;default:''"        json:"-"`
	IsActive          bool      `gorm:"not null;default:false"     json:"is_active"`
	IsAdmin           bool      `gorm:"not null;default:false"     json:"is_admin"`
	IsOwner           bool      `gorm:"not null;default:false"     json:"is_owner"`
	IsVerified        bool      `gorm:"not null;default:false"     json:"is_verified"`
	VerificationToken *string   `gorm:"uniqueIndex"                json:"-"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`

	Cart *Cart `gorm:"constraint:OnDelete:CASCADE" json:"cart,omitempty"`
}

type Cart struct {
	ID         uint            `gorm:"primaryKey;autoIncrement"                 json:"id"`
	UserID     uint            `gorm:"uniqueIndex;not null"                     json:"user_id"`
	TotalPrice decimal.Decimal `gorm:"type:numeric(12,2);not null;default:0"    json:"total_price"`
	CreatedAt  time.Time       `json:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at"`

	Items []CartItem `gorm:"constraint:OnDelete:CASCADE" json:"items"`
}

type CartItem struct {
	ID         uint            `gorm:"primaryKey;autoIncrement"                       json:"id"`
	CartID     uint            `gorm:"uniqueIndex:idx_cart_product;not null"          json:"cart_id"`
	ProductID  uint            `gorm:"uniqueIndex:idx_cart_product;not null"          json:"product_id"`
	Quantity   int             `gorm:"not null;check:quantity > 0"                    json:"quantity"`
	Price      decimal.Decimal `gorm:"type:numeric(12,2);not null"                    json:"price"`
	TotalPrice decimal.Decimal `gorm:"type:numeric(12,2);not null"                    json:"total_price"`

	Product *Product `gorm:"constraint:OnDelete:CASCADE" json:"-"`
}

type Product struct {
	ID          uint            `gorm:"primaryKey;autoIncrement"          json:"id"`
	Name        string          `gorm:"not null;index"                    json:"name"`
	Description string          `gorm:"not null;default:''"               json:"description"`
	Price       decimal.Decimal `gorm:"type:numeric(12,2);not null"       json:"price"`
	IsAvailable bool            `gorm:"not null"                          json:"is_available"`
	Count       uint            `gorm:"not null;default:0"                json:"count"`
	CategoryID  *uint           `gorm:"index"                             json:"category_id"`
	ShopID      uint            `gorm:"index;not null"                    json:"shop_id"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

type Category struct {
	ID          uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	Name        string    `gorm:"uniqueIndex;not null"     json:"name"`
	Description string    `gorm:"not null;default:''"      json:"description"`
	ImageURL    string    `gorm:"not null;default:''"      json:"image_url"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type Shop struct {
	ID        uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	Name      string    `gorm:"uniqueIndex;not null"     json:"name"`
	OwnerID   uint      `gorm:"index;not null"           json:"owner_id"`
	CreatedAt time.Time `json:"created_at"`
}

type Order struct {
	ID          uint            `gorm:"primaryKey;autoIncrement"                 json:"id"`
	UserID      uint            `gorm:"index;not null"                           json:"user_id"`
	TotalAmount decimal.Decimal `gorm:"type:numeric(12,2);not null"              json:"total_amount"`
	Status      string          `gorm:"not null;default:'pending_payment'"       json:"status"`
	CreatedAt   time.Time       `json:"created_at"`

	Items []OrderItem `gorm:"constraint:OnDelete:CASCADE" json:"items"`
}

type OrderItem struct {
	ID        uint            `gorm:"primaryKey;autoIncrement"      json:"id"`
	OrderID   uint            `gorm:"index;not null"                json:"order_id"`
	ProductID uint            `gorm:"not null"                      json:"product_id"`
	Quantity  int             `gorm:"not null"                      json:"quantity"`
	Price     decimal.Decimal `gorm:"type:numeric(12,2);not null"   json:"price"`
}

// PasswordReset records a consumed reset token so it cannot be replayed.
type PasswordReset struct {
	ID     uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	JTI    string    `gorm:"uniqueIndex;not null"     json:"jti"`
	Email  string    `gorm:"index;not null"           json:"email"`
	UsedAt time.Time `gorm:"not null"                 json:"used_at"`
}

func All() []any {
	return []any{
		&User{}, &Cart{}, &CartItem{}, &Category{}, &Shop{},
		&Product{}, &Order{}, &OrderItem{}, &PasswordReset{},
	}
}
