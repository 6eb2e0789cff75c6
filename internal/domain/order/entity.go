// internal/domain/order/entity.go
package order

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/your-org/storefront-backend/internal/domain/product"
)

// Status represents the lifecycle state of an order
type Status string

const (
	// StatusPending means a payment intent exists but payment has not
	// been confirmed. Stock is not committed yet.
	StatusPending Status = "PENDING"
	// StatusProcessing means payment succeeded and stock was committed.
	StatusProcessing Status = "PROCESSING"
)

// CanTransitionTo reports whether the status transition is allowed.
// The only transition in the order lifecycle is PENDING -> PROCESSING,
// taken exactly once at payment confirmation.
func (s Status) CanTransitionTo(target Status) bool {
	return s == StatusPending && target == StatusProcessing
}

// Order represents a customer order. Created at checkout initiation with
// a snapshot of the cart; fulfilled state is reached via ConfirmPayment.
type Order struct {
	ID              uint            `gorm:"primaryKey" json:"id"`
	UserID          uint            `gorm:"not null;index" json:"user_id"`
	Status          Status          `gorm:"not null;default:'PENDING';size:20" json:"status"`
	Total           decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"total"`
	Currency        string          `gorm:"not null;size:3;default:'usd'" json:"currency"`
	PaymentIntentID string          `gorm:"uniqueIndex;not null;size:255" json:"payment_intent_id"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`

	// Relationships
	Items []OrderItem `gorm:"foreignKey:OrderID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"items"`
}

// OrderItem captures one cart line at the moment of checkout. Price is
// copied from the product so later price changes don't affect the order.
type OrderItem struct {
	ID        uint            `gorm:"primaryKey" json:"id"`
	OrderID   uint            `gorm:"not null;index" json:"order_id"`
	ProductID uint            `gorm:"not null" json:"product_id"`
	Quantity  int             `gorm:"not null" json:"quantity"`
	Price     decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"price"`
	CreatedAt time.Time       `json:"created_at"`

	// Relationships
	Product *product.Product `gorm:"foreignKey:ProductID" json:"product,omitempty"`
}

// TableName overrides
func (Order) TableName() string     { return "orders" }
func (OrderItem) TableName() string { return "order_items" }
