// internal/domain/checkout/store.go
package checkout

import (
	"context"
	"errors"
	"fmt"

	"github.com/your-org/storefront-backend/internal/domain/cart"
	"github.com/your-org/storefront-backend/internal/domain/order"
	"github.com/your-org/storefront-backend/internal/domain/product"
	"gorm.io/gorm"
)

// GormStore is the database-backed checkout store.
type GormStore struct {
	db *gorm.DB
}

// NewGormStore creates a new checkout store
func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

// CartForCheckout loads the user's cart with items and their products.
func (s *GormStore) CartForCheckout(ctx context.Context, userID uint) (*cart.Cart, error) {
	var c cart.Cart
	err := s.db.WithContext(ctx).
		Preload("Items.Product").
		Where("user_id = ?", userID).
		First(&c).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to load cart: %w", err)
	}
	return &c, nil
}

// CreateOrder persists a PENDING order together with its items.
func (s *GormStore) CreateOrder(ctx context.Context, o *order.Order) error {
	if err := s.db.WithContext(ctx).Create(o).Error; err != nil {
		return fmt.Errorf("failed to create order: %w", err)
	}
	return nil
}

// OrderByPaymentIntent finds the order referencing a payment intent.
func (s *GormStore) OrderByPaymentIntent(ctx context.Context, paymentIntentID string) (*order.Order, error) {
	var o order.Order
	err := s.db.WithContext(ctx).
		Where("payment_intent_id = ?", paymentIntentID).
		First(&o).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find order: %w", err)
	}
	return &o, nil
}

// CommitPaidOrder flips the order to PROCESSING, decrements stock and
// clears the user's cart in one transaction. The status update is a
// compare-and-set on PENDING: a second commit sees zero rows affected
// and backs out with ErrAlreadyProcessed, so stock is decremented
// exactly once no matter how many confirms race.
func (s *GormStore) CommitPaidOrder(ctx context.Context, orderID, userID uint) error {
	tx := s.db.WithContext(ctx).Begin()
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
		}
	}()

	result := tx.Model(&order.Order{}).
		Where("id = ? AND status = ?", orderID, order.StatusPending).
		Update("status", order.StatusProcessing)
	if result.Error != nil {
		tx.Rollback()
		return fmt.Errorf("failed to update order status: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		tx.Rollback()
		return ErrAlreadyProcessed
	}

	var items []order.OrderItem
	if err := tx.Where("order_id = ?", orderID).Find(&items).Error; err != nil {
		tx.Rollback()
		return fmt.Errorf("failed to load order items: %w", err)
	}

	for _, item := range items {
		if err := tx.Model(&product.Product{}).
			Where("id = ?", item.ProductID).
			UpdateColumn("stock", gorm.Expr("stock - ?", item.Quantity)).Error; err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to decrement stock for product %d: %w", item.ProductID, err)
		}
	}

	var c cart.Cart
	err := tx.Where("user_id = ?", userID).First(&c).Error
	if err == nil {
		if err := tx.Where("cart_id = ?", c.ID).Delete(&cart.CartItem{}).Error; err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to clear cart: %w", err)
		}
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		tx.Rollback()
		return fmt.Errorf("failed to load cart: %w", err)
	}

	if err := tx.Commit().Error; err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// OrderWithItems reloads an order with items and products preloaded.
func (s *GormStore) OrderWithItems(ctx context.Context, orderID uint) (*order.Order, error) {
	var o order.Order
	err := s.db.WithContext(ctx).
		Preload("Items.Product").
		First(&o, orderID).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load order %d: %w", orderID, err)
	}
	return &o, nil
}
