// internal/domain/cart/service.go
package cart

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/your-org/storefront-backend/internal/domain/product"
	"gorm.io/gorm"
)

// Errors returned by the cart service
var (
	ErrProductNotFound = errors.New("product not found")
	ErrItemNotFound    = errors.New("cart item not found")
)

// InsufficientStockError reports that the requested quantity exceeds the
// available stock. This is advisory; stock is committed at payment time.
type InsufficientStockError struct {
	Product   string
	Available int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for %s: %d available", e.Product, e.Available)
}

// Service handles shopping cart business logic
type Service struct {
	db     *gorm.DB
	logger *logrus.Logger
}

// NewService creates a new cart service
func NewService(db *gorm.DB, logger *logrus.Logger) *Service {
	return &Service{
		db:     db,
		logger: logger,
	}
}

// AddToCartRequest represents a request to add an item to the cart
type AddToCartRequest struct {
	ProductID uint `json:"product_id" binding:"required"`
	Quantity  int  `json:"quantity" binding:"required,min=1"`
}

// UpdateCartItemRequest represents a request to change an item quantity.
// A quantity of zero removes the item.
type UpdateCartItemRequest struct {
	Quantity *int `json:"quantity" binding:"required,min=0"`
}

// GetCart returns the user's cart with items, products and totals.
// Users without a cart get an empty response rather than an error.
func (s *Service) GetCart(userID uint) (*CartResponse, error) {
	c, err := s.findCart(userID)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return &CartResponse{
			UserID: userID,
			Items:  []CartItem{},
			Totals: CartTotals{Subtotal: decimal.Zero},
		}, nil
	}
	return s.buildResponse(c), nil
}

// AddToCart adds a product to the user's cart. Adding a product already
// in the cart increases its quantity; the combined quantity is checked
// against available stock.
func (s *Service) AddToCart(userID uint, req *AddToCartRequest) (*CartResponse, error) {
	var p product.Product
	if err := s.db.Where("id = ? AND is_active = ?", req.ProductID, true).First(&p).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("failed to load product: %w", err)
	}

	c, err := s.findOrCreateCart(userID)
	if err != nil {
		return nil, err
	}

	var item CartItem
	err = s.db.Where("cart_id = ? AND product_id = ?", c.ID, req.ProductID).First(&item).Error
	switch {
	case err == nil:
		newQuantity := item.Quantity + req.Quantity
		if !p.IsInStock(newQuantity) {
			return nil, &InsufficientStockError{Product: p.Name, Available: p.Stock}
		}
		if err := s.db.Model(&item).Update("quantity", newQuantity).Error; err != nil {
			return nil, fmt.Errorf("failed to update cart item: %w", err)
		}
	case errors.Is(err, gorm.ErrRecordNotFound):
		if !p.IsInStock(req.Quantity) {
			return nil, &InsufficientStockError{Product: p.Name, Available: p.Stock}
		}
		item = CartItem{
			CartID:    c.ID,
			ProductID: req.ProductID,
			Quantity:  req.Quantity,
		}
		if err := s.db.Create(&item).Error; err != nil {
			return nil, fmt.Errorf("failed to add cart item: %w", err)
		}
	default:
		return nil, fmt.Errorf("failed to load cart item: %w", err)
	}

	s.logger.WithFields(logrus.Fields{
		"user_id":    userID,
		"product_id": req.ProductID,
		"quantity":   req.Quantity,
	}).Debug("Item added to cart")

	return s.GetCart(userID)
}

// UpdateCartItem sets the quantity of a cart item owned by the user.
// Setting the quantity to zero removes the item.
func (s *Service) UpdateCartItem(userID, itemID uint, req *UpdateCartItemRequest) (*CartResponse, error) {
	item, err := s.ownedItem(userID, itemID)
	if err != nil {
		return nil, err
	}

	quantity := *req.Quantity
	if quantity == 0 {
		if err := s.db.Delete(item).Error; err != nil {
			return nil, fmt.Errorf("failed to remove cart item: %w", err)
		}
		return s.GetCart(userID)
	}

	var p product.Product
	if err := s.db.First(&p, item.ProductID).Error; err != nil {
		return nil, fmt.Errorf("failed to load product: %w", err)
	}
	if !p.IsInStock(quantity) {
		return nil, &InsufficientStockError{Product: p.Name, Available: p.Stock}
	}

	if err := s.db.Model(item).Update("quantity", quantity).Error; err != nil {
		return nil, fmt.Errorf("failed to update cart item: %w", err)
	}

	return s.GetCart(userID)
}

// RemoveCartItem removes a cart item owned by the user.
func (s *Service) RemoveCartItem(userID, itemID uint) (*CartResponse, error) {
	item, err := s.ownedItem(userID, itemID)
	if err != nil {
		return nil, err
	}

	if err := s.db.Delete(item).Error; err != nil {
		return nil, fmt.Errorf("failed to remove cart item: %w", err)
	}

	return s.GetCart(userID)
}

// ClearCart removes all items from the user's cart.
func (s *Service) ClearCart(userID uint) error {
	c, err := s.findCart(userID)
	if err != nil {
		return err
	}
	if c == nil {
		return nil
	}

	if err := s.db.Where("cart_id = ?", c.ID).Delete(&CartItem{}).Error; err != nil {
		return fmt.Errorf("failed to clear cart: %w", err)
	}
	return nil
}

func (s *Service) findCart(userID uint) (*Cart, error) {
	var c Cart
	err := s.db.Preload("Items.Product").Where("user_id = ?", userID).First(&c).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to load cart: %w", err)
	}
	return &c, nil
}

// findOrCreateCart returns the user's cart, creating it when missing.
// Carts are normally created at signup; this covers users from before
// that behavior existed.
func (s *Service) findOrCreateCart(userID uint) (*Cart, error) {
	var c Cart
	err := s.db.Where("user_id = ?", userID).First(&c).Error
	if err == nil {
		return &c, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("failed to load cart: %w", err)
	}

	c = Cart{UserID: userID}
	if err := s.db.Create(&c).Error; err != nil {
		return nil, fmt.Errorf("failed to create cart: %w", err)
	}
	return &c, nil
}

// ownedItem loads a cart item and verifies it belongs to the user's cart.
func (s *Service) ownedItem(userID, itemID uint) (*CartItem, error) {
	var item CartItem
	err := s.db.
		Joins("JOIN carts ON carts.id = cart_items.cart_id").
		Where("cart_items.id = ? AND carts.user_id = ?", itemID, userID).
		First(&item).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrItemNotFound
		}
		return nil, fmt.Errorf("failed to load cart item: %w", err)
	}
	return &item, nil
}

func (s *Service) buildResponse(c *Cart) *CartResponse {
	totals := CartTotals{Subtotal: decimal.Zero}
	for _, item := range c.Items {
		totals.ItemCount++
		totals.TotalQuantity += item.Quantity
		if item.Product != nil {
			lineTotal := item.Product.Price.Mul(decimal.NewFromInt(int64(item.Quantity)))
			totals.Subtotal = totals.Subtotal.Add(lineTotal)
		}
	}

	items := c.Items
	if items == nil {
		items = []CartItem{}
	}

	return &CartResponse{
		CartID:    c.ID,
		UserID:    c.UserID,
		Items:     items,
		Totals:    totals,
		UpdatedAt: c.UpdatedAt,
	}
}
