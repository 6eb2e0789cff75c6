// internal/domain/checkout/service.go
package checkout

import (
	"context"
	"errors"
	"strconv"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/your-org/storefront-backend/internal/domain/cart"
	"github.com/your-org/storefront-backend/internal/domain/order"
	"github.com/your-org/storefront-backend/internal/domain/payment"
)

// Store is the persistence port for checkout. Implementations must keep
// CommitPaidOrder atomic: status flip, stock decrement and cart clearing
// happen in one transaction or not at all.
type Store interface {
	// CartForCheckout loads the user's cart with items and products.
	// Returns (nil, nil) when the user has no cart.
	CartForCheckout(ctx context.Context, userID uint) (*cart.Cart, error)

	// CreateOrder persists a new PENDING order with its items.
	CreateOrder(ctx context.Context, o *order.Order) error

	// OrderByPaymentIntent finds the order for a payment intent.
	// Returns (nil, nil) when no order matches.
	OrderByPaymentIntent(ctx context.Context, paymentIntentID string) (*order.Order, error)

	// CommitPaidOrder moves the order from PENDING to PROCESSING,
	// decrements stock for each order item and clears the user's cart,
	// all in one transaction. Returns ErrAlreadyProcessed when the
	// order already left PENDING.
	CommitPaidOrder(ctx context.Context, orderID, userID uint) error

	// OrderWithItems reloads an order with its items and products.
	OrderWithItems(ctx context.Context, orderID uint) (*order.Order, error)
}

// Gateway is the payment provider port. Amounts are in minor units.
type Gateway interface {
	CreateIntent(ctx context.Context, amount int64, currency string, metadata map[string]string) (*payment.Intent, error)
	RetrieveIntent(ctx context.Context, id string) (*payment.Intent, error)
	ConfirmIntent(ctx context.Context, id, paymentMethod string) (*payment.Intent, error)
}

// Service orchestrates checkout initiation and payment confirmation.
type Service struct {
	store    Store
	gateway  Gateway
	currency string
	logger   *logrus.Logger
}

// NewService creates a new checkout service
func NewService(store Store, gateway Gateway, currency string, logger *logrus.Logger) *Service {
	if currency == "" {
		currency = "usd"
	}
	return &Service{
		store:    store,
		gateway:  gateway,
		currency: currency,
		logger:   logger,
	}
}

// InitiateCheckoutResponse is returned by InitiateCheckout
type InitiateCheckoutResponse struct {
	Order        *order.Order `json:"order"`
	ClientSecret string       `json:"client_secret"`
}

// MinorUnits converts a decimal amount to minor units (cents).
func MinorUnits(amount decimal.Decimal) int64 {
	return amount.Shift(2).Round(0).IntPart()
}

// InitiateCheckout snapshots the user's cart into a PENDING order and
// creates a payment intent for the cart total. Stock is checked here
// only as an advisory; it is committed at confirmation.
func (s *Service) InitiateCheckout(ctx context.Context, userID uint) (*InitiateCheckoutResponse, error) {
	c, err := s.store.CartForCheckout(ctx, userID)
	if err != nil {
		return nil, &StoreError{Op: "load cart", Err: err}
	}
	if c == nil || len(c.Items) == 0 {
		return nil, ErrEmptyCart
	}

	total := decimal.Zero
	for _, item := range c.Items {
		if item.Product == nil {
			return nil, &StoreError{Op: "load cart", Err: errMissingProduct(item.ProductID)}
		}
		if !item.Product.IsInStock(item.Quantity) {
			return nil, &InsufficientStockError{
				Product:   item.Product.Name,
				Available: item.Product.Stock,
			}
		}
		lineTotal := item.Product.Price.Mul(decimal.NewFromInt(int64(item.Quantity)))
		total = total.Add(lineTotal)
	}

	intent, err := s.gateway.CreateIntent(ctx, MinorUnits(total), s.currency, map[string]string{
		"userId": strconv.FormatUint(uint64(userID), 10),
		"cartId": strconv.FormatUint(uint64(c.ID), 10),
	})
	if err != nil {
		return nil, &GatewayError{Op: "create intent", Err: err}
	}

	o := &order.Order{
		UserID:          userID,
		Status:          order.StatusPending,
		Total:           total,
		Currency:        s.currency,
		PaymentIntentID: intent.ID,
	}
	for _, item := range c.Items {
		o.Items = append(o.Items, order.OrderItem{
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
			Price:     item.Product.Price,
		})
	}

	if err := s.store.CreateOrder(ctx, o); err != nil {
		// The intent exists at the provider but no order references it.
		// Log everything needed for manual reconciliation; never retry
		// or cancel automatically.
		s.logger.WithFields(logrus.Fields{
			"payment_intent_id": intent.ID,
			"user_id":           userID,
			"cart_id":           c.ID,
			"total":             total.String(),
			"error":             err.Error(),
		}).Error("Orphaned payment intent: order creation failed after intent was created")
		return nil, &StoreError{Op: "create order", Err: err}
	}

	s.logger.WithFields(logrus.Fields{
		"order_id":          o.ID,
		"user_id":           userID,
		"payment_intent_id": intent.ID,
		"total":             total.String(),
	}).Info("Checkout initiated")

	return &InitiateCheckoutResponse{
		Order:        o,
		ClientSecret: intent.ClientSecret,
	}, nil
}

// ConfirmPayment verifies the payment intent succeeded at the provider
// and commits the order exactly once: status PENDING -> PROCESSING, stock
// decremented, cart cleared, all in one transaction. A repeated confirm
// fails with ErrAlreadyProcessed and decrements nothing.
func (s *Service) ConfirmPayment(ctx context.Context, userID uint, paymentIntentID string) (*order.Order, error) {
	intent, err := s.gateway.RetrieveIntent(ctx, paymentIntentID)
	if err != nil {
		return nil, &GatewayError{Op: "retrieve intent", Err: err}
	}
	if !intent.Succeeded() {
		s.logger.WithFields(logrus.Fields{
			"payment_intent_id": paymentIntentID,
			"status":            intent.Status,
		}).Warn("Payment confirmation attempted before payment completed")
		return nil, ErrPaymentNotCompleted
	}

	o, err := s.store.OrderByPaymentIntent(ctx, paymentIntentID)
	if err != nil {
		return nil, &StoreError{Op: "find order", Err: err}
	}
	if o == nil {
		return nil, ErrOrderNotFound
	}
	if o.UserID != userID {
		return nil, ErrForbidden
	}
	if o.Status != order.StatusPending {
		return nil, ErrAlreadyProcessed
	}

	if err := s.store.CommitPaidOrder(ctx, o.ID, userID); err != nil {
		// A concurrent confirm won the compare-and-set; its commit
		// stands, this one reports the idempotency guard.
		if errors.Is(err, ErrAlreadyProcessed) {
			return nil, ErrAlreadyProcessed
		}
		return nil, &StoreError{Op: "commit order", Err: err}
	}

	s.logger.WithFields(logrus.Fields{
		"order_id":          o.ID,
		"user_id":           userID,
		"payment_intent_id": paymentIntentID,
	}).Info("Payment confirmed, order committed")

	return s.loadCommitted(ctx, o.ID)
}

// SimulatePayment confirms a payment intent server-side with a test
// payment method. Only for development and testing; provider errors are
// passed through unchanged so test clients see the real failure.
func (s *Service) SimulatePayment(ctx context.Context, userID uint, paymentIntentID string) (*payment.Intent, error) {
	o, err := s.store.OrderByPaymentIntent(ctx, paymentIntentID)
	if err != nil {
		return nil, &StoreError{Op: "find order", Err: err}
	}
	if o == nil {
		return nil, ErrOrderNotFound
	}
	if o.UserID != userID {
		return nil, ErrForbidden
	}

	return s.gateway.ConfirmIntent(ctx, paymentIntentID, "pm_card_visa")
}

func (s *Service) loadCommitted(ctx context.Context, orderID uint) (*order.Order, error) {
	o, err := s.store.OrderWithItems(ctx, orderID)
	if err != nil {
		return nil, &StoreError{Op: "reload order", Err: err}
	}
	return o, nil
}

type errMissingProduct uint

func (e errMissingProduct) Error() string {
	return "cart item references missing product " + strconv.FormatUint(uint64(e), 10)
}
