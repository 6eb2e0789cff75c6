package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/your-org/storefront-backend/internal/domain/cart"
	"github.com/your-org/storefront-backend/internal/domain/checkout"
	"github.com/your-org/storefront-backend/internal/domain/order"
	"github.com/your-org/storefront-backend/internal/domain/payment"
	"github.com/your-org/storefront-backend/internal/domain/product"
)

// In-memory fakes so handler status mapping can be exercised without a
// database or a payment provider.

type fakeStore struct {
	cart  *cart.Cart
	order *order.Order
}

func (f *fakeStore) CartForCheckout(ctx context.Context, userID uint) (*cart.Cart, error) {
	return f.cart, nil
}

func (f *fakeStore) CreateOrder(ctx context.Context, o *order.Order) error {
	o.ID = 1
	f.order = o
	return nil
}

func (f *fakeStore) OrderByPaymentIntent(ctx context.Context, paymentIntentID string) (*order.Order, error) {
	if f.order == nil || f.order.PaymentIntentID != paymentIntentID {
		return nil, nil
	}
	return f.order, nil
}

func (f *fakeStore) CommitPaidOrder(ctx context.Context, orderID, userID uint) error {
	if f.order.Status != order.StatusPending {
		return checkout.ErrAlreadyProcessed
	}
	f.order.Status = order.StatusProcessing
	return nil
}

func (f *fakeStore) OrderWithItems(ctx context.Context, orderID uint) (*order.Order, error) {
	return f.order, nil
}

type fakeGateway struct {
	status string
}

func (f *fakeGateway) CreateIntent(ctx context.Context, amount int64, currency string, metadata map[string]string) (*payment.Intent, error) {
	return &payment.Intent{ID: "pi_fake", ClientSecret: "cs_fake", Status: "requires_payment_method"}, nil
}

func (f *fakeGateway) RetrieveIntent(ctx context.Context, id string) (*payment.Intent, error) {
	return &payment.Intent{ID: id, Status: f.status}, nil
}

func (f *fakeGateway) ConfirmIntent(ctx context.Context, id, paymentMethod string) (*payment.Intent, error) {
	f.status = payment.StatusSucceeded
	return &payment.Intent{ID: id, Status: f.status}, nil
}

func newCheckoutRouter(store checkout.Store, gateway checkout.Gateway, userID uint) *gin.Engine {
	gin.SetMode(gin.TestMode)

	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)

	svc := checkout.NewService(store, gateway, "usd", logger)
	handler := NewCheckoutHandler(svc, logger)

	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set("user_id", userID)
		c.Next()
	})
	r.POST("/checkout", handler.InitiateCheckout)
	r.POST("/checkout/confirm", handler.ConfirmPayment)
	r.POST("/checkout/simulate-payment", handler.SimulatePayment)
	return r
}

func stockedCart() *cart.Cart {
	return &cart.Cart{
		ID:     3,
		UserID: 1,
		Items: []cart.CartItem{
			{
				CartID:    3,
				ProductID: 9,
				Quantity:  2,
				Product: &product.Product{
					ID:    9,
					Name:  "Widget",
					Price: decimal.RequireFromString("10.00"),
					Stock: 5,
				},
			},
		},
	}
}

func postJSON(t *testing.T, r *gin.Engine, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", "application/json")

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestCheckoutHandler_EmptyCart(t *testing.T) {
	r := newCheckoutRouter(&fakeStore{}, &fakeGateway{}, 1)

	w := postJSON(t, r, "/checkout", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "Cart is empty")
}

func TestCheckoutHandler_InitiateReturnsClientSecret(t *testing.T) {
	r := newCheckoutRouter(&fakeStore{cart: stockedCart()}, &fakeGateway{}, 1)

	w := postJSON(t, r, "/checkout", nil)
	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Contains(t, w.Body.String(), "cs_fake")
}

func TestCheckoutHandler_ConfirmBeforePayment(t *testing.T) {
	store := &fakeStore{cart: stockedCart()}
	gateway := &fakeGateway{status: "requires_payment_method"}
	r := newCheckoutRouter(store, gateway, 1)

	postJSON(t, r, "/checkout", nil)

	w := postJSON(t, r, "/checkout/confirm", gin.H{"payment_intent_id": "pi_fake"})
	assert.Equal(t, http.StatusPaymentRequired, w.Code)
}

func TestCheckoutHandler_FullFlow(t *testing.T) {
	store := &fakeStore{cart: stockedCart()}
	gateway := &fakeGateway{status: "requires_payment_method"}
	r := newCheckoutRouter(store, gateway, 1)

	w := postJSON(t, r, "/checkout", nil)
	require.Equal(t, http.StatusCreated, w.Code)

	w = postJSON(t, r, "/checkout/simulate-payment", gin.H{"payment_intent_id": "pi_fake"})
	require.Equal(t, http.StatusOK, w.Code)

	w = postJSON(t, r, "/checkout/confirm", gin.H{"payment_intent_id": "pi_fake"})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, order.StatusProcessing, store.order.Status)

	// Confirming again conflicts instead of committing twice.
	w = postJSON(t, r, "/checkout/confirm", gin.H{"payment_intent_id": "pi_fake"})
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestCheckoutHandler_ConfirmUnknownIntent(t *testing.T) {
	r := newCheckoutRouter(&fakeStore{}, &fakeGateway{status: payment.StatusSucceeded}, 1)

	w := postJSON(t, r, "/checkout/confirm", gin.H{"payment_intent_id": "pi_nope"})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCheckoutHandler_ConfirmForeignOrder(t *testing.T) {
	store := &fakeStore{
		order: &order.Order{ID: 1, UserID: 2, Status: order.StatusPending, PaymentIntentID: "pi_fake"},
	}
	r := newCheckoutRouter(store, &fakeGateway{status: payment.StatusSucceeded}, 1)

	w := postJSON(t, r, "/checkout/confirm", gin.H{"payment_intent_id": "pi_fake"})
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestCheckoutHandler_ConfirmMissingBody(t *testing.T) {
	r := newCheckoutRouter(&fakeStore{}, &fakeGateway{}, 1)

	w := postJSON(t, r, "/checkout/confirm", gin.H{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
