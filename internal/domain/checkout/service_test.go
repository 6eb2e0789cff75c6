package checkout

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/your-org/storefront-backend/internal/domain/cart"
	"github.com/your-org/storefront-backend/internal/domain/order"
	"github.com/your-org/storefront-backend/internal/domain/payment"
	"github.com/your-org/storefront-backend/internal/domain/product"
)

// --- Mocks ---

type MockStore struct{ mock.Mock }

func (m *MockStore) CartForCheckout(ctx context.Context, userID uint) (*cart.Cart, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*cart.Cart), args.Error(1)
}

func (m *MockStore) CreateOrder(ctx context.Context, o *order.Order) error {
	args := m.Called(ctx, o)
	return args.Error(0)
}

func (m *MockStore) OrderByPaymentIntent(ctx context.Context, paymentIntentID string) (*order.Order, error) {
	args := m.Called(ctx, paymentIntentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*order.Order), args.Error(1)
}

func (m *MockStore) CommitPaidOrder(ctx context.Context, orderID, userID uint) error {
	args := m.Called(ctx, orderID, userID)
	return args.Error(0)
}

func (m *MockStore) OrderWithItems(ctx context.Context, orderID uint) (*order.Order, error) {
	args := m.Called(ctx, orderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*order.Order), args.Error(1)
}

type MockGateway struct{ mock.Mock }

func (m *MockGateway) CreateIntent(ctx context.Context, amount int64, currency string, metadata map[string]string) (*payment.Intent, error) {
	args := m.Called(ctx, amount, currency, metadata)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*payment.Intent), args.Error(1)
}

func (m *MockGateway) RetrieveIntent(ctx context.Context, id string) (*payment.Intent, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*payment.Intent), args.Error(1)
}

func (m *MockGateway) ConfirmIntent(ctx context.Context, id, paymentMethod string) (*payment.Intent, error) {
	args := m.Called(ctx, id, paymentMethod)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*payment.Intent), args.Error(1)
}

func newTestService(store Store, gateway Gateway) *Service {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	return NewService(store, gateway, "usd", logger)
}

func testCart(userID uint) *cart.Cart {
	return &cart.Cart{
		ID:     7,
		UserID: userID,
		Items: []cart.CartItem{
			{
				ID:        1,
				CartID:    7,
				ProductID: 10,
				Quantity:  2,
				Product: &product.Product{
					ID:    10,
					Name:  "Widget",
					Price: decimal.RequireFromString("10.00"),
					Stock: 5,
				},
			},
		},
	}
}

// --- InitiateCheckout ---

func TestInitiateCheckout_EmptyCart(t *testing.T) {
	store := new(MockStore)
	gateway := new(MockGateway)
	svc := newTestService(store, gateway)

	store.On("CartForCheckout", mock.Anything, uint(1)).Return(nil, nil)

	_, err := svc.InitiateCheckout(context.Background(), 1)
	assert.ErrorIs(t, err, ErrEmptyCart)
	gateway.AssertNotCalled(t, "CreateIntent")
}

func TestInitiateCheckout_CartWithNoItems(t *testing.T) {
	store := new(MockStore)
	gateway := new(MockGateway)
	svc := newTestService(store, gateway)

	store.On("CartForCheckout", mock.Anything, uint(1)).Return(&cart.Cart{ID: 7, UserID: 1}, nil)

	_, err := svc.InitiateCheckout(context.Background(), 1)
	assert.ErrorIs(t, err, ErrEmptyCart)
}

func TestInitiateCheckout_InsufficientStock(t *testing.T) {
	store := new(MockStore)
	gateway := new(MockGateway)
	svc := newTestService(store, gateway)

	c := testCart(1)
	c.Items[0].Quantity = 6 // stock is 5
	store.On("CartForCheckout", mock.Anything, uint(1)).Return(c, nil)

	_, err := svc.InitiateCheckout(context.Background(), 1)

	var stockErr *InsufficientStockError
	assert.ErrorAs(t, err, &stockErr)
	assert.Equal(t, "Widget", stockErr.Product)
	assert.Equal(t, 5, stockErr.Available)
	gateway.AssertNotCalled(t, "CreateIntent")
}

func TestInitiateCheckout_ChargesMinorUnitsAndSnapshotsOrder(t *testing.T) {
	store := new(MockStore)
	gateway := new(MockGateway)
	svc := newTestService(store, gateway)

	store.On("CartForCheckout", mock.Anything, uint(1)).Return(testCart(1), nil)
	// 2 x 10.00 => 20.00 => 2000 cents
	gateway.On("CreateIntent", mock.Anything, int64(2000), "usd", map[string]string{
		"userId": "1",
		"cartId": "7",
	}).Return(&payment.Intent{ID: "pi_123", ClientSecret: "cs_123", Status: "requires_payment_method"}, nil)
	store.On("CreateOrder", mock.Anything, mock.MatchedBy(func(o *order.Order) bool {
		return o.UserID == 1 &&
			o.Status == order.StatusPending &&
			o.PaymentIntentID == "pi_123" &&
			o.Total.Equal(decimal.RequireFromString("20.00")) &&
			len(o.Items) == 1 &&
			o.Items[0].ProductID == 10 &&
			o.Items[0].Quantity == 2 &&
			o.Items[0].Price.Equal(decimal.RequireFromString("10.00"))
	})).Return(nil)

	resp, err := svc.InitiateCheckout(context.Background(), 1)
	assert.NoError(t, err)
	assert.Equal(t, "cs_123", resp.ClientSecret)
	assert.Equal(t, order.StatusPending, resp.Order.Status)
	store.AssertExpectations(t)
	gateway.AssertExpectations(t)
}

func TestInitiateCheckout_GatewayFailure(t *testing.T) {
	store := new(MockStore)
	gateway := new(MockGateway)
	svc := newTestService(store, gateway)

	store.On("CartForCheckout", mock.Anything, uint(1)).Return(testCart(1), nil)
	gateway.On("CreateIntent", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(nil, errors.New("stripe down"))

	_, err := svc.InitiateCheckout(context.Background(), 1)

	var gatewayErr *GatewayError
	assert.ErrorAs(t, err, &gatewayErr)
	store.AssertNotCalled(t, "CreateOrder")
}

func TestInitiateCheckout_OrderPersistFailureAfterIntent(t *testing.T) {
	store := new(MockStore)
	gateway := new(MockGateway)
	svc := newTestService(store, gateway)

	store.On("CartForCheckout", mock.Anything, uint(1)).Return(testCart(1), nil)
	gateway.On("CreateIntent", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(&payment.Intent{ID: "pi_orphan", ClientSecret: "cs"}, nil)
	store.On("CreateOrder", mock.Anything, mock.Anything).Return(errors.New("db down"))

	_, err := svc.InitiateCheckout(context.Background(), 1)

	var storeErr *StoreError
	assert.ErrorAs(t, err, &storeErr)
}

// --- ConfirmPayment ---

func TestConfirmPayment_OrderNotFound(t *testing.T) {
	store := new(MockStore)
	gateway := new(MockGateway)
	svc := newTestService(store, gateway)

	gateway.On("RetrieveIntent", mock.Anything, "pi_unknown").
		Return(&payment.Intent{ID: "pi_unknown", Status: payment.StatusSucceeded}, nil)
	store.On("OrderByPaymentIntent", mock.Anything, "pi_unknown").Return(nil, nil)

	_, err := svc.ConfirmPayment(context.Background(), 1, "pi_unknown")
	assert.ErrorIs(t, err, ErrOrderNotFound)
}

func TestConfirmPayment_WrongUser(t *testing.T) {
	store := new(MockStore)
	gateway := new(MockGateway)
	svc := newTestService(store, gateway)

	gateway.On("RetrieveIntent", mock.Anything, "pi_123").
		Return(&payment.Intent{ID: "pi_123", Status: payment.StatusSucceeded}, nil)
	store.On("OrderByPaymentIntent", mock.Anything, "pi_123").
		Return(&order.Order{ID: 4, UserID: 2, Status: order.StatusPending}, nil)

	_, err := svc.ConfirmPayment(context.Background(), 1, "pi_123")
	assert.ErrorIs(t, err, ErrForbidden)
	store.AssertNotCalled(t, "CommitPaidOrder")
}

func TestConfirmPayment_PaymentNotCompleted(t *testing.T) {
	store := new(MockStore)
	gateway := new(MockGateway)
	svc := newTestService(store, gateway)

	gateway.On("RetrieveIntent", mock.Anything, "pi_123").
		Return(&payment.Intent{ID: "pi_123", Status: "requires_payment_method"}, nil)

	_, err := svc.ConfirmPayment(context.Background(), 1, "pi_123")
	assert.ErrorIs(t, err, ErrPaymentNotCompleted)
	store.AssertNotCalled(t, "OrderByPaymentIntent")
	store.AssertNotCalled(t, "CommitPaidOrder")
}

func TestConfirmPayment_Success(t *testing.T) {
	store := new(MockStore)
	gateway := new(MockGateway)
	svc := newTestService(store, gateway)

	pending := &order.Order{ID: 4, UserID: 1, Status: order.StatusPending}
	committed := &order.Order{ID: 4, UserID: 1, Status: order.StatusProcessing}

	store.On("OrderByPaymentIntent", mock.Anything, "pi_123").Return(pending, nil)
	gateway.On("RetrieveIntent", mock.Anything, "pi_123").
		Return(&payment.Intent{ID: "pi_123", Status: payment.StatusSucceeded}, nil)
	store.On("CommitPaidOrder", mock.Anything, uint(4), uint(1)).Return(nil)
	store.On("OrderWithItems", mock.Anything, uint(4)).Return(committed, nil)

	o, err := svc.ConfirmPayment(context.Background(), 1, "pi_123")
	assert.NoError(t, err)
	assert.Equal(t, order.StatusProcessing, o.Status)
	store.AssertExpectations(t)
}

func TestConfirmPayment_RepeatedConfirmFails(t *testing.T) {
	store := new(MockStore)
	gateway := new(MockGateway)
	svc := newTestService(store, gateway)

	committed := &order.Order{ID: 4, UserID: 1, Status: order.StatusProcessing}
	gateway.On("RetrieveIntent", mock.Anything, "pi_123").
		Return(&payment.Intent{ID: "pi_123", Status: payment.StatusSucceeded}, nil)
	store.On("OrderByPaymentIntent", mock.Anything, "pi_123").Return(committed, nil)

	_, err := svc.ConfirmPayment(context.Background(), 1, "pi_123")
	assert.ErrorIs(t, err, ErrAlreadyProcessed)
	store.AssertNotCalled(t, "CommitPaidOrder")
}

func TestConfirmPayment_LosesCommitRace(t *testing.T) {
	store := new(MockStore)
	gateway := new(MockGateway)
	svc := newTestService(store, gateway)

	pending := &order.Order{ID: 4, UserID: 1, Status: order.StatusPending}

	gateway.On("RetrieveIntent", mock.Anything, "pi_123").
		Return(&payment.Intent{ID: "pi_123", Status: payment.StatusSucceeded}, nil)
	store.On("OrderByPaymentIntent", mock.Anything, "pi_123").Return(pending, nil)
	store.On("CommitPaidOrder", mock.Anything, uint(4), uint(1)).Return(ErrAlreadyProcessed)

	_, err := svc.ConfirmPayment(context.Background(), 1, "pi_123")
	assert.ErrorIs(t, err, ErrAlreadyProcessed)
	store.AssertNotCalled(t, "OrderWithItems")
}

// --- SimulatePayment ---

func TestSimulatePayment_ConfirmsWithTestCard(t *testing.T) {
	store := new(MockStore)
	gateway := new(MockGateway)
	svc := newTestService(store, gateway)

	store.On("OrderByPaymentIntent", mock.Anything, "pi_123").
		Return(&order.Order{ID: 4, UserID: 1, Status: order.StatusPending}, nil)
	gateway.On("ConfirmIntent", mock.Anything, "pi_123", "pm_card_visa").
		Return(&payment.Intent{ID: "pi_123", Status: payment.StatusSucceeded}, nil)

	intent, err := svc.SimulatePayment(context.Background(), 1, "pi_123")
	assert.NoError(t, err)
	assert.True(t, intent.Succeeded())
	gateway.AssertExpectations(t)
}

func TestSimulatePayment_WrongUser(t *testing.T) {
	store := new(MockStore)
	gateway := new(MockGateway)
	svc := newTestService(store, gateway)

	store.On("OrderByPaymentIntent", mock.Anything, "pi_123").
		Return(&order.Order{ID: 4, UserID: 9, Status: order.StatusPending}, nil)

	_, err := svc.SimulatePayment(context.Background(), 1, "pi_123")
	assert.ErrorIs(t, err, ErrForbidden)
	gateway.AssertNotCalled(t, "ConfirmIntent")
}

func TestMinorUnits(t *testing.T) {
	assert.Equal(t, int64(2000), MinorUnits(decimal.RequireFromString("20.00")))
	assert.Equal(t, int64(1999), MinorUnits(decimal.RequireFromString("19.99")))
	assert.Equal(t, int64(0), MinorUnits(decimal.Zero))
}
