package cart

import (
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/your-org/storefront-backend/internal/domain/product"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestService(t *testing.T) (*Service, *gorm.DB) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	require.NoError(t, db.AutoMigrate(
		&product.Category{},
		&product.Product{},
		&Cart{},
		&CartItem{},
	))

	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)
	return NewService(db, log), db
}

func seedProduct(t *testing.T, db *gorm.DB, name string, price string, stock int) uint {
	t.Helper()

	category := product.Category{Name: name + " category"}
	require.NoError(t, db.Create(&category).Error)

	p := product.Product{
		Name:       name,
		Price:      decimal.RequireFromString(price),
		Stock:      stock,
		CategoryID: category.ID,
		IsActive:   true,
	}
	require.NoError(t, db.Create(&p).Error)
	return p.ID
}

func quantity(n int) *int { return &n }

func TestGetCart_NoCartReturnsEmpty(t *testing.T) {
	svc, _ := newTestService(t)

	resp, err := svc.GetCart(42)
	require.NoError(t, err)
	assert.Empty(t, resp.Items)
	assert.Equal(t, 0, resp.Totals.TotalQuantity)
	assert.True(t, resp.Totals.Subtotal.IsZero())
}

func TestAddToCart_CreatesCartLazily(t *testing.T) {
	svc, db := newTestService(t)
	productID := seedProduct(t, db, "Widget", "10.00", 5)

	resp, err := svc.AddToCart(1, &AddToCartRequest{ProductID: productID, Quantity: 2})
	require.NoError(t, err)
	require.Len(t, resp.Items, 1)
	assert.Equal(t, 2, resp.Items[0].Quantity)
	assert.True(t, resp.Totals.Subtotal.Equal(decimal.RequireFromString("20.00")))

	var cartCount int64
	require.NoError(t, db.Model(&Cart{}).Where("user_id = ?", 1).Count(&cartCount).Error)
	assert.Equal(t, int64(1), cartCount)
}

func TestAddToCart_MergesQuantities(t *testing.T) {
	svc, db := newTestService(t)
	productID := seedProduct(t, db, "Widget", "10.00", 5)

	_, err := svc.AddToCart(1, &AddToCartRequest{ProductID: productID, Quantity: 2})
	require.NoError(t, err)

	resp, err := svc.AddToCart(1, &AddToCartRequest{ProductID: productID, Quantity: 1})
	require.NoError(t, err)

	// One line with the combined quantity, not two lines.
	require.Len(t, resp.Items, 1)
	assert.Equal(t, 3, resp.Items[0].Quantity)
}

func TestAddToCart_CombinedQuantityExceedsStock(t *testing.T) {
	svc, db := newTestService(t)
	productID := seedProduct(t, db, "Widget", "10.00", 5)

	_, err := svc.AddToCart(1, &AddToCartRequest{ProductID: productID, Quantity: 4})
	require.NoError(t, err)

	_, err = svc.AddToCart(1, &AddToCartRequest{ProductID: productID, Quantity: 2})

	var stockErr *InsufficientStockError
	require.ErrorAs(t, err, &stockErr)
	assert.Equal(t, "Widget", stockErr.Product)
	assert.Equal(t, 5, stockErr.Available)
}

func TestAddToCart_UnknownProduct(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.AddToCart(1, &AddToCartRequest{ProductID: 999, Quantity: 1})
	assert.ErrorIs(t, err, ErrProductNotFound)
}

func TestAddToCart_InactiveProduct(t *testing.T) {
	svc, db := newTestService(t)
	productID := seedProduct(t, db, "Widget", "10.00", 5)
	require.NoError(t, db.Model(&product.Product{}).Where("id = ?", productID).Update("is_active", false).Error)

	_, err := svc.AddToCart(1, &AddToCartRequest{ProductID: productID, Quantity: 1})
	assert.ErrorIs(t, err, ErrProductNotFound)
}

func TestUpdateCartItem(t *testing.T) {
	svc, db := newTestService(t)
	productID := seedProduct(t, db, "Widget", "10.00", 5)

	resp, err := svc.AddToCart(1, &AddToCartRequest{ProductID: productID, Quantity: 1})
	require.NoError(t, err)
	itemID := resp.Items[0].ID

	resp, err = svc.UpdateCartItem(1, itemID, &UpdateCartItemRequest{Quantity: quantity(4)})
	require.NoError(t, err)
	assert.Equal(t, 4, resp.Items[0].Quantity)
}

func TestUpdateCartItem_ZeroRemovesItem(t *testing.T) {
	svc, db := newTestService(t)
	productID := seedProduct(t, db, "Widget", "10.00", 5)

	resp, err := svc.AddToCart(1, &AddToCartRequest{ProductID: productID, Quantity: 2})
	require.NoError(t, err)

	resp, err = svc.UpdateCartItem(1, resp.Items[0].ID, &UpdateCartItemRequest{Quantity: quantity(0)})
	require.NoError(t, err)
	assert.Empty(t, resp.Items)

	var itemCount int64
	require.NoError(t, db.Model(&CartItem{}).Count(&itemCount).Error)
	assert.Equal(t, int64(0), itemCount)
}

func TestUpdateCartItem_OtherUsersItem(t *testing.T) {
	svc, db := newTestService(t)
	productID := seedProduct(t, db, "Widget", "10.00", 5)

	resp, err := svc.AddToCart(1, &AddToCartRequest{ProductID: productID, Quantity: 1})
	require.NoError(t, err)
	itemID := resp.Items[0].ID

	_, err = svc.UpdateCartItem(2, itemID, &UpdateCartItemRequest{Quantity: quantity(3)})
	assert.ErrorIs(t, err, ErrItemNotFound)
}

func TestUpdateCartItem_ExceedsStock(t *testing.T) {
	svc, db := newTestService(t)
	productID := seedProduct(t, db, "Widget", "10.00", 5)

	resp, err := svc.AddToCart(1, &AddToCartRequest{ProductID: productID, Quantity: 1})
	require.NoError(t, err)

	_, err = svc.UpdateCartItem(1, resp.Items[0].ID, &UpdateCartItemRequest{Quantity: quantity(6)})

	var stockErr *InsufficientStockError
	assert.ErrorAs(t, err, &stockErr)
}

func TestRemoveCartItem(t *testing.T) {
	svc, db := newTestService(t)
	productID := seedProduct(t, db, "Widget", "10.00", 5)

	resp, err := svc.AddToCart(1, &AddToCartRequest{ProductID: productID, Quantity: 1})
	require.NoError(t, err)

	resp, err = svc.RemoveCartItem(1, resp.Items[0].ID)
	require.NoError(t, err)
	assert.Empty(t, resp.Items)
}

func TestRemoveCartItem_OtherUsersItem(t *testing.T) {
	svc, db := newTestService(t)
	productID := seedProduct(t, db, "Widget", "10.00", 5)

	resp, err := svc.AddToCart(1, &AddToCartRequest{ProductID: productID, Quantity: 1})
	require.NoError(t, err)

	_, err = svc.RemoveCartItem(2, resp.Items[0].ID)
	assert.ErrorIs(t, err, ErrItemNotFound)
}

func TestClearCart(t *testing.T) {
	svc, db := newTestService(t)
	first := seedProduct(t, db, "Widget", "10.00", 5)
	second := seedProduct(t, db, "Gadget", "3.50", 9)

	_, err := svc.AddToCart(1, &AddToCartRequest{ProductID: first, Quantity: 2})
	require.NoError(t, err)
	_, err = svc.AddToCart(1, &AddToCartRequest{ProductID: second, Quantity: 1})
	require.NoError(t, err)

	require.NoError(t, svc.ClearCart(1))

	resp, err := svc.GetCart(1)
	require.NoError(t, err)
	assert.Empty(t, resp.Items)
	assert.True(t, resp.Totals.Subtotal.IsZero())
}

func TestCartTotals(t *testing.T) {
	svc, db := newTestService(t)
	first := seedProduct(t, db, "Widget", "10.00", 5)
	second := seedProduct(t, db, "Gadget", "3.50", 9)

	_, err := svc.AddToCart(1, &AddToCartRequest{ProductID: first, Quantity: 2})
	require.NoError(t, err)
	resp, err := svc.AddToCart(1, &AddToCartRequest{ProductID: second, Quantity: 3})
	require.NoError(t, err)

	assert.Equal(t, 2, resp.Totals.ItemCount)
	assert.Equal(t, 5, resp.Totals.TotalQuantity)
	// 2*10.00 + 3*3.50 = 30.50
	assert.True(t, resp.Totals.Subtotal.Equal(decimal.RequireFromString("30.50")))
}
