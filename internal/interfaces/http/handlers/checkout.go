// internal/interfaces/http/handlers/checkout.go
package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/your-org/storefront-backend/internal/domain/checkout"
	"github.com/your-org/storefront-backend/internal/interfaces/http/middleware"
)

// CheckoutHandler handles checkout and payment confirmation endpoints
type CheckoutHandler struct {
	checkoutService *checkout.Service
	logger          *logrus.Logger
}

// NewCheckoutHandler creates a new checkout handler
func NewCheckoutHandler(checkoutService *checkout.Service, logger *logrus.Logger) *CheckoutHandler {
	return &CheckoutHandler{
		checkoutService: checkoutService,
		logger:          logger,
	}
}

// confirmRequest is shared by confirm and simulate endpoints
type confirmRequest struct {
	PaymentIntentID string `json:"payment_intent_id" binding:"required"`
}

// InitiateCheckout handles POST /checkout
func (h *CheckoutHandler) InitiateCheckout(c *gin.Context) {
	userID, _ := middleware.GetUserIDFromContext(c)

	resp, err := h.checkoutService.InitiateCheckout(c.Request.Context(), userID)
	if err != nil {
		h.respondCheckoutError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "Checkout initiated successfully",
		"data":    resp,
	})
}

// ConfirmPayment handles POST /checkout/confirm
func (h *CheckoutHandler) ConfirmPayment(c *gin.Context) {
	userID, _ := middleware.GetUserIDFromContext(c)

	var req confirmRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request data",
			"details": err.Error(),
		})
		return
	}

	o, err := h.checkoutService.ConfirmPayment(c.Request.Context(), userID, req.PaymentIntentID)
	if err != nil {
		h.respondCheckoutError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Payment confirmed successfully",
		"data":    o,
	})
}

// SimulatePayment handles POST /checkout/simulate-payment. It confirms
// the payment intent server-side with a test card; only useful against
// the provider's test environment.
func (h *CheckoutHandler) SimulatePayment(c *gin.Context) {
	userID, _ := middleware.GetUserIDFromContext(c)

	var req confirmRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request data",
			"details": err.Error(),
		})
		return
	}

	intent, err := h.checkoutService.SimulatePayment(c.Request.Context(), userID, req.PaymentIntentID)
	if err != nil {
		// Provider errors go back raw so test clients see the real
		// decline reason.
		var gatewayErr *checkout.GatewayError
		if errors.As(err, &gatewayErr) {
			c.JSON(http.StatusPaymentRequired, gin.H{
				"error": gatewayErr.Err.Error(),
			})
			return
		}
		h.respondCheckoutError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Payment simulated successfully",
		"data":    intent,
	})
}

func (h *CheckoutHandler) respondCheckoutError(c *gin.Context, err error) {
	var stockErr *checkout.InsufficientStockError
	var gatewayErr *checkout.GatewayError
	var storeErr *checkout.StoreError

	switch {
	case errors.Is(err, checkout.ErrEmptyCart):
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Cart is empty",
		})
	case errors.Is(err, checkout.ErrOrderNotFound):
		c.JSON(http.StatusNotFound, gin.H{
			"error": "Order not found",
		})
	case errors.Is(err, checkout.ErrForbidden):
		c.JSON(http.StatusForbidden, gin.H{
			"error": "Order does not belong to user",
		})
	case errors.Is(err, checkout.ErrPaymentNotCompleted):
		c.JSON(http.StatusPaymentRequired, gin.H{
			"error": "Payment has not been completed",
		})
	case errors.Is(err, checkout.ErrAlreadyProcessed):
		c.JSON(http.StatusConflict, gin.H{
			"error": "Order has already been processed",
		})
	case errors.As(err, &stockErr):
		c.JSON(http.StatusConflict, gin.H{
			"error":     stockErr.Error(),
			"product":   stockErr.Product,
			"available": stockErr.Available,
		})
	case errors.As(err, &gatewayErr):
		h.logger.WithError(gatewayErr).Error("Payment gateway operation failed")
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Payment provider error",
		})
	case errors.As(err, &storeErr):
		h.logger.WithError(storeErr).Error("Checkout persistence failed")
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Checkout failed",
		})
	default:
		h.logger.WithError(err).Error("Checkout operation failed")
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Checkout failed",
		})
	}
}
