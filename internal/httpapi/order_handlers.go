package httpapi

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/medplatform/orders/internal/order"
)

// OrderHandlers implements the §6 order endpoints.
type OrderHandlers struct {
	orders *order.Service
}

func NewOrderHandlers(svc *order.Service) *OrderHandlers { return &OrderHandlers{orders: svc} }

func (h *OrderHandlers) Create(c *gin.Context) {
	var req order.CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		failValidation(c, err.Error())
		return
	}
	idempotencyKey := c.GetHeader("Idempotency-Key")
	doc, err := h.orders.CreateOrder(c.Request.Context(), userID(c), idempotencyKey, req)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusCreated, gin.H{"order": doc})
}

func (h *OrderHandlers) List(c *gin.Context) {
	page, size := pageSize(c)
	status := c.Query("status")
	docs, err := h.orders.List(c.Request.Context(), userID(c), status, page, size)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, gin.H{"orders": docs, "page": page, "size": size})
}

func (h *OrderHandlers) Get(c *gin.Context) {
	doc, err := h.orders.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, gin.H{"order": doc})
}

func (h *OrderHandlers) Cancel(c *gin.Context) {
	var req struct {
		Reason string `json:"reason"`
	}
	_ = c.ShouldBindJSON(&req)
	if err := h.orders.Cancel(c.Request.Context(), c.Param("id"), req.Reason); err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, gin.H{"success": true})
}

func (h *OrderHandlers) Rate(c *gin.Context) {
	var req struct {
		Rating int    `json:"rating" binding:"required,min=1,max=5"`
		Review string `json:"review"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		failValidation(c, err.Error())
		return
	}
	if err := h.orders.Rate(c.Request.Context(), c.Param("id"), req.Rating, req.Review); err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, gin.H{"success": true})
}

type paymentWebhookRequest struct {
	OrderID       string `json:"order_id" binding:"required"`
	PaymentStatus string `json:"payment_status" binding:"required"`
	TransactionID string `json:"transaction_id"`
}

func (h *OrderHandlers) PaymentWebhook(c *gin.Context) {
	var req paymentWebhookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		failValidation(c, err.Error())
		return
	}
	if err := h.orders.HandlePaymentWebhook(c.Request.Context(), req.OrderID, req.PaymentStatus, req.TransactionID); err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, gin.H{"success": true})
}

// PaymentSimulate is the §5 supplemented dev-only endpoint: a thin wrapper
// that calls the same webhook handler with status "paid". The router gates
// this handler to non-production.
func (h *OrderHandlers) PaymentSimulate(c *gin.Context) {
	var req struct {
		OrderID string `json:"order_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		failValidation(c, err.Error())
		return
	}
	if err := h.orders.HandlePaymentWebhook(c.Request.Context(), req.OrderID, "paid", "sim-"+req.OrderID); err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, gin.H{"success": true})
}

// pageSize parses ?page=&size= with SPEC_FULL.md §5's offset-pagination
// defaults (page 0, size 20, capped at 100).
func pageSize(c *gin.Context) (int, int) {
	page, _ := strconv.Atoi(c.Query("page"))
	if page < 0 {
		page = 0
	}
	size, err := strconv.Atoi(c.Query("size"))
	if err != nil || size <= 0 {
		size = 20
	}
	if size > 100 {
		size = 100
	}
	return page, size
}
