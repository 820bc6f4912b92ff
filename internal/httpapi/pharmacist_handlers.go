package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/medplatform/orders/internal/pharmacist"
	mongostore "github.com/medplatform/orders/internal/store/mongo"
)

// PharmacistHandlers implements the pharmacist-scoped §4.6 endpoints.
type PharmacistHandlers struct {
	pharmacist *pharmacist.Service
}

func NewPharmacistHandlers(svc *pharmacist.Service) *PharmacistHandlers {
	return &PharmacistHandlers{pharmacist: svc}
}

func (h *PharmacistHandlers) Accept(c *gin.Context) {
	if err := h.pharmacist.Accept(c.Request.Context(), userID(c), c.Param("id")); err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, gin.H{"success": true})
}

func (h *PharmacistHandlers) Decline(c *gin.Context) {
	var req struct {
		Reason string `json:"reason"`
	}
	_ = c.ShouldBindJSON(&req)
	if err := h.pharmacist.Decline(c.Request.Context(), userID(c), c.Param("id"), req.Reason); err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, gin.H{"success": true})
}

func (h *PharmacistHandlers) Prepared(c *gin.Context) {
	if err := h.pharmacist.Prepared(c.Request.Context(), userID(c), c.Param("id")); err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, gin.H{"success": true})
}

type createInventoryRowRequest struct {
	MedicineID   string  `json:"medicine_id" binding:"required"`
	BatchNumber  string  `json:"batch_number" binding:"required"`
	ExpiryDate   string  `json:"expiry_date" binding:"required"`
	Available    int     `json:"available" binding:"min=0"`
	MRP          float64 `json:"mrp"`
	SellingPrice float64 `json:"selling_price"`
}

func (h *PharmacistHandlers) CreateInventory(c *gin.Context) {
	var req createInventoryRowRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		failValidation(c, err.Error())
		return
	}
	expiry, err := parseDate(req.ExpiryDate)
	if err != nil {
		failValidation(c, "invalid expiry_date")
		return
	}
	doc := &mongostore.InventoryDoc{
		ID:           genInventoryID(),
		MedicineID:   req.MedicineID,
		BatchNumber:  req.BatchNumber,
		ExpiryDate:   expiry,
		Available:    req.Available,
		MRP:          req.MRP,
		SellingPrice: req.SellingPrice,
	}
	if err := h.pharmacist.CreateInventoryRow(c.Request.Context(), userID(c), doc); err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusCreated, gin.H{"inventory": doc})
}

func (h *PharmacistHandlers) ListInventory(c *gin.Context) {
	docs, err := h.pharmacist.ListInventory(c.Request.Context(), userID(c))
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, gin.H{"inventory": docs})
}
