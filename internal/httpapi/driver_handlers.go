package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/medplatform/orders/internal/driver"
	mongostore "github.com/medplatform/orders/internal/store/mongo"
)

// DriverHandlers implements the driver-scoped §4.7 endpoints.
type DriverHandlers struct {
	driver *driver.Service
}

func NewDriverHandlers(svc *driver.Service) *DriverHandlers { return &DriverHandlers{driver: svc} }

func (h *DriverHandlers) ListAvailable(c *gin.Context) {
	docs, err := h.driver.ListAvailable(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, gin.H{"deliveries": docs})
}

func (h *DriverHandlers) Accept(c *gin.Context) {
	if err := h.driver.Accept(c.Request.Context(), userID(c), c.Param("id")); err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, gin.H{"success": true})
}

type driverStatusRequest struct {
	Status    string   `json:"status" binding:"required"`
	Longitude *float64 `json:"longitude"`
	Latitude  *float64 `json:"latitude"`
}

func (h *DriverHandlers) UpdateStatus(c *gin.Context) {
	var req driverStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		failValidation(c, err.Error())
		return
	}
	var point *mongostore.GeoPointDoc
	if req.Longitude != nil && req.Latitude != nil {
		p := mongostore.NewGeoPoint(*req.Longitude, *req.Latitude)
		point = &p
	}
	if err := h.driver.UpdateStatus(c.Request.Context(), userID(c), c.Param("id"), req.Status, point); err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, gin.H{"success": true})
}

type driverLocationRequest struct {
	Longitude float64 `json:"longitude" binding:"required"`
	Latitude  float64 `json:"latitude" binding:"required"`
}

func (h *DriverHandlers) UpdateLocation(c *gin.Context) {
	var req driverLocationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		failValidation(c, err.Error())
		return
	}
	point := mongostore.NewGeoPoint(req.Longitude, req.Latitude)
	if err := h.driver.UpdateLocation(c.Request.Context(), userID(c), c.Param("id"), point); err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, gin.H{"success": true})
}

type confirmDeliveryRequest struct {
	OTP string `json:"otp" binding:"required"`
}

func (h *DriverHandlers) ConfirmDelivery(c *gin.Context) {
	var req confirmDeliveryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		failValidation(c, err.Error())
		return
	}
	if err := h.driver.ConfirmDelivery(c.Request.Context(), userID(c), c.Param("id"), req.OTP); err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, gin.H{"success": true})
}
