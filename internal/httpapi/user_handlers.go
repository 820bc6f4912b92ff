package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/medplatform/orders/internal/domain"
	mongostore "github.com/medplatform/orders/internal/store/mongo"
)

// UserHandlers implements the §6 `/users/profile` and `/users/cart`
// endpoints. Plain CRUD against the user document, so it talks to the
// repository directly rather than through an intermediate service layer.
type UserHandlers struct {
	users *mongostore.UserRepository
}

func NewUserHandlers(users *mongostore.UserRepository) *UserHandlers { return &UserHandlers{users: users} }

func (h *UserHandlers) GetProfile(c *gin.Context) {
	doc, err := h.users.FindByID(c.Request.Context(), userID(c))
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, gin.H{"user": doc})
}

type updateProfileRequest struct {
	Name      string                    `json:"name" binding:"required"`
	Addresses []mongostore.AddressDoc   `json:"addresses"`
}

func (h *UserHandlers) UpdateProfile(c *gin.Context) {
	var req updateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		failValidation(c, err.Error())
		return
	}
	if err := h.users.UpdateProfile(c.Request.Context(), userID(c), req.Name, req.Addresses); err != nil {
		fail(c, domain.ErrDatabaseError)
		return
	}
	ok(c, http.StatusOK, gin.H{"success": true})
}

func (h *UserHandlers) GetCart(c *gin.Context) {
	doc, err := h.users.FindByID(c.Request.Context(), userID(c))
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, gin.H{"cart": doc.Cart})
}

func (h *UserHandlers) UpdateCart(c *gin.Context) {
	var req struct {
		Cart []mongostore.CartEntryDoc `json:"cart"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		failValidation(c, err.Error())
		return
	}
	if err := h.users.UpdateCart(c.Request.Context(), userID(c), req.Cart); err != nil {
		fail(c, domain.ErrDatabaseError)
		return
	}
	ok(c, http.StatusOK, gin.H{"success": true})
}
