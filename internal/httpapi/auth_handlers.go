package httpapi

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/medplatform/orders/internal/domain"
	"github.com/medplatform/orders/internal/identity"
	mongostore "github.com/medplatform/orders/internal/store/mongo"
)

// AuthHandlers implements the §6 identity endpoints.
type AuthHandlers struct {
	identity   *identity.Service
	users      *mongostore.UserRepository
	isProd     bool
	accessTTL  time.Duration
	refreshTTL time.Duration
}

func NewAuthHandlers(svc *identity.Service, users *mongostore.UserRepository, isProd bool, accessTTL, refreshTTL time.Duration) *AuthHandlers {
	return &AuthHandlers{identity: svc, users: users, isProd: isProd, accessTTL: accessTTL, refreshTTL: refreshTTL}
}

type registerRequest struct {
	Name     string `json:"name" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
	Phone    string `json:"phone" binding:"required"`
	Password string `json:"password" binding:"required,min=8"`
}

func (h *AuthHandlers) Register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		failValidation(c, err.Error())
		return
	}
	user, err := h.identity.Register(c.Request.Context(), identity.RegisterRequest{
		Name: req.Name, Email: req.Email, Phone: req.Phone, Password: req.Password, ClientIP: c.ClientIP(),
	})
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusCreated, gin.H{
		"user":    gin.H{"id": user.ID, "name": user.Name, "email": user.Email, "phone": user.Phone},
		"message": "verification code sent",
	})
}

type verifyOTPRequest struct {
	Phone string `json:"phone" binding:"required"`
	OTP   string `json:"otp" binding:"required"`
}

func (h *AuthHandlers) VerifyOTP(c *gin.Context) {
	var req verifyOTPRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		failValidation(c, err.Error())
		return
	}
	user, tokens, err := h.identity.VerifyOTP(c.Request.Context(), req.Phone, req.OTP)
	if err != nil {
		fail(c, err)
		return
	}
	setAuthCookies(c, tokens.AccessToken, tokens.RefreshToken, h.accessTTL, h.refreshTTL, h.isProd)
	ok(c, http.StatusOK, h.tokenResponse(tokens, user))
}

type loginRequest struct {
	EmailOrPhone string `json:"email_or_phone" binding:"required"`
	Password     string `json:"password" binding:"required"`
}

func (h *AuthHandlers) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		failValidation(c, err.Error())
		return
	}
	user, tokens, err := h.identity.Login(c.Request.Context(), req.EmailOrPhone, req.Password, c.ClientIP())
	if err == domain.ErrUnauthorized {
		ok(c, http.StatusOK, gin.H{"verified": false, "message": "verification code sent"})
		return
	}
	if err != nil {
		fail(c, err)
		return
	}
	setAuthCookies(c, tokens.AccessToken, tokens.RefreshToken, h.accessTTL, h.refreshTTL, h.isProd)
	ok(c, http.StatusOK, h.tokenResponse(tokens, user))
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

func (h *AuthHandlers) Refresh(c *gin.Context) {
	var req refreshRequest
	_ = c.ShouldBindJSON(&req)
	token := req.RefreshToken
	if token == "" {
		if cookie, err := c.Cookie("refresh_token"); err == nil {
			token = cookie
		}
	}
	if token == "" {
		fail(c, domain.ErrTokenInvalid)
		return
	}
	tokens, err := h.identity.Refresh(c.Request.Context(), token)
	if err != nil {
		fail(c, err)
		return
	}
	setAuthCookies(c, tokens.AccessToken, tokens.RefreshToken, h.accessTTL, h.refreshTTL, h.isProd)
	ok(c, http.StatusOK, gin.H{
		"access_token": tokens.AccessToken, "refresh_token": tokens.RefreshToken,
		"expires_in": int(h.accessTTL.Seconds()), "token_type": "Bearer",
	})
}

func (h *AuthHandlers) Logout(c *gin.Context) {
	var req refreshRequest
	_ = c.ShouldBindJSON(&req)
	token := req.RefreshToken
	if token == "" {
		if cookie, err := c.Cookie("refresh_token"); err == nil {
			token = cookie
		}
	}
	if token != "" {
		h.identity.Logout(c.Request.Context(), token)
	}
	c.SetCookie("access_token", "", -1, "/", "", h.isProd, true)
	c.SetCookie("refresh_token", "", -1, "/", "", h.isProd, true)
	ok(c, http.StatusOK, gin.H{"success": true})
}

func (h *AuthHandlers) Me(c *gin.Context) {
	user, err := h.users.FindByID(c.Request.Context(), userID(c))
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, gin.H{"user": gin.H{
		"id": user.ID, "name": user.Name, "email": user.Email, "phone": user.Phone, "roles": user.Roles,
	}})
}

type createPharmacistRequest struct {
	Name         string  `json:"name" binding:"required"`
	Email        string  `json:"email" binding:"required,email"`
	Phone        string  `json:"phone" binding:"required"`
	Password     string  `json:"password" binding:"required,min=8"`
	PharmacyName string  `json:"pharmacy_name" binding:"required"`
	Address      string  `json:"address"`
	Longitude    float64 `json:"longitude"`
	Latitude     float64 `json:"latitude"`
}

func (h *AuthHandlers) CreatePharmacist(c *gin.Context) {
	var req createPharmacistRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		failValidation(c, err.Error())
		return
	}
	user, pharmacy, err := h.identity.CreatePharmacist(c.Request.Context(), identity.CreatePharmacistRequest{
		Name: req.Name, Email: req.Email, Phone: req.Phone, Password: req.Password,
		PharmacyName: req.PharmacyName, Address: req.Address, Longitude: req.Longitude, Latitude: req.Latitude,
	})
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusCreated, gin.H{"user": gin.H{"id": user.ID}, "pharmacy": gin.H{"id": pharmacy.ID}})
}

type createDriverRequest struct {
	Name     string `json:"name" binding:"required"`
	Phone    string `json:"phone" binding:"required"`
	Password string `json:"password" binding:"required,min=8"`
}

func (h *AuthHandlers) CreateDriver(c *gin.Context) {
	var req createDriverRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		failValidation(c, err.Error())
		return
	}
	user, err := h.identity.CreateDriver(c.Request.Context(), identity.CreateDriverRequest{
		Name: req.Name, Phone: req.Phone, Password: req.Password,
	})
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusCreated, gin.H{"user": gin.H{"id": user.ID, "email": user.Email}})
}

func (h *AuthHandlers) tokenResponse(tokens identity.TokenPair, user *mongostore.UserDoc) gin.H {
	return gin.H{
		"access_token": tokens.AccessToken, "refresh_token": tokens.RefreshToken,
		"expires_in": int(h.accessTTL.Seconds()), "token_type": "Bearer",
		"user": gin.H{"id": user.ID, "name": user.Name, "email": user.Email, "phone": user.Phone, "roles": user.Roles},
	}
}
