package httpapi

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	mongostore "github.com/medplatform/orders/internal/store/mongo"
)

// PharmacyHandlers implements the §6 `/pharmacies` and `/medicines`
// read endpoints, including the read-through search cache (§5).
type PharmacyHandlers struct {
	pharmacies *mongostore.PharmacyRepository
	inventory  *mongostore.InventoryRepository
}

func NewPharmacyHandlers(pharmacies *mongostore.PharmacyRepository, inventory *mongostore.InventoryRepository) *PharmacyHandlers {
	return &PharmacyHandlers{pharmacies: pharmacies, inventory: inventory}
}

const defaultRadiusMeters = 10_000

func (h *PharmacyHandlers) ListNear(c *gin.Context) {
	lat, _ := strconv.ParseFloat(c.Query("lat"), 64)
	lon, _ := strconv.ParseFloat(c.Query("lon"), 64)
	radius := defaultRadiusMeters
	if r, err := strconv.Atoi(c.Query("radius")); err == nil && r > 0 {
		radius = r
	}
	page, size := pageSize(c)
	docs, err := h.pharmacies.ListNear(c.Request.Context(), lon, lat, float64(radius), page, size)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, gin.H{"pharmacies": docs, "page": page, "size": size})
}

func (h *PharmacyHandlers) Get(c *gin.Context) {
	doc, err := h.pharmacies.FindByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, gin.H{"pharmacy": doc})
}

func (h *PharmacyHandlers) Inventory(c *gin.Context) {
	docs, err := h.inventory.ListByPharmacy(c.Request.Context(), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, gin.H{"inventory": docs})
}
