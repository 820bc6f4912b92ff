package httpapi

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/medplatform/orders/internal/cache"
	mongostore "github.com/medplatform/orders/internal/store/mongo"
)

// MedicineHandlers implements the §6 `/medicines` endpoints, reading
// through the §5 supplemented search-result cache.
type MedicineHandlers struct {
	medicines *mongostore.MedicineRepository
	search    *cache.SearchCache
	logger    *slog.Logger
}

func NewMedicineHandlers(medicines *mongostore.MedicineRepository, search *cache.SearchCache, logger *slog.Logger) *MedicineHandlers {
	return &MedicineHandlers{medicines: medicines, search: search, logger: logger}
}

func (h *MedicineHandlers) Search(c *gin.Context) {
	q := c.Query("q")
	page, size := pageSize(c)
	digest := cache.QueryDigest(q + "|" + c.Query("page") + "|" + c.Query("size"))

	if cached, found, err := h.search.Get(c.Request.Context(), digest); err == nil && found {
		var docs []mongostore.MedicineDoc
		if jsonErr := json.Unmarshal(cached, &docs); jsonErr == nil {
			ok(c, http.StatusOK, gin.H{"medicines": docs, "page": page, "size": size, "cached": true})
			return
		}
	}

	docs, err := h.medicines.Search(c.Request.Context(), q, page, size)
	if err != nil {
		fail(c, err)
		return
	}
	if payload, err := json.Marshal(docs); err == nil {
		if err := h.search.Put(c.Request.Context(), digest, payload); err != nil {
			h.logger.Warn("medicine search cache write failed", slog.Any("error", err))
		}
	}
	ok(c, http.StatusOK, gin.H{"medicines": docs, "page": page, "size": size})
}

func (h *MedicineHandlers) Get(c *gin.Context) {
	doc, err := h.medicines.FindByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, gin.H{"medicine": doc})
}
