package httpapi

import (
	"time"

	"github.com/google/uuid"
)

func parseDate(s string) (time.Time, error) {
	return time.Parse("2006-01-02", s)
}

func genInventoryID() string { return uuid.NewString() }
