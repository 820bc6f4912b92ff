package httpapi

import (
	"github.com/gin-gonic/gin"

	"github.com/medplatform/orders/internal/errmap"
)

// envelope is the uniform `{success, data?, error_code?, message?, details?}`
// response shape of §6.
type envelope struct {
	Success   bool        `json:"success"`
	Data      interface{} `json:"data,omitempty"`
	ErrorCode string      `json:"error_code,omitempty"`
	Message   string      `json:"message,omitempty"`
	Details   interface{} `json:"details,omitempty"`
}

func ok(c *gin.Context, status int, data interface{}) {
	c.JSON(status, envelope{Success: true, Data: data})
}

// fail writes the error envelope for err, mapped via errmap.ToHTTPError.
func fail(c *gin.Context, err error) {
	httpErr := errmap.ToHTTPError(err)
	c.JSON(httpErr.StatusCode, envelope{Success: false, ErrorCode: httpErr.Code, Message: httpErr.Message})
}

func failValidation(c *gin.Context, message string) {
	c.JSON(400, envelope{Success: false, ErrorCode: "VALIDATION_ERROR", Message: message})
}
