package middleware

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
)

var validate *validator.Validate

func init() {
	validate = validator.New()
}

type pidParam struct {
	PID int64 `validate:"min=0,max=2147483647"`
}

// ParsePID reads the named path parameter as a pid. On failure it writes a 400
// and returns false.
func ParsePID(c *gin.Context, name string) (int32, bool) {
	raw := c.Param(name)
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid pid",
			"details": "pid must be an integer",
		})
		return 0, false
	}
	if err := validate.Struct(pidParam{PID: n}); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid pid",
			"details": "pid must be between 0 and 2147483647",
		})
		return 0, false
	}
	return int32(n), true
}

// BindJSON decodes and validates the request body into v, writing a 400 on failure.
func BindJSON(c *gin.Context, v any) bool {
	if err := c.ShouldBindJSON(v); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid JSON format",
			"details": err.Error(),
		})
		return false
	}
	if err := validate.Struct(v); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
			"error":   "Validation failed",
			"details": err.Error(),
		})
		return false
	}
	return true
}
