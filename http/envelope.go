package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// envelope is the uniform response body: {result, message, count?, total?, data?}.
type envelope struct {
	Result  bool   `json:"result"`
	Message string `json:"message"`
	Count   *int   `json:"count,omitempty"`
	Total   *int   `json:"total,omitempty"`
	Data    any    `json:"data,omitempty"`
}

func respondData(c *gin.Context, status int, message string, data any) {
	c.JSON(status, envelope{Result: true, Message: message, Data: data})
}

func respondList(c *gin.Context, message string, data any, count, total int) {
	c.JSON(http.StatusOK, envelope{
		Result:  true,
		Message: message,
		Count:   &count,
		Total:   &total,
		Data:    data,
	})
}

// respondError carries request identification in data so failures stay
// diagnosable without exposing internals.
func respondError(c *gin.Context, status int, message string) {
	c.JSON(status, envelope{
		Result:  false,
		Message: message,
		Data: gin.H{
			"status": status,
			"path":   c.Request.URL.Path,
			"method": c.Request.Method,
		},
	})
}

func abortError(c *gin.Context, status int, message string) {
	respondError(c, status, message)
	c.Abort()
}
