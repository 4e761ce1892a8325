package httpsvc

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

const (
	statusSuccess = "success"
	statusFailed  = "failed"
)

const msgInternalError = "An unexpected error occurred"

// Envelope задаёт единый формат всех ответов API.
type Envelope struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	Data    any    `json:"data"`
}

func respondSuccess(c *gin.Context, code int, message string, data any) {
	c.JSON(code, Envelope{
		Status:  statusSuccess,
		Message: message,
		Data:    data,
	})
}

func respondFailed(c *gin.Context, code int, message string) {
	c.JSON(code, Envelope{
		Status:  statusFailed,
		Message: message,
		Data:    nil,
	})
}

func respondInternalError(c *gin.Context) {
	respondFailed(c, http.StatusInternalServerError, msgInternalError)
}
