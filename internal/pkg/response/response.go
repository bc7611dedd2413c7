package response

import (
	"encoding/json"

	"github.com/gin-gonic/gin"
)

// Envelope is the body of every API response.
type Envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data,omitempty"`
}

type envelopeOut struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

func Success(c *gin.Context, data interface{}) {
	c.JSON(200, envelopeOut{Code: 0, Data: data})
}

func Error(c *gin.Context, status int, code int, message string) {
	c.AbortWithStatusJSON(status, envelopeOut{Code: code, Message: message})
}
