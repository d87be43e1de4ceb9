package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// HealthMessage is the static body served on the root route.
const HealthMessage = "Catalyst price server is running"

// Health returns a handler for GET /.
func Health() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.String(http.StatusOK, HealthMessage)
	}
}
