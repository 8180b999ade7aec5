package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/newrelic/go-agent/v3/integrations/nrgin"
)

// DriverAttributes tags the New Relic transaction started by nrgin with the
// driver in the route. Without a transaction it is a no-op.
func DriverAttributes() gin.HandlerFunc {
	return func(c *gin.Context) {
		txn := nrgin.Transaction(c)
		if txn == nil {
			c.Next()
			return
		}

		if driverID := c.Param("id"); driverID != "" {
			txn.AddAttribute("driver_id", driverID)
		}

		c.Next()

		// Record error if present.
		for _, err := range c.Errors {
			txn.NoticeError(err.Err)
		}
	}
}
