package middleware

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
)

// ErrorHandler is the terminal error middleware. Handlers that hit an
// unexpected failure attach it via c.Error and abort; this turns the first
// attached error into a {status, message} body, logging at error level for
// 5xx and warn otherwise.
func ErrorHandler(log *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 {
			return
		}
		err := c.Errors[0].Err

		status := c.Writer.Status()
		if status < http.StatusBadRequest {
			status = http.StatusInternalServerError
		}

		if status >= http.StatusInternalServerError {
			log.Error("request failed", "status", status, "error", err)
		} else {
			log.Warn("request failed", "status", status, "error", err)
		}

		if !c.Writer.Written() {
			label := "fail"
			if status >= http.StatusInternalServerError {
				label = "error"
			}
			c.JSON(status, gin.H{"status": label, "message": err.Error()})
		}
	}
}
