package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// fail records the error and lets the trailing error middleware write the
// {status, message} body and emit the log line.
func fail(c *gin.Context, status int, err error) {
	_ = c.Error(err)
	c.Status(status)
	c.Abort()
}

func internalError(c *gin.Context, err error) {
	fail(c, http.StatusInternalServerError, err)
}
