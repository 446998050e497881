package utils

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

func Success(c *gin.Context, data gin.H) {
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    data,
	})
}

func Error(c *gin.Context, code int, msg string) {
	c.JSON(code, gin.H{
		"success": false,
		"error":   msg,
	})
}

// ErrorKind reports a failed batch-level condition together with its
// classification from the error taxonomy
func ErrorKind(c *gin.Context, code int, kind, msg string) {
	c.JSON(code, gin.H{
		"success":    false,
		"error_kind": kind,
		"error":      msg,
	})
}
