package response

import "github.com/gin-gonic/gin"

// JSON helpers shared by the REST handlers.

func OK(c *gin.Context, data any) {
	c.JSON(200, data)
}

func Error(c *gin.Context, status int, message string) {
	c.JSON(status, gin.H{"error": message})
}
