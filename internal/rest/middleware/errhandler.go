package middleware

import (
	"github.com/gin-gonic/gin"

	ierr "github.com/gymlane/gymlane/internal/errors"
)

// ErrorHandler renders the last error a handler pushed through c.Error as the
// standard error envelope, with the status mapped from the error's class
func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 {
			return
		}
		err := c.Errors.Last().Err
		c.JSON(ierr.HTTPStatusFromErr(err), ierr.NewErrorResponse(err))
	}
}
