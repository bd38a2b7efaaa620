package middleware

import (
	"github.com/gin-gonic/gin"
	ierr "github.com/gymlane/gymlane/internal/errors"
	"github.com/gymlane/gymlane/internal/types"
)

// TenantMiddleware resolves the tenant and location scope from request headers.
// Every query below this point is tenant-scoped, so a missing tenant header is
// rejected before any handler runs.
func TenantMiddleware(c *gin.Context) {
	tenantID := c.GetHeader(types.HeaderTenantID)
	if tenantID == "" {
		c.Error(ierr.NewError("missing tenant header").
			WithHint("The " + types.HeaderTenantID + " header is required").
			Mark(ierr.ErrValidation))
		c.Abort()
		return
	}

	ctx := types.SetTenantID(c.Request.Context(), tenantID)
	if locationID := c.GetHeader(types.HeaderLocationID); locationID != "" {
		ctx = types.SetLocationID(ctx, locationID)
	}
	c.Request = c.Request.WithContext(ctx)

	c.Next()
}
