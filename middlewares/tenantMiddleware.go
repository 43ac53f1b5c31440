package middlewares

import (
	"bitbucket.org/mmdatafocus/quotes_backend/utils"
	"github.com/gin-gonic/gin"
)

// TenantMiddleware copies the gateway's identity headers onto the request
// context. Handlers that need a company id reject the request themselves,
// so a missing header passes through untouched.
func TenantMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		companyId := c.Request.Header.Get("X-Company-Id")
		if companyId == "" {
			c.Next()
			return
		}

		ctx := utils.SetCompanyIdInContext(c.Request.Context(), companyId)
		if userId := c.Request.Header.Get("X-User-Id"); userId != "" {
			ctx = utils.SetUserIdInContext(ctx, userId)
		}
		if userName := c.Request.Header.Get("X-User-Name"); userName != "" {
			ctx = utils.SetUserNameInContext(ctx, userName)
		}
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}
