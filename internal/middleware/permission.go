package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/wardenhq/warden/internal/authz"
	"github.com/wardenhq/warden/pkg/errors"
	"github.com/wardenhq/warden/pkg/metrics"
	"github.com/wardenhq/warden/pkg/response"
)

// RequirePermission checks that the authenticated principal holds the named
// permission before the handler runs.
func RequirePermission(resolver *authz.Resolver, permissionName string) gin.HandlerFunc {
	return func(c *gin.Context) {
		principal := PrincipalFromContext(c)
		if principal == nil {
			response.Error(c, errors.ErrUnauthorized)
			c.Abort()
			return
		}

		allowed, err := resolver.HasPermission(c.Request.Context(), principal, authz.PermissionByName(permissionName))
		if err != nil {
			metrics.PermissionChecks.WithLabelValues(permissionName, "error").Inc()
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"success": false, "error": gin.H{"code": errors.ErrInternalServer.Code, "message": "permission check failed"}})
			return
		}
		if !allowed {
			metrics.PermissionChecks.WithLabelValues(permissionName, "denied").Inc()
			response.Error(c, errors.ErrForbidden)
			c.Abort()
			return
		}
		metrics.PermissionChecks.WithLabelValues(permissionName, "allowed").Inc()
		c.Next()
	}
}

// RequireAnyPermission passes when the principal holds at least one of the
// named permissions.
func RequireAnyPermission(resolver *authz.Resolver, permissionNames ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		principal := PrincipalFromContext(c)
		if principal == nil {
			response.Error(c, errors.ErrUnauthorized)
			c.Abort()
			return
		}

		allowed, err := resolver.HasAnyPermission(c.Request.Context(), principal, authz.PermissionNames(permissionNames...))
		if err != nil {
			metrics.PermissionChecks.WithLabelValues("any", "error").Inc()
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"success": false, "error": gin.H{"code": errors.ErrInternalServer.Code, "message": "permission check failed"}})
			return
		}
		if !allowed {
			metrics.PermissionChecks.WithLabelValues("any", "denied").Inc()
			response.Error(c, errors.ErrForbidden)
			c.Abort()
			return
		}
		metrics.PermissionChecks.WithLabelValues("any", "allowed").Inc()
		c.Next()
	}
}

// RequireModuleAccess passes when the principal holds at least one permission
// under the named module.
func RequireModuleAccess(resolver *authz.Resolver, moduleName string) gin.HandlerFunc {
	return func(c *gin.Context) {
		principal := PrincipalFromContext(c)
		if principal == nil {
			response.Error(c, errors.ErrUnauthorized)
			c.Abort()
			return
		}

		allowed, err := resolver.HasModuleAccess(c.Request.Context(), principal, authz.ModuleByName(moduleName))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"success": false, "error": gin.H{"code": errors.ErrInternalServer.Code, "message": "module access check failed"}})
			return
		}
		if !allowed {
			response.Error(c, errors.ErrForbidden)
			c.Abort()
			return
		}
		c.Next()
	}
}
