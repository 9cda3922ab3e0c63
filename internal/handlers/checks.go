package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/wardenhq/warden/internal/authz"
	"github.com/wardenhq/warden/internal/middleware"
	apperrors "github.com/wardenhq/warden/pkg/errors"
	"github.com/wardenhq/warden/pkg/response"
)

// CheckHandler exposes authorization decisions over HTTP so other services
// can consult the engine without linking it in.
type CheckHandler struct {
	resolver *authz.Resolver
}

func NewCheckHandler(resolver *authz.Resolver) (*CheckHandler, error) {
	if resolver == nil {
		return nil, apperrors.New("RESOLVER_REQUIRED", "resolver is required", http.StatusInternalServerError)
	}
	return &CheckHandler{resolver: resolver}, nil
}

// GET /api/me/permissions
func (h *CheckHandler) MyPermissions(c *gin.Context) {
	principal := middleware.PrincipalFromContext(c)
	if principal == nil {
		response.Error(c, apperrors.ErrUnauthorized)
		return
	}

	grants, err := h.resolver.EffectivePermissions(requestContext(c), principal)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, grants)
}

// POST /api/me/permissions/refresh
func (h *CheckHandler) RefreshMyPermissions(c *gin.Context) {
	principal := middleware.PrincipalFromContext(c)
	if principal == nil {
		response.Error(c, apperrors.ErrUnauthorized)
		return
	}

	if err := h.resolver.RefreshPermissions(requestContext(c), principal); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"refreshed": true})
}

// GET /api/me/super-admin
func (h *CheckHandler) AmISuperAdmin(c *gin.Context) {
	principal := middleware.PrincipalFromContext(c)
	if principal == nil {
		response.Error(c, apperrors.ErrUnauthorized)
		return
	}

	admin, err := h.resolver.IsSuperAdmin(requestContext(c), principal)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"super_admin": admin})
}

// POST /api/check/permission
//
// Body shapes, checked in order: {"permission": "x"}, {"any": [...]},
// {"all": [...]}. The optional "role" field constrains the check to a single
// role with exact-name matching.
func (h *CheckHandler) CheckPermission(c *gin.Context) {
	principal := middleware.PrincipalFromContext(c)
	if principal == nil {
		response.Error(c, apperrors.ErrUnauthorized)
		return
	}

	var body struct {
		Permission string   `json:"permission"`
		Any        []string `json:"any"`
		All        []string `json:"all"`
		Role       string   `json:"role"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		response.Error(c, apperrors.ErrBadRequest)
		return
	}

	ctx := requestContext(c)
	var allowed bool
	var err error
	switch {
	case body.Permission != "" && body.Role != "":
		allowed, err = h.resolver.HasPermissionViaRole(ctx, principal,
			authz.PermissionByName(body.Permission), authz.RoleByName(body.Role))
	case body.Permission != "":
		allowed, err = h.resolver.HasPermission(ctx, principal, authz.PermissionByName(body.Permission))
	case len(body.Any) > 0:
		allowed, err = h.resolver.HasAnyPermission(ctx, principal, authz.PermissionNames(body.Any...))
	case len(body.All) > 0:
		allowed, err = h.resolver.HasAllPermissions(ctx, principal, authz.PermissionNames(body.All...))
	default:
		response.Error(c, apperrors.ErrBadRequest)
		return
	}
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"allowed": allowed})
}

// POST /api/check/role
func (h *CheckHandler) CheckRole(c *gin.Context) {
	principal := middleware.PrincipalFromContext(c)
	if principal == nil {
		response.Error(c, apperrors.ErrUnauthorized)
		return
	}

	var body struct {
		Role string   `json:"role"`
		Any  []string `json:"any"`
		All  []string `json:"all"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		response.Error(c, apperrors.ErrBadRequest)
		return
	}

	ctx := requestContext(c)
	var held bool
	var err error
	switch {
	case body.Role != "":
		held, err = h.resolver.HasRole(ctx, principal, authz.RoleByName(body.Role))
	case len(body.Any) > 0:
		held, err = h.resolver.HasAnyRole(ctx, principal, authz.RoleNames(body.Any...))
	case len(body.All) > 0:
		held, err = h.resolver.HasAllRoles(ctx, principal, authz.RoleNames(body.All...))
	default:
		response.Error(c, apperrors.ErrBadRequest)
		return
	}
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"allowed": held})
}

// POST /api/check/module
func (h *CheckHandler) CheckModule(c *gin.Context) {
	principal := middleware.PrincipalFromContext(c)
	if principal == nil {
		response.Error(c, apperrors.ErrUnauthorized)
		return
	}

	var body struct {
		Module string `json:"module"`
	}
	if err := c.ShouldBindJSON(&body); err != nil || body.Module == "" {
		response.Error(c, apperrors.ErrBadRequest)
		return
	}

	allowed, err := h.resolver.HasModuleAccess(requestContext(c), principal, authz.ModuleByName(body.Module))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"allowed": allowed})
}
