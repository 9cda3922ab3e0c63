package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/wardenhq/warden/internal/authz"
	"github.com/wardenhq/warden/internal/middleware"
	"github.com/wardenhq/warden/internal/models"
	"github.com/wardenhq/warden/internal/services"
	apperrors "github.com/wardenhq/warden/pkg/errors"
	"github.com/wardenhq/warden/pkg/response"
)

// RoleHandler exposes role CRUD, role-permission grants, and role assignment.
type RoleHandler struct {
	db  *gorm.DB
	svc *services.RoleService
}

func NewRoleHandler(db *gorm.DB, cfg authz.Config, cache *authz.PermissionCache) (*RoleHandler, error) {
	svc, err := services.NewRoleService(db, cfg, cache)
	if err != nil {
		return nil, err
	}
	return &RoleHandler{db: db, svc: svc}, nil
}

// GET /api/roles
func (h *RoleHandler) List(c *gin.Context) {
	roles, err := h.svc.ListRoles(requestContext(c), middleware.PrincipalFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, roles)
}

// GET /api/roles/all
func (h *RoleHandler) ListAll(c *gin.Context) {
	roles, err := h.svc.ListAllRoles(requestContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, roles)
}

// GET /api/roles/:id
func (h *RoleHandler) Get(c *gin.Context) {
	role, err := h.svc.GetRole(requestContext(c), middleware.PrincipalFromContext(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, role)
}

// POST /api/roles
func (h *RoleHandler) Create(c *gin.Context) {
	var body struct {
		Name        string `json:"name"`
		DisplayName string `json:"display_name"`
		Description string `json:"description"`
		GuardName   string `json:"guard_name"`
	}
	if err := c.ShouldBindJSON(&body); err != nil || body.Name == "" {
		response.Error(c, apperrors.ErrBadRequest)
		return
	}

	role, err := h.svc.CreateRole(requestContext(c), middleware.PrincipalFromContext(c), services.CreateRoleInput{
		Name:        body.Name,
		DisplayName: body.DisplayName,
		Description: body.Description,
		GuardName:   body.GuardName,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusCreated, role)
}

// PATCH /api/roles/:id
func (h *RoleHandler) Update(c *gin.Context) {
	var body struct {
		Name        string `json:"name"`
		DisplayName string `json:"display_name"`
		Description string `json:"description"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		response.Error(c, apperrors.ErrBadRequest)
		return
	}

	role, err := h.svc.UpdateRole(requestContext(c), middleware.PrincipalFromContext(c), c.Param("id"), services.UpdateRoleInput{
		Name:        body.Name,
		DisplayName: body.DisplayName,
		Description: body.Description,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, role)
}

// DELETE /api/roles/:id
func (h *RoleHandler) Delete(c *gin.Context) {
	if err := h.svc.DeleteRole(requestContext(c), middleware.PrincipalFromContext(c), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"deleted": true})
}

// rolesPayload accepts roles addressed by name or by ID in one body.
type rolesPayload struct {
	Roles   []string `json:"roles"`
	RoleIDs []string `json:"role_ids"`
}

func (p rolesPayload) refs() []authz.RoleRef {
	refs := make([]authz.RoleRef, 0, len(p.Roles)+len(p.RoleIDs))
	refs = append(refs, authz.RoleNames(p.Roles...)...)
	for _, id := range p.RoleIDs {
		refs = append(refs, authz.RoleByID(id))
	}
	return refs
}

// permissionsPayload accepts permissions addressed by name or by ID.
type permissionsPayload struct {
	Permissions   []string `json:"permissions"`
	PermissionIDs []string `json:"permission_ids"`
}

func (p permissionsPayload) refs() []authz.PermissionRef {
	refs := make([]authz.PermissionRef, 0, len(p.Permissions)+len(p.PermissionIDs))
	refs = append(refs, authz.PermissionNames(p.Permissions...)...)
	for _, id := range p.PermissionIDs {
		refs = append(refs, authz.PermissionByID(id))
	}
	return refs
}

// POST /api/roles/:id/permissions
func (h *RoleHandler) GrantPermissions(c *gin.Context) {
	var body permissionsPayload
	if err := c.ShouldBindJSON(&body); err != nil {
		response.Error(c, apperrors.ErrBadRequest)
		return
	}
	err := h.svc.GivePermissions(requestContext(c), middleware.PrincipalFromContext(c), authz.RoleByID(c.Param("id")), body.refs())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"granted": true})
}

// DELETE /api/roles/:id/permissions
func (h *RoleHandler) RevokePermissions(c *gin.Context) {
	var body permissionsPayload
	if err := c.ShouldBindJSON(&body); err != nil {
		response.Error(c, apperrors.ErrBadRequest)
		return
	}
	err := h.svc.RevokePermissions(requestContext(c), middleware.PrincipalFromContext(c), authz.RoleByID(c.Param("id")), body.refs())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"revoked": true})
}

// PUT /api/roles/:id/permissions
func (h *RoleHandler) SyncPermissions(c *gin.Context) {
	var body permissionsPayload
	if err := c.ShouldBindJSON(&body); err != nil {
		response.Error(c, apperrors.ErrBadRequest)
		return
	}
	err := h.svc.SyncPermissions(requestContext(c), middleware.PrincipalFromContext(c), authz.RoleByID(c.Param("id")), body.refs())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"synced": true})
}

// loadTargetUser resolves the user a role assignment targets. Scoping by the
// target's own tenant keeps cross-tenant assignment structurally impossible.
func (h *RoleHandler) loadTargetUser(c *gin.Context) (*models.User, bool) {
	var user models.User
	err := h.db.WithContext(requestContext(c)).First(&user, "id = ?", c.Param("id")).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			response.Error(c, apperrors.NewNotFound("user not found"))
		} else {
			response.Error(c, err)
		}
		return nil, false
	}
	return &user, true
}

// POST /api/users/:id/roles
func (h *RoleHandler) AssignToUser(c *gin.Context) {
	var body rolesPayload
	if err := c.ShouldBindJSON(&body); err != nil {
		response.Error(c, apperrors.ErrBadRequest)
		return
	}

	user, ok := h.loadTargetUser(c)
	if !ok {
		return
	}

	if err := h.svc.AssignRoles(requestContext(c), user, body.refs()); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"assigned": true})
}

// DELETE /api/users/:id/roles
func (h *RoleHandler) RemoveFromUser(c *gin.Context) {
	var body rolesPayload
	if err := c.ShouldBindJSON(&body); err != nil {
		response.Error(c, apperrors.ErrBadRequest)
		return
	}

	user, ok := h.loadTargetUser(c)
	if !ok {
		return
	}

	if err := h.svc.RemoveRoles(requestContext(c), user, body.refs()); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"removed": true})
}

// PUT /api/users/:id/roles
func (h *RoleHandler) SyncForUser(c *gin.Context) {
	var body rolesPayload
	if err := c.ShouldBindJSON(&body); err != nil {
		response.Error(c, apperrors.ErrBadRequest)
		return
	}

	user, ok := h.loadTargetUser(c)
	if !ok {
		return
	}

	if err := h.svc.SyncRoles(requestContext(c), user, body.refs()); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"synced": true})
}
