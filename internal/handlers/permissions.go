package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/wardenhq/warden/internal/authz"
	"github.com/wardenhq/warden/internal/services"
	apperrors "github.com/wardenhq/warden/pkg/errors"
	"github.com/wardenhq/warden/pkg/response"
)

// PermissionHandler exposes the global permission catalog.
type PermissionHandler struct {
	svc *services.PermissionService
}

func NewPermissionHandler(db *gorm.DB, cfg authz.Config, cache *authz.PermissionCache) (*PermissionHandler, error) {
	svc, err := services.NewPermissionService(db, cfg, cache)
	if err != nil {
		return nil, err
	}
	return &PermissionHandler{svc: svc}, nil
}

// GET /api/permissions
func (h *PermissionHandler) List(c *gin.Context) {
	perms, err := h.svc.ListPermissions(requestContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, perms)
}

// GET /api/permissions/:id
func (h *PermissionHandler) Get(c *gin.Context) {
	perm, err := h.svc.GetPermission(requestContext(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, perm)
}

type permissionBody struct {
	Name        string `json:"name"`
	DisplayName string `json:"display_name"`
	Description string `json:"description"`
	GuardName   string `json:"guard_name"`
	ModuleID    string `json:"module_id"`
	SubModuleID string `json:"sub_module_id"`
}

func (b permissionBody) input() services.CreatePermissionInput {
	return services.CreatePermissionInput{
		Name:        b.Name,
		DisplayName: b.DisplayName,
		Description: b.Description,
		GuardName:   b.GuardName,
		ModuleID:    b.ModuleID,
		SubModuleID: b.SubModuleID,
	}
}

// POST /api/permissions
func (h *PermissionHandler) Create(c *gin.Context) {
	var body permissionBody
	if err := c.ShouldBindJSON(&body); err != nil || body.Name == "" {
		response.Error(c, apperrors.ErrBadRequest)
		return
	}

	perm, err := h.svc.CreatePermission(requestContext(c), body.input())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusCreated, perm)
}

// POST /api/permissions/batch
func (h *PermissionHandler) CreateBatch(c *gin.Context) {
	var body struct {
		Permissions []permissionBody `json:"permissions"`
	}
	if err := c.ShouldBindJSON(&body); err != nil || len(body.Permissions) == 0 {
		response.Error(c, apperrors.ErrBadRequest)
		return
	}

	inputs := make([]services.CreatePermissionInput, 0, len(body.Permissions))
	for _, entry := range body.Permissions {
		inputs = append(inputs, entry.input())
	}

	perms, err := h.svc.CreatePermissions(requestContext(c), inputs)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusCreated, perms)
}

// PATCH /api/permissions/:id
func (h *PermissionHandler) Update(c *gin.Context) {
	var body struct {
		Name        string  `json:"name"`
		DisplayName string  `json:"display_name"`
		Description string  `json:"description"`
		ModuleID    *string `json:"module_id"`
		SubModuleID *string `json:"sub_module_id"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		response.Error(c, apperrors.ErrBadRequest)
		return
	}

	perm, err := h.svc.UpdatePermission(requestContext(c), c.Param("id"), services.UpdatePermissionInput{
		Name:        body.Name,
		DisplayName: body.DisplayName,
		Description: body.Description,
		ModuleID:    body.ModuleID,
		SubModuleID: body.SubModuleID,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, perm)
}

// DELETE /api/permissions/:id
func (h *PermissionHandler) Delete(c *gin.Context) {
	if err := h.svc.DeletePermission(requestContext(c), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"deleted": true})
}
