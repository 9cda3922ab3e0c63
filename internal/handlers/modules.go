package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/wardenhq/warden/internal/services"
	apperrors "github.com/wardenhq/warden/pkg/errors"
	"github.com/wardenhq/warden/pkg/response"
)

// ModuleHandler exposes the module hierarchy.
type ModuleHandler struct {
	svc *services.ModuleService
}

func NewModuleHandler(db *gorm.DB) (*ModuleHandler, error) {
	svc, err := services.NewModuleService(db)
	if err != nil {
		return nil, err
	}
	return &ModuleHandler{svc: svc}, nil
}

// GET /api/modules
func (h *ModuleHandler) List(c *gin.Context) {
	modules, err := h.svc.ListModules(requestContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, modules)
}

// GET /api/modules/:id
func (h *ModuleHandler) Get(c *gin.Context) {
	module, err := h.svc.GetModule(requestContext(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, module)
}

// POST /api/modules
func (h *ModuleHandler) Create(c *gin.Context) {
	var body struct {
		Name        string `json:"name"`
		DisplayName string `json:"display_name"`
		Description string `json:"description"`
		Icon        string `json:"icon"`
		Order       int    `json:"order"`
	}
	if err := c.ShouldBindJSON(&body); err != nil || body.Name == "" {
		response.Error(c, apperrors.ErrBadRequest)
		return
	}

	module, err := h.svc.CreateModule(requestContext(c), services.CreateModuleInput{
		Name:        body.Name,
		DisplayName: body.DisplayName,
		Description: body.Description,
		Icon:        body.Icon,
		Order:       body.Order,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusCreated, module)
}

// PATCH /api/modules/:id
func (h *ModuleHandler) Update(c *gin.Context) {
	var body struct {
		Name        string `json:"name"`
		DisplayName string `json:"display_name"`
		Description string `json:"description"`
		Icon        string `json:"icon"`
		Order       *int   `json:"order"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		response.Error(c, apperrors.ErrBadRequest)
		return
	}

	module, err := h.svc.UpdateModule(requestContext(c), c.Param("id"), services.UpdateModuleInput{
		Name:        body.Name,
		DisplayName: body.DisplayName,
		Description: body.Description,
		Icon:        body.Icon,
		Order:       body.Order,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, module)
}

// DELETE /api/modules/:id
func (h *ModuleHandler) Delete(c *gin.Context) {
	if err := h.svc.DeleteModule(requestContext(c), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"deleted": true})
}

// POST /api/modules/:id/sub-modules
func (h *ModuleHandler) CreateSubModule(c *gin.Context) {
	var body struct {
		Name        string `json:"name"`
		DisplayName string `json:"display_name"`
		Description string `json:"description"`
		Order       int    `json:"order"`
	}
	if err := c.ShouldBindJSON(&body); err != nil || body.Name == "" {
		response.Error(c, apperrors.ErrBadRequest)
		return
	}

	sub, err := h.svc.CreateSubModule(requestContext(c), services.CreateSubModuleInput{
		ModuleID:    c.Param("id"),
		Name:        body.Name,
		DisplayName: body.DisplayName,
		Description: body.Description,
		Order:       body.Order,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusCreated, sub)
}

// DELETE /api/sub-modules/:id
func (h *ModuleHandler) DeleteSubModule(c *gin.Context) {
	if err := h.svc.DeleteSubModule(requestContext(c), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"deleted": true})
}
