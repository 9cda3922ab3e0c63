package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/wardenhq/warden/internal/authz"
	"github.com/wardenhq/warden/internal/models"
	apperrors "github.com/wardenhq/warden/pkg/errors"
)

// PermissionService owns the permission catalog. Permissions are global
// entities shared by every tenant; only their grants through roles are
// tenant-scoped.
type PermissionService struct {
	db    *gorm.DB
	cfg   authz.Config
	cache *authz.PermissionCache
}

// NewPermissionService constructs a PermissionService. The cache may be nil
// when caching is disabled.
func NewPermissionService(db *gorm.DB, cfg authz.Config, cache *authz.PermissionCache) (*PermissionService, error) {
	if db == nil {
		return nil, errors.New("permission service: db is required")
	}
	return &PermissionService{db: db, cfg: cfg, cache: cache}, nil
}

// CreatePermissionInput describes the payload accepted by CreatePermission.
type CreatePermissionInput struct {
	Name        string
	DisplayName string
	Description string
	GuardName   string
	ModuleID    string
	SubModuleID string
}

// UpdatePermissionInput describes mutable fields on a permission.
type UpdatePermissionInput struct {
	Name        string
	DisplayName string
	Description string
	ModuleID    *string
	SubModuleID *string
}

// CreatePermission registers a new catalog entry. Names are unique per guard.
func (s *PermissionService) CreatePermission(ctx context.Context, input CreatePermissionInput) (*models.Permission, error) {
	ctx = ensureContext(ctx)
	return s.create(ctx, s.db.WithContext(ctx), input)
}

// CreatePermissions registers multiple catalog entries atomically. The first
// failure rolls back the whole batch.
func (s *PermissionService) CreatePermissions(ctx context.Context, inputs []CreatePermissionInput) ([]*models.Permission, error) {
	ctx = ensureContext(ctx)

	created := make([]*models.Permission, 0, len(inputs))
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, input := range inputs {
			perm, err := s.create(ctx, tx, input)
			if err != nil {
				return err
			}
			created = append(created, perm)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// FindPermissionByName looks a permission up by name under the configured
// guard. A missing permission is reported as (nil, nil).
func (s *PermissionService) FindPermissionByName(ctx context.Context, name string) (*models.Permission, error) {
	ctx = ensureContext(ctx)

	name = strings.TrimSpace(name)
	if name == "" {
		return nil, nil
	}

	var perm models.Permission
	err := s.db.WithContext(ctx).
		Where("name = ? AND guard_name = ?", name, s.guard()).
		First(&perm).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("permission service: find permission by name: %w", err)
	}
	return &perm, nil
}

// FindOrCreatePermission returns the named permission, creating it when
// absent.
func (s *PermissionService) FindOrCreatePermission(ctx context.Context, name string) (*models.Permission, error) {
	ctx = ensureContext(ctx)

	perm, err := s.FindPermissionByName(ctx, name)
	if err != nil {
		return nil, err
	}
	if perm != nil {
		return perm, nil
	}
	return s.CreatePermission(ctx, CreatePermissionInput{Name: name})
}

// GetPermission loads a permission by ID.
func (s *PermissionService) GetPermission(ctx context.Context, permissionID string) (*models.Permission, error) {
	ctx = ensureContext(ctx)

	var perm models.Permission
	err := s.db.WithContext(ctx).First(&perm, "id = ?", permissionID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPermissionNotFound
		}
		return nil, fmt.Errorf("permission service: load permission: %w", err)
	}
	return &perm, nil
}

// ListPermissions returns the catalog under the configured guard, ordered by
// name.
func (s *PermissionService) ListPermissions(ctx context.Context) ([]models.Permission, error) {
	ctx = ensureContext(ctx)

	var perms []models.Permission
	err := s.db.WithContext(ctx).
		Where("guard_name = ?", s.guard()).
		Order("name ASC").
		Find(&perms).Error
	if err != nil {
		return nil, fmt.Errorf("permission service: list permissions: %w", err)
	}
	return perms, nil
}

// UpdatePermission modifies a catalog entry. A rename invalidates the cached
// sets of every principal that can currently exercise the permission, since
// the cached entries carry the old name.
func (s *PermissionService) UpdatePermission(ctx context.Context, permissionID string, input UpdatePermissionInput) (*models.Permission, error) {
	ctx = ensureContext(ctx)

	perm, err := s.GetPermission(ctx, permissionID)
	if err != nil {
		return nil, err
	}

	updates := map[string]any{}
	renamed := false
	if name := strings.TrimSpace(input.Name); name != "" && name != perm.Name {
		updates["name"] = name
		renamed = true
	}
	if display := strings.TrimSpace(input.DisplayName); display != perm.DisplayName {
		updates["display_name"] = display
	}
	if desc := strings.TrimSpace(input.Description); desc != perm.Description {
		updates["description"] = desc
	}
	if input.ModuleID != nil || input.SubModuleID != nil {
		moduleID := perm.ModuleID
		if input.ModuleID != nil {
			moduleID = normalizeID(input.ModuleID)
		}
		subModuleID := perm.SubModuleID
		if input.SubModuleID != nil {
			subModuleID = normalizeID(input.SubModuleID)
		}
		if err := s.validatePlacement(ctx, moduleID, subModuleID); err != nil {
			return nil, err
		}
		updates["module_id"] = moduleID
		updates["sub_module_id"] = subModuleID
	}

	if len(updates) == 0 {
		return perm, nil
	}

	affected := []string(nil)
	if renamed {
		affected, err = s.affectedPrincipalIDs(ctx, perm.ID)
		if err != nil {
			return nil, err
		}
	}

	if err := s.db.WithContext(ctx).Model(perm).Updates(updates).Error; err != nil {
		if isUniqueConstraintError(err) {
			return nil, apperrors.NewBadRequest("permission name already exists")
		}
		return nil, fmt.Errorf("permission service: update permission: %w", err)
	}

	if renamed {
		if err := s.cache.Invalidate(ctx, "role_permissions", affected...); err != nil {
			return nil, err
		}
	}

	return s.GetPermission(ctx, permissionID)
}

// DeletePermission removes a catalog entry, detaching it from every role and
// invalidating the cached sets of every principal that held it.
func (s *PermissionService) DeletePermission(ctx context.Context, permissionID string) error {
	ctx = ensureContext(ctx)

	perm, err := s.GetPermission(ctx, permissionID)
	if err != nil {
		return err
	}

	affected, err := s.affectedPrincipalIDs(ctx, perm.ID)
	if err != nil {
		return err
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(perm).Association("Roles").Clear(); err != nil {
			return fmt.Errorf("permission service: detach permission: %w", err)
		}
		if err := tx.Delete(perm).Error; err != nil {
			return fmt.Errorf("permission service: delete permission: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	return s.cache.Invalidate(ctx, "role_permissions", affected...)
}

func (s *PermissionService) guard() string {
	if s.cfg.Guard != "" {
		return s.cfg.Guard
	}
	return authz.DefaultGuard
}

func (s *PermissionService) create(ctx context.Context, tx *gorm.DB, input CreatePermissionInput) (*models.Permission, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, apperrors.NewBadRequest("permission name is required")
	}
	guard := strings.TrimSpace(input.GuardName)
	if guard == "" {
		guard = s.guard()
	}

	var moduleID, subModuleID *string
	if id := strings.TrimSpace(input.ModuleID); id != "" {
		moduleID = &id
	}
	if id := strings.TrimSpace(input.SubModuleID); id != "" {
		subModuleID = &id
	}
	if err := s.validatePlacement(ctx, moduleID, subModuleID); err != nil {
		return nil, err
	}

	perm := &models.Permission{
		Name:        name,
		DisplayName: strings.TrimSpace(input.DisplayName),
		Description: strings.TrimSpace(input.Description),
		GuardName:   guard,
		ModuleID:    moduleID,
		SubModuleID: subModuleID,
	}

	if err := tx.Create(perm).Error; err != nil {
		if isUniqueConstraintError(err) {
			return nil, apperrors.NewBadRequest("permission name already exists")
		}
		return nil, fmt.Errorf("permission service: create permission: %w", err)
	}
	return perm, nil
}

// validatePlacement checks that the referenced module exists and, when a
// sub-module is given, that it belongs to that module.
func (s *PermissionService) validatePlacement(ctx context.Context, moduleID, subModuleID *string) error {
	if subModuleID != nil && moduleID == nil {
		return apperrors.NewBadRequest("a sub-module requires its parent module")
	}
	if moduleID == nil {
		return nil
	}

	var module models.Module
	if err := s.db.WithContext(ctx).First(&module, "id = ?", *moduleID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrModuleNotFound
		}
		return fmt.Errorf("permission service: load module: %w", err)
	}

	if subModuleID == nil {
		return nil
	}

	var sub models.SubModule
	if err := s.db.WithContext(ctx).First(&sub, "id = ?", *subModuleID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrSubModuleNotFound
		}
		return fmt.Errorf("permission service: load sub-module: %w", err)
	}
	if sub.ModuleID != module.ID {
		return apperrors.NewBadRequest("sub-module does not belong to the given module")
	}
	return nil
}

// affectedPrincipalIDs returns the principals that can currently exercise
// the permission through any role.
func (s *PermissionService) affectedPrincipalIDs(ctx context.Context, permissionID string) ([]string, error) {
	var ids []string
	err := s.db.WithContext(ctx).
		Table("user_roles").
		Joins("JOIN role_permissions ON role_permissions.role_id = user_roles.role_id").
		Where("role_permissions.permission_id = ?", permissionID).
		Distinct().
		Pluck("user_roles.user_id", &ids).Error
	if err != nil {
		return nil, fmt.Errorf("permission service: load affected principals: %w", err)
	}
	return ids, nil
}

func normalizeID(id *string) *string {
	if id == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*id)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
