package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/wardenhq/warden/internal/models"
	apperrors "github.com/wardenhq/warden/pkg/errors"
)

// ModuleService owns the module hierarchy used to group the permission
// catalog for navigation and module-level access checks.
type ModuleService struct {
	db *gorm.DB
}

// NewModuleService constructs a ModuleService.
func NewModuleService(db *gorm.DB) (*ModuleService, error) {
	if db == nil {
		return nil, errors.New("module service: db is required")
	}
	return &ModuleService{db: db}, nil
}

// CreateModuleInput describes the payload accepted by CreateModule.
type CreateModuleInput struct {
	Name        string
	DisplayName string
	Description string
	Icon        string
	Order       int
}

// UpdateModuleInput describes mutable fields on a module.
type UpdateModuleInput struct {
	Name        string
	DisplayName string
	Description string
	Icon        string
	Order       *int
}

// CreateSubModuleInput describes the payload accepted by CreateSubModule.
type CreateSubModuleInput struct {
	ModuleID    string
	Name        string
	DisplayName string
	Description string
	Order       int
}

// CreateModule registers a new top-level module. Module names are globally
// unique.
func (s *ModuleService) CreateModule(ctx context.Context, input CreateModuleInput) (*models.Module, error) {
	ctx = ensureContext(ctx)

	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, apperrors.NewBadRequest("module name is required")
	}

	module := &models.Module{
		Name:        name,
		DisplayName: strings.TrimSpace(input.DisplayName),
		Description: strings.TrimSpace(input.Description),
		Icon:        strings.TrimSpace(input.Icon),
		Order:       input.Order,
	}
	if err := s.db.WithContext(ctx).Create(module).Error; err != nil {
		if isUniqueConstraintError(err) {
			return nil, apperrors.NewBadRequest("module name already exists")
		}
		return nil, fmt.Errorf("module service: create module: %w", err)
	}
	return module, nil
}

// GetModule loads a module with its sub-modules and transitive permissions.
func (s *ModuleService) GetModule(ctx context.Context, moduleID string) (*models.Module, error) {
	ctx = ensureContext(ctx)

	var module models.Module
	err := s.db.WithContext(ctx).
		Preload("Permissions").
		Preload("SubModules", func(db *gorm.DB) *gorm.DB {
			return db.Order("sort_order ASC")
		}).
		Preload("SubModules.Permissions").
		First(&module, "id = ?", moduleID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrModuleNotFound
		}
		return nil, fmt.Errorf("module service: load module: %w", err)
	}
	return &module, nil
}

// FindModuleByName looks a module up by name. A missing module is reported
// as (nil, nil).
func (s *ModuleService) FindModuleByName(ctx context.Context, name string) (*models.Module, error) {
	ctx = ensureContext(ctx)

	name = strings.TrimSpace(name)
	if name == "" {
		return nil, nil
	}

	var module models.Module
	err := s.db.WithContext(ctx).First(&module, "name = ?", name).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("module service: find module by name: %w", err)
	}
	return &module, nil
}

// ListModules returns the full hierarchy ordered for display.
func (s *ModuleService) ListModules(ctx context.Context) ([]models.Module, error) {
	ctx = ensureContext(ctx)

	var modules []models.Module
	err := s.db.WithContext(ctx).
		Preload("Permissions").
		Preload("SubModules", func(db *gorm.DB) *gorm.DB {
			return db.Order("sort_order ASC")
		}).
		Preload("SubModules.Permissions").
		Order("sort_order ASC").
		Find(&modules).Error
	if err != nil {
		return nil, fmt.Errorf("module service: list modules: %w", err)
	}
	return modules, nil
}

// UpdateModule modifies module metadata.
func (s *ModuleService) UpdateModule(ctx context.Context, moduleID string, input UpdateModuleInput) (*models.Module, error) {
	ctx = ensureContext(ctx)

	module, err := s.GetModule(ctx, moduleID)
	if err != nil {
		return nil, err
	}

	updates := map[string]any{}
	if name := strings.TrimSpace(input.Name); name != "" && name != module.Name {
		updates["name"] = name
	}
	if display := strings.TrimSpace(input.DisplayName); display != module.DisplayName {
		updates["display_name"] = display
	}
	if desc := strings.TrimSpace(input.Description); desc != module.Description {
		updates["description"] = desc
	}
	if icon := strings.TrimSpace(input.Icon); icon != module.Icon {
		updates["icon"] = icon
	}
	if input.Order != nil && *input.Order != module.Order {
		updates["sort_order"] = *input.Order
	}

	if len(updates) == 0 {
		return module, nil
	}

	if err := s.db.WithContext(ctx).Model(module).Updates(updates).Error; err != nil {
		if isUniqueConstraintError(err) {
			return nil, apperrors.NewBadRequest("module name already exists")
		}
		return nil, fmt.Errorf("module service: update module: %w", err)
	}
	return s.GetModule(ctx, moduleID)
}

// DeleteModule removes a module and its sub-modules. Permissions survive as
// uncategorized catalog entries; the cascade is explicit so the behavior does
// not depend on database-level foreign key support.
func (s *ModuleService) DeleteModule(ctx context.Context, moduleID string) error {
	ctx = ensureContext(ctx)

	module, err := s.GetModule(ctx, moduleID)
	if err != nil {
		return err
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Model(&models.Permission{}).
			Where("module_id = ?", module.ID).
			Updates(map[string]any{"module_id": nil, "sub_module_id": nil}).Error
		if err != nil {
			return fmt.Errorf("module service: detach permissions: %w", err)
		}
		if err := tx.Where("module_id = ?", module.ID).Delete(&models.SubModule{}).Error; err != nil {
			return fmt.Errorf("module service: delete sub-modules: %w", err)
		}
		if err := tx.Delete(module).Error; err != nil {
			return fmt.Errorf("module service: delete module: %w", err)
		}
		return nil
	})
}

// CreateSubModule registers a sub-module under an existing module.
// Sub-module names are unique within their parent.
func (s *ModuleService) CreateSubModule(ctx context.Context, input CreateSubModuleInput) (*models.SubModule, error) {
	ctx = ensureContext(ctx)

	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, apperrors.NewBadRequest("sub-module name is required")
	}

	var module models.Module
	if err := s.db.WithContext(ctx).First(&module, "id = ?", strings.TrimSpace(input.ModuleID)).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrModuleNotFound
		}
		return nil, fmt.Errorf("module service: load module: %w", err)
	}

	sub := &models.SubModule{
		ModuleID:    module.ID,
		Name:        name,
		DisplayName: strings.TrimSpace(input.DisplayName),
		Description: strings.TrimSpace(input.Description),
		Order:       input.Order,
	}
	if err := s.db.WithContext(ctx).Create(sub).Error; err != nil {
		if isUniqueConstraintError(err) {
			return nil, apperrors.NewBadRequest("sub-module name already exists in this module")
		}
		return nil, fmt.Errorf("module service: create sub-module: %w", err)
	}
	return sub, nil
}

// GetSubModule loads a sub-module with its permissions.
func (s *ModuleService) GetSubModule(ctx context.Context, subModuleID string) (*models.SubModule, error) {
	ctx = ensureContext(ctx)

	var sub models.SubModule
	err := s.db.WithContext(ctx).
		Preload("Permissions").
		First(&sub, "id = ?", subModuleID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSubModuleNotFound
		}
		return nil, fmt.Errorf("module service: load sub-module: %w", err)
	}
	return &sub, nil
}

// DeleteSubModule removes a sub-module. Its permissions stay attached to the
// parent module.
func (s *ModuleService) DeleteSubModule(ctx context.Context, subModuleID string) error {
	ctx = ensureContext(ctx)

	sub, err := s.GetSubModule(ctx, subModuleID)
	if err != nil {
		return err
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Model(&models.Permission{}).
			Where("sub_module_id = ?", sub.ID).
			Update("sub_module_id", nil).Error
		if err != nil {
			return fmt.Errorf("module service: detach permissions: %w", err)
		}
		if err := tx.Delete(sub).Error; err != nil {
			return fmt.Errorf("module service: delete sub-module: %w", err)
		}
		return nil
	})
}
