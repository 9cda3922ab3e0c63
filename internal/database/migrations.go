package database

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/wardenhq/warden/internal/models"
)

// AutoMigrate creates or updates the database schema for all models.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.User{},
		&models.Module{},
		&models.SubModule{},
		&models.Permission{},
		&models.Role{},
	)
}

// seedCatalog is the built-in administration catalog: the permissions that
// guard Warden's own management API, grouped under one module.
var seedCatalog = []struct {
	Name        string
	DisplayName string
	Description string
}{
	{"role.view", "View Roles", "List and inspect roles"},
	{"role.manage", "Manage Roles", "Create, update, delete, and assign roles"},
	{"permission.view", "View Permissions", "List and inspect the permission catalog"},
	{"permission.manage", "Manage Permissions", "Create, update, and delete permissions"},
	{"module.view", "View Modules", "List and inspect the module hierarchy"},
	{"module.manage", "Manage Modules", "Create, update, and delete modules"},
}

// SeedData populates the administration module, its permission catalog, and
// the built-in super-admin role. Seeding is idempotent; rerunning it on an
// existing database changes nothing.
func SeedData(db *gorm.DB) error {
	module := models.Module{
		Name:        "warden",
		DisplayName: "Warden Administration",
		Description: "Role, permission, and module management",
		Icon:        "shield",
	}
	if err := db.Where(models.Module{Name: module.Name}).Attrs(module).FirstOrCreate(&module).Error; err != nil {
		return fmt.Errorf("seed module: %w", err)
	}

	var permissions []models.Permission
	for _, entry := range seedCatalog {
		perm := models.Permission{
			Name:        entry.Name,
			DisplayName: entry.DisplayName,
			Description: entry.Description,
			GuardName:   "api",
			ModuleID:    &module.ID,
		}
		if err := db.Where(models.Permission{Name: perm.Name, GuardName: perm.GuardName}).
			Attrs(perm).FirstOrCreate(&perm).Error; err != nil {
			return fmt.Errorf("seed permission %s: %w", entry.Name, err)
		}
		permissions = append(permissions, perm)
	}

	// The super-admin role bypasses checks by name; the explicit grants below
	// keep its permission listing meaningful for introspection endpoints.
	role := models.Role{
		Name:        "super admin",
		DisplayName: "Super Admin",
		Description: "Unrestricted access to every permission",
		GuardName:   "api",
		IsSystem:    true,
	}
	if err := db.Where(models.Role{Name: role.Name, GuardName: role.GuardName}).
		Attrs(role).FirstOrCreate(&role).Error; err != nil {
		return fmt.Errorf("seed super admin role: %w", err)
	}

	for i := range permissions {
		if err := db.Model(&role).Association("Permissions").Append(&permissions[i]); err != nil {
			return fmt.Errorf("seed super admin grants: %w", err)
		}
	}

	return nil
}
