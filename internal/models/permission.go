package models

// Permission represents one grantable capability. Permissions are global
// entities: the name is unique within a guard regardless of tenant, and only
// role-to-permission grants differ per tenant. Module linkage is optional
// metadata used for UI grouping and coarse module-access checks.
type Permission struct {
	BaseModel

	Name        string `gorm:"not null;uniqueIndex:idx_permissions_name_guard" json:"name"`
	DisplayName string `json:"display_name"`
	Description string `json:"description"`
	GuardName   string `gorm:"not null;uniqueIndex:idx_permissions_name_guard;default:api" json:"guard_name"`

	ModuleID    *string    `gorm:"type:uuid;index" json:"module_id,omitempty"`
	Module      *Module    `gorm:"constraint:OnUpdate:CASCADE,OnDelete:SET NULL;" json:"module,omitempty"`
	SubModuleID *string    `gorm:"type:uuid;index" json:"sub_module_id,omitempty"`
	SubModule   *SubModule `gorm:"constraint:OnUpdate:CASCADE,OnDelete:SET NULL;" json:"sub_module,omitempty"`

	Roles []Role `gorm:"many2many:role_permissions;" json:"roles,omitempty"`
}
