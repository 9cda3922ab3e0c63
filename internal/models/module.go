package models

// Module is the top level of the optional permission hierarchy. Modules are
// created by administrators only; deleting one cascades to its sub-modules
// and detaches (nulls) the module linkage of affected permissions.
type Module struct {
	BaseModel

	Name        string `gorm:"uniqueIndex;not null" json:"name"`
	DisplayName string `json:"display_name"`
	Description string `json:"description"`
	Icon        string `json:"icon"`
	Order       int    `gorm:"column:sort_order;default:0" json:"order"`

	SubModules  []SubModule  `gorm:"foreignKey:ModuleID" json:"sub_modules,omitempty"`
	Permissions []Permission `gorm:"foreignKey:ModuleID" json:"permissions,omitempty"`
}

// SubModule is a second-level grouping under exactly one module. Unique on
// (module_id, name).
type SubModule struct {
	BaseModel

	ModuleID string  `gorm:"type:uuid;not null;uniqueIndex:idx_sub_modules_module_name" json:"module_id"`
	Module   *Module `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"module,omitempty"`

	Name        string `gorm:"not null;uniqueIndex:idx_sub_modules_module_name" json:"name"`
	DisplayName string `json:"display_name"`
	Description string `json:"description"`
	Icon        string `json:"icon"`
	Order       int    `gorm:"column:sort_order;default:0" json:"order"`

	Permissions []Permission `gorm:"foreignKey:SubModuleID" json:"permissions,omitempty"`
}
