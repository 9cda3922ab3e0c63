package models

// Role groups permissions and is granted to users. When multi-tenancy is
// enabled the tenant columns scope visibility; the same role name may exist
// independently per tenant. Tenant identity is set once at creation and never
// re-scoped afterwards.
type Role struct {
	BaseModel

	TenantID    *string `gorm:"type:uuid;index" json:"tenant_id,omitempty"`
	SubTenantID *string `gorm:"type:uuid;index" json:"sub_tenant_id,omitempty"`

	Name        string `gorm:"not null;index" json:"name"`
	DisplayName string `json:"display_name"`
	Description string `json:"description"`
	GuardName   string `gorm:"not null;index;default:api" json:"guard_name"`
	IsSystem    bool   `gorm:"default:false" json:"is_system"`

	Permissions []Permission `gorm:"many2many:role_permissions;" json:"permissions,omitempty"`
	Users       []User       `gorm:"many2many:user_roles;" json:"users,omitempty"`
}
