package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// User is the persisted shape of a principal. Warden does not authenticate
// users; an external identity provider owns credentials and sessions. The row
// here exists to anchor role assignments and tenant membership.
type User struct {
	ID       string `gorm:"primaryKey;type:uuid" json:"id"`
	Username string `gorm:"uniqueIndex;not null" json:"username"`
	Email    string `gorm:"uniqueIndex;not null" json:"email"`

	TenantID    *string `gorm:"type:uuid;index" json:"tenant_id,omitempty"`
	SubTenantID *string `gorm:"type:uuid;index" json:"sub_tenant_id,omitempty"`

	IsActive bool `gorm:"default:true" json:"is_active"`

	Roles []Role `gorm:"many2many:user_roles;" json:"roles,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// BeforeCreate ensures a UUID is present before persisting.
func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	return nil
}

// PrincipalID returns the stable identity key used for cache keys and pivots.
func (u *User) PrincipalID() string {
	return u.ID
}

// Tenant reports the first-level isolation boundary the user belongs to.
func (u *User) Tenant() *string {
	return u.TenantID
}

// SubTenant reports the optional second-level isolation boundary.
func (u *User) SubTenant() *string {
	return u.SubTenantID
}
