package authz

import (
	"strings"

	"github.com/wardenhq/warden/internal/models"
)

// RoleRef identifies a role by ID, by name, or by value. A single reference
// type replaces accept-anything parameters so call sites state how they are
// addressing the role.
type RoleRef struct {
	id   string
	name string
	role *models.Role
}

// RoleByID references a role by its primary key.
func RoleByID(id string) RoleRef {
	return RoleRef{id: strings.TrimSpace(id)}
}

// RoleByName references a role by name, resolved within the caller's tenant
// scope and the configured guard.
func RoleByName(name string) RoleRef {
	return RoleRef{name: strings.TrimSpace(name)}
}

// RoleValue references an already-loaded role.
func RoleValue(role models.Role) RoleRef {
	return RoleRef{role: &role}
}

// IsZero reports whether the reference addresses nothing.
func (r RoleRef) IsZero() bool {
	return r.id == "" && r.name == "" && r.role == nil
}

// ID returns the identifier the reference carries, empty when it addresses
// by name only.
func (r RoleRef) ID() string {
	if r.role != nil {
		return r.role.ID
	}
	return r.id
}

// Name returns the name the reference carries, empty when it addresses by
// identifier only.
func (r RoleRef) Name() string {
	if r.role != nil {
		return r.role.Name
	}
	return r.name
}

// RoleNames builds references for a list of role names.
func RoleNames(names ...string) []RoleRef {
	refs := make([]RoleRef, 0, len(names))
	for _, name := range names {
		refs = append(refs, RoleByName(name))
	}
	return refs
}

// PermissionRef identifies a permission by ID, by name, or by value.
type PermissionRef struct {
	id         string
	name       string
	permission *models.Permission
}

// PermissionByID references a permission by its primary key.
func PermissionByID(id string) PermissionRef {
	return PermissionRef{id: strings.TrimSpace(id)}
}

// PermissionByName references a permission by its guard-unique name.
func PermissionByName(name string) PermissionRef {
	return PermissionRef{name: strings.TrimSpace(name)}
}

// PermissionValue references an already-loaded permission.
func PermissionValue(permission models.Permission) PermissionRef {
	return PermissionRef{permission: &permission}
}

// IsZero reports whether the reference addresses nothing.
func (r PermissionRef) IsZero() bool {
	return r.id == "" && r.name == "" && r.permission == nil
}

// ID returns the identifier the reference carries, empty when it addresses
// by name only.
func (r PermissionRef) ID() string {
	if r.permission != nil {
		return r.permission.ID
	}
	return r.id
}

// Name returns the name the reference carries, empty when it addresses by
// identifier only.
func (r PermissionRef) Name() string {
	if r.permission != nil {
		return r.permission.Name
	}
	return r.name
}

// PermissionNames builds references for a list of permission names.
func PermissionNames(names ...string) []PermissionRef {
	refs := make([]PermissionRef, 0, len(names))
	for _, name := range names {
		refs = append(refs, PermissionByName(name))
	}
	return refs
}

// ModuleRef identifies a module by ID or by name.
type ModuleRef struct {
	id   string
	name string
}

// ModuleByID references a module by its primary key.
func ModuleByID(id string) ModuleRef {
	return ModuleRef{id: strings.TrimSpace(id)}
}

// ModuleByName references a module by its unique name.
func ModuleByName(name string) ModuleRef {
	return ModuleRef{name: strings.TrimSpace(name)}
}

// IsZero reports whether the reference addresses nothing.
func (r ModuleRef) IsZero() bool {
	return r.id == "" && r.name == ""
}

// ID returns the identifier the reference carries.
func (r ModuleRef) ID() string { return r.id }

// Name returns the name the reference carries.
func (r ModuleRef) Name() string { return r.name }
