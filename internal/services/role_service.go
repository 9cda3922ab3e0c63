package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/wardenhq/warden/internal/authz"
	"github.com/wardenhq/warden/internal/models"
	"github.com/wardenhq/warden/internal/tenancy"
	apperrors "github.com/wardenhq/warden/pkg/errors"
)

// RoleService owns role CRUD, role assignment, and role-permission grants.
// Every mutation invalidates the cached effective permission sets of the
// principals it affects before returning.
type RoleService struct {
	db    *gorm.DB
	cfg   authz.Config
	cache *authz.PermissionCache
}

// NewRoleService constructs a RoleService. The cache may be nil when caching
// is disabled.
func NewRoleService(db *gorm.DB, cfg authz.Config, cache *authz.PermissionCache) (*RoleService, error) {
	if db == nil {
		return nil, errors.New("role service: db is required")
	}
	return &RoleService{db: db, cfg: cfg, cache: cache}, nil
}

// CreateRoleInput describes the payload accepted by CreateRole.
type CreateRoleInput struct {
	Name        string
	DisplayName string
	Description string
	GuardName   string
	IsSystem    bool
}

// UpdateRoleInput describes mutable fields on a role.
type UpdateRoleInput struct {
	Name        string
	DisplayName string
	Description string
}

// CreateRole registers a new role stamped with the acting principal's tenant
// identity. Role names are unique per guard within a tenant scope.
func (s *RoleService) CreateRole(ctx context.Context, actor authz.Principal, input CreateRoleInput) (*models.Role, error) {
	ctx = ensureContext(ctx)

	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, apperrors.NewBadRequest("role name is required")
	}
	guard := strings.TrimSpace(input.GuardName)
	if guard == "" {
		guard = s.guard()
	}

	existing, err := s.findByName(ctx, actor, name, guard)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, apperrors.NewBadRequest("role name already exists")
	}

	role := &models.Role{
		Name:        name,
		DisplayName: strings.TrimSpace(input.DisplayName),
		Description: strings.TrimSpace(input.Description),
		GuardName:   guard,
		IsSystem:    input.IsSystem,
	}
	tenancy.Stamp(s.cfg.Tenancy, actor, role)

	if err := s.db.WithContext(ctx).Create(role).Error; err != nil {
		if isUniqueConstraintError(err) {
			return nil, apperrors.NewBadRequest("role name already exists")
		}
		return nil, fmt.Errorf("role service: create role: %w", err)
	}

	return role, nil
}

// FindRoleByName looks a role up within the actor's tenant scope. A missing
// role is reported as (nil, nil), not an error.
func (s *RoleService) FindRoleByName(ctx context.Context, actor authz.Principal, name string) (*models.Role, error) {
	return s.findByName(ensureContext(ctx), actor, strings.TrimSpace(name), s.guard())
}

// FindOrCreateRole returns the named role, creating it when absent.
func (s *RoleService) FindOrCreateRole(ctx context.Context, actor authz.Principal, name string) (*models.Role, error) {
	ctx = ensureContext(ctx)

	role, err := s.FindRoleByName(ctx, actor, name)
	if err != nil {
		return nil, err
	}
	if role != nil {
		return role, nil
	}
	return s.CreateRole(ctx, actor, CreateRoleInput{Name: name})
}

// GetRole loads a role by ID within the actor's tenant scope.
func (s *RoleService) GetRole(ctx context.Context, actor authz.Principal, roleID string) (*models.Role, error) {
	ctx = ensureContext(ctx)

	var role models.Role
	err := s.db.WithContext(ctx).
		Scopes(tenancy.Scope(s.cfg.Tenancy, actor)).
		Preload("Permissions").
		First(&role, "id = ?", roleID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRoleNotFound
		}
		return nil, fmt.Errorf("role service: load role: %w", err)
	}
	return &role, nil
}

// ListRoles returns the roles visible to the actor, ordered by creation date.
func (s *RoleService) ListRoles(ctx context.Context, actor authz.Principal) ([]models.Role, error) {
	ctx = ensureContext(ctx)

	var roles []models.Role
	err := s.db.WithContext(ctx).
		Scopes(tenancy.Scope(s.cfg.Tenancy, actor)).
		Preload("Permissions").
		Order("created_at ASC").
		Find(&roles).Error
	if err != nil {
		return nil, fmt.Errorf("role service: list roles: %w", err)
	}
	return roles, nil
}

// ListAllRoles returns every role across all tenants. Cross-tenant
// visibility is a deliberate administrative escape hatch; route it through
// a separate, tightly guarded endpoint.
func (s *RoleService) ListAllRoles(ctx context.Context) ([]models.Role, error) {
	ctx = ensureContext(ctx)

	var roles []models.Role
	err := s.db.WithContext(ctx).
		Scopes(tenancy.Bypass()).
		Preload("Permissions").
		Order("created_at ASC").
		Find(&roles).Error
	if err != nil {
		return nil, fmt.Errorf("role service: list all roles: %w", err)
	}
	return roles, nil
}

// UpdateRole modifies role metadata. System roles refuse renames.
func (s *RoleService) UpdateRole(ctx context.Context, actor authz.Principal, roleID string, input UpdateRoleInput) (*models.Role, error) {
	ctx = ensureContext(ctx)

	role, err := s.GetRole(ctx, actor, roleID)
	if err != nil {
		return nil, err
	}

	if role.IsSystem {
		if name := strings.TrimSpace(input.Name); name != "" && name != role.Name {
			return nil, ErrSystemRoleImmutable
		}
	}

	updates := map[string]any{}
	if name := strings.TrimSpace(input.Name); name != "" && name != role.Name {
		updates["name"] = name
	}
	if display := strings.TrimSpace(input.DisplayName); display != role.DisplayName {
		updates["display_name"] = display
	}
	if desc := strings.TrimSpace(input.Description); desc != role.Description {
		updates["description"] = desc
	}

	if len(updates) == 0 {
		return role, nil
	}

	if err := s.db.WithContext(ctx).Model(role).Updates(updates).Error; err != nil {
		if isUniqueConstraintError(err) {
			return nil, apperrors.NewBadRequest("role name already exists")
		}
		return nil, fmt.Errorf("role service: update role: %w", err)
	}

	return s.GetRole(ctx, actor, roleID)
}

// DeleteRole removes a non-system role, detaching its permission grants and
// holders, and invalidates the cached sets of every former holder.
func (s *RoleService) DeleteRole(ctx context.Context, actor authz.Principal, roleID string) error {
	ctx = ensureContext(ctx)

	role, err := s.GetRole(ctx, actor, roleID)
	if err != nil {
		return err
	}
	if role.IsSystem {
		return ErrSystemRoleImmutable
	}

	holders, err := s.roleHolderIDs(ctx, role.ID)
	if err != nil {
		return err
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(role).Association("Permissions").Clear(); err != nil {
			return fmt.Errorf("role service: clear role permissions: %w", err)
		}
		if err := tx.Model(role).Association("Users").Clear(); err != nil {
			return fmt.Errorf("role service: clear role users: %w", err)
		}
		if err := tx.Delete(role).Error; err != nil {
			return fmt.Errorf("role service: delete role: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	return s.cache.Invalidate(ctx, "role_assignment", holders...)
}

// AssignRoles grants roles to the principal. Every reference must resolve
// within the principal's tenant scope; an unknown reference aborts the whole
// call with no partial assignment.
func (s *RoleService) AssignRoles(ctx context.Context, principal authz.Principal, refs []authz.RoleRef) error {
	ctx = ensureContext(ctx)

	if principal == nil || principal.PrincipalID() == "" {
		return ErrPrincipalRequired
	}

	roles, err := s.resolveRoles(ctx, principal, refs)
	if err != nil {
		return err
	}
	if len(roles) == 0 {
		return nil
	}

	user := models.User{ID: principal.PrincipalID()}
	if err := s.db.WithContext(ctx).Model(&user).Association("Roles").Append(toAny(roles)...); err != nil {
		return fmt.Errorf("role service: assign roles: %w", err)
	}

	return s.cache.Invalidate(ctx, "role_assignment", principal.PrincipalID())
}

// RemoveRoles revokes roles from the principal.
func (s *RoleService) RemoveRoles(ctx context.Context, principal authz.Principal, refs []authz.RoleRef) error {
	ctx = ensureContext(ctx)

	if principal == nil || principal.PrincipalID() == "" {
		return ErrPrincipalRequired
	}

	roles, err := s.resolveRoles(ctx, principal, refs)
	if err != nil {
		return err
	}
	if len(roles) == 0 {
		return nil
	}

	user := models.User{ID: principal.PrincipalID()}
	if err := s.db.WithContext(ctx).Model(&user).Association("Roles").Delete(toAny(roles)...); err != nil {
		return fmt.Errorf("role service: remove roles: %w", err)
	}

	return s.cache.Invalidate(ctx, "role_assignment", principal.PrincipalID())
}

// SyncRoles replaces the principal's role assignments with exactly the
// supplied set.
func (s *RoleService) SyncRoles(ctx context.Context, principal authz.Principal, refs []authz.RoleRef) error {
	ctx = ensureContext(ctx)

	if principal == nil || principal.PrincipalID() == "" {
		return ErrPrincipalRequired
	}

	roles, err := s.resolveRoles(ctx, principal, refs)
	if err != nil {
		return err
	}

	user := models.User{ID: principal.PrincipalID()}
	assoc := s.db.WithContext(ctx).Model(&user).Association("Roles")
	if len(roles) == 0 {
		if err := assoc.Clear(); err != nil {
			return fmt.Errorf("role service: sync roles: %w", err)
		}
	} else if err := assoc.Replace(toAny(roles)...); err != nil {
		return fmt.Errorf("role service: sync roles: %w", err)
	}

	return s.cache.Invalidate(ctx, "role_assignment", principal.PrincipalID())
}

// GivePermissions grants permissions to a role and invalidates every holder
// of that role. Unknown references abort the whole call.
func (s *RoleService) GivePermissions(ctx context.Context, actor authz.Principal, roleRef authz.RoleRef, permRefs []authz.PermissionRef) error {
	ctx = ensureContext(ctx)

	role, err := s.resolveRole(ctx, actor, roleRef)
	if err != nil {
		return err
	}

	perms, err := s.resolvePermissions(ctx, permRefs)
	if err != nil {
		return err
	}
	if len(perms) == 0 {
		return nil
	}

	if err := s.db.WithContext(ctx).Model(role).Association("Permissions").Append(toAny(perms)...); err != nil {
		return fmt.Errorf("role service: grant permissions: %w", err)
	}

	return s.invalidateHolders(ctx, role.ID)
}

// RevokePermissions removes permissions from a role.
func (s *RoleService) RevokePermissions(ctx context.Context, actor authz.Principal, roleRef authz.RoleRef, permRefs []authz.PermissionRef) error {
	ctx = ensureContext(ctx)

	role, err := s.resolveRole(ctx, actor, roleRef)
	if err != nil {
		return err
	}

	perms, err := s.resolvePermissions(ctx, permRefs)
	if err != nil {
		return err
	}
	if len(perms) == 0 {
		return nil
	}

	if err := s.db.WithContext(ctx).Model(role).Association("Permissions").Delete(toAny(perms)...); err != nil {
		return fmt.Errorf("role service: revoke permissions: %w", err)
	}

	return s.invalidateHolders(ctx, role.ID)
}

// SyncPermissions replaces a role's permission set with exactly the supplied
// references.
func (s *RoleService) SyncPermissions(ctx context.Context, actor authz.Principal, roleRef authz.RoleRef, permRefs []authz.PermissionRef) error {
	ctx = ensureContext(ctx)

	role, err := s.resolveRole(ctx, actor, roleRef)
	if err != nil {
		return err
	}

	perms, err := s.resolvePermissions(ctx, permRefs)
	if err != nil {
		return err
	}

	assoc := s.db.WithContext(ctx).Model(role).Association("Permissions")
	if len(perms) == 0 {
		if err := assoc.Clear(); err != nil {
			return fmt.Errorf("role service: sync permissions: %w", err)
		}
	} else if err := assoc.Replace(toAny(perms)...); err != nil {
		return fmt.Errorf("role service: sync permissions: %w", err)
	}

	return s.invalidateHolders(ctx, role.ID)
}

func (s *RoleService) guard() string {
	if s.cfg.Guard != "" {
		return s.cfg.Guard
	}
	return authz.DefaultGuard
}

func (s *RoleService) findByName(ctx context.Context, actor authz.Principal, name, guard string) (*models.Role, error) {
	if name == "" {
		return nil, nil
	}

	var role models.Role
	err := s.db.WithContext(ctx).
		Scopes(tenancy.Scope(s.cfg.Tenancy, actor)).
		Where("name = ? AND guard_name = ?", name, guard).
		First(&role).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("role service: find role by name: %w", err)
	}
	return &role, nil
}

// resolveRole resolves a reference with find-or-fail semantics for mutation
// paths: an unresolved reference is a hard failure.
func (s *RoleService) resolveRole(ctx context.Context, actor authz.Principal, ref authz.RoleRef) (*models.Role, error) {
	q := s.db.WithContext(ctx).Scopes(tenancy.Scope(s.cfg.Tenancy, actor))

	if ref.IsZero() {
		return nil, ErrRoleNotFound
	}

	var role models.Role
	var err error
	if id := ref.ID(); id != "" {
		err = q.First(&role, "id = ?", id).Error
	} else {
		err = q.Where("name = ? AND guard_name = ?", ref.Name(), s.guard()).First(&role).Error
	}
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRoleNotFound
		}
		return nil, fmt.Errorf("role service: resolve role: %w", err)
	}
	return &role, nil
}

func (s *RoleService) resolveRoles(ctx context.Context, actor authz.Principal, refs []authz.RoleRef) ([]*models.Role, error) {
	roles := make([]*models.Role, 0, len(refs))
	seen := make(map[string]struct{}, len(refs))
	for _, ref := range refs {
		role, err := s.resolveRole(ctx, actor, ref)
		if err != nil {
			return nil, err
		}
		if _, dup := seen[role.ID]; dup {
			continue
		}
		seen[role.ID] = struct{}{}
		roles = append(roles, role)
	}
	return roles, nil
}

func (s *RoleService) resolvePermissions(ctx context.Context, refs []authz.PermissionRef) ([]*models.Permission, error) {
	perms := make([]*models.Permission, 0, len(refs))
	seen := make(map[string]struct{}, len(refs))
	for _, ref := range refs {
		if ref.IsZero() {
			return nil, ErrPermissionNotFound
		}

		q := s.db.WithContext(ctx)

		var perm models.Permission
		var err error
		if id := ref.ID(); id != "" {
			err = q.First(&perm, "id = ?", id).Error
		} else {
			err = q.Where("name = ? AND guard_name = ?", ref.Name(), s.guard()).First(&perm).Error
		}
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, ErrPermissionNotFound
			}
			return nil, fmt.Errorf("role service: resolve permission: %w", err)
		}

		if _, dup := seen[perm.ID]; dup {
			continue
		}
		seen[perm.ID] = struct{}{}
		perms = append(perms, &perm)
	}
	return perms, nil
}

// roleHolderIDs returns the principal IDs currently holding the role.
func (s *RoleService) roleHolderIDs(ctx context.Context, roleID string) ([]string, error) {
	var ids []string
	err := s.db.WithContext(ctx).
		Table("user_roles").
		Where("role_id = ?", roleID).
		Pluck("user_id", &ids).Error
	if err != nil {
		return nil, fmt.Errorf("role service: load role holders: %w", err)
	}
	return ids, nil
}

func (s *RoleService) invalidateHolders(ctx context.Context, roleID string) error {
	holders, err := s.roleHolderIDs(ctx, roleID)
	if err != nil {
		return err
	}
	return s.cache.Invalidate(ctx, "role_permissions", holders...)
}

func toAny[T any](items []*T) []any {
	out := make([]any, 0, len(items))
	for _, item := range items {
		out = append(out, item)
	}
	return out
}
