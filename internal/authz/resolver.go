package authz

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"gorm.io/gorm"

	"github.com/wardenhq/warden/internal/models"
	"github.com/wardenhq/warden/internal/tenancy"
)

// DefaultGuard is the guard stamped on roles and permissions when the
// configuration does not name one.
const DefaultGuard = "api"

// DefaultSuperAdminRole is the role name that grants unconditional access
// when no custom callback or gate is configured.
const DefaultSuperAdminRole = "super admin"

// Gate is an external authorization hook consulted for the super-admin
// classification when configured.
type Gate interface {
	Allows(ctx context.Context, p Principal) (bool, error)
}

// SuperAdminConfig controls the unconditional-bypass classification.
// Evaluation order: custom callback, then gate, then role membership.
type SuperAdminConfig struct {
	Enabled  bool
	RoleName string
	Check    func(ctx context.Context, p Principal) (bool, error)
	Gate     Gate
}

// Config bundles the decision-engine settings.
type Config struct {
	Guard            string
	WildcardsEnabled bool
	WildcardSuffix   string
	ModulesEnabled   bool
	SuperAdmin       SuperAdminConfig
	Tenancy          tenancy.Config
}

func (c Config) guard() string {
	if c.Guard != "" {
		return c.Guard
	}
	return DefaultGuard
}

func (c Config) wildcardSuffix() string {
	if c.WildcardSuffix != "" {
		return c.WildcardSuffix
	}
	return DefaultWildcardSuffix
}

func (c Config) superAdminRole() string {
	if c.SuperAdmin.RoleName != "" {
		return c.SuperAdmin.RoleName
	}
	return DefaultSuperAdminRole
}

// Resolver answers authorization questions for principals. Reads are pure
// functions of stored data plus cache state; all role lookups pass through
// the tenant scope.
type Resolver struct {
	db    *gorm.DB
	cfg   Config
	cache *PermissionCache
}

// NewResolver constructs the decision engine. The cache may be nil, in which
// case every check recomputes the effective set directly.
func NewResolver(db *gorm.DB, cfg Config, cache *PermissionCache) (*Resolver, error) {
	if db == nil {
		return nil, errors.New("authz: db is required")
	}
	return &Resolver{db: db, cfg: cfg, cache: cache}, nil
}

// IsSuperAdmin classifies the principal for unconditional bypass. First
// applicable source wins: configured callback, configured gate, then
// membership of the configured super-admin role.
func (r *Resolver) IsSuperAdmin(ctx context.Context, p Principal) (bool, error) {
	if !r.cfg.SuperAdmin.Enabled {
		return false, nil
	}
	if ok, err := checkPrincipal(p); !ok {
		return false, err
	}

	if r.cfg.SuperAdmin.Check != nil {
		return r.cfg.SuperAdmin.Check(ctx, p)
	}
	if r.cfg.SuperAdmin.Gate != nil {
		return r.cfg.SuperAdmin.Gate.Allows(ctx, p)
	}

	roles, err := r.principalRoles(ctx, p, false)
	if err != nil {
		return false, err
	}
	for _, role := range roles {
		if role.Name == r.cfg.superAdminRole() {
			return true, nil
		}
	}
	return false, nil
}

// EffectivePermissions computes the de-duplicated union of permissions
// reachable through the principal's roles, serving from cache when possible.
func (r *Resolver) EffectivePermissions(ctx context.Context, p Principal) ([]Grant, error) {
	if ok, err := checkPrincipal(p); !ok {
		return nil, err
	}

	if grants, hit := r.cache.Get(ctx, p.PrincipalID()); hit {
		return grants, nil
	}

	grants, err := r.computeEffective(ctx, p)
	if err != nil {
		return nil, err
	}

	r.cache.Set(ctx, p.PrincipalID(), grants)
	return grants, nil
}

// RefreshPermissions discards any cached set for the principal and eagerly
// recomputes it.
func (r *Resolver) RefreshPermissions(ctx context.Context, p Principal) error {
	if ok, err := checkPrincipal(p); !ok {
		if err != nil {
			return err
		}
		return nil
	}

	if err := r.cache.Invalidate(ctx, "refresh", p.PrincipalID()); err != nil {
		return fmt.Errorf("authz: invalidate permissions: %w", err)
	}
	_, err := r.EffectivePermissions(ctx, p)
	return err
}

// HasPermission reports whether the principal may exercise the referenced
// capability. Super admins pass unconditionally; otherwise the name is
// matched against the effective set, exactly and (when enabled) through
// wildcard expansion.
func (r *Resolver) HasPermission(ctx context.Context, p Principal, ref PermissionRef) (bool, error) {
	if ok, err := checkPrincipal(p); !ok {
		return false, err
	}

	if admin, err := r.IsSuperAdmin(ctx, p); err != nil {
		return false, err
	} else if admin {
		return true, nil
	}

	name, found, err := r.permissionName(ctx, ref)
	if err != nil {
		return false, err
	}
	if !found {
		return false, nil
	}

	grants, err := r.EffectivePermissions(ctx, p)
	if err != nil {
		return false, err
	}

	names := make(map[string]struct{}, len(grants))
	for _, grant := range grants {
		names[grant.Name] = struct{}{}
	}

	if r.cfg.WildcardsEnabled && strings.Contains(name, ".") {
		if matchWildcard(names, name, r.cfg.wildcardSuffix()) {
			return true, nil
		}
	}

	_, ok := names[name]
	return ok, nil
}

// HasAnyPermission reports whether at least one of the referenced
// permissions is held. An empty list is false by convention.
func (r *Resolver) HasAnyPermission(ctx context.Context, p Principal, refs []PermissionRef) (bool, error) {
	for _, ref := range refs {
		ok, err := r.HasPermission(ctx, p, ref)
		if err != nil {
			return false, err
		}
		if ok {
			return true, nil
		}
	}
	return false, nil
}

// HasAllPermissions reports whether every referenced permission is held.
// An empty list is true by convention.
func (r *Resolver) HasAllPermissions(ctx context.Context, p Principal, refs []PermissionRef) (bool, error) {
	for _, ref := range refs {
		ok, err := r.HasPermission(ctx, p, ref)
		if err != nil {
			return false, err
		}
		if !ok {
			return false, nil
		}
	}
	return true, nil
}

// HasRole reports whether the principal holds the referenced role. Role
// membership is literal: no wildcard expansion and no super-admin bypass.
func (r *Resolver) HasRole(ctx context.Context, p Principal, ref RoleRef) (bool, error) {
	if ok, err := checkPrincipal(p); !ok {
		return false, err
	}

	role, err := r.findHeldRole(ctx, p, ref)
	if err != nil {
		return false, err
	}
	return role != nil, nil
}

// HasAnyRole reports whether at least one referenced role is held.
func (r *Resolver) HasAnyRole(ctx context.Context, p Principal, refs []RoleRef) (bool, error) {
	for _, ref := range refs {
		ok, err := r.HasRole(ctx, p, ref)
		if err != nil {
			return false, err
		}
		if ok {
			return true, nil
		}
	}
	return false, nil
}

// HasAllRoles reports whether every referenced role is held.
func (r *Resolver) HasAllRoles(ctx context.Context, p Principal, refs []RoleRef) (bool, error) {
	for _, ref := range refs {
		ok, err := r.HasRole(ctx, p, ref)
		if err != nil {
			return false, err
		}
		if !ok {
			return false, nil
		}
	}
	return true, nil
}

// HasPermissionViaRole reports whether the principal holds the referenced
// role and that specific role grants the referenced permission. The match is
// exact by name even when wildcards are enabled elsewhere.
func (r *Resolver) HasPermissionViaRole(ctx context.Context, p Principal, perm PermissionRef, role RoleRef) (bool, error) {
	if ok, err := checkPrincipal(p); !ok {
		return false, err
	}

	held, err := r.findHeldRole(ctx, p, role)
	if err != nil {
		return false, err
	}
	if held == nil {
		return false, nil
	}

	target, err := r.findPermission(ctx, perm)
	if err != nil {
		return false, err
	}
	if target == nil {
		return false, nil
	}

	var count int64
	err = r.db.WithContext(ctx).
		Table("role_permissions").
		Where("role_id = ? AND permission_id = ?", held.ID, target.ID).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("authz: check role permission: %w", err)
	}
	return count > 0, nil
}

// HasModuleAccess reports whether the principal holds at least one
// permission transitively under the referenced module. With the module
// system disabled every caller passes; super admins always pass.
func (r *Resolver) HasModuleAccess(ctx context.Context, p Principal, ref ModuleRef) (bool, error) {
	if !r.cfg.ModulesEnabled {
		return true, nil
	}
	if ok, err := checkPrincipal(p); !ok {
		return false, err
	}

	if admin, err := r.IsSuperAdmin(ctx, p); err != nil {
		return false, err
	} else if admin {
		return true, nil
	}

	module, err := r.findModule(ctx, ref)
	if err != nil {
		return false, err
	}
	if module == nil {
		return false, nil
	}

	grants, err := r.EffectivePermissions(ctx, p)
	if err != nil {
		return false, err
	}
	held := make(map[string]struct{}, len(grants))
	for _, grant := range grants {
		held[grant.ID] = struct{}{}
	}

	for _, perm := range module.Permissions {
		if _, ok := held[perm.ID]; ok {
			return true, nil
		}
	}
	for _, sub := range module.SubModules {
		for _, perm := range sub.Permissions {
			if _, ok := held[perm.ID]; ok {
				return true, nil
			}
		}
	}
	return false, nil
}

// computeEffective recomputes the full permission union from the store.
// There is no incremental path; invalidation is all-or-nothing per principal.
func (r *Resolver) computeEffective(ctx context.Context, p Principal) ([]Grant, error) {
	roles, err := r.principalRoles(ctx, p, true)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]struct{})
	grants := make([]Grant, 0)
	for _, role := range roles {
		for _, perm := range role.Permissions {
			if _, dup := seen[perm.ID]; dup {
				continue
			}
			seen[perm.ID] = struct{}{}
			grants = append(grants, Grant{ID: perm.ID, Name: perm.Name})
		}
	}

	sort.Slice(grants, func(i, j int) bool { return grants[i].Name < grants[j].Name })
	return grants, nil
}

// principalRoles loads the principal's assigned roles through the tenant
// scope, filtered to the configured guard.
func (r *Resolver) principalRoles(ctx context.Context, p Principal, withPermissions bool) ([]models.Role, error) {
	q := r.db.WithContext(ctx).
		Model(&models.Role{}).
		Scopes(tenancy.Scope(r.cfg.Tenancy, p)).
		Joins("JOIN user_roles ON user_roles.role_id = roles.id").
		Where("user_roles.user_id = ?", p.PrincipalID()).
		Where("roles.guard_name = ?", r.cfg.guard())
	if withPermissions {
		q = q.Preload("Permissions")
	}

	var roles []models.Role
	if err := q.Find(&roles).Error; err != nil {
		return nil, fmt.Errorf("authz: load principal roles: %w", err)
	}
	return roles, nil
}

// findHeldRole resolves a role reference against the principal's own role
// collection. Returns nil when the principal does not hold it.
func (r *Resolver) findHeldRole(ctx context.Context, p Principal, ref RoleRef) (*models.Role, error) {
	if ref.IsZero() {
		return nil, nil
	}

	roles, err := r.principalRoles(ctx, p, false)
	if err != nil {
		return nil, err
	}

	for i := range roles {
		role := &roles[i]
		switch {
		case ref.role != nil:
			if role.ID == ref.role.ID {
				return role, nil
			}
		case ref.id != "":
			if role.ID == ref.id {
				return role, nil
			}
		default:
			if role.Name == ref.name {
				return role, nil
			}
		}
	}
	return nil, nil
}

// permissionName resolves a permission reference to its canonical name.
// Unknown identifiers are reported as absent, not as errors: denial is the
// correct outcome for checking a permission that does not exist.
func (r *Resolver) permissionName(ctx context.Context, ref PermissionRef) (string, bool, error) {
	switch {
	case ref.permission != nil:
		return ref.permission.Name, true, nil
	case ref.name != "":
		return ref.name, true, nil
	case ref.id != "":
		perm, err := r.findPermission(ctx, ref)
		if err != nil {
			return "", false, err
		}
		if perm == nil {
			return "", false, nil
		}
		return perm.Name, true, nil
	default:
		return "", false, nil
	}
}

// findPermission loads the referenced permission row, nil when absent.
// Permissions are global entities; no tenant scope applies.
func (r *Resolver) findPermission(ctx context.Context, ref PermissionRef) (*models.Permission, error) {
	if ref.permission != nil {
		return ref.permission, nil
	}

	q := r.db.WithContext(ctx)
	switch {
	case ref.id != "":
		q = q.Where("id = ?", ref.id)
	case ref.name != "":
		q = q.Where("name = ? AND guard_name = ?", ref.name, r.cfg.guard())
	default:
		return nil, nil
	}

	var perm models.Permission
	if err := q.First(&perm).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("authz: load permission: %w", err)
	}
	return &perm, nil
}

// findModule loads the referenced module with its transitive permissions,
// nil when absent.
func (r *Resolver) findModule(ctx context.Context, ref ModuleRef) (*models.Module, error) {
	q := r.db.WithContext(ctx).
		Preload("Permissions").
		Preload("SubModules.Permissions")
	switch {
	case ref.id != "":
		q = q.Where("id = ?", ref.id)
	case ref.name != "":
		q = q.Where("name = ?", ref.name)
	default:
		return nil, nil
	}

	var module models.Module
	if err := q.First(&module).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("authz: load module: %w", err)
	}
	return &module, nil
}
