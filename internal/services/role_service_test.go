package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/wardenhq/warden/internal/authz"
	"github.com/wardenhq/warden/internal/cache"
	"github.com/wardenhq/warden/internal/models"
	"github.com/wardenhq/warden/internal/tenancy"
)

func openServicesTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{})
	require.NoError(t, err)

	require.NoError(t, db.AutoMigrate(
		&models.User{},
		&models.Role{},
		&models.Permission{},
		&models.Module{},
		&models.SubModule{},
	))

	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = sqlDB.Close()
	})

	return db
}

func newServicesTestCache(t *testing.T) *authz.PermissionCache {
	t.Helper()

	pc, err := authz.NewPermissionCache(cache.NewMemoryStore(), authz.CacheConfig{Enabled: true})
	require.NoError(t, err)
	require.NotNil(t, pc)
	return pc
}

func createServicesTestUser(t *testing.T, db *gorm.DB, username string, tenantID *string) *models.User {
	t.Helper()

	user := &models.User{
		Username: username,
		Email:    username + "@example.com",
		TenantID: tenantID,
	}
	require.NoError(t, db.Create(user).Error)
	return user
}

func TestRoleServiceCreateAndFind(t *testing.T) {
	db := openServicesTestDB(t)
	svc, err := NewRoleService(db, authz.Config{}, nil)
	require.NoError(t, err)

	ctx := context.Background()

	role, err := svc.CreateRole(ctx, nil, CreateRoleInput{
		Name:        "editor",
		DisplayName: "Editor",
		Description: "Can edit content",
	})
	require.NoError(t, err)
	require.NotEmpty(t, role.ID)
	require.Equal(t, "api", role.GuardName)

	_, err = svc.CreateRole(ctx, nil, CreateRoleInput{Name: "editor"})
	require.Error(t, err)

	found, err := svc.FindRoleByName(ctx, nil, "editor")
	require.NoError(t, err)
	require.NotNil(t, found)
	require.Equal(t, role.ID, found.ID)

	missing, err := svc.FindRoleByName(ctx, nil, "ghost")
	require.NoError(t, err)
	require.Nil(t, missing)

	again, err := svc.FindOrCreateRole(ctx, nil, "editor")
	require.NoError(t, err)
	require.Equal(t, role.ID, again.ID)

	fresh, err := svc.FindOrCreateRole(ctx, nil, "viewer")
	require.NoError(t, err)
	require.NotEqual(t, role.ID, fresh.ID)
}

func TestRoleServiceTenantScoping(t *testing.T) {
	db := openServicesTestDB(t)
	cfg := authz.Config{Tenancy: tenancy.Config{Enabled: true}}
	svc, err := NewRoleService(db, cfg, nil)
	require.NoError(t, err)

	ctx := context.Background()
	tenantA := "11111111-1111-1111-1111-111111111111"
	tenantB := "22222222-2222-2222-2222-222222222222"
	alice := createServicesTestUser(t, db, "alice", &tenantA)
	bob := createServicesTestUser(t, db, "bob", &tenantB)

	roleA, err := svc.CreateRole(ctx, alice, CreateRoleInput{Name: "manager"})
	require.NoError(t, err)
	require.NotNil(t, roleA.TenantID)
	require.Equal(t, tenantA, *roleA.TenantID)

	// Same name in another tenant is an independent role.
	roleB, err := svc.CreateRole(ctx, bob, CreateRoleInput{Name: "manager"})
	require.NoError(t, err)
	require.NotEqual(t, roleA.ID, roleB.ID)

	fromA, err := svc.FindRoleByName(ctx, alice, "manager")
	require.NoError(t, err)
	require.Equal(t, roleA.ID, fromA.ID)

	_, err = svc.GetRole(ctx, bob, roleA.ID)
	require.ErrorIs(t, err, ErrRoleNotFound)

	listA, err := svc.ListRoles(ctx, alice)
	require.NoError(t, err)
	require.Len(t, listA, 1)

	all, err := svc.ListAllRoles(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
}

func TestRoleServiceUpdateAndSystemImmutability(t *testing.T) {
	db := openServicesTestDB(t)
	svc, err := NewRoleService(db, authz.Config{}, nil)
	require.NoError(t, err)

	ctx := context.Background()

	role, err := svc.CreateRole(ctx, nil, CreateRoleInput{Name: "support"})
	require.NoError(t, err)

	updated, err := svc.UpdateRole(ctx, nil, role.ID, UpdateRoleInput{
		Name:        "helpdesk",
		DisplayName: "Help Desk",
	})
	require.NoError(t, err)
	require.Equal(t, "helpdesk", updated.Name)
	require.Equal(t, "Help Desk", updated.DisplayName)

	system, err := svc.CreateRole(ctx, nil, CreateRoleInput{Name: "super admin", IsSystem: true})
	require.NoError(t, err)

	_, err = svc.UpdateRole(ctx, nil, system.ID, UpdateRoleInput{Name: "renamed"})
	require.ErrorIs(t, err, ErrSystemRoleImmutable)

	// Non-name fields of a system role remain editable.
	_, err = svc.UpdateRole(ctx, nil, system.ID, UpdateRoleInput{Description: "full access"})
	require.NoError(t, err)

	err = svc.DeleteRole(ctx, nil, system.ID)
	require.ErrorIs(t, err, ErrSystemRoleImmutable)
}

func TestRoleServiceAssignRemoveSync(t *testing.T) {
	db := openServicesTestDB(t)
	pc := newServicesTestCache(t)
	svc, err := NewRoleService(db, authz.Config{}, pc)
	require.NoError(t, err)

	ctx := context.Background()
	user := createServicesTestUser(t, db, "carol", nil)

	_, err = svc.CreateRole(ctx, nil, CreateRoleInput{Name: "editor"})
	require.NoError(t, err)
	viewer, err := svc.CreateRole(ctx, nil, CreateRoleInput{Name: "viewer"})
	require.NoError(t, err)

	// Seed a cached set so invalidation is observable.
	pc.Set(ctx, user.ID, []authz.Grant{{ID: "x", Name: "stale"}})

	err = svc.AssignRoles(ctx, user, authz.RoleNames("editor", "viewer"))
	require.NoError(t, err)

	_, hit := pc.Get(ctx, user.ID)
	require.False(t, hit, "assignment must invalidate the cached set")

	var count int64
	require.NoError(t, db.Table("user_roles").Where("user_id = ?", user.ID).Count(&count).Error)
	require.Equal(t, int64(2), count)

	// Unknown reference aborts the call with no partial change.
	err = svc.RemoveRoles(ctx, user, authz.RoleNames("viewer", "ghost"))
	require.ErrorIs(t, err, ErrRoleNotFound)
	require.NoError(t, db.Table("user_roles").Where("user_id = ?", user.ID).Count(&count).Error)
	require.Equal(t, int64(2), count)

	err = svc.RemoveRoles(ctx, user, []authz.RoleRef{authz.RoleByID(viewer.ID)})
	require.NoError(t, err)
	require.NoError(t, db.Table("user_roles").Where("user_id = ?", user.ID).Count(&count).Error)
	require.Equal(t, int64(1), count)

	err = svc.SyncRoles(ctx, user, []authz.RoleRef{authz.RoleValue(*viewer)})
	require.NoError(t, err)
	var held []models.Role
	require.NoError(t, db.Model(user).Association("Roles").Find(&held))
	require.Len(t, held, 1)
	require.Equal(t, viewer.ID, held[0].ID)

	err = svc.SyncRoles(ctx, user, nil)
	require.NoError(t, err)
	require.NoError(t, db.Table("user_roles").Where("user_id = ?", user.ID).Count(&count).Error)
	require.Equal(t, int64(0), count)

	err = svc.AssignRoles(ctx, nil, authz.RoleNames("editor"))
	require.ErrorIs(t, err, ErrPrincipalRequired)
}

func TestRoleServicePermissionGrantsInvalidateHolders(t *testing.T) {
	db := openServicesTestDB(t)
	pc := newServicesTestCache(t)
	svc, err := NewRoleService(db, authz.Config{}, pc)
	require.NoError(t, err)

	ctx := context.Background()
	user := createServicesTestUser(t, db, "dave", nil)

	role, err := svc.CreateRole(ctx, nil, CreateRoleInput{Name: "editor"})
	require.NoError(t, err)
	require.NoError(t, svc.AssignRoles(ctx, user, []authz.RoleRef{authz.RoleByID(role.ID)}))

	perm := &models.Permission{Name: "posts.edit", GuardName: "api"}
	require.NoError(t, db.Create(perm).Error)

	pc.Set(ctx, user.ID, []authz.Grant{})

	err = svc.GivePermissions(ctx, nil, authz.RoleByID(role.ID), authz.PermissionNames("posts.edit"))
	require.NoError(t, err)

	_, hit := pc.Get(ctx, user.ID)
	require.False(t, hit, "granting to a held role must invalidate the holder")

	var count int64
	require.NoError(t, db.Table("role_permissions").Where("role_id = ?", role.ID).Count(&count).Error)
	require.Equal(t, int64(1), count)

	// Unknown permission aborts with no partial grant.
	err = svc.GivePermissions(ctx, nil, authz.RoleByID(role.ID), authz.PermissionNames("ghost.perm"))
	require.ErrorIs(t, err, ErrPermissionNotFound)

	err = svc.SyncPermissions(ctx, nil, authz.RoleByID(role.ID), nil)
	require.NoError(t, err)
	require.NoError(t, db.Table("role_permissions").Where("role_id = ?", role.ID).Count(&count).Error)
	require.Equal(t, int64(0), count)

	err = svc.RevokePermissions(ctx, nil, authz.RoleByName("ghost"), authz.PermissionNames("posts.edit"))
	require.ErrorIs(t, err, ErrRoleNotFound)
}

func TestRoleServiceDeleteClearsAssociations(t *testing.T) {
	db := openServicesTestDB(t)
	pc := newServicesTestCache(t)
	svc, err := NewRoleService(db, authz.Config{}, pc)
	require.NoError(t, err)

	ctx := context.Background()
	user := createServicesTestUser(t, db, "erin", nil)

	role, err := svc.CreateRole(ctx, nil, CreateRoleInput{Name: "temp"})
	require.NoError(t, err)
	require.NoError(t, svc.AssignRoles(ctx, user, []authz.RoleRef{authz.RoleByID(role.ID)}))

	perm := &models.Permission{Name: "temp.use", GuardName: "api"}
	require.NoError(t, db.Create(perm).Error)
	require.NoError(t, svc.GivePermissions(ctx, nil, authz.RoleByID(role.ID), authz.PermissionNames("temp.use")))

	pc.Set(ctx, user.ID, []authz.Grant{{ID: perm.ID, Name: perm.Name}})

	require.NoError(t, svc.DeleteRole(ctx, nil, role.ID))

	_, hit := pc.Get(ctx, user.ID)
	require.False(t, hit, "deleting a held role must invalidate former holders")

	var count int64
	require.NoError(t, db.Table("user_roles").Where("role_id = ?", role.ID).Count(&count).Error)
	require.Equal(t, int64(0), count)
	require.NoError(t, db.Table("role_permissions").Where("role_id = ?", role.ID).Count(&count).Error)
	require.Equal(t, int64(0), count)
}
