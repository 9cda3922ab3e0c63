package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/wardenhq/warden/internal/authz"
	"github.com/wardenhq/warden/internal/models"
)

func TestModuleServiceCreateAndList(t *testing.T) {
	db := openServicesTestDB(t)
	svc, err := NewModuleService(db)
	require.NoError(t, err)

	ctx := context.Background()

	academic, err := svc.CreateModule(ctx, CreateModuleInput{
		Name:        "academic",
		DisplayName: "Academic",
		Order:       2,
	})
	require.NoError(t, err)
	require.NotEmpty(t, academic.ID)

	admin, err := svc.CreateModule(ctx, CreateModuleInput{Name: "administration", Order: 1})
	require.NoError(t, err)

	_, err = svc.CreateModule(ctx, CreateModuleInput{Name: "academic"})
	require.Error(t, err)

	_, err = svc.CreateSubModule(ctx, CreateSubModuleInput{
		ModuleID: academic.ID,
		Name:     "grades",
		Order:    2,
	})
	require.NoError(t, err)
	_, err = svc.CreateSubModule(ctx, CreateSubModuleInput{
		ModuleID: academic.ID,
		Name:     "attendance",
		Order:    1,
	})
	require.NoError(t, err)

	// Duplicate name within the same parent is rejected; the same name under
	// another module is fine.
	_, err = svc.CreateSubModule(ctx, CreateSubModuleInput{ModuleID: academic.ID, Name: "grades"})
	require.Error(t, err)
	_, err = svc.CreateSubModule(ctx, CreateSubModuleInput{ModuleID: admin.ID, Name: "grades"})
	require.NoError(t, err)

	_, err = svc.CreateSubModule(ctx, CreateSubModuleInput{ModuleID: "no-such-module", Name: "x"})
	require.ErrorIs(t, err, ErrModuleNotFound)

	list, err := svc.ListModules(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	require.Equal(t, "administration", list[0].Name)
	require.Equal(t, "academic", list[1].Name)
	require.Len(t, list[1].SubModules, 2)
	require.Equal(t, "attendance", list[1].SubModules[0].Name)
	require.Equal(t, "grades", list[1].SubModules[1].Name)

	found, err := svc.FindModuleByName(ctx, "academic")
	require.NoError(t, err)
	require.Equal(t, academic.ID, found.ID)

	missing, err := svc.FindModuleByName(ctx, "ghost")
	require.NoError(t, err)
	require.Nil(t, missing)
}

func TestModuleServiceUpdate(t *testing.T) {
	db := openServicesTestDB(t)
	svc, err := NewModuleService(db)
	require.NoError(t, err)

	ctx := context.Background()

	module, err := svc.CreateModule(ctx, CreateModuleInput{Name: "library"})
	require.NoError(t, err)

	order := 5
	updated, err := svc.UpdateModule(ctx, module.ID, UpdateModuleInput{
		DisplayName: "Library",
		Icon:        "book",
		Order:       &order,
	})
	require.NoError(t, err)
	require.Equal(t, "Library", updated.DisplayName)
	require.Equal(t, "book", updated.Icon)
	require.Equal(t, 5, updated.Order)

	_, err = svc.UpdateModule(ctx, "no-such-module", UpdateModuleInput{Name: "x"})
	require.ErrorIs(t, err, ErrModuleNotFound)
}

func TestModuleServiceDeleteCascades(t *testing.T) {
	db := openServicesTestDB(t)
	svc, err := NewModuleService(db)
	require.NoError(t, err)
	perms, err := NewPermissionService(db, authz.Config{}, nil)
	require.NoError(t, err)

	ctx := context.Background()

	module, err := svc.CreateModule(ctx, CreateModuleInput{Name: "finance"})
	require.NoError(t, err)
	sub, err := svc.CreateSubModule(ctx, CreateSubModuleInput{ModuleID: module.ID, Name: "payroll"})
	require.NoError(t, err)

	perm, err := perms.CreatePermission(ctx, CreatePermissionInput{
		Name:        "payroll.run",
		ModuleID:    module.ID,
		SubModuleID: sub.ID,
	})
	require.NoError(t, err)

	require.NoError(t, svc.DeleteModule(ctx, module.ID))

	// Sub-modules go with the module; permissions survive detached.
	var subCount int64
	require.NoError(t, db.Model(&models.SubModule{}).Where("module_id = ?", module.ID).Count(&subCount).Error)
	require.Equal(t, int64(0), subCount)

	survivor, err := perms.GetPermission(ctx, perm.ID)
	require.NoError(t, err)
	require.Nil(t, survivor.ModuleID)
	require.Nil(t, survivor.SubModuleID)

	err = svc.DeleteModule(ctx, module.ID)
	require.ErrorIs(t, err, ErrModuleNotFound)
}

func TestModuleServiceDeleteSubModuleKeepsModuleLinkage(t *testing.T) {
	db := openServicesTestDB(t)
	svc, err := NewModuleService(db)
	require.NoError(t, err)
	perms, err := NewPermissionService(db, authz.Config{}, nil)
	require.NoError(t, err)

	ctx := context.Background()

	module, err := svc.CreateModule(ctx, CreateModuleInput{Name: "hostel"})
	require.NoError(t, err)
	sub, err := svc.CreateSubModule(ctx, CreateSubModuleInput{ModuleID: module.ID, Name: "rooms"})
	require.NoError(t, err)

	perm, err := perms.CreatePermission(ctx, CreatePermissionInput{
		Name:        "rooms.allocate",
		ModuleID:    module.ID,
		SubModuleID: sub.ID,
	})
	require.NoError(t, err)

	require.NoError(t, svc.DeleteSubModule(ctx, sub.ID))

	survivor, err := perms.GetPermission(ctx, perm.ID)
	require.NoError(t, err)
	require.NotNil(t, survivor.ModuleID)
	require.Equal(t, module.ID, *survivor.ModuleID)
	require.Nil(t, survivor.SubModuleID)

	err = svc.DeleteSubModule(ctx, sub.ID)
	require.ErrorIs(t, err, ErrSubModuleNotFound)
}
