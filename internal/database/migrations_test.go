package database

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/wardenhq/warden/internal/models"
)

func TestAutoMigrateAndSeed(t *testing.T) {
	db, err := Open(Config{Driver: "sqlite", Path: ":memory:"})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = sqlDB.Close()
	})

	require.NoError(t, AutoMigrateAndSeed(db))

	var module models.Module
	require.NoError(t, db.Preload("Permissions").First(&module, "name = ?", "warden").Error)
	require.Len(t, module.Permissions, len(seedCatalog))

	var role models.Role
	require.NoError(t, db.Preload("Permissions").First(&role, "name = ?", "super admin").Error)
	require.True(t, role.IsSystem)
	require.Len(t, role.Permissions, len(seedCatalog))

	// Seeding twice changes nothing.
	require.NoError(t, AutoMigrateAndSeed(db))

	var permCount, roleCount int64
	require.NoError(t, db.Model(&models.Permission{}).Count(&permCount).Error)
	require.Equal(t, int64(len(seedCatalog)), permCount)
	require.NoError(t, db.Model(&models.Role{}).Count(&roleCount).Error)
	require.Equal(t, int64(1), roleCount)

	var grantCount int64
	require.NoError(t, db.Table("role_permissions").Where("role_id = ?", role.ID).Count(&grantCount).Error)
	require.Equal(t, int64(len(seedCatalog)), grantCount)
}

func TestOpenRejectsUnknownDriver(t *testing.T) {
	_, err := Open(Config{Driver: "oracle"})
	require.Error(t, err)
}
