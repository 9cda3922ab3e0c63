package app

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadConfigFromFile(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join("testdata"))
	require.NoError(t, err)

	require.Equal(t, 9400, cfg.Server.Port)
	require.Equal(t, "debug", cfg.Server.LogLevel)

	require.Equal(t, "postgres", cfg.Database.Driver)
	require.True(t, cfg.Database.Postgres.Enabled)
	require.Equal(t, "db.example.com", cfg.Database.Postgres.Host)
	require.Equal(t, 5433, cfg.Database.Postgres.Port)

	require.True(t, cfg.Cache.Enabled)
	require.Equal(t, 30*time.Minute, cfg.Cache.TTL)
	require.Equal(t, "authz", cfg.Cache.KeyPrefix)
	require.Equal(t, "flush", cfg.Cache.Strategy)
	require.True(t, cfg.Cache.Redis.Enabled)
	require.Equal(t, "cache.example.com:6380", cfg.Cache.Redis.Address)
	require.Equal(t, 2, cfg.Cache.Redis.DB)
	require.Equal(t, 2*time.Second, cfg.Cache.Redis.Timeout)

	require.True(t, cfg.Tenancy.Enabled)
	require.True(t, cfg.Tenancy.SubTenantEnabled)

	require.False(t, cfg.Authz.WildcardsEnabled)
	require.False(t, cfg.Authz.ModulesEnabled)
	require.Equal(t, "root", cfg.Authz.SuperAdmin.RoleName)

	require.Equal(t, "jwt-secret", cfg.Auth.JWT.Secret)
	require.Equal(t, "warden", cfg.Auth.JWT.Issuer)
	require.Equal(t, 30*time.Minute, cfg.Auth.JWT.TTL)

	require.False(t, cfg.Monitoring.Prometheus.Enabled)
	require.True(t, cfg.Monitoring.Health.Enabled)
}

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig(t.TempDir())
	require.NoError(t, err)

	require.Equal(t, 8400, cfg.Server.Port)
	require.Equal(t, "info", cfg.Server.LogLevel)
	require.Equal(t, "sqlite", cfg.Database.Driver)

	require.True(t, cfg.Cache.Enabled)
	require.Equal(t, time.Hour, cfg.Cache.TTL)
	require.Equal(t, "warden", cfg.Cache.KeyPrefix)
	require.Equal(t, "precise", cfg.Cache.Strategy)
	require.False(t, cfg.Cache.Redis.Enabled)

	require.False(t, cfg.Tenancy.Enabled)
	require.Equal(t, "tenant_id", cfg.Tenancy.TenantColumn)

	require.Equal(t, "api", cfg.Authz.Guard)
	require.True(t, cfg.Authz.WildcardsEnabled)
	require.Equal(t, ".*", cfg.Authz.WildcardSuffix)
	require.True(t, cfg.Authz.ModulesEnabled)
	require.True(t, cfg.Authz.SuperAdmin.Enabled)
	require.Equal(t, "super admin", cfg.Authz.SuperAdmin.RoleName)

	require.Equal(t, 15*time.Minute, cfg.Auth.JWT.TTL)
}

func TestConfigConversions(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join("testdata"))
	require.NoError(t, err)

	tenancyCfg := cfg.TenancyConfig()
	require.True(t, tenancyCfg.Enabled)
	require.True(t, tenancyCfg.SubTenantEnabled)

	authzCfg := cfg.AuthzConfig()
	require.Equal(t, "api", authzCfg.Guard)
	require.False(t, authzCfg.WildcardsEnabled)
	require.Equal(t, "root", authzCfg.SuperAdmin.RoleName)
	require.True(t, authzCfg.Tenancy.Enabled)

	cacheCfg := cfg.PermissionCacheConfig()
	require.True(t, cacheCfg.Enabled)
	require.Equal(t, 30*time.Minute, cacheCfg.TTL)
	require.Equal(t, "flush", cacheCfg.Strategy)

	redisCfg := cfg.RedisConfig()
	require.Equal(t, "cache.example.com:6380", redisCfg.Address)

	jwtCfg := cfg.JWTConfig()
	require.Equal(t, "jwt-secret", jwtCfg.Secret)
	require.Equal(t, 30*time.Minute, jwtCfg.AccessTokenTTL)
}
