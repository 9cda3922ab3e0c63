package app

import (
	"errors"
	"fmt"
	"strings"
	"time"

	mapstructure "github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"

	"github.com/wardenhq/warden/internal/auth"
	"github.com/wardenhq/warden/internal/authz"
	"github.com/wardenhq/warden/internal/cache"
	"github.com/wardenhq/warden/internal/tenancy"
)

// Config represents the runtime configuration for the Warden service.
type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Cache      CacheConfig      `mapstructure:"cache"`
	Tenancy    TenancyConfig    `mapstructure:"tenancy"`
	Authz      AuthzConfig      `mapstructure:"authz"`
	Auth       AuthConfig       `mapstructure:"auth"`
	Monitoring MonitoringConfig `mapstructure:"monitoring"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Port     int    `mapstructure:"port"`
	LogLevel string `mapstructure:"log_level"`
}

// DatabaseConfig describes connection options for the supported databases.
type DatabaseConfig struct {
	Driver   string       `mapstructure:"driver"`
	Path     string       `mapstructure:"path"`
	DSN      string       `mapstructure:"dsn"`
	Postgres DBAuthConfig `mapstructure:"postgres"`
	MySQL    DBAuthConfig `mapstructure:"mysql"`
}

// DBAuthConfig represents host based database parameters.
type DBAuthConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Database string `mapstructure:"database"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
}

// CacheConfig describes the effective-permission-set cache and its backend.
type CacheConfig struct {
	Enabled   bool             `mapstructure:"enabled"`
	TTL       time.Duration    `mapstructure:"ttl"`
	KeyPrefix string           `mapstructure:"key_prefix"`
	Strategy  string           `mapstructure:"strategy"`
	Redis     RedisCacheConfig `mapstructure:"redis"`
}

// RedisCacheConfig holds Redis connection options.
type RedisCacheConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Address  string        `mapstructure:"address"`
	Username string        `mapstructure:"username"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	TLS      bool          `mapstructure:"tls"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

// TenancyConfig controls the multi-tenant isolation layer.
type TenancyConfig struct {
	Enabled          bool   `mapstructure:"enabled"`
	SubTenantEnabled bool   `mapstructure:"sub_tenant_enabled"`
	TenantColumn     string `mapstructure:"tenant_column"`
	SubTenantColumn  string `mapstructure:"sub_tenant_column"`
}

// AuthzConfig controls the decision engine.
type AuthzConfig struct {
	Guard            string           `mapstructure:"guard"`
	WildcardsEnabled bool             `mapstructure:"wildcards_enabled"`
	WildcardSuffix   string           `mapstructure:"wildcard_suffix"`
	ModulesEnabled   bool             `mapstructure:"modules_enabled"`
	SuperAdmin       SuperAdminConfig `mapstructure:"super_admin"`
}

// SuperAdminConfig controls the unconditional-bypass role.
type SuperAdminConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	RoleName string `mapstructure:"role_name"`
}

// AuthConfig captures token validation settings.
type AuthConfig struct {
	JWT JWTSettings `mapstructure:"jwt"`
}

// JWTSettings configures JWT access tokens.
type JWTSettings struct {
	Secret string        `mapstructure:"secret"`
	Issuer string        `mapstructure:"issuer"`
	TTL    time.Duration `mapstructure:"access_token_ttl"`
}

// MonitoringConfig enables health checks and metrics.
type MonitoringConfig struct {
	Prometheus PrometheusConfig `mapstructure:"prometheus"`
	Health     HealthConfig     `mapstructure:"health_check"`
}

// PrometheusConfig toggles metrics endpoints.
type PrometheusConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Endpoint string `mapstructure:"endpoint"`
}

// HealthConfig toggles health endpoints.
type HealthConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

// LoadConfig initialises application configuration using Viper with sensible defaults.
func LoadConfig(paths ...string) (*Config, error) {
	v := viper.NewWithOptions(viper.ExperimentalBindStruct())
	v.SetConfigName("config")
	v.SetConfigType("yaml")

	v.AddConfigPath("./config")
	for _, path := range paths {
		v.AddConfigPath(path)
	}

	setDefaults(v)

	v.SetEnvPrefix("WARDEN")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var cfgErr viper.ConfigFileNotFoundError
		if !errors.As(err, &cfgErr) {
			return nil, fmt.Errorf("config: read file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config, decodeHook()); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}

	return &config, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8400)
	v.SetDefault("server.log_level", "info")

	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.path", "./data/warden.sqlite")

	v.SetDefault("cache.enabled", true)
	v.SetDefault("cache.ttl", "1h")
	v.SetDefault("cache.key_prefix", "warden")
	v.SetDefault("cache.strategy", "precise")
	v.SetDefault("cache.redis.enabled", false)
	v.SetDefault("cache.redis.address", "127.0.0.1:6379")
	v.SetDefault("cache.redis.username", "")
	v.SetDefault("cache.redis.password", "")
	v.SetDefault("cache.redis.db", 0)
	v.SetDefault("cache.redis.tls", false)
	v.SetDefault("cache.redis.timeout", "5s")

	v.SetDefault("tenancy.enabled", false)
	v.SetDefault("tenancy.sub_tenant_enabled", false)
	v.SetDefault("tenancy.tenant_column", "tenant_id")
	v.SetDefault("tenancy.sub_tenant_column", "sub_tenant_id")

	v.SetDefault("authz.guard", "api")
	v.SetDefault("authz.wildcards_enabled", true)
	v.SetDefault("authz.wildcard_suffix", ".*")
	v.SetDefault("authz.modules_enabled", true)
	v.SetDefault("authz.super_admin.enabled", true)
	v.SetDefault("authz.super_admin.role_name", "super admin")

	v.SetDefault("auth.jwt.access_token_ttl", "15m")

	v.SetDefault("monitoring.prometheus.enabled", true)
	v.SetDefault("monitoring.prometheus.endpoint", "/metrics")
	v.SetDefault("monitoring.health_check.enabled", true)
}

func decodeHook() viper.DecoderConfigOption {
	return func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "mapstructure"
		dc.DecodeHook = mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		)
	}
}

// TenancyConfig converts the file shape into the engine's tenancy settings.
func (c *Config) TenancyConfig() tenancy.Config {
	return tenancy.Config{
		Enabled:          c.Tenancy.Enabled,
		SubTenantEnabled: c.Tenancy.SubTenantEnabled,
		TenantColumn:     c.Tenancy.TenantColumn,
		SubTenantColumn:  c.Tenancy.SubTenantColumn,
	}
}

// AuthzConfig converts the file shape into the decision-engine settings.
func (c *Config) AuthzConfig() authz.Config {
	return authz.Config{
		Guard:            c.Authz.Guard,
		WildcardsEnabled: c.Authz.WildcardsEnabled,
		WildcardSuffix:   c.Authz.WildcardSuffix,
		ModulesEnabled:   c.Authz.ModulesEnabled,
		SuperAdmin: authz.SuperAdminConfig{
			Enabled:  c.Authz.SuperAdmin.Enabled,
			RoleName: c.Authz.SuperAdmin.RoleName,
		},
		Tenancy: c.TenancyConfig(),
	}
}

// PermissionCacheConfig converts the file shape into the cache settings.
func (c *Config) PermissionCacheConfig() authz.CacheConfig {
	return authz.CacheConfig{
		Enabled:   c.Cache.Enabled,
		TTL:       c.Cache.TTL,
		KeyPrefix: c.Cache.KeyPrefix,
		Strategy:  c.Cache.Strategy,
	}
}

// RedisConfig converts the file shape into the Redis store settings.
func (c *Config) RedisConfig() cache.RedisConfig {
	return cache.RedisConfig{
		Address:  c.Cache.Redis.Address,
		Username: c.Cache.Redis.Username,
		Password: c.Cache.Redis.Password,
		DB:       c.Cache.Redis.DB,
		TLS:      c.Cache.Redis.TLS,
		Timeout:  c.Cache.Redis.Timeout,
	}
}

// JWTConfig converts the file shape into the token service settings.
func (c *Config) JWTConfig() auth.JWTConfig {
	return auth.JWTConfig{
		Secret:         c.Auth.JWT.Secret,
		Issuer:         c.Auth.JWT.Issuer,
		AccessTokenTTL: c.Auth.JWT.TTL,
	}
}
