package tenancy

import (
	"fmt"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/wardenhq/warden/internal/models"
	"github.com/wardenhq/warden/pkg/logger"
)

// Principal is the contract every authenticated actor must satisfy. Tenant
// accessors return nil when the actor carries no tenant identity; with
// multi-tenancy disabled the values are ignored entirely.
type Principal interface {
	PrincipalID() string
	Tenant() *string
	SubTenant() *string
}

// Config controls tenant predicate injection on role queries.
type Config struct {
	Enabled          bool
	SubTenantEnabled bool
	TenantColumn     string
	SubTenantColumn  string
}

const (
	defaultTenantColumn    = "tenant_id"
	defaultSubTenantColumn = "sub_tenant_id"
)

func (c Config) tenantColumn() string {
	if c.TenantColumn != "" {
		return c.TenantColumn
	}
	return defaultTenantColumn
}

func (c Config) subTenantColumn() string {
	if c.SubTenantColumn != "" {
		return c.SubTenantColumn
	}
	return defaultSubTenantColumn
}

// Scope returns a gorm scope restricting role queries to the principal's
// tenant. With multi-tenancy disabled, or no authenticated principal, the
// scope is a no-op. A tenancy-enabled principal that reports no tenant is a
// configuration fault: the scope fails closed with an impossible predicate
// rather than silently widening the query to every tenant.
func Scope(cfg Config, p Principal) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		if !cfg.Enabled || p == nil {
			return db
		}

		tenant := p.Tenant()
		if tenant == nil {
			logger.WithModule("tenancy").Error("principal has no tenant; failing closed",
				zap.String("principal_id", p.PrincipalID()),
			)
			return db.Where("1 = 0")
		}
		db = db.Where(fmt.Sprintf("%s = ?", cfg.tenantColumn()), *tenant)

		if cfg.SubTenantEnabled {
			if sub := p.SubTenant(); sub != nil {
				db = db.Where(fmt.Sprintf("%s = ?", cfg.subTenantColumn()), *sub)
			} else {
				db = db.Where(fmt.Sprintf("%s IS NULL", cfg.subTenantColumn()))
			}
		}

		return db
	}
}

// Bypass is the deliberate cross-tenant escape hatch for administrative
// tooling (global reporting, seed scripts). It exists so call sites read as
// an explicit decision instead of a forgotten scope.
func Bypass() func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db
	}
}

// Stamp copies the acting principal's tenant identity onto a role being
// created, so a role created inside the wrong tenant context is structurally
// impossible while a principal is authenticated. Existing values are never
// overwritten; re-scoping a role is not supported.
func Stamp(cfg Config, p Principal, role *models.Role) {
	if !cfg.Enabled || p == nil || role == nil {
		return
	}

	if role.TenantID == nil {
		role.TenantID = p.Tenant()
	}
	if cfg.SubTenantEnabled && role.SubTenantID == nil {
		role.SubTenantID = p.SubTenant()
	}
}
