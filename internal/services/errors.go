package services

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"

	apperrors "github.com/wardenhq/warden/pkg/errors"
)

var (
	// ErrRoleNotFound indicates a referenced role does not exist within the caller's scope.
	ErrRoleNotFound = apperrors.New("ROLE_NOT_FOUND", "Role not found", http.StatusNotFound)
	// ErrPermissionNotFound indicates a referenced permission does not exist.
	ErrPermissionNotFound = apperrors.New("PERMISSION_NOT_FOUND", "Permission not found", http.StatusNotFound)
	// ErrModuleNotFound indicates a referenced module does not exist.
	ErrModuleNotFound = apperrors.New("MODULE_NOT_FOUND", "Module not found", http.StatusNotFound)
	// ErrSubModuleNotFound indicates a referenced sub-module does not exist.
	ErrSubModuleNotFound = apperrors.New("SUB_MODULE_NOT_FOUND", "Sub-module not found", http.StatusNotFound)
	// ErrSystemRoleImmutable prevents destructive operations on seeded system roles.
	ErrSystemRoleImmutable = apperrors.New("ROLE_IMMUTABLE", "System roles cannot be modified", http.StatusBadRequest)
	// ErrPrincipalRequired indicates a mutation was invoked without a target principal.
	ErrPrincipalRequired = apperrors.New("PRINCIPAL_REQUIRED", "A principal is required", http.StatusBadRequest)
)

// isUniqueConstraintError detects database uniqueness constraint violations across vendors.
func isUniqueConstraintError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr != nil && pgErr.Code == "23505" {
		return true
	}

	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) && myErr != nil && myErr.Number == 1062 {
		return true
	}

	lower := strings.ToLower(err.Error())
	return strings.Contains(lower, "unique") ||
		strings.Contains(lower, "duplicate") ||
		strings.Contains(lower, "constraint")
}

func ensureContext(ctx context.Context) context.Context {
	if ctx != nil {
		return ctx
	}
	return context.Background()
}
