package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	iauth "github.com/wardenhq/warden/internal/auth"
	"github.com/wardenhq/warden/internal/authz"
	"github.com/wardenhq/warden/pkg/errors"
	"github.com/wardenhq/warden/pkg/response"
)

const (
	CtxClaimsKey    = "authClaims"
	CtxPrincipalKey = "principal"
)

// requestPrincipal is the per-request actor assembled from validated token
// claims. It carries exactly what authorization decisions need.
type requestPrincipal struct {
	id          string
	tenantID    *string
	subTenantID *string
}

func (p *requestPrincipal) PrincipalID() string { return p.id }
func (p *requestPrincipal) Tenant() *string     { return p.tenantID }
func (p *requestPrincipal) SubTenant() *string  { return p.subTenantID }

// Auth enforces JWT authentication using the supplied JWT service.
func Auth(jwt *iauth.JWTService) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if len(header) < 8 || !strings.EqualFold(header[:7], "Bearer ") {
			response.Error(c, errors.ErrUnauthorized)
			c.Abort()
			return
		}

		token := strings.TrimSpace(header[7:])
		claims, err := jwt.ValidateAccessToken(token)
		if err != nil {
			// Normalise all validation failures to 401
			c.Header("WWW-Authenticate", "Bearer")
			response.Error(c, errors.ErrUnauthorized)
			c.Abort()
			return
		}

		c.Set(CtxClaimsKey, claims)
		c.Set(CtxPrincipalKey, &requestPrincipal{
			id:          claims.UserID,
			tenantID:    claims.TenantID,
			subTenantID: claims.SubTenantID,
		})

		c.Next()
	}
}

// PrincipalFromContext returns the authenticated principal, or nil when the
// request never passed the Auth middleware.
func PrincipalFromContext(c *gin.Context) authz.Principal {
	v, ok := c.Get(CtxPrincipalKey)
	if !ok {
		return nil
	}
	p, ok := v.(authz.Principal)
	if !ok {
		return nil
	}
	return p
}
