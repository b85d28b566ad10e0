// Package middleware holds the gin middleware chain: authentication,
// request logging, CORS, and metrics.
package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"github.com/opsdesk/filetrack/internal/config"
	"github.com/opsdesk/filetrack/pkg/errors"
	"github.com/opsdesk/filetrack/pkg/types/common"
)

// Role names used in token claims.
const (
	RoleOperator       = "operator"
	RoleSectionOfficer = "section_officer"
	RoleCollector      = "collector"
	RoleAdmin          = "admin"
)

const (
	ctxKeyUserID = "auth.user_id"
	ctxKeyRoles  = "auth.roles"
)

// Claims is the token payload filetrack issues and verifies.
type Claims struct {
	jwt.RegisteredClaims
	Roles []string `json:"roles"`
}

// Auth verifies the bearer token and stores the caller's identity on the
// request context.
func Auth(cfg config.AuthConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			abortUnauthorized(c, "missing bearer token")
			return
		}
		raw := strings.TrimPrefix(header, "Bearer ")

		claims := &Claims{}
		token, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, jwt.ErrSignatureInvalid
			}
			return []byte(cfg.Secret), nil
		}, jwt.WithIssuer(cfg.Issuer), jwt.WithExpirationRequired())
		if err != nil || !token.Valid {
			abortUnauthorized(c, "invalid token")
			return
		}

		c.Set(ctxKeyUserID, claims.Subject)
		c.Set(ctxKeyRoles, claims.Roles)
		c.Next()
	}
}

// RequireRoles rejects callers holding none of the given roles.  Admin
// passes every check.
func RequireRoles(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		held := ContextRoles(c)
		for _, r := range held {
			if r == RoleAdmin {
				c.Next()
				return
			}
			for _, want := range roles {
				if r == want {
					c.Next()
					return
				}
			}
		}
		c.AbortWithStatusJSON(http.StatusForbidden, common.APIResponse[any]{
			Success: false,
			Error:   &common.ErrorDetail{Code: errors.ErrCodeForbidden.String(), Message: "insufficient role"},
		})
	}
}

// ContextUserID returns the authenticated caller's subject.
func ContextUserID(c *gin.Context) common.UserID {
	return common.UserID(c.GetString(ctxKeyUserID))
}

// ContextRoles returns the authenticated caller's roles.
func ContextRoles(c *gin.Context) []string {
	v, ok := c.Get(ctxKeyRoles)
	if !ok {
		return nil
	}
	roles, _ := v.([]string)
	return roles
}

func abortUnauthorized(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, common.APIResponse[any]{
		Success: false,
		Error:   &common.ErrorDetail{Code: errors.ErrCodeUnauthorized.String(), Message: msg},
	})
}
