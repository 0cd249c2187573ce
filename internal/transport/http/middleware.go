package http

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	a "github.com/Dracarys0904/ServiceGo/pkg/auth"

	"github.com/Dracarys0904/ServiceGo/internal/domain"
)

func JWTAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		h := c.GetHeader("Authorization")
		if !strings.HasPrefix(h, "Bearer ") {
			c.AbortWithStatus(http.StatusUnauthorized)
			return
		}
		tok := strings.TrimPrefix(h, "Bearer ")
		claims, err := a.ParseValidate(tok)
		if err != nil {
			c.AbortWithStatus(http.StatusUnauthorized)
			return
		}
		c.Set("sub", claims.Sub)
		c.Set("role", claims.Role)
		c.Set("name", claims.Name)
		c.Next()
	}
}

func RequireRole(roles ...domain.Role) gin.HandlerFunc {
	allowed := map[domain.Role]struct{}{}
	for _, r := range roles {
		allowed[r] = struct{}{}
	}
	return func(c *gin.Context) {
		v, _ := c.Get("role")
		role, _ := v.(string)
		if _, ok := allowed[domain.Role(role)]; !ok {
			c.AbortWithStatus(http.StatusForbidden)
			return
		}
		c.Next()
	}
}

// currentActor rebuilds the actor from the claims JWTAuth stored on the
// context.
func currentActor(c *gin.Context) domain.Actor {
	sub, _ := c.Get("sub")
	role, _ := c.Get("role")
	name, _ := c.Get("name")
	id, _ := sub.(string)
	r, _ := role.(string)
	n, _ := name.(string)
	return domain.Actor{ID: id, Role: domain.Role(r), DisplayName: n}
}
