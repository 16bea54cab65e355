package middlewares

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mesafacil/mesafacil-api/models"
	"github.com/mesafacil/mesafacil-api/utils"
)

// RequireRoles allows only the listed roles. Owners pass every gate.
func RequireRoles(roles ...string) gin.HandlerFunc {
	allowed := make(map[string]bool, len(roles))
	for _, role := range roles {
		allowed[role] = true
	}

	return func(c *gin.Context) {
		userRole, exists := c.Get("role")
		if !exists {
			utils.RespondError(c, http.StatusUnauthorized, fmt.Errorf("unauthorized"))
			c.Abort()
			return
		}

		role, _ := userRole.(string)
		if role != models.RoleOwner && !allowed[role] {
			utils.RespondError(c, http.StatusForbidden, fmt.Errorf("role %s cannot perform this action", role))
			c.Abort()
			return
		}

		c.Next()
	}
}
