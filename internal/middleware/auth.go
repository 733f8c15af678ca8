package middleware

import (
	"errors"
	"net/http"
	"strings"

	pkgAuth "skins-service/pkg/auth"

	"github.com/gin-gonic/gin"
)

const ContextOrganizerIDKey = "organizerID"

func OrganizerAuthRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := extractBearerToken(c.GetHeader("Authorization"))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"code": http.StatusUnauthorized, "data": gin.H{}, "msg": err.Error()})
			return
		}

		claims, err := pkgAuth.ParseOrganizerToken(token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"code": http.StatusUnauthorized, "data": gin.H{}, "msg": "invalid token"})
			return
		}

		c.Set(ContextOrganizerIDKey, claims.SubjectID)
		c.Next()
	}
}

// OrganizerID returns the authenticated organizer, or 0 outside the auth group.
func OrganizerID(c *gin.Context) int64 {
	return c.GetInt64(ContextOrganizerIDKey)
}

func extractBearerToken(authHeader string) (string, error) {
	if strings.TrimSpace(authHeader) == "" {
		return "", errors.New("missing authorization header")
	}
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", errors.New("invalid authorization header")
	}
	return strings.TrimSpace(parts[1]), nil
}
