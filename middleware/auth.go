package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"TeamWork/tools/errs"
)

// UserKey is where Auth stores the resolved user id in the gin context.
const UserKey = "userId"

// UserResolver maps a request to a user id, "" when anonymous.
type UserResolver interface {
	ResolveUser(req *http.Request) string
}

// Auth rejects anonymous requests and stashes the caller's id for the
// handlers downstream.
func Auth(resolver UserResolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := resolver.ResolveUser(c.Request)
		if userID == "" {
			e := errs.ErrNotAuthenticated
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"code": e.Code,
				"msg":  e.Msg,
			})
			return
		}
		c.Set(UserKey, userID)
		c.Next()
	}
}

// CallerID reads the user id set by Auth.
func CallerID(c *gin.Context) string {
	v, _ := c.Get(UserKey)
	id, _ := v.(string)
	return id
}
