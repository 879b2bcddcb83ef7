package middleware

import (
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/seojin-dev/hospital-desk/model"
	"github.com/seojin-dev/hospital-desk/util"
)

// SessionAuth guards tenant-scoped routes. It resolves the session-token
// header to an active session and its user, then injects the user id and
// hospital id into the request context. Everything downstream derives its
// tenant scope from that context, never from the request body.
func SessionAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		sessionToken := c.GetHeader("session-token")
		if sessionToken == "" {
			util.LogUnauthorizedAccess("", "", c.ClientIP(), c.Request.URL.Path, "missing session token")
			util.CallUserNotAuthorized(c, util.APIErrorParams{
				Msg: "Session token not provided",
				Err: fmt.Errorf("session token not provided"),
			})
			c.Abort()
			return
		}

		db := GetDB(c)
		if db == nil {
			util.CallServerError(c, util.APIErrorParams{
				Msg: "Database connection not available",
				Err: fmt.Errorf("db is nil"),
			})
			c.Abort()
			return
		}

		var session model.Session
		err := db.Where("session_token = ? AND expires_at > ?", sessionToken, time.Now()).
			First(&session).Error
		if err != nil {
			util.LogUnauthorizedAccess("", "", c.ClientIP(), c.Request.URL.Path, "invalid or expired session")
			util.CallUserNotAuthorized(c, util.APIErrorParams{
				Msg: "Invalid or expired session",
				Err: fmt.Errorf("session not found"),
			})
			c.Abort()
			return
		}

		var user model.User
		if err := db.First(&user, session.UserID).Error; err != nil {
			util.CallUserNotAuthorized(c, util.APIErrorParams{
				Msg: "Session user not found",
				Err: err,
			})
			c.Abort()
			return
		}

		c.Set(UserIDKey, user.ID)
		c.Set(HospitalIDKey, user.HospitalID)
		c.Next()
	}
}
