package endpoint

import (
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/seojin-dev/hospital-desk/middleware"
	"github.com/seojin-dev/hospital-desk/util"
	"gorm.io/gorm"
)

func bindJSONOrRespond(c *gin.Context, dst interface{}, msg string) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		util.CallUserError(c, util.APIErrorParams{Msg: msg, Err: err})
		return false
	}
	return true
}

func getDBOrRespond(c *gin.Context) (*gorm.DB, bool) {
	db := middleware.GetDB(c)
	if db == nil {
		util.CallServerError(c, util.APIErrorParams{Msg: "Database connection not available", Err: fmt.Errorf("db is nil")})
		return nil, false
	}
	return db, true
}

// getTenantOrRespond returns the caller's hospital id from the session
// context. Handlers must scope every query by this value.
func getTenantOrRespond(c *gin.Context) (string, bool) {
	hospitalID, ok := middleware.GetHospitalID(c)
	if !ok {
		util.CallUserNotAuthorized(c, util.APIErrorParams{
			Msg: "Hospital scope not found in session",
			Err: fmt.Errorf("hospital id not found in context"),
		})
		return "", false
	}
	return hospitalID, true
}

func getUserIDOrRespond(c *gin.Context) (uint, bool) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		util.CallUserNotAuthorized(c, util.APIErrorParams{
			Msg: "User not authenticated",
			Err: fmt.Errorf("user id not found in context"),
		})
		return 0, false
	}
	return userID, true
}
