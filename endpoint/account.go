package endpoint

import (
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/seojin-dev/hospital-desk/model"
	"github.com/seojin-dev/hospital-desk/util"
	"gorm.io/gorm"
)

type UpdateNameRequest struct {
	Name string `json:"name" binding:"required" example:"김직원"`
}

// UpdateName godoc
// @Summary      Change display name
// @Description  Update the session user's display name
// @Tags         Account
// @Accept       json
// @Produce      json
// @Security     SessionToken
// @Param        request body UpdateNameRequest true "New name"
// @Success      200 {object} util.APIResponse{data=UserProfile} "Name updated"
// @Failure      400 {object} util.APIResponse "Invalid name"
// @Failure      401 {object} util.APIResponse "Unauthorized"
// @Failure      500 {object} util.APIResponse "Server error"
// @Router       /user [patch]
func UpdateName(c *gin.Context) {
	var req UpdateNameRequest
	if !bindJSONOrRespond(c, &req, "Invalid request payload") {
		return
	}

	db, ok := getDBOrRespond(c)
	if !ok {
		return
	}
	userID, ok := getUserIDOrRespond(c)
	if !ok {
		return
	}

	name := util.NormalizeName(req.Name)
	if name == "" {
		util.CallUserError(c, util.APIErrorParams{
			Msg: "Name cannot be empty",
			Err: fmt.Errorf("empty name"),
		})
		return
	}

	var user model.User
	if err := db.First(&user, userID).Error; err != nil {
		util.CallServerError(c, util.APIErrorParams{Msg: "Failed to retrieve user", Err: err})
		return
	}

	if name == user.Name {
		util.CallUserError(c, util.APIErrorParams{
			Msg: "New name is identical to the current name",
			Err: fmt.Errorf("name unchanged"),
		})
		return
	}

	user.Name = name
	if err := db.Save(&user).Error; err != nil {
		util.CallServerError(c, util.APIErrorParams{Msg: "Failed to update name", Err: err})
		return
	}

	util.CallSuccessOK(c, util.APISuccessParams{
		Msg:  "Name updated",
		Data: profileOf(user),
	})
}

type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password" binding:"required"`
	NewPassword     string `json:"new_password" binding:"required,min=6"`
}

// ChangePassword godoc
// @Summary      Change password
// @Description  Re-authenticate with the current password, then replace it. All of the user's sessions are invalidated on success.
// @Tags         Account
// @Accept       json
// @Produce      json
// @Security     SessionToken
// @Param        request body ChangePasswordRequest true "Current and new password"
// @Success      200 {object} util.APIResponse "Password changed"
// @Failure      400 {object} util.APIResponse "Invalid request"
// @Failure      401 {object} util.APIResponse "Current password does not match"
// @Failure      500 {object} util.APIResponse "Server error"
// @Router       /user/password [patch]
func ChangePassword(c *gin.Context) {
	var req ChangePasswordRequest
	if !bindJSONOrRespond(c, &req, "Invalid request payload") {
		return
	}

	db, ok := getDBOrRespond(c)
	if !ok {
		return
	}
	userID, ok := getUserIDOrRespond(c)
	if !ok {
		return
	}

	if req.NewPassword == req.CurrentPassword {
		util.CallUserError(c, util.APIErrorParams{
			Msg: "New password must differ from the current password",
			Err: fmt.Errorf("password unchanged"),
		})
		return
	}

	var user model.User
	if err := db.First(&user, userID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			util.CallErrorNotFound(c, util.APIErrorParams{Msg: "User not found", Err: err})
			return
		}
		util.CallServerError(c, util.APIErrorParams{Msg: "Failed to retrieve user", Err: err})
		return
	}

	if !util.VerifyPassword(req.CurrentPassword, user.Password) {
		util.CallUserNotAuthorized(c, util.APIErrorParams{
			Msg: "Current password does not match",
			Err: fmt.Errorf("invalid current password"),
		})
		return
	}

	user.Password = util.HashPassword(req.NewPassword)
	if err := db.Save(&user).Error; err != nil {
		util.CallServerError(c, util.APIErrorParams{Msg: "Failed to update password", Err: err})
		return
	}

	// A changed password invalidates every session of this user.
	_ = db.Where("user_id = ?", user.ID).Delete(&model.Session{}).Error
	_ = util.InvalidateUserSessions(user.ID)

	util.LogSecurityEvent(util.SecurityEvent{
		EventType: util.EventPasswordChanged,
		UserID:    fmt.Sprintf("%d", user.ID),
		Email:     user.Email,
		IP:        c.ClientIP(),
		UserAgent: c.Request.UserAgent(),
		Message:   "Password changed, all sessions invalidated",
	})

	util.CallSuccessOK(c, util.APISuccessParams{
		Msg: "Password changed",
	})
}
