package endpoint

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v4"
	"github.com/seojin-dev/hospital-desk/config"
	"github.com/seojin-dev/hospital-desk/model"
	"github.com/seojin-dev/hospital-desk/util"
	"gorm.io/gorm"
)

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email" example:"frontdesk@hospital.kr"`
	Password string `json:"password" binding:"required" example:"password123"`
}

type UserProfile struct {
	UserID       uint   `json:"user_id" example:"1"`
	Email        string `json:"email" example:"frontdesk@hospital.kr"`
	Name         string `json:"name" example:"김직원"`
	HospitalID   string `json:"hospital_id" example:"a1b2c3d4m9x0"`
	HospitalName string `json:"hospital_name" example:"서울정형외과"`
}

type LoginResponse struct {
	Token string      `json:"token" example:"eyJhbGciOiJIUzI1NiIsInR5cCI6IkpXVCJ9..."`
	User  UserProfile `json:"user"`
}

// Login godoc
// @Summary      Staff login
// @Description  Authenticate a hospital staff account with email and password
// @Tags         Authentication
// @Accept       json
// @Produce      json
// @Param        request body LoginRequest true "Login credentials"
// @Success      200 {object} util.APIResponse{data=LoginResponse} "Login successful"
// @Failure      400 {object} util.APIResponse "Invalid credentials"
// @Failure      500 {object} util.APIResponse "Server error"
// @Router       /login [post]
func Login(c *gin.Context) {
	var req LoginRequest

	if !bindJSONOrRespond(c, &req, "Invalid request payload") {
		return
	}

	db, ok := getDBOrRespond(c)
	if !ok {
		return
	}

	ci := clientInfo{IP: c.ClientIP(), Agent: c.Request.UserAgent()}

	var user model.User
	err := db.Where("email = ?", req.Email).First(&user).Error
	if err == gorm.ErrRecordNotFound {
		util.LogLoginFailure(req.Email, ci.IP, ci.Agent, "user not found")
		util.CallUserError(c, util.APIErrorParams{
			Msg: "Account is not registered. Please sign up first.",
			Err: fmt.Errorf("user not found"),
		})
		return
	}
	if err != nil {
		util.LogLoginFailure(req.Email, ci.IP, ci.Agent, "database error")
		util.CallServerError(c, util.APIErrorParams{Msg: "Database error", Err: err})
		return
	}

	if !util.VerifyPassword(req.Password, user.Password) {
		util.LogLoginFailure(req.Email, ci.IP, ci.Agent, "invalid password")
		util.CallUserError(c, util.APIErrorParams{
			Msg: "Password does not match",
			Err: fmt.Errorf("invalid password"),
		})
		return
	}

	tokenString, err := createJWTToken(user)
	if err != nil {
		util.LogLoginFailure(req.Email, ci.IP, ci.Agent, "token generation failed")
		util.CallServerError(c, util.APIErrorParams{Msg: "Could not generate token", Err: err})
		return
	}

	session := model.Session{
		UserID:       user.ID,
		SessionToken: tokenString,
		ExpiresAt:    time.Now().Add(sessionLifetime),
		ClientIP:     ci.IP,
		Browser:      ci.Agent,
	}
	if err := db.Create(&session).Error; err != nil {
		util.LogLoginFailure(req.Email, ci.IP, ci.Agent, "session creation failed")
		util.CallServerError(c, util.APIErrorParams{Msg: "Failed to record session", Err: err})
		return
	}

	// Mirror the session to Redis (best-effort)
	if rdb := config.GetRedisClient(); rdb != nil {
		exp := time.Until(session.ExpiresAt)
		_ = rdb.Set(context.Background(), fmt.Sprintf("session:%s", tokenString), strconv.FormatUint(uint64(user.ID), 10), exp).Err()
		_ = util.AddSessionToUserSet(user.ID, tokenString)
	}

	util.LogLoginSuccess(user.ID, user.Email, ci.IP, ci.Agent)
	util.CallSuccessOK(c, util.APISuccessParams{
		Msg: "Login successful",
		Data: LoginResponse{
			Token: tokenString,
			User:  profileOf(user),
		},
	})
}

type clientInfo struct {
	IP    string
	Agent string
}

const sessionLifetime = time.Hour

func profileOf(user model.User) UserProfile {
	return UserProfile{
		UserID:       user.ID,
		Email:        user.Email,
		Name:         user.Name,
		HospitalID:   user.HospitalID,
		HospitalName: user.HospitalName,
	}
}

func createJWTToken(user model.User) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"email":       user.Email,
		"hospital_id": user.HospitalID,
		"exp":         time.Now().Add(sessionLifetime).Unix(),
	})
	return token.SignedString(util.GetJWTSecretByte())
}

const base36Alphabet = "0123456789abcdefghijklmnopqrstuvwxyz"

// newHospitalID mints a tenant id for a newly registered hospital: eight
// random base36 characters followed by the current time in base36.
func newHospitalID() string {
	id := make([]byte, 8)
	for i := range id {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(base36Alphabet))))
		if err != nil {
			// crypto/rand is unavailable only in pathological environments;
			// fall back to a time-derived character rather than failing signup.
			id[i] = base36Alphabet[time.Now().UnixNano()%36]
			continue
		}
		id[i] = base36Alphabet[n.Int64()]
	}
	return string(id) + strconv.FormatInt(time.Now().UnixMilli(), 36)
}

type SignupRequest struct {
	Name         string `json:"name" binding:"required" example:"김직원"`
	Email        string `json:"email" binding:"required,email" example:"frontdesk@hospital.kr"`
	Password     string `json:"password" binding:"required,min=6" example:"password123"`
	HospitalID   string `json:"hospital_id,omitempty" example:"a1b2c3d4m9x0"`
	HospitalName string `json:"hospital_name,omitempty" example:"서울정형외과"`
}

// Signup godoc
// @Summary      Staff signup
// @Description  Register a staff account. Supply hospital_id to join an existing hospital, or hospital_name to create a new one.
// @Tags         Authentication
// @Accept       json
// @Produce      json
// @Param        request body SignupRequest true "Signup details"
// @Success      200 {object} util.APIResponse{data=UserProfile} "Signup successful"
// @Failure      400 {object} util.APIResponse "Invalid request or email already exists"
// @Failure      500 {object} util.APIResponse "Server error"
// @Router       /signup [post]
func Signup(c *gin.Context) {
	var req SignupRequest

	if !bindJSONOrRespond(c, &req, "Invalid request payload") {
		return
	}

	db, ok := getDBOrRespond(c)
	if !ok {
		return
	}

	if req.HospitalID == "" && util.NormalizeName(req.HospitalName) == "" {
		util.CallUserError(c, util.APIErrorParams{
			Msg: "Either hospital_id or hospital_name is required",
			Err: fmt.Errorf("missing hospital"),
		})
		return
	}

	var existing model.User
	err := db.Where("email = ?", req.Email).First(&existing).Error
	if err == nil {
		util.CallUserError(c, util.APIErrorParams{Msg: "Email already exists", Err: fmt.Errorf("email already exists")})
		return
	}
	if err != gorm.ErrRecordNotFound {
		util.CallServerError(c, util.APIErrorParams{Msg: "Database error", Err: err})
		return
	}

	newUser := model.User{
		Name:     util.NormalizeName(req.Name),
		Email:    req.Email,
		Password: util.HashPassword(req.Password),
	}

	err = db.Transaction(func(tx *gorm.DB) error {
		if req.HospitalID != "" {
			// Join an existing hospital from the registration-time list.
			var hospital model.Hospital
			if err := tx.Where("hospital_id = ?", req.HospitalID).First(&hospital).Error; err != nil {
				if err == gorm.ErrRecordNotFound {
					return errHospitalNotFound
				}
				return err
			}
			newUser.HospitalID = hospital.HospitalID
			newUser.HospitalName = hospital.HospitalName
		} else {
			newUser.HospitalID = newHospitalID()
			newUser.HospitalName = util.NormalizeName(req.HospitalName)
			if err := tx.Create(&model.Hospital{
				HospitalID:   newUser.HospitalID,
				HospitalName: newUser.HospitalName,
			}).Error; err != nil {
				return err
			}
		}
		return tx.Create(&newUser).Error
	})
	if err == errHospitalNotFound {
		util.CallUserError(c, util.APIErrorParams{Msg: "Hospital not found", Err: err})
		return
	}
	if err != nil {
		util.CallServerError(c, util.APIErrorParams{Msg: "Failed to create new user", Err: err})
		return
	}

	if req.HospitalID == "" {
		// A freshly minted hospital must show up in the signup list.
		FlushHospitalListCache()
	}

	util.LogSecurityEvent(util.SecurityEvent{
		EventType: util.EventSignupSuccess,
		UserID:    fmt.Sprintf("%d", newUser.ID),
		Email:     newUser.Email,
		IP:        c.ClientIP(),
		UserAgent: c.Request.UserAgent(),
		Message:   fmt.Sprintf("User signed up for hospital %s", newUser.HospitalID),
	})

	util.CallSuccessOK(c, util.APISuccessParams{
		Msg:  "Signup successful",
		Data: profileOf(newUser),
	})
}

var errHospitalNotFound = fmt.Errorf("hospital not found")

// Logout godoc
// @Summary      Staff logout
// @Description  Invalidate the session token
// @Tags         Authentication
// @Produce      json
// @Security     SessionToken
// @Success      200 {object} util.APIResponse "Logout successful"
// @Failure      401 {object} util.APIResponse "Session token not provided"
// @Failure      400 {object} util.APIResponse "Session not found"
// @Failure      500 {object} util.APIResponse "Server error"
// @Router       /logout [delete]
func Logout(c *gin.Context) {
	sessionToken := c.GetHeader("session-token")
	if sessionToken == "" {
		util.CallUserNotAuthorized(c, util.APIErrorParams{
			Msg: "Session token not provided",
			Err: fmt.Errorf("session token not provided"),
		})
		c.Abort()
		return
	}

	db, ok := getDBOrRespond(c)
	if !ok {
		return
	}

	var session model.Session
	if err := db.Where("session_token = ?", sessionToken).First(&session).Error; err != nil {
		util.CallUserError(c, util.APIErrorParams{
			Msg: "Session not found",
			Err: err,
		})
		return
	}

	var user model.User
	if err := db.First(&user, session.UserID).Error; err == nil {
		util.LogLogout(user.ID, user.Email, c.ClientIP(), c.Request.UserAgent())
	}

	if err := db.Where("session_token = ?", sessionToken).Delete(&session).Error; err != nil {
		util.CallServerError(c, util.APIErrorParams{
			Msg: "Failed to delete session",
			Err: err,
		})
		return
	}

	// Also delete the session from Redis if available
	if rdb := config.GetRedisClient(); rdb != nil {
		_ = rdb.Del(context.Background(), fmt.Sprintf("session:%s", sessionToken)).Err()
		_ = util.RemoveSessionTokenFromUserSet(session.UserID, sessionToken)
	}

	util.CallSuccessOK(c, util.APISuccessParams{
		Msg: "Logout successful",
	})
}

// VerifyPasswordRequest represents the request body for password verification
type VerifyPasswordRequest struct {
	Password string `json:"password" binding:"required"`
}

// VerifyPassword godoc
// @Summary      Verify current user's password
// @Description  Re-authenticate the session user with their current password
// @Tags         Authentication
// @Accept       json
// @Produce      json
// @Security     SessionToken
// @Param        request body VerifyPasswordRequest true "Password to verify"
// @Success      200 {object} util.APIResponse "Password verified"
// @Failure      400 {object} util.APIResponse "Invalid request payload"
// @Failure      401 {object} util.APIResponse "Invalid password or unauthorized"
// @Failure      404 {object} util.APIResponse "User not found"
// @Failure      500 {object} util.APIResponse "Server error"
// @Router       /verify-password [post]
func VerifyPassword(c *gin.Context) {
	var req VerifyPasswordRequest
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

	var user model.User
	if err := db.First(&user, userID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			util.CallErrorNotFound(c, util.APIErrorParams{Msg: "User not found", Err: err})
			return
		}
		util.CallServerError(c, util.APIErrorParams{Msg: "Failed to retrieve user", Err: err})
		return
	}

	if util.VerifyPassword(req.Password, user.Password) {
		util.CallSuccessOK(c, util.APISuccessParams{
			Msg:  "Password verified",
			Data: map[string]bool{"verified": true},
		})
		return
	}

	util.CallUserNotAuthorized(c, util.APIErrorParams{
		Msg: "Invalid password",
		Err: fmt.Errorf("provided password does not match"),
	})
}

// ValidateToken godoc
// @Summary      Validate session token
// @Description  Check that the session token is valid and not expired
// @Tags         Authentication
// @Produce      json
// @Security     SessionToken
// @Success      200 {object} util.APIResponse{data=UserProfile} "Valid session token"
// @Failure      401 {object} util.APIResponse "Invalid or expired session token"
// @Failure      500 {object} util.APIResponse "Server error"
// @Router       /token/validate [get]
func ValidateToken(c *gin.Context) {
	sessionToken := c.GetHeader("session-token")
	if sessionToken == "" {
		util.CallUserNotAuthorized(c, util.APIErrorParams{
			Msg: "Invalid session token",
			Err: fmt.Errorf("session token not provided"),
		})
		c.Abort()
		return
	}

	db, ok := getDBOrRespond(c)
	if !ok {
		c.Abort()
		return
	}

	var session model.Session
	err := db.Where("session_token = ? AND expires_at > ?", sessionToken, time.Now()).
		First(&session).Error
	if err != nil {
		util.CallUserNotAuthorized(c, util.APIErrorParams{
			Msg: "Session not found",
			Err: fmt.Errorf("invalid or expired session"),
		})
		c.Abort()
		return
	}

	var user model.User
	if err := db.First(&user, session.UserID).Error; err != nil {
		util.CallUserNotAuthorized(c, util.APIErrorParams{Msg: "Session user not found", Err: err})
		c.Abort()
		return
	}

	util.CallSuccessOK(c, util.APISuccessParams{
		Msg:  "Valid session token",
		Data: profileOf(user),
	})
}
