package endpoint

import (
	"net/http"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/seojin-dev/hospital-desk/middleware"
	"github.com/seojin-dev/hospital-desk/model"
	"github.com/seojin-dev/hospital-desk/util"
	"gorm.io/gorm"
)

func signupBody(name, email, password string, extra map[string]string) map[string]string {
	body := map[string]string{"name": name, "email": email, "password": password}
	for k, v := range extra {
		body[k] = v
	}
	return body
}

func TestSignupMintsNewHospital(t *testing.T) {
	db := setupTestDB(t)
	r := newPublicRouter(db)

	w := doJSON(t, r, "POST", "/signup",
		signupBody("김직원", "staff@hospital.kr", "password123", map[string]string{"hospital_name": "서울정형외과"}), nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var profile UserProfile
	parseData(t, w, &profile)
	if profile.HospitalID == "" {
		t.Fatal("expected a minted hospital id")
	}
	if profile.HospitalName != "서울정형외과" {
		t.Errorf("hospital name = %q", profile.HospitalName)
	}

	// The hospital row must exist so later signups can join it.
	var hospital model.Hospital
	if err := db.Where("hospital_id = ?", profile.HospitalID).First(&hospital).Error; err != nil {
		t.Fatalf("minted hospital not stored: %v", err)
	}
}

func TestSignupJoinsExistingHospital(t *testing.T) {
	db := setupTestDB(t)
	r := newPublicRouter(db)

	mustCreate(t, db, &model.Hospital{HospitalID: "hosp-a", HospitalName: "서울정형외과"})

	w := doJSON(t, r, "POST", "/signup",
		signupBody("박직원", "second@hospital.kr", "password123", map[string]string{"hospital_id": "hosp-a"}), nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var profile UserProfile
	parseData(t, w, &profile)
	if profile.HospitalID != "hosp-a" || profile.HospitalName != "서울정형외과" {
		t.Errorf("expected to join hosp-a, got %+v", profile)
	}
}

func TestSignupUnknownHospital(t *testing.T) {
	db := setupTestDB(t)
	r := newPublicRouter(db)

	w := doJSON(t, r, "POST", "/signup",
		signupBody("박직원", "second@hospital.kr", "password123", map[string]string{"hospital_id": "no-such"}), nil)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown hospital, got %d", w.Code)
	}
}

func TestSignupRequiresHospital(t *testing.T) {
	db := setupTestDB(t)
	r := newPublicRouter(db)

	w := doJSON(t, r, "POST", "/signup",
		signupBody("김직원", "staff@hospital.kr", "password123", nil), nil)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 without hospital, got %d", w.Code)
	}
}

func TestSignupDuplicateEmail(t *testing.T) {
	db := setupTestDB(t)
	r := newPublicRouter(db)

	body := signupBody("김직원", "staff@hospital.kr", "password123", map[string]string{"hospital_name": "서울정형외과"})
	if w := doJSON(t, r, "POST", "/signup", body, nil); w.Code != http.StatusOK {
		t.Fatalf("first signup failed: %d", w.Code)
	}
	if w := doJSON(t, r, "POST", "/signup", body, nil); w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for duplicate email, got %d", w.Code)
	}
}

func signupAndLogin(t *testing.T, r http.Handler, email, password string) (string, UserProfile) {
	t.Helper()

	w := doJSON(t, r, "POST", "/signup",
		signupBody("김직원", email, password, map[string]string{"hospital_name": "서울정형외과"}), nil)
	if w.Code != http.StatusOK {
		t.Fatalf("signup failed: %d %s", w.Code, w.Body.String())
	}

	w = doJSON(t, r, "POST", "/login", map[string]string{"email": email, "password": password}, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("login failed: %d %s", w.Code, w.Body.String())
	}

	var resp LoginResponse
	parseData(t, w, &resp)
	if resp.Token == "" {
		t.Fatal("expected a session token")
	}
	return resp.Token, resp.User
}

func TestLoginCreatesSession(t *testing.T) {
	db := setupTestDB(t)
	r := newPublicRouter(db)

	token, user := signupAndLogin(t, r, "staff@hospital.kr", "password123")

	var session model.Session
	if err := db.Where("session_token = ?", token).First(&session).Error; err != nil {
		t.Fatalf("session row not created: %v", err)
	}
	if session.UserID != user.UserID {
		t.Errorf("session user = %d, want %d", session.UserID, user.UserID)
	}
	if !session.ExpiresAt.After(time.Now()) {
		t.Error("session should expire in the future")
	}
}

func TestLoginUnregisteredAccount(t *testing.T) {
	db := setupTestDB(t)
	r := newPublicRouter(db)

	w := doJSON(t, r, "POST", "/login",
		map[string]string{"email": "nobody@hospital.kr", "password": "password123"}, nil)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown account, got %d", w.Code)
	}
}

func TestLoginWrongPassword(t *testing.T) {
	db := setupTestDB(t)
	r := newPublicRouter(db)
	signupAndLogin(t, r, "staff@hospital.kr", "password123")

	w := doJSON(t, r, "POST", "/login",
		map[string]string{"email": "staff@hospital.kr", "password": "wrong-password"}, nil)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for wrong password, got %d", w.Code)
	}
}

func TestValidateToken(t *testing.T) {
	db := setupTestDB(t)
	r := newPublicRouter(db)
	token, user := signupAndLogin(t, r, "staff@hospital.kr", "password123")

	w := doJSON(t, r, "GET", "/token/validate", nil, map[string]string{"session-token": token})
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 for valid token, got %d", w.Code)
	}

	var profile UserProfile
	parseData(t, w, &profile)
	if profile.HospitalID != user.HospitalID {
		t.Errorf("profile hospital = %q, want %q", profile.HospitalID, user.HospitalID)
	}

	w = doJSON(t, r, "GET", "/token/validate", nil, map[string]string{"session-token": "bogus"})
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for bogus token, got %d", w.Code)
	}

	w = doJSON(t, r, "GET", "/token/validate", nil, nil)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", w.Code)
	}
}

func TestValidateTokenExpired(t *testing.T) {
	db := setupTestDB(t)
	r := newPublicRouter(db)
	token, _ := signupAndLogin(t, r, "staff@hospital.kr", "password123")

	db.Model(&model.Session{}).
		Where("session_token = ?", token).
		Update("expires_at", time.Now().Add(-time.Minute))

	w := doJSON(t, r, "GET", "/token/validate", nil, map[string]string{"session-token": token})
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for expired token, got %d", w.Code)
	}
}

func TestLogoutDeletesSession(t *testing.T) {
	db := setupTestDB(t)
	r := newPublicRouter(db)
	token, _ := signupAndLogin(t, r, "staff@hospital.kr", "password123")

	w := doJSON(t, r, "DELETE", "/logout", nil, map[string]string{"session-token": token})
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var count int64
	db.Model(&model.Session{}).Where("session_token = ?", token).Count(&count)
	if count != 0 {
		t.Error("session row should be deleted after logout")
	}

	// The dead token no longer validates.
	w = doJSON(t, r, "GET", "/token/validate", nil, map[string]string{"session-token": token})
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 after logout, got %d", w.Code)
	}
}

func TestListHospitals(t *testing.T) {
	db := setupTestDB(t)
	FlushHospitalListCache()
	t.Cleanup(FlushHospitalListCache)

	mustCreate(t, db, &model.Hospital{HospitalID: "hosp-b", HospitalName: "부산한의원"})
	mustCreate(t, db, &model.Hospital{HospitalID: "hosp-a", HospitalName: "서울정형외과"})

	r := newPublicRouter(db)
	w := doJSON(t, r, "GET", "/hospital", nil, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}

	var hospitals []HospitalEntry
	parseData(t, w, &hospitals)
	if len(hospitals) != 2 {
		t.Fatalf("expected 2 hospitals, got %d", len(hospitals))
	}
	// Ordered by name: 부산 before 서울.
	if hospitals[0].HospitalName != "부산한의원" {
		t.Errorf("expected name ordering, got %+v", hospitals)
	}
}

// newAccountRouter wires the authenticated account routes with a fixed
// identity, for tests that exercise them directly.
func newAccountRouter(db *gorm.DB, userID uint) *gin.Engine {
	r := gin.New()
	r.Use(middleware.DatabaseMiddleware(db))
	r.Use(sessionIdentity(userID, "hosp-a"))
	r.POST("/verify-password", VerifyPassword)
	r.PATCH("/user", UpdateName)
	r.PATCH("/user/password", ChangePassword)
	return r
}

func createUser(t *testing.T, db *gorm.DB, email, password string) model.User {
	t.Helper()
	user := model.User{
		Name:         "김직원",
		Email:        email,
		Password:     util.HashPassword(password),
		HospitalID:   "hosp-a",
		HospitalName: "서울정형외과",
	}
	mustCreate(t, db, &user)
	return user
}

func TestVerifyPassword(t *testing.T) {
	db := setupTestDB(t)
	user := createUser(t, db, "staff@hospital.kr", "password123")
	r := newAccountRouter(db, user.ID)

	w := doJSON(t, r, "POST", "/verify-password", map[string]string{"password": "password123"}, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 for correct password, got %d", w.Code)
	}

	w = doJSON(t, r, "POST", "/verify-password", map[string]string{"password": "wrong"}, nil)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for wrong password, got %d", w.Code)
	}
}

func TestUpdateName(t *testing.T) {
	db := setupTestDB(t)
	user := createUser(t, db, "staff@hospital.kr", "password123")
	r := newAccountRouter(db, user.ID)

	w := doJSON(t, r, "PATCH", "/user", map[string]string{"name": "  박직원  "}, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var updated model.User
	if err := db.First(&updated, user.ID).Error; err != nil {
		t.Fatalf("reload user: %v", err)
	}
	if updated.Name != "박직원" {
		t.Errorf("name = %q, want 박직원 (normalized)", updated.Name)
	}

	// Same name again is rejected.
	w = doJSON(t, r, "PATCH", "/user", map[string]string{"name": "박직원"}, nil)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for unchanged name, got %d", w.Code)
	}
}

func TestChangePassword(t *testing.T) {
	db := setupTestDB(t)
	user := createUser(t, db, "staff@hospital.kr", "password123")
	mustCreate(t, db, &model.Session{
		UserID: user.ID, SessionToken: "live-token", ExpiresAt: time.Now().Add(time.Hour),
	})
	r := newAccountRouter(db, user.ID)

	w := doJSON(t, r, "PATCH", "/user/password",
		map[string]string{"current_password": "password123", "new_password": "newpass456"}, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var updated model.User
	if err := db.First(&updated, user.ID).Error; err != nil {
		t.Fatalf("reload user: %v", err)
	}
	if !util.VerifyPassword("newpass456", updated.Password) {
		t.Error("new password should verify after change")
	}
	if util.VerifyPassword("password123", updated.Password) {
		t.Error("old password should no longer verify")
	}

	// Every session of the user is invalidated.
	var count int64
	db.Model(&model.Session{}).Where("user_id = ?", user.ID).Count(&count)
	if count != 0 {
		t.Errorf("expected sessions to be deleted, %d remain", count)
	}
}

func TestChangePasswordRejectsWrongCurrent(t *testing.T) {
	db := setupTestDB(t)
	user := createUser(t, db, "staff@hospital.kr", "password123")
	r := newAccountRouter(db, user.ID)

	w := doJSON(t, r, "PATCH", "/user/password",
		map[string]string{"current_password": "wrong", "new_password": "newpass456"}, nil)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for wrong current password, got %d", w.Code)
	}
}

func TestChangePasswordRejectsSamePassword(t *testing.T) {
	db := setupTestDB(t)
	user := createUser(t, db, "staff@hospital.kr", "password123")
	r := newAccountRouter(db, user.ID)

	w := doJSON(t, r, "PATCH", "/user/password",
		map[string]string{"current_password": "password123", "new_password": "password123"}, nil)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 when new password equals current, got %d", w.Code)
	}
}
