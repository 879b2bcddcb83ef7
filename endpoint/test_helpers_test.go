package endpoint

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/seojin-dev/hospital-desk/config"
	"github.com/seojin-dev/hospital-desk/middleware"
	"github.com/seojin-dev/hospital-desk/model"
	"gorm.io/gorm"
)

// setupTestDB opens a fresh in-memory database with the full schema.
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := config.ConnectMySQL()
	if err != nil {
		t.Fatalf("connect test db: %v", err)
	}
	if err := db.AutoMigrate(model.AllModels...); err != nil {
		t.Fatalf("auto migrate: %v", err)
	}
	return db
}

// sessionIdentity stands in for SessionAuth in handler tests: it injects a
// fixed user and hospital into the request context.
func sessionIdentity(userID uint, hospitalID string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(middleware.UserIDKey, userID)
		c.Set(middleware.HospitalIDKey, hospitalID)
		c.Next()
	}
}

// newTenantRouter builds a router carrying the DB and a logged-in identity
// for hospital hospitalID, with every tenant-scoped route registered.
func newTenantRouter(db *gorm.DB, hospitalID string) *gin.Engine {
	r := gin.New()
	r.Use(middleware.DatabaseMiddleware(db))
	r.Use(sessionIdentity(1, hospitalID))

	r.GET("/patient", ListPatients)
	r.GET("/patient/template", DownloadPatientTemplate)
	r.POST("/patient/import", ImportPatients)
	r.POST("/patient/commit", CommitPatients)
	r.GET("/patient/search", SearchPatients)
	r.GET("/visit", ListVisits)
	r.POST("/visit", CreateVisit)
	r.GET("/dashboard", GetDashboard)
	return r
}

// newPublicRouter builds a router with only the unauthenticated routes.
func newPublicRouter(db *gorm.DB) *gin.Engine {
	r := gin.New()
	r.Use(middleware.DatabaseMiddleware(db))

	r.POST("/signup", Signup)
	r.POST("/login", Login)
	r.GET("/hospital", ListHospitals)
	r.GET("/token/validate", ValidateToken)
	r.DELETE("/logout", Logout)
	return r
}

type apiResp struct {
	Message string          `json:"msg"`
	Data    json.RawMessage `json:"data"`
}

func doJSON(t *testing.T, r http.Handler, method, path string, body interface{}, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()

	var reader *strings.Reader
	if body == nil {
		reader = strings.NewReader("")
	} else {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = strings.NewReader(string(b))
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

// doUpload posts content as a multipart file field named "file".
func doUpload(t *testing.T, r http.Handler, path string, content []byte) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", "patients.xlsx")
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	if _, err := fw.Write(content); err != nil {
		t.Fatalf("write form file: %v", err)
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("close multipart writer: %v", err)
	}

	req := httptest.NewRequest("POST", path, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

// parseData decodes the data field of a standard API response into out.
func parseData(t *testing.T, w *httptest.ResponseRecorder, out interface{}) {
	t.Helper()

	var resp apiResp
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v; body: %s", err, w.Body.String())
	}
	if err := json.Unmarshal(resp.Data, out); err != nil {
		t.Fatalf("decode data: %v; data: %s", err, string(resp.Data))
	}
}

func mustCreate(t *testing.T, db *gorm.DB, value interface{}) {
	t.Helper()
	if err := db.Create(value).Error; err != nil {
		t.Fatalf("create %T: %v", value, err)
	}
}
