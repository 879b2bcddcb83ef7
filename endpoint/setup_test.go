package endpoint

import (
	"os"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/seojin-dev/hospital-desk/config"
	"github.com/seojin-dev/hospital-desk/util"
)

// TestMain sets up consistent test configuration for all tests in the
// endpoint package. This prevents test order dependency issues caused by the
// singleton config pattern.
func TestMain(m *testing.M) {
	os.Setenv("APPENV", "test")
	os.Setenv("JWTSECRET", "test-secret-123")
	os.Setenv("GINMODE", "test")

	util.SetJWTSecret("test-secret-123")

	config.ResetConfigForTesting()
	config.LoadConfig()
	gin.SetMode(gin.TestMode)

	os.Exit(m.Run())
}
