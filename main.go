// main.go
package main

import (
	"fmt"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/seojin-dev/hospital-desk/config"
	"github.com/seojin-dev/hospital-desk/endpoint"
	"github.com/seojin-dev/hospital-desk/middleware"
	"github.com/seojin-dev/hospital-desk/model"
	"github.com/seojin-dev/hospital-desk/util"
)

func main() {
	// Load the configuration
	cfg := config.LoadConfig()

	db, err := config.ConnectMySQL()
	if err != nil {
		log.Fatalf("Error connecting to MySQL: %v", err)
	}
	if err := db.AutoMigrate(model.AllModels...); err != nil {
		log.Fatalf("Error migrating schema: %v", err)
	}
	util.SetSecurityLoggerDB(db)
	util.InitUserEmailCacheFromEnv()

	if _, err := config.ConnectRedis(); err != nil {
		log.Fatalf("Error connecting to Redis: %v", err)
	}

	if geoipPath := os.Getenv("GEOIP_DB_PATH"); geoipPath != "" {
		if err := util.InitGeoIP(geoipPath); err != nil {
			log.Printf("GeoIP disabled: %v", err)
		}
		defer util.CloseGeoIP()
	}

	// Set Gin mode from config
	gin.SetMode(cfg.GinMode)

	// Create a Gin router with default middleware
	router := gin.Default()
	router.Use(middleware.CORSMiddleware())
	router.Use(middleware.DatabaseMiddleware(db))
	router.Use(middleware.EndpointCallLogger())

	// Basic HTTP handler for root path
	router.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"message": fmt.Sprintf("Welcome to %s!", cfg.AppName),
		})
	})

	authRateLimit := middleware.RateLimiter(middleware.RateLimitConfig{
		Limit:  5,
		Window: 15 * time.Minute,
	})
	router.POST("/signup", authRateLimit, endpoint.Signup)
	router.POST("/login", authRateLimit, endpoint.Login)
	router.GET("/hospital", endpoint.ListHospitals)
	router.GET("/token/validate", endpoint.ValidateToken)

	authorized := router.Group("/")
	authorized.Use(middleware.SessionAuth())
	{
		authorized.DELETE("/logout", endpoint.Logout)

		authorized.GET("/patient", endpoint.ListPatients)
		authorized.GET("/patient/template", endpoint.DownloadPatientTemplate)
		authorized.POST("/patient/import", endpoint.ImportPatients)
		authorized.POST("/patient/commit", endpoint.CommitPatients)
		authorized.GET("/patient/search", endpoint.SearchPatients)

		authorized.GET("/visit", endpoint.ListVisits)
		authorized.POST("/visit", endpoint.CreateVisit)

		authorized.GET("/dashboard", endpoint.GetDashboard)

		authorized.POST("/verify-password", endpoint.VerifyPassword)
		authorized.PATCH("/user", endpoint.UpdateName)
		authorized.PATCH("/user/password", endpoint.ChangePassword)
	}

	// Start server on specified port
	address := fmt.Sprintf(":%d", cfg.AppPort)
	if err := router.Run(address); err != nil {
		log.Fatalf("error starting server: %v", err)
	}
}
