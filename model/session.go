package model

import (
	"time"

	"gorm.io/gorm"
)

// Session records an active login. The token is also mirrored to Redis when
// available; the DB row is authoritative.
type Session struct {
	gorm.Model
	UserID       uint      `json:"user_id" gorm:"index"`
	SessionToken string    `json:"session_token" gorm:"size:512;index"`
	ExpiresAt    time.Time `json:"expires_at"`
	ClientIP     string    `json:"client_ip" gorm:"size:45"`
	Browser      string    `json:"browser" gorm:"size:512"`
}
