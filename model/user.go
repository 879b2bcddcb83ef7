package model

import "gorm.io/gorm"

// User is one hospital staff account. Several users may share a HospitalID;
// they all see the same tenant data.
type User struct {
	gorm.Model
	Name         string `json:"name" gorm:"size:191"`
	Email        string `json:"email" gorm:"size:191;uniqueIndex"`
	Password     string `json:"-" gorm:"size:191"`
	HospitalID   string `json:"hospital_id" gorm:"size:32;index"`
	HospitalName string `json:"hospital_name" gorm:"size:191"`
}
