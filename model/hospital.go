package model

import "gorm.io/gorm"

// Hospital is the registration-time tenant lookup entry. The list is offered
// at sign-up so a new staff account can join an existing hospital instead of
// minting a new one.
type Hospital struct {
	gorm.Model
	HospitalID   string `json:"hospital_id" gorm:"size:32;uniqueIndex"`
	HospitalName string `json:"hospital_name" gorm:"size:191"`
}
