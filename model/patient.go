package model

import "gorm.io/gorm"

// Patient is one registered patient of a hospital. Every query against this
// table must be scoped by HospitalID.
type Patient struct {
	gorm.Model
	ChartNo    string `json:"chart_no" gorm:"size:32"`
	Name       string `json:"name" gorm:"size:191;index"`
	RRN        string `json:"rrn" gorm:"column:rrn;size:13"`
	Birth      string `json:"birth" gorm:"size:6;index"`
	Gender     string `json:"gender" gorm:"size:12"`
	Phone      string `json:"phone" gorm:"size:32"`
	FirstVisit string `json:"first_visit" gorm:"size:10"`
	HospitalID string `json:"hospital_id" gorm:"size:32;index"`
}
