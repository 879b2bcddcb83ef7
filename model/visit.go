package model

import "gorm.io/gorm"

// Visit type classification values. A visit on the patient's recorded first
// visit date is 초진 (first visit), anything else is 재진 (return visit).
const (
	VisitTypeFirst  = "초진"
	VisitTypeReturn = "재진"
)

// Visit is a single front-desk visit log entry. Type is decided once at
// creation time and never re-derived afterwards.
type Visit struct {
	gorm.Model
	ChartNo    string `json:"chart_no" gorm:"size:32"`
	Name       string `json:"name" gorm:"size:191"`
	VisitDate  string `json:"visit_date" gorm:"size:10;index"`
	Type       string `json:"type" gorm:"size:8"`
	Memo       string `json:"memo" gorm:"type:text"`
	HospitalID string `json:"hospital_id" gorm:"size:32;index"`
}
