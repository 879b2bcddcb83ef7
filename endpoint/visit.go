package endpoint

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/seojin-dev/hospital-desk/model"
	"github.com/seojin-dev/hospital-desk/util"
	"gorm.io/gorm"
)

// parseVisitDate accepts the canonical unpadded form as well as zero-padded
// input and returns the requested day, defaulting to today.
func parseVisitDate(raw string, now time.Time) (time.Time, error) {
	if raw == "" {
		return now, nil
	}
	day, err := time.ParseInLocation("2006-1-2", raw, now.Location())
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: expected YYYY-M-D", raw)
	}
	return day, nil
}

// ListVisits godoc
// @Summary      List visits of a day
// @Description  Visit log entries for the requested date (default today); future dates are rejected
// @Tags         Visit
// @Produce      json
// @Security     SessionToken
// @Param        date query string false "Day in YYYY-M-D form"
// @Success      200 {object} util.APIResponse{data=object} "Visits retrieved"
// @Failure      400 {object} util.APIResponse "Malformed or future date"
// @Failure      401 {object} util.APIResponse "Unauthorized"
// @Failure      500 {object} util.APIResponse "Server error"
// @Router       /visit [get]
func ListVisits(c *gin.Context) {
	db, ok := getDBOrRespond(c)
	if !ok {
		return
	}
	hospitalID, ok := getTenantOrRespond(c)
	if !ok {
		return
	}

	now := time.Now()
	day, err := parseVisitDate(c.Query("date"), now)
	if err != nil {
		util.CallUserError(c, util.APIErrorParams{Msg: "Invalid date parameter", Err: err})
		return
	}
	dateStr := util.FormatCanonicalDate(day)
	if day.After(now) {
		util.CallUserError(c, util.APIErrorParams{
			Msg: "Cannot view visits for a future date",
			Err: fmt.Errorf("date %s is in the future", dateStr),
		})
		return
	}

	var visits []model.Visit
	if err := db.Where("hospital_id = ? AND visit_date = ?", hospitalID, dateStr).
		Order("created_at ASC").
		Find(&visits).Error; err != nil {
		util.CallServerError(c, util.APIErrorParams{Msg: "Failed to retrieve visits", Err: err})
		return
	}

	util.CallSuccessOK(c, util.APISuccessParams{
		Msg: "Visits retrieved",
		Data: map[string]interface{}{
			"date":   dateStr,
			"total":  len(visits),
			"visits": visits,
		},
	})
}

type CreateVisitRequest struct {
	PatientID uint   `json:"patient_id" binding:"required"`
	Memo      string `json:"memo"`
}

// CreateVisit godoc
// @Summary      Log a visit
// @Description  Records today's visit for a patient of the caller's hospital. The visit is classified once at creation: 초진 when today matches the patient's first-visit date, 재진 otherwise.
// @Tags         Visit
// @Accept       json
// @Produce      json
// @Security     SessionToken
// @Param        request body CreateVisitRequest true "Patient and treatment memo"
// @Success      200 {object} util.APIResponse{data=model.Visit} "Visit recorded"
// @Failure      400 {object} util.APIResponse "Missing patient or memo"
// @Failure      401 {object} util.APIResponse "Unauthorized"
// @Failure      404 {object} util.APIResponse "Patient not found in this hospital"
// @Failure      500 {object} util.APIResponse "Server error"
// @Router       /visit [post]
func CreateVisit(c *gin.Context) {
	var req CreateVisitRequest
	if !bindJSONOrRespond(c, &req, "Invalid request payload") {
		return
	}
	req.Memo = strings.TrimSpace(req.Memo)
	if req.Memo == "" {
		util.CallUserError(c, util.APIErrorParams{
			Msg: "Treatment memo is required",
			Err: fmt.Errorf("empty memo"),
		})
		return
	}

	db, ok := getDBOrRespond(c)
	if !ok {
		return
	}
	hospitalID, ok := getTenantOrRespond(c)
	if !ok {
		return
	}

	var patient model.Patient
	err := db.Where("id = ? AND hospital_id = ?", req.PatientID, hospitalID).
		First(&patient).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		util.CallErrorNotFound(c, util.APIErrorParams{
			Msg: "Patient not found",
			Err: fmt.Errorf("patient %d not found for this hospital", req.PatientID),
		})
		return
	}
	if err != nil {
		util.CallServerError(c, util.APIErrorParams{Msg: "Failed to look up patient", Err: err})
		return
	}

	today := util.FormatCanonicalDate(time.Now())
	visitType := model.VisitTypeReturn
	if today == patient.FirstVisit {
		visitType = model.VisitTypeFirst
	}

	visit := model.Visit{
		ChartNo:    patient.ChartNo,
		Name:       patient.Name,
		VisitDate:  today,
		Type:       visitType,
		Memo:       req.Memo,
		HospitalID: hospitalID,
	}
	if err := db.Create(&visit).Error; err != nil {
		util.CallServerError(c, util.APIErrorParams{Msg: "Failed to record visit", Err: err})
		return
	}

	util.CallSuccessOK(c, util.APISuccessParams{Msg: "Visit recorded", Data: visit})
}
