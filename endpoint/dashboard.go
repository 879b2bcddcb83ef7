package endpoint

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/seojin-dev/hospital-desk/model"
	"github.com/seojin-dev/hospital-desk/util"
	"gorm.io/gorm"
)

// weeklySeries is the trailing seven-day chart payload: parallel arrays
// aligned with Labels, oldest day first, today last.
type weeklySeries struct {
	Labels []string `json:"labels"`
	Total  []int64  `json:"total"`
	First  []int64  `json:"first"`
	Return []int64  `json:"return"`
}

func countVisits(db *gorm.DB, hospitalID, date, visitType string) (int64, error) {
	q := db.Model(&model.Visit{}).
		Where("hospital_id = ? AND visit_date = ?", hospitalID, date)
	if visitType != "" {
		q = q.Where("type = ?", visitType)
	}
	var count int64
	err := q.Count(&count).Error
	return count, err
}

func buildWeeklySeries(db *gorm.DB, hospitalID string, now time.Time) (weeklySeries, error) {
	days := util.Last7Days(now)
	series := weeklySeries{
		Labels: days,
		Total:  make([]int64, 0, len(days)),
		First:  make([]int64, 0, len(days)),
		Return: make([]int64, 0, len(days)),
	}
	for _, day := range days {
		total, err := countVisits(db, hospitalID, day, "")
		if err != nil {
			return weeklySeries{}, err
		}
		first, err := countVisits(db, hospitalID, day, model.VisitTypeFirst)
		if err != nil {
			return weeklySeries{}, err
		}
		series.Total = append(series.Total, total)
		series.First = append(series.First, first)
		series.Return = append(series.Return, total-first)
	}
	return series, nil
}

// GetDashboard godoc
// @Summary      Dashboard metrics
// @Description  Today's headline counts plus the trailing seven-day visit series for the caller's hospital
// @Tags         Dashboard
// @Produce      json
// @Security     SessionToken
// @Success      200 {object} util.APIResponse{data=object} "Dashboard metrics"
// @Failure      401 {object} util.APIResponse "Unauthorized"
// @Failure      500 {object} util.APIResponse "Server error"
// @Router       /dashboard [get]
func GetDashboard(c *gin.Context) {
	db, ok := getDBOrRespond(c)
	if !ok {
		return
	}
	hospitalID, ok := getTenantOrRespond(c)
	if !ok {
		return
	}

	now := time.Now()
	today := util.FormatCanonicalDate(now)

	var totalPatients int64
	if err := db.Model(&model.Patient{}).
		Where("hospital_id = ?", hospitalID).
		Count(&totalPatients).Error; err != nil {
		util.CallServerError(c, util.APIErrorParams{Msg: "Failed to count patients", Err: err})
		return
	}

	todayVisits, err := countVisits(db, hospitalID, today, "")
	if err != nil {
		util.CallServerError(c, util.APIErrorParams{Msg: "Failed to count today's visits", Err: err})
		return
	}
	todayFirst, err := countVisits(db, hospitalID, today, model.VisitTypeFirst)
	if err != nil {
		util.CallServerError(c, util.APIErrorParams{Msg: "Failed to count today's first visits", Err: err})
		return
	}

	// New patients today is measured on the roster, not the visit log:
	// patients whose first-visit date is today count even before their
	// first visit entry is written.
	var todayNewPatients int64
	if err := db.Model(&model.Patient{}).
		Where("hospital_id = ? AND first_visit = ?", hospitalID, today).
		Count(&todayNewPatients).Error; err != nil {
		util.CallServerError(c, util.APIErrorParams{Msg: "Failed to count new patients", Err: err})
		return
	}

	series, err := buildWeeklySeries(db, hospitalID, now)
	if err != nil {
		util.CallServerError(c, util.APIErrorParams{Msg: "Failed to build weekly series", Err: err})
		return
	}

	util.CallSuccessOK(c, util.APISuccessParams{
		Msg: "Dashboard metrics retrieved",
		Data: map[string]interface{}{
			"total_patients":      totalPatients,
			"today_visits":        todayVisits,
			"today_new_patients":  todayNewPatients,
			"today_return_visits": todayVisits - todayFirst,
			"weekly":              series,
		},
	})
}
