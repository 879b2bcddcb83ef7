package endpoint

import (
	"time"

	"github.com/gin-gonic/gin"
	cache "github.com/patrickmn/go-cache"
	"github.com/seojin-dev/hospital-desk/model"
	"github.com/seojin-dev/hospital-desk/util"
)

// The hospital list changes only when a new tenant registers, so a short
// TTL cache keeps the public signup page from hammering the table.
var hospitalListCache = cache.New(time.Minute, 5*time.Minute)

const hospitalListCacheKey = "hospital_list"

type HospitalEntry struct {
	HospitalID   string `json:"hospital_id"`
	HospitalName string `json:"hospital_name"`
}

// ListHospitals godoc
// @Summary      List hospitals
// @Description  Registration-time tenant lookup: the hospitals a new staff account can join
// @Tags         Hospital
// @Produce      json
// @Success      200 {object} util.APIResponse{data=[]HospitalEntry} "Hospitals retrieved"
// @Failure      500 {object} util.APIResponse "Server error"
// @Router       /hospital [get]
func ListHospitals(c *gin.Context) {
	if v, ok := hospitalListCache.Get(hospitalListCacheKey); ok {
		if entries, ok := v.([]HospitalEntry); ok {
			util.CallSuccessOK(c, util.APISuccessParams{
				Msg:  "Hospitals retrieved",
				Data: entries,
			})
			return
		}
	}

	db, ok := getDBOrRespond(c)
	if !ok {
		return
	}

	var hospitals []model.Hospital
	if err := db.Order("hospital_name ASC").Find(&hospitals).Error; err != nil {
		util.CallServerError(c, util.APIErrorParams{Msg: "Failed to retrieve hospitals", Err: err})
		return
	}

	entries := make([]HospitalEntry, 0, len(hospitals))
	for _, h := range hospitals {
		entries = append(entries, HospitalEntry{
			HospitalID:   h.HospitalID,
			HospitalName: h.HospitalName,
		})
	}

	hospitalListCache.Set(hospitalListCacheKey, entries, cache.DefaultExpiration)

	util.CallSuccessOK(c, util.APISuccessParams{
		Msg:  "Hospitals retrieved",
		Data: entries,
	})
}

// FlushHospitalListCache drops the cached hospital list. Called after a
// signup mints a new hospital, and by tests.
func FlushHospitalListCache() {
	hospitalListCache.Delete(hospitalListCacheKey)
}
