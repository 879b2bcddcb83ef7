package endpoint

import (
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/seojin-dev/hospital-desk/model"
	"github.com/seojin-dev/hospital-desk/util"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"
	"gorm.io/gorm"
)

const patientsPerPage = 10

// pageWindowSize is how many page-number buttons the client shows at once;
// the strip slides in whole blocks (1-10, 11-20, ...).
const pageWindowSize = 10

type patientListQuery struct {
	SortBy  string // chart_no | name | birth
	SortDir string // asc | desc
	Page    int
}

func parsePatientListQuery(c *gin.Context) patientListQuery {
	page, _ := strconv.Atoi(c.Query("page"))
	if page < 1 {
		page = 1
	}
	return patientListQuery{
		SortBy:  c.Query("sort"),
		SortDir: strings.ToLower(c.Query("sort_dir")),
		Page:    page,
	}
}

// chartNoValue coerces a chart number to its numeric value for sorting;
// non-numeric chart numbers sort as 0.
func chartNoValue(chartNo string) int {
	n, err := strconv.Atoi(strings.TrimSpace(chartNo))
	if err != nil {
		return 0
	}
	return n
}

// sortPatients orders a snapshot by the requested key. Names compare with
// Korean collation, chart numbers numerically, births by their derived sort
// key. The input order (creation time descending) is preserved for unknown
// keys and between equal elements.
func sortPatients(patients []model.Patient, sortBy, sortDir string, now time.Time) []model.Patient {
	sorted := make([]model.Patient, len(patients))
	copy(sorted, patients)

	var less func(a, b model.Patient) bool
	switch sortBy {
	case "name":
		col := collate.New(language.Korean)
		less = func(a, b model.Patient) bool {
			return col.CompareString(a.Name, b.Name) < 0
		}
	case "chart_no":
		less = func(a, b model.Patient) bool {
			return chartNoValue(a.ChartNo) < chartNoValue(b.ChartNo)
		}
	case "birth":
		less = func(a, b model.Patient) bool {
			return util.BirthSortKey(a.Birth, now) < util.BirthSortKey(b.Birth, now)
		}
	default:
		return sorted
	}

	desc := sortDir == "desc"
	sort.SliceStable(sorted, func(i, j int) bool {
		if desc {
			return less(sorted[j], sorted[i])
		}
		return less(sorted[i], sorted[j])
	})
	return sorted
}

// pageInfo carries everything the client needs to render the pagination
// strip: the clamped current page, the sliding window of page numbers, and
// boundary flags for the first/prev/next/last controls.
type pageInfo struct {
	Page        int   `json:"page"`
	TotalPages  int   `json:"total_pages"`
	PageNumbers []int `json:"page_numbers"`
	HasPrev     bool  `json:"has_prev"`
	HasNext     bool  `json:"has_next"`
}

func pageWindow(page, totalPages int) []int {
	if totalPages == 0 {
		return []int{}
	}
	block := (page - 1) / pageWindowSize
	start := block*pageWindowSize + 1
	end := start + pageWindowSize - 1
	if end > totalPages {
		end = totalPages
	}
	numbers := make([]int, 0, pageWindowSize)
	for i := start; i <= end; i++ {
		numbers = append(numbers, i)
	}
	return numbers
}

// paginatePatients returns the requested page (clamped into range) of a
// sorted snapshot plus the strip metadata. An empty snapshot yields page 0
// with every control disabled.
func paginatePatients(patients []model.Patient, page int) ([]model.Patient, pageInfo) {
	totalPages := (len(patients) + patientsPerPage - 1) / patientsPerPage
	if totalPages == 0 {
		return nil, pageInfo{Page: 0, TotalPages: 0, PageNumbers: []int{}}
	}
	if page < 1 {
		page = 1
	}
	if page > totalPages {
		page = totalPages
	}
	start := (page - 1) * patientsPerPage
	end := start + patientsPerPage
	if end > len(patients) {
		end = len(patients)
	}
	return patients[start:end], pageInfo{
		Page:        page,
		TotalPages:  totalPages,
		PageNumbers: pageWindow(page, totalPages),
		HasPrev:     page > 1,
		HasNext:     page < totalPages,
	}
}

// patientView is one rendered patient row: the stored fields plus the
// display age derived from the birth digits.
type patientView struct {
	ID         uint   `json:"id"`
	ChartNo    string `json:"chart_no"`
	Name       string `json:"name"`
	Birth      string `json:"birth"`
	Age        string `json:"age"`
	Gender     string `json:"gender"`
	Phone      string `json:"phone"`
	FirstVisit string `json:"first_visit"`
}

func toPatientViews(patients []model.Patient, now time.Time) []patientView {
	views := make([]patientView, 0, len(patients))
	for _, p := range patients {
		views = append(views, patientView{
			ID:         p.ID,
			ChartNo:    p.ChartNo,
			Name:       p.Name,
			Birth:      p.Birth,
			Age:        util.FormatAge(p.Birth, now),
			Gender:     p.Gender,
			Phone:      p.Phone,
			FirstVisit: p.FirstVisit,
		})
	}
	return views
}

func fetchTenantPatients(db *gorm.DB, hospitalID string) ([]model.Patient, error) {
	var patients []model.Patient
	err := db.Where("hospital_id = ?", hospitalID).
		Order("created_at DESC").
		Find(&patients).Error
	return patients, err
}

// ListPatients godoc
// @Summary      List patients
// @Description  Tenant-scoped patient list with sorting and windowed pagination
// @Tags         Patient
// @Produce      json
// @Security     SessionToken
// @Param        sort query string false "Sort key: chart_no|name|birth (default: creation time, newest first)"
// @Param        sort_dir query string false "Sort direction: asc|desc"
// @Param        page query int false "Page number (10 patients per page)"
// @Success      200 {object} util.APIResponse{data=object} "Patients retrieved"
// @Failure      401 {object} util.APIResponse "Unauthorized"
// @Failure      500 {object} util.APIResponse "Server error"
// @Router       /patient [get]
func ListPatients(c *gin.Context) {
	query := parsePatientListQuery(c)

	db, ok := getDBOrRespond(c)
	if !ok {
		return
	}
	hospitalID, ok := getTenantOrRespond(c)
	if !ok {
		return
	}

	patients, err := fetchTenantPatients(db, hospitalID)
	if err != nil {
		util.CallServerError(c, util.APIErrorParams{Msg: "Failed to retrieve patients", Err: err})
		return
	}

	now := time.Now()
	sorted := sortPatients(patients, query.SortBy, query.SortDir, now)
	pagePatients, info := paginatePatients(sorted, query.Page)

	util.CallSuccessOK(c, util.APISuccessParams{
		Msg: "Patients retrieved",
		Data: map[string]interface{}{
			"total":      len(patients),
			"pagination": info,
			"patients":   toPatientViews(pagePatients, now),
		},
	})
}

// DownloadPatientTemplate godoc
// @Summary      Download import template
// @Description  Spreadsheet template with the recognized patient columns and one example row
// @Tags         Patient
// @Produce      application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Security     SessionToken
// @Success      200 {file} binary "Template workbook"
// @Failure      500 {object} util.APIResponse "Server error"
// @Router       /patient/template [get]
func DownloadPatientTemplate(c *gin.Context) {
	data, err := util.GeneratePatientTemplate()
	if err != nil {
		util.CallServerError(c, util.APIErrorParams{Msg: "Failed to generate template", Err: err})
		return
	}

	c.Header("Content-Disposition", `attachment; filename="patient-import-template.xlsx"`)
	c.Data(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", data)
}

// PatientCandidate is one row of an import preview. The preview id is
// client-side only; persistence assigns its own id on commit.
type PatientCandidate struct {
	ID         string `json:"id"`
	ChartNo    string `json:"chart_no"`
	Name       string `json:"name"`
	RRN        string `json:"rrn"`
	Birth      string `json:"birth"`
	Gender     string `json:"gender"`
	Phone      string `json:"phone"`
	FirstVisit string `json:"first_visit"`
	HospitalID string `json:"hospital_id"`
}

// buildCandidates maps parsed spreadsheet rows to preview candidates:
// digits-only rrn, birth from its first six digits, gender from the seventh,
// first visit defaulting to today. Missing cells stay empty strings.
func buildCandidates(rows []util.PatientRow, hospitalID string, now time.Time) []PatientCandidate {
	today := util.FormatCanonicalDate(now)
	candidates := make([]PatientCandidate, 0, len(rows))
	for _, row := range rows {
		rrn := util.DigitsOnly(row.RRN)
		birth := rrn
		if len(birth) > 6 {
			birth = birth[:6]
		}
		candidates = append(candidates, PatientCandidate{
			ID:         uuid.NewString(),
			ChartNo:    strings.TrimSpace(row.ChartNo),
			Name:       util.NormalizeName(row.Name),
			RRN:        rrn,
			Birth:      birth,
			Gender:     util.GenderFromRRN(rrn),
			Phone:      strings.TrimSpace(row.Phone),
			FirstVisit: today,
			HospitalID: hospitalID,
		})
	}
	return candidates
}

// ImportPatients godoc
// @Summary      Parse an uploaded patient spreadsheet
// @Description  Produces the import preview only; nothing is persisted until the preview is committed
// @Tags         Patient
// @Accept       multipart/form-data
// @Produce      json
// @Security     SessionToken
// @Param        file formData file true "xlsx/xls upload"
// @Success      200 {object} util.APIResponse{data=object} "Preview candidates"
// @Failure      400 {object} util.APIResponse "Missing or unreadable file"
// @Failure      401 {object} util.APIResponse "Unauthorized"
// @Router       /patient/import [post]
func ImportPatients(c *gin.Context) {
	hospitalID, ok := getTenantOrRespond(c)
	if !ok {
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		util.CallUserError(c, util.APIErrorParams{Msg: "Spreadsheet file not found in request", Err: err})
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		util.CallUserError(c, util.APIErrorParams{Msg: "Failed to open uploaded file", Err: err})
		return
	}
	defer file.Close()

	rows, err := util.ParsePatientSheet(file)
	if err != nil {
		util.CallUserError(c, util.APIErrorParams{Msg: "Failed to parse spreadsheet", Err: err})
		return
	}

	candidates := buildCandidates(rows, hospitalID, time.Now())

	util.CallSuccessOK(c, util.APISuccessParams{
		Msg: "Spreadsheet parsed",
		Data: map[string]interface{}{
			"total":      len(candidates),
			"candidates": candidates,
		},
	})
}

type CommitPatientsRequest struct {
	Candidates []PatientCandidate `json:"candidates" binding:"required"`
}

// commitCandidate inserts one candidate unless the tenant already holds a
// patient with the same name, birth and phone. The duplicate check runs
// inside the insert transaction so two racing imports of the same tenant
// cannot both pass it.
func commitCandidate(db *gorm.DB, cand PatientCandidate, hospitalID string) (inserted bool, err error) {
	err = db.Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&model.Patient{}).
			Where("hospital_id = ? AND name = ? AND birth = ? AND phone = ?",
				hospitalID, cand.Name, cand.Birth, cand.Phone).
			Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return nil
		}
		inserted = true
		return tx.Create(&model.Patient{
			ChartNo:    cand.ChartNo,
			Name:       cand.Name,
			RRN:        cand.RRN,
			Birth:      cand.Birth,
			Gender:     cand.Gender,
			Phone:      cand.Phone,
			FirstVisit: cand.FirstVisit,
			HospitalID: hospitalID,
		}).Error
	})
	return inserted, err
}

// CommitPatients godoc
// @Summary      Commit an import preview
// @Description  Inserts each confirmed candidate unless a tenant-scoped duplicate (same name, birth, phone) exists. The first failure aborts the remaining batch; counts reflect completed work.
// @Tags         Patient
// @Accept       json
// @Produce      json
// @Security     SessionToken
// @Param        request body CommitPatientsRequest true "Confirmed candidates"
// @Success      200 {object} util.APIResponse{data=object} "Inserted and skipped counts"
// @Failure      400 {object} util.APIResponse "Empty candidate list"
// @Failure      401 {object} util.APIResponse "Unauthorized"
// @Failure      500 {object} util.APIResponse "Batch aborted"
// @Router       /patient/commit [post]
func CommitPatients(c *gin.Context) {
	var req CommitPatientsRequest
	if !bindJSONOrRespond(c, &req, "Invalid request payload") {
		return
	}
	if len(req.Candidates) == 0 {
		util.CallUserError(c, util.APIErrorParams{
			Msg: "No patient candidates to commit",
			Err: fmt.Errorf("empty candidate list"),
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
	userID, ok := getUserIDOrRespond(c)
	if !ok {
		return
	}

	insertedCount := 0
	skippedCount := 0
	today := util.FormatCanonicalDate(time.Now())

	// Candidates commit one at a time, in upload order.
	for _, cand := range req.Candidates {
		cand.Name = util.NormalizeName(cand.Name)
		cand.Phone = strings.TrimSpace(cand.Phone)
		if cand.FirstVisit == "" {
			cand.FirstVisit = today
		}

		inserted, err := commitCandidate(db, cand, hospitalID)
		if err != nil {
			// Abort the remainder; report what completed before the failure.
			util.CallServerError(c, util.APIErrorParams{
				Msg: fmt.Sprintf("Import aborted after %d inserted, %d skipped", insertedCount, skippedCount),
				Err: err,
			})
			return
		}
		if inserted {
			insertedCount++
		} else {
			skippedCount++
		}
	}

	util.LogPatientImport(userID, hospitalID, c.ClientIP(), insertedCount, skippedCount)

	util.CallSuccessOK(c, util.APISuccessParams{
		Msg: "Patients committed",
		Data: map[string]interface{}{
			"inserted": insertedCount,
			"skipped":  skippedCount,
		},
	})
}

// SearchPatients godoc
// @Summary      Search patients for the add-visit flow
// @Description  Matches by chart-number digit substring (type=chart_no) or name substring (type=name), scoped to the tenant
// @Tags         Patient
// @Produce      json
// @Security     SessionToken
// @Param        type query string false "chart_no or name (default chart_no)"
// @Param        q query string true "Search term"
// @Success      200 {object} util.APIResponse{data=object} "Matching patients"
// @Failure      401 {object} util.APIResponse "Unauthorized"
// @Failure      500 {object} util.APIResponse "Server error"
// @Router       /patient/search [get]
func SearchPatients(c *gin.Context) {
	searchType := c.DefaultQuery("type", "chart_no")
	term := strings.TrimSpace(c.Query("q"))

	db, ok := getDBOrRespond(c)
	if !ok {
		return
	}
	hospitalID, ok := getTenantOrRespond(c)
	if !ok {
		return
	}

	if term == "" {
		util.CallSuccessOK(c, util.APISuccessParams{
			Msg:  "Patients retrieved",
			Data: map[string]interface{}{"total": 0, "patients": []model.Patient{}},
		})
		return
	}

	patients, err := fetchTenantPatients(db, hospitalID)
	if err != nil {
		util.CallServerError(c, util.APIErrorParams{Msg: "Failed to retrieve patients", Err: err})
		return
	}

	matches := filterPatients(patients, searchType, term)

	util.CallSuccessOK(c, util.APISuccessParams{
		Msg:  "Patients retrieved",
		Data: map[string]interface{}{"total": len(matches), "patients": matches},
	})
}

// filterPatients applies the add-visit search: chart-number matching uses
// digit substrings on both sides, name matching plain substrings.
func filterPatients(patients []model.Patient, searchType, term string) []model.Patient {
	matches := []model.Patient{}
	if searchType == "name" {
		for _, p := range patients {
			if strings.Contains(p.Name, term) {
				matches = append(matches, p)
			}
		}
		return matches
	}

	digits := util.DigitsOnly(term)
	if digits == "" {
		return matches
	}
	for _, p := range patients {
		if strings.Contains(util.DigitsOnly(p.ChartNo), digits) {
			matches = append(matches, p)
		}
	}
	return matches
}
