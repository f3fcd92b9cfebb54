package http

import (
	"context"
	"errors"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/agrimet-io/telemetry-api/db"
)

var timeRe = regexp.MustCompile(`^\d{2}:\d{2}:\d{2}$`)

// readingRequest is the write DTO. Every field is a pointer so missing and
// zero values stay distinguishable for partial updates and required-field
// checks.
type readingRequest struct {
	Date  *string `json:"date"`
	Time  *string `json:"time"`
	Point *int    `json:"point"`

	AirTemperature  *float64 `json:"airTemperature"`
	AirHumidity     *float64 `json:"airHumidity"`
	AirPressure     *float64 `json:"airPressure"`
	SoilTemperature *float64 `json:"soilTemperature"`
	SoilHumidity    *float64 `json:"soilHumidity"`
	SoilEC          *float64 `json:"soilEC"`
	Pyranometer     *float64 `json:"pyranometer"`

	PasteTypeTemperature *float64 `json:"pasteTypeTemperature"`
	WindSpeed            *float64 `json:"windSpeed"`
	WindDirection        *float64 `json:"windDirection"`
	SolarRadiation       *float64 `json:"solarRadiation"`
	Rainfall             *float64 `json:"rainfall"`
	CO2                  *float64 `json:"co2"`
}

func (r readingRequest) missingRequired() []string {
	var missing []string
	check := func(name string, ok bool) {
		if !ok {
			missing = append(missing, name)
		}
	}
	check("date", r.Date != nil)
	check("time", r.Time != nil)
	check("point", r.Point != nil)
	check("airTemperature", r.AirTemperature != nil)
	check("airHumidity", r.AirHumidity != nil)
	check("airPressure", r.AirPressure != nil)
	check("soilTemperature", r.SoilTemperature != nil)
	check("soilHumidity", r.SoilHumidity != nil)
	check("soilEC", r.SoilEC != nil)
	check("pyranometer", r.Pyranometer != nil)
	return missing
}

func (r readingRequest) formatViolations() []string {
	var bad []string
	if r.Date != nil && !dateRe.MatchString(*r.Date) {
		bad = append(bad, "date must be in YYYY-MM-DD format")
	}
	if r.Time != nil && !timeRe.MatchString(*r.Time) {
		bad = append(bad, "time must be in HH:MM:SS format")
	}
	return bad
}

func (s *Server) handleCreateReading(c *gin.Context) {
	var req readingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "invalid request body")
		return
	}

	if missing := req.missingRequired(); len(missing) > 0 {
		respondError(c, http.StatusBadRequest, strings.Join(missing, ", ")+" required")
		return
	}
	if violations := req.formatViolations(); len(violations) > 0 {
		respondError(c, http.StatusBadRequest, strings.Join(violations, ", "))
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
	defer cancel()

	reading, err := s.store.CreateReading(ctx, db.NewReading{
		Date:                 *req.Date,
		Time:                 *req.Time,
		Point:                *req.Point,
		AirTemperature:       *req.AirTemperature,
		AirHumidity:          *req.AirHumidity,
		AirPressure:          *req.AirPressure,
		SoilTemperature:      *req.SoilTemperature,
		SoilHumidity:         *req.SoilHumidity,
		SoilEC:               *req.SoilEC,
		Pyranometer:          *req.Pyranometer,
		PasteTypeTemperature: req.PasteTypeTemperature,
		WindSpeed:            req.WindSpeed,
		WindDirection:        req.WindDirection,
		SolarRadiation:       req.SolarRadiation,
		Rainfall:             req.Rainfall,
		CO2:                  req.CO2,
	})
	if err != nil {
		var verr db.ValidationError
		if errors.As(err, &verr) {
			respondError(c, http.StatusBadRequest, verr.Error())
			return
		}
		s.logger.Error("create reading failed", "error", err)
		respondError(c, http.StatusInternalServerError, "data write failed")
		return
	}

	respondData(c, http.StatusCreated, "weather reading created", reading)
}

func readingID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		respondError(c, http.StatusBadRequest, "invalid reading id")
		return 0, false
	}
	return id, true
}

func (s *Server) handleGetReading(c *gin.Context) {
	id, ok := readingID(c)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
	defer cancel()

	reading, err := s.store.GetReading(ctx, id)
	if err != nil {
		s.logger.Error("get reading failed", "id", id, "error", err)
		respondError(c, http.StatusInternalServerError, "data retrieval failed")
		return
	}
	if reading == nil {
		respondError(c, http.StatusNotFound, "weather reading not found")
		return
	}

	respondData(c, http.StatusOK, "weather reading retrieved", reading)
}

func (s *Server) handleUpdateReading(c *gin.Context) {
	id, ok := readingID(c)
	if !ok {
		return
	}

	var req readingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "invalid request body")
		return
	}
	if violations := req.formatViolations(); len(violations) > 0 {
		respondError(c, http.StatusBadRequest, strings.Join(violations, ", "))
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
	defer cancel()

	reading, err := s.store.UpdateReading(ctx, id, db.ReadingPatch{
		Date:                 req.Date,
		Time:                 req.Time,
		Point:                req.Point,
		AirTemperature:       req.AirTemperature,
		AirHumidity:          req.AirHumidity,
		AirPressure:          req.AirPressure,
		SoilTemperature:      req.SoilTemperature,
		SoilHumidity:         req.SoilHumidity,
		SoilEC:               req.SoilEC,
		Pyranometer:          req.Pyranometer,
		PasteTypeTemperature: req.PasteTypeTemperature,
		WindSpeed:            req.WindSpeed,
		WindDirection:        req.WindDirection,
		SolarRadiation:       req.SolarRadiation,
		Rainfall:             req.Rainfall,
		CO2:                  req.CO2,
	})
	if err != nil {
		var verr db.ValidationError
		if errors.As(err, &verr) {
			respondError(c, http.StatusBadRequest, verr.Error())
			return
		}
		s.logger.Error("update reading failed", "id", id, "error", err)
		respondError(c, http.StatusInternalServerError, "data write failed")
		return
	}
	if reading == nil {
		respondError(c, http.StatusNotFound, "weather reading not found")
		return
	}

	respondData(c, http.StatusOK, "weather reading updated", reading)
}

func (s *Server) handleDeleteReading(c *gin.Context) {
	id, ok := readingID(c)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
	defer cancel()

	found, err := s.store.DeleteReading(ctx, id)
	if err != nil {
		s.logger.Error("delete reading failed", "id", id, "error", err)
		respondError(c, http.StatusInternalServerError, "data write failed")
		return
	}
	if !found {
		respondError(c, http.StatusNotFound, "weather reading not found")
		return
	}

	respondData(c, http.StatusOK, "weather reading deleted", nil)
}

func listParams(c *gin.Context) rawListParams {
	return rawListParams{
		Date:  c.Param("date"),
		Point: c.Query("point"),
		Page:  c.Query("page"),
		Count: c.Query("count"),
		Sort:  c.Query("sort"),
		Dir:   c.Query("dir"),
	}
}

// handleRangeByDate serves GET /weather/from-date/:date, the flat
// date-windowed query with pagination metadata from an independent count.
func (s *Server) handleRangeByDate(c *gin.Context) {
	q, err := normalizeListQuery(listParams(c), flatSorts, db.SortDate,
		s.cfg.DefaultPageSize, s.cfg.MaxPageSize, time.Now())
	if err != nil {
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 15*time.Second)
	defer cancel()

	page, err := s.store.RangeReadings(ctx, q)
	if err != nil {
		s.logger.Error("range query failed",
			"date_from", q.DateFrom, "point", q.Point, "page", q.Page, "error", err)
		respondError(c, http.StatusInternalServerError, "data retrieval failed")
		return
	}

	respondList(c, "weather readings retrieved", page.Readings, len(page.Readings), page.TotalCount)
}

// handleBucketedByDate serves GET /weather/by-five-minute/:date, the
// five-minute bucket aggregation paginated over buckets.
func (s *Server) handleBucketedByDate(c *gin.Context) {
	q, err := normalizeListQuery(listParams(c), bucketSorts, db.SortDate,
		s.cfg.DefaultPageSize, s.cfg.MaxPageSize, time.Now())
	if err != nil {
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 15*time.Second)
	defer cancel()

	page, err := s.store.BucketedReadings(ctx, q)
	if err != nil {
		s.logger.Error("bucketed query failed",
			"date_from", q.DateFrom, "point", q.Point, "page", q.Page, "error", err)
		respondError(c, http.StatusInternalServerError, "data retrieval failed")
		return
	}

	respondList(c, "weather readings retrieved", page.Readings, len(page.Readings), page.TotalCount)
}
