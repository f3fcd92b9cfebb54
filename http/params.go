package http

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/agrimet-io/telemetry-api/db"
)

var dateRe = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)

// sortAllowList maps the client-visible sort names of one endpoint onto the
// engine's enumerated sort fields. Anything outside the list falls back to the
// endpoint default rather than erroring.
type sortAllowList map[string]db.SortField

var flatSorts = sortAllowList{
	"date":      db.SortDate,
	"time":      db.SortTime,
	"point":     db.SortPoint,
	"createdAt": db.SortCreatedAt,
	"updatedAt": db.SortUpdatedAt,
}

// Both time and time_group name the synthetic bucket column.
var bucketSorts = sortAllowList{
	"date":       db.SortDate,
	"point":      db.SortPoint,
	"time":       db.SortTimeGroup,
	"time_group": db.SortTimeGroup,
}

// rawListParams is the untrusted request input to the query normalizer.
type rawListParams struct {
	Date  string
	Point string
	Page  string
	Count string
	Sort  string
	Dir   string
}

// normalizeListQuery turns raw request parameters into a canonical query.
// A malformed date or point is an error; everything else falls back to safe
// defaults, with the page size hard-clamped at maxPageSize. The upper date
// bound is always "today" at call time, never client input.
func normalizeListQuery(raw rawListParams, allowed sortAllowList, defaultSort db.SortField,
	defaultPageSize, maxPageSize int, now time.Time) (db.ReadingQuery, error) {

	if !dateRe.MatchString(raw.Date) {
		return db.ReadingQuery{}, db.ValidationError("date must be in YYYY-MM-DD format")
	}

	q := db.ReadingQuery{
		DateFrom: raw.Date,
		DateTo:   now.UTC().Format("2006-01-02"),
		Page:     1,
		PageSize: defaultPageSize,
		Sort:     defaultSort,
		Dir:      db.SortDesc,
	}

	if raw.Point != "" {
		point, err := strconv.Atoi(raw.Point)
		if err != nil || point < 1 || point > 5 {
			return db.ReadingQuery{}, db.ValidationError("point must be between 1 and 5")
		}
		q.Point = &point
	}

	if page, err := strconv.Atoi(raw.Page); err == nil && page > 0 {
		q.Page = page
	}

	if count, err := strconv.Atoi(raw.Count); err == nil && count > 0 {
		if count > maxPageSize {
			count = maxPageSize
		}
		q.PageSize = count
	}

	if field, ok := allowed[raw.Sort]; ok {
		q.Sort = field
	}

	switch strings.ToUpper(raw.Dir) {
	case string(db.SortAsc):
		q.Dir = db.SortAsc
	case string(db.SortDesc):
		q.Dir = db.SortDesc
	}

	return q, nil
}
