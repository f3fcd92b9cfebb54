package db

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/agrimet-io/telemetry-api/metrics"
)

// SortField is an enumerated sort key. Only values produced by the query
// normalizer reach this package, so client strings never touch SQL text.
type SortField string

const (
	SortDate      SortField = "date"
	SortTime      SortField = "time"
	SortPoint     SortField = "point"
	SortCreatedAt SortField = "createdAt"
	SortUpdatedAt SortField = "updatedAt"
	SortTimeGroup SortField = "time_group"
)

// SortDirection is ASC or DESC.
type SortDirection string

const (
	SortAsc  SortDirection = "ASC"
	SortDesc SortDirection = "DESC"
)

var orderColumns = map[SortField]string{
	SortDate:      "obs_date",
	SortTime:      "obs_time",
	SortPoint:     "point",
	SortCreatedAt: "created_at",
	SortUpdatedAt: "updated_at",
	SortTimeGroup: "time_group",
}

// ReadingQuery is the canonical, normalized form of a list query. It is built
// per request and discarded after use.
type ReadingQuery struct {
	DateFrom string
	DateTo   string
	Point    *int
	Page     int
	PageSize int
	Sort     SortField
	Dir      SortDirection
}

// ReadingPage is one page of raw readings plus the total match count.
type ReadingPage struct {
	Readings   []WeatherReading
	TotalCount int
}

// BucketedReading is the per-channel average of all samples sharing one
// (date, five-minute bucket, point) group. Per-point channels stay null when
// no row in the bucket carried a value.
type BucketedReading struct {
	Date  string `json:"date"`
	Time  string `json:"time"`
	Point int    `json:"point"`

	AirTemperature  float64 `json:"airTemperature"`
	AirHumidity     float64 `json:"airHumidity"`
	AirPressure     float64 `json:"airPressure"`
	SoilTemperature float64 `json:"soilTemperature"`
	SoilHumidity    float64 `json:"soilHumidity"`
	SoilEC          float64 `json:"soilEC"`
	Pyranometer     float64 `json:"pyranometer"`

	PasteTypeTemperature *float64 `json:"pasteTypeTemperature"`
	WindSpeed            *float64 `json:"windSpeed"`
	WindDirection        *float64 `json:"windDirection"`
	SolarRadiation       *float64 `json:"solarRadiation"`
	Rainfall             *float64 `json:"rainfall"`
	CO2                  *float64 `json:"co2"`
}

// BucketPage is one page of bucket-averaged readings plus the total number of
// distinct buckets matching the filter.
type BucketPage struct {
	Readings   []BucketedReading
	TotalCount int
}

// largeResultThreshold is the row count past which a flat range query is
// considered warn-worthy; requests above it still succeed.
const largeResultThreshold = 10000

// bucketExpr floors the minute-of-hour to its lower multiple of five and
// re-renders the result as HH:MM:SS. Integer division does the flooring.
const bucketExpr = `to_char(make_time(` +
	`extract(hour from obs_time::time)::int, ` +
	`(extract(minute from obs_time::time)::int / 5) * 5, 0), 'HH24:MI:SS')`

func (q ReadingQuery) whereClause() (string, []any) {
	conditions := []string{
		"deleted_at IS NULL",
		"obs_date >= $1",
		"obs_date <= $2",
	}
	args := []any{q.DateFrom, q.DateTo}

	if q.Point != nil {
		conditions = append(conditions, "point = $"+strconv.Itoa(len(args)+1))
		args = append(args, *q.Point)
	}

	return "WHERE " + strings.Join(conditions, " AND "), args
}

func (q ReadingQuery) offset() int {
	return (q.Page - 1) * q.PageSize
}

func buildRangeSQL(q ReadingQuery) (countSQL, dataSQL string, countArgs, dataArgs []any) {
	where, args := q.whereClause()

	countSQL = "SELECT COUNT(*) FROM agrimet.weather_readings " + where
	countArgs = args

	limitPos := len(args) + 1
	offsetPos := len(args) + 2
	dataArgs = append(append([]any{}, args...), q.PageSize, q.offset())

	query := strings.Builder{}
	query.WriteString("SELECT " + readingColumns + " ")
	query.WriteString("FROM agrimet.weather_readings ")
	query.WriteString(where + " ")
	query.WriteString("ORDER BY " + orderColumns[q.Sort] + " " + string(q.Dir) + " ")
	query.WriteString("LIMIT $" + strconv.Itoa(limitPos) + " OFFSET $" + strconv.Itoa(offsetPos))
	dataSQL = query.String()

	return countSQL, dataSQL, countArgs, dataArgs
}

// RangeReadings runs the flat date-range query: one COUNT for pagination
// metadata, then one page of rows. The two phases use independent pool
// connections and are not transactionally consistent under concurrent writes.
func (s *Store) RangeReadings(ctx context.Context, q ReadingQuery) (*ReadingPage, error) {
	countSQL, dataSQL, countArgs, dataArgs := buildRangeSQL(q)

	var total int
	if err := s.pool.QueryRow(ctx, countSQL, countArgs...).Scan(&total); err != nil {
		metrics.QueriesTotal.WithLabelValues("range", "error").Inc()
		return nil, err
	}

	if total > largeResultThreshold {
		metrics.LargeResultSets.Inc()
		slog.Warn("range query matched a large result set",
			"total", total, "date_from", q.DateFrom, "date_to", q.DateTo)
	}

	rows, err := s.pool.Query(ctx, dataSQL, dataArgs...)
	if err != nil {
		metrics.QueriesTotal.WithLabelValues("range", "error").Inc()
		return nil, err
	}
	defer rows.Close()

	readings := make([]WeatherReading, 0, q.PageSize)
	for rows.Next() {
		r, err := scanReading(rows)
		if err != nil {
			metrics.QueriesTotal.WithLabelValues("range", "error").Inc()
			return nil, err
		}
		readings = append(readings, *r)
	}
	if err := rows.Err(); err != nil {
		metrics.QueriesTotal.WithLabelValues("range", "error").Inc()
		return nil, err
	}

	metrics.QueriesTotal.WithLabelValues("range", "ok").Inc()
	return &ReadingPage{Readings: readings, TotalCount: total}, nil
}

func buildBucketSQL(q ReadingQuery) (countSQL, dataSQL string, countArgs, dataArgs []any) {
	where, args := q.whereClause()

	countSQL = "SELECT COUNT(*) FROM (" +
		"SELECT 1 FROM agrimet.weather_readings " + where +
		" GROUP BY obs_date, " + bucketExpr + ", point) AS buckets"
	countArgs = args

	limitPos := len(args) + 1
	offsetPos := len(args) + 2
	dataArgs = append(append([]any{}, args...), q.PageSize, q.offset())

	order := "ORDER BY " + orderColumns[q.Sort] + " " + string(q.Dir)
	if q.Sort != SortTimeGroup {
		order += ", time_group " + string(q.Dir)
	}

	query := strings.Builder{}
	query.WriteString("SELECT to_char(obs_date, 'YYYY-MM-DD') AS obs_date, ")
	query.WriteString(bucketExpr + " AS time_group, point, ")
	query.WriteString("AVG(air_temperature) AS air_temperature, ")
	query.WriteString("AVG(air_humidity) AS air_humidity, ")
	query.WriteString("AVG(air_pressure) AS air_pressure, ")
	query.WriteString("AVG(soil_temperature) AS soil_temperature, ")
	query.WriteString("AVG(soil_humidity) AS soil_humidity, ")
	query.WriteString("AVG(soil_ec) AS soil_ec, ")
	query.WriteString("AVG(pyranometer) AS pyranometer, ")
	query.WriteString("AVG(paste_type_temperature) AS paste_type_temperature, ")
	query.WriteString("AVG(wind_speed) AS wind_speed, ")
	query.WriteString("AVG(wind_direction) AS wind_direction, ")
	query.WriteString("AVG(solar_radiation) AS solar_radiation, ")
	query.WriteString("AVG(rainfall) AS rainfall, ")
	query.WriteString("AVG(co2) AS co2 ")
	query.WriteString("FROM agrimet.weather_readings ")
	query.WriteString(where + " ")
	query.WriteString("GROUP BY obs_date, time_group, point ")
	query.WriteString(order + " ")
	query.WriteString("LIMIT $" + strconv.Itoa(limitPos) + " OFFSET $" + strconv.Itoa(offsetPos))
	dataSQL = query.String()

	return countSQL, dataSQL, countArgs, dataArgs
}

// BucketedReadings groups raw samples into five-minute buckets per (date,
// bucket, point) and averages every channel, then paginates over the grouped
// relation. The count phase counts distinct buckets, not raw rows.
func (s *Store) BucketedReadings(ctx context.Context, q ReadingQuery) (*BucketPage, error) {
	countSQL, dataSQL, countArgs, dataArgs := buildBucketSQL(q)

	var total int
	err := s.pool.QueryRow(ctx, countSQL, countArgs...).Scan(&total)
	if errors.Is(err, pgx.ErrNoRows) {
		// no result set at all: zero buckets, not a failure
		metrics.QueriesTotal.WithLabelValues("bucket", "ok").Inc()
		return &BucketPage{Readings: []BucketedReading{}}, nil
	}
	if err != nil {
		metrics.QueriesTotal.WithLabelValues("bucket", "error").Inc()
		return nil, err
	}

	rows, err := s.pool.Query(ctx, dataSQL, dataArgs...)
	if err != nil {
		metrics.QueriesTotal.WithLabelValues("bucket", "error").Inc()
		return nil, err
	}
	defer rows.Close()

	readings := make([]BucketedReading, 0, q.PageSize)
	for rows.Next() {
		var b BucketedReading
		if err := rows.Scan(
			&b.Date,
			&b.Time,
			&b.Point,
			&b.AirTemperature,
			&b.AirHumidity,
			&b.AirPressure,
			&b.SoilTemperature,
			&b.SoilHumidity,
			&b.SoilEC,
			&b.Pyranometer,
			&b.PasteTypeTemperature,
			&b.WindSpeed,
			&b.WindDirection,
			&b.SolarRadiation,
			&b.Rainfall,
			&b.CO2,
		); err != nil {
			metrics.QueriesTotal.WithLabelValues("bucket", "error").Inc()
			return nil, err
		}
		readings = append(readings, b)
	}
	if err := rows.Err(); err != nil {
		metrics.QueriesTotal.WithLabelValues("bucket", "error").Inc()
		return nil, err
	}

	metrics.QueriesTotal.WithLabelValues("bucket", "ok").Inc()
	return &BucketPage{Readings: readings, TotalCount: total}, nil
}
