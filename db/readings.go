package db

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
)

// WeatherReading is one sensor sample at one monitoring point at one instant.
// Date and time-of-day are kept as separate values; the five-minute bucketing
// query re-parses the time string, so they are never merged into one timestamp.
type WeatherReading struct {
	ID    int64  `json:"id"`
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

	// Per-point channels: pasteTypeTemperature exists only at point 1, the
	// wind/solar/rainfall/co2 cluster only at point 5.
	PasteTypeTemperature *float64 `json:"pasteTypeTemperature"`
	WindSpeed            *float64 `json:"windSpeed"`
	WindDirection        *float64 `json:"windDirection"`
	SolarRadiation       *float64 `json:"solarRadiation"`
	Rainfall             *float64 `json:"rainfall"`
	CO2                  *float64 `json:"co2"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// ValidationError marks a domain-rule violation the caller should report as a
// bad request rather than a storage failure.
type ValidationError string

func (e ValidationError) Error() string { return string(e) }

// NewReading carries the fields for creating a reading.
type NewReading struct {
	Date  string
	Time  string
	Point int

	AirTemperature  float64
	AirHumidity     float64
	AirPressure     float64
	SoilTemperature float64
	SoilHumidity    float64
	SoilEC          float64
	Pyranometer     float64

	PasteTypeTemperature *float64
	WindSpeed            *float64
	WindDirection        *float64
	SolarRadiation       *float64
	Rainfall             *float64
	CO2                  *float64
}

// ReadingPatch is a partial update; nil fields are left untouched.
type ReadingPatch struct {
	Date  *string
	Time  *string
	Point *int

	AirTemperature  *float64
	AirHumidity     *float64
	AirPressure     *float64
	SoilTemperature *float64
	SoilHumidity    *float64
	SoilEC          *float64
	Pyranometer     *float64

	PasteTypeTemperature *float64
	WindSpeed            *float64
	WindDirection        *float64
	SolarRadiation       *float64
	Rainfall             *float64
	CO2                  *float64
}

type conditionalChannel struct {
	name   string
	column string
	point  int
}

var conditionalChannels = []conditionalChannel{
	{name: "pasteTypeTemperature", column: "paste_type_temperature", point: 1},
	{name: "windSpeed", column: "wind_speed", point: 5},
	{name: "windDirection", column: "wind_direction", point: 5},
	{name: "solarRadiation", column: "solar_radiation", point: 5},
	{name: "rainfall", column: "rainfall", point: 5},
	{name: "co2", column: "co2", point: 5},
}

func (n NewReading) conditionalValues() []*float64 {
	return []*float64{n.PasteTypeTemperature, n.WindSpeed, n.WindDirection, n.SolarRadiation, n.Rainfall, n.CO2}
}

func (p ReadingPatch) conditionalValues() []*float64 {
	return []*float64{p.PasteTypeTemperature, p.WindSpeed, p.WindDirection, p.SolarRadiation, p.Rainfall, p.CO2}
}

// validateDate and validateTime guard the stored representation: obs_time is a
// text column, so a malformed value would only surface later as a cast error
// inside the bucketing query.
func validateDate(date string) error {
	if _, err := time.Parse("2006-01-02", date); err != nil || len(date) != 10 {
		return ValidationError("date must be a valid YYYY-MM-DD date")
	}
	return nil
}

func validateTime(tod string) error {
	if _, err := time.Parse("15:04:05", tod); err != nil || len(tod) != 8 {
		return ValidationError("time must be a valid HH:MM:SS time")
	}
	return nil
}

func validatePoint(point int) error {
	if point < 1 || point > 5 {
		return ValidationError("point must be between 1 and 5")
	}
	return nil
}

func validateConditional(point int, values []*float64) error {
	var invalid []string
	for i, ch := range conditionalChannels {
		if values[i] != nil && ch.point != point {
			invalid = append(invalid, ch.name)
		}
	}
	if len(invalid) > 0 {
		return ValidationError(fmt.Sprintf("%s not valid for point %d", strings.Join(invalid, ", "), point))
	}
	return nil
}

// Validate enforces the date and time formats, the point range, and the
// point-conditional channel rule. Every ingest path goes through it.
func (n NewReading) Validate() error {
	if err := validateDate(n.Date); err != nil {
		return err
	}
	if err := validateTime(n.Time); err != nil {
		return err
	}
	if err := validatePoint(n.Point); err != nil {
		return err
	}
	return validateConditional(n.Point, n.conditionalValues())
}

// Validate checks the patch against the point the row will have after the
// update: the incoming point when supplied, the stored one otherwise.
func (p ReadingPatch) Validate(storedPoint int) error {
	if p.Date != nil {
		if err := validateDate(*p.Date); err != nil {
			return err
		}
	}
	if p.Time != nil {
		if err := validateTime(*p.Time); err != nil {
			return err
		}
	}
	effective := storedPoint
	if p.Point != nil {
		if err := validatePoint(*p.Point); err != nil {
			return err
		}
		effective = *p.Point
	}
	return validateConditional(effective, p.conditionalValues())
}

const readingColumns = `id, to_char(obs_date, 'YYYY-MM-DD') AS obs_date, obs_time, point,
    air_temperature, air_humidity, air_pressure, soil_temperature, soil_humidity, soil_ec, pyranometer,
    paste_type_temperature, wind_speed, wind_direction, solar_radiation, rainfall, co2,
    created_at, updated_at`

func scanReading(row pgx.Row) (*WeatherReading, error) {
	var r WeatherReading
	if err := row.Scan(
		&r.ID,
		&r.Date,
		&r.Time,
		&r.Point,
		&r.AirTemperature,
		&r.AirHumidity,
		&r.AirPressure,
		&r.SoilTemperature,
		&r.SoilHumidity,
		&r.SoilEC,
		&r.Pyranometer,
		&r.PasteTypeTemperature,
		&r.WindSpeed,
		&r.WindDirection,
		&r.SolarRadiation,
		&r.Rainfall,
		&r.CO2,
		&r.CreatedAt,
		&r.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &r, nil
}

const insertReadingSQL = `
    INSERT INTO agrimet.weather_readings
        (obs_date, obs_time, point,
         air_temperature, air_humidity, air_pressure, soil_temperature, soil_humidity, soil_ec, pyranometer,
         paste_type_temperature, wind_speed, wind_direction, solar_radiation, rainfall, co2)
    VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
    RETURNING ` + readingColumns

// CreateReading validates and inserts a reading.
func (s *Store) CreateReading(ctx context.Context, n NewReading) (*WeatherReading, error) {
	if err := n.Validate(); err != nil {
		return nil, err
	}

	row := s.pool.QueryRow(ctx, insertReadingSQL,
		n.Date, n.Time, n.Point,
		n.AirTemperature, n.AirHumidity, n.AirPressure, n.SoilTemperature, n.SoilHumidity, n.SoilEC, n.Pyranometer,
		n.PasteTypeTemperature, n.WindSpeed, n.WindDirection, n.SolarRadiation, n.Rainfall, n.CO2,
	)
	return scanReading(row)
}

// GetReading returns a reading by id, or nil when absent or soft-deleted.
func (s *Store) GetReading(ctx context.Context, id int64) (*WeatherReading, error) {
	query := `SELECT ` + readingColumns + `
        FROM agrimet.weather_readings
        WHERE id = $1 AND deleted_at IS NULL`

	reading, err := scanReading(s.pool.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return reading, err
}

// UpdateReading applies a partial update. It returns nil when the reading does
// not exist. When the point changes, stored per-point channels that are no
// longer valid are cleared so the invariant holds on the resulting row.
func (s *Store) UpdateReading(ctx context.Context, id int64, p ReadingPatch) (*WeatherReading, error) {
	var storedPoint int
	err := s.pool.QueryRow(ctx,
		`SELECT point FROM agrimet.weather_readings WHERE id = $1 AND deleted_at IS NULL`, id,
	).Scan(&storedPoint)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	if err := p.Validate(storedPoint); err != nil {
		return nil, err
	}

	sets := []string{}
	args := []any{}
	set := func(column string, value any) {
		args = append(args, value)
		sets = append(sets, column+" = $"+strconv.Itoa(len(args)))
	}

	if p.Date != nil {
		set("obs_date", *p.Date)
	}
	if p.Time != nil {
		set("obs_time", *p.Time)
	}
	if p.Point != nil {
		set("point", *p.Point)
	}
	required := []struct {
		column string
		value  *float64
	}{
		{"air_temperature", p.AirTemperature},
		{"air_humidity", p.AirHumidity},
		{"air_pressure", p.AirPressure},
		{"soil_temperature", p.SoilTemperature},
		{"soil_humidity", p.SoilHumidity},
		{"soil_ec", p.SoilEC},
		{"pyranometer", p.Pyranometer},
	}
	for _, f := range required {
		if f.value != nil {
			set(f.column, *f.value)
		}
	}
	conditionalValues := p.conditionalValues()
	for i, ch := range conditionalChannels {
		switch {
		case conditionalValues[i] != nil:
			set(ch.column, *conditionalValues[i])
		case p.Point != nil && *p.Point != storedPoint && ch.point == storedPoint:
			// channel belonged to the old point only; clear it
			sets = append(sets, ch.column+" = NULL")
		}
	}

	sets = append(sets, "updated_at = now()")
	args = append(args, id)

	query := `UPDATE agrimet.weather_readings SET ` + strings.Join(sets, ", ") +
		` WHERE id = $` + strconv.Itoa(len(args)) + ` AND deleted_at IS NULL
        RETURNING ` + readingColumns

	reading, err := scanReading(s.pool.QueryRow(ctx, query, args...))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return reading, err
}

// DeleteReading tombstones a reading. It reports whether a live row existed.
func (s *Store) DeleteReading(ctx context.Context, id int64) (bool, error) {
	tag, err := s.pool.Exec(ctx,
		`UPDATE agrimet.weather_readings SET deleted_at = now() WHERE id = $1 AND deleted_at IS NULL`, id)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}
