// Package importcsv bulk-loads weather readings from CSV exports. Rows are
// validated with the same channel rules as the API; bad rows are skipped and
// reported rather than aborting the file.
package importcsv

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/agrimet-io/telemetry-api/db"
	"github.com/agrimet-io/telemetry-api/metrics"
)

// Inserter is the slice of the store the importer needs.
type Inserter interface {
	CreateReading(ctx context.Context, n db.NewReading) (*db.WeatherReading, error)
}

// RowError records one rejected CSV line.
type RowError struct {
	Line int
	Err  error
}

func (e RowError) Error() string {
	return fmt.Sprintf("line %d: %v", e.Line, e.Err)
}

// Result summarizes an import run.
type Result struct {
	Inserted int
	Skipped  int
	Errors   []RowError
}

var requiredColumns = []string{
	"date", "time", "point",
	"airTemperature", "airHumidity", "airPressure",
	"soilTemperature", "soilHumidity", "soilEC", "pyranometer",
}

var optionalColumns = []string{
	"pasteTypeTemperature", "windSpeed", "windDirection", "solarRadiation", "rainfall", "co2",
}

// ReadHeader maps column names to their positions, rejecting files that lack
// any required column.
func ReadHeader(record []string) (map[string]int, error) {
	header := make(map[string]int, len(record))
	for i, name := range record {
		header[name] = i
	}
	for _, name := range requiredColumns {
		if _, ok := header[name]; !ok {
			return nil, fmt.Errorf("missing required column %q", name)
		}
	}
	return header, nil
}

func field(header map[string]int, record []string, name string) string {
	idx, ok := header[name]
	if !ok || idx >= len(record) {
		return ""
	}
	return record[idx]
}

func parseRequiredFloat(header map[string]int, record []string, name string) (float64, error) {
	raw := field(header, record, name)
	if raw == "" {
		return 0, fmt.Errorf("%s is empty", name)
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", name, err)
	}
	return v, nil
}

func parseOptionalFloat(header map[string]int, record []string, name string) (*float64, error) {
	raw := field(header, record, name)
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	return &v, nil
}

// ParseRow converts one CSV record into a validated NewReading.
func ParseRow(header map[string]int, record []string) (db.NewReading, error) {
	var n db.NewReading

	n.Date = field(header, record, "date")
	n.Time = field(header, record, "time")
	if n.Date == "" || n.Time == "" {
		return n, fmt.Errorf("date and time are required")
	}

	point, err := strconv.Atoi(field(header, record, "point"))
	if err != nil {
		return n, fmt.Errorf("point: %w", err)
	}
	n.Point = point

	required := []struct {
		name string
		dst  *float64
	}{
		{"airTemperature", &n.AirTemperature},
		{"airHumidity", &n.AirHumidity},
		{"airPressure", &n.AirPressure},
		{"soilTemperature", &n.SoilTemperature},
		{"soilHumidity", &n.SoilHumidity},
		{"soilEC", &n.SoilEC},
		{"pyranometer", &n.Pyranometer},
	}
	for _, f := range required {
		v, err := parseRequiredFloat(header, record, f.name)
		if err != nil {
			return n, err
		}
		*f.dst = v
	}

	optional := []struct {
		name string
		dst  **float64
	}{
		{"pasteTypeTemperature", &n.PasteTypeTemperature},
		{"windSpeed", &n.WindSpeed},
		{"windDirection", &n.WindDirection},
		{"solarRadiation", &n.SolarRadiation},
		{"rainfall", &n.Rainfall},
		{"co2", &n.CO2},
	}
	for _, f := range optional {
		v, err := parseOptionalFloat(header, record, f.name)
		if err != nil {
			return n, err
		}
		*f.dst = v
	}

	return n, n.Validate()
}

// Run streams the CSV and inserts each valid row. With dryRun set, rows are
// parsed and validated but nothing is written.
func Run(ctx context.Context, ins Inserter, r io.Reader, dryRun bool) (Result, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	headerRecord, err := reader.Read()
	if err != nil {
		return Result{}, fmt.Errorf("read header: %w", err)
	}
	header, err := ReadHeader(headerRecord)
	if err != nil {
		return Result{}, err
	}

	var result Result
	line := 1
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			return result, fmt.Errorf("line %d: %w", line, err)
		}

		reading, err := ParseRow(header, record)
		if err == nil && !dryRun {
			_, err = ins.CreateReading(ctx, reading)
		}
		if err != nil {
			result.Skipped++
			result.Errors = append(result.Errors, RowError{Line: line, Err: err})
			metrics.ReadingsImported.WithLabelValues("skipped").Inc()
			continue
		}

		result.Inserted++
		metrics.ReadingsImported.WithLabelValues("inserted").Inc()
	}

	return result, nil
}
