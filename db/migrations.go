package db

import "context"

const schemaSQL = `
CREATE SCHEMA IF NOT EXISTS agrimet;

CREATE TABLE IF NOT EXISTS agrimet.weather_readings (
    id                     bigserial PRIMARY KEY,
    obs_date               date NOT NULL,
    obs_time               text NOT NULL,
    point                  integer NOT NULL CHECK (point BETWEEN 1 AND 5),
    air_temperature        double precision NOT NULL,
    air_humidity           double precision NOT NULL,
    air_pressure           double precision NOT NULL,
    soil_temperature       double precision NOT NULL,
    soil_humidity          double precision NOT NULL,
    soil_ec                double precision NOT NULL,
    pyranometer            double precision NOT NULL,
    paste_type_temperature double precision,
    wind_speed             double precision,
    wind_direction         double precision,
    solar_radiation        double precision,
    rainfall               double precision,
    co2                    double precision,
    created_at             timestamptz NOT NULL DEFAULT now(),
    updated_at             timestamptz NOT NULL DEFAULT now(),
    deleted_at             timestamptz
);

CREATE INDEX IF NOT EXISTS idx_weather_readings_date_point
    ON agrimet.weather_readings (obs_date, point)
    WHERE deleted_at IS NULL;

CREATE TABLE IF NOT EXISTS agrimet.api_keys (
    id         uuid PRIMARY KEY,
    label      text NOT NULL,
    key_hash   text NOT NULL UNIQUE,
    created_at timestamptz NOT NULL DEFAULT now(),
    revoked_at timestamptz
);

CREATE TABLE IF NOT EXISTS agrimet.users (
    id            bigserial PRIMARY KEY,
    username      text NOT NULL UNIQUE,
    password_hash text NOT NULL,
    created_at    timestamptz NOT NULL DEFAULT now()
);
`

// Migrate applies the schema. Statements are idempotent so this runs on every
// startup.
func (s *Store) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, schemaSQL)
	return err
}
