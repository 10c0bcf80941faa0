// Package postgres implements the location and occupancy stores on
// PostgreSQL via pgx. Forecast day replacement runs in a single
// transaction so readers never observe a partial day.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/parkcast/parkcast/core/model"
	"github.com/parkcast/parkcast/core/store"
)

// Store implements store.LocationStore and store.OccupancyStore.
type Store struct {
	pool *pgxpool.Pool
}

// Connect opens a pool against the DSN and pings it.
func Connect(ctx context.Context, dsn string) (*Store, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("db pool init: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("db ping: %w", err)
	}
	return &Store{pool: pool}, nil
}

// NewStore wraps an existing pool.
func NewStore(pool *pgxpool.Pool) *Store { return &Store{pool: pool} }

// Close releases the pool.
func (s *Store) Close() { s.pool.Close() }

// GetLocation returns the location or store.ErrNotFound.
func (s *Store) GetLocation(ctx context.Context, id string) (model.Location, error) {
	var loc model.Location
	err := s.pool.QueryRow(ctx,
		`SELECT location_id, name, timezone FROM locations WHERE location_id = $1`, id,
	).Scan(&loc.ID, &loc.Name, &loc.Timezone)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.Location{}, store.ErrNotFound
	}
	if err != nil {
		return model.Location{}, fmt.Errorf("get location: %w", err)
	}
	return loc, nil
}

// ListLocations returns all locations ordered by id.
func (s *Store) ListLocations(ctx context.Context) ([]model.Location, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT location_id, name, timezone FROM locations ORDER BY location_id`)
	if err != nil {
		return nil, fmt.Errorf("list locations: %w", err)
	}
	defer rows.Close()

	var locs []model.Location
	for rows.Next() {
		var loc model.Location
		if err := rows.Scan(&loc.ID, &loc.Name, &loc.Timezone); err != nil {
			return nil, fmt.Errorf("scan location: %w", err)
		}
		locs = append(locs, loc)
	}
	return locs, rows.Err()
}

// GetLots returns the lots of a location ordered by name.
func (s *Store) GetLots(ctx context.Context, locationID string) ([]model.Lot, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT lot_id, location_id, name, spot_count, COALESCE(open_time::text, ''), COALESCE(close_time::text, ''), is_24h, lat, lon
		 FROM lots WHERE location_id = $1 ORDER BY name`, locationID)
	if err != nil {
		return nil, fmt.Errorf("list lots: %w", err)
	}
	defer rows.Close()

	var lots []model.Lot
	for rows.Next() {
		var lot model.Lot
		if err := rows.Scan(&lot.ID, &lot.LocationID, &lot.Name, &lot.SpotCount,
			&lot.OpenTime, &lot.CloseTime, &lot.Is24h, &lot.Coord.Lat, &lot.Coord.Lon); err != nil {
			return nil, fmt.Errorf("scan lot: %w", err)
		}
		lots = append(lots, lot)
	}
	return lots, rows.Err()
}

// QuerySamples returns samples with observed_at in [fromUTC, toUTC).
func (s *Store) QuerySamples(ctx context.Context, lotID string, fromUTC, toUTC time.Time) ([]model.OccupancySample, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT lot_id, observed_at, occupancy_pct FROM lot_occupancy
		 WHERE lot_id = $1 AND observed_at >= $2 AND observed_at < $3
		 ORDER BY observed_at`, lotID, fromUTC, toUTC)
	if err != nil {
		return nil, fmt.Errorf("query samples: %w", err)
	}
	defer rows.Close()

	var samples []model.OccupancySample
	for rows.Next() {
		var smp model.OccupancySample
		if err := rows.Scan(&smp.LotID, &smp.ObservedAt, &smp.Pct); err != nil {
			return nil, fmt.Errorf("scan sample: %w", err)
		}
		samples = append(samples, smp)
	}
	return samples, rows.Err()
}

// InsertSamples appends observed samples.
func (s *Store) InsertSamples(ctx context.Context, samples []model.OccupancySample) error {
	if len(samples) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, smp := range samples {
		batch.Queue(
			`INSERT INTO lot_occupancy (lot_id, observed_at, occupancy_pct) VALUES ($1, $2, $3)`,
			smp.LotID, smp.ObservedAt.UTC(), smp.Pct)
	}
	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()
	for range samples {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("insert sample: %w", err)
		}
	}
	return nil
}

// CountForecasts counts forecast rows with forecast_ts in [fromUTC, toUTC).
func (s *Store) CountForecasts(ctx context.Context, lotID string, fromUTC, toUTC time.Time) (int, error) {
	var n int
	err := s.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM forecasts WHERE lot_id = $1 AND forecast_ts >= $2 AND forecast_ts < $3`,
		lotID, fromUTC, toUTC).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count forecasts: %w", err)
	}
	return n, nil
}

// QueryForecasts returns forecast rows with forecast_ts in [fromUTC, toUTC].
func (s *Store) QueryForecasts(ctx context.Context, lotID string, fromUTC, toUTC time.Time) ([]model.ForecastPoint, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT lot_id, model_name, model_version, run_id, generated_at, forecast_ts, prediction_pct
		 FROM forecasts WHERE lot_id = $1 AND forecast_ts >= $2 AND forecast_ts <= $3
		 ORDER BY forecast_ts`, lotID, fromUTC, toUTC)
	if err != nil {
		return nil, fmt.Errorf("query forecasts: %w", err)
	}
	defer rows.Close()

	var points []model.ForecastPoint
	for rows.Next() {
		var fp model.ForecastPoint
		if err := rows.Scan(&fp.LotID, &fp.ModelName, &fp.ModelVersion, &fp.RunID,
			&fp.GeneratedAt, &fp.ForecastTS, &fp.PredictionPct); err != nil {
			return nil, fmt.Errorf("scan forecast: %w", err)
		}
		points = append(points, fp)
	}
	return points, rows.Err()
}

// ReplaceDayForecasts deletes the lot's rows in [fromUTC, toUTC) and
// inserts the new ones inside a single transaction.
func (s *Store) ReplaceDayForecasts(ctx context.Context, lotID string, fromUTC, toUTC time.Time, points []model.ForecastPoint) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin replace: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx,
		`DELETE FROM forecasts WHERE lot_id = $1 AND forecast_ts >= $2 AND forecast_ts < $3`,
		lotID, fromUTC, toUTC); err != nil {
		return fmt.Errorf("delete forecasts: %w", err)
	}

	if len(points) > 0 {
		_, err = tx.CopyFrom(ctx,
			pgx.Identifier{"forecasts"},
			[]string{"lot_id", "model_name", "model_version", "run_id", "generated_at", "forecast_ts", "prediction_pct"},
			pgx.CopyFromSlice(len(points), func(i int) ([]any, error) {
				fp := points[i]
				return []any{fp.LotID, fp.ModelName, fp.ModelVersion, fp.RunID, fp.GeneratedAt.UTC(), fp.ForecastTS.UTC(), fp.PredictionPct}, nil
			}))
		if err != nil {
			return fmt.Errorf("insert forecasts: %w", err)
		}
	}
	return tx.Commit(ctx)
}
