// Package postgres persists normalized daily series for downstream analysis.
package postgres

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/couchcryptid/svg-world-map/internal/domain"
)

const tableDailySeries = "daily_series"

// rowsPerStatement keeps a chunk well under the protocol's 65535 parameter cap.
const rowsPerStatement = 500

var dailySeriesColumns = []string{
	"region_id", "province", "day", "confirmed", "recovered", "deaths", "active", "new_confirmed", "build_id",
}

const createDailySeries = `CREATE TABLE IF NOT EXISTS daily_series (
	region_id     TEXT        NOT NULL,
	province      TEXT        NOT NULL DEFAULT '',
	day           DATE        NOT NULL,
	confirmed     BIGINT      NOT NULL,
	recovered     BIGINT      NOT NULL,
	deaths        BIGINT      NOT NULL,
	active        BIGINT      NOT NULL,
	new_confirmed BIGINT      NOT NULL,
	build_id      UUID        NOT NULL,
	updated_at    TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (region_id, province, day)
)`

const upsertSuffix = `ON CONFLICT (region_id, province, day) DO UPDATE SET
	confirmed = excluded.confirmed,
	recovered = excluded.recovered,
	deaths = excluded.deaths,
	active = excluded.active,
	new_confirmed = excluded.new_confirmed,
	build_id = excluded.build_id,
	updated_at = now()`

// executor is satisfied by *pgxpool.Pool.
type executor interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// Store upserts daily series rows. It implements pipeline.SeriesStore.
type Store struct {
	db     executor
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// Open connects a pool and ensures the schema exists.
func Open(ctx context.Context, dsn string, logger *slog.Logger) (*Store, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	s := &Store{db: pool, pool: pool, logger: logger}
	if err := s.Migrate(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

func builder() sq.StatementBuilderType {
	return sq.StatementBuilder.PlaceholderFormat(sq.Dollar)
}

// Migrate creates the daily_series table when missing.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, createDailySeries); err != nil {
		return fmt.Errorf("migrate daily_series: %w", err)
	}
	return nil
}

// row is one (region, province, day) record.
type row struct {
	regionID, province string
	day                time.Time
	values             [5]int64
}

// StoreSeries upserts every day of every region, province, and the World
// aggregate. Statements are idempotent, so a partially failed build is
// repaired by the next one.
func (s *Store) StoreSeries(ctx context.Context, buildID string, t *domain.SeriesTable) error {
	rows, err := flatten(t)
	if err != nil {
		return err
	}
	for start := 0; start < len(rows); start += rowsPerStatement {
		end := min(start+rowsPerStatement, len(rows))
		sql, args, err := upsertQuery(buildID, rows[start:end]).ToSql()
		if err != nil {
			return fmt.Errorf("build upsert: %w", err)
		}
		if _, err := s.db.Exec(ctx, sql, args...); err != nil {
			return fmt.Errorf("upsert daily_series: %w", err)
		}
	}
	s.logger.Info("daily series stored", "build_id", buildID, "rows", len(rows))
	return nil
}

// Ping reports whether the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	if s.pool == nil {
		return nil
	}
	return s.pool.Ping(ctx)
}

func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

func upsertQuery(buildID string, rows []row) sq.InsertBuilder {
	q := builder().Insert(tableDailySeries).Columns(dailySeriesColumns...)
	for _, r := range rows {
		q = q.Values(r.regionID, r.province, r.day,
			r.values[0], r.values[1], r.values[2], r.values[3], r.values[4], buildID)
	}
	return q.Suffix(upsertSuffix)
}

func flatten(t *domain.SeriesTable) ([]row, error) {
	var rows []row
	ids := append([]string{domain.WorldID}, t.IDs()...)
	for _, id := range ids {
		s := t.Get(id)
		if s == nil {
			continue
		}
		out, err := seriesRows(id, "", s)
		if err != nil {
			return nil, err
		}
		rows = append(rows, out...)
		for _, name := range s.ProvinceNames() {
			out, err := seriesRows(id, name, s.Province(name))
			if err != nil {
				return nil, err
			}
			rows = append(rows, out...)
		}
	}
	return rows, nil
}

func seriesRows(id, province string, s *domain.DailySeries) ([]row, error) {
	rows := make([]row, 0, s.Len())
	for i, date := range s.Dates {
		day, err := time.Parse(domain.DateLayout, date)
		if err != nil {
			return nil, fmt.Errorf("parse series date %s/%s %q: %w", id, province, date, err)
		}
		rows = append(rows, row{
			regionID: id,
			province: province,
			day:      day,
			values:   [5]int64{s.Confirmed[i], s.Recovered[i], s.Deaths[i], s.Active[i], s.NewConfirmed[i]},
		})
	}
	return rows, nil
}
