package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/ppiankov/claimlens/internal/model"
)

const schema = `
CREATE TABLE IF NOT EXISTS reports (
	id         UUID PRIMARY KEY,
	video_id   TEXT NOT NULL,
	report     JSONB NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE UNIQUE INDEX IF NOT EXISTS reports_video_id_key ON reports (video_id);
CREATE INDEX IF NOT EXISTS reports_created_at_idx ON reports (created_at DESC);
`

// PostgresStore keeps reports in a PostgreSQL table
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore connects, pings and ensures the schema exists
func NewPostgresStore(ctx context.Context, databaseURL string) (*PostgresStore, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	if _, err := pool.Exec(ctx, schema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("migrate reports table: %w", err)
	}

	slog.Info("[Store] connected to PostgreSQL")
	return &PostgresStore{pool: pool}, nil
}

// Save inserts report; the unique video_id index makes concurrent saves of one video converge on one row
func (s *PostgresStore) Save(ctx context.Context, report model.Report) (string, bool, error) {
	report.ReportID = ""
	data, err := json.Marshal(report)
	if err != nil {
		return "", false, fmt.Errorf("encode report: %w", err)
	}

	var id string
	err = s.pool.QueryRow(ctx,
		`INSERT INTO reports (id, video_id, report) VALUES ($1, $2, $3)
		 ON CONFLICT (video_id) DO NOTHING
		 RETURNING id::text`,
		uuid.NewString(), report.Video.ID, data,
	).Scan(&id)
	if err == nil {
		return id, true, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return "", false, fmt.Errorf("insert report: %w", err)
	}

	rec, err := s.LatestByVideoID(ctx, report.Video.ID)
	if err != nil {
		return "", false, fmt.Errorf("load existing report: %w", err)
	}
	return rec.ID, false, nil
}

// LatestByVideoID returns the stored report for videoID
func (s *PostgresStore) LatestByVideoID(ctx context.Context, videoID string) (*Record, error) {
	return s.one(ctx,
		`SELECT id::text, video_id, report, created_at FROM reports WHERE video_id = $1`, videoID)
}

// Get returns the report with id
func (s *PostgresStore) Get(ctx context.Context, id string) (*Record, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, ErrNotFound
	}
	return s.one(ctx,
		`SELECT id::text, video_id, report, created_at FROM reports WHERE id = $1`, id)
}

// List returns reports newest first
func (s *PostgresStore) List(ctx context.Context, limit, offset int) (Page, error) {
	limit, offset = ClampPage(limit, offset)

	var total int
	if err := s.pool.QueryRow(ctx, `SELECT count(*) FROM reports`).Scan(&total); err != nil {
		return Page{}, fmt.Errorf("count reports: %w", err)
	}

	rows, err := s.pool.Query(ctx,
		`SELECT id::text, video_id, report, created_at FROM reports
		 ORDER BY created_at DESC, id DESC LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return Page{}, fmt.Errorf("list reports: %w", err)
	}
	defer rows.Close()

	page := Page{Reports: []Summary{}, Total: total}
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return Page{}, err
		}
		page.Reports = append(page.Reports, rec.summary())
	}
	if err := rows.Err(); err != nil {
		return Page{}, fmt.Errorf("list reports: %w", err)
	}

	page.HasMore = offset+len(page.Reports) < total
	return page, nil
}

// Delete removes the report with id
func (s *PostgresStore) Delete(ctx context.Context, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return ErrNotFound
	}
	tag, err := s.pool.Exec(ctx, `DELETE FROM reports WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete report: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Close releases the pool
func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func (s *PostgresStore) one(ctx context.Context, query string, arg any) (*Record, error) {
	rec, err := scanRecord(s.pool.QueryRow(ctx, query, arg))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return rec, err
}

func scanRecord(row pgx.Row) (*Record, error) {
	var (
		rec  Record
		data []byte
	)
	if err := row.Scan(&rec.ID, &rec.VideoID, &data, &rec.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan report: %w", err)
	}
	if err := json.Unmarshal(data, &rec.Report); err != nil {
		return nil, fmt.Errorf("decode report %s: %w", rec.ID, err)
	}
	return &rec, nil
}
