// Package stats queries recorded sessions with DuckDB.
package stats

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/duckdb/duckdb-go/v2"
)

type DB struct {
	db *sql.DB
}

// SessionSummary is the final state of one recorded session.
type SessionSummary struct {
	SessionID  string
	Ticks      int
	FinalScore int
	Length     int
	Reason     string
	HighScore  int
	StartedAt  time.Time
}

type Totals struct {
	Sessions   int
	Ticks      int
	BestScore  int
	MeanScore  float64
	FoodEaten  int
	Milestones int
}

type FoodCount struct {
	Name  string
	Count int
}

const emptyView = `CREATE OR REPLACE VIEW ticks AS
	SELECT * FROM (
		SELECT
			NULL::VARCHAR AS session_id,
			NULL::INTEGER AS tick,
			NULL::VARCHAR AS state,
			NULL::INTEGER AS score,
			NULL::INTEGER AS length,
			NULL::INTEGER AS high_score,
			NULL::INTEGER AS interval_ms,
			NULL::VARCHAR AS heading,
			NULL::INTEGER AS palette,
			NULL::INTEGER[] AS body_x,
			NULL::INTEGER[] AS body_y,
			NULL::INTEGER AS food_x,
			NULL::INTEGER AS food_y,
			NULL::VARCHAR AS food_type,
			NULL::VARCHAR AS ate_type,
			NULL::VARCHAR AS reason,
			NULL::INTEGER AS width,
			NULL::INTEGER AS height,
			NULL::INTEGER AS cell_size,
			NULL::BIGINT AS recorded_at_ms,
			NULL::VARCHAR AS filename
	) WHERE 1=0`

// Open exposes every finished recording under dir as the view "ticks".
// Files still being written live under tmp/ and are skipped.
func Open(dir string) (*DB, error) {
	db, err := sql.Open("duckdb", ":memory:")
	if err != nil {
		return nil, fmt.Errorf("open duckdb: %w", err)
	}
	_, _ = db.Exec("PRAGMA threads=4")

	files, err := listRecordings(dir)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	sqlText := emptyView
	if len(files) > 0 {
		quoted := make([]string, len(files))
		for i, f := range files {
			quoted[i] = "'" + escapeSQLString(f) + "'"
		}
		sqlText = `CREATE OR REPLACE VIEW ticks AS
			SELECT * FROM read_parquet([` + strings.Join(quoted, ",") + `], filename=true, union_by_name=true)`
	}
	if _, err := db.Exec(sqlText); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create ticks view: %w", err)
	}
	return &DB{db: db}, nil
}

func (s *DB) Close() error { return s.db.Close() }

// Summaries returns the most recent sessions first. limit <= 0 returns all.
func (s *DB) Summaries(ctx context.Context, limit int) ([]SessionSummary, error) {
	q := `
		SELECT
			session_id,
			max(tick),
			arg_max(score, tick),
			arg_max(length, tick),
			coalesce(arg_max(reason, tick), ''),
			max(high_score),
			min(recorded_at_ms)
		FROM ticks
		GROUP BY session_id
		ORDER BY min(recorded_at_ms) DESC, session_id`
	args := []any{}
	if limit > 0 {
		q += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query summaries: %w", err)
	}
	defer rows.Close()

	var out []SessionSummary
	for rows.Next() {
		var sum SessionSummary
		var started int64
		if err := rows.Scan(&sum.SessionID, &sum.Ticks, &sum.FinalScore, &sum.Length, &sum.Reason, &sum.HighScore, &started); err != nil {
			return nil, fmt.Errorf("scan summary: %w", err)
		}
		sum.StartedAt = time.UnixMilli(started)
		out = append(out, sum)
	}
	return out, rows.Err()
}

func (s *DB) Totals(ctx context.Context, milestoneThreshold int) (Totals, error) {
	var t Totals
	err := s.db.QueryRowContext(ctx, `
		WITH finals AS (
			SELECT session_id, max(tick) AS ticks, arg_max(score, tick) AS score
			FROM ticks GROUP BY session_id
		)
		SELECT count(*), coalesce(sum(ticks), 0)::BIGINT, coalesce(max(score), 0), coalesce(avg(score), 0)
		FROM finals`).Scan(&t.Sessions, &t.Ticks, &t.BestScore, &t.MeanScore)
	if err != nil {
		return Totals{}, fmt.Errorf("query totals: %w", err)
	}

	err = s.db.QueryRowContext(ctx, `SELECT count(*) FROM ticks WHERE ate_type <> ''`).Scan(&t.FoodEaten)
	if err != nil {
		return Totals{}, fmt.Errorf("query food eaten: %w", err)
	}

	if milestoneThreshold > 0 {
		err = s.db.QueryRowContext(ctx, `
			SELECT coalesce(sum(final_score // ?::INTEGER), 0)::BIGINT
			FROM (SELECT arg_max(score, tick) AS final_score FROM ticks GROUP BY session_id)`,
			milestoneThreshold).Scan(&t.Milestones)
		if err != nil {
			return Totals{}, fmt.Errorf("query milestones: %w", err)
		}
	}
	return t, nil
}

// FoodBreakdown counts eaten food by type, most eaten first.
func (s *DB) FoodBreakdown(ctx context.Context) ([]FoodCount, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT ate_type, count(*) AS n
		FROM ticks
		WHERE ate_type <> ''
		GROUP BY ate_type
		ORDER BY n DESC, ate_type`)
	if err != nil {
		return nil, fmt.Errorf("query food breakdown: %w", err)
	}
	defer rows.Close()

	var out []FoodCount
	for rows.Next() {
		var fc FoodCount
		if err := rows.Scan(&fc.Name, &fc.Count); err != nil {
			return nil, fmt.Errorf("scan food count: %w", err)
		}
		out = append(out, fc)
	}
	return out, rows.Err()
}

func listRecordings(dir string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() && d.Name() == "tmp" {
			return filepath.SkipDir
		}
		if !d.IsDir() && strings.HasSuffix(d.Name(), ".parquet") {
			files = append(files, path)
		}
		return nil
	})
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan recordings: %w", err)
	}
	return files, nil
}

func escapeSQLString(s string) string {
	return strings.ReplaceAll(s, "'", "''")
}
