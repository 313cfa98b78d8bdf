package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/YusenFan/Ollama-Transcriber/internal/config"
)

// Run is one processed recording: timings, window stats, transcript and
// artifact locations.
type Run struct {
	ID             int64
	File           string
	AudioSeconds   float64
	Windows        int
	FailedWindows  int
	Transcript     string
	TranscriptPath string
	SummaryPath    string
	Status         string // completed, failed
	Error          string
	StartedAt      time.Time
	CompletedAt    time.Time
}

// Store keeps a SQLite ledger of transcription runs.
type Store struct {
	db    *sql.DB
	cfg   config.StoreConfig
	log   *slog.Logger
	clock func() time.Time
}

// Open initializes the run store according to config. Ephemeral mode
// returns a no-op store.
func Open(ctx context.Context, cfg config.StoreConfig, log *slog.Logger) (*Store, error) {
	if cfg.RetentionMode == "ephemeral" {
		return &Store{cfg: cfg, log: log, clock: time.Now}, nil
	}

	dir := filepath.Dir(cfg.Path)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create data dir: %w", err)
		}
	}

	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)", cfg.Path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	s := &Store{db: db, cfg: cfg, log: log, clock: time.Now}

	if err := s.initSchema(ctx); err != nil {
		db.Close()
		return nil, err
	}

	if cfg.VacuumOnStart {
		if _, err := db.ExecContext(ctx, "VACUUM"); err != nil {
			log.Warn("run store vacuum failed", slog.String("error", err.Error()))
		}
	}
	if err := s.Prune(ctx); err != nil {
		log.Warn("run store prune on start failed", slog.String("error", err.Error()))
	}

	return s, nil
}

func (s *Store) initSchema(ctx context.Context) error {
	ddl := `
CREATE TABLE IF NOT EXISTS runs (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    file TEXT NOT NULL,
    audio_seconds REAL,
    windows INTEGER,
    failed_windows INTEGER,
    transcript TEXT,
    transcript_path TEXT,
    summary_path TEXT,
    status TEXT NOT NULL,
    error TEXT,
    started_at TIMESTAMP NOT NULL,
    completed_at TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_runs_started ON runs(started_at);
`
	_, err := s.db.ExecContext(ctx, ddl)
	return err
}

// Close releases underlying resources.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// RecordRun appends a completed or failed run to the ledger.
func (s *Store) RecordRun(ctx context.Context, run Run) (int64, error) {
	if s.cfg.RetentionMode == "ephemeral" || s.db == nil {
		return 0, nil
	}
	if run.StartedAt.IsZero() {
		run.StartedAt = s.clock().UTC()
	}
	if run.CompletedAt.IsZero() {
		run.CompletedAt = s.clock().UTC()
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO runs(file, audio_seconds, windows, failed_windows, transcript,
		                  transcript_path, summary_path, status, error, started_at, completed_at)
		 VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.File, run.AudioSeconds, run.Windows, run.FailedWindows, run.Transcript,
		run.TranscriptPath, run.SummaryPath, run.Status, run.Error,
		run.StartedAt.UTC(), run.CompletedAt.UTC())
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// ListRuns retrieves up to limit runs ordered most recent first.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	if s.cfg.RetentionMode == "ephemeral" || s.db == nil {
		return nil, nil
	}
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, file, audio_seconds, windows, failed_windows, transcript,
		        transcript_path, summary_path, status, error, started_at, completed_at
		 FROM runs ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var r Run
		var started, completed string
		if err := rows.Scan(&r.ID, &r.File, &r.AudioSeconds, &r.Windows, &r.FailedWindows,
			&r.Transcript, &r.TranscriptPath, &r.SummaryPath, &r.Status, &r.Error,
			&started, &completed); err != nil {
			return nil, err
		}
		if ts, err := time.Parse(time.RFC3339Nano, started); err == nil {
			r.StartedAt = ts
		}
		if ts, err := time.Parse(time.RFC3339Nano, completed); err == nil {
			r.CompletedAt = ts
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// Prune applies configured retention limits.
func (s *Store) Prune(ctx context.Context) error {
	if s.cfg.RetentionMode == "ephemeral" || s.db == nil {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	if s.cfg.RetentionDays > 0 {
		cutoff := s.clock().Add(-time.Duration(s.cfg.RetentionDays) * 24 * time.Hour)
		if _, err = tx.ExecContext(ctx, `DELETE FROM runs WHERE started_at < ?`, cutoff.UTC()); err != nil {
			return err
		}
	}
	if s.cfg.MaxRuns > 0 {
		_, err = tx.ExecContext(ctx, `DELETE FROM runs WHERE id IN (
			SELECT id FROM runs ORDER BY started_at DESC LIMIT -1 OFFSET ?
		)`, s.cfg.MaxRuns)
		if err != nil {
			return err
		}
	}
	err = tx.Commit()
	return err
}
