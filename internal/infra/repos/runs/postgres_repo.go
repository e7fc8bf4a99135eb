package runs

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/google/uuid"
	_ "github.com/lib/pq"
	"github.com/mmrzaf/cqlstress/internal/domain"
)

type PostgresRepository struct {
	dsn string
	db  *sql.DB
}

func NewPostgresRepository(dsn string) *PostgresRepository {
	return &PostgresRepository{dsn: strings.TrimSpace(dsn)}
}

func (r *PostgresRepository) Init() error {
	if r.dsn == "" {
		return fmt.Errorf("cqlstress db dsn is required")
	}
	db, err := sql.Open("postgres", r.dsn)
	if err != nil {
		return err
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return err
	}
	r.db = db
	return r.applyMigrations()
}

func (r *PostgresRepository) DB() *sql.DB { return r.db }

func (r *PostgresRepository) applyMigrations() error {
	if _, err := r.db.Exec(`CREATE TABLE IF NOT EXISTS schema_migrations (version INTEGER PRIMARY KEY)`); err != nil {
		return err
	}
	var cur int
	if err := r.db.QueryRow(`SELECT COALESCE(MAX(version), 0) FROM schema_migrations`).Scan(&cur); err != nil {
		return err
	}

	type mig struct {
		v  int
		up func(*sql.DB) error
	}
	migs := []mig{
		{1, migrateV1RunsPG},
		{2, migrateV2RunIndexesPG},
	}

	for _, m := range migs {
		if cur >= m.v {
			continue
		}
		if err := m.up(r.db); err != nil {
			return fmt.Errorf("migration %d failed: %w", m.v, err)
		}
		if _, err := r.db.Exec(`INSERT INTO schema_migrations(version) VALUES ($1)`, m.v); err != nil {
			return err
		}
		cur = m.v
	}
	return nil
}

func migrateV1RunsPG(db *sql.DB) error {
	_, err := db.Exec(`
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		command TEXT NOT NULL,
		profile_id TEXT NOT NULL,
		profile_name TEXT NOT NULL,
		target_id TEXT NOT NULL,
		target_name TEXT NOT NULL,
		target_kind TEXT NOT NULL,
		population TEXT NOT NULL,
		config_hash TEXT NOT NULL,
		fingerprint TEXT,
		status TEXT NOT NULL,
		started_at TIMESTAMPTZ NOT NULL,
		completed_at TIMESTAMPTZ,
		stats TEXT,
		error TEXT
	)`)
	return err
}

func migrateV2RunIndexesPG(db *sql.DB) error {
	if _, err := db.Exec(`CREATE INDEX IF NOT EXISTS idx_runs_started_at ON runs(started_at DESC)`); err != nil {
		return err
	}
	_, err := db.Exec(`CREATE INDEX IF NOT EXISTS idx_runs_config_hash ON runs(config_hash)`)
	return err
}

func (r *PostgresRepository) Create(run *domain.Run) error {
	if run.ID == "" {
		run.ID = uuid.New().String()
	}
	_, err := r.db.Exec(`INSERT INTO runs (`+runColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`,
		run.ID, run.Command, run.ProfileID, run.ProfileName,
		run.TargetID, run.TargetName, run.TargetKind,
		run.Population, run.ConfigHash, run.Fingerprint, run.Status,
		run.StartedAt, run.CompletedAt, statsValue(run), run.Error,
	)
	return err
}

func (r *PostgresRepository) Update(run *domain.Run) error {
	res, err := r.db.Exec(`
		UPDATE runs SET
			status = $1, fingerprint = $2, completed_at = $3, stats = $4, error = $5
		WHERE id = $6`,
		run.Status, run.Fingerprint, run.CompletedAt, statsValue(run), run.Error, run.ID)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, run.ID)
	}
	return nil
}

func (r *PostgresRepository) Get(id string) (*domain.Run, error) {
	var completed sql.NullTime
	run, err := scanPGRun(r.db.QueryRow(`SELECT `+runColumns+` FROM runs WHERE id = $1`, id), &completed)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return run, err
}

func scanPGRun(s scanner, completed *sql.NullTime) (*domain.Run, error) {
	var started sql.NullTime
	run, err := scanRun(s, &started, completed)
	if err != nil {
		return nil, err
	}
	run.StartedAt = started.Time
	if completed.Valid {
		t := completed.Time
		run.CompletedAt = &t
	}
	return run, nil
}

func (r *PostgresRepository) List(limit int, status string) ([]*domain.Run, error) {
	query := `SELECT ` + runColumns + ` FROM runs`
	args := make([]interface{}, 0)
	if status != "" {
		args = append(args, status)
		query += fmt.Sprintf(" WHERE status = $%d", len(args))
	}
	query += " ORDER BY started_at DESC"
	if limit > 0 {
		args = append(args, limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]*domain.Run, 0)
	for rows.Next() {
		var completed sql.NullTime
		run, err := scanPGRun(rows, &completed)
		if err != nil {
			return nil, err
		}
		out = append(out, run)
	}
	return out, rows.Err()
}

func (r *PostgresRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}
