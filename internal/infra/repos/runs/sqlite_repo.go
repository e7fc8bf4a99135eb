package runs

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
	"github.com/mmrzaf/cqlstress/internal/domain"
)

type SQLiteRepository struct {
	dbPath string
	db     *sql.DB
}

func NewSQLiteRepository(dbPath string) *SQLiteRepository {
	return &SQLiteRepository{dbPath: dbPath}
}

func (r *SQLiteRepository) DB() *sql.DB { return r.db }

func (r *SQLiteRepository) Init() error {
	if dir := filepath.Dir(r.dbPath); dir != "" && dir != "." && r.dbPath != ":memory:" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create run db directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite3", r.dbPath)
	if err != nil {
		return err
	}
	db.SetMaxOpenConns(1)
	r.db = db

	createTableSQL := `
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
		started_at TEXT NOT NULL,
		completed_at TEXT,
		stats TEXT,
		error TEXT
	)`

	_, err = r.db.Exec(createTableSQL)
	return err
}

// timeLayout is fixed width so started_at sorts as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t *time.Time) interface{} {
	if t == nil {
		return nil
	}
	return t.UTC().Format(timeLayout)
}

func (r *SQLiteRepository) Create(run *domain.Run) error {
	if run.ID == "" {
		run.ID = uuid.New().String()
	}

	query := `INSERT INTO runs (` + runColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := r.db.Exec(query,
		run.ID, run.Command, run.ProfileID, run.ProfileName,
		run.TargetID, run.TargetName, run.TargetKind,
		run.Population, run.ConfigHash, run.Fingerprint, run.Status,
		formatTime(&run.StartedAt), formatTime(run.CompletedAt),
		statsValue(run), run.Error,
	)
	return err
}

func (r *SQLiteRepository) Update(run *domain.Run) error {
	query := `
		UPDATE runs SET
			status = ?, fingerprint = ?, completed_at = ?, stats = ?, error = ?
		WHERE id = ?
	`
	res, err := r.db.Exec(query, run.Status, run.Fingerprint, formatTime(run.CompletedAt), statsValue(run), run.Error, run.ID)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, run.ID)
	}
	return nil
}

// sqliteTimes adapts the TEXT timestamp columns to scanRun.
type sqliteTimes struct {
	started   string
	completed sql.NullString
}

func (t *sqliteTimes) apply(run *domain.Run) {
	run.StartedAt, _ = time.Parse(timeLayout, t.started)
	if t.completed.Valid {
		c, _ := time.Parse(timeLayout, t.completed.String)
		run.CompletedAt = &c
	}
}

func (r *SQLiteRepository) Get(id string) (*domain.Run, error) {
	var ts sqliteTimes
	run, err := scanRun(r.db.QueryRow(`SELECT `+runColumns+` FROM runs WHERE id = ?`, id), &ts.started, &ts.completed)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	ts.apply(run)
	return run, nil
}

func (r *SQLiteRepository) List(limit int, status string) ([]*domain.Run, error) {
	query := `SELECT ` + runColumns + ` FROM runs`

	args := make([]interface{}, 0)
	if status != "" {
		query += " WHERE status = ?"
		args = append(args, status)
	}

	query += " ORDER BY started_at DESC"

	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	runs := make([]*domain.Run, 0)
	for rows.Next() {
		var ts sqliteTimes
		run, err := scanRun(rows, &ts.started, &ts.completed)
		if err != nil {
			return nil, err
		}
		ts.apply(run)
		runs = append(runs, run)
	}

	return runs, rows.Err()
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}
