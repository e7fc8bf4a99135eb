package runs

import (
	"errors"
	"path/filepath"
	"strings"

	"github.com/mmrzaf/cqlstress/internal/domain"
)

var ErrNotFound = errors.New("run not found")

// Repository stores run history for the CLI and the API.
type Repository interface {
	Init() error
	Create(run *domain.Run) error
	Update(run *domain.Run) error
	Get(id string) (*domain.Run, error)
	List(limit int, status string) ([]*domain.Run, error)
	Close() error
}

// Open picks a backend: PostgreSQL when dsn is set, bbolt for a .bolt path,
// SQLite otherwise. The repository is initialized.
func Open(dbPath, dsn string) (Repository, error) {
	var repo Repository
	switch {
	case strings.TrimSpace(dsn) != "":
		repo = NewPostgresRepository(dsn)
	case strings.EqualFold(filepath.Ext(dbPath), ".bolt"):
		repo = NewBoltRepository(dbPath)
	default:
		repo = NewSQLiteRepository(dbPath)
	}
	if err := repo.Init(); err != nil {
		return nil, err
	}
	return repo, nil
}
