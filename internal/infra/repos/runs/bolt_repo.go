package runs

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/mmrzaf/cqlstress/internal/domain"
	bolt "go.etcd.io/bbolt"
)

var runsBucket = []byte("runs")

// BoltRepository keeps run history in a single bbolt file, one JSON document
// per run keyed by id.
type BoltRepository struct {
	path string
	db   *bolt.DB
}

func NewBoltRepository(path string) *BoltRepository {
	return &BoltRepository{path: path}
}

func (r *BoltRepository) Init() error {
	if dir := filepath.Dir(r.path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create run db directory: %w", err)
		}
	}
	db, err := bolt.Open(r.path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return err
	}
	r.db = db
	return r.db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(runsBucket)
		return err
	})
}

func (r *BoltRepository) put(run *domain.Run, mustExist bool) error {
	data, err := json.Marshal(run)
	if err != nil {
		return err
	}
	return r.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(runsBucket)
		if mustExist && b.Get([]byte(run.ID)) == nil {
			return fmt.Errorf("%w: %s", ErrNotFound, run.ID)
		}
		return b.Put([]byte(run.ID), data)
	})
}

func (r *BoltRepository) Create(run *domain.Run) error {
	if run.ID == "" {
		run.ID = uuid.New().String()
	}
	return r.put(run, false)
}

func (r *BoltRepository) Update(run *domain.Run) error {
	return r.put(run, true)
}

func (r *BoltRepository) Get(id string) (*domain.Run, error) {
	var run domain.Run
	err := r.db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket(runsBucket).Get([]byte(id))
		if data == nil {
			return fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return json.Unmarshal(data, &run)
	})
	if err != nil {
		return nil, err
	}
	return &run, nil
}

func (r *BoltRepository) List(limit int, status string) ([]*domain.Run, error) {
	out := make([]*domain.Run, 0)
	err := r.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(runsBucket).ForEach(func(_, v []byte) error {
			var run domain.Run
			if err := json.Unmarshal(v, &run); err != nil {
				return err
			}
			if status == "" || string(run.Status) == status {
				out = append(out, &run)
			}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(out, func(i, j int) bool { return out[i].StartedAt.After(out[j].StartedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *BoltRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}
