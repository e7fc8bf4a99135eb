package targets

import (
	"cmp"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/mmrzaf/cqlstress/internal/domain"
	"gopkg.in/yaml.v3"
)

var ErrNotFound = errors.New("target not found")

// Repository is read-only: targets are operator-owned files.
type Repository interface {
	List() ([]*domain.TargetConfig, error)
	Get(id string) (*domain.TargetConfig, error)
}

type FileRepository struct {
	baseDir string
}

func NewFileRepository(baseDir string) *FileRepository {
	return &FileRepository{baseDir: baseDir}
}

// List skips files that do not parse. A missing directory is an empty list.
func (r *FileRepository) List() ([]*domain.TargetConfig, error) {
	entries, err := os.ReadDir(r.baseDir)
	if os.IsNotExist(err) {
		return []*domain.TargetConfig{}, nil
	}
	if err != nil {
		return nil, err
	}

	list := make([]*domain.TargetConfig, 0, len(entries))
	for _, entry := range entries {
		switch filepath.Ext(entry.Name()) {
		case ".yaml", ".yml", ".json":
		default:
			continue
		}
		if entry.IsDir() {
			continue
		}
		t, err := LoadFile(filepath.Join(r.baseDir, entry.Name()))
		if err != nil {
			continue
		}
		list = append(list, t)
	}

	sort.Slice(list, func(i, j int) bool { return list[i].ID < list[j].ID })
	return list, nil
}

// Get matches on ID first, then on name.
func (r *FileRepository) Get(id string) (*domain.TargetConfig, error) {
	list, err := r.List()
	if err != nil {
		return nil, err
	}
	var byName *domain.TargetConfig
	for _, t := range list {
		if t.ID == id {
			return t, nil
		}
		if byName == nil && t.Name == id {
			byName = t
		}
	}
	if byName != nil {
		return byName, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
}

// LoadFile reads one target definition. ${VAR} references in the DSN are
// expanded from the environment so credentials stay out of the file.
func LoadFile(path string) (*domain.TargetConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var t domain.TargetConfig
	switch filepath.Ext(path) {
	case ".json":
		err = json.Unmarshal(data, &t)
	default:
		err = yaml.Unmarshal(data, &t)
	}
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	stem := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	t.ID = cmp.Or(t.ID, stem)
	t.Name = cmp.Or(t.Name, t.ID)
	t.DSN = os.ExpandEnv(t.DSN)
	return &t, nil
}
