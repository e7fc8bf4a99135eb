package profiles

import (
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

var ErrNotFound = errors.New("profile not found")

type Repository interface {
	List() ([]*domain.Profile, error)
	Get(id string) (*domain.Profile, error)
	GetByPath(path string) (*domain.Profile, error)
}

// FileRepository reads profiles from YAML or JSON files in one directory. The
// built-in standard1 profile is always listed unless a file overrides it.
type FileRepository struct {
	baseDir string
}

func NewFileRepository(baseDir string) *FileRepository {
	return &FileRepository{baseDir: baseDir}
}

func isProfileFile(name string) bool {
	switch filepath.Ext(name) {
	case ".yaml", ".yml", ".json":
		return true
	}
	return false
}

func (r *FileRepository) List() ([]*domain.Profile, error) {
	profiles := make([]*domain.Profile, 0)

	entries, err := os.ReadDir(r.baseDir)
	if err != nil && !os.IsNotExist(err) {
		return nil, err
	}
	for _, entry := range entries {
		if entry.IsDir() || !isProfileFile(entry.Name()) {
			continue
		}
		p, err := r.load(filepath.Join(r.baseDir, entry.Name()))
		if err != nil {
			continue
		}
		profiles = append(profiles, p)
	}

	hasDefault := false
	for _, p := range profiles {
		if p.ID == domain.DefaultProfileName || p.Name == domain.DefaultProfileName {
			hasDefault = true
		}
	}
	if !hasDefault {
		profiles = append(profiles, domain.DefaultProfile())
	}

	sort.Slice(profiles, func(i, j int) bool { return profiles[i].ID < profiles[j].ID })
	return profiles, nil
}

func (r *FileRepository) Get(id string) (*domain.Profile, error) {
	profiles, err := r.List()
	if err != nil {
		return nil, err
	}

	for _, p := range profiles {
		if p.ID == id || p.Name == id {
			return p, nil
		}
	}

	return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
}

// GetByPath loads a profile file that must live under the base directory.
// Relative paths are resolved against it.
func (r *FileRepository) GetByPath(path string) (*domain.Profile, error) {
	resolved, err := r.resolve(path)
	if err != nil {
		return nil, err
	}
	return r.load(resolved)
}

func (r *FileRepository) resolve(path string) (string, error) {
	base, err := filepath.Abs(r.baseDir)
	if err != nil {
		return "", err
	}
	p := path
	if !filepath.IsAbs(p) {
		p = filepath.Join(base, p)
	}
	p = filepath.Clean(p)

	rel, err := filepath.Rel(base, p)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("profile path %s is outside %s", path, r.baseDir)
	}
	return p, nil
}

func (r *FileRepository) load(path string) (*domain.Profile, error) {
	return LoadFile(path)
}

// LoadFile reads a single profile from any path. The ID defaults to the file
// name without its extension.
func LoadFile(path string) (*domain.Profile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var profile domain.Profile
	if filepath.Ext(path) == ".json" {
		err = json.Unmarshal(data, &profile)
	} else {
		err = yaml.Unmarshal(data, &profile)
	}
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	if profile.ID == "" {
		profile.ID = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	if profile.Name == "" {
		profile.Name = profile.ID
	}

	return &profile, nil
}
