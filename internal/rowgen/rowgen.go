// Package rowgen produces full rows (partition key followed by the regular
// columns) from a shared partition key seed distribution.
//
// Row generation is deterministic as long as the population distribution is:
// the key is expanded from the sampled seed, and every column is expanded from
// a seed derived from the key alone. A read pass that samples seeds from any
// subset of the range used by a write pass regenerates exactly the rows that
// were written, without any record of them.
package rowgen

import (
	"errors"
	"fmt"

	"github.com/mmrzaf/cqlstress/internal/distribution"
	"github.com/mmrzaf/cqlstress/internal/generators"
)

const (
	DefaultKeySize    = 10
	DefaultColumns    = 5
	DefaultColumnSize = 34

	// MaxKeySize keeps the hex encoded key under the 64 KiB CQL partition
	// key limit.
	MaxKeySize = 32767
)

// Row holds the partition key at index 0 followed by the columns in declared
// order. The order matches the statement placeholders.
type Row [][]byte

func (r Row) Key() []byte {
	if len(r) == 0 {
		return nil
	}
	return r[0]
}

type Config struct {
	// KeySize is the number of expanded bytes; the hex encoded key is twice
	// as long.
	KeySize int64
	Columns int
	// ColumnSize builds one size distribution per column generator. Each
	// generator owns its own instance. Nil means FIXED(DefaultColumnSize).
	ColumnSize func() (distribution.Distribution, error)
}

func DefaultConfig() Config {
	return Config{
		KeySize: DefaultKeySize,
		Columns: DefaultColumns,
	}
}

// ColumnName returns the name of the i-th regular column: C0, C1, ...
func ColumnName(i int) string {
	return fmt.Sprintf("C%d", i)
}

func (c Config) ColumnNames() []string {
	names := make([]string, c.Columns)
	for i := range names {
		names[i] = ColumnName(i)
	}
	return names
}

func (c Config) Validate() error {
	if c.KeySize <= 0 || c.KeySize > MaxKeySize {
		return fmt.Errorf("key size must be in 1..%d, got %d", MaxKeySize, c.KeySize)
	}
	if c.Columns <= 0 {
		return fmt.Errorf("column count must be > 0, got %d", c.Columns)
	}
	return nil
}

// Factory owns the shared population distribution and manufactures one
// RowGenerator per worker.
type Factory struct {
	population distribution.Distribution
	cfg        Config
}

func NewFactory(population distribution.Distribution, cfg Config) (*Factory, error) {
	if population == nil {
		return nil, errors.New("population distribution is required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	f := &Factory{population: population, cfg: cfg}
	// Build one generator up front so that bad sizes fail here rather than
	// inside a worker.
	if _, err := f.Create(); err != nil {
		return nil, err
	}
	return f, nil
}

func (f *Factory) Population() distribution.Distribution { return f.population }

func (f *Factory) Config() Config { return f.cfg }

func (f *Factory) Create() (*RowGenerator, error) {
	key, err := generators.New(generators.KindHexBlob, "randomstrkey", distribution.NewFixed(f.cfg.KeySize))
	if err != nil {
		return nil, err
	}

	columns := make([]*generators.Generator, f.cfg.Columns)
	for i := range columns {
		size, err := f.columnSize()
		if err != nil {
			return nil, fmt.Errorf("column %s: %w", ColumnName(i), err)
		}
		g, err := generators.New(generators.KindBlob, "randomstr"+ColumnName(i), size)
		if err != nil {
			return nil, err
		}
		columns[i] = g
	}

	return &RowGenerator{
		population: f.population,
		key:        key,
		columns:    columns,
	}, nil
}

func (f *Factory) columnSize() (distribution.Distribution, error) {
	if f.cfg.ColumnSize == nil {
		return distribution.NewFixed(DefaultColumnSize), nil
	}
	return f.cfg.ColumnSize()
}

// RowGenerator is owned by a single worker. Only the population distribution
// is shared.
type RowGenerator struct {
	population distribution.Distribution
	key        *generators.Generator
	columns    []*generators.Generator
}

func (g *RowGenerator) Width() int { return len(g.columns) + 1 }

func (g *RowGenerator) GenerateRow() Row {
	return g.RowForSeed(g.population.Next())
}

// RowForSeed regenerates the row a given population seed maps to without
// touching the shared distribution.
func (g *RowGenerator) RowForSeed(pkSeed int64) Row {
	row := make(Row, 0, g.Width())

	g.key.SetSeed(pkSeed)
	key := g.key.Generate()
	row = append(row, key)

	columnsSeed := generators.DeriveColumnSeed(generators.DefaultSeedBase, key)
	for _, c := range g.columns {
		c.SetSeed(columnsSeed)
		row = append(row, c.Generate())
	}
	return row
}
