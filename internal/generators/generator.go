package generators

import (
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/mmrzaf/cqlstress/internal/distribution"
)

type Kind int

const (
	// KindBlob emits the expanded bytes as an opaque blob.
	KindBlob Kind = iota
	// KindHexBlob emits the lowercase hex text of the expanded bytes. Used for
	// partition keys so they stay printable.
	KindHexBlob
)

func (k Kind) String() string {
	switch k {
	case KindBlob:
		return "blob"
	case KindHexBlob:
		return "hexblob"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// MaxValueSize caps a single generated value. It keeps a mistyped size from
// reaching make() in a worker and stays well under the CQL frame limit.
const MaxValueSize = 16 << 20

var (
	ErrInvalidSize  = errors.New("value size must be > 0")
	ErrSizeTooLarge  = fmt.Errorf("value size must be <= %d", MaxValueSize)
)

// Generator produces the value for one column. It is owned by a single row
// generator and is not safe for concurrent use.
type Generator struct {
	kind Kind
	name string
	size distribution.Distribution
	seed int64
	rng  javaRandom
}

// New fails when the size distribution can produce a non-positive length or
// one above MaxValueSize. Only distributions reporting their bounds can be
// checked up front; Generate clamps the rest.
func New(kind Kind, name string, size distribution.Distribution) (*Generator, error) {
	if size == nil {
		return nil, fmt.Errorf("generator %q: size distribution is required", name)
	}
	if kind != KindBlob && kind != KindHexBlob {
		return nil, fmt.Errorf("generator %q: unknown kind %s", name, kind)
	}
	if err := CheckSize(size); err != nil {
		return nil, fmt.Errorf("generator %q: %w", name, err)
	}
	return &Generator{kind: kind, name: name, size: size}, nil
}

// CheckSize reports whether a bounded size distribution stays within
// 1..MaxValueSize.
func CheckSize(size distribution.Distribution) error {
	b, ok := size.(distribution.Bounded)
	if !ok {
		return nil
	}
	if b.Min() <= 0 {
		return fmt.Errorf("%w, got %s", ErrInvalidSize, size)
	}
	if b.Max() > MaxValueSize {
		return fmt.Errorf("%w, got %s", ErrSizeTooLarge, size)
	}
	return nil
}

func (g *Generator) Name() string { return g.name }

func (g *Generator) Kind() Kind { return g.kind }

func (g *Generator) Seed() int64 { return g.seed }

func (g *Generator) SetSeed(seed int64) {
	g.seed = seed
}

// Generate returns a freshly allocated value for the current seed. Calling it
// again without reseeding returns the same bytes.
func (g *Generator) Generate() []byte {
	if s, ok := g.size.(distribution.Seedable); ok {
		s.SetSeed(g.seed)
	}
	n := g.size.Next()
	if n < 1 {
		n = 1
	}
	if n > MaxValueSize {
		n = MaxValueSize
	}

	raw := make([]byte, n)
	g.rng.SetSeed(^g.seed)
	g.rng.Fill(raw)

	if g.kind == KindBlob {
		return raw
	}
	out := make([]byte, hex.EncodedLen(len(raw)))
	hex.Encode(out, raw)
	return out
}
