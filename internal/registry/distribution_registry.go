package registry

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/mmrzaf/cqlstress/internal/distribution"
)

// Constructor builds a distribution from the comma separated arguments found
// between the parentheses, e.g. ["1..100", "3"] for GAUSSIAN(1..100,3).
type Constructor func(args []string) (distribution.Distribution, error)

type DistributionRegistry struct {
	mu            sync.RWMutex
	constructors  map[string]Constructor
	deterministic map[string]bool
}

func NewDistributionRegistry() *DistributionRegistry {
	return &DistributionRegistry{
		constructors:  make(map[string]Constructor),
		deterministic: make(map[string]bool),
	}
}

func (r *DistributionRegistry) Register(name string, deterministic bool, ctor Constructor) {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := strings.ToUpper(name)
	r.constructors[key] = ctor
	r.deterministic[key] = deterministic
}

func (r *DistributionRegistry) Get(name string) (Constructor, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ctor, ok := r.constructors[strings.ToUpper(name)]
	if !ok {
		return nil, fmt.Errorf("distribution not found: %s", name)
	}
	return ctor, nil
}

// IsDeterministic answers for a registered name without building anything.
func (r *DistributionRegistry) IsDeterministic(name string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	det, ok := r.deterministic[strings.ToUpper(name)]
	if !ok {
		return false, fmt.Errorf("distribution not found: %s", name)
	}
	return det, nil
}

func (r *DistributionRegistry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.constructors))
	for name := range r.constructors {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Parse builds a distribution from text such as "SEQ(1..1000)",
// "FIXED(34)", "UNIFORM(1..100)" or "GAUSSIAN(1..100,5)".
func (r *DistributionRegistry) Parse(text string) (distribution.Distribution, error) {
	name, args, err := splitSpec(text)
	if err != nil {
		return nil, err
	}
	ctor, err := r.Get(name)
	if err != nil {
		return nil, err
	}
	d, err := ctor(args)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", strings.TrimSpace(text), err)
	}
	return d, nil
}

func splitSpec(text string) (string, []string, error) {
	s := strings.TrimSpace(text)
	open := strings.IndexByte(s, '(')
	if open <= 0 || !strings.HasSuffix(s, ")") {
		return "", nil, fmt.Errorf("malformed distribution %q: expected NAME(args)", text)
	}
	name := strings.TrimSpace(s[:open])
	inner := strings.TrimSpace(s[open+1 : len(s)-1])
	if inner == "" {
		return "", nil, fmt.Errorf("malformed distribution %q: missing arguments", text)
	}
	parts := strings.Split(inner, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return name, parts, nil
}

func parseRange(s string) (int64, int64, error) {
	lo, hi, ok := strings.Cut(s, "..")
	if !ok {
		return 0, 0, fmt.Errorf("expected range min..max, got %q", s)
	}
	min, err := parseInt(lo)
	if err != nil {
		return 0, 0, err
	}
	max, err := parseInt(hi)
	if err != nil {
		return 0, 0, err
	}
	return min, max, nil
}

// parseInt accepts plain integers and the k/m/b suffixes used for population
// sizes ("1m" is 1,000,000).
func parseInt(s string) (int64, error) {
	s = strings.TrimSpace(strings.ReplaceAll(s, "_", ""))
	mult := int64(1)
	switch {
	case strings.HasSuffix(s, "k"), strings.HasSuffix(s, "K"):
		mult, s = 1_000, s[:len(s)-1]
	case strings.HasSuffix(s, "m"), strings.HasSuffix(s, "M"):
		mult, s = 1_000_000, s[:len(s)-1]
	case strings.HasSuffix(s, "b"), strings.HasSuffix(s, "B"):
		mult, s = 1_000_000_000, s[:len(s)-1]
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid integer %q", s)
	}
	if n > math.MaxInt64/mult || n < math.MinInt64/mult {
		return 0, fmt.Errorf("invalid integer %q: overflows int64", s)
	}
	return n * mult, nil
}

func parseFloat(s string) (float64, error) {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, fmt.Errorf("invalid number %q", s)
	}
	return f, nil
}

func newFixed(args []string) (distribution.Distribution, error) {
	if len(args) != 1 {
		return nil, fmt.Errorf("FIXED takes exactly one argument, got %d", len(args))
	}
	v, err := parseInt(args[0])
	if err != nil {
		return nil, err
	}
	return distribution.NewFixed(v), nil
}

func newSequential(args []string) (distribution.Distribution, error) {
	if len(args) != 1 {
		return nil, fmt.Errorf("SEQ takes exactly one range argument, got %d", len(args))
	}
	min, max, err := parseRange(args[0])
	if err != nil {
		return nil, err
	}
	return distribution.NewSequential(min, max)
}

func newUniform(args []string) (distribution.Distribution, error) {
	if len(args) != 1 {
		return nil, fmt.Errorf("UNIFORM takes exactly one range argument, got %d", len(args))
	}
	min, max, err := parseRange(args[0])
	if err != nil {
		return nil, err
	}
	return distribution.NewUniform(min, max)
}

func newGaussian(args []string) (distribution.Distribution, error) {
	if len(args) < 1 || len(args) > 3 {
		return nil, fmt.Errorf("GAUSSIAN takes a range and optionally stdvrng or mean,stdev, got %d arguments", len(args))
	}
	min, max, err := parseRange(args[0])
	if err != nil {
		return nil, err
	}
	switch len(args) {
	case 1:
		return distribution.NewGaussianRange(min, max, distribution.DefaultStdvRange)
	case 2:
		stdvrng, err := parseFloat(args[1])
		if err != nil {
			return nil, err
		}
		return distribution.NewGaussianRange(min, max, stdvrng)
	default:
		mean, err := parseFloat(args[1])
		if err != nil {
			return nil, err
		}
		stdev, err := parseFloat(args[2])
		if err != nil {
			return nil, err
		}
		return distribution.NewGaussian(min, max, mean, stdev)
	}
}

func DefaultDistributionRegistry() *DistributionRegistry {
	r := NewDistributionRegistry()
	r.Register("FIXED", true, newFixed)
	r.Register("SEQ", true, newSequential)
	r.Register("UNIFORM", false, newUniform)
	r.Register("GAUSSIAN", false, newGaussian)
	r.Register("GAUSS", false, newGaussian)
	r.Register("NORMAL", false, newGaussian)
	return r
}
