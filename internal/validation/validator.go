package validation

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/mmrzaf/cqlstress/internal/distribution"
	"github.com/mmrzaf/cqlstress/internal/domain"
	"github.com/mmrzaf/cqlstress/internal/generators"
	"github.com/mmrzaf/cqlstress/internal/registry"
	"github.com/mmrzaf/cqlstress/internal/rowgen"
	"github.com/mmrzaf/cqlstress/internal/timeutil"
)

// MaxColumns bounds the standard table width.
const MaxColumns = 1024

type Validator struct {
	distRegistry *registry.DistributionRegistry
}

func NewValidator(distRegistry *registry.DistributionRegistry) *Validator {
	if distRegistry == nil {
		distRegistry = registry.DefaultDistributionRegistry()
	}
	return &Validator{distRegistry: distRegistry}
}

// identifier validation: unquoted CQL identifiers only (keyspace and table
// names are interpolated into statements).
var (
	identRe       = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_]{0,47}$`)
	reservedWords = map[string]struct{}{
		"add": {}, "aggregate": {}, "all": {}, "allow": {}, "alter": {}, "and": {},
		"apply": {}, "asc": {}, "authorize": {}, "batch": {}, "begin": {}, "by": {},
		"columnfamily": {}, "create": {}, "delete": {}, "desc": {}, "describe": {},
		"drop": {}, "entries": {}, "execute": {}, "from": {}, "full": {}, "grant": {},
		"if": {}, "in": {}, "index": {}, "infinity": {}, "insert": {}, "into": {},
		"is": {}, "keyspace": {}, "limit": {}, "materialized": {}, "modify": {},
		"nan": {}, "norecursive": {}, "not": {}, "null": {}, "of": {}, "on": {},
		"or": {}, "order": {}, "primary": {}, "rename": {}, "replace": {}, "revoke": {},
		"schema": {}, "select": {}, "set": {}, "table": {}, "to": {}, "token": {},
		"truncate": {}, "unlogged": {}, "update": {}, "use": {}, "using": {},
		"view": {}, "where": {}, "with": {},
	}
	consistencyLevels = map[string]struct{}{
		"ANY": {}, "ONE": {}, "TWO": {}, "THREE": {}, "QUORUM": {}, "ALL": {},
		"LOCAL_QUORUM": {}, "EACH_QUORUM": {}, "LOCAL_ONE": {},
	}
	serialConsistencyLevels = map[string]struct{}{
		"SERIAL": {}, "LOCAL_SERIAL": {},
	}
)

func IsValidIdentifier(s string) bool {
	s = strings.TrimSpace(s)
	if s == "" {
		return false
	}
	if !identRe.MatchString(s) {
		return false
	}
	if _, ok := reservedWords[strings.ToLower(s)]; ok {
		return false
	}
	return true
}

func IsValidConsistency(cl string) bool {
	_, ok := consistencyLevels[strings.ToUpper(strings.TrimSpace(cl))]
	return ok
}

func IsValidSerialConsistency(cl string) bool {
	_, ok := serialConsistencyLevels[strings.ToUpper(strings.TrimSpace(cl))]
	return ok
}

// ValidateProfile checks a profile after defaults have been applied.
func (v *Validator) ValidateProfile(p *domain.Profile) error {
	if p == nil {
		return errors.New("profile is required")
	}
	if p.Name == "" {
		return errors.New("profile name is required")
	}
	if !IsValidIdentifier(p.Keyspace) {
		return fmt.Errorf("invalid keyspace identifier: %s", p.Keyspace)
	}
	if !IsValidIdentifier(p.Table) {
		return fmt.Errorf("invalid table identifier: %s", p.Table)
	}
	if p.KeySize <= 0 || p.KeySize > rowgen.MaxKeySize {
		return fmt.Errorf("key_size must be in 1..%d, got %d", rowgen.MaxKeySize, p.KeySize)
	}
	if p.Columns <= 0 || p.Columns > MaxColumns {
		return fmt.Errorf("columns must be in 1..%d, got %d", MaxColumns, p.Columns)
	}
	if err := v.validateSize(p.ColumnSize); err != nil {
		return fmt.Errorf("column_size: %w", err)
	}
	if _, err := v.distRegistry.Parse(p.Population); err != nil {
		return fmt.Errorf("population: %w", err)
	}
	if !IsValidConsistency(p.Consistency) {
		return fmt.Errorf("invalid consistency level: %s", p.Consistency)
	}
	if !IsValidSerialConsistency(p.SerialConsistency) {
		return fmt.Errorf("invalid serial consistency level: %s", p.SerialConsistency)
	}
	if p.ReplicationFactor <= 0 {
		return fmt.Errorf("replication_factor must be > 0, got %d", p.ReplicationFactor)
	}
	return nil
}

func (v *Validator) validateSize(text string) error {
	d, err := v.distRegistry.Parse(text)
	if err != nil {
		return err
	}
	return generators.CheckSize(d)
}

func (v *Validator) ValidateTarget(t *domain.TargetConfig) error {
	if t == nil {
		return errors.New("target is required")
	}
	if t.Name == "" {
		return errors.New("target name is required")
	}
	if t.Kind == "" {
		return errors.New("target kind is required")
	}
	if strings.TrimSpace(t.DSN) == "" {
		return errors.New("target dsn is required")
	}

	switch t.Kind {
	case domain.TargetKindCQL:
		if strings.Contains(t.DSN, "://") && !strings.HasPrefix(t.DSN, "cql://") {
			return fmt.Errorf("cql target dsn must use the cql:// scheme: %s", t.DSN)
		}
		if c, ok := t.Options["compression"]; ok && c != "" && c != "snappy" && c != "lz4" && c != "none" {
			return fmt.Errorf("unsupported compression: %s", c)
		}
	case domain.TargetKindSQLite:
		if len(t.Options) > 0 {
			return errors.New("sqlite targets take no options")
		}
	case domain.TargetKindPostgres:
		if strings.Contains(t.DSN, "://") && !strings.HasPrefix(t.DSN, "postgres://") && !strings.HasPrefix(t.DSN, "postgresql://") {
			return fmt.Errorf("postgres target dsn must use the postgres:// scheme: %s", t.DSN)
		}
		if len(t.Options) > 0 {
			return errors.New("postgres targets take no options")
		}
	default:
		return fmt.Errorf("unsupported target kind: %s", t.Kind)
	}

	return nil
}

func (v *Validator) ValidateRunRequest(req *domain.RunRequest) error {
	if req == nil {
		return errors.New("run request is required")
	}
	switch req.Command {
	case domain.CommandWrite, domain.CommandRead:
	case "":
		return errors.New("command is required")
	default:
		return fmt.Errorf("invalid command: %s", req.Command)
	}

	if req.ProfileID != "" && req.Profile != nil {
		return errors.New("only one of profile_id or profile must be provided")
	}

	hasTargetID := req.TargetID != ""
	hasTarget := req.Target != nil

	if !hasTargetID && !hasTarget {
		return errors.New("either target_id or target must be provided")
	}

	if hasTargetID && hasTarget {
		return errors.New("only one of target_id or target must be provided")
	}

	if req.Operations != nil && *req.Operations == 0 {
		return errors.New("operations must be > 0 when set")
	}
	if req.Duration != "" {
		d, err := timeutil.ParseDuration(req.Duration)
		if err != nil {
			return fmt.Errorf("invalid duration: %w", err)
		}
		if d <= 0 {
			return fmt.Errorf("duration must be > 0, got %s", req.Duration)
		}
	}
	if req.Operations == nil && req.Duration == "" {
		return errors.New("either operations or duration must be provided")
	}
	if req.Threads < 0 {
		return fmt.Errorf("threads must be >= 0, got %d", req.Threads)
	}
	if req.Rate < 0 {
		return fmt.Errorf("rate must be >= 0, got %v", req.Rate)
	}
	if req.Population != "" {
		if _, err := v.distRegistry.Parse(req.Population); err != nil {
			return fmt.Errorf("population: %w", err)
		}
	}
	if req.Consistency != "" && !IsValidConsistency(req.Consistency) {
		return fmt.Errorf("invalid consistency level: %s", req.Consistency)
	}
	if req.SerialConsistency != "" && !IsValidSerialConsistency(req.SerialConsistency) {
		return fmt.Errorf("invalid serial consistency level: %s", req.SerialConsistency)
	}

	if req.Target != nil {
		if err := v.ValidateTarget(req.Target); err != nil {
			return fmt.Errorf("target validation failed: %w", err)
		}
	}

	return nil
}

// DeterminismWarning returns a non-empty message when a write run samples
// partition keys from a distribution that will not repeat in a later run.
func (v *Validator) DeterminismWarning(cmd domain.Command, population distribution.Distribution) string {
	if cmd != domain.CommandWrite || population == nil || population.Deterministic() {
		return ""
	}
	return fmt.Sprintf("population %s is not deterministic: rows written by this run cannot be validated by a later read", population)
}
