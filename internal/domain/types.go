package domain

import (
	"encoding/json"
	"fmt"
	"time"
)

// Profile describes how rows are synthesized and where they live. Two runs
// with equal profiles and a deterministic population generate the same rows.
type Profile struct {
	ID                string `json:"id" yaml:"id"`
	Name              string `json:"name" yaml:"name"`
	Description       string `json:"description,omitempty" yaml:"description,omitempty"`
	Keyspace          string `json:"keyspace,omitempty" yaml:"keyspace,omitempty"`
	Table             string `json:"table,omitempty" yaml:"table,omitempty"`
	Population        string `json:"population,omitempty" yaml:"population,omitempty"`
	KeySize           int64  `json:"key_size,omitempty" yaml:"key_size,omitempty"`
	Columns           int    `json:"columns,omitempty" yaml:"columns,omitempty"`
	ColumnSize        string `json:"column_size,omitempty" yaml:"column_size,omitempty"`
	Consistency       string `json:"consistency,omitempty" yaml:"consistency,omitempty"`
	SerialConsistency string `json:"serial_consistency,omitempty" yaml:"serial_consistency,omitempty"`
	ReplicationFactor int    `json:"replication_factor,omitempty" yaml:"replication_factor,omitempty"`
}

const (
	DefaultKeyspace          = "keyspace1"
	DefaultTable             = "standard1"
	DefaultKeySize           = 10
	DefaultColumns           = 5
	DefaultColumnSize        = "FIXED(34)"
	DefaultConsistency       = "LOCAL_ONE"
	DefaultSerialConsistency = "SERIAL"
	DefaultReplicationFactor = 1
	DefaultPopulationSize    = 1_000_000
	DefaultProfileName       = "standard1"
)

type TargetConfig struct {
	ID      string            `json:"id" yaml:"id"`
	Name    string            `json:"name" yaml:"name"`
	Kind    string            `json:"kind" yaml:"kind"`
	DSN     string            `json:"dsn" yaml:"dsn"`
	Options map[string]string `json:"options,omitempty" yaml:"options,omitempty"`
}

const (
	TargetKindCQL      = "cql"
	TargetKindSQLite   = "sqlite"
	TargetKindPostgres = "postgres"
)

type Command string

const (
	CommandWrite Command = "write"
	CommandRead  Command = "read"
)

type Run struct {
	ID          string          `json:"id"`
	Command     Command         `json:"command"`
	ProfileID   string          `json:"profile_id"`
	ProfileName string          `json:"profile_name"`
	TargetID    string          `json:"target_id"`
	TargetName  string          `json:"target_name"`
	TargetKind  string          `json:"target_kind"`
	Population  string          `json:"population"`
	ConfigHash  string          `json:"config_hash"`
	Fingerprint string          `json:"fingerprint,omitempty"`
	Status      RunStatus       `json:"status"`
	StartedAt   time.Time       `json:"started_at"`
	CompletedAt *time.Time      `json:"completed_at,omitempty"`
	Stats       json.RawMessage `json:"stats,omitempty"`
	Error       string          `json:"error,omitempty"`
}

type RunStatus string

const (
	RunStatusPending RunStatus = "pending"
	RunStatusRunning RunStatus = "running"
	RunStatusSuccess RunStatus = "success"
	RunStatusFailed  RunStatus = "failed"
)

type RunStats struct {
	Operations       int64   `json:"operations"`
	Successes        int64   `json:"successes"`
	Failures         int64   `json:"failures"`
	ValidationErrors int64   `json:"validation_errors"`
	ExecutionErrors  int64   `json:"execution_errors"`
	DurationSeconds  float64 `json:"duration_seconds"`
	OpsPerSecond     float64 `json:"ops_per_second"`
	LatencyMeanMS    float64 `json:"latency_mean_ms"`
	LatencyP50MS     float64 `json:"latency_p50_ms"`
	LatencyP95MS     float64 `json:"latency_p95_ms"`
	LatencyP99MS     float64 `json:"latency_p99_ms"`
	LatencyMaxMS     float64 `json:"latency_max_ms"`
}

type RunRequest struct {
	Command           Command       `json:"command"`
	ProfileID         string        `json:"profile_id,omitempty"`
	Profile           *Profile      `json:"profile,omitempty"`
	TargetID          string        `json:"target_id,omitempty"`
	Target            *TargetConfig `json:"target,omitempty"`
	Population        string        `json:"population,omitempty"`
	Operations        *uint64       `json:"operations,omitempty"`
	Duration          string        `json:"duration,omitempty"`
	Threads           int           `json:"threads,omitempty"`
	Rate              float64       `json:"rate,omitempty"`
	Consistency       string        `json:"consistency,omitempty"`
	SerialConsistency string        `json:"serial_consistency,omitempty"`
}

// DefaultProfile is the predefined workload: a standard1 table keyed by a
// 10 byte hex key with five 34 byte blob columns.
func DefaultProfile() *Profile {
	return &Profile{
		ID:   DefaultProfileName,
		Name: DefaultProfileName,
	}
}

// WithDefaults returns a copy with every unset field filled in. The default
// population is SEQ(1..operations), or SEQ(1..1000000) for unbounded runs.
func (p Profile) WithDefaults(operations *uint64) Profile {
	if p.Keyspace == "" {
		p.Keyspace = DefaultKeyspace
	}
	if p.Table == "" {
		p.Table = DefaultTable
	}
	if p.KeySize == 0 {
		p.KeySize = DefaultKeySize
	}
	if p.Columns == 0 {
		p.Columns = DefaultColumns
	}
	if p.ColumnSize == "" {
		p.ColumnSize = DefaultColumnSize
	}
	if p.Consistency == "" {
		p.Consistency = DefaultConsistency
	}
	if p.SerialConsistency == "" {
		p.SerialConsistency = DefaultSerialConsistency
	}
	if p.ReplicationFactor == 0 {
		p.ReplicationFactor = DefaultReplicationFactor
	}
	if p.Population == "" {
		end := uint64(DefaultPopulationSize)
		if operations != nil && *operations > 0 {
			end = *operations
		}
		p.Population = fmt.Sprintf("SEQ(1..%d)", end)
	}
	return p
}

// TargetCheck is the outcome of opening a session against a target.
type TargetCheck struct {
	TargetID  string    `json:"target_id"`
	OK        bool      `json:"ok"`
	Error     string    `json:"error,omitempty"`
	LatencyMS int64     `json:"latency_ms"`
	CanCreate bool      `json:"can_create"`
	CheckedAt time.Time `json:"checked_at"`
}
