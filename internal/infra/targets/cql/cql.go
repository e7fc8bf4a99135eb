package cql

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/gocql/gocql"
	"github.com/mmrzaf/cqlstress/internal/session"
)

// Option keys accepted in a target's options map.
const (
	OptCompression    = "compression"
	OptTimeout        = "timeout"
	OptConnectTimeout = "connect_timeout"
	OptNumConns       = "num_conns"
	OptLocalDC        = "local_dc"
	OptProtoVersion   = "proto_version"
)

type Session struct {
	dsn     *DSN
	session *gocql.Session
}

// NewClusterConfig maps a DSN and target options onto a gocql cluster config.
// The session is opened without a keyspace so EnsureSchema can create it.
func NewClusterConfig(dsn *DSN, opts map[string]string, consistency string) (*gocql.ClusterConfig, error) {
	cluster := gocql.NewCluster(dsn.Hosts...)
	cluster.Port = dsn.Port
	if dsn.Username != "" {
		cluster.Authenticator = gocql.PasswordAuthenticator{
			Username: dsn.Username,
			Password: dsn.Password,
		}
	}
	if consistency != "" {
		c, err := gocql.ParseConsistencyWrapper(strings.ToUpper(consistency))
		if err != nil {
			return nil, err
		}
		cluster.Consistency = c
	}

	for k, v := range opts {
		switch k {
		case OptCompression:
			switch v {
			case "snappy":
				cluster.Compressor = &gocql.SnappyCompressor{}
			case "lz4":
				cluster.Compressor = LZ4Compressor{}
			case "", "none":
			default:
				return nil, fmt.Errorf("unsupported compression: %s", v)
			}
		case OptTimeout, OptConnectTimeout:
			d, err := time.ParseDuration(v)
			if err != nil {
				return nil, fmt.Errorf("option %s: %w", k, err)
			}
			if k == OptTimeout {
				cluster.Timeout = d
			} else {
				cluster.ConnectTimeout = d
			}
		case OptNumConns, OptProtoVersion:
			n, err := strconv.Atoi(v)
			if err != nil || n <= 0 {
				return nil, fmt.Errorf("option %s must be a positive integer, got %q", k, v)
			}
			if k == OptNumConns {
				cluster.NumConns = n
			} else {
				cluster.ProtoVersion = n
			}
		case OptLocalDC:
			cluster.PoolConfig.HostSelectionPolicy = gocql.TokenAwareHostPolicy(gocql.DCAwareRoundRobinPolicy(v))
		default:
			return nil, fmt.Errorf("unknown cql option: %s", k)
		}
	}
	return cluster, nil
}

func Open(ctx context.Context, rawDSN string, opts map[string]string, consistency string) (*Session, error) {
	dsn, err := ParseDSN(rawDSN)
	if err != nil {
		return nil, err
	}
	cluster, err := NewClusterConfig(dsn, opts, consistency)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s, err := cluster.CreateSession()
	if err != nil {
		return nil, fmt.Errorf("connect to %s: %w", dsn.Redacted(), err)
	}
	return &Session{dsn: dsn, session: s}, nil
}

func (s *Session) Close() error {
	if s.session != nil {
		s.session.Close()
	}
	return nil
}

func (s *Session) TableRef(keyspace, table string) string {
	if keyspace == "" {
		return table
	}
	return keyspace + "." + table
}

func (s *Session) EnsureSchema(ctx context.Context, schema session.Schema) error {
	rf := schema.ReplicationFactor
	if rf <= 0 {
		rf = 1
	}
	stmts := []string{
		fmt.Sprintf("CREATE KEYSPACE IF NOT EXISTS %s WITH replication = {'class': 'SimpleStrategy', 'replication_factor': %d}",
			schema.Keyspace, rf),
		fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s)",
			s.TableRef(schema.Keyspace, schema.Table), session.TableDefinition(schema.Columns)),
	}
	for _, stmt := range stmts {
		if err := s.session.Query(stmt).WithContext(ctx).Exec(); err != nil {
			return fmt.Errorf("%s: %w", stmt, err)
		}
	}
	return nil
}

// Prepare checks the consistency levels up front. gocql prepares and caches
// the statement itself on first execution.
func (s *Session) Prepare(_ context.Context, stmt session.Statement) (session.Prepared, error) {
	p := &prepared{session: s.session, stmt: stmt, serial: gocql.Serial}
	if stmt.Consistency != "" {
		c, err := gocql.ParseConsistencyWrapper(strings.ToUpper(stmt.Consistency))
		if err != nil {
			return nil, err
		}
		p.consistency = c
		p.hasConsistency = true
	}
	switch strings.ToUpper(stmt.SerialConsistency) {
	case "", "SERIAL":
	case "LOCAL_SERIAL":
		p.serial = gocql.LocalSerial
	default:
		return nil, fmt.Errorf("invalid serial consistency: %s", stmt.SerialConsistency)
	}
	return p, nil
}

type prepared struct {
	session        *gocql.Session
	stmt           session.Statement
	consistency    gocql.Consistency
	hasConsistency bool
	serial         gocql.SerialConsistency
}

func (p *prepared) query(ctx context.Context, args []interface{}) *gocql.Query {
	q := p.session.Query(p.stmt.Text, args...).
		WithContext(ctx).
		SerialConsistency(p.serial).
		Idempotent(p.stmt.Idempotent)
	if p.hasConsistency {
		q = q.Consistency(p.consistency)
	}
	return q
}

func (p *prepared) Exec(ctx context.Context, args ...interface{}) error {
	return p.query(ctx, args).Exec()
}

func (p *prepared) Query(ctx context.Context, args ...interface{}) ([][][]byte, error) {
	iter := p.query(ctx, args).Iter()
	n := len(iter.Columns())

	var out [][][]byte
	scanner := iter.Scanner()
	for scanner.Next() {
		vals := make([][]byte, n)
		ptrs := make([]interface{}, n)
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := scanner.Scan(ptrs...); err != nil {
			_ = iter.Close()
			return nil, err
		}
		out = append(out, vals)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
