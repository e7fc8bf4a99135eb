package app

import (
	"github.com/mmrzaf/cqlstress/internal/domain"
	"github.com/mmrzaf/cqlstress/internal/infra/targets/cql"
)

// applyTargetKeyspace lets a cql://.../keyspace DSN stand in for a profile
// that names no keyspace of its own.
func applyTargetKeyspace(p *domain.Profile, t *domain.TargetConfig) {
	if p.Keyspace != "" || t == nil || t.Kind != domain.TargetKindCQL {
		return
	}
	d, err := cql.ParseDSN(t.DSN)
	if err != nil {
		return
	}
	p.Keyspace = d.Keyspace
}
