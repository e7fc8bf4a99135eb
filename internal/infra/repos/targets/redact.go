package targets

import (
	"net/url"
	"strings"

	"github.com/mmrzaf/cqlstress/internal/domain"
	"github.com/mmrzaf/cqlstress/internal/infra/targets/cql"
)

// RedactDSN masks credentials. CQL DSNs and PostgreSQL URLs keep their hosts;
// any other DSN (a SQLite path) is hidden entirely.
func RedactDSN(kind, dsn string) string {
	dsn = strings.TrimSpace(dsn)
	if dsn == "" {
		return ""
	}
	switch kind {
	case domain.TargetKindCQL:
		if d, err := cql.ParseDSN(dsn); err == nil {
			return d.Redacted()
		}
	case domain.TargetKindPostgres:
		if u, err := url.Parse(dsn); err == nil && u.Host != "" {
			return u.Redacted()
		}
	}
	return "****"
}

func RedactTarget(t *domain.TargetConfig) *domain.TargetConfig {
	if t == nil {
		return nil
	}
	cp := *t
	cp.DSN = RedactDSN(cp.Kind, cp.DSN)
	return &cp
}

func RedactTargets(list []*domain.TargetConfig) []*domain.TargetConfig {
	out := make([]*domain.TargetConfig, 0, len(list))
	for _, t := range list {
		out = append(out, RedactTarget(t))
	}
	return out
}
