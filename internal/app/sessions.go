package app

import (
	"context"
	"fmt"

	"github.com/mmrzaf/cqlstress/internal/domain"
	"github.com/mmrzaf/cqlstress/internal/infra/targets/cql"
	"github.com/mmrzaf/cqlstress/internal/infra/targets/postgres"
	"github.com/mmrzaf/cqlstress/internal/infra/targets/sqlite"
	"github.com/mmrzaf/cqlstress/internal/session"
)

func openSession(ctx context.Context, t *domain.TargetConfig, consistency string) (session.Session, error) {
	switch t.Kind {
	case domain.TargetKindCQL:
		return cql.Open(ctx, t.DSN, t.Options, consistency)
	case domain.TargetKindSQLite:
		return sqlite.Open(ctx, t.DSN)
	case domain.TargetKindPostgres:
		return postgres.Open(ctx, t.DSN)
	default:
		return nil, fmt.Errorf("unsupported target kind: %s", t.Kind)
	}
}
