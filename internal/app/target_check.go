package app

import (
	"context"
	"fmt"
	"time"

	"github.com/mmrzaf/cqlstress/internal/domain"
	"github.com/mmrzaf/cqlstress/internal/rowgen"
	"github.com/mmrzaf/cqlstress/internal/session"
	"github.com/mmrzaf/cqlstress/internal/validation"
)

// CheckTarget opens a session against t. With createSchema it also ensures the
// profile's keyspace and table exist.
func CheckTarget(ctx context.Context, t *domain.TargetConfig, profile *domain.Profile, createSchema bool) (*domain.TargetCheck, error) {
	check := &domain.TargetCheck{
		TargetID:  t.ID,
		CheckedAt: time.Now().UTC(),
	}

	val := validation.NewValidator(nil)
	if err := val.ValidateTarget(t); err != nil {
		check.Error = err.Error()
		return check, err
	}

	start := time.Now()
	sess, err := openSession(ctx, t, "")
	check.LatencyMS = time.Since(start).Milliseconds()
	if err != nil {
		check.Error = err.Error()
		return check, err
	}
	defer sess.Close()
	check.OK = true

	if createSchema && profile != nil {
		eff := profile.WithDefaults(nil)
		if err := sess.EnsureSchema(ctx, schemaFor(&eff)); err != nil {
			check.OK = false
			check.Error = fmt.Sprintf("ensure schema: %v", err)
			return check, err
		}
		check.CanCreate = true
	}
	return check, nil
}

func schemaFor(p *domain.Profile) session.Schema {
	return session.Schema{
		Keyspace:          p.Keyspace,
		Table:             p.Table,
		Columns:           rowgen.Config{Columns: p.Columns}.ColumnNames(),
		ReplicationFactor: p.ReplicationFactor,
	}
}
