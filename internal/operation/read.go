package operation

import (
	"context"
	"fmt"

	"github.com/mmrzaf/cqlstress/internal/logging"
	"github.com/mmrzaf/cqlstress/internal/rowgen"
	"github.com/mmrzaf/cqlstress/internal/session"
	"github.com/mmrzaf/cqlstress/internal/validation"
)

type ReadFactory struct {
	rows   *rowgen.Factory
	stmt   session.Prepared
	cfg    Config
	logger *logging.Logger
}

// NewReadFactory prepares the select once; every worker shares the prepared
// statement.
func NewReadFactory(ctx context.Context, s session.Session, rows *rowgen.Factory, cfg Config) (*ReadFactory, error) {
	text := session.SelectByKey(s.TableRef(cfg.Keyspace, cfg.Table), rows.Config().ColumnNames())
	stmt, err := s.Prepare(ctx, session.Statement{
		Text:              text,
		Consistency:       cfg.Consistency,
		SerialConsistency: cfg.SerialConsistency,
		Idempotent:        true,
	})
	if err != nil {
		return nil, fmt.Errorf("prepare read statement: %w", err)
	}
	return &ReadFactory{
		rows:   rows,
		stmt:   stmt,
		cfg:    cfg,
		logger: cfg.logger().WithComponent("read"),
	}, nil
}

func (f *ReadFactory) Create() (Operation, error) {
	g, err := f.rows.Create()
	if err != nil {
		return nil, err
	}
	return &ReadOperation{rows: g, stmt: f.stmt, cfg: f.cfg, logger: f.logger}, nil
}

type ReadOperation struct {
	rows   *rowgen.RowGenerator
	stmt   session.Prepared
	cfg    Config
	logger *logging.Logger
}

func (o *ReadOperation) Execute(ctx context.Context, oc OperationContext) (ControlFlow, error) {
	if o.cfg.exhausted(oc) {
		return Stop, nil
	}

	expected := o.rows.GenerateRow()
	key := expected.Key()

	actual, err := o.stmt.Query(ctx, key)
	if err != nil {
		o.logger.Errorw("read error", map[string]any{
			"error":         err,
			"partition_key": string(key),
		})
		return Continue, &ExecutionError{Op: "read", PartitionKey: key, Err: err}
	}

	if err := validation.ValidateRow(expected, actual); err != nil {
		o.logger.Errorw("read validation error", map[string]any{
			"error":         err,
			"partition_key": string(key),
		})
		return Continue, fmt.Errorf("row with partition_key %s could not be validated: %w", key, err)
	}

	if o.cfg.Fingerprint != nil {
		o.cfg.Fingerprint.Add(expected)
	}
	return Continue, nil
}
