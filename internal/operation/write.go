package operation

import (
	"context"
	"fmt"

	"github.com/mmrzaf/cqlstress/internal/logging"
	"github.com/mmrzaf/cqlstress/internal/rowgen"
	"github.com/mmrzaf/cqlstress/internal/session"
)

type WriteFactory struct {
	rows   *rowgen.Factory
	stmt   session.Prepared
	cfg    Config
	logger *logging.Logger
}

func NewWriteFactory(ctx context.Context, s session.Session, rows *rowgen.Factory, cfg Config) (*WriteFactory, error) {
	text := session.InsertRow(s.TableRef(cfg.Keyspace, cfg.Table), rows.Config().ColumnNames())
	stmt, err := s.Prepare(ctx, session.Statement{
		Text:              text,
		Consistency:       cfg.Consistency,
		SerialConsistency: cfg.SerialConsistency,
		Idempotent:        true,
	})
	if err != nil {
		return nil, fmt.Errorf("prepare write statement: %w", err)
	}
	return &WriteFactory{
		rows:   rows,
		stmt:   stmt,
		cfg:    cfg,
		logger: cfg.logger().WithComponent("write"),
	}, nil
}

func (f *WriteFactory) Create() (Operation, error) {
	g, err := f.rows.Create()
	if err != nil {
		return nil, err
	}
	return &WriteOperation{
		rows:   g,
		stmt:   f.stmt,
		cfg:    f.cfg,
		logger: f.logger,
		args:   make([]interface{}, g.Width()),
	}, nil
}

type WriteOperation struct {
	rows   *rowgen.RowGenerator
	stmt   session.Prepared
	cfg    Config
	logger *logging.Logger
	args   []interface{}
}

func (o *WriteOperation) Execute(ctx context.Context, oc OperationContext) (ControlFlow, error) {
	if o.cfg.exhausted(oc) {
		return Stop, nil
	}

	row := o.rows.GenerateRow()
	for i, v := range row {
		o.args[i] = v
	}

	if err := o.stmt.Exec(ctx, o.args...); err != nil {
		o.logger.Errorw("write error", map[string]any{
			"error":         err,
			"partition_key": string(row.Key()),
		})
		return Continue, &ExecutionError{Op: "write", PartitionKey: row.Key(), Err: err}
	}

	if o.cfg.Fingerprint != nil {
		o.cfg.Fingerprint.Add(row)
	}
	return Continue, nil
}
