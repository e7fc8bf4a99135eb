package runs

import (
	"database/sql"
	"encoding/json"

	"github.com/mmrzaf/cqlstress/internal/domain"
)

const runColumns = `id, command, profile_id, profile_name,
	target_id, target_name, target_kind,
	population, config_hash, fingerprint, status,
	started_at, completed_at, stats, error`

type scanner interface {
	Scan(dest ...interface{}) error
}

// scanRun reads one row in runColumns order. Timestamps come back through
// the backend specific scan targets passed in.
func scanRun(s scanner, startedAt, completedAt interface{}) (*domain.Run, error) {
	var (
		run         domain.Run
		fingerprint sql.NullString
		stats       sql.NullString
		errStr      sql.NullString
	)
	err := s.Scan(
		&run.ID, &run.Command, &run.ProfileID, &run.ProfileName,
		&run.TargetID, &run.TargetName, &run.TargetKind,
		&run.Population, &run.ConfigHash, &fingerprint, &run.Status,
		startedAt, completedAt, &stats, &errStr,
	)
	if err != nil {
		return nil, err
	}
	run.Fingerprint = fingerprint.String
	if stats.Valid && stats.String != "" {
		run.Stats = json.RawMessage(stats.String)
	}
	run.Error = errStr.String
	return &run, nil
}

func statsValue(run *domain.Run) interface{} {
	if len(run.Stats) == 0 {
		return nil
	}
	return string(run.Stats)
}
