package store

import (
	"context"
	"fmt"

	"github.com/roach88/notebook/internal/errs"
	"github.com/roach88/notebook/internal/record"
)

// RecordExperiment inserts one experiment row inside a single transaction.
//
// Parameters and data are encoded before the transaction starts, so an
// unencodable value never touches the database. Any failure rolls the
// transaction back and leaves the table unchanged.
func (s *SQLStore) RecordExperiment(ctx context.Context, exp record.Experiment) error {
	params, err := marshalObject(s.codec, "parameters", exp.Parameters)
	if err != nil {
		return fmt.Errorf("record experiment: %w", err)
	}
	data, err := marshalObject(s.codec, "data", exp.Data)
	if err != nil {
		return fmt.Errorf("record experiment: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errs.Wrap(errs.Storage, "record experiment: begin transaction", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO experiments
		(name, start_time, end_time, outcome, parameters, data)
		VALUES (?, ?, ?, ?, ?, ?)
	`,
		exp.Name,
		formatTime(exp.StartTime),
		formatTime(exp.EndTime),
		string(exp.Outcome),
		params,
		data,
	)
	if err != nil {
		return errs.Wrap(errs.Storage, "record experiment: insert", err)
	}

	if err := tx.Commit(); err != nil {
		return errs.Wrap(errs.Storage, "record experiment: commit", err)
	}
	return nil
}
