package store

import (
	"context"
	"database/sql"

	"github.com/roach88/notebook/internal/errs"
	"github.com/roach88/notebook/internal/record"
)

// ListAllExperiments returns every stored record ordered by insertion.
// Registered envelopes in parameters and data are decoded.
//
// Returns an empty slice (not nil) if the table is empty.
func (s *SQLStore) ListAllExperiments(ctx context.Context) ([]record.Experiment, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT name, start_time, end_time, outcome, parameters, data
		FROM experiments
		ORDER BY id ASC
	`)
	if err != nil {
		return nil, errs.Wrap(errs.Storage, "query experiments", err)
	}
	defer rows.Close()

	experiments := []record.Experiment{}
	for rows.Next() {
		exp, err := s.scanExperiment(rows)
		if err != nil {
			return nil, err
		}
		experiments = append(experiments, exp)
	}

	if err := rows.Err(); err != nil {
		return nil, errs.Wrap(errs.Storage, "iterate experiments", err)
	}

	return experiments, nil
}

// CountExperiments returns the number of stored records.
func (s *SQLStore) CountExperiments(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM experiments").Scan(&n); err != nil {
		return 0, errs.Wrap(errs.Storage, "count experiments", err)
	}
	return n, nil
}

func (s *SQLStore) scanExperiment(rows *sql.Rows) (record.Experiment, error) {
	var name, start, end, o, params, data string
	if err := rows.Scan(&name, &start, &end, &o, &params, &data); err != nil {
		return record.Experiment{}, errs.Wrap(errs.Storage, "scan experiment", err)
	}
	exp, err := buildExperiment(s.codec, name, start, end, o, []byte(params), []byte(data))
	if err != nil {
		return record.Experiment{}, errs.Wrap(errs.Storage, "read experiment "+name, err)
	}
	return exp, nil
}
