package store

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/roach88/notebook/internal/errs"
	"github.com/roach88/notebook/internal/record"
	"github.com/roach88/notebook/internal/serde"
)

// maxLineBytes bounds a single persisted record when reading a log back.
const maxLineBytes = 64 << 20

// LogStore appends experiment records to a newline-delimited JSON file.
//
// Every record is one write call on a file opened with O_APPEND, so records
// from a single writer never interleave. Concurrent writers in different
// processes are not coordinated.
type LogStore struct {
	path  string
	codec *serde.Codec
}

// OpenLog returns a LogStore for path. The file is created on first write.
// A nil codec means serde.Default().
func OpenLog(path string, codec *serde.Codec) (*LogStore, error) {
	if path == "" {
		return nil, errs.New(errs.Storage, "open log", "empty path")
	}
	if codec == nil {
		codec = serde.Default()
	}
	return &LogStore{path: path, codec: codec}, nil
}

// Path returns the log file path.
func (s *LogStore) Path() string {
	return s.path
}

// RecordExperiment appends one line holding exp.
func (s *LogStore) RecordExperiment(ctx context.Context, exp record.Experiment) error {
	line, err := encodeLine(s.codec, exp)
	if err != nil {
		return fmt.Errorf("record experiment: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return errs.Wrap(errs.Storage, "record experiment", err)
	}

	f, err := os.OpenFile(s.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return errs.Wrap(errs.Storage, "record experiment: open log", err)
	}
	_, werr := f.Write(line)
	cerr := f.Close()
	if werr != nil {
		return errs.Wrap(errs.Storage, "record experiment: append", werr)
	}
	if cerr != nil {
		return errs.Wrap(errs.Storage, "record experiment: close log", cerr)
	}
	return nil
}

// ListAllExperiments reads every record in file order. A missing file
// holds no records. Blank lines are ignored.
func (s *LogStore) ListAllExperiments(ctx context.Context) ([]record.Experiment, error) {
	f, err := os.Open(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return []record.Experiment{}, nil
	}
	if err != nil {
		return nil, errs.Wrap(errs.Storage, "open log", err)
	}
	defer f.Close()

	experiments := []record.Experiment{}
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		if err := ctx.Err(); err != nil {
			return nil, errs.Wrap(errs.Storage, "read log", err)
		}
		raw := bytes.TrimSpace(scanner.Bytes())
		if len(raw) == 0 {
			continue
		}
		exp, err := decodeLine(s.codec, raw)
		if err != nil {
			return nil, errs.Wrap(errs.Storage, fmt.Sprintf("read log: line %d", lineNo), err)
		}
		experiments = append(experiments, exp)
	}
	if err := scanner.Err(); err != nil {
		return nil, errs.Wrap(errs.Storage, "read log", err)
	}
	return experiments, nil
}
