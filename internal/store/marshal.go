package store

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"github.com/roach88/notebook/internal/errs"
	"github.com/roach88/notebook/internal/outcome"
	"github.com/roach88/notebook/internal/record"
	"github.com/roach88/notebook/internal/serde"
)

// marshalObject converts parameters or data to JSON TEXT for storage.
// Serialization errors keep their kind.
func marshalObject(codec *serde.Codec, field string, m map[string]any) (string, error) {
	if m == nil {
		m = map[string]any{}
	}
	data, err := codec.Marshal(m)
	if err != nil {
		return "", fmt.Errorf("marshal %s: %w", field, err)
	}
	return string(data), nil
}

// unmarshalObject parses stored JSON TEXT, resolving registered envelopes.
func unmarshalObject(codec *serde.Codec, field string, data []byte) (map[string]any, error) {
	if len(data) == 0 {
		return map[string]any{}, nil
	}
	obj, err := codec.UnmarshalObject(data)
	if err != nil {
		return nil, fmt.Errorf("unmarshal %s: %w", field, err)
	}
	return obj, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

// parseTime reads a stored timestamp and marks it UTC. Timestamps written
// without an offset are taken to be UTC already.
func parseTime(field, s string) (time.Time, error) {
	t, err := serde.ParseTimestamp(s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse %s: %w", field, err)
	}
	return t.UTC(), nil
}

// logLine is the persisted layout of one record in line-oriented backends.
// Field order is the column order of the experiments table.
type logLine struct {
	Name       string          `json:"name"`
	StartTime  string          `json:"start_time"`
	EndTime    string          `json:"end_time"`
	Outcome    string          `json:"outcome"`
	Parameters json.RawMessage `json:"parameters"`
	Data       json.RawMessage `json:"data"`
}

// encodeLine renders exp as one newline-terminated JSON object.
func encodeLine(codec *serde.Codec, exp record.Experiment) ([]byte, error) {
	params, err := marshalObject(codec, "parameters", exp.Parameters)
	if err != nil {
		return nil, err
	}
	data, err := marshalObject(codec, "data", exp.Data)
	if err != nil {
		return nil, err
	}

	line := logLine{
		Name:       exp.Name,
		StartTime:  formatTime(exp.StartTime),
		EndTime:    formatTime(exp.EndTime),
		Outcome:    string(exp.Outcome),
		Parameters: json.RawMessage(params),
		Data:       json.RawMessage(data),
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(line); err != nil {
		return nil, errs.Wrap(errs.Serialization, "encode line", err)
	}
	// Encoder terminates the object with exactly one '\n'
	return buf.Bytes(), nil
}

// decodeLine parses one persisted line back into a record.
func decodeLine(codec *serde.Codec, raw []byte) (record.Experiment, error) {
	var line logLine
	if err := json.Unmarshal(raw, &line); err != nil {
		return record.Experiment{}, fmt.Errorf("decode line: %w", err)
	}
	return buildExperiment(codec, line.Name, line.StartTime, line.EndTime, line.Outcome, line.Parameters, line.Data)
}

// buildExperiment converts stored column values into a record.
func buildExperiment(codec *serde.Codec, name, start, end, o string, params, data []byte) (record.Experiment, error) {
	startTime, err := parseTime("start_time", start)
	if err != nil {
		return record.Experiment{}, err
	}
	endTime, err := parseTime("end_time", end)
	if err != nil {
		return record.Experiment{}, err
	}
	parsed, err := outcome.Parse(o)
	if err != nil {
		return record.Experiment{}, fmt.Errorf("parse outcome: %w", err)
	}
	paramsObj, err := unmarshalObject(codec, "parameters", params)
	if err != nil {
		return record.Experiment{}, err
	}
	dataObj, err := unmarshalObject(codec, "data", data)
	if err != nil {
		return record.Experiment{}, err
	}

	return record.Experiment{
		Name:       name,
		StartTime:  startTime,
		EndTime:    endTime,
		Outcome:    parsed,
		Parameters: paramsObj,
		Data:       dataObj,
	}, nil
}
