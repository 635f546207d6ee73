// Package ingest parses sample files into message records. Malformed
// input is rejected here with positional errors and never reaches the
// inference core.
package ingest

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/yourorg/asyncdoc/internal/metrics"
	"github.com/yourorg/asyncdoc/pkg/types"
)

type envelope struct {
	Topic     string          `json:"topic"`
	Payload   json.RawMessage `json:"payload"`
	ModelHint string          `json:"modelHint"`
	Timestamp time.Time       `json:"timestamp"`
}

// ParseFile reads records from a sample file. A file starting with '['
// is treated as a JSON array of records; anything else as NDJSON with
// one record per line.
func ParseFile(path string) ([]types.Record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	trimmed := bytes.TrimLeft(data, " \t\r\n")
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("%s: empty sample file", path)
	}
	var records []types.Record
	if trimmed[0] == '[' {
		records, err = parseArray(trimmed)
	} else {
		records, err = parseLines(data)
	}
	if err != nil {
		metrics.RecordsRejected.WithLabelValues("file").Inc()
		return nil, err
	}
	metrics.RecordsIngested.WithLabelValues("file").Add(float64(len(records)))
	return records, nil
}

// ParseRecords decodes a JSON array of records, e.g. an API request body.
// Each record is validated the same way as a file import.
func ParseRecords(data []byte) ([]types.Record, error) {
	trimmed := bytes.TrimLeft(data, " \t\r\n")
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("no records")
	}
	return parseArray(trimmed)
}

func parseArray(data []byte) ([]types.Record, error) {
	var envelopes []envelope
	if err := json.Unmarshal(data, &envelopes); err != nil {
		return nil, fmt.Errorf("parse record array: %w", err)
	}
	records := make([]types.Record, 0, len(envelopes))
	for i, env := range envelopes {
		rec, err := env.record()
		if err != nil {
			return nil, fmt.Errorf("record %d: %w", i, err)
		}
		records = append(records, rec)
	}
	return records, nil
}

func parseLines(data []byte) ([]types.Record, error) {
	scanner := bufio.NewScanner(bytes.NewReader(data))
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	var records []types.Record
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		var env envelope
		if err := json.Unmarshal([]byte(line), &env); err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNo, err)
		}
		rec, err := env.record()
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNo, err)
		}
		records = append(records, rec)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("no records found")
	}
	return records, nil
}

// An explicit JSON null payload is a valid observation; an absent payload
// carries no information and is rejected here so it cannot masquerade as
// null downstream.
func (e envelope) record() (types.Record, error) {
	if strings.TrimSpace(e.Topic) == "" {
		return types.Record{}, fmt.Errorf("missing topic")
	}
	if len(e.Payload) == 0 {
		return types.Record{}, fmt.Errorf("missing payload")
	}
	rec := types.Record{Topic: e.Topic, ModelHint: e.ModelHint, Timestamp: e.Timestamp}
	if rec.Timestamp.IsZero() {
		rec.Timestamp = time.Now().UTC()
	}
	var payload any
	if err := json.Unmarshal(e.Payload, &payload); err != nil {
		return types.Record{}, fmt.Errorf("invalid payload: %w", err)
	}
	rec.Payload = payload
	return rec, nil
}

// ParsePayload decodes one raw payload captured on a topic.
func ParsePayload(topic string, data []byte, at time.Time) (types.Record, error) {
	var payload any
	if err := json.Unmarshal(data, &payload); err != nil {
		return types.Record{}, fmt.Errorf("topic %s: invalid payload: %w", topic, err)
	}
	if at.IsZero() {
		at = time.Now().UTC()
	}
	return types.Record{Topic: topic, Payload: payload, Timestamp: at}, nil
}
