package store

import (
	"encoding/json"
	"fmt"

	"github.com/yourorg/asyncdoc/pkg/types"
)

// ToRecords decodes stored messages back into generator records.
func ToRecords(messages []types.StoredMessage) ([]types.Record, error) {
	out := make([]types.Record, 0, len(messages))
	for _, m := range messages {
		rec := types.Record{Topic: m.Topic, ModelHint: m.ModelHint, Timestamp: m.Timestamp}
		if m.Payload != "" {
			var payload any
			if err := json.Unmarshal([]byte(m.Payload), &payload); err != nil {
				return nil, fmt.Errorf("message %d on %s: %w", m.Seq, m.Topic, err)
			}
			rec.Payload = payload
		}
		out = append(out, rec)
	}
	return out, nil
}

// FromRecords encodes records for persistence, numbering them from seq.
func FromRecords(records []types.Record, seq int) ([]types.StoredMessage, error) {
	out := make([]types.StoredMessage, 0, len(records))
	for i, rec := range records {
		payload, err := json.Marshal(rec.Payload)
		if err != nil {
			return nil, fmt.Errorf("record %d on %s: %w", i, rec.Topic, err)
		}
		out = append(out, types.StoredMessage{
			Seq:       seq + i,
			Topic:     rec.Topic,
			Payload:   string(payload),
			ModelHint: rec.ModelHint,
			Timestamp: rec.Timestamp,
		})
	}
	return out, nil
}
