package types

import "time"

// Session records one capture session (file import, live capture or push).
type Session struct {
	ID           string    `json:"id"`
	Source       string    `json:"source"`
	Origin       string    `json:"origin"`
	MessageCount int       `json:"message_count"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
	Status       string    `json:"status"`
}

// Record is one sampled message as consumed by the generator core.
type Record struct {
	Topic     string    `json:"topic"`
	Payload   any       `json:"payload"`
	ModelHint string    `json:"modelHint,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// StoredMessage is one persisted sampled message. Payload is kept as the
// raw JSON text it arrived with.
type StoredMessage struct {
	ID        int64     `json:"id"`
	SessionID string    `json:"session_id"`
	Seq       int       `json:"seq"`
	Topic     string    `json:"topic"`
	Payload   string    `json:"payload"`
	ModelHint string    `json:"model_hint,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}
