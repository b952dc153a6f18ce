// Copyright 2025 James Ross
package monitor

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Record is the envelope the Monitor stamps onto every payload it persists,
// from any of the four named queues (spec §6). The envelope ID is an
// internal record-store concern, not a wire field: the payload's own JSON
// shape is preserved exactly as published.
type Record struct {
	ID         string          `json:"id"`
	Queue      string          `json:"queue"`
	ReceivedAt time.Time       `json:"received_at"`
	Payload    json.RawMessage `json:"payload"`
}

// newRecord stamps payload with a fresh envelope ID and the current time.
func newRecord(queue string, payload []byte) Record {
	return Record{
		ID:         uuid.NewString(),
		Queue:      queue,
		ReceivedAt: time.Now(),
		Payload:    json.RawMessage(payload),
	}
}
