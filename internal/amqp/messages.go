package amqp

import (
	"encoding/json"
	"time"
)

// ImportCompletedMessage announces a finished statement upload. It carries counts
// only; transactions stay in the session that imported them.
type ImportCompletedMessage struct {
	BatchID   string    `json:"batchId"`
	Username  string    `json:"username"`
	Imported  int       `json:"imported"`
	Dropped   int       `json:"dropped"`
	Skipped   int       `json:"skipped"`
	Timestamp time.Time `json:"timestamp"`
}

// NewImportCompletedMessage stamps a message with the current time.
func NewImportCompletedMessage(batchID, username string, imported, dropped, skipped int) *ImportCompletedMessage {
	return &ImportCompletedMessage{
		BatchID:   batchID,
		Username:  username,
		Imported:  imported,
		Dropped:   dropped,
		Skipped:   skipped,
		Timestamp: time.Now().UTC(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *ImportCompletedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// ImportCompletedMessageFromJSON decodes a message body.
func ImportCompletedMessageFromJSON(data []byte) (*ImportCompletedMessage, error) {
	var msg ImportCompletedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
