package amqp

import (
	"encoding/json"
	"fmt"
	"time"
)

// EntrySyncMessage asks the worker to mirror one saved entry. It carries only
// identifiers; the worker loads the entry itself.
type EntrySyncMessage struct {
	SessionID string    `json:"session_id"`
	ID        int64     `json:"id"`
	Version   int64     `json:"version"`
	Timestamp time.Time `json:"timestamp"`
}

func NewEntrySyncMessage(sessionID string, id, version int64) *EntrySyncMessage {
	return &EntrySyncMessage{
		SessionID: sessionID,
		ID:        id,
		Version:   version,
		Timestamp: time.Now(),
	}
}

func (m *EntrySyncMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func EntrySyncMessageFromJSON(data []byte) (*EntrySyncMessage, error) {
	var msg EntrySyncMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if msg.ID <= 0 {
		return nil, fmt.Errorf("invalid entry id %d", msg.ID)
	}
	return &msg, nil
}
