package amqp

import (
	"encoding/json"
	"time"
)

// Message kinds carried on the settlement queue.
const (
	KindSettled = "settled"
	KindDeleted = "deleted"
)

// SettlementSyncMessage is a lightweight notification that a transaction
// changed settlement state. It carries only the ID and kind, the worker
// fetches the full transaction from the database.
type SettlementSyncMessage struct {
	ID        string    `json:"id"`
	Kind      string    `json:"kind"`
	Timestamp time.Time `json:"timestamp"`
}

// NewSettlementSyncMessage creates a new sync message for a transaction ID
func NewSettlementSyncMessage(id, kind string) *SettlementSyncMessage {
	return &SettlementSyncMessage{
		ID:        id,
		Kind:      kind,
		Timestamp: time.Now(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *SettlementSyncMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// SettlementSyncMessageFromJSON creates a message from JSON bytes
func SettlementSyncMessageFromJSON(data []byte) (*SettlementSyncMessage, error) {
	var msg SettlementSyncMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
