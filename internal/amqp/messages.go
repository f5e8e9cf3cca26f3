package amqp

import (
	"encoding/json"
	"time"

	"kasbook/internal/core"
)

// Event types carried on the ledger exchange.
const (
	EventCommitted = "committed"
	EventUpdated   = "updated"
	EventDeleted   = "deleted"
)

// LedgerEvent is a lightweight notification that a ledger row changed.
// Consumers fetch the full row from the persistence engine by id; the
// message deliberately carries no amounts or descriptions.
type LedgerEvent struct {
	Type      string     `json:"type"`
	ID        int64      `json:"id"`
	Scope     core.Scope `json:"scope"`
	Owner     int64      `json:"owner"`
	Timestamp time.Time  `json:"timestamp"`
}

func NewLedgerEvent(eventType string, id int64, key core.ScopeKey) *LedgerEvent {
	return &LedgerEvent{
		Type:      eventType,
		ID:        id,
		Scope:     key.Scope,
		Owner:     key.Owner,
		Timestamp: time.Now(),
	}
}

func (e *LedgerEvent) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

func LedgerEventFromJSON(data []byte) (*LedgerEvent, error) {
	var e LedgerEvent
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, err
	}
	return &e, nil
}
