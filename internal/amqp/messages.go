package amqp

import (
	"encoding/json"
	"fmt"
	"time"
)

// Ledger event types.
const (
	EventPaymentCreated = "payment.created"
	EventQuoteChosen    = "quote.chosen"
)

// LedgerEvent announces a committed ledger change. It carries ids only;
// consumers read the current state back from the store.
type LedgerEvent struct {
	Type      string    `json:"type"`
	ID        string    `json:"id"`
	ProjectID string    `json:"project_id"`
	Timestamp time.Time `json:"timestamp"`
}

func NewLedgerEvent(eventType, id, projectID string) *LedgerEvent {
	return &LedgerEvent{
		Type:      eventType,
		ID:        id,
		ProjectID: projectID,
		Timestamp: time.Now().UTC(),
	}
}

// ToJSON converts the event to JSON bytes
func (e *LedgerEvent) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// LedgerEventFromJSON decodes an event and checks the fields every
// consumer relies on.
func LedgerEventFromJSON(data []byte) (*LedgerEvent, error) {
	var ev LedgerEvent
	if err := json.Unmarshal(data, &ev); err != nil {
		return nil, err
	}
	if ev.Type == "" || ev.ID == "" {
		return nil, fmt.Errorf("ledger event missing type or id")
	}
	return &ev, nil
}
