package amqp

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"financas/internal/core"
)

type EventAction string

const (
	ActionCreated EventAction = "created"
	ActionDeleted EventAction = "deleted"
)

// LedgerEvent announces that an entry or debt was created or deleted. It is
// deliberately small: consumers load the record from storage by ID. The
// description travels along so deletions can still be described after the
// row is gone.
type LedgerEvent struct {
	MessageID   string         `json:"message_id"`
	Action      EventAction    `json:"action"`
	Kind        core.EntryKind `json:"kind"`
	ID          int64          `json:"id"`
	Description string         `json:"description,omitempty"`
	OccurredAt  time.Time      `json:"occurred_at"`
}

func NewLedgerEvent(action EventAction, kind core.EntryKind, id int64, description string) *LedgerEvent {
	return &LedgerEvent{
		MessageID:   uuid.NewString(),
		Action:      action,
		Kind:        kind,
		ID:          id,
		Description: description,
		OccurredAt:  time.Now().UTC(),
	}
}

func (e *LedgerEvent) Validate() error {
	if e.Action != ActionCreated && e.Action != ActionDeleted {
		return fmt.Errorf("unknown action %q", e.Action)
	}
	switch e.Kind {
	case core.KindIncome, core.KindExpense, core.KindDebt:
	default:
		return fmt.Errorf("unknown kind %q", e.Kind)
	}
	if e.ID <= 0 {
		return fmt.Errorf("invalid id %d", e.ID)
	}
	return nil
}

func (e *LedgerEvent) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// LedgerEventFromJSON decodes and validates a message body.
func LedgerEventFromJSON(data []byte) (*LedgerEvent, error) {
	var e LedgerEvent
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, err
	}
	if err := e.Validate(); err != nil {
		return nil, err
	}
	return &e, nil
}
