package amqp

import (
	"encoding/json"
	"time"
)

// Event kinds carried on the budget events queue.
const (
	KindTransactionRecorded = "transaction.recorded"
	KindRewardGranted       = "reward.granted"
)

// BudgetEvent is the message published when a transaction is recorded or a
// reward is granted. The notification worker consumes these and mails the
// budget owner.
type BudgetEvent struct {
	Kind        string    `json:"kind"`
	UserID      int64     `json:"user_id"`
	BudgetID    int64     `json:"budget_id"`
	AmountCents int64     `json:"amount_cents"`
	Category    string    `json:"category,omitempty"`
	Occurred    time.Time `json:"occurred"`
}

func NewTransactionRecorded(userID, budgetID, amountCents int64, category string) *BudgetEvent {
	return &BudgetEvent{
		Kind:        KindTransactionRecorded,
		UserID:      userID,
		BudgetID:    budgetID,
		AmountCents: amountCents,
		Category:    category,
		Occurred:    time.Now(),
	}
}

func NewRewardGranted(userID, budgetID, amountCents int64) *BudgetEvent {
	return &BudgetEvent{
		Kind:        KindRewardGranted,
		UserID:      userID,
		BudgetID:    budgetID,
		AmountCents: amountCents,
		Occurred:    time.Now(),
	}
}

// ToJSON converts the event to JSON bytes
func (e *BudgetEvent) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// BudgetEventFromJSON creates an event from JSON bytes
func BudgetEventFromJSON(data []byte) (*BudgetEvent, error) {
	var ev BudgetEvent
	if err := json.Unmarshal(data, &ev); err != nil {
		return nil, err
	}
	return &ev, nil
}
