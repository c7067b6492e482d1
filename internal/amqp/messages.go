package amqp

import (
	"encoding/json"
	"fmt"
	"time"
)

// Entity names carried by ledger change messages.
const (
	EntityProperty        = "property"
	EntityRentalIncome    = "rental_income"
	EntityPropertyExpense = "property_expense"
	EntityMortgage        = "mortgage"
	EntityInvestment      = "investment"
	EntityIncome          = "income"
	EntityExpense         = "expense"
)

// Operations.
const (
	OpCreated = "created"
	OpUpdated = "updated"
	OpDeleted = "deleted"
)

// LedgerChangeMessage announces that a ledger record changed. It carries only
// identity; consumers read current state from the store.
type LedgerChangeMessage struct {
	Entity    string    `json:"entity"`
	Op        string    `json:"op"`
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
}

func NewLedgerChangeMessage(entity, op, id string) *LedgerChangeMessage {
	return &LedgerChangeMessage{
		Entity:    entity,
		Op:        op,
		ID:        id,
		Timestamp: time.Now(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *LedgerChangeMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// LedgerChangeMessageFromJSON decodes a message and checks its required fields.
func LedgerChangeMessageFromJSON(data []byte) (*LedgerChangeMessage, error) {
	var msg LedgerChangeMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if msg.Entity == "" || msg.Op == "" {
		return nil, fmt.Errorf("incomplete ledger change message: entity=%q op=%q", msg.Entity, msg.Op)
	}
	return &msg, nil
}
