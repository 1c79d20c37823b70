package amqp

import (
	"encoding/json"
	"fmt"
	"time"
)

// Actions carried by a rule sync message. The worker refetches the full
// rule from the store on upsert, so the message stays a thin pointer.
const (
	ActionUpsert = "upsert"
	ActionDelete = "delete"
)

// RuleSyncMessage tells the mirror worker that one budget rule changed.
// It carries only the id and the action; the payload lives in the store.
type RuleSyncMessage struct {
	RuleID    string    `json:"ruleId"`
	Action    string    `json:"action"`
	Timestamp time.Time `json:"timestamp"`
}

func NewRuleSyncMessage(ruleID, action string) *RuleSyncMessage {
	return &RuleSyncMessage{
		RuleID:    ruleID,
		Action:    action,
		Timestamp: time.Now(),
	}
}

func (m *RuleSyncMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func RuleSyncMessageFromJSON(data []byte) (*RuleSyncMessage, error) {
	var msg RuleSyncMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if msg.RuleID == "" {
		return nil, fmt.Errorf("rule sync message missing ruleId")
	}
	if msg.Action != ActionUpsert && msg.Action != ActionDelete {
		return nil, fmt.Errorf("rule sync message has unknown action %q", msg.Action)
	}
	return &msg, nil
}
