package model

import (
	"encoding/json"
	"time"
)

// Snapshot is a persisted dashboard bundle for one metro selection.
type Snapshot struct {
	ID        string          `json:"id"`
	Metros    []string        `json:"metros"`
	Payload   json.RawMessage `json:"payload"`
	CreatedAt time.Time       `json:"created_at"`
}

// StateRow is one state-level average stored alongside a snapshot.
type StateRow struct {
	StateCode string  `json:"state_code"`
	StateName string  `json:"state_name"`
	Metric    string  `json:"metric"`
	Average   float64 `json:"average"`
	Count     int     `json:"count"`
}
