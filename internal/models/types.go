package models

import (
	"math/big"
	"time"
)

// EventKind classifies a ledger event.
type EventKind string

const (
	EventInitiated EventKind = "Initiated"
	EventCompleted EventKind = "Completed"
	EventFailed    EventKind = "Failed"
)

// LedgerName identifies which ledger emitted an event.
type LedgerName string

const (
	TransactionLedger LedgerName = "transaction"
	BridgeLedger      LedgerName = "bridge"
)

func (l LedgerName) String() string {
	return string(l)
}

// LedgerEvent is the record appended to the event sink on every successful
// mutation. It is the only channel through which the settlement authority and
// the front end learn of state changes.
type LedgerEvent struct {
	EventID         string          `json:"event_id"`
	Kind            EventKind       `json:"kind"`
	Ledger          LedgerName      `json:"ledger"`
	RecordID        uint64          `json:"record_id"`
	Owner           string          `json:"owner"`
	Amount          *big.Int        `json:"amount"`
	SourceCurrency  string          `json:"source_currency,omitempty"`
	TargetCurrency  string          `json:"target_currency,omitempty"`
	SourceNetwork   string          `json:"source_network,omitempty"`
	TargetNetwork   string          `json:"target_network,omitempty"`
	Currency        string          `json:"currency,omitempty"`
	TransactionType TransactionType `json:"transaction_type,omitempty"`
	Reason          string          `json:"reason,omitempty"`
	Timestamp       time.Time       `json:"timestamp"`
}
