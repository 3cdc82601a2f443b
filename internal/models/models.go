package models

import (
	"math/big"
	"time"
)

// TransactionType identifies the kind of value movement a transaction performs.
type TransactionType string

const (
	Onramp  TransactionType = "ONRAMP"
	Offramp TransactionType = "OFFRAMP"
	Swap    TransactionType = "SWAP"
	Send    TransactionType = "SEND"
)

func (t TransactionType) String() string {
	return string(t)
}

// Valid reports whether t is one of the known transaction types.
func (t TransactionType) Valid() bool {
	switch t {
	case Onramp, Offramp, Swap, Send:
		return true
	}
	return false
}

// Status is the lifecycle state of a transaction or bridge request.
type Status string

const (
	StatusPending    Status = "PENDING"
	StatusProcessing Status = "PROCESSING"
	StatusCompleted  Status = "COMPLETED"
	StatusFailed     Status = "FAILED"
	StatusCancelled  Status = "CANCELLED"
)

func (s Status) String() string {
	return string(s)
}

// Terminal reports whether no further transition is permitted from s.
func (s Status) Terminal() bool {
	switch s {
	case StatusCompleted, StatusFailed, StatusCancelled:
		return true
	}
	return false
}

// legalTransitions maps each status to the set of statuses it may move to.
// Terminal statuses have no outgoing transitions.
var legalTransitions = map[Status]map[Status]bool{
	StatusPending: {
		StatusProcessing: true,
		StatusCompleted:  true,
		StatusFailed:     true,
		StatusCancelled:  true,
	},
	StatusProcessing: {
		StatusCompleted: true,
		StatusFailed:    true,
	},
	StatusCompleted: {},
	StatusFailed:    {},
	StatusCancelled: {},
}

// CanTransition reports whether moving from "from" to "to" is a legal
// lifecycle transition.
func CanTransition(from, to Status) bool {
	return legalTransitions[from][to]
}

// Transaction is an onramp/offramp/swap/send record. Amounts are integers in
// the smallest unit of the source currency. Fee and net amounts are fixed at
// creation time and never recomputed.
type Transaction struct {
	ID                uint64          `json:"id"`
	Owner             string          `json:"owner"`
	Amount            *big.Int        `json:"amount"`
	SourceCurrency    string          `json:"source_currency"`
	TargetCurrency    string          `json:"target_currency"`
	TransactionType   TransactionType `json:"transaction_type"`
	FeeAmount         *big.Int        `json:"fee_amount"`
	NetAmount         *big.Int        `json:"net_amount"`
	Status            Status          `json:"status"`
	ExternalReference string          `json:"external_reference"`
	IsProcessed       bool            `json:"is_processed"`
	CreatedAt         time.Time       `json:"created_at"`
}

// BridgeRequest is a cross-network transfer record. The owner's funds are
// considered escrowed from PENDING until a terminal transition releases them.
type BridgeRequest struct {
	ID                uint64    `json:"id"`
	Owner             string    `json:"owner"`
	Amount            *big.Int  `json:"amount"`
	SourceNetwork     string    `json:"source_network"`
	TargetNetwork     string    `json:"target_network"`
	Currency          string    `json:"currency"`
	FeeAmount         *big.Int  `json:"fee_amount"`
	NetAmount         *big.Int  `json:"net_amount"`
	Status            Status    `json:"status"`
	ExternalReference string    `json:"external_reference"`
	IsCompleted       bool      `json:"is_completed"`
	CreatedAt         time.Time `json:"created_at"`
}
