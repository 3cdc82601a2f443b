package interfaces

import (
	"context"
	"math/big"

	"tuma-ledger/internal/models"
)

// EventEmitter defines the interface for emitting ledger events
type EventEmitter interface {
	EmitEvent(event models.LedgerEvent) error
}

// RecordArchive mirrors every ledger mutation into durable storage for
// audit and history lookup. The in-process ledgers stay authoritative;
// archive failures are logged, never propagated into a mutation.
type RecordArchive interface {
	SaveTransaction(tx models.Transaction) error
	SaveBridgeRequest(br models.BridgeRequest) error
	SaveEvent(ev models.LedgerEvent) error
}

// AllowanceSource answers how much of a currency the owner has pre-authorized
// the ledger to hold on their behalf. The bridge ledger checks it before
// creating a PENDING record.
type AllowanceSource interface {
	Allowance(ctx context.Context, owner, currency string) (*big.Int, error)
}
