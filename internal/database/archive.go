package database

import (
	"tuma-ledger/internal/interfaces"
	"tuma-ledger/internal/models"
)

// Archive mirrors ledger records and events into postgres. The in-process
// ledgers remain authoritative; rows here serve audit and history queries.
type Archive struct{}

// NewArchive returns an Archive backed by the package connection. InitDB
// must have been called first.
func NewArchive() *Archive {
	return &Archive{}
}

// SaveTransaction upserts the current state of a transaction record.
func (a *Archive) SaveTransaction(tx models.Transaction) error {
	_, err := DB.Exec(`
		INSERT INTO transactions
			(id, owner_address, amount, source_currency, target_currency,
			 transaction_type, fee_amount, net_amount, status,
			 external_reference, is_processed, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (id) DO UPDATE SET
			status = EXCLUDED.status,
			external_reference = EXCLUDED.external_reference,
			is_processed = EXCLUDED.is_processed
	`, tx.ID, tx.Owner, tx.Amount.String(), tx.SourceCurrency, tx.TargetCurrency,
		tx.TransactionType.String(), tx.FeeAmount.String(), tx.NetAmount.String(),
		tx.Status.String(), tx.ExternalReference, tx.IsProcessed, tx.CreatedAt)
	return err
}

// SaveBridgeRequest upserts the current state of a bridge request record.
func (a *Archive) SaveBridgeRequest(br models.BridgeRequest) error {
	_, err := DB.Exec(`
		INSERT INTO bridge_requests
			(id, owner_address, amount, source_network, target_network,
			 currency, fee_amount, net_amount, status,
			 external_reference, is_completed, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (id) DO UPDATE SET
			status = EXCLUDED.status,
			external_reference = EXCLUDED.external_reference,
			is_completed = EXCLUDED.is_completed
	`, br.ID, br.Owner, br.Amount.String(), br.SourceNetwork, br.TargetNetwork,
		br.Currency, br.FeeAmount.String(), br.NetAmount.String(),
		br.Status.String(), br.ExternalReference, br.IsCompleted, br.CreatedAt)
	return err
}

// SaveEvent appends a ledger event. Events are append-only.
func (a *Archive) SaveEvent(ev models.LedgerEvent) error {
	_, err := DB.Exec(`
		INSERT INTO ledger_events
			(event_id, kind, ledger, record_id, owner_address, amount,
			 source_currency, target_currency, source_network, target_network,
			 currency, transaction_type, reason, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		ON CONFLICT (event_id) DO NOTHING
	`, ev.EventID, string(ev.Kind), ev.Ledger.String(), ev.RecordID, ev.Owner,
		ev.Amount.String(), ev.SourceCurrency, ev.TargetCurrency,
		ev.SourceNetwork, ev.TargetNetwork, ev.Currency,
		ev.TransactionType.String(), ev.Reason, ev.Timestamp)
	return err
}

var _ interfaces.RecordArchive = (*Archive)(nil)
