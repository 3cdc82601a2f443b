// Package ledger implements the onramp/offramp/swap workflow engine. Every
// mutating call is a single atomic transition guarded by one lock: either all
// validations pass and the record, the archive mirror, and exactly one event
// are produced, or nothing changes.
package ledger

import (
	"math/big"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"tuma-ledger/internal/authority"
	"tuma-ledger/internal/errs"
	"tuma-ledger/internal/fees"
	"tuma-ledger/internal/interfaces"
	"tuma-ledger/internal/models"
	"tuma-ledger/internal/params"
	"tuma-ledger/internal/registry"
	"tuma-ledger/internal/validation"
)

// Ledger is the authoritative transaction store and state machine.
type Ledger struct {
	mu       sync.RWMutex
	gate     *authority.Gate
	registry *registry.Registry
	params   *params.Store
	emitter  interfaces.EventEmitter
	archive  interfaces.RecordArchive
	logger   *zerolog.Logger

	records map[uint64]*models.Transaction
	byOwner map[string][]uint64
	nextID  uint64
}

// New creates an empty transaction ledger. archive may be nil when no durable
// mirror is configured.
func New(gate *authority.Gate, reg *registry.Registry, store *params.Store,
	emitter interfaces.EventEmitter, archive interfaces.RecordArchive, logger *zerolog.Logger) *Ledger {
	return &Ledger{
		gate:     gate,
		registry: reg,
		params:   store,
		emitter:  emitter,
		archive:  archive,
		logger:   logger,
		records:  make(map[uint64]*models.Transaction),
		byOwner:  make(map[string][]uint64),
		nextID:   1,
	}
}

// InitiateTransaction validates and creates a PENDING transaction owned by
// the caller, snapshotting the fee rate and limits in force right now.
// Returns the fresh record id.
func (l *Ledger) InitiateTransaction(caller string, amount *big.Int,
	sourceCurrency, targetCurrency string, txType models.TransactionType) (uint64, error) {
	if err := validation.ValidateOwner(caller); err != nil {
		return 0, err
	}
	if err := validation.ValidateAmount(amount); err != nil {
		return 0, err
	}
	if !txType.Valid() {
		return 0, errs.Newf(errs.INVALID_TYPE, "unknown transaction type %q", txType)
	}

	minAmount, maxAmount := l.params.TransactionLimits()
	if amount.Cmp(minAmount) < 0 {
		return 0, errs.Newf(errs.AMOUNT_TOO_SMALL, "amount %s below minimum %s", amount, minAmount)
	}
	if amount.Cmp(maxAmount) > 0 {
		return 0, errs.Newf(errs.AMOUNT_TOO_LARGE, "amount %s above maximum %s", amount, maxAmount)
	}
	if !l.registry.IsCurrencySupported(sourceCurrency) {
		return 0, errs.Newf(errs.CURRENCY_NOT_SUPPORTED, "currency %s not supported", sourceCurrency)
	}
	if !l.registry.IsCurrencySupported(targetCurrency) {
		return 0, errs.Newf(errs.CURRENCY_NOT_SUPPORTED, "currency %s not supported", targetCurrency)
	}

	feeAmount, netAmount := fees.Compute(amount, l.params.TransactionFee())
	owner := strings.ToLower(caller)

	l.mu.Lock()
	defer l.mu.Unlock()

	id := l.nextID
	l.nextID++

	tx := &models.Transaction{
		ID:              id,
		Owner:           owner,
		Amount:          new(big.Int).Set(amount),
		SourceCurrency:  sourceCurrency,
		TargetCurrency:  targetCurrency,
		TransactionType: txType,
		FeeAmount:       feeAmount,
		NetAmount:       netAmount,
		Status:          models.StatusPending,
		CreatedAt:       time.Now().UTC(),
	}
	l.records[id] = tx
	l.byOwner[owner] = append(l.byOwner[owner], id)

	l.mirror(tx)
	l.emit(models.LedgerEvent{
		EventID:         uuid.NewString(),
		Kind:            models.EventInitiated,
		Ledger:          models.TransactionLedger,
		RecordID:        id,
		Owner:           owner,
		Amount:          new(big.Int).Set(amount),
		SourceCurrency:  sourceCurrency,
		TargetCurrency:  targetCurrency,
		TransactionType: txType,
		Timestamp:       tx.CreatedAt,
	})

	l.logger.Info().
		Uint64("transactionId", id).
		Str("owner", owner).
		Str("amount", amount.String()).
		Str("type", txType.String()).
		Msg("Transaction initiated")
	return id, nil
}

// ProcessTransaction records a confirmed real-world settlement: COMPLETED,
// external reference set, isProcessed latched. Settlement-authority only.
// A second call on the same id is rejected with ALREADY_FINALIZED.
func (l *Ledger) ProcessTransaction(caller string, id uint64, externalReference string) error {
	if err := l.gate.RequireAuthority(caller); err != nil {
		return err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	tx, ok := l.records[id]
	if !ok {
		return errs.Newf(errs.NOT_FOUND, "transaction %d not found", id)
	}
	if tx.IsProcessed {
		return errs.Newf(errs.ALREADY_FINALIZED, "transaction %d already finalized", id)
	}
	if !models.CanTransition(tx.Status, models.StatusCompleted) {
		return errs.Newf(errs.INVALID_STATE, "transaction %d cannot complete from %s", id, tx.Status)
	}

	tx.Status = models.StatusCompleted
	tx.ExternalReference = externalReference
	tx.IsProcessed = true

	l.mirror(tx)
	l.emit(models.LedgerEvent{
		EventID:         uuid.NewString(),
		Kind:            models.EventCompleted,
		Ledger:          models.TransactionLedger,
		RecordID:        id,
		Owner:           tx.Owner,
		Amount:          new(big.Int).Set(tx.Amount),
		SourceCurrency:  tx.SourceCurrency,
		TargetCurrency:  tx.TargetCurrency,
		TransactionType: tx.TransactionType,
		Timestamp:       time.Now().UTC(),
	})

	l.logger.Info().
		Uint64("transactionId", id).
		Str("externalReference", externalReference).
		Msg("Transaction completed")
	return nil
}

// FailTransaction records a failed settlement with a human-readable reason.
// Settlement-authority only; idempotence guards match ProcessTransaction.
func (l *Ledger) FailTransaction(caller string, id uint64, reason string) error {
	if err := l.gate.RequireAuthority(caller); err != nil {
		return err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	tx, ok := l.records[id]
	if !ok {
		return errs.Newf(errs.NOT_FOUND, "transaction %d not found", id)
	}
	if tx.IsProcessed {
		return errs.Newf(errs.ALREADY_FINALIZED, "transaction %d already finalized", id)
	}
	if !models.CanTransition(tx.Status, models.StatusFailed) {
		return errs.Newf(errs.INVALID_STATE, "transaction %d cannot fail from %s", id, tx.Status)
	}

	tx.Status = models.StatusFailed
	tx.IsProcessed = true

	l.mirror(tx)
	l.emitFailure(tx, reason)

	l.logger.Warn().
		Uint64("transactionId", id).
		Str("reason", reason).
		Msg("Transaction failed")
	return nil
}

// CancelTransaction lets the owner withdraw their own still-PENDING record.
func (l *Ledger) CancelTransaction(caller string, id uint64) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	tx, ok := l.records[id]
	if !ok {
		return errs.Newf(errs.NOT_FOUND, "transaction %d not found", id)
	}
	if strings.ToLower(caller) != tx.Owner {
		return errs.Newf(errs.UNAUTHORIZED, "caller %s does not own transaction %d", caller, id)
	}
	if tx.Status != models.StatusPending {
		return errs.Newf(errs.INVALID_STATE, "transaction %d is %s, only PENDING can be cancelled", id, tx.Status)
	}

	tx.Status = models.StatusCancelled

	l.mirror(tx)
	l.emitFailure(tx, "Cancelled by user")

	l.logger.Info().Uint64("transactionId", id).Msg("Transaction cancelled by owner")
	return nil
}

// GetTransaction returns a copy of the record.
func (l *Ledger) GetTransaction(id uint64) (models.Transaction, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	tx, ok := l.records[id]
	if !ok {
		return models.Transaction{}, errs.Newf(errs.NOT_FOUND, "transaction %d not found", id)
	}
	return copyTransaction(tx), nil
}

// GetUserTransactions returns copies of all records owned by owner, in
// creation order.
func (l *Ledger) GetUserTransactions(owner string) []models.Transaction {
	l.mu.RLock()
	defer l.mu.RUnlock()
	ids := l.byOwner[strings.ToLower(owner)]
	out := make([]models.Transaction, 0, len(ids))
	for _, id := range ids {
		out = append(out, copyTransaction(l.records[id]))
	}
	return out
}

// GetTransactionCount returns the number of records ever created.
func (l *Ledger) GetTransactionCount() uint64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return uint64(len(l.records))
}

func (l *Ledger) emitFailure(tx *models.Transaction, reason string) {
	l.emit(models.LedgerEvent{
		EventID:         uuid.NewString(),
		Kind:            models.EventFailed,
		Ledger:          models.TransactionLedger,
		RecordID:        tx.ID,
		Owner:           tx.Owner,
		Amount:          new(big.Int).Set(tx.Amount),
		SourceCurrency:  tx.SourceCurrency,
		TargetCurrency:  tx.TargetCurrency,
		TransactionType: tx.TransactionType,
		Reason:          reason,
		Timestamp:       time.Now().UTC(),
	})
}

func (l *Ledger) emit(event models.LedgerEvent) {
	if err := l.emitter.EmitEvent(event); err != nil {
		l.logger.Error().Err(err).
			Uint64("recordId", event.RecordID).
			Str("kind", string(event.Kind)).
			Msg("Failed to emit transaction event")
	}
	if l.archive != nil {
		if err := l.archive.SaveEvent(event); err != nil {
			l.logger.Error().Err(err).Uint64("recordId", event.RecordID).Msg("Failed to archive event")
		}
	}
}

func (l *Ledger) mirror(tx *models.Transaction) {
	if l.archive == nil {
		return
	}
	if err := l.archive.SaveTransaction(copyTransaction(tx)); err != nil {
		l.logger.Error().Err(err).Uint64("transactionId", tx.ID).Msg("Failed to archive transaction")
	}
}

func copyTransaction(tx *models.Transaction) models.Transaction {
	out := *tx
	out.Amount = new(big.Int).Set(tx.Amount)
	out.FeeAmount = new(big.Int).Set(tx.FeeAmount)
	out.NetAmount = new(big.Int).Set(tx.NetAmount)
	return out
}
