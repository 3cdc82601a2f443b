// Package bridge implements the cross-network transfer workflow engine. It
// is structurally parallel to the transaction ledger but validates network
// pairs instead of currencies and requires an escrow pre-authorization
// before a request can be created. Escrowed funds are considered locked from
// PENDING until a terminal transition releases them: to the destination on
// completion, back to the owner on failure or cancellation.
package bridge

import (
	"context"
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

// Ledger is the authoritative bridge-request store and state machine.
type Ledger struct {
	mu        sync.RWMutex
	gate      *authority.Gate
	registry  *registry.Registry
	params    *params.Store
	allowance interfaces.AllowanceSource
	emitter   interfaces.EventEmitter
	archive   interfaces.RecordArchive
	logger    *zerolog.Logger

	records map[uint64]*models.BridgeRequest
	byOwner map[string][]uint64
	nextID  uint64
}

// New creates an empty bridge ledger. archive may be nil.
func New(gate *authority.Gate, reg *registry.Registry, store *params.Store,
	allowance interfaces.AllowanceSource, emitter interfaces.EventEmitter,
	archive interfaces.RecordArchive, logger *zerolog.Logger) *Ledger {
	return &Ledger{
		gate:      gate,
		registry:  reg,
		params:    store,
		allowance: allowance,
		emitter:   emitter,
		archive:   archive,
		logger:    logger,
		records:   make(map[uint64]*models.BridgeRequest),
		byOwner:   make(map[string][]uint64),
		nextID:    1,
	}
}

// InitiateBridge validates and creates a PENDING bridge request owned by the
// caller. The (source,target) pair is checked as an ordered pair, and the
// caller must have pre-authorized the ledger to hold at least amount of the
// currency, otherwise INSUFFICIENT_ALLOWANCE. Returns the fresh record id.
func (l *Ledger) InitiateBridge(ctx context.Context, caller string, amount *big.Int,
	sourceNetwork, targetNetwork, currency string) (uint64, error) {
	if err := validation.ValidateOwner(caller); err != nil {
		return 0, err
	}
	if err := validation.ValidateAmount(amount); err != nil {
		return 0, err
	}
	if sourceNetwork == targetNetwork {
		return 0, errs.Newf(errs.SAME_NETWORK, "source and target network are both %s", sourceNetwork)
	}

	minAmount, maxAmount := l.params.BridgeLimits()
	if amount.Cmp(minAmount) < 0 {
		return 0, errs.Newf(errs.AMOUNT_TOO_SMALL, "amount %s below minimum %s", amount, minAmount)
	}
	if amount.Cmp(maxAmount) > 0 {
		return 0, errs.Newf(errs.AMOUNT_TOO_LARGE, "amount %s above maximum %s", amount, maxAmount)
	}
	if !l.registry.IsNetworkPairSupported(sourceNetwork, targetNetwork) {
		return 0, errs.Newf(errs.NETWORK_PAIR_NOT_SUPPORTED, "network pair %s->%s not supported", sourceNetwork, targetNetwork)
	}
	if !l.registry.IsCurrencySupported(currency) {
		return 0, errs.Newf(errs.CURRENCY_NOT_SUPPORTED, "currency %s not supported", currency)
	}

	owner := strings.ToLower(caller)
	granted, err := l.allowance.Allowance(ctx, owner, currency)
	if err != nil {
		return 0, errs.New(errs.RPC_ERROR, "allowance lookup failed", err)
	}
	if granted == nil || granted.Cmp(amount) < 0 {
		return 0, errs.Newf(errs.INSUFFICIENT_ALLOWANCE, "allowance %s below amount %s", granted, amount)
	}

	feeAmount, netAmount := fees.Compute(amount, l.params.BridgeFee())

	l.mu.Lock()
	defer l.mu.Unlock()

	id := l.nextID
	l.nextID++

	br := &models.BridgeRequest{
		ID:            id,
		Owner:         owner,
		Amount:        new(big.Int).Set(amount),
		SourceNetwork: sourceNetwork,
		TargetNetwork: targetNetwork,
		Currency:      currency,
		FeeAmount:     feeAmount,
		NetAmount:     netAmount,
		Status:        models.StatusPending,
		CreatedAt:     time.Now().UTC(),
	}
	l.records[id] = br
	l.byOwner[owner] = append(l.byOwner[owner], id)

	l.mirror(br)
	l.emit(models.LedgerEvent{
		EventID:       uuid.NewString(),
		Kind:          models.EventInitiated,
		Ledger:        models.BridgeLedger,
		RecordID:      id,
		Owner:         owner,
		Amount:        new(big.Int).Set(amount),
		SourceNetwork: sourceNetwork,
		TargetNetwork: targetNetwork,
		Currency:      currency,
		Timestamp:     br.CreatedAt,
	})

	l.logger.Info().
		Uint64("bridgeId", id).
		Str("owner", owner).
		Str("amount", amount.String()).
		Str("sourceNetwork", sourceNetwork).
		Str("targetNetwork", targetNetwork).
		Msg("Bridge initiated")
	return id, nil
}

// CompleteBridge records settlement on the target network and releases the
// escrow toward the destination. Settlement-authority only; a second call on
// the same id is rejected with ALREADY_FINALIZED and changes nothing.
func (l *Ledger) CompleteBridge(caller string, id uint64, externalReference string) error {
	if err := l.gate.RequireAuthority(caller); err != nil {
		return err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	br, ok := l.records[id]
	if !ok {
		return errs.Newf(errs.NOT_FOUND, "bridge request %d not found", id)
	}
	if br.IsCompleted {
		return errs.Newf(errs.ALREADY_FINALIZED, "bridge request %d already finalized", id)
	}
	if !models.CanTransition(br.Status, models.StatusCompleted) {
		return errs.Newf(errs.INVALID_STATE, "bridge request %d cannot complete from %s", id, br.Status)
	}

	br.Status = models.StatusCompleted
	br.ExternalReference = externalReference
	br.IsCompleted = true

	l.mirror(br)
	l.emit(models.LedgerEvent{
		EventID:       uuid.NewString(),
		Kind:          models.EventCompleted,
		Ledger:        models.BridgeLedger,
		RecordID:      id,
		Owner:         br.Owner,
		Amount:        new(big.Int).Set(br.Amount),
		SourceNetwork: br.SourceNetwork,
		TargetNetwork: br.TargetNetwork,
		Currency:      br.Currency,
		Timestamp:     time.Now().UTC(),
	})

	l.logger.Info().
		Uint64("bridgeId", id).
		Str("externalReference", externalReference).
		Msg("Bridge completed, escrow released to destination")
	return nil
}

// FailBridge records a failed bridge; the escrow returns to the owner.
// Settlement-authority only.
func (l *Ledger) FailBridge(caller string, id uint64, reason string) error {
	if err := l.gate.RequireAuthority(caller); err != nil {
		return err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	br, ok := l.records[id]
	if !ok {
		return errs.Newf(errs.NOT_FOUND, "bridge request %d not found", id)
	}
	if br.IsCompleted {
		return errs.Newf(errs.ALREADY_FINALIZED, "bridge request %d already finalized", id)
	}
	if !models.CanTransition(br.Status, models.StatusFailed) {
		return errs.Newf(errs.INVALID_STATE, "bridge request %d cannot fail from %s", id, br.Status)
	}

	br.Status = models.StatusFailed
	br.IsCompleted = true

	l.mirror(br)
	l.emitFailure(br, reason)

	l.logger.Warn().
		Uint64("bridgeId", id).
		Str("reason", reason).
		Msg("Bridge failed, escrow returned to owner")
	return nil
}

// CancelBridge lets the owner withdraw their own still-PENDING request; the
// escrow returns to the owner.
func (l *Ledger) CancelBridge(caller string, id uint64) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	br, ok := l.records[id]
	if !ok {
		return errs.Newf(errs.NOT_FOUND, "bridge request %d not found", id)
	}
	if strings.ToLower(caller) != br.Owner {
		return errs.Newf(errs.UNAUTHORIZED, "caller %s does not own bridge request %d", caller, id)
	}
	if br.Status != models.StatusPending {
		return errs.Newf(errs.INVALID_STATE, "bridge request %d is %s, only PENDING can be cancelled", id, br.Status)
	}

	br.Status = models.StatusCancelled

	l.mirror(br)
	l.emitFailure(br, "Cancelled by user")

	l.logger.Info().Uint64("bridgeId", id).Msg("Bridge cancelled by owner")
	return nil
}

// GetBridgeRequest returns a copy of the record.
func (l *Ledger) GetBridgeRequest(id uint64) (models.BridgeRequest, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	br, ok := l.records[id]
	if !ok {
		return models.BridgeRequest{}, errs.Newf(errs.NOT_FOUND, "bridge request %d not found", id)
	}
	return copyBridgeRequest(br), nil
}

// GetUserBridgeRequests returns copies of all records owned by owner, in
// creation order.
func (l *Ledger) GetUserBridgeRequests(owner string) []models.BridgeRequest {
	l.mu.RLock()
	defer l.mu.RUnlock()
	ids := l.byOwner[strings.ToLower(owner)]
	out := make([]models.BridgeRequest, 0, len(ids))
	for _, id := range ids {
		out = append(out, copyBridgeRequest(l.records[id]))
	}
	return out
}

// GetBridgeCount returns the number of records ever created.
func (l *Ledger) GetBridgeCount() uint64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return uint64(len(l.records))
}

func (l *Ledger) emitFailure(br *models.BridgeRequest, reason string) {
	l.emit(models.LedgerEvent{
		EventID:       uuid.NewString(),
		Kind:          models.EventFailed,
		Ledger:        models.BridgeLedger,
		RecordID:      br.ID,
		Owner:         br.Owner,
		Amount:        new(big.Int).Set(br.Amount),
		SourceNetwork: br.SourceNetwork,
		TargetNetwork: br.TargetNetwork,
		Currency:      br.Currency,
		Reason:        reason,
		Timestamp:     time.Now().UTC(),
	})
}

func (l *Ledger) emit(event models.LedgerEvent) {
	if err := l.emitter.EmitEvent(event); err != nil {
		l.logger.Error().Err(err).
			Uint64("recordId", event.RecordID).
			Str("kind", string(event.Kind)).
			Msg("Failed to emit bridge event")
	}
	if l.archive != nil {
		if err := l.archive.SaveEvent(event); err != nil {
			l.logger.Error().Err(err).Uint64("recordId", event.RecordID).Msg("Failed to archive event")
		}
	}
}

func (l *Ledger) mirror(br *models.BridgeRequest) {
	if l.archive == nil {
		return
	}
	if err := l.archive.SaveBridgeRequest(copyBridgeRequest(br)); err != nil {
		l.logger.Error().Err(err).Uint64("bridgeId", br.ID).Msg("Failed to archive bridge request")
	}
}

func copyBridgeRequest(br *models.BridgeRequest) models.BridgeRequest {
	out := *br
	out.Amount = new(big.Int).Set(br.Amount)
	out.FeeAmount = new(big.Int).Set(br.FeeAmount)
	out.NetAmount = new(big.Int).Set(br.NetAmount)
	return out
}
