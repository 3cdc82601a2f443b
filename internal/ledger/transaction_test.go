package ledger

import (
	"math/big"
	"sync"
	"testing"

	"github.com/rs/zerolog"

	"tuma-ledger/internal/authority"
	"tuma-ledger/internal/errs"
	"tuma-ledger/internal/models"
	"tuma-ledger/internal/params"
	"tuma-ledger/internal/registry"
)

const (
	ownerAddr    = "0x1111111111111111111111111111111111111111"
	treasuryAddr = "0x2222222222222222222222222222222222222222"
	userAddr     = "0x3333333333333333333333333333333333333333"
	otherAddr    = "0x4444444444444444444444444444444444444444"
)

// MockEventEmitter is a mock implementation of EventEmitter for testing
type MockEventEmitter struct {
	emittedEvents []models.LedgerEvent
	emitError     error
	mu            sync.Mutex
}

func (m *MockEventEmitter) EmitEvent(event models.LedgerEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.emitError != nil {
		return m.emitError
	}
	m.emittedEvents = append(m.emittedEvents, event)
	return nil
}

func (m *MockEventEmitter) GetEmittedEvents() []models.LedgerEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	events := make([]models.LedgerEvent, len(m.emittedEvents))
	copy(events, m.emittedEvents)
	return events
}

// setupTestLedger builds a ledger with the default deployment parameters.
func setupTestLedger(t *testing.T) (*Ledger, *MockEventEmitter, *params.Store) {
	t.Helper()
	logger := zerolog.New(nil)
	emitter := &MockEventEmitter{}

	gate := authority.NewGate(ownerAddr, treasuryAddr)
	reg := registry.New(gate)
	for _, code := range []string{"KES", "USDC", "CUSD", "ETH", "MATIC"} {
		if err := reg.AddSupportedCurrency(treasuryAddr, code, ""); err != nil {
			t.Fatal(err)
		}
	}
	store := params.New(gate, params.Seed{
		TransactionFeeBps: 50,
		BridgeFeeBps:      25,
		MinTxAmount:       100,
		MaxTxAmount:       1000000,
		MinBridgeAmount:   1000,
		MaxBridgeAmount:   10000000,
	})

	return New(gate, reg, store, emitter, nil, &logger), emitter, store
}

func TestInitiateTransaction(t *testing.T) {
	l, emitter, _ := setupTestLedger(t)

	id, err := l.InitiateTransaction(userAddr, big.NewInt(1000), "USDC", "KES", models.Onramp)
	if err != nil {
		t.Fatalf("initiate failed: %v", err)
	}
	if id != 1 {
		t.Errorf("id = %d, want 1", id)
	}

	tx, err := l.GetTransaction(id)
	if err != nil {
		t.Fatal(err)
	}
	if tx.Status != models.StatusPending {
		t.Errorf("status = %s, want PENDING", tx.Status)
	}
	if tx.FeeAmount.Int64() != 5 {
		t.Errorf("fee = %s, want 5", tx.FeeAmount)
	}
	if tx.NetAmount.Int64() != 995 {
		t.Errorf("net = %s, want 995", tx.NetAmount)
	}
	if tx.Owner != userAddr {
		t.Errorf("owner = %s, want %s", tx.Owner, userAddr)
	}
	if tx.IsProcessed {
		t.Error("fresh record must not be marked processed")
	}

	events := emitter.GetEmittedEvents()
	if len(events) != 1 {
		t.Fatalf("emitted %d events, want 1", len(events))
	}
	ev := events[0]
	if ev.Kind != models.EventInitiated || ev.Ledger != models.TransactionLedger {
		t.Errorf("event = %s/%s, want Initiated/transaction", ev.Kind, ev.Ledger)
	}
	if ev.RecordID != id || ev.Owner != userAddr || ev.Amount.Int64() != 1000 {
		t.Errorf("event payload mismatch: %+v", ev)
	}
	if ev.TransactionType != models.Onramp {
		t.Errorf("event type = %s, want ONRAMP", ev.TransactionType)
	}
}

func TestInitiateRejectsAmountOutOfRange(t *testing.T) {
	l, emitter, _ := setupTestLedger(t)

	_, err := l.InitiateTransaction(userAddr, big.NewInt(50), "USDC", "KES", models.Onramp)
	if !errs.HasCode(err, errs.AMOUNT_TOO_SMALL) {
		t.Errorf("expected AMOUNT_TOO_SMALL, got %v", err)
	}

	_, err = l.InitiateTransaction(userAddr, big.NewInt(2000000), "USDC", "KES", models.Onramp)
	if !errs.HasCode(err, errs.AMOUNT_TOO_LARGE) {
		t.Errorf("expected AMOUNT_TOO_LARGE, got %v", err)
	}

	if l.GetTransactionCount() != 0 {
		t.Error("no record may be created on a rejected initiate")
	}
	if len(emitter.GetEmittedEvents()) != 0 {
		t.Error("no event may be emitted on a rejected initiate")
	}
}

func TestInitiateRejectsUnsupportedCurrency(t *testing.T) {
	l, _, _ := setupTestLedger(t)

	_, err := l.InitiateTransaction(userAddr, big.NewInt(1000), "INVALID", "KES", models.Onramp)
	if !errs.HasCode(err, errs.CURRENCY_NOT_SUPPORTED) {
		t.Errorf("expected CURRENCY_NOT_SUPPORTED, got %v", err)
	}
	_, err = l.InitiateTransaction(userAddr, big.NewInt(1000), "USDC", "EUR", models.Onramp)
	if !errs.HasCode(err, errs.CURRENCY_NOT_SUPPORTED) {
		t.Errorf("expected CURRENCY_NOT_SUPPORTED for target, got %v", err)
	}
}

func TestInitiateRejectsBadInput(t *testing.T) {
	l, _, _ := setupTestLedger(t)

	if _, err := l.InitiateTransaction("not-an-address", big.NewInt(1000), "USDC", "KES", models.Onramp); !errs.HasCode(err, errs.INVALID_ADDRESS) {
		t.Errorf("expected INVALID_ADDRESS, got %v", err)
	}
	if _, err := l.InitiateTransaction(userAddr, big.NewInt(0), "USDC", "KES", models.Onramp); !errs.HasCode(err, errs.INVALID_AMOUNT) {
		t.Errorf("expected INVALID_AMOUNT, got %v", err)
	}
	if _, err := l.InitiateTransaction(userAddr, big.NewInt(1000), "USDC", "KES", models.TransactionType("STAKE")); !errs.HasCode(err, errs.INVALID_TYPE) {
		t.Errorf("expected INVALID_TYPE, got %v", err)
	}
}

func TestProcessTransaction(t *testing.T) {
	l, emitter, _ := setupTestLedger(t)
	id, _ := l.InitiateTransaction(userAddr, big.NewInt(1000), "USDC", "KES", models.Onramp)

	if err := l.ProcessTransaction(treasuryAddr, id, "MPESA_REF_123"); err != nil {
		t.Fatalf("process failed: %v", err)
	}

	tx, _ := l.GetTransaction(id)
	if tx.Status != models.StatusCompleted {
		t.Errorf("status = %s, want COMPLETED", tx.Status)
	}
	if tx.ExternalReference != "MPESA_REF_123" {
		t.Errorf("external reference = %s", tx.ExternalReference)
	}
	if !tx.IsProcessed {
		t.Error("isProcessed should be true after completion")
	}

	events := emitter.GetEmittedEvents()
	if len(events) != 2 || events[1].Kind != models.EventCompleted {
		t.Errorf("expected a completion event, got %+v", events)
	}
}

func TestProcessIsAuthorityGated(t *testing.T) {
	l, _, _ := setupTestLedger(t)
	id, _ := l.InitiateTransaction(userAddr, big.NewInt(1000), "USDC", "KES", models.Onramp)

	// Not even the record owner or the deployer may settle.
	for _, caller := range []string{userAddr, ownerAddr} {
		if err := l.ProcessTransaction(caller, id, "REF"); !errs.HasCode(err, errs.UNAUTHORIZED) {
			t.Errorf("caller %s: expected UNAUTHORIZED, got %v", caller, err)
		}
	}

	tx, _ := l.GetTransaction(id)
	if tx.Status != models.StatusPending {
		t.Errorf("status changed by unauthorized call: %s", tx.Status)
	}
}

func TestFinalizeIsIdempotentSafe(t *testing.T) {
	l, _, _ := setupTestLedger(t)
	id, _ := l.InitiateTransaction(userAddr, big.NewInt(1000), "USDC", "KES", models.Onramp)

	if err := l.ProcessTransaction(treasuryAddr, id, "REF1"); err != nil {
		t.Fatal(err)
	}

	if err := l.ProcessTransaction(treasuryAddr, id, "REF2"); !errs.HasCode(err, errs.ALREADY_FINALIZED) {
		t.Errorf("second process: expected ALREADY_FINALIZED, got %v", err)
	}
	if err := l.FailTransaction(treasuryAddr, id, "late failure"); !errs.HasCode(err, errs.ALREADY_FINALIZED) {
		t.Errorf("fail after process: expected ALREADY_FINALIZED, got %v", err)
	}

	tx, _ := l.GetTransaction(id)
	if tx.ExternalReference != "REF1" || tx.Status != models.StatusCompleted {
		t.Errorf("terminal record mutated: %+v", tx)
	}
}

func TestProcessUnknownID(t *testing.T) {
	l, _, _ := setupTestLedger(t)
	if err := l.ProcessTransaction(treasuryAddr, 42, "REF"); !errs.HasCode(err, errs.NOT_FOUND) {
		t.Errorf("expected NOT_FOUND, got %v", err)
	}
}

func TestFailTransaction(t *testing.T) {
	l, emitter, _ := setupTestLedger(t)
	id, _ := l.InitiateTransaction(userAddr, big.NewInt(1000), "USDC", "KES", models.Onramp)

	if err := l.FailTransaction(treasuryAddr, id, "Insufficient funds"); err != nil {
		t.Fatalf("fail failed: %v", err)
	}

	tx, _ := l.GetTransaction(id)
	if tx.Status != models.StatusFailed || !tx.IsProcessed {
		t.Errorf("record = %+v, want FAILED and processed", tx)
	}

	events := emitter.GetEmittedEvents()
	last := events[len(events)-1]
	if last.Kind != models.EventFailed || last.Reason != "Insufficient funds" {
		t.Errorf("failure event = %+v", last)
	}
}

func TestCancelTransaction(t *testing.T) {
	l, emitter, _ := setupTestLedger(t)
	id, _ := l.InitiateTransaction(userAddr, big.NewInt(1000), "USDC", "KES", models.Onramp)

	if err := l.CancelTransaction(otherAddr, id); !errs.HasCode(err, errs.UNAUTHORIZED) {
		t.Errorf("non-owner cancel: expected UNAUTHORIZED, got %v", err)
	}

	if err := l.CancelTransaction(userAddr, id); err != nil {
		t.Fatalf("owner cancel failed: %v", err)
	}
	tx, _ := l.GetTransaction(id)
	if tx.Status != models.StatusCancelled {
		t.Errorf("status = %s, want CANCELLED", tx.Status)
	}

	last := emitter.GetEmittedEvents()[1]
	if last.Kind != models.EventFailed || last.Reason != "Cancelled by user" {
		t.Errorf("cancel event = %+v", last)
	}

	// Cancelled is terminal: no settlement, no second cancel.
	if err := l.CancelTransaction(userAddr, id); !errs.HasCode(err, errs.INVALID_STATE) {
		t.Errorf("second cancel: expected INVALID_STATE, got %v", err)
	}
	if err := l.ProcessTransaction(treasuryAddr, id, "REF"); !errs.HasCode(err, errs.INVALID_STATE) {
		t.Errorf("process after cancel: expected INVALID_STATE, got %v", err)
	}
}

func TestFeeSnapshotSurvivesRateChange(t *testing.T) {
	l, _, store := setupTestLedger(t)
	id, _ := l.InitiateTransaction(userAddr, big.NewInt(1000), "USDC", "KES", models.Onramp)

	if err := store.UpdateTransactionFee(treasuryAddr, 100); err != nil {
		t.Fatal(err)
	}

	tx, _ := l.GetTransaction(id)
	if tx.FeeAmount.Int64() != 5 || tx.NetAmount.Int64() != 995 {
		t.Errorf("in-flight record re-priced: fee=%s net=%s", tx.FeeAmount, tx.NetAmount)
	}

	// New records pick up the new rate.
	id2, _ := l.InitiateTransaction(userAddr, big.NewInt(1000), "USDC", "KES", models.Onramp)
	tx2, _ := l.GetTransaction(id2)
	if tx2.FeeAmount.Int64() != 10 {
		t.Errorf("new record fee = %s, want 10", tx2.FeeAmount)
	}
}

func TestLimitChangesGrandfatherPendingRecords(t *testing.T) {
	l, _, store := setupTestLedger(t)
	id, _ := l.InitiateTransaction(userAddr, big.NewInt(1000), "USDC", "KES", models.Onramp)

	// Raise the minimum above the pending record's amount.
	if err := store.UpdateTransactionLimits(treasuryAddr, big.NewInt(5000), big.NewInt(1000000)); err != nil {
		t.Fatal(err)
	}

	// The pending record stays valid and can still settle.
	if err := l.ProcessTransaction(treasuryAddr, id, "REF"); err != nil {
		t.Errorf("grandfathered record failed to settle: %v", err)
	}

	// But new initiations see the new limits.
	if _, err := l.InitiateTransaction(userAddr, big.NewInt(1000), "USDC", "KES", models.Onramp); !errs.HasCode(err, errs.AMOUNT_TOO_SMALL) {
		t.Errorf("expected AMOUNT_TOO_SMALL under new limits, got %v", err)
	}
}

func TestRegistryChangesDoNotInvalidateRecords(t *testing.T) {
	l, _, _ := setupTestLedger(t)
	id, _ := l.InitiateTransaction(userAddr, big.NewInt(1000), "USDC", "KES", models.Onramp)

	// Currency support is only checked at creation time; the record settles
	// regardless of later registry state.
	if err := l.ProcessTransaction(treasuryAddr, id, "REF"); err != nil {
		t.Errorf("settle failed: %v", err)
	}
}

func TestGetUserTransactions(t *testing.T) {
	l, _, _ := setupTestLedger(t)
	_, _ = l.InitiateTransaction(userAddr, big.NewInt(1000), "USDC", "KES", models.Onramp)
	_, _ = l.InitiateTransaction(userAddr, big.NewInt(2000), "USDC", "CUSD", models.Swap)
	_, _ = l.InitiateTransaction(otherAddr, big.NewInt(3000), "USDC", "KES", models.Offramp)

	mine := l.GetUserTransactions(userAddr)
	if len(mine) != 2 {
		t.Fatalf("got %d records, want 2", len(mine))
	}
	if mine[0].ID >= mine[1].ID {
		t.Error("records should be in creation order")
	}

	// Owner lookup is case-insensitive like every identity comparison.
	if got := len(l.GetUserTransactions("0x3333333333333333333333333333333333333333")); got != 1 {
		t.Errorf("got %d records for other owner, want 1", got)
	}
	if got := len(l.GetUserTransactions("0x9999999999999999999999999999999999999999")); got != 0 {
		t.Errorf("got %d records for unknown owner, want 0", got)
	}
}

func TestGetTransactionCount(t *testing.T) {
	l, _, _ := setupTestLedger(t)
	if l.GetTransactionCount() != 0 {
		t.Error("fresh ledger should be empty")
	}
	_, _ = l.InitiateTransaction(userAddr, big.NewInt(1000), "USDC", "KES", models.Onramp)
	if l.GetTransactionCount() != 1 {
		t.Errorf("count = %d, want 1", l.GetTransactionCount())
	}
}

func TestGetTransactionReturnsCopy(t *testing.T) {
	l, _, _ := setupTestLedger(t)
	id, _ := l.InitiateTransaction(userAddr, big.NewInt(1000), "USDC", "KES", models.Onramp)

	tx, _ := l.GetTransaction(id)
	tx.Amount.SetInt64(1)
	tx.Status = models.StatusFailed

	fresh, _ := l.GetTransaction(id)
	if fresh.Amount.Int64() != 1000 || fresh.Status != models.StatusPending {
		t.Error("ledger state mutated through a returned copy")
	}
}

func TestAuthorityTransferAffectsSettlement(t *testing.T) {
	l, _, _ := setupTestLedger(t)
	id, _ := l.InitiateTransaction(userAddr, big.NewInt(1000), "USDC", "KES", models.Onramp)

	// Move settlement authority away from the treasury.
	if err := l.gate.TransferAuthority(ownerAddr, otherAddr); err != nil {
		t.Fatal(err)
	}
	if err := l.ProcessTransaction(treasuryAddr, id, "REF"); !errs.HasCode(err, errs.UNAUTHORIZED) {
		t.Errorf("old authority should be rejected, got %v", err)
	}
	if err := l.ProcessTransaction(otherAddr, id, "REF"); err != nil {
		t.Errorf("new authority rejected: %v", err)
	}
}
