// Package escrow provides allowance sources for the bridge ledger's escrow
// precondition: an in-memory ledger for tests and local development, and an
// ERC-20 reader that checks on-chain allowances over JSON-RPC.
package escrow

import (
	"context"
	"math/big"
	"strings"
	"sync"

	"tuma-ledger/internal/interfaces"
)

// MemoryAllowances is an in-memory allowance ledger keyed by (owner, currency).
type MemoryAllowances struct {
	mu      sync.RWMutex
	granted map[string]*big.Int
}

// NewMemoryAllowances creates an empty allowance ledger.
func NewMemoryAllowances() *MemoryAllowances {
	return &MemoryAllowances{granted: make(map[string]*big.Int)}
}

// Approve sets the amount of currency the owner authorizes the ledger to hold.
func (m *MemoryAllowances) Approve(owner, currency string, amount *big.Int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.granted[key(owner, currency)] = new(big.Int).Set(amount)
}

// Allowance returns the currently approved amount, zero if none.
func (m *MemoryAllowances) Allowance(_ context.Context, owner, currency string) (*big.Int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if amount, ok := m.granted[key(owner, currency)]; ok {
		return new(big.Int).Set(amount), nil
	}
	return big.NewInt(0), nil
}

func key(owner, currency string) string {
	return strings.ToLower(owner) + "/" + currency
}

var _ interfaces.AllowanceSource = (*MemoryAllowances)(nil)
