// Package params holds the mutable economic parameters of the ledger core:
// fee rates in basis points and min/max amounts per ledger. Updates are
// authority-gated and bounded by hard ceilings; reads are open to anyone.
package params

import (
	"math/big"
	"sync"

	"tuma-ledger/internal/authority"
	"tuma-ledger/internal/errs"
)

// Hard ceilings. Fee updates above these are rejected outright.
const (
	MaxTransactionFeeBps = 500 // 5%
	MaxBridgeFeeBps      = 250 // 2.5%
)

// Store holds the four scalar parameter groups behind a single lock.
type Store struct {
	mu   sync.RWMutex
	gate *authority.Gate

	txFeeBps     uint64
	bridgeFeeBps uint64

	minTxAmount     *big.Int
	maxTxAmount     *big.Int
	minBridgeAmount *big.Int
	maxBridgeAmount *big.Int
}

// Seed carries the initial parameter values.
type Seed struct {
	TransactionFeeBps uint64
	BridgeFeeBps      uint64
	MinTxAmount       uint64
	MaxTxAmount       uint64
	MinBridgeAmount   uint64
	MaxBridgeAmount   uint64
}

// New creates a parameter store with the given seed values.
func New(gate *authority.Gate, seed Seed) *Store {
	return &Store{
		gate:            gate,
		txFeeBps:        seed.TransactionFeeBps,
		bridgeFeeBps:    seed.BridgeFeeBps,
		minTxAmount:     new(big.Int).SetUint64(seed.MinTxAmount),
		maxTxAmount:     new(big.Int).SetUint64(seed.MaxTxAmount),
		minBridgeAmount: new(big.Int).SetUint64(seed.MinBridgeAmount),
		maxBridgeAmount: new(big.Int).SetUint64(seed.MaxBridgeAmount),
	}
}

// UpdateTransactionFee sets the transaction fee rate. Fails with
// LIMIT_EXCEEDED above the hard ceiling.
func (s *Store) UpdateTransactionFee(caller string, bps uint64) error {
	if err := s.gate.RequireAuthority(caller); err != nil {
		return err
	}
	if bps > MaxTransactionFeeBps {
		return errs.Newf(errs.LIMIT_EXCEEDED, "transaction fee %d bps exceeds ceiling %d", bps, MaxTransactionFeeBps)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.txFeeBps = bps
	return nil
}

// UpdateBridgeFee sets the bridge fee rate. Fails with LIMIT_EXCEEDED above
// the hard ceiling.
func (s *Store) UpdateBridgeFee(caller string, bps uint64) error {
	if err := s.gate.RequireAuthority(caller); err != nil {
		return err
	}
	if bps > MaxBridgeFeeBps {
		return errs.Newf(errs.LIMIT_EXCEEDED, "bridge fee %d bps exceeds ceiling %d", bps, MaxBridgeFeeBps)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bridgeFeeBps = bps
	return nil
}

// UpdateTransactionLimits sets the min/max transaction amount. Fails with
// INVALID_RANGE when min > max. Records created under earlier limits are
// never re-evaluated.
func (s *Store) UpdateTransactionLimits(caller string, min, max *big.Int) error {
	if err := s.gate.RequireAuthority(caller); err != nil {
		return err
	}
	if min == nil || max == nil || min.Cmp(max) > 0 {
		return errs.New(errs.INVALID_RANGE, "min amount exceeds max amount", nil)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.minTxAmount = new(big.Int).Set(min)
	s.maxTxAmount = new(big.Int).Set(max)
	return nil
}

// UpdateBridgeLimits sets the min/max bridge amount. Fails with INVALID_RANGE
// when min > max.
func (s *Store) UpdateBridgeLimits(caller string, min, max *big.Int) error {
	if err := s.gate.RequireAuthority(caller); err != nil {
		return err
	}
	if min == nil || max == nil || min.Cmp(max) > 0 {
		return errs.New(errs.INVALID_RANGE, "min amount exceeds max amount", nil)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.minBridgeAmount = new(big.Int).Set(min)
	s.maxBridgeAmount = new(big.Int).Set(max)
	return nil
}

// TransactionFee returns the current transaction fee rate in basis points.
func (s *Store) TransactionFee() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.txFeeBps
}

// BridgeFee returns the current bridge fee rate in basis points.
func (s *Store) BridgeFee() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.bridgeFeeBps
}

// TransactionLimits returns copies of the current min/max transaction amount.
func (s *Store) TransactionLimits() (min, max *big.Int) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return new(big.Int).Set(s.minTxAmount), new(big.Int).Set(s.maxTxAmount)
}

// BridgeLimits returns copies of the current min/max bridge amount.
func (s *Store) BridgeLimits() (min, max *big.Int) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return new(big.Int).Set(s.minBridgeAmount), new(big.Int).Set(s.maxBridgeAmount)
}
