// Package registry holds the admin-controlled allow-lists: supported
// currencies, supported networks, and supported network pairs for bridging.
// Mutations are authority-gated and idempotent; lookups are pure reads open
// to anyone.
package registry

import (
	"sync"

	"tuma-ledger/internal/authority"
	"tuma-ledger/internal/errs"
	"tuma-ledger/internal/validation"
)

// Registry maps currency codes and network names to their asset contract
// references, and tracks which (source,target) network pairs may be bridged.
//
// Pairs are ordered: adding (a,b) does not make (b,a) supported.
type Registry struct {
	mu         sync.RWMutex
	gate       *authority.Gate
	currencies map[string]string // code -> asset contract ref
	networks   map[string]string // name -> asset contract ref
	pairs      map[string]map[string]bool
}

// New creates an empty registry gated by the given authority.
func New(gate *authority.Gate) *Registry {
	return &Registry{
		gate:       gate,
		currencies: make(map[string]string),
		networks:   make(map[string]string),
		pairs:      make(map[string]map[string]bool),
	}
}

// AddSupportedCurrency registers a currency code with its asset contract
// reference. Re-adding an existing code is a no-op.
func (r *Registry) AddSupportedCurrency(caller, code, assetRef string) error {
	if err := r.gate.RequireAuthority(caller); err != nil {
		return err
	}
	if err := validation.ValidateCurrencyCode(code); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.currencies[code]; exists {
		return nil
	}
	r.currencies[code] = assetRef
	return nil
}

// AddSupportedNetwork registers a network name with its asset contract
// reference. Re-adding an existing network is a no-op.
func (r *Registry) AddSupportedNetwork(caller, name, assetRef string) error {
	if err := r.gate.RequireAuthority(caller); err != nil {
		return err
	}
	if name == "" {
		return errs.New(errs.NETWORK_NOT_SUPPORTED, "empty network name", nil)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.networks[name]; exists {
		return nil
	}
	r.networks[name] = assetRef
	return nil
}

// AddNetworkPair marks the ordered pair source->target as bridgeable.
// Both networks must already be supported. Re-adding is a no-op.
func (r *Registry) AddNetworkPair(caller, source, target string) error {
	if err := r.gate.RequireAuthority(caller); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.networks[source]; !ok {
		return errs.Newf(errs.NETWORK_NOT_SUPPORTED, "source network %s not supported", source)
	}
	if _, ok := r.networks[target]; !ok {
		return errs.Newf(errs.NETWORK_NOT_SUPPORTED, "target network %s not supported", target)
	}
	if r.pairs[source] == nil {
		r.pairs[source] = make(map[string]bool)
	}
	r.pairs[source][target] = true
	return nil
}

// IsCurrencySupported reports whether the currency code is registered.
func (r *Registry) IsCurrencySupported(code string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.currencies[code]
	return ok
}

// IsNetworkSupported reports whether the network name is registered.
func (r *Registry) IsNetworkSupported(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.networks[name]
	return ok
}

// IsNetworkPairSupported reports whether source->target is bridgeable.
// The check is ordered: (a,b) being supported says nothing about (b,a).
func (r *Registry) IsNetworkPairSupported(source, target string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.pairs[source][target]
}

// CurrencyAssetRef returns the asset contract reference registered for the
// currency code, or "" if the currency is not supported.
func (r *Registry) CurrencyAssetRef(code string) string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.currencies[code]
}

// NetworkAssetRef returns the asset contract reference registered for the
// network, or "" if the network is not supported.
func (r *Registry) NetworkAssetRef(name string) string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.networks[name]
}

// SupportedCurrencies returns the registered currency codes.
func (r *Registry) SupportedCurrencies() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	codes := make([]string, 0, len(r.currencies))
	for code := range r.currencies {
		codes = append(codes, code)
	}
	return codes
}

// SupportedNetworks returns the registered network names.
func (r *Registry) SupportedNetworks() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.networks))
	for name := range r.networks {
		names = append(names, name)
	}
	return names
}
