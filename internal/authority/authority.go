// Package authority implements the two-role capability gate shared by both
// ledgers: the owner (deployer) and the settlement authority (typically the
// treasury). Every gated operation re-checks the caller against the current
// role holders at call time.
package authority

import (
	"strings"
	"sync"

	"tuma-ledger/internal/errs"
)

// Gate holds the two role identities. Identities are hex addresses compared
// case-insensitively.
type Gate struct {
	mu        sync.RWMutex
	owner     string
	authority string
}

// NewGate creates a gate with the given owner. The settlement authority
// starts as the owner when authority is empty.
func NewGate(owner, authority string) *Gate {
	owner = normalize(owner)
	authority = normalize(authority)
	if authority == "" {
		authority = owner
	}
	return &Gate{owner: owner, authority: authority}
}

// Owner returns the current owner identity.
func (g *Gate) Owner() string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.owner
}

// Authority returns the current settlement authority identity.
func (g *Gate) Authority() string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.authority
}

// RequireOwner fails with UNAUTHORIZED unless caller is the owner.
func (g *Gate) RequireOwner(caller string) error {
	g.mu.RLock()
	defer g.mu.RUnlock()
	if normalize(caller) != g.owner {
		return errs.Newf(errs.UNAUTHORIZED, "caller %s is not the owner", caller)
	}
	return nil
}

// RequireAuthority fails with UNAUTHORIZED unless caller is the current
// settlement authority.
func (g *Gate) RequireAuthority(caller string) error {
	g.mu.RLock()
	defer g.mu.RUnlock()
	if normalize(caller) != g.authority {
		return errs.Newf(errs.UNAUTHORIZED, "caller %s is not the settlement authority", caller)
	}
	return nil
}

// TransferAuthority hands the settlement-authority role to newAuthority.
// Owner-only; may be called repeatedly, always only by the current owner.
func (g *Gate) TransferAuthority(caller, newAuthority string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if normalize(caller) != g.owner {
		return errs.Newf(errs.UNAUTHORIZED, "caller %s is not the owner", caller)
	}
	newAuthority = normalize(newAuthority)
	if newAuthority == "" {
		return errs.New(errs.INVALID_ADDRESS, "new authority is empty", nil)
	}
	g.authority = newAuthority
	return nil
}

func normalize(addr string) string {
	return strings.ToLower(strings.TrimSpace(addr))
}
