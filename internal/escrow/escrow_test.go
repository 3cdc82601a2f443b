package escrow

import (
	"context"
	"encoding/json"
	"fmt"
	"math/big"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"tuma-ledger/internal/authority"
	"tuma-ledger/internal/registry"
)

const (
	adminAddr   = "0x1111111111111111111111111111111111111111"
	ownerAddr   = "0x3333333333333333333333333333333333333333"
	spenderAddr = "0x5555555555555555555555555555555555555555"

	usdcContract = "0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48"
)

func TestMemoryAllowances(t *testing.T) {
	m := NewMemoryAllowances()
	ctx := context.Background()

	got, err := m.Allowance(ctx, ownerAddr, "USDC")
	if err != nil {
		t.Fatal(err)
	}
	if got.Sign() != 0 {
		t.Errorf("fresh allowance = %s, want 0", got)
	}

	m.Approve(ownerAddr, "USDC", big.NewInt(5000))
	got, _ = m.Allowance(ctx, ownerAddr, "USDC")
	if got.Int64() != 5000 {
		t.Errorf("allowance = %s, want 5000", got)
	}

	// Per-currency and case-insensitive per-owner.
	got, _ = m.Allowance(ctx, ownerAddr, "CUSD")
	if got.Sign() != 0 {
		t.Errorf("CUSD allowance = %s, want 0", got)
	}
	got, _ = m.Allowance(ctx, strings.ToUpper(ownerAddr), "USDC")
	if got.Int64() != 5000 {
		t.Errorf("case-insensitive lookup = %s, want 5000", got)
	}
}

func TestMemoryAllowanceReturnsCopy(t *testing.T) {
	m := NewMemoryAllowances()
	m.Approve(ownerAddr, "USDC", big.NewInt(5000))

	got, _ := m.Allowance(context.Background(), ownerAddr, "USDC")
	got.SetInt64(1)

	fresh, _ := m.Allowance(context.Background(), ownerAddr, "USDC")
	if fresh.Int64() != 5000 {
		t.Error("internal state mutated through returned allowance")
	}
}

// newRPCServer fakes an Ethereum JSON-RPC node that answers eth_call with
// the given 32-byte allowance word. It records the last call data.
func newRPCServer(t *testing.T, allowance *big.Int, lastData *string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			ID     json.RawMessage   `json:"id"`
			Method string            `json:"method"`
			Params []json.RawMessage `json:"params"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid request", 400)
			return
		}
		if req.Method != "eth_call" {
			http.Error(w, "unexpected method "+req.Method, 400)
			return
		}
		if len(req.Params) > 0 && lastData != nil {
			// The client may send the calldata under "input" or "data"
			// depending on version.
			var call struct {
				Input string `json:"input"`
				Data  string `json:"data"`
			}
			_ = json.Unmarshal(req.Params[0], &call)
			if call.Input != "" {
				*lastData = call.Input
			} else {
				*lastData = call.Data
			}
		}

		result := fmt.Sprintf("0x%064x", allowance)
		w.Header().Set("Content-Type", "application/json")
		_, _ = fmt.Fprintf(w, `{"jsonrpc":"2.0","id":%s,"result":"%s"}`, req.ID, result)
	}))
}

func newTestRegistry(t *testing.T) *registry.Registry {
	t.Helper()
	reg := registry.New(authority.NewGate(adminAddr, ""))
	if err := reg.AddSupportedCurrency(adminAddr, "USDC", usdcContract); err != nil {
		t.Fatal(err)
	}
	if err := reg.AddSupportedCurrency(adminAddr, "KES", ""); err != nil {
		t.Fatal(err)
	}
	return reg
}

func TestERC20Allowance(t *testing.T) {
	var lastData string
	server := newRPCServer(t, big.NewInt(123456), &lastData)
	defer server.Close()

	logger := zerolog.New(nil)
	source, err := NewERC20Allowances(server.URL, spenderAddr, 100, newTestRegistry(t), &logger)
	if err != nil {
		t.Fatal(err)
	}
	defer source.Close()

	got, err := source.Allowance(context.Background(), ownerAddr, "USDC")
	if err != nil {
		t.Fatalf("allowance failed: %v", err)
	}
	if got.Int64() != 123456 {
		t.Errorf("allowance = %s, want 123456", got)
	}

	// Calldata: allowance selector + padded owner + padded spender.
	if !strings.HasPrefix(lastData, "0xdd62ed3e") {
		t.Errorf("calldata %s does not start with the allowance selector", lastData)
	}
	if !strings.Contains(lastData, strings.ToLower(ownerAddr[2:])) {
		t.Errorf("calldata %s does not contain the owner address", lastData)
	}
	if !strings.Contains(lastData, strings.ToLower(spenderAddr[2:])) {
		t.Errorf("calldata %s does not contain the spender address", lastData)
	}
}

func TestERC20AllowanceRejectsNonTokenCurrency(t *testing.T) {
	server := newRPCServer(t, big.NewInt(0), nil)
	defer server.Close()

	logger := zerolog.New(nil)
	source, err := NewERC20Allowances(server.URL, spenderAddr, 100, newTestRegistry(t), &logger)
	if err != nil {
		t.Fatal(err)
	}
	defer source.Close()

	// KES has no token contract; the source cannot answer for it.
	if _, err := source.Allowance(context.Background(), ownerAddr, "KES"); err == nil {
		t.Error("expected error for currency without a token contract")
	}
	if _, err := source.Allowance(context.Background(), "not-an-address", "USDC"); err == nil {
		t.Error("expected error for malformed owner address")
	}
}

func TestNewERC20AllowancesRejectsBadSpender(t *testing.T) {
	logger := zerolog.New(nil)
	if _, err := NewERC20Allowances("http://localhost:0", "bogus", 1, newTestRegistry(t), &logger); err == nil {
		t.Error("expected error for invalid spender address")
	}
}
