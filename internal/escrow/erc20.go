package escrow

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"tuma-ledger/internal/errs"
	"tuma-ledger/internal/interfaces"
	"tuma-ledger/internal/registry"
)

// allowance(address,address) selector.
var allowanceSelector = []byte{0xdd, 0x62, 0xed, 0x3e}

// ERC20Allowances reads allowance(owner, spender) from the token contract
// registered for a currency. The spender is the ledger's escrow account.
type ERC20Allowances struct {
	client      *ethclient.Client
	registry    *registry.Registry
	spender     common.Address
	rateLimiter *rate.Limiter
	maxRetries  int
	retryDelay  time.Duration
	logger      *zerolog.Logger
}

// NewERC20Allowances dials the RPC endpoint and returns an on-chain
// allowance source.
func NewERC20Allowances(rpcEndpoint, spender string, rateLimit float64,
	reg *registry.Registry, logger *zerolog.Logger) (*ERC20Allowances, error) {
	if !common.IsHexAddress(spender) {
		return nil, errs.Newf(errs.INVALID_ADDRESS, "invalid spender address %s", spender)
	}
	client, err := ethclient.Dial(rpcEndpoint)
	if err != nil {
		return nil, fmt.Errorf("failed to dial RPC endpoint: %w", err)
	}
	return &ERC20Allowances{
		client:      client,
		registry:    reg,
		spender:     common.HexToAddress(spender),
		rateLimiter: rate.NewLimiter(rate.Limit(rateLimit), 1),
		maxRetries:  1,
		retryDelay:  time.Second,
		logger:      logger,
	}, nil
}

// Allowance resolves the currency's token contract from the registry and
// reads allowance(owner, spender) at the latest block.
func (e *ERC20Allowances) Allowance(ctx context.Context, owner, currency string) (*big.Int, error) {
	assetRef := e.registry.CurrencyAssetRef(currency)
	if !common.IsHexAddress(assetRef) {
		return nil, errs.Newf(errs.CURRENCY_NOT_SUPPORTED, "currency %s has no token contract", currency)
	}
	if !common.IsHexAddress(owner) {
		return nil, errs.Newf(errs.INVALID_ADDRESS, "invalid owner address %s", owner)
	}

	if err := e.rateLimiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit error: %v", err)
	}

	token := common.HexToAddress(assetRef)
	data := make([]byte, 0, 4+2*32)
	data = append(data, allowanceSelector...)
	data = append(data, common.LeftPadBytes(common.HexToAddress(owner).Bytes(), 32)...)
	data = append(data, common.LeftPadBytes(e.spender.Bytes(), 32)...)

	var out []byte
	err := e.retry(func() error {
		var callErr error
		out, callErr = e.client.CallContract(ctx, ethereum.CallMsg{To: &token, Data: data}, nil)
		return callErr
	})
	if err != nil {
		e.logger.Error().Err(err).
			Str("currency", currency).
			Str("owner", owner).
			Msg("Allowance call failed")
		return nil, fmt.Errorf("allowance call failed: %v", err)
	}
	if len(out) != 32 {
		return nil, fmt.Errorf("unexpected allowance return length %d", len(out))
	}
	return new(big.Int).SetBytes(out), nil
}

// Close releases the underlying RPC connection.
func (e *ERC20Allowances) Close() {
	e.client.Close()
}

func (e *ERC20Allowances) retry(op func() error) error {
	var err error
	for attempt := 0; attempt <= e.maxRetries; attempt++ {
		if err = op(); err == nil {
			return nil
		}
		if attempt < e.maxRetries {
			e.logger.Debug().Err(err).Int("attempt", attempt+1).Msg("Retrying allowance call")
			time.Sleep(e.retryDelay)
		}
	}
	return err
}

var _ interfaces.AllowanceSource = (*ERC20Allowances)(nil)
