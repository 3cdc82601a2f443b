package validation

import (
	"math/big"
	"regexp"

	"github.com/ethereum/go-ethereum/common"

	"tuma-ledger/internal/errs"
)

var currencyCodeRegex = regexp.MustCompile(`^[A-Za-z0-9]{2,12}$`)

// ValidateOwner validates a caller/owner identity. Owners are hex addresses.
func ValidateOwner(address string) error {
	if address == "" {
		return errs.New(errs.INVALID_ADDRESS, "address cannot be empty", nil)
	}
	if !common.IsHexAddress(address) {
		return errs.Newf(errs.INVALID_ADDRESS, "invalid owner address %s", address)
	}
	return nil
}

// ValidateAmount rejects nil, zero, and negative amounts.
func ValidateAmount(amount *big.Int) error {
	if amount == nil || amount.Sign() <= 0 {
		return errs.New(errs.INVALID_AMOUNT, "amount must be a positive integer", nil)
	}
	return nil
}

// ValidateCurrencyCode checks the shape of a currency code before the
// registry lookup. Registry membership is checked separately.
func ValidateCurrencyCode(code string) error {
	if !currencyCodeRegex.MatchString(code) {
		return errs.Newf(errs.CURRENCY_NOT_SUPPORTED, "malformed currency code %q", code)
	}
	return nil
}
