package bridge

import (
	"math/big"
	"regexp"

	"gomosbridge/types"

	ethav "github.com/KOREAN139/ethereum-address-validator"
	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
)

// amounts on the relay chain carry at most this many decimals
const relayDecimals = 18

const maxDestinationLength = 64

// local account ids: 2..64 chars, lowercase alphanumerics split by - _ or .
var localAccountRe = regexp.MustCompile(`^(([a-z\d]+[\-_])*[a-z\d]+\.)*([a-z\d]+[\-_])*[a-z\d]+$`)

func validLocalAccount(id string) bool {
	return len(id) >= 2 && len(id) <= 64 && localAccountRe.MatchString(id)
}

// isRouteSupported: the token must be registered and the chain must be one of
// its destinations. Bridged tokens may always go back to the relay chain, and
// only to EVM-style chains.
func (t *Txn) isRouteSupported(token string, chainID uint64) bool {
	rec, ok := t.token(token)
	if !ok {
		return false
	}
	switch rec.Kind {
	case types.TokenBridged:
		if t.classify(chainID) != types.ChainTypeEVM {
			return false
		}
		return chainID == t.settings.RelayChainID || rec.ToChains[chainID]
	case types.TokenGeneric:
		return rec.ToChains[chainID]
	}
	return false
}

func (t *Txn) checkRoute(token string, chainID uint64) error {
	if _, ok := t.token(token); !ok {
		return errors.Wrapf(ErrUnknownToken, "token %s", token)
	}
	if !t.isRouteSupported(token, chainID) {
		return errors.Wrapf(ErrUnsupportedRoute, "token %s to chain %d is not supported", token, chainID)
	}
	return nil
}

func (t *Txn) checkToAccount(to []byte, chainID uint64) error {
	if len(to) == 0 || len(to) > maxDestinationLength {
		return errors.Wrapf(ErrInvalidDestinationEncoding, "destination length %d", len(to))
	}
	if t.classify(chainID) != types.ChainTypeEVM {
		return nil
	}
	if len(to) != common.AddressLength {
		return errors.Wrapf(ErrInvalidDestinationEncoding, "evm destination must be %d bytes, got %d", common.AddressLength, len(to))
	}
	addr := common.BytesToAddress(to)
	if addr == (common.Address{}) {
		return errors.Wrap(ErrInvalidDestinationEncoding, "zero address")
	}
	if err := ethav.Validate(addr.Hex()); err != nil {
		return errors.Wrapf(ErrInvalidDestinationEncoding, "address %s: %s", addr.Hex(), err.Error())
	}
	return nil
}

// checkAmount rejects amounts the relay chain cannot represent: zero,
// precision finer than relayDecimals, or below a generic token's min balance.
func (t *Txn) checkAmount(token string, amount *big.Int) error {
	rec, ok := t.token(token)
	if !ok {
		return errors.Wrapf(ErrUnknownToken, "token %s", token)
	}
	if amount == nil || amount.Sign() <= 0 {
		return errors.Wrap(ErrAmountBelowFloor, "amount must be positive")
	}
	if rec.Decimals > relayDecimals {
		unit := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(rec.Decimals-relayDecimals)), nil)
		if new(big.Int).Mod(amount, unit).Sign() != 0 {
			return errors.Wrapf(ErrAmountBelowFloor, "amount %s has more precision than %d decimals", amount, relayDecimals)
		}
	}
	if rec.Kind == types.TokenGeneric && rec.MinBalance != nil && amount.Cmp(rec.MinBalance) < 0 {
		return errors.Wrapf(ErrAmountBelowFloor, "amount %s below min balance %s", amount, rec.MinBalance)
	}
	return nil
}

// creditable reports why an inbound credit cannot be delivered, or "" when it can.
func (t *Txn) creditable(token, receiver string) string {
	if _, ok := t.token(token); !ok {
		return "unknown token"
	}
	if !t.isRegistered(token) {
		return "token not registered"
	}
	if !validLocalAccount(receiver) {
		return "invalid receiver"
	}
	return ""
}
