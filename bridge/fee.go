package bridge

import (
	"math/big"

	"gomosbridge/types"

	"github.com/pkg/errors"
)

const bpsDenominator = 10000

// FeePolicy decides the swap fee for a gross amount. It is supplied by the
// operator configuration, the orchestrator only enforces fee < amount.
type FeePolicy interface {
	SwapFee(token string, toChain uint64, amount *big.Int, info *types.SwapInfo) (types.SwapFeeInfo, error)
}

// FeeRate is fee = amount*RateBps/10000 + Fixed, clamped to [Min, Max].
type FeeRate struct {
	RateBps  uint64
	Fixed    *big.Int
	Min      *big.Int
	Max      *big.Int
	Receiver string
}

func (r FeeRate) apply(amount *big.Int) *big.Int {
	fee := new(big.Int).Mul(amount, new(big.Int).SetUint64(r.RateBps))
	fee.Quo(fee, big.NewInt(bpsDenominator))
	if r.Fixed != nil {
		fee.Add(fee, r.Fixed)
	}
	if r.Min != nil && fee.Cmp(r.Min) < 0 {
		fee.Set(r.Min)
	}
	if r.Max != nil && r.Max.Sign() > 0 && fee.Cmp(r.Max) > 0 {
		fee.Set(r.Max)
	}
	return fee
}

// RatePolicy picks the token's rate, or Default for unlisted tokens.
type RatePolicy struct {
	Default FeeRate
	Tokens  map[string]FeeRate
}

func (p *RatePolicy) rate(token string) FeeRate {
	if r, ok := p.Tokens[token]; ok {
		return r
	}
	return p.Default
}

func (p *RatePolicy) SwapFee(token string, _ uint64, amount *big.Int, _ *types.SwapInfo) (types.SwapFeeInfo, error) {
	r := p.rate(token)
	return types.SwapFeeInfo{FeeAmount: r.apply(amount), FeeReceiver: r.Receiver}, nil
}

// NoFee charges nothing.
type NoFee struct{}

func (NoFee) SwapFee(string, uint64, *big.Int, *types.SwapInfo) (types.SwapFeeInfo, error) {
	return types.SwapFeeInfo{FeeAmount: new(big.Int)}, nil
}

func computeSwapFee(policy FeePolicy, token string, toChain uint64, amount *big.Int, info *types.SwapInfo) (types.SwapFeeInfo, error) {
	fi, err := policy.SwapFee(token, toChain, amount, info)
	if err != nil {
		return types.SwapFeeInfo{}, errors.Wrap(err, "fee policy")
	}
	if fi.FeeAmount == nil {
		fi.FeeAmount = new(big.Int)
	}
	if fi.FeeAmount.Sign() < 0 {
		return types.SwapFeeInfo{}, errors.Wrapf(ErrFeeExceedsAmount, "negative fee %s", fi.FeeAmount)
	}
	if fi.FeeAmount.Cmp(amount) >= 0 {
		return types.SwapFeeInfo{}, errors.Wrapf(ErrFeeExceedsAmount, "fee %s, amount %s", fi.FeeAmount, amount)
	}
	return fi, nil
}
