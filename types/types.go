package types

import (
	"encoding/json"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/pkg/errors"
)

// chain ids are kept as uint64 everywhere, the relay chain (MAP) is
// always treated as an EVM-style chain

type ChainType int

const (
	ChainTypeUnknown ChainType = 0
	ChainTypeEVM     ChainType = 1
)

func (t ChainType) String() string {
	switch t {
	case ChainTypeEVM:
		return "EvmChain"
	default:
		return "Unknown"
	}
}

// ParseChainType accepts the names used by the admin API and config files.
// Anything unrecognised is Unknown.
func ParseChainType(s string) ChainType {
	switch strings.ToLower(s) {
	case "evmchain", "evm":
		return ChainTypeEVM
	default:
		return ChainTypeUnknown
	}
}

// TokenKind separates tokens issued by the bridge (custodied 1:1 for a remote
// asset) from generic fungible tokens registered for cross-chain transfer.
type TokenKind int

const (
	TokenBridged TokenKind = 1
	TokenGeneric TokenKind = 2
)

func (k TokenKind) String() string {
	switch k {
	case TokenBridged:
		return "bridged"
	case TokenGeneric:
		return "generic"
	default:
		return "unknown"
	}
}

func ParseTokenKind(s string) (TokenKind, error) {
	switch strings.ToLower(s) {
	case "bridged", "mcs":
		return TokenBridged, nil
	case "generic", "fungible":
		return TokenGeneric, nil
	}
	return 0, errors.New("unknown token kind " + s)
}

// TokenRecord is the registry entry of a local token account
type TokenRecord struct {
	Kind       TokenKind       `json:"kind"`
	ToChains   map[uint64]bool `json:"to_chains"`
	MinBalance *big.Int        `json:"min_balance,omitempty"` // generic tokens only
	Decimals   uint8           `json:"decimals"`
}

func (r *TokenRecord) Clone() *TokenRecord {
	c := &TokenRecord{
		Kind:     r.Kind,
		ToChains: make(map[uint64]bool, len(r.ToChains)),
		Decimals: r.Decimals,
	}
	for id, ok := range r.ToChains {
		if ok {
			c.ToChains[id] = true
		}
	}
	if r.MinBalance != nil {
		c.MinBalance = new(big.Int).Set(r.MinBalance)
	}
	return c
}

var maxU128 = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 128), big.NewInt(1))

// U128 is an unsigned 128-bit amount carried as a quoted decimal string on the wire.
type U128 big.Int

func NewU128(v *big.Int) *U128 {
	return (*U128)(new(big.Int).Set(v))
}

func (u *U128) Big() *big.Int {
	if u == nil {
		return new(big.Int)
	}
	return new(big.Int).Set((*big.Int)(u))
}

func (u *U128) MarshalJSON() ([]byte, error) {
	return json.Marshal((*big.Int)(u).String())
}

func (u *U128) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return errors.New("u128 must be a decimal string")
	}
	v, ok := new(big.Int).SetString(s, 10)
	if !ok || v.Sign() < 0 || v.Cmp(maxU128) > 0 {
		return errors.New("invalid u128 value " + s)
	}
	*u = U128(*v)
	return nil
}

// HexBytes is a hex string with or without the 0x prefix.
type HexBytes []byte

func (b HexBytes) MarshalJSON() ([]byte, error) {
	return json.Marshal(hexutil.Encode(b))
}

func (b *HexBytes) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return errors.New("hex value must be a string")
	}
	if !strings.HasPrefix(s, "0x") && !strings.HasPrefix(s, "0X") {
		s = "0x" + s
	}
	if s == "0x" {
		*b = HexBytes{}
		return nil
	}
	dec, err := hexutil.Decode(s)
	if err != nil {
		return err
	}
	*b = dec
	return nil
}

func (b HexBytes) String() string {
	return hexutil.Encode(b)
}

type SwapParam struct {
	AmountIn     *U128    `json:"amount_in"`
	MinAmountOut *U128    `json:"min_amount_out"`
	Path         HexBytes `json:"path"`
	RouterIndex  uint64   `json:"router_index,string"`
}

// SwapInfo describes the swap legs executed on the source side (src_swap) and
// the opaque routing payload forwarded to the destination chain (dst_swap).
type SwapInfo struct {
	Entrance string      `json:"entrance"`
	SrcSwap  []SwapParam `json:"src_swap"`
	DstSwap  HexBytes    `json:"dst_swap"`
}

type SwapFeeInfo struct {
	FeeAmount   *big.Int `json:"fee_amount"`
	FeeReceiver string   `json:"fee_receiver"`
}
