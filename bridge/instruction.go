package bridge

import (
	"bytes"
	"encoding/json"
	"math/big"
	"strings"

	"gomosbridge/types"

	"github.com/pkg/errors"
)

// Instruction is the payload attached to a token transfer notification:
// exactly one of *DepositInstruction or *SwapInstruction.
type Instruction interface {
	instruction()
}

type DepositInstruction struct {
	To types.HexBytes `json:"to"`
}

type SwapInstruction struct {
	To       types.HexBytes `json:"to"`
	ToChain  uint64         `json:"-"`
	SwapInfo types.SwapInfo `json:"swap_info"`

	// set when to_chain does not fit a uint64; no such route can exist
	chainOverflow bool
}

func (*DepositInstruction) instruction() {}
func (*SwapInstruction) instruction()    {}

func strictDecode(data []byte, v interface{}) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return err
	}
	if dec.More() {
		return errors.New("trailing data")
	}
	return nil
}

// DecodeInstruction parses {"type":"Deposit",...} or {"type":"Swap",...}.
// An empty message is a bare transfer and yields (nil, nil).
func DecodeInstruction(msg string) (Instruction, error) {
	if strings.TrimSpace(msg) == "" {
		return nil, nil
	}
	var tag struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal([]byte(msg), &tag); err != nil {
		return nil, errors.Wrap(ErrMalformedInstruction, err.Error())
	}

	switch tag.Type {
	case "Deposit":
		var v struct {
			Type string `json:"type"`
			DepositInstruction
		}
		if err := strictDecode([]byte(msg), &v); err != nil {
			return nil, errors.Wrapf(ErrMalformedInstruction, "deposit: %s", err.Error())
		}
		if len(v.To) == 0 {
			return nil, errors.Wrap(ErrMalformedInstruction, "deposit: missing to")
		}
		return &v.DepositInstruction, nil
	case "Swap":
		var v struct {
			Type     string          `json:"type"`
			To       types.HexBytes  `json:"to"`
			ToChain  *types.U128     `json:"to_chain"`
			SwapInfo *types.SwapInfo `json:"swap_info"`
		}
		if err := strictDecode([]byte(msg), &v); err != nil {
			return nil, errors.Wrapf(ErrMalformedInstruction, "swap: %s", err.Error())
		}
		if len(v.To) == 0 || v.ToChain == nil || v.SwapInfo == nil {
			return nil, errors.Wrap(ErrMalformedInstruction, "swap: to, to_chain and swap_info are required")
		}
		ins := &SwapInstruction{To: v.To, SwapInfo: *v.SwapInfo}
		if chain := v.ToChain.Big(); chain.IsUint64() {
			ins.ToChain = chain.Uint64()
		} else {
			ins.chainOverflow = true
		}
		return ins, nil
	}
	return nil, errors.Wrapf(ErrMalformedInstruction, "unknown instruction type %q", tag.Type)
}

// validateSwapInfo checks the source legs against the net amount.
func validateSwapInfo(info *types.SwapInfo, net *big.Int) error {
	in := new(big.Int)
	for i, p := range info.SrcSwap {
		if p.AmountIn == nil || p.MinAmountOut == nil {
			return errors.Wrapf(ErrMalformedInstruction, "src_swap[%d]: amounts are required", i)
		}
		if len(p.Path) == 0 {
			return errors.Wrapf(ErrMalformedInstruction, "src_swap[%d]: empty path", i)
		}
		in.Add(in, p.AmountIn.Big())
	}
	if in.Cmp(net) > 0 {
		return errors.Wrapf(ErrMalformedInstruction, "src_swap spends %s of %s", in, net)
	}
	return nil
}
