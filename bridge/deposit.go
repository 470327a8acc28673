package bridge

import (
	"context"
	"math/big"

	"gomosbridge/types"

	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
)

// TokenNotification is sent by a token contract after it moved Amount from
// Sender into the bridge's custody.
type TokenNotification struct {
	Token  string      `json:"token"`
	Sender string      `json:"sender_id"`
	Amount *types.U128 `json:"amount"`
	Msg    string      `json:"msg"`
}

// OnTransfer handles a token transfer notification. An empty Msg is a
// liquidity top-up, otherwise Msg is a Deposit or Swap instruction.
func (s *Service) OnTransfer(ctx context.Context, n TokenNotification) (*Result, error) {
	if n.Token == "" || n.Sender == "" {
		return nil, errors.Wrap(ErrMalformedInstruction, "token and sender are required")
	}
	amount := n.Amount.Big()
	ins, err := DecodeInstruction(n.Msg)
	if err != nil {
		return nil, err
	}

	var (
		orderID common.Hash
		op      string
		fn      func(t *Txn) error
	)
	switch v := ins.(type) {
	case nil:
		op = "amount_out"
		fn = func(t *Txn) error {
			t.creditAmountOut(n.Sender, n.Token, amount)
			return nil
		}
	case *DepositInstruction:
		op = "deposit_out"
		fn = func(t *Txn) (err error) {
			orderID, err = t.depositOut(n.Token, n.Sender, v.To, amount)
			return err
		}
	case *SwapInstruction:
		op = "swap_out"
		fn = func(t *Txn) (err error) {
			orderID, err = t.swapOut(s.fees, n.Token, n.Sender, v, amount)
			return err
		}
	}

	res, err := s.execute(ctx, op, fn)
	if err != nil {
		return nil, err
	}
	res.OrderID = orderID
	// the whole amount is always taken
	res.Unused = new(big.Int)
	return res, nil
}

func (t *Txn) depositOut(token, from string, to []byte, amount *big.Int) (orderID common.Hash, err error) {
	if err := checkNotPaused(t.settings.Paused, PauseDepositOutToken); err != nil {
		return orderID, err
	}
	relay := t.settings.RelayChainID
	if err := t.checkRoute(token, relay); err != nil {
		return orderID, err
	}
	if err := t.checkToAccount(to, relay); err != nil {
		return orderID, err
	}
	if err := t.checkAmount(token, amount); err != nil {
		return orderID, err
	}

	id := t.nextOrderID(from, to, relay)
	t.emit(types.DepositOutEvent{
		From:      from,
		To:        types.HexBytes(to),
		OrderID:   id,
		FromChain: t.settings.LocalChainID,
		ToChain:   relay,
		Token:     token,
		Amount:    new(big.Int).Set(amount),
	})
	return id, nil
}

func (t *Txn) swapOut(fees FeePolicy, token, from string, ins *SwapInstruction, amount *big.Int) (orderID common.Hash, err error) {
	if err := checkNotPaused(t.settings.Paused, PauseTransferOutToken); err != nil {
		return orderID, err
	}
	if ins.chainOverflow {
		return orderID, errors.Wrap(ErrUnsupportedRoute, "to_chain exceeds 64 bits")
	}
	if err := t.checkRoute(token, ins.ToChain); err != nil {
		return orderID, err
	}
	if err := t.checkToAccount(ins.To, ins.ToChain); err != nil {
		return orderID, err
	}
	if err := t.checkAmount(token, amount); err != nil {
		return orderID, err
	}
	fee, err := computeSwapFee(fees, token, ins.ToChain, amount, &ins.SwapInfo)
	if err != nil {
		return orderID, err
	}
	net := new(big.Int).Sub(amount, fee.FeeAmount)
	if err := t.checkAmount(token, net); err != nil {
		return orderID, errors.Wrap(err, "net of fee")
	}
	// legs spend the post-fee amount handed to the entrance
	if err := validateSwapInfo(&ins.SwapInfo, net); err != nil {
		return orderID, err
	}

	id := t.nextOrderID(from, ins.To, ins.ToChain)
	if fee.FeeAmount.Sign() > 0 && fee.FeeReceiver != "" {
		t.dispatch(&types.Dispatch{
			Kind:     types.DispatchCredit,
			Token:    token,
			Receiver: fee.FeeReceiver,
			Amount:   new(big.Int).Set(fee.FeeAmount),
			OrderID:  id,
		})
	}
	if len(ins.SwapInfo.SrcSwap) > 0 {
		info := ins.SwapInfo
		t.dispatch(&types.Dispatch{
			Kind:     types.DispatchSwap,
			Token:    token,
			Receiver: info.Entrance,
			Amount:   new(big.Int).Set(net),
			OrderID:  id,
			SwapInfo: &info,
		})
	}
	t.emit(types.SwapOutEvent{
		From:        from,
		To:          types.HexBytes(ins.To),
		OrderID:     id,
		FromChain:   t.settings.LocalChainID,
		ToChain:     ins.ToChain,
		Token:       token,
		Amount:      net,
		GrossAmount: new(big.Int).Set(amount),
		FeeAmount:   new(big.Int).Set(fee.FeeAmount),
		FeeReceiver: fee.FeeReceiver,
		Entrance:    ins.SwapInfo.Entrance,
		SwapData:    ins.SwapInfo.DstSwap,
	})
	return id, nil
}
