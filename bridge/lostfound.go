package bridge

import (
	"math/big"

	"gomosbridge/types"

	"github.com/ethereum/go-ethereum/common"
)

// recordStray quarantines value that has no valid destination. It never fails.
func (t *Txn) recordStray(account, token string, amount *big.Int, reason string, orderID, fp common.Hash) {
	k := LostFoundKey{Account: account, Token: token}
	total := t.lostFoundOf(k)
	total.Add(total, amount)
	t.setLostFound(k, total)
	t.emit(types.LostFoundEvent{
		Account:     account,
		Token:       token,
		Amount:      new(big.Int).Set(amount),
		Total:       new(big.Int).Set(total),
		Reason:      reason,
		OrderID:     orderID,
		Fingerprint: fp,
	})
}

// creditAmountOut adds a bare transfer to the sender's pending amount.
func (t *Txn) creditAmountOut(account, token string, amount *big.Int) {
	total := t.amountOutOf(account)
	total.Add(total, amount)
	t.setAmountOut(account, total)
	t.emit(types.AmountOutEvent{
		Account: account,
		Token:   token,
		Amount:  new(big.Int).Set(amount),
		Total:   new(big.Int).Set(total),
	})
}

// takeAmountOut consumes the whole pending entry, returning zero when
// nothing is recorded.
func (t *Txn) takeAmountOut(account string) *big.Int {
	v := t.amountOutOf(account)
	if v.Sign() > 0 {
		t.setAmountOut(account, new(big.Int))
	}
	return v
}
