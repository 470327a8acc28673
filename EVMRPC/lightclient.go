package EVMRPC

import (
	"bytes"
	"context"

	"github.com/ethereum/go-ethereum"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/pkg/errors"
)

var (
	ErrNotFinal   = errors.New("log not final yet")
	ErrLogMissing = errors.New("log not found in canonical receipt")
)

// LightClient authenticates relay logs by re-reading the receipt from the
// canonical chain once it is buried under enough confirmations. Account is
// the identity it uses towards the bridge.
type LightClient struct {
	Account       string
	Reader        ChainReader
	Confirmations uint64
}

func (lc *LightClient) Verify(ctx context.Context, l ethtypes.Log) error {
	if l.Removed {
		return errors.Wrapf(ErrLogMissing, "log %s:%d was removed by a reorg", l.TxHash.Hex(), l.Index)
	}
	latest, err := lc.Reader.BlockNumber(ctx)
	if err != nil {
		return errors.Wrap(err, "latest block")
	}
	if latest < l.BlockNumber+lc.Confirmations {
		return errors.Wrapf(ErrNotFinal, "block %d, latest %d, need %d confirmations", l.BlockNumber, latest, lc.Confirmations)
	}

	receipt, err := lc.Reader.TransactionReceipt(ctx, l.TxHash)
	if errors.Is(err, ethereum.NotFound) {
		return errors.Wrapf(ErrLogMissing, "no receipt for %s", l.TxHash.Hex())
	}
	if err != nil {
		return errors.Wrapf(err, "receipt of %s", l.TxHash.Hex())
	}
	if receipt.Status != ethtypes.ReceiptStatusSuccessful {
		return errors.Wrapf(ErrLogMissing, "transaction %s reverted", l.TxHash.Hex())
	}
	if receipt.BlockHash != l.BlockHash {
		return errors.Wrapf(ErrLogMissing, "transaction %s moved to block %s", l.TxHash.Hex(), receipt.BlockHash.Hex())
	}
	for _, rl := range receipt.Logs {
		if rl.Index == l.Index && sameLog(rl, &l) {
			return nil
		}
	}
	return errors.Wrapf(ErrLogMissing, "log %s:%d", l.TxHash.Hex(), l.Index)
}

func sameLog(a, b *ethtypes.Log) bool {
	if a.Address != b.Address || len(a.Topics) != len(b.Topics) || !bytes.Equal(a.Data, b.Data) {
		return false
	}
	for i := range a.Topics {
		if a.Topics[i] != b.Topics[i] {
			return false
		}
	}
	return true
}
