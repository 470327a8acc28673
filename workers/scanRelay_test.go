package workers

import (
	"context"
	"math/big"
	"testing"

	"gomosbridge/EVMRPC"
	"gomosbridge/bridge"
	"gomosbridge/config"
	"gomosbridge/types"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/require"
)

type fakeChain struct {
	latest   uint64
	logs     []ethtypes.Log
	receipts map[common.Hash]*ethtypes.Receipt
}

func (f *fakeChain) BlockNumber(context.Context) (uint64, error) {
	return f.latest, nil
}

func (f *fakeChain) FilterLogs(_ context.Context, q ethereum.FilterQuery) ([]ethtypes.Log, error) {
	var out []ethtypes.Log
	for _, l := range f.logs {
		if l.BlockNumber >= q.FromBlock.Uint64() && l.BlockNumber <= q.ToBlock.Uint64() {
			out = append(out, l)
		}
	}
	return out, nil
}

func (f *fakeChain) TransactionReceipt(_ context.Context, h common.Hash) (*ethtypes.Receipt, error) {
	r, ok := f.receipts[h]
	if !ok {
		return nil, ethereum.NotFound
	}
	return r, nil
}

// addLog adds a mapTransferOut log and, unless orphaned, its receipt.
func (f *fakeChain) addLog(t *testing.T, block uint64, orderID byte, toChain uint64, orphaned bool) {
	t.Helper()
	data, err := EVMRPC.PackTransferOut(
		common.BytesToHash([]byte{orderID}),
		common.HexToAddress("0xaa").Bytes(),
		common.HexToAddress("0x0a").Bytes(),
		[]byte("bob.near"),
		big.NewInt(5000),
		[]byte("usdt.near"),
	)
	require.NoError(t, err)
	l := ethtypes.Log{
		Address: testRelayAddress,
		Topics: []common.Hash{
			EVMRPC.TransferOutTopic,
			common.BigToHash(big.NewInt(1)),
			common.BigToHash(new(big.Int).SetUint64(toChain)),
		},
		Data:        data,
		BlockNumber: block,
		BlockHash:   common.BigToHash(new(big.Int).SetUint64(block)),
		TxHash:      common.BytesToHash([]byte{0x70, orderID}),
	}
	f.logs = append(f.logs, l)
	if orphaned {
		return
	}
	rl := l
	f.receipts[l.TxHash] = &ethtypes.Receipt{Status: ethtypes.ReceiptStatusSuccessful, BlockHash: l.BlockHash, Logs: []*ethtypes.Log{&rl}}
}

type memCursor map[uint64]int64

func (m memCursor) GetScannedBlock(_ context.Context, chainID uint64) (int64, error) {
	if h, ok := m[chainID]; ok {
		return h, nil
	}
	return -1, nil
}

func (m memCursor) SetScannedBlock(_ context.Context, chainID uint64, height int64) error {
	m[chainID] = height
	return nil
}

func newTestScanner(svc *bridge.Service, chain *fakeChain, cursor memCursor) *RelayScanner {
	return &RelayScanner{
		Chain: config.ChainConfig{
			Name:             "map",
			ChainID:          testRelayChain,
			ContractAddress:  testRelayAddress.Hex(),
			MinConfirmations: 5,
			BlockBatch:       10,
			StartingBlock:    100,
			SafetyWindow:     20,
		},
		Reader:      chain,
		LightClient: &EVMRPC.LightClient{Account: testLightClient, Reader: chain, Confirmations: 5},
		Bridge:      svc,
		Cursor:      cursor,
		Logger:      testLogger(),
	}
}

func countEvents(t *testing.T, store *bridge.MemoryStore, kind types.EventKind) int {
	t.Helper()
	events, err := store.Events(context.Background(), 0, 0)
	require.NoError(t, err)
	n := 0
	for _, ev := range events {
		if ev.Kind == kind {
			n++
		}
	}
	return n
}

func TestRelayScanner(t *testing.T) {
	ctx := context.Background()
	svc, store := newTestBridge(t)

	chain := &fakeChain{latest: 120, receipts: map[common.Hash]*ethtypes.Receipt{}}
	chain.addLog(t, 101, 1, testLocalChain, false)
	chain.addLog(t, 105, 2, testLocalChain, true) // never made it into a canonical receipt
	chain.addLog(t, 110, 3, 999, false)           // for another chain
	chain.addLog(t, 118, 4, testLocalChain, false)

	cursor := memCursor{}
	s := newTestScanner(svc, chain, cursor)

	require.NoError(t, s.RunOnce(ctx))
	require.Equal(t, int64(115), cursor[testRelayChain])
	require.Equal(t, 1, countEvents(t, store, types.EventTransferIn))

	// the safety window rescans block 101, the replay guard drops it
	require.NoError(t, s.RunOnce(ctx))
	require.Equal(t, 1, countEvents(t, store, types.EventTransferIn))

	chain.latest = 130
	require.NoError(t, s.RunOnce(ctx))
	require.Equal(t, int64(125), cursor[testRelayChain])
	require.Equal(t, 2, countEvents(t, store, types.EventTransferIn))

	pending, err := store.PendingDispatches(ctx, 0)
	require.NoError(t, err)
	require.Len(t, pending, 2)
	require.Equal(t, "bob.near", pending[0].Receiver)
	require.Equal(t, big.NewInt(5000), pending[0].Amount)
}

func TestRelayScannerStopsWhilePaused(t *testing.T) {
	ctx := context.Background()
	svc, store := newTestBridge(t)
	require.NoError(t, svc.SetPausedMask(ctx, testOwner, bridge.NewPauseMask(bridge.PauseTransferIn)))

	chain := &fakeChain{latest: 120, receipts: map[common.Hash]*ethtypes.Receipt{}}
	chain.addLog(t, 101, 1, testLocalChain, false)
	cursor := memCursor{}
	s := newTestScanner(svc, chain, cursor)

	require.ErrorIs(t, s.RunOnce(ctx), bridge.ErrOperationPaused)
	_, scanned := cursor[testRelayChain]
	require.False(t, scanned)

	require.NoError(t, svc.SetPausedMask(ctx, testOwner, bridge.NewPauseMask()))
	require.NoError(t, s.RunOnce(ctx))
	require.Equal(t, 1, countEvents(t, store, types.EventTransferIn))
}
