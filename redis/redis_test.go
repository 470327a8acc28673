package redis

import (
	"context"
	"io"
	"math/big"
	"testing"

	"gomosbridge/bridge"
	"gomosbridge/config"
	"gomosbridge/types"

	"github.com/alicebob/miniredis/v2"
	"github.com/ethereum/go-ethereum/common"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) (*Store, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return NewStore(NewPool(mr.Addr()), logger), mr
}

func testGenesis() bridge.Genesis {
	return bridge.Genesis{
		Owner:        "owner.near",
		LightClient:  "client.near",
		RelayAddress: common.HexToAddress("0x630105189c7114667a7179aa57f07647a5f42b7f"),
		LocalChainID: 1360100178526209,
		RelayChainID: 212,
		ChainTypes:   map[uint64]types.ChainType{1: types.ChainTypeEVM, 9: types.ChainTypeUnknown},
		Tokens: []bridge.GenesisToken{
			{ID: "usdt.near", Kind: types.TokenGeneric, ToChains: []uint64{212, 1}, MinBalance: big.NewInt(100), Decimals: 6, Registered: true},
			{ID: "wusdc.mos.near", Kind: types.TokenBridged, ToChains: []uint64{1}, Decimals: 18},
		},
	}
}

func TestLoadEmpty(t *testing.T) {
	store, _ := newTestStore(t)
	st, err := store.Load(context.Background())
	require.NoError(t, err)
	require.Equal(t, bridge.NewState(), st)
}

func TestCommitAndReload(t *testing.T) {
	ctx := context.Background()
	store, mr := newTestStore(t)

	svc, err := bridge.New(ctx, store, nil, bridge.MultiEmitter{}, store.logger)
	require.NoError(t, err)
	require.NoError(t, svc.Init(ctx, testGenesis()))

	_, err = svc.OnTransfer(ctx, bridge.TokenNotification{
		Token:  "usdt.near",
		Sender: "alice.near",
		Amount: types.NewU128(big.NewInt(1000)),
		Msg:    `{"type":"Deposit","to":"0x0202020202020202020202020202020202020202"}`,
	})
	require.NoError(t, err)

	_, err = svc.OnTransfer(ctx, bridge.TokenNotification{Token: "usdt.near", Sender: "core.near", Amount: types.NewU128(big.NewInt(42))})
	require.NoError(t, err)

	in := bridge.VerifiedEvent{Payload: bridge.TransferInPayload{
		RelayAddress: common.HexToAddress("0x630105189c7114667a7179aa57f07647a5f42b7f"),
		OrderID:      common.HexToHash("0x01"),
		FromChain:    1,
		ToChain:      1360100178526209,
		Token:        types.HexBytes("wusdc.mos.near"),
		From:         types.HexBytes(common.HexToAddress("0x0a").Bytes()),
		To:           types.HexBytes("bob.near"),
		Amount:       types.NewU128(big.NewInt(77)),
	}}
	_, err = svc.ApplyTransferIn(ctx, "client.near", in)
	require.NoError(t, err)
	in.Payload.OrderID = common.HexToHash("0x02")
	in.Payload.Token = types.HexBytes("usdt.near")
	_, err = svc.ApplyTransferIn(ctx, "client.near", in)
	require.NoError(t, err)

	require.True(t, mr.Exists(keySettings))

	reloaded, err := bridge.New(ctx, store, nil, bridge.MultiEmitter{}, store.logger)
	require.NoError(t, err)
	require.Equal(t, svc.Snapshot(), reloaded.Snapshot())
	require.Equal(t, uint64(1), reloaded.Nonce())
	require.Equal(t, big.NewInt(42), reloaded.AmountOut("core.near"))
	// unregistered bridged token went to lost and found
	require.Equal(t, big.NewInt(77), reloaded.LostFound("bob.near", "wusdc.mos.near"))

	_, err = reloaded.ApplyTransferIn(ctx, "client.near", in)
	require.ErrorIs(t, err, bridge.ErrDuplicateEvent)

	events, err := store.Events(ctx, 0, 0)
	require.NoError(t, err)
	require.Len(t, events, 4)
	require.Equal(t, types.EventDepositOut, events[0].Kind)
	dep, ok := events[0].Data.(*types.DepositOutEvent)
	require.True(t, ok)
	require.Equal(t, big.NewInt(1000), dep.Amount)
	require.Equal(t, types.EventAmountOut, events[1].Kind)
	require.Equal(t, types.EventLostFound, events[2].Kind)
	require.Equal(t, types.EventTransferIn, events[3].Kind)

	page, err := store.Events(ctx, 1, 2)
	require.NoError(t, err)
	require.Len(t, page, 2)
	require.Equal(t, events[1].ID, page[0].ID)
}

func TestDispatchLifecycle(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestStore(t)

	first := &types.Dispatch{ID: "a", Kind: types.DispatchCredit, Status: types.DispatchPending, Token: "usdt.near", Receiver: "bob.near", Amount: big.NewInt(5), TsCreated: 10}
	second := &types.Dispatch{ID: "b", Kind: types.DispatchUpgrade, Status: types.DispatchPending, CodeHash: common.HexToHash("0xc0de"), TsCreated: 5}
	require.NoError(t, store.Commit(ctx, &bridge.Changes{Dispatches: []*types.Dispatch{first, second}}))

	pending, err := store.PendingDispatches(ctx, 0)
	require.NoError(t, err)
	require.Len(t, pending, 2)
	require.Equal(t, "b", pending[0].ID)
	require.Equal(t, big.NewInt(5), pending[1].Amount)

	limited, err := store.PendingDispatches(ctx, 1)
	require.NoError(t, err)
	require.Len(t, limited, 1)

	second.Status = types.DispatchExecuting
	second.Attempts = 1
	require.NoError(t, store.UpdateDispatch(ctx, second))

	counts, err := store.DispatchCounts(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, counts[types.DispatchPending])
	require.Equal(t, 1, counts[types.DispatchExecuting])
	require.Equal(t, 0, counts[types.DispatchFailed])

	got, err := store.GetDispatch(ctx, "b")
	require.NoError(t, err)
	require.Equal(t, 1, got.Attempts)
	require.Equal(t, types.DispatchExecuting, got.Status)

	second.Status = "lost"
	require.Error(t, store.UpdateDispatch(ctx, second))
	_, err = store.GetDispatch(ctx, "zzz")
	require.Error(t, err)
}

func TestScannedBlock(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestStore(t)

	h, err := store.GetScannedBlock(ctx, 212)
	require.NoError(t, err)
	require.Equal(t, int64(-1), h)

	require.NoError(t, store.SetScannedBlock(ctx, 212, 123456))
	h, err = store.GetScannedBlock(ctx, 212)
	require.NoError(t, err)
	require.Equal(t, int64(123456), h)
	require.NoError(t, store.Ping(ctx))
}

func TestCommitReportsFailureInsideTransaction(t *testing.T) {
	ctx := context.Background()
	store, mr := newTestStore(t)

	// a foreign value under the pending set makes SADD fail after EXEC
	require.NoError(t, mr.Set(config.RedisStatusSets[types.DispatchPending], "junk"))
	d := &types.Dispatch{ID: "a", Kind: types.DispatchCredit, Status: types.DispatchPending, Token: "usdt.near", Receiver: "bob.near", Amount: big.NewInt(5)}
	err := store.Commit(ctx, &bridge.Changes{Dispatches: []*types.Dispatch{d}})
	require.Error(t, err)
	require.Contains(t, err.Error(), "SADD failed inside transaction")
}
