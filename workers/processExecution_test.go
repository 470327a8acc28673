package workers

import (
	"context"
	"encoding/json"
	"math/big"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"gomosbridge/bridge"
	"gomosbridge/types"

	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
)

type fakeExecutor struct {
	failures int
	calls    []*types.Dispatch
}

func (f *fakeExecutor) Execute(_ context.Context, d *types.Dispatch) (string, error) {
	dc := *d
	f.calls = append(f.calls, &dc)
	if f.failures > 0 {
		f.failures--
		return "", errors.New("signer unavailable")
	}
	return "0xfeed", nil
}

func commitDispatch(t *testing.T, store *bridge.MemoryStore, d *types.Dispatch) {
	t.Helper()
	require.NoError(t, store.Commit(context.Background(), &bridge.Changes{Dispatches: []*types.Dispatch{d}}))
}

func TestDispatcherSuccess(t *testing.T) {
	ctx := context.Background()
	store := bridge.NewMemoryStore()
	commitDispatch(t, store, &types.Dispatch{ID: "d1", Kind: types.DispatchCredit, Status: types.DispatchPending, Token: "usdt.near", Receiver: "bob.near", Amount: big.NewInt(5)})

	exec := &fakeExecutor{}
	w := &Dispatcher{Outbox: store, Executor: exec, Logger: testLogger(), MaxAttempts: 3}
	tried, err := w.RunOnce(ctx, map[string]time.Time{})
	require.NoError(t, err)
	require.Equal(t, 1, tried)
	require.Len(t, exec.calls, 1)
	require.Equal(t, types.DispatchExecuting, exec.calls[0].Status)

	d, err := store.GetDispatch(ctx, "d1")
	require.NoError(t, err)
	require.Equal(t, types.DispatchSuccess, d.Status)
	require.Equal(t, 1, d.Attempts)
	require.Equal(t, "executed: 0xfeed", d.Message)

	tried, err = w.RunOnce(ctx, map[string]time.Time{})
	require.NoError(t, err)
	require.Zero(t, tried)
}

func TestDispatcherRetriesWithBackoff(t *testing.T) {
	ctx := context.Background()
	store := bridge.NewMemoryStore()
	commitDispatch(t, store, &types.Dispatch{ID: "d1", Kind: types.DispatchUpgrade, Status: types.DispatchPending, CodeHash: common.HexToHash("0xc0de")})

	now := time.Unix(1700000000, 0)
	exec := &fakeExecutor{failures: 5}
	w := &Dispatcher{Outbox: store, Executor: exec, Logger: testLogger(), MaxAttempts: 2, now: func() time.Time { return now }}
	lastTry := map[string]time.Time{}

	_, err := w.RunOnce(ctx, lastTry)
	require.NoError(t, err)
	d, _ := store.GetDispatch(ctx, "d1")
	require.Equal(t, types.DispatchPending, d.Status)
	require.Equal(t, 1, d.Attempts)

	// still backing off
	tried, err := w.RunOnce(ctx, lastTry)
	require.NoError(t, err)
	require.Zero(t, tried)

	now = now.Add(11 * time.Second)
	tried, err = w.RunOnce(ctx, lastTry)
	require.NoError(t, err)
	require.Equal(t, 1, tried)

	d, _ = store.GetDispatch(ctx, "d1")
	require.Equal(t, types.DispatchFailed, d.Status)
	require.Equal(t, 2, d.Attempts)
	require.Contains(t, d.Message, "attempt 1: signer unavailable")
	require.Contains(t, d.Message, "attempt 2: signer unavailable")
	require.Len(t, exec.calls, 2)
}

type rpcRequest struct {
	Method string          `json:"method"`
	Params json.RawMessage `json:"params"`
	ID     int             `json:"id"`
}

func TestRPCExecutor(t *testing.T) {
	var got []rpcRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req rpcRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		got = append(got, req)
		w.Header().Set("Content-Type", "application/json")
		if req.Method == "upgrade" {
			w.Write([]byte(`{"jsonrpc":"2.0","error":{"code":-32000,"message":"not allowed"},"id":0}`))
			return
		}
		w.Write([]byte(`{"jsonrpc":"2.0","result":"0xabc","id":0}`))
	}))
	defer srv.Close()

	exec := NewRPCExecutor(srv.URL, srv.Client(), testLogger())
	ctx := context.Background()

	ref, err := exec.Execute(ctx, &types.Dispatch{ID: "c", Kind: types.DispatchCredit, Token: "usdt.near", Receiver: "bob.near", Amount: big.NewInt(970)})
	require.NoError(t, err)
	require.Equal(t, "0xabc", ref)
	require.Equal(t, "ft_transfer", got[0].Method)
	var credit creditParams
	require.NoError(t, json.Unmarshal(got[0].Params, &credit))
	require.Equal(t, "bob.near", credit.ReceiverID)
	require.Equal(t, "970", credit.Amount)

	info := &types.SwapInfo{Entrance: "router.near", SrcSwap: []types.SwapParam{
		{AmountIn: types.NewU128(big.NewInt(1)), MinAmountOut: types.NewU128(big.NewInt(1)), Path: types.HexBytes{1, 2}},
	}}
	_, err = exec.Execute(ctx, &types.Dispatch{ID: "s", Kind: types.DispatchSwap, Token: "usdt.near", Amount: big.NewInt(1), SwapInfo: info})
	require.NoError(t, err)
	require.Equal(t, "swap", got[1].Method)
	require.True(t, strings.Contains(string(got[1].Params), `"swap_info"`))

	_, err = exec.Execute(ctx, &types.Dispatch{ID: "u", Kind: types.DispatchUpgrade, CodeHash: common.HexToHash("0x01")})
	require.Error(t, err)
	require.Contains(t, err.Error(), "not allowed")

	_, err = exec.Execute(ctx, &types.Dispatch{ID: "x", Kind: "burn"})
	require.Error(t, err)
	require.Len(t, got, 3)
}
