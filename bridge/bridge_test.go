package bridge

import (
	"math/big"
	"testing"
	"time"

	"gomosbridge/types"

	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
)

func TestTryConsume(t *testing.T) {
	base := NewState()
	fp := common.HexToHash("0xfeed")

	txn := newTxn(base)
	require.True(t, txn.tryConsume(fp))
	require.False(t, txn.tryConsume(fp))

	c := txn.changes(time.Unix(0, 0))
	require.Equal(t, []common.Hash{fp}, c.UsedEvents)
	base.apply(c)

	again := newTxn(base)
	require.False(t, again.tryConsume(fp))
	require.True(t, again.changes(time.Unix(0, 0)).Empty())
}

func TestPauseMask(t *testing.T) {
	m := NewPauseMask(PauseTransferIn, PauseDepositOutNative)
	require.True(t, m.Has(PauseTransferIn))
	require.False(t, m.Has(PauseDeployToken))
	require.Equal(t, []string{"transfer_in", "deposit_out_native"}, m.Names())
	require.True(t, m.Valid())
	require.False(t, PauseMask(1<<7).Valid())

	require.True(t, m.inboundHalted())
	require.False(t, m.depositOutHalted())
	require.False(t, m.fullyHalted())
	require.True(t, NewPauseMask(AllPauseCategories()...).fullyHalted())

	c, err := ParsePauseCategory("Transfer_Out_Token")
	require.NoError(t, err)
	require.Equal(t, PauseTransferOutToken, c)
	_, err = ParsePauseCategory("bogus")
	require.Error(t, err)

	require.NoError(t, checkNotPaused(m, PauseDeployToken))
	require.ErrorIs(t, checkNotPaused(m, PauseTransferIn), ErrOperationPaused)
}

func TestDecodeInstruction(t *testing.T) {
	ins, err := DecodeInstruction("")
	require.NoError(t, err)
	require.Nil(t, ins)

	ins, err = DecodeInstruction(`{"type":"Deposit","to":"0202020202020202020202020202020202020202"}`)
	require.NoError(t, err)
	dep, ok := ins.(*DepositInstruction)
	require.True(t, ok)
	require.Len(t, dep.To, 20)

	msg := `{"type":"Swap","to":"0x0202020202020202020202020202020202020202","to_chain":"212",` +
		`"swap_info":{"entrance":"","src_swap":[{"amount_in":"1000","min_amount_out":"1",` +
		`"path":"746f6b656e312e6d61703030372e746573746e6574","router_index":"0"}],"dst_swap":"0x0000"}}`
	ins, err = DecodeInstruction(msg)
	require.NoError(t, err)
	swap, ok := ins.(*SwapInstruction)
	require.True(t, ok)
	require.Equal(t, uint64(212), swap.ToChain)
	require.Len(t, swap.SwapInfo.SrcSwap, 1)
	require.Equal(t, big.NewInt(1000), swap.SwapInfo.SrcSwap[0].AmountIn.Big())
	require.Equal(t, "token1.map007.testnet", string(swap.SwapInfo.SrcSwap[0].Path))
	require.Equal(t, types.HexBytes{0, 0}, swap.SwapInfo.DstSwap)
	require.False(t, swap.chainOverflow)

	// a u128 chain id past 64 bits decodes but names no route
	ins, err = DecodeInstruction(`{"type":"Swap","to":"0x02","to_chain":"18446744073709551616",` +
		`"swap_info":{"entrance":"","src_swap":[],"dst_swap":""}}`)
	require.NoError(t, err)
	swap, ok = ins.(*SwapInstruction)
	require.True(t, ok)
	require.True(t, swap.chainOverflow)
	require.Zero(t, swap.ToChain)

	bad := []string{
		`{"type":"Deposit"}`,
		`{"type":"Deposit","to":"0xzz"}`,
		`{"type":"Deposit","to":"0x02","memo":"hi"}`,
		`{"type":"Swap","to":"0x02","to_chain":"212"}`,
		`{"type":"Swap","to":"0x02","to_chain":212,"swap_info":{"entrance":"","src_swap":[],"dst_swap":""}}`,
		`{"type":"Swap","to":"0x02","to_chain":"340282366920938463463374607431768211456","swap_info":{"entrance":"","src_swap":[],"dst_swap":""}}`,
		`{"type":"Swap","to":"0x02","to_chain":"1","swap_info":{"entrance":"","src_swap":[],"dst_swap":"","extra":1}}`,
		`{"type":"Teleport","to":"0x02"}`,
		`{"to":"0x02"}`,
		`[1,2]`,
	}
	for _, m := range bad {
		_, err := DecodeInstruction(m)
		require.ErrorIs(t, err, ErrMalformedInstruction, m)
	}
}

func TestRatePolicy(t *testing.T) {
	p := &RatePolicy{
		Default: FeeRate{RateBps: 30, Min: big.NewInt(5), Receiver: "fee.near"},
		Tokens: map[string]FeeRate{
			"usdt.near": {RateBps: 100, Fixed: big.NewInt(2), Max: big.NewInt(50), Receiver: "usdt-fee.near"},
		},
	}

	fi, err := p.SwapFee("dai.near", 1, big.NewInt(1000), nil)
	require.NoError(t, err)
	// 1000 * 30 / 10000 = 3, raised to the minimum
	require.Equal(t, big.NewInt(5), fi.FeeAmount)
	require.Equal(t, "fee.near", fi.FeeReceiver)

	fi, err = p.SwapFee("usdt.near", 1, big.NewInt(1000), nil)
	require.NoError(t, err)
	require.Equal(t, big.NewInt(12), fi.FeeAmount)

	fi, err = p.SwapFee("usdt.near", 1, big.NewInt(100000), nil)
	require.NoError(t, err)
	require.Equal(t, big.NewInt(50), fi.FeeAmount)
	require.Equal(t, "usdt-fee.near", fi.FeeReceiver)

	_, err = computeSwapFee(p, "dai.near", 1, big.NewInt(5), nil)
	require.ErrorIs(t, err, ErrFeeExceedsAmount)
	fi, err = computeSwapFee(p, "dai.near", 1, big.NewInt(6), nil)
	require.NoError(t, err)
	require.Equal(t, big.NewInt(5), fi.FeeAmount)

	fi, err = computeSwapFee(NoFee{}, "dai.near", 1, big.NewInt(1), nil)
	require.NoError(t, err)
	require.Equal(t, 0, fi.FeeAmount.Sign())
}

func TestFingerprintCoversEveryField(t *testing.T) {
	p := transferIn(genericToken, "bob.near", 5000, 0x01).Payload
	fp := p.Fingerprint()
	require.Equal(t, fp, p.Fingerprint())

	mutations := []func(p *TransferInPayload){
		func(p *TransferInPayload) { p.RelayAddress = common.HexToAddress("0x01") },
		func(p *TransferInPayload) { p.OrderID = common.HexToHash("0x02") },
		func(p *TransferInPayload) { p.FromChain++ },
		func(p *TransferInPayload) { p.ToChain++ },
		func(p *TransferInPayload) { p.Token = types.HexBytes("usdc.near") },
		func(p *TransferInPayload) { p.From = evmAddr(0x0b) },
		func(p *TransferInPayload) { p.To = types.HexBytes("carol.near") },
		func(p *TransferInPayload) { p.Amount = types.NewU128(big.NewInt(5001)) },
	}
	for i, mutate := range mutations {
		q := p
		mutate(&q)
		require.NotEqual(t, fp, q.Fingerprint(), "mutation %d", i)
	}
}

func TestValidLocalAccount(t *testing.T) {
	for _, id := range []string{"bob.near", "a-b_c.testnet", "mos.map007.testnet", "aa"} {
		require.True(t, validLocalAccount(id), id)
	}
	for _, id := range []string{"", "a", "Bob.near", "bob..near", ".bob", "bob.", "bo b", "a@b"} {
		require.False(t, validLocalAccount(id), id)
	}
}

func TestIsRejection(t *testing.T) {
	require.True(t, IsRejection(errors.Wrap(ErrDuplicateEvent, "fingerprint")))
	require.True(t, IsRejection(errors.Wrapf(ErrInvalidArgument, "owner %q", "")))
	require.False(t, IsRejection(errors.New("connection refused")))
	require.False(t, IsRejection(nil))
}
