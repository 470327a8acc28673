package archive

import (
	"context"
	"io"
	"math/big"
	"strings"
	"testing"

	"gomosbridge/types"

	"github.com/ethereum/go-ethereum/common"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
)

func TestToRow(t *testing.T) {
	r, err := toRow(types.Envelope{
		ID:        "e1",
		Kind:      types.EventDepositOut,
		EmittedAt: 1700000000,
		Data:      &types.DepositOutEvent{OrderID: common.HexToHash("0x01"), Amount: big.NewInt(5)},
	})
	require.NoError(t, err)
	require.Equal(t, "DepositOut", r.Kind)
	require.True(t, r.OrderID.Valid)
	require.Equal(t, common.HexToHash("0x01").Hex(), r.OrderID.String)

	r, err = toRow(types.Envelope{ID: "e2", Kind: types.EventAmountOut, Data: &types.AmountOutEvent{Account: "core.near"}})
	require.NoError(t, err)
	require.False(t, r.OrderID.Valid)
}

func TestQueriesQuoteTable(t *testing.T) {
	a := NewArchive("", `odd"name`, nil)
	require.True(t, strings.Contains(a.insert(), `"odd""name"`))
	require.True(t, strings.Contains(a.schema(), `"odd""name_order_id_idx"`))
	require.Contains(t, NewArchive("", "", nil).insert(), `"bridge_events"`)
}

func TestEmitNothing(t *testing.T) {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	// no events, no connection attempt
	require.NoError(t, NewArchive("postgres://nowhere.invalid/db", "", logger).Emit(context.Background(), nil))
}
