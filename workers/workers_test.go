package workers

import (
	"context"
	"io"
	"math/big"
	"testing"

	"gomosbridge/bridge"
	"gomosbridge/types"

	"github.com/ethereum/go-ethereum/common"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
)

const (
	testOwner       = "owner.near"
	testLightClient = "client.near"
	testLocalChain  = uint64(1360100178526209)
	testRelayChain  = uint64(212)
)

var testRelayAddress = common.HexToAddress("0x630105189c7114667a7179aa57f07647a5f42b7f")

func testLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func newTestBridge(t *testing.T) (*bridge.Service, *bridge.MemoryStore) {
	t.Helper()
	ctx := context.Background()
	store := bridge.NewMemoryStore()
	svc, err := bridge.New(ctx, store, nil, nil, testLogger())
	require.NoError(t, err)
	require.NoError(t, svc.Init(ctx, bridge.Genesis{
		Owner:        testOwner,
		LightClient:  testLightClient,
		RelayAddress: testRelayAddress,
		LocalChainID: testLocalChain,
		RelayChainID: testRelayChain,
		ChainTypes:   map[uint64]types.ChainType{1: types.ChainTypeEVM},
		Tokens: []bridge.GenesisToken{
			{ID: "usdt.near", Kind: types.TokenGeneric, ToChains: []uint64{212, 1}, MinBalance: big.NewInt(100), Decimals: 6, Registered: true},
		},
	}))
	return svc, store
}
