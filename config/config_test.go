package config

import (
	"math/big"
	"os"
	"path/filepath"
	"testing"

	"gomosbridge/bridge"
	"gomosbridge/types"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"
)

const sampleConfig = `
server:
  listen: ":9000"
  redis_host: "127.0.0.1"
  api_keys:
    k-owner: owner.near
log_level: debug
bridge:
  owner: owner.near
  light_client: client.near
  relay_address: "0x630105189c7114667a7179aa57f07647a5f42b7f"
  local_chain_id: 1360100178526209
  relay_chain_id: 212
  paused: [deploy_token]
relay:
  name: MAP
  chain_id: 212
  rpc_list: ["https://rpc.maplabs.io"]
  contract: "0x630105189c7114667a7179aa57f07647a5f42b7f"
fees:
  default:
    rate_bps: 30
    receiver: fee.near
  tokens:
    usdt.near:
      fixed: "2"
      max: "50"
chain_types:
  1: EvmChain
  5566818579631833088: Unknown
tokens:
  - id: usdt.near
    kind: generic
    to_chains: [212, 1]
    min_balance: "100"
    decimals: 6
    registered: true
`

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad(t *testing.T) {
	t.Setenv("MOS_SERVER_REDIS_PORT", "6380")
	t.Setenv("MOS_BRIDGE_RELAY_CHAIN_ID", "22776")

	cfg, err := Load(writeConfig(t, sampleConfig))
	require.NoError(t, err)
	require.Equal(t, ":9000", cfg.Server.Listen)
	require.Equal(t, 6380, cfg.Server.RedisPort)
	require.Equal(t, "owner.near", cfg.Server.APIKeys["k-owner"])
	require.Equal(t, "debug", cfg.LogLevel)
	require.Equal(t, uint64(22776), cfg.Bridge.RelayChainID)
	require.Equal(t, []string{"https://rpc.maplabs.io"}, cfg.Relay.RPCList)
	// defaults
	require.Equal(t, 3, cfg.Relay.MinConfirmations)
	require.Equal(t, 5, cfg.Executor.MaxAttempts)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yml"))
	require.Error(t, err)
}

func TestGenesisAndFees(t *testing.T) {
	cfg, err := Load(writeConfig(t, sampleConfig))
	require.NoError(t, err)

	g, err := cfg.Genesis()
	require.NoError(t, err)
	require.Equal(t, "owner.near", g.Owner)
	require.Equal(t, common.HexToAddress("0x630105189c7114667a7179aa57f07647a5f42b7f"), g.RelayAddress)
	require.True(t, g.Paused.Has(bridge.PauseDeployToken))
	require.False(t, g.Paused.Has(bridge.PauseTransferIn))
	require.Equal(t, types.ChainTypeEVM, g.ChainTypes[1])
	require.Equal(t, types.ChainTypeUnknown, g.ChainTypes[5566818579631833088])
	require.Len(t, g.Tokens, 1)
	require.Equal(t, types.TokenGeneric, g.Tokens[0].Kind)
	require.Equal(t, big.NewInt(100), g.Tokens[0].MinBalance)

	p, err := cfg.FeePolicy()
	require.NoError(t, err)
	fi, err := p.SwapFee("usdt.near", 1, big.NewInt(1000), nil)
	require.NoError(t, err)
	require.Equal(t, big.NewInt(2), fi.FeeAmount)
	fi, err = p.SwapFee("dai.near", 1, big.NewInt(10000), nil)
	require.NoError(t, err)
	require.Equal(t, big.NewInt(30), fi.FeeAmount)
	require.Equal(t, "fee.near", fi.FeeReceiver)
}

func TestGenesisRejectsBadInput(t *testing.T) {
	var cfg Configuration
	cfg.Bridge.Paused = []string{"everything"}
	_, err := cfg.Genesis()
	require.Error(t, err)

	cfg = Configuration{}
	cfg.Tokens = []TokenConfig{{ID: "x.near", Kind: "weird"}}
	_, err = cfg.Genesis()
	require.Error(t, err)

	cfg = Configuration{}
	cfg.Fees.Default.RateBps = 20000
	_, err = cfg.FeePolicy()
	require.Error(t, err)
}
