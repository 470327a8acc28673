package config

type FeeConfig struct {
	RateBps  uint64 `yaml:"rate_bps"`
	Fixed    string `yaml:"fixed"`
	Min      string `yaml:"min"`
	Max      string `yaml:"max"`
	Receiver string `yaml:"receiver"`
}

type TokenConfig struct {
	ID         string   `yaml:"id"`
	Kind       string   `yaml:"kind"` // bridged or generic
	ToChains   []uint64 `yaml:"to_chains"`
	MinBalance string   `yaml:"min_balance"`
	Decimals   uint8    `yaml:"decimals"`
	Registered bool     `yaml:"registered"`
}

type Configuration struct {
	// Server config
	Server struct {
		Listen      string `yaml:"listen"`
		UseSSL      bool   `yaml:"ssl"`
		RedisPort   int    `yaml:"redis_port" envconfig:"REDIS_PORT"`
		RedisHost   string `yaml:"redis_host" envconfig:"REDIS_HOST"`
		PostgresDSN string `yaml:"postgres_dsn" envconfig:"POSTGRES_DSN"` // empty disables the event archive
		// callers authenticate with a bearer token mapped to their account id
		APIKeys map[string]string `yaml:"api_keys" envconfig:"API_KEYS"`
	} `yaml:"server"`
	LogLevel string `yaml:"log_level" envconfig:"LOG_LEVEL"`
	// bridge genesis, written once into an empty store
	Bridge struct {
		Owner        string   `yaml:"owner"`
		LightClient  string   `yaml:"light_client" envconfig:"LIGHT_CLIENT"`
		RelayAddress string   `yaml:"relay_address" envconfig:"RELAY_ADDRESS"`
		LocalChainID uint64   `yaml:"local_chain_id" envconfig:"LOCAL_CHAIN_ID"`
		RelayChainID uint64   `yaml:"relay_chain_id" envconfig:"RELAY_CHAIN_ID"`
		Paused       []string `yaml:"paused"`
	} `yaml:"bridge"`
	// relay (MAP) chain scanned for transfer events
	Relay ChainConfig `yaml:"relay"`
	// JSON-RPC endpoint that performs token transfers, swaps and upgrades
	Executor struct {
		Endpoint    string `yaml:"endpoint"`
		MaxAttempts int    `yaml:"max_attempts" envconfig:"MAX_ATTEMPTS"`
		BatchSize   int    `yaml:"batch_size" envconfig:"BATCH_SIZE"`
	} `yaml:"executor"`
	Fees struct {
		Default FeeConfig            `yaml:"default"`
		Tokens  map[string]FeeConfig `yaml:"tokens"`
	} `yaml:"fees" ignored:"true"`
	ChainTypes map[uint64]string `yaml:"chain_types" ignored:"true"`
	Tokens     []TokenConfig     `yaml:"tokens" ignored:"true"`
}

var Config Configuration

// maximum number of EVM RPC retries
const EVM_RETRIES = 3

// delay between executor attempts of one dispatch is attempt * this many seconds
const EXECUTOR_BACKOFF_SECONDS = 10

// EVM-chain config of the relay chain
type ChainConfig struct {
	Name             string   `yaml:"name"`
	ChainID          uint64   `yaml:"chain_id" envconfig:"CHAIN_ID"`
	RPCList          []string `yaml:"rpc_list" envconfig:"RPC_LIST"`
	ContractAddress  string   `yaml:"contract" envconfig:"CONTRACT"` // relay contract emitting mapTransferOut
	MinConfirmations int      `yaml:"confirmations" envconfig:"CONFIRMATIONS"`
	BlockBatch       int      `yaml:"block_batch" envconfig:"BLOCK_BATCH"`
	StartingBlock    int      `yaml:"starting_block" envconfig:"STARTING_BLOCK"` // from when to start scan if no previous record
	SafetyWindow     int      `yaml:"safety_window" envconfig:"SAFETY_WINDOW"`   // rescan room, the replay guard drops repeats
}

var RedisStatusSets = map[string]string{
	"pending":   "mos:dispatches:pending",   // committed with the request, waiting for the executor
	"executing": "mos:dispatches:executing", // picked up, call in flight
	"success":   "mos:dispatches:success",   // executor accepted the call
	"failed":    "mos:dispatches:failed",    // attempts exhausted, needs a compensating operation
}
