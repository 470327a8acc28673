package config

import (
	"fmt"
	"os"

	"github.com/kelseyhightower/envconfig"
	"github.com/pkg/errors"
	yaml "gopkg.in/yaml.v2"
)

// environment overrides are MOS_<SECTION>_<KEY>, e.g. MOS_SERVER_REDIS_HOST
const envPrefix = "MOS"

// reading config error is fatal, and exists main thread
func processError(err error) {
	fmt.Println(err)
	os.Exit(2)
}

func readFile(path string, cfg *Configuration) error {
	f, err := os.Open(path)
	if err != nil {
		return errors.Wrap(err, "open config")
	}
	defer f.Close()

	decoder := yaml.NewDecoder(f)
	if err := decoder.Decode(cfg); err != nil {
		return errors.Wrapf(err, "decode %s", path)
	}
	return nil
}

func readEnv(cfg *Configuration) error {
	return errors.Wrap(envconfig.Process(envPrefix, cfg), "read environment")
}

func setDefaults(cfg *Configuration) {
	if cfg.Server.Listen == "" {
		cfg.Server.Listen = ":8080"
	}
	if cfg.Server.RedisPort == 0 {
		cfg.Server.RedisPort = 6379
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	if cfg.Relay.MinConfirmations == 0 {
		cfg.Relay.MinConfirmations = 3
	}
	if cfg.Relay.BlockBatch == 0 {
		cfg.Relay.BlockBatch = 512
	}
	if cfg.Executor.MaxAttempts == 0 {
		cfg.Executor.MaxAttempts = 5
	}
	if cfg.Executor.BatchSize == 0 {
		cfg.Executor.BatchSize = 20
	}
}

// Load reads the yaml file at path, then applies environment overrides.
func Load(path string) (*Configuration, error) {
	var cfg Configuration
	if err := readFile(path, &cfg); err != nil {
		return nil, err
	}
	if err := readEnv(&cfg); err != nil {
		return nil, err
	}
	setDefaults(&cfg)
	return &cfg, nil
}

func Init() {
	cfg, err := Load("config.yml")
	if err != nil {
		processError(err)
	}
	Config = *cfg
}
