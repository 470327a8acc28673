package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"gomosbridge/EVMRPC"
	"gomosbridge/archive"
	"gomosbridge/bridge"
	"gomosbridge/config"
	"gomosbridge/redis"
	"gomosbridge/workers"
	"gomosbridge/workers/handlers"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

func main() {
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	logger.Info("Starting omnichain bridge service")

	f, err := os.OpenFile(fmt.Sprintf("logs/log_%s.txt", time.Now().Format("2006-01-02")), os.O_RDWR|os.O_CREATE|os.O_APPEND, 0666)
	if err != nil {
		logger.Fatalf("error opening log file for writing: %v", err)
	}
	defer f.Close()
	logger.SetOutput(f)

	config.Init()
	level, err := logrus.ParseLevel(config.Config.LogLevel)
	if err != nil {
		logger.Fatalf("bad log level: %v", err)
	}
	logger.SetLevel(level)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, logger); err != nil {
		logger.WithField("error", err.Error()).Fatal("bridge service failed")
	}
	logger.Info("bridge service stopped")
}

func run(ctx context.Context, logger *logrus.Logger) error {
	cfg := &config.Config

	// connect to Redis, without persistence do not continue
	pool := redis.NewPool(fmt.Sprintf("%s:%d", cfg.Server.RedisHost, cfg.Server.RedisPort))
	defer pool.Close()
	store := redis.NewStore(pool, logger)
	if err := store.Ping(ctx); err != nil {
		return errors.Wrap(err, "redis")
	}

	emitters := bridge.MultiEmitter{&bridge.LogEmitter{Logger: logger}}
	if cfg.Server.PostgresDSN != "" {
		arch := archive.NewArchive(cfg.Server.PostgresDSN, "", logger)
		if err := arch.Migrate(ctx); err != nil {
			return errors.Wrap(err, "event archive")
		}
		emitters = append(emitters, arch)
	}

	fees, err := cfg.FeePolicy()
	if err != nil {
		return err
	}
	svc, err := bridge.New(ctx, store, fees, emitters, logger)
	if err != nil {
		return err
	}
	if !svc.Initialized() {
		genesis, err := cfg.Genesis()
		if err != nil {
			return err
		}
		if err := svc.Init(ctx, genesis); err != nil {
			return errors.Wrap(err, "write genesis")
		}
		logger.WithField("owner", genesis.Owner).Info("bridge state initialized")
	}

	var wg sync.WaitGroup
	spawn := func(f func(ctx context.Context)) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			f(ctx)
		}()
	}

	if len(cfg.Relay.RPCList) > 0 {
		chain := &EVMRPC.Chain{RPCList: cfg.Relay.RPCList, Logger: logger}
		if id, err := chain.ChainID(ctx); err != nil {
			logger.WithField("error", err.Error()).Warn("cannot read relay chain id")
		} else if !id.IsUint64() || id.Uint64() != cfg.Relay.ChainID {
			return errors.Errorf("relay rpc serves chain %s, configured %d", id, cfg.Relay.ChainID)
		}
		scanner := &workers.RelayScanner{
			Chain:  cfg.Relay,
			Reader: chain,
			LightClient: &EVMRPC.LightClient{
				Account:       svc.LightClient(),
				Reader:        chain,
				Confirmations: uint64(cfg.Relay.MinConfirmations),
			},
			Bridge:   svc,
			Cursor:   store,
			Logger:   logger,
			Interval: 10 * time.Second,
		}
		spawn(scanner.Run)
	} else {
		logger.Warn("no relay rpc configured, transfer in only via API")
	}

	if cfg.Executor.Endpoint != "" {
		dispatcher := &workers.Dispatcher{
			Outbox:      store,
			Executor:    workers.NewRPCExecutor(cfg.Executor.Endpoint, &http.Client{Timeout: 30 * time.Second}, logger),
			Logger:      logger,
			MaxAttempts: cfg.Executor.MaxAttempts,
			BatchSize:   cfg.Executor.BatchSize,
			Interval:    3 * time.Second,
		}
		spawn(dispatcher.Run)
	} else {
		logger.Warn("no executor configured, dispatches stay pending")
	}

	api := &handlers.API{Bridge: svc, Ledger: store, Logger: logger, Ping: store.Ping}
	err = workers.Worker_HTTP(ctx, workers.NewRouter(api, cfg.Server.APIKeys), logger)

	wg.Wait()
	return err
}
