package EVMRPC

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// WithClient tries every RPC in order until f succeeds on one of them.
func WithClient[T any](rpcList []string, logger *logrus.Logger, f func(client *ethclient.Client) (T, error)) (res T, err error) {
	if len(rpcList) == 0 {
		return res, errors.New("empty rpc list")
	}
	var client *ethclient.Client
	for _, url := range rpcList {
		client, err = ethclient.Dial(url)
		if err != nil {
			logger.WithFields(logrus.Fields{"rpc": url, "error": err.Error()}).Warn("error connecting")
			continue
		}

		res, err = f(client)
		client.Close()
		if err == nil {
			return
		}
		logger.WithFields(logrus.Fields{"rpc": url, "error": err.Error()}).Warn("rpc call failed")
	}
	return
}

// ChainReader is the part of the relay chain RPC the scanner and the light
// client need.
type ChainReader interface {
	BlockNumber(ctx context.Context) (uint64, error)
	FilterLogs(ctx context.Context, q ethereum.FilterQuery) ([]ethtypes.Log, error)
	TransactionReceipt(ctx context.Context, txHash common.Hash) (*ethtypes.Receipt, error)
}

// Chain is a ChainReader over a list of interchangeable RPC endpoints.
type Chain struct {
	RPCList []string
	Logger  *logrus.Logger
}

func (c *Chain) BlockNumber(ctx context.Context) (uint64, error) {
	return WithClient(c.RPCList, c.Logger, func(client *ethclient.Client) (uint64, error) {
		return client.BlockNumber(ctx)
	})
}

func (c *Chain) FilterLogs(ctx context.Context, q ethereum.FilterQuery) ([]ethtypes.Log, error) {
	return WithClient(c.RPCList, c.Logger, func(client *ethclient.Client) ([]ethtypes.Log, error) {
		return client.FilterLogs(ctx, q)
	})
}

func (c *Chain) TransactionReceipt(ctx context.Context, txHash common.Hash) (*ethtypes.Receipt, error) {
	return WithClient(c.RPCList, c.Logger, func(client *ethclient.Client) (*ethtypes.Receipt, error) {
		return client.TransactionReceipt(ctx, txHash)
	})
}

func (c *Chain) ChainID(ctx context.Context) (*big.Int, error) {
	return WithClient(c.RPCList, c.Logger, func(client *ethclient.Client) (*big.Int, error) {
		return client.ChainID(ctx)
	})
}
