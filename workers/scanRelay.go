package workers

import (
	"context"
	"math/big"
	"time"

	"gomosbridge/EVMRPC"
	"gomosbridge/bridge"
	"gomosbridge/config"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// BlockCursor remembers how far a chain was scanned.
type BlockCursor interface {
	GetScannedBlock(ctx context.Context, chainID uint64) (int64, error)
	SetScannedBlock(ctx context.Context, chainID uint64, height int64) error
}

// TransferInApplier is the bridge entry point the scanner feeds.
type TransferInApplier interface {
	ApplyTransferIn(ctx context.Context, caller string, ev bridge.VerifiedEvent) (*bridge.Result, error)
}

// RelayScanner follows mapTransferOut logs of the relay contract, has the
// light client verify each one and applies it as a transfer-in. Replays
// from the safety window are dropped by the bridge replay guard.
type RelayScanner struct {
	Chain       config.ChainConfig
	Reader      EVMRPC.ChainReader
	LightClient *EVMRPC.LightClient
	Bridge      TransferInApplier
	Cursor      BlockCursor
	Logger      *logrus.Logger
	Interval    time.Duration
}

// RunOnce scans from the saved cursor up to the last final block.
func (s *RelayScanner) RunOnce(ctx context.Context) error {
	chain := s.Chain
	logger := s.Logger.WithField("chain", chain.Name)

	scanned, err := s.Cursor.GetScannedBlock(ctx, chain.ChainID)
	if err != nil {
		return errors.Wrap(err, "last scanned block")
	}
	latest, err := s.Reader.BlockNumber(ctx)
	if err != nil {
		return errors.Wrap(err, "latest block")
	}
	final := int64(latest) - int64(chain.MinConfirmations)
	if final < 0 {
		return nil
	}

	var from int64
	if scanned == -1 {
		// init starting block when running in new environment
		from = int64(chain.StartingBlock)
		if from == 0 {
			from = final - int64(chain.SafetyWindow)
		}
	} else {
		from = scanned + 1 - int64(chain.SafetyWindow)
	}
	if from < 0 {
		from = 0
	}
	batch := int64(chain.BlockBatch)
	if batch <= 0 {
		batch = 1000
	}
	contract := common.HexToAddress(chain.ContractAddress)

	for blockNum := from; blockNum <= final; blockNum += batch {
		toBlock := blockNum + batch - 1
		if toBlock > final {
			toBlock = final
		}
		logger.WithFields(logrus.Fields{"from": blockNum, "to": toBlock}).Debug("scanning blocks")

		logs, err := s.Reader.FilterLogs(ctx, ethereum.FilterQuery{
			FromBlock: big.NewInt(blockNum),
			ToBlock:   big.NewInt(toBlock),
			Addresses: []common.Address{contract},
			Topics:    [][]common.Hash{{EVMRPC.TransferOutTopic}},
		})
		if err != nil {
			return errors.Wrapf(err, "filter logs %d-%d", blockNum, toBlock)
		}

		for _, l := range logs {
			lf := logger.WithFields(logrus.Fields{"tx": l.TxHash.Hex(), "index": l.Index})
			if err := s.LightClient.Verify(ctx, l); err != nil {
				if errors.Is(err, EVMRPC.ErrLogMissing) {
					lf.WithField("error", err.Error()).Warn("dropping unverifiable log")
					continue
				}
				// don't consider this block as processed
				return errors.Wrap(err, "verify log")
			}
			payload, err := EVMRPC.ParseTransferOut(l)
			if err != nil {
				lf.WithField("error", err.Error()).Warn("dropping malformed transfer log")
				continue
			}

			res, err := s.Bridge.ApplyTransferIn(ctx, s.LightClient.Account, bridge.VerifiedEvent{Payload: *payload})
			switch {
			case err == nil:
				lf.WithField("order_id", res.OrderID.Hex()).Info("transfer in applied")
			case errors.Is(err, bridge.ErrDuplicateEvent):
				lf.Debug("transfer already applied")
			case errors.Is(err, bridge.ErrOperationPaused), errors.Is(err, bridge.ErrUnauthorizedCaller):
				// retried from this block once transfer in is resumed or
				// the light client account is fixed
				return err
			case bridge.IsRejection(err):
				lf.WithField("error", err.Error()).Error("transfer in rejected")
			default:
				return errors.Wrap(err, "apply transfer in")
			}
		}

		if err := s.Cursor.SetScannedBlock(ctx, chain.ChainID, toBlock); err != nil {
			return errors.Wrap(err, "save scanned block")
		}
	}
	return nil
}

func (s *RelayScanner) Run(ctx context.Context) {
	s.Logger.WithField("chain", s.Chain.Name).Info("starting relay scanner")
	for sleep(ctx, s.Interval) {
		if err := s.RunOnce(ctx); err != nil {
			s.Logger.WithFields(logrus.Fields{"chain": s.Chain.Name, "error": err.Error()}).Error("relay scan failed")
		}
	}
	s.Logger.WithField("chain", s.Chain.Name).Info("relay scanner stopped")
}
