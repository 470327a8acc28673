package workers

import (
	"context"
	"net/http"

	"gomosbridge/types"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/ybbus/jsonrpc"
)

// Executor performs the external call a dispatch stands for and returns the
// collaborator's reference for it (usually a transaction hash).
type Executor interface {
	Execute(ctx context.Context, d *types.Dispatch) (string, error)
}

type creditParams struct {
	Token      string `json:"token"`
	ReceiverID string `json:"receiver_id"`
	Amount     string `json:"amount"`
	Memo       string `json:"memo,omitempty"`
}

type swapParams struct {
	Token    string          `json:"token"`
	Amount   string          `json:"amount"`
	OrderID  string          `json:"order_id"`
	SwapInfo *types.SwapInfo `json:"swap_info"`
}

type upgradeParams struct {
	CodeHash string `json:"code_hash"`
}

// RPCExecutor forwards dispatches to a JSON-RPC 2.0 signer service:
// ft_transfer for credits, swap for src_swap legs and upgrade for code
// deployment.
type RPCExecutor struct {
	client jsonrpc.RPCClient
	logger *logrus.Logger
}

func NewRPCExecutor(endpoint string, httpClient *http.Client, logger *logrus.Logger) *RPCExecutor {
	opts := &jsonrpc.RPCClientOpts{HTTPClient: httpClient}
	return &RPCExecutor{client: jsonrpc.NewClientWithOpts(endpoint, opts), logger: logger}
}

func (e *RPCExecutor) Execute(ctx context.Context, d *types.Dispatch) (string, error) {
	var (
		method string
		params interface{}
	)
	switch d.Kind {
	case types.DispatchCredit:
		if d.Amount == nil {
			return "", errors.Errorf("dispatch %s has no amount", d.ID)
		}
		method = "ft_transfer"
		params = &creditParams{Token: d.Token, ReceiverID: d.Receiver, Amount: d.Amount.String(), Memo: d.OrderID.Hex()}
	case types.DispatchSwap:
		if d.Amount == nil || d.SwapInfo == nil {
			return "", errors.Errorf("dispatch %s has no swap data", d.ID)
		}
		method = "swap"
		params = &swapParams{Token: d.Token, Amount: d.Amount.String(), OrderID: d.OrderID.Hex(), SwapInfo: d.SwapInfo}
	case types.DispatchUpgrade:
		method = "upgrade"
		params = &upgradeParams{CodeHash: d.CodeHash.Hex()}
	default:
		return "", errors.Errorf("unknown dispatch kind %q", d.Kind)
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	var ref string
	if err := e.client.CallFor(&ref, method, params); err != nil {
		e.logger.WithFields(logrus.Fields{"dispatch": d.ID, "method": method, "error": err.Error()}).Warn("executor call failed")
		return "", errors.Wrap(err, method)
	}
	return ref, nil
}
