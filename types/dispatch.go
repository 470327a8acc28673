package types

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

type DispatchKind string

const (
	DispatchCredit  DispatchKind = "credit"  // ft transfer to a local account
	DispatchSwap    DispatchKind = "swap"    // src_swap legs on the exchange venue
	DispatchUpgrade DispatchKind = "upgrade" // redeploy of the bridge code
)

const (
	DispatchPending   = "pending"   // committed together with the request that produced it
	DispatchExecuting = "executing" // picked up by the execution worker
	DispatchSuccess   = "success"   // collaborator accepted the call
	DispatchFailed    = "failed"    // gave up, needs a compensating operation
)

// Dispatch is a deferred call to an external collaborator. The orchestrator
// never waits for it: the record is committed with the request and an
// execution worker drains it later.
type Dispatch struct {
	ID        string       `json:"id"`
	Kind      DispatchKind `json:"kind"`
	Status    string       `json:"status"`
	Token     string       `json:"token,omitempty"`
	Receiver  string       `json:"receiver,omitempty"`
	Amount    *big.Int     `json:"amount,omitempty"`
	OrderID   common.Hash  `json:"order_id"`
	SwapInfo  *SwapInfo    `json:"swap_info,omitempty"`
	CodeHash  common.Hash  `json:"code_hash"`
	Attempts  int          `json:"attempts"`
	TsCreated int64        `json:"ts_created"`
	Message   string       `json:"message,omitempty"` // messages that help to track processing/errors
}
