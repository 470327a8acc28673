package types

import (
	"encoding/json"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
)

type EventKind string

const (
	EventDepositOut       EventKind = "DepositOut"
	EventSwapOut          EventKind = "SwapOut"
	EventTransferIn       EventKind = "TransferIn"
	EventLostFound        EventKind = "LostFound"
	EventAmountOut        EventKind = "AmountOutRecorded"
	EventUpgradeRequested EventKind = "UpgradeRequested"
)

// Event is anything the orchestrator emits for relayers and indexers
type Event interface {
	Kind() EventKind
}

// Envelope is the stored/published form of an event
type Envelope struct {
	ID        string    `json:"id"`
	Kind      EventKind `json:"kind"`
	EmittedAt int64     `json:"emitted_at"`
	Data      Event     `json:"data"`
}

func newEvent(kind EventKind) (Event, error) {
	switch kind {
	case EventDepositOut:
		return &DepositOutEvent{}, nil
	case EventSwapOut:
		return &SwapOutEvent{}, nil
	case EventTransferIn:
		return &TransferInEvent{}, nil
	case EventLostFound:
		return &LostFoundEvent{}, nil
	case EventAmountOut:
		return &AmountOutEvent{}, nil
	case EventUpgradeRequested:
		return &UpgradeRequestedEvent{}, nil
	}
	return nil, errors.Errorf("unknown event kind %q", kind)
}

// UnmarshalJSON restores the concrete event type from Kind.
func (e *Envelope) UnmarshalJSON(data []byte) error {
	var raw struct {
		ID        string          `json:"id"`
		Kind      EventKind       `json:"kind"`
		EmittedAt int64           `json:"emitted_at"`
		Data      json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	ev, err := newEvent(raw.Kind)
	if err != nil {
		return err
	}
	if len(raw.Data) > 0 {
		if err := json.Unmarshal(raw.Data, ev); err != nil {
			return errors.Wrapf(err, "decode %s event", raw.Kind)
		}
	}
	e.ID, e.Kind, e.EmittedAt, e.Data = raw.ID, raw.Kind, raw.EmittedAt, ev
	return nil
}

type DepositOutEvent struct {
	From      string      `json:"from"`
	To        HexBytes    `json:"to"`
	OrderID   common.Hash `json:"order_id"`
	FromChain uint64      `json:"from_chain,string"`
	ToChain   uint64      `json:"to_chain,string"`
	Token     string      `json:"token"`
	Amount    *big.Int    `json:"amount"`
}

func (DepositOutEvent) Kind() EventKind { return EventDepositOut }

// SwapOutEvent carries the net amount forwarded to the relay chain in Amount,
// plus the gross amount and the fee so both sides reconcile exactly.
type SwapOutEvent struct {
	From        string      `json:"from"`
	To          HexBytes    `json:"to"`
	OrderID     common.Hash `json:"order_id"`
	FromChain   uint64      `json:"from_chain,string"`
	ToChain     uint64      `json:"to_chain,string"`
	Token       string      `json:"token"`
	Amount      *big.Int    `json:"amount"`
	GrossAmount *big.Int    `json:"gross_amount"`
	FeeAmount   *big.Int    `json:"fee_amount"`
	FeeReceiver string      `json:"fee_receiver"`
	Entrance    string      `json:"entrance"`
	SwapData    HexBytes    `json:"swap_data"`
}

func (SwapOutEvent) Kind() EventKind { return EventSwapOut }

type TransferInEvent struct {
	OrderID     common.Hash `json:"order_id"`
	Fingerprint common.Hash `json:"fingerprint"`
	FromChain   uint64      `json:"from_chain,string"`
	ToChain     uint64      `json:"to_chain,string"`
	Token       string      `json:"token"`
	From        HexBytes    `json:"from"`
	To          string      `json:"to"`
	Amount      *big.Int    `json:"amount"`
	DispatchID  string      `json:"dispatch_id"`
}

func (TransferInEvent) Kind() EventKind { return EventTransferIn }

type LostFoundEvent struct {
	Account     string      `json:"account"`
	Token       string      `json:"token"`
	Amount      *big.Int    `json:"amount"`
	Total       *big.Int    `json:"total"`
	Reason      string      `json:"reason"`
	OrderID     common.Hash `json:"order_id"`
	Fingerprint common.Hash `json:"fingerprint"`
}

func (LostFoundEvent) Kind() EventKind { return EventLostFound }

type AmountOutEvent struct {
	Account string   `json:"account"`
	Token   string   `json:"token"`
	Amount  *big.Int `json:"amount"`
	Total   *big.Int `json:"total"`
}

func (AmountOutEvent) Kind() EventKind { return EventAmountOut }

type UpgradeRequestedEvent struct {
	CodeHash    common.Hash `json:"code_hash"`
	RequestedBy string      `json:"requested_by"`
	DispatchID  string      `json:"dispatch_id"`
}

func (UpgradeRequestedEvent) Kind() EventKind { return EventUpgradeRequested }
