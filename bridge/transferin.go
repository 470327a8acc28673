package bridge

import (
	"context"

	"gomosbridge/types"

	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
)

// VerifiedEvent is a relay-chain event authenticated by the light client.
// Fingerprint is optional; when set it must equal Payload.Fingerprint().
type VerifiedEvent struct {
	Fingerprint *common.Hash      `json:"fingerprint,omitempty"`
	Payload     TransferInPayload `json:"payload"`
}

// ApplyTransferIn consumes the event fingerprint and credits the receiver,
// or quarantines the amount in Lost & Found when it cannot be delivered.
// A second delivery of the same event fails with ErrDuplicateEvent and
// changes nothing.
func (s *Service) ApplyTransferIn(ctx context.Context, caller string, ev VerifiedEvent) (*Result, error) {
	var orderID common.Hash
	res, err := s.execute(ctx, "transfer_in", func(t *Txn) error {
		if err := checkNotPaused(t.settings.Paused, PauseTransferIn); err != nil {
			return err
		}
		if caller == "" || caller != t.settings.LightClient {
			return errors.Wrapf(ErrUnauthorizedCaller, "%q is not the light client", caller)
		}
		p := &ev.Payload
		if err := p.validate(); err != nil {
			return err
		}
		if p.RelayAddress != t.settings.RelayAddress {
			return errors.Wrapf(ErrUnauthorizedCaller, "event emitted by %s, not the relay contract", p.RelayAddress.Hex())
		}
		if p.ToChain != t.settings.LocalChainID {
			return errors.Wrapf(ErrUnsupportedRoute, "event targets chain %d", p.ToChain)
		}

		fp := p.Fingerprint()
		if ev.Fingerprint != nil && *ev.Fingerprint != fp {
			return errors.Wrapf(ErrMalformedInstruction, "fingerprint %s does not match payload", ev.Fingerprint.Hex())
		}
		if !t.tryConsume(fp) {
			return errors.Wrapf(ErrDuplicateEvent, "fingerprint %s", fp.Hex())
		}
		orderID = p.OrderID

		token, receiver := string(p.Token), string(p.To)
		if reason := t.creditable(token, receiver); reason != "" {
			t.recordStray(receiver, token, p.amount(), reason, p.OrderID, fp)
			return nil
		}
		d := t.dispatch(&types.Dispatch{
			Kind:     types.DispatchCredit,
			Token:    token,
			Receiver: receiver,
			Amount:   p.amount(),
			OrderID:  p.OrderID,
		})
		t.emit(types.TransferInEvent{
			OrderID:     p.OrderID,
			Fingerprint: fp,
			FromChain:   p.FromChain,
			ToChain:     p.ToChain,
			Token:       token,
			From:        p.From,
			To:          receiver,
			Amount:      p.amount(),
			DispatchID:  d.ID,
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	res.OrderID = orderID
	return res, nil
}

// IsEventUsed reports whether a fingerprint was already consumed.
func (s *Service) IsEventUsed(fp common.Hash) bool {
	var used bool
	s.view(func(t *Txn) { used = t.isUsed(fp) })
	return used
}
