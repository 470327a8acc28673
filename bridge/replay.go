package bridge

import (
	"math/big"

	"gomosbridge/types"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/pkg/errors"
)

// TransferInPayload is a relay-chain transfer event that the light client
// already authenticated.
type TransferInPayload struct {
	RelayAddress common.Address `json:"relay_address"`
	OrderID      common.Hash    `json:"order_id"`
	FromChain    uint64         `json:"from_chain,string"`
	ToChain      uint64         `json:"to_chain,string"`
	Token        types.HexBytes `json:"token"` // local token account id
	From         types.HexBytes `json:"from"`
	To           types.HexBytes `json:"to"` // local receiver account id
	Amount       *types.U128    `json:"amount"`
}

// Fingerprint hashes the immutable fields of the event. Two deliveries of the
// same relay event always produce the same fingerprint.
func (p *TransferInPayload) Fingerprint() common.Hash {
	packed, err := fingerprintArgs.Pack(
		p.RelayAddress,
		[32]byte(p.OrderID),
		u256(p.FromChain),
		u256(p.ToChain),
		[]byte(p.Token),
		[]byte(p.From),
		[]byte(p.To),
		p.Amount.Big(),
	)
	if err != nil {
		panic(err)
	}
	return crypto.Keccak256Hash(packed)
}

func (p *TransferInPayload) validate() error {
	if p.Amount == nil || p.Amount.Big().Sign() <= 0 {
		return errors.Wrap(ErrMalformedInstruction, "amount must be positive")
	}
	if len(p.Token) == 0 {
		return errors.Wrap(ErrMalformedInstruction, "empty token")
	}
	if p.OrderID == (common.Hash{}) {
		return errors.Wrap(ErrMalformedInstruction, "empty order id")
	}
	return nil
}

func (p *TransferInPayload) amount() *big.Int {
	return p.Amount.Big()
}

// tryConsume inserts fp into the used-event set of this Txn and reports
// whether it was new. The set is never pruned.
func (t *Txn) tryConsume(fp common.Hash) bool {
	if t.isUsed(fp) {
		return false
	}
	t.markUsed(fp)
	return true
}
