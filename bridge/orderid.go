package bridge

import "github.com/ethereum/go-ethereum/common"

// nextOrderID consumes the current nonce. The increment is part of the same
// Txn as the transfer it identifies, so it is committed or dropped with it.
func (t *Txn) nextOrderID(from string, to []byte, destChain uint64) common.Hash {
	var id common.Hash
	t.updateSettings(func(s *Settings) {
		id = hashOrderID(s.LocalChainID, destChain, s.Nonce, from, to)
		s.Nonce++
	})
	return id
}
