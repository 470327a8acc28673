package bridge

import "gomosbridge/types"

// classify is total: the relay chain is EVM-style even when the map has no
// entry for it (or holds a stale one).
func (t *Txn) classify(chainID uint64) types.ChainType {
	if chainID == t.settings.RelayChainID {
		return types.ChainTypeEVM
	}
	if ct, ok := t.chainType(chainID); ok {
		return ct
	}
	return types.ChainTypeUnknown
}
