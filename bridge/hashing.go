package bridge

import (
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

func mustType(t string) abi.Type {
	typ, err := abi.NewType(t, "", nil)
	if err != nil {
		panic(err)
	}
	return typ
}

var (
	uint256Ty = mustType("uint256")
	bytesTy   = mustType("bytes")
	bytes32Ty = mustType("bytes32")
	addressTy = mustType("address")

	// (local chain, destination chain, nonce, from, to)
	orderIDArgs = abi.Arguments{
		{Type: uint256Ty}, {Type: uint256Ty}, {Type: uint256Ty}, {Type: bytesTy}, {Type: bytesTy},
	}

	// (relay address, order id, from chain, to chain, token, from, to, amount)
	fingerprintArgs = abi.Arguments{
		{Type: addressTy}, {Type: bytes32Ty}, {Type: uint256Ty}, {Type: uint256Ty},
		{Type: bytesTy}, {Type: bytesTy}, {Type: bytesTy}, {Type: uint256Ty},
	}
)

func u256(v uint64) *big.Int {
	return new(big.Int).SetUint64(v)
}

func hashOrderID(localChain, destChain, nonce uint64, from string, to []byte) common.Hash {
	packed, err := orderIDArgs.Pack(u256(localChain), u256(destChain), u256(nonce), []byte(from), to)
	if err != nil {
		// arguments are fixed-shape, packing cannot fail
		panic(err)
	}
	return crypto.Keccak256Hash(packed)
}
