package EVMRPC

import (
	"math/big"
	"strings"

	"gomosbridge/bridge"
	"gomosbridge/types"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/pkg/errors"
)

const relayEventsABI = `[{
	"anonymous": false,
	"type": "event",
	"name": "mapTransferOut",
	"inputs": [
		{"indexed": true,  "name": "fromChain",    "type": "uint256"},
		{"indexed": true,  "name": "toChain",      "type": "uint256"},
		{"indexed": false, "name": "orderId",      "type": "bytes32"},
		{"indexed": false, "name": "token",        "type": "bytes"},
		{"indexed": false, "name": "from",         "type": "bytes"},
		{"indexed": false, "name": "to",           "type": "bytes"},
		{"indexed": false, "name": "amount",       "type": "uint256"},
		{"indexed": false, "name": "toChainToken", "type": "bytes"}
	]
}]`

var relayABI = func() abi.ABI {
	a, err := abi.JSON(strings.NewReader(relayEventsABI))
	if err != nil {
		panic(err)
	}
	return a
}()

// TransferOutTopic is topic0 of mapTransferOut logs.
var TransferOutTopic = relayABI.Events["mapTransferOut"].ID

type transferOutData struct {
	OrderId      [32]byte
	Token        []byte
	From         []byte
	To           []byte
	Amount       *big.Int
	ToChainToken []byte
}

// ParseTransferOut decodes a relay contract mapTransferOut log into the
// payload applied on this chain. Token is the local token account carried in
// toChainToken.
func ParseTransferOut(l ethtypes.Log) (*bridge.TransferInPayload, error) {
	if len(l.Topics) != 3 || l.Topics[0] != TransferOutTopic {
		return nil, errors.New("not a mapTransferOut log")
	}
	var data transferOutData
	if err := relayABI.UnpackIntoInterface(&data, "mapTransferOut", l.Data); err != nil {
		return nil, errors.Wrap(err, "unpack mapTransferOut")
	}
	fromChain := new(big.Int).SetBytes(l.Topics[1].Bytes())
	toChain := new(big.Int).SetBytes(l.Topics[2].Bytes())
	if !fromChain.IsUint64() || !toChain.IsUint64() {
		return nil, errors.Errorf("chain id out of range: %s -> %s", fromChain, toChain)
	}
	if data.Amount.BitLen() > 128 {
		return nil, errors.Errorf("amount %s exceeds 128 bits", data.Amount)
	}
	return &bridge.TransferInPayload{
		RelayAddress: l.Address,
		OrderID:      common.Hash(data.OrderId),
		FromChain:    fromChain.Uint64(),
		ToChain:      toChain.Uint64(),
		Token:        types.HexBytes(data.ToChainToken),
		From:         types.HexBytes(data.From),
		To:           types.HexBytes(data.To),
		Amount:       types.NewU128(data.Amount),
	}, nil
}

// PackTransferOut builds the log data of a mapTransferOut event.
func PackTransferOut(orderID common.Hash, token, from, to []byte, amount *big.Int, toChainToken []byte) ([]byte, error) {
	return relayABI.Events["mapTransferOut"].Inputs.NonIndexed().Pack(orderID, token, from, to, amount, toChainToken)
}
