package tokenmeta

import (
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

// Some older tokens return bytes32 for symbol and name.
const (
	erc20StringJSON = `[
  {"inputs": [], "name": "decimals", "outputs": [{"type": "uint8"}], "stateMutability": "view", "type": "function"},
  {"inputs": [], "name": "symbol", "outputs": [{"type": "string"}], "stateMutability": "view", "type": "function"},
  {"inputs": [], "name": "name", "outputs": [{"type": "string"}], "stateMutability": "view", "type": "function"}
]`
	erc20Bytes32JSON = `[
  {"inputs": [], "name": "symbol", "outputs": [{"type": "bytes32"}], "stateMutability": "view", "type": "function"},
  {"inputs": [], "name": "name", "outputs": [{"type": "bytes32"}], "stateMutability": "view", "type": "function"}
]`
)

var erc20ABIs = sync.OnceValues(func() ([2]abi.ABI, error) {
	var out [2]abi.ABI
	var err error
	if out[0], err = abi.JSON(strings.NewReader(erc20StringJSON)); err != nil {
		return out, err
	}
	out[1], err = abi.JSON(strings.NewReader(erc20Bytes32JSON))
	return out, err
})
