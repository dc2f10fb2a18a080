package model

import (
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// SameAddress reports whether a and b name the same account. Well-formed
// hex addresses compare by their 20 bytes, so "0x00ab..." and "00AB..."
// match; anything else falls back to a case-insensitive string compare.
func SameAddress(a, b string) bool {
	a, b = strings.TrimSpace(a), strings.TrimSpace(b)
	if common.IsHexAddress(a) && common.IsHexAddress(b) {
		return common.HexToAddress(a) == common.HexToAddress(b)
	}
	return strings.EqualFold(a, b)
}
