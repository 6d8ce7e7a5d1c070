package validate

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// NormalizeAddress validates a hex EVM address and returns it lowercased.
// All persistence and lookups go through this, so mixed-case input always
// matches stored rows.
func NormalizeAddress(raw string) (string, error) {
	trimmed := strings.TrimSpace(raw)
	if !common.IsHexAddress(trimmed) {
		return "", fmt.Errorf("invalid wallet address: %q", raw)
	}
	return strings.ToLower(common.HexToAddress(trimmed).Hex()), nil
}

// NormalizeTxHash validates a 32-byte hex transaction hash, lowercased.
func NormalizeTxHash(raw string) (string, error) {
	trimmed := strings.TrimSpace(raw)
	if !strings.HasPrefix(trimmed, "0x") || len(trimmed) != 66 {
		return "", fmt.Errorf("invalid transaction hash: %q", raw)
	}
	for _, c := range trimmed[2:] {
		if !isHexDigit(c) {
			return "", fmt.Errorf("invalid transaction hash: %q", raw)
		}
	}
	return strings.ToLower(trimmed), nil
}

func isHexDigit(c rune) bool {
	return (c >= '0' && c <= '9') || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')
}
