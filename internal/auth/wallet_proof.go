package auth

import (
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

const (
	// SignInMessagePrefix is the fixed lead-in of the message wallets sign.
	SignInMessagePrefix = "splitpay sign-in\n"

	// MaxProofAge bounds the timestamp embedded in the signed message.
	MaxProofAge = 5 * time.Minute
)

// Proof is the wallet-signature sign-in payload produced by the client's
// wallet via personal_sign.
type Proof struct {
	Address   string `json:"address"`
	Timestamp int64  `json:"timestamp"`
	Nonce     string `json:"nonce"`     // server-issued, single use
	Signature string `json:"signature"` // hex, 65 bytes
}

// SignInMessage reconstructs the exact text the wallet signed:
//
//	splitpay sign-in\n<lowercase address>\n<nonce>\n<unix timestamp>
func SignInMessage(address, nonce string, timestamp int64) string {
	return fmt.Sprintf("%s%s\n%s\n%d", SignInMessagePrefix, strings.ToLower(address), nonce, timestamp)
}

// VerifyProof checks the proof's freshness and that its EIP-191
// personal_sign signature recovers to the claimed address. Nonce
// single-use is enforced by the caller before this runs.
func VerifyProof(p Proof) error {
	proofTime := time.Unix(p.Timestamp, 0)
	if time.Since(proofTime) > MaxProofAge {
		return fmt.Errorf("proof expired: %s old", time.Since(proofTime).Round(time.Second))
	}
	if proofTime.After(time.Now().Add(1 * time.Minute)) {
		return fmt.Errorf("proof timestamp is in the future")
	}

	if !common.IsHexAddress(p.Address) {
		return fmt.Errorf("invalid address: %q", p.Address)
	}

	sig, err := hex.DecodeString(strings.TrimPrefix(p.Signature, "0x"))
	if err != nil {
		return fmt.Errorf("invalid signature hex: %w", err)
	}
	if len(sig) != crypto.SignatureLength {
		return fmt.Errorf("invalid signature size: %d", len(sig))
	}

	// Wallets emit V as 27/28; crypto.SigToPub expects 0/1.
	if sig[crypto.RecoveryIDOffset] >= 27 {
		sig = append([]byte(nil), sig...)
		sig[crypto.RecoveryIDOffset] -= 27
	}

	message := SignInMessage(p.Address, p.Nonce, p.Timestamp)
	hash := personalSignHash([]byte(message))

	pubKey, err := crypto.SigToPub(hash, sig)
	if err != nil {
		return fmt.Errorf("signature recovery failed: %w", err)
	}

	recovered := crypto.PubkeyToAddress(*pubKey)
	if !strings.EqualFold(recovered.Hex(), p.Address) {
		return fmt.Errorf("signature does not match address")
	}
	return nil
}

// personalSignHash applies the EIP-191 "\x19Ethereum Signed Message" envelope.
func personalSignHash(data []byte) []byte {
	msg := fmt.Sprintf("\x19Ethereum Signed Message:\n%d%s", len(data), data)
	return crypto.Keccak256([]byte(msg))
}
