package auth

import (
	"encoding/hex"
	"strings"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/google/uuid"
)

func signProof(t *testing.T, p *Proof) {
	t.Helper()

	key, err := crypto.GenerateKey()
	if err != nil {
		t.Fatal(err)
	}
	p.Address = crypto.PubkeyToAddress(key.PublicKey).Hex()

	hash := personalSignHash([]byte(SignInMessage(p.Address, p.Nonce, p.Timestamp)))
	sig, err := crypto.Sign(hash, key)
	if err != nil {
		t.Fatal(err)
	}
	// Emit V as 27/28 the way wallets do.
	sig[crypto.RecoveryIDOffset] += 27
	p.Signature = "0x" + hex.EncodeToString(sig)
}

func TestVerifyProof(t *testing.T) {
	p := Proof{Timestamp: time.Now().Unix(), Nonce: "abc123"}
	signProof(t, &p)

	if err := VerifyProof(p); err != nil {
		t.Fatalf("valid proof rejected: %v", err)
	}

	// Mixed-case address input still verifies.
	upper := p
	upper.Address = strings.ToUpper(strings.TrimPrefix(p.Address, "0x"))
	upper.Address = "0x" + upper.Address
	// Signature was made over the lowercase form, which SignInMessage applies.
	if err := VerifyProof(upper); err != nil {
		t.Fatalf("mixed-case address rejected: %v", err)
	}
}

func TestVerifyProofRejectsTampering(t *testing.T) {
	p := Proof{Timestamp: time.Now().Unix(), Nonce: "abc123"}
	signProof(t, &p)

	tampered := p
	tampered.Nonce = "different-nonce"
	if err := VerifyProof(tampered); err == nil {
		t.Error("proof with altered nonce should fail")
	}

	other := Proof{Timestamp: time.Now().Unix(), Nonce: "abc123"}
	signProof(t, &other)
	stolen := p
	stolen.Signature = other.Signature
	if err := VerifyProof(stolen); err == nil {
		t.Error("signature from another key should fail")
	}
}

func TestVerifyProofFreshness(t *testing.T) {
	old := Proof{Timestamp: time.Now().Add(-10 * time.Minute).Unix(), Nonce: "n"}
	signProof(t, &old)
	if err := VerifyProof(old); err == nil {
		t.Error("expired proof should fail")
	}

	future := Proof{Timestamp: time.Now().Add(5 * time.Minute).Unix(), Nonce: "n"}
	signProof(t, &future)
	if err := VerifyProof(future); err == nil {
		t.Error("future-dated proof should fail")
	}
}

func TestVerifyProofMalformed(t *testing.T) {
	base := Proof{Timestamp: time.Now().Unix(), Nonce: "n"}
	signProof(t, &base)

	bad := base
	bad.Address = "not-an-address"
	if err := VerifyProof(bad); err == nil {
		t.Error("invalid address should fail")
	}

	bad = base
	bad.Signature = "0x1234"
	if err := VerifyProof(bad); err == nil {
		t.Error("short signature should fail")
	}

	bad = base
	bad.Signature = "zz" + base.Signature[2:]
	if err := VerifyProof(bad); err == nil {
		t.Error("non-hex signature should fail")
	}
}

func TestGenerateAndParseJWT(t *testing.T) {
	const secret = "test-secret"
	p := Proof{Timestamp: time.Now().Unix(), Nonce: "n"}
	signProof(t, &p)

	wallet := strings.ToLower(p.Address)
	token, err := GenerateJWT(secret, uuid.New(), wallet, time.Hour)
	if err != nil {
		t.Fatal(err)
	}

	claims, err := ParseJWT(secret, token)
	if err != nil {
		t.Fatal(err)
	}
	if claims.WalletAddress != wallet {
		t.Errorf("wallet claim = %s, want %s", claims.WalletAddress, wallet)
	}

	if _, err := ParseJWT("wrong-secret", token); err == nil {
		t.Error("token should not parse with wrong secret")
	}
}
