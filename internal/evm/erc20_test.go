package evm

import (
	"encoding/hex"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
)

func TestBalanceOfCalldata(t *testing.T) {
	holder := common.HexToAddress("0x00000000000000000000000000000000000000ff")
	data := BalanceOfCalldata(holder)

	if len(data) != 36 {
		t.Fatalf("calldata length = %d, want 36", len(data))
	}
	if got := hex.EncodeToString(data[:4]); got != "70a08231" {
		t.Errorf("selector = %s, want 70a08231", got)
	}
	// Address is left-padded to 32 bytes.
	if got := hex.EncodeToString(data[4:]); got != "00000000000000000000000000000000000000000000000000000000000000ff" {
		t.Errorf("padded holder = %s", got)
	}
}

func TestTransferCalldata(t *testing.T) {
	to := common.HexToAddress("0x0000000000000000000000000000000000000001")
	data := TransferCalldata(to, big.NewInt(10_000_000)) // 10 USDC

	if len(data) != 68 {
		t.Fatalf("calldata length = %d, want 68", len(data))
	}
	if got := hex.EncodeToString(data[:4]); got != "a9059cbb" {
		t.Errorf("selector = %s, want a9059cbb", got)
	}
	amount := new(big.Int).SetBytes(data[36:])
	if amount.Int64() != 10_000_000 {
		t.Errorf("packed amount = %s, want 10000000", amount)
	}
}

func TestFormatAmount(t *testing.T) {
	tests := []struct {
		micro int64
		want  string
	}{
		{0, "0.00"},
		{10_000, "0.01"},
		{1_000_000, "1.00"},
		{12_340_000, "12.34"},
		{10_000_000_000, "10000.00"},
		{123_456, "0.12"}, // rounded to two decimal places
	}
	for _, tt := range tests {
		if got := FormatMicro(tt.micro); got != tt.want {
			t.Errorf("FormatMicro(%d) = %s, want %s", tt.micro, got, tt.want)
		}
		if got := FormatAmount(big.NewInt(tt.micro)); got != tt.want {
			t.Errorf("FormatAmount(%d) = %s, want %s", tt.micro, got, tt.want)
		}
	}
}
