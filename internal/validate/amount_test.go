package validate

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestValidateAmount(t *testing.T) {
	tests := []struct {
		name      string
		raw       string
		wantValid bool
		wantErr   string
		wantMicro int64
	}{
		{"empty", "", false, "Please enter an amount", 0},
		{"whitespace", "   ", false, "Please enter an amount", 0},
		{"tab and newline", "\t\n", false, "Please enter an amount", 0},
		{"non-numeric", "abc", false, "Minimum amount is $0.01 USDC", 0},
		{"mixed garbage", "12x", false, "Minimum amount is $0.01 USDC", 0},
		{"below minimum", "0.005", false, "Minimum amount is $0.01 USDC", 0},
		{"zero", "0", false, "Minimum amount is $0.01 USDC", 0},
		{"negative", "-5", false, "Minimum amount is $0.01 USDC", 0},
		{"above maximum", "10000.01", false, "Maximum amount is $10000 USDC", 0},
		{"huge", "999999999", false, "Maximum amount is $10000 USDC", 0},
		{"exact minimum", "0.01", true, "", 10_000},
		{"exact maximum", "10000", true, "", 10_000_000_000},
		{"typical", "10", true, "", 10_000_000},
		{"fractional", "12.34", true, "", 12_340_000},
		{"six decimals", "0.123456", true, "", 123_456},
		{"extra precision truncated", "1.2345678", true, "", 1_234_567},
		{"leading/trailing space", "  2.50  ", true, "", 2_500_000},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ValidateAmountDefault(tt.raw)
			if got.IsValid != tt.wantValid {
				t.Fatalf("ValidateAmountDefault(%q).IsValid = %v, want %v", tt.raw, got.IsValid, tt.wantValid)
			}
			if got.Error != tt.wantErr {
				t.Errorf("error = %q, want %q", got.Error, tt.wantErr)
			}
			if tt.wantValid && got.Amount != tt.wantMicro {
				t.Errorf("amount = %d, want %d", got.Amount, tt.wantMicro)
			}
		})
	}
}

func TestValidateAmountCustomBounds(t *testing.T) {
	min := decimal.RequireFromString("1")
	max := decimal.RequireFromString("50")

	if got := ValidateAmount("0.5", min, max); got.IsValid {
		t.Error("0.5 should fail with min=1")
	} else if got.Error != "Minimum amount is $1 USDC" {
		t.Errorf("unexpected error %q", got.Error)
	}

	if got := ValidateAmount("51", min, max); got.IsValid {
		t.Error("51 should fail with max=50")
	} else if got.Error != "Maximum amount is $50 USDC" {
		t.Errorf("unexpected error %q", got.Error)
	}

	if got := ValidateAmount("25", min, max); !got.IsValid || got.Amount != 25_000_000 {
		t.Errorf("25 should be valid with 25_000_000 micro, got %+v", got)
	}
}

func TestNormalizeAddress(t *testing.T) {
	addr, err := NormalizeAddress("0xAbC0000000000000000000000000000000000123")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if addr != "0xabc0000000000000000000000000000000000123" {
		t.Errorf("address not lowercased: %s", addr)
	}

	// Same address in different cases normalizes identically.
	lower, _ := NormalizeAddress("0xabc0000000000000000000000000000000000123")
	if lower != addr {
		t.Errorf("case-insensitive normalization mismatch: %s vs %s", lower, addr)
	}

	for _, bad := range []string{"", "0x123", "not-an-address", "0xzz00000000000000000000000000000000000000"} {
		if _, err := NormalizeAddress(bad); err == nil {
			t.Errorf("NormalizeAddress(%q) should fail", bad)
		}
	}
}

func TestNormalizeTxHash(t *testing.T) {
	h, err := NormalizeTxHash("0xDEAD00000000000000000000000000000000000000000000000000000000BEEF")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if h[:6] != "0xdead" {
		t.Errorf("hash not lowercased: %s", h)
	}

	for _, bad := range []string{"", "0xdead", "dead", "0x" + string(make([]byte, 64))} {
		if _, err := NormalizeTxHash(bad); err == nil {
			t.Errorf("NormalizeTxHash(%q) should fail", bad)
		}
	}
}
