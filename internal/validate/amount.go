package validate

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// USDC uses 6 decimals; amounts are stored in micro-units.
const USDCDecimals = 6

var (
	DefaultMinAmount = decimal.RequireFromString("0.01")
	DefaultMaxAmount = decimal.RequireFromString("10000")

	microFactor = decimal.New(1, USDCDecimals)
)

// AmountResult is the outcome of validating a raw amount string.
// Amount is in micro-units and only meaningful when IsValid is true.
type AmountResult struct {
	IsValid bool
	Error   string
	Amount  int64
}

// ValidateAmount checks a raw decimal string against [min, max] bounds.
// Pure and total: any string input yields a result, never a panic.
func ValidateAmount(raw string, min, max decimal.Decimal) AmountResult {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return AmountResult{Error: "Please enter an amount"}
	}

	amount, err := decimal.NewFromString(trimmed)
	if err != nil || amount.LessThan(min) {
		return AmountResult{Error: fmt.Sprintf("Minimum amount is $%s USDC", min.String())}
	}
	if amount.GreaterThan(max) {
		return AmountResult{Error: fmt.Sprintf("Maximum amount is $%s USDC", max.String())}
	}

	// Truncate past 6 decimals rather than rounding up.
	micro := amount.Mul(microFactor).Truncate(0)
	return AmountResult{IsValid: true, Amount: micro.IntPart()}
}

// ValidateAmountDefault applies the standard 0.01 / 10000 USDC bounds.
func ValidateAmountDefault(raw string) AmountResult {
	return ValidateAmount(raw, DefaultMinAmount, DefaultMaxAmount)
}
