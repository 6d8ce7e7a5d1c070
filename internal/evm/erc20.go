package evm

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
)

// USDC has 6 decimals.
const TokenDecimals = 6

// ERC-20 function selectors: first 4 bytes of keccak256 of the signature.
var (
	selectorBalanceOf = []byte{0x70, 0xa0, 0x82, 0x31} // balanceOf(address)
	selectorTransfer  = []byte{0xa9, 0x05, 0x9c, 0xbb} // transfer(address,uint256)
)

// BalanceOfCalldata packs calldata for balanceOf(holder).
func BalanceOfCalldata(holder common.Address) []byte {
	data := make([]byte, 0, 4+32)
	data = append(data, selectorBalanceOf...)
	data = append(data, common.LeftPadBytes(holder.Bytes(), 32)...)
	return data
}

// TransferCalldata packs calldata for transfer(to, amount). The backend never
// submits it; it is returned to wallets that want a prebuilt call.
func TransferCalldata(to common.Address, amount *big.Int) []byte {
	data := make([]byte, 0, 4+64)
	data = append(data, selectorTransfer...)
	data = append(data, common.LeftPadBytes(to.Bytes(), 32)...)
	data = append(data, common.LeftPadBytes(amount.Bytes(), 32)...)
	return data
}

// FormatAmount renders micro-units as a human string: 12_340_000 -> "12.34".
func FormatAmount(micro *big.Int) string {
	return decimal.NewFromBigInt(micro, -TokenDecimals).StringFixed(2)
}

// FormatMicro is FormatAmount for the int64 amounts stored on requests.
func FormatMicro(micro int64) string {
	return decimal.New(micro, -TokenDecimals).StringFixed(2)
}
