package whirlpool

import (
	"fmt"
	"math"
)

// -----------------------------------------------------------------------------
// Price math for Q64.64 fixed-point sqrt prices.
// -----------------------------------------------------------------------------

// SqrtPriceX64ToPrice converts a Q64.64 sqrt price to a token-B-per-token-A
// price, adjusted for the token decimal difference.
func SqrtPriceX64ToPrice(sqrtPriceX64 U128, decimalsA, decimalsB int) float64 {
	sqrtPrice := float64(sqrtPriceX64.Hi) + float64(sqrtPriceX64.Lo)/math.Pow(2, 64)

	priceRatio := sqrtPrice * sqrtPrice

	decimalAdjustment := math.Pow(10, float64(decimalsA-decimalsB))
	return priceRatio * decimalAdjustment
}

// -----------------------------------------------------------------------------

// PriceFromState computes the pool's current price from decoded state.
func PriceFromState(s *State, decimalsA, decimalsB int) float64 {
	return SqrtPriceX64ToPrice(s.SqrtPriceX64, decimalsA, decimalsB)
}

// -----------------------------------------------------------------------------

// TickToPrice converts a tick index to a price: 1.0001^tick adjusted for
// decimals.
func TickToPrice(tick int32, decimalsA, decimalsB int) float64 {
	basePrice := math.Pow(1.0001, float64(tick))
	decimalAdjustment := math.Pow(10, float64(decimalsA-decimalsB))
	return basePrice * decimalAdjustment
}

// -----------------------------------------------------------------------------

// EstimatePoolTVL approximates the pool's total value locked in USD from the
// virtual liquidity. Rough by construction; exact amounts would require
// walking the tick arrays.
func EstimatePoolTVL(s *State, priceAUSD, priceBUSD float64, decimalsA, decimalsB int) float64 {
	liquidity := s.Liquidity.Float64()
	sqrtPrice := float64(s.SqrtPriceX64.Hi) + float64(s.SqrtPriceX64.Lo)/math.Pow(2, 64)
	if sqrtPrice == 0 {
		return 0
	}

	tokenAAmount := liquidity / sqrtPrice / math.Pow(10, float64(decimalsA))
	tokenBAmount := liquidity * sqrtPrice / math.Pow(10, float64(decimalsB))

	return tokenAAmount*priceAUSD + tokenBAmount*priceBUSD
}

// -----------------------------------------------------------------------------

// FeeTierDisplay renders a basis-point fee rate as a percentage string.
func FeeTierDisplay(feeRate uint16) string {
	return fmt.Sprintf("%.2f%%", float64(feeRate)/10000.0)
}
