package whirlpool

import (
	"encoding/binary"
	"fmt"
	"math"
)

// -----------------------------------------------------------------------------
// On-chain Whirlpool account layout (Orca concentrated-liquidity pool).
// Fixed little-endian offsets; only the fields the terminal consumes are
// decoded.
// -----------------------------------------------------------------------------

const (
	// MinAccountLen covers every field up to and including
	// reward_last_updated_timestamp.
	MinAccountLen = 269

	offTickSpacing      = 41
	offFeeRate          = 45
	offProtocolFeeRate  = 47
	offLiquidity        = 49
	offSqrtPrice        = 65
	offTickCurrentIndex = 81
	offTokenMintA       = 101
	offTokenMintB       = 181
	offRewardUpdatedTs  = 261
)

// -----------------------------------------------------------------------------

// U128 is a little-endian unsigned 128-bit on-chain integer.
type U128 struct {
	Lo uint64
	Hi uint64
}

// Float64 converts with the precision loss inherent to float64; fine for
// display and statistics, not for settlement math.
func (u U128) Float64() float64 {
	return float64(u.Hi)*math.Pow(2, 64) + float64(u.Lo)
}

// IsZero reports whether the value is exactly zero.
func (u U128) IsZero() bool {
	return u.Lo == 0 && u.Hi == 0
}

// -----------------------------------------------------------------------------

// State is the decoded subset of a Whirlpool account.
type State struct {
	TickSpacing        uint16
	FeeRate            uint16
	ProtocolFeeRate    uint16
	Liquidity          U128
	SqrtPriceX64       U128
	TickCurrentIndex   int32
	TokenMintA         [32]byte
	TokenMintB         [32]byte
	RewardLastUpdateTs uint64
}

// -----------------------------------------------------------------------------

// Decode parses raw account data into a State. Returns an error when the
// payload is too short to contain the fixed layout.
func Decode(data []byte) (*State, error) {
	if len(data) < MinAccountLen {
		return nil, fmt.Errorf("whirlpool account data too short: %d bytes (want >= %d)", len(data), MinAccountLen)
	}

	s := &State{
		TickSpacing:     binary.LittleEndian.Uint16(data[offTickSpacing:]),
		FeeRate:         binary.LittleEndian.Uint16(data[offFeeRate:]),
		ProtocolFeeRate: binary.LittleEndian.Uint16(data[offProtocolFeeRate:]),
		Liquidity: U128{
			Lo: binary.LittleEndian.Uint64(data[offLiquidity:]),
			Hi: binary.LittleEndian.Uint64(data[offLiquidity+8:]),
		},
		SqrtPriceX64: U128{
			Lo: binary.LittleEndian.Uint64(data[offSqrtPrice:]),
			Hi: binary.LittleEndian.Uint64(data[offSqrtPrice+8:]),
		},
		TickCurrentIndex:   int32(binary.LittleEndian.Uint32(data[offTickCurrentIndex:])),
		RewardLastUpdateTs: binary.LittleEndian.Uint64(data[offRewardUpdatedTs:]),
	}
	copy(s.TokenMintA[:], data[offTokenMintA:offTokenMintA+32])
	copy(s.TokenMintB[:], data[offTokenMintB:offTokenMintB+32])

	if s.SqrtPriceX64.IsZero() {
		return nil, fmt.Errorf("whirlpool account has zero sqrt price")
	}

	return s, nil
}
