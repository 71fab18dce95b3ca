package analysis

import (
	"testing"

	"sol-terminal/src/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// -----------------------------------------------------------------------------

func quote(name, pair, dex string, price float64, lastUpdate int64, stale bool) models.MAggregateState {
	return models.MAggregateState{
		Instrument: name,
		Pair:       pair,
		Dex:        dex,
		LastPrice:  price,
		LastUpdate: lastUpdate,
		Stale:      stale,
	}
}

// -----------------------------------------------------------------------------

func TestDetectSpread(t *testing.T) {
	d := NewArbitrageDetector(0.5, 10)
	now := int64(1_700_000_000)

	states := map[string]models.MAggregateState{
		"orca":    quote("orca", "SOL/USDC", "orca", 100.0, now, false),
		"raydium": quote("raydium", "SOL/USDC", "raydium", 102.0, now, false),
	}

	opps := d.Detect(states, now)
	require.Len(t, opps, 1)

	opp := opps[0]
	assert.Equal(t, "SOL/USDC", opp.Pair)
	assert.Equal(t, "orca", opp.BuyDex)
	assert.Equal(t, "raydium", opp.SellDex)
	assert.InDelta(t, 2.0, opp.ProfitPercentage, 1e-9)
	assert.InDelta(t, 0.2, opp.ConfidenceScore, 1e-9)
}

// -----------------------------------------------------------------------------

func TestDetectBelowThreshold(t *testing.T) {
	d := NewArbitrageDetector(3.0, 10)
	now := int64(1_700_000_000)

	states := map[string]models.MAggregateState{
		"orca":    quote("orca", "SOL/USDC", "orca", 100.0, now, false),
		"raydium": quote("raydium", "SOL/USDC", "raydium", 102.0, now, false),
	}

	assert.Empty(t, d.Detect(states, now))
}

// -----------------------------------------------------------------------------

func TestDetectExcludesStaleAndAgedQuotes(t *testing.T) {
	d := NewArbitrageDetector(0.5, 10)
	now := int64(1_700_000_000)

	states := map[string]models.MAggregateState{
		"orca":   quote("orca", "SOL/USDC", "orca", 100.0, now, false),
		"stale":  quote("stale", "SOL/USDC", "raydium", 150.0, now, true),
		"aged":   quote("aged", "SOL/USDC", "meteora", 150.0, now-30, false),
		"zero":   quote("zero", "SOL/USDC", "phoenix", 0, now, false),
		"nopair": quote("nopair", "", "orca", 100.0, now, false),
	}

	// Only one live quote remains, so no spread can exist
	assert.Empty(t, d.Detect(states, now))
}

// -----------------------------------------------------------------------------

func TestDetectIgnoresDifferentPairs(t *testing.T) {
	d := NewArbitrageDetector(0.5, 10)
	now := int64(1_700_000_000)

	states := map[string]models.MAggregateState{
		"a": quote("a", "SOL/USDC", "orca", 100.0, now, false),
		"b": quote("b", "SOL/USDT", "raydium", 110.0, now, false),
	}

	assert.Empty(t, d.Detect(states, now))
}

// -----------------------------------------------------------------------------

func TestDetectSortsByProfit(t *testing.T) {
	d := NewArbitrageDetector(0.5, 10)
	now := int64(1_700_000_000)

	states := map[string]models.MAggregateState{
		"a1": quote("a1", "SOL/USDC", "orca", 100.0, now, false),
		"a2": quote("a2", "SOL/USDC", "raydium", 101.0, now, false),
		"b1": quote("b1", "RAY/USDC", "orca", 2.00, now, false),
		"b2": quote("b2", "RAY/USDC", "raydium", 2.10, now, false),
	}

	opps := d.Detect(states, now)
	require.Len(t, opps, 2)
	assert.Equal(t, "RAY/USDC", opps[0].Pair) // 5% beats 1%
	assert.Equal(t, "SOL/USDC", opps[1].Pair)
}

// -----------------------------------------------------------------------------

func TestConfidenceSaturates(t *testing.T) {
	assert.Equal(t, 1.0, confidenceScore(25.0))
	assert.Equal(t, 0.0, confidenceScore(-1.0))
	assert.InDelta(t, 0.5, confidenceScore(5.0), 1e-12)
}
