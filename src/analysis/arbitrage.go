package analysis

import (
	"sort"

	"sol-terminal/src/models"
)

// -----------------------------------------------------------------------------
// ArbitrageDetector scans a set of aggregate states for cross-DEX spreads on
// the same token pair. Pure function of its inputs; the decision layer that
// would act on opportunities is an external consumer.
// -----------------------------------------------------------------------------

type ArbitrageDetector struct {
	MinProfitThreshold float64
	MaxPriceAgeSeconds int64
}

// -----------------------------------------------------------------------------

func NewArbitrageDetector(minProfitPercent float64, maxPriceAgeSeconds int64) *ArbitrageDetector {
	if maxPriceAgeSeconds <= 0 {
		maxPriceAgeSeconds = 10 // only trust prices from the last few seconds
	}
	return &ArbitrageDetector{
		MinProfitThreshold: minProfitPercent,
		MaxPriceAgeSeconds: maxPriceAgeSeconds,
	}
}

// -----------------------------------------------------------------------------

// Detect returns the opportunities visible in the given states at `now`,
// sorted by profit percentage descending. Stale or aged-out instruments are
// excluded so a dead feed can never fabricate a spread.
func (d *ArbitrageDetector) Detect(states map[string]models.MAggregateState, now int64) []models.MArbitrageOpportunity {
	type quote struct {
		dex   string
		price float64
	}

	byPair := make(map[string][]quote)
	for _, st := range states {
		if st.Pair == "" || st.LastPrice <= 0 || st.Stale {
			continue
		}
		if now-st.LastUpdate > d.MaxPriceAgeSeconds {
			continue
		}
		byPair[st.Pair] = append(byPair[st.Pair], quote{dex: st.Dex, price: st.LastPrice})
	}

	var opportunities []models.MArbitrageOpportunity
	for pair, quotes := range byPair {
		if len(quotes) < 2 {
			continue
		}

		sort.Slice(quotes, func(i, j int) bool {
			if quotes[i].price == quotes[j].price {
				return quotes[i].dex < quotes[j].dex
			}
			return quotes[i].price < quotes[j].price
		})

		buy := quotes[0]
		sell := quotes[len(quotes)-1]

		profitPct := (sell.price - buy.price) / buy.price * 100.0
		if profitPct < d.MinProfitThreshold {
			continue
		}

		opportunities = append(opportunities, models.MArbitrageOpportunity{
			Pair:             pair,
			BuyDex:           buy.dex,
			SellDex:          sell.dex,
			BuyPrice:         buy.price,
			SellPrice:        sell.price,
			ProfitPercentage: profitPct,
			ConfidenceScore:  confidenceScore(profitPct),
			Timestamp:        now,
		})
	}

	sort.Slice(opportunities, func(i, j int) bool {
		if opportunities[i].ProfitPercentage == opportunities[j].ProfitPercentage {
			return opportunities[i].Pair < opportunities[j].Pair
		}
		return opportunities[i].ProfitPercentage > opportunities[j].ProfitPercentage
	})

	return opportunities
}

// -----------------------------------------------------------------------------

// confidenceScore maps profit size into [0, 1]. Larger spreads score higher
// but the scale saturates: a 10% spread is already maximally suspicious.
func confidenceScore(profitPercentage float64) float64 {
	score := profitPercentage / 10.0
	if score > 1.0 {
		return 1.0
	}
	if score < 0.0 {
		return 0.0
	}
	return score
}
