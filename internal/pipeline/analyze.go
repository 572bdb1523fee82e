package pipeline

import (
	"sort"

	"crypto-tracker/internal/models"
)

// TopN is the size of the market cap leaderboard.
const TopN = 5

// Analyze summarizes a table. It returns nil for an empty table.
func Analyze(t *models.Table) *models.SummaryReport {
	if t.Empty() {
		return nil
	}

	return &models.SummaryReport{
		Top5:         topByMarketCap(t.Rows, TopN),
		AveragePrice: averagePrice(t.Rows),
		MaxChange:    pickChange(t.Rows, func(a, b float64) bool { return a > b }),
		MinChange:    pickChange(t.Rows, func(a, b float64) bool { return a < b }),
	}
}

// topByMarketCap keeps source order among equal caps; rows without a cap
// rank last.
func topByMarketCap(rows []models.AssetSnapshot, n int) []models.RankedAsset {
	ranked := make([]models.AssetSnapshot, len(rows))
	copy(ranked, rows)
	sort.SliceStable(ranked, func(i, j int) bool {
		a, b := ranked[i].MarketCap, ranked[j].MarketCap
		return a != nil && (b == nil || *a > *b)
	})

	if len(ranked) > n {
		ranked = ranked[:n]
	}
	top := make([]models.RankedAsset, 0, len(ranked))
	for _, r := range ranked {
		top = append(top, models.RankedAsset{Name: r.Name, Symbol: r.Symbol, MarketCap: r.MarketCap})
	}
	return top
}

func averagePrice(rows []models.AssetSnapshot) *float64 {
	var (
		sum   float64
		count int
	)
	for _, r := range rows {
		if r.Price == nil {
			continue
		}
		sum += *r.Price
		count++
	}
	if count == 0 {
		return nil
	}
	avg := sum / float64(count)
	return &avg
}

// pickChange returns the first row whose 24h change beats every other under
// better. Rows without a change are ignored.
func pickChange(rows []models.AssetSnapshot, better func(a, b float64) bool) *models.AssetSnapshot {
	best := -1
	for i, r := range rows {
		if r.Change24h == nil {
			continue
		}
		if best < 0 || better(*r.Change24h, *rows[best].Change24h) {
			best = i
		}
	}
	if best < 0 {
		return nil
	}
	row := rows[best]
	return &row
}
