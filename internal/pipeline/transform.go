package pipeline

import (
	"time"

	"crypto-tracker/internal/models"

	"github.com/shopspring/decimal"
)

// TimestampLayout formats capture times in the sheet and console.
const TimestampLayout = "2006-01-02 15:04:05"

// Transform normalizes raw market records into the Live Data table. Every row
// gets the same capture timestamp, taken from now in local time.
func Transform(raw []models.MarketCoin, now time.Time) *models.Table {
	if len(raw) == 0 {
		return models.NewTable(nil)
	}

	captured := now.Local().Format(TimestampLayout)
	rows := make([]models.AssetSnapshot, 0, len(raw))
	for _, coin := range raw {
		rows = append(rows, models.AssetSnapshot{
			Name:        coin.Name,
			Symbol:      coin.Symbol,
			Price:       Round2(coin.CurrentPrice),
			MarketCap:   Round2(coin.MarketCap),
			Volume24h:   Round2(coin.TotalVolume),
			Change24h:   Round2(coin.PriceChangePercentage24h),
			LastUpdated: captured,
		})
	}
	return models.NewTable(rows)
}

// Round2 rounds to two decimal places, half away from zero on the shortest
// decimal form of v (100.005 becomes 100.01). Nil stays nil.
func Round2(v *float64) *float64 {
	if v == nil {
		return nil
	}
	r := RoundFloat(*v)
	return &r
}

// RoundFloat is Round2 for a plain value.
func RoundFloat(v float64) float64 {
	f, _ := decimal.NewFromFloat(v).Round(2).Float64()
	return f
}
