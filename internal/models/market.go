package models

// MarketCoin is one element of the CoinGecko /coins/markets response.
// Numeric fields are pointers because the API reports missing values as null.
type MarketCoin struct {
	ID                       string   `json:"id"`
	Symbol                   string   `json:"symbol"`
	Name                     string   `json:"name"`
	CurrentPrice             *float64 `json:"current_price"`
	MarketCap                *float64 `json:"market_cap"`
	TotalVolume              *float64 `json:"total_volume"`
	PriceChangePercentage24h *float64 `json:"price_change_percentage_24h"`
}

// Column headers of the "Live Data" sheet, in order.
const (
	ColumnName        = "name"
	ColumnSymbol      = "symbol"
	ColumnPrice       = "Price (USD)"
	ColumnMarketCap   = "Market Cap"
	ColumnVolume      = "24h Volume"
	ColumnChange      = "24h Change (%)"
	ColumnLastUpdated = "last_updated"
)

// Columns lists the table header in presentation order.
var Columns = []string{
	ColumnName,
	ColumnSymbol,
	ColumnPrice,
	ColumnMarketCap,
	ColumnVolume,
	ColumnChange,
	ColumnLastUpdated,
}

// AssetSnapshot is one normalized row captured by a job.
type AssetSnapshot struct {
	Name        string   `json:"name"`
	Symbol      string   `json:"symbol"`
	Price       *float64 `json:"price_usd"`
	MarketCap   *float64 `json:"market_cap"`
	Volume24h   *float64 `json:"volume_24h"`
	Change24h   *float64 `json:"change_24h_pct"`
	LastUpdated string   `json:"last_updated"`
}

// Values returns the row cells in Columns order. Missing numbers are nil.
func (a AssetSnapshot) Values() []interface{} {
	return []interface{}{
		a.Name,
		a.Symbol,
		cell(a.Price),
		cell(a.MarketCap),
		cell(a.Volume24h),
		cell(a.Change24h),
		a.LastUpdated,
	}
}

func cell(v *float64) interface{} {
	if v == nil {
		return nil
	}
	return *v
}

// Table is the normalized snapshot of every tracked asset.
type Table struct {
	Columns []string        `json:"columns"`
	Rows    []AssetSnapshot `json:"rows"`
}

// NewTable returns an empty table carrying the standard header.
func NewTable(rows []AssetSnapshot) *Table {
	cols := make([]string, len(Columns))
	copy(cols, Columns)
	return &Table{Columns: cols, Rows: rows}
}

// Empty reports whether the table holds no rows.
func (t *Table) Empty() bool {
	return t == nil || len(t.Rows) == 0
}

// Len returns the number of rows.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.Rows)
}

// RankedAsset is an entry of the market cap leaderboard.
type RankedAsset struct {
	Name      string   `json:"name"`
	Symbol    string   `json:"symbol"`
	MarketCap *float64 `json:"market_cap"`
}

// SummaryReport holds the statistics derived from a non-empty Table.
type SummaryReport struct {
	Top5 []RankedAsset `json:"top_5"`
	// AveragePrice is nil when no row carries a price.
	AveragePrice *float64 `json:"average_price"`
	// MaxChange and MinChange are nil when no row carries a 24h change.
	MaxChange *AssetSnapshot `json:"max_change"`
	MinChange *AssetSnapshot `json:"min_change"`
}

// TopNames returns the names of the leaderboard entries in rank order.
func (r *SummaryReport) TopNames() []string {
	if r == nil {
		return nil
	}
	names := make([]string, 0, len(r.Top5))
	for _, a := range r.Top5 {
		names = append(names, a.Name)
	}
	return names
}
