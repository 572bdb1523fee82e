package models

import "time"

// CryptoSnapshot stores every row written by a job so price history survives
// the sheet being overwritten.
type CryptoSnapshot struct {
	ID     uint   `json:"id" gorm:"primaryKey"`
	RunID  string `json:"run_id" gorm:"type:char(36);index;not null"`
	Name   string `json:"name" gorm:"size:128;not null"`
	Symbol string `json:"symbol" gorm:"size:32;index;not null"`
	// Rounded values as written to the sheet
	PriceUSD  *float64 `json:"price_usd"`
	MarketCap *float64 `json:"market_cap"`
	Volume24h *float64 `json:"volume_24h"`
	Change24h *float64 `json:"change_24h_pct"`
	// Capture time of the job
	CapturedAt time.Time `json:"captured_at" gorm:"index"`
	CreatedAt  time.Time `json:"created_at"`
}

// TableName pins the table name independent of the struct name.
func (CryptoSnapshot) TableName() string {
	return "crypto_snapshots"
}
