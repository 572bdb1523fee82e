package database

import (
	"context"
	"fmt"
	"strings"
	"time"

	"crypto-tracker/internal/models"

	"gorm.io/gorm"
)

const (
	insertBatchSize = 100
	maxRecent       = 500
)

// HistoryStore archives every row a job writes to the sheet.
type HistoryStore struct {
	db *gorm.DB
}

func NewHistoryStore(db *gorm.DB) *HistoryStore {
	return &HistoryStore{db: db}
}

// SaveSnapshot inserts all rows of table under runID.
func (s *HistoryStore) SaveSnapshot(ctx context.Context, runID string, capturedAt time.Time, table *models.Table) error {
	records := ToRecords(runID, capturedAt, table)
	if len(records) == 0 {
		return nil
	}
	if err := s.db.WithContext(ctx).CreateInBatches(records, insertBatchSize).Error; err != nil {
		return fmt.Errorf("save snapshot %s: %w", runID, err)
	}
	return nil
}

// Recent returns up to limit rows for symbol, newest first.
func (s *HistoryStore) Recent(ctx context.Context, symbol string, limit int) ([]models.CryptoSnapshot, error) {
	if limit <= 0 || limit > maxRecent {
		limit = maxRecent
	}

	var rows []models.CryptoSnapshot
	err := s.db.WithContext(ctx).
		Where("symbol = ?", strings.ToLower(symbol)).
		Order("captured_at DESC").
		Order("id DESC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("query history for %s: %w", symbol, err)
	}
	return rows, nil
}

// ToRecords maps table rows to history records.
func ToRecords(runID string, capturedAt time.Time, table *models.Table) []models.CryptoSnapshot {
	if table.Empty() {
		return nil
	}
	records := make([]models.CryptoSnapshot, 0, table.Len())
	for _, r := range table.Rows {
		records = append(records, models.CryptoSnapshot{
			RunID:      runID,
			Name:       r.Name,
			Symbol:     strings.ToLower(r.Symbol),
			PriceUSD:   r.Price,
			MarketCap:  r.MarketCap,
			Volume24h:  r.Volume24h,
			Change24h:  r.Change24h,
			CapturedAt: capturedAt,
		})
	}
	return records
}
