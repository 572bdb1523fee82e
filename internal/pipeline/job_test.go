package pipeline

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"crypto-tracker/internal/logging"
	"crypto-tracker/internal/models"
	"crypto-tracker/internal/services/coingecko"
	"crypto-tracker/internal/workbook"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

type stubFetcher struct {
	coins   []models.MarketCoin
	err     error
	calls   int
	onFetch func()
}

func (s *stubFetcher) FetchMarkets(ctx context.Context) ([]models.MarketCoin, error) {
	s.calls++
	if s.onFetch != nil {
		s.onFetch()
	}
	return s.coins, s.err
}

type MockSheetWriter struct {
	mock.Mock
}

func (m *MockSheetWriter) Write(table *models.Table, report *models.SummaryReport) error {
	args := m.Called(table, report)
	return args.Error(0)
}

type MockArchiver struct {
	mock.Mock
}

func (m *MockArchiver) SaveSnapshot(ctx context.Context, runID string, capturedAt time.Time, table *models.Table) error {
	args := m.Called(ctx, runID, capturedAt, table)
	return args.Error(0)
}

type recordingListener struct {
	results []Result
}

func (l *recordingListener) Publish(r Result) { l.results = append(l.results, r) }

func threeCoins() []models.MarketCoin {
	return []models.MarketCoin{
		coin("Bitcoin", "btc", f64(64000), f64(1.2e12), f64(3e10), f64(5.2)),
		coin("Ethereum", "eth", f64(3000), f64(3.6e11), f64(1e10), f64(-3.1)),
		coin("Solana", "sol", f64(150), f64(7e10), f64(2e9), f64(5.2)),
	}
}

func fixedNow() time.Time { return captureTime }

func TestJob_RunSucceeded(t *testing.T) {
	fetcher := &stubFetcher{coins: threeCoins()}
	writer := new(MockSheetWriter)
	writer.On("Write", mock.AnythingOfType("*models.Table"), mock.AnythingOfType("*models.SummaryReport")).Return(nil)
	listener := &recordingListener{}

	var console, logBuf bytes.Buffer
	job := NewJob(fetcher, writer, logging.New(&logBuf),
		WithConsole(&console), WithClock(fixedNow), WithListener(listener))

	res := job.Run(context.Background())

	assert.Equal(t, StatusSucceeded, res.Status)
	assert.NotEmpty(t, res.RunID)
	require.NotNil(t, res.Table)
	assert.Equal(t, 3, res.Table.Len())
	require.NotNil(t, res.Report)
	assert.Equal(t, "Bitcoin", res.Report.MaxChange.Name)
	assert.Equal(t, "Ethereum", res.Report.MinChange.Name)
	assert.Equal(t, "Updated at 2024-03-01 09:30:15\n", console.String())
	assert.NotContains(t, logBuf.String(), "CRITICAL")
	writer.AssertNumberOfCalls(t, "Write", 1)

	require.Len(t, listener.results, 1)
	assert.Equal(t, res.RunID, listener.results[0].RunID)
}

func TestJob_RunEmptyFetchSkipsWrite(t *testing.T) {
	writer := new(MockSheetWriter)
	listener := &recordingListener{}
	var console bytes.Buffer
	job := NewJob(&stubFetcher{coins: []models.MarketCoin{}}, writer, logging.Discard(),
		WithConsole(&console), WithListener(listener))

	res := job.Run(context.Background())

	assert.Equal(t, StatusSkipped, res.Status)
	assert.Empty(t, console.String())
	assert.Empty(t, listener.results)
	writer.AssertNotCalled(t, "Write", mock.Anything, mock.Anything)
}

func TestJob_RunFetchFailureIsCritical(t *testing.T) {
	path := filepath.Join(t.TempDir(), "crypto_live_data.xlsx")
	wb := workbook.NewWriter(path, logging.Discard())
	require.NoError(t, wb.Bootstrap())

	netErr := fmt.Errorf("%w: 3 attempt(s): connection refused", coingecko.ErrNetwork)
	listener := &recordingListener{}
	var console, logBuf bytes.Buffer
	job := NewJob(&stubFetcher{err: netErr}, wb, logging.New(&logBuf),
		WithConsole(&console), WithListener(listener))

	res := job.Run(context.Background())

	assert.Equal(t, StatusFailed, res.Status)
	assert.ErrorIs(t, res.Err, coingecko.ErrNetwork)
	assert.Contains(t, logBuf.String(), " - CRITICAL - Job failed: coingecko: network error")
	assert.Empty(t, console.String())
	require.Len(t, listener.results, 1)
	assert.Equal(t, StatusFailed, listener.results[0].Status)
	assert.NotEmpty(t, listener.results[0].Error)

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()
	assert.Equal(t, []string{workbook.SheetLiveData}, f.GetSheetList(), "nothing written")
}

func TestJob_RunWriteFailureStillSucceeds(t *testing.T) {
	writeErr := errors.New("disk full")
	writer := new(MockSheetWriter)
	writer.On("Write", mock.Anything, mock.Anything).Return(writeErr)

	var console, logBuf bytes.Buffer
	job := NewJob(&stubFetcher{coins: threeCoins()}, writer, logging.New(&logBuf), WithConsole(&console))

	res := job.Run(context.Background())

	assert.Equal(t, StatusSucceeded, res.Status)
	assert.Equal(t, writeErr, res.WriteErr)
	assert.Contains(t, console.String(), "Updated at ")
	assert.NotContains(t, logBuf.String(), "CRITICAL")
}

func TestJob_RunRecoversPanic(t *testing.T) {
	writer := new(MockSheetWriter)
	writer.On("Write", mock.Anything, mock.Anything).Run(func(mock.Arguments) {
		panic("sheet exploded")
	}).Return(nil)

	var logBuf bytes.Buffer
	job := NewJob(&stubFetcher{coins: threeCoins()}, writer, logging.New(&logBuf), WithConsole(&bytes.Buffer{}))

	var res Result
	require.NotPanics(t, func() { res = job.Run(context.Background()) })
	assert.Equal(t, StatusFailed, res.Status)
	assert.Contains(t, logBuf.String(), " - CRITICAL - Job failed: panic: sheet exploded")
}

func TestJob_RunArchives(t *testing.T) {
	writer := new(MockSheetWriter)
	writer.On("Write", mock.Anything, mock.Anything).Return(nil)
	archiver := new(MockArchiver)
	archiver.On("SaveSnapshot", mock.Anything, mock.AnythingOfType("string"), captureTime, mock.AnythingOfType("*models.Table")).
		Return(errors.New("db down"))

	var logBuf bytes.Buffer
	job := NewJob(&stubFetcher{coins: threeCoins()}, writer, logging.New(&logBuf),
		WithConsole(&bytes.Buffer{}), WithClock(fixedNow), WithArchiver(archiver))

	res := job.Run(context.Background())

	assert.Equal(t, StatusSucceeded, res.Status)
	archiver.AssertExpectations(t)
	assert.Equal(t, res.RunID, archiver.Calls[0].Arguments.String(1))
	assert.Contains(t, logBuf.String(), " - ERROR - History Error: db down")
}

func TestJob_RunStampsRowsAfterFetch(t *testing.T) {
	now := time.Date(2024, 3, 1, 9, 30, 0, 0, time.Local)
	clock := func() time.Time { return now }
	// The fetch spends 36s retrying.
	fetcher := &stubFetcher{coins: threeCoins(), onFetch: func() { now = now.Add(36 * time.Second) }}

	writer := new(MockSheetWriter)
	writer.On("Write", mock.Anything, mock.Anything).Return(nil)
	fetched := time.Date(2024, 3, 1, 9, 30, 36, 0, time.Local)
	archiver := new(MockArchiver)
	archiver.On("SaveSnapshot", mock.Anything, mock.Anything, fetched, mock.Anything).Return(nil)

	var console bytes.Buffer
	job := NewJob(fetcher, writer, logging.Discard(),
		WithConsole(&console), WithClock(clock), WithArchiver(archiver))

	res := job.Run(context.Background())

	require.Equal(t, StatusSucceeded, res.Status)
	assert.Equal(t, time.Date(2024, 3, 1, 9, 30, 0, 0, time.Local), res.StartedAt)
	assert.Equal(t, fetched, res.CapturedAt)
	for _, row := range res.Table.Rows {
		assert.Equal(t, "2024-03-01 09:30:36", row.LastUpdated)
	}
	assert.Equal(t, "Updated at 2024-03-01 09:30:36\n", console.String())
	archiver.AssertExpectations(t)
}

func TestJob_RunEndToEndWithWorkbook(t *testing.T) {
	path := filepath.Join(t.TempDir(), "crypto_live_data.xlsx")
	wb := workbook.NewWriter(path, logging.Discard())
	require.NoError(t, wb.Bootstrap())

	job := NewJob(&stubFetcher{coins: threeCoins()}, wb, logging.Discard(),
		WithConsole(&bytes.Buffer{}), WithClock(fixedNow))
	res := job.Run(context.Background())
	require.Equal(t, StatusSucceeded, res.Status)
	require.NoError(t, res.WriteErr)

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	analysis, err := f.GetRows(workbook.SheetAnalysis, excelize.Options{RawCellValue: true})
	require.NoError(t, err)
	require.Len(t, analysis, 5)
	assert.Equal(t, "Bitcoin, Ethereum, Solana", analysis[1][1])
	assert.Equal(t, "22383.33", analysis[2][1])
	assert.Equal(t, "5.2% (Bitcoin)", analysis[3][1])
	assert.Equal(t, "-3.1% (Ethereum)", analysis[4][1])
}
