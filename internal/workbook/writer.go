package workbook

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"crypto-tracker/internal/logging"
	"crypto-tracker/internal/models"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

const (
	SheetLiveData = "Live Data"
	SheetAnalysis = "Analysis"

	// excelize names the first sheet of a new file Sheet1
	defaultSheet = "Sheet1"
	tmpSuffix    = ".tmp"
)

// Analysis sheet metric labels, in row order.
const (
	MetricTop5      = "Top 5 Cryptos (Market Cap)"
	MetricAvgPrice  = "Average Price (USD)"
	MetricMaxChange = "Highest 24h Gain (%)"
	MetricMinChange = "Lowest 24h Loss (%)"
)

const notAvailable = "n/a"

// ErrPersistence wraps every failure to read or save the workbook.
var ErrPersistence = errors.New("workbook: persistence error")

// Writer owns the spreadsheet document at path.
type Writer struct {
	path   string
	logger *logging.Logger
}

func NewWriter(path string, logger *logging.Logger) *Writer {
	return &Writer{path: path, logger: logger}
}

// Bootstrap creates the document with an empty Live Data sheet when it does
// not exist yet. It is meant to run once at process start.
func (w *Writer) Bootstrap() error {
	_, err := os.Stat(w.path)
	if err == nil {
		return nil
	}
	if !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("%w: stat %s: %v", ErrPersistence, w.path, err)
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(defaultSheet, SheetLiveData); err != nil {
		return fmt.Errorf("%w: name sheet: %v", ErrPersistence, err)
	}
	if err := f.SaveAs(w.path); err != nil {
		return fmt.Errorf("%w: create %s: %v", ErrPersistence, w.path, err)
	}
	return nil
}

// Write replaces the Live Data and Analysis sheets. The error is logged here
// and returned for the caller's bookkeeping only.
func (w *Writer) Write(table *models.Table, report *models.SummaryReport) error {
	if err := w.write(table, report); err != nil {
		w.logger.Error("Excel Error: %v", err)
		return err
	}
	w.logger.Info("Excel updated successfully")
	return nil
}

func (w *Writer) write(table *models.Table, report *models.SummaryReport) error {
	f, err := excelize.OpenFile(w.path)
	if err != nil {
		return fmt.Errorf("%w: open %s: %v", ErrPersistence, w.path, err)
	}
	defer f.Close()

	if err := replaceSheet(f, SheetLiveData, LiveDataRows(table)); err != nil {
		return err
	}
	if err := replaceSheet(f, SheetAnalysis, AnalysisRows(report)); err != nil {
		return err
	}

	if idx, err := f.GetSheetIndex(SheetLiveData); err == nil && idx >= 0 {
		f.SetActiveSheet(idx)
	}
	if err := f.Save(); err != nil {
		return fmt.Errorf("%w: save %s: %v", ErrPersistence, w.path, err)
	}
	return nil
}

// replaceSheet swaps name for a freshly written sheet so no cell of the
// previous contents survives.
func replaceSheet(f *excelize.File, name string, rows [][]interface{}) error {
	tmp := name + tmpSuffix
	if _, err := f.NewSheet(tmp); err != nil {
		return fmt.Errorf("%w: create sheet %q: %v", ErrPersistence, tmp, err)
	}
	for i := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrPersistence, err)
		}
		if err := f.SetSheetRow(tmp, cell, &rows[i]); err != nil {
			return fmt.Errorf("%w: write %q row %d: %v", ErrPersistence, name, i+1, err)
		}
	}

	if idx, err := f.GetSheetIndex(name); err == nil && idx >= 0 {
		if err := f.DeleteSheet(name); err != nil {
			return fmt.Errorf("%w: delete sheet %q: %v", ErrPersistence, name, err)
		}
	}
	if err := f.SetSheetName(tmp, name); err != nil {
		return fmt.Errorf("%w: rename sheet %q: %v", ErrPersistence, tmp, err)
	}
	return nil
}

// LiveDataRows renders the header plus one row per asset, without an index
// column.
func LiveDataRows(table *models.Table) [][]interface{} {
	cols := models.Columns
	if table != nil && len(table.Columns) > 0 {
		cols = table.Columns
	}
	header := make([]interface{}, len(cols))
	for i, c := range cols {
		header[i] = c
	}

	rows := [][]interface{}{header}
	if table == nil {
		return rows
	}
	for _, r := range table.Rows {
		rows = append(rows, r.Values())
	}
	return rows
}

// AnalysisRows renders the two-column Metric/Value summary.
func AnalysisRows(report *models.SummaryReport) [][]interface{} {
	rows := [][]interface{}{{"Metric", "Value"}}

	var avg interface{} = notAvailable
	if report != nil && report.AveragePrice != nil {
		avg = decimal.NewFromFloat(*report.AveragePrice).Round(2).InexactFloat64()
	}

	var maxChange, minChange *models.AssetSnapshot
	if report != nil {
		maxChange, minChange = report.MaxChange, report.MinChange
	}

	return append(rows,
		[]interface{}{MetricTop5, strings.Join(report.TopNames(), ", ")},
		[]interface{}{MetricAvgPrice, avg},
		[]interface{}{MetricMaxChange, describeChange(maxChange)},
		[]interface{}{MetricMinChange, describeChange(minChange)},
	)
}

// describeChange renders "<change>% (<name>)".
func describeChange(row *models.AssetSnapshot) string {
	if row == nil || row.Change24h == nil {
		return notAvailable
	}
	return fmt.Sprintf("%s%% (%s)", formatNumber(*row.Change24h), row.Name)
}

// formatNumber prints the shortest form of v, keeping one decimal for whole
// numbers (2 becomes "2.0").
func formatNumber(v float64) string {
	s := strconv.FormatFloat(v, 'f', -1, 64)
	if !strings.ContainsAny(s, ".eE") {
		s += ".0"
	}
	return s
}
