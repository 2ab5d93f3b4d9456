// Package importer turns untyped rows, such as the records of an uploaded
// spreadsheet, into items. Every row is checked on its own; a bad row is
// reported and skipped without failing the batch.
package importer

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"slices"
	"strconv"
	"strings"

	"github.com/praveshjainnn/BasketBuddy/internal/metrics"
	"github.com/praveshjainnn/BasketBuddy/internal/model"
	"github.com/praveshjainnn/BasketBuddy/internal/store"
)

// FirstDataRow is the number reported for the first row. Row 1 is the
// header of the source file.
const FirstDataRow = 2

// Column names.
const (
	ColItemName   = "item_name"
	ColCategory   = "category"
	ColQuantity   = "quantity"
	ColBasePrice  = "base_price"
	ColExpiryDate = "expiry_date"
	ColCostPrice  = "cost_price"
	ColShelfLife  = "shelf_life"
	ColSellerName = "seller_name"
)

// Row is one record keyed by column name.
type Row map[string]string

// Record is a JSON object before its values are known to be text.
type Record map[string]json.RawMessage

// Row converts r. Strings are taken as they are, numbers keep their literal
// text and null reads as an empty cell. Any other value makes the record
// invalid.
func (r Record) Row() (Row, error) {
	cols := make([]string, 0, len(r))
	for col := range r {
		cols = append(cols, col)
	}
	slices.Sort(cols)

	row := make(Row, len(r))
	for _, col := range cols {
		raw := bytes.TrimSpace(r[col])
		switch {
		case len(raw) == 0 || bytes.Equal(raw, []byte("null")):
			row[col] = ""
		case raw[0] == '"':
			var s string
			if err := json.Unmarshal(raw, &s); err != nil {
				return nil, fmt.Errorf("Invalid value for %s", col)
			}
			row[col] = s
		case raw[0] == '-' || (raw[0] >= '0' && raw[0] <= '9'):
			row[col] = string(raw)
		default:
			return nil, fmt.Errorf("Invalid value for %s", col)
		}
	}
	return row, nil
}

// BulkCreator is satisfied by *store.Store.
type BulkCreator interface {
	BulkCreate(ctx context.Context, items []model.NewItem) (int, []store.RowError, error)
}

type Result struct {
	InsertedCount int      `json:"inserted_count"`
	ErrorCount    int      `json:"error_count"`
	Errors        []string `json:"errors"`
}

type Importer struct {
	store  BulkCreator
	logger *slog.Logger
}

func New(s BulkCreator, logger *slog.Logger) *Importer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Importer{store: s, logger: logger}
}

type rowError struct {
	row int
	msg string
}

// Import parses rows and inserts the valid ones in one batch. The returned
// error is set only when the batch itself could not be stored, in which case
// nothing was inserted.
func (im *Importer) Import(ctx context.Context, rows []Row) (Result, error) {
	return im.importRows(ctx, rows, nil)
}

// ImportRecords is Import for records decoded from JSON. A record holding a
// value that is not a string, number or null is reported as a bad row.
func (im *Importer) ImportRecords(ctx context.Context, records []Record) (Result, error) {
	rows := make([]Row, len(records))
	bad := make(map[int]error)
	for i, rec := range records {
		row, err := rec.Row()
		if err != nil {
			bad[i] = err
			continue
		}
		rows[i] = row
	}
	return im.importRows(ctx, rows, bad)
}

// importRows does the work of Import. bad holds conversion errors by row
// index; those rows are reported without being parsed.
func (im *Importer) importRows(ctx context.Context, rows []Row, bad map[int]error) (Result, error) {
	var (
		items   []model.NewItem
		rowNums []int
		errs    []rowError
	)
	for i, row := range rows {
		rowNum := i + FirstDataRow
		if err, ok := bad[i]; ok {
			errs = append(errs, rowError{rowNum, err.Error()})
			continue
		}
		item, err := ParseRow(row)
		if err != nil {
			errs = append(errs, rowError{rowNum, err.Error()})
			continue
		}
		items = append(items, item)
		rowNums = append(rowNums, rowNum)
	}

	inserted := 0
	if len(items) > 0 {
		n, rejected, err := im.store.BulkCreate(ctx, items)
		if err != nil {
			im.logger.Error("import failed", "rows", len(rows), "error", err)
			return Result{}, err
		}
		inserted = n
		for _, r := range rejected {
			errs = append(errs, rowError{rowNums[r.Index], r.Err.Error()})
		}
	}

	slices.SortStableFunc(errs, func(a, b rowError) int { return a.row - b.row })

	result := Result{
		InsertedCount: inserted,
		ErrorCount:    len(errs),
		Errors:        make([]string, 0, len(errs)),
	}
	for _, e := range errs {
		result.Errors = append(result.Errors, fmt.Sprintf("Row %d: %s", e.row, e.msg))
	}

	metrics.AddImported(result.InsertedCount, result.ErrorCount)
	im.logger.Info("import finished", "rows", len(rows), "inserted", result.InsertedCount, "errors", result.ErrorCount)
	return result, nil
}

// ParseRow converts one row. Required columns are item_name, category,
// quantity, base_price and expiry_date; shelf_life may stand in for
// expiry_date. The store applies its own validation afterwards.
func ParseRow(row Row) (model.NewItem, error) {
	get := func(col string) string { return strings.TrimSpace(row[col]) }

	required := []string{ColItemName, ColCategory, ColQuantity, ColBasePrice}
	if get(ColShelfLife) == "" {
		required = append(required, ColExpiryDate)
	}
	for _, col := range required {
		if get(col) == "" {
			return model.NewItem{}, fmt.Errorf("Missing required field: %s", col)
		}
	}

	item := model.NewItem{
		ItemName:   get(ColItemName),
		Category:   get(ColCategory),
		SellerName: get(ColSellerName),
	}

	quantity, err := strconv.Atoi(get(ColQuantity))
	if err != nil {
		return model.NewItem{}, errors.New("Quantity must be an integer")
	}
	if quantity < 0 {
		return model.NewItem{}, errors.New("Quantity must be non-negative")
	}
	item.Quantity = &quantity

	basePrice, err := parsePrice(get(ColBasePrice))
	if err != nil {
		return model.NewItem{}, errors.New("Base price must be a number")
	}
	if basePrice < 0 {
		return model.NewItem{}, errors.New("Base price must be non-negative")
	}
	item.BasePrice = &basePrice

	if s := get(ColExpiryDate); s != "" {
		expiry, err := model.ParseDate(s)
		if err != nil {
			return model.NewItem{}, errors.New("Expiry date must be in YYYY-MM-DD format")
		}
		item.ExpiryDate = &expiry
	}

	if s := get(ColCostPrice); s != "" {
		cost, err := parsePrice(s)
		if err != nil {
			return model.NewItem{}, errors.New("Cost price must be a number")
		}
		item.CostPrice = &cost
	}

	if s := get(ColShelfLife); s != "" {
		shelfLife, err := strconv.Atoi(s)
		if err != nil {
			return model.NewItem{}, errors.New("Shelf life must be an integer")
		}
		item.ShelfLife = &shelfLife
	}

	return item, nil
}

// parsePrice is strconv.ParseFloat without the "Inf" and "NaN" spellings.
func parsePrice(s string) (float64, error) {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	if math.IsInf(v, 0) || math.IsNaN(v) {
		return 0, fmt.Errorf("%q is not a finite number", s)
	}
	return v, nil
}
