package importer

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/praveshjainnn/BasketBuddy/internal/model"
)

// ExportColumns is the header written by WriteCSV.
var ExportColumns = []string{
	"id", ColItemName, ColCategory, ColQuantity, ColBasePrice,
	ColExpiryDate, "discounted_price", "discount_percentage", "days_to_expiry",
}

// ReadCSV reads a header line followed by records and returns them as rows
// keyed by the lower-cased header names. Short records leave missing columns
// empty.
func ReadCSV(r io.Reader) ([]Row, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, errors.New("csv data is empty")
	}
	if err != nil {
		return nil, fmt.Errorf("reading csv header: %w", err)
	}
	for i, name := range header {
		header[i] = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(name, "\ufeff")))
	}

	var rows []Row
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading csv: %w", err)
		}
		row := make(Row, len(header))
		for i, col := range header {
			if i < len(record) {
				row[col] = record[i]
			}
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// WriteCSV writes views as CSV under ExportColumns.
func WriteCSV(w io.Writer, views []model.ItemView) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(ExportColumns); err != nil {
		return fmt.Errorf("writing csv header: %w", err)
	}

	for _, v := range views {
		record := []string{
			strconv.FormatInt(v.ID, 10),
			v.ItemName,
			v.Category,
			strconv.Itoa(v.Quantity),
			formatFloat(v.BasePrice),
			v.ExpiryDate.String(),
			formatFloat(v.DiscountedPrice),
			formatFloat(v.DiscountPercentage),
			strconv.Itoa(v.DaysToExpiry),
		}
		if err := writer.Write(record); err != nil {
			return fmt.Errorf("writing csv record %d: %w", v.ID, err)
		}
	}

	writer.Flush()
	return writer.Error()
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
