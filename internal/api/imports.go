package api

import (
	"bytes"
	"fmt"
	"io"
	"mime"
	"net/http"

	"github.com/praveshjainnn/BasketBuddy/internal/catalog"
	apperrors "github.com/praveshjainnn/BasketBuddy/internal/errors"
	"github.com/praveshjainnn/BasketBuddy/internal/importer"
	"github.com/praveshjainnn/BasketBuddy/internal/store"
)

// MaxImportSize caps the accepted upload.
const MaxImportSize = 10 << 20

// ExportFilename is offered to clients downloading the CSV export.
const ExportFilename = "perishable_items.csv"

// ImportHandler handles bulk import and export.
type ImportHandler struct {
	Store    *store.Store
	Catalog  *catalog.Catalog
	Importer *importer.Importer
}

// Import handles POST /api/import and POST /api/import/csv. It accepts a
// multipart form with a "file" field, a raw text/csv body, or a JSON array
// of rows keyed by column name.
func (h *ImportHandler) Import(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, MaxImportSize)

	result, err := h.importBody(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if result.InsertedCount > 0 {
		invalidate(r, h.Catalog)
	}

	jsonOK(w, http.StatusOK, envelope{
		"message":        fmt.Sprintf("Imported %d items", result.InsertedCount),
		"inserted_count": result.InsertedCount,
		"error_count":    result.ErrorCount,
		"errors":         result.Errors,
	})
}

// importBody imports whatever the request carries. JSON bodies may use
// numbers as well as strings for numeric columns.
func (h *ImportHandler) importBody(r *http.Request) (importer.Result, error) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "multipart/form-data" || mediaType == "text/csv" {
		rows, err := readCSVRows(r, mediaType)
		if err != nil {
			return importer.Result{}, err
		}
		return h.Importer.Import(r.Context(), rows)
	}

	var records []importer.Record
	if err := decodeJSON(r, &records); err != nil {
		return importer.Result{}, err
	}
	return h.Importer.ImportRecords(r.Context(), records)
}

func readCSVRows(r *http.Request, mediaType string) ([]importer.Row, error) {
	switch mediaType {
	case "multipart/form-data":
		if err := r.ParseMultipartForm(MaxImportSize); err != nil {
			return nil, apperrors.ValidationError("File too large or invalid multipart form").WithError(err)
		}
		file, header, err := r.FormFile("file")
		if err != nil {
			return nil, apperrors.ValidationError("No file provided")
		}
		defer file.Close()
		if header.Filename == "" {
			return nil, apperrors.ValidationError("No file selected")
		}
		return parseCSV(file)

	default:
		defer r.Body.Close()
		return parseCSV(r.Body)
	}
}

func parseCSV(r io.Reader) ([]importer.Row, error) {
	rows, err := importer.ReadCSV(r)
	if err != nil {
		return nil, apperrors.ValidationError("Invalid CSV file").WithError(err)
	}
	return rows, nil
}

// Export handles GET /api/export/csv.
func (h *ImportHandler) Export(w http.ResponseWriter, r *http.Request) {
	views, err := h.Catalog.SellerItems(r.Context(), "")
	if err != nil {
		writeError(w, r, err)
		return
	}

	// Buffer so a write failure can still be reported as JSON.
	var buf bytes.Buffer
	if err := importer.WriteCSV(&buf, views); err != nil {
		writeError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", "attachment; filename="+ExportFilename)
	w.WriteHeader(http.StatusOK)
	if _, err := buf.WriteTo(w); err != nil {
		RequestLogger(r).Error("error writing export", "error", err)
	}
}
