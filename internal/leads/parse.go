// Package leads turns CSV and XLSX lead exports into model.Lead records.
//
// Two dialects are recognized. The enrichment dialect (a Google Maps export
// with Title, Phone and Industry columns) is located by header name and goes
// through phone expansion and deduplication. Anything else is read as the
// legacy name,phone,businessName[,promptVariant] layout by position.
package leads

import (
	"encoding/csv"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/wa-outreach/internal/model"
)

const (
	unknownName     = "Unknown"
	unknownBusiness = "Unknown Business"
)

// legacyHeaders are required, in this order, by the legacy dialect.
var legacyHeaders = []string{"name", "phone", "businessName"}

// MissingHeadersError reports legacy-dialect headers absent from the file.
type MissingHeadersError struct {
	Missing []string
}

func (e *MissingHeadersError) Error() string {
	return "leads: missing required headers: " + strings.Join(e.Missing, ", ")
}

// ParseCSV parses CSV text into leads. Rows that cannot be tokenized, are
// shorter than the header, or carry no phone are skipped. The only error is a
// MissingHeadersError for a legacy file lacking its mandatory columns.
func ParseCSV(content string) ([]model.Lead, error) {
	records, err := readRecords(strings.NewReader(content))
	if err != nil {
		return nil, err
	}
	return ParseRecords(records)
}

// ReadFile loads leads from a .csv or .xlsx file.
func ReadFile(path string) ([]model.Lead, error) {
	if strings.EqualFold(filepath.Ext(path), ".xlsx") {
		records, err := readXLSX(path)
		if err != nil {
			return nil, err
		}
		return ParseRecords(records)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "leads: read %s", path)
	}
	return ParseCSV(string(data))
}

// ParseRecords applies dialect detection to already-tokenized rows. The first
// row is the header.
func ParseRecords(records [][]string) ([]model.Lead, error) {
	if len(records) == 0 {
		return nil, nil
	}

	header := make([]string, len(records[0]))
	for i, h := range records[0] {
		header[i] = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
	}
	rows := records[1:]

	if cols, ok := detectEnrichment(header); ok {
		parsed := parseEnrichment(cols, len(header), rows)
		return ExpandPhones(Dedupe(parsed)), nil
	}
	return parseLegacy(header, rows)
}

// readRecords tokenizes CSV input one record at a time so a malformed row
// only costs that row.
func readRecords(r io.Reader) ([][]string, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true

	var records [][]string
	for {
		rec, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			var perr *csv.ParseError
			if errors.As(err, &perr) {
				zap.L().Warn("leads: skipping malformed row", zap.Int("line", perr.Line), zap.Error(err))
				continue
			}
			return nil, eris.Wrap(err, "leads: read csv")
		}
		for i := range rec {
			rec[i] = strings.TrimSpace(rec[i])
		}
		records = append(records, rec)
	}
	return records, nil
}

func parseLegacy(header []string, rows [][]string) ([]model.Lead, error) {
	var missing []string
	for _, want := range legacyHeaders {
		if indexOfFold(header, want) < 0 {
			missing = append(missing, want)
		}
	}
	if len(missing) > 0 {
		return nil, &MissingHeadersError{Missing: missing}
	}

	// An unnamed fourth column is the prompt variant; wider files only
	// carry one under its own header.
	prompt := indexOfFold(header, "promptVariant")
	if prompt < 0 && len(header) == 4 {
		prompt = 3
	}

	var out []model.Lead
	for n, row := range rows {
		if len(row) < len(header) {
			zap.L().Debug("leads: skipping short row", zap.Int("row", n+2), zap.Int("fields", len(row)))
			continue
		}

		lead := model.Lead{
			Name:         valueOr(row[0], unknownName),
			Phone:        row[1],
			BusinessName: valueOr(row[2], unknownBusiness),
		}
		if prompt >= 0 {
			lead.PromptVariant = row[prompt]
		}

		if lead.Phone == "" {
			zap.L().Debug("leads: skipping row without phone", zap.Int("row", n+2), zap.String("name", lead.Name))
			continue
		}
		out = append(out, lead)
	}
	return out, nil
}

func indexOfFold(header []string, name string) int {
	for i, h := range header {
		if strings.EqualFold(h, name) {
			return i
		}
	}
	return -1
}

func valueOr(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}
