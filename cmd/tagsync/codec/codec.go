package codec

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strings"

	"github.com/tagforge/tagsync/cmd/tagsync/models"
)

// File formats a codec can read or write
const (
	FormatCSV  = "csv"
	FormatXML  = "xml"
	FormatXLSX = "xlsx"
)

// RawRow is one candidate tag as read from a vendor file, before
// validation. Index is the 1-based data row number and Raw the original
// input, both carried into error reports.
type RawRow struct {
	Index        int
	Raw          string
	Name         string
	DataType     string
	Address      string
	Description  string
	Scope        string
	DefaultValue string
}

// Codec translates between vendor file bytes and canonical tags.
// One implementation per vendor, selected by ForVendor.
type Codec interface {
	Vendor() models.Vendor

	// Parse reads vendor file bytes into raw rows. A structurally
	// malformed file aborts with an error wrapping models.ErrParse.
	Parse(data []byte, mimeHint string) ([]RawRow, error)

	// Export serializes tags into vendor file bytes in the given format
	Export(tags []models.Tag, format string) ([]byte, error)

	// ValidateAndMap turns one raw row into a canonical tag candidate,
	// or the list of reasons the row is invalid. A row may accumulate
	// multiple errors and is rejected as a unit.
	ValidateAndMap(row RawRow, projectID, userID string) (*models.Tag, []string)
}

// ForVendor returns the codec for a vendor
func ForVendor(v models.Vendor) Codec {
	switch v {
	case models.VendorSiemens:
		return &siemensCodec{}
	case models.VendorBeckhoff:
		return &beckhoffCodec{}
	default:
		return &rockwellCodec{}
	}
}

// detectFormat picks the input format from the mime hint when present,
// otherwise by sniffing the payload: XML documents start with '<',
// xlsx files with the zip magic, everything else is treated as CSV.
func detectFormat(data []byte, mimeHint string) string {
	hint := strings.ToLower(mimeHint)
	switch {
	case strings.Contains(hint, "xml"):
		return FormatXML
	case strings.Contains(hint, "spreadsheet"), strings.Contains(hint, "excel"):
		return FormatXLSX
	case strings.Contains(hint, "csv"):
		return FormatCSV
	}

	trimmed := bytes.TrimLeft(data, " \t\r\n")
	if len(trimmed) > 0 && trimmed[0] == '<' {
		return FormatXML
	}
	if bytes.HasPrefix(data, []byte("PK\x03\x04")) {
		return FormatXLSX
	}
	return FormatCSV
}

// validateAndMap is the vendor-independent core of ValidateAndMap
func validateAndMap(vendor models.Vendor, row RawRow, projectID, userID string) (*models.Tag, []string) {
	var errs []string

	name := strings.TrimSpace(row.Name)
	if name == "" {
		errs = append(errs, "missing tag name")
	}

	rawType := strings.TrimSpace(row.DataType)
	if rawType == "" {
		errs = append(errs, "missing data type")
	}

	address := strings.TrimSpace(row.Address)
	if address != "" && !ValidAddress(vendor, address) {
		errs = append(errs, fmt.Sprintf("invalid %s address: %q", vendor, address))
	}

	if len(errs) > 0 {
		return nil, errs
	}

	return &models.Tag{
		ProjectID:    projectID,
		UserID:       userID,
		Name:         name,
		DataType:     CanonicalDataType(vendor, rawType),
		RawDataType:  rawType,
		Address:      address,
		Description:  strings.TrimSpace(row.Description),
		DefaultValue: strings.TrimSpace(row.DefaultValue),
		Vendor:       vendor,
		Scope:        NormalizeScope(row.Scope),
		TagType:      DeriveTagType(vendor, address),
	}, nil
}

// NormalizeScope maps vendor scope spellings onto the canonical set.
// Controller-level exports (Rockwell "Controller") count as global.
func NormalizeScope(s string) models.Scope {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "input":
		return models.ScopeInput
	case "output":
		return models.ScopeOutput
	case "local", "program":
		return models.ScopeLocal
	default:
		return models.ScopeGlobal
	}
}

// readCSV parses CSV bytes leniently: ragged rows and quotes in
// unquoted fields are tolerated, vendor exports are rarely pristine.
func readCSV(data []byte) ([][]string, error) {
	r := csv.NewReader(bytes.NewReader(data))
	r.FieldsPerRecord = -1
	r.LazyQuotes = true
	r.TrimLeadingSpace = true

	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("malformed CSV: %v: %w", err, models.ErrParse)
	}
	return records, nil
}

// rowsFromRecords maps tabular records to raw rows using a header alias
// table. The first record is the header; columns without a known alias
// are dropped silently.
func rowsFromRecords(records [][]string, aliases map[string]string) ([]RawRow, error) {
	if len(records) == 0 {
		return nil, fmt.Errorf("empty file: %w", models.ErrParse)
	}

	fields := make(map[int]string)
	for i, col := range records[0] {
		if canonical, ok := aliases[normalizeHeader(col)]; ok {
			fields[i] = canonical
		}
	}

	var rows []RawRow
	for i, record := range records[1:] {
		if isBlankRecord(record) {
			continue
		}

		row := RawRow{
			Index: i + 1,
			Raw:   strings.Join(record, ","),
		}
		for j, value := range record {
			switch fields[j] {
			case "name":
				row.Name = value
			case "dataType":
				row.DataType = value
			case "address":
				row.Address = value
			case "description":
				row.Description = value
			case "scope":
				row.Scope = value
			case "defaultValue":
				row.DefaultValue = value
			}
		}
		rows = append(rows, row)
	}

	return rows, nil
}

// normalizeHeader lower-cases a header cell and strips spaces and
// underscores so "Tag Name", "tag_name" and "TagName" all match.
func normalizeHeader(h string) string {
	h = strings.ToLower(strings.TrimSpace(h))
	h = strings.ReplaceAll(h, " ", "")
	h = strings.ReplaceAll(h, "_", "")
	return h
}

func isBlankRecord(record []string) bool {
	for _, f := range record {
		if strings.TrimSpace(f) != "" {
			return false
		}
	}
	return true
}

// joinFields builds the Raw representation for rows sourced from
// non-tabular inputs (XML), for error reporting parity with CSV rows.
func joinFields(fields ...string) string {
	return strings.Join(fields, ",")
}
