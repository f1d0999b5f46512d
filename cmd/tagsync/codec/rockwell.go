package codec

import (
	"bytes"
	"encoding/csv"
	"encoding/xml"
	"fmt"

	"github.com/tagforge/tagsync/cmd/tagsync/models"
)

// rockwellHeaderAliases maps normalized CSV headers (see
// normalizeHeader) to canonical field names. Columns that match no
// alias are dropped silently.
var rockwellHeaderAliases = map[string]string{
	"tagname":        "name",
	"name":           "name",
	"symbol":         "name",
	"datatype":       "dataType",
	"type":           "dataType",
	"address":        "address",
	"tagaddress":     "address",
	"specifier":      "address",
	"logicaladdress": "address",
	"description":    "description",
	"comment":        "description",
	"scope":          "scope",
	"defaultvalue":   "defaultValue",
	"initialvalue":   "defaultValue",
	"default":        "defaultValue",
}

// rockwellCSVHeader is the exact export column set
var rockwellCSVHeader = []string{
	"Tag Name", "Data Type", "Scope", "Description",
	"External Access", "Default Value", "Address",
}

type rockwellCodec struct{}

func (rockwellCodec) Vendor() models.Vendor { return models.VendorRockwell }

func (c rockwellCodec) Parse(data []byte, mimeHint string) ([]RawRow, error) {
	switch detectFormat(data, mimeHint) {
	case FormatXML:
		return c.parseL5X(data)
	case FormatXLSX:
		return nil, fmt.Errorf("rockwell spreadsheets are not supported: %w", models.ErrParse)
	default:
		records, err := readCSV(data)
		if err != nil {
			return nil, err
		}
		return rowsFromRecords(records, rockwellHeaderAliases)
	}
}

func (c rockwellCodec) ValidateAndMap(row RawRow, projectID, userID string) (*models.Tag, []string) {
	return validateAndMap(models.VendorRockwell, row, projectID, userID)
}

func (c rockwellCodec) Export(tags []models.Tag, format string) ([]byte, error) {
	switch format {
	case FormatXML:
		return c.exportL5X(tags)
	case FormatCSV, "":
		return c.exportCSV(tags)
	default:
		return nil, fmt.Errorf("unsupported rockwell export format: %q", format)
	}
}

func (rockwellCodec) exportCSV(tags []models.Tag) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	if err := w.Write(rockwellCSVHeader); err != nil {
		return nil, fmt.Errorf("failed to write CSV header: %w", err)
	}

	for _, tag := range tags {
		record := []string{
			tag.Name,
			tag.RawDataTypeOrCanonical(),
			string(tag.Scope),
			tag.Description,
			"Read/Write",
			tag.DefaultValue,
			tag.Address,
		}
		if err := w.Write(record); err != nil {
			return nil, fmt.Errorf("failed to write CSV row: %w", err)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("failed to flush CSV: %w", err)
	}
	return buf.Bytes(), nil
}

// Studio5000 L5X shapes. Tags carry no physical address in L5X; the
// address is exported empty and symbolic on re-import.

type l5xTag struct {
	Name     string `xml:"Name,attr"`
	DataType string `xml:"DataType,attr"`
	Scope    string `xml:"Scope,attr,omitempty"`
	Comment  string `xml:"Comment,omitempty"`
}

type l5xControllerTags struct {
	XMLName xml.Name `xml:"ControllerTags"`
	Tags    []l5xTag `xml:"Tag"`
}

// l5xDocument tolerates both a bare <ControllerTags> root and an outer
// project wrapper containing one
type l5xDocument struct {
	Inner *struct {
		Tags []l5xTag `xml:"Tag"`
	} `xml:"ControllerTags"`
	Tags []l5xTag `xml:"Tag"`
}

func (rockwellCodec) parseL5X(data []byte) ([]RawRow, error) {
	var doc l5xDocument
	if err := xml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("malformed L5X: %v: %w", err, models.ErrParse)
	}

	tags := doc.Tags
	if doc.Inner != nil {
		tags = doc.Inner.Tags
	}
	if len(tags) == 0 {
		return nil, fmt.Errorf("missing ControllerTags/Tag elements: %w", models.ErrParse)
	}

	rows := make([]RawRow, 0, len(tags))
	for i, t := range tags {
		rows = append(rows, RawRow{
			Index:       i + 1,
			Raw:         joinFields(t.Name, t.DataType, t.Scope),
			Name:        t.Name,
			DataType:    t.DataType,
			Description: t.Comment,
			Scope:       t.Scope,
		})
	}
	return rows, nil
}

func (rockwellCodec) exportL5X(tags []models.Tag) ([]byte, error) {
	doc := l5xControllerTags{Tags: make([]l5xTag, 0, len(tags))}
	for _, tag := range tags {
		doc.Tags = append(doc.Tags, l5xTag{
			Name:     tag.Name,
			DataType: tag.RawDataTypeOrCanonical(),
			Scope:    string(tag.Scope),
			Comment:  tag.Description,
		})
	}

	out, err := xml.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal L5X: %w", err)
	}
	return append([]byte(xml.Header), out...), nil
}
