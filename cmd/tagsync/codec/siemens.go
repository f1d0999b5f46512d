package codec

import (
	"bytes"
	"encoding/csv"
	"encoding/xml"
	"fmt"

	"github.com/tagforge/tagsync/cmd/tagsync/models"
	"github.com/xuri/excelize/v2"
)

var siemensHeaderAliases = map[string]string{
	"name":           "name",
	"tagname":        "name",
	"symbol":         "name",
	"datatype":       "dataType",
	"type":           "dataType",
	"address":        "address",
	"logicaladdress": "address",
	"comment":        "description",
	"description":    "description",
	"initialvalue":   "defaultValue",
	"defaultvalue":   "defaultValue",
	"scope":          "scope",
}

var siemensCSVHeader = []string{
	"Name", "DataType", "Address", "Comment", "InitialValue", "Scope",
}

type siemensCodec struct{}

func (siemensCodec) Vendor() models.Vendor { return models.VendorSiemens }

func (c siemensCodec) Parse(data []byte, mimeHint string) ([]RawRow, error) {
	switch detectFormat(data, mimeHint) {
	case FormatXML:
		return c.parseTIA(data)
	case FormatXLSX:
		return c.parseSpreadsheet(data)
	default:
		records, err := readCSV(data)
		if err != nil {
			return nil, err
		}
		return rowsFromRecords(records, siemensHeaderAliases)
	}
}

func (c siemensCodec) ValidateAndMap(row RawRow, projectID, userID string) (*models.Tag, []string) {
	return validateAndMap(models.VendorSiemens, row, projectID, userID)
}

func (c siemensCodec) Export(tags []models.Tag, format string) ([]byte, error) {
	switch format {
	case FormatXML:
		return c.exportTIA(tags)
	case FormatXLSX:
		return c.exportSpreadsheet(tags)
	case FormatCSV, "":
		return c.exportCSV(tags)
	default:
		return nil, fmt.Errorf("unsupported siemens export format: %q", format)
	}
}

// parseSpreadsheet reads the first sheet of an xlsx workbook, treating
// the first row as headers
func (siemensCodec) parseSpreadsheet(data []byte) ([]RawRow, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("malformed spreadsheet: %v: %w", err, models.ErrParse)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("spreadsheet has no sheets: %w", models.ErrParse)
	}

	records, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %q: %v: %w", sheets[0], err, models.ErrParse)
	}

	return rowsFromRecords(records, siemensHeaderAliases)
}

func (siemensCodec) exportSpreadsheet(tags []models.Tag) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	sheet := f.GetSheetName(0)
	for col, header := range siemensCSVHeader {
		cell, _ := excelize.CoordinatesToCellName(col+1, 1)
		if err := f.SetCellValue(sheet, cell, header); err != nil {
			return nil, fmt.Errorf("failed to write header: %w", err)
		}
	}

	for i, tag := range tags {
		values := []string{
			tag.Name,
			tag.RawDataTypeOrCanonical(),
			tag.Address,
			tag.Description,
			tag.DefaultValue,
			string(tag.Scope),
		}
		for col, value := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, i+2)
			if err := f.SetCellValue(sheet, cell, value); err != nil {
				return nil, fmt.Errorf("failed to write row %d: %w", i+1, err)
			}
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to serialize spreadsheet: %w", err)
	}
	return buf.Bytes(), nil
}

func (siemensCodec) exportCSV(tags []models.Tag) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	if err := w.Write(siemensCSVHeader); err != nil {
		return nil, fmt.Errorf("failed to write CSV header: %w", err)
	}

	for _, tag := range tags {
		record := []string{
			tag.Name,
			tag.RawDataTypeOrCanonical(),
			tag.Address,
			tag.Description,
			tag.DefaultValue,
			string(tag.Scope),
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

// TIA Portal tag table shapes. TIA exporters wrap the table in a
// Siemens.TIA.Portal.TagTable root; hand-edited files often ship the
// bare TagTable. Both are accepted, and single <Tag> children decode
// the same as lists.

type tiaTag struct {
	Name         string `xml:"Name"`
	DataType     string `xml:"DataType"`
	Address      string `xml:"Address"`
	Comment      string `xml:"Comment"`
	InitialValue string `xml:"InitialValue"`
	Scope        string `xml:"Scope"`
}

type tiaTags struct {
	Tags []tiaTag `xml:"Tag"`
}

type tiaTagTable struct {
	XMLName xml.Name `xml:"TagTable"`
	Tags    tiaTags  `xml:"Tags"`
}

type tiaDocument struct {
	Inner *struct {
		Tags tiaTags `xml:"Tags"`
	} `xml:"TagTable"`
	Tags *tiaTags `xml:"Tags"`
}

func (siemensCodec) parseTIA(data []byte) ([]RawRow, error) {
	var doc tiaDocument
	if err := xml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("malformed TIA XML: %v: %w", err, models.ErrParse)
	}

	var tags []tiaTag
	switch {
	case doc.Inner != nil:
		tags = doc.Inner.Tags.Tags
	case doc.Tags != nil:
		tags = doc.Tags.Tags
	}
	if len(tags) == 0 {
		return nil, fmt.Errorf("missing TagTable/Tags/Tag elements: %w", models.ErrParse)
	}

	rows := make([]RawRow, 0, len(tags))
	for i, t := range tags {
		rows = append(rows, RawRow{
			Index:        i + 1,
			Raw:          joinFields(t.Name, t.DataType, t.Address),
			Name:         t.Name,
			DataType:     t.DataType,
			Address:      t.Address,
			Description:  t.Comment,
			Scope:        t.Scope,
			DefaultValue: t.InitialValue,
		})
	}
	return rows, nil
}

func (siemensCodec) exportTIA(tags []models.Tag) ([]byte, error) {
	doc := tiaTagTable{}
	for _, tag := range tags {
		doc.Tags.Tags = append(doc.Tags.Tags, tiaTag{
			Name:         tag.Name,
			DataType:     tag.RawDataTypeOrCanonical(),
			Address:      tag.Address,
			Comment:      tag.Description,
			InitialValue: tag.DefaultValue,
			Scope:        string(tag.Scope),
		})
	}

	out, err := xml.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal TIA XML: %w", err)
	}
	return append([]byte(xml.Header), out...), nil
}
