package codec

import (
	"bytes"
	"encoding/csv"
	"encoding/xml"
	"fmt"

	"github.com/tagforge/tagsync/cmd/tagsync/models"
)

var beckhoffHeaderAliases = map[string]string{
	"name":            "name",
	"variable":        "name",
	"datatype":        "dataType",
	"type":            "dataType",
	"scope":           "scope",
	"comment":         "description",
	"description":     "description",
	"address":         "address",
	"physicaladdress": "address",
	"initialvalue":    "defaultValue",
	"defaultvalue":    "defaultValue",
}

var beckhoffCSVHeader = []string{
	"Name", "DataType", "Scope", "Comment", "Address", "InitialValue",
}

type beckhoffCodec struct{}

func (beckhoffCodec) Vendor() models.Vendor { return models.VendorBeckhoff }

func (c beckhoffCodec) Parse(data []byte, mimeHint string) ([]RawRow, error) {
	switch detectFormat(data, mimeHint) {
	case FormatXML:
		return c.parseXML(data)
	case FormatXLSX:
		return nil, fmt.Errorf("beckhoff spreadsheets are not supported: %w", models.ErrParse)
	default:
		records, err := readCSV(data)
		if err != nil {
			return nil, err
		}
		return rowsFromRecords(records, beckhoffHeaderAliases)
	}
}

func (c beckhoffCodec) ValidateAndMap(row RawRow, projectID, userID string) (*models.Tag, []string) {
	return validateAndMap(models.VendorBeckhoff, row, projectID, userID)
}

func (c beckhoffCodec) Export(tags []models.Tag, format string) ([]byte, error) {
	switch format {
	case FormatXML:
		return c.exportXML(tags)
	case FormatCSV, "":
		return c.exportCSV(tags)
	default:
		return nil, fmt.Errorf("unsupported beckhoff export format: %q", format)
	}
}

type beckhoffVariable struct {
	Name            string `xml:"Name"`
	DataType        string `xml:"DataType"`
	Scope           string `xml:"Scope"`
	Comment         string `xml:"Comment"`
	PhysicalAddress string `xml:"PhysicalAddress"`
	InitialValue    string `xml:"InitialValue"`
}

type beckhoffVariables struct {
	XMLName   xml.Name           `xml:"Variables"`
	Variables []beckhoffVariable `xml:"Variable"`
}

func (beckhoffCodec) parseXML(data []byte) ([]RawRow, error) {
	var doc beckhoffVariables
	if err := xml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("malformed variables XML: %v: %w", err, models.ErrParse)
	}
	if len(doc.Variables) == 0 {
		return nil, fmt.Errorf("missing Variables/Variable elements: %w", models.ErrParse)
	}

	rows := make([]RawRow, 0, len(doc.Variables))
	for i, v := range doc.Variables {
		rows = append(rows, RawRow{
			Index:        i + 1,
			Raw:          joinFields(v.Name, v.DataType, v.PhysicalAddress),
			Name:         v.Name,
			DataType:     v.DataType,
			Address:      v.PhysicalAddress,
			Description:  v.Comment,
			Scope:        v.Scope,
			DefaultValue: v.InitialValue,
		})
	}
	return rows, nil
}

func (beckhoffCodec) exportXML(tags []models.Tag) ([]byte, error) {
	doc := beckhoffVariables{Variables: make([]beckhoffVariable, 0, len(tags))}
	for _, tag := range tags {
		doc.Variables = append(doc.Variables, beckhoffVariable{
			Name:            tag.Name,
			DataType:        tag.RawDataTypeOrCanonical(),
			Scope:           string(tag.Scope),
			Comment:         tag.Description,
			PhysicalAddress: tag.Address,
			InitialValue:    tag.DefaultValue,
		})
	}

	out, err := xml.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal variables XML: %w", err)
	}
	return append([]byte(xml.Header), out...), nil
}

func (beckhoffCodec) exportCSV(tags []models.Tag) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	if err := w.Write(beckhoffCSVHeader); err != nil {
		return nil, fmt.Errorf("failed to write CSV header: %w", err)
	}

	for _, tag := range tags {
		record := []string{
			tag.Name,
			tag.RawDataTypeOrCanonical(),
			string(tag.Scope),
			tag.Description,
			tag.Address,
			tag.DefaultValue,
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
