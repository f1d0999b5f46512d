package models

import (
	"fmt"
	"time"
)

// Vendor identifies which PLC dialect a tag belongs to
type Vendor string

const (
	VendorRockwell Vendor = "rockwell"
	VendorSiemens  Vendor = "siemens"
	VendorBeckhoff Vendor = "beckhoff"
)

// ParseVendor validates a vendor string
func ParseVendor(s string) (Vendor, error) {
	switch Vendor(s) {
	case VendorRockwell, VendorSiemens, VendorBeckhoff:
		return Vendor(s), nil
	}
	return "", fmt.Errorf("unknown vendor: %q", s)
}

// DataType is the canonical (vendor-neutral) data type
type DataType string

const (
	TypeBool    DataType = "BOOL"
	TypeInt     DataType = "INT"
	TypeDint    DataType = "DINT"
	TypeReal    DataType = "REAL"
	TypeString  DataType = "STRING"
	TypeTimer   DataType = "TIMER"
	TypeCounter DataType = "COUNTER"
)

// Valid reports whether d is one of the canonical data types
func (d DataType) Valid() bool {
	switch d {
	case TypeBool, TypeInt, TypeDint, TypeReal, TypeString, TypeTimer, TypeCounter:
		return true
	}
	return false
}

// Scope describes where a tag is visible
type Scope string

const (
	ScopeGlobal Scope = "global"
	ScopeLocal  Scope = "local"
	ScopeInput  Scope = "input"
	ScopeOutput Scope = "output"
)

// Valid reports whether s is one of the canonical scopes
func (s Scope) Valid() bool {
	switch s {
	case ScopeGlobal, ScopeLocal, ScopeInput, ScopeOutput:
		return true
	}
	return false
}

// TagType classifies a tag by its role, usually derived from its address
type TagType string

const (
	TagTypeInput    TagType = "input"
	TagTypeOutput   TagType = "output"
	TagTypeMemory   TagType = "memory"
	TagTypeTemp     TagType = "temp"
	TagTypeConstant TagType = "constant"
)

// Valid reports whether t is one of the canonical tag types
func (t TagType) Valid() bool {
	switch t {
	case TagTypeInput, TagTypeOutput, TagTypeMemory, TagTypeTemp, TagTypeConstant:
		return true
	}
	return false
}

// Tag is the canonical PLC tag all codecs convert to and from.
// JSON field names are the wire contract shared with existing clients;
// do not rename them.
// Maps to: tags table
type Tag struct {
	ID        string `db:"id" json:"id"`
	ProjectID string `db:"project_id" json:"projectId"`
	UserID    string `db:"user_id" json:"userId"`

	// Unique within a project, case-sensitive
	Name string `db:"name" json:"name"`

	// Canonical type plus the vendor's raw spelling for round-tripping
	// nuance the canonical set cannot express (e.g. "WORD", struct types)
	DataType    DataType `db:"data_type" json:"dataType"`
	RawDataType string   `db:"raw_data_type" json:"rawDataType"`

	// Vendor-syntax address; empty for symbolic-only tags
	Address string `db:"address" json:"address"`

	Description  string `db:"description" json:"description"`
	DefaultValue string `db:"default_value" json:"defaultValue"`

	// Immutable once set; changing vendor means a new tag
	Vendor Vendor `db:"vendor" json:"vendor"`

	Scope   Scope   `db:"scope" json:"scope"`
	TagType TagType `db:"tag_type" json:"tagType"`

	// Provenance flag for AI-produced tags
	IsAiGenerated bool `db:"is_ai_generated" json:"isAiGenerated"`

	CreatedAt time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt time.Time `db:"updated_at" json:"updatedAt"`
}

// RawDataTypeOrCanonical returns the vendor's raw type spelling when
// one was preserved, else the canonical type. Exports prefer the raw
// spelling so vendor nuance survives a round trip.
func (t Tag) RawDataTypeOrCanonical() string {
	if t.RawDataType != "" {
		return t.RawDataType
	}
	return string(t.DataType)
}
