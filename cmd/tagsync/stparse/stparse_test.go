package stparse

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tagforge/tagsync/cmd/tagsync/models"
)

func TestParse_VarGlobal(t *testing.T) {
	code := `VAR_GLOBAL
    bStart : BOOL; (* start flag *)
    nSpeed : DINT := 100;
    rSetpoint AT %QD4 : REAL := 1.5; // analog out
END_VAR`

	tags := Parse(code, models.VendorBeckhoff)
	require.Len(t, tags, 3)

	assert.Equal(t, RawTag{
		Name:        "bStart",
		DataType:    "BOOL",
		Description: "start flag",
		Scope:       "global",
	}, tags[0])

	assert.Equal(t, "nSpeed", tags[1].Name)
	assert.Equal(t, "100", tags[1].DefaultValue)

	assert.Equal(t, RawTag{
		Name:         "rSetpoint",
		DataType:     "REAL",
		Address:      "%QD4",
		DefaultValue: "1.5",
		Description:  "analog out",
		Scope:        "global",
	}, tags[2])
}

func TestParse_BlockScopes(t *testing.T) {
	code := `VAR_INPUT
    a : BOOL;
END_VAR
VAR_OUTPUT
    b : BOOL;
END_VAR
VAR
    c : INT;
END_VAR
VAR_TEMP
    d : INT;
END_VAR`

	tags := Parse(code, models.VendorRockwell)
	require.Len(t, tags, 4)
	assert.Equal(t, "input", tags[0].Scope)
	assert.Equal(t, "output", tags[1].Scope)
	assert.Equal(t, "local", tags[2].Scope)
	assert.Equal(t, "local", tags[3].Scope)
}

func TestParse_OutsideBlocksIgnored(t *testing.T) {
	code := `PROGRAM MAIN
x : BOOL;
VAR
    y : BOOL;
END_VAR
z : BOOL;
IF y THEN x := TRUE; END_IF`

	tags := Parse(code, models.VendorBeckhoff)
	require.Len(t, tags, 1)
	assert.Equal(t, "y", tags[0].Name)
}

func TestParse_UnparseableLinesSkipped(t *testing.T) {
	code := `VAR_GLOBAL
    good : BOOL;
    this is not a declaration
    123bad : INT;
    alsoGood : REAL;
END_VAR`

	tags := Parse(code, models.VendorSiemens)
	require.Len(t, tags, 2)
	assert.Equal(t, "good", tags[0].Name)
	assert.Equal(t, "alsoGood", tags[1].Name)
}

func TestParse_NeverFails(t *testing.T) {
	assert.Empty(t, Parse("", models.VendorRockwell))
	assert.Empty(t, Parse("complete garbage ;;; %%%", models.VendorRockwell))
	assert.Empty(t, Parse("VAR_GLOBAL\nEND_VAR", models.VendorRockwell))
}

func TestParse_CaseInsensitiveKeywords(t *testing.T) {
	code := "var_global\n    x : bool;\nend_var"

	tags := Parse(code, models.VendorSiemens)
	require.Len(t, tags, 1)
	assert.Equal(t, "x", tags[0].Name)
	assert.Equal(t, "bool", tags[0].DataType)
}
