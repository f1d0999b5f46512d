// Package stparse extracts tag declarations from IEC 61131-3
// structured text. It is deliberately forgiving: the input is whatever
// is currently in the user's editor, so unparseable lines are skipped
// instead of failing the whole parse.
package stparse

import (
	"regexp"
	"strings"

	"github.com/tagforge/tagsync/cmd/tagsync/models"
)

// RawTag is one parsed declaration, the shape consumed by the sync
// reconciler's vendor-aware formatter.
type RawTag struct {
	Name         string
	DataType     string
	Address      string
	Description  string
	Scope        string
	DefaultValue string
}

// name [AT address] : type [:= initial] ; [(* comment *) or // comment]
var declPattern = regexp.MustCompile(
	`^\s*([A-Za-z_][A-Za-z0-9_]*)\s*` + // name
		`(?:AT\s+(\S+)\s*)?` + // optional located address
		`:\s*([^:=;]+?)\s*` + // data type
		`(?::=\s*([^;]*?)\s*)?` + // optional initial value
		`;\s*` +
		`(?:\(\*\s*(.*?)\s*\*\)|//\s*(.*?))?\s*$`) // trailing comment

var blockPattern = regexp.MustCompile(`(?i)^\s*(VAR_GLOBAL|VAR_INPUT|VAR_OUTPUT|VAR_IN_OUT|VAR_TEMP|VAR_EXTERNAL|VAR)(\s+CONSTANT)?\b`)

var endPattern = regexp.MustCompile(`(?i)^\s*END_VAR\b`)

// Parse extracts tag declarations from structured text. The vendor is a
// hint only; addresses are carried through verbatim and validated
// downstream. Never fails.
func Parse(code string, vendor models.Vendor) []RawTag {
	var tags []RawTag
	scope := ""

	for _, line := range strings.Split(code, "\n") {
		if endPattern.MatchString(line) {
			scope = ""
			continue
		}
		if m := blockPattern.FindStringSubmatch(line); m != nil {
			scope = scopeForBlock(m[1])
			continue
		}
		if scope == "" {
			continue
		}

		m := declPattern.FindStringSubmatch(line)
		if m == nil {
			continue
		}

		description := m[5]
		if description == "" {
			description = m[6]
		}

		tags = append(tags, RawTag{
			Name:         m[1],
			Address:      m[2],
			DataType:     strings.TrimSpace(m[3]),
			DefaultValue: strings.TrimSpace(m[4]),
			Description:  strings.TrimSpace(description),
			Scope:        scope,
		})
	}

	return tags
}

func scopeForBlock(keyword string) string {
	switch strings.ToUpper(keyword) {
	case "VAR_GLOBAL", "VAR_EXTERNAL":
		return "global"
	case "VAR_INPUT", "VAR_IN_OUT":
		return "input"
	case "VAR_OUTPUT":
		return "output"
	default: // VAR, VAR_TEMP
		return "local"
	}
}
