package codec

import (
	"regexp"
	"strings"

	"github.com/tagforge/tagsync/cmd/tagsync/models"
)

// symbolic identifiers are valid addresses for every vendor
var identPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Rockwell file addresses: I:1/0, O:2/3, N7:0, F8:2, B3:1, T4:0, C5:0, R6:0, S2:1
var rockwellPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)^[IO]:\d+/\d+$`),
	regexp.MustCompile(`(?i)^[NFBTCRS]\d+:\d+$`),
	identPattern,
}

// Siemens absolute addresses: I0.0, Q4.1, M10.2, DB1.DBW20, L2.0
var siemensPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)^[IQM]\d+\.\d+$`),
	regexp.MustCompile(`(?i)^DB\d+\.DB[BWDX]\d+$`),
	regexp.MustCompile(`(?i)^L\d+\.\d+$`),
	identPattern,
}

// Beckhoff located variables (%I0.0, %QB2, %MW10) plus qualified
// references like GVL.Counter or MAIN.bStart
var beckhoffPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)^%[IQMT]\d+(\.\d+)?$`),
	regexp.MustCompile(`(?i)^%[IQMT][BWDL]\d+$`),
	identPattern,
	regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*\.[A-Za-z_][A-Za-z0-9_]*$`),
}

// ValidAddress reports whether address is well-formed for the vendor,
// independent of whether the tag exists. Valid means any pattern of the
// vendor's set matches.
func ValidAddress(vendor models.Vendor, address string) bool {
	var patterns []*regexp.Regexp
	switch vendor {
	case models.VendorSiemens:
		patterns = siemensPatterns
	case models.VendorBeckhoff:
		patterns = beckhoffPatterns
	default:
		patterns = rockwellPatterns
	}

	for _, p := range patterns {
		if p.MatchString(address) {
			return true
		}
	}
	return false
}

// DeriveTagType classifies a tag from its address prefix. Total and
// deterministic: anything unrecognized, including an empty address, is
// memory. Siemens accepts the German mnemonics E (input) and A (output).
func DeriveTagType(vendor models.Vendor, address string) models.TagType {
	addr := strings.ToLower(strings.TrimSpace(address))
	if addr == "" {
		return models.TagTypeMemory
	}

	switch vendor {
	case models.VendorSiemens:
		switch addr[0] {
		case 'i', 'e':
			return models.TagTypeInput
		case 'q', 'a':
			return models.TagTypeOutput
		case 'm':
			return models.TagTypeMemory
		case 't':
			return models.TagTypeTemp
		}

	case models.VendorBeckhoff:
		if len(addr) >= 2 && addr[0] == '%' {
			switch addr[1] {
			case 'i':
				return models.TagTypeInput
			case 'q':
				return models.TagTypeOutput
			case 'm':
				return models.TagTypeMemory
			case 't':
				return models.TagTypeTemp
			}
		}

	default: // rockwell
		switch {
		case strings.HasPrefix(addr, "i:"):
			return models.TagTypeInput
		case strings.HasPrefix(addr, "o:"):
			return models.TagTypeOutput
		}
	}

	return models.TagTypeMemory
}
