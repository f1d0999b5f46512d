package codec

import (
	"strings"

	"github.com/tagforge/tagsync/cmd/tagsync/models"
)

// typeChecks classify a raw vendor type by substring, in priority
// order. DINT must precede INT so "UDINT" does not classify as INT.
var typeChecks = []struct {
	substrings []string
	canonical  models.DataType
}{
	{[]string{"BOOL", "BIT"}, models.TypeBool},
	{[]string{"DINT"}, models.TypeDint},
	{[]string{"INT"}, models.TypeInt},
	{[]string{"REAL", "FLOAT"}, models.TypeReal},
	{[]string{"STRING"}, models.TypeString},
	{[]string{"TIMER", "TON", "TOF"}, models.TypeTimer},
	{[]string{"COUNTER", "CTU", "CTD"}, models.TypeCounter},
}

// CanonicalDataType maps a vendor's raw type token onto the canonical
// set. Deliberately permissive: vendor exports contain types the
// canonical set cannot represent (structs, enums, user types), and
// those fall back to the vendor default instead of failing the row.
// The raw token is preserved separately on the tag for round-tripping.
func CanonicalDataType(vendor models.Vendor, raw string) models.DataType {
	token := strings.ToUpper(strings.TrimSpace(raw))

	for _, check := range typeChecks {
		for _, sub := range check.substrings {
			if strings.Contains(token, sub) {
				return check.canonical
			}
		}
	}

	if vendor == models.VendorSiemens {
		return models.TypeString
	}
	return models.TypeDint
}
