// Package resolve implements get-or-create resolution of contacts and
// conversations against the platform, including phone-based deduplication.
package resolve

import (
	"fmt"
	"strings"
)

// CompareCustomAttributes reports whether two attribute maps are equivalent:
// same size, and every wanted key present with a loosely equal value. Loose
// means compared as strings, so 1, 1.0 and "1" all match.
func CompareCustomAttributes(have, want map[string]any) bool {
	if len(have) != len(want) {
		return false
	}
	for k, wv := range want {
		hv, ok := have[k]
		if !ok {
			return false
		}
		if !looseEqual(hv, wv) {
			return false
		}
	}
	return true
}

func looseEqual(a, b any) bool {
	return normalizeValue(a) == normalizeValue(b)
}

// normalizeValue flattens a value to a comparable string. JSON decoding turns
// every number into float64, so integral floats are printed without the
// trailing ".0" to match their integer spellings.
func normalizeValue(v any) string {
	switch n := v.(type) {
	case nil:
		return ""
	case float64:
		if n == float64(int64(n)) {
			return fmt.Sprintf("%d", int64(n))
		}
		return strings.TrimRight(fmt.Sprintf("%f", n), "0")
	case float32:
		return normalizeValue(float64(n))
	default:
		return fmt.Sprint(v)
	}
}
