package models

import (
	"fmt"
	"strings"
)

// enumName returns names[v] or a numeric fallback for values outside the table.
func enumName(names []string, v int16) string {
	if v >= 0 && int(v) < len(names) {
		return names[v]
	}
	return fmt.Sprintf("UNKNOWN(%d)", v)
}

// parseEnum maps a case-insensitive name back to its index in names.
func parseEnum(kind string, names []string, s string) (int16, error) {
	s = strings.TrimSpace(s)
	for i, n := range names {
		if strings.EqualFold(n, s) {
			return int16(i), nil
		}
	}
	return 0, fmt.Errorf("invalid %s %q (must be one of %s)", kind, s, strings.Join(names, ", "))
}
