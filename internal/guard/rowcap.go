package guard

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

const (
	// DefaultRowCap is appended to queries that carry no LIMIT.
	DefaultRowCap = 100
	// MaxRowCap is the absolute ceiling a query may request.
	MaxRowCap = 1000
)

var limitRe = regexp.MustCompile(`(?i)\bLIMIT\s+(\d+)\s*$`)

// EnforceRowCap guarantees the query ends with a LIMIT no larger than
// MaxRowCap, appending the default when none is present.
func EnforceRowCap(query string) string {
	q := strings.TrimSpace(query)
	q = strings.TrimSuffix(q, ";")
	q = strings.TrimSpace(q)
	if q == "" {
		return q
	}

	if m := limitRe.FindStringSubmatch(q); m != nil {
		n, err := strconv.Atoi(m[1])
		if err == nil && n <= MaxRowCap {
			return q
		}
		return limitRe.ReplaceAllString(q, fmt.Sprintf("LIMIT %d", MaxRowCap))
	}
	return fmt.Sprintf("%s LIMIT %d", q, DefaultRowCap)
}
