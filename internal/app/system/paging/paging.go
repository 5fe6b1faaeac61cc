// internal/app/system/paging/paging.go
package paging

import (
	"net/http"
	"strconv"

	"github.com/dalemusser/waffle/pantry/query"
)

// Default list sizes for the JSON endpoints.
const (
	DefaultLimit = 50
	MaxLimit     = 200
)

// ParseLimit reads the "limit" query parameter. Missing or malformed values
// give def; values above max are clamped to max.
func ParseLimit(r *http.Request, def, max int) int {
	if def <= 0 {
		def = DefaultLimit
	}
	if max <= 0 {
		max = MaxLimit
	}
	s := query.Get(r, "limit")
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 {
		return def
	}
	if n > max {
		return max
	}
	return n
}

// Reverse reverses a slice in place. Stores that fetch newest-first use it
// to hand back rows in chronological order.
func Reverse[T any](rows []T) {
	for i, j := 0, len(rows)-1; i < j; i, j = i+1, j-1 {
		rows[i], rows[j] = rows[j], rows[i]
	}
}
