package common

import (
	"net/http"
	"strconv"
)

// ParseLimitSkip extracts limit and skip parameters from the query string.
// Missing or malformed values fall back to the provided defaults.
func ParseLimitSkip(r *http.Request, defaultLimit int) (limit, skip int) {
	limit = defaultLimit
	if l, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && l >= 0 {
		limit = l
	}
	if s, err := strconv.Atoi(r.URL.Query().Get("skip")); err == nil && s > 0 {
		skip = s
	}
	return
}
