package request

import (
	"net/http"
	"strconv"
)

// Paging holds parsed skip/limit parameters, as the scraper backend pages.
type Paging struct {
	Skip  int
	Limit int
}

const (
	DefaultLimit = 20
	MaxLimit     = 100
)

// ParsePaging extracts skip and limit from query parameters. Invalid
// values fall back to the defaults.
func ParsePaging(r *http.Request, defaultLimit int) Paging {
	if defaultLimit <= 0 {
		defaultLimit = DefaultLimit
	}
	p := Paging{Limit: defaultLimit}

	if s := r.URL.Query().Get("skip"); s != "" {
		if skip, err := strconv.Atoi(s); err == nil && skip > 0 {
			p.Skip = skip
		}
	}
	if s := r.URL.Query().Get("limit"); s != "" {
		if limit, err := strconv.Atoi(s); err == nil && limit > 0 {
			p.Limit = limit
		}
	}

	if p.Limit > MaxLimit {
		p.Limit = MaxLimit
	}

	return p
}
