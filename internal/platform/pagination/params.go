package pagination

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

const (
	// DefaultPageSize is used when the client omits pageSize.
	DefaultPageSize = 20
	// DefaultMaxPageSize caps pageSize.
	DefaultMaxPageSize = 100
)

var (
	ErrInvalidPageSize  = errors.New("pagination: invalid pageSize")
	ErrInvalidPageToken = errors.New("pagination: invalid pageToken")
)

// Params are the paging values accepted on list endpoints.
type Params struct {
	PageSize  int
	PageToken string
}

// Options override the page size bounds.
type Options struct {
	DefaultPageSize int
	MaxPageSize     int
}

// Parse reads pageSize and pageToken from query values. Oversized pages are
// clamped to the maximum; malformed values are rejected.
func Parse(values url.Values, opts Options) (Params, error) {
	def := opts.DefaultPageSize
	if def <= 0 {
		def = DefaultPageSize
	}
	limit := opts.MaxPageSize
	if limit <= 0 {
		limit = DefaultMaxPageSize
	}

	params := Params{PageSize: def, PageToken: strings.TrimSpace(values.Get("pageToken"))}
	if raw := strings.TrimSpace(values.Get("pageSize")); raw != "" {
		size, err := strconv.Atoi(raw)
		if err != nil || size <= 0 {
			return Params{}, fmt.Errorf("%w: %q", ErrInvalidPageSize, raw)
		}
		params.PageSize = min(size, limit)
	}
	if _, err := DecodeToken(params.PageToken); err != nil {
		return Params{}, err
	}
	return params, nil
}
