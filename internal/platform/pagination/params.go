package pagination

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// ErrInvalidPageSize indicates the pageSize query parameter could not be parsed.
var ErrInvalidPageSize = errors.New("pagination: invalid page size")

// Params carries the normalized cursor pagination inputs.
type Params struct {
	PageSize  int
	PageToken string
}

// FromRequest extracts pagination parameters from query string values.
// Absent values fall back to defaults and oversized page sizes are clamped.
func FromRequest(r *http.Request) (Params, error) {
	params := Params{PageSize: defaultPageSize}

	if raw := strings.TrimSpace(r.URL.Query().Get("pageSize")); raw != "" {
		size, err := strconv.Atoi(raw)
		if err != nil || size <= 0 {
			return Params{}, ErrInvalidPageSize
		}
		if size > maxPageSize {
			size = maxPageSize
		}
		params.PageSize = size
	}
	params.PageToken = strings.TrimSpace(r.URL.Query().Get("pageToken"))
	return params, nil
}

// Page wraps a result slice with the token for the next page.
type Page[T any] struct {
	Items         []T    `json:"items"`
	NextPageToken string `json:"nextPageToken,omitempty"`
}
