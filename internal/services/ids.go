// Package services implements the application use cases on top of the
// repository and geodata layers.
package services

import (
	"strings"

	"github.com/oklog/ulid/v2"
)

// newID returns a prefixed, lexicographically sortable identifier,
// e.g. "ord_01J9W3M5Q6...".
func newID(prefix string) string {
	return prefix + "_" + strings.ToLower(ulid.Make().String())
}
