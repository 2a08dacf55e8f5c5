package pagination

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"strings"
	"time"
)

// ErrInvalidToken indicates the page token is malformed or was issued for a
// different listing.
var ErrInvalidToken = errors.New("pagination: invalid page token")

// Cursor is the decoded position of a page within an ordered listing.
type Cursor struct {
	Resource string    `json:"r"`
	LastID   string    `json:"id"`
	LastTime time.Time `json:"t,omitempty"`
}

// EncodeCursor serializes the cursor into an opaque URL-safe token.
func EncodeCursor(cursor Cursor) (string, error) {
	if strings.TrimSpace(cursor.LastID) == "" {
		return "", errors.New("pagination: cursor requires a document id")
	}
	payload, err := json.Marshal(cursor)
	if err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(payload), nil
}

// DecodeCursor parses a token and checks it belongs to the expected resource.
func DecodeCursor(token string, resource string) (Cursor, error) {
	raw, err := base64.RawURLEncoding.DecodeString(strings.TrimSpace(token))
	if err != nil {
		return Cursor{}, ErrInvalidToken
	}
	var cursor Cursor
	if err := json.Unmarshal(raw, &cursor); err != nil {
		return Cursor{}, ErrInvalidToken
	}
	if cursor.Resource != resource || cursor.LastID == "" {
		return Cursor{}, ErrInvalidToken
	}
	return cursor, nil
}
