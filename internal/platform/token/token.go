// Package token generates opaque high-entropy credentials such as project
// admin keys and questionnaire assignment keys.
package token

import (
	"crypto/rand"
	"encoding/base32"
	"fmt"
	"strings"
)

// keyBytes is the raw entropy per key. 20 bytes (160 bits) keeps collision
// probability negligible across any realistic number of issued keys.
const keyBytes = 20

// NewKey returns a new opaque key: 32 lowercase base32 characters without
// padding. Keys are drawn from crypto/rand only.
func NewKey() (string, error) {
	raw := make([]byte, keyBytes)
	if _, err := rand.Read(raw); err != nil {
		return "", fmt.Errorf("read random bytes: %w", err)
	}
	encoded := base32.StdEncoding.WithPadding(base32.NoPadding).EncodeToString(raw)
	return strings.ToLower(encoded), nil
}
