// Copyright (c) 2026 Imma Platform. All rights reserved.

package sec

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
)

// GenerateSecureToken returns a hex-encoded random secret with
// byteLength*8 bits of entropy, safe for embedding in URLs.
//
// Email verification and password recovery links both use 32 bytes
// (256 bits), making the secret infeasible to guess within its TTL.
func GenerateSecureToken(byteLength int) (string, error) {
	buffer := make([]byte, byteLength)
	if _, err := rand.Read(buffer); err != nil {
		return "", fmt.Errorf("sec: failed to generate secure token: %w", err)
	}
	return hex.EncodeToString(buffer), nil
}
