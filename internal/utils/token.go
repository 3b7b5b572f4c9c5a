package utils

import (
	"crypto/rand"
	"encoding/base64"
)

// RandomToken returns n bytes from crypto/rand encoded as unpadded
// base64url. The result carries no structure.
func RandomToken(n int) (string, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
