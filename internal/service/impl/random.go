package impl

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
)

// refreshTokenBytes gives 320 bits of entropy before hex encoding.
const refreshTokenBytes = 40

func randomHex(n int) (string, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

// digest is the storage key for tokens we never keep in plaintext.
func digest(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
