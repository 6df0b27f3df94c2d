package impl

import (
	"crypto/rand"
	"math/big"
	"strings"
)

// Unambiguous alphabet: no 0/O or 1/I.
const (
	backupCodeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
	backupCodeLen      = 10
)

// newBackupCode returns a code formatted as XXXXX-XXXXX.
func newBackupCode() (string, error) {
	var sb strings.Builder
	max := big.NewInt(int64(len(backupCodeAlphabet)))
	for i := 0; i < backupCodeLen; i++ {
		if i == backupCodeLen/2 {
			sb.WriteByte('-')
		}
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		sb.WriteByte(backupCodeAlphabet[n.Int64()])
	}
	return sb.String(), nil
}

// canonicalBackupCode strips separators and case so users can type codes loosely.
func canonicalBackupCode(code string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r == '-' || r == ' ':
			return -1
		case r >= 'a' && r <= 'z':
			return r - 'a' + 'A'
		}
		return r
	}, strings.TrimSpace(code))
}
