package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
)

const RawTokenBytes = 32

func GenerateRawToken(nBytes int) (raw string, err error) {
	b := make([]byte, nBytes)
	if _, err = rand.Read(b); err != nil {
		return "", err
	}
	raw = base64.RawURLEncoding.EncodeToString(b)
	return raw, nil
}

// HashToken is the at-rest form of an opaque token. Lookups compare hashes,
// never raw values.
func HashToken(raw string) string {
	h := sha256.Sum256([]byte(raw))
	return base64.RawURLEncoding.EncodeToString(h[:])
}

// LooksLikeRawToken is a cheap structural check before any store round-trip.
func LooksLikeRawToken(raw string) bool {
	if len(raw) != base64.RawURLEncoding.EncodedLen(RawTokenBytes) {
		return false
	}
	_, err := base64.RawURLEncoding.DecodeString(raw)
	return err == nil
}
