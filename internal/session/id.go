package session

import (
	"crypto/rand"
	"encoding/base64"
	"io"

	"github.com/samber/oops"
)

// 32 bytes = 256 bits of entropy.
const idBytes = 32

var idLen = base64.RawURLEncoding.EncodedLen(idBytes)

// GenerateID generates a cryptographically secure session ID.
func GenerateID() (string, error) {
	return generateID(rand.Reader)
}

func generateID(random io.Reader) (string, error) {
	b := make([]byte, idBytes)
	if _, err := io.ReadFull(random, b); err != nil {
		return "", oops.Code("SESSION_ID_FAILED").Wrapf(err, "session: failed to generate id")
	}

	return base64.RawURLEncoding.EncodeToString(b), nil
}

// ValidID reports whether id has the shape of a generated session ID.
// Anything else can never resolve, so callers skip the store round trip.
func ValidID(id string) bool {
	if len(id) != idLen {
		return false
	}
	_, err := base64.RawURLEncoding.DecodeString(id)
	return err == nil
}
