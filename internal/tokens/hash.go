package tokens

import (
	"crypto/sha256"
	"encoding/hex"
)

// Sha256Hex is the storage form of a refresh token. Sessions keep only this
// digest so a database leak never exposes usable tokens.
func Sha256Hex(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
