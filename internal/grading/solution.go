package grading

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// Solution fingerprints the code and language of an attempt. A final submission
// must carry the fingerprint of the run that opened the gate.
type Solution string

// SolutionOf returns the fingerprint of code written in language. The language
// is compared case-insensitively; the code byte for byte.
func SolutionOf(code, language string) Solution {
	digest := sha256.New()
	digest.Write([]byte(strings.ToLower(strings.TrimSpace(language))))
	digest.Write([]byte{0})
	digest.Write([]byte(code))
	return Solution(hex.EncodeToString(digest.Sum(nil)))
}
