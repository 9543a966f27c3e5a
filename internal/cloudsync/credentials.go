package cloudsync

import (
	"encoding/base64"
	"strings"
)

// Password obfuscation for the shared document. This is a fixed-salt reversible
// encoding kept for compatibility with documents written by other workstations;
// it is not encryption.
const (
	credentialTag  = "ENC:"
	credentialSalt = "TEVOLTA_INTERNAL_2025"
)

// Obfuscate encodes a password for the remote document.
func Obfuscate(plain string) string {
	return credentialTag + base64.StdEncoding.EncodeToString([]byte(credentialSalt+":"+plain))
}

// Reveal decodes a token written by Obfuscate. Input that is not tagged, does not
// decode, or lacks the salt is returned unchanged.
func Reveal(token string) string {
	encoded, ok := strings.CutPrefix(token, credentialTag)
	if !ok {
		return token
	}
	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return token
	}
	plain, ok := strings.CutPrefix(string(raw), credentialSalt+":")
	if !ok {
		return token
	}
	return plain
}
