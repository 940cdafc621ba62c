package tapo

import (
	"crypto/sha1"
	"encoding/base64"
	"encoding/hex"
)

// EncodedCredentials are the strings sent in login_device.
type EncodedCredentials struct {
	Email    string
	Password string
}

// EncodeCredentials hashes the email with SHA-1, hex encodes the digest and
// base64 encodes the result. The password is base64 encoded as is.
// Empty values must be rejected before calling this.
func EncodeCredentials(email, password string) EncodedCredentials {
	digest := sha1.Sum([]byte(email))

	return EncodedCredentials{
		Email:    encode(hex.EncodeToString(digest[:])),
		Password: encode(password),
	}
}

func encode(s string) string {
	return base64.StdEncoding.EncodeToString([]byte(s))
}
