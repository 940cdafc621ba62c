package tapo

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"fmt"
)

const keyBits = 1024

// KeyPair is the ephemeral RSA key of one session. The private half never
// leaves the process.
type KeyPair struct {
	private   *rsa.PrivateKey
	PublicPEM string
}

// GenerateKeyPair creates a fresh key pair with the public key in PEM
// encoded SPKI form.
func GenerateKeyPair() (*KeyPair, error) {
	private, err := rsa.GenerateKey(rand.Reader, keyBits)
	if err != nil {
		return nil, fmt.Errorf("tapo: generate rsa key: %w", err)
	}

	der, err := x509.MarshalPKIXPublicKey(&private.PublicKey)
	if err != nil {
		return nil, fmt.Errorf("tapo: marshal public key: %w", err)
	}

	block := pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: der})

	return &KeyPair{private: private, PublicPEM: string(block)}, nil
}

func (k *KeyPair) decrypt(ciphertext []byte) ([]byte, error) {
	return rsa.DecryptPKCS1v15(nil, k.private, ciphertext)
}
