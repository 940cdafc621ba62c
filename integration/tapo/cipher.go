package tapo

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"encoding/base64"
	"errors"
	"fmt"
	"unicode/utf8"
)

// KeyMaterial is recovered from the handshake response: the first 16 bytes
// are the AES key, the next 16 the IV.
type KeyMaterial struct {
	Key [16]byte
	IV  [16]byte
}

func keyMaterialFrom(b []byte) (KeyMaterial, error) {
	var km KeyMaterial
	if len(b) != 32 {
		return km, fmt.Errorf("key material has %d bytes, want 32", len(b))
	}

	copy(km.Key[:], b[:16])
	copy(km.IV[:], b[16:32])

	return km, nil
}

// Cipher wraps every secure passthrough payload in AES-128-CBC with PKCS#7
// padding and base64 for transport inside JSON.
type Cipher struct {
	block cipher.Block
	iv    []byte
}

func NewCipher(km KeyMaterial) (*Cipher, error) {
	block, err := aes.NewCipher(km.Key[:])
	if err != nil {
		return nil, fmt.Errorf("cannot create cipher: %w", err)
	}

	iv := make([]byte, aes.BlockSize)
	copy(iv, km.IV[:])

	return &Cipher{block: block, iv: iv}, nil
}

func (c *Cipher) Encrypt(plaintext []byte) string {
	padded := addPadding(plaintext, aes.BlockSize)

	out := make([]byte, len(padded))
	cipher.NewCBCEncrypter(c.block, c.iv).CryptBlocks(out, padded)

	return base64.StdEncoding.EncodeToString(out)
}

func (c *Cipher) Decrypt(s string) ([]byte, error) {
	ciphertext, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("cannot decode base64: %w", err)
	}
	if len(ciphertext) == 0 || len(ciphertext)%aes.BlockSize != 0 {
		return nil, fmt.Errorf("ciphertext length %d is not a multiple of the block size", len(ciphertext))
	}

	out := make([]byte, len(ciphertext))
	cipher.NewCBCDecrypter(c.block, c.iv).CryptBlocks(out, ciphertext)

	plaintext, err := removePadding(out, aes.BlockSize)
	if err != nil {
		return nil, err
	}
	if !utf8.Valid(plaintext) {
		return nil, errors.New("plaintext is not valid UTF-8")
	}

	return plaintext, nil
}

func addPadding(plaintext []byte, blockSize int) []byte {
	n := blockSize - len(plaintext)%blockSize

	return append(append([]byte{}, plaintext...), bytes.Repeat([]byte{byte(n)}, n)...)
}

func removePadding(data []byte, blockSize int) ([]byte, error) {
	if len(data) == 0 || len(data)%blockSize != 0 {
		return nil, errors.New("invalid PKCS7 data")
	}

	c := data[len(data)-1]
	n := int(c)
	if n == 0 || n > blockSize {
		return nil, errors.New("invalid PKCS7 padding")
	}
	for _, b := range data[len(data)-n:] {
		if b != c {
			return nil, errors.New("invalid PKCS7 padding")
		}
	}

	return data[:len(data)-n], nil
}
