// Package cipher implements the symmetric codec that wraps every frame on
// the wire: PKCS#7 padding, AES-128 in ECB mode, then standard base64.
//
// ECB carries no IV, so equal plaintexts under the same key produce equal
// ciphertexts, and there is no authentication tag. The format is kept for
// compatibility with the deployed backend.
package cipher

import (
	"bytes"
	"crypto/aes"
	stdcipher "crypto/cipher"
	"encoding/base64"
	"errors"
	"fmt"
	"unicode/utf8"
)

// KeySize is the only accepted key length (AES-128).
const KeySize = 16

var (
	// ErrKeySize is returned by New when the key is not KeySize bytes.
	ErrKeySize = errors.New("cipher: key must be 16 bytes")

	// ErrDecryption is the parent of every per-frame decryption failure.
	ErrDecryption = errors.New("cipher: decryption failed")

	// ErrDecode reports malformed base64 or a ciphertext whose length is
	// not a positive multiple of the block size.
	ErrDecode = fmt.Errorf("%w: malformed ciphertext", ErrDecryption)

	// ErrPadding reports invalid PKCS#7 padding, which is what a wrong key
	// or corrupted block usually looks like.
	ErrPadding = fmt.Errorf("%w: invalid padding", ErrDecryption)

	// ErrEncoding reports a plaintext that is not valid UTF-8.
	ErrEncoding = fmt.Errorf("%w: invalid utf-8", ErrDecryption)
)

// Codec encrypts and decrypts text frames under a fixed key. It holds no
// mutable state and is safe for concurrent use.
type Codec struct {
	block stdcipher.Block
}

// New returns a Codec for the given 16-byte key.
func New(key []byte) (*Codec, error) {
	if len(key) != KeySize {
		return nil, fmt.Errorf("%w: got %d", ErrKeySize, len(key))
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}
	return &Codec{block: block}, nil
}

// Encrypt pads, encrypts and base64-encodes plaintext.
func (c *Codec) Encrypt(plaintext string) string {
	data := pad([]byte(plaintext), aes.BlockSize)
	for i := 0; i < len(data); i += aes.BlockSize {
		c.block.Encrypt(data[i:i+aes.BlockSize], data[i:i+aes.BlockSize])
	}
	return base64.StdEncoding.EncodeToString(data)
}

// Decrypt reverses Encrypt. Errors wrap ErrDecode, ErrPadding or
// ErrEncoding, all of which match ErrDecryption.
func (c *Codec) Decrypt(ciphertext string) (string, error) {
	data, err := base64.StdEncoding.DecodeString(ciphertext)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrDecode, err)
	}
	if len(data) == 0 || len(data)%aes.BlockSize != 0 {
		return "", fmt.Errorf("%w: length %d", ErrDecode, len(data))
	}
	for i := 0; i < len(data); i += aes.BlockSize {
		c.block.Decrypt(data[i:i+aes.BlockSize], data[i:i+aes.BlockSize])
	}
	data, err = unpad(data, aes.BlockSize)
	if err != nil {
		return "", err
	}
	if !utf8.Valid(data) {
		return "", ErrEncoding
	}
	return string(data), nil
}

// Encrypt is the stateless form of Codec.Encrypt.
func Encrypt(plaintext string, key []byte) (string, error) {
	c, err := New(key)
	if err != nil {
		return "", err
	}
	return c.Encrypt(plaintext), nil
}

// Decrypt is the stateless form of Codec.Decrypt.
func Decrypt(ciphertext string, key []byte) (string, error) {
	c, err := New(key)
	if err != nil {
		return "", err
	}
	return c.Decrypt(ciphertext)
}

func pad(data []byte, blockSize int) []byte {
	n := blockSize - len(data)%blockSize
	return append(data, bytes.Repeat([]byte{byte(n)}, n)...)
}

func unpad(data []byte, blockSize int) ([]byte, error) {
	n := int(data[len(data)-1])
	if n == 0 || n > blockSize || n > len(data) {
		return nil, ErrPadding
	}
	for _, b := range data[len(data)-n:] {
		if int(b) != n {
			return nil, ErrPadding
		}
	}
	return data[:len(data)-n], nil
}
