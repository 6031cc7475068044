// Package protocol defines the Envelope carried in every websocket frame and
// its sealed (encrypted) text form.
package protocol

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Code identifies what an Envelope asks for.
type Code string

const (
	CodeSetup   Code = "setup"
	CodeUsers   Code = "users"
	CodeMessage Code = "message"
)

// String returns the wire form of the code.
func (c Code) String() string {
	return string(c)
}

// Valid reports whether c is one of the known codes. Envelopes with an
// unknown code still decode so callers can decide what to do with them.
func (c Code) Valid() bool {
	switch c {
	case CodeSetup, CodeUsers, CodeMessage:
		return true
	default:
		return false
	}
}

// Envelope is the message shape shared by the client and the backend.
// Field order matches the wire form.
type Envelope struct {
	Code   Code   `json:"code"`
	UserID string `json:"userId"`
	Text   string `json:"text,omitempty"`
	Data   string `json:"data,omitempty"`
	Key    string `json:"key"`
}

// Sealer is the cipher used to wrap encoded envelopes.
type Sealer interface {
	Encrypt(plaintext string) string
	Decrypt(ciphertext string) (string, error)
}

// NewSetup builds the identification envelope sent once per connection.
// The derived key travels both as data and as key.
func NewSetup(userID, key string) Envelope {
	return Envelope{Code: CodeSetup, UserID: userID, Data: key, Key: key}
}

// NewUsers builds a roster request.
func NewUsers(userID, key string) Envelope {
	return Envelope{Code: CodeUsers, UserID: userID, Key: key}
}

// NewMessage builds a chat message.
func NewMessage(userID, key, text string) Envelope {
	return Envelope{Code: CodeMessage, UserID: userID, Text: text, Key: key}
}

// Encode returns the compact JSON form of the envelope.
func (e *Envelope) Encode() ([]byte, error) {
	var buf bytes.Buffer
	encoder := json.NewEncoder(&buf)
	encoder.SetEscapeHTML(false)
	if err := encoder.Encode(e); err != nil {
		return nil, fmt.Errorf("failed to encode envelope: %w", err)
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}

// Decode parses the JSON form of an envelope.
func (e *Envelope) Decode(data []byte) error {
	if err := json.Unmarshal(data, e); err != nil {
		return fmt.Errorf("failed to decode envelope: %w", err)
	}
	return nil
}

// Seal encodes env and encrypts it into a text frame.
func Seal(env Envelope, sealer Sealer) (string, error) {
	data, err := env.Encode()
	if err != nil {
		return "", err
	}
	return sealer.Encrypt(string(data)), nil
}

// Open decrypts a text frame and decodes the envelope inside it.
func Open(frame string, sealer Sealer) (Envelope, error) {
	plaintext, err := sealer.Decrypt(frame)
	if err != nil {
		return Envelope{}, err
	}
	var env Envelope
	if err := env.Decode([]byte(plaintext)); err != nil {
		return Envelope{}, err
	}
	return env, nil
}

// ParseFrameText classifies decrypted inbound plaintext. It reports false
// when the text is not an envelope with a known code; the deployed backend
// also sends preformatted display lines, which callers show verbatim.
func ParseFrameText(plaintext string) (Envelope, bool) {
	trimmed := bytes.TrimSpace([]byte(plaintext))
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return Envelope{}, false
	}
	var env Envelope
	if err := env.Decode(trimmed); err != nil {
		return Envelope{}, false
	}
	if !env.Code.Valid() {
		return Envelope{}, false
	}
	return env, true
}
