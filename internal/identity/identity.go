// Package identity derives the per-machine fingerprint and key that tag
// every envelope this client sends.
package identity

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

// KeyLength is the number of hex characters kept from the fingerprint hash.
const KeyLength = 16

// Identity is fixed for the lifetime of the process.
type Identity struct {
	Fingerprint string
	UserID      string
	Key         string
}

// New builds the identity for this machine.
func New(userID string) Identity {
	return NewWithFingerprint(userID, Fingerprint())
}

// NewWithFingerprint builds an identity from an explicit fingerprint.
func NewWithFingerprint(userID, fingerprint string) Identity {
	return Identity{
		Fingerprint: fingerprint,
		UserID:      userID,
		Key:         DeriveKey(fingerprint),
	}
}

// Fingerprint returns the machine's 48-bit hardware node id in decimal.
// When no interface has a hardware address, uuid picks a random node id
// once per process, so the value is still stable for the process lifetime.
func Fingerprint() string {
	node := uuid.NodeID()
	var buf [8]byte
	copy(buf[8-len(node):], node)
	return strconv.FormatUint(binary.BigEndian.Uint64(buf[:]), 10)
}

// DeriveKey hashes the fingerprint with SHA-256 and keeps the first
// KeyLength hex characters.
func DeriveKey(fingerprint string) string {
	sum := sha256.Sum256([]byte(fingerprint))
	return hex.EncodeToString(sum[:])[:KeyLength]
}

// OwnsLine reports whether a preformatted display line was sent by this
// identity. The backend formats lines as "<time> <sender>: <text>", and the
// only signal available is that the first three runes of the sender token
// prefix our user id. Distinct users sharing a three-letter prefix collide.
func (id Identity) OwnsLine(line string) bool {
	fields := strings.Split(line, " ")
	if len(fields) < 2 {
		return false
	}
	sender := []rune(fields[1])
	if len(sender) > 3 {
		sender = sender[:3]
	}
	return strings.HasPrefix(id.UserID, string(sender))
}
