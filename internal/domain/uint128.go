package domain

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
)

// ErrUnknownIDTag is returned when deriving an ID with an unregistered tag.
var ErrUnknownIDTag = errors.New("unknown id tag")

// IDTag namespaces deterministically derived engine IDs. The tag occupies
// the top 4 bits of the derived value, so two derivations from the same
// input but different tags never collide.
type IDTag uint8

const (
	// TagAccountControl derives the control account paired with a ledger account.
	TagAccountControl IDTag = 0x1
	// TagLedgerSettlement derives the settlement account of a ledger.
	TagLedgerSettlement IDTag = 0x2
	// TagTransferGroup derives the engine transfer-group ID of a transaction.
	TagTransferGroup IDTag = 0x3
	// TagTransfer derives per-entry engine transfer IDs.
	TagTransfer IDTag = 0x4
)

func (t IDTag) valid() bool {
	switch t {
	case TagAccountControl, TagLedgerSettlement, TagTransferGroup, TagTransfer:
		return true
	}
	return false
}

// Uint128 is an unsigned 128-bit integer in the engine's ID space.
type Uint128 struct {
	Hi uint64
	Lo uint64
}

// Uint128FromBytes decodes a 16-byte big-endian value.
func Uint128FromBytes(b [16]byte) Uint128 {
	return Uint128{
		Hi: binary.BigEndian.Uint64(b[0:8]),
		Lo: binary.BigEndian.Uint64(b[8:16]),
	}
}

// Uint128FromUint64 widens a 64-bit value.
func Uint128FromUint64(v uint64) Uint128 {
	return Uint128{Lo: v}
}

// ParseUint128 decodes the canonical 32-character hex form.
func ParseUint128(s string) (Uint128, error) {
	if len(s) != 32 {
		return Uint128{}, fmt.Errorf("uint128: expected 32 hex characters, got %d", len(s))
	}

	raw, err := hex.DecodeString(s)
	if err != nil {
		return Uint128{}, fmt.Errorf("uint128: %w", err)
	}

	var b [16]byte
	copy(b[:], raw)

	return Uint128FromBytes(b), nil
}

// Bytes encodes the value as 16 big-endian bytes, high half first.
func (u Uint128) Bytes() [16]byte {
	var b [16]byte
	binary.BigEndian.PutUint64(b[0:8], u.Hi)
	binary.BigEndian.PutUint64(b[8:16], u.Lo)

	return b
}

// IsZero reports whether the value is zero.
func (u Uint128) IsZero() bool {
	return u.Hi == 0 && u.Lo == 0
}

// Cmp returns -1, 0 or 1 comparing u against v.
func (u Uint128) Cmp(v Uint128) int {
	switch {
	case u.Hi < v.Hi:
		return -1
	case u.Hi > v.Hi:
		return 1
	case u.Lo < v.Lo:
		return -1
	case u.Lo > v.Lo:
		return 1
	}
	return 0
}

// String returns the canonical 32-character lower-case hex form.
func (u Uint128) String() string {
	b := u.Bytes()
	return hex.EncodeToString(b[:])
}

// DeriveID computes a stable 128-bit engine ID from input: the first 128
// bits of SHA-256(input) with the top 4 bits replaced by tag. The same
// (tag, input) pair always yields the same ID, so derived accounts can be
// re-located without a persisted mapping.
func DeriveID(tag IDTag, input string) (Uint128, error) {
	if !tag.valid() {
		return Uint128{}, fmt.Errorf("%w: 0x%x", ErrUnknownIDTag, uint8(tag))
	}

	sum := sha256.Sum256([]byte(input))

	var b [16]byte
	copy(b[:], sum[:16])

	u := Uint128FromBytes(b)
	u.Hi = u.Hi&^(0xF<<60) | uint64(tag)<<60

	return u, nil
}
