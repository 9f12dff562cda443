package c4

import (
	"math/big"
	"strings"

	"github.com/pkg/errors"
)

const (
	// Prefix starts every C4 ID.
	Prefix = "c4"
	// IDLength is the fixed length of a C4 ID.
	IDLength = 90
	// Alphabet is the base-58 alphabet; its first symbol stands for zero and pads IDs.
	Alphabet = "123456789abcdefghijkmnopqrstuvwxyzABCDEFGHJKLMNPQRSTUVWXYZ"

	// 58^88 > 2^512, so a 64-byte digest never needs more than 88 symbols.
	encodedLength = IDLength - len(Prefix)
	maxDigestBits = DigestSize * 8
)

var (
	radix = big.NewInt(int64(len(Alphabet)))

	alphabetIndex = func() [256]int8 {
		var idx [256]int8
		for i := range idx {
			idx[i] = -1
		}
		for i := 0; i < len(Alphabet); i++ {
			idx[Alphabet[i]] = int8(i)
		}
		return idx
	}()
)

// ID is a 90-character C4 identifier.
type ID string

func (id ID) String() string {
	return string(id)
}

// Digest decodes the ID back into the digest it was encoded from.
func (id ID) Digest() (Digest, error) {
	if err := validate(string(id)); err != nil {
		return Digest{}, err
	}

	n, err := decode58(string(id)[len(Prefix):])
	if err != nil {
		return Digest{}, err
	}
	if n.BitLen() > maxDigestBits {
		return Digest{}, errors.Wrapf(ErrInvalidID, "%q exceeds %d bits", id, maxDigestBits)
	}

	var digest Digest
	n.FillBytes(digest[:])
	return digest, nil
}

// Encode renders a digest as its C4 ID: the prefix, '1' padding, then the
// base-58 form of the digest read as a big-endian unsigned integer.
func Encode(d Digest) ID {
	encoded := encode58(d[:])
	if pad := encodedLength - len(encoded); pad > 0 {
		encoded = strings.Repeat(Alphabet[:1], pad) + encoded
	}
	return ID(Prefix + encoded)
}

// EncodeBytes is Encode for a digest held in a byte slice.
// Anything other than DigestSize bytes is rejected with ErrDigestLength.
func EncodeBytes(b []byte) (ID, error) {
	if len(b) != DigestSize {
		return "", errors.Wrapf(ErrDigestLength, "got %d bytes, want %d", len(b), DigestSize)
	}
	var d Digest
	copy(d[:], b)
	return Encode(d), nil
}

// Parse checks that s is a canonical C4 ID and returns it as an ID.
func Parse(s string) (ID, error) {
	id := ID(s)
	if _, err := id.Digest(); err != nil {
		return "", err
	}
	return id, nil
}

func validate(s string) error {
	if len(s) != IDLength {
		return errors.Wrapf(ErrInvalidID, "length %d, want %d", len(s), IDLength)
	}
	if !strings.HasPrefix(s, Prefix) {
		return errors.Wrapf(ErrInvalidID, "missing %q prefix", Prefix)
	}
	return nil
}

// encode58 repeatedly divides by 58, emitting remainders from the least
// significant end. A zero value encodes as the single zero symbol.
func encode58(b []byte) string {
	n := new(big.Int).SetBytes(b)
	mod := new(big.Int)

	out := make([]byte, 0, encodedLength)
	for n.Cmp(radix) >= 0 {
		n.QuoRem(n, radix, mod)
		out = append(out, Alphabet[mod.Int64()])
	}
	out = append(out, Alphabet[n.Int64()])

	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return string(out)
}

func decode58(s string) (*big.Int, error) {
	n := new(big.Int)
	digit := new(big.Int)
	for i := 0; i < len(s); i++ {
		v := alphabetIndex[s[i]]
		if v < 0 {
			return nil, errors.Wrapf(ErrInvalidID, "character %q at offset %d is not base-58", s[i], i)
		}
		n.Mul(n, radix)
		n.Add(n, digit.SetInt64(int64(v)))
	}
	return n, nil
}
