package key

import (
	"fmt"
	"strings"
)

// PointerSize is the size of an encoded pointer
const PointerSize = 2 * Size

// Pointer references some stored content.
//
// Data identifies the logical content and does not depend on how it is
// encoded. Box is the key of the stored representation: content is resolved
// by Box and verified by Data. Both are the same unless the stored bytes are
// transformed.
type Pointer struct {
	Data Hash
	Box  Hash
}

// IsZero tells if the pointer has never been persisted
func (p Pointer) IsZero() bool {
	return p.Data.IsZero() && p.Box.IsZero()
}

// Bytes encodes the pointer as data hash followed by box hash
func (p Pointer) Bytes() []byte {
	b := make([]byte, 0, PointerSize)
	b = append(b, p.Data[:]...)
	return append(b, p.Box[:]...)
}

// PointerFromBytes decodes a pointer encoded by Bytes
func PointerFromBytes(b []byte) (Pointer, error) {
	if len(b) != PointerSize {
		return Pointer{}, &BadKeySize{Key: b}
	}
	var p Pointer
	copy(p.Data[:], b[:Size])
	copy(p.Box[:], b[Size:])
	return p, nil
}

// String renders the pointer as "data:box"
func (p Pointer) String() string {
	return p.Data.String() + ":" + p.Box.String()
}

// ParsePointer reads a pointer rendered by String. A single hash stands for
// both the data and the box hash.
func ParsePointer(s string) (Pointer, error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	switch len(parts) {
	case 1:
		h, err := FromString(parts[0])
		if err != nil {
			return Pointer{}, err
		}
		return Pointer{Data: h, Box: h}, nil
	case 2:
		d, err := FromString(parts[0])
		if err != nil {
			return Pointer{}, err
		}
		b, err := FromString(parts[1])
		if err != nil {
			return Pointer{}, err
		}
		return Pointer{Data: d, Box: b}, nil
	default:
		return Pointer{}, fmt.Errorf("invalid pointer %q", s)
	}
}
