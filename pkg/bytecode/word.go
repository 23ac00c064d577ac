package bytecode

import (
	"encoding/binary"
	"math/bits"
)

// Word is the only value type of the machine: an unsigned integer as wide
// as a pointer. It is used as a number, a stack index and a jump target.
type Word uint

// WordSize is the encoded size of a Word in bytes.
const WordSize = bits.UintSize / 8

// MaxWord is the largest representable Word.
const MaxWord = ^Word(0)

// PutWord writes w into b[:WordSize] in native byte order.
func PutWord(b []byte, w Word) {
	if WordSize == 8 {
		binary.NativeEndian.PutUint64(b, uint64(w))
		return
	}
	binary.NativeEndian.PutUint32(b, uint32(w))
}

// AppendWord appends the native encoding of w to b.
func AppendWord(b []byte, w Word) []byte {
	if WordSize == 8 {
		return binary.NativeEndian.AppendUint64(b, uint64(w))
	}
	return binary.NativeEndian.AppendUint32(b, uint32(w))
}

// ReadWord decodes b[:WordSize]. b may start at any alignment.
func ReadWord(b []byte) Word {
	if WordSize == 8 {
		return Word(binary.NativeEndian.Uint64(b))
	}
	return Word(binary.NativeEndian.Uint32(b))
}
