package bytecode

import (
	"fmt"
	"sync"

	"github.com/psilLang/wordvm/pkg/isa"
)

// Image is a sealed program: a read-only concatenation of records.
// It is safe for concurrent use by any number of engines.
type Image struct {
	code []byte

	once   sync.Once
	starts []int
	err    error
}

// NewImage wraps a copy of code. Use it for images that did not come out
// of a Builder, e.g. ones read from disk.
func NewImage(code []byte) *Image {
	return &Image{code: append([]byte(nil), code...)}
}

// Len returns the image size in bytes.
func (img *Image) Len() int {
	return len(img.code)
}

// Bytes returns a copy of the encoded image.
func (img *Image) Bytes() []byte {
	return append([]byte(nil), img.code...)
}

// OpcodeAt decodes the opcode byte at offset.
func (img *Image) OpcodeAt(offset int) (isa.Opcode, error) {
	if offset < 0 || offset >= len(img.code) {
		return 0, &DecodeError{Offset: offset, Err: ErrInvalidOpcode, Detail: "out of range"}
	}
	b := img.code[offset]
	op, ok := isa.Decode(b)
	if !ok {
		return 0, &DecodeError{Offset: offset, Err: ErrInvalidOpcode, Detail: fmt.Sprintf("byte 0x%02X", b)}
	}
	return op, nil
}

// WordAt decodes one word starting at offset. It never reads past the image.
func (img *Image) WordAt(offset int) (Word, error) {
	if offset < 0 || len(img.code)-offset < WordSize {
		return 0, &DecodeError{Offset: offset, Err: ErrTruncatedOperand}
	}
	return ReadWord(img.code[offset:]), nil
}

// WordsInto fills dst with consecutive words starting at offset.
func (img *Image) WordsInto(offset int, dst []Word) error {
	if offset < 0 || len(img.code)-offset < len(dst)*WordSize {
		return &DecodeError{
			Offset: offset,
			Err:    ErrTruncatedOperand,
			Detail: fmt.Sprintf("want %d words, %d bytes left", len(dst), max(len(img.code)-offset, 0)),
		}
	}
	for i := range dst {
		dst[i] = ReadWord(img.code[offset+i*WordSize:])
	}
	return nil
}

// Instruction is one decoded record.
type Instruction struct {
	Offset   int
	Op       isa.Opcode
	Operands []Word
}

// Size returns the encoded record length.
func (in Instruction) Size() int {
	return 1 + in.Op.Arity()*WordSize
}

// Next returns the offset of the following record.
func (in Instruction) Next() int {
	return in.Offset + in.Size()
}

func (in Instruction) String() string {
	if len(in.Operands) == 0 {
		return in.Op.String()
	}
	return fmt.Sprintf("%v %v", in.Op, in.Operands)
}

// RecordAt decodes the record starting at offset. Operands are written to
// buf, which is grown if it cannot hold the opcode's arity.
func (img *Image) RecordAt(offset int, buf []Word) (Instruction, error) {
	op, err := img.OpcodeAt(offset)
	if err != nil {
		return Instruction{}, err
	}
	n := op.Arity()
	if len(buf) < n {
		buf = make([]Word, n)
	}
	if err := img.WordsInto(offset+1, buf[:n]); err != nil {
		return Instruction{}, &DecodeError{Offset: offset, Err: ErrTruncatedOperand, Detail: op.String()}
	}
	return Instruction{Offset: offset, Op: op, Operands: buf[:n]}, nil
}
