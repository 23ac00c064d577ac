package bytecode

import (
	"fmt"

	"github.com/psilLang/wordvm/pkg/isa"
)

// Builder assembles records into a byte buffer. It only ever appends,
// so none of its operations can fail; misuse (wrong operand count,
// unknown opcode, use after Seal) panics.
type Builder struct {
	// Args is the operand buffer read by Append. It holds one slot per
	// operand of the widest opcode in the catalog.
	Args []Word

	code   []byte
	sealed bool
}

// NewBuilder creates an empty builder.
func NewBuilder() *Builder {
	return &Builder{
		Args: make([]Word, isa.MaxArity()),
		code: make([]byte, 0, 64),
	}
}

// Append writes op followed by op.Arity() words taken from Args, in order.
func (b *Builder) Append(op isa.Opcode) {
	if b.sealed {
		panic(ErrSealed)
	}
	if !op.Valid() {
		panic(fmt.Sprintf("bytecode: append of unknown opcode 0x%02X", byte(op)))
	}
	b.code = append(b.code, byte(op))
	for _, w := range b.Args[:op.Arity()] {
		b.code = AppendWord(b.code, w)
	}
}

// Emit loads operands into Args and appends op.
func (b *Builder) Emit(op isa.Opcode, operands ...Word) {
	if len(operands) != op.Arity() {
		panic(fmt.Sprintf("bytecode: %v takes %d operands, got %d", op, op.Arity(), len(operands)))
	}
	copy(b.Args, operands)
	b.Append(op)
}

// Len returns the offset the next record will be written at.
func (b *Builder) Len() int {
	return len(b.code)
}

// Seal hands the buffer over to an immutable Image. The builder cannot be
// used afterwards.
func (b *Builder) Seal() *Image {
	if b.sealed {
		panic(ErrSealed)
	}
	b.sealed = true
	img := &Image{code: b.code}
	b.code = nil
	return img
}
