package asm

import (
	"fmt"
	"math/bits"
	"strconv"
	"strings"

	"github.com/alecthomas/participle/v2/lexer"
	"github.com/psilLang/wordvm/pkg/bytecode"
	"github.com/psilLang/wordvm/pkg/isa"
)

// Program is the output of a successful assembly.
type Program struct {
	Image  *bytecode.Image
	Labels map[string]int // label name -> byte offset
}

// Error is an assembly error tied to a source position.
type Error struct {
	Pos lexer.Position
	Msg string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Pos, e.Msg)
}

func errorf(pos lexer.Position, format string, args ...any) *Error {
	return &Error{Pos: pos, Msg: fmt.Sprintf(format, args...)}
}

// directive names
const dirText = ".text"

// Assemble converts source text to an image. filename is only used in
// error positions.
func Assemble(filename, source string) (*Program, error) {
	if !strings.HasSuffix(source, "\n") {
		source += "\n"
	}
	prog, err := parser.ParseString(filename, source)
	if err != nil {
		return nil, fmt.Errorf("asm: %w", err)
	}

	a := &assembler{labels: make(map[string]int)}
	if err := a.layout(prog); err != nil {
		return nil, err
	}
	img, err := a.emit(prog)
	if err != nil {
		return nil, err
	}
	return &Program{Image: img, Labels: a.labels}, nil
}

// MustAssemble is like Assemble but panics on error. It is meant for
// programs embedded in Go source.
func MustAssemble(source string) *Program {
	p, err := Assemble("<inline>", source)
	if err != nil {
		panic(err)
	}
	return p
}

type assembler struct {
	labels map[string]int
}

// layout assigns an offset to every label. Record sizes depend only on
// the opcode, so one pass is enough to resolve forward references.
func (a *assembler) layout(prog *program) error {
	offset := 0
	for _, ln := range prog.Lines {
		for _, l := range ln.Labels {
			name := strings.TrimSuffix(l, ":")
			if _, dup := a.labels[name]; dup {
				return errorf(ln.Pos, "label %q defined twice", name)
			}
			a.labels[name] = offset
		}
		if ln.Instr == nil {
			continue
		}
		size, err := a.size(ln.Instr)
		if err != nil {
			return err
		}
		offset += size
	}
	return nil
}

func (a *assembler) size(in *instr) (int, error) {
	if strings.EqualFold(in.Name, dirText) {
		s, err := textOperand(in)
		if err != nil {
			return 0, err
		}
		return len(s) * (1 + bytecode.WordSize), nil
	}
	op, ok := isa.Lookup(in.Name)
	if !ok {
		return 0, errorf(in.Pos, "unknown instruction %q", in.Name)
	}
	if len(in.Operands) != op.Arity() {
		return 0, errorf(in.Pos, "%s takes %d operand(s), got %d", op.Mnemonic(), op.Arity(), len(in.Operands))
	}
	return 1 + op.Arity()*bytecode.WordSize, nil
}

func (a *assembler) emit(prog *program) (*bytecode.Image, error) {
	b := bytecode.NewBuilder()
	args := make([]bytecode.Word, 0, isa.MaxArity())

	for _, ln := range prog.Lines {
		in := ln.Instr
		if in == nil {
			continue
		}
		if strings.EqualFold(in.Name, dirText) {
			s, _ := textOperand(in)
			for i := len(s) - 1; i >= 0; i-- {
				b.Emit(isa.PushConst, bytecode.Word(s[i]))
			}
			continue
		}

		op, _ := isa.Lookup(in.Name)
		args = args[:0]
		for _, o := range in.Operands {
			w, err := a.resolve(o)
			if err != nil {
				return nil, err
			}
			args = append(args, w)
		}
		b.Emit(op, args...)
	}
	return b.Seal(), nil
}

func (a *assembler) resolve(o *operand) (bytecode.Word, error) {
	switch {
	case o.Number != nil:
		n, err := strconv.ParseUint(*o.Number, 0, bits.UintSize)
		if err != nil {
			return 0, errorf(o.Pos, "invalid number %s", *o.Number)
		}
		return bytecode.Word(n), nil

	case o.Char != nil:
		lit := *o.Char
		v, _, tail, err := strconv.UnquoteChar(lit[1:len(lit)-1], '\'')
		if err != nil || tail != "" {
			return 0, errorf(o.Pos, "invalid character literal %s", lit)
		}
		return bytecode.Word(v), nil

	case o.Ref != nil:
		off, ok := a.labels[*o.Ref]
		if !ok {
			return 0, errorf(o.Pos, "undefined label %q", *o.Ref)
		}
		return bytecode.Word(off), nil

	default:
		return 0, errorf(o.Pos, "string operand only allowed with %s", dirText)
	}
}

func textOperand(in *instr) (string, error) {
	if len(in.Operands) != 1 || in.Operands[0].String == nil {
		return "", errorf(in.Pos, "%s takes one string operand", dirText)
	}
	s, err := strconv.Unquote(*in.Operands[0].String)
	if err != nil {
		return "", errorf(in.Pos, "invalid string %s", *in.Operands[0].String)
	}
	return s, nil
}
