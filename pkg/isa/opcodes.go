// Package isa defines the wordvm instruction set.
// Every opcode is a single byte that also encodes its operand count.
package isa

import (
	"fmt"
	"strings"
)

// Opcode encoding:
//
//	bit 7..4  arity   number of word operands following the opcode byte
//	bit 3..0  suffix  distinguishes opcodes of equal arity
//
// 0x00-0x0F: no operands
// 0x10-0x1F: one word operand
// 0x20-0xFF: reserved for opcodes with 2..15 operands

// Opcode is an instruction discriminant.
type Opcode byte

// ArityLimit is the largest arity the 4-bit field can express.
const ArityLimit = 15

const (
	arity0 = 0 << 4
	arity1 = 1 << 4
)

// === no operands (0x00-0x0F) ===
const (
	TosDown      Opcode = arity0 | 0x0 // a --
	WrapAddStack Opcode = arity0 | 0x1 // a b -- (a+b)
	DecStack     Opcode = arity0 | 0x2 // a -- (a-1)
	SysOut       Opcode = arity0 | 0x3 // c -- (writes c to output)
)

// === one word operand (0x10-0x1F) ===
const (
	PushConst Opcode = arity1 | 0x0 // [v] -- v
	Load      Opcode = arity1 | 0x1 // [idx] -- stack[idx]
	Store     Opcode = arity1 | 0x2 // [idx] v --
	JmpTo     Opcode = arity1 | 0x3 // [target] --
	IfNzJmp   Opcode = arity1 | 0x4 // [target] c --
)

// Pack builds an opcode byte from its arity and suffix.
func Pack(arity, suffix int) Opcode {
	return Opcode(byte(arity&0xF)<<4 | byte(suffix&0xF))
}

// Arity returns the number of word operands that follow the opcode.
func (op Opcode) Arity() int {
	return int(op >> 4)
}

// Suffix returns the low nibble of the opcode.
func (op Opcode) Suffix() int {
	return int(op & 0xF)
}

// Decode validates a raw byte against the catalog.
// Unknown bytes are rejected, never reinterpreted.
func Decode(b byte) (Opcode, bool) {
	switch op := Opcode(b); op {
	case TosDown, WrapAddStack, DecStack, SysOut,
		PushConst, Load, Store, JmpTo, IfNzJmp:
		return op, true
	default:
		return 0, false
	}
}

// Valid reports whether op belongs to the catalog.
func (op Opcode) Valid() bool {
	_, ok := Decode(byte(op))
	return ok
}

// IsJump reports whether the opcode's operand is a program offset.
func (op Opcode) IsJump() bool {
	return op == JmpTo || op == IfNzJmp
}

type info struct {
	name     string
	mnemonic string
	aliases  []string
}

var catalog = map[Opcode]info{
	TosDown:      {"TosDown", "tosdown", []string{"drop"}},
	WrapAddStack: {"WrapAddStack", "wrapaddstack", []string{"add"}},
	DecStack:     {"DecStack", "decstack", []string{"dec"}},
	SysOut:       {"SysOut", "sysout", []string{"out"}},
	PushConst:    {"PushConst", "pushconst", []string{"push"}},
	Load:         {"Load", "load", nil},
	Store:        {"Store", "store", nil},
	JmpTo:        {"JmpTo", "jmpto", []string{"jmp"}},
	IfNzJmp:      {"IfNzJmp", "ifnzjmp", []string{"jnz"}},
}

// mnemonics maps assembler names (and aliases) to opcodes
var mnemonics = func() map[string]Opcode {
	m := make(map[string]Opcode)
	for op, in := range catalog {
		m[in.mnemonic] = op
		for _, a := range in.aliases {
			m[a] = op
		}
	}
	return m
}()

// String returns the catalog name of the opcode.
func (op Opcode) String() string {
	if in, ok := catalog[op]; ok {
		return in.name
	}
	return fmt.Sprintf("Opcode(0x%02X)", byte(op))
}

// Mnemonic returns the canonical assembler name.
func (op Opcode) Mnemonic() string {
	if in, ok := catalog[op]; ok {
		return in.mnemonic
	}
	return fmt.Sprintf("?%02x", byte(op))
}

// Lookup resolves an assembler mnemonic or alias, ignoring case.
func Lookup(name string) (Opcode, bool) {
	op, ok := mnemonics[strings.ToLower(name)]
	return op, ok
}

// All returns every catalog opcode in byte order.
func All() []Opcode {
	ops := make([]Opcode, 0, len(catalog))
	for b := 0; b < 256; b++ {
		if op, ok := Decode(byte(b)); ok {
			ops = append(ops, op)
		}
	}
	return ops
}

// MaxArity returns the largest arity used by the catalog.
func MaxArity() int {
	return maxArity
}

var maxArity = func() int {
	n := 0
	for op := range catalog {
		if a := op.Arity(); a > n {
			n = a
		}
	}
	return n
}()
