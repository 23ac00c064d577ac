package vm

import (
	"fmt"
	"math"

	"github.com/psilLang/wordvm/pkg/bytecode"
	"github.com/psilLang/wordvm/pkg/isa"
)

// State is the fetch-decode unit's run state.
type State uint8

const (
	Running State = iota
	Halted
	Faulted
)

func (s State) String() string {
	switch s {
	case Running:
		return "running"
	case Halted:
		return "halted"
	case Faulted:
		return "faulted"
	default:
		return "unknown"
	}
}

// Decoder walks an image one record at a time.
type Decoder struct {
	image *bytecode.Image
	pc    int
	state State
	err   error
	args  []bytecode.Word

	cur    int           // offset of the last decoded record
	target bytecode.Word // pending jump target past the image end
}

// NewDecoder starts decoding img at offset 0.
func NewDecoder(img *bytecode.Image) *Decoder {
	return &Decoder{
		image: img,
		args:  make([]bytecode.Word, isa.MaxArity()),
	}
}

// Next decodes the record at the program counter and advances past it.
// It returns false once the image end is reached or a fault occurs; a
// fault is kept in Err and is terminal. The operand slice of the returned
// instruction is reused by the following call.
func (d *Decoder) Next() (bytecode.Instruction, bool) {
	if d.state != Running {
		return bytecode.Instruction{}, false
	}
	if d.pc == d.image.Len() {
		d.state = Halted
		return bytecode.Instruction{}, false
	}
	if d.pc > d.image.Len() {
		d.state = Faulted
		d.err = &bytecode.DecodeError{
			Offset: d.cur,
			Err:    bytecode.ErrBadJumpTarget,
			Detail: fmt.Sprintf("target %d", d.target),
		}
		return bytecode.Instruction{}, false
	}
	in, err := d.image.RecordAt(d.pc, d.args)
	if err != nil {
		d.state = Faulted
		d.err = err
		return bytecode.Instruction{}, false
	}
	d.cur = in.Offset
	d.pc = in.Next()
	return in, true
}

// Jump sets the offset of the next record. The target is checked when it
// is decoded: a target past the image end faults with ErrBadJumpTarget.
func (d *Decoder) Jump(target bytecode.Word) {
	d.target = target
	if uint64(target) > math.MaxInt {
		d.pc = math.MaxInt
		return
	}
	d.pc = int(target)
}

// unread moves the program counter back to in, which has not executed.
func (d *Decoder) unread(in bytecode.Instruction) {
	d.pc = in.Offset
}

// PC returns the offset of the next record.
func (d *Decoder) PC() int { return d.pc }

// State returns the current run state.
func (d *Decoder) State() State { return d.state }

// Err returns the fault, if any.
func (d *Decoder) Err() error { return d.err }
