package vm

import (
	"errors"
	"fmt"

	"github.com/psilLang/wordvm/pkg/isa"
)

var (
	ErrStackUnderflow  = errors.New("vm: stack underflow")
	ErrInvalidIndex    = errors.New("vm: invalid stack index")
	ErrStepLimit       = errors.New("vm: step limit reached")
	ErrUnhandledOpcode = errors.New("vm: opcode has no dispatch case")
)

// Fault is an execution error raised by the instruction at Offset.
type Fault struct {
	Offset int
	Op     isa.Opcode
	Err    error
}

func (f *Fault) Error() string {
	return fmt.Sprintf("%v at offset %d (%v)", f.Err, f.Offset, f.Op)
}

func (f *Fault) Unwrap() error { return f.Err }
