// Package vm executes wordvm images.
// An Engine owns one stack and one decoder and lives for a single run.
package vm

import (
	"io"
	"os"

	"github.com/psilLang/wordvm/pkg/bytecode"
	"github.com/psilLang/wordvm/pkg/isa"
)

// Word is re-exported for callers that only deal with the engine.
type Word = bytecode.Word

// Engine runs one image once.
type Engine struct {
	// Output receives SysOut bytes (default: os.Stdout)
	Output io.Writer

	// Trace, when set, sees every instruction before it executes
	Trace Observer

	// MaxSteps bounds the number of executed instructions (0 = unlimited)
	MaxSteps int

	// Stack doubles as addressable storage: Load and Store index it
	// from the bottom.
	stack []Word
	dec   *Decoder
	steps int
	state State
	err   error
}

// New validates img and creates an engine with an empty stack.
// Malformed images are rejected here, before anything executes.
func New(img *bytecode.Image) (*Engine, error) {
	if err := img.Validate(); err != nil {
		return nil, err
	}
	return &Engine{
		Output: os.Stdout,
		stack:  make([]Word, 0, 64),
		dec:    NewDecoder(img),
	}, nil
}

// Run executes img on a fresh engine and returns the final stack.
func Run(img *bytecode.Image, out io.Writer) ([]Word, error) {
	e, err := New(img)
	if err != nil {
		return nil, err
	}
	if out != nil {
		e.Output = out
	}
	err = e.Run()
	return e.Stack(), err
}

// Push places w on top of the stack. It is meant for seeding the stack
// before a run.
func (e *Engine) Push(w Word) {
	e.stack = append(e.stack, w)
}

// Stack returns a copy of the stack, bottom first.
func (e *Engine) Stack() []Word {
	return append([]Word(nil), e.stack...)
}

// Steps returns the number of instructions executed so far.
func (e *Engine) Steps() int { return e.steps }

// PC returns the offset of the next instruction.
func (e *Engine) PC() int { return e.dec.PC() }

// State reports whether the run is still going.
func (e *Engine) State() State { return e.state }

// Err returns the error that ended the run, if any.
func (e *Engine) Err() error { return e.err }

// Step executes one instruction. It returns false when the run is over;
// the error is nil for a normal halt.
func (e *Engine) Step() (bool, error) {
	if e.state != Running {
		return false, e.err
	}

	in, ok := e.dec.Next()
	if !ok {
		if err := e.dec.Err(); err != nil {
			e.state = Faulted
			e.err = err
			return false, err
		}
		e.state = Halted
		return false, nil
	}

	if e.MaxSteps > 0 && e.steps >= e.MaxSteps {
		e.dec.unread(in)
		return e.fault(in, ErrStepLimit)
	}
	if e.Trace != nil {
		e.Trace(in, e.stack)
	}
	e.steps++

	if err := e.exec(in); err != nil {
		return e.fault(in, err)
	}
	return true, nil
}

// Run steps until the image halts or faults.
func (e *Engine) Run() error {
	for {
		more, err := e.Step()
		if !more {
			return err
		}
	}
}

func (e *Engine) fault(in bytecode.Instruction, err error) (bool, error) {
	e.state = Faulted
	e.err = &Fault{Offset: in.Offset, Op: in.Op, Err: err}
	return false, e.err
}

// exec applies one instruction. Every catalog opcode has a case; the
// fallback only fires when the catalog grows without a matching case here.
func (e *Engine) exec(in bytecode.Instruction) error {
	switch in.Op {
	case isa.PushConst:
		e.Push(in.Operands[0])

	case isa.TosDown:
		if _, ok := e.pop(); !ok {
			return ErrStackUnderflow
		}

	case isa.DecStack:
		n := len(e.stack)
		if n == 0 {
			return ErrStackUnderflow
		}
		e.stack[n-1]--

	case isa.WrapAddStack:
		if len(e.stack) < 2 {
			return ErrStackUnderflow
		}
		a, _ := e.pop()
		b, _ := e.pop()
		e.Push(a + b)

	case isa.Load:
		idx := in.Operands[0]
		if idx >= Word(len(e.stack)) {
			return ErrInvalidIndex
		}
		e.Push(e.stack[idx])

	case isa.Store:
		n := len(e.stack)
		if n == 0 {
			return ErrStackUnderflow
		}
		// the slot is addressed after the value is popped
		idx := in.Operands[0]
		if idx >= Word(n-1) {
			return ErrInvalidIndex
		}
		v, _ := e.pop()
		e.stack[idx] = v

	case isa.JmpTo:
		e.dec.Jump(in.Operands[0])

	case isa.IfNzJmp:
		c, ok := e.pop()
		if !ok {
			return ErrStackUnderflow
		}
		if c != 0 {
			e.dec.Jump(in.Operands[0])
		}

	case isa.SysOut:
		c, ok := e.pop()
		if !ok {
			return ErrStackUnderflow
		}
		// fire and forget: a failing writer does not stop the program
		_, _ = e.Output.Write([]byte{byte(c)})

	default:
		return ErrUnhandledOpcode
	}
	return nil
}

func (e *Engine) pop() (Word, bool) {
	n := len(e.stack)
	if n == 0 {
		return 0, false
	}
	v := e.stack[n-1]
	e.stack = e.stack[:n-1]
	return v, true
}
