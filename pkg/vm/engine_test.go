package vm

import (
	"bytes"
	"errors"
	"testing"

	"github.com/psilLang/wordvm/pkg/bytecode"
	"github.com/psilLang/wordvm/pkg/isa"
)

func build(f func(b *bytecode.Builder)) *bytecode.Image {
	b := bytecode.NewBuilder()
	f(b)
	return b.Seal()
}

// run executes img from the given stack and returns the engine
func run(t *testing.T, img *bytecode.Image, stack ...Word) (*Engine, error) {
	t.Helper()
	e, err := New(img)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	var out bytes.Buffer
	e.Output = &out
	for _, w := range stack {
		e.Push(w)
	}
	return e, e.Run()
}

func expectStack(t *testing.T, e *Engine, want ...Word) {
	t.Helper()
	got := e.Stack()
	if len(got) != len(want) {
		t.Fatalf("stack = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("stack = %v, want %v", got, want)
		}
	}
}

func TestArithmetic(t *testing.T) {
	img := build(func(b *bytecode.Builder) {
		b.Emit(isa.PushConst, 3)
		b.Emit(isa.PushConst, 4)
		b.Emit(isa.WrapAddStack)
	})
	e, err := run(t, img)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	expectStack(t, e, 7)
	if e.State() != Halted {
		t.Errorf("state = %v, want halted", e.State())
	}
	if e.Steps() != 3 {
		t.Errorf("Steps() = %d, want 3", e.Steps())
	}
}

func TestWraparound(t *testing.T) {
	img := build(func(b *bytecode.Builder) {
		b.Emit(isa.PushConst, bytecode.MaxWord)
		b.Emit(isa.PushConst, bytecode.MaxWord)
		b.Emit(isa.WrapAddStack)
	})
	e, err := run(t, img)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	expectStack(t, e, bytecode.MaxWord-1)
}

func TestDecStack(t *testing.T) {
	img := build(func(b *bytecode.Builder) { b.Emit(isa.DecStack) })

	e, err := run(t, img, 5, 10)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	expectStack(t, e, 5, 9)

	e, err = run(t, img, 0)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	expectStack(t, e, bytecode.MaxWord)
}

func TestUnderflow(t *testing.T) {
	tests := []struct {
		name  string
		op    isa.Opcode
		args  []Word
		stack []Word
	}{
		{"TosDown empty", isa.TosDown, nil, nil},
		{"DecStack empty", isa.DecStack, nil, nil},
		{"WrapAddStack one", isa.WrapAddStack, nil, []Word{1}},
		{"Store empty", isa.Store, []Word{0}, nil},
		{"IfNzJmp empty", isa.IfNzJmp, []Word{0}, nil},
		{"SysOut empty", isa.SysOut, nil, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			img := build(func(b *bytecode.Builder) { b.Emit(tt.op, tt.args...) })
			e, err := run(t, img, tt.stack...)
			if !errors.Is(err, ErrStackUnderflow) {
				t.Fatalf("err = %v, want ErrStackUnderflow", err)
			}
			var f *Fault
			if !errors.As(err, &f) || f.Op != tt.op || f.Offset != 0 {
				t.Errorf("fault = %#v", f)
			}
			if e.State() != Faulted {
				t.Errorf("state = %v, want faulted", e.State())
			}
			expectStack(t, e, tt.stack...)
		})
	}
}

func TestConditionalSkip(t *testing.T) {
	img := build(func(b *bytecode.Builder) {
		b.Emit(isa.PushConst, 0)
		target := Word(b.Len() + 2*(1+bytecode.WordSize))
		b.Emit(isa.IfNzJmp, target)
		b.Emit(isa.PushConst, 9)
	})
	e, err := run(t, img)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	expectStack(t, e, 9)
}

func TestConditionalTaken(t *testing.T) {
	img := build(func(b *bytecode.Builder) {
		b.Emit(isa.PushConst, 1)
		target := Word(b.Len() + 2*(1+bytecode.WordSize))
		b.Emit(isa.IfNzJmp, target)
		b.Emit(isa.PushConst, 9)
	})
	e, err := run(t, img)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	expectStack(t, e)
}

func TestUnconditionalJump(t *testing.T) {
	img := build(func(b *bytecode.Builder) {
		b.Emit(isa.JmpTo, Word(2*(1+bytecode.WordSize)))
		b.Emit(isa.PushConst, 1)
	})
	e, err := run(t, img)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	expectStack(t, e)
	if e.Steps() != 1 {
		t.Errorf("Steps() = %d, want 1", e.Steps())
	}
}

func TestLoadStore(t *testing.T) {
	img := build(func(b *bytecode.Builder) { b.Emit(isa.Load, 0) })
	e, err := run(t, img, 10, 20)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	expectStack(t, e, 10, 20, 10)

	img = build(func(b *bytecode.Builder) { b.Emit(isa.Store, 1) })
	e, err = run(t, img, 10, 20, 10)
	if err != nil {
		t.Fatalf("Store: %v", err)
	}
	expectStack(t, e, 10, 10)
}

func TestInvalidIndex(t *testing.T) {
	tests := []struct {
		name  string
		op    isa.Opcode
		idx   Word
		stack []Word
	}{
		{"Load empty", isa.Load, 0, nil},
		{"Load past top", isa.Load, 2, []Word{1, 2}},
		{"Load huge", isa.Load, bytecode.MaxWord, []Word{1}},
		{"Store into popped slot", isa.Store, 1, []Word{1, 2}},
		{"Store single", isa.Store, 0, []Word{1}},
		{"Store huge", isa.Store, bytecode.MaxWord, []Word{1, 2}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			img := build(func(b *bytecode.Builder) { b.Emit(tt.op, tt.idx) })
			e, err := run(t, img, tt.stack...)
			if !errors.Is(err, ErrInvalidIndex) {
				t.Fatalf("err = %v, want ErrInvalidIndex", err)
			}
			expectStack(t, e, tt.stack...)
		})
	}
}

func TestSysOut(t *testing.T) {
	img := build(func(b *bytecode.Builder) {
		msg := "hello\n"
		for i := len(msg) - 1; i >= 0; i-- {
			b.Emit(isa.PushConst, Word(msg[i]))
		}
		for range msg {
			b.Emit(isa.SysOut)
		}
	})

	var out bytes.Buffer
	stack, err := Run(img, &out)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if out.String() != "hello\n" {
		t.Errorf("output = %q, want %q", out.String(), "hello\n")
	}
	if len(stack) != 0 {
		t.Errorf("stack = %v, want empty", stack)
	}
}

func TestSysOutLowByte(t *testing.T) {
	img := build(func(b *bytecode.Builder) {
		b.Emit(isa.PushConst, 0x341)
		b.Emit(isa.SysOut)
	})
	var out bytes.Buffer
	if _, err := Run(img, &out); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if out.String() != "A" {
		t.Errorf("output = %q, want %q", out.String(), "A")
	}
}

func TestCountdownLoop(t *testing.T) {
	// stack[0] counts down from 5; each pass prints '*'
	img := build(func(b *bytecode.Builder) {
		b.Emit(isa.PushConst, 5)
		loop := Word(b.Len())
		b.Emit(isa.PushConst, '*')
		b.Emit(isa.SysOut)
		b.Emit(isa.DecStack)
		b.Emit(isa.Load, 0)
		b.Emit(isa.IfNzJmp, loop)
	})

	var out bytes.Buffer
	stack, err := Run(img, &out)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if out.String() != "*****" {
		t.Errorf("output = %q", out.String())
	}
	if len(stack) != 1 || stack[0] != 0 {
		t.Errorf("stack = %v, want [0]", stack)
	}
}

func TestMalformedImageRejected(t *testing.T) {
	short := []byte{byte(isa.PushConst)}
	short = append(short, make([]byte, bytecode.WordSize/2)...)

	tests := []struct {
		name string
		img  *bytecode.Image
		want error
	}{
		{"truncated trailing operand", bytecode.NewImage(short), bytecode.ErrTruncatedOperand},
		{"invalid opcode", bytecode.NewImage([]byte{0xEE}), bytecode.ErrInvalidOpcode},
		{"jump mid record", build(func(b *bytecode.Builder) {
			b.Emit(isa.PushConst, 1)
			b.Emit(isa.IfNzJmp, 3)
		}), bytecode.ErrBadJumpTarget},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, err := New(tt.img)
			if !errors.Is(err, tt.want) {
				t.Fatalf("New err = %v, want %v", err, tt.want)
			}
			if e != nil {
				t.Error("engine created for malformed image")
			}
		})
	}
}

func TestStepLimit(t *testing.T) {
	img := build(func(b *bytecode.Builder) {
		b.Emit(isa.JmpTo, 0)
	})
	e, err := New(img)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	e.MaxSteps = 100
	err = e.Run()
	if !errors.Is(err, ErrStepLimit) {
		t.Fatalf("err = %v, want ErrStepLimit", err)
	}
	if e.Steps() != 100 {
		t.Errorf("Steps() = %d, want 100", e.Steps())
	}
}

func TestStepLimitLeavesPCOnPendingRecord(t *testing.T) {
	img := build(func(b *bytecode.Builder) {
		b.Emit(isa.PushConst, 1)
		b.Emit(isa.PushConst, 2)
	})
	e, _ := New(img)
	e.MaxSteps = 1
	err := e.Run()
	if !errors.Is(err, ErrStepLimit) {
		t.Fatalf("err = %v, want ErrStepLimit", err)
	}
	want := 1 + bytecode.WordSize
	if e.PC() != want {
		t.Errorf("PC() = %d, want %d", e.PC(), want)
	}
	var f *Fault
	if !errors.As(err, &f) || f.Offset != want {
		t.Errorf("fault = %v, want offset %d", err, want)
	}
	expectStack(t, e, 1)
}

func TestStepLimitNotHitOnHalt(t *testing.T) {
	img := build(func(b *bytecode.Builder) {
		b.Emit(isa.PushConst, 1)
		b.Emit(isa.PushConst, 2)
	})
	e, _ := New(img)
	e.MaxSteps = 2
	if err := e.Run(); err != nil {
		t.Errorf("Run() = %v, want clean halt", err)
	}
}

func TestTerminalResultIsSticky(t *testing.T) {
	img := build(func(b *bytecode.Builder) { b.Emit(isa.TosDown) })
	e, err := run(t, img)
	if err == nil {
		t.Fatal("expected fault")
	}
	more, again := e.Step()
	if more || again != err {
		t.Errorf("Step after fault = %v, %v; want false, %v", more, again, err)
	}
	if e.Err() != err {
		t.Errorf("Err() = %v", e.Err())
	}
}

// TestDispatchCoversCatalog runs every opcode once and fails if one falls
// through to the unhandled case.
func TestDispatchCoversCatalog(t *testing.T) {
	for _, op := range isa.All() {
		t.Run(op.String(), func(t *testing.T) {
			img := build(func(b *bytecode.Builder) {
				args := make([]Word, op.Arity())
				if op.IsJump() {
					args[0] = Word(1 + op.Arity()*bytecode.WordSize)
				}
				b.Emit(op, args...)
			})
			_, err := run(t, img, 1, 2, 3)
			if errors.Is(err, ErrUnhandledOpcode) {
				t.Fatalf("%v has no dispatch case", op)
			}
			if err != nil {
				t.Fatalf("Run: %v", err)
			}
		})
	}
}
