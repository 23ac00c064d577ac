package bytecode

import (
	"errors"
	"testing"

	"github.com/psilLang/wordvm/pkg/isa"
)

func buildWith(f func(b *Builder)) *Image {
	b := NewBuilder()
	f(b)
	return b.Seal()
}

func TestBuilderLayout(t *testing.T) {
	img := buildWith(func(b *Builder) {
		b.Args[0] = 72
		b.Append(isa.PushConst)
		b.Append(isa.SysOut)
	})

	want := 1 + WordSize + 1
	if img.Len() != want {
		t.Fatalf("Len() = %d, want %d", img.Len(), want)
	}
	code := img.Bytes()
	if code[0] != byte(isa.PushConst) {
		t.Errorf("code[0] = 0x%02X, want PushConst", code[0])
	}
	if got := ReadWord(code[1:]); got != 72 {
		t.Errorf("operand = %d, want 72", got)
	}
	if code[1+WordSize] != byte(isa.SysOut) {
		t.Errorf("code[%d] = 0x%02X, want SysOut", 1+WordSize, code[1+WordSize])
	}
}

func TestBuilderArgsSizedByCatalog(t *testing.T) {
	b := NewBuilder()
	if len(b.Args) != isa.MaxArity() {
		t.Errorf("len(Args) = %d, want %d", len(b.Args), isa.MaxArity())
	}
}

func TestBuilderIgnoresArgsForZeroArity(t *testing.T) {
	img := buildWith(func(b *Builder) {
		b.Args[0] = 99
		b.Append(isa.TosDown)
	})
	if img.Len() != 1 {
		t.Errorf("Len() = %d, want 1", img.Len())
	}
}

func TestBuilderLen(t *testing.T) {
	b := NewBuilder()
	if b.Len() != 0 {
		t.Fatalf("empty builder Len() = %d", b.Len())
	}
	b.Emit(isa.PushConst, 1)
	b.Emit(isa.WrapAddStack)
	if want := 1 + WordSize + 1; b.Len() != want {
		t.Errorf("Len() = %d, want %d", b.Len(), want)
	}
}

func expectPanic(t *testing.T, f func()) any {
	t.Helper()
	var got any
	func() {
		defer func() { got = recover() }()
		f()
	}()
	if got == nil {
		t.Fatal("expected panic")
	}
	return got
}

func TestBuilderEmitArityMismatch(t *testing.T) {
	b := NewBuilder()
	expectPanic(t, func() { b.Emit(isa.PushConst) })
	expectPanic(t, func() { b.Emit(isa.TosDown, 1) })
}

func TestBuilderUnknownOpcode(t *testing.T) {
	b := NewBuilder()
	expectPanic(t, func() { b.Append(isa.Opcode(0xEE)) })
}

func TestBuilderSealedRejectsUse(t *testing.T) {
	b := NewBuilder()
	b.Emit(isa.PushConst, 1)
	b.Seal()

	got := expectPanic(t, func() { b.Emit(isa.TosDown) })
	if err, ok := got.(error); !ok || !errors.Is(err, ErrSealed) {
		t.Errorf("panic value = %v, want ErrSealed", got)
	}
	expectPanic(t, func() { b.Seal() })
}
