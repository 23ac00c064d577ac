package vm

import (
	"fmt"
	"io"

	"github.com/psilLang/wordvm/pkg/bytecode"
	"github.com/tliron/commonlog"
)

// Observer is called with each decoded instruction before it executes.
// stack is the live stack; observers must not keep or modify it.
type Observer func(in bytecode.Instruction, stack []Word)

// WriterTrace prints one line per instruction to w.
func WriterTrace(w io.Writer) Observer {
	return func(in bytecode.Instruction, stack []Word) {
		fmt.Fprintf(w, "  [%04X] VM handling %v with args %v stack=%v\n", in.Offset, in.Op, in.Operands, stack)
	}
}

// LogTrace reports each instruction at debug level.
func LogTrace(log commonlog.Logger) Observer {
	return func(in bytecode.Instruction, stack []Word) {
		log.Debug("dispatch",
			"offset", in.Offset,
			"op", in.Op.String(),
			"args", fmt.Sprint(in.Operands),
			"depth", len(stack))
	}
}

// Chain calls each non-nil observer in order.
func Chain(observers ...Observer) Observer {
	var set []Observer
	for _, o := range observers {
		if o != nil {
			set = append(set, o)
		}
	}
	switch len(set) {
	case 0:
		return nil
	case 1:
		return set[0]
	}
	return func(in bytecode.Instruction, stack []Word) {
		for _, o := range set {
			o(in, stack)
		}
	}
}
