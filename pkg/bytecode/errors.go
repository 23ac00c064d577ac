package bytecode

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidOpcode    = errors.New("invalid opcode")
	ErrTruncatedOperand = errors.New("truncated operand")
	ErrBadJumpTarget    = errors.New("jump target is not a record start")

	// ErrSealed is the panic value of a Builder used after Seal.
	ErrSealed = errors.New("bytecode: builder already sealed")
)

// DecodeError reports a malformed image at a byte offset.
type DecodeError struct {
	Offset int
	Err    error
	Detail string
}

func (e *DecodeError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("bytecode: %v at offset %d (%s)", e.Err, e.Offset, e.Detail)
	}
	return fmt.Sprintf("bytecode: %v at offset %d", e.Err, e.Offset)
}

func (e *DecodeError) Unwrap() error { return e.Err }
