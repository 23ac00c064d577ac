package bytecode

import (
	"fmt"
	"sort"

	"github.com/psilLang/wordvm/pkg/isa"
)

// Validate scans the whole image once and reports the first defect:
// an unknown opcode byte, a truncated record, or a jump whose target is
// neither a record start nor the end of the image. The result is cached.
func (img *Image) Validate() error {
	img.once.Do(img.scan)
	return img.err
}

// RecordStarts returns the offsets of every record, in order.
func (img *Image) RecordStarts() ([]int, error) {
	if err := img.Validate(); err != nil {
		return nil, err
	}
	return append([]int(nil), img.starts...), nil
}

type jumpRef struct {
	offset int
	target Word
}

func (img *Image) scan() {
	buf := make([]Word, isa.MaxArity())
	var (
		starts []int
		jumps  []jumpRef
	)

	for off := 0; off < len(img.code); {
		in, err := img.RecordAt(off, buf)
		if err != nil {
			img.err = err
			return
		}
		starts = append(starts, off)
		if in.Op.IsJump() {
			jumps = append(jumps, jumpRef{off, in.Operands[0]})
		}
		off = in.Next()
	}

	end := Word(len(img.code))
	for _, j := range jumps {
		if j.target == end {
			continue
		}
		if j.target < end {
			t := int(j.target)
			if i := sort.SearchInts(starts, t); i < len(starts) && starts[i] == t {
				continue
			}
		}
		img.err = &DecodeError{Offset: j.offset, Err: ErrBadJumpTarget, Detail: fmt.Sprintf("target %d", j.target)}
		return
	}
	img.starts = starts
}
