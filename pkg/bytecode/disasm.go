package bytecode

import (
	"fmt"
	"sort"
	"strings"

	"github.com/psilLang/wordvm/pkg/isa"
)

// String renders the image as a nested debug dump:
//
//	ByteCode [PushConst=0x10 [72=0x48,]SysOut=0x03 []]
//
// The format is diagnostic only.
func (img *Image) String() string {
	var sb strings.Builder
	sb.WriteString("ByteCode [")
	buf := make([]Word, isa.MaxArity())
	for off := 0; off < len(img.code); {
		in, err := img.RecordAt(off, buf)
		if err != nil {
			fmt.Fprintf(&sb, "<%v>", err)
			break
		}
		fmt.Fprintf(&sb, "%v=0x%02X [", in.Op, byte(in.Op))
		for _, w := range in.Operands {
			fmt.Fprintf(&sb, "%d=0x%X,", w, w)
		}
		sb.WriteString("]")
		off = in.Next()
	}
	sb.WriteString("]")
	return sb.String()
}

// Disassemble converts an image back to assembler text. Jump targets are
// printed as labels, taken from labels when given and generated otherwise,
// so the listing assembles back to the same bytes.
func Disassemble(img *Image, labels map[string]int) string {
	names := make(map[int]string)
	for name, off := range labels {
		if cur, ok := names[off]; !ok || name < cur {
			names[off] = name
		}
	}

	buf := make([]Word, isa.MaxArity())
	var (
		records []Instruction
		bad     error
	)
	for off := 0; off < len(img.code); {
		in, err := img.RecordAt(off, buf)
		if err != nil {
			bad = err
			break
		}
		in.Operands = append([]Word(nil), in.Operands...)
		records = append(records, in)
		if in.Op.IsJump() {
			t := int(in.Operands[0])
			if _, ok := names[t]; !ok && in.Operands[0] <= Word(len(img.code)) {
				names[t] = fmt.Sprintf("L%04X", t)
			}
		}
		off = in.Next()
	}

	var sb strings.Builder
	label := func(off int) {
		if name, ok := names[off]; ok {
			sb.WriteString(name + ":\n")
		}
	}
	for _, in := range records {
		label(in.Offset)
		text := in.Op.Mnemonic()
		for i, w := range in.Operands {
			sep := " "
			if i > 0 {
				sep = ", "
			}
			if name, ok := names[int(w)]; ok && in.Op.IsJump() && w <= Word(len(img.code)) {
				text += sep + name
			} else {
				text += sep + fmt.Sprintf("%d", w)
			}
		}
		fmt.Fprintf(&sb, "\t%-24s ; %04X\n", text, in.Offset)
	}
	if bad != nil {
		fmt.Fprintf(&sb, "; %v\n", bad)
		return sb.String()
	}
	label(len(img.code))
	return sb.String()
}

// Labels inverts a name->offset table into offset order, for listings.
func Labels(labels map[string]int) []string {
	names := make([]string, 0, len(labels))
	for name := range labels {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		if labels[names[i]] != labels[names[j]] {
			return labels[names[i]] < labels[names[j]]
		}
		return names[i] < names[j]
	})
	return names
}
