package main

import (
	"fmt"

	"github.com/psilLang/wordvm/pkg/bytecode"
	"github.com/psilLang/wordvm/pkg/imagefile"
)

func (c *cli) cmdAsm(args []string) int {
	fs := c.flags("asm")
	out := fs.String("o", "", "Output file (default: input with "+imagefile.Ext+")")
	name := fs.String("name", "", "Image name (default: input base name)")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() != 1 {
		fmt.Fprintln(c.stderr, "Usage: wordvm asm [-o out.wvi] [-name N] <file.wvs>")
		return 2
	}
	src := fs.Arg(0)

	b, err := c.load(src)
	if err != nil {
		return c.fail("Assembly error", err)
	}
	if *name != "" {
		b.Name = *name
	}
	if err := b.Image.Validate(); err != nil {
		return c.fail("Invalid image", err)
	}

	path := *out
	if path == "" {
		path = baseName(src) + imagefile.Ext
	}
	if err := imagefile.WriteFile(path, b); err != nil {
		return c.fail("Error", err)
	}
	fmt.Fprintf(c.stdout, "%s -> %s (%d bytes of code, %d labels)\n", src, path, b.Image.Len(), len(b.Labels))
	return 0
}

func (c *cli) cmdDisasm(args []string) int {
	if len(args) != 1 {
		fmt.Fprintln(c.stderr, "Usage: wordvm disasm <file>")
		return 2
	}
	b, err := c.load(args[0])
	if err != nil {
		return c.fail("Error", err)
	}
	fmt.Fprintf(c.stdout, "; %s\n", b.Name)
	fmt.Fprint(c.stdout, bytecode.Disassemble(b.Image, b.Labels))
	if err := b.Image.Validate(); err != nil {
		return c.fail("Invalid image", err)
	}
	return 0
}

func (c *cli) cmdDump(args []string) int {
	if len(args) != 1 {
		fmt.Fprintln(c.stderr, "Usage: wordvm dump <file>")
		return 2
	}
	b, err := c.load(args[0])
	if err != nil {
		return c.fail("Error", err)
	}
	fmt.Fprintln(c.stdout, b.Image)
	for _, l := range bytecode.Labels(b.Labels) {
		fmt.Fprintf(c.stdout, "  %-16s %04X\n", l, b.Labels[l])
	}
	return 0
}
