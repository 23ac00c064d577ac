// mkimage assembles .wvs source files into .wvi image files.
//
// Usage: go run ./tools/mkimage -o testdata/images testdata/programs/*.wvs
//
// With -raw the bare code bytes are also written as <name>.bin, in host
// word size and byte order.
package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/psilLang/wordvm/pkg/asm"
	"github.com/psilLang/wordvm/pkg/bytecode"
	"github.com/psilLang/wordvm/pkg/imagefile"
)

func main() {
	outDir := flag.String("o", ".", "Output directory")
	disasm := flag.Bool("disasm", false, "Print disassembly")
	raw := flag.Bool("raw", false, "Also write raw code bytes")
	flag.Parse()

	if flag.NArg() == 0 {
		fmt.Fprintln(os.Stderr, "Usage: mkimage [-o outdir] [-disasm] [-raw] <file.wvs>...")
		os.Exit(1)
	}
	if err := os.MkdirAll(*outDir, 0o755); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	for _, path := range flag.Args() {
		if err := compileFile(path, *outDir, *disasm, *raw); err != nil {
			fmt.Fprintf(os.Stderr, "Error compiling %s: %v\n", path, err)
			os.Exit(1)
		}
	}
}

func compileFile(path, outDir string, showDisasm, writeRaw bool) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	baseName := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))

	prog, err := asm.Assemble(path, string(data))
	if err != nil {
		return err
	}
	if err := prog.Image.Validate(); err != nil {
		return err
	}
	code := prog.Image.Bytes()

	if showDisasm {
		fmt.Printf("=== %s (%d bytes) ===\n", baseName, len(code))
		fmt.Print(bytecode.Disassemble(prog.Image, prog.Labels))
		fmt.Printf("Hex: ")
		for _, b := range code {
			fmt.Printf("%02X ", b)
		}
		fmt.Println()
	}

	imgPath := filepath.Join(outDir, baseName+imagefile.Ext)
	err = imagefile.WriteFile(imgPath, &imagefile.Bundle{
		Name:   baseName,
		Image:  prog.Image,
		Labels: prog.Labels,
	})
	if err != nil {
		return fmt.Errorf("write image: %w", err)
	}
	fmt.Printf("%s: %d bytes -> %s\n", baseName, len(code), imgPath)

	if writeRaw {
		rawPath := filepath.Join(outDir, baseName+".bin")
		if err := os.WriteFile(rawPath, code, 0o644); err != nil {
			return fmt.Errorf("write raw: %w", err)
		}
		fmt.Printf("%s: raw code -> %s\n", baseName, rawPath)
	}
	return nil
}
