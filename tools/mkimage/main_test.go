package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/psilLang/wordvm/pkg/imagefile"
)

func TestCompileFile(t *testing.T) {
	out := t.TempDir()
	if err := compileFile("../../testdata/programs/sum.wvs", out, false, true); err != nil {
		t.Fatalf("compileFile: %v", err)
	}

	b, err := imagefile.ReadFile(filepath.Join(out, "sum.wvi"))
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if b.Name != "sum" {
		t.Errorf("Name = %q", b.Name)
	}
	if _, ok := b.Labels["loop"]; !ok {
		t.Errorf("labels = %v", b.Labels)
	}

	raw, err := os.ReadFile(filepath.Join(out, "sum.bin"))
	if err != nil {
		t.Fatalf("raw file: %v", err)
	}
	if string(raw) != string(b.Image.Bytes()) {
		t.Error("raw bytes differ from image code")
	}
}

func TestCompileFileError(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "bad.wvs")
	os.WriteFile(src, []byte("frob 1\n"), 0o644)
	if err := compileFile(src, dir, false, false); err == nil {
		t.Error("compileFile accepted an unknown instruction")
	}
}
