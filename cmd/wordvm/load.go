package main

import (
	"context"
	"fmt"
	"math/bits"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/psilLang/wordvm/pkg/asm"
	"github.com/psilLang/wordvm/pkg/imagefile"
	"github.com/psilLang/wordvm/pkg/store"
	"github.com/psilLang/wordvm/pkg/vm"
)

// load reads an image file, assembles a source file, or fetches a stored
// image when path is "@name".
func (c *cli) load(path string) (*imagefile.Bundle, error) {
	if name, ok := strings.CutPrefix(path, "@"); ok {
		s, err := c.openStore()
		if err != nil {
			return nil, err
		}
		defer s.Close()
		return s.Get(context.Background(), name)
	}

	if filepath.Ext(path) == imagefile.Ext {
		return imagefile.ReadFile(path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	// images under another name are still recognized by content
	if imagefile.IsImage(data) {
		return imagefile.Unmarshal(data)
	}

	prog, err := asm.Assemble(path, string(data))
	if err != nil {
		return nil, err
	}
	return &imagefile.Bundle{
		Name:   baseName(path),
		Image:  prog.Image,
		Labels: prog.Labels,
	}, nil
}

func (c *cli) openStore() (*store.Store, error) {
	return store.Open(c.cfg.StorePath())
}

// baseName strips directory and extension: "dir/hello.wvs" -> "hello".
func baseName(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// parseStack parses a comma-separated list of words, bottom first.
func parseStack(s string) ([]vm.Word, error) {
	if s == "" {
		return nil, nil
	}
	var stack []vm.Word
	for _, f := range strings.Split(s, ",") {
		n, err := strconv.ParseUint(strings.TrimSpace(f), 0, bits.UintSize)
		if err != nil {
			return nil, fmt.Errorf("invalid stack value %q", f)
		}
		stack = append(stack, vm.Word(n))
	}
	return stack, nil
}
