package main

import (
	"context"
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/psilLang/wordvm/pkg/imagefile"
)

// cmdStore processes the `wordvm store` subcommand.
// Usage:
//
//	wordvm store put <file> [name]     Assemble or read file and store it
//	wordvm store get <name> <out.wvi>  Write a stored image to a file
//	wordvm store ls                    List stored images
//	wordvm store rm <name>             Delete a stored image
func (c *cli) cmdStore(args []string) int {
	if len(args) == 0 {
		fmt.Fprintln(c.stderr, "Usage: wordvm store [put|get|ls|rm] ...")
		fmt.Fprintln(c.stderr, "  put <file> [name]     Store a source or image file")
		fmt.Fprintln(c.stderr, "  get <name> <out.wvi>  Write a stored image to a file")
		fmt.Fprintln(c.stderr, "  ls                    List stored images")
		fmt.Fprintln(c.stderr, "  rm <name>             Delete a stored image")
		return 2
	}

	s, err := c.openStore()
	if err != nil {
		return c.fail("Error", err)
	}
	defer s.Close()
	ctx := context.Background()

	switch args[0] {
	case "put":
		if len(args) < 2 || len(args) > 3 {
			fmt.Fprintln(c.stderr, "Usage: wordvm store put <file> [name]")
			return 2
		}
		b, err := c.load(args[1])
		if err != nil {
			return c.fail("Error", err)
		}
		if len(args) == 3 {
			b.Name = args[2]
		}
		if err := b.Image.Validate(); err != nil {
			return c.fail("Invalid image", err)
		}
		e, err := s.Put(ctx, b)
		if err != nil {
			return c.fail("Error", err)
		}
		fmt.Fprintf(c.stdout, "stored %s (%s, %s)\n", e.Name, humanize.Bytes(uint64(e.Size)), e.Hash[:12])

	case "get":
		if len(args) != 3 {
			fmt.Fprintln(c.stderr, "Usage: wordvm store get <name> <out.wvi>")
			return 2
		}
		b, err := s.Get(ctx, args[1])
		if err != nil {
			return c.fail("Error", err)
		}
		if err := imagefile.WriteFile(args[2], b); err != nil {
			return c.fail("Error", err)
		}
		fmt.Fprintf(c.stdout, "wrote %s\n", args[2])

	case "ls":
		entries, err := s.List(ctx)
		if err != nil {
			return c.fail("Error", err)
		}
		if len(entries) == 0 {
			fmt.Fprintln(c.stdout, "No images stored")
			return 0
		}
		for _, e := range entries {
			fmt.Fprintf(c.stdout, "%-20s %10s  %s  %s\n",
				e.Name, humanize.Bytes(uint64(e.Size)), e.Hash[:12], humanize.Time(e.CreatedAt))
		}

	case "rm":
		if len(args) != 2 {
			fmt.Fprintln(c.stderr, "Usage: wordvm store rm <name>")
			return 2
		}
		if err := s.Delete(ctx, args[1]); err != nil {
			return c.fail("Error", err)
		}
		fmt.Fprintf(c.stdout, "removed %s\n", args[1])

	default:
		fmt.Fprintf(c.stderr, "Unknown store subcommand: %s\n", args[0])
		return 2
	}
	return 0
}
