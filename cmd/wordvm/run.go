package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/dustin/go-humanize"
	"github.com/psilLang/wordvm/pkg/batch"
	"github.com/psilLang/wordvm/pkg/bytecode"
	"github.com/psilLang/wordvm/pkg/isa"
	"github.com/psilLang/wordvm/pkg/vm"
)

func (c *cli) cmdRun(args []string) int {
	fs := c.flags("run")
	trace := fs.Bool("trace", c.cfg.Run.Trace, "Print every dispatched instruction")
	maxSteps := fs.Int("max-steps", c.cfg.Run.MaxSteps, "Step limit (0 = unlimited)")
	stackFlag := fs.String("stack", "", "Initial stack, comma separated, bottom first")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() != 1 {
		fmt.Fprintln(c.stderr, "Usage: wordvm run [-trace] [-max-steps N] [-stack a,b,..] <file>")
		return 2
	}
	stack, err := parseStack(*stackFlag)
	if err != nil {
		return c.fail("Error", err)
	}

	b, err := c.load(fs.Arg(0))
	if err != nil {
		return c.fail("Error", err)
	}
	e, err := vm.New(b.Image)
	if err != nil {
		return c.fail("Invalid image", err)
	}
	e.Output = c.stdout
	e.MaxSteps = *maxSteps
	if *trace {
		e.Trace = vm.Chain(vm.WriterTrace(c.stdout), vm.LogTrace(c.log))
	}
	for _, w := range stack {
		e.Push(w)
	}

	c.log.Info("running", "image", b.Name, "size", b.Image.Len())
	err = e.Run()
	c.log.Info("finished", "image", b.Name, "steps", e.Steps(), "state", e.State())

	fmt.Fprintln(c.stdout)
	fmt.Fprintln(c.stdout, "Stack:", e.Stack())
	if err != nil {
		return c.fail("Runtime error", err)
	}
	return 0
}

// helloImage builds "hello, world\n" with the Builder: every character is
// pushed in reverse so the first one ends up on top, then printed.
func helloImage() *bytecode.Image {
	const msg = "hello, world\n"
	b := bytecode.NewBuilder()
	for i := len(msg) - 1; i >= 0; i-- {
		b.Args[0] = bytecode.Word(msg[i])
		b.Append(isa.PushConst)
	}
	for range msg {
		b.Append(isa.SysOut)
	}
	return b.Seal()
}

func (c *cli) cmdDemo(args []string) int {
	if len(args) != 0 {
		fmt.Fprintln(c.stderr, "Usage: wordvm demo")
		return 2
	}
	img := helloImage()
	fmt.Fprintln(c.stdout, img)

	e, err := vm.New(img)
	if err != nil {
		return c.fail("Invalid image", err)
	}
	e.Output = c.stdout
	e.Trace = vm.WriterTrace(c.stdout)
	if err := e.Run(); err != nil {
		return c.fail("Runtime error", err)
	}
	fmt.Fprintln(c.stdout, "Stack:", e.Stack())
	return 0
}

func (c *cli) cmdBatch(args []string) int {
	fs := c.flags("batch")
	n := fs.Int("n", 1, "Number of copies")
	workers := fs.Int("workers", c.cfg.Run.Workers, "Concurrent engines")
	maxSteps := fs.Int("max-steps", c.cfg.Run.MaxSteps, "Per-copy step limit (0 = unlimited)")
	seed := fs.Bool("seed", false, "Seed copy i with the stack [i]")
	stackFlag := fs.String("stack", "", "Initial stack for every copy, comma separated")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() != 1 || *n < 1 {
		fmt.Fprintln(c.stderr, "Usage: wordvm batch [-n N] [-workers N] [-seed] <file>")
		return 2
	}
	base, err := parseStack(*stackFlag)
	if err != nil {
		return c.fail("Error", err)
	}

	b, err := c.load(fs.Arg(0))
	if err != nil {
		return c.fail("Error", err)
	}

	jobs := make([]batch.Job, *n)
	for i := range jobs {
		stack := append([]vm.Word(nil), base...)
		if *seed {
			stack = append(stack, vm.Word(i))
		}
		jobs[i] = batch.Job{Name: fmt.Sprintf("%s#%d", b.Name, i), Stack: stack}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	results, err := batch.Run(ctx, b.Image, jobs, batch.Options{
		Workers:  *workers,
		MaxSteps: *maxSteps,
		Log:      c.log,
	})
	if err != nil && results == nil {
		return c.fail("Error", err)
	}

	failed, skipped := 0, 0
	for _, r := range results {
		if !r.Ran() {
			skipped++
			fmt.Fprintf(c.stdout, "%-8s  %-12s not run: %v\n", "-", r.Name, r.Err)
			continue
		}
		status := "ok"
		if r.Err != nil {
			status = r.Err.Error()
			failed++
		}
		fmt.Fprintf(c.stdout, "%s  %-12s steps=%-8s stack=%v output=%q  %s\n",
			r.ID.String()[:8], r.Name, humanize.Comma(int64(r.Steps)), r.Stack, r.Output, status)
	}
	if skipped > 0 {
		fmt.Fprintf(c.stderr, "%d of %d copies not run\n", skipped, len(results))
	}
	if err != nil {
		return c.fail("Error", err)
	}
	if failed > 0 {
		fmt.Fprintf(c.stderr, "%d of %d copies faulted\n", failed, len(results))
		return 1
	}
	return 0
}
