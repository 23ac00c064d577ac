// Package batch runs one image against many initial stacks in parallel.
//
// The image is shared read-only; every job gets its own engine.
package batch

import (
	"bytes"
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/psilLang/wordvm/pkg/bytecode"
	"github.com/psilLang/wordvm/pkg/vm"
	"github.com/tliron/commonlog"
	"golang.org/x/sync/errgroup"
)

// Job is one run request.
type Job struct {
	Name  string
	Stack []vm.Word // initial stack, bottom first
}

// Result is the outcome of one job. A faulting job reports through Err
// and does not stop the batch. A job that never started has a nil ID and
// the cancellation error.
type Result struct {
	ID     uuid.UUID
	Name   string
	Stack  []vm.Word
	Output []byte
	Steps  int
	Err    error
}

// Options tunes a batch run.
type Options struct {
	Workers  int // concurrent engines (default 1)
	MaxSteps int // per-job step limit (0 = unlimited)
	Log      commonlog.Logger
}

// Run executes every job against img and returns results in job order.
// The returned error is non-nil only if img is malformed or ctx is
// cancelled before all jobs finish.
func Run(ctx context.Context, img *bytecode.Image, jobs []Job, opts Options) ([]Result, error) {
	if err := img.Validate(); err != nil {
		return nil, err
	}
	log := opts.Log
	if log == nil {
		log = commonlog.GetLogger("wordvm.batch")
	}
	workers := opts.Workers
	if workers < 1 {
		workers = 1
	}

	results := make([]Result, len(jobs))
	for i, job := range jobs {
		results[i].Name = job.Name
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for i, job := range jobs {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			results[i] = runJob(img, job, opts.MaxSteps)
			r := &results[i]
			if r.Err != nil {
				log.Warning("job faulted", "id", r.ID, "job", r.Name, "error", r.Err)
			} else {
				log.Debug("job halted", "id", r.ID, "job", r.Name, "steps", r.Steps)
			}
			return nil
		})
	}

	werr := g.Wait()
	if werr == nil {
		werr = ctx.Err()
	}
	if werr != nil {
		// jobs that never started carry the cancellation
		for i := range results {
			if results[i].ID == uuid.Nil {
				results[i].Err = werr
			}
		}
		return results, fmt.Errorf("batch: %w", werr)
	}
	return results, nil
}

// Ran reports whether the job was started.
func (r *Result) Ran() bool {
	return r.ID != uuid.Nil
}

func runJob(img *bytecode.Image, job Job, maxSteps int) Result {
	r := Result{ID: uuid.New(), Name: job.Name}

	e, err := vm.New(img)
	if err != nil {
		r.Err = err
		return r
	}
	var out bytes.Buffer
	e.Output = &out
	e.MaxSteps = maxSteps
	for _, w := range job.Stack {
		e.Push(w)
	}

	r.Err = e.Run()
	r.Stack = e.Stack()
	r.Steps = e.Steps()
	r.Output = out.Bytes()
	return r
}
