package pipeline

import (
	"context"
	"errors"
	"time"

	"github.com/Veraticus/the-data-must-flow/internal/common"
	"github.com/Veraticus/the-data-must-flow/internal/model"
	"golang.org/x/sync/errgroup"
)

// Input is one document's text.
type Input struct {
	Filename string
	Text     string
}

// BatchOptions configures ProcessBatch.
type BatchOptions struct {
	// OnDocument is called after each document completes. With Workers > 1
	// it is called from multiple goroutines.
	OnDocument func(doc *model.DocumentResult)
	Enabled    []string
	Workers    int
}

// BatchResult holds the documents processed by a batch, in input order.
type BatchResult struct {
	Documents   []*model.DocumentResult
	Usable      []*model.DocumentResult
	Duration    time.Duration
	Skipped     int
	Interrupted bool
}

// ProcessBatch runs the pipeline over inputs. Documents are independent; with
// Workers > 1 they run concurrently, but results keep input order. Cancelling
// ctx stops new documents from starting; documents already running finish
// with their LLM calls intact and are returned.
//
// Documents where no extractor succeeded are excluded from Usable. If no
// document is usable the result is returned together with common.ErrNoResults.
func (p *Pipeline) ProcessBatch(ctx context.Context, inputs []Input, opts BatchOptions) (*BatchResult, error) {
	start := time.Now()
	workers := opts.Workers
	if workers < 1 {
		workers = 1
	}

	slots := make([]*model.DocumentResult, len(inputs))

	var g errgroup.Group
	g.SetLimit(workers)
	for i, in := range inputs {
		if ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if ctx.Err() != nil {
				return nil
			}
			// A started document runs to completion after an interrupt
			doc := p.ProcessDocument(context.WithoutCancel(ctx), in.Text, in.Filename, opts.Enabled)
			slots[i] = doc
			if opts.OnDocument != nil {
				opts.OnDocument(doc)
			}
			return nil
		})
	}
	_ = g.Wait()

	result := &BatchResult{Interrupted: errors.Is(ctx.Err(), context.Canceled) || errors.Is(ctx.Err(), context.DeadlineExceeded)}
	for i, doc := range slots {
		if doc == nil {
			continue
		}
		result.Documents = append(result.Documents, doc)
		if Usable(doc) {
			result.Usable = append(result.Usable, doc)
		} else {
			result.Skipped++
			p.logger.Warn("Document produced no usable results", "filename", inputs[i].Filename)
		}
	}
	result.Duration = time.Since(start)

	if result.Interrupted {
		p.logger.Warn("Batch interrupted",
			"completed", len(result.Documents),
			"total", len(inputs))
	}

	if len(result.Usable) == 0 {
		return result, common.ErrNoResults
	}
	return result, nil
}
