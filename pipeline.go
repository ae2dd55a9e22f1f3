package flattenjson

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// Pipeline runs one FrontEnd (producer) and one Flattener (consumer) on
// a bounded channel, then finalizes output once both have joined
// (spec.md section 5). Ordering is preserved: the consumer processes
// values strictly in the order the front end sent them, so row_number
// assignment inside the Flattener stays sequential.
type Pipeline struct {
	frontEnd  FrontEnd
	flattener *Flattener
}

// pipelineCapacity bounds the number of in-flight records, capping
// memory at roughly that many buffered JSON values regardless of input
// size (spec.md section 5).
const pipelineCapacity = 1000

// NewPipeline pairs a FrontEnd with a Flattener.
func NewPipeline(frontEnd FrontEnd, flattener *Flattener) *Pipeline {
	return &Pipeline{frontEnd: frontEnd, flattener: flattener}
}

// Run drives the front end and the flattener to completion, joins them,
// and finalizes output. A flattener error cancels the front end via ctx;
// a front-end error closes the channel, after which the flattener still
// processes the values already buffered in it. The first error is
// returned and output is not finalized; there is no partial-success
// reporting beyond what was already written to staging.
func (p *Pipeline) Run(ctx context.Context) error {
	ch := make(chan *JSONValue, pipelineCapacity)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return p.frontEnd.Run(gctx, ch)
	})
	g.Go(func() error {
		for v := range ch {
			if err := p.flattener.ProcessValue(v); err != nil {
				return err
			}
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return err
	}
	return p.flattener.WriteFiles()
}
