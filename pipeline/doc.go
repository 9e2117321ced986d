// Package pipeline builds a graph of elements from a config.PipelineConfig.
//
// Build instantiates every element through a Runtime in declaration order
// and links the configured endpoints. An endpoint is "element" or
// "element.pad"; without a pad name the first free pad of the right
// direction is used, and a request pad is created when none is free.
//
//	p, err := pipeline.Build(rt, cfg.Pipeline)
//	if err != nil {
//		return err
//	}
//	defer p.Close()
//	if err := p.Start(ctx); err != nil {
//		return err
//	}
//	err = p.Wait(ctx)
//
// Start starts outputs and processors before sources so the first buffer
// always finds an active downstream. Wait returns once every started
// source has reached end of stream or been stopped.
package pipeline
