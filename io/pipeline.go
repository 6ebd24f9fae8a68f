package io

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"
)

// PipelineWriter receives items from writerChan and hands them to write.
func PipelineWriter[T any](ctx context.Context, write func(T) error, writerChan <-chan T, target string) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case item, more := <-writerChan:
			if !more {
				return nil
			}
			if err := write(item); err != nil {
				return fmt.Errorf("failed to write data to [%s]: %w", target, err)
			}
		}
	}
}

// Send delivers item to writerChan unless ctx is cancelled first.
func Send[T any](ctx context.Context, writerChan chan<- T, item T) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case writerChan <- item:
		return nil
	}
}

// RunPipeline runs produce and a writer in parallel using errgroup. produce
// sends items through an internal channel to write. If either side fails,
// the shared context is cancelled so the other side exits promptly.
func RunPipeline[T any](ctx context.Context, produce func(context.Context, chan<- T) error, write func(T) error, target string, buffer int) error {
	g, gctx := errgroup.WithContext(ctx)
	writerChan := make(chan T, buffer)

	g.Go(func() error {
		return PipelineWriter(gctx, write, writerChan, target)
	})

	g.Go(func() error {
		defer close(writerChan)
		return produce(gctx, writerChan)
	})

	return g.Wait()
}
