// Package bus fans tick update batches out from the engine to its sinks
// (WebSocket hub, Redis publisher, SQLite history writer).
package bus

import (
	"context"
	"log"
	"sync"

	"price-engine/internal/model"
)

// FanOut broadcasts update batches from a single input channel to N output
// channels. Batches are forwarded whole, so a sink either sees a full tick
// or none of it. If an output channel is full the batch is dropped for that
// sink to prevent a slow consumer from blocking the tick loop.
type FanOut struct {
	mu      sync.RWMutex
	outputs []chan []model.PriceUpdate
	bufSize int

	// OnDrop is called when a batch is dropped for a sink.
	// sinkIdx is the 0-based index of the slow consumer.
	OnDrop func(sinkIdx int)
}

// New creates a FanOut with the given buffer size for output channels.
func New(outputBufferSize int) *FanOut {
	return &FanOut{bufSize: outputBufferSize}
}

// Subscribe creates and returns a new output channel.
func (f *FanOut) Subscribe() <-chan []model.PriceUpdate {
	ch := make(chan []model.PriceUpdate, f.bufSize)
	f.mu.Lock()
	f.outputs = append(f.outputs, ch)
	f.mu.Unlock()
	return ch
}

// Run reads from the input channel and fans out to all sinks.
// Blocks until ctx is cancelled or input is closed; output channels are
// closed on exit so sinks can drain and stop.
func (f *FanOut) Run(ctx context.Context, input <-chan []model.PriceUpdate) {
	defer func() {
		f.mu.RLock()
		for _, ch := range f.outputs {
			close(ch)
		}
		f.mu.RUnlock()
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case batch, ok := <-input:
			if !ok {
				return
			}
			f.mu.RLock()
			for i, ch := range f.outputs {
				select {
				case ch <- batch:
				default:
					if f.OnDrop != nil {
						f.OnDrop(i)
					} else {
						log.Printf("[bus] sink %d full, dropping batch of %d updates", i, len(batch))
					}
				}
			}
			f.mu.RUnlock()
		}
	}
}
