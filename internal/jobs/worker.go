// Package jobs runs background work on a polling loop.
package jobs

import (
	"context"
	"log"
	"sync"
	"time"
)

// JobProcessor handles whatever work is ready when polled.
type JobProcessor interface {
	ProcessJobs(ctx context.Context) error
}

// Worker polls a JobProcessor until stopped or its context ends.
type Worker struct {
	name         string
	processor    JobProcessor
	pollInterval time.Duration
	wakeChan     chan struct{}
	stopChan     chan struct{}
	doneChan     chan struct{}
	stopOnce     sync.Once
}

func NewWorker(name string, processor JobProcessor, pollInterval time.Duration) *Worker {
	return &Worker{
		name:         name,
		processor:    processor,
		pollInterval: pollInterval,
		wakeChan:     make(chan struct{}, 1),
		stopChan:     make(chan struct{}),
		doneChan:     make(chan struct{}),
	}
}

// Start polls once immediately, then on every tick or Wake, and blocks
// until the worker stops.
func (w *Worker) Start(ctx context.Context) {
	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()
	defer close(w.doneChan)

	log.Printf("worker %s: started (poll interval %v)", w.name, w.pollInterval)
	w.poll(ctx)

	for {
		select {
		case <-ctx.Done():
			log.Printf("worker %s: context cancelled", w.name)
			return
		case <-w.stopChan:
			log.Printf("worker %s: stop requested", w.name)
			return
		case <-w.wakeChan:
			w.poll(ctx)
			ticker.Reset(w.pollInterval)
		case <-ticker.C:
			w.poll(ctx)
		}
	}
}

// Wake asks for a poll ahead of the next tick. Wakes that arrive while one
// is already pending collapse into it.
func (w *Worker) Wake() {
	select {
	case w.wakeChan <- struct{}{}:
	default:
	}
}

func (w *Worker) poll(ctx context.Context) {
	if err := w.processor.ProcessJobs(ctx); err != nil {
		log.Printf("worker %s: %v", w.name, err)
	}
}

// Stop signals the loop and waits for the in-flight poll to finish. It must
// only be called after Start.
func (w *Worker) Stop() {
	w.stopOnce.Do(func() { close(w.stopChan) })
	<-w.doneChan
	log.Printf("worker %s: shutdown complete", w.name)
}
