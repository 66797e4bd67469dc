package webhook

import (
	"context"
	"sync"
)

// Dispatcher runs deliveries in the background so the mutation that
// triggered them never waits on the bot engine. Each payload is delivered by
// one goroutine, so retries for the same event stay sequential.
type Dispatcher struct {
	sender Sender
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewDispatcher wraps sender for asynchronous use.
func NewDispatcher(sender Sender) *Dispatcher {
	ctx, cancel := context.WithCancel(context.Background())
	return &Dispatcher{sender: sender, ctx: ctx, cancel: cancel}
}

// Publish schedules p for delivery and returns immediately.
func (d *Dispatcher) Publish(p Payload) {
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		d.sender.Send(d.ctx, p)
	}()
}

// Wait blocks until every scheduled delivery has finished.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

// Shutdown waits for in-flight deliveries until ctx expires, then cancels
// whatever is still running and waits for it to record its outcome.
func (d *Dispatcher) Shutdown(ctx context.Context) {
	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		d.cancel()
		<-done
	}
	d.cancel()
}
