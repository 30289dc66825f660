package server

import (
	"hash/fnv"
	"sync"

	"github.com/decred/slog"
	"github.com/vctt94/blackjacktables/pkg/blackjack"
)

// EventHandler consumes committed table events.
type EventHandler interface {
	HandleEvent(event blackjack.TableEvent)
}

// EventProcessor fans committed table events out to handlers. Every table is
// pinned to one worker so its events are delivered in commit order.
type EventProcessor struct {
	log      slog.Logger
	handlers []EventHandler
	workers  []*eventWorker
	stopChan chan struct{}
	wg       sync.WaitGroup
	started  bool
	mu       sync.Mutex
}

// eventWorker processes events from its own queue
type eventWorker struct {
	id        int
	processor *EventProcessor
	queue     chan blackjack.TableEvent
}

// NewEventProcessor creates a new event processor
func NewEventProcessor(log slog.Logger, queueSize, workerCount int, handlers ...EventHandler) *EventProcessor {
	processor := &EventProcessor{
		log:      log,
		handlers: handlers,
		stopChan: make(chan struct{}),
	}

	processor.workers = make([]*eventWorker, workerCount)
	for i := 0; i < workerCount; i++ {
		processor.workers[i] = &eventWorker{
			id:        i,
			processor: processor,
			queue:     make(chan blackjack.TableEvent, queueSize),
		}
	}

	return processor
}

// QueueFor returns the queue a table publishes its events to.
func (ep *EventProcessor) QueueFor(tableID string) chan<- blackjack.TableEvent {
	return ep.workers[hashString(tableID)%uint32(len(ep.workers))].queue
}

// Start begins processing events
func (ep *EventProcessor) Start() {
	ep.mu.Lock()
	defer ep.mu.Unlock()

	if ep.started {
		return
	}

	ep.started = true
	ep.log.Infof("Starting event processor with %d workers", len(ep.workers))

	for _, worker := range ep.workers {
		ep.wg.Add(1)
		go worker.run()
	}
}

// Stop gracefully stops the event processor
func (ep *EventProcessor) Stop() {
	ep.mu.Lock()
	defer ep.mu.Unlock()

	if !ep.started {
		return
	}

	ep.log.Infof("Stopping event processor...")
	close(ep.stopChan)
	ep.wg.Wait()

	ep.started = false
	ep.log.Infof("Event processor stopped")
}

// run executes the worker loop
func (w *eventWorker) run() {
	defer w.processor.wg.Done()
	w.processor.log.Debugf("Event worker %d started", w.id)

	for {
		select {
		case <-w.processor.stopChan:
			w.processor.log.Debugf("Event worker %d stopping", w.id)
			return

		case event := <-w.queue:
			w.processEvent(event)
		}
	}
}

// processEvent passes a single event to all registered handlers
func (w *eventWorker) processEvent(event blackjack.TableEvent) {
	w.processor.log.Tracef("Worker %d processing event: %s for table %s", w.id, event.Type, event.TableID)
	for _, h := range w.processor.handlers {
		h.HandleEvent(event)
	}
}

func hashString(s string) uint32 {
	h := fnv.New32a()
	h.Write([]byte(s))
	return h.Sum32()
}
