package node

import (
	"context"
	"errors"
	"fmt"

	"github.com/KilimcininKorOglu/lightpaxos/internal/paxos"
	"github.com/KilimcininKorOglu/lightpaxos/internal/transport"
)

type eventKind uint8

const (
	eventDatagram eventKind = iota
	eventTimer
	eventCall
)

// event is one unit of work for the loop.
type event struct {
	kind       eventKind
	data       []byte
	timer      timerKind
	generation uint64
	call       func()
}

// Start runs the start-mode decision and launches the receive goroutine
// and the event loop. The loop ends on Stop, on ctx cancellation, or on a
// receive failure.
func (h *Handler) Start(ctx context.Context) error {
	if !h.started.CompareAndSwap(false, true) {
		return ErrAlreadyStarted
	}

	h.logger.Info("handler starting",
		"transport", h.transport.LocalAddr(),
		"proposer", h.proposer != nil, "acceptor", h.acceptor != nil, "learner", h.learner != nil)

	// Timer firings queue on the events channel until the loop runs.
	h.boot()

	h.wg.Add(2)
	go h.receiveLoop()
	go h.run(ctx)
	return nil
}

// Wait blocks until the handler has stopped. It returns nil after Stop or
// context cancellation, the receive error otherwise.
func (h *Handler) Wait() error {
	if !h.started.Load() {
		return ErrNotStarted
	}
	h.wg.Wait()

	h.errMu.Lock()
	defer h.errMu.Unlock()
	return h.err
}

// Stop closes the transport and ends the event loop.
func (h *Handler) Stop() error {
	if !h.started.Load() {
		return ErrNotStarted
	}
	h.shutdown(nil)
	return nil
}

// Propose asks the node to propose value. Only a primary accepts; it
// answers with a ping to the group. Propose must not be called from a
// Listener callback, which runs on the event loop.
func (h *Handler) Propose(value string) bool {
	if !h.started.Load() {
		return false
	}

	reply := make(chan bool, 1)
	call := func() { reply <- h.propose(value) }

	select {
	case h.events <- event{kind: eventCall, call: call}:
	case <-h.quit:
		return false
	}
	select {
	case ok := <-reply:
		return ok
	case <-h.quit:
		return false
	}
}

func (h *Handler) shutdown(err error) {
	h.stopOnce.Do(func() {
		h.errMu.Lock()
		h.err = err
		h.errMu.Unlock()

		close(h.quit)
		if cerr := h.transport.Close(); cerr != nil {
			h.logger.Warn("transport close failed", "error", cerr)
		}
	})
}

// run is the single consumer of the events channel. Role state is only
// touched here.
func (h *Handler) run(ctx context.Context) {
	defer h.wg.Done()
	defer h.deadline.cancel()

	for {
		select {
		case <-ctx.Done():
			h.shutdown(nil)
			h.logger.Info("handler stopped", "reason", "context done")
			return
		case <-h.quit:
			h.logger.Info("handler stopped")
			return
		case ev := <-h.events:
			h.handleEvent(ev)
		}
	}
}

func (h *Handler) handleEvent(ev event) {
	switch ev.kind {
	case eventDatagram:
		m, err := paxos.Decode(ev.data)
		if err != nil {
			h.malformed.Add(1)
			h.logger.Warn("malformed datagram dropped", "error", err, "size", len(ev.data))
			return
		}
		h.dispatch(m)

	case eventTimer:
		if !h.deadline.take(ev.generation) {
			h.staleTimers.Add(1)
			h.logger.Debug("stale timer ignored", "timer", ev.timer.String())
			return
		}
		h.onTimeout(ev.timer)

	case eventCall:
		ev.call()
	}
}

// receiveLoop feeds datagrams to the loop. A receive failure other than
// a deliberate close stops the handler.
func (h *Handler) receiveLoop() {
	defer h.wg.Done()

	// One spare byte tells a datagram that filled the buffer from one
	// the transport cut short.
	buf := make([]byte, h.bufferSize+1)
	for {
		n, err := h.transport.Receive(buf)
		if err != nil {
			select {
			case <-h.quit:
				return
			default:
			}
			if errors.Is(err, transport.ErrClosed) {
				h.shutdown(nil)
				return
			}
			h.logger.Error("receive failed, stopping", "error", err)
			h.shutdown(fmt.Errorf("node: receive: %w", err))
			return
		}
		h.received.Add(1)
		if n > h.bufferSize {
			h.malformed.Add(1)
			h.logger.Warn("oversized datagram dropped", "limit", h.bufferSize)
			continue
		}

		data := make([]byte, n)
		copy(data, buf[:n])
		select {
		case h.events <- event{kind: eventDatagram, data: data}:
		case <-h.quit:
			return
		}
	}
}

// postTimer hands a timer firing to the loop. It runs on the timer's goroutine.
func (h *Handler) postTimer(kind timerKind, generation uint64) {
	select {
	case h.events <- event{kind: eventTimer, timer: kind, generation: generation}:
	case <-h.quit:
	}
}
