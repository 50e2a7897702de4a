// Package bus provides the process-local message broker that decouples
// chat channels from the agent core.
//
// Architecture:
//
//	channels -> inbound queue -> agent loop -> outbound queue -> dispatcher -> channels
//
// The two queues are the only shared mutable exchange between channels,
// agent, scheduler, and subagents.
package bus

import (
	"context"
	"log/slog"
	"sync"
)

const defaultQueueSize = 256

// MessageBus carries inbound and outbound messages between channels and the agent.
type MessageBus struct {
	inbound  chan InboundMessage
	outbound chan OutboundMessage

	mu          sync.RWMutex
	subscribers map[string][]OutboundHandler

	started  bool
	cancel   context.CancelFunc
	done     chan struct{}
	startMu  sync.Mutex
}

// New creates a message bus with the default queue capacity.
func New() *MessageBus {
	return NewWithSize(defaultQueueSize, defaultQueueSize)
}

// NewWithSize creates a message bus with explicit queue capacities.
func NewWithSize(inboundSize, outboundSize int) *MessageBus {
	return &MessageBus{
		inbound:     make(chan InboundMessage, inboundSize),
		outbound:    make(chan OutboundMessage, outboundSize),
		subscribers: make(map[string][]OutboundHandler),
	}
}

// Start launches the outbound dispatcher. Calling Start on a running bus is a no-op.
func (b *MessageBus) Start(ctx context.Context) {
	b.startMu.Lock()
	defer b.startMu.Unlock()
	if b.started {
		return
	}
	b.started = true

	dispatchCtx, cancel := context.WithCancel(ctx)
	b.cancel = cancel
	b.done = make(chan struct{})
	go b.dispatchLoop(dispatchCtx)
}

// Stop shuts down the dispatcher and waits for it to exit.
func (b *MessageBus) Stop() {
	b.startMu.Lock()
	defer b.startMu.Unlock()
	if !b.started {
		return
	}
	b.started = false
	b.cancel()
	<-b.done
}

// PublishInbound enqueues a message from a channel into the agent pipeline.
// Blocks when the inbound queue is full (backpressure).
func (b *MessageBus) PublishInbound(msg InboundMessage) {
	b.inbound <- msg
}

// ConsumeInbound returns the next inbound message, blocking until one is
// available or ctx is cancelled. The second return is false on cancellation.
// The agent loop is the single expected consumer.
func (b *MessageBus) ConsumeInbound(ctx context.Context) (InboundMessage, bool) {
	select {
	case <-ctx.Done():
		return InboundMessage{}, false
	case msg := <-b.inbound:
		return msg, true
	}
}

// PublishOutbound enqueues an agent reply for channel delivery.
func (b *MessageBus) PublishOutbound(msg OutboundMessage) {
	b.outbound <- msg
}

// Subscribe registers a delivery handler for outbound messages on a channel.
func (b *MessageBus) Subscribe(channel string, handler OutboundHandler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subscribers[channel] = append(b.subscribers[channel], handler)
}

// InboundSize returns the current inbound queue depth.
func (b *MessageBus) InboundSize() int { return len(b.inbound) }

// OutboundSize returns the current outbound queue depth.
func (b *MessageBus) OutboundSize() int { return len(b.outbound) }

// dispatchLoop drains the outbound queue and fans each message out to the
// subscribers of its channel. Messages for channels without subscribers are
// dropped with a warning.
func (b *MessageBus) dispatchLoop(ctx context.Context) {
	defer close(b.done)
	slog.Info("message bus dispatcher started")

	for {
		select {
		case <-ctx.Done():
			slog.Info("message bus dispatcher stopped")
			return
		case msg := <-b.outbound:
			b.mu.RLock()
			handlers := b.subscribers[msg.Channel]
			b.mu.RUnlock()

			if len(handlers) == 0 {
				slog.Warn("no outbound subscriber for channel", "channel", msg.Channel)
				continue
			}
			b.fanout(ctx, msg, handlers)
		}
	}
}

// fanout delivers one message to all subscribers in parallel. A failure or
// panic in one handler never affects its siblings.
func (b *MessageBus) fanout(ctx context.Context, msg OutboundMessage, handlers []OutboundHandler) {
	var wg sync.WaitGroup
	for _, h := range handlers {
		wg.Add(1)
		go func(handler OutboundHandler) {
			defer wg.Done()
			defer func() {
				if r := recover(); r != nil {
					slog.Error("outbound handler panicked", "channel", msg.Channel, "panic", r)
				}
			}()
			if err := handler(ctx, msg); err != nil {
				slog.Error("outbound handler failed", "channel", msg.Channel, "error", err)
			}
		}(h)
	}
	wg.Wait()
}
